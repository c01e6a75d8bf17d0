package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ericogr/idlerpg-arena/internal/constants"
	"github.com/ericogr/idlerpg-arena/internal/engine"
	"github.com/ericogr/idlerpg-arena/internal/game"
	"github.com/ericogr/idlerpg-arena/internal/keys"
	"github.com/ericogr/idlerpg-arena/internal/logging"
)

// Battle is a 1v1 wager fight. An empty opponent lets anyone accept. A
// join timeout refunds the challenger and returns a nil outcome.
func (s *Service) Battle(ctx context.Context, ch Channel, challenger, opponent string, wager int64) (*Outcome, error) {
	return s.duel(ctx, ch, constants.KindBattle, constants.SubjectBattle, false, challenger, opponent, wager)
}

// RaidBattle is Battle with both players' equipped pets fighting along.
func (s *Service) RaidBattle(ctx context.Context, ch Channel, challenger, opponent string, wager int64) (*Outcome, error) {
	return s.duel(ctx, ch, constants.KindRaidBattle, constants.SubjectRaidBattle, true, challenger, opponent, wager)
}

func (s *Service) duel(ctx context.Context, ch Channel, kind, subject string, pets bool, challenger, opponent string, wager int64) (*Outcome, error) {
	if wager < 0 {
		return nil, game.ErrInvalidWager
	}
	if opponent == challenger {
		return nil, game.ErrSelfBattle
	}
	release, err := s.fights.Acquire(kind, challenger)
	if err != nil {
		return nil, err
	}
	defer release()

	if pets {
		// Refuse before taking money when the challenger has no pet.
		if _, err := s.players.ResolvePet(ctx, challenger); err != nil {
			return nil, err
		}
	}

	encID := uuid.NewString()
	if err := s.settler.Open(ctx, encID, kind, subject, []game.Stake{{UserID: challenger, Side: 0, Amount: wager}}); err != nil {
		return nil, err
	}

	text := fmt.Sprintf("<@%s> wants to fight for $%d. Accept to join.", challenger, wager)
	if opponent != "" {
		text = fmt.Sprintf("<@%s>, <@%s> challenges you for $%d. Accept to join.", opponent, challenger, wager)
	}
	joined, releaseJoined, err := s.gather(ctx, ch, encID, kind, text, wager, []joinSlot{{userID: opponent, side: 1}}, challenger)
	if errors.Is(err, game.ErrInputTimeout) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer releaseJoined()

	sides, err := s.buildSides(ctx, [][]string{{challenger}, {joined[0]}}, pets)
	if err != nil {
		s.refund(context.WithoutCancel(ctx), encID)
		return nil, err
	}
	return s.fightPvP(ctx, ch, kind, encID, sides)
}

// RaidBattle2v2 is a four player team fight with pets. Every player other
// than teamA[0] must accept; each stakes the wager.
func (s *Service) RaidBattle2v2(ctx context.Context, ch Channel, teamA, teamB [2]string, wager int64) (*Outcome, error) {
	if wager < 0 {
		return nil, game.ErrInvalidWager
	}
	all := []string{teamA[0], teamA[1], teamB[0], teamB[1]}
	seen := make(map[string]bool, len(all))
	for _, id := range all {
		if id == "" || seen[id] {
			return nil, game.ErrSelfBattle
		}
		seen[id] = true
	}
	kind := constants.KindRaid2v2
	challenger := teamA[0]
	release, err := s.fights.Acquire(kind, challenger)
	if err != nil {
		return nil, err
	}
	defer release()

	encID := uuid.NewString()
	if err := s.settler.Open(ctx, encID, kind, constants.SubjectRaid2v2, []game.Stake{{UserID: challenger, Side: 0, Amount: wager}}); err != nil {
		return nil, err
	}
	logging.Info("2v2 raid battle opened", logging.Fields{
		constants.LogFieldEncounterID: encID,
		constants.LogFieldKey:         keys.ParticipantsKey(all),
	})

	text := fmt.Sprintf("<@%s> and <@%s> challenge <@%s> and <@%s> for $%d each. Everyone must accept.",
		teamA[0], teamA[1], teamB[0], teamB[1], wager)
	slots := []joinSlot{{userID: teamA[1], side: 0}, {userID: teamB[0], side: 1}, {userID: teamB[1], side: 1}}
	_, releaseJoined, err := s.gather(ctx, ch, encID, kind, text, wager, slots, challenger)
	if errors.Is(err, game.ErrInputTimeout) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer releaseJoined()

	sides, err := s.buildSides(ctx, [][]string{{teamA[0], teamA[1]}, {teamB[0], teamB[1]}}, true)
	if err != nil {
		s.refund(context.WithoutCancel(ctx), encID)
		return nil, err
	}
	return s.fightPvP(ctx, ch, kind, encID, sides)
}

func (s *Service) fightPvP(ctx context.Context, ch Channel, kind, encID string, sides [][]*engine.Combatant) (*Outcome, error) {
	enc, err := s.encounter(kind, encID, sides, s.cfg.Rules(kind))
	if err != nil {
		s.refund(context.WithoutCancel(ctx), encID)
		return nil, err
	}
	if err := s.run(ctx, ch, enc, true); err != nil {
		return nil, err
	}
	return s.settle(ctx, ch, enc, nil)
}

// joinSlot is a place to fill before the fight. An empty userID accepts
// anyone who is not already taking part.
type joinSlot struct {
	userID string
	side   int
}

// gather waits until every slot is filled within the join timeout. Each
// joiner is marked as fighting and has their stake added to the escrow.
// On timeout or failure the escrow is refunded; a timeout returns
// game.ErrInputTimeout after telling the channel.
func (s *Service) gather(ctx context.Context, ch Channel, encID, kind, text string, wager int64, slots []joinSlot, challenger string) ([]string, func(), error) {
	joined := make([]string, len(slots))
	filled := make([]bool, len(slots))
	var releases []func()
	releaseAll := func() {
		for _, r := range releases {
			r()
		}
	}
	fail := func(err error) ([]string, func(), error) {
		releaseAll()
		s.refund(context.WithoutCancel(ctx), encID)
		return nil, nil, err
	}

	taken := func(id string) bool {
		if id == challenger {
			return true
		}
		for i := range slots {
			if filled[i] && joined[i] == id {
				return true
			}
		}
		return false
	}
	slotFor := func(id string) int {
		for i, sl := range slots {
			if !filled[i] && sl.userID == id {
				return i
			}
		}
		for i, sl := range slots {
			if !filled[i] && sl.userID == "" {
				return i
			}
		}
		return -1
	}

	deadline := s.now().Add(s.cfg.Battle.JoinTimeout)
	for n := 0; n < len(slots); n++ {
		remaining := deadline.Sub(s.now())
		if remaining <= 0 {
			remaining = time.Millisecond
		}
		id, err := ch.AwaitAccept(ctx, text, func(id string) bool {
			return !taken(id) && slotFor(id) >= 0
		}, remaining)
		if errors.Is(err, game.ErrInputTimeout) {
			logging.Info("battle join timed out", logging.Fields{constants.LogFieldEncounterID: encID, constants.LogFieldKind: kind})
			_, _, err = fail(err)
			s.say(context.WithoutCancel(ctx), ch, constants.MsgNoOpponent)
			return nil, nil, err
		}
		if err != nil {
			return fail(err)
		}
		i := slotFor(id)
		if i < 0 || taken(id) {
			return fail(fmt.Errorf("unexpected joiner %s", id))
		}
		rel, err := s.fights.Acquire(kind, id)
		if err != nil {
			return fail(err)
		}
		releases = append(releases, rel)
		if err := s.settler.Join(ctx, encID, game.Stake{UserID: id, Side: slots[i].side, Amount: wager}); err != nil {
			return fail(err)
		}
		joined[i], filled[i] = id, true
	}
	return joined, releaseAll, nil
}

// buildSides resolves every player, plus their equipped pet when pets is
// set, into encounter sides.
func (s *Service) buildSides(ctx context.Context, teams [][]string, pets bool) ([][]*engine.Combatant, error) {
	var ids []string
	for _, t := range teams {
		ids = append(ids, t...)
	}
	resolved, err := s.players.ResolvePlayers(ctx, ids...)
	if err != nil {
		return nil, err
	}
	sides := make([][]*engine.Combatant, len(teams))
	k := 0
	for i, t := range teams {
		for _, id := range t {
			sides[i] = append(sides[i], resolved[k])
			k++
			if !pets {
				continue
			}
			pet, err := s.players.ResolvePet(ctx, id)
			if err != nil {
				return nil, fmt.Errorf("player %s: %w", id, err)
			}
			sides[i] = append(sides[i], pet)
		}
	}
	return sides, nil
}
