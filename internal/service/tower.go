package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/ericogr/idlerpg-arena/internal/constants"
	"github.com/ericogr/idlerpg-arena/internal/engine"
	"github.com/ericogr/idlerpg-arena/internal/game"
	"github.com/ericogr/idlerpg-arena/internal/gamedata"
	"github.com/ericogr/idlerpg-arena/internal/logging"
	"github.com/ericogr/idlerpg-arena/internal/settlement"
	"github.com/ericogr/idlerpg-arena/internal/stats"
	"github.com/ericogr/idlerpg-arena/internal/tower"
)

// TowerStart enters the tower at level 1. Players already inside keep
// their progress.
func (s *Service) TowerStart(ctx context.Context, userID string) (tower.Progress, error) {
	prof, err := s.profile(ctx, userID)
	if err != nil {
		return tower.Progress{}, err
	}
	cur := tower.FromProfile(prof)
	if cur.Started() {
		return cur, nil
	}
	next := tower.Start(cur)
	if err := s.store.SetTowerProgress(ctx, userID, next.Level, next.Prestige); err != nil {
		return cur, game.WrapIO("set tower progress", err)
	}
	return next, nil
}

// TowerProgress returns the player's progress and the floor they face.
func (s *Service) TowerProgress(ctx context.Context, userID string) (tower.Progress, *gamedata.TowerLevel, error) {
	prof, err := s.profile(ctx, userID)
	if err != nil {
		return tower.Progress{}, nil, err
	}
	p := tower.FromProfile(prof)
	floor, err := s.tower.Floor(p)
	if errors.Is(err, game.ErrTowerNotStarted) {
		return p, nil, nil
	}
	if err != nil {
		return p, nil, err
	}
	return p, &floor, nil
}

// TowerFight fights the player's current floor. A win pays the floor
// reward, an optional chest, a boss crate and an egg roll, then advances
// the player; winning the top floor asks whether to prestige.
func (s *Service) TowerFight(ctx context.Context, ch Channel, userID string) (*Outcome, tower.Progress, error) {
	kind := constants.KindTower
	release, err := s.fights.Acquire(kind, userID)
	if err != nil {
		return nil, tower.Progress{}, err
	}
	defer release()

	prof, err := s.profile(ctx, userID)
	if err != nil {
		return nil, tower.Progress{}, err
	}
	prog := tower.FromProfile(prof)
	floor, err := s.tower.Floor(prog)
	if err != nil {
		return nil, prog, err
	}

	player, err := s.players.ResolvePlayer(ctx, userID)
	if err != nil {
		return nil, prog, err
	}
	party := []*engine.Combatant{player}
	pet, err := s.players.ResolvePet(ctx, userID)
	switch {
	case err == nil:
		party = append(party, pet)
	case !errors.Is(err, game.ErrNoEquippedPet):
		return nil, prog, err
	}
	enemies := make([]*engine.Combatant, 0, len(floor.Enemies))
	for i, m := range floor.Enemies {
		enemies = append(enemies, stats.MonsterCombatant(monsterID(i, m), m))
	}

	if floor.Dialogue != "" {
		s.say(ctx, ch, floor.Dialogue)
	}
	enc, err := s.encounter(kind, "", [][]*engine.Combatant{party, enemies}, s.cfg.Rules(kind))
	if err != nil {
		return nil, prog, err
	}
	if err := s.run(ctx, ch, enc, false); err != nil {
		return nil, prog, err
	}
	if enc.State() != engine.StateSettledWin || enc.Winner() != 0 {
		out, err := s.settle(ctx, ch, enc, nil, fmt.Sprintf("Tower level %d was too much this time.", floor.Level))
		return out, prog, err
	}

	grants := s.towerGrants(ctx, ch, userID, floor)
	next, offer := tower.AfterWin(prog)
	out, err := s.settle(ctx, ch, enc, grants, fmt.Sprintf("Tower level %d cleared.", floor.Level))
	if err != nil {
		return nil, prog, err
	}
	if offer {
		accept := s.askPrestige(ctx, ch, userID)
		next = tower.Resolve(next, accept)
		if accept {
			s.say(ctx, ch, fmt.Sprintf(constants.MsgPrestigeAccepted, next.Prestige))
		} else {
			s.say(ctx, ch, constants.MsgPrestigeDeclined)
		}
	}
	if err := s.store.SetTowerProgress(ctx, userID, next.Level, next.Prestige); err != nil {
		return out, prog, game.WrapIO("set tower progress", err)
	}
	return out, next, nil
}

// towerGrants builds the rewards for a cleared floor. Money from the floor
// and the chosen chest is paid in one grant so it forms one ledger entry.
func (s *Service) towerGrants(ctx context.Context, ch Channel, userID string, floor gamedata.TowerLevel) []settlement.Grant {
	main := settlement.Grant{
		UserID:  userID,
		Side:    0,
		Subject: constants.SubjectTower,
		Money:   floor.Reward.Money,
		XP:      floor.Reward.XP,
		Crate:   floor.Reward.Crate,
		Crates:  floor.Reward.Crates,
	}
	if n := len(floor.Enemies); n > 0 {
		main.Egg = &settlement.EggRoll{Monster: floor.Enemies[n-1], Chance: s.cfg.Rewards.EggChance, Cap: s.cfg.Rewards.EggCapTower}
	}
	grants := []settlement.Grant{main}
	if len(floor.Chests) > 0 {
		chest := s.chooseChest(ctx, ch, userID, floor.Chests)
		grants[0].Money += chest.Money
		grants[0].XP += chest.XP
		if chest.Crate != "" && chest.Crates > 0 {
			grants = append(grants, settlement.Grant{UserID: userID, Side: 0, Crate: chest.Crate, Crates: chest.Crates})
		}
	}
	if floor.Boss {
		grants = append(grants, settlement.Grant{UserID: userID, Side: 0, Crate: s.tables.RollCrate(s.rng), Crates: 1})
	}
	return grants
}

// chooseChest asks the player to pick a chest by number. A timeout or an
// answer that is not a valid number picks one at random.
func (s *Service) chooseChest(ctx context.Context, ch Channel, userID string, chests []gamedata.Reward) gamedata.Reward {
	labels := make([]string, len(chests))
	for i, c := range chests {
		labels[i] = fmt.Sprintf("%d) %s", i+1, c.Label)
	}
	if err := ch.Prompt(ctx, userID, fmt.Sprintf(constants.MsgChestChoice, strings.Join(labels, ", "))); err != nil {
		logging.Warn("chest prompt failed", logging.Fields{constants.LogFieldUserID: userID, "error": err.Error()})
	}
	ans, err := ch.Await(ctx, userID, constants.DefaultInputTimeout)
	if err == nil {
		if n, perr := strconv.Atoi(strings.TrimSpace(ans)); perr == nil && n >= 1 && n <= len(chests) {
			return chests[n-1]
		}
	} else if !errors.Is(err, game.ErrInputTimeout) {
		logging.Warn("chest choice failed", logging.Fields{constants.LogFieldUserID: userID, "error": err.Error()})
	}
	return chests[s.rng.Intn(len(chests))]
}

// askPrestige reports whether the player accepted. Timeouts decline.
func (s *Service) askPrestige(ctx context.Context, ch Channel, userID string) bool {
	if err := ch.Prompt(ctx, userID, constants.MsgPrestigePrompt); err != nil {
		logging.Warn("prestige prompt failed", logging.Fields{constants.LogFieldUserID: userID, "error": err.Error()})
		return false
	}
	ans, err := ch.Await(ctx, userID, constants.DefaultInputTimeout)
	if err != nil {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(ans)) {
	case "yes", "y":
		return true
	}
	return false
}
