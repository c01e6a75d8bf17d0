package discord

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ericogr/idlerpg-arena/internal/constants"
	"github.com/ericogr/idlerpg-arena/internal/game"
	"github.com/ericogr/idlerpg-arena/internal/gamedata"
	"github.com/ericogr/idlerpg-arena/internal/logging"
	"github.com/ericogr/idlerpg-arena/internal/present"
	"github.com/ericogr/idlerpg-arena/internal/service"
	"github.com/ericogr/idlerpg-arena/internal/slots"
	"github.com/ericogr/idlerpg-arena/internal/tower"
)

// Battles is the battle command surface.
type Battles interface {
	Battle(ctx context.Context, ch service.Channel, challenger, opponent string, wager int64) (*service.Outcome, error)
	RaidBattle(ctx context.Context, ch service.Channel, challenger, opponent string, wager int64) (*service.Outcome, error)
	RaidBattle2v2(ctx context.Context, ch service.Channel, teamA, teamB [2]string, wager int64) (*service.Outcome, error)
	Horde(ctx context.Context, ch service.Channel, userID string) (*service.Outcome, int, error)
	Adventure(ctx context.Context, ch service.Channel, userID string) (*service.Outcome, error)
	TowerStart(ctx context.Context, userID string) (tower.Progress, error)
	TowerProgress(ctx context.Context, userID string) (tower.Progress, *gamedata.TowerLevel, error)
	TowerFight(ctx context.Context, ch service.Channel, userID string) (*service.Outcome, tower.Progress, error)
}

// Slots is the slot machine command surface.
type Slots interface {
	Join(ctx context.Context, userID string, seatID int) error
	Spin(ctx context.Context, userID string) (*slots.SpinResult, error)
	Challenge(ctx context.Context, userID string, p slots.Prompter) (bool, error)
	Leave(ctx context.Context, userID string, p slots.Prompter) (int, error)
	Seats(ctx context.Context) ([]game.SlotSeat, error)
}

// Command is a parsed slash command invocation.
type Command struct {
	Name      string
	Sub       string
	UserID    string
	ChannelID string
	Users     map[string]string
	Ints      map[string]int64
}

// Router runs commands and is the single place errors become chat text.
type Router struct {
	battles   Battles
	slots     Slots
	sender    Sender
	collector *Collector
}

func NewRouter(battles Battles, machine Slots, sender Sender, collector *Collector) *Router {
	return &Router{battles: battles, slots: machine, sender: sender, collector: collector}
}

// Handle runs cmd and returns the reply for the invoking user. Progress is
// posted to the channel while the command runs.
func (r *Router) Handle(ctx context.Context, cmd Command) string {
	ch := NewChannel(r.sender, r.collector, cmd.ChannelID)
	reply, err := r.dispatch(ctx, ch, cmd)
	if err != nil {
		fields := logging.Fields{
			constants.LogFieldCommand: strings.TrimSpace(cmd.Name + " " + cmd.Sub),
			constants.LogFieldUserID:  cmd.UserID,
		}
		msg := UserMessage(err)
		if msg == constants.MsgGenericFailure {
			logging.Error("command failed", err, fields)
		} else {
			logging.Debug("command refused: "+err.Error(), fields)
		}
		return msg
	}
	return reply
}

func (r *Router) dispatch(ctx context.Context, ch *Channel, cmd Command) (string, error) {
	wager := cmd.Ints["amount"]
	switch cmd.Name {
	case "battle":
		_, err := r.battles.Battle(ctx, ch, cmd.UserID, cmd.Users["opponent"], wager)
		return "", err
	case "raidbattle":
		_, err := r.battles.RaidBattle(ctx, ch, cmd.UserID, cmd.Users["opponent"], wager)
		return "", err
	case "raidbattle2v2":
		teamA := [2]string{cmd.UserID, cmd.Users["teammate"]}
		teamB := [2]string{cmd.Users["opponent1"], cmd.Users["opponent2"]}
		_, err := r.battles.RaidBattle2v2(ctx, ch, teamA, teamB, wager)
		return "", err
	case "horde":
		_, cleared, err := r.battles.Horde(ctx, ch, cmd.UserID)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Horde over after %d cleared waves.", cleared), nil
	case "adventure":
		_, err := r.battles.Adventure(ctx, ch, cmd.UserID)
		return "", err
	case "tower":
		return r.tower(ctx, ch, cmd)
	case "slots":
		return r.slotsCommand(ctx, ch, cmd)
	}
	return "", fmt.Errorf("unknown command %q", cmd.Name)
}

func (r *Router) tower(ctx context.Context, ch *Channel, cmd Command) (string, error) {
	switch cmd.Sub {
	case "start":
		if _, err := r.battles.TowerStart(ctx, cmd.UserID); err != nil {
			return "", err
		}
		return constants.MsgTowerStarted, nil
	case "progress":
		p, floor, err := r.battles.TowerProgress(ctx, cmd.UserID)
		if err != nil {
			return "", err
		}
		if floor == nil {
			return constants.MsgTowerNotStarted, nil
		}
		return fmt.Sprintf("Tower level %d, prestige %d. Next: %s", p.Level, p.Prestige, floor.Dialogue), nil
	case "fight":
		_, next, err := r.battles.TowerFight(ctx, ch, cmd.UserID)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("You are on tower level %d.", next.Level), nil
	}
	return "", fmt.Errorf("unknown tower subcommand %q", cmd.Sub)
}

func (r *Router) slotsCommand(ctx context.Context, ch *Channel, cmd Command) (string, error) {
	switch cmd.Sub {
	case "join":
		seat := int(cmd.Ints["seat"])
		if err := r.slots.Join(ctx, cmd.UserID, seat); err != nil {
			return "", err
		}
		return fmt.Sprintf(constants.MsgSeatJoined, seat), nil
	case "spin":
		res, err := r.slots.Spin(ctx, cmd.UserID)
		if err != nil {
			return "", err
		}
		text := SpinText(res)
		if res.CaptchaRequired {
			if err := ch.Say(ctx, text); err != nil {
				logging.Warn("spin message failed", logging.Fields{constants.LogFieldUserID: cmd.UserID})
			}
			if _, err := r.slots.Challenge(ctx, cmd.UserID, ch); err != nil {
				return "", err
			}
			return "", nil
		}
		return text, nil
	case "leave":
		seat, err := r.slots.Leave(ctx, cmd.UserID, ch)
		if err != nil {
			return "", err
		}
		if seat == 0 {
			return "", nil
		}
		return fmt.Sprintf(constants.MsgSeatLeft, seat), nil
	case "seats":
		seats, err := r.slots.Seats(ctx)
		if err != nil {
			return "", err
		}
		return SeatsText(seats), nil
	}
	return "", fmt.Errorf("unknown slots subcommand %q", cmd.Sub)
}

// SpinText describes a spin result.
func SpinText(res *slots.SpinResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s | %s | %s", res.Reels[0], res.Reels[1], res.Reels[2])
	if res.Reward > 0 {
		fmt.Fprintf(&b, "\nYou won $%d!", res.Reward)
	} else {
		b.WriteString("\nNo luck this time.")
	}
	if d := res.Dragon; d != nil {
		if d.Slain {
			fmt.Fprintf(&b, "\nYou slew the dragon and took the $%d jackpot!", d.Jackpot)
		} else {
			fmt.Fprintf(&b, "\nYou hit the dragon for %.0f. It has %.0f HP left.", d.Damage, d.DragonHP)
		}
	}
	fmt.Fprintf(&b, "\nSeat %d jackpot: $%d", res.SeatID, res.Jackpot)
	return b.String()
}

// SeatsText lists seats in a fixed-width table.
func SeatsText(seats []game.SlotSeat) string {
	var b strings.Builder
	b.WriteString("```\n")
	for _, s := range seats {
		who := "free"
		if !s.Free() {
			who = s.OccupantID
		}
		fmt.Fprintf(&b, "%d %s $%-10d dragon %.0f\n", s.SeatID, present.Pad(who, 20), s.Jackpot, s.DragonHP)
	}
	b.WriteString("```")
	return b.String()
}

// UserMessage maps an error to the text shown to the player.
func UserMessage(err error) string {
	switch {
	case errors.Is(err, game.ErrProfileNotFound):
		return constants.MsgProfileNotFound
	case errors.Is(err, game.ErrInsufficientFunds):
		return constants.MsgInsufficientFunds
	case errors.Is(err, game.ErrConcurrentEncounter):
		return constants.MsgConcurrentFight
	case errors.Is(err, game.ErrNoEquippedPet):
		return constants.MsgNoEquippedPet
	case errors.Is(err, game.ErrTowerNotStarted):
		return constants.MsgTowerNotStarted
	case errors.Is(err, game.ErrInvalidWager):
		return constants.MsgInvalidWager
	case errors.Is(err, game.ErrSelfBattle):
		return constants.MsgSelfBattle
	case errors.Is(err, game.ErrNotSeated):
		return constants.MsgNotSeated
	case errors.Is(err, game.ErrSeatTaken):
		return constants.MsgSeatTaken
	case errors.Is(err, game.ErrAlreadySeated):
		return constants.MsgAlreadySeated
	case errors.Is(err, game.ErrInvalidSeat):
		return constants.MsgInvalidSeat
	case errors.Is(err, game.ErrCaptchaLocked):
		return constants.MsgCaptchaLocked
	case errors.Is(err, game.ErrAlreadySettled):
		return constants.MsgAlreadySettled
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return constants.MsgEncounterAborted
	}
	return constants.MsgGenericFailure
}
