package discord

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/bwmarrin/discordgo"

	"github.com/ericogr/idlerpg-arena/internal/constants"
	"github.com/ericogr/idlerpg-arena/internal/game"
	"github.com/ericogr/idlerpg-arena/internal/gamedata"
	"github.com/ericogr/idlerpg-arena/internal/service"
	"github.com/ericogr/idlerpg-arena/internal/slots"
	"github.com/ericogr/idlerpg-arena/internal/tower"
)

type fakeBattles struct {
	err        error
	challenger string
	opponent   string
	wager      int64
	teams      [2][2]string
	progress   tower.Progress
	floor      *gamedata.TowerLevel
}

func (f *fakeBattles) Battle(ctx context.Context, ch service.Channel, challenger, opponent string, wager int64) (*service.Outcome, error) {
	f.challenger, f.opponent, f.wager = challenger, opponent, wager
	return &service.Outcome{}, f.err
}

func (f *fakeBattles) RaidBattle(ctx context.Context, ch service.Channel, challenger, opponent string, wager int64) (*service.Outcome, error) {
	return f.Battle(ctx, ch, challenger, opponent, wager)
}

func (f *fakeBattles) RaidBattle2v2(ctx context.Context, ch service.Channel, teamA, teamB [2]string, wager int64) (*service.Outcome, error) {
	f.teams = [2][2]string{teamA, teamB}
	f.wager = wager
	return &service.Outcome{}, f.err
}

func (f *fakeBattles) Horde(ctx context.Context, ch service.Channel, userID string) (*service.Outcome, int, error) {
	return &service.Outcome{}, 4, f.err
}

func (f *fakeBattles) Adventure(ctx context.Context, ch service.Channel, userID string) (*service.Outcome, error) {
	return &service.Outcome{}, f.err
}

func (f *fakeBattles) TowerStart(ctx context.Context, userID string) (tower.Progress, error) {
	return tower.Progress{Level: 1}, f.err
}

func (f *fakeBattles) TowerProgress(ctx context.Context, userID string) (tower.Progress, *gamedata.TowerLevel, error) {
	return f.progress, f.floor, f.err
}

func (f *fakeBattles) TowerFight(ctx context.Context, ch service.Channel, userID string) (*service.Outcome, tower.Progress, error) {
	return &service.Outcome{}, tower.Progress{Level: 2}, f.err
}

type fakeSlots struct {
	spin       *slots.SpinResult
	err        error
	challenged bool
	seats      []game.SlotSeat
}

func (f *fakeSlots) Join(ctx context.Context, userID string, seatID int) error { return f.err }

func (f *fakeSlots) Spin(ctx context.Context, userID string) (*slots.SpinResult, error) {
	return f.spin, f.err
}

func (f *fakeSlots) Challenge(ctx context.Context, userID string, p slots.Prompter) (bool, error) {
	f.challenged = true
	return true, p.Prompt(ctx, userID, "captcha")
}

func (f *fakeSlots) Leave(ctx context.Context, userID string, p slots.Prompter) (int, error) {
	return 2, f.err
}

func (f *fakeSlots) Seats(ctx context.Context) ([]game.SlotSeat, error) { return f.seats, f.err }

func newTestRouter(b *fakeBattles, s *fakeSlots) (*Router, *fakeSender) {
	sender := &fakeSender{}
	return NewRouter(b, s, sender, NewCollector()), sender
}

func TestUserMessage(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{game.ErrInsufficientFunds, constants.MsgInsufficientFunds},
		{fmt.Errorf("player x: %w", game.ErrProfileNotFound), constants.MsgProfileNotFound},
		{game.ErrConcurrentEncounter, constants.MsgConcurrentFight},
		{game.ErrNoEquippedPet, constants.MsgNoEquippedPet},
		{game.ErrCaptchaLocked, constants.MsgCaptchaLocked},
		{game.ErrInvalidSeat, constants.MsgInvalidSeat},
		{fmt.Errorf("encounter e aborted: %w", context.Canceled), constants.MsgEncounterAborted},
		{game.WrapIO("settle", errors.New("disk full")), constants.MsgGenericFailure},
		{errors.New("boom"), constants.MsgGenericFailure},
	}
	for _, c := range cases {
		if got := UserMessage(c.err); got != c.want {
			t.Fatalf("UserMessage(%v) = %q, want %q", c.err, got, c.want)
		}
	}
}

func TestRouterBattleArgs(t *testing.T) {
	b := &fakeBattles{}
	r, _ := newTestRouter(b, &fakeSlots{})
	r.Handle(context.Background(), Command{
		Name: "battle", UserID: "a", ChannelID: "c",
		Users: map[string]string{"opponent": "b"}, Ints: map[string]int64{"amount": 50},
	})
	if b.challenger != "a" || b.opponent != "b" || b.wager != 50 {
		t.Fatalf("unexpected battle args %+v", b)
	}

	r.Handle(context.Background(), Command{
		Name: "raidbattle2v2", UserID: "a", ChannelID: "c",
		Users: map[string]string{"teammate": "b", "opponent1": "c", "opponent2": "d"},
	})
	if b.teams != [2][2]string{{"a", "b"}, {"c", "d"}} {
		t.Fatalf("unexpected teams %v", b.teams)
	}
}

func TestRouterMapsErrors(t *testing.T) {
	r, _ := newTestRouter(&fakeBattles{err: game.ErrSelfBattle}, &fakeSlots{})
	got := r.Handle(context.Background(), Command{Name: "battle", UserID: "a", ChannelID: "c"})
	if got != constants.MsgSelfBattle {
		t.Fatalf("expected self battle message, got %q", got)
	}
	if got := r.Handle(context.Background(), Command{Name: "nope"}); got != constants.MsgGenericFailure {
		t.Fatalf("unknown commands should fail generically, got %q", got)
	}
}

func TestRouterTowerProgress(t *testing.T) {
	b := &fakeBattles{}
	r, _ := newTestRouter(b, &fakeSlots{})
	cmd := Command{Name: "tower", Sub: "progress", UserID: "a", ChannelID: "c"}
	if got := r.Handle(context.Background(), cmd); got != constants.MsgTowerNotStarted {
		t.Fatalf("expected not started, got %q", got)
	}
	b.progress = tower.Progress{Level: 3, Prestige: 1}
	b.floor = &gamedata.TowerLevel{Level: 3, Dialogue: "A goblin blocks the stairs."}
	got := r.Handle(context.Background(), cmd)
	if !strings.Contains(got, "level 3") || !strings.Contains(got, "goblin") {
		t.Fatalf("unexpected progress %q", got)
	}
}

func TestRouterSpinWithCaptcha(t *testing.T) {
	s := &fakeSlots{spin: &slots.SpinResult{SeatID: 1, Reels: [3]string{"🍒", "🍒", "🍋"}, Reward: 1000, CaptchaRequired: true}}
	r, sender := newTestRouter(&fakeBattles{}, s)
	got := r.Handle(context.Background(), Command{Name: "slots", Sub: "spin", UserID: "a", ChannelID: "c"})
	if got != "" {
		t.Fatalf("captcha spins report through the channel, got %q", got)
	}
	if !s.challenged {
		t.Fatalf("expected a captcha challenge")
	}
	msgs := sender.sent()
	if len(msgs) != 2 || !strings.Contains(msgs[0].content, "$1000") || msgs[1].content != "<@a> captcha" {
		t.Fatalf("unexpected messages %+v", msgs)
	}
}

func TestRouterSpinWithoutCaptcha(t *testing.T) {
	s := &fakeSlots{spin: &slots.SpinResult{
		SeatID: 1, Reels: [3]string{"🐉", "🍒", "🍋"}, Jackpot: 0,
		Dragon: &slots.DragonResult{Damage: 300, Slain: true, Jackpot: 7000},
	}}
	r, _ := newTestRouter(&fakeBattles{}, s)
	got := r.Handle(context.Background(), Command{Name: "slots", Sub: "spin", UserID: "a", ChannelID: "c"})
	if !strings.Contains(got, "slew the dragon") || !strings.Contains(got, "$7000") || s.challenged {
		t.Fatalf("unexpected spin reply %q", got)
	}
}

func TestRouterSlotsSeatsAndLeave(t *testing.T) {
	s := &fakeSlots{seats: []game.SlotSeat{{SeatID: 1, Jackpot: 500}, {SeatID: 2, OccupantID: "bob"}}}
	r, _ := newTestRouter(&fakeBattles{}, s)
	got := r.Handle(context.Background(), Command{Name: "slots", Sub: "seats"})
	if !strings.Contains(got, "free") || !strings.Contains(got, "bob") {
		t.Fatalf("unexpected seats %q", got)
	}
	got = r.Handle(context.Background(), Command{Name: "slots", Sub: "leave", UserID: "bob"})
	if got != fmt.Sprintf(constants.MsgSeatLeft, 2) {
		t.Fatalf("unexpected leave reply %q", got)
	}
}

func TestParseCommandSubcommand(t *testing.T) {
	data := discordgo.ApplicationCommandInteractionData{
		Name: "slots",
		Options: []*discordgo.ApplicationCommandInteractionDataOption{{
			Name: "join",
			Type: discordgo.ApplicationCommandOptionSubCommand,
			Options: []*discordgo.ApplicationCommandInteractionDataOption{
				{Name: "seat", Type: discordgo.ApplicationCommandOptionInteger, Value: float64(3)},
			},
		}},
	}
	cmd := ParseCommand(data, "u", "c")
	if cmd.Name != "slots" || cmd.Sub != "join" || cmd.Ints["seat"] != 3 || cmd.UserID != "u" {
		t.Fatalf("unexpected command %+v", cmd)
	}
}

func TestParseCommandUsers(t *testing.T) {
	data := discordgo.ApplicationCommandInteractionData{
		Name: "battle",
		Options: []*discordgo.ApplicationCommandInteractionDataOption{
			{Name: "opponent", Type: discordgo.ApplicationCommandOptionUser, Value: "123"},
			{Name: "amount", Type: discordgo.ApplicationCommandOptionInteger, Value: float64(250)},
		},
	}
	cmd := ParseCommand(data, "u", "c")
	if cmd.Sub != "" || cmd.Users["opponent"] != "123" || cmd.Ints["amount"] != 250 {
		t.Fatalf("unexpected command %+v", cmd)
	}
}

func TestCommandsHaveDescriptions(t *testing.T) {
	for _, c := range Commands() {
		if c.Description == "" {
			t.Fatalf("command %s has no description", c.Name)
		}
		for _, o := range c.Options {
			if o.Description == "" {
				t.Fatalf("option %s/%s has no description", c.Name, o.Name)
			}
		}
	}
}
