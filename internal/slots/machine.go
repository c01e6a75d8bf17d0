// Package slots implements the slot machine: persisted seats, spins and
// payouts, the per-seat jackpot and dragon, and the captcha lock that
// guards spinning and leaving.
package slots

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/ericogr/idlerpg-arena/internal/constants"
	"github.com/ericogr/idlerpg-arena/internal/engine"
	"github.com/ericogr/idlerpg-arena/internal/game"
	"github.com/ericogr/idlerpg-arena/internal/logging"
	"github.com/ericogr/idlerpg-arena/internal/storage"

	"github.com/google/uuid"
)

// Config holds the machine's economic and timing parameters.
type Config struct {
	Stake          int64
	JackpotCut     int64
	Seats          int
	Inactivity     time.Duration
	CaptchaChance  float64
	CaptchaTimeout time.Duration
	CaptchaLength  int
	DragonHP       float64
	DragonDamage   float64
	DragonArmor    float64
	DragonRounds   int
	Symbols        []Symbol
}

func DefaultConfig() Config {
	return Config{
		Stake:          1500,
		JackpotCut:     250,
		Seats:          8,
		Inactivity:     10 * time.Minute,
		CaptchaChance:  0.01,
		CaptchaTimeout: 60 * time.Second,
		CaptchaLength:  6,
		DragonHP:       5000,
		DragonDamage:   120,
		DragonArmor:    20,
		DragonRounds:   6,
		Symbols:        DefaultSymbols,
	}
}

// Store is the part of the Profile Store the machine uses.
type Store interface {
	Transaction(ctx context.Context, fn func(tx storage.Tx) error) error
	EnsureSeats(ctx context.Context, n int, dragonHP float64) error
	ListSeats(ctx context.Context) ([]game.SlotSeat, error)
	FindSeatByOccupant(ctx context.Context, userID string) (*game.SlotSeat, error)
	OccupySeat(ctx context.Context, seatID int, userID string, now time.Time) error
	VacateSeat(ctx context.Context, seatID int, userID string) error
	VacateIdleSeats(ctx context.Context, before time.Time) ([]game.SlotSeat, error)
	TrickleJackpot(ctx context.Context, amount int64) (int64, error)
}

// PlayerResolver builds the spinning player's combat stats for the dragon.
type PlayerResolver interface {
	ResolvePlayer(ctx context.Context, userID string) (*engine.Combatant, error)
}

// Prompter sends a line of text to a player and waits for a reply. Await
// returns game.ErrInputTimeout when nothing arrives in time.
type Prompter interface {
	Prompt(ctx context.Context, userID, text string) error
	Await(ctx context.Context, userID string, timeout time.Duration) (string, error)
}

// Notifier posts to the operator channel.
type Notifier interface {
	NotifyOperators(ctx context.Context, text string) error
}

// SpinResult is the outcome of one spin.
type SpinResult struct {
	SeatID          int
	Reels           [3]string
	Reward          int64
	Jackpot         int64
	Dragon          *DragonResult
	CaptchaRequired bool
}

// Machine is safe for concurrent use.
type Machine struct {
	cfg      Config
	store    Store
	players  PlayerResolver
	notifier Notifier
	reel     *Reel
	locks    *CaptchaLocks
	now      func() time.Time

	mu  sync.Mutex
	rng *rand.Rand
}

type Option func(*Machine)

func WithRand(r *rand.Rand) Option { return func(m *Machine) { m.rng = r } }

func WithClock(now func() time.Time) Option { return func(m *Machine) { m.now = now } }

// WithNotifier sets where captcha timeouts are reported.
func WithNotifier(n Notifier) Option { return func(m *Machine) { m.notifier = n } }

func New(cfg Config, store Store, players PlayerResolver, opts ...Option) *Machine {
	if len(cfg.Symbols) == 0 {
		cfg.Symbols = DefaultSymbols
	}
	if cfg.CaptchaLength <= 0 {
		cfg.CaptchaLength = 6
	}
	m := &Machine{
		cfg:     cfg,
		store:   store,
		players: players,
		reel:    NewReel(cfg.Symbols),
		locks:   NewCaptchaLocks(),
		now:     time.Now,
	}
	for _, o := range opts {
		o(m)
	}
	if m.rng == nil {
		m.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return m
}

// Init creates any missing seats.
func (m *Machine) Init(ctx context.Context) error {
	return game.WrapIO("ensure seats", m.store.EnsureSeats(ctx, m.cfg.Seats, m.cfg.DragonHP))
}

// Seats lists every seat.
func (m *Machine) Seats(ctx context.Context) ([]game.SlotSeat, error) {
	seats, err := m.store.ListSeats(ctx)
	return seats, game.WrapIO("list seats", err)
}

// Join seats userID at seatID.
func (m *Machine) Join(ctx context.Context, userID string, seatID int) error {
	if seatID < 1 || seatID > m.cfg.Seats {
		return game.ErrInvalidSeat
	}
	err := m.store.OccupySeat(ctx, seatID, userID, m.now())
	switch {
	case err == nil:
		logging.Info("seat occupied", logging.Fields{constants.LogFieldUserID: userID, constants.LogFieldSeatID: seatID})
		return nil
	case errors.Is(err, game.ErrSeatTaken), errors.Is(err, game.ErrAlreadySeated), errors.Is(err, game.ErrInvalidSeat):
		return err
	}
	return game.WrapIO("occupy seat", err)
}

func (m *Machine) seatOf(ctx context.Context, userID string) (*game.SlotSeat, error) {
	seat, err := m.store.FindSeatByOccupant(ctx, userID)
	if err != nil && !errors.Is(err, game.ErrNotSeated) {
		return nil, game.WrapIO("find seat", err)
	}
	return seat, err
}

func (m *Machine) spinReels() ([3]Symbol, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	draw := m.reel.Spin(m.rng)
	return draw, m.rng.Float64() < m.cfg.CaptchaChance
}

// Spin charges the stake, feeds the seat jackpot, pays the reel reward and
// runs the dragon fight when a dragon shows up.
func (m *Machine) Spin(ctx context.Context, userID string) (*SpinResult, error) {
	if m.locks.Locked(userID) {
		return nil, game.ErrCaptchaLocked
	}
	seat, err := m.seatOf(ctx, userID)
	if err != nil {
		return nil, err
	}

	draw, captcha := m.spinReels()
	res := &SpinResult{SeatID: seat.SeatID, Reels: glyphs(draw), CaptchaRequired: captcha}
	res.Reward = Payout(res.Reels, m.reel.Values())

	var dragonHP float64
	err = m.store.Transaction(ctx, func(tx storage.Tx) error {
		if err := tx.DeductMoney(ctx, userID, m.cfg.Stake); err != nil {
			if errors.Is(err, game.ErrInsufficientFunds) || errors.Is(err, game.ErrProfileNotFound) {
				return err
			}
			return game.WrapIO("deduct stake", err)
		}
		if err := tx.AddJackpot(ctx, seat.SeatID, m.cfg.JackpotCut); err != nil {
			return game.WrapIO("add jackpot", err)
		}
		if res.Reward > 0 {
			if err := m.credit(ctx, tx, userID, res.Reward, constants.SubjectSlotsReward); err != nil {
				return err
			}
		}
		if err := tx.TouchSeat(ctx, seat.SeatID, m.now()); err != nil {
			return game.WrapIO("touch seat", err)
		}
		s, err := tx.GetSeat(ctx, seat.SeatID)
		if err != nil {
			return game.WrapIO("get seat", err)
		}
		res.Jackpot = s.Jackpot
		dragonHP = s.DragonHP
		return nil
	})
	if err != nil {
		return nil, err
	}

	if hasDragon(draw) {
		d, err := m.fightDragon(ctx, userID, seat.SeatID, dragonHP)
		if err != nil {
			return nil, err
		}
		res.Dragon = d
		if d.Slain {
			res.Jackpot = 0
		}
	}
	return res, nil
}

func (m *Machine) credit(ctx context.Context, tx storage.Tx, userID string, amount int64, subject string) error {
	if err := tx.AdjustMoney(ctx, userID, amount); err != nil {
		return game.WrapIO("credit slots", err)
	}
	entry := &game.LedgerEntry{
		From:           constants.LedgerHouse,
		To:             userID,
		Subject:        subject,
		Amount:         amount,
		IdempotencyKey: "slots:" + uuid.NewString(),
	}
	return game.WrapIO("write ledger entry", tx.WriteLedgerEntry(ctx, entry))
}

// Challenge runs a captcha for userID. The player keeps answering until the
// code matches or the timeout elapses; a timeout vacates their seat and
// notifies the operators. It reports whether the captcha was solved.
func (m *Machine) Challenge(ctx context.Context, userID string, p Prompter) (bool, error) {
	m.mu.Lock()
	code := newCode(m.rng, m.cfg.CaptchaLength)
	m.mu.Unlock()
	if !m.locks.Lock(userID, code) {
		return false, game.ErrCaptchaLocked
	}
	defer m.locks.Unlock(userID)

	if err := p.Prompt(ctx, userID, fmt.Sprintf(constants.MsgCaptchaPrompt, code)); err != nil {
		return false, game.WrapIO("send captcha", err)
	}
	deadline := m.now().Add(m.cfg.CaptchaTimeout)
	for {
		remaining := deadline.Sub(m.now())
		if remaining <= 0 {
			return false, m.captchaTimedOut(ctx, userID, p)
		}
		answer, err := p.Await(ctx, userID, remaining)
		if errors.Is(err, game.ErrInputTimeout) {
			return false, m.captchaTimedOut(ctx, userID, p)
		}
		if err != nil {
			return false, err
		}
		if m.locks.Check(userID, answer) {
			if err := p.Prompt(ctx, userID, constants.MsgCaptchaSolved); err != nil {
				logging.Warn("captcha solved prompt failed", logging.Fields{constants.LogFieldUserID: userID, "error": err.Error()})
			}
			return true, nil
		}
		if err := p.Prompt(ctx, userID, constants.MsgCaptchaWrong); err != nil {
			logging.Warn("captcha retry prompt failed", logging.Fields{constants.LogFieldUserID: userID, "error": err.Error()})
		}
	}
}

func (m *Machine) captchaTimedOut(ctx context.Context, userID string, p Prompter) error {
	seat, err := m.seatOf(ctx, userID)
	if errors.Is(err, game.ErrNotSeated) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := m.store.VacateSeat(ctx, seat.SeatID, userID); err != nil && !errors.Is(err, game.ErrNotSeated) {
		return game.WrapIO("vacate seat", err)
	}
	logging.Warn("captcha timed out; seat vacated", logging.Fields{constants.LogFieldUserID: userID, constants.LogFieldSeatID: seat.SeatID})
	if err := p.Prompt(ctx, userID, constants.MsgCaptchaTimeout); err != nil {
		logging.Warn("captcha timeout prompt failed", logging.Fields{constants.LogFieldUserID: userID, "error": err.Error()})
	}
	if m.notifier != nil {
		if err := m.notifier.NotifyOperators(ctx, fmt.Sprintf(constants.MsgOperatorForcedLeft, userID, seat.SeatID)); err != nil {
			logging.Error("operator notification failed", err, logging.Fields{constants.LogFieldUserID: userID})
		}
	}
	return nil
}

// Leave requires a solved captcha before freeing the seat. It returns the
// seat that was left, or 0 when the captcha was not solved.
func (m *Machine) Leave(ctx context.Context, userID string, p Prompter) (int, error) {
	if m.locks.Locked(userID) {
		return 0, game.ErrCaptchaLocked
	}
	seat, err := m.seatOf(ctx, userID)
	if err != nil {
		return 0, err
	}
	ok, err := m.Challenge(ctx, userID, p)
	if err != nil || !ok {
		return 0, err
	}
	if err := m.store.VacateSeat(ctx, seat.SeatID, userID); err != nil {
		if errors.Is(err, game.ErrNotSeated) {
			return 0, err
		}
		return 0, game.WrapIO("vacate seat", err)
	}
	logging.Info("seat vacated", logging.Fields{constants.LogFieldUserID: userID, constants.LogFieldSeatID: seat.SeatID})
	return seat.SeatID, nil
}

// SweepIdle frees seats whose occupant has been inactive longer than the
// configured threshold.
func (m *Machine) SweepIdle(ctx context.Context) ([]game.SlotSeat, error) {
	freed, err := m.store.VacateIdleSeats(ctx, m.now().Add(-m.cfg.Inactivity))
	if err != nil {
		return nil, game.WrapIO("vacate idle seats", err)
	}
	for _, s := range freed {
		logging.Info("idle seat vacated", logging.Fields{constants.LogFieldUserID: s.OccupantID, constants.LogFieldSeatID: s.SeatID})
	}
	return freed, nil
}

// Trickle adds amount to the jackpot of every free seat.
func (m *Machine) Trickle(ctx context.Context, amount int64) (int64, error) {
	n, err := m.store.TrickleJackpot(ctx, amount)
	return n, game.WrapIO("trickle jackpot", err)
}
