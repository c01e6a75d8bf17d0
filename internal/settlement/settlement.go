// Package settlement resolves the economic outcome of a finished encounter:
// stake escrow, winner payouts, draw refunds and PvE rewards. Every outcome
// is written in one transaction and guarded so it is applied at most once.
package settlement

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
	"github.com/ericogr/idlerpg-arena/internal/gamedata"
	"github.com/ericogr/idlerpg-arena/internal/keys"
	"github.com/ericogr/idlerpg-arena/internal/logging"
	"github.com/ericogr/idlerpg-arena/internal/storage"
	"github.com/ericogr/idlerpg-arena/internal/telemetry"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// ErrNotTerminal is returned when settling an encounter that is still active.
var ErrNotTerminal = errors.New("encounter has not finished")

// Store is the part of the Profile Store settlement writes through.
type Store interface {
	Transaction(ctx context.Context, fn func(tx storage.Tx) error) error
	ListHeldEscrowsBefore(ctx context.Context, before time.Time) ([]game.Escrow, error)
}

// Rand is the subset of math/rand used for reward rolls.
type Rand interface {
	Float64() float64
	Intn(n int) int
}

// EggRoll describes a chance to drop an egg of Monster, skipped when the
// player already owns Cap or more unhatched eggs and pets.
type EggRoll struct {
	Monster gamedata.Monster
	Chance  float64
	Cap     int
}

// Grant is a PvE reward paid to UserID when Side wins.
type Grant struct {
	UserID  string
	Side    int
	Subject string
	Money   int64
	XP      int64
	Crate   game.CrateRarity
	Crates  int
	Egg     *EggRoll
}

// Award is what one player actually received.
type Award struct {
	UserID string
	Money  int64
	XP     int64
	Crate  game.CrateRarity
	Crates int
	Egg    *game.Egg
}

// Result is the settled outcome of one encounter.
type Result struct {
	EncounterID string
	State       engine.State
	Winner      int
	// Payouts are stake returns and winnings credited from escrow.
	Payouts map[string]int64
	Ledger  []game.LedgerEntry
	Awards  []Award
}

// Settler applies settlement and escrow operations.
type Settler struct {
	store    Store
	now      func() time.Time
	eggHatch time.Duration
	attempts int
	backoff  time.Duration

	mu  sync.Mutex
	rng Rand
}

type Option func(*Settler)

// WithRand sets the random source for reward rolls.
func WithRand(r Rand) Option { return func(s *Settler) { s.rng = r } }

func WithClock(now func() time.Time) Option { return func(s *Settler) { s.now = now } }

// WithEggHatch sets how long a dropped egg takes to hatch.
func WithEggHatch(d time.Duration) Option { return func(s *Settler) { s.eggHatch = d } }

// WithRetry sets how many times a failed settlement transaction is
// attempted and the pause between attempts.
func WithRetry(attempts int, backoff time.Duration) Option {
	return func(s *Settler) {
		s.attempts = attempts
		s.backoff = backoff
	}
}

func New(store Store, opts ...Option) *Settler {
	s := &Settler{
		store:    store,
		now:      time.Now,
		eggHatch: 24 * time.Hour,
		attempts: 3,
		backoff:  200 * time.Millisecond,
	}
	for _, o := range opts {
		o(s)
	}
	if s.rng == nil {
		s.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if s.attempts < 1 {
		s.attempts = 1
	}
	return s
}

func (s *Settler) float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Float64()
}

// Open deducts every stake and records the escrow in one transaction. Any
// insufficient balance aborts the whole operation with nothing deducted.
func (s *Settler) Open(ctx context.Context, encounterID, kind, subject string, stakes []game.Stake) error {
	for _, st := range stakes {
		if st.Amount < 0 {
			return game.ErrInvalidWager
		}
	}
	return classify("open escrow", s.store.Transaction(ctx, func(tx storage.Tx) error {
		for _, st := range stakes {
			if err := deduct(ctx, tx, st); err != nil {
				return err
			}
		}
		esc := &game.Escrow{
			EncounterID: encounterID,
			Kind:        kind,
			Subject:     subject,
			Status:      game.EscrowHeld,
			Stakes:      stakes,
		}
		return game.WrapIO("create escrow", tx.CreateEscrow(ctx, esc))
	}))
}

// Join deducts a late joiner's stake and adds it to a held escrow.
func (s *Settler) Join(ctx context.Context, encounterID string, stake game.Stake) error {
	if stake.Amount < 0 {
		return game.ErrInvalidWager
	}
	return classify("join escrow", s.store.Transaction(ctx, func(tx storage.Tx) error {
		if err := deduct(ctx, tx, stake); err != nil {
			return err
		}
		if err := tx.AddStake(ctx, encounterID, stake); err != nil {
			if errors.Is(err, game.ErrAlreadySettled) || errors.Is(err, game.ErrEscrowNotFound) {
				return err
			}
			return game.WrapIO("add stake", err)
		}
		return nil
	}))
}

func deduct(ctx context.Context, tx storage.Tx, st game.Stake) error {
	if st.Amount == 0 {
		if _, err := tx.GetProfile(ctx, st.UserID); err != nil {
			return classify("get profile", err)
		}
		return nil
	}
	if err := tx.DeductMoney(ctx, st.UserID, st.Amount); err != nil {
		return classify("deduct stake", err)
	}
	return nil
}

// classify keeps taxonomy errors as they are and wraps everything else as
// an I/O failure.
func classify(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, game.ErrInsufficientFunds),
		errors.Is(err, game.ErrProfileNotFound),
		errors.Is(err, game.ErrInvalidWager),
		errors.Is(err, game.ErrAlreadySettled),
		errors.Is(err, game.ErrEscrowNotFound):
		return err
	}
	return game.WrapIO(op, err)
}

// Refund returns every stake of a held escrow. A second refund, or a refund
// after settlement, is game.ErrAlreadySettled.
func (s *Settler) Refund(ctx context.Context, encounterID string) (*Result, error) {
	ctx, span := telemetry.Tracer("settlement").Start(ctx, "escrow.refund")
	defer span.End()
	span.SetAttributes(attribute.String("encounter.id", encounterID))

	res := &Result{EncounterID: encounterID, Winner: engine.NoWinner, Payouts: map[string]int64{}}
	err := s.withRetry(ctx, func() error {
		res.Payouts = map[string]int64{}
		return classify("refund transaction", s.store.Transaction(ctx, func(tx storage.Tx) error {
			esc, err := tx.ClaimEscrow(ctx, encounterID, game.EscrowRefunded)
			if err != nil {
				return classify("claim escrow", err)
			}
			return refundAll(ctx, tx, esc, res)
		}))
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	logging.Info("escrow refunded", logging.Fields{constants.LogFieldEncounterID: encounterID, constants.LogFieldCount: len(res.Payouts)})
	return res, nil
}

func refundAll(ctx context.Context, tx storage.Tx, esc *game.Escrow, res *Result) error {
	for _, st := range esc.Stakes {
		if st.Amount == 0 {
			continue
		}
		if err := tx.AdjustMoney(ctx, st.UserID, st.Amount); err != nil {
			return classify("refund stake", err)
		}
		res.Payouts[st.UserID] += st.Amount
	}
	return nil
}

// Settle applies the outcome of a finished encounter exactly once. A win
// pays the winning side its stakes plus an even split of the losing
// stakes and counts a PvP win; a draw refunds every stake. Grants for the
// winning side are applied in the same transaction.
func (s *Settler) Settle(ctx context.Context, enc *engine.Encounter, grants ...Grant) (*Result, error) {
	if !enc.Done() {
		return nil, ErrNotTerminal
	}
	if !enc.ClaimSettlement() {
		return nil, game.ErrAlreadySettled
	}

	ctx, span := telemetry.Tracer("settlement").Start(ctx, "settlement.settle")
	defer span.End()
	span.SetAttributes(
		attribute.String("encounter.id", enc.ID()),
		attribute.String("encounter.kind", enc.Kind()),
		attribute.String("encounter.state", string(enc.State())),
	)

	var res *Result
	err := s.withRetry(ctx, func() error {
		res = &Result{EncounterID: enc.ID(), State: enc.State(), Winner: enc.Winner(), Payouts: map[string]int64{}}
		return classify("settle transaction", s.store.Transaction(ctx, func(tx storage.Tx) error {
			if err := s.settleEscrow(ctx, tx, enc, res); err != nil {
				return err
			}
			if enc.State() != engine.StateSettledWin {
				return nil
			}
			for _, g := range grants {
				if g.Side != enc.Winner() {
					continue
				}
				if err := s.applyGrant(ctx, tx, enc.ID(), g, res); err != nil {
					return err
				}
			}
			return nil
		}))
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logging.Error("settlement failed", err, logging.Fields{constants.LogFieldEncounterID: enc.ID(), constants.LogFieldKind: enc.Kind()})
		if !errors.Is(err, game.ErrAlreadySettled) {
			enc.ReleaseSettlement()
		}
		return nil, err
	}
	logging.Info("encounter settled", logging.Fields{
		constants.LogFieldEncounterID: enc.ID(),
		constants.LogFieldKind:        enc.Kind(),
		constants.LogFieldOutcome:     string(enc.State()),
	})
	return res, nil
}

func (s *Settler) settleEscrow(ctx context.Context, tx storage.Tx, enc *engine.Encounter, res *Result) error {
	esc, err := tx.ClaimEscrow(ctx, enc.ID(), game.EscrowSettled)
	if errors.Is(err, game.ErrEscrowNotFound) {
		return nil
	}
	if err != nil {
		return classify("claim escrow", err)
	}
	if enc.State() != engine.StateSettledWin {
		return refundAll(ctx, tx, esc, res)
	}

	payouts, losers := Split(esc.Stakes, enc.Winner())
	if len(payouts) == 0 {
		return refundAll(ctx, tx, esc, res)
	}
	from := joinIDs(losers)
	for _, p := range payouts {
		if p.Amount > 0 {
			if err := tx.AdjustMoney(ctx, p.UserID, p.Amount); err != nil {
				return classify("credit winner", err)
			}
		}
		if err := tx.IncrementPvPWins(ctx, p.UserID); err != nil {
			return classify("increment pvp wins", err)
		}
		entry := game.LedgerEntry{
			From:           from,
			To:             p.UserID,
			Subject:        esc.Subject,
			Amount:         p.Amount,
			Data:           fmt.Sprintf("encounter=%s kind=%s", enc.ID(), esc.Kind),
			IdempotencyKey: keys.LedgerKey(enc.ID(), p.UserID),
		}
		if err := tx.WriteLedgerEntry(ctx, &entry); err != nil {
			return classify("write ledger entry", err)
		}
		res.Payouts[p.UserID] += p.Amount
		res.Ledger = append(res.Ledger, entry)
	}
	return nil
}

func (s *Settler) applyGrant(ctx context.Context, tx storage.Tx, encounterID string, g Grant, res *Result) error {
	aw := Award{UserID: g.UserID}
	if g.Money > 0 {
		if err := tx.AdjustMoney(ctx, g.UserID, g.Money); err != nil {
			return classify("credit reward", err)
		}
		entry := game.LedgerEntry{
			From:           constants.LedgerHouse,
			To:             g.UserID,
			Subject:        g.Subject,
			Amount:         g.Money,
			Data:           "encounter=" + encounterID,
			IdempotencyKey: keys.RewardKey(encounterID, g.UserID),
		}
		if err := tx.WriteLedgerEntry(ctx, &entry); err != nil {
			return classify("write ledger entry", err)
		}
		res.Ledger = append(res.Ledger, entry)
		aw.Money = g.Money
	}
	if g.XP > 0 {
		if err := tx.AdjustXP(ctx, g.UserID, g.XP); err != nil {
			return classify("grant xp", err)
		}
		aw.XP = g.XP
	}
	if g.Crate != "" && g.Crates > 0 {
		if err := tx.AddCrates(ctx, g.UserID, g.Crate, g.Crates); err != nil {
			return classify("grant crate", err)
		}
		aw.Crate, aw.Crates = g.Crate, g.Crates
	}
	if g.Egg != nil {
		egg, err := s.rollEgg(ctx, tx, g.UserID, g.Egg)
		if err != nil {
			return err
		}
		aw.Egg = egg
	}
	res.Awards = append(res.Awards, aw)
	return nil
}

// rollEgg draws the egg chance first; the cap is only checked on a hit.
func (s *Settler) rollEgg(ctx context.Context, tx storage.Tx, userID string, roll *EggRoll) (*game.Egg, error) {
	if roll.Chance <= 0 || s.float64() >= roll.Chance {
		return nil, nil
	}
	n, err := tx.CountEggsAndPets(ctx, userID)
	if err != nil {
		return nil, classify("count eggs", err)
	}
	if n >= int64(roll.Cap) {
		return nil, nil
	}
	egg := &game.Egg{
		OwnerID:     userID,
		MonsterName: roll.Monster.Name,
		Element:     roll.Monster.Element,
		HP:          roll.Monster.HP,
		Attack:      roll.Monster.Attack,
		Defense:     roll.Monster.Defense,
		HatchAt:     s.now().Add(s.eggHatch),
	}
	if err := tx.CreateEgg(ctx, egg); err != nil {
		return nil, classify("create egg", err)
	}
	return egg, nil
}

// withRetry reruns fn while it fails with an I/O error. Taxonomy errors
// are returned immediately.
func (s *Settler) withRetry(ctx context.Context, fn func() error) error {
	var err error
	for i := 0; i < s.attempts; i++ {
		if err = fn(); err == nil {
			return nil
		}
		var ioe *game.IOError
		if !errors.As(err, &ioe) {
			return err
		}
		if i+1 < s.attempts {
			select {
			case <-ctx.Done():
				return err
			case <-time.After(s.backoff):
			}
		}
	}
	return err
}

// RecoverStale refunds every escrow still held and created before
// now-olderThan. It returns how many escrows were refunded.
func (s *Settler) RecoverStale(ctx context.Context, olderThan time.Duration) (int, error) {
	held, err := s.store.ListHeldEscrowsBefore(ctx, s.now().Add(-olderThan))
	if err != nil {
		return 0, game.WrapIO("list held escrows", err)
	}
	n := 0
	for _, esc := range held {
		if _, err := s.Refund(ctx, esc.EncounterID); err != nil {
			if errors.Is(err, game.ErrAlreadySettled) {
				continue
			}
			logging.Error("stale escrow refund failed", err, logging.Fields{constants.LogFieldEncounterID: esc.EncounterID})
			continue
		}
		logging.Warn("refunded stale escrow", logging.Fields{
			constants.LogFieldEncounterID: esc.EncounterID,
			constants.LogFieldKind:        esc.Kind,
			constants.LogFieldAmount:      esc.Total(),
		})
		n++
	}
	return n, nil
}
