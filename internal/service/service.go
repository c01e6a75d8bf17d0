// Package service implements the battle commands on top of the combat
// engine: stake escrow, join waits, pacing, settlement and reporting.
package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/ericogr/idlerpg-arena/internal/config"
	"github.com/ericogr/idlerpg-arena/internal/constants"
	"github.com/ericogr/idlerpg-arena/internal/engine"
	"github.com/ericogr/idlerpg-arena/internal/game"
	"github.com/ericogr/idlerpg-arena/internal/gamedata"
	"github.com/ericogr/idlerpg-arena/internal/logging"
	"github.com/ericogr/idlerpg-arena/internal/settlement"
	"github.com/ericogr/idlerpg-arena/internal/tower"
)

// Store is the part of the Profile Store the commands read directly.
type Store interface {
	GetProfile(ctx context.Context, userID string) (*game.Profile, error)
	SetTowerProgress(ctx context.Context, userID string, level, prestige int) error
}

// PlayerResolver produces combat stat blocks.
type PlayerResolver interface {
	ResolvePlayer(ctx context.Context, userID string) (*engine.Combatant, error)
	ResolvePet(ctx context.Context, userID string) (*engine.Combatant, error)
	ResolvePlayers(ctx context.Context, userIDs ...string) ([]*engine.Combatant, error)
}

// Settler is the reward settlement surface used by the commands.
type Settler interface {
	Open(ctx context.Context, encounterID, kind, subject string, stakes []game.Stake) error
	Join(ctx context.Context, encounterID string, stake game.Stake) error
	Refund(ctx context.Context, encounterID string) (*settlement.Result, error)
	Settle(ctx context.Context, enc *engine.Encounter, grants ...settlement.Grant) (*settlement.Result, error)
}

// Channel is where a command shows its encounter and reads replies.
type Channel interface {
	Presenter
	// Prompt sends text addressed to userID.
	Prompt(ctx context.Context, userID, text string) error
	// Await returns the next text reply from userID, or
	// game.ErrInputTimeout.
	Await(ctx context.Context, userID string, timeout time.Duration) (string, error)
	// AwaitAccept posts text and returns the first user for whom accept
	// is true that agrees to join, or game.ErrInputTimeout.
	AwaitAccept(ctx context.Context, text string, accept func(userID string) bool, timeout time.Duration) (string, error)
}

type Service struct {
	cfg     *config.LoadedConfig
	store   Store
	players PlayerResolver
	settler Settler
	tables  *gamedata.Tables
	tower   *tower.Tower
	fights  *FightRegistry
	runner  *Runner
	now     func() time.Time
	rng     *lockedRand
}

type Option func(*Service)

func WithRand(r *rand.Rand) Option { return func(s *Service) { s.rng = &lockedRand{r: r} } }

func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

// WithRunner replaces the pacing runner.
func WithRunner(r *Runner) Option { return func(s *Service) { s.runner = r } }

// WithFightRegistry shares a registry with other command handlers.
func WithFightRegistry(f *FightRegistry) Option { return func(s *Service) { s.fights = f } }

func New(cfg *config.LoadedConfig, store Store, players PlayerResolver, settler Settler, tables *gamedata.Tables, opts ...Option) (*Service, error) {
	tw, err := tower.New(tables)
	if err != nil {
		return nil, err
	}
	s := &Service{
		cfg:     cfg,
		store:   store,
		players: players,
		settler: settler,
		tables:  tables,
		tower:   tw,
		now:     time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	if s.fights == nil {
		s.fights = NewFightRegistry()
	}
	if s.runner == nil {
		s.runner = NewRunner(cfg.Battle.Pace)
	}
	if s.rng == nil {
		s.rng = &lockedRand{r: rand.New(rand.NewSource(time.Now().UnixNano()))}
	}
	return s, nil
}

// Fights exposes the registry so other commands can honour it.
func (s *Service) Fights() *FightRegistry { return s.fights }

func (s *Service) encounter(kind, id string, sides [][]*engine.Combatant, rules engine.Rules) (*engine.Encounter, error) {
	opts := []engine.Option{engine.WithRand(s.rng.child()), engine.WithClock(s.now)}
	if id != "" {
		opts = append(opts, engine.WithID(id))
	}
	return engine.New(kind, sides, rules, opts...)
}

// run drives enc. On abort the stakes are refunded when the encounter had
// an escrow, and the players are told.
func (s *Service) run(ctx context.Context, ch Channel, enc *engine.Encounter, staked bool) error {
	err := s.runner.Run(ctx, enc, ch)
	if err == nil {
		return nil
	}
	fields := logging.Fields{constants.LogFieldEncounterID: enc.ID(), constants.LogFieldKind: enc.Kind()}
	logging.Error("encounter aborted", err, fields)
	// The command context may already be gone; the refund must still run.
	bg := context.WithoutCancel(ctx)
	if staked {
		s.refund(bg, enc.ID())
	}
	if serr := ch.Say(bg, constants.MsgEncounterAborted); serr != nil {
		logging.Warn("abort message failed", fields)
	}
	return fmt.Errorf("encounter %s aborted: %w", enc.ID(), err)
}

func (s *Service) refund(ctx context.Context, encounterID string) {
	if _, err := s.settler.Refund(ctx, encounterID); err != nil && !errors.Is(err, game.ErrAlreadySettled) {
		logging.Error("refund failed; escrow left for recovery", err, logging.Fields{constants.LogFieldEncounterID: encounterID})
	}
}

// settle pays out a finished encounter and renders the outcome.
func (s *Service) settle(ctx context.Context, ch Channel, enc *engine.Encounter, grants []settlement.Grant, notes ...string) (*Outcome, error) {
	res, err := s.settler.Settle(ctx, enc, grants...)
	if err != nil {
		return nil, err
	}
	out := &Outcome{Snapshot: enc.Snapshot(), Result: res, Notes: notes}
	if err := ch.RenderOutcome(ctx, *out); err != nil {
		logging.Warn("outcome presentation failed", logging.Fields{
			constants.LogFieldEncounterID: enc.ID(),
			"error":                       err.Error(),
		})
	}
	return out, nil
}

func (s *Service) say(ctx context.Context, ch Channel, text string) {
	if err := ch.Say(ctx, text); err != nil {
		logging.Warn("message failed", logging.Fields{"error": err.Error()})
	}
}

func (s *Service) profile(ctx context.Context, userID string) (*game.Profile, error) {
	p, err := s.store.GetProfile(ctx, userID)
	if err != nil {
		if errors.Is(err, game.ErrProfileNotFound) {
			return nil, fmt.Errorf("player %s: %w", userID, err)
		}
		return nil, game.WrapIO("get profile", err)
	}
	return p, nil
}

// lockedRand serializes a *rand.Rand shared by concurrent commands.
type lockedRand struct {
	mu sync.Mutex
	r  *rand.Rand
}

func (l *lockedRand) Intn(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Intn(n)
}

func (l *lockedRand) Float64() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Float64()
}

// child returns an independent source for one encounter.
func (l *lockedRand) child() *rand.Rand {
	l.mu.Lock()
	defer l.mu.Unlock()
	return rand.New(rand.NewSource(l.r.Int63()))
}
