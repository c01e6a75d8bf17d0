package engine

import (
	"errors"
	"math"
	"math/rand"
	"time"

	"github.com/google/uuid"
)

// State is the encounter lifecycle. Active is the only non-terminal state.
type State string

const (
	StateActive      State = "active"
	StateSettledWin  State = "settled_win"
	StateSettledDraw State = "settled_draw"
)

// NoWinner is returned by Winner while active or after a draw.
const NoWinner = -1

var (
	ErrTooFewSides = errors.New("encounter needs at least two non-empty sides")
	ErrBadStats    = errors.New("combatant max hp must be positive")
)

// Rand is the randomness source an encounter draws from. *rand.Rand
// satisfies it.
type Rand interface {
	Intn(n int) int
	Float64() float64
	Shuffle(n int, swap func(i, j int))
}

// Encounter is the turn-based combat state machine. It is owned by a single
// task; none of its methods are safe for concurrent use.
type Encounter struct {
	id       string
	kind     string
	rules    Rules
	sides    [][]*Combatant
	order    []*Combatant
	cursor   int
	deadline time.Time
	state    State
	winner   int
	log      *ActionLog
	rng      Rand
	now      func() time.Time
	actions  int
	claimed  bool
}

type Option func(*Encounter)

// WithRand sets the randomness source (tests use a seeded *rand.Rand).
func WithRand(r Rand) Option { return func(e *Encounter) { e.rng = r } }

// WithClock overrides the wall clock used for the deadline.
func WithClock(now func() time.Time) Option { return func(e *Encounter) { e.now = now } }

// WithID sets the encounter id; a random UUID is used otherwise.
func WithID(id string) Option { return func(e *Encounter) { e.id = id } }

// New builds an active encounter. Each combatant's Side is overwritten
// with its index in sides and its HP is clamped to [0, MaxHP].
func New(kind string, sides [][]*Combatant, rules Rules, opts ...Option) (*Encounter, error) {
	if len(sides) < 2 {
		return nil, ErrTooFewSides
	}
	e := &Encounter{
		kind:   kind,
		rules:  rules.normalized(),
		state:  StateActive,
		winner: NoWinner,
		now:    time.Now,
	}
	for _, o := range opts {
		o(e)
	}
	if e.rng == nil {
		e.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if e.id == "" {
		e.id = uuid.NewString()
	}
	e.log = NewActionLog(e.rules.LogCapacity)
	maxLen := 0
	for i, side := range sides {
		if len(side) == 0 {
			return nil, ErrTooFewSides
		}
		for _, c := range side {
			c.MaxHP = round2(c.MaxHP)
			if c.MaxHP <= 0 {
				return nil, ErrBadStats
			}
			c.Side = i
			c.setHP(c.HP)
		}
		if len(side) > maxLen {
			maxLen = len(side)
		}
	}
	e.sides = sides
	// Interleave sides so that a 2v2 alternates teams.
	for j := 0; j < maxLen; j++ {
		for _, side := range sides {
			if j < len(side) {
				e.order = append(e.order, side[j])
			}
		}
	}
	if e.rules.ShuffleTurnOrder {
		e.rng.Shuffle(len(e.order), func(i, j int) { e.order[i], e.order[j] = e.order[j], e.order[i] })
	}
	e.deadline = e.now().Add(e.rules.Deadline)
	e.checkTerminal()
	return e, nil
}

func (e *Encounter) ID() string          { return e.id }
func (e *Encounter) Kind() string        { return e.kind }
func (e *Encounter) Rules() Rules        { return e.rules }
func (e *Encounter) State() State        { return e.state }
func (e *Encounter) Done() bool          { return e.state != StateActive }
func (e *Encounter) Deadline() time.Time { return e.deadline }
func (e *Encounter) Actions() int        { return e.actions }
func (e *Encounter) Log() *ActionLog     { return e.log }

// Winner returns the index of the winning side, or NoWinner.
func (e *Encounter) Winner() int { return e.winner }

// Side returns the combatants of side i.
func (e *Encounter) Side(i int) []*Combatant {
	if i < 0 || i >= len(e.sides) {
		return nil
	}
	return e.sides[i]
}

func (e *Encounter) Sides() int { return len(e.sides) }

// ClaimSettlement returns true only for a terminal encounter that is not
// already claimed. Settlement uses it as its in-process guard.
func (e *Encounter) ClaimSettlement() bool {
	if e.state == StateActive || e.claimed {
		return false
	}
	e.claimed = true
	return true
}

// ReleaseSettlement hands back a claim whose settlement did not commit.
func (e *Encounter) ReleaseSettlement() { e.claimed = false }

// ForceDraw ends an active encounter as a draw, e.g. when the runner
// observes the deadline while paced out.
func (e *Encounter) ForceDraw() {
	if e.state == StateActive {
		e.finish(StateSettledDraw, NoWinner)
	}
}

func (e *Encounter) finish(s State, winner int) {
	e.state = s
	e.winner = winner
}

func (e *Encounter) deadlinePassed() bool {
	return !e.now().Before(e.deadline)
}

// checkTerminal applies the end conditions: a single side left standing
// wins, otherwise an expired deadline is a draw.
func (e *Encounter) checkTerminal() {
	if e.state != StateActive {
		return
	}
	standing, last := 0, NoWinner
	for i, side := range e.sides {
		if sideAlive(side) {
			standing++
			last = i
		}
	}
	switch {
	case standing == 1:
		e.finish(StateSettledWin, last)
	case standing == 0:
		e.finish(StateSettledDraw, NoWinner)
	case e.deadlinePassed():
		e.finish(StateSettledDraw, NoWinner)
	}
}

func sideAlive(side []*Combatant) bool {
	for _, c := range side {
		if c.Alive() {
			return true
		}
	}
	return false
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
