package service

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"github.com/ericogr/idlerpg-arena/internal/config"
	"github.com/ericogr/idlerpg-arena/internal/constants"
	"github.com/ericogr/idlerpg-arena/internal/game"
	"github.com/ericogr/idlerpg-arena/internal/logging"
	"github.com/ericogr/idlerpg-arena/internal/telemetry"
)

// PetStore is the Profile Store part the pet tasks use.
type PetStore interface {
	DecayPets(ctx context.Context, hunger, happiness int) (int64, error)
	RemoveRunawayPets(ctx context.Context) (int64, error)
	ListDueEggs(ctx context.Context, now time.Time) ([]game.Egg, error)
	HatchEgg(ctx context.Context, eggID uint, pet *game.Pet) (bool, error)
	ListGrowablePets(ctx context.Context, now time.Time) ([]game.Pet, error)
	SavePet(ctx context.Context, p *game.Pet) error
}

// SeatKeeper is the slot machine part the seat tasks use.
type SeatKeeper interface {
	SweepIdle(ctx context.Context) ([]game.SlotSeat, error)
	Trickle(ctx context.Context, amount int64) (int64, error)
}

// stageMultiplier scales adult stats for each growth stage.
var stageMultiplier = map[game.GrowthStage]float64{
	game.StageBaby:     0.25,
	game.StageJuvenile: 0.50,
	game.StageYoung:    0.75,
	game.StageAdult:    1.00,
}

var nextStage = map[game.GrowthStage]game.GrowthStage{
	game.StageBaby:     game.StageJuvenile,
	game.StageJuvenile: game.StageYoung,
	game.StageYoung:    game.StageAdult,
}

// Tasks are the best-effort periodic jobs. A failed tick is logged and the
// next tick runs as usual.
type Tasks struct {
	pets  PetStore
	seats SeatKeeper
	cfg   *config.LoadedConfig
	now   func() time.Time
}

func NewTasks(cfg *config.LoadedConfig, pets PetStore, seats SeatKeeper) *Tasks {
	return &Tasks{pets: pets, seats: seats, cfg: cfg, now: time.Now}
}

// Run starts every task loop and blocks until ctx is done.
func (t *Tasks) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	loop := func(name string, every time.Duration, fn func(context.Context) (int64, error)) {
		if every <= 0 {
			logging.Warn("periodic task disabled", logging.Fields{constants.LogFieldTask: name})
			return
		}
		g.Go(func() error {
			ticker := time.NewTicker(every)
			defer ticker.Stop()
			for {
				select {
				case <-gctx.Done():
					return nil
				case <-ticker.C:
					t.tick(gctx, name, fn)
				}
			}
		})
	}
	loop("pet_hunger", t.cfg.Pets.HungerInterval, t.DecayPets)
	loop("egg_hatch", t.cfg.Pets.HatchInterval, t.HatchEggs)
	loop("pet_growth", t.cfg.Pets.GrowthInterval, t.GrowPets)
	loop("jackpot_trickle", t.cfg.Jackpot.TrickleInterval, t.TrickleJackpot)
	loop("seat_sweep", t.cfg.Slots.SweepInterval, t.SweepSeats)
	return g.Wait()
}

func (t *Tasks) tick(ctx context.Context, name string, fn func(context.Context) (int64, error)) {
	ctx, span := telemetry.Tracer("tasks").Start(ctx, "task."+name)
	defer span.End()
	n, err := fn(ctx)
	span.SetAttributes(attribute.Int64("task.count", n))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logging.Error("periodic task failed", err, logging.Fields{constants.LogFieldTask: name})
		return
	}
	if n > 0 {
		logging.Debug("periodic task done", logging.Fields{constants.LogFieldTask: name, constants.LogFieldCount: n})
	}
}

// DecayPets lowers hunger and happiness of non-adult pets and removes the
// ones that ran away. It returns how many pets ran away.
func (t *Tasks) DecayPets(ctx context.Context) (int64, error) {
	if _, err := t.pets.DecayPets(ctx, t.cfg.Pets.HungerDecay, t.cfg.Pets.HappinessDecay); err != nil {
		return 0, game.WrapIO("decay pets", err)
	}
	n, err := t.pets.RemoveRunawayPets(ctx)
	if err != nil {
		return 0, game.WrapIO("remove runaway pets", err)
	}
	if n > 0 {
		logging.Info("pets ran away", logging.Fields{constants.LogFieldCount: n})
	}
	return n, nil
}

// HatchEggs turns every due egg into a baby pet.
func (t *Tasks) HatchEggs(ctx context.Context) (int64, error) {
	now := t.now()
	eggs, err := t.pets.ListDueEggs(ctx, now)
	if err != nil {
		return 0, game.WrapIO("list due eggs", err)
	}
	var n int64
	for _, e := range eggs {
		pet := &game.Pet{
			OwnerID:      e.OwnerID,
			Name:         e.MonsterName,
			Element:      e.Element,
			BaseHP:       e.HP,
			BaseAttack:   e.Attack,
			BaseDefense:  e.Defense,
			Stage:        game.StageBaby,
			Hunger:       100,
			Happiness:    100,
			NextGrowthAt: now.Add(t.cfg.Pets.GrowthStageTime),
		}
		applyStage(pet)
		ok, err := t.pets.HatchEgg(ctx, e.ID, pet)
		if err != nil {
			logging.Error("hatch egg failed", err, logging.Fields{constants.LogFieldUserID: e.OwnerID})
			continue
		}
		if ok {
			n++
		}
	}
	return n, nil
}

// GrowPets advances every pet whose growth time has come by one stage.
func (t *Tasks) GrowPets(ctx context.Context) (int64, error) {
	now := t.now()
	pets, err := t.pets.ListGrowablePets(ctx, now)
	if err != nil {
		return 0, game.WrapIO("list growable pets", err)
	}
	var n int64
	for i := range pets {
		p := &pets[i]
		next, ok := nextStage[p.Stage]
		if !ok {
			continue
		}
		p.Stage = next
		applyStage(p)
		p.NextGrowthAt = now.Add(t.cfg.Pets.GrowthStageTime)
		if err := t.pets.SavePet(ctx, p); err != nil {
			logging.Error("save pet failed", err, logging.Fields{constants.LogFieldUserID: p.OwnerID})
			continue
		}
		n++
	}
	return n, nil
}

// applyStage recomputes combat stats from the adult base values.
func applyStage(p *game.Pet) {
	m, ok := stageMultiplier[p.Stage]
	if !ok {
		m = 1
	}
	p.HP = p.BaseHP * m
	p.Attack = p.BaseAttack * m
	p.Defense = p.BaseDefense * m
}

// TrickleJackpot feeds the jackpot of every free seat.
func (t *Tasks) TrickleJackpot(ctx context.Context) (int64, error) {
	return t.seats.Trickle(ctx, t.cfg.Jackpot.TrickleAmount)
}

// SweepSeats vacates seats idle past the inactivity threshold.
func (t *Tasks) SweepSeats(ctx context.Context) (int64, error) {
	seats, err := t.seats.SweepIdle(ctx)
	if err != nil {
		return 0, err
	}
	return int64(len(seats)), nil
}
