// Package stats turns persisted profile, item and pet rows into the
// normalized combat stat blocks the engine consumes.
package stats

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/ericogr/idlerpg-arena/internal/constants"
	"github.com/ericogr/idlerpg-arena/internal/dedupe"
	"github.com/ericogr/idlerpg-arena/internal/element"
	"github.com/ericogr/idlerpg-arena/internal/engine"
	"github.com/ericogr/idlerpg-arena/internal/game"
	"github.com/ericogr/idlerpg-arena/internal/gamedata"
	"github.com/ericogr/idlerpg-arena/internal/keys"
	"github.com/ericogr/idlerpg-arena/internal/logging"

	"golang.org/x/sync/errgroup"
)

const (
	BaseHealth     = 250
	HealthPerLevel = 5
	HealthPerStat  = 50
	// PetLuck is the fixed luck pets roll trips against.
	PetLuck = 50
)

// Source is the read side of the Profile Store the resolver needs.
type Source interface {
	GetProfile(ctx context.Context, userID string) (*game.Profile, error)
	GetEquippedItems(ctx context.Context, userID string) ([]game.Item, error)
	GetEquippedPet(ctx context.Context, userID string) (*game.Pet, error)
	// HighestElement returns the element of the equipped item with the
	// highest damage or armor.
	HighestElement(ctx context.Context, userID string) (string, error)
}

// Resolver is a pure read over Source; it never mutates stored data.
type Resolver struct {
	src Source
	now func() time.Time
}

func NewResolver(src Source) *Resolver {
	return &Resolver{src: src, now: time.Now}
}

// NormalizeLuck maps raw stored luck onto the [20, 100] scale: raw values up
// to 0.3 are 20, above that ((raw-0.3)/1.2)*80+20, rounded to 2 decimals.
// An active booster multiplies the result by 1.25, capped at 100.
func NormalizeLuck(raw float64, booster bool) float64 {
	l := 20.0
	if raw > 0.3 {
		l = ((raw-0.3)/1.2)*80 + 20
	}
	l = round2(l)
	if booster {
		l = round2(l * 1.25)
	}
	return math.Min(l, 100)
}

// MaxHealth is stored health + 250 + level*5 + stathp*50.
func MaxHealth(p *game.Profile) float64 {
	return p.Health + BaseHealth + float64(p.Level()*HealthPerLevel) + float64(p.StatHP*HealthPerStat)
}

// ResolvePlayer builds the stat block for a player. A missing profile is
// game.ErrProfileNotFound; other store failures are *game.IOError.
// Concurrent resolves of the same player share one store round trip.
func (r *Resolver) ResolvePlayer(ctx context.Context, userID string) (*engine.Combatant, error) {
	v, err, _ := dedupe.ProfileGroup.Do(keys.PlayerKey(userID), func() (interface{}, error) {
		return r.resolvePlayer(ctx, userID)
	})
	if err != nil {
		return nil, err
	}
	c := *v.(*engine.Combatant)
	return &c, nil
}

func (r *Resolver) resolvePlayer(ctx context.Context, userID string) (*engine.Combatant, error) {
	p, err := r.src.GetProfile(ctx, userID)
	if err != nil {
		if errors.Is(err, game.ErrProfileNotFound) {
			return nil, fmt.Errorf("resolve %s: %w", userID, game.ErrProfileNotFound)
		}
		return nil, game.WrapIO("get profile", err)
	}
	items, err := r.src.GetEquippedItems(ctx, userID)
	if err != nil {
		return nil, game.WrapIO("get equipped items", err)
	}
	var dmg, armor float64
	for _, it := range items {
		dmg += it.Damage
		armor += it.Armor
	}
	hp := MaxHealth(p)
	mods := ModifiersForClasses(p.Classes)
	name := p.Name
	if name == "" {
		name = userID
	}
	return &engine.Combatant{
		ID:            userID,
		Name:          name,
		Kind:          engine.KindPlayer,
		HP:            hp,
		MaxHP:         hp,
		Damage:        dmg,
		Armor:         armor,
		Luck:          NormalizeLuck(p.Luck, p.LuckBoosterActive(r.now())),
		Element:       r.elementOf(ctx, userID),
		LifestealPct:  mods.LifestealPct,
		MageTier:      mods.MageTier,
		CheatDeathPct: mods.CheatDeathPct,
	}, nil
}

// elementOf never fails: any lookup problem degrades to Unknown.
func (r *Resolver) elementOf(ctx context.Context, userID string) element.Element {
	name, err := r.src.HighestElement(ctx, userID)
	if err != nil {
		logging.Warn("element lookup failed; using Unknown", logging.Fields{constants.LogFieldUserID: userID, "error": err.Error()})
		return element.Unknown
	}
	return element.Parse(name)
}

// ResolvePet returns the equipped pet's fixed stat block, or
// game.ErrNoEquippedPet.
func (r *Resolver) ResolvePet(ctx context.Context, userID string) (*engine.Combatant, error) {
	pet, err := r.src.GetEquippedPet(ctx, userID)
	if err != nil {
		if errors.Is(err, game.ErrNoEquippedPet) {
			return nil, err
		}
		return nil, game.WrapIO("get equipped pet", err)
	}
	return PetCombatant(userID, pet), nil
}

// PetCombatant converts a stored pet; its stats already include the growth
// stage multiplier.
func PetCombatant(ownerID string, pet *game.Pet) *engine.Combatant {
	return &engine.Combatant{
		ID:      keys.PetKey(ownerID, pet.ID),
		Name:    pet.Name,
		Kind:    engine.KindPet,
		HP:      pet.HP,
		MaxHP:   pet.HP,
		Damage:  pet.Attack,
		Armor:   pet.Defense,
		Luck:    PetLuck,
		Element: element.Parse(pet.Element),
	}
}

// MonsterCombatant builds a scripted enemy from a content template.
func MonsterCombatant(id string, m gamedata.Monster) *engine.Combatant {
	return &engine.Combatant{
		ID:      id,
		Name:    m.Name,
		Kind:    engine.KindMonster,
		HP:      m.HP,
		MaxHP:   m.HP,
		Damage:  m.Attack,
		Armor:   m.Defense,
		Element: element.Parse(m.Element),
	}
}

// ResolvePlayers resolves several players concurrently, preserving order.
func (r *Resolver) ResolvePlayers(ctx context.Context, userIDs ...string) ([]*engine.Combatant, error) {
	out := make([]*engine.Combatant, len(userIDs))
	g, gctx := errgroup.WithContext(ctx)
	for i, id := range userIDs {
		i, id := i, id
		g.Go(func() error {
			c, err := r.ResolvePlayer(gctx, id)
			if err != nil {
				return err
			}
			out[i] = c
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
