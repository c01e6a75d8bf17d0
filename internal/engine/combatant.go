package engine

import "github.com/ericogr/idlerpg-arena/internal/element"

// Kind distinguishes the participant types that take part in combat.
type Kind string

const (
	KindPlayer  Kind = "player"
	KindPet     Kind = "pet"
	KindMonster Kind = "monster"
)

// Combatant is one HP-bearing participant for the lifetime of one
// encounter. HP is kept within [0, MaxHP] by every mutation.
type Combatant struct {
	ID      string
	Name    string
	Kind    Kind
	Side    int
	HP      float64
	MaxHP   float64
	Armor   float64
	Damage  float64
	Luck    float64
	Element element.Element

	// LifestealPct is a percentage of damage dealt healed back; 0 disables it.
	LifestealPct float64
	// MageTier selects the fireball multiplier; 0 means no fireball.
	MageTier int
	// CheatDeathPct is the chance to survive a lethal hit once per encounter.
	CheatDeathPct  float64
	CheatDeathUsed bool
}

// Alive reports whether the combatant can still act and be targeted.
func (c *Combatant) Alive() bool { return c.HP > 0 }

// setHP rounds before clamping so the rounding can never leave HP above
// MaxHP.
func (c *Combatant) setHP(v float64) {
	v = round2(v)
	switch {
	case v < 0:
		v = 0
	case v > c.MaxHP:
		v = c.MaxHP
	}
	c.HP = v
}

// fireballMultipliers is indexed by mage evolution tier.
var fireballMultipliers = []float64{1.00, 1.10, 1.20, 1.30, 1.50, 1.75, 2.00}

// FireballMultiplier returns the damage multiplier for a mage evolution
// tier. Tiers outside 1..6 are clamped.
func FireballMultiplier(tier int) float64 {
	if tier < 0 {
		tier = 0
	}
	if tier >= len(fireballMultipliers) {
		tier = len(fireballMultipliers) - 1
	}
	return fireballMultipliers[tier]
}
