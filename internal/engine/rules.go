package engine

import "time"

// Rules are the per-encounter knobs that vary between battle commands.
type Rules struct {
	// TripChecks enables the luck roll that can make an attacker stumble.
	TripChecks bool
	TripDamage float64
	// MonsterLuck replaces a scripted monster's luck for trip rolls.
	MonsterLuck float64

	PlayerVariance   int
	OtherVariance    int
	FireballVariance int
	FireballChance   float64

	// PlayerTargetWeight is the probability mass given to a player when an
	// attacker faces a living player and pet; the pet gets the rest.
	PlayerTargetWeight float64

	RevivalHP        float64
	Deadline         time.Duration
	LogCapacity      int
	ShuffleTurnOrder bool
}

// DefaultRules are the 1v1 battle rules.
func DefaultRules() Rules {
	return Rules{
		TripChecks:         true,
		TripDamage:         10,
		MonsterLuck:        80,
		PlayerVariance:     100,
		OtherVariance:      50,
		FireballVariance:   100,
		FireballChance:     0.30,
		PlayerTargetWeight: 0.60,
		RevivalHP:          75,
		Deadline:           5 * time.Minute,
		LogCapacity:        5,
		ShuffleTurnOrder:   true,
	}
}

func (r Rules) normalized() Rules {
	d := DefaultRules()
	if r.TripDamage < 0 {
		r.TripDamage = 0
	}
	if r.PlayerVariance < 0 {
		r.PlayerVariance = 0
	}
	if r.OtherVariance < 0 {
		r.OtherVariance = 0
	}
	if r.FireballVariance < 0 {
		r.FireballVariance = 0
	}
	if r.PlayerTargetWeight < 0 || r.PlayerTargetWeight > 1 {
		r.PlayerTargetWeight = d.PlayerTargetWeight
	}
	if r.LogCapacity <= 0 {
		r.LogCapacity = d.LogCapacity
	}
	if r.Deadline <= 0 {
		r.Deadline = d.Deadline
	}
	return r
}
