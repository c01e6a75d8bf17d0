// Package element implements the elemental strength/weakness cycle used to
// adjust damage between an attacker and a defender.
package element

import "strings"

type Element string

const (
	Light     Element = "Light"
	Dark      Element = "Dark"
	Corrupted Element = "Corrupted"
	Nature    Element = "Nature"
	Electric  Element = "Electric"
	Water     Element = "Water"
	Fire      Element = "Fire"
	Wind      Element = "Wind"
	Unknown   Element = "Unknown"
)

// All lists the eight known elements.
var All = []Element{Light, Dark, Corrupted, Nature, Electric, Water, Fire, Wind}

// strongAgainst maps an element to the one it beats.
var strongAgainst = map[Element]Element{
	Light:     Corrupted,
	Dark:      Light,
	Corrupted: Dark,
	Nature:    Electric,
	Electric:  Water,
	Water:     Fire,
	Fire:      Nature,
	Wind:      Electric,
}

const (
	minBonus = 0.10
	maxBonus = 0.30
)

// Rand is the subset of *rand.Rand the table needs.
type Rand interface {
	Float64() float64
}

// Parse maps a stored element name to an Element, case-insensitively.
// Anything unrecognised is Unknown.
func Parse(s string) Element {
	s = strings.TrimSpace(s)
	for _, e := range All {
		if strings.EqualFold(string(e), s) {
			return e
		}
	}
	return Unknown
}

// Known reports whether e takes part in the cycle.
func (e Element) Known() bool {
	_, ok := strongAgainst[e]
	return ok
}

// Beats reports whether attacker has the advantage over defender.
func Beats(attacker, defender Element) bool {
	target, ok := strongAgainst[attacker]
	return ok && target == defender
}

// Modifier returns the signed damage adjustment as a fraction: a fresh
// uniform draw in [0.10, 0.30] when attacker beats defender, its negation
// when defender beats attacker, and 0 otherwise or when either side is
// Unknown. Every call re-rolls.
func Modifier(r Rand, attacker, defender Element) float64 {
	if !attacker.Known() || !defender.Known() {
		return 0
	}
	switch {
	case Beats(attacker, defender):
		return roll(r)
	case Beats(defender, attacker):
		return -roll(r)
	default:
		return 0
	}
}

func roll(r Rand) float64 {
	return minBonus + r.Float64()*(maxBonus-minBonus)
}
