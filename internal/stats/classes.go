package stats

// Class lines granting a cheat-death chance (percent).
var cheatDeathByClass = map[string]float64{
	"Deathshroud":    20,
	"Soul Warden":    30,
	"Reaper":         40,
	"Phantom Scythe": 50,
	"Soul Snatcher":  60,
	"Deathbringer":   70,
	"Grim Reaper":    80,
}

// Class lines granting lifesteal (percent of damage dealt).
var lifestealByClass = map[string]float64{
	"Little Helper":     7,
	"Gift Gatherer":     14,
	"Holiday Aide":      21,
	"Joyful Jester":     28,
	"Yuletide Guardian": 35,
	"Festive Enforcer":  40,
	"Festive Champion":  60,
}

// Mage evolution tiers, used to pick the fireball multiplier.
var mageTierByClass = map[string]int{
	"Witcher":        1,
	"Enchanter":      2,
	"Mage":           3,
	"Warlock":        4,
	"Dark Caster":    5,
	"White Sorcerer": 6,
}

// ClassModifiers are the combat bonuses derived from a class list.
type ClassModifiers struct {
	CheatDeathPct float64
	LifestealPct  float64
	MageTier      int
}

// ModifiersForClasses sums the table contributions of every matching
// class. Percentages are capped at 100; the mage tier is the highest one.
func ModifiersForClasses(classes []string) ClassModifiers {
	var m ClassModifiers
	for _, c := range classes {
		m.CheatDeathPct += cheatDeathByClass[c]
		m.LifestealPct += lifestealByClass[c]
		if tier := mageTierByClass[c]; tier > m.MageTier {
			m.MageTier = tier
		}
	}
	if m.CheatDeathPct > 100 {
		m.CheatDeathPct = 100
	}
	if m.LifestealPct > 100 {
		m.LifestealPct = 100
	}
	return m
}
