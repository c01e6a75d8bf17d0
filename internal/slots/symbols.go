package slots

// Symbol is one reel face. Value drives the payout; Dragon faces start the
// dragon fight.
type Symbol struct {
	Glyph  string `toml:"glyph"`
	Value  int64  `toml:"value"`
	Weight int    `toml:"weight"`
	Dragon bool   `toml:"dragon"`
}

// DefaultSymbols is the standard 7-face reel.
var DefaultSymbols = []Symbol{
	{Glyph: "🍒", Value: 1000, Weight: 30},
	{Glyph: "🍎", Value: 2000, Weight: 24},
	{Glyph: "🍏", Value: 3000, Weight: 18},
	{Glyph: "🍋", Value: 4000, Weight: 12},
	{Glyph: "🍇", Value: 6000, Weight: 8},
	{Glyph: "💎", Value: 10000, Weight: 5},
	{Glyph: "🐉", Value: 5000, Weight: 3, Dragon: true},
}

// Rand is the subset of math/rand used by the machine.
type Rand interface {
	Intn(n int) int
	Float64() float64
}

// Reel draws symbols with replacement according to their weights.
type Reel struct {
	symbols []Symbol
	total   int
	values  map[string]int64
}

func NewReel(symbols []Symbol) *Reel {
	r := &Reel{values: make(map[string]int64, len(symbols))}
	for _, s := range symbols {
		if s.Weight <= 0 {
			continue
		}
		r.symbols = append(r.symbols, s)
		r.total += s.Weight
		r.values[s.Glyph] = s.Value
	}
	return r
}

func (r *Reel) draw(rng Rand) Symbol {
	n := rng.Intn(r.total)
	for _, s := range r.symbols {
		if n < s.Weight {
			return s
		}
		n -= s.Weight
	}
	return r.symbols[len(r.symbols)-1]
}

// Spin draws three symbols.
func (r *Reel) Spin(rng Rand) [3]Symbol {
	return [3]Symbol{r.draw(rng), r.draw(rng), r.draw(rng)}
}

// Values maps each glyph to its payout value.
func (r *Reel) Values() map[string]int64 { return r.values }

// Payout applies the payout rule to a draw: three of a kind pays 4x the
// symbol value, exactly one pair pays 2x the paired symbol value,
// anything else pays nothing.
func Payout(draw [3]string, values map[string]int64) int64 {
	counts := make(map[string]int, 3)
	for _, g := range draw {
		counts[g]++
	}
	for g, n := range counts {
		switch n {
		case 3:
			return 4 * values[g]
		case 2:
			return 2 * values[g]
		}
	}
	return 0
}

func glyphs(draw [3]Symbol) [3]string {
	return [3]string{draw[0].Glyph, draw[1].Glyph, draw[2].Glyph}
}

func hasDragon(draw [3]Symbol) bool {
	for _, s := range draw {
		if s.Dragon {
			return true
		}
	}
	return false
}
