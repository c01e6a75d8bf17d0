// Package present renders encounter state as chat text.
package present

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/ericogr/idlerpg-arena/internal/engine"
	"github.com/ericogr/idlerpg-arena/internal/settlement"
)

const (
	nameWidth = 18
	barWidth  = 10
)

// Snapshot renders the HP table and the retained action log inside a code
// block so columns line up.
func Snapshot(snap engine.Snapshot) string {
	var b strings.Builder
	b.WriteString("```\n")
	for i, side := range snap.Sides {
		if i > 0 {
			b.WriteString(strings.Repeat("-", nameWidth+barWidth+21))
			b.WriteByte('\n')
		}
		for _, c := range side {
			b.WriteString(Row(c))
			b.WriteByte('\n')
		}
	}
	if len(snap.Log) > 0 {
		b.WriteByte('\n')
		for _, e := range snap.Log {
			fmt.Fprintf(&b, "%d. %s\n", e.Seq, e.Text)
		}
	}
	b.WriteString("```")
	return b.String()
}

// Row is one combatant line: padded name, HP figures and an HP bar.
func Row(c engine.Combatant) string {
	name := c.Name
	if name == "" {
		name = c.ID
	}
	hp := fmt.Sprintf("%.2f/%.2f", c.HP, c.MaxHP)
	return Pad(name, nameWidth) + " " + runewidth.FillRight(hp, 19) + " " + Bar(c.HP, c.MaxHP, barWidth)
}

// Pad truncates or right-pads s to exactly w terminal cells; emoji count
// as two.
func Pad(s string, w int) string {
	return runewidth.FillRight(runewidth.Truncate(s, w, "…"), w)
}

// Bar draws a fixed-width HP bar.
func Bar(hp, max float64, width int) string {
	if width <= 0 {
		return ""
	}
	filled := 0
	if max > 0 && hp > 0 {
		filled = int(math.Ceil(hp / max * float64(width)))
		if filled > width {
			filled = width
		}
	}
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

// Outcome summarises a settled encounter: who won, what moved and any
// extra notes.
func Outcome(snap engine.Snapshot, res *settlement.Result, notes []string) string {
	names := map[string]string{}
	for _, side := range snap.Sides {
		for _, c := range side {
			if c.Name != "" {
				names[c.ID] = c.Name
			}
		}
	}
	name := func(id string) string {
		if n, ok := names[id]; ok {
			return n
		}
		return id
	}

	var lines []string
	switch {
	case snap.State == engine.StateSettledDraw:
		lines = append(lines, "The battle ended in a draw.")
	case snap.Winner >= 0 && snap.Winner < len(snap.Sides):
		var winners []string
		for _, c := range snap.Sides[snap.Winner] {
			if c.Kind == engine.KindPlayer || c.Kind == engine.KindMonster {
				winners = append(winners, name(c.ID))
			}
		}
		lines = append(lines, fmt.Sprintf("%s won the battle!", strings.Join(winners, " and ")))
	}

	if res != nil {
		ids := make([]string, 0, len(res.Payouts))
		for id := range res.Payouts {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			if amt := res.Payouts[id]; amt > 0 {
				verb := "receives"
				if snap.State == engine.StateSettledDraw {
					verb = "is refunded"
				}
				lines = append(lines, fmt.Sprintf("%s %s $%d.", name(id), verb, amt))
			}
		}
		for _, a := range res.Awards {
			if s := award(name(a.UserID), a); s != "" {
				lines = append(lines, s)
			}
		}
	}
	lines = append(lines, notes...)
	return strings.Join(lines, "\n")
}

func award(who string, a settlement.Award) string {
	var parts []string
	if a.Money > 0 {
		parts = append(parts, fmt.Sprintf("$%d", a.Money))
	}
	if a.XP > 0 {
		parts = append(parts, fmt.Sprintf("%d XP", a.XP))
	}
	if a.Crates > 0 {
		parts = append(parts, fmt.Sprintf("%d %s crate(s)", a.Crates, a.Crate))
	}
	if a.Egg != nil {
		parts = append(parts, fmt.Sprintf("a %s egg", a.Egg.MonsterName))
	}
	if len(parts) == 0 {
		return ""
	}
	return fmt.Sprintf("%s gained %s.", who, strings.Join(parts, ", "))
}
