// Package tower holds the battle tower progression rules. Floor content
// comes from the gamedata level table; this package only decides how a
// player moves between floors.
package tower

import (
	"fmt"

	"github.com/ericogr/idlerpg-arena/internal/game"
	"github.com/ericogr/idlerpg-arena/internal/gamedata"
)

// MaxLevel is the top floor. Winning it offers prestige instead of
// advancing.
const MaxLevel = 30

// Progress is a player's position in the tower. Level 0 means the tower
// was never entered.
type Progress struct {
	Level    int `json:"level"`
	Prestige int `json:"prestige"`
}

// FromProfile reads progress from a stored profile. Stored levels above the
// top floor are read as the top floor with prestige pending.
func FromProfile(p *game.Profile) Progress {
	lvl := p.TowerLevel
	if lvl < 0 {
		lvl = 0
	}
	if lvl > MaxLevel {
		lvl = MaxLevel
	}
	return Progress{Level: lvl, Prestige: p.TowerPrestige}
}

func (p Progress) Started() bool { return p.Level > 0 }

// AtTop reports whether the next win offers prestige.
func (p Progress) AtTop() bool { return p.Level >= MaxLevel }

// Start enters the tower at level 1. Entering again keeps the current
// progress.
func Start(p Progress) Progress {
	if p.Level == 0 {
		p.Level = 1
	}
	return p
}

// AfterWin advances one floor. At the top floor the level stays put and
// offer reports that the player must choose whether to prestige.
func AfterWin(p Progress) (next Progress, offer bool) {
	if p.Level >= MaxLevel {
		return Progress{Level: MaxLevel, Prestige: p.Prestige}, true
	}
	p.Level++
	return p, false
}

// Resolve applies the prestige choice for a player at the top floor:
// accepting restarts at level 1 with one more prestige; declining leaves
// the player at the top.
func Resolve(p Progress, accept bool) Progress {
	if !p.AtTop() {
		return p
	}
	if accept {
		return Progress{Level: 1, Prestige: p.Prestige + 1}
	}
	return Progress{Level: MaxLevel, Prestige: p.Prestige}
}

// Tower binds the progression rules to a floor table.
type Tower struct {
	tables *gamedata.Tables
}

// New checks that the table covers every floor.
func New(tables *gamedata.Tables) (*Tower, error) {
	if tables.TowerMaxLevel() < MaxLevel {
		return nil, fmt.Errorf("tower table has %d levels, need %d", tables.TowerMaxLevel(), MaxLevel)
	}
	return &Tower{tables: tables}, nil
}

// Floor returns the content for the floor the player fights next.
func (t *Tower) Floor(p Progress) (gamedata.TowerLevel, error) {
	if !p.Started() {
		return gamedata.TowerLevel{}, game.ErrTowerNotStarted
	}
	lv, ok := t.tables.TowerLevel(p.Level)
	if !ok {
		return gamedata.TowerLevel{}, fmt.Errorf("no tower content for level %d", p.Level)
	}
	return lv, nil
}
