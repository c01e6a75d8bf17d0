// Package gamedata loads the static content tables: tower levels, adventure
// monsters and boss crate weights. Defaults are embedded; a directory on
// disk can override them.
package gamedata

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/ericogr/idlerpg-arena/internal/game"

	"gopkg.in/yaml.v3"
)

//go:embed data/*.yaml
var embedded embed.FS

// Monster is a scripted enemy template.
type Monster struct {
	Name     string  `yaml:"name"`
	Element  string  `yaml:"element"`
	MinLevel int     `yaml:"min_level"`
	MaxLevel int     `yaml:"max_level"`
	HP       float64 `yaml:"hp"`
	Attack   float64 `yaml:"attack"`
	Defense  float64 `yaml:"defense"`
	XPMin    int64   `yaml:"xp_min"`
	XPMax    int64   `yaml:"xp_max"`
	Boss     bool    `yaml:"boss"`
}

// Scaled returns a copy with combat stats multiplied by f.
func (m Monster) Scaled(f float64) Monster {
	m.HP *= f
	m.Attack *= f
	m.Defense *= f
	return m
}

// Reward is what a tower level or chest pays out.
type Reward struct {
	Label  string           `yaml:"label"`
	Money  int64            `yaml:"money"`
	XP     int64            `yaml:"xp"`
	Crate  game.CrateRarity `yaml:"crate"`
	Crates int              `yaml:"crates"`
}

// TowerLevel is one floor of the tower. Content only; progression rules
// live in the tower package.
type TowerLevel struct {
	Level       int       `yaml:"level"`
	NarrativeID string    `yaml:"narrative_id"`
	Dialogue    string    `yaml:"dialogue"`
	Boss        bool      `yaml:"boss"`
	Enemies     []Monster `yaml:"enemies"`
	Reward      Reward    `yaml:"reward"`
	Chests      []Reward  `yaml:"chests"`
}

// CrateWeight is one row of the boss crate table.
type CrateWeight struct {
	Rarity game.CrateRarity `yaml:"rarity"`
	Weight int              `yaml:"weight"`
}

type towerFile struct {
	Levels []TowerLevel `yaml:"levels"`
}

type monsterFile struct {
	Monsters []Monster `yaml:"monsters"`
}

type crateFile struct {
	Crates []CrateWeight `yaml:"crates"`
}

// Rand is the subset of math/rand used for content rolls.
type Rand interface {
	Intn(n int) int
}

// Tables holds every loaded content table.
type Tables struct {
	tower      map[int]TowerLevel
	maxLevel   int
	monsters   []Monster
	crates     []CrateWeight
	crateTotal int
}

// Load parses the embedded defaults.
func Load() (*Tables, error) {
	sub, err := fs.Sub(embedded, "data")
	if err != nil {
		return nil, err
	}
	return LoadFS(sub)
}

// LoadDir parses tower.yaml, monsters.yaml and crates.yaml from dir.
func LoadDir(dir string) (*Tables, error) {
	if _, err := os.Stat(filepath.Join(dir, "tower.yaml")); err != nil {
		return nil, fmt.Errorf("gamedata dir %s: %w", dir, err)
	}
	return LoadFS(os.DirFS(dir))
}

// LoadFS parses the three content files from fsys and validates them.
func LoadFS(fsys fs.FS) (*Tables, error) {
	var tf towerFile
	if err := decode(fsys, "tower.yaml", &tf); err != nil {
		return nil, err
	}
	var mf monsterFile
	if err := decode(fsys, "monsters.yaml", &mf); err != nil {
		return nil, err
	}
	var cf crateFile
	if err := decode(fsys, "crates.yaml", &cf); err != nil {
		return nil, err
	}

	t := &Tables{tower: make(map[int]TowerLevel, len(tf.Levels))}
	for _, lv := range tf.Levels {
		if lv.Level <= 0 {
			return nil, fmt.Errorf("tower.yaml: invalid level %d", lv.Level)
		}
		if _, dup := t.tower[lv.Level]; dup {
			return nil, fmt.Errorf("tower.yaml: duplicate level %d", lv.Level)
		}
		if len(lv.Enemies) == 0 {
			return nil, fmt.Errorf("tower.yaml: level %d has no enemies", lv.Level)
		}
		t.tower[lv.Level] = lv
		if lv.Level > t.maxLevel {
			t.maxLevel = lv.Level
		}
	}
	for i := 1; i <= t.maxLevel; i++ {
		if _, ok := t.tower[i]; !ok {
			return nil, fmt.Errorf("tower.yaml: missing level %d", i)
		}
	}

	if len(mf.Monsters) == 0 {
		return nil, fmt.Errorf("monsters.yaml: no monsters")
	}
	for _, m := range mf.Monsters {
		if m.Name == "" || m.HP <= 0 {
			return nil, fmt.Errorf("monsters.yaml: invalid monster %q", m.Name)
		}
		if m.XPMax < m.XPMin {
			return nil, fmt.Errorf("monsters.yaml: %s has xp_max < xp_min", m.Name)
		}
	}
	t.monsters = mf.Monsters
	sort.SliceStable(t.monsters, func(i, j int) bool { return t.monsters[i].MinLevel < t.monsters[j].MinLevel })

	for _, c := range cf.Crates {
		if c.Weight < 0 {
			return nil, fmt.Errorf("crates.yaml: negative weight for %s", c.Rarity)
		}
		t.crateTotal += c.Weight
	}
	if t.crateTotal == 0 {
		return nil, fmt.Errorf("crates.yaml: total weight is zero")
	}
	t.crates = cf.Crates
	return t, nil
}

func decode(fsys fs.FS, name string, v interface{}) error {
	raw, err := fs.ReadFile(fsys, name)
	if err != nil {
		return fmt.Errorf("read %s: %w", name, err)
	}
	if err := yaml.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("parse %s: %w", name, err)
	}
	return nil
}

// TowerLevel returns the content for level n.
func (t *Tables) TowerLevel(n int) (TowerLevel, bool) {
	lv, ok := t.tower[n]
	return lv, ok
}

// TowerMaxLevel is the highest level in the table.
func (t *Tables) TowerMaxLevel() int { return t.maxLevel }

// MonsterForLevel picks uniformly among monsters whose level range contains
// level. Levels outside every range get the closest band.
func (t *Tables) MonsterForLevel(level int, r Rand) Monster {
	var pool []Monster
	for _, m := range t.monsters {
		if level >= m.MinLevel && level <= m.MaxLevel {
			pool = append(pool, m)
		}
	}
	if len(pool) == 0 {
		if level < t.monsters[0].MinLevel {
			return t.monsters[0]
		}
		return t.monsters[len(t.monsters)-1]
	}
	return pool[r.Intn(len(pool))]
}

// Monsters returns every adventure monster ordered by min level.
func (t *Tables) Monsters() []Monster { return t.monsters }

// RollCrate draws a rarity from the weighted crate table.
func (t *Tables) RollCrate(r Rand) game.CrateRarity {
	n := r.Intn(t.crateTotal)
	for _, c := range t.crates {
		if n < c.Weight {
			return c.Rarity
		}
		n -= c.Weight
	}
	return t.crates[len(t.crates)-1].Rarity
}

// RollXP draws an XP reward in [XPMin, XPMax].
func (m Monster) RollXP(r Rand) int64 {
	if m.XPMax <= m.XPMin {
		return m.XPMin
	}
	return m.XPMin + int64(r.Intn(int(m.XPMax-m.XPMin)+1))
}
