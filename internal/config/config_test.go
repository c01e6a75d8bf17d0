package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ericogr/idlerpg-arena/internal/constants"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "idlerpg.toml")
	if err := os.WriteFile(p, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return p
}

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Slots.Stake != 1500 || cfg.Slots.JackpotCut != 250 || cfg.Slots.Seats != 8 {
		t.Fatalf("unexpected slots defaults %+v", cfg.Slots)
	}
	if cfg.Rewards.EggCapAdventure != 5 || cfg.Rewards.EggCapTower != 10 {
		t.Fatalf("unexpected egg caps %+v", cfg.Rewards)
	}
}

func TestLoadConfigOverridesAndKeepsDefaults(t *testing.T) {
	p := writeConfig(t, `
[server]
address = ":9090"

[battle]
pace = "1s"

[battle.variants.tower]
fireball_chance = 0.5

[auth]
gm_ids = ["123"]
`)
	cfg, err := LoadConfig(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Address != ":9090" || cfg.Battle.Pace != time.Second {
		t.Fatalf("overrides not applied: %+v", cfg.Server)
	}
	if cfg.Battle.Deadline != 5*time.Minute {
		t.Fatalf("default deadline lost: %v", cfg.Battle.Deadline)
	}
	tower := cfg.Rules(constants.KindTower)
	if tower.FireballChance != 0.5 || tower.TripChecks {
		t.Fatalf("unexpected tower rules %+v", tower)
	}
	if !cfg.Rules(constants.KindBattle).TripChecks {
		t.Fatalf("battle must keep trip checks")
	}
	if !cfg.IsGM("123") || cfg.IsGM("456") {
		t.Fatalf("gm list not applied")
	}
}

func TestLoadConfigRejectsInvalid(t *testing.T) {
	cases := []string{
		"[database]\ndriver = \"mysql\"\n",
		"[slots]\nstake = 100\njackpot_cut = 200\n",
		"[slots]\ncaptcha_chance = 2.0\n",
		"[[slots.symbols]]\nglyph = \"x\"\nvalue = 1\nweight = 1\n",
		"not toml at all = = =",
	}
	for _, body := range cases {
		if _, err := LoadConfig(writeConfig(t, body)); err == nil {
			t.Fatalf("expected error for %q", body)
		}
	}
}

func TestDatabaseDSNFromEnv(t *testing.T) {
	t.Setenv(constants.EnvDatabaseDSN, "postgres://x")
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Database.DSN != "postgres://x" {
		t.Fatalf("env override not applied: %s", cfg.Database.DSN)
	}
}
