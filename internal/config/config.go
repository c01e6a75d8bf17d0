package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ericogr/idlerpg-arena/internal/constants"
	"github.com/ericogr/idlerpg-arena/internal/engine"
	"github.com/ericogr/idlerpg-arena/internal/slots"
	"github.com/ericogr/idlerpg-arena/internal/storage"

	"github.com/BurntSushi/toml"
)

// LoadedConfig is the decoded idlerpg.toml. Every field has a default.
type LoadedConfig struct {
	Server    ServerConfig    `toml:"server"`
	Database  DatabaseConfig  `toml:"database"`
	Discord   DiscordConfig   `toml:"discord"`
	Battle    BattleConfig    `toml:"battle"`
	Rewards   RewardsConfig   `toml:"rewards"`
	Slots     SlotsConfig     `toml:"slots"`
	Pets      PetsConfig      `toml:"pets"`
	Jackpot   JackpotConfig   `toml:"jackpot"`
	Auth      AuthConfig      `toml:"auth"`
	Logging   LoggingConfig   `toml:"logging"`
	Telemetry TelemetryConfig `toml:"telemetry"`
	Gamedata  GamedataConfig  `toml:"gamedata"`
}

type ServerConfig struct {
	Address string `toml:"address"`
	// PublicURL is used to build the OAuth callback URL.
	PublicURL string `toml:"public_url"`
}

type DatabaseConfig struct {
	Driver          string        `toml:"driver"` // "postgres" or "sqlite"
	DSN             string        `toml:"dsn"`    // DATABASE_DSN overrides
	MaxOpenConns    int           `toml:"max_open_conns"`
	MaxIdleConns    int           `toml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `toml:"conn_max_lifetime"`
}

type DiscordConfig struct {
	GuildID           string `toml:"guild_id"` // empty registers global commands
	OperatorChannelID string `toml:"operator_channel_id"`
}

// RulesConfig is the per-variant encounter tuning.
type RulesConfig struct {
	TripChecks         bool    `toml:"trip_checks"`
	FireballChance     float64 `toml:"fireball_chance"`
	PlayerVariance     int     `toml:"player_variance"`
	OtherVariance      int     `toml:"other_variance"`
	MonsterLuck        float64 `toml:"monster_luck"`
	PlayerTargetWeight float64 `toml:"player_target_weight"`
	ShuffleTurnOrder   bool    `toml:"shuffle_turn_order"`
}

type VariantsConfig struct {
	Battle     RulesConfig `toml:"battle"`
	RaidBattle RulesConfig `toml:"raidbattle"`
	Raid2v2    RulesConfig `toml:"raidbattle2v2"`
	Horde      RulesConfig `toml:"horde"`
	Tower      RulesConfig `toml:"tower"`
	Adventure  RulesConfig `toml:"adventure"`
}

type BattleConfig struct {
	Pace        time.Duration `toml:"pace"`
	Deadline    time.Duration `toml:"deadline"`
	JoinTimeout time.Duration `toml:"join_timeout"`
	LogCapacity int           `toml:"log_capacity"`
	// RecoveryGrace is added to Deadline before a held escrow counts as
	// stale at startup.
	RecoveryGrace  time.Duration  `toml:"recovery_grace"`
	SettleAttempts int            `toml:"settle_attempts"`
	Variants       VariantsConfig `toml:"variants"`
}

type RewardsConfig struct {
	EggChance       float64 `toml:"egg_chance"`
	EggCapAdventure int     `toml:"egg_cap_adventure"`
	EggCapTower     int     `toml:"egg_cap_tower"`
	HordeMaxWaves   int     `toml:"horde_max_waves"`
	HordeWaveXP     int64   `toml:"horde_wave_xp"`
}

type SlotsConfig struct {
	Stake          int64          `toml:"stake"`
	JackpotCut     int64          `toml:"jackpot_cut"`
	Seats          int            `toml:"seats"`
	Inactivity     time.Duration  `toml:"inactivity"`
	SweepInterval  time.Duration  `toml:"sweep_interval"`
	CaptchaChance  float64        `toml:"captcha_chance"`
	CaptchaTimeout time.Duration  `toml:"captcha_timeout"`
	DragonHP       float64        `toml:"dragon_hp"`
	DragonDamage   float64        `toml:"dragon_damage"`
	DragonArmor    float64        `toml:"dragon_armor"`
	DragonRounds   int            `toml:"dragon_rounds"`
	Symbols        []slots.Symbol `toml:"symbols"`
}

type PetsConfig struct {
	HungerInterval  time.Duration `toml:"hunger_interval"`
	HungerDecay     int           `toml:"hunger_decay"`
	HappinessDecay  int           `toml:"happiness_decay"`
	HatchInterval   time.Duration `toml:"hatch_interval"`
	HatchAfter      time.Duration `toml:"hatch_after"`
	GrowthInterval  time.Duration `toml:"growth_interval"`
	GrowthStageTime time.Duration `toml:"growth_stage_time"`
}

type JackpotConfig struct {
	TrickleInterval time.Duration `toml:"trickle_interval"`
	TrickleAmount   int64         `toml:"trickle_amount"`
}

type AuthConfig struct {
	GMIDs      []string      `toml:"gm_ids"`
	SessionTTL time.Duration `toml:"session_ttl"`
}

type LoggingConfig struct {
	Level string `toml:"level"`
}

type TelemetryConfig struct {
	Enabled bool `toml:"enabled"`
}

type GamedataConfig struct {
	// Dir overrides the embedded content tables when set.
	Dir string `toml:"dir"`
}

// Default returns the built-in configuration.
func Default() *LoadedConfig {
	pvp := RulesConfig{
		TripChecks:         true,
		FireballChance:     0.30,
		PlayerVariance:     100,
		OtherVariance:      50,
		MonsterLuck:        80,
		PlayerTargetWeight: 0.60,
		ShuffleTurnOrder:   true,
	}
	tower := pvp
	tower.TripChecks = false
	tower.FireballChance = 0.40
	tower.ShuffleTurnOrder = false
	adventure := pvp
	adventure.TripChecks = false
	adventure.ShuffleTurnOrder = false

	sc := slots.DefaultConfig()
	return &LoadedConfig{
		Server:   ServerConfig{Address: ":8080", PublicURL: "http://localhost:8080"},
		Database: DatabaseConfig{Driver: storage.DriverSQLite, DSN: "idlerpg.db", MaxOpenConns: 20, MaxIdleConns: 5, ConnMaxLifetime: 30 * time.Minute},
		Battle: BattleConfig{
			Pace:           3 * time.Second,
			Deadline:       5 * time.Minute,
			JoinTimeout:    constants.DefaultJoinTimeout,
			LogCapacity:    5,
			RecoveryGrace:  5 * time.Minute,
			SettleAttempts: 3,
			Variants: VariantsConfig{
				Battle:     pvp,
				RaidBattle: pvp,
				Raid2v2:    pvp,
				Horde:      pvp,
				Tower:      tower,
				Adventure:  adventure,
			},
		},
		Rewards: RewardsConfig{
			EggChance:       0.05,
			EggCapAdventure: 5,
			EggCapTower:     10,
			HordeMaxWaves:   10,
			HordeWaveXP:     500,
		},
		Slots: SlotsConfig{
			Stake:          sc.Stake,
			JackpotCut:     sc.JackpotCut,
			Seats:          sc.Seats,
			Inactivity:     sc.Inactivity,
			SweepInterval:  60 * time.Second,
			CaptchaChance:  sc.CaptchaChance,
			CaptchaTimeout: sc.CaptchaTimeout,
			DragonHP:       sc.DragonHP,
			DragonDamage:   sc.DragonDamage,
			DragonArmor:    sc.DragonArmor,
			DragonRounds:   sc.DragonRounds,
		},
		Pets: PetsConfig{
			HungerInterval:  time.Hour,
			HungerDecay:     5,
			HappinessDecay:  3,
			HatchInterval:   time.Minute,
			HatchAfter:      24 * time.Hour,
			GrowthInterval:  5 * time.Minute,
			GrowthStageTime: 48 * time.Hour,
		},
		Jackpot:  JackpotConfig{TrickleInterval: 10 * time.Minute, TrickleAmount: 100},
		Auth:     AuthConfig{SessionTTL: 24 * time.Hour},
		Logging:  LoggingConfig{Level: "info"},
		Gamedata: GamedataConfig{},
	}
}

// LoadConfig reads the TOML file at path over the defaults. A missing file
// is not an error; the defaults are returned. The DATABASE_DSN environment
// variable overrides database.dsn.
func LoadConfig(path string) (*LoadedConfig, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	case os.IsNotExist(err):
	default:
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if dsn := strings.TrimSpace(os.Getenv(constants.EnvDatabaseDSN)); dsn != "" {
		cfg.Database.DSN = dsn
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}
	return cfg, nil
}

func (c *LoadedConfig) validate() error {
	switch c.Database.Driver {
	case storage.DriverPostgres, storage.DriverSQLite:
	default:
		return fmt.Errorf("database.driver must be %q or %q, got %q", storage.DriverPostgres, storage.DriverSQLite, c.Database.Driver)
	}
	if c.Battle.Deadline <= 0 {
		return fmt.Errorf("battle.deadline must be positive")
	}
	if c.Battle.Pace < 0 {
		return fmt.Errorf("battle.pace must not be negative")
	}
	if c.Slots.Seats <= 0 {
		return fmt.Errorf("slots.seats must be positive")
	}
	if c.Slots.JackpotCut > c.Slots.Stake {
		return fmt.Errorf("slots.jackpot_cut (%d) exceeds slots.stake (%d)", c.Slots.JackpotCut, c.Slots.Stake)
	}
	if c.Slots.CaptchaChance < 0 || c.Slots.CaptchaChance > 1 {
		return fmt.Errorf("slots.captcha_chance must be within [0, 1]")
	}
	if c.Rewards.EggChance < 0 || c.Rewards.EggChance > 1 {
		return fmt.Errorf("rewards.egg_chance must be within [0, 1]")
	}
	dragons := 0
	for _, s := range c.Slots.Symbols {
		if s.Glyph == "" {
			return fmt.Errorf("slots.symbols: symbol missing glyph")
		}
		if s.Dragon {
			dragons++
		}
	}
	if len(c.Slots.Symbols) > 0 && dragons == 0 {
		return fmt.Errorf("slots.symbols: at least one dragon symbol is required")
	}
	return nil
}

// Rules builds the encounter rules for a battle kind.
func (c *LoadedConfig) Rules(kind string) engine.Rules {
	v := c.Battle.Variants
	var rc RulesConfig
	switch kind {
	case constants.KindRaidBattle:
		rc = v.RaidBattle
	case constants.KindRaid2v2:
		rc = v.Raid2v2
	case constants.KindHorde:
		rc = v.Horde
	case constants.KindTower:
		rc = v.Tower
	case constants.KindAdventure:
		rc = v.Adventure
	default:
		rc = v.Battle
	}
	r := engine.DefaultRules()
	r.TripChecks = rc.TripChecks
	r.FireballChance = rc.FireballChance
	r.PlayerVariance = rc.PlayerVariance
	r.OtherVariance = rc.OtherVariance
	r.FireballVariance = rc.PlayerVariance
	r.MonsterLuck = rc.MonsterLuck
	r.PlayerTargetWeight = rc.PlayerTargetWeight
	r.ShuffleTurnOrder = rc.ShuffleTurnOrder
	r.Deadline = c.Battle.Deadline
	r.LogCapacity = c.Battle.LogCapacity
	return r
}

// SlotMachine converts the slots section for the slot machine.
func (c *LoadedConfig) SlotMachine() slots.Config {
	s := c.Slots
	return slots.Config{
		Stake:          s.Stake,
		JackpotCut:     s.JackpotCut,
		Seats:          s.Seats,
		Inactivity:     s.Inactivity,
		CaptchaChance:  s.CaptchaChance,
		CaptchaTimeout: s.CaptchaTimeout,
		DragonHP:       s.DragonHP,
		DragonDamage:   s.DragonDamage,
		DragonArmor:    s.DragonArmor,
		DragonRounds:   s.DragonRounds,
		Symbols:        s.Symbols,
	}
}

// Pool converts the database section for storage.
func (c *LoadedConfig) Pool() storage.PoolConfig {
	return storage.PoolConfig{
		MaxOpenConns:    c.Database.MaxOpenConns,
		MaxIdleConns:    c.Database.MaxIdleConns,
		ConnMaxLifetime: c.Database.ConnMaxLifetime,
	}
}

// IsGM reports whether userID is on the game master allow-list.
func (c *LoadedConfig) IsGM(userID string) bool {
	for _, id := range c.Auth.GMIDs {
		if id == userID {
			return true
		}
	}
	return false
}
