package main

import (
	"context"
	"os"

	"github.com/ericogr/idlerpg-arena/internal/config"
	"github.com/ericogr/idlerpg-arena/internal/constants"
	"github.com/ericogr/idlerpg-arena/internal/gamedata"
	"github.com/ericogr/idlerpg-arena/internal/logging"
	"github.com/ericogr/idlerpg-arena/internal/settlement"
	"github.com/ericogr/idlerpg-arena/internal/storage"
)

func loadConfigOrExit() *config.LoadedConfig {
	path := os.Getenv(constants.EnvConfigPath)
	if path == "" {
		path = constants.DefaultConfigPath
	}
	cfg, err := config.LoadConfig(path)
	if err != nil {
		logging.Fatal("Missing or invalid configuration", err, logging.Fields{"config_path": path})
	}
	return cfg
}

func createRepositoryOrExit(cfg *config.LoadedConfig) storage.Repository {
	db, err := storage.OpenAndMigrate(cfg.Database.Driver, cfg.Database.DSN, cfg.Pool())
	if err != nil {
		logging.Fatal("Failed to initialize database", err, logging.Fields{"driver": cfg.Database.Driver})
	}
	return storage.NewGormRepository(db)
}

func loadTablesOrExit(cfg *config.LoadedConfig) *gamedata.Tables {
	var (
		tables *gamedata.Tables
		err    error
	)
	if cfg.Gamedata.Dir != "" {
		tables, err = gamedata.LoadDir(cfg.Gamedata.Dir)
	} else {
		tables, err = gamedata.Load()
	}
	if err != nil {
		logging.Fatal("Failed to load game data", err, logging.Fields{"dir": cfg.Gamedata.Dir})
	}
	return tables
}

// recoverEscrows refunds escrows left held by a previous process.
func recoverEscrows(ctx context.Context, settler *settlement.Settler, cfg *config.LoadedConfig) {
	n, err := settler.RecoverStale(ctx, cfg.Battle.Deadline+cfg.Battle.RecoveryGrace)
	if err != nil {
		logging.Error("escrow recovery failed", err, nil)
		return
	}
	if n > 0 {
		logging.Warn("refunded stale escrows", logging.Fields{constants.LogFieldCount: n})
	}
}
