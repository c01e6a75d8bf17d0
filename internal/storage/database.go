package storage

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ericogr/idlerpg-arena/internal/game"
	"github.com/ericogr/idlerpg-arena/internal/logging"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// PoolConfig bounds the connection pool.
type PoolConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// newGormLogger reports slow queries and errors. Lookups that miss are
// expected and stay quiet.
func newGormLogger(w logger.Writer) logger.Interface {
	return logger.New(w, logger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  logger.Warn,
		IgnoreRecordNotFoundError: true,
	})
}

// OpenAndMigrate opens the database for driver and dsn and keeps the schema
// updated via AutoMigrate.
func OpenAndMigrate(driver, dsn string, pool PoolConfig) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case DriverPostgres:
		dialector = postgres.Open(dsn)
	case DriverSQLite, "":
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{Logger: newGormLogger(log.New(os.Stderr, "\r\n", log.LstdFlags))})
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", driver, err)
	}
	if sqlDB, err := db.DB(); err == nil {
		if pool.MaxOpenConns > 0 {
			sqlDB.SetMaxOpenConns(pool.MaxOpenConns)
		}
		if pool.MaxIdleConns > 0 {
			sqlDB.SetMaxIdleConns(pool.MaxIdleConns)
		}
		if pool.ConnMaxLifetime > 0 {
			sqlDB.SetConnMaxLifetime(pool.ConnMaxLifetime)
		}
	}

	if err := db.AutoMigrate(
		&game.Profile{},
		&game.Item{},
		&game.Pet{},
		&game.Egg{},
		&game.LedgerEntry{},
		&game.Escrow{},
		&game.SlotSeat{},
	); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	logging.Info("database ready", logging.Fields{"driver": driver})
	return db, nil
}
