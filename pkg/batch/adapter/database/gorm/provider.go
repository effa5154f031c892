// Package gorm opens GORM connections for the configured database type.
// Dialectors are registered per type so applications only link the drivers
// they actually use.
package gorm

import (
	"fmt"
	"sync"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	dbconfig "github.com/tigerroll/swell/pkg/batch/adapter/database/config"
	"github.com/tigerroll/swell/pkg/batch/support/util/logger"
)

// DialectorFactory generates a gorm.Dialector from a dbconfig.DatabaseConfig.
type DialectorFactory func(cfg dbconfig.DatabaseConfig) (gorm.Dialector, error)

var (
	dialectorRegistry = make(map[string]DialectorFactory)
	dialectorMutex    sync.RWMutex
)

// RegisterDialector registers a DialectorFactory for the given database type.
func RegisterDialector(dbType string, factory DialectorFactory) {
	dialectorMutex.Lock()
	defer dialectorMutex.Unlock()
	if _, exists := dialectorRegistry[dbType]; exists {
		logger.Warnf("Dialector for type '%s' already registered. Overwriting.", dbType)
	}
	dialectorRegistry[dbType] = factory
}

func init() {
	RegisterDialector("sqlite", func(cfg dbconfig.DatabaseConfig) (gorm.Dialector, error) {
		path := cfg.Database
		if path == "" {
			path = "file::memory:?cache=shared"
		}
		return sqlite.Open(path), nil
	})
	RegisterDialector("postgres", func(cfg dbconfig.DatabaseConfig) (gorm.Dialector, error) {
		sslmode := cfg.Sslmode
		if sslmode == "" {
			sslmode = "disable"
		}
		dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, sslmode)
		return postgres.Open(dsn), nil
	})
	RegisterDialector("mysql", func(cfg dbconfig.DatabaseConfig) (gorm.Dialector, error) {
		dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
			cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Database)
		return mysql.Open(dsn), nil
	})
}

// Open establishes a GORM connection for the configured database type and
// applies the pool settings.
func Open(cfg dbconfig.DatabaseConfig) (*gorm.DB, error) {
	dialectorMutex.RLock()
	factory, ok := dialectorRegistry[cfg.Type]
	dialectorMutex.RUnlock()
	if !ok {
		return nil, fmt.Errorf("no dialector registered for database type: %s", cfg.Type)
	}

	dialector, err := factory(cfg)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to open %s connection: %w", cfg.Type, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access underlying sql.DB: %w", err)
	}
	if cfg.Pool.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.Pool.MaxOpenConns)
	}
	if cfg.Pool.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.Pool.MaxIdleConns)
	}
	if cfg.Pool.ConnMaxLifetimeMinutes > 0 {
		sqlDB.SetConnMaxLifetime(time.Duration(cfg.Pool.ConnMaxLifetimeMinutes) * time.Minute)
	}

	logger.Infof("Established %s database connection.", cfg.Type)
	return db, nil
}
