// Package repository wires the configured Repository implementation: the
// GORM-backed SQL repository when a database connection is configured, the
// in-memory repository otherwise.
package repository

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
	"go.uber.org/fx"

	dbconfig "github.com/tigerroll/swell/pkg/batch/adapter/database/config"
	gormadapter "github.com/tigerroll/swell/pkg/batch/adapter/database/gorm"
	config "github.com/tigerroll/swell/pkg/batch/core/config"
	repo "github.com/tigerroll/swell/pkg/batch/core/domain/repository"
	"github.com/tigerroll/swell/pkg/batch/infrastructure/repository/inmemory"
	"github.com/tigerroll/swell/pkg/batch/infrastructure/repository/sql"
	"github.com/tigerroll/swell/pkg/batch/support/util/exception"
	"github.com/tigerroll/swell/pkg/batch/support/util/logger"
)

const moduleName = "repository_provider"

// NewRepository selects and initializes the Repository implementation from
// configuration. A non-empty repository_db_ref selects the SQL repository
// bound to the named database connection and migrates its schema.
func NewRepository(cfg *config.Config) (repo.Repository, error) {
	ref := cfg.Swell.Infrastructure.RepositoryDBRef
	if ref == "" {
		logger.Infof("No repository database configured; using in-memory repository.")
		return inmemory.NewInMemoryRepository(), nil
	}

	raw, ok := cfg.Swell.AdaptorConfigs[ref]
	if !ok {
		return nil, exception.NewBatchError(moduleName, fmt.Sprintf("database configuration '%s' not found", ref), exception.ErrInvalidConfiguration, false, false)
	}
	var dbCfg dbconfig.DatabaseConfig
	if err := mapstructure.Decode(raw, &dbCfg); err != nil {
		return nil, exception.NewBatchError(moduleName, fmt.Sprintf("failed to decode database config '%s'", ref), err, false, false)
	}

	db, err := gormadapter.Open(dbCfg)
	if err != nil {
		return nil, exception.NewBatchError(moduleName, fmt.Sprintf("failed to open database '%s'", ref), err, false, false)
	}

	sqlRepo := sql.NewSQLRepository(db)
	if err := sqlRepo.Migrate(); err != nil {
		return nil, err
	}
	logger.Infof("Using SQL repository on connection '%s' (%s).", ref, dbCfg.Type)
	return sqlRepo, nil
}

// Module is an Fx module that provides the Repository and its per-entity
// views, and closes the repository on shutdown.
var Module = fx.Options(
	fx.Provide(NewRepository),
	fx.Provide(func(r repo.Repository) repo.JobDefinitionRepository { return r }),
	fx.Provide(func(r repo.Repository) repo.ScheduleRepository { return r }),
	fx.Provide(func(r repo.Repository) repo.InstanceRepository { return r }),
	fx.Provide(func(r repo.Repository) repo.ChunkRepository { return r }),
	fx.Provide(func(r repo.Repository) repo.RecordRepository { return r }),
	fx.Invoke(func(lc fx.Lifecycle, r repo.Repository) {
		lc.Append(fx.StopHook(func() error {
			return r.Close()
		}))
	}),
)
