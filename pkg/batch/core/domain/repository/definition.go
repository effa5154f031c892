package repository

import (
	"context"

	"github.com/tigerroll/swell/pkg/batch/core/domain/model"
)

// JobDefinitionRepository persists job definitions.
type JobDefinitionRepository interface {
	// SaveJobDefinition inserts a new job definition.
	SaveJobDefinition(ctx context.Context, def *model.JobDefinition) error
	// UpdateJobDefinition updates an existing definition, guarded by its
	// Version. Returns ErrConflict when a concurrent writer got there first.
	UpdateJobDefinition(ctx context.Context, def *model.JobDefinition) error
	// FindJobDefinitionByID loads a definition by its identifier.
	FindJobDefinitionByID(ctx context.Context, id string) (*model.JobDefinition, error)
	// FindJobDefinitionByCode loads a definition by its unique code.
	FindJobDefinitionByCode(ctx context.Context, code string) (*model.JobDefinition, error)
	// FindActiveJobDefinitions lists all active definitions.
	FindActiveJobDefinitions(ctx context.Context) ([]*model.JobDefinition, error)
}
