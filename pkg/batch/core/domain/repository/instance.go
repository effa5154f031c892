package repository

import (
	"context"

	"github.com/tigerroll/swell/pkg/batch/core/domain/model"
)

// InstanceRepository persists run instances.
type InstanceRepository interface {
	// SaveInstance inserts a new instance.
	SaveInstance(ctx context.Context, inst *model.Instance) error
	// UpdateInstance updates an existing instance, guarded by its Version.
	UpdateInstance(ctx context.Context, inst *model.Instance) error
	// FindInstanceByID loads an instance by its identifier.
	FindInstanceByID(ctx context.Context, id string) (*model.Instance, error)
	// FindInstancesByJobDefinitionID lists instances of a definition, newest
	// first.
	FindInstancesByJobDefinitionID(ctx context.Context, jobDefinitionID string) ([]*model.Instance, error)
	// FindInstancesByStatus lists instances currently in the given status.
	FindInstancesByStatus(ctx context.Context, status model.InstanceStatus) ([]*model.Instance, error)
}
