package repository

import (
	"context"

	"github.com/tigerroll/swell/pkg/batch/core/domain/model"
)

// RecordRepository persists per-record work items.
type RecordRepository interface {
	// SaveRecords inserts a batch of records belonging to one chunk.
	SaveRecords(ctx context.Context, records []*model.Record) error
	// UpdateRecord updates an existing record, guarded by its Version.
	// Retries reuse the same row; there is never more than one row per
	// record index.
	UpdateRecord(ctx context.Context, r *model.Record) error
	// FindRecordByID loads a record by its identifier.
	FindRecordByID(ctx context.Context, id string) (*model.Record, error)
	// FindRecordsByChunkID lists a chunk's records ordered by RecordIndex.
	FindRecordsByChunkID(ctx context.Context, chunkID string) ([]*model.Record, error)
	// FindRecordsByInstanceAndStatus lists an instance's records in the given
	// status, ordered by RecordIndex.
	FindRecordsByInstanceAndStatus(ctx context.Context, instanceID string, status model.RecordStatus) ([]*model.Record, error)
}
