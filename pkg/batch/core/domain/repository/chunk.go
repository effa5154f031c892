package repository

import (
	"context"

	"github.com/tigerroll/swell/pkg/batch/core/domain/model"
)

// ChunkRepository persists chunks.
type ChunkRepository interface {
	// SaveChunk inserts a new chunk.
	SaveChunk(ctx context.Context, c *model.Chunk) error
	// SaveChunks inserts a batch of chunks produced by the planner.
	SaveChunks(ctx context.Context, chunks []*model.Chunk) error
	// UpdateChunk updates an existing chunk, guarded by its Version.
	UpdateChunk(ctx context.Context, c *model.Chunk) error
	// FindChunkByID loads a chunk by its identifier.
	FindChunkByID(ctx context.Context, id string) (*model.Chunk, error)
	// FindChunksByInstanceID lists an instance's chunks ordered by
	// ChunkIndex.
	FindChunksByInstanceID(ctx context.Context, instanceID string) ([]*model.Chunk, error)
}
