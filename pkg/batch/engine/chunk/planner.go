// Package chunk plans and executes the chunked portion of an instance run.
// The planner deterministically splits a dataset into contiguous chunks; the
// executor drives per-record processing with retry and skip handling.
package chunk

import (
	"fmt"

	model "github.com/tigerroll/swell/pkg/batch/core/domain/model"
	"github.com/tigerroll/swell/pkg/batch/support/util/exception"
)

const plannerModule = "chunk_planner"

// Planner splits an instance's dataset into chunks. Planning is a pure
// function of (totalRecords, chunkSize): the same inputs always yield the
// same chunk boundaries, so a re-planned instance produces identical chunks.
type Planner struct{}

// NewPlanner creates a new Planner.
func NewPlanner() *Planner {
	return &Planner{}
}

// Plan produces the chunks covering [0, totalRecords) in ChunkIndex order.
// Every chunk except possibly the last covers exactly chunkSize records; the
// last covers the remainder. A dataset of 250 records with chunk size 100
// yields chunks of 100, 100 and 50 records. An empty dataset yields no
// chunks.
func (p *Planner) Plan(instanceID string, totalRecords, chunkSize int) ([]*model.Chunk, error) {
	if chunkSize <= 0 {
		return nil, exception.NewBatchError(plannerModule, fmt.Sprintf("chunk size must be positive, got %d", chunkSize), exception.ErrInvalidConfiguration, false, false)
	}
	if totalRecords < 0 {
		return nil, exception.NewBatchError(plannerModule, fmt.Sprintf("total records must not be negative, got %d", totalRecords), exception.ErrInvalidConfiguration, false, false)
	}
	if totalRecords == 0 {
		return []*model.Chunk{}, nil
	}

	count := (totalRecords + chunkSize - 1) / chunkSize
	chunks := make([]*model.Chunk, 0, count)
	for index := 0; index < count; index++ {
		start := index * chunkSize
		end := start + chunkSize
		if end > totalRecords {
			end = totalRecords
		}
		chunks = append(chunks, model.NewChunk(instanceID, index, start, end))
	}
	return chunks, nil
}

// BuildRecords materializes pending Record rows for the planned chunks from
// the instance's input payloads. inputs[i] becomes the record at dataset
// index i; len(inputs) must equal the planned total.
func (p *Planner) BuildRecords(instanceID string, chunks []*model.Chunk, inputs []model.Payload) ([]*model.Record, error) {
	total := 0
	for _, c := range chunks {
		total += c.TotalRecords
	}
	if len(inputs) != total {
		return nil, exception.NewBatchError(plannerModule, fmt.Sprintf("input count %d does not match planned record count %d", len(inputs), total), exception.ErrInvalidConfiguration, false, false)
	}

	records := make([]*model.Record, 0, total)
	for _, c := range chunks {
		for idx := c.StartOffset; idx < c.EndOffset; idx++ {
			records = append(records, model.NewRecord(instanceID, c.ID, idx, inputs[idx]))
		}
	}
	return records, nil
}
