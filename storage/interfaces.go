package storage

import (
	"context"

	"github.com/poiesic/vectorflow/core"
)

// CheckpointRepository persists backfill progress so an interrupted run can resume.
type CheckpointRepository interface {
	// SaveCheckpoint persists a checkpoint, setting UpdatedAt.
	SaveCheckpoint(ctx context.Context, checkpoint *core.Checkpoint) error

	// LoadCheckpoint retrieves the named checkpoint.
	// Returns nil, nil if no checkpoint exists.
	LoadCheckpoint(ctx context.Context, name string) (*core.Checkpoint, error)

	// DeleteCheckpoint removes the named checkpoint. Missing checkpoints are not an error.
	DeleteCheckpoint(ctx context.Context, name string) error
}

// VectorReader reads back vectors written to a local index.
type VectorReader interface {
	// GetVector retrieves a single vector.
	// Returns ErrNotFound if the vector doesn't exist.
	GetVector(ctx context.Context, index, namespace, id string) (*core.VectorRecord, error)

	// CountVectors returns the number of vectors stored in a namespace of an index.
	CountVectors(ctx context.Context, index, namespace string) (int, error)

	// ListIndexes returns every index descriptor, ordered by name.
	ListIndexes(ctx context.Context) ([]core.Index, error)
}
