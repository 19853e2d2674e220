package vectorstore

import (
	"context"

	"github.com/poiesic/vectorflow/core"
)

// Backend performs the network operations of a vector index service.
// Implementations must be safe for concurrent use.
type Backend interface {
	// DescribeIndex returns the named index.
	// Returns core.ErrIndexNotFound if no such index exists.
	DescribeIndex(ctx context.Context, name string) (*core.Index, error)

	// CreateIndex creates an index with the given name and dimensions.
	CreateIndex(ctx context.Context, index core.Index) error

	// Upsert writes records into the namespace of an index in a single call.
	// Records with nil Metadata must be written without a metadata field.
	Upsert(ctx context.Context, index, namespace string, records []core.VectorRecord) error
}
