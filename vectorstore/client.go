package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/poiesic/vectorflow/core"
)

// ErrBackendRequired is returned when a Client is created without a backend.
var ErrBackendRequired = errors.New("vector store backend required")

// Client writes vectors to indexes through a Backend.
// The client holds no state besides its backend and is safe for concurrent use.
// Concurrent upserts of the same id are last-write-wins at the backend.
type Client struct {
	backend Backend
	logger  *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger == nil {
			logger = slog.Default()
		}
		c.logger = logger
	}
}

// NewClient creates a new vector store client.
func NewClient(backend Backend, opts ...Option) (*Client, error) {
	if backend == nil {
		return nil, ErrBackendRequired
	}
	c := &Client{
		backend: backend,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "vectorstore")
	return c, nil
}

// EnsureIndex creates the named index if it does not exist.
// If the index exists its dimensionality must equal dimensions, otherwise
// core.ErrConfiguration is returned. The check and the create are separate
// calls, so two concurrent callers may both attempt the create.
func (c *Client) EnsureIndex(ctx context.Context, name string, dimensions int) error {
	if err := core.ValidateDimensions(dimensions); err != nil {
		return err
	}

	existing, err := c.backend.DescribeIndex(ctx, name)
	if err != nil {
		if !errors.Is(err, core.ErrIndexNotFound) {
			return err
		}
		c.logger.Info("creating index", "index", name, "dimensions", dimensions)
		return c.backend.CreateIndex(ctx, core.Index{Name: name, Dimensions: dimensions})
	}

	if existing.Dimensions != dimensions {
		return fmt.Errorf("%w: index %s already exists with %d dimensions, expected %d",
			core.ErrConfiguration, name, existing.Dimensions, dimensions)
	}

	c.logger.Debug("index already exists", "index", name, "dimensions", dimensions)
	return nil
}

// Upsert writes a single record to the namespace of an index.
// A record without metadata is written without a metadata field.
func (c *Client) Upsert(ctx context.Context, index, namespace string, record core.VectorRecord) error {
	if err := core.ValidateVectorRecord(record); err != nil {
		return err
	}
	return c.backend.Upsert(ctx, index, namespace, []core.VectorRecord{record})
}

// BulkUpsert writes a batch of records to the namespace of an index in one call.
//
// All vectors must have the same length and there must be one id per vector;
// a violation rejects the whole batch before anything is written. metadata is
// matched to ids by position. When metadata is nil every record is written
// without a metadata field. The length of metadata is not checked: records
// past the end of metadata are written without one and extra entries are ignored.
func (c *Client) BulkUpsert(ctx context.Context, index, namespace string, ids []string, vectors [][]float32, metadata []core.Metadata) error {
	if err := core.ValidateBatch(ids, vectors); err != nil {
		return err
	}
	if len(vectors) == 0 {
		return nil
	}

	records := make([]core.VectorRecord, len(ids))
	for i := range ids {
		records[i] = core.VectorRecord{
			ID:     ids[i],
			Values: vectors[i],
		}
		if i < len(metadata) {
			records[i].Metadata = metadata[i]
		}
	}

	c.logger.Debug("upserting batch", "index", index, "namespace", namespace, "records", len(records))
	return c.backend.Upsert(ctx, index, namespace, records)
}
