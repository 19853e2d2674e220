package pinecone

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/pinecone-io/go-pinecone/pinecone"
	"github.com/poiesic/vectorflow/core"
	"github.com/poiesic/vectorflow/vectorstore"
	"google.golang.org/protobuf/types/known/structpb"
)

// Backend implements vectorstore.Backend on top of the Pinecone Go SDK.
type Backend struct {
	client *pinecone.Client
	config *Config
	hosts  sync.Map // index name -> data plane host
	logger *slog.Logger
}

var _ vectorstore.Backend = (*Backend)(nil)

// NewBackend creates a Pinecone backend from the provided configuration.
// The backend owns its SDK client; nothing is shared between backends.
func NewBackend(config *Config) (*Backend, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	client, err := pinecone.NewClient(pinecone.NewClientParams{
		ApiKey: config.APIKey,
		Host:   config.Host,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create pinecone client: %w", err)
	}

	return &Backend{
		client: client,
		config: config,
		logger: slog.Default().With("component", "pinecone-backend"),
	}, nil
}

// DescribeIndex looks the index up with a single ListIndexes call.
// Returns core.ErrIndexNotFound if the project has no index with that name.
func (b *Backend) DescribeIndex(ctx context.Context, name string) (*core.Index, error) {
	indexes, err := b.client.ListIndexes(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list indexes: %w", err)
	}

	for _, idx := range indexes {
		if idx == nil || idx.Name != name {
			continue
		}
		if idx.Host != "" {
			b.hosts.Store(name, idx.Host)
		}
		return &core.Index{Name: idx.Name, Dimensions: int(idx.Dimension)}, nil
	}

	return nil, fmt.Errorf("%w: %s", core.ErrIndexNotFound, name)
}

// CreateIndex creates a serverless index.
func (b *Backend) CreateIndex(ctx context.Context, index core.Index) error {
	b.logger.Info("creating serverless index", "index", index.Name, "dimensions", index.Dimensions,
		"cloud", b.config.Cloud, "region", b.config.Region)

	created, err := b.client.CreateServerlessIndex(ctx, &pinecone.CreateServerlessIndexRequest{
		Name:      index.Name,
		Dimension: int32(index.Dimensions),
		Metric:    pinecone.IndexMetric(b.config.Metric),
		Cloud:     pinecone.Cloud(b.config.Cloud),
		Region:    b.config.Region,
	})
	if err != nil {
		return fmt.Errorf("failed to create index %s: %w", index.Name, err)
	}

	if created != nil && created.Host != "" {
		b.hosts.Store(index.Name, created.Host)
	}
	return nil
}

// Upsert writes records to a namespace with a single UpsertVectors call.
func (b *Backend) Upsert(ctx context.Context, index, namespace string, records []core.VectorRecord) error {
	vectors, err := toVectors(records)
	if err != nil {
		return err
	}

	host, err := b.host(ctx, index)
	if err != nil {
		return err
	}

	conn, err := b.client.Index(pinecone.NewIndexConnParams{
		Host:      host,
		Namespace: namespace,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to index %s: %w", index, err)
	}
	defer conn.Close()

	count, err := conn.UpsertVectors(ctx, vectors)
	if err != nil {
		return fmt.Errorf("failed to upsert into %s/%s: %w", index, namespace, err)
	}

	b.logger.Debug("upserted vectors", "index", index, "namespace", namespace, "count", count)
	return nil
}

// host returns the data plane host of an index, describing it if it has not been seen yet.
// Returns core.ErrIndexNotFound if the index does not exist.
func (b *Backend) host(ctx context.Context, index string) (string, error) {
	if host, ok := b.hosts.Load(index); ok {
		return host.(string), nil
	}

	if _, err := b.DescribeIndex(ctx, index); err != nil {
		return "", err
	}
	host, ok := b.hosts.Load(index)
	if !ok {
		return "", fmt.Errorf("index %s has no host yet", index)
	}
	return host.(string), nil
}

// toVectors converts records to SDK vectors.
// Records without metadata produce vectors with a nil Metadata field.
func toVectors(records []core.VectorRecord) ([]*pinecone.Vector, error) {
	vectors := make([]*pinecone.Vector, len(records))
	for i, record := range records {
		v := &pinecone.Vector{
			Id:     record.ID,
			Values: record.Values,
		}
		if record.Metadata != nil {
			md, err := structpb.NewStruct(record.Metadata)
			if err != nil {
				return nil, fmt.Errorf("failed to convert metadata for %s: %w", record.ID, err)
			}
			v.Metadata = md
		}
		vectors[i] = v
	}
	return vectors, nil
}
