package codec

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hamba/avro/v2/registry"
)

// LookupSerializer fetches the latest schema registered under subject and
// returns a serializer for it. The schema is fetched once; the serializer
// never calls the registry again except to resolve unknown writer ids.
func LookupSerializer(ctx context.Context, registryURL, subject string) (*AvroSerializer, error) {
	client, err := registry.NewClient(registryURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create schema registry client: %w", err)
	}

	info, err := client.GetLatestSchemaInfo(ctx, subject)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch latest schema for %s: %w", subject, err)
	}

	slog.Default().With("component", "codec").Debug("resolved schema",
		"subject", subject, "id", info.ID, "version", info.Version)
	return NewAvroSerializer(info.Schema, info.ID, client), nil
}

// RegisterSchema registers EmbeddingRecordSchema under subject and returns its id.
// Registering an identical schema again returns the existing id.
func RegisterSchema(ctx context.Context, registryURL, subject string) (int, error) {
	client, err := registry.NewClient(registryURL)
	if err != nil {
		return 0, fmt.Errorf("failed to create schema registry client: %w", err)
	}

	id, _, err := client.CreateSchema(ctx, subject, EmbeddingRecordSchema)
	if err != nil {
		return 0, fmt.Errorf("failed to register schema for %s: %w", subject, err)
	}
	return id, nil
}
