package main

import (
	"fmt"
	"slices"
	"strings"

	"github.com/poiesic/vectorflow"
	"github.com/poiesic/vectorflow/ai"
	"github.com/poiesic/vectorflow/cdc"
	"github.com/poiesic/vectorflow/stream"
	"github.com/poiesic/vectorflow/vectorstore/pinecone"
	"github.com/urfave/cli/v2"
)

func storeFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "state",
			Aliases: []string{"d"},
			Usage:   "Path to the local BadgerDB directory (checkpoints, and vectors when Pinecone is not used)",
			Value:   ".vectorflow",
		},
		&cli.StringFlag{
			Name:    "pinecone-api-key",
			Usage:   "Pinecone API key; vectors are stored locally when empty",
			EnvVars: []string{"PINECONE_API_KEY"},
		},
		&cli.StringFlag{
			Name:  "pinecone-cloud",
			Usage: "Cloud of created serverless indexes",
			Value: "aws",
		},
		&cli.StringFlag{
			Name:  "pinecone-region",
			Usage: "Region of created serverless indexes",
			Value: "us-east-1",
		},
		&cli.StringFlag{
			Name:  "pinecone-host",
			Usage: "Control plane URL override, for proxies and local emulators",
		},
		&cli.StringFlag{
			Name:  "metric",
			Usage: "Similarity metric of created indexes (cosine, dotproduct, euclidean)",
			Value: "cosine",
		},
	}
}

func embeddingFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "embedding-host",
			Usage: "Embedding service host URL",
			Value: "http://localhost:11434/v1",
		},
		&cli.StringFlag{
			Name:  "embedding-model",
			Usage: "Embedding model name",
			Value: "embeddinggemma",
		},
		&cli.StringFlag{
			Name:    "embedding-api-key",
			Usage:   "Embedding service API key",
			EnvVars: []string{"OPENAI_API_KEY"},
		},
		&cli.Float64Flag{
			Name:  "requests-per-second",
			Usage: "Cap on embedding requests per second (0 is unlimited)",
		},
	}
}

func kafkaFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "brokers",
			Usage:   "Comma separated Kafka bootstrap brokers",
			EnvVars: []string{"KAFKA_BROKERS"},
			Value:   "localhost:9092",
		},
		&cli.StringFlag{
			Name:  "group-id",
			Usage: "Consumer group",
			Value: "vectorflow",
		},
		&cli.StringFlag{
			Name:    "schema-registry",
			Usage:   "Schema registry URL",
			EnvVars: []string{"SCHEMA_REGISTRY_URL"},
			Value:   "http://localhost:8081",
		},
	}
}

func mappingFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringSliceFlag{
			Name:     "columns",
			Usage:    "Columns joined into the embedded document, in order",
			Required: true,
		},
		&cli.StringFlag{
			Name:  "separator",
			Usage: "Separator placed between document columns",
			Value: " ",
		},
		&cli.StringSliceFlag{
			Name:  "metadata-columns",
			Usage: "Columns whose values are stored as metadata tags",
		},
	}
}

func postgresFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "db-host",
			Usage: "Postgres host as seen from Kafka Connect",
			Value: "localhost",
		},
		&cli.IntFlag{
			Name:  "db-port",
			Usage: "Postgres port",
			Value: 5432,
		},
		&cli.StringFlag{
			Name:  "db-user",
			Usage: "Postgres user",
			Value: "postgres",
		},
		&cli.StringFlag{
			Name:    "db-password",
			Usage:   "Postgres password",
			EnvVars: []string{"PGPASSWORD"},
		},
		&cli.StringFlag{
			Name:  "db-name",
			Usage: "Postgres database",
			Value: "postgres",
		},
	}
}

func aiConfigFromFlags(c *cli.Context) (*ai.Config, error) {
	cfg := ai.NewConfig(
		ai.WithEmbeddingHost(c.String("embedding-host")),
		ai.WithEmbeddingModel(c.String("embedding-model")),
		ai.WithAPIKey(c.String("embedding-api-key")),
		ai.WithRequestsPerSecond(c.Float64("requests-per-second")),
	)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid AI configuration: %w", err)
	}
	return cfg, nil
}

// pineconeConfigFromFlags returns nil when no API key is set.
func pineconeConfigFromFlags(c *cli.Context) *pinecone.Config {
	if c.String("pinecone-api-key") == "" {
		return nil
	}
	return pinecone.NewConfig(
		pinecone.WithAPIKey(c.String("pinecone-api-key")),
		pinecone.WithCloud(c.String("pinecone-cloud")),
		pinecone.WithRegion(c.String("pinecone-region")),
		pinecone.WithMetric(c.String("metric")),
		pinecone.WithHost(c.String("pinecone-host")),
	)
}

func streamConfigFromFlags(c *cli.Context) (*stream.Config, error) {
	cfg := stream.NewConfig(
		stream.WithBrokers(c.String("brokers")),
		stream.WithGroupID(c.String("group-id")),
	)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid kafka configuration: %w", err)
	}
	return cfg, nil
}

// openEngine opens the engine described by the store flags. Embedding flags
// are used when the command defines them.
func openEngine(c *cli.Context) (*vectorflow.Engine, error) {
	opts := []vectorflow.Option{vectorflow.WithStatePath(c.String("state"))}
	if cfg := pineconeConfigFromFlags(c); cfg != nil {
		opts = append(opts, vectorflow.WithPinecone(cfg))
	}
	if hasFlag(c, "embedding-model") {
		aiConfig, err := aiConfigFromFlags(c)
		if err != nil {
			return nil, err
		}
		opts = append(opts, vectorflow.WithAIConfig(aiConfig))
	}

	engine, err := vectorflow.NewEngine(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to open engine: %w", err)
	}
	return engine, nil
}

func hasFlag(c *cli.Context, name string) bool {
	for _, flag := range c.Command.Flags {
		if slices.Contains(flag.Names(), name) {
			return true
		}
	}
	return false
}

func mapperFromFlags(c *cli.Context) (*cdc.Mapper, error) {
	opts := []cdc.MapperOption{}
	if tags := c.StringSlice("metadata-columns"); len(tags) > 0 {
		opts = append(opts, cdc.WithMetadata(cdc.ColumnValues(tags...)))
	}
	return cdc.NewMapper(cdc.ConcatColumns(c.String("separator"), c.StringSlice("columns")...), opts...)
}

type route struct {
	topic string
	index string
}

// parseRoutes parses topic=index pairs. A topic may appear only once.
func parseRoutes(pairs []string) ([]route, error) {
	seen := make(map[string]bool, len(pairs))
	routes := make([]route, 0, len(pairs))
	for _, pair := range pairs {
		topic, index, ok := strings.Cut(pair, "=")
		topic, index = strings.TrimSpace(topic), strings.TrimSpace(index)
		if !ok || topic == "" || index == "" {
			return nil, fmt.Errorf("invalid route %q: expected topic=index", pair)
		}
		if seen[topic] {
			return nil, fmt.Errorf("duplicate route for topic %q", topic)
		}
		seen[topic] = true
		routes = append(routes, route{topic: topic, index: index})
	}
	return routes, nil
}

// extractColumns returns the document columns followed by any metadata
// columns not already listed.
func extractColumns(columns, metadata []string) []string {
	out := append([]string(nil), columns...)
	for _, col := range metadata {
		if !slices.Contains(out, col) {
			out = append(out, col)
		}
	}
	return out
}
