package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/poiesic/vectorflow/ai/openai"
	"github.com/poiesic/vectorflow/backfill"
	"github.com/poiesic/vectorflow/codec"
	"github.com/poiesic/vectorflow/connect"
	"github.com/poiesic/vectorflow/extract"
	"github.com/poiesic/vectorflow/ingestion"
	"github.com/poiesic/vectorflow/sink"
	"github.com/poiesic/vectorflow/storage/badger"
	"github.com/poiesic/vectorflow/stream"
	"github.com/urfave/cli/v2"
)

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func ensureIndexCommand(c *cli.Context) error {
	ctx := context.Background()

	engine, err := openEngine(c)
	if err != nil {
		return err
	}
	defer engine.Close()

	if err := engine.Client().EnsureIndex(ctx, c.String("index"), c.Int("dimensions")); err != nil {
		return fmt.Errorf("ensure index failed: %w", err)
	}
	fmt.Fprintf(os.Stderr, "Index %s ready (%d dimensions)\n", c.String("index"), c.Int("dimensions"))
	return nil
}

func streamCommand(c *cli.Context) error {
	ctx, cancel := signalContext()
	defer cancel()

	routes, err := parseRoutes(c.StringSlice("route"))
	if err != nil {
		return err
	}
	streamConfig, err := streamConfigFromFlags(c)
	if err != nil {
		return err
	}
	aiConfig, err := aiConfigFromFlags(c)
	if err != nil {
		return err
	}
	mapper, err := mapperFromFlags(c)
	if err != nil {
		return err
	}

	provider, err := openai.NewProvider(aiConfig)
	if err != nil {
		return fmt.Errorf("failed to create embedding provider: %w", err)
	}
	defer provider.Close()

	if c.Bool("create-topics") {
		topics := make([]string, 0, len(routes))
		for _, r := range routes {
			topics = append(topics, r.index)
		}
		if err := stream.EnsureTopics(ctx, streamConfig.Brokers[0], c.Int("partitions"), 1, topics...); err != nil {
			return err
		}
	}

	writer, err := stream.NewWriter(streamConfig)
	if err != nil {
		return err
	}
	defer writer.Close()


	agents := make([]*ingestion.Agent, 0, len(routes))
	for _, r := range routes {
		subject := codec.SubjectName(r.index)
		if _, err := codec.RegisterSchema(ctx, c.String("schema-registry"), subject); err != nil {
			return err
		}
		serializer, err := codec.LookupSerializer(ctx, c.String("schema-registry"), subject)
		if err != nil {
			return err
		}

		stage, err := ingestion.NewStage(mapper, provider.Embedder(), serializer, writer, r.index,
			ingestion.WithKeyColumn(c.String("key-column")))
		if err != nil {
			return err
		}

		reader, err := stream.NewReader(streamConfig, r.topic)
		if err != nil {
			return err
		}
		defer reader.Close()

		agent, err := ingestion.NewAgent(reader, stage, nil)
		if err != nil {
			return err
		}
		agents = append(agents, agent)
		slog.Info("route configured", "topic", r.topic, "index", r.index, "subject", subject)
	}

	var opts []ingestion.Option
	if size := c.Int("pool-size"); size > 0 {
		opts = append(opts, ingestion.WithPoolSize(size))
	}
	pipeline, err := ingestion.NewPipeline(agents, opts...)
	if err != nil {
		return err
	}
	defer pipeline.Release()

	if err := pipeline.Run(ctx); err != nil {
		return fmt.Errorf("stream failed: %w", err)
	}
	return nil
}

func sinkCommand(c *cli.Context) error {
	ctx, cancel := signalContext()
	defer cancel()

	streamConfig, err := streamConfigFromFlags(c)
	if err != nil {
		return err
	}

	engine, err := openEngine(c)
	if err != nil {
		return err
	}
	defer engine.Close()

	index := c.String("index")
	decoder, err := codec.LookupSerializer(ctx, c.String("schema-registry"), codec.SubjectName(index))
	if err != nil {
		return err
	}

	reader, err := stream.NewReader(streamConfig, index)
	if err != nil {
		return err
	}
	defer reader.Close()

	s, err := engine.NewSink(reader, decoder, sink.NewConfig(
		sink.WithIndex(index),
		sink.WithNamespace(c.String("namespace")),
		sink.WithBatchSize(c.Int("batch-size")),
		sink.WithFlushInterval(c.Duration("flush-interval")),
		sink.WithEnsureIndex(c.Bool("ensure-index")),
	))
	if err != nil {
		return err
	}

	if err := s.Run(ctx); err != nil {
		return fmt.Errorf("sink failed: %w", err)
	}
	return nil
}

func registerConnectorCommand(c *cli.Context) error {
	ctx, cancel := signalContext()
	defer cancel()

	client, err := connect.NewClient(c.String("connect-url"))
	if err != nil {
		return err
	}

	src := connect.PostgresSource{
		Host:       c.String("db-host"),
		Port:       c.Int("db-port"),
		User:       c.String("db-user"),
		Password:   c.String("db-password"),
		DBName:     c.String("db-name"),
		Schema:     c.String("schema"),
		Relation:   c.String("relation"),
		PrimaryKey: c.String("primary-key"),
		Columns:    c.StringSlice("columns"),
	}
	connector := connect.PostgresConnector(src)

	err = client.RegisterConnector(ctx, connector)
	switch {
	case errors.Is(err, connect.ErrConnectorExists) && c.Bool("if-not-exists"):
		slog.Info("connector already exists", "connector", connector.Name)
	case err != nil:
		return err
	}

	if wait := c.Duration("wait"); wait > 0 {
		if err := client.WaitReady(ctx, connector.Name, wait); err != nil {
			return err
		}
	}

	fmt.Fprintf(os.Stderr, "Connector %s registered; change events go to topic %s\n", connector.Name, src.Topic())
	return nil
}

func backfillCommand(c *cli.Context) error {
	ctx, cancel := signalContext()
	defer cancel()

	mapper, err := mapperFromFlags(c)
	if err != nil {
		return err
	}

	source, err := extract.Open(ctx, c.String("driver"), c.String("dsn"), nil)
	if err != nil {
		return err
	}
	defer source.Close()

	engine, err := openEngine(c)
	if err != nil {
		return err
	}
	defer engine.Close()

	config := &backfill.Config{
		Relation:       c.String("relation"),
		Columns:        extractColumns(c.StringSlice("columns"), c.StringSlice("metadata-columns")),
		PrimaryKey:     c.String("primary-key"),
		Index:          c.String("index"),
		Namespace:      c.String("namespace"),
		ChunkSize:      c.Int("chunk-size"),
		ReportInterval: c.Int64("report-interval"),
		MaxRetries:     c.Int("max-retries"),
		RetryDelay:     c.Duration("retry-delay"),
	}

	b, err := engine.NewBackfiller(source, mapper, config, backfill.WithProgress(os.Stderr))
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "Relation: %s\n", config.Relation)
	fmt.Fprintf(os.Stderr, "Index: %s\n", config.Index)
	fmt.Fprintf(os.Stderr, "Embedding model: %s\n", c.String("embedding-model"))
	fmt.Fprintln(os.Stderr)

	if _, err := b.Run(ctx); err != nil {
		return fmt.Errorf("backfill failed: %w", err)
	}
	return nil
}

func inspectCommand(c *cli.Context) error {
	ctx := context.Background()

	backend, err := badger.OpenBackend(c.String("state"), false)
	if err != nil {
		return fmt.Errorf("failed to open local store: %w", err)
	}
	defer backend.Close()

	indexes, err := backend.ListIndexes(ctx)
	if err != nil {
		return err
	}
	if len(indexes) == 0 {
		fmt.Fprintln(c.App.Writer, "No indexes")
		return nil
	}

	namespace := c.String("namespace")
	for _, idx := range indexes {
		count, err := backend.CountVectors(ctx, idx.Name, namespace)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.App.Writer, "%s\t%d dimensions\t%d vectors\n", idx.Name, idx.Dimensions, count)
	}
	return nil
}
