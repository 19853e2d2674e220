// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package backfill

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/poiesic/vectorflow/ai"
	"github.com/poiesic/vectorflow/cdc"
	"github.com/poiesic/vectorflow/core"
	"github.com/poiesic/vectorflow/extract"
	"github.com/poiesic/vectorflow/retry"
	"github.com/poiesic/vectorflow/storage"
	"github.com/poiesic/vectorflow/vectorstore"
)

// Source pages through a relational table. *extract.Extractor implements it.
type Source interface {
	Count(ctx context.Context, relation string) (int64, error)
	ExtractAll(ctx context.Context, relation string, columns []string, primaryKey string,
		chunkSize int, offset int64, fn func(extract.Chunk) error) error
}

// Config holds configuration for a backfill.
type Config struct {
	// Relation is the table to read.
	Relation string
	// Columns are handed to the mapper in this order.
	Columns []string
	// PrimaryKey orders the extraction and becomes the vector id.
	PrimaryKey string
	// Index and Namespace receive the vectors.
	Index     string
	Namespace string

	// ChunkSize is the number of rows embedded and upserted together.
	ChunkSize int
	// ReportInterval is how often to report progress, in rows.
	ReportInterval int64
	// MaxRetries is the maximum number of embedding attempts per chunk.
	MaxRetries int
	// RetryDelay is the base delay for exponential backoff.
	RetryDelay time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		ChunkSize:      100,
		ReportInterval: 100,
		MaxRetries:     3,
		RetryDelay:     time.Second,
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	var errs []error
	if c.Relation == "" {
		errs = append(errs, errors.New("relation is required"))
	}
	if len(c.Columns) == 0 {
		errs = append(errs, errors.New("at least one column is required"))
	}
	if c.PrimaryKey == "" {
		errs = append(errs, errors.New("primary key is required"))
	}
	if c.Index == "" {
		errs = append(errs, errors.New("index is required"))
	}
	if c.ChunkSize < 1 {
		errs = append(errs, errors.New("chunk size must be at least 1"))
	}
	if c.MaxRetries < 1 {
		errs = append(errs, errors.New("max retries must be at least 1"))
	}
	return errors.Join(errs...)
}

// CheckpointName returns the checkpoint key of the backfill.
func (c *Config) CheckpointName() string {
	return fmt.Sprintf("backfill:%s:%s", c.Index, c.Relation)
}

// Result summarises a completed backfill.
type Result struct {
	Total    int64
	Resumed  int64 // rows skipped because an earlier run loaded them
	Upserted int64
	Elapsed  time.Duration
}

// Backfiller loads the existing rows of a table into a vector index.
type Backfiller struct {
	source      Source
	mapper      *cdc.Mapper
	embedder    ai.Embedder
	client      *vectorstore.Client
	checkpoints storage.CheckpointRepository
	config      Config
	progress    io.Writer
	logger      *slog.Logger
}

// Option configures a Backfiller.
type Option func(*Backfiller)

// WithCheckpoints enables resuming from the last completed chunk.
func WithCheckpoints(repo storage.CheckpointRepository) Option {
	return func(b *Backfiller) {
		b.checkpoints = repo
	}
}

// WithProgress sets where progress lines are written.
func WithProgress(w io.Writer) Option {
	return func(b *Backfiller) {
		b.progress = w
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Backfiller) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// New creates a backfiller. A nil config uses DefaultConfig.
func New(source Source, mapper *cdc.Mapper, embedder ai.Embedder, client *vectorstore.Client, config *Config, opts ...Option) (*Backfiller, error) {
	switch {
	case source == nil:
		return nil, ErrSourceRequired
	case mapper == nil:
		return nil, ErrMapperRequired
	case embedder == nil:
		return nil, ErrEmbedderRequired
	case client == nil:
		return nil, ErrClientRequired
	}
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid backfill config: %w", err)
	}

	b := &Backfiller{
		source:   source,
		mapper:   mapper,
		embedder: embedder,
		client:   client,
		config:   *config,
		progress: io.Discard,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.logger = b.logger.With("component", "backfill", "relation", config.Relation, "index", config.Index)
	return b, nil
}

// Run loads every row of the relation.
//
// Each chunk is mapped, embedded, and upserted; the index is created from the
// first embedding's length if it does not exist. With checkpoints enabled the
// offset after every chunk is saved, an interrupted run resumes there, and the
// checkpoint is removed once the table has been read completely.
func (b *Backfiller) Run(ctx context.Context) (*Result, error) {
	total, err := b.source.Count(ctx, b.config.Relation)
	if err != nil {
		return nil, err
	}
	result := &Result{Total: total}
	if total == 0 {
		fmt.Fprintf(b.progress, "No rows found in %s\n", b.config.Relation)
		return result, nil
	}

	offset, err := b.loadOffset(ctx)
	if err != nil {
		return nil, err
	}
	result.Resumed = offset
	if offset > 0 {
		b.logger.Info("resuming backfill", "offset", offset)
	}

	fmt.Fprintf(b.progress, "Starting backfill of %d rows from %s (chunk size: %d)\n",
		total, b.config.Relation, b.config.ChunkSize)
	tracker := NewProgressTracker(b.progress, b.config.Relation, total, b.config.ReportInterval)
	tracker.Start(offset)

	ensured := false
	err = b.source.ExtractAll(ctx, b.config.Relation, b.config.Columns, b.config.PrimaryKey,
		b.config.ChunkSize, offset, func(chunk extract.Chunk) error {
			n, err := b.load(ctx, chunk, &ensured)
			if err != nil {
				return fmt.Errorf("chunk at offset %d: %w", chunk.Offset, err)
			}
			result.Upserted += int64(n)

			if err := b.saveOffset(ctx, chunk.Offset+int64(len(chunk.Rows))); err != nil {
				return err
			}
			tracker.Add(int64(len(chunk.Rows)))
			return nil
		})
	if err != nil {
		return result, err
	}

	if b.checkpoints != nil {
		if err := b.checkpoints.DeleteCheckpoint(ctx, b.config.CheckpointName()); err != nil {
			return result, fmt.Errorf("failed to clear checkpoint: %w", err)
		}
	}

	tracker.Finish()
	result.Elapsed = tracker.Elapsed()
	fmt.Fprintf(b.progress, "Backfill complete. Upserted %d vectors in %v\n",
		result.Upserted, result.Elapsed.Round(time.Millisecond))
	return result, nil
}

// load embeds and upserts one chunk, returning how many vectors were written.
func (b *Backfiller) load(ctx context.Context, chunk extract.Chunk, ensured *bool) (int, error) {
	docs := make([]string, 0, len(chunk.Rows))
	ids := make([]string, 0, len(chunk.Rows))
	metadata := make([]core.Metadata, 0, len(chunk.Rows))

	for i, row := range chunk.Rows {
		doc, tags, ok, err := b.mapper.Map(&core.ChangeEvent{Operation: core.OperationUpsert, Row: row})
		if err != nil {
			return 0, err
		}
		if !ok {
			continue
		}
		docs = append(docs, doc)
		ids = append(ids, primaryKeyID(chunk.PrimaryKeys[i]))
		metadata = append(metadata, core.TagsMetadata(tags))
	}
	if len(docs) == 0 {
		return 0, nil
	}

	var vectors [][]float32
	err := retry.WithBackoff(ctx, func() error {
		var embedErr error
		vectors, embedErr = b.embedder.EmbedTexts(ctx, docs)
		return embedErr
	}, b.config.MaxRetries, b.config.RetryDelay, retry.WithLogger(b.logger))
	if err != nil {
		return 0, fmt.Errorf("embedding failed after %d attempts: %w", b.config.MaxRetries, err)
	}
	if len(vectors) != len(docs) {
		return 0, fmt.Errorf("%w: embedder returned %d vectors for %d documents", core.ErrCountMismatch, len(vectors), len(docs))
	}

	if !*ensured {
		if err := b.client.EnsureIndex(ctx, b.config.Index, len(vectors[0])); err != nil {
			return 0, err
		}
		*ensured = true
	}

	if err := b.client.BulkUpsert(ctx, b.config.Index, b.config.Namespace, ids, vectors, metadata); err != nil {
		return 0, err
	}
	return len(ids), nil
}

func (b *Backfiller) loadOffset(ctx context.Context) (int64, error) {
	if b.checkpoints == nil {
		return 0, nil
	}
	cp, err := b.checkpoints.LoadCheckpoint(ctx, b.config.CheckpointName())
	if err != nil {
		return 0, fmt.Errorf("failed to load checkpoint: %w", err)
	}
	if cp == nil {
		return 0, nil
	}
	return cp.Offset, nil
}

func (b *Backfiller) saveOffset(ctx context.Context, offset int64) error {
	if b.checkpoints == nil {
		return nil
	}
	err := b.checkpoints.SaveCheckpoint(ctx, &core.Checkpoint{Name: b.config.CheckpointName(), Offset: offset})
	if err != nil {
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}
	return nil
}

func primaryKeyID(key any) string {
	switch k := key.(type) {
	case int64:
		return core.IntID(k)
	case int32:
		return core.IntID(int64(k))
	case int:
		return core.IntID(int64(k))
	case string:
		return k
	default:
		return fmt.Sprint(k)
	}
}
