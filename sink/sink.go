package sink

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/poiesic/vectorflow/codec"
	"github.com/poiesic/vectorflow/core"
	"github.com/poiesic/vectorflow/stream"
	"github.com/poiesic/vectorflow/vectorstore"
)

// Sink batches embedding records from a consumer into a vector index.
type Sink struct {
	consumer stream.Consumer
	decoder  codec.Deserializer
	client   *vectorstore.Client
	config   Config
	logger   *slog.Logger

	ensured bool
	batch   batch

	batches  int
	upserted int
}

// batch accumulates the records of the messages fetched since the last flush.
// A key seen twice keeps its last record.
type batch struct {
	messages []stream.Message
	ids      []string
	vectors  [][]float32
	metadata []core.Metadata
	position map[string]int
}

func (b *batch) add(id string, record core.EmbeddingRecord) {
	if b.position == nil {
		b.position = make(map[string]int)
	}
	md := core.TagsMetadata(record.Metadata)
	if i, ok := b.position[id]; ok {
		b.vectors[i] = record.Doc
		b.metadata[i] = md
		return
	}
	b.position[id] = len(b.ids)
	b.ids = append(b.ids, id)
	b.vectors = append(b.vectors, record.Doc)
	b.metadata = append(b.metadata, md)
}

func (b *batch) reset() {
	*b = batch{}
}

// NewSink creates a sink. A nil config uses DefaultConfig, which has no index
// and therefore fails validation.
func NewSink(consumer stream.Consumer, decoder codec.Deserializer, client *vectorstore.Client, config *Config, logger *slog.Logger) (*Sink, error) {
	switch {
	case consumer == nil:
		return nil, ErrConsumerRequired
	case decoder == nil:
		return nil, ErrDecoderRequired
	case client == nil:
		return nil, ErrClientRequired
	}
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid sink config: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Sink{
		consumer: consumer,
		decoder:  decoder,
		client:   client,
		config:   *config,
		logger:   logger.With("component", "sink", "index", config.Index),
	}, nil
}

// Run consumes records until ctx is done or a write fails.
//
// A batch is written when it holds BatchSize messages or when FlushInterval
// has passed since its first message. Records that have not been written when
// Run returns are not committed and are delivered again on restart.
// Cancellation returns nil, even when it interrupts a write.
func (s *Sink) Run(ctx context.Context) error {
	s.logger.Info("sink started", "batchSize", s.config.BatchSize, "flushInterval", s.config.FlushInterval)
	defer func() {
		s.logger.Info("sink stopped", "batches", s.batches, "upserted", s.upserted)
	}()

	err := s.run(ctx)
	if err != nil && ctx.Err() != nil {
		s.logger.Info("stopped while writing, batch left uncommitted", "messages", len(s.batch.messages))
		return nil
	}
	return err
}

func (s *Sink) run(ctx context.Context) error {
	var deadline time.Time
	for {
		fetchCtx, cancel := ctx, context.CancelFunc(func() {})
		if len(s.batch.messages) > 0 {
			fetchCtx, cancel = context.WithDeadline(ctx, deadline)
		}
		msg, err := s.consumer.FetchMessage(fetchCtx)
		cancel()

		if err != nil {
			switch {
			case ctx.Err() != nil, errors.Is(err, stream.ErrClosed):
				return nil
			case errors.Is(err, context.DeadlineExceeded):
				if err := s.flush(ctx); err != nil {
					return err
				}
				continue
			default:
				return fmt.Errorf("fetch failed: %w", err)
			}
		}

		if len(s.batch.messages) == 0 {
			deadline = time.Now().Add(s.config.FlushInterval)
		}
		if err := s.add(ctx, msg); err != nil {
			return err
		}
		if len(s.batch.messages) >= s.config.BatchSize || !time.Now().Before(deadline) {
			if err := s.flush(ctx); err != nil {
				return err
			}
		}
	}
}

// Stats returns how many batches were written and how many records they held.
// Only valid after Run returns.
func (s *Sink) Stats() (batches, upserted int) {
	return s.batches, s.upserted
}

func (s *Sink) add(ctx context.Context, msg stream.Message) error {
	s.batch.messages = append(s.batch.messages, msg)
	if len(msg.Value) == 0 {
		s.logger.Debug("skipping tombstone", "partition", msg.Partition, "offset", msg.Offset)
		return nil
	}

	record, err := s.decoder.Deserialize(ctx, msg.Value)
	if err != nil {
		return fmt.Errorf("record at partition %d offset %d: %w", msg.Partition, msg.Offset, err)
	}
	if len(msg.Key) == 0 {
		return fmt.Errorf("%w: partition %d offset %d", ErrMissingKey, msg.Partition, msg.Offset)
	}

	s.batch.add(string(msg.Key), record)
	return nil
}

func (s *Sink) flush(ctx context.Context) error {
	if len(s.batch.messages) == 0 {
		return nil
	}

	if n := len(s.batch.ids); n > 0 {
		if s.config.EnsureIndex && !s.ensured {
			if err := s.client.EnsureIndex(ctx, s.config.Index, len(s.batch.vectors[0])); err != nil {
				return fmt.Errorf("ensure index failed: %w", err)
			}
			s.ensured = true
		}

		if err := s.client.BulkUpsert(ctx, s.config.Index, s.config.Namespace,
			s.batch.ids, s.batch.vectors, s.batch.metadata); err != nil {
			return fmt.Errorf("upsert of %d records failed: %w", n, err)
		}
		s.upserted += n
	}

	if err := s.consumer.CommitMessages(ctx, s.batch.messages...); err != nil {
		return fmt.Errorf("commit failed: %w", err)
	}

	s.batches++
	s.logger.Debug("flushed batch", "messages", len(s.batch.messages), "records", len(s.batch.ids))
	s.batch.reset()
	return nil
}
