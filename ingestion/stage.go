package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/poiesic/vectorflow/ai"
	"github.com/poiesic/vectorflow/cdc"
	"github.com/poiesic/vectorflow/codec"
	"github.com/poiesic/vectorflow/core"
	"github.com/poiesic/vectorflow/stream"
)

// Stage turns change events into serialized embedding records and produces
// them to the topic named after the destination index.
type Stage struct {
	mapper     *cdc.Mapper
	embedder   ai.Embedder
	serializer codec.Serializer
	producer   stream.Producer
	topic      string
	keyColumn  string
	logger     *slog.Logger
}

var _ processor = (*Stage)(nil)

// StageOption configures a Stage.
type StageOption func(*Stage)

// WithKeyColumn keys produced records by the value of the named column,
// normally the primary key. Without it records are keyed by a hash of the document.
func WithKeyColumn(column string) StageOption {
	return func(s *Stage) {
		s.keyColumn = column
	}
}

// WithStageLogger sets a custom logger.
func WithStageLogger(logger *slog.Logger) StageOption {
	return func(s *Stage) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewStage creates a stage producing to topic.
func NewStage(
	mapper *cdc.Mapper,
	embedder ai.Embedder,
	serializer codec.Serializer,
	producer stream.Producer,
	topic string,
	opts ...StageOption,
) (*Stage, error) {
	switch {
	case mapper == nil:
		return nil, ErrMapperRequired
	case embedder == nil:
		return nil, ErrEmbedderRequired
	case serializer == nil:
		return nil, ErrSerializerRequired
	case producer == nil:
		return nil, ErrProducerRequired
	case topic == "":
		return nil, ErrTopicRequired
	}

	s := &Stage{
		mapper:     mapper,
		embedder:   embedder,
		serializer: serializer,
		producer:   producer,
		topic:      topic,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("processor", "embeddings", "topic", topic)
	return s, nil
}

// Process handles one change-event message.
//
// Tombstones and deleted rows produce nothing. Messages that are not valid
// change events are logged and skipped. Mapping, embedding, serialization
// and produce errors are returned unchanged in kind.
func (s *Stage) Process(ctx context.Context, msg stream.Message) (bool, error) {
	event, err := cdc.DecodeChangeEvent(msg.Value)
	if err != nil {
		if errors.Is(err, core.ErrInvalidChangeEvent) {
			s.logger.Warn("skipping invalid change event", "partition", msg.Partition, "offset", msg.Offset, "err", err)
			return false, nil
		}
		return false, err
	}
	if event == nil {
		s.logger.Debug("skipping tombstone", "partition", msg.Partition, "offset", msg.Offset)
		return false, nil
	}

	doc, metadata, ok, err := s.mapper.Map(event)
	if err != nil || !ok {
		return false, err
	}

	key, err := s.key(event.Row, doc)
	if err != nil {
		return false, err
	}

	vector, err := s.embedder.EmbedText(ctx, doc)
	if err != nil {
		return false, fmt.Errorf("embedding failed: %w", err)
	}
	if len(vector) == 0 {
		return false, ErrEmptyEmbedding
	}

	value, err := s.serializer.Serialize(core.EmbeddingRecord{Doc: vector, Metadata: metadata})
	if err != nil {
		return false, err
	}

	if err := s.producer.Produce(ctx, s.topic, []byte(key), value); err != nil {
		return false, fmt.Errorf("produce to %s failed: %w", s.topic, err)
	}

	s.logger.Debug("produced embedding record", "key", key, "dimensions", len(vector), "tags", len(metadata))
	return true, nil
}

func (s *Stage) process(ctx context.Context, msg stream.Message) (bool, error) {
	return s.Process(ctx, msg)
}

func (s *Stage) key(row core.Row, doc string) (string, error) {
	if s.keyColumn == "" {
		return core.IDFromContent(doc), nil
	}
	v, ok := row.Get(s.keyColumn)
	if !ok || v == nil {
		return "", fmt.Errorf("%w: key column %q missing from row", core.ErrArgument, s.keyColumn)
	}
	if i, ok := v.(int64); ok {
		return core.IntID(i), nil
	}
	return fmt.Sprint(v), nil
}
