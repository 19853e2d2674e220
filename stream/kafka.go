package stream

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/segmentio/kafka-go"
)

// Reader adapts a kafka-go consumer group reader to Consumer.
type Reader struct {
	reader *kafka.Reader
}

var _ Consumer = (*Reader)(nil)

// NewReader creates a consumer group reader for topic.
func NewReader(cfg *Config, topic string) (*Reader, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if topic == "" {
		return nil, errors.New("stream: topic is required")
	}

	return &Reader{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:     cfg.Brokers,
			GroupID:     cfg.GroupID,
			Topic:       topic,
			MinBytes:    cfg.MinBytes,
			MaxBytes:    cfg.MaxBytes,
			StartOffset: kafka.FirstOffset,
			Logger:      kafka.LoggerFunc(debugLogger(topic)),
			ErrorLogger: kafka.LoggerFunc(errorLogger(topic)),
		}),
	}, nil
}

// FetchMessage blocks until the next message is available.
func (r *Reader) FetchMessage(ctx context.Context) (Message, error) {
	m, err := r.reader.FetchMessage(ctx)
	if err != nil {
		return Message{}, err
	}
	return fromKafka(m), nil
}

// CommitMessages commits the offsets of msgs for the group.
func (r *Reader) CommitMessages(ctx context.Context, msgs ...Message) error {
	if len(msgs) == 0 {
		return nil
	}
	km := make([]kafka.Message, len(msgs))
	for i, m := range msgs {
		km[i] = toKafka(m)
	}
	return r.reader.CommitMessages(ctx, km...)
}

// Close closes the reader.
func (r *Reader) Close() error {
	return r.reader.Close()
}

// Writer adapts a kafka-go writer to Producer.
// Messages are partitioned by key hash so updates to one row stay ordered.
type Writer struct {
	writer *kafka.Writer
}

var _ Producer = (*Writer)(nil)

// NewWriter creates a writer for the configured brokers.
func NewWriter(cfg *Config) (*Writer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &Writer{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(cfg.Brokers...),
			Balancer:               &kafka.Hash{},
			BatchTimeout:           cfg.BatchTimeout,
			RequiredAcks:           kafka.RequireAll,
			AllowAutoTopicCreation: true,
			ErrorLogger:            kafka.LoggerFunc(errorLogger("")),
		},
	}, nil
}

// Produce writes one message synchronously.
func (w *Writer) Produce(ctx context.Context, topic string, key, value []byte) error {
	return w.writer.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   key,
		Value: value,
	})
}

// Close flushes pending messages and closes the writer.
func (w *Writer) Close() error {
	return w.writer.Close()
}

func fromKafka(m kafka.Message) Message {
	return Message{
		Topic:     m.Topic,
		Key:       m.Key,
		Value:     m.Value,
		Partition: m.Partition,
		Offset:    m.Offset,
		Time:      m.Time,
	}
}

func toKafka(m Message) kafka.Message {
	return kafka.Message{
		Topic:     m.Topic,
		Key:       m.Key,
		Value:     m.Value,
		Partition: m.Partition,
		Offset:    m.Offset,
		Time:      m.Time,
	}
}

func debugLogger(topic string) func(string, ...any) {
	logger := slog.Default().With("component", "kafka", "topic", topic)
	return func(msg string, args ...any) {
		logger.Debug(fmt.Sprintf(msg, args...))
	}
}

func errorLogger(topic string) func(string, ...any) {
	logger := slog.Default().With("component", "kafka", "topic", topic)
	return func(msg string, args ...any) {
		logger.Error(fmt.Sprintf(msg, args...))
	}
}
