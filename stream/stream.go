package stream

import (
	"context"
	"errors"
	"time"
)

// ErrClosed is returned by operations on a closed consumer or producer.
var ErrClosed = errors.New("stream closed")

// Message is a single record read from or written to a topic.
type Message struct {
	Topic     string
	Key       []byte
	Value     []byte
	Partition int
	Offset    int64
	Time      time.Time
}

// Consumer reads messages from one topic as part of a consumer group.
// Offsets only advance when messages are committed.
type Consumer interface {
	// FetchMessage blocks until a message is available or ctx is done.
	FetchMessage(ctx context.Context) (Message, error)

	// CommitMessages marks messages as processed.
	CommitMessages(ctx context.Context, msgs ...Message) error

	Close() error
}

// Producer writes messages to topics.
type Producer interface {
	// Produce writes one message and returns once the broker acknowledged it.
	Produce(ctx context.Context, topic string, key, value []byte) error

	Close() error
}
