package stream

import (
	"context"
	"sync"
	"time"
)

// MemoryBroker is an in-process broker for local runs and tests.
// Every consumer of a topic sees every message; there are no groups.
type MemoryBroker struct {
	mu        sync.Mutex
	topics    map[string][]Message
	committed map[string]int64
	notify    chan struct{}
	closed    bool
}

// NewMemoryBroker creates an empty broker.
func NewMemoryBroker() *MemoryBroker {
	return &MemoryBroker{
		topics:    make(map[string][]Message),
		committed: make(map[string]int64),
		notify:    make(chan struct{}),
	}
}

// Produce appends a message to topic.
func (b *MemoryBroker) Produce(ctx context.Context, topic string, key, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrClosed
	}

	b.topics[topic] = append(b.topics[topic], Message{
		Topic:  topic,
		Key:    key,
		Value:  value,
		Offset: int64(len(b.topics[topic])),
		Time:   time.Now(),
	})
	close(b.notify)
	b.notify = make(chan struct{})
	return nil
}

// Messages returns a copy of every message written to topic.
func (b *MemoryBroker) Messages(topic string) []Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Message(nil), b.topics[topic]...)
}

// Committed returns the offset of the next message to process for topic,
// that is one past the highest committed offset.
func (b *MemoryBroker) Committed(topic string) int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.committed[topic]
}

// Close closes the broker. Blocked consumers return ErrClosed.
func (b *MemoryBroker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.closed {
		b.closed = true
		close(b.notify)
	}
	return nil
}

// Consumer returns a consumer reading topic from its committed offset.
func (b *MemoryBroker) Consumer(topic string) Consumer {
	b.mu.Lock()
	defer b.mu.Unlock()
	return &memoryConsumer{broker: b, topic: topic, next: b.committed[topic]}
}

type memoryConsumer struct {
	broker *MemoryBroker
	topic  string
	next   int64
}

func (c *memoryConsumer) FetchMessage(ctx context.Context) (Message, error) {
	for {
		c.broker.mu.Lock()
		if c.broker.closed {
			c.broker.mu.Unlock()
			return Message{}, ErrClosed
		}
		msgs := c.broker.topics[c.topic]
		if c.next < int64(len(msgs)) {
			m := msgs[c.next]
			c.next++
			c.broker.mu.Unlock()
			return m, nil
		}
		wait := c.broker.notify
		c.broker.mu.Unlock()

		select {
		case <-ctx.Done():
			return Message{}, ctx.Err()
		case <-wait:
		}
	}
}

func (c *memoryConsumer) CommitMessages(ctx context.Context, msgs ...Message) error {
	c.broker.mu.Lock()
	defer c.broker.mu.Unlock()
	for _, m := range msgs {
		if m.Offset+1 > c.broker.committed[m.Topic] {
			c.broker.committed[m.Topic] = m.Offset + 1
		}
	}
	return nil
}

func (c *memoryConsumer) Close() error {
	return nil
}

var (
	_ Producer = (*MemoryBroker)(nil)
	_ Consumer = (*memoryConsumer)(nil)
)
