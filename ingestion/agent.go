package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/poiesic/vectorflow/stream"
)

// Agent feeds messages from one consumer through a stage, one at a time.
type Agent struct {
	consumer stream.Consumer
	proc     processor
	logger   *slog.Logger

	processed int
	produced  int
}

// NewAgent creates an agent reading from consumer.
func NewAgent(consumer stream.Consumer, stage *Stage, logger *slog.Logger) (*Agent, error) {
	if consumer == nil {
		return nil, ErrConsumerRequired
	}
	if stage == nil {
		return nil, ErrStageRequired
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Agent{
		consumer: consumer,
		proc:     stage,
		logger:   logger.With("component", "agent", "topic", stage.topic),
	}, nil
}

// Run processes messages until ctx is done or processing fails.
// Each message is committed after it is processed. A failed message is not
// committed, so it is redelivered when the agent is restarted.
// Cancellation returns nil, including when it interrupts a message in flight.
func (a *Agent) Run(ctx context.Context) error {
	a.logger.Info("agent started")
	defer func() {
		a.logger.Info("agent stopped", "processed", a.processed, "produced", a.produced)
	}()

	for {
		msg, err := a.consumer.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, stream.ErrClosed) {
				return nil
			}
			return fmt.Errorf("fetch failed: %w", err)
		}

		produced, err := a.proc.process(ctx, msg)
		if err != nil {
			if ctx.Err() != nil {
				a.logger.Info("stopped while processing, message left uncommitted",
					"partition", msg.Partition, "offset", msg.Offset)
				return nil
			}
			a.logger.Error("processing failed", "partition", msg.Partition, "offset", msg.Offset, "err", err)
			return err
		}

		if err := a.consumer.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("commit failed: %w", err)
		}

		a.processed++
		if produced {
			a.produced++
		}
	}
}

// Stats returns how many messages were processed and how many records were produced.
// Only valid after Run returns.
func (a *Agent) Stats() (processed, produced int) {
	return a.processed, a.produced
}
