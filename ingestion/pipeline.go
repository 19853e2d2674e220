package ingestion

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/panjf2000/ants/v2"
)

// Pipeline runs a set of agents concurrently on a worker pool.
type Pipeline struct {
	agents []*Agent
	pool   *ants.Pool
	logger *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithPoolSize sets the worker pool size.
// The pool always grows to hold every agent, since agents run until cancelled.
func WithPoolSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}

		if p.pool != nil {
			p.pool.Release()
		}

		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		p.pool = pool
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// NewPipeline creates a pipeline for agents.
func NewPipeline(agents []*Agent, opts ...Option) (*Pipeline, error) {
	if len(agents) == 0 {
		return nil, ErrAgentsRequired
	}

	pool, err := ants.NewPool(len(agents))
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		agents: agents,
		pool:   pool,
		logger: slog.Default(),
	}

	for _, opt := range opts {
		if optErr := opt(p); optErr != nil {
			p.Release()
			return nil, optErr
		}
	}

	if p.pool.Cap() < len(agents) {
		p.pool.Tune(len(agents))
	}
	p.logger = p.logger.With("component", "pipeline")
	return p, nil
}

// Run starts every agent and blocks until all have stopped.
// When one agent fails the others are cancelled. The returned error joins
// every agent failure; cancellation of ctx alone returns nil.
func (p *Pipeline) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)

	p.logger.Info("starting agents", "agents", len(p.agents))
	for _, agent := range p.agents {
		wg.Add(1)
		err := p.pool.Submit(func() {
			defer wg.Done()
			if err := agent.Run(ctx); err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
				cancel()
			}
		})
		if err != nil {
			wg.Done()
			cancel()
			mu.Lock()
			errs = append(errs, err)
			mu.Unlock()
			break
		}
	}

	wg.Wait()
	err := errors.Join(errs...)
	if err != nil {
		p.logger.Error("pipeline stopped with errors", "err", err)
	} else {
		p.logger.Info("pipeline stopped")
	}
	return err
}

// Release releases the worker pool.
// The pipeline should not be used after calling Release.
func (p *Pipeline) Release() {
	if p.pool != nil {
		p.pool.Release()
	}
}
