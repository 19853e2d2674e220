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

// Package vectorflow keeps vector indexes in sync with relational tables.
//
// An Engine wires an embedding provider, a vector store and local state
// together and builds the pipeline pieces on top of them: ingestion stages
// that embed change events, sinks that load embedding records into an index,
// and backfillers that load the rows a table already holds.
package vectorflow

import (
	"errors"
	"log/slog"

	"github.com/poiesic/vectorflow/ai"
	"github.com/poiesic/vectorflow/ai/openai"
	"github.com/poiesic/vectorflow/backfill"
	"github.com/poiesic/vectorflow/cdc"
	"github.com/poiesic/vectorflow/codec"
	"github.com/poiesic/vectorflow/ingestion"
	"github.com/poiesic/vectorflow/sink"
	"github.com/poiesic/vectorflow/storage"
	"github.com/poiesic/vectorflow/storage/badger"
	"github.com/poiesic/vectorflow/stream"
	"github.com/poiesic/vectorflow/vectorstore"
	"github.com/poiesic/vectorflow/vectorstore/pinecone"
)

// ErrStateRequired is returned when neither a state path nor in-memory state is configured.
var ErrStateRequired = errors.New("state path required")

type Engine struct {
	state       *badger.Backend
	checkpoints storage.CheckpointRepository
	backend     vectorstore.Backend
	client      *vectorstore.Client
	provider    ai.Provider
	logger      *slog.Logger
}

// Option configures an Engine.
type Option func(*options)

type options struct {
	aiConfig       *ai.Config
	provider       ai.Provider
	pineconeConfig *pinecone.Config
	statePath      string
	inMemory       bool
	logger         *slog.Logger
}

// WithAIConfig sets the embedding provider configuration.
func WithAIConfig(cfg *ai.Config) Option {
	return func(o *options) {
		o.aiConfig = cfg
	}
}

// WithProvider uses provider instead of creating one from the AI config.
// The engine takes ownership and closes it.
func WithProvider(provider ai.Provider) Option {
	return func(o *options) {
		o.provider = provider
	}
}

// WithPinecone writes vectors to Pinecone instead of the local store.
func WithPinecone(cfg *pinecone.Config) Option {
	return func(o *options) {
		o.pineconeConfig = cfg
	}
}

// WithStatePath sets the directory of the local store.
func WithStatePath(path string) Option {
	return func(o *options) {
		o.statePath = path
	}
}

// WithInMemoryState keeps local state in memory; it is lost on Close.
func WithInMemoryState() Option {
	return func(o *options) {
		o.inMemory = true
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// NewEngine opens local state and connects the vector store and embedding provider.
//
// Local state always holds backfill checkpoints. Vectors go to Pinecone when
// WithPinecone is given and to the local store otherwise.
func NewEngine(opts ...Option) (*Engine, error) {
	o := &options{
		aiConfig: ai.DefaultConfig(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.statePath == "" && !o.inMemory {
		return nil, ErrStateRequired
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}

	state, err := badger.OpenBackend(o.statePath, o.inMemory)
	if err != nil {
		return nil, err
	}

	var backend vectorstore.Backend = state
	if o.pineconeConfig != nil {
		backend, err = pinecone.NewBackend(o.pineconeConfig)
		if err != nil {
			state.Close()
			return nil, err
		}
	}

	client, err := vectorstore.NewClient(backend, vectorstore.WithLogger(o.logger))
	if err != nil {
		state.Close()
		return nil, err
	}

	provider := o.provider
	if provider == nil {
		provider, err = openai.NewProvider(o.aiConfig)
		if err != nil {
			state.Close()
			return nil, err
		}
	}

	return &Engine{
		state:       state,
		checkpoints: badger.NewCheckpointRepository(state),
		backend:     backend,
		client:      client,
		provider:    provider,
		logger:      o.logger,
	}, nil
}

func (e *Engine) Close() error {
	if err := e.provider.Close(); err != nil {
		e.logger.Error("error closing AI provider", "err", err)
	}

	if err := e.state.Close(); err != nil {
		e.logger.Error("error closing local state", "err", err)
		return err
	}
	return nil
}

func (e *Engine) Client() *vectorstore.Client {
	return e.client
}

func (e *Engine) Embedder() ai.Embedder {
	return e.provider.Embedder()
}

func (e *Engine) CheckpointRepository() storage.CheckpointRepository {
	return e.checkpoints
}

// VectorReader returns the local store reader, or false when vectors are written to Pinecone.
func (e *Engine) VectorReader() (storage.VectorReader, bool) {
	if local, ok := e.backend.(*badger.Backend); ok {
		return local, true
	}
	return nil, false
}

func (e *Engine) NewStage(mapper *cdc.Mapper, serializer codec.Serializer, producer stream.Producer, index string, opts ...ingestion.StageOption) (*ingestion.Stage, error) {
	opts = append([]ingestion.StageOption{ingestion.WithStageLogger(e.logger)}, opts...)
	return ingestion.NewStage(mapper, e.provider.Embedder(), serializer, producer, index, opts...)
}

func (e *Engine) NewSink(consumer stream.Consumer, decoder codec.Deserializer, config *sink.Config) (*sink.Sink, error) {
	return sink.NewSink(consumer, decoder, e.client, config, e.logger)
}

func (e *Engine) NewBackfiller(source backfill.Source, mapper *cdc.Mapper, config *backfill.Config, opts ...backfill.Option) (*backfill.Backfiller, error) {
	opts = append([]backfill.Option{backfill.WithCheckpoints(e.checkpoints), backfill.WithLogger(e.logger)}, opts...)
	return backfill.New(source, mapper, e.provider.Embedder(), e.client, config, opts...)
}
