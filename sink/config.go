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

package sink

import (
	"errors"
	"time"
)

const (
	// DefaultBatchSize is the number of records written per upsert.
	DefaultBatchSize = 1000
	// DefaultFlushInterval bounds how long a partial batch waits.
	DefaultFlushInterval = 2 * time.Second
)

// Config holds sink settings.
type Config struct {
	// Index is the destination index. It also names the topic read.
	Index string
	// Namespace within the index; empty is the default namespace.
	Namespace string
	// BatchSize is the maximum number of records per upsert.
	BatchSize int
	// FlushInterval is the longest a non-empty batch waits before it is written.
	FlushInterval time.Duration
	// EnsureIndex creates the index from the first record's dimensionality.
	EnsureIndex bool
}

// ConfigOption configures a Config.
type ConfigOption func(*Config)

// WithIndex sets the destination index.
func WithIndex(index string) ConfigOption {
	return func(c *Config) {
		c.Index = index
	}
}

// WithNamespace sets the destination namespace.
func WithNamespace(namespace string) ConfigOption {
	return func(c *Config) {
		c.Namespace = namespace
	}
}

// WithBatchSize sets the batch size.
func WithBatchSize(size int) ConfigOption {
	return func(c *Config) {
		c.BatchSize = size
	}
}

// WithFlushInterval sets the flush interval.
func WithFlushInterval(d time.Duration) ConfigOption {
	return func(c *Config) {
		c.FlushInterval = d
	}
}

// WithEnsureIndex enables index creation on the first batch.
func WithEnsureIndex(ensure bool) ConfigOption {
	return func(c *Config) {
		c.EnsureIndex = ensure
	}
}

// DefaultConfig returns a Config with the default batching.
func DefaultConfig() *Config {
	return &Config{
		BatchSize:     DefaultBatchSize,
		FlushInterval: DefaultFlushInterval,
	}
}

// NewConfig creates a Config from the defaults and opts.
func NewConfig(opts ...ConfigOption) *Config {
	c := DefaultConfig()
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.Index == "" {
		return errors.New("index is required")
	}
	if c.BatchSize < 1 {
		return errors.New("batch size must be at least 1")
	}
	if c.FlushInterval <= 0 {
		return errors.New("flush interval must be positive")
	}
	return nil
}
