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

package stream

import (
	"errors"
	"strings"
	"time"
)

// Config holds the broker connection settings.
type Config struct {
	// Brokers lists bootstrap broker addresses.
	// Example: []string{"localhost:9092"}
	Brokers []string

	// GroupID is the consumer group readers join.
	GroupID string

	// MinBytes and MaxBytes bound the size of fetch responses.
	MinBytes int
	MaxBytes int

	// BatchTimeout is how long the writer waits to fill a batch before sending.
	BatchTimeout time.Duration
}

// ConfigOption is a functional option for configuring a Config.
type ConfigOption func(*Config)

// WithBrokers sets the bootstrap brokers. A single comma separated string is split.
func WithBrokers(brokers ...string) ConfigOption {
	return func(c *Config) {
		c.Brokers = nil
		for _, b := range brokers {
			for _, part := range strings.Split(b, ",") {
				if part = strings.TrimSpace(part); part != "" {
					c.Brokers = append(c.Brokers, part)
				}
			}
		}
	}
}

// WithGroupID sets the consumer group.
func WithGroupID(group string) ConfigOption {
	return func(c *Config) {
		c.GroupID = group
	}
}

// WithBatchTimeout sets the writer batch timeout.
func WithBatchTimeout(d time.Duration) ConfigOption {
	return func(c *Config) {
		c.BatchTimeout = d
	}
}

// DefaultConfig returns a Config for a local single-broker cluster.
func DefaultConfig() *Config {
	return &Config{
		Brokers:      []string{"localhost:9092"},
		GroupID:      "vectorflow",
		MinBytes:     1,
		MaxBytes:     10e6,
		BatchTimeout: 10 * time.Millisecond,
	}
}

// NewConfig creates a Config with the default values and applies the provided options.
func NewConfig(opts ...ConfigOption) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Validate checks that the configuration is valid and complete.
func (c *Config) Validate() error {
	if len(c.Brokers) == 0 {
		return errors.New("stream config: at least one broker is required")
	}
	if c.GroupID == "" {
		return errors.New("stream config: GroupID is required")
	}
	if c.MinBytes < 1 || c.MaxBytes < c.MinBytes {
		return errors.New("stream config: MinBytes must be positive and not exceed MaxBytes")
	}
	return nil
}
