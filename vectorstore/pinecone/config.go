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

package pinecone

import (
	"errors"
	"strings"
)

// Config holds the connection settings for a Pinecone project.
// It is established once and owned by the Backend created from it.
type Config struct {
	// APIKey authenticates against the Pinecone control and data planes.
	APIKey string

	// Cloud is the serverless cloud provider new indexes are created in.
	// Example: "aws", "gcp", "azure"
	Cloud string

	// Region is the serverless region new indexes are created in.
	// Example: "us-east-1"
	Region string

	// Metric is the similarity metric for new indexes.
	// One of "cosine", "dotproduct", "euclidean". Default: "cosine"
	Metric string

	// Host overrides the control plane URL. Empty uses the Pinecone API.
	Host string
}

// ConfigOption is a functional option for configuring a Config.
type ConfigOption func(*Config)

// WithAPIKey sets the API key.
func WithAPIKey(key string) ConfigOption {
	return func(c *Config) {
		c.APIKey = key
	}
}

// WithCloud sets the serverless cloud provider.
func WithCloud(cloud string) ConfigOption {
	return func(c *Config) {
		c.Cloud = cloud
	}
}

// WithRegion sets the serverless region.
func WithRegion(region string) ConfigOption {
	return func(c *Config) {
		c.Region = region
	}
}

// WithMetric sets the similarity metric used when creating indexes.
func WithMetric(metric string) ConfigOption {
	return func(c *Config) {
		c.Metric = metric
	}
}

// WithHost sets the control plane URL.
func WithHost(host string) ConfigOption {
	return func(c *Config) {
		c.Host = host
	}
}

// DefaultConfig returns a Config for serverless indexes on AWS us-east-1.
func DefaultConfig() *Config {
	return &Config{
		Cloud:  "aws",
		Region: "us-east-1",
		Metric: "cosine",
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

// Validate checks that the configuration is complete.
func (c *Config) Validate() error {
	c.Cloud = strings.ToLower(strings.TrimSpace(c.Cloud))
	c.Metric = strings.ToLower(strings.TrimSpace(c.Metric))

	if c.APIKey == "" {
		return errors.New("pinecone config: APIKey is required")
	}
	if c.Cloud == "" {
		return errors.New("pinecone config: Cloud is required")
	}
	if c.Region == "" {
		return errors.New("pinecone config: Region is required")
	}
	switch c.Metric {
	case "cosine", "dotproduct", "euclidean":
	default:
		return errors.New("pinecone config: Metric must be one of cosine, dotproduct, euclidean")
	}
	return nil
}
