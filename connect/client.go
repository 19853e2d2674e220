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

// Package connect provisions change-data-capture connectors through the
// Kafka Connect REST API.
package connect

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/poiesic/vectorflow/retry"
)

const (
	defaultAttempts     = 15
	defaultRetryDelay   = time.Second
	defaultMaxDelay     = 10 * time.Second
	defaultPollInterval = time.Second
)

// Connector is a connector registration as accepted by POST /connectors.
type Connector struct {
	Name   string            `json:"name"`
	Config map[string]string `json:"config"`
}

// Client talks to one Kafka Connect server.
type Client struct {
	baseURL      string
	http         *http.Client
	logger       *slog.Logger
	attempts     int
	retryDelay   time.Duration
	pollInterval time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithRetry sets how often registration is attempted while the server is unreachable.
func WithRetry(attempts int, baseDelay time.Duration) Option {
	return func(c *Client) {
		c.attempts = attempts
		c.retryDelay = baseDelay
	}
}

// WithPollInterval sets how often WaitReady checks the connector.
func WithPollInterval(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.pollInterval = d
		}
	}
}

// NewClient creates a client for the Kafka Connect server at baseURL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid kafka connect url %q", baseURL)
	}

	c := &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		http:         &http.Client{Timeout: 30 * time.Second},
		logger:       slog.Default(),
		attempts:     defaultAttempts,
		retryDelay:   defaultRetryDelay,
		pollInterval: defaultPollInterval,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "connect")
	return c, nil
}

// RegisterConnector creates connector.
//
// Only connection failures are retried. A 409 response fails with
// ErrConnectorExists and any other non-2xx response with ErrConnectorRejected
// carrying the response body.
func (c *Client) RegisterConnector(ctx context.Context, connector Connector) error {
	body, err := json.Marshal(connector)
	if err != nil {
		return fmt.Errorf("encode connector %s: %w", connector.Name, err)
	}

	err = retry.WithBackoff(ctx, func() error {
		return c.postConnector(ctx, body)
	}, c.attempts, c.retryDelay,
		retry.If(func(err error) bool { return errors.Is(err, ErrUnavailable) }),
		retry.WithMaxDelay(defaultMaxDelay),
		retry.WithLogger(c.logger))
	if err != nil {
		return fmt.Errorf("register connector %s: %w", connector.Name, err)
	}

	c.logger.Info("connector created", "connector", connector.Name)
	return nil
}

func (c *Client) postConnector(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/connectors", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusConflict:
		return ErrConnectorExists
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	default:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		return fmt.Errorf("%w: %s: %s", ErrConnectorRejected, resp.Status, strings.TrimSpace(string(msg)))
	}
}

// WaitReady polls GET /connectors/<name> until it answers 200 or timeout passes.
func (c *Client) WaitReady(ctx context.Context, name string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		ready, err := c.connectorExists(ctx, name)
		if ready {
			c.logger.Info("connector ready", "connector", name)
			return nil
		}
		if err != nil {
			c.logger.Debug("connector not ready", "connector", name, "err", err)
		}

		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return fmt.Errorf("%w: %s after %v", ErrNotReady, name, timeout)
			}
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (c *Client) connectorExists(ctx context.Context, name string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/connectors/"+url.PathEscape(name), nil)
	if err != nil {
		return false, err
	}
	resp, err := c.do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode == http.StatusOK, nil
}

// do sends req, reporting transport failures as ErrUnavailable.
func (c *Client) do(req *http.Request) (*http.Response, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return resp, nil
}
