/*
Copyright 2026 Altaira Labs.

SPDX-License-Identifier: Apache-2.0

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package hints calls an external entity classifier. Its output is
// advisory: it is returned to the caller alongside the local analysis but
// never redacted, sealed or persisted. Every failure is absorbed and
// reported as a degraded result.
package hints

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"
)

// Failure reasons reported through the failure recorder.
const (
	ReasonRateLimited = "rate_limited"
	ReasonCircuitOpen = "circuit_open"
	ReasonTimeout     = "timeout"
	ReasonUnreachable = "unreachable"
	ReasonStatus      = "status"
	ReasonDecode      = "decode"
)

const maxResponseBytes = 1 << 20

var (
	// ErrRateLimited is returned when the outbound rate limit is exhausted.
	ErrRateLimited = errors.New("hints: rate limited")
	// ErrUnexpectedStatus is returned for a non-200 classifier response.
	ErrUnexpectedStatus = errors.New("hints: unexpected status")
	// ErrDecode is returned when the classifier response is not valid JSON.
	ErrDecode = errors.New("hints: decode response")
)

// Entity is one classifier finding. Offsets are whatever the classifier
// reports and are not trusted.
type Entity struct {
	Label string  `json:"label"`
	Text  string  `json:"text"`
	Start int     `json:"start"`
	End   int     `json:"end"`
	Score float64 `json:"score,omitempty"`
}

// Result is the fail-soft outcome of a hint request.
type Result struct {
	Entities []Entity
	// Degraded is set when the classifier could not be consulted.
	Degraded bool
	// Reason is the failure reason when Degraded is set.
	Reason string
}

// Hinter produces advisory entity hints.
type Hinter interface {
	Hints(ctx context.Context, text string) Result
}

// Noop is a Hinter used when no classifier is configured.
type Noop struct{}

// Hints returns an empty, non-degraded result.
func (Noop) Hints(context.Context, string) Result {
	return Result{}
}

type analyzeRequest struct {
	Text string `json:"text"`
}

type analyzeResponse struct {
	Entities []Entity `json:"entities"`
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout bounds each classifier call.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithRateLimit caps outbound requests per second. Zero disables the limit.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithBreakerThreshold sets how many consecutive failures open the circuit.
func WithBreakerThreshold(n uint32) Option {
	return func(c *Client) {
		if n > 0 {
			c.breakerThreshold = n
		}
	}
}

// WithBreakerCooldown sets how long the circuit stays open.
func WithBreakerCooldown(d time.Duration) Option {
	return func(c *Client) {
		c.breakerCooldown = d
	}
}

// WithLogger sets the structured logger.
func WithLogger(log *slog.Logger) Option {
	return func(c *Client) {
		if log != nil {
			c.log = log
		}
	}
}

// WithFailureRecorder registers a callback invoked with the failure reason.
func WithFailureRecorder(f func(reason string)) Option {
	return func(c *Client) {
		c.onFailure = f
	}
}

// WithHTTPClient replaces the HTTP client. Its transport is used as-is.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// Client calls the classifier's /analyze endpoint. It is safe for
// concurrent use.
type Client struct {
	url              string
	http             *http.Client
	timeout          time.Duration
	limiter          *rate.Limiter
	breaker          *gobreaker.CircuitBreaker[[]Entity]
	breakerThreshold uint32
	breakerCooldown  time.Duration
	log              *slog.Logger
	onFailure        func(reason string)
}

// New creates a Client pointing at baseURL (e.g. "http://ml-service:5000").
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		url:              strings.TrimRight(baseURL, "/") + "/analyze",
		http:             &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
		timeout:          10 * time.Second,
		breakerThreshold: 5,
		breakerCooldown:  30 * time.Second,
		log:              slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}

	threshold := c.breakerThreshold
	c.breaker = gobreaker.NewCircuitBreaker[[]Entity](gobreaker.Settings{
		Name:    "hints",
		Timeout: c.breakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.log.Warn("classifier circuit state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	})
	return c
}

// Hints consults the classifier and never fails: any error yields a
// degraded result with no entities.
func (c *Client) Hints(ctx context.Context, text string) Result {
	entities, err := c.Classify(ctx, text)
	if err == nil {
		return Result{Entities: entities}
	}

	reason := classify(err)
	c.log.Warn("classifier unavailable, continuing without hints", "reason", reason, "err", err)
	if c.onFailure != nil {
		c.onFailure(reason)
	}
	return Result{Degraded: true, Reason: reason}
}

// Classify sends text to the classifier and returns its entities.
func (c *Client) Classify(ctx context.Context, text string) ([]Entity, error) {
	if c.limiter != nil && !c.limiter.Allow() {
		return nil, ErrRateLimited
	}
	return c.breaker.Execute(func() ([]Entity, error) {
		return c.do(ctx, text)
	})
}

func (c *Client) do(ctx context.Context, text string) ([]Entity, error) {
	body, err := json.Marshal(analyzeRequest{Text: text})
	if err != nil {
		return nil, fmt.Errorf("hints: marshal: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("hints: request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("hints: call classifier: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
		return nil, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	var out analyzeResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if out.Entities == nil {
		out.Entities = []Entity{}
	}
	return out.Entities, nil
}

func classify(err error) string {
	switch {
	case errors.Is(err, ErrRateLimited):
		return ReasonRateLimited
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return ReasonCircuitOpen
	case errors.Is(err, ErrUnexpectedStatus):
		return ReasonStatus
	case errors.Is(err, ErrDecode):
		return ReasonDecode
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return ReasonTimeout
	default:
		return ReasonUnreachable
	}
}
