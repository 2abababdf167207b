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

package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-logr/logr"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const maxSidecarResponseBytes = 8 << 20

// SidecarConfig configures the extraction sidecar client.
type SidecarConfig struct {
	// BaseURL of the sidecar, e.g. "http://extractor:8000".
	BaseURL string
	// Timeout bounds each call. OCR is slow, so the default is generous.
	Timeout time.Duration
	// FailureThreshold is the consecutive failure count that opens the circuit.
	FailureThreshold uint32
	// Cooldown is how long the circuit stays open.
	Cooldown time.Duration
}

// DefaultSidecarConfig returns a configuration with sensible defaults.
func DefaultSidecarConfig(baseURL string) SidecarConfig {
	return SidecarConfig{
		BaseURL:          baseURL,
		Timeout:          60 * time.Second,
		FailureThreshold: 5,
		Cooldown:         30 * time.Second,
	}
}

type extractResponse struct {
	Text string `json:"text"`
}

// Sidecar extracts PDF text and image OCR through an HTTP sidecar. The
// document body is posted as-is with its MIME type; the sidecar answers
// {"text": "..."}.
type Sidecar struct {
	url     string
	http    *http.Client
	breaker *gobreaker.CircuitBreaker[string]
	log     logr.Logger
}

// NewSidecar creates a sidecar extractor.
func NewSidecar(cfg SidecarConfig, log logr.Logger) *Sidecar {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 5
	}
	s := &Sidecar{
		url: strings.TrimRight(cfg.BaseURL, "/") + "/extract",
		http: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		log: log.WithName("extract-sidecar"),
	}
	threshold := cfg.FailureThreshold
	s.breaker = gobreaker.NewCircuitBreaker[string](gobreaker.Settings{
		Name:    "extractor",
		Timeout: cfg.Cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			s.log.Info("circuit state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	})
	return s
}

// Extract posts the document to the sidecar.
func (s *Sidecar) Extract(ctx context.Context, doc Document) (string, error) {
	text, err := s.breaker.Execute(func() (string, error) {
		return s.do(ctx, doc)
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}
	return text, nil
}

func (s *Sidecar) do(ctx context.Context, doc Document) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(doc.Data))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", doc.MIMEType)
	if doc.Name != "" {
		req.Header.Set("X-Filename", doc.Name)
	}

	resp, err := s.http.Do(req)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxSidecarResponseBytes))
		return "", fmt.Errorf("sidecar returned status %d", resp.StatusCode)
	}

	var out extractResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxSidecarResponseBytes)).Decode(&out); err != nil {
		return "", fmt.Errorf("decode sidecar response: %w", err)
	}
	return out.Text, nil
}
