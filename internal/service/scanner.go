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

// Package service orchestrates scans: local analysis, best-effort ML
// hints, sealed audit persistence, per-user statistics and scan events.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/altairalabs/secureflow/internal/auth"
	"github.com/altairalabs/secureflow/internal/events"
	"github.com/altairalabs/secureflow/internal/extract"
	"github.com/altairalabs/secureflow/internal/hints"
	"github.com/altairalabs/secureflow/internal/store"
	"github.com/altairalabs/secureflow/internal/tracing"
	"github.com/altairalabs/secureflow/pkg/engine"
	"github.com/altairalabs/secureflow/pkg/logctx"
	"github.com/altairalabs/secureflow/pkg/masking"
	"github.com/altairalabs/secureflow/pkg/metrics"
)

// Sentinel errors returned by the scanner.
var (
	ErrInvalidInput = errors.New("invalid input")
	ErrForbidden    = errors.New("forbidden")
)

// Pagination bounds for ListLogs.
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// MinPasswordLength is the shortest password Register accepts.
const MinPasswordLength = 8

// Counter keeps per-user scan totals outside the log store.
type Counter interface {
	Incr(ctx context.Context, username string, typ store.EventType) error
	Get(ctx context.Context, username string) (store.Stats, error)
	Seed(ctx context.Context, username string, s store.Stats) error
	Ping(ctx context.Context) error
}

// Config carries the optional collaborators of a Scanner.
type Config struct {
	// Hints defaults to hints.Noop.
	Hints hints.Hinter
	// Extractor defaults to a plain-text-only router.
	Extractor extract.Extractor
	// Publisher defaults to events.Noop.
	Publisher events.Publisher
	// Counter is optional; stats fall back to the log store.
	Counter Counter
	Metrics *metrics.AuditMetrics
	Tracing *tracing.Provider
	// Clock is used for entry timestamps. Defaults to time.Now.
	Clock func() time.Time
}

// Scanner is the application service behind the HTTP API.
type Scanner struct {
	engine    *engine.Engine
	store     store.Store
	issuer    *auth.Issuer
	hints     hints.Hinter
	extractor extract.Extractor
	publisher events.Publisher
	counter   Counter
	metrics   *metrics.AuditMetrics
	tracing   *tracing.Provider
	now       func() time.Time
	log       logr.Logger
}

// New creates a Scanner.
func New(eng *engine.Engine, st store.Store, issuer *auth.Issuer, cfg Config, log logr.Logger) (*Scanner, error) {
	if eng == nil || st == nil || issuer == nil {
		return nil, errors.New("service: engine, store and issuer are required")
	}
	s := &Scanner{
		engine:    eng,
		store:     st,
		issuer:    issuer,
		hints:     cfg.Hints,
		extractor: cfg.Extractor,
		publisher: cfg.Publisher,
		counter:   cfg.Counter,
		metrics:   cfg.Metrics,
		tracing:   cfg.Tracing,
		now:       cfg.Clock,
		log:       log.WithName("scanner"),
	}
	if s.hints == nil {
		s.hints = hints.Noop{}
	}
	if s.extractor == nil {
		s.extractor = &extract.Router{}
	}
	if s.publisher == nil {
		s.publisher = events.Noop{}
	}
	if s.tracing == nil {
		// A disabled config never fails.
		s.tracing, _ = tracing.NewProvider(context.Background(), tracing.Config{})
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s, nil
}

// ScanResult is returned by ScanText and ScanFile.
type ScanResult struct {
	LogID           string         `json:"logId"`
	SanitizedText   string         `json:"sanitizedText"`
	CategoriesFound []string       `json:"categoriesFound"`
	MaskLevel       int            `json:"maskLevel"`
	MLEntities      []hints.Entity `json:"mlEntities"`
	Degraded        bool           `json:"degraded"`
	Truncated       bool           `json:"truncated,omitempty"`
	FileName        string         `json:"fileName,omitempty"`
}

// ScanText analyzes user-supplied text. A nil level means the maximum.
func (s *Scanner) ScanText(ctx context.Context, username, text string, level *int) (*ScanResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: text is required", ErrInvalidInput)
	}
	return s.scan(ctx, username, store.EventTextScan, text, level)
}

// ScanFile extracts text from doc and analyzes it.
func (s *Scanner) ScanFile(ctx context.Context, username string, doc extract.Document, level *int) (*ScanResult, error) {
	ctx = logctx.WithStage(ctx, "extract")
	extractCtx, span := s.tracing.StartStageSpan(ctx, "extract")
	text, err := s.extractor.Extract(extractCtx, doc)
	tracing.RecordError(span, err)
	span.End()
	if err != nil {
		if errors.Is(err, extract.ErrEmptyDocument) {
			return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: no text could be extracted from %q", ErrInvalidInput, doc.Name)
	}

	res, err := s.scan(ctx, username, store.EventFileScan, text, level)
	if err != nil {
		return nil, err
	}
	res.FileName = doc.Name
	return res, nil
}

func (s *Scanner) scan(ctx context.Context, username string, typ store.EventType, text string, level *int) (*ScanResult, error) {
	ctx = logctx.WithEventType(ctx, string(typ))
	ctx, span := s.tracing.StartScanSpan(ctx, string(typ), masking.Normalize(level))
	defer span.End()

	// Both branches see the same bounded input.
	text, truncated := engine.TruncateRunes(text, s.engine.MaxInputRunes())

	var (
		analysis *engine.Result
		hinted   hints.Result
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		hctx, hspan := s.tracing.StartClientSpan(gctx, "hints.classify")
		defer hspan.End()
		hinted = s.hints.Hints(hctx, text)
		return nil
	})
	g.Go(func() error {
		_, aspan := s.tracing.StartStageSpan(gctx, "analyze")
		defer aspan.End()
		res, err := s.engine.Analyze(text, level)
		if err != nil {
			tracing.RecordError(aspan, err)
			return fmt.Errorf("analyze: %w", err)
		}
		analysis = res
		return nil
	})
	if err := g.Wait(); err != nil {
		tracing.RecordError(span, err)
		return nil, err
	}
	analysis.Truncated = analysis.Truncated || truncated

	entry := &store.LogEntry{
		ID:         uuid.NewString(),
		Username:   username,
		EventType:  typ,
		Summary:    analysis.SealedSummary,
		Categories: analysis.SealedCategories,
		Original:   analysis.SealedOriginal,
		MaskLevel:  analysis.Level,
		Degraded:   hinted.Degraded,
		Truncated:  analysis.Truncated,
		CreatedAt:  s.now().UTC(),
	}
	ctx = logctx.WithLogID(ctx, entry.ID)
	log := logctx.LoggerWithContext(s.log, ctx)

	start := time.Now()
	err := s.store.CreateLog(ctx, entry)
	if s.metrics != nil {
		s.metrics.RecordWrite(string(typ), time.Since(start), err)
	}
	if err != nil {
		tracing.RecordError(span, err)
		return nil, fmt.Errorf("persist scan log: %w", err)
	}

	if s.counter != nil {
		if err := s.counter.Incr(ctx, username, typ); err != nil {
			log.Error(err, "stats counter increment failed")
		}
	}
	s.publish(ctx, log, entry, analysis)

	tracing.AddScanResult(span, len(analysis.CategoriesFound), hinted.Degraded, analysis.Truncated)
	tracing.SetSuccess(span)
	log.V(1).Info("scan complete",
		"categories", len(analysis.CategoriesFound),
		"degraded", hinted.Degraded)

	entities := hinted.Entities
	if entities == nil {
		entities = []hints.Entity{}
	}
	return &ScanResult{
		LogID:           entry.ID,
		SanitizedText:   analysis.SanitizedText,
		CategoriesFound: analysis.CategoriesFound,
		MaskLevel:       analysis.Level,
		MLEntities:      entities,
		Degraded:        hinted.Degraded,
		Truncated:       analysis.Truncated,
	}, nil
}

// publish announces a stored scan. Failures never fail the scan.
func (s *Scanner) publish(ctx context.Context, log logr.Logger, entry *store.LogEntry, res *engine.Result) {
	redactions := 0
	for _, ev := range res.Redacted {
		redactions += ev.Occurrences
	}
	err := s.publisher.Publish(ctx, &events.ScanEvent{
		EventID:       uuid.NewString(),
		EventType:     string(entry.EventType),
		Timestamp:     entry.CreatedAt,
		LogID:         entry.ID,
		Username:      entry.Username,
		MaskLevel:     entry.MaskLevel,
		CategoryCount: len(res.CategoriesFound),
		Redactions:    redactions,
		Degraded:      entry.Degraded,
		Truncated:     entry.Truncated,
	})
	if err != nil {
		log.Error(err, "scan event publish failed")
		if s.metrics != nil {
			s.metrics.RecordPublishError(string(entry.EventType))
		}
	}
}

// Ready reports whether the store, and the counter when configured, are reachable.
func (s *Scanner) Ready(ctx context.Context) error {
	if err := s.store.Ping(ctx); err != nil {
		return fmt.Errorf("store: %w", err)
	}
	if s.counter != nil {
		if err := s.counter.Ping(ctx); err != nil {
			return fmt.Errorf("stats counter: %w", err)
		}
	}
	return nil
}
