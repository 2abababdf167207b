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

// Package retention purges audit entries older than the configured
// retention window, archiving them first when an archive is configured.
package retention

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/altairalabs/secureflow/internal/archive"
	"github.com/altairalabs/secureflow/internal/store"
	"github.com/altairalabs/secureflow/pkg/metrics"
)

// ErrAlreadyStarted is returned by Start on a running purger.
var ErrAlreadyStarted = errors.New("purger already started")

// Config tunes the purger.
type Config struct {
	// RetentionDays is the age after which entries are purged. Zero disables purging.
	RetentionDays int
	// Schedule is a standard cron expression or descriptor such as "@daily".
	Schedule   string
	BatchSize  int
	MaxRetries int
	RetryDelay time.Duration
	// DryRun logs what would be purged without deleting.
	DryRun bool
}

// DefaultConfig returns sensible defaults. Purging stays disabled until
// RetentionDays is set.
func DefaultConfig() Config {
	return Config{
		Schedule:   "@daily",
		BatchSize:  500,
		MaxRetries: 3,
		RetryDelay: 5 * time.Second,
	}
}

// Result summarises a purge run.
type Result struct {
	Deleted  int
	Archived int
	Batches  int
}

// Purger deletes expired audit entries on a schedule.
type Purger struct {
	store    store.LogStore
	archiver archive.Archiver // may be nil
	cfg      Config
	metrics  *metrics.RetentionMetrics
	log      *zap.SugaredLogger
	now      func() time.Time

	runMu sync.Mutex
	mu    sync.Mutex
	cron  *cron.Cron
}

// NewPurger creates a Purger. archiver and m may be nil.
func NewPurger(s store.LogStore, archiver archive.Archiver, cfg Config, m *metrics.RetentionMetrics, log *zap.SugaredLogger) (*Purger, error) {
	if cfg.RetentionDays < 0 {
		return nil, fmt.Errorf("retention days must not be negative")
	}
	if cfg.Schedule == "" {
		cfg.Schedule = DefaultConfig().Schedule
	}
	if _, err := cron.ParseStandard(cfg.Schedule); err != nil {
		return nil, fmt.Errorf("parsing cron schedule: %w", err)
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultConfig().BatchSize
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Purger{
		store:    s,
		archiver: archiver,
		cfg:      cfg,
		metrics:  m,
		log:      log,
		now:      time.Now,
	}, nil
}

// Start schedules RunOnce. Runs that overlap a previous one are skipped.
func (p *Purger) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cron != nil {
		return ErrAlreadyStarted
	}

	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := c.AddFunc(p.cfg.Schedule, func() {
		if _, err := p.RunOnce(ctx); err != nil {
			p.log.Errorw("scheduled purge failed", "error", err)
		}
	}); err != nil {
		return fmt.Errorf("scheduling purge: %w", err)
	}
	c.Start()
	p.cron = c
	p.log.Infow("retention purge scheduled", "schedule", p.cfg.Schedule, "retentionDays", p.cfg.RetentionDays)
	return nil
}

// Stop halts the schedule and waits for a running purge to finish.
func (p *Purger) Stop() {
	p.mu.Lock()
	c := p.cron
	p.cron = nil
	p.mu.Unlock()
	if c == nil {
		return
	}
	<-c.Stop().Done()
}

// RunOnce purges every entry older than the retention window.
func (p *Purger) RunOnce(ctx context.Context) (*Result, error) {
	p.runMu.Lock()
	defer p.runMu.Unlock()

	result := &Result{}
	if p.cfg.RetentionDays == 0 {
		return result, nil
	}

	cutoff := p.now().AddDate(0, 0, -p.cfg.RetentionDays)
	p.log.Infow("starting retention purge", "cutoff", cutoff, "batchSize", p.cfg.BatchSize)

	err := p.purge(ctx, cutoff, result)
	if p.metrics != nil {
		p.metrics.RecordPurge(p.now(), result.Deleted, result.Archived, err)
	}
	if err != nil {
		return result, err
	}
	p.log.Infow("retention purge complete", "deleted", result.Deleted, "archived", result.Archived, "batches", result.Batches)
	return result, nil
}

func (p *Purger) purge(ctx context.Context, cutoff time.Time, result *Result) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		entries, err := p.store.LogsOlderThan(ctx, cutoff, p.cfg.BatchSize)
		if err != nil {
			return fmt.Errorf("querying expired entries: %w", err)
		}
		if len(entries) == 0 {
			return nil
		}

		if p.cfg.DryRun {
			p.log.Infow("dry-run: would purge entries", "count", len(entries))
			result.Batches++
			return nil
		}

		if p.archiver != nil {
			if err := p.withRetry(ctx, "archive", func() error {
				return p.archiver.Archive(ctx, entries)
			}); err != nil {
				return fmt.Errorf("archiving entries: %w", err)
			}
			result.Archived += len(entries)
		}

		ids := make([]string, len(entries))
		for i, e := range entries {
			ids[i] = e.ID
		}
		var deleted int
		if err := p.withRetry(ctx, "delete", func() error {
			n, err := p.store.DeleteLogs(ctx, ids)
			deleted = n
			return err
		}); err != nil {
			return fmt.Errorf("deleting entries: %w", err)
		}
		result.Deleted += deleted
		result.Batches++

		if len(entries) < p.cfg.BatchSize {
			return nil
		}
	}
}

func (p *Purger) withRetry(ctx context.Context, operation string, fn func() error) error {
	delay := p.cfg.RetryDelay
	var lastErr error
	for attempt := 0; attempt <= p.cfg.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if attempt > 0 {
			p.log.Warnw("retrying operation", "operation", operation, "attempt", attempt, "error", lastErr)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
			delay *= 2
		}
		if lastErr = fn(); lastErr == nil {
			return nil
		}
	}
	return fmt.Errorf("%s failed after %d retries: %w", operation, p.cfg.MaxRetries, lastErr)
}
