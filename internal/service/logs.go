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

package service

import (
	"context"
	"fmt"
	"time"

	"github.com/altairalabs/secureflow/internal/store"
	"github.com/altairalabs/secureflow/pkg/logctx"
)

// LogView is a decrypted audit entry as shown to its owner.
type LogView struct {
	ID              string    `json:"id"`
	EventType       string    `json:"eventType"`
	SanitizedText   string    `json:"sanitizedText"`
	CategoriesFound []string  `json:"categoriesFound"`
	MaskLevel       int       `json:"maskLevel"`
	Degraded        bool      `json:"degraded"`
	Truncated       bool      `json:"truncated,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
	// Unreadable is set when the sealed fields could not be opened.
	Unreadable bool `json:"unreadable,omitempty"`
}

// LogDetail adds the sealed original prefix to a LogView.
type LogDetail struct {
	LogView
	Original string `json:"original,omitempty"`
}

// LogPage is one page of a user's logs, newest first.
type LogPage struct {
	Logs    []LogView `json:"logs"`
	Total   int64     `json:"total"`
	Limit   int       `json:"limit"`
	Offset  int       `json:"offset"`
	HasMore bool      `json:"hasMore"`
}

// StatsView is the per-user scan count summary.
type StatsView struct {
	TextScans int64 `json:"textScans"`
	FileScans int64 `json:"fileScans"`
	Total     int64 `json:"total"`
}

// ListLogs returns the caller's logs with sealed fields opened. An entry
// that fails to open is returned flagged as unreadable.
func (s *Scanner) ListLogs(ctx context.Context, username string, opts store.ListOpts) (*LogPage, error) {
	opts.Limit = clampLimit(opts.Limit)
	opts.Offset = max(opts.Offset, 0)

	start := time.Now()
	page, err := s.store.ListLogs(ctx, username, opts)
	if s.metrics != nil {
		s.metrics.RecordQuery(time.Since(start))
	}
	if err != nil {
		return nil, fmt.Errorf("list logs: %w", err)
	}

	out := &LogPage{
		Logs:    make([]LogView, 0, len(page.Entries)),
		Total:   page.Total,
		Limit:   opts.Limit,
		Offset:  opts.Offset,
		HasMore: page.HasMore,
	}
	for _, e := range page.Entries {
		view, err := s.open(e)
		if err != nil {
			s.openFailed(ctx, e.ID, err)
			view.Unreadable = true
		}
		out.Logs = append(out.Logs, view)
	}
	return out, nil
}

// GetLog returns one of the caller's logs including the original prefix.
func (s *Scanner) GetLog(ctx context.Context, username, id string) (*LogDetail, error) {
	start := time.Now()
	e, err := s.store.GetLog(ctx, id)
	if s.metrics != nil {
		s.metrics.RecordQuery(time.Since(start))
	}
	if err != nil {
		return nil, err
	}
	if e.Username != username {
		return nil, fmt.Errorf("%w: log %s belongs to another user", ErrForbidden, id)
	}

	view, err := s.open(e)
	if err != nil {
		s.openFailed(ctx, e.ID, err)
		return nil, fmt.Errorf("open log %s: %w", id, err)
	}
	detail := &LogDetail{LogView: view}
	if e.Original != nil {
		detail.Original, err = s.engine.OpenSummary(*e.Original)
		if err != nil {
			s.openFailed(ctx, e.ID, err)
			return nil, fmt.Errorf("open log %s original: %w", id, err)
		}
	}
	return detail, nil
}

// Stats returns the caller's scan counts. The counter is authoritative when
// it holds data; otherwise the store is counted and the counter reseeded.
func (s *Scanner) Stats(ctx context.Context, username string) (*StatsView, error) {
	if s.counter != nil {
		st, err := s.counter.Get(ctx, username)
		if err == nil && st.Total() > 0 {
			return statsView(st), nil
		}
		if err != nil {
			s.log.Error(err, "stats counter read failed, counting store")
		}
	}

	st, err := s.store.CountByType(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("count logs: %w", err)
	}
	if s.counter != nil && st.Total() > 0 {
		if err := s.counter.Seed(ctx, username, st); err != nil {
			s.log.Error(err, "stats counter seed failed")
		}
	}
	return statsView(st), nil
}

func (s *Scanner) open(e *store.LogEntry) (LogView, error) {
	view := LogView{
		ID:              e.ID,
		EventType:       string(e.EventType),
		CategoriesFound: []string{},
		MaskLevel:       e.MaskLevel,
		Degraded:        e.Degraded,
		Truncated:       e.Truncated,
		CreatedAt:       e.CreatedAt,
	}
	summary, err := s.engine.OpenSummary(e.Summary)
	if err != nil {
		return view, err
	}
	cats, err := s.engine.OpenCategories(e.Categories)
	if err != nil {
		return view, err
	}
	view.SanitizedText = summary
	if cats != nil {
		view.CategoriesFound = cats
	}
	return view, nil
}

func (s *Scanner) openFailed(ctx context.Context, id string, err error) {
	if s.metrics != nil {
		s.metrics.RecordOpenFailure()
	}
	logctx.LoggerWithContext(s.log, logctx.WithLogID(ctx, id)).Error(err, "sealed log could not be opened")
}

func statsView(st store.Stats) *StatsView {
	return &StatsView{TextScans: st.TextScans, FileScans: st.FileScans, Total: st.Total()}
}

func clampLimit(n int) int {
	switch {
	case n <= 0:
		return DefaultPageSize
	case n > MaxPageSize:
		return MaxPageSize
	default:
		return n
	}
}
