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

// Package redaction rewrites text so that resolved sensitive values are
// replaced by category placeholders.
package redaction

import (
	"sort"
	"strings"

	"github.com/altairalabs/secureflow/pkg/detect"
)

// Event records one distinct value that was redacted.
type Event struct {
	// Category of the redacted value.
	Category detect.Category
	// Original is the redacted value (only populated in audit mode).
	Original string
	// Occurrences is how many times the value was replaced in the text.
	Occurrences int
}

// Allower decides which categories are redacted. masking.Set satisfies it.
type Allower interface {
	Has(c detect.Category) bool
}

// Redactor applies a resolved tag set to a text.
type Redactor interface {
	// Redact replaces every occurrence of each allowed tag's value. Neither
	// text nor tags are modified. A nil allower redacts every tag.
	Redact(text string, tags []detect.Span, allowed Allower) (string, []Event)
}

// Option configures a redactor.
type Option func(*redactor)

// WithStrategy selects the replacement rendering.
func WithStrategy(s Strategy) Option {
	return func(r *redactor) {
		r.strategy = s
	}
}

// WithAuditMode enables audit mode, which populates Event.Original.
func WithAuditMode(enabled bool) Option {
	return func(r *redactor) {
		r.auditMode = enabled
	}
}

type redactor struct {
	strategy  Strategy
	auditMode bool
}

// New creates a Redactor. The default strategy is StrategyReplace.
func New(opts ...Option) Redactor {
	r := &redactor{strategy: StrategyReplace}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type target struct {
	category detect.Category
	value    string
}

// Redact is value based rather than offset based: an identical literal
// elsewhere in the text is replaced too. Values are processed longest first
// so a short value cannot corrupt a longer one that contains it.
func (r *redactor) Redact(text string, tags []detect.Span, allowed Allower) (string, []Event) {
	if text == "" || len(tags) == 0 {
		return text, nil
	}

	seen := make(map[target]bool, len(tags))
	targets := make([]target, 0, len(tags))
	for _, tag := range tags {
		if tag.Value == "" {
			continue
		}
		if allowed != nil && !allowed.Has(tag.Category) {
			continue
		}
		t := target{category: tag.Category, value: tag.Value}
		if seen[t] {
			continue
		}
		seen[t] = true
		targets = append(targets, t)
	}
	if len(targets) == 0 {
		return text, nil
	}

	sort.SliceStable(targets, func(i, j int) bool {
		if len(targets[i].value) != len(targets[j].value) {
			return len(targets[i].value) > len(targets[j].value)
		}
		return targets[i].category < targets[j].category
	})

	events := make([]Event, 0, len(targets))
	out := text
	for _, t := range targets {
		n := strings.Count(out, t.value)
		if n == 0 {
			continue
		}
		out = strings.ReplaceAll(out, t.value, applyStrategy(r.strategy, t.category, t.value))

		ev := Event{Category: t.category, Occurrences: n}
		if r.auditMode {
			ev.Original = t.value
		}
		events = append(events, ev)
	}
	return out, events
}
