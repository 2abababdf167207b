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

// Package engine implements the analyze pipeline: detect, resolve, apply the
// masking policy, redact and seal the audit payloads.
package engine

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-logr/logr"

	"github.com/altairalabs/secureflow/pkg/detect"
	"github.com/altairalabs/secureflow/pkg/masking"
	"github.com/altairalabs/secureflow/pkg/redaction"
	"github.com/altairalabs/secureflow/pkg/securelog"
)

// Defaults for input bounds.
const (
	DefaultMaxInputRunes       = 20000
	DefaultOriginalPrefixRunes = 2000
)

// Observer receives a summary of every completed analysis. Implementations
// must not retain tags beyond the call.
type Observer interface {
	ObserveAnalysis(level int, elapsed time.Duration, tags []detect.Span, events []redaction.Event)
}

// Result is the outcome of one analysis.
type Result struct {
	// SanitizedText is the truncated input with allowed categories redacted.
	SanitizedText string `json:"sanitizedText"`
	// CategoriesFound lists every resolved category in order of first
	// occurrence, including categories the level did not redact.
	CategoriesFound []string `json:"categoriesFound"`
	// Level is the normalized mask level that was applied.
	Level int `json:"maskLevel"`
	// Truncated reports whether the input exceeded the rune limit.
	Truncated bool `json:"truncated,omitempty"`

	// Tags are the resolved spans over the truncated input. They hold raw
	// values and must never be persisted.
	Tags []detect.Span `json:"-"`
	// Redacted describes what the redactor replaced.
	Redacted []redaction.Event `json:"-"`

	SealedSummary    securelog.SealedRecord  `json:"-"`
	SealedCategories securelog.SealedRecord  `json:"-"`
	SealedOriginal   *securelog.SealedRecord `json:"-"`
}

// Option configures an Engine.
type Option func(*Engine)

// WithMaxInputRunes bounds the analyzed input. Values below 1 are ignored.
func WithMaxInputRunes(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxInputRunes = n
		}
	}
}

// WithSealOriginal enables sealing a prefix of the original text.
func WithSealOriginal(enabled bool) Option {
	return func(e *Engine) {
		e.sealOriginal = enabled
	}
}

// WithOriginalPrefixRunes sets how much of the original text is sealed.
func WithOriginalPrefixRunes(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.originalPrefixRunes = n
		}
	}
}

// WithLogger sets the engine logger.
func WithLogger(log logr.Logger) Option {
	return func(e *Engine) {
		e.log = log
	}
}

// WithObserver registers an analysis observer, typically scanner metrics.
func WithObserver(o Observer) Option {
	return func(e *Engine) {
		e.observer = o
	}
}

// Engine is immutable after New and safe for concurrent use.
type Engine struct {
	runner   *detect.Runner
	table    *masking.Table
	redactor redaction.Redactor
	codec    *securelog.Codec

	maxInputRunes       int
	sealOriginal        bool
	originalPrefixRunes int
	log                 logr.Logger
	observer            Observer
	now                 func() time.Time
}

// New wires an engine. A nil table or redactor falls back to the defaults;
// the runner and codec are required.
func New(runner *detect.Runner, table *masking.Table, redactor redaction.Redactor, codec *securelog.Codec, opts ...Option) (*Engine, error) {
	if runner == nil {
		return nil, fmt.Errorf("engine: detector runner is required")
	}
	if codec == nil {
		return nil, fmt.Errorf("engine: %w", securelog.ErrEncryptionKeyMissing)
	}
	if table == nil {
		table = masking.DefaultTable()
	}
	if redactor == nil {
		redactor = redaction.New()
	}

	e := &Engine{
		runner:              runner,
		table:               table,
		redactor:            redactor,
		codec:               codec,
		maxInputRunes:       DefaultMaxInputRunes,
		originalPrefixRunes: DefaultOriginalPrefixRunes,
		log:                 logr.Discard(),
		now:                 time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Table returns the masking table in use.
func (e *Engine) Table() *masking.Table {
	return e.table
}

// Registry returns the pattern registry in use.
func (e *Engine) Registry() *detect.Registry {
	return e.runner.Registry()
}

// Analyze runs the full pipeline over text at the given level. A nil level
// means the maximum. Empty text yields an empty result with sealed empty
// payloads. Only sealing can fail.
func (e *Engine) Analyze(text string, level *int) (*Result, error) {
	start := e.now()

	text = strings.ToValidUTF8(text, string(utf8.RuneError))
	text, truncated := TruncateRunes(text, e.maxInputRunes)
	lvl := e.table.Snap(masking.Normalize(level))

	tags := detect.Resolve(e.runner.Run(text))
	sanitized, events := e.redactor.Redact(text, tags, e.table.Allowed(lvl))

	categories := detect.Categories(tags)
	found := make([]string, len(categories))
	for i, c := range categories {
		found[i] = c.String()
	}

	res := &Result{
		SanitizedText:   sanitized,
		CategoriesFound: found,
		Level:           lvl,
		Truncated:       truncated,
		Tags:            tags,
		Redacted:        events,
	}
	if err := e.seal(res, text); err != nil {
		return nil, err
	}

	elapsed := e.now().Sub(start)
	if e.observer != nil {
		e.observer.ObserveAnalysis(lvl, elapsed, tags, events)
	}
	e.log.V(1).Info("analysis complete",
		"level", lvl,
		"categories", len(found),
		"redacted", len(events),
		"truncated", truncated,
		"elapsed", elapsed)
	return res, nil
}

func (e *Engine) seal(res *Result, original string) error {
	var err error
	if res.SealedSummary, err = e.codec.SealString(res.SanitizedText); err != nil {
		return fmt.Errorf("seal summary: %w", err)
	}

	cats, err := json.Marshal(res.CategoriesFound)
	if err != nil {
		return fmt.Errorf("encode categories: %w", err)
	}
	if res.SealedCategories, err = e.codec.Seal(cats); err != nil {
		return fmt.Errorf("seal categories: %w", err)
	}

	if e.sealOriginal {
		prefix, _ := TruncateRunes(original, e.originalPrefixRunes)
		rec, err := e.codec.SealString(prefix)
		if err != nil {
			return fmt.Errorf("seal original: %w", err)
		}
		res.SealedOriginal = &rec
	}
	return nil
}

// OpenSummary decrypts a sealed sanitized text.
func (e *Engine) OpenSummary(rec securelog.SealedRecord) (string, error) {
	return e.codec.OpenString(rec)
}

// OpenCategories decrypts a sealed category list.
func (e *Engine) OpenCategories(rec securelog.SealedRecord) ([]string, error) {
	data, err := e.codec.Open(rec)
	if err != nil {
		return nil, err
	}
	var cats []string
	if err := json.Unmarshal(data, &cats); err != nil {
		return nil, fmt.Errorf("%w: categories payload: %v", securelog.ErrMalformedRecord, err)
	}
	return cats, nil
}

// MaxInputRunes returns the rune bound applied to analyzed text.
func (e *Engine) MaxInputRunes() int {
	return e.maxInputRunes
}

// TruncateRunes returns the first n runes of s and whether anything was cut.
func TruncateRunes(s string, n int) (string, bool) {
	if n <= 0 || len(s) <= n {
		return s, false
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i], true
		}
		count++
	}
	return s, false
}
