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

package detect

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/go-logr/logr"
)

// ErrDetectorFault wraps a failure inside a single detector.
var ErrDetectorFault = errors.New("detector fault")

// placeholderRegex finds redaction placeholders already present in a text.
var placeholderRegex = regexp.MustCompile(`\[[A-Z][A-Z0-9_]*\]`)

// FaultHandler is notified when a detector fails. The detector's findings
// for that text are discarded; the other detectors still run.
type FaultHandler func(d Detector, err error)

// Runner applies every detector of a registry to a text.
type Runner struct {
	registry     *Registry
	log          logr.Logger
	onFault      FaultHandler
	placeholders map[string]bool
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithLogger sets the logger used to report detector faults.
func WithLogger(log logr.Logger) RunnerOption {
	return func(r *Runner) {
		r.log = log
	}
}

// WithFaultHandler registers a callback invoked on every detector fault.
func WithFaultHandler(h FaultHandler) RunnerOption {
	return func(r *Runner) {
		r.onFault = h
	}
}

// NewRunner creates a runner over registry.
func NewRunner(registry *Registry, opts ...RunnerOption) *Runner {
	r := &Runner{
		registry:     registry,
		log:          logr.Discard(),
		placeholders: make(map[string]bool),
	}
	for _, c := range registry.Categories() {
		r.placeholders[c.Placeholder()] = true
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Registry returns the registry the runner evaluates.
func (r *Runner) Registry() *Registry {
	return r.registry
}

// Run returns the unsorted candidate spans found in text. Spans that fall
// inside an existing "[CATEGORY]" placeholder are dropped so that already
// redacted text produces no new findings.
func (r *Runner) Run(text string) []Span {
	if text == "" {
		return nil
	}

	var spans []Span
	for i := range r.registry.detectors {
		spans = append(spans, r.runDetector(&r.registry.detectors[i], text)...)
	}

	if h := r.registry.names; h != nil {
		spans = append(spans, r.runNames(h, text)...)
	}

	return r.dropPlaceholderHits(text, spans)
}

func (r *Runner) runDetector(d *Detector, text string) (spans []Span) {
	defer func() {
		if rec := recover(); rec != nil {
			spans = nil
			r.fault(*d, fmt.Errorf("%w: %s panicked: %v", ErrDetectorFault, d.Name, rec))
		}
	}()

	locs, err := d.Matcher.Match(text)
	if err != nil {
		r.fault(*d, fmt.Errorf("%w: %s: %w", ErrDetectorFault, d.Name, err))
		return nil
	}
	for _, loc := range locs {
		if !validLocation(loc, len(text)) {
			continue
		}
		spans = append(spans, newSpan(text, d, loc))
	}
	return spans
}

// runNames is the secondary person-name pass. Phrases are collected first,
// then each one is filtered and possibly split into single-word candidates.
func (r *Runner) runNames(h *NameHeuristic, text string) []Span {
	d := &Detector{
		Name:     "person_name",
		Category: CategoryPersonName,
		Priority: h.priority,
		order:    len(r.registry.detectors),
	}

	var spans []Span
	for _, phrase := range h.Phrases(text) {
		for _, loc := range h.Filter(text, phrase) {
			if validLocation(loc, len(text)) {
				spans = append(spans, newSpan(text, d, loc))
			}
		}
	}
	return spans
}

func (r *Runner) dropPlaceholderHits(text string, spans []Span) []Span {
	var guards []Span
	for _, loc := range placeholderRegex.FindAllStringIndex(text, -1) {
		if r.placeholders[text[loc[0]:loc[1]]] {
			guards = append(guards, Span{Start: loc[0], Length: loc[1] - loc[0]})
		}
	}
	if len(guards) == 0 {
		return spans
	}

	kept := spans[:0]
	for _, s := range spans {
		hit := false
		for _, g := range guards {
			if s.Overlaps(g) {
				hit = true
				break
			}
		}
		if !hit {
			kept = append(kept, s)
		}
	}
	return kept
}

func (r *Runner) fault(d Detector, err error) {
	r.log.Error(err, "detector failed, skipping", "detector", d.Name, "category", d.Category)
	if r.onFault != nil {
		r.onFault(d, err)
	}
}

func validLocation(loc Location, n int) bool {
	return loc.Start >= 0 && loc.End > loc.Start && loc.End <= n
}
