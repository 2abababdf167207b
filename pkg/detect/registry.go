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

// Package detect finds sensitive values in free-form text. It holds the
// pattern registry, the detector runner and the overlap resolver that turns
// raw candidates into a disjoint, ordered tag set.
package detect

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// customPrefix marks an ad-hoc regular expression in a pattern name list.
const customPrefix = "custom:"

// ErrUnknownPattern is returned when a pattern name is not a built-in detector.
var ErrUnknownPattern = errors.New("unknown pattern")

// ErrInvalidPattern is returned when a custom pattern cannot be compiled.
var ErrInvalidPattern = errors.New("invalid pattern")

// Detector pairs a category with the matcher that finds it.
type Detector struct {
	// Name identifies the detector in logs and metrics.
	Name string
	// Category is the label given to every span the detector reports.
	Category Category
	// Priority ranks the detector's spans during overlap resolution.
	Priority int
	// Matcher finds the sensitive values.
	Matcher Matcher

	order int
}

// Registry is the ordered, immutable set of detectors used for a process.
// It is safe for concurrent use once built.
type Registry struct {
	detectors []Detector
	names     *NameHeuristic
	byName    map[string]int
}

type registryConfig struct {
	selected   []string
	custom     []Detector
	disabled   map[Category]bool
	noNames    bool
	stopWords  []string
	priorities map[Category]int
}

// Option configures a Registry.
type Option func(*registryConfig)

// WithPatterns restricts the registry to the named built-in detectors.
// A name of the form "custom:<regex>" adds an ad-hoc detector with
// category CUSTOM.
func WithPatterns(names ...string) Option {
	return func(c *registryConfig) {
		c.selected = append(c.selected, names...)
	}
}

// WithDetectors appends additional detectors after the built-in set.
func WithDetectors(ds ...Detector) Option {
	return func(c *registryConfig) {
		c.custom = append(c.custom, ds...)
	}
}

// WithDisabledCategories drops every detector for the given categories.
func WithDisabledCategories(cats ...Category) Option {
	return func(c *registryConfig) {
		for _, cat := range cats {
			c.disabled[cat] = true
		}
	}
}

// WithoutNameHeuristic disables the person-name pass.
func WithoutNameHeuristic() Option {
	return func(c *registryConfig) {
		c.noNames = true
	}
}

// WithStopWords extends the person-name stop-word list.
func WithStopWords(words ...string) Option {
	return func(c *registryConfig) {
		c.stopWords = append(c.stopWords, words...)
	}
}

// WithPriority overrides the resolution priority of a category.
func WithPriority(cat Category, priority int) Option {
	return func(c *registryConfig) {
		c.priorities[cat] = priority
	}
}

// NewRegistry builds a registry. Without options it contains every built-in
// detector plus the person-name heuristic.
func NewRegistry(opts ...Option) (*Registry, error) {
	cfg := &registryConfig{
		disabled:   make(map[Category]bool),
		priorities: make(map[Category]int),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	detectors, err := selectDetectors(cfg.selected)
	if err != nil {
		return nil, err
	}
	detectors = append(detectors, cfg.custom...)

	r := &Registry{byName: make(map[string]int, len(detectors))}
	for _, d := range detectors {
		if cfg.disabled[d.Category] {
			continue
		}
		if d.Matcher == nil {
			return nil, fmt.Errorf("%w: detector %q has no matcher", ErrInvalidPattern, d.Name)
		}
		if p, ok := cfg.priorities[d.Category]; ok {
			d.Priority = p
		}
		if _, dup := r.byName[d.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate detector name %q", ErrInvalidPattern, d.Name)
		}
		d.order = len(r.detectors)
		r.byName[d.Name] = d.order
		r.detectors = append(r.detectors, d)
	}

	if !cfg.noNames && !cfg.disabled[CategoryPersonName] {
		r.names = NewNameHeuristic(cfg.stopWords...)
		if p, ok := cfg.priorities[CategoryPersonName]; ok {
			r.names.priority = p
		}
	}
	return r, nil
}

// MustNewRegistry is like NewRegistry but panics on error.
func MustNewRegistry(opts ...Option) *Registry {
	r, err := NewRegistry(opts...)
	if err != nil {
		panic(err)
	}
	return r
}

func selectDetectors(names []string) ([]Detector, error) {
	builtins := builtinDetectors()
	if len(names) == 0 {
		return builtins, nil
	}

	index := make(map[string]Detector, len(builtins))
	for _, d := range builtins {
		index[d.Name] = d
	}

	selected := make([]Detector, 0, len(names))
	for i, name := range names {
		if expr, ok := strings.CutPrefix(name, customPrefix); ok {
			re, err := regexp.Compile(expr)
			if err != nil {
				return nil, fmt.Errorf("%w %q: %v", ErrInvalidPattern, expr, err)
			}
			selected = append(selected, Detector{
				Name:     fmt.Sprintf("custom_%d", i),
				Category: CategoryCustom,
				Priority: Priority(CategoryCustom),
				Matcher:  NewRegexMatcher(re),
			})
			continue
		}
		d, ok := index[name]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownPattern, name)
		}
		selected = append(selected, d)
	}
	return selected, nil
}

// Detectors returns a copy of the registry's detectors in evaluation order.
func (r *Registry) Detectors() []Detector {
	out := make([]Detector, len(r.detectors))
	copy(out, r.detectors)
	return out
}

// Detector returns the detector registered under name.
func (r *Registry) Detector(name string) (Detector, bool) {
	i, ok := r.byName[name]
	if !ok {
		return Detector{}, false
	}
	return r.detectors[i], true
}

// NameHeuristic returns the person-name heuristic, or nil when disabled.
func (r *Registry) NameHeuristic() *NameHeuristic {
	return r.names
}

// Categories returns the distinct categories the registry can report, in
// registry order.
func (r *Registry) Categories() []Category {
	seen := make(map[Category]bool, len(r.detectors)+1)
	var cats []Category
	for _, d := range r.detectors {
		if !seen[d.Category] {
			seen[d.Category] = true
			cats = append(cats, d.Category)
		}
	}
	if r.names != nil && !seen[CategoryPersonName] {
		cats = append(cats, CategoryPersonName)
	}
	return cats
}

// BuiltinNames lists the names of the built-in detectors in registry order.
func BuiltinNames() []string {
	ds := builtinDetectors()
	names := make([]string, len(ds))
	for i, d := range ds {
		names[i] = d.Name
	}
	return names
}
