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

// Package masking maps a numeric sensitivity level to the set of
// categories that must be redacted.
package masking

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/altairalabs/secureflow/pkg/detect"
)

// Level bounds.
const (
	MinLevel = 10
	MaxLevel = 100
)

// ErrInvalidTable is returned when a policy table is malformed.
var ErrInvalidTable = errors.New("invalid masking table")

// Step adds categories to the allow-set once the level reaches Threshold.
type Step struct {
	Threshold  int
	Categories []detect.Category
}

// Table is an immutable masking policy: ordered steps plus an always-on set.
type Table struct {
	steps    []Step
	alwaysOn map[detect.Category]bool
	// allowed caches the allow-set for each threshold.
	allowed map[int]Set
}

// Set is a read-only set of categories.
type Set map[detect.Category]bool

// Has reports whether c is in the set.
func (s Set) Has(c detect.Category) bool {
	return s[c]
}

// Sorted returns the members in lexical order.
func (s Set) Sorted() []detect.Category {
	out := make([]detect.Category, 0, len(s))
	for c := range s {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// DefaultAlwaysOn are the categories redacted at every level: sensitive
// personal attributes, corporate confidential markers and inferential risks.
var DefaultAlwaysOn = []detect.Category{
	detect.CategoryMedicalCondition,
	detect.CategoryPoliticalOpinion,
	detect.CategoryReligion,
	detect.CategorySexualOrientation,
	detect.CategoryFinancialStatus,
	detect.CategoryEmploymentProblem,
	detect.CategoryCorporateConfidential,
	detect.CategoryProjectName,
	detect.CategoryMeeting,
	detect.CategoryRoadmap,
	detect.CategoryCodeSnippet,
	detect.CategorySecurityVuln,
	detect.CategoryInternalMetric,
	detect.CategoryDefenseInfo,
	detect.CategoryInferHealth,
	detect.CategoryInferFraud,
	detect.CategoryInferSupplyChain,
	detect.CategoryInferInsider,
}

// DefaultSteps is the leveled table used by the service.
var DefaultSteps = []Step{
	{10, []detect.Category{detect.CategoryEmail}},
	{20, []detect.Category{detect.CategoryPassword}},
	{30, []detect.Category{detect.CategoryPhone}},
	{40, []detect.Category{detect.CategoryURL}},
	{50, []detect.Category{detect.CategoryIPAddress}},
	{60, []detect.Category{detect.CategoryDate}},
	{70, []detect.Category{
		detect.CategoryOrgName, detect.CategoryMedicalCondition, detect.CategoryReligion,
		detect.CategorySexualOrientation, detect.CategoryPoliticalOpinion,
		detect.CategoryFinancialStatus, detect.CategoryEmploymentProblem,
	}},
	{80, []detect.Category{
		detect.CategoryAadhaar, detect.CategoryPAN, detect.CategoryPassport, detect.CategoryIFSC,
		detect.CategoryCreditCard, detect.CategoryCorporateConfidential, detect.CategoryMeeting,
		detect.CategoryProjectName, detect.CategoryRoadmap, detect.CategoryCodeSnippet,
		detect.CategorySecurityVuln, detect.CategoryInternalMetric, detect.CategoryDefenseInfo,
	}},
	{90, []detect.Category{detect.CategoryPersonName, detect.CategoryLayoff, detect.CategoryAddress}},
	{100, []detect.Category{
		detect.CategoryInferHealth, detect.CategoryInferFraud,
		detect.CategoryInferSupplyChain, detect.CategoryInferInsider,
	}},
}

// NewTable validates and builds a table. Steps must have strictly
// increasing thresholds within [MinLevel, MaxLevel] and the first step must
// start at MinLevel.
func NewTable(steps []Step, alwaysOn []detect.Category) (*Table, error) {
	if len(steps) == 0 {
		return nil, fmt.Errorf("%w: no steps", ErrInvalidTable)
	}
	if steps[0].Threshold != MinLevel {
		return nil, fmt.Errorf("%w: first threshold must be %d, got %d", ErrInvalidTable, MinLevel, steps[0].Threshold)
	}

	t := &Table{
		steps:    make([]Step, len(steps)),
		alwaysOn: make(map[detect.Category]bool, len(alwaysOn)),
		allowed:  make(map[int]Set, len(steps)),
	}
	for _, c := range alwaysOn {
		t.alwaysOn[c] = true
	}

	prev := 0
	acc := make(Set, len(alwaysOn))
	for c := range t.alwaysOn {
		acc[c] = true
	}
	for i, s := range steps {
		if s.Threshold <= prev || s.Threshold > MaxLevel {
			return nil, fmt.Errorf("%w: threshold %d out of order or range", ErrInvalidTable, s.Threshold)
		}
		prev = s.Threshold

		cats := make([]detect.Category, len(s.Categories))
		copy(cats, s.Categories)
		t.steps[i] = Step{Threshold: s.Threshold, Categories: cats}

		for _, c := range cats {
			acc[c] = true
		}
		snapshot := make(Set, len(acc))
		for c := range acc {
			snapshot[c] = true
		}
		t.allowed[s.Threshold] = snapshot
	}
	return t, nil
}

// DefaultTable returns the standard masking table.
func DefaultTable() *Table {
	t, err := NewTable(DefaultSteps, DefaultAlwaysOn)
	if err != nil {
		panic(err)
	}
	return t
}

// Thresholds returns the defined step thresholds in ascending order.
func (t *Table) Thresholds() []int {
	out := make([]int, len(t.steps))
	for i, s := range t.steps {
		out[i] = s.Threshold
	}
	return out
}

// AlwaysOn reports whether c is redacted regardless of level.
func (t *Table) AlwaysOn(c detect.Category) bool {
	return t.alwaysOn[c]
}

// Snap clamps level to [MinLevel, MaxLevel] and rounds it down to the
// nearest defined threshold.
func (t *Table) Snap(level int) int {
	level = Clamp(level)
	snapped := t.steps[0].Threshold
	for _, s := range t.steps {
		if s.Threshold > level {
			break
		}
		snapped = s.Threshold
	}
	return snapped
}

// Allowed returns the categories to redact at level. The returned set must
// not be modified. A higher level always yields a superset of a lower one.
func (t *Table) Allowed(level int) Set {
	return t.allowed[t.Snap(level)]
}

// AllowedFor is Allowed for an optional level; nil means MaxLevel.
func (t *Table) AllowedFor(level *int) Set {
	return t.Allowed(Normalize(level))
}

// Clamp bounds level to [MinLevel, MaxLevel].
func Clamp(level int) int {
	switch {
	case level < MinLevel:
		return MinLevel
	case level > MaxLevel:
		return MaxLevel
	default:
		return level
	}
}

// Normalize resolves an optional level. A missing level means MaxLevel.
func Normalize(level *int) int {
	if level == nil {
		return MaxLevel
	}
	return Clamp(*level)
}

// ParseLevel parses a level supplied as text. Empty or unparsable input
// yields MaxLevel, the most aggressive masking.
func ParseLevel(s string) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return MaxLevel
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		f, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil || math.IsNaN(f) {
			return MaxLevel
		}
		if f > MaxLevel {
			return MaxLevel
		}
		if f < MinLevel {
			return MinLevel
		}
		n = int(f)
	}
	return Clamp(n)
}
