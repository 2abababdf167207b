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
	"sort"
)

// Resolve turns possibly-overlapping candidates into a disjoint tag set
// ordered by start offset.
//
// Candidates are ordered by start ascending, then priority descending, then
// length descending, then registry order. Each candidate is kept if it does
// not intersect a span already kept. The input slice is not modified.
func Resolve(candidates []Span) []Span {
	if len(candidates) == 0 {
		return nil
	}

	items := make([]Span, len(candidates))
	copy(items, candidates)
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if a.Start != b.Start {
			return a.Start < b.Start
		}
		if a.priority != b.priority {
			return a.priority > b.priority
		}
		if a.Length != b.Length {
			return a.Length > b.Length
		}
		return a.order < b.order
	})

	// Kept spans are appended in start order and are disjoint, so only the
	// furthest end seen so far can intersect the next candidate.
	kept := make([]Span, 0, len(items))
	maxEnd := -1
	for _, s := range items {
		if s.Length <= 0 {
			continue
		}
		if s.Start < maxEnd {
			continue
		}
		kept = append(kept, s)
		maxEnd = s.End()
	}
	return kept
}

// Categories returns the distinct categories of spans in first-seen order.
func Categories(spans []Span) []Category {
	seen := make(map[Category]bool, len(spans))
	var cats []Category
	for _, s := range spans {
		if !seen[s.Category] {
			seen[s.Category] = true
			cats = append(cats, s.Category)
		}
	}
	return cats
}
