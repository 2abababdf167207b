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

// Location is a half-open byte range [Start, End) within a text.
type Location struct {
	Start int
	End   int
}

// Span is a single detector finding. Start and Length are byte offsets into
// the UTF-8 input, so text[Start:Start+Length] == Value.
//
// Before overlap resolution a Span is a candidate; the output of Resolve is
// a set of disjoint spans ordered by Start.
type Span struct {
	Category Category `json:"category"`
	Value    string   `json:"value"`
	Start    int      `json:"start"`
	Length   int      `json:"length"`

	// priority and order are captured from the producing detector so the
	// resolver does not need access to the registry.
	priority int
	order    int
}

// End returns the exclusive end offset of the span.
func (s Span) End() int {
	return s.Start + s.Length
}

// Overlaps reports whether s and o share at least one byte.
func (s Span) Overlaps(o Span) bool {
	return !(s.End() <= o.Start || o.End() <= s.Start)
}

// Priority returns the priority the span competes with during resolution.
func (s Span) Priority() int {
	return s.priority
}

func newSpan(text string, d *Detector, loc Location) Span {
	return Span{
		Category: d.Category,
		Value:    text[loc.Start:loc.End],
		Start:    loc.Start,
		Length:   loc.End - loc.Start,
		priority: d.Priority,
		order:    d.order,
	}
}
