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
	"regexp"
	"strings"
)

var (
	// One to three capitalized words.
	namePhraseRegex = regexp.MustCompile(`\b[A-Z][a-z]+(?:\s[A-Z][a-z]+){0,2}\b`)
	// Individual name-like words inside a rejected phrase.
	nameWordRegex = regexp.MustCompile(`\b[A-Za-z][a-z]{2,}\b`)
)

// minNameWordLen is the shortest word accepted as part of a name phrase.
const minNameWordLen = 3

var defaultStopWords = []string{
	"has", "been", "was", "were", "is", "are", "the", "a", "an", "and", "or",
	"to", "of", "in", "on", "at", "by", "with", "from",
	"laidoff", "layoff", "layoffs", "downsizing", "termination", "terminated",
	"redundancy", "fired", "let", "go",
}

// NameHeuristic is the capitalized-word person-name detector. A phrase is
// accepted only when every word is at least three letters long and is not a
// stop word. A rejected phrase is re-scanned for single name-like words,
// which are reported individually.
type NameHeuristic struct {
	stopWords map[string]struct{}
	priority  int
}

// NewNameHeuristic builds the heuristic with the default stop-word list plus
// any extra words supplied.
func NewNameHeuristic(extraStopWords ...string) *NameHeuristic {
	h := &NameHeuristic{
		stopWords: make(map[string]struct{}, len(defaultStopWords)+len(extraStopWords)),
		priority:  Priority(CategoryPersonName),
	}
	for _, w := range defaultStopWords {
		h.stopWords[w] = struct{}{}
	}
	for _, w := range extraStopWords {
		h.stopWords[strings.ToLower(w)] = struct{}{}
	}
	return h
}

// IsStopWord reports whether w is ignored by the heuristic.
func (h *NameHeuristic) IsStopWord(w string) bool {
	_, ok := h.stopWords[strings.ToLower(w)]
	return ok
}

func (h *NameHeuristic) acceptPhrase(phrase string) bool {
	for _, w := range strings.Fields(phrase) {
		if len(w) < minNameWordLen || h.IsStopWord(w) {
			return false
		}
	}
	return true
}

// Phrases returns the locations of candidate name phrases, before filtering.
func (h *NameHeuristic) Phrases(text string) []Location {
	var locs []Location
	for _, loc := range namePhraseRegex.FindAllStringIndex(text, -1) {
		locs = append(locs, Location{Start: loc[0], End: loc[1]})
	}
	return locs
}

// Filter applies the stop-word policy to a single phrase location. It
// returns the phrase itself when accepted, or the fallback single-word
// locations (possibly none) when rejected.
func (h *NameHeuristic) Filter(text string, phrase Location) []Location {
	value := text[phrase.Start:phrase.End]
	if h.acceptPhrase(value) {
		return []Location{phrase}
	}

	var words []Location
	for _, loc := range nameWordRegex.FindAllStringIndex(value, -1) {
		if h.IsStopWord(value[loc[0]:loc[1]]) {
			continue
		}
		words = append(words, Location{Start: phrase.Start + loc[0], End: phrase.Start + loc[1]})
	}
	return words
}
