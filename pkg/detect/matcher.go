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
)

// Matcher finds sensitive values in a text. Implementations must be safe for
// concurrent use and must not keep state between calls. Returned locations
// are byte ranges; empty ranges are ignored by the runner.
type Matcher interface {
	Match(text string) ([]Location, error)
}

// MatcherFunc adapts a function to the Matcher interface.
type MatcherFunc func(text string) ([]Location, error)

// Match implements Matcher.
func (f MatcherFunc) Match(text string) ([]Location, error) {
	return f(text)
}

// RegexMatcher reports every full match of a regular expression.
type RegexMatcher struct {
	re *regexp.Regexp
}

// NewRegexMatcher returns a direct-pattern matcher for re.
func NewRegexMatcher(re *regexp.Regexp) *RegexMatcher {
	return &RegexMatcher{re: re}
}

// Match implements Matcher.
func (m *RegexMatcher) Match(text string) ([]Location, error) {
	idx := m.re.FindAllStringIndex(text, -1)
	if len(idx) == 0 {
		return nil, nil
	}
	locs := make([]Location, 0, len(idx))
	for _, loc := range idx {
		if loc[1] > loc[0] {
			locs = append(locs, Location{Start: loc[0], End: loc[1]})
		}
	}
	return locs, nil
}

// Regexp returns the underlying expression.
func (m *RegexMatcher) Regexp() *regexp.Regexp {
	return m.re
}

// KeywordValueMatcher reports the value that follows a keyword rather than
// the keyword itself. The expression must contain one or more capture
// groups; the first non-empty group of each match is the reported value,
// so alternatives for quoted values should be listed before bare ones.
type KeywordValueMatcher struct {
	re *regexp.Regexp
}

// NewKeywordValueMatcher returns a keyword-plus-value matcher for re.
func NewKeywordValueMatcher(re *regexp.Regexp) *KeywordValueMatcher {
	return &KeywordValueMatcher{re: re}
}

// Match implements Matcher.
func (m *KeywordValueMatcher) Match(text string) ([]Location, error) {
	all := m.re.FindAllStringSubmatchIndex(text, -1)
	if len(all) == 0 {
		return nil, nil
	}
	var locs []Location
	for _, sub := range all {
		for g := 2; g+1 < len(sub); g += 2 {
			if sub[g] >= 0 && sub[g+1] > sub[g] {
				locs = append(locs, Location{Start: sub[g], End: sub[g+1]})
				break
			}
		}
	}
	return locs, nil
}

// ValidatedMatcher filters the locations of another matcher through a
// predicate on the matched value, e.g. a checksum.
//
// A location that fails the predicate is dropped whole; shorter runs inside
// it are not retried. For card numbers this means a Luhn-valid number glued
// to further digits (no separator or word boundary) is not reported, since
// retrying every 13..18 digit prefix of long numeric IDs would pass Luhn by
// chance for a large share of them.
type ValidatedMatcher struct {
	inner Matcher
	valid func(value string) bool
}

// NewValidatedMatcher wraps inner so only values accepted by valid are reported.
func NewValidatedMatcher(inner Matcher, valid func(value string) bool) *ValidatedMatcher {
	return &ValidatedMatcher{inner: inner, valid: valid}
}

// Match implements Matcher.
func (m *ValidatedMatcher) Match(text string) ([]Location, error) {
	locs, err := m.inner.Match(text)
	if err != nil || len(locs) == 0 {
		return nil, err
	}
	kept := locs[:0]
	for _, loc := range locs {
		if m.valid(text[loc.Start:loc.End]) {
			kept = append(kept, loc)
		}
	}
	return kept, nil
}
