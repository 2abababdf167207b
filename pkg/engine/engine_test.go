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

package engine

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/altairalabs/secureflow/pkg/detect"
	"github.com/altairalabs/secureflow/pkg/masking"
	"github.com/altairalabs/secureflow/pkg/redaction"
	"github.com/altairalabs/secureflow/pkg/securelog"
)

func newTestEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	key, err := securelog.GenerateKey()
	require.NoError(t, err)
	codec, err := securelog.NewCodec(key)
	require.NoError(t, err)

	e, err := New(detect.NewRunner(detect.MustNewRegistry()), nil, nil, codec, opts...)
	require.NoError(t, err)
	return e
}

func level(n int) *int { return &n }

func TestAnalyze_Scenarios(t *testing.T) {
	e := newTestEngine(t)

	tests := []struct {
		name       string
		text       string
		level      *int
		sanitized  string
		categories []string
	}{
		{
			name:       "email and phone at 30",
			text:       "Contact me at jane.doe@example.com or 9876543210",
			level:      level(30),
			sanitized:  "Contact me at [EMAIL] or [PHONE]",
			categories: []string{"PERSON_NAME", "EMAIL", "PHONE"},
		},
		{
			name:       "PAN detected but kept at 10",
			text:       "My PAN is ABCDE1234F",
			level:      level(10),
			sanitized:  "My PAN is ABCDE1234F",
			categories: []string{"PAN"},
		},
		{
			name:       "password value only",
			text:       "password: hunter2",
			level:      level(20),
			sanitized:  "password: [PASSWORD]",
			categories: []string{"PASSWORD"},
		},
		{
			name:       "password kept below 20",
			text:       "password: hunter2",
			level:      level(10),
			sanitized:  "password: hunter2",
			categories: []string{"PASSWORD"},
		},
		{
			name:       "org beats person",
			text:       "Acme Technologies confidential roadmap",
			level:      nil,
			sanitized:  "[ORG_NAME] [CORPORATE_CONFIDENTIAL] [ROADMAP]",
			categories: []string{"ORG_NAME", "CORPORATE_CONFIDENTIAL", "ROADMAP"},
		},
		{
			name:       "always-on at lowest level",
			text:       "Acme Technologies confidential roadmap",
			level:      level(10),
			sanitized:  "Acme Technologies [CORPORATE_CONFIDENTIAL] [ROADMAP]",
			categories: []string{"ORG_NAME", "CORPORATE_CONFIDENTIAL", "ROADMAP"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := e.Analyze(tt.text, tt.level)
			require.NoError(t, err)
			assert.Equal(t, tt.sanitized, res.SanitizedText)
			assert.Equal(t, tt.categories, res.CategoriesFound)

			summary, err := e.OpenSummary(res.SealedSummary)
			require.NoError(t, err)
			assert.Equal(t, tt.sanitized, summary)

			cats, err := e.OpenCategories(res.SealedCategories)
			require.NoError(t, err)
			assert.Equal(t, tt.categories, cats)
			assert.Nil(t, res.SealedOriginal)
		})
	}
}

func TestAnalyze_ProseAcrossLinesKeepsIdentifiers(t *testing.T) {
	e := newTestEngine(t)
	text := "Please select a plan.\nMy PAN is ABCDE1234F and mail jane.doe@example.com\nWe heard from you."

	res, err := e.Analyze(text, nil)
	require.NoError(t, err)
	assert.Contains(t, res.CategoriesFound, "PAN")
	assert.Contains(t, res.CategoriesFound, "EMAIL")
	assert.NotContains(t, res.CategoriesFound, "CODE_SNIPPET")
	assert.Contains(t, res.SanitizedText, "[PAN]")
	assert.Contains(t, res.SanitizedText, "[EMAIL]")
	assert.NotContains(t, res.SanitizedText, "jane.doe@example.com")
}

func TestAnalyze_LevelNormalization(t *testing.T) {
	e := newTestEngine(t)
	tests := []struct {
		in   *int
		want int
	}{
		{nil, 100},
		{level(-4), 10},
		{level(37), 30},
		{level(500), 100},
	}
	for _, tt := range tests {
		res, err := e.Analyze("hello", tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, res.Level)
	}
}

func TestAnalyze_EmptyText(t *testing.T) {
	e := newTestEngine(t)
	res, err := e.Analyze("", nil)
	require.NoError(t, err)
	assert.Empty(t, res.SanitizedText)
	assert.NotNil(t, res.CategoriesFound)
	assert.Empty(t, res.CategoriesFound)
	assert.Empty(t, res.Tags)

	summary, err := e.OpenSummary(res.SealedSummary)
	require.NoError(t, err)
	assert.Empty(t, summary)

	cats, err := e.OpenCategories(res.SealedCategories)
	require.NoError(t, err)
	assert.Empty(t, cats)
}

func TestAnalyze_Idempotent(t *testing.T) {
	e := newTestEngine(t)
	texts := []string{
		"Contact me at jane.doe@example.com or 9876543210",
		"My PAN is ABCDE1234F",
		"password: hunter2",
		"Acme Technologies confidential roadmap",
		"Meeting at 10 with Jane Smith about Project Phoenix",
	}

	rapid.Check(t, func(rt *rapid.T) {
		text := rapid.SampledFrom(texts).Draw(rt, "text")
		lvl := rapid.IntRange(0, 110).Draw(rt, "level")

		first, err := e.Analyze(text, &lvl)
		if err != nil {
			rt.Fatalf("first pass: %v", err)
		}
		second, err := e.Analyze(first.SanitizedText, &lvl)
		if err != nil {
			rt.Fatalf("second pass: %v", err)
		}
		if first.SanitizedText != second.SanitizedText {
			rt.Fatalf("not idempotent at %d: %q -> %q", lvl, first.SanitizedText, second.SanitizedText)
		}
	})
}

func TestAnalyze_Truncation(t *testing.T) {
	e := newTestEngine(t, WithMaxInputRunes(5))
	res, err := e.Analyze("héllo world", nil)
	require.NoError(t, err)
	assert.True(t, res.Truncated)
	assert.Equal(t, "héllo", res.SanitizedText)
}

func TestAnalyze_InvalidUTF8(t *testing.T) {
	e := newTestEngine(t)
	res, err := e.Analyze("mail a@b.io \xff", nil)
	require.NoError(t, err)
	assert.Equal(t, "mail [EMAIL] �", res.SanitizedText)
}

func TestAnalyze_SealOriginalPrefix(t *testing.T) {
	key, err := securelog.GenerateKey()
	require.NoError(t, err)
	codec, err := securelog.NewCodec(key)
	require.NoError(t, err)

	e, err := New(detect.NewRunner(detect.MustNewRegistry()), masking.DefaultTable(), redaction.New(), codec,
		WithSealOriginal(true), WithOriginalPrefixRunes(7))
	require.NoError(t, err)

	res, err := e.Analyze("Contact me at jane.doe@example.com", nil)
	require.NoError(t, err)
	require.NotNil(t, res.SealedOriginal)

	original, err := codec.OpenString(*res.SealedOriginal)
	require.NoError(t, err)
	assert.Equal(t, "Contact", original)
}

func TestAnalyze_DetectorFaultIsolated(t *testing.T) {
	boom := detect.Detector{
		Name:     "boom",
		Category: "BOOM",
		Priority: 50,
		Matcher: detect.MatcherFunc(func(string) ([]detect.Location, error) {
			panic("bad rule")
		}),
	}
	var faults int
	runner := detect.NewRunner(
		detect.MustNewRegistry(detect.WithDetectors(boom)),
		detect.WithFaultHandler(func(detect.Detector, error) { faults++ }),
	)
	key, err := securelog.GenerateKey()
	require.NoError(t, err)
	codec, err := securelog.NewCodec(key)
	require.NoError(t, err)
	e, err := New(runner, nil, nil, codec)
	require.NoError(t, err)

	res, err := e.Analyze("mail a@b.io", nil)
	require.NoError(t, err)
	assert.Equal(t, "mail [EMAIL]", res.SanitizedText)
	assert.Equal(t, 1, faults)
}

type recordingObserver struct {
	mu     sync.Mutex
	levels []int
	tags   int
}

func (o *recordingObserver) ObserveAnalysis(level int, _ time.Duration, tags []detect.Span, _ []redaction.Event) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.levels = append(o.levels, level)
	o.tags += len(tags)
}

func TestAnalyze_Observer(t *testing.T) {
	obs := &recordingObserver{}
	e := newTestEngine(t, WithObserver(obs))

	_, err := e.Analyze("password: hunter2", level(20))
	require.NoError(t, err)
	assert.Equal(t, []int{20}, obs.levels)
	assert.Equal(t, 1, obs.tags)
}

func TestAnalyze_ConcurrentCallsAreIndependent(t *testing.T) {
	e := newTestEngine(t)
	texts := []string{
		"Contact me at jane.doe@example.com or 9876543210",
		"password: hunter2",
		"Acme Technologies confidential roadmap",
	}
	want := make([]string, len(texts))
	for i, text := range texts {
		res, err := e.Analyze(text, nil)
		require.NoError(t, err)
		want[i] = res.SanitizedText
	}

	var wg sync.WaitGroup
	got := make([][]string, 8)
	for g := range got {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for _, text := range texts {
				res, err := e.Analyze(text, nil)
				if err != nil {
					return
				}
				got[g] = append(got[g], res.SanitizedText)
			}
		}(g)
	}
	wg.Wait()

	for _, g := range got {
		assert.Equal(t, want, g)
	}
}

func TestNew_Validation(t *testing.T) {
	_, err := New(nil, nil, nil, nil)
	assert.Error(t, err)

	_, err = New(detect.NewRunner(detect.MustNewRegistry()), nil, nil, nil)
	assert.ErrorIs(t, err, securelog.ErrEncryptionKeyMissing)
}

func TestTruncateRunes(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
		cut  bool
	}{
		{"", 3, "", false},
		{"abc", 3, "abc", false},
		{"abcd", 3, "abc", true},
		{"日本語テキスト", 3, "日本語", true},
		{"日本語", 3, "日本語", false},
		{"abc", 0, "abc", false},
	}
	for _, tt := range tests {
		got, cut := TruncateRunes(tt.in, tt.n)
		assert.Equal(t, tt.want, got, tt.in)
		assert.Equal(t, tt.cut, cut, tt.in)
	}
}
