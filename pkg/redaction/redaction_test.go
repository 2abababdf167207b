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

package redaction

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/altairalabs/secureflow/pkg/detect"
	"github.com/altairalabs/secureflow/pkg/masking"
)

func tag(text string, cat detect.Category, value string) detect.Span {
	return detect.Span{Category: cat, Value: value, Start: strings.Index(text, value), Length: len(value)}
}

func TestRedact_Placeholders(t *testing.T) {
	text := "Contact me at jane.doe@example.com or 9876543210"
	tags := []detect.Span{
		tag(text, detect.CategoryPersonName, "Contact"),
		tag(text, detect.CategoryEmail, "jane.doe@example.com"),
		tag(text, detect.CategoryPhone, "9876543210"),
	}

	got, events := New().Redact(text, tags, masking.DefaultTable().Allowed(30))
	assert.Equal(t, "Contact me at [EMAIL] or [PHONE]", got)
	require.Len(t, events, 2)
	assert.Empty(t, events[0].Original)
}

func TestRedact_NilAllowerRedactsEverything(t *testing.T) {
	text := "PAN ABCDE1234F"
	got, _ := New().Redact(text, []detect.Span{tag(text, detect.CategoryPAN, "ABCDE1234F")}, nil)
	assert.Equal(t, "PAN [PAN]", got)
}

func TestRedact_DisallowedCategoryKept(t *testing.T) {
	text := "My PAN is ABCDE1234F"
	got, events := New().Redact(text, []detect.Span{tag(text, detect.CategoryPAN, "ABCDE1234F")}, masking.DefaultTable().Allowed(10))
	assert.Equal(t, text, got)
	assert.Empty(t, events)
}

func TestRedact_LongestFirst(t *testing.T) {
	// "Acme" alone would otherwise corrupt "Acme Technologies".
	text := "Acme Technologies hired Acme"
	tags := []detect.Span{
		tag(text, detect.CategoryPersonName, "Acme"),
		tag(text, detect.CategoryOrgName, "Acme Technologies"),
	}
	got, _ := New().Redact(text, tags, nil)
	assert.Equal(t, "[ORG_NAME] hired [PERSON_NAME]", got)
}

func TestRedact_ValueBasedReplacesEveryOccurrence(t *testing.T) {
	text := "password: hunter2 and again hunter2"
	got, events := New(WithAuditMode(true)).Redact(text, []detect.Span{tag(text, detect.CategoryPassword, "hunter2")}, nil)
	assert.Equal(t, "password: [PASSWORD] and again [PASSWORD]", got)
	require.Len(t, events, 1)
	assert.Equal(t, 2, events[0].Occurrences)
	assert.Equal(t, "hunter2", events[0].Original)
}

func TestRedact_DoesNotMutateInputs(t *testing.T) {
	text := "mail a@b.io"
	tags := []detect.Span{tag(text, detect.CategoryEmail, "a@b.io")}
	_, _ = New().Redact(text, tags, nil)
	assert.Equal(t, "a@b.io", tags[0].Value)
	assert.Equal(t, "mail a@b.io", text)
}

func TestRedact_EmptyInputs(t *testing.T) {
	got, events := New().Redact("", nil, nil)
	assert.Empty(t, got)
	assert.Nil(t, events)

	got, _ = New().Redact("hello", []detect.Span{{Category: detect.CategoryEmail}}, nil)
	assert.Equal(t, "hello", got)
}

func TestRedact_Strategies(t *testing.T) {
	text := "card 4111111111111111"
	tags := []detect.Span{tag(text, detect.CategoryCreditCard, "4111111111111111")}

	tests := []struct {
		name     string
		strategy Strategy
		want     string
	}{
		{"replace", StrategyReplace, "card [CREDIT_CARD]"},
		{"mask", StrategyMask, "card ************1111"},
		{"hash", StrategyHash, "card [HASH_CREDIT_CARD:"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _ := New(WithStrategy(tt.strategy)).Redact(text, tags, nil)
			assert.True(t, strings.HasPrefix(got, tt.want), got)
		})
	}

	a, _ := New(WithStrategy(StrategyHash)).Redact(text, tags, nil)
	b, _ := New(WithStrategy(StrategyHash)).Redact(text, tags, nil)
	assert.Equal(t, a, b, "hash strategy must be deterministic")
}

func TestParseStrategy(t *testing.T) {
	assert.Equal(t, StrategyHash, ParseStrategy(" HASH "))
	assert.Equal(t, StrategyMask, ParseStrategy("mask"))
	assert.Equal(t, StrategyReplace, ParseStrategy(""))
	assert.Equal(t, StrategyReplace, ParseStrategy("scramble"))
}

func TestMaskValue_Short(t *testing.T) {
	assert.Equal(t, "***", maskValue("abc"))
	assert.Equal(t, "**cdéf", maskValue("abcdéf"))
}
