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

package masking

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/altairalabs/secureflow/pkg/detect"
)

func TestAllowed_Levels(t *testing.T) {
	tbl := DefaultTable()

	tests := []struct {
		level    int
		allowed  []detect.Category
		excluded []detect.Category
	}{
		{10, []detect.Category{detect.CategoryEmail, detect.CategoryMedicalCondition}, []detect.Category{detect.CategoryPAN, detect.CategoryPassword}},
		{20, []detect.Category{detect.CategoryPassword}, []detect.Category{detect.CategoryPhone}},
		{30, []detect.Category{detect.CategoryEmail, detect.CategoryPhone}, []detect.Category{detect.CategoryURL}},
		{75, []detect.Category{detect.CategoryOrgName, detect.CategoryDate}, []detect.Category{detect.CategoryAadhaar}},
		{80, []detect.Category{detect.CategoryAadhaar, detect.CategoryCreditCard}, []detect.Category{detect.CategoryPersonName}},
		{100, []detect.Category{detect.CategoryPersonName, detect.CategoryAddress, detect.CategoryInferInsider}, nil},
	}

	for _, tt := range tests {
		set := tbl.Allowed(tt.level)
		for _, c := range tt.allowed {
			assert.True(t, set.Has(c), "level %d should allow %s", tt.level, c)
		}
		for _, c := range tt.excluded {
			assert.False(t, set.Has(c), "level %d should not allow %s", tt.level, c)
		}
	}
}

func TestAllowed_AlwaysOnAtLowestLevel(t *testing.T) {
	tbl := DefaultTable()
	set := tbl.Allowed(MinLevel)
	for _, c := range DefaultAlwaysOn {
		assert.True(t, set.Has(c), c)
		assert.True(t, tbl.AlwaysOn(c), c)
	}
	assert.False(t, tbl.AlwaysOn(detect.CategoryEmail))
}

func TestSnap(t *testing.T) {
	tbl := DefaultTable()
	tests := map[int]int{-5: 10, 0: 10, 10: 10, 19: 10, 25: 20, 99: 90, 100: 100, 1000: 100}
	for in, want := range tests {
		assert.Equal(t, want, tbl.Snap(in), "snap(%d)", in)
	}
	assert.Equal(t, []int{10, 20, 30, 40, 50, 60, 70, 80, 90, 100}, tbl.Thresholds())
}

func TestNormalizeAndParse(t *testing.T) {
	assert.Equal(t, MaxLevel, Normalize(nil))
	low := 3
	assert.Equal(t, MinLevel, Normalize(&low))

	tests := map[string]int{
		"":      100,
		"abc":   100,
		"NaN":   100,
		" 30 ":  30,
		"5":     10,
		"250":   100,
		"42.9":  42,
		"-1e9":  10,
		"1e300": 100,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), "ParseLevel(%q)", in)
	}
}

func TestAllowedFor_MissingMeansMax(t *testing.T) {
	tbl := DefaultTable()
	assert.Equal(t, tbl.Allowed(MaxLevel), tbl.AllowedFor(nil))
}

func TestNewTable_Validation(t *testing.T) {
	_, err := NewTable(nil, nil)
	assert.ErrorIs(t, err, ErrInvalidTable)

	_, err = NewTable([]Step{{Threshold: 20}}, nil)
	assert.ErrorIs(t, err, ErrInvalidTable)

	_, err = NewTable([]Step{{Threshold: 10}, {Threshold: 10}}, nil)
	assert.ErrorIs(t, err, ErrInvalidTable)

	_, err = NewTable([]Step{{Threshold: 10}, {Threshold: 110}}, nil)
	assert.ErrorIs(t, err, ErrInvalidTable)

	tbl, err := NewTable([]Step{{Threshold: 10, Categories: []detect.Category{"A"}}, {Threshold: 50, Categories: []detect.Category{"B"}}}, []detect.Category{"Z"})
	require.NoError(t, err)
	assert.Equal(t, []detect.Category{"A", "Z"}, tbl.Allowed(49).Sorted())
	assert.Equal(t, []detect.Category{"A", "B", "Z"}, tbl.Allowed(50).Sorted())
}

func TestAllowed_PropertyMonotonic(t *testing.T) {
	tbl := DefaultTable()
	rapid.Check(t, func(rt *rapid.T) {
		l1 := rapid.IntRange(-50, 200).Draw(rt, "l1")
		l2 := rapid.IntRange(l1, 250).Draw(rt, "l2")

		lower, higher := tbl.Allowed(l1), tbl.Allowed(l2)
		for c := range lower {
			if !higher.Has(c) {
				rt.Fatalf("allowed(%d) has %s but allowed(%d) does not", l1, c, l2)
			}
		}
	})
}
