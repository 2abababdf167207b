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
	"crypto/sha256"
	"fmt"
	"strings"

	"github.com/altairalabs/secureflow/pkg/detect"
)

// Strategy selects how a redacted value is rendered.
type Strategy string

const (
	// StrategyReplace substitutes the category placeholder, e.g. "[EMAIL]".
	StrategyReplace Strategy = "replace"
	// StrategyHash substitutes a truncated SHA-256 of the value so equal
	// values stay correlatable, e.g. "[HASH_EMAIL:1a2b3c4d5e6f]".
	StrategyHash Strategy = "hash"
	// StrategyMask keeps the last four characters and stars the rest.
	StrategyMask Strategy = "mask"
)

// ParseStrategy maps a configuration string to a Strategy. Unknown values
// fall back to StrategyReplace.
func ParseStrategy(s string) Strategy {
	switch Strategy(strings.ToLower(strings.TrimSpace(s))) {
	case StrategyHash:
		return StrategyHash
	case StrategyMask:
		return StrategyMask
	default:
		return StrategyReplace
	}
}

func applyStrategy(strategy Strategy, cat detect.Category, value string) string {
	switch strategy {
	case StrategyHash:
		return hashValue(cat, value)
	case StrategyMask:
		return maskValue(value)
	default:
		return cat.Placeholder()
	}
}

// hashValue returns "[HASH_<CATEGORY>:<first 12 hex chars of sha256>]".
func hashValue(cat detect.Category, value string) string {
	h := sha256.Sum256([]byte(value))
	return fmt.Sprintf("[HASH_%s:%x]", cat, h[:6])
}

// maskValue preserves the last 4 runes of value, masking the rest with *.
// Values with 4 or fewer runes are fully masked.
func maskValue(value string) string {
	runes := []rune(value)
	if len(runes) <= 4 {
		return strings.Repeat("*", len(runes))
	}
	return strings.Repeat("*", len(runes)-4) + string(runes[len(runes)-4:])
}
