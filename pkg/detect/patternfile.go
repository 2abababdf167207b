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
	// embed is used for the pattern file JSON Schema
	_ "embed"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

//go:embed patterns.schema.json
var patternFileSchema string

var patternSchemaLoader = gojsonschema.NewStringLoader(patternFileSchema)

// PatternFile is the YAML document describing operator-supplied detectors.
type PatternFile struct {
	StopWords []string        `yaml:"stopWords"`
	Patterns  []PatternConfig `yaml:"patterns"`
}

// PatternConfig describes one custom detector.
type PatternConfig struct {
	Name            string `yaml:"name"`
	Category        string `yaml:"category"`
	Regex           string `yaml:"regex"`
	Priority        *int   `yaml:"priority"`
	CaseInsensitive bool   `yaml:"caseInsensitive"`
	KeywordValue    bool   `yaml:"keywordValue"`
	Luhn            bool   `yaml:"luhn"`
}

// LoadPatternFile reads and validates a pattern file from disk.
func LoadPatternFile(path string) (*PatternFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read pattern file: %w", err)
	}
	return ParsePatternFile(data)
}

// ParsePatternFile validates data against the pattern file schema and
// decodes it.
func ParsePatternFile(data []byte) (*PatternFile, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: pattern file is not valid YAML: %v", ErrInvalidPattern, err)
	}
	if doc == nil {
		return nil, fmt.Errorf("%w: pattern file is empty", ErrInvalidPattern)
	}

	result, err := gojsonschema.Validate(patternSchemaLoader, gojsonschema.NewGoLoader(doc))
	if err != nil {
		return nil, fmt.Errorf("pattern file schema validation error: %w", err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return nil, fmt.Errorf("%w: %s", ErrInvalidPattern, strings.Join(msgs, "; "))
	}

	var pf PatternFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPattern, err)
	}
	return &pf, nil
}

// Detectors compiles the file's patterns.
func (pf *PatternFile) Detectors() ([]Detector, error) {
	out := make([]Detector, 0, len(pf.Patterns))
	for _, pc := range pf.Patterns {
		d, err := pc.detector()
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

// Options converts the file into registry options.
func (pf *PatternFile) Options() ([]Option, error) {
	ds, err := pf.Detectors()
	if err != nil {
		return nil, err
	}
	opts := []Option{WithDetectors(ds...)}
	if len(pf.StopWords) > 0 {
		opts = append(opts, WithStopWords(pf.StopWords...))
	}
	return opts, nil
}

func (pc PatternConfig) detector() (Detector, error) {
	expr := pc.Regex
	if pc.CaseInsensitive {
		expr = "(?i)" + expr
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return Detector{}, fmt.Errorf("%w %q: %v", ErrInvalidPattern, pc.Name, err)
	}

	cat := Category(pc.Category)
	d := Detector{
		Name:     pc.Name,
		Category: cat,
		Priority: Priority(cat),
	}
	if pc.Priority != nil {
		d.Priority = *pc.Priority
	}

	switch {
	case pc.KeywordValue:
		if re.NumSubexp() == 0 {
			return Detector{}, fmt.Errorf("%w %q: keywordValue requires a capture group", ErrInvalidPattern, pc.Name)
		}
		d.Matcher = NewKeywordValueMatcher(re)
	default:
		d.Matcher = NewRegexMatcher(re)
	}
	if pc.Luhn {
		d.Matcher = NewValidatedMatcher(d.Matcher, LuhnValid)
	}
	return d, nil
}
