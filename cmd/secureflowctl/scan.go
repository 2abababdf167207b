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

package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/altairalabs/secureflow/pkg/detect"
	"github.com/altairalabs/secureflow/pkg/engine"
	"github.com/altairalabs/secureflow/pkg/masking"
	"github.com/altairalabs/secureflow/pkg/redaction"
	"github.com/altairalabs/secureflow/pkg/securelog"
)

type scanOptions struct {
	text        string
	level       int
	patterns    []string
	patternFile string
	strategy    string
	asJSON      bool
	sealed      bool
}

// scanOutput is the JSON rendering of a scan.
type scanOutput struct {
	*engine.Result
	Summary    *securelog.SealedRecord `json:"summary,omitempty"`
	Categories *securelog.SealedRecord `json:"categories,omitempty"`
	Original   *securelog.SealedRecord `json:"original,omitempty"`
}

func newScanCmd() *cobra.Command {
	o := &scanOptions{}
	cmd := &cobra.Command{
		Use:   "scan [file|-]",
		Short: "Detect and redact sensitive values in text",
		Long: `Scan reads text from --text, a file, or stdin and prints the sanitized
text. Nothing is stored. With --sealed the sealed audit fields are included
in the JSON output, which requires the server's encryption key.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScan(cmd, o, args)
		},
	}
	f := cmd.Flags()
	f.StringVar(&o.text, "text", "", "Text to scan instead of a file")
	f.IntVar(&o.level, "level", masking.MaxLevel, "Mask level (10-100)")
	f.StringSliceVar(&o.patterns, "patterns", nil, "Built-in detectors to enable, or custom:<regex>")
	f.StringVar(&o.patternFile, "pattern-file", "", "YAML file of custom detectors")
	f.StringVar(&o.strategy, "strategy", string(redaction.StrategyReplace), "Redaction strategy: replace, hash or mask")
	f.BoolVar(&o.asJSON, "json", false, "Print the full result as JSON")
	f.BoolVar(&o.sealed, "sealed", false, "Seal with the configured key and include the sealed fields (implies --json)")
	return cmd
}

func runScan(cmd *cobra.Command, o *scanOptions, args []string) error {
	text := o.text
	if text == "" {
		name := ""
		if len(args) == 1 {
			name = args[0]
		}
		data, err := readInput(cmd, name)
		if err != nil {
			return err
		}
		text = string(data)
	}

	log, sync := cliLogger()
	defer sync()

	var regOpts []detect.Option
	if len(o.patterns) > 0 {
		regOpts = append(regOpts, detect.WithPatterns(o.patterns...))
	}
	if o.patternFile != "" {
		pf, err := detect.LoadPatternFile(o.patternFile)
		if err != nil {
			return err
		}
		fileOpts, err := pf.Options()
		if err != nil {
			return err
		}
		regOpts = append(regOpts, fileOpts...)
	}
	reg, err := detect.NewRegistry(regOpts...)
	if err != nil {
		return err
	}

	var codec *securelog.Codec
	if o.sealed {
		if codec, err = loadCodec(cmd.Context()); err != nil {
			return err
		}
	} else {
		// Output is never persisted, so an ephemeral key suffices.
		key, err := securelog.GenerateKey()
		if err != nil {
			return err
		}
		if codec, err = securelog.NewCodec(key); err != nil {
			return err
		}
	}

	eng, err := engine.New(detect.NewRunner(reg, detect.WithLogger(log)), masking.DefaultTable(),
		redaction.New(redaction.WithStrategy(redaction.ParseStrategy(o.strategy))), codec,
		engine.WithLogger(log))
	if err != nil {
		return err
	}

	level := o.level
	res, err := eng.Analyze(text, &level)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if !o.asJSON && !o.sealed {
		_, err = fmt.Fprintln(out, strings.TrimRight(res.SanitizedText, "\n"))
		return err
	}
	view := scanOutput{Result: res}
	if o.sealed {
		view.Summary = &res.SealedSummary
		view.Categories = &res.SealedCategories
		view.Original = res.SealedOriginal
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(view)
}
