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
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/altairalabs/secureflow/pkg/detect"
	"github.com/altairalabs/secureflow/pkg/masking"
)

func newCategoriesCmd() *cobra.Command {
	var level int
	cmd := &cobra.Command{
		Use:   "categories",
		Short: "List detectors, or the categories redacted at a mask level",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			tbl := masking.DefaultTable()

			if cmd.Flags().Changed("level") {
				snapped := tbl.Snap(level)
				if _, err := fmt.Fprintf(out, "# level %d\n", snapped); err != nil {
					return err
				}
				for _, c := range tbl.Allowed(snapped).Sorted() {
					if _, err := fmt.Fprintln(out, c); err != nil {
						return err
					}
				}
				return nil
			}

			reg, err := detect.NewRegistry()
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			_, _ = fmt.Fprintln(tw, "DETECTOR\tCATEGORY\tPRIORITY\tALWAYS ON")
			for _, d := range reg.Detectors() {
				_, _ = fmt.Fprintf(tw, "%s\t%s\t%d\t%t\n", d.Name, d.Category, d.Priority, tbl.AlwaysOn(d.Category))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVar(&level, "level", masking.MaxLevel, "Show the categories redacted at this level")
	return cmd
}
