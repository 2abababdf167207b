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

	"github.com/spf13/cobra"

	"github.com/altairalabs/secureflow/pkg/securelog"
)

func newOpenCmd() *cobra.Command {
	var asCategories bool
	cmd := &cobra.Command{
		Use:   "open [file|-]",
		Short: "Decrypt a sealed audit record",
		Long: `Open reads a sealed record ({"ciphertext","nonce","tag"} in base64 JSON)
from a file or stdin and prints the plaintext. Authentication failures are
reported and never produce partial output.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := ""
			if len(args) == 1 {
				name = args[0]
			}
			data, err := readInput(cmd, name)
			if err != nil {
				return err
			}
			var rec securelog.SealedRecord
			if err := json.Unmarshal(data, &rec); err != nil {
				return fmt.Errorf("%w: %v", securelog.ErrMalformedRecord, err)
			}

			codec, err := loadCodec(cmd.Context())
			if err != nil {
				return err
			}
			plain, err := codec.Open(rec)
			if err != nil {
				return err
			}

			if asCategories {
				var cats []string
				if err := json.Unmarshal(plain, &cats); err != nil {
					return fmt.Errorf("%w: not a category list", securelog.ErrMalformedRecord)
				}
				for _, c := range cats {
					if _, err := fmt.Fprintln(cmd.OutOrStdout(), c); err != nil {
						return err
					}
				}
				return nil
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(plain))
			return err
		},
	}
	cmd.Flags().BoolVar(&asCategories, "categories", false, "Decode the plaintext as a category list")
	return cmd
}
