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

	"github.com/spf13/cobra"

	"github.com/altairalabs/secureflow/pkg/securelog"
)

func newKeygenCmd() *cobra.Command {
	var dotenv bool
	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate a random 256-bit audit encryption key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			key, err := securelog.GenerateKey()
			if err != nil {
				return err
			}
			encoded := securelog.EncodeKey(key)
			if dotenv {
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "ENCRYPTION_KEY=%s\n", encoded)
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), encoded)
			return err
		},
	}
	cmd.Flags().BoolVar(&dotenv, "env", false, "Print as a .env assignment")
	return cmd
}
