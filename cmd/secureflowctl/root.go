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
	"context"
	"fmt"
	"io"
	"os"

	"github.com/go-logr/logr"
	"github.com/spf13/cobra"

	"github.com/altairalabs/secureflow/internal/config"
	"github.com/altairalabs/secureflow/pkg/logging"
	"github.com/altairalabs/secureflow/pkg/securelog"
)

// version is set at build time via -ldflags.
var version = "dev"

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "secureflowctl",
		Short:         "Operate a secureflow deployment",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
		Long: `secureflowctl generates audit encryption keys, scans text offline with
the same detectors as the server, and opens sealed audit records.

Key material is read from the same environment variables as the server
(ENCRYPTION_KEY_PROVIDER, ENCRYPTION_KEY, ENCRYPTION_KEY_ID, ...).`,
	}
	root.AddCommand(
		newKeygenCmd(),
		newScanCmd(),
		newOpenCmd(),
		newCategoriesCmd(),
		newMigrateCmd(),
	)
	return root
}

// cliLogger returns a logger honoring LOG_LEVEL, or a discard logger when
// one cannot be built. CLI output goes to stdout; logs go to stderr.
func cliLogger() (logr.Logger, func()) {
	log, sync, err := logging.NewLogger()
	if err != nil {
		return logr.Discard(), func() {}
	}
	return log, sync
}

// loadCodec resolves the audit key from the environment.
func loadCodec(ctx context.Context) (*securelog.Codec, error) {
	opts := config.DefaultOptions()
	opts.ApplyEnvFallbacks()
	if opts.Key.Key == "" {
		return nil, fmt.Errorf("ENCRYPTION_KEY: %w", securelog.ErrEncryptionKeyMissing)
	}
	return securelog.LoadCodec(ctx, opts.Key)
}

// readInput reads the named file, or stdin for "" and "-".
func readInput(cmd *cobra.Command, name string) ([]byte, error) {
	if name == "" || name == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(name)
}
