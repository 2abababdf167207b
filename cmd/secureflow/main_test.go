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
	"flag"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/altairalabs/secureflow/internal/config"
	"github.com/altairalabs/secureflow/internal/events"
	"github.com/altairalabs/secureflow/internal/extract"
	"github.com/altairalabs/secureflow/internal/hints"
	"github.com/altairalabs/secureflow/internal/store"
	"github.com/altairalabs/secureflow/pkg/metrics"
	"github.com/altairalabs/secureflow/pkg/securelog"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	key, err := securelog.GenerateKey()
	require.NoError(t, err)
	t.Setenv("ENCRYPTION_KEY", securelog.EncodeKey(key))
	t.Setenv("JWT_SECRET", "0123456789abcdef-secret")
}

func newFlagSet() *flag.FlagSet {
	fs := flag.NewFlagSet("secureflow", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func TestParseOptions(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("MAX_INPUT_RUNES", "500")

	opts, err := parseOptions(newFlagSet(), []string{"-api-addr", ":9999", "-env-file", filepath.Join(t.TempDir(), "missing.env")})
	require.NoError(t, err)
	assert.Equal(t, ":9999", opts.APIAddr)
	assert.Equal(t, 500, opts.MaxInputRunes)
	assert.NotEmpty(t, opts.Key.Key)
}

func TestParseOptions_DotEnv(t *testing.T) {
	key, err := securelog.GenerateKey()
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), ".env")
	content := "ENCRYPTION_KEY=" + securelog.EncodeKey(key) + "\nJWT_SECRET=dotenv-secret-0123456789\nREDACTION_STRATEGY=mask\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	t.Cleanup(func() {
		for _, k := range []string{"ENCRYPTION_KEY", "JWT_SECRET", "REDACTION_STRATEGY"} {
			_ = os.Unsetenv(k)
		}
	})

	opts, err := parseOptions(newFlagSet(), []string{"-env-file", path})
	require.NoError(t, err)
	assert.Equal(t, "mask", opts.RedactionStrategy)
}

func TestParseOptions_MissingKey(t *testing.T) {
	t.Setenv("ENCRYPTION_KEY", "")
	t.Setenv("JWT_SECRET", "0123456789abcdef-secret")

	_, err := parseOptions(newFlagSet(), []string{"-env-file", filepath.Join(t.TempDir(), "none")})
	assert.ErrorIs(t, err, securelog.ErrEncryptionKeyMissing)
}

func TestBuildEngine(t *testing.T) {
	patterns := filepath.Join(t.TempDir(), "patterns.yaml")
	require.NoError(t, os.WriteFile(patterns, []byte(`
patterns:
  - name: employee_id
    category: EMPLOYEE_ID
    regex: 'EMP-\d{6}'
`), 0o600))

	opts := config.DefaultOptions()
	opts.PatternFile = patterns
	opts.Patterns = []string{"email"}

	key, err := securelog.GenerateKey()
	require.NoError(t, err)
	codec, err := securelog.NewCodec(key)
	require.NoError(t, err)

	m := metrics.NewScannerMetricsWithRegistry(prometheus.NewRegistry())
	eng, err := buildEngine(opts, codec, m, logr.Discard())
	require.NoError(t, err)

	res, err := eng.Analyze("EMP-123456 wrote to a@b.io", nil)
	require.NoError(t, err)
	assert.Contains(t, res.CategoriesFound, "EMPLOYEE_ID")
	assert.Contains(t, res.CategoriesFound, "EMAIL")
	assert.Contains(t, res.SanitizedText, "[EMAIL]")

	opts.PatternFile = filepath.Join(t.TempDir(), "missing.yaml")
	_, err = buildEngine(opts, codec, m, logr.Discard())
	assert.Error(t, err)
}

func TestInitCollaborators_Disabled(t *testing.T) {
	opts := config.DefaultOptions()
	ctx := context.Background()

	st, err := initStore(ctx, opts, logr.Discard())
	require.NoError(t, err)
	assert.IsType(t, &store.MemoryStore{}, st)

	assert.IsType(t, hints.Noop{}, initHints(opts, nil, nil))

	ex := initExtractor(opts, logr.Discard())
	router, ok := ex.(*extract.Router)
	require.True(t, ok)
	assert.Nil(t, router.Remote)
	assert.Equal(t, opts.MaxUploadBytes, router.MaxBytes)

	pub, err := initPublisher(opts, nil, nil)
	require.NoError(t, err)
	assert.IsType(t, events.Noop{}, pub)

	purger, err := initRetention(ctx, opts, st, nil, nil)
	require.NoError(t, err)
	assert.Nil(t, purger)
}

func TestInitCollaborators_Enabled(t *testing.T) {
	opts := config.DefaultOptions()
	opts.HintsURL = "http://classifier.invalid"
	opts.ExtractorURL = "http://extractor.invalid"
	opts.RetentionDays = 30

	m := metrics.NewScannerMetricsWithRegistry(prometheus.NewRegistry())
	_, ok := initHints(opts, nil, m).(*hints.Client)
	assert.True(t, ok)

	router := initExtractor(opts, logr.Discard()).(*extract.Router)
	assert.NotNil(t, router.Remote)

	rm := metrics.NewRetentionMetricsWithRegistry(prometheus.NewRegistry())
	purger, err := initRetention(context.Background(), opts, store.NewMemoryStore(), rm, nil)
	require.NoError(t, err)
	require.NotNil(t, purger)
	purger.Stop()
}

func TestEnvHelpers(t *testing.T) {
	t.Setenv("PG_MAX_CONNS", "7")
	t.Setenv("PG_MIN_CONNS", "many")
	t.Setenv("PG_MAX_CONN_LIFETIME", "90s")
	assert.Equal(t, int32(7), envInt32("PG_MAX_CONNS", 25))
	assert.Equal(t, int32(5), envInt32("PG_MIN_CONNS", 5))
	assert.Equal(t, int32(3), envInt32("PG_UNSET_FOR_TEST", 3))
	assert.Equal(t, 90*time.Second, envDuration("PG_MAX_CONN_LIFETIME", time.Hour))
	assert.Equal(t, time.Hour, envDuration("PG_UNSET_FOR_TEST", time.Hour))
	assert.Equal(t, "fallback", envOr("PG_UNSET_FOR_TEST", "fallback"))
}

func TestNewMetricsServer(t *testing.T) {
	srv := newMetricsServer(":0")
	assert.Equal(t, ":0", srv.Addr)
	assert.NotNil(t, srv.Handler)
}
