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

package logging

import (
	"testing"

	"github.com/go-logr/zapr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewZapLogger_Levels(t *testing.T) {
	tests := []struct {
		level   string
		debug   bool
		info    bool
		warning bool
	}{
		{"", false, true, true},
		{"info", false, true, true},
		{"debug", true, true, true},
		{"trace", true, true, true},
		{"WARN", false, false, true},
		{"error", false, false, false},
		{"verbose", false, true, true},
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			logger, err := newZapLogger(tt.level)
			require.NoError(t, err)
			assert.Equal(t, tt.debug, logger.Core().Enabled(zap.DebugLevel))
			assert.Equal(t, tt.info, logger.Core().Enabled(zap.InfoLevel))
			assert.Equal(t, tt.warning, logger.Core().Enabled(zap.WarnLevel))
		})
	}
}

func TestParseLevel(t *testing.T) {
	lvl, ok := ParseLevel(" Debug ")
	assert.True(t, ok)
	assert.Equal(t, zapcore.DebugLevel, lvl)

	lvl, ok = ParseLevel("loud")
	assert.False(t, ok)
	assert.Equal(t, zapcore.InfoLevel, lvl)
}

func TestNewLogger_UsesEnvVar(t *testing.T) {
	t.Setenv(EnvLogLevel, "debug")

	log, sync, err := NewLogger()
	require.NoError(t, err)
	defer sync()
	assert.True(t, log.V(1).Enabled())
}

func TestNewZapLogger_Env(t *testing.T) {
	t.Setenv(EnvLogLevel, "error")

	z, err := NewZapLogger()
	require.NoError(t, err)
	assert.False(t, z.Core().Enabled(zap.WarnLevel))
}

func TestSlogFromZap_SharesCore(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	z := zap.New(core)

	SlogFromZap(z).Info("hint request failed", "status", 503)
	zapr.NewLogger(z).Info("analysis complete", "categories", 2)

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "hint request failed", entries[0].Message)
	assert.Equal(t, int64(503), entries[0].ContextMap()["status"])
	assert.Equal(t, "analysis complete", entries[1].Message)
}
