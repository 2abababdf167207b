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

package logctx

import (
	"context"
	"testing"

	"github.com/go-logr/logr/funcr"
	"github.com/stretchr/testify/assert"
)

func TestSetters(t *testing.T) {
	ctx := context.Background()
	ctx = WithRequestID(ctx, "req-1")
	ctx = WithUsername(ctx, "alice")
	ctx = WithEventType(ctx, "text_scan")

	assert.Equal(t, "req-1", RequestID(ctx))
	assert.Equal(t, "alice", Username(ctx))
	assert.Equal(t, "text_scan", EventType(ctx))
}

func TestMissingValues(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, RequestID(ctx))
	assert.Empty(t, Username(ctx))
	assert.Nil(t, LogrValues(ctx))

	ctx = context.WithValue(ctx, ContextKeyUsername, 42)
	assert.Empty(t, Username(ctx), "non-string values are ignored")
}

func TestWithFields_SkipsEmpty(t *testing.T) {
	ctx := WithFields(context.Background(), &Fields{RequestID: "r", EventType: "file_scan"})

	f := ExtractFields(ctx)
	assert.Equal(t, Fields{RequestID: "r", EventType: "file_scan"}, f)
	assert.Equal(t, context.Background(), WithFields(context.Background(), nil))
}

func TestLogrValues_Order(t *testing.T) {
	ctx := WithFields(context.Background(), &Fields{
		Stage:     "redact",
		LogID:     "log-9",
		Username:  "bob",
		RequestID: "req-2",
	})
	assert.Equal(t, []any{
		"request_id", "req-2",
		"username", "bob",
		"log_id", "log-9",
		"stage", "redact",
	}, LogrValues(ctx))
}

func TestLoggerWithContext(t *testing.T) {
	var lines []string
	base := funcr.New(func(prefix, args string) {
		lines = append(lines, args)
	}, funcr.Options{})

	LoggerWithContext(base, WithUsername(context.Background(), "carol")).Info("scan stored")
	LoggerWithContext(base, context.Background()).Info("no fields")

	assert.Len(t, lines, 2)
	assert.Contains(t, lines[0], `"username"="carol"`)
	assert.NotContains(t, lines[1], "username")

}
