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

// Package logctx carries request-scoped logging fields through
// context.Context so every log line of a scan shares the same identifiers.
package logctx

import (
	"context"

	"github.com/go-logr/logr"
)

// contextKey is a private type for context keys to avoid collisions.
type contextKey string

// Context keys for common logging fields.
const (
	// ContextKeyRequestID identifies the individual HTTP request.
	ContextKeyRequestID contextKey = "request_id"
	// ContextKeyUsername identifies the authenticated caller.
	ContextKeyUsername contextKey = "username"
	// ContextKeyEventType is the audit event type, e.g. "text_scan".
	ContextKeyEventType contextKey = "event_type"
	// ContextKeyLogID identifies the persisted audit log entry.
	ContextKeyLogID contextKey = "log_id"
	// ContextKeyStage identifies the processing stage.
	ContextKeyStage contextKey = "stage"
)

// allContextKeys lists the keys extracted for logging, in output order.
var allContextKeys = []contextKey{
	ContextKeyRequestID,
	ContextKeyUsername,
	ContextKeyEventType,
	ContextKeyLogID,
	ContextKeyStage,
}

// WithRequestID returns a new context with the request ID set.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, requestID)
}

// WithUsername returns a new context with the caller's username set.
func WithUsername(ctx context.Context, username string) context.Context {
	return context.WithValue(ctx, ContextKeyUsername, username)
}

// WithEventType returns a new context with the audit event type set.
func WithEventType(ctx context.Context, eventType string) context.Context {
	return context.WithValue(ctx, ContextKeyEventType, eventType)
}

// WithLogID returns a new context with the audit log ID set.
func WithLogID(ctx context.Context, logID string) context.Context {
	return context.WithValue(ctx, ContextKeyLogID, logID)
}

// WithStage returns a new context with the processing stage set.
func WithStage(ctx context.Context, stage string) context.Context {
	return context.WithValue(ctx, ContextKeyStage, stage)
}

// Fields holds the standard logging fields for bulk setting.
type Fields struct {
	RequestID string
	Username  string
	EventType string
	LogID     string
	Stage     string
}

// WithFields returns a new context with every non-empty field set.
func WithFields(ctx context.Context, f *Fields) context.Context {
	if f == nil {
		return ctx
	}
	for key, v := range map[contextKey]string{
		ContextKeyRequestID: f.RequestID,
		ContextKeyUsername:  f.Username,
		ContextKeyEventType: f.EventType,
		ContextKeyLogID:     f.LogID,
		ContextKeyStage:     f.Stage,
	} {
		if v != "" {
			ctx = context.WithValue(ctx, key, v)
		}
	}
	return ctx
}

// ExtractFields reads all logging fields from ctx.
func ExtractFields(ctx context.Context) Fields {
	return Fields{
		RequestID: value(ctx, ContextKeyRequestID),
		Username:  value(ctx, ContextKeyUsername),
		EventType: value(ctx, ContextKeyEventType),
		LogID:     value(ctx, ContextKeyLogID),
		Stage:     value(ctx, ContextKeyStage),
	}
}

// LogrValues returns the non-empty context fields as key-value pairs for
// logr.Logger.WithValues.
func LogrValues(ctx context.Context) []any {
	var values []any
	for _, key := range allContextKeys {
		if s := value(ctx, key); s != "" {
			values = append(values, string(key), s)
		}
	}
	return values
}

// LoggerWithContext returns log enriched with the context fields.
func LoggerWithContext(log logr.Logger, ctx context.Context) logr.Logger {
	values := LogrValues(ctx)
	if len(values) == 0 {
		return log
	}
	return log.WithValues(values...)
}

// RequestID extracts the request ID from the context.
func RequestID(ctx context.Context) string {
	return value(ctx, ContextKeyRequestID)
}

// Username extracts the caller's username from the context.
func Username(ctx context.Context) string {
	return value(ctx, ContextKeyUsername)
}

// EventType extracts the audit event type from the context.
func EventType(ctx context.Context) string {
	return value(ctx, ContextKeyEventType)
}

func value(ctx context.Context, key contextKey) string {
	s, _ := ctx.Value(key).(string)
	return s
}
