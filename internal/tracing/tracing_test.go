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

package tracing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

func newTestProvider(t *testing.T) (*Provider, *tracetest.InMemoryExporter) {
	t.Helper()
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	return NewTestProvider(tp), exporter
}

func findAttr(span tracetest.SpanStub, key string) (attribute.Value, bool) {
	for _, a := range span.Attributes {
		if string(a.Key) == key {
			return a.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestNewProvider_Disabled(t *testing.T) {
	p, err := NewProvider(context.Background(), Config{})
	require.NoError(t, err)
	assert.NotNil(t, p.Tracer())
	assert.NotNil(t, p.TracerProvider())
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestNewProvider_Enabled(t *testing.T) {
	p, err := NewProvider(context.Background(), Config{
		Enabled:  true,
		Endpoint: "localhost:4317",
		Insecure: true,
	})
	require.NoError(t, err)
	assert.NotNil(t, p.tp)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_ = p.Shutdown(ctx)
}

func TestSampler(t *testing.T) {
	assert.Equal(t, sdktrace.AlwaysSample().Description(), sampler(1).Description())
	assert.Equal(t, sdktrace.NeverSample().Description(), sampler(-1).Description())
	assert.Contains(t, sampler(0.25).Description(), "TraceIDRatioBased")
}

func TestStartScanSpan(t *testing.T) {
	p, exporter := newTestProvider(t)

	ctx, span := p.StartScanSpan(context.Background(), "text_scan", 30)
	_, child := p.StartStageSpan(ctx, "detect")
	child.End()
	AddScanResult(span, 3, true, false)
	SetSuccess(span)
	span.End()

	spans := exporter.GetSpans()
	require.Len(t, spans, 2)

	root := spans[1]
	assert.Equal(t, "scan.text_scan", root.Name)
	assert.Equal(t, codes.Ok, root.Status.Code)
	v, ok := findAttr(root, AttrMaskLevel)
	require.True(t, ok)
	assert.Equal(t, int64(30), v.AsInt64())
	v, _ = findAttr(root, AttrDegraded)
	assert.True(t, v.AsBool())
	v, _ = findAttr(root, AttrCategoryCount)
	assert.Equal(t, int64(3), v.AsInt64())

	assert.Equal(t, "scan.stage.detect", spans[0].Name)
	assert.Equal(t, root.SpanContext.TraceID(), spans[0].SpanContext.TraceID())
}

func TestStartClientSpan(t *testing.T) {
	p, exporter := newTestProvider(t)
	_, span := p.StartClientSpan(context.Background(), "hints.classify")
	span.End()

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, trace.SpanKindClient, spans[0].SpanKind)
}

func TestRecordError(t *testing.T) {
	p, exporter := newTestProvider(t)
	_, span := p.StartStageSpan(context.Background(), "seal")
	RecordError(span, nil)
	RecordError(span, errors.New("authentication failed"))
	span.End()

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status.Code)
	assert.Len(t, spans[0].Events, 1)
}
