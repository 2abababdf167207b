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

// Package tracing provides OpenTelemetry tracing for secureflow components.
package tracing

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the instrumentation name used for scanner spans.
const TracerName = "secureflow-scanner"

// Span attribute keys. Attributes never carry scanned text or found values.
const (
	AttrEventType      = "secureflow.event_type"
	AttrMaskLevel      = "secureflow.mask_level"
	AttrCategoryCount  = "secureflow.categories.count"
	AttrDegraded       = "secureflow.degraded"
	AttrTruncated      = "secureflow.truncated"
	AttrInputRunes     = "secureflow.input.runes"
	AttrStage          = "secureflow.stage"
	AttrHintEntities   = "secureflow.hints.entities"
	AttrExtractorBytes = "secureflow.extract.bytes"
)

// Config holds tracing configuration.
type Config struct {
	// Enabled enables tracing.
	Enabled bool
	// Endpoint is the OTLP collector endpoint (e.g., "localhost:4317").
	Endpoint string
	// ServiceName is the service name for traces.
	ServiceName string
	// ServiceVersion is the service version.
	ServiceVersion string
	// Environment is the deployment environment.
	Environment string
	// SampleRate is the sampling rate (0.0 to 1.0). Zero means 1.0.
	SampleRate float64
	// Insecure disables TLS for the OTLP connection.
	Insecure bool
}

// Provider wraps the OpenTelemetry TracerProvider.
type Provider struct {
	tp     *sdktrace.TracerProvider
	tracer trace.Tracer
}

// NewProvider creates a tracing provider. A disabled config yields a
// provider backed by the global (no-op by default) tracer.
func NewProvider(ctx context.Context, cfg Config) (*Provider, error) {
	if !cfg.Enabled {
		return &Provider{tracer: otel.Tracer(TracerName)}, nil
	}

	if cfg.ServiceName == "" {
		cfg.ServiceName = "secureflow"
	}
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 1.0
	}

	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}
	exporter, err := otlptrace.New(ctx, otlptracegrpc.NewClient(opts...))
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
	}

	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(cfg.ServiceVersion),
		semconv.DeploymentEnvironment(cfg.Environment),
	)

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler(cfg.SampleRate)),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return &Provider{tp: tp, tracer: tp.Tracer(TracerName)}, nil
}

func sampler(rate float64) sdktrace.Sampler {
	switch {
	case rate >= 1.0:
		return sdktrace.AlwaysSample()
	case rate <= 0:
		return sdktrace.NeverSample()
	default:
		return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(rate))
	}
}

// NewTestProvider creates a Provider from a pre-configured TracerProvider,
// typically one backed by an in-memory exporter.
func NewTestProvider(tp *sdktrace.TracerProvider) *Provider {
	return &Provider{tp: tp, tracer: tp.Tracer(TracerName)}
}

// Tracer returns the tracer for creating spans.
func (p *Provider) Tracer() trace.Tracer {
	return p.tracer
}

// TracerProvider returns the configured provider, or the global one when
// tracing is disabled.
func (p *Provider) TracerProvider() trace.TracerProvider {
	if p.tp != nil {
		return p.tp
	}
	return otel.GetTracerProvider()
}

// Shutdown flushes and stops the tracer provider.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p.tp != nil {
		return p.tp.Shutdown(ctx)
	}
	return nil
}

// StartScanSpan starts the root span of a text or file scan.
func (p *Provider) StartScanSpan(ctx context.Context, eventType string, level int) (context.Context, trace.Span) {
	return p.tracer.Start(ctx, "scan."+eventType,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String(AttrEventType, eventType),
			attribute.Int(AttrMaskLevel, level),
		),
	)
}

// StartStageSpan starts a child span for one pipeline stage.
func (p *Provider) StartStageSpan(ctx context.Context, stage string) (context.Context, trace.Span) {
	return p.tracer.Start(ctx, "scan.stage."+stage,
		trace.WithAttributes(attribute.String(AttrStage, stage)),
	)
}

// StartClientSpan starts a span for a call to an external collaborator.
func (p *Provider) StartClientSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return p.tracer.Start(ctx, name, trace.WithSpanKind(trace.SpanKindClient))
}

// AddScanResult records the outcome of a scan.
func AddScanResult(span trace.Span, categories int, degraded, truncated bool) {
	span.SetAttributes(
		attribute.Int(AttrCategoryCount, categories),
		attribute.Bool(AttrDegraded, degraded),
		attribute.Bool(AttrTruncated, truncated),
	)
}

// RecordError records an error on the span.
func RecordError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

// SetSuccess marks the span as successful.
func SetSuccess(span trace.Span) {
	span.SetStatus(codes.Ok, "success")
}
