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

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// AuditMetrics holds metrics for audit log persistence and publication.
type AuditMetrics struct {
	// WritesTotal counts stored audit entries by event_type.
	WritesTotal *prometheus.CounterVec
	// WriteErrors counts write failures by event_type.
	WriteErrors *prometheus.CounterVec
	// WriteDuration tracks write latency by event_type.
	WriteDuration *prometheus.HistogramVec
	// QueriesTotal counts audit log queries.
	QueriesTotal prometheus.Counter
	// QueryDuration tracks query latency.
	QueryDuration prometheus.Histogram
	// OpenFailuresTotal counts sealed records that failed authentication.
	OpenFailuresTotal prometheus.Counter
	// PublishErrors counts scan events that could not be published.
	PublishErrors *prometheus.CounterVec
}

// NewAuditMetrics creates audit metrics on the default registry.
func NewAuditMetrics() *AuditMetrics {
	return newAuditMetrics(prometheus.DefaultRegisterer)
}

// NewAuditMetricsWithRegistry creates audit metrics with a custom registry for testing.
func NewAuditMetricsWithRegistry(reg prometheus.Registerer) *AuditMetrics {
	return newAuditMetrics(reg)
}

func newAuditMetrics(reg prometheus.Registerer) *AuditMetrics {
	f := promauto.With(reg)
	return &AuditMetrics{
		WritesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "secureflow_audit_writes_total",
			Help: "Total number of audit log entries stored",
		}, []string{"event_type"}),

		WriteErrors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "secureflow_audit_write_errors_total",
			Help: "Total number of audit write errors",
		}, []string{"event_type"}),

		WriteDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "secureflow_audit_write_duration_seconds",
			Help:    "Duration of audit log writes",
			Buckets: prometheus.DefBuckets,
		}, []string{"event_type"}),

		QueriesTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "secureflow_audit_queries_total",
			Help: "Total number of audit log queries",
		}),

		QueryDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "secureflow_audit_query_duration_seconds",
			Help:    "Duration of audit log queries",
			Buckets: prometheus.DefBuckets,
		}),

		OpenFailuresTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "secureflow_audit_open_failures_total",
			Help: "Total number of sealed audit records that failed authentication",
		}),

		PublishErrors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "secureflow_scan_event_publish_errors_total",
			Help: "Total number of scan events that could not be published",
		}, []string{"event_type"}),
	}
}

// RecordWrite records a successful or failed audit write.
func (m *AuditMetrics) RecordWrite(eventType string, elapsed time.Duration, err error) {
	if err != nil {
		m.WriteErrors.WithLabelValues(eventType).Inc()
		return
	}
	m.WritesTotal.WithLabelValues(eventType).Inc()
	m.WriteDuration.WithLabelValues(eventType).Observe(elapsed.Seconds())
}

// RecordQuery records an audit query.
func (m *AuditMetrics) RecordQuery(elapsed time.Duration) {
	m.QueriesTotal.Inc()
	m.QueryDuration.Observe(elapsed.Seconds())
}

// RecordOpenFailure counts a sealed record that could not be opened.
func (m *AuditMetrics) RecordOpenFailure() {
	m.OpenFailuresTotal.Inc()
}

// RecordPublishError counts a failed scan event publication.
func (m *AuditMetrics) RecordPublishError(eventType string) {
	m.PublishErrors.WithLabelValues(eventType).Inc()
}
