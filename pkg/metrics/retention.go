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

// RetentionMetrics holds metrics for the scheduled audit log purge.
type RetentionMetrics struct {
	// PurgeRunsTotal counts purge runs by result ("success" or "error").
	PurgeRunsTotal *prometheus.CounterVec
	// PurgedEntriesTotal counts deleted audit entries.
	PurgedEntriesTotal prometheus.Counter
	// LastPurgeTimestamp is the Unix time of the last successful purge.
	LastPurgeTimestamp prometheus.Gauge
	// ArchivedEntriesTotal counts entries copied to the archive before deletion.
	ArchivedEntriesTotal prometheus.Counter
}

// NewRetentionMetrics creates retention metrics on the default registry.
func NewRetentionMetrics() *RetentionMetrics {
	return newRetentionMetrics(prometheus.DefaultRegisterer)
}

// NewRetentionMetricsWithRegistry creates retention metrics with a custom registry for testing.
func NewRetentionMetricsWithRegistry(reg prometheus.Registerer) *RetentionMetrics {
	return newRetentionMetrics(reg)
}

func newRetentionMetrics(reg prometheus.Registerer) *RetentionMetrics {
	f := promauto.With(reg)
	return &RetentionMetrics{
		PurgeRunsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "secureflow_retention_purge_runs_total",
			Help: "Total number of retention purge runs by result",
		}, []string{"result"}),

		PurgedEntriesTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "secureflow_retention_purged_entries_total",
			Help: "Total number of expired audit entries deleted",
		}),

		LastPurgeTimestamp: f.NewGauge(prometheus.GaugeOpts{
			Name: "secureflow_retention_last_purge_timestamp_seconds",
			Help: "Unix time of the last successful retention purge",
		}),

		ArchivedEntriesTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "secureflow_retention_archived_entries_total",
			Help: "Total number of expired audit entries archived before deletion",
		}),
	}
}

// Initialize pre-registers the run counters so they appear in /metrics output at startup.
func (m *RetentionMetrics) Initialize() {
	m.PurgeRunsTotal.WithLabelValues("success")
	m.PurgeRunsTotal.WithLabelValues("error")
}

// RecordPurge records the outcome of one purge run.
func (m *RetentionMetrics) RecordPurge(at time.Time, deleted, archived int, err error) {
	if err != nil {
		m.PurgeRunsTotal.WithLabelValues("error").Inc()
		return
	}
	m.PurgeRunsTotal.WithLabelValues("success").Inc()
	m.PurgedEntriesTotal.Add(float64(deleted))
	m.ArchivedEntriesTotal.Add(float64(archived))
	m.LastPurgeTimestamp.Set(float64(at.Unix()))
}
