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

// Package metrics defines the Prometheus metrics exported by secureflow.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/altairalabs/secureflow/pkg/detect"
	"github.com/altairalabs/secureflow/pkg/redaction"
)

// ScannerMetrics holds metrics for the analysis pipeline.
type ScannerMetrics struct {
	// AnalysesTotal counts completed analyses by applied mask level.
	AnalysesTotal *prometheus.CounterVec
	// AnalysisDuration tracks pipeline latency.
	AnalysisDuration prometheus.Histogram
	// FindingsTotal counts resolved tags by category.
	FindingsTotal *prometheus.CounterVec
	// RedactionsTotal counts replaced occurrences by category.
	RedactionsTotal *prometheus.CounterVec
	// DetectorFaultsTotal counts isolated detector failures by detector name.
	DetectorFaultsTotal *prometheus.CounterVec
	// HintFailuresTotal counts failed calls to the external classifier.
	HintFailuresTotal *prometheus.CounterVec
}

// NewScannerMetrics creates scanner metrics on the default registry.
func NewScannerMetrics() *ScannerMetrics {
	return newScannerMetrics(prometheus.DefaultRegisterer)
}

// NewScannerMetricsWithRegistry creates scanner metrics with a custom registry for testing.
func NewScannerMetricsWithRegistry(reg prometheus.Registerer) *ScannerMetrics {
	return newScannerMetrics(reg)
}

func newScannerMetrics(reg prometheus.Registerer) *ScannerMetrics {
	f := promauto.With(reg)
	return &ScannerMetrics{
		AnalysesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "secureflow_analyses_total",
			Help: "Total number of completed analyses by mask level",
		}, []string{"mask_level"}),

		AnalysisDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "secureflow_analysis_duration_seconds",
			Help:    "Duration of the detect, resolve, redact and seal pipeline",
			Buckets: []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
		}),

		FindingsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "secureflow_findings_total",
			Help: "Total number of resolved sensitive spans by category",
		}, []string{"category"}),

		RedactionsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "secureflow_redactions_total",
			Help: "Total number of redacted occurrences by category",
		}, []string{"category"}),

		DetectorFaultsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "secureflow_detector_faults_total",
			Help: "Total number of detector failures that were isolated and skipped",
		}, []string{"detector"}),

		HintFailuresTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "secureflow_hint_failures_total",
			Help: "Total number of failed external classifier calls",
		}, []string{"reason"}),
	}
}

// ObserveAnalysis records one completed analysis.
func (m *ScannerMetrics) ObserveAnalysis(level int, elapsed time.Duration, tags []detect.Span, events []redaction.Event) {
	m.AnalysesTotal.WithLabelValues(levelLabel(level)).Inc()
	m.AnalysisDuration.Observe(elapsed.Seconds())
	for _, t := range tags {
		m.FindingsTotal.WithLabelValues(t.Category.String()).Inc()
	}
	for _, ev := range events {
		m.RedactionsTotal.WithLabelValues(ev.Category.String()).Add(float64(ev.Occurrences))
	}
}

// RecordDetectorFault counts a detector failure. Its signature matches
// detect.FaultHandler.
func (m *ScannerMetrics) RecordDetectorFault(d detect.Detector, _ error) {
	m.DetectorFaultsTotal.WithLabelValues(d.Name).Inc()
}

// RecordHintFailure counts a failed classifier call.
func (m *ScannerMetrics) RecordHintFailure(reason string) {
	m.HintFailuresTotal.WithLabelValues(reason).Inc()
}

var levelLabels = map[int]string{
	10: "10", 20: "20", 30: "30", 40: "40", 50: "50",
	60: "60", 70: "70", 80: "80", 90: "90", 100: "100",
}

func levelLabel(level int) string {
	if l, ok := levelLabels[level]; ok {
		return l
	}
	return "other"
}
