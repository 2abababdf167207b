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

package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metric name constants.
const (
	metricRequestDuration = "secureflow_http_request_duration_seconds"
	metricRequestsTotal   = "secureflow_http_requests_total"
	metricUploadBytes     = "secureflow_http_upload_bytes"
)

// DefaultHTTPDurationBuckets are histogram buckets for HTTP request durations.
var DefaultHTTPDurationBuckets = []float64{
	0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30,
}

// HTTPMetrics holds Prometheus metrics for the API HTTP layer.
type HTTPMetrics struct {
	// RequestDuration tracks HTTP request duration in seconds by method, route, and status code.
	RequestDuration *prometheus.HistogramVec

	// RequestsTotal counts HTTP requests by method, route, and status code.
	RequestsTotal *prometheus.CounterVec

	// UploadBytes tracks accepted upload sizes.
	UploadBytes prometheus.Histogram
}

// HTTPMetricsConfig configures the HTTP metrics.
type HTTPMetricsConfig struct {
	DurationBuckets []float64
}

// NewHTTPMetrics creates and registers HTTP metrics on the default registry.
func NewHTTPMetrics(cfg *HTTPMetricsConfig) *HTTPMetrics {
	return NewHTTPMetricsWithRegistry(prometheus.DefaultRegisterer, cfg)
}

// NewHTTPMetricsWithRegistry creates HTTP metrics on reg.
func NewHTTPMetricsWithRegistry(reg prometheus.Registerer, cfg *HTTPMetricsConfig) *HTTPMetrics {
	buckets := DefaultHTTPDurationBuckets
	if cfg != nil && cfg.DurationBuckets != nil {
		buckets = cfg.DurationBuckets
	}
	factory := promauto.With(reg)

	return &HTTPMetrics{
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    metricRequestDuration,
			Help:    "HTTP request duration in seconds",
			Buckets: buckets,
		}, []string{"method", "route", "status_code"}),

		RequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: metricRequestsTotal,
			Help: "Total HTTP requests by method, route, and status code",
		}, []string{"method", "route", "status_code"}),

		UploadBytes: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    metricUploadBytes,
			Help:    "Size of accepted uploads in bytes",
			Buckets: prometheus.ExponentialBuckets(1024, 4, 8),
		}),
	}
}

// statusCapture wraps http.ResponseWriter to capture the status code.
type statusCapture struct {
	http.ResponseWriter
	code int
}

func (s *statusCapture) WriteHeader(code int) {
	s.code = code
	s.ResponseWriter.WriteHeader(code)
}

// Unwrap exposes the underlying writer to http.ResponseController.
func (s *statusCapture) Unwrap() http.ResponseWriter {
	return s.ResponseWriter
}

// MetricsMiddleware returns HTTP middleware that records request metrics.
func MetricsMiddleware(m *HTTPMetrics, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sc := &statusCapture{ResponseWriter: w, code: http.StatusOK}

		next.ServeHTTP(sc, r)

		duration := time.Since(start).Seconds()
		route := normalizeRoute(r)
		status := strconv.Itoa(sc.code)

		m.RequestDuration.WithLabelValues(r.Method, route, status).Observe(duration)
		m.RequestsTotal.WithLabelValues(r.Method, route, status).Inc()
	})
}

// normalizeRoute returns a low-cardinality route label. Unmatched paths
// collapse into one label.
func normalizeRoute(r *http.Request) string {
	if pat := r.Pattern; pat != "" {
		return pat
	}
	return "unmatched"
}
