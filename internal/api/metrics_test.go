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
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewHTTPMetrics_DefaultBuckets(t *testing.T) {
	m := NewHTTPMetricsWithRegistry(prometheus.NewRegistry(), nil)
	require.NotNil(t, m)
	assert.NotNil(t, m.RequestDuration)
	assert.NotNil(t, m.RequestsTotal)
	assert.NotNil(t, m.UploadBytes)
}

func TestNewHTTPMetrics_CustomBuckets(t *testing.T) {
	m := NewHTTPMetricsWithRegistry(prometheus.NewRegistry(), &HTTPMetricsConfig{
		DurationBuckets: []float64{0.1, 1.0, 10.0},
	})
	require.NotNil(t, m)
}

func TestMetricsMiddleware_RecordsStatus(t *testing.T) {
	m := NewHTTPMetricsWithRegistry(prometheus.NewRegistry(), nil)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/stats", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	handler := MetricsMiddleware(m, mux)

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil))

	assert.Equal(t, http.StatusTeapot, rr.Code)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("GET", "GET /api/v1/stats", "418")))
}

func TestMetricsMiddleware_DefaultStatus(t *testing.T) {
	m := NewHTTPMetricsWithRegistry(prometheus.NewRegistry(), nil)
	handler := MetricsMiddleware(m, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("GET", "unmatched", "200")))
}
