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

package hints

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu      sync.Mutex
	reasons []string
}

func (r *recorder) record(reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reasons = append(r.reasons, reason)
}

func (r *recorder) all() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.reasons...)
}

func TestHints_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/analyze", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)

		var req analyzeRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "Jane works at Acme", req.Text)

		_ = json.NewEncoder(w).Encode(analyzeResponse{Entities: []Entity{
			{Label: "PER", Text: "Jane", Start: 0, End: 4, Score: 0.98},
		}})
	}))
	defer srv.Close()

	res := New(srv.URL + "/").Hints(context.Background(), "Jane works at Acme")
	assert.False(t, res.Degraded)
	assert.Empty(t, res.Reason)
	require.Len(t, res.Entities, 1)
	assert.Equal(t, "PER", res.Entities[0].Label)
}

func TestHints_EmptyEntities(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	res := New(srv.URL).Hints(context.Background(), "x")
	assert.False(t, res.Degraded)
	assert.NotNil(t, res.Entities)
	assert.Empty(t, res.Entities)
}

func TestHints_FailSoft(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		reason  string
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
			reason: ReasonStatus,
		},
		{
			name: "bad json",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(`{"entities": [`))
			},
			reason: ReasonDecode,
		},
		{
			name: "slow",
			handler: func(w http.ResponseWriter, r *http.Request) {
				select {
				case <-r.Context().Done():
				case <-time.After(2 * time.Second):
				}
			},
			reason: ReasonTimeout,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			rec := &recorder{}
			c := New(srv.URL, WithTimeout(50*time.Millisecond), WithFailureRecorder(rec.record))
			res := c.Hints(context.Background(), "text")

			assert.True(t, res.Degraded)
			assert.Equal(t, tt.reason, res.Reason)
			assert.Empty(t, res.Entities)
			assert.Equal(t, []string{tt.reason}, rec.all())
		})
	}
}

func TestHints_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	res := New(url).Hints(context.Background(), "text")
	assert.True(t, res.Degraded)
	assert.Equal(t, ReasonUnreachable, res.Reason)
}

func TestHints_CircuitOpens(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := New(srv.URL, WithBreakerThreshold(2), WithBreakerCooldown(time.Minute))
	ctx := context.Background()

	assert.Equal(t, ReasonStatus, c.Hints(ctx, "a").Reason)
	assert.Equal(t, ReasonStatus, c.Hints(ctx, "b").Reason)
	assert.Equal(t, ReasonCircuitOpen, c.Hints(ctx, "c").Reason)
	assert.Equal(t, int32(2), calls.Load(), "open circuit must not reach the classifier")
}

func TestHints_RateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"entities":[]}`))
	}))
	defer srv.Close()

	c := New(srv.URL, WithRateLimit(0.001, 1))
	ctx := context.Background()

	assert.False(t, c.Hints(ctx, "first").Degraded)
	res := c.Hints(ctx, "second")
	assert.True(t, res.Degraded)
	assert.Equal(t, ReasonRateLimited, res.Reason)
}

func TestClassify_ReturnsErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	defer srv.Close()

	_, err := New(srv.URL).Classify(context.Background(), "x")
	assert.ErrorIs(t, err, ErrUnexpectedStatus)
}

func TestNoop(t *testing.T) {
	var h Hinter = Noop{}
	res := h.Hints(context.Background(), "anything")
	assert.False(t, res.Degraded)
	assert.Empty(t, res.Entities)
}
