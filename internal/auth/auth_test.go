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

package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/altairalabs/secureflow/pkg/logctx"
)

const testSecret = "test-signing-secret-0123456789"

func TestNormalizeUsername(t *testing.T) {
	assert.Equal(t, "alice", NormalizeUsername("  Alice "))
	assert.Equal(t, "", NormalizeUsername("   "))
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("s3cret!")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret!", hash)

	cost, err := bcrypt.Cost([]byte(hash))
	require.NoError(t, err)
	assert.Equal(t, PasswordCost, cost)

	assert.NoError(t, CheckPassword(hash, "s3cret!"))
	assert.ErrorIs(t, CheckPassword(hash, "wrong"), ErrInvalidCredentials)
	assert.ErrorIs(t, CheckPassword("not-a-hash", "s3cret!"), ErrInvalidCredentials)
}

func TestNewIssuer_WeakSecret(t *testing.T) {
	_, err := NewIssuer("short")
	assert.ErrorIs(t, err, ErrWeakSecret)
}

func TestIssuer_RoundTrip(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	iss, err := NewIssuer(testSecret, WithClock(func() time.Time { return now }))
	require.NoError(t, err)

	token, exp, err := iss.Issue("alice")
	require.NoError(t, err)
	assert.Equal(t, now.Add(DefaultTokenTTL), exp)

	username, err := iss.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "alice", username)
}

func TestIssuer_Expired(t *testing.T) {
	now := time.Now()
	iss, err := NewIssuer(testSecret, WithTTL(time.Hour), WithClock(func() time.Time { return now }))
	require.NoError(t, err)
	token, _, err := iss.Issue("alice")
	require.NoError(t, err)

	later, err := NewIssuer(testSecret, WithClock(func() time.Time { return now.Add(2 * time.Hour) }))
	require.NoError(t, err)
	_, err = later.Verify(token)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestIssuer_RejectsForeignTokens(t *testing.T) {
	iss, err := NewIssuer(testSecret)
	require.NoError(t, err)
	other, err := NewIssuer("another-secret-abcdefghijkl")
	require.NoError(t, err)

	token, _, err := other.Issue("mallory")
	require.NoError(t, err)
	_, err = iss.Verify(token)
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = iss.Verify("garbage")
	assert.ErrorIs(t, err, ErrUnauthorized)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, claims{Username: "mallory"})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = iss.Verify(unsigned)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestMiddleware(t *testing.T) {
	iss, err := NewIssuer(testSecret)
	require.NoError(t, err)
	token, _, err := iss.Issue("alice")
	require.NoError(t, err)

	var seen, seenLog string
	h := Middleware(iss, logr.Discard())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = Username(r.Context())
		seenLog = logctx.Username(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"valid", "Bearer " + token, http.StatusNoContent},
		{"lowercase scheme", "bearer " + token, http.StatusNoContent},
		{"missing", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic " + token, http.StatusUnauthorized},
		{"empty token", "Bearer ", http.StatusUnauthorized},
		{"invalid token", "Bearer nope", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen, seenLog = "", ""
			req := httptest.NewRequest(http.MethodGet, "/api/v1/logs", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.want, rec.Code)
			if tt.want == http.StatusNoContent {
				assert.Equal(t, "alice", seen)
				assert.Equal(t, "alice", seenLog)
			} else {
				assert.Empty(t, seen)
				assert.Contains(t, rec.Body.String(), `"error"`)
			}
		})
	}
}
