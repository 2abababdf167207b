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
	"context"
	"net/http"
	"strings"

	"github.com/go-logr/logr"

	"github.com/altairalabs/secureflow/internal/httputil"
	"github.com/altairalabs/secureflow/pkg/logctx"
)

type usernameKey struct{}

// WithUsername returns a context carrying the authenticated username.
func WithUsername(ctx context.Context, username string) context.Context {
	ctx = context.WithValue(ctx, usernameKey{}, username)
	return logctx.WithUsername(ctx, username)
}

// Username returns the authenticated username, or "" if none.
func Username(ctx context.Context) string {
	if v, ok := ctx.Value(usernameKey{}).(string); ok {
		return v
	}
	return ""
}

// Middleware rejects requests without a valid bearer token and stores the
// authenticated username in the request context.
func Middleware(issuer *Issuer, log logr.Logger) func(http.Handler) http.Handler {
	log = log.WithName("auth")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				writeUnauthorized(w, "missing bearer token")
				return
			}
			username, err := issuer.Verify(token)
			if err != nil {
				log.V(1).Info("token rejected", "error", err.Error(), "path", r.URL.Path)
				writeUnauthorized(w, "invalid or expired token")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUsername(r.Context(), username)))
		})
	}
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func writeUnauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="secureflow"`)
	httputil.WriteError(w, http.StatusUnauthorized, msg)
}
