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

// Package api exposes the scanner over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-logr/logr"

	"github.com/altairalabs/secureflow/internal/auth"
	"github.com/altairalabs/secureflow/internal/extract"
	"github.com/altairalabs/secureflow/internal/httputil"
	"github.com/altairalabs/secureflow/internal/service"
	"github.com/altairalabs/secureflow/internal/store"
	"github.com/altairalabs/secureflow/pkg/logctx"
	"github.com/altairalabs/secureflow/pkg/securelog"
)

// Handler constants.
const (
	defaultMaxUploadBytes = 10 << 20
	maxJSONBodyBytes      = 1 << 20
	// multipartOverhead allows for boundaries and form fields around the file.
	multipartOverhead = 64 << 10
)

// Service is the application layer the handlers call.
type Service interface {
	ScanText(ctx context.Context, username, text string, level *int) (*service.ScanResult, error)
	ScanFile(ctx context.Context, username string, doc extract.Document, level *int) (*service.ScanResult, error)
	ListLogs(ctx context.Context, username string, opts store.ListOpts) (*service.LogPage, error)
	GetLog(ctx context.Context, username, id string) (*service.LogDetail, error)
	Stats(ctx context.Context, username string) (*service.StatsView, error)
	Register(ctx context.Context, username, password string) (*service.Session, error)
	Login(ctx context.Context, username, password string) (*service.Session, error)
	Ready(ctx context.Context) error
}

// Config configures the handler.
type Config struct {
	// MaxUploadBytes bounds uploaded files. Zero means 10 MiB.
	MaxUploadBytes int64
	// Metrics is optional.
	Metrics *HTTPMetrics
}

// Handler serves the public API.
type Handler struct {
	svc       Service
	issuer    *auth.Issuer
	maxUpload int64
	metrics   *HTTPMetrics
	log       logr.Logger
}

// NewHandler creates a Handler.
func NewHandler(svc Service, issuer *auth.Issuer, cfg Config, log logr.Logger) *Handler {
	maxUpload := cfg.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = defaultMaxUploadBytes
	}
	return &Handler{
		svc:       svc,
		issuer:    issuer,
		maxUpload: maxUpload,
		metrics:   cfg.Metrics,
		log:       log.WithName("api"),
	}
}

// RegisterRoutes registers the API routes on mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/auth/register", h.handleRegister)
	mux.HandleFunc("POST /api/v1/auth/login", h.handleLogin)

	protect := auth.Middleware(h.issuer, h.log)
	mux.Handle("POST /api/v1/analyze", protect(http.HandlerFunc(h.handleAnalyze)))
	mux.Handle("POST /api/v1/upload", protect(http.HandlerFunc(h.handleUpload)))
	mux.Handle("GET /api/v1/logs", protect(http.HandlerFunc(h.handleListLogs)))
	mux.Handle("GET /api/v1/logs/{id}", protect(http.HandlerFunc(h.handleGetLog)))
	mux.Handle("GET /api/v1/stats", protect(http.HandlerFunc(h.handleStats)))
}

// Routes returns the API mux wrapped in request-id and metrics middleware.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	var handler http.Handler = mux
	if h.metrics != nil {
		handler = MetricsMiddleware(h.metrics, handler)
	}
	return httputil.RequestID(handler)
}

// HealthRoutes returns the liveness and readiness endpoints.
func (h *Handler) HealthRoutes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		if err := h.svc.Ready(r.Context()); err != nil {
			h.log.Error(err, "readiness check failed")
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}

func (h *Handler) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	if err := httputil.WriteJSON(w, status, v); err != nil {
		h.writeError(w, r, fmt.Errorf("encode response: %w", err))
	}
}

// writeError maps known errors to HTTP status codes and writes a JSON error response.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	msg := "internal server error"

	var tooLarge *http.MaxBytesError
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		status = http.StatusBadRequest
		msg = err.Error()
	case errors.Is(err, extract.ErrEmptyDocument):
		status = http.StatusBadRequest
		msg = extract.ErrEmptyDocument.Error()
	case errors.Is(err, auth.ErrInvalidCredentials), errors.Is(err, auth.ErrUnauthorized):
		status = http.StatusUnauthorized
		msg = "invalid credentials"
	case errors.Is(err, service.ErrForbidden):
		status = http.StatusForbidden
		msg = "forbidden"
	case errors.Is(err, store.ErrNotFound):
		status = http.StatusNotFound
		msg = "log not found"
	case errors.Is(err, store.ErrUserExists):
		status = http.StatusConflict
		msg = store.ErrUserExists.Error()
	case errors.Is(err, extract.ErrFileTooLarge), errors.As(err, &tooLarge):
		status = http.StatusRequestEntityTooLarge
		msg = "request body too large"
	case errors.Is(err, extract.ErrUnsupportedMIMEType):
		status = http.StatusUnsupportedMediaType
		msg = "unsupported file type"
	case errors.Is(err, extract.ErrExtractionFailed):
		status = http.StatusBadGateway
		msg = "document extraction failed"
	case errors.Is(err, securelog.ErrAuthenticationFailed), errors.Is(err, securelog.ErrMalformedRecord):
		msg = "stored record could not be decrypted"
	}

	if status >= http.StatusInternalServerError {
		logctx.LoggerWithContext(h.log, r.Context()).Error(err, "request failed",
			"method", r.Method, "path", r.URL.Path, "status", status)
	}
	httputil.WriteError(w, status, msg)
}
