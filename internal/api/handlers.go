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
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"

	"github.com/altairalabs/secureflow/internal/auth"
	"github.com/altairalabs/secureflow/internal/extract"
	"github.com/altairalabs/secureflow/internal/service"
	"github.com/altairalabs/secureflow/internal/store"
	"github.com/altairalabs/secureflow/pkg/masking"
)

// AnalyzeRequest is the body of POST /api/v1/analyze. MaskLevel may be a
// number, a numeric string or absent.
type AnalyzeRequest struct {
	Text      string `json:"text"`
	MaskLevel any    `json:"maskLevel,omitempty"`
}

// CredentialsRequest is the body of the register and login endpoints.
type CredentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *Handler) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	res, err := h.svc.ScanText(r.Context(), auth.Username(r.Context()), req.Text, levelFromJSON(req.MaskLevel))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, res)
}

func (h *Handler) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload+multipartOverhead)
	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.writeError(w, r, err)
			return
		}
		h.writeError(w, r, fmt.Errorf("%w: expected multipart form with a file field", service.ErrInvalidInput))
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("file")
	if err != nil {
		h.writeError(w, r, fmt.Errorf("%w: file is required", service.ErrInvalidInput))
		return
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(io.LimitReader(file, h.maxUpload+1))
	if err != nil {
		h.writeError(w, r, fmt.Errorf("read upload: %w", err))
		return
	}
	if int64(len(data)) > h.maxUpload {
		h.writeError(w, r, fmt.Errorf("%w: max size is %d bytes", extract.ErrFileTooLarge, h.maxUpload))
		return
	}
	if h.metrics != nil {
		h.metrics.UploadBytes.Observe(float64(len(data)))
	}

	var level *int
	if v := r.FormValue("maskLevel"); v != "" {
		l := masking.ParseLevel(v)
		level = &l
	}

	// The declared content type is not trusted; the extractor sniffs.
	doc := extract.Document{Name: header.Filename, Data: data}
	res, err := h.svc.ScanFile(r.Context(), auth.Username(r.Context()), doc, level)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, res)
}

func (h *Handler) handleListLogs(w http.ResponseWriter, r *http.Request) {
	opts, err := parseListParams(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	page, err := h.svc.ListLogs(r.Context(), auth.Username(r.Context()), opts)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, page)
}

func (h *Handler) handleGetLog(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	detail, err := h.svc.GetLog(r.Context(), auth.Username(r.Context()), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, detail)
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.Stats(r.Context(), auth.Username(r.Context()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, stats)
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req CredentialsRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	sess, err := h.svc.Register(r.Context(), req.Username, req.Password)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusCreated, sess)
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req CredentialsRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	sess, err := h.svc.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, sess)
}

func (h *Handler) decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return err
		}
		return fmt.Errorf("%w: malformed JSON body", service.ErrInvalidInput)
	}
	return nil
}

// levelFromJSON accepts a number or numeric string. Anything else, including
// null, means no level was given.
func levelFromJSON(v any) *int {
	var l int
	switch x := v.(type) {
	case float64:
		switch {
		case x >= masking.MaxLevel:
			l = masking.MaxLevel
		case x <= masking.MinLevel:
			l = masking.MinLevel
		default:
			l = int(math.Floor(x))
		}
	case string:
		l = masking.ParseLevel(x)
	default:
		return nil
	}
	return &l
}

func parseListParams(r *http.Request) (store.ListOpts, error) {
	var opts store.ListOpts
	q := r.URL.Query()
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return opts, fmt.Errorf("%w: limit must be a non-negative integer", service.ErrInvalidInput)
		}
		opts.Limit = n
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return opts, fmt.Errorf("%w: offset must be a non-negative integer", service.ErrInvalidInput)
		}
		opts.Offset = n
	}
	return opts, nil
}
