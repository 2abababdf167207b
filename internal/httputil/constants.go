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

// Package httputil provides shared HTTP constants and helpers.
package httputil

import (
	"encoding/json"
	"net/http"
)

// Header names and values used by the API.
const (
	HeaderContentType    = "Content-Type"
	HeaderRequestID      = "X-Request-ID"
	HeaderCacheControl   = "Cache-Control"
	HeaderContentOptions = "X-Content-Type-Options"
	ContentTypeJSON      = "application/json"
	CacheNoStore         = "no-store"
)

// ErrorResponse is the JSON body of every error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// WriteJSON encodes v and writes it with statusCode. Responses may carry
// sanitized text or decrypted audit records, so they are never cacheable.
// The body is encoded before the header is written; an encoding failure
// leaves the response untouched for the caller to report.
func WriteJSON(w http.ResponseWriter, statusCode int, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return err
	}
	h := w.Header()
	h.Set(HeaderContentType, ContentTypeJSON)
	h.Set(HeaderCacheControl, CacheNoStore)
	h.Set(HeaderContentOptions, "nosniff")
	w.WriteHeader(statusCode)
	_, err = w.Write(append(body, '\n'))
	return err
}

// WriteError writes an ErrorResponse with the given status code.
func WriteError(w http.ResponseWriter, statusCode int, msg string) {
	_ = WriteJSON(w, statusCode, ErrorResponse{Error: msg})
}
