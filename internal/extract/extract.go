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

// Package extract turns uploaded documents into plain text for scanning.
package extract

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/altairalabs/secureflow/pkg/engine"
)

// Supported document types.
const (
	MIMETypePDF   = "application/pdf"
	MIMETypePNG   = "image/png"
	MIMETypeJPEG  = "image/jpeg"
	MIMETypePlain = "text/plain"
)

var (
	// ErrUnsupportedMIMEType is returned for documents that are not PDF, PNG,
	// JPEG or plain text.
	ErrUnsupportedMIMEType = errors.New("unsupported MIME type")
	// ErrFileTooLarge is returned when a document exceeds the size limit.
	ErrFileTooLarge = errors.New("file too large")
	// ErrEmptyDocument is returned for a zero-byte upload.
	ErrEmptyDocument = errors.New("empty document")
	// ErrExtractionFailed wraps collaborator failures.
	ErrExtractionFailed = errors.New("extraction failed")
)

// Document is an uploaded file.
type Document struct {
	Name     string
	MIMEType string
	Data     []byte
}

// Extractor turns a document into text.
type Extractor interface {
	Extract(ctx context.Context, doc Document) (string, error)
}

// DetectMIMEType resolves the document type from its content, falling back
// to the file extension when sniffing is inconclusive.
func DetectMIMEType(name string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", ErrEmptyDocument
	}

	sniffed := http.DetectContentType(data)
	if i := strings.IndexByte(sniffed, ';'); i >= 0 {
		sniffed = sniffed[:i]
	}
	switch sniffed {
	case MIMETypePDF, MIMETypePNG, MIMETypeJPEG:
		return sniffed, nil
	case MIMETypePlain:
		return MIMETypePlain, nil
	}

	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf":
		return MIMETypePDF, nil
	case ".png":
		return MIMETypePNG, nil
	case ".jpg", ".jpeg":
		return MIMETypeJPEG, nil
	case ".txt":
		return MIMETypePlain, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedMIMEType, sniffed)
}

// PlainText extracts text/plain documents locally.
type PlainText struct{}

// Extract returns the document body with invalid UTF-8 replaced.
func (PlainText) Extract(_ context.Context, doc Document) (string, error) {
	if doc.MIMEType != MIMETypePlain {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedMIMEType, doc.MIMEType)
	}
	return strings.ToValidUTF8(string(doc.Data), string(utf8.RuneError)), nil
}

// Router dispatches plain text locally and everything else to a remote
// extractor. A nil Remote rejects binary documents.
type Router struct {
	Remote Extractor
	// MaxBytes bounds document size. Zero means unbounded.
	MaxBytes int64
}

// Extract validates the document and dispatches it.
func (r *Router) Extract(ctx context.Context, doc Document) (string, error) {
	if len(doc.Data) == 0 {
		return "", ErrEmptyDocument
	}
	if r.MaxBytes > 0 && int64(len(doc.Data)) > r.MaxBytes {
		return "", fmt.Errorf("%w: max size is %d bytes", ErrFileTooLarge, r.MaxBytes)
	}
	if doc.MIMEType == "" {
		mt, err := DetectMIMEType(doc.Name, doc.Data)
		if err != nil {
			return "", err
		}
		doc.MIMEType = mt
	}

	switch doc.MIMEType {
	case MIMETypePlain:
		return PlainText{}.Extract(ctx, doc)
	case MIMETypePDF, MIMETypePNG, MIMETypeJPEG:
		if r.Remote == nil {
			return "", fmt.Errorf("%w: no extractor configured for %s", ErrUnsupportedMIMEType, doc.MIMEType)
		}
		return r.Remote.Extract(ctx, doc)
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedMIMEType, doc.MIMEType)
	}
}

// Truncate bounds extracted text to maxRunes characters.
func Truncate(text string, maxRunes int) (string, bool) {
	return engine.TruncateRunes(text, maxRunes)
}
