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

// Package store persists audit log entries and user accounts. Log entries
// only ever hold sealed records; plaintext never reaches storage.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/altairalabs/secureflow/pkg/securelog"
)

var (
	// ErrNotFound is returned when a log entry or user does not exist.
	ErrNotFound = errors.New("not found")
	// ErrUserExists is returned when registering a taken username.
	ErrUserExists = errors.New("user already exists")
	// ErrInvalidEntry is returned for entries missing required fields.
	ErrInvalidEntry = errors.New("invalid log entry")
)

// EventType distinguishes text scans from file scans.
type EventType string

const (
	EventTextScan EventType = "text_scan"
	EventFileScan EventType = "file_scan"
)

// Valid reports whether t is a known event type.
func (t EventType) Valid() bool {
	return t == EventTextScan || t == EventFileScan
}

// LogEntry is one audited scan.
type LogEntry struct {
	ID        string
	Username  string
	EventType EventType
	// Summary is the sealed sanitized text.
	Summary securelog.SealedRecord
	// Categories is the sealed JSON array of categories found.
	Categories securelog.SealedRecord
	// Original is the sealed original text prefix, when enabled.
	Original  *securelog.SealedRecord
	MaskLevel int
	Degraded  bool
	Truncated bool
	CreatedAt time.Time
}

// Validate checks required fields.
func (e *LogEntry) Validate() error {
	switch {
	case e == nil:
		return ErrInvalidEntry
	case e.ID == "":
		return errors.Join(ErrInvalidEntry, errors.New("id is required"))
	case e.Username == "":
		return errors.Join(ErrInvalidEntry, errors.New("username is required"))
	case !e.EventType.Valid():
		return errors.Join(ErrInvalidEntry, errors.New("unknown event type"))
	case e.Summary.IsZero():
		return errors.Join(ErrInvalidEntry, errors.New("sealed summary is required"))
	}
	return nil
}

// User is a registered account.
type User struct {
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}

// ListOpts paginates ListLogs.
type ListOpts struct {
	Limit  int
	Offset int
}

// Page is one page of log entries, newest first.
type Page struct {
	Entries []*LogEntry
	Total   int64
	HasMore bool
}

// Stats counts a user's scans by type.
type Stats struct {
	TextScans int64
	FileScans int64
}

// Total is the sum of all scans.
func (s Stats) Total() int64 {
	return s.TextScans + s.FileScans
}

// LogStore persists sealed audit entries.
type LogStore interface {
	CreateLog(ctx context.Context, entry *LogEntry) error
	GetLog(ctx context.Context, id string) (*LogEntry, error)
	// ListLogs returns username's entries newest first.
	ListLogs(ctx context.Context, username string, opts ListOpts) (*Page, error)
	CountByType(ctx context.Context, username string) (Stats, error)
	// LogsOlderThan returns up to limit entries created before cutoff, oldest first.
	LogsOlderThan(ctx context.Context, cutoff time.Time, limit int) ([]*LogEntry, error)
	DeleteLogs(ctx context.Context, ids []string) (int, error)
}

// UserStore persists accounts.
type UserStore interface {
	CreateUser(ctx context.Context, user *User) error
	GetUser(ctx context.Context, username string) (*User, error)
}

// Store is the full storage collaborator.
type Store interface {
	LogStore
	UserStore
	Ping(ctx context.Context) error
	Close() error
}
