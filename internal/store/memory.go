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

package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/altairalabs/secureflow/pkg/securelog"
)

// Compile-time interface check.
var _ Store = (*MemoryStore)(nil)

// MemoryStore is an in-process Store for development and tests.
type MemoryStore struct {
	mu    sync.RWMutex
	logs  map[string]*LogEntry
	users map[string]*User
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		logs:  make(map[string]*LogEntry),
		users: make(map[string]*User),
	}
}

func (m *MemoryStore) CreateLog(_ context.Context, entry *LogEntry) error {
	if err := entry.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logs[entry.ID] = cloneEntry(entry)
	return nil
}

func (m *MemoryStore) GetLog(_ context.Context, id string) (*LogEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.logs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneEntry(e), nil
}

func (m *MemoryStore) ListLogs(_ context.Context, username string, opts ListOpts) (*Page, error) {
	m.mu.RLock()
	var owned []*LogEntry
	for _, e := range m.logs {
		if e.Username == username {
			owned = append(owned, e)
		}
	}
	m.mu.RUnlock()

	sort.Slice(owned, func(i, j int) bool {
		if !owned[i].CreatedAt.Equal(owned[j].CreatedAt) {
			return owned[i].CreatedAt.After(owned[j].CreatedAt)
		}
		return owned[i].ID > owned[j].ID
	})

	page := &Page{Entries: []*LogEntry{}, Total: int64(len(owned))}
	start := min(max(opts.Offset, 0), len(owned))
	end := len(owned)
	if opts.Limit > 0 {
		end = min(start+opts.Limit, len(owned))
	}
	for _, e := range owned[start:end] {
		page.Entries = append(page.Entries, cloneEntry(e))
	}
	page.HasMore = end < len(owned)
	return page, nil
}

func (m *MemoryStore) CountByType(_ context.Context, username string) (Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var s Stats
	for _, e := range m.logs {
		if e.Username != username {
			continue
		}
		switch e.EventType {
		case EventTextScan:
			s.TextScans++
		case EventFileScan:
			s.FileScans++
		}
	}
	return s, nil
}

func (m *MemoryStore) LogsOlderThan(_ context.Context, cutoff time.Time, limit int) ([]*LogEntry, error) {
	m.mu.RLock()
	var out []*LogEntry
	for _, e := range m.logs {
		if e.CreatedAt.Before(cutoff) {
			out = append(out, cloneEntry(e))
		}
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryStore) DeleteLogs(_ context.Context, ids []string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, id := range ids {
		if _, ok := m.logs[id]; ok {
			delete(m.logs, id)
			n++
		}
	}
	return n, nil
}

func (m *MemoryStore) CreateUser(_ context.Context, user *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[user.Username]; ok {
		return ErrUserExists
	}
	u := *user
	m.users[user.Username] = &u
	return nil
}

func (m *MemoryStore) GetUser(_ context.Context, username string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[username]
	if !ok {
		return nil, ErrNotFound
	}
	out := *u
	return &out, nil
}

func (m *MemoryStore) Ping(context.Context) error { return nil }

func (m *MemoryStore) Close() error { return nil }

func cloneEntry(e *LogEntry) *LogEntry {
	out := *e
	out.Summary = cloneRecord(e.Summary)
	out.Categories = cloneRecord(e.Categories)
	if e.Original != nil {
		orig := cloneRecord(*e.Original)
		out.Original = &orig
	}
	return &out
}

func cloneRecord(r securelog.SealedRecord) securelog.SealedRecord {
	return securelog.SealedRecord{
		Ciphertext: append([]byte(nil), r.Ciphertext...),
		Nonce:      append([]byte(nil), r.Nonce...),
		Tag:        append([]byte(nil), r.Tag...),
	}
}
