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

// Package storetest provides a behavioural test suite shared by every
// store.Store implementation.
package storetest

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/altairalabs/secureflow/internal/store"
	"github.com/altairalabs/secureflow/pkg/securelog"
)

// Record returns a syntactically valid sealed record whose bytes are
// derived from seed.
func Record(seed byte) securelog.SealedRecord {
	nonce := make([]byte, securelog.NonceSize)
	tag := make([]byte, securelog.TagSize)
	for i := range nonce {
		nonce[i] = seed
	}
	for i := range tag {
		tag[i] = seed + 1
	}
	return securelog.SealedRecord{Ciphertext: []byte{seed, seed, seed}, Nonce: nonce, Tag: tag}
}

// Entry builds a log entry for username created at ts.
func Entry(username string, typ store.EventType, ts time.Time) *store.LogEntry {
	return &store.LogEntry{
		ID:         uuid.NewString(),
		Username:   username,
		EventType:  typ,
		Summary:    Record(1),
		Categories: Record(2),
		MaskLevel:  100,
		CreatedAt:  ts.UTC().Truncate(time.Microsecond),
	}
}

// Run exercises newStore against the store contract. Each subtest gets a
// fresh store.
func Run(t *testing.T, newStore func(t *testing.T) store.Store) {
	t.Run("log round trip", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		e := Entry("alice", store.EventFileScan, time.Now())
		orig := Record(9)
		e.Original = &orig
		e.Degraded = true
		e.Truncated = true
		e.MaskLevel = 30
		require.NoError(t, s.CreateLog(ctx, e))

		got, err := s.GetLog(ctx, e.ID)
		require.NoError(t, err)
		assert.Equal(t, e.ID, got.ID)
		assert.Equal(t, "alice", got.Username)
		assert.Equal(t, store.EventFileScan, got.EventType)
		assert.Equal(t, e.Summary, got.Summary)
		assert.Equal(t, e.Categories, got.Categories)
		require.NotNil(t, got.Original)
		assert.Equal(t, orig, *got.Original)
		assert.Equal(t, 30, got.MaskLevel)
		assert.True(t, got.Degraded)
		assert.True(t, got.Truncated)
		assert.True(t, e.CreatedAt.Equal(got.CreatedAt))
	})

	t.Run("missing log", func(t *testing.T) {
		s := newStore(t)
		_, err := s.GetLog(context.Background(), uuid.NewString())
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("invalid entry", func(t *testing.T) {
		s := newStore(t)
		e := Entry("alice", store.EventTextScan, time.Now())
		e.EventType = "other"
		assert.ErrorIs(t, s.CreateLog(context.Background(), e), store.ErrInvalidEntry)
	})

	t.Run("list newest first with paging", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		base := time.Now().Add(-time.Hour)

		var ids []string
		for i := range 5 {
			e := Entry("alice", store.EventTextScan, base.Add(time.Duration(i)*time.Minute))
			require.NoError(t, s.CreateLog(ctx, e))
			ids = append(ids, e.ID)
		}
		require.NoError(t, s.CreateLog(ctx, Entry("bob", store.EventTextScan, base)))

		page, err := s.ListLogs(ctx, "alice", store.ListOpts{Limit: 2})
		require.NoError(t, err)
		assert.Equal(t, int64(5), page.Total)
		assert.True(t, page.HasMore)
		require.Len(t, page.Entries, 2)
		assert.Equal(t, ids[4], page.Entries[0].ID)
		assert.Equal(t, ids[3], page.Entries[1].ID)

		page, err = s.ListLogs(ctx, "alice", store.ListOpts{Limit: 2, Offset: 4})
		require.NoError(t, err)
		assert.False(t, page.HasMore)
		require.Len(t, page.Entries, 1)
		assert.Equal(t, ids[0], page.Entries[0].ID)

		page, err = s.ListLogs(ctx, "carol", store.ListOpts{Limit: 10})
		require.NoError(t, err)
		assert.Empty(t, page.Entries)
		assert.Zero(t, page.Total)
	})

	t.Run("count by type", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		now := time.Now()
		for _, typ := range []store.EventType{store.EventTextScan, store.EventTextScan, store.EventFileScan} {
			require.NoError(t, s.CreateLog(ctx, Entry("alice", typ, now)))
		}
		require.NoError(t, s.CreateLog(ctx, Entry("bob", store.EventFileScan, now)))

		stats, err := s.CountByType(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, store.Stats{TextScans: 2, FileScans: 1}, stats)
		assert.Equal(t, int64(3), stats.Total())
	})

	t.Run("retention queries", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		now := time.Now()

		var old []string
		for i := range 3 {
			e := Entry("alice", store.EventTextScan, now.Add(-time.Duration(48+i)*time.Hour))
			require.NoError(t, s.CreateLog(ctx, e))
			old = append(old, e.ID)
		}
		fresh := Entry("alice", store.EventTextScan, now)
		require.NoError(t, s.CreateLog(ctx, fresh))

		expired, err := s.LogsOlderThan(ctx, now.Add(-24*time.Hour), 2)
		require.NoError(t, err)
		require.Len(t, expired, 2)
		assert.Equal(t, old[2], expired[0].ID, "oldest first")

		n, err := s.DeleteLogs(ctx, old)
		require.NoError(t, err)
		assert.Equal(t, 3, n)

		_, err = s.GetLog(ctx, fresh.ID)
		assert.NoError(t, err)
		_, err = s.GetLog(ctx, old[0])
		assert.ErrorIs(t, err, store.ErrNotFound)

		n, err = s.DeleteLogs(ctx, nil)
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("users", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		u := &store.User{Username: "alice", PasswordHash: "$2a$10$hash", CreatedAt: time.Now().UTC().Truncate(time.Microsecond)}
		require.NoError(t, s.CreateUser(ctx, u))
		assert.ErrorIs(t, s.CreateUser(ctx, u), store.ErrUserExists)

		got, err := s.GetUser(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, u.PasswordHash, got.PasswordHash)

		_, err = s.GetUser(ctx, "nobody")
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("ping", func(t *testing.T) {
		assert.NoError(t, newStore(t).Ping(context.Background()))
	})
}

// Usernames returns n distinct usernames with the given prefix.
func Usernames(prefix string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("%s-%d", prefix, i)
	}
	return out
}
