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

package store_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/altairalabs/secureflow/internal/store"
	"github.com/altairalabs/secureflow/internal/store/storetest"
)

func TestMemoryStore(t *testing.T) {
	storetest.Run(t, func(*testing.T) store.Store {
		return store.NewMemoryStore()
	})
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	s := store.NewMemoryStore()
	ctx := context.Background()
	e := storetest.Entry("alice", store.EventTextScan, time.Now())
	require.NoError(t, s.CreateLog(ctx, e))

	e.Summary.Ciphertext[0] = 0xff
	got, err := s.GetLog(ctx, e.ID)
	require.NoError(t, err)
	assert.NotEqual(t, byte(0xff), got.Summary.Ciphertext[0])
}

func TestMemoryStore_Concurrent(t *testing.T) {
	s := store.NewMemoryStore()
	ctx := context.Background()
	users := storetest.Usernames("user", 8)

	var wg sync.WaitGroup
	for _, u := range users {
		wg.Add(1)
		go func(username string) {
			defer wg.Done()
			for range 25 {
				assert.NoError(t, s.CreateLog(ctx, storetest.Entry(username, store.EventTextScan, time.Now())))
			}
		}(u)
	}
	wg.Wait()

	for _, u := range users {
		stats, err := s.CountByType(ctx, u)
		require.NoError(t, err)
		assert.Equal(t, int64(25), stats.TextScans)
	}
}

func TestLogEntry_Validate(t *testing.T) {
	var nilEntry *store.LogEntry
	assert.ErrorIs(t, nilEntry.Validate(), store.ErrInvalidEntry)

	e := storetest.Entry("alice", store.EventTextScan, time.Now())
	assert.NoError(t, e.Validate())

	e.Summary = storetest.Record(0)
	e.Summary.Ciphertext, e.Summary.Nonce, e.Summary.Tag = nil, nil, nil
	assert.ErrorIs(t, e.Validate(), store.ErrInvalidEntry)
}
