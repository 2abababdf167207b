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

package redisstats

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/altairalabs/secureflow/internal/store"
)

func setupTestCounter(t *testing.T) (*Counter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewFromClient(client, ""), mr
}

func TestCounter_IncrAndGet(t *testing.T) {
	c, mr := setupTestCounter(t)
	ctx := context.Background()

	require.NoError(t, c.Incr(ctx, "alice", store.EventTextScan))
	require.NoError(t, c.Incr(ctx, "alice", store.EventTextScan))
	require.NoError(t, c.Incr(ctx, "alice", store.EventFileScan))
	require.NoError(t, c.Incr(ctx, "bob", store.EventFileScan))

	s, err := c.Get(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, store.Stats{TextScans: 2, FileScans: 1}, s)

	assert.Equal(t, "2", mr.HGet("secureflow:stats:{alice}", "text_scan"))
}

func TestCounter_UnknownUser(t *testing.T) {
	c, _ := setupTestCounter(t)
	s, err := c.Get(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Zero(t, s.Total())
}

func TestCounter_Seed(t *testing.T) {
	c, _ := setupTestCounter(t)
	ctx := context.Background()

	require.NoError(t, c.Seed(ctx, "alice", store.Stats{TextScans: 7, FileScans: 3}))
	require.NoError(t, c.Incr(ctx, "alice", store.EventFileScan))

	s, err := c.Get(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, store.Stats{TextScans: 7, FileScans: 4}, s)
}

func TestCounter_ServerDown(t *testing.T) {
	c, mr := setupTestCounter(t)
	mr.Close()

	assert.Error(t, c.Incr(context.Background(), "alice", store.EventTextScan))
	_, err := c.Get(context.Background(), "alice")
	assert.Error(t, err)
	assert.Error(t, c.Ping(context.Background()))
}

func TestNew(t *testing.T) {
	mr := miniredis.RunT(t)

	c, err := New(context.Background(), Config{Addrs: []string{mr.Addr()}, KeyPrefix: "t:", Tracing: true})
	require.NoError(t, err)
	defer func() { _ = c.Close() }()

	require.NoError(t, c.Incr(context.Background(), "alice", store.EventTextScan))
	assert.True(t, mr.Exists("t:{alice}"))

	_, err = New(context.Background(), Config{})
	assert.Error(t, err)
}
