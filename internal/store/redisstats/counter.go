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

// Package redisstats keeps per-user scan counters in Redis so that stats
// requests do not scan the audit table.
package redisstats

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/extra/redisotel/v9"
	goredis "github.com/redis/go-redis/v9"

	"github.com/altairalabs/secureflow/internal/store"
)

const defaultKeyPrefix = "secureflow:stats:"

// Config holds connection settings for the counter store.
type Config struct {
	// Addrs lists Redis server addresses. A single address creates a
	// standalone client; multiple addresses create a cluster client.
	Addrs    []string
	Password string
	DB       int
	// KeyPrefix is prepended to every key. Default: "secureflow:stats:".
	KeyPrefix string
	// Tracing instruments the client with OpenTelemetry.
	Tracing bool
}

// Counter stores scan counts as one Redis hash per user.
type Counter struct {
	client     goredis.UniversalClient
	keyPrefix  string
	ownsClient bool
}

// New creates a Counter that owns its client, verified with a PING.
func New(ctx context.Context, cfg Config) (*Counter, error) {
	if len(cfg.Addrs) == 0 {
		return nil, fmt.Errorf("redis: at least one address is required")
	}

	client := goredis.NewUniversalClient(&goredis.UniversalOptions{
		Addrs:    cfg.Addrs,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if cfg.Tracing {
		if err := redisotel.InstrumentTracing(client); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("redis: instrument tracing: %w", err)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis: failed to connect: %w", err)
	}

	c := NewFromClient(client, cfg.KeyPrefix)
	c.ownsClient = true
	return c, nil
}

// NewFromClient wraps an existing client. Close is a no-op because the
// caller retains ownership.
func NewFromClient(client goredis.UniversalClient, keyPrefix string) *Counter {
	if keyPrefix == "" {
		keyPrefix = defaultKeyPrefix
	}
	return &Counter{client: client, keyPrefix: keyPrefix}
}

func (c *Counter) key(username string) string {
	return c.keyPrefix + "{" + username + "}"
}

// Incr records one scan of the given type.
func (c *Counter) Incr(ctx context.Context, username string, typ store.EventType) error {
	if err := c.client.HIncrBy(ctx, c.key(username), string(typ), 1).Err(); err != nil {
		return fmt.Errorf("redis: incr: %w", err)
	}
	return nil
}

// Get returns the counts for username. Missing users yield zero counts.
func (c *Counter) Get(ctx context.Context, username string) (store.Stats, error) {
	vals, err := c.client.HGetAll(ctx, c.key(username)).Result()
	if err != nil {
		return store.Stats{}, fmt.Errorf("redis: get: %w", err)
	}
	var s store.Stats
	s.TextScans = parseCount(vals[string(store.EventTextScan)])
	s.FileScans = parseCount(vals[string(store.EventFileScan)])
	return s, nil
}

// Seed overwrites the counters for username, used to backfill from the
// audit store.
func (c *Counter) Seed(ctx context.Context, username string, s store.Stats) error {
	err := c.client.HSet(ctx, c.key(username),
		string(store.EventTextScan), s.TextScans,
		string(store.EventFileScan), s.FileScans,
	).Err()
	if err != nil {
		return fmt.Errorf("redis: seed: %w", err)
	}
	return nil
}

// Ping checks connectivity.
func (c *Counter) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the client when the Counter owns it.
func (c *Counter) Close() error {
	if c.ownsClient {
		return c.client.Close()
	}
	return nil
}

func parseCount(s string) int64 {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return n
}
