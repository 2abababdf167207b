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

package postgres

import (
	"context"
	"flag"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/altairalabs/secureflow/internal/store"
	"github.com/altairalabs/secureflow/internal/store/storetest"
)

var testConnStr string

func TestMain(m *testing.M) {
	flag.Parse()

	if testing.Short() {
		os.Exit(m.Run())
	}

	ctx := context.Background()
	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("secureflow_test"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start postgres container: %v\n", err)
		os.Exit(1)
	}

	testConnStr, err = container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to get connection string: %v\n", err)
		os.Exit(1)
	}

	mg, err := NewMigrator(testConnStr, logr.Discard())
	if err == nil {
		_, err = mg.Up()
		_ = mg.Close()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to migrate: %v\n", err)
		os.Exit(1)
	}

	code := m.Run()

	if err := container.Terminate(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "failed to terminate container: %v\n", err)
	}
	os.Exit(code)
}

func skipIfShort(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres integration test in short mode")
	}
}

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	ctx := context.Background()

	pool, err := pgxpool.New(ctx, testConnStr)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	_, err = pool.Exec(ctx, "TRUNCATE audit_logs, users")
	require.NoError(t, err)
	return NewFromPool(pool)
}

func TestStore_Contract(t *testing.T) {
	skipIfShort(t)
	storetest.Run(t, newTestStore)
}

func TestStore_GetLogMalformedID(t *testing.T) {
	skipIfShort(t)
	s := newTestStore(t)
	_, err := s.GetLog(context.Background(), "not-a-uuid")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestStore_New(t *testing.T) {
	skipIfShort(t)
	cfg := DefaultConfig()
	cfg.ConnString = testConnStr

	s, err := New(context.Background(), cfg)
	require.NoError(t, err)
	assert.NoError(t, s.Ping(context.Background()))
	assert.NotNil(t, s.Pool())
	assert.NoError(t, s.Close())
}

func TestNew_RequiresConnString(t *testing.T) {
	_, err := New(context.Background(), DefaultConfig())
	assert.Error(t, err)

	cfg := DefaultConfig()
	cfg.ConnString = "::not a url::"
	_, err = New(context.Background(), cfg)
	assert.Error(t, err)
}

func TestMigrator_Version(t *testing.T) {
	skipIfShort(t)
	mg, err := NewMigrator(testConnStr, logr.Discard())
	require.NoError(t, err)
	defer func() { _ = mg.Close() }()

	applied, err := mg.Up()
	require.NoError(t, err)
	assert.Equal(t, uint(1), applied)

	v, dirty, err := mg.Version()
	require.NoError(t, err)
	assert.Equal(t, uint(1), v)
	assert.False(t, dirty)

	// Re-running is a no-op.
	again, err := mg.Up()
	require.NoError(t, err)
	assert.Equal(t, applied, again)
}

func TestMigrator_RefusesDirtySchema(t *testing.T) {
	skipIfShort(t)
	mg, err := NewMigrator(testConnStr, logr.Discard())
	require.NoError(t, err)
	defer func() { _ = mg.Close() }()

	// Mark the current version dirty, as a crashed migration would.
	pool, err := pgxpool.New(context.Background(), testConnStr)
	require.NoError(t, err)
	defer pool.Close()
	_, err = pool.Exec(context.Background(), `UPDATE schema_migrations SET dirty = true`)
	require.NoError(t, err)

	_, err = mg.Up()
	assert.ErrorIs(t, err, ErrDirtySchema)

	require.NoError(t, mg.Force(1))
	_, dirty, err := mg.Version()
	require.NoError(t, err)
	assert.False(t, dirty)
}

func TestMigrationFS(t *testing.T) {
	entries, err := MigrationFS.ReadDir("migrations")
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.Contains(t, names, "000001_create_audit_logs.up.sql")
	assert.Contains(t, names, "000001_create_audit_logs.down.sql")
}
