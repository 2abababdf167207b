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

// Package postgres implements store.Store on PostgreSQL.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/altairalabs/secureflow/internal/pgutil"
	"github.com/altairalabs/secureflow/internal/store"
	"github.com/altairalabs/secureflow/pkg/securelog"
)

// Compile-time interface check.
var _ store.Store = (*Store)(nil)

// Store implements store.Store using PostgreSQL.
type Store struct {
	pool     *pgxpool.Pool
	ownsPool bool
}

// New creates a Store that owns its connection pool. The pool is verified
// with a PING; Close shuts it down.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.ConnString == "" {
		return nil, fmt.Errorf("postgres: connection string is required")
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.ConnString)
	if err != nil {
		return nil, fmt.Errorf("postgres: parsing connection string: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		poolCfg.MaxConnIdleTime = cfg.MaxConnIdleTime
	}
	if cfg.HealthCheckPeriod > 0 {
		poolCfg.HealthCheckPeriod = cfg.HealthCheckPeriod
	}
	if cfg.TLS != nil {
		poolCfg.ConnConfig.TLSConfig = cfg.TLS
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("postgres: creating pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping failed: %w", err)
	}
	return &Store{pool: pool, ownsPool: true}, nil
}

// NewFromPool wraps an existing pool. Close is a no-op because the caller
// retains ownership.
func NewFromPool(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Pool exposes the underlying pool for readiness probes.
func (s *Store) Pool() *pgxpool.Pool {
	return s.pool
}

// --- row scanners -----------------------------------------------------------

const logColumns = `id::text, username, event_type,
	summary_ciphertext, summary_nonce, summary_tag,
	categories_ciphertext, categories_nonce, categories_tag,
	original_ciphertext, original_nonce, original_tag,
	mask_level, degraded, truncated, created_at`

func scanLog(row pgx.Row) (*store.LogEntry, error) {
	var e store.LogEntry
	var eventType string
	var orig securelog.SealedRecord

	err := row.Scan(
		&e.ID, &e.Username, &eventType,
		&e.Summary.Ciphertext, &e.Summary.Nonce, &e.Summary.Tag,
		&e.Categories.Ciphertext, &e.Categories.Nonce, &e.Categories.Tag,
		&orig.Ciphertext, &orig.Nonce, &orig.Tag,
		&e.MaskLevel, &e.Degraded, &e.Truncated, &e.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("postgres: scan log: %w", err)
	}

	e.EventType = store.EventType(eventType)
	if !orig.IsZero() {
		e.Original = &orig
	}
	return &e, nil
}

func collectLogs(rows pgx.Rows) ([]*store.LogEntry, error) {
	defer rows.Close()
	out := []*store.LogEntry{}
	for rows.Next() {
		e, err := scanLog(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate logs: %w", err)
	}
	return out, nil
}

// --- LogStore ---------------------------------------------------------------

func (s *Store) CreateLog(ctx context.Context, e *store.LogEntry) error {
	if err := e.Validate(); err != nil {
		return err
	}
	var orig securelog.SealedRecord
	if e.Original != nil {
		orig = *e.Original
	}
	createdAt := e.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err := s.pool.Exec(ctx, `INSERT INTO audit_logs (`+insertColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		e.ID, e.Username, string(e.EventType),
		e.Summary.Ciphertext, e.Summary.Nonce, e.Summary.Tag,
		e.Categories.Ciphertext, e.Categories.Nonce, e.Categories.Tag,
		orig.Ciphertext, orig.Nonce, orig.Tag,
		e.MaskLevel, e.Degraded, e.Truncated, createdAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert log: %w", err)
	}
	return nil
}

const insertColumns = `id, username, event_type,
	summary_ciphertext, summary_nonce, summary_tag,
	categories_ciphertext, categories_nonce, categories_tag,
	original_ciphertext, original_nonce, original_tag,
	mask_level, degraded, truncated, created_at`

func (s *Store) GetLog(ctx context.Context, id string) (*store.LogEntry, error) {
	e, err := scanLog(s.pool.QueryRow(ctx, `SELECT `+logColumns+` FROM audit_logs WHERE id = $1`, id))
	if err != nil && pgutil.IsInvalidText(err) {
		return nil, store.ErrNotFound
	}
	return e, err
}

func (s *Store) ListLogs(ctx context.Context, username string, opts store.ListOpts) (*store.Page, error) {
	var total int64
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM audit_logs WHERE username = $1`, username).Scan(&total); err != nil {
		return nil, fmt.Errorf("postgres: count logs: %w", err)
	}

	offset := max(opts.Offset, 0)
	qb := pgutil.NewQuery(`SELECT `+logColumns+` FROM audit_logs`).
		Add(` WHERE username = $?`, username).
		Add(` ORDER BY created_at DESC, id DESC`).
		Paginate(opts.Limit, offset)

	rows, err := s.pool.Query(ctx, qb.SQL(), qb.Args()...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list logs: %w", err)
	}
	entries, err := collectLogs(rows)
	if err != nil {
		return nil, err
	}
	return &store.Page{
		Entries: entries,
		Total:   total,
		HasMore: int64(offset+len(entries)) < total,
	}, nil
}

func (s *Store) CountByType(ctx context.Context, username string) (store.Stats, error) {
	var stats store.Stats
	err := s.pool.QueryRow(ctx, `SELECT
			count(*) FILTER (WHERE event_type = 'text_scan'),
			count(*) FILTER (WHERE event_type = 'file_scan')
		FROM audit_logs WHERE username = $1`, username).Scan(&stats.TextScans, &stats.FileScans)
	if err != nil {
		return store.Stats{}, fmt.Errorf("postgres: count by type: %w", err)
	}
	return stats, nil
}

func (s *Store) LogsOlderThan(ctx context.Context, cutoff time.Time, limit int) ([]*store.LogEntry, error) {
	if limit <= 0 {
		limit = 1000
	}
	rows, err := s.pool.Query(ctx, `SELECT `+logColumns+` FROM audit_logs
		WHERE created_at < $1 ORDER BY created_at ASC LIMIT $2`, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: logs older than: %w", err)
	}
	return collectLogs(rows)
}

func (s *Store) DeleteLogs(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	tag, err := s.pool.Exec(ctx, `DELETE FROM audit_logs WHERE id::text = ANY($1)`, ids)
	if err != nil {
		return 0, fmt.Errorf("postgres: delete logs: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// --- UserStore --------------------------------------------------------------

func (s *Store) CreateUser(ctx context.Context, u *store.User) error {
	createdAt := u.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	_, err := s.pool.Exec(ctx, `INSERT INTO users (username, password_hash, created_at) VALUES ($1, $2, $3)`,
		u.Username, u.PasswordHash, createdAt)
	if err != nil {
		if pgutil.IsUniqueViolation(err) {
			return store.ErrUserExists
		}
		return fmt.Errorf("postgres: insert user: %w", err)
	}
	return nil
}

func (s *Store) GetUser(ctx context.Context, username string) (*store.User, error) {
	var u store.User
	err := s.pool.QueryRow(ctx, `SELECT username, password_hash, created_at FROM users WHERE username = $1`, username).
		Scan(&u.Username, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("postgres: get user: %w", err)
	}
	return &u, nil
}

// --- Infrastructure ---------------------------------------------------------

func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Store) Close() error {
	if s.ownsPool {
		s.pool.Close()
	}
	return nil
}
