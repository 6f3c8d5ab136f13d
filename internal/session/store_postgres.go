// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// querier is the subset of *pgxpool.Pool used by [PostgresKV].
type querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresKV implements [KV] on the session_kv table.
type PostgresKV struct {
	db        querier
	namespace string
}

// NewPostgresKV creates a PostgreSQL-backed store for one namespace.
func NewPostgresKV(db querier, namespace string) *PostgresKV {
	return &PostgresKV{db: db, namespace: namespace}
}

// Get implements [KV].
func (repository *PostgresKV) Get(ctx context.Context, key string) (string, error) {
	const query = `SELECT value FROM session_kv WHERE namespace = $1 AND key = $2`

	var value string
	err := repository.db.QueryRow(ctx, query, repository.namespace, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("postgres_session_get_failed: %w", err)
	}
	return value, nil
}

// Set implements [KV].
func (repository *PostgresKV) Set(ctx context.Context, key, value string) error {
	const query = `
		INSERT INTO session_kv (namespace, key, value, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (namespace, key)
		DO UPDATE SET value = EXCLUDED.value, updated_at = now()`

	if _, err := repository.db.Exec(ctx, query, repository.namespace, key, value); err != nil {
		return fmt.Errorf("postgres_session_set_failed: %w", err)
	}
	return nil
}

// Delete implements [KV].
func (repository *PostgresKV) Delete(ctx context.Context, key string) error {
	const query = `DELETE FROM session_kv WHERE namespace = $1 AND key = $2`

	if _, err := repository.db.Exec(ctx, query, repository.namespace, key); err != nil {
		return fmt.Errorf("postgres_session_delete_failed: %w", err)
	}
	return nil
}
