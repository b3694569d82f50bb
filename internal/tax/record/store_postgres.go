// Copyright (c) 2026 FileMyTax. All rights reserved.

package record

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository implements the Repository interface using pgx.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new PostgreSQL implementation of the Repository.
func NewRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

/*
Get returns the filer's saved return, nil when none exists.

Parameters:
  - context: context.Context
  - userID: string

Returns:
  - json.RawMessage: Stored document or nil
  - error: Execution errors
*/
func (repository *PostgresRepository) Get(context context.Context, userID string) (json.RawMessage, error) {
	const query = "SELECT data FROM tax.record WHERE userid = $1"

	var data json.RawMessage
	err := repository.pool.QueryRow(context, query, userID).Scan(&data)
	if err != nil {
		// A filer with no saved return is not an error
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("postgres_record_repo_get_failed: %w", err)
	}

	return data, nil
}

/*
Upsert replaces the filer's saved return, inserting on first save.

Parameters:
  - context: context.Context
  - userID: string
  - data: json.RawMessage

Returns:
  - error: Execution errors
*/
func (repository *PostgresRepository) Upsert(context context.Context, userID string, data json.RawMessage) error {
	const query = `
		INSERT INTO tax.record (userid, data, updatedat)
		VALUES ($1, $2, $3)
		ON CONFLICT (userid) DO UPDATE
		SET data = EXCLUDED.data, updatedat = EXCLUDED.updatedat`

	_, err := repository.pool.Exec(context, query, userID, data, time.Now())
	if err != nil {
		return fmt.Errorf("postgres_record_repo_upsert_failed: %w", err)
	}

	return nil
}
