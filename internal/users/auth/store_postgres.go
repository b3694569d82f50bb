// Copyright (c) 2026 FileMyTax. All rights reserved.

// PostgreSQL implementations of the auth storage contracts.
//
// # Architecture
//
// Repositories in this file are strictly separated from domain logic. They
// implement domain-defined interfaces (e.g., [UserRepository]) using the
// [pgxpool.Pool] connection manager.
//
// # Error Mapping
//
// Storage-specific errors (like pgx.ErrNoRows) are mapped to domain-friendly
// [apperr.AppError] types to avoid leaking storage implementation details.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/filemytax/filemytax/internal/platform/apperr"
)

// # User Repository

// userColumns is the canonical SELECT list for users.account.
const userColumns = `
	id, email, COALESCE(passwordhash, ''), COALESCE(googleid, ''),
	COALESCE(name, ''), COALESCE(firstname, ''), COALESCE(middlename, ''), COALESCE(lastname, ''),
	COALESCE(phone, ''), COALESCE(dateofbirth, ''),
	COALESCE(addressline1, ''), COALESCE(addressline2, ''),
	COALESCE(city, ''), COALESCE(state, ''), COALESCE(zip, ''), COALESCE(country, ''),
	createdat, updatedat`

// scanUser hydrates a User from a row selected with [userColumns].
func scanUser(row pgx.Row) (*User, error) {
	user := &User{}
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.GoogleID,
		&user.Name,
		&user.FirstName,
		&user.MiddleName,
		&user.LastName,
		&user.Phone,
		&user.DateOfBirth,
		&user.AddressLine1,
		&user.AddressLine2,
		&user.City,
		&user.State,
		&user.Zip,
		&user.Country,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	user.computeDerived()
	return user, nil
}

// nullable maps "" to SQL NULL so empty profile fields stay NULL at rest.
func nullable(value string) any {
	if value == "" {
		return nil
	}
	return value
}

// PostgresUserRepository implements the UserRepository interface using pgx.
type PostgresUserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository creates a new PostgreSQL implementation of the UserRepository.
func NewUserRepository(pool *pgxpool.Pool) *PostgresUserRepository {
	return &PostgresUserRepository{pool: pool}
}

/*
Create persists a new user record into the users.account table.

Description: Deep-persists account identity, ensuring timestamps are initialized
if not provided.

Parameters:
  - context: context.Context
  - user: *User (Entity to persist)

Returns:
  - error: Database constraint violations or connectivity errors
*/
func (repository *PostgresUserRepository) Create(context context.Context, user *User) error {
	const query = `
		INSERT INTO users.account (
			id, email, passwordhash, googleid, name, createdat, updatedat
		) VALUES ($1, $2, $3, $4, $5, $6, $7)`

	now := time.Now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	_, err := repository.pool.Exec(context, query,
		user.ID,
		user.Email,
		nullable(user.PasswordHash),
		nullable(user.GoogleID),
		nullable(user.Name),
		user.CreatedAt,
		user.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("postgres_user_repo_create_failed: %w", err)
	}

	user.computeDerived()
	return nil
}

/*
FindByEmail retrieves a user record by their unique email address.

Parameters:
  - context: context.Context
  - email: string

Returns:
  - *User: Hydrated account entity
  - error: apperr.NotFound or database errors
*/
func (repository *PostgresUserRepository) FindByEmail(context context.Context, email string) (*User, error) {
	const query = `
		SELECT ` + userColumns + `
		FROM users.account
		WHERE email = $1`

	user, err := scanUser(repository.pool.QueryRow(context, query, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("User")
		}
		return nil, fmt.Errorf("postgres_user_repo_find_by_email_failed: %w", err)
	}

	return user, nil
}

/*
FindByGoogleID retrieves a user record by their federated Google subject.

Parameters:
  - context: context.Context
  - googleID: string

Returns:
  - *User: Hydrated account entity
  - error: apperr.NotFound or database errors
*/
func (repository *PostgresUserRepository) FindByGoogleID(context context.Context, googleID string) (*User, error) {
	const query = `
		SELECT ` + userColumns + `
		FROM users.account
		WHERE googleid = $1`

	user, err := scanUser(repository.pool.QueryRow(context, query, googleID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("User")
		}
		return nil, fmt.Errorf("postgres_user_repo_find_by_google_id_failed: %w", err)
	}

	return user, nil
}

/*
FindByID retrieves a user record by their unique ID.

Parameters:
  - context: context.Context
  - id: string (UUIDv7)

Returns:
  - *User: Hydrated account entity
  - error: apperr.NotFound or execution errors
*/
func (repository *PostgresUserRepository) FindByID(context context.Context, id string) (*User, error) {
	const query = `
		SELECT ` + userColumns + `
		FROM users.account
		WHERE id = $1`

	user, err := scanUser(repository.pool.QueryRow(context, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("User")
		}
		return nil, fmt.Errorf("postgres_user_repo_find_by_id_failed: %w", err)
	}

	return user, nil
}

/*
UpdateProfile persists changes to a user's mutable profile fields.

Description: Synchronizes the in-memory user state with the database,
refreshing the updatedat timestamp. Empty profile fields are stored as NULL.

Parameters:
  - context: context.Context
  - user: *User

Returns:
  - error: Update failures
*/
func (repository *PostgresUserRepository) UpdateProfile(context context.Context, user *User) error {
	const query = `
		UPDATE users.account
		SET name = $2, firstname = $3, middlename = $4, lastname = $5,
		    phone = $6, dateofbirth = $7, addressline1 = $8, addressline2 = $9,
		    city = $10, state = $11, zip = $12, country = $13, updatedat = $14
		WHERE id = $1`

	user.UpdatedAt = time.Now()
	_, err := repository.pool.Exec(context, query,
		user.ID,
		nullable(user.Name),
		nullable(user.FirstName),
		nullable(user.MiddleName),
		nullable(user.LastName),
		nullable(user.Phone),
		nullable(user.DateOfBirth),
		nullable(user.AddressLine1),
		nullable(user.AddressLine2),
		nullable(user.City),
		nullable(user.State),
		nullable(user.Zip),
		nullable(user.Country),
		user.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("postgres_user_repo_update_profile_failed: %w", err)
	}

	return nil
}

/*
UpdatePassword updates only the password hash for a specific user.

Parameters:
  - context: context.Context
  - userID: string
  - newHash: string

Returns:
  - error: Execution errors
*/
func (repository *PostgresUserRepository) UpdatePassword(context context.Context, userID, newHash string) error {
	const query = `
		UPDATE users.account
		SET passwordhash = $2, updatedat = $3
		WHERE id = $1`

	_, err := repository.pool.Exec(context, query, userID, newHash, time.Now())
	if err != nil {
		return fmt.Errorf("postgres_user_repo_update_password_failed: %w", err)
	}

	return nil
}

/*
LinkGoogleID attaches a federated Google subject to an existing account.

Description: Convergence step for a federated login that matches a known email.

Parameters:
  - context: context.Context
  - userID: string
  - googleID: string

Returns:
  - error: Execution errors
*/
func (repository *PostgresUserRepository) LinkGoogleID(context context.Context, userID, googleID string) error {
	const query = `
		UPDATE users.account
		SET googleid = $2, updatedat = $3
		WHERE id = $1`

	_, err := repository.pool.Exec(context, query, userID, googleID, time.Now())
	if err != nil {
		return fmt.Errorf("postgres_user_repo_link_google_id_failed: %w", err)
	}

	return nil
}

// # Refresh Token Repository

// PostgresRefreshTokenRepository implements the RefreshTokenRepository interface.
type PostgresRefreshTokenRepository struct {
	pool *pgxpool.Pool
}

// NewRefreshTokenRepository creates a new PostgreSQL implementation of RefreshTokenRepository.
func NewRefreshTokenRepository(pool *pgxpool.Pool) *PostgresRefreshTokenRepository {
	return &PostgresRefreshTokenRepository{pool: pool}
}

/*
Create persists a new refresh token record into the users.refreshtoken table.

Parameters:
  - context: context.Context
  - token: *RefreshToken

Returns:
  - error: Storage failures
*/
func (repository *PostgresRefreshTokenRepository) Create(context context.Context, token *RefreshToken) error {
	const query = `
		INSERT INTO users.refreshtoken (
			tokenhash, userid, expiresat, createdat
		) VALUES ($1, $2, $3, $4)`

	if token.CreatedAt.IsZero() {
		token.CreatedAt = time.Now()
	}

	_, err := repository.pool.Exec(context, query,
		token.TokenHash,
		token.UserID,
		token.ExpiresAt,
		token.CreatedAt,
	)

	if err != nil {
		return fmt.Errorf("postgres_refresh_token_repo_create_failed: %w", err)
	}

	return nil
}

/*
Rotate atomically replaces a live token hash with a fresh one.

Description: The conditional UPDATE is the whole rotation: the WHERE clause
only matches a live token, so a concurrent duplicate presentation loses the
race and observes zero rows. No transaction needed.

Parameters:
  - context: context.Context
  - oldHash: string
  - newHash: string
  - expiresAt: time.Time

Returns:
  - string: Owning UserID
  - error: apperr.NotFound when the old token is gone, or execution errors
*/
func (repository *PostgresRefreshTokenRepository) Rotate(context context.Context, oldHash, newHash string, expiresAt time.Time) (string, error) {
	const query = `
		UPDATE users.refreshtoken
		SET tokenhash = $2, expiresat = $3, createdat = NOW()
		WHERE tokenhash = $1 AND expiresat > NOW()
		RETURNING userid`

	var userID string
	err := repository.pool.QueryRow(context, query, oldHash, newHash, expiresAt).Scan(&userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", apperr.NotFound("Refresh token")
		}
		return "", fmt.Errorf("postgres_refresh_token_repo_rotate_failed: %w", err)
	}

	return userID, nil
}

/*
Delete removes the refresh token with the given hash.

Description: Idempotent; deleting an absent token is not an error.

Parameters:
  - context: context.Context
  - tokenHash: string

Returns:
  - error: Execution errors
*/
func (repository *PostgresRefreshTokenRepository) Delete(context context.Context, tokenHash string) error {
	const query = "DELETE FROM users.refreshtoken WHERE tokenhash = $1"
	_, err := repository.pool.Exec(context, query, tokenHash)
	if err != nil {
		return fmt.Errorf("postgres_refresh_token_repo_delete_failed: %w", err)
	}
	return nil
}

/*
DeleteExpired permanently removes all tokens that have passed their expiration.

Description: Cleanup task to reclaim storage from stale tokens. Run at startup.

Parameters:
  - context: context.Context

Returns:
  - error: Cleanup failures
*/
func (repository *PostgresRefreshTokenRepository) DeleteExpired(context context.Context) error {
	const query = "DELETE FROM users.refreshtoken WHERE expiresat <= NOW()"
	_, err := repository.pool.Exec(context, query)
	if err != nil {
		return fmt.Errorf("postgres_refresh_token_repo_delete_expired_failed: %w", err)
	}
	return nil
}
