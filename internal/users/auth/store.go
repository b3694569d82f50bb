// Copyright (c) 2026 FileMyTax. All rights reserved.

package auth

import (
	"context"
	"time"
)

// # User Data Access

// UserRepository defines the data access contract for user accounts.
type UserRepository interface {

	/*
		FindByID returns the account with the given ID.

		Parameters:
		  - context: context.Context
		  - id: string

		Returns:
		  - *User: Hydrated entity
		  - error: Database retrieval failures
	*/
	FindByID(context context.Context, id string) (*User, error)

	/*
		FindByEmail returns the account with the given email.

		Parameters:
		  - context: context.Context
		  - email: string

		Returns:
		  - *User: Hydrated entity
		  - error: Database retrieval failures
	*/
	FindByEmail(context context.Context, email string) (*User, error)

	/*
		FindByGoogleID returns the account linked to the given federated subject.

		Parameters:
		  - context: context.Context
		  - googleID: string

		Returns:
		  - *User: Hydrated entity
		  - error: Database retrieval failures
	*/
	FindByGoogleID(context context.Context, googleID string) (*User, error)

	/*
		Create persists a brand-new user account to the storage.

		Parameters:
		  - context: context.Context
		  - user: *User

		Returns:
		  - error: Persistence failures
	*/
	Create(context context.Context, user *User) error

	/*
		UpdateProfile persists changes to mutable profile fields.

		Parameters:
		  - context: context.Context
		  - user: *User

		Returns:
		  - error: Persistence failures
	*/
	UpdateProfile(context context.Context, user *User) error

	/*
		UpdatePassword replaces only the user's password hash.

		Parameters:
		  - context: context.Context
		  - userID: string
		  - newHash: string

		Returns:
		  - error: Persistence failures
	*/
	UpdatePassword(context context.Context, userID, newHash string) error

	/*
		LinkGoogleID attaches a federated subject to an existing account.

		Parameters:
		  - context: context.Context
		  - userID: string
		  - googleID: string

		Returns:
		  - error: Persistence failures
	*/
	LinkGoogleID(context context.Context, userID, googleID string) error
}

// # Refresh Token Data Access

// RefreshTokenRepository defines the data access contract for rotating
// refresh tokens. All methods operate on token hashes, never plain values.
type RefreshTokenRepository interface {

	/*
		Create persists a new refresh token for an authenticated login.

		Parameters:
		  - context: context.Context
		  - token: *RefreshToken

		Returns:
		  - error: Persistence failures
	*/
	Create(context context.Context, token *RefreshToken) error

	/*
		Rotate atomically replaces a live token hash with a new one.

		Description: A single conditional UPDATE swaps the hash and expiry,
		so of N concurrent presentations of the same token exactly one wins.
		Expired or unknown hashes match no row and return apperr.NotFound.

		Parameters:
		  - context: context.Context
		  - oldHash: string
		  - newHash: string
		  - expiresAt: time.Time

		Returns:
		  - string: Owning UserID of the rotated token
		  - error: apperr.NotFound or persistence failures
	*/
	Rotate(context context.Context, oldHash, newHash string, expiresAt time.Time) (string, error)

	/*
		Delete removes the token with the given hash, if present.

		Parameters:
		  - context: context.Context
		  - tokenHash: string

		Returns:
		  - error: Persistence failures
	*/
	Delete(context context.Context, tokenHash string) error

	/*
		DeleteExpired physically removes tokens whose ExpiresAt is in the past.

		Parameters:
		  - context: context.Context

		Returns:
		  - error: Persistence failures
	*/
	DeleteExpired(context context.Context) error
}

// # Volatile Data Access

// ResetTokenRepository defines the contract for storing volatile password
// reset tokens. At most one token is live per user at any time.
type ResetTokenRepository interface {

	/*
		Replace invalidates any prior reset token for the user and stores
		a new one for a limited duration.

		Parameters:
		  - context: context.Context
		  - userID: string
		  - token: string
		  - ttl: time.Duration

		Returns:
		  - error: Persistence failures
	*/
	Replace(context context.Context, userID string, token string, ttl time.Duration) error

	/*
		Get retrieves the userID associated with a given reset token.

		Parameters:
		  - context: context.Context
		  - token: string

		Returns:
		  - string: UserID
		  - error: apperr.NotFound or retrieval failures
	*/
	Get(context context.Context, token string) (string, error)

	/*
		Delete removes a reset token after successful use.

		Parameters:
		  - context: context.Context
		  - token: string
		  - userID: string

		Returns:
		  - error: Persistence failures
	*/
	Delete(context context.Context, token string, userID string) error
}
