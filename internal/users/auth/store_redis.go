// Copyright (c) 2026 FileMyTax. All rights reserved.

package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/filemytax/filemytax/internal/platform/apperr"
	"github.com/filemytax/filemytax/internal/platform/constants"
)

// RedisResetTokenRepository implements ResetTokenRepository using Redis.
//
// # Key Layout
//
// Two keys per live token, both carrying the same TTL:
//
//	auth:reset_token:<token> -> userID   (lookup on reset-password)
//	auth:reset_user:<userID> -> token    (invalidation of the prior token)
//
// The reverse key is what enforces "at most one live token per user": a new
// request finds and deletes the previous token before writing its own.
type RedisResetTokenRepository struct {
	client *redis.Client
}

// NewResetTokenRepository creates a new Redis-backed ResetTokenRepository.
func NewResetTokenRepository(client *redis.Client) *RedisResetTokenRepository {
	return &RedisResetTokenRepository{client: client}
}

func resetTokenKey(token string) string {
	return constants.RedisPrefixResetToken + token
}

func resetUserKey(userID string) string {
	return constants.RedisPrefixResetUser + userID
}

/*
Replace invalidates the user's prior reset token and stores a new one.

Parameters:
  - context: context.Context
  - userID: string
  - token: string
  - ttl: time.Duration

Returns:
  - error: Execution errors
*/
func (repository *RedisResetTokenRepository) Replace(context context.Context, userID string, token string, ttl time.Duration) error {

	// Look up the previous token through the reverse key
	previousToken, err := repository.client.Get(context, resetUserKey(userID)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("redis_reset_token_lookup_failed: %w", err)
	}

	// Write both directions and drop the stale forward key in one round trip
	pipeline := repository.client.TxPipeline()
	if previousToken != "" {
		pipeline.Del(context, resetTokenKey(previousToken))
	}
	pipeline.Set(context, resetTokenKey(token), userID, ttl)
	pipeline.Set(context, resetUserKey(userID), token, ttl)

	if _, err := pipeline.Exec(context); err != nil {
		return fmt.Errorf("redis_reset_token_replace_failed: %w", err)
	}

	return nil
}

/*
Get retrieves the userID for a given token.

Description: Returns apperr.NotFound if the token is absent or expired.

Parameters:
  - context: context.Context
  - token: string

Returns:
  - string: Original UserID
  - error: apperr.NotFound or connectivity errors
*/
func (repository *RedisResetTokenRepository) Get(context context.Context, token string) (string, error) {
	userID, err := repository.client.Get(context, resetTokenKey(token)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", apperr.NotFound("Reset token")
		}
		return "", fmt.Errorf("redis_reset_token_get_failed: %w", err)
	}

	return userID, nil
}

/*
Delete removes both directions of a consumed token.

Parameters:
  - context: context.Context
  - token: string
  - userID: string

Returns:
  - error: Deletion failures
*/
func (repository *RedisResetTokenRepository) Delete(context context.Context, token string, userID string) error {
	if err := repository.client.Del(context, resetTokenKey(token), resetUserKey(userID)).Err(); err != nil {
		return fmt.Errorf("redis_reset_token_delete_failed: %w", err)
	}

	return nil
}
