// Copyright (c) 2026 Zaffran Foods. All rights reserved.
// Author: platform@zaffran.shop

package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/zaffranfoods/zaffran/internal/platform/apperr"
	"github.com/zaffranfoods/zaffran/internal/platform/constants"
)

// # Token Repository
//
// Email verification and password reset tokens share the same Redis shape:
// a forward key (prefix + token value) resolving to the user ID, and a
// reverse key (prefix + user ID) resolving to the currently live token.
// The reverse key is what makes reissuing overwrite: Issue deletes the
// previously stored token first, so at most one is redeemable per user.

// RedisTokenRepository implements VerificationTokenRepository and
// ResetTokenRepository against a key-prefix pair.
type RedisTokenRepository struct {
	client      *redis.Client
	tokenPrefix string
	userPrefix  string
	label       string
}

// NewVerificationTokenRepository creates the Redis-backed store for email
// verification tokens. Values are the raw emailed tokens.
func NewVerificationTokenRepository(client *redis.Client) *RedisTokenRepository {
	return &RedisTokenRepository{
		client:      client,
		tokenPrefix: constants.RedisPrefixVerifyToken,
		userPrefix:  constants.RedisPrefixVerifyUser,
		label:       "verify",
	}
}

// NewResetTokenRepository creates the Redis-backed store for password reset
// tokens. Values handed to it must already be SHA-256 digests.
func NewResetTokenRepository(client *redis.Client) *RedisTokenRepository {
	return &RedisTokenRepository{
		client:      client,
		tokenPrefix: constants.RedisPrefixResetToken,
		userPrefix:  constants.RedisPrefixResetUser,
		label:       "reset",
	}
}

/*
Issue stores a token for a user with a TTL, replacing any live predecessor.

Description: Deletes the user's previously issued token (found via the
reverse key) before writing, then writes both directions with the same TTL.

Parameters:
  - context: context.Context
  - userID: string
  - token: string (raw or hashed per repository)
  - ttl: time.Duration

Returns:
  - error: Storage failures
*/
func (repository *RedisTokenRepository) Issue(context context.Context, userID, token string, ttl time.Duration) error {
	userKey := repository.userPrefix + userID

	// 1. Invalidate the predecessor, if one is still live.
	previous, err := repository.client.Get(context, userKey).Result()
	if err == nil && previous != "" {
		if err := repository.client.Del(context, repository.tokenPrefix+previous).Err(); err != nil {
			return fmt.Errorf("redis_%s_token_invalidate_failed: %w", repository.label, err)
		}
	} else if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("redis_%s_token_reverse_lookup_failed: %w", repository.label, err)
	}

	// 2. Write forward (token -> user) and reverse (user -> token) keys.
	if err := repository.client.Set(context, repository.tokenPrefix+token, userID, ttl).Err(); err != nil {
		return fmt.Errorf("redis_%s_token_set_failed: %w", repository.label, err)
	}
	if err := repository.client.Set(context, userKey, token, ttl).Err(); err != nil {
		return fmt.Errorf("redis_%s_token_set_reverse_failed: %w", repository.label, err)
	}

	return nil
}

/*
Lookup retrieves the userID for a given token.

Description: Returns apperr.NotFound if the token is absent or expired.

Parameters:
  - context: context.Context
  - token: string

Returns:
  - string: Owning user ID
  - error: apperr.NotFound or connectivity errors
*/
func (repository *RedisTokenRepository) Lookup(context context.Context, token string) (string, error) {
	userID, err := repository.client.Get(context, repository.tokenPrefix+token).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", apperr.NotFound("Token is invalid or expired")
		}
		return "", fmt.Errorf("redis_%s_token_get_failed: %w", repository.label, err)
	}
	return userID, nil
}

/*
Consume removes a redeemed token in both directions.

Parameters:
  - context: context.Context
  - userID: string
  - token: string

Returns:
  - error: Deletion failures
*/
func (repository *RedisTokenRepository) Consume(context context.Context, userID, token string) error {
	err := repository.client.Del(context,
		repository.tokenPrefix+token,
		repository.userPrefix+userID,
	).Err()
	if err != nil {
		return fmt.Errorf("redis_%s_token_delete_failed: %w", repository.label, err)
	}
	return nil
}

/*
Revoke removes whatever token is currently live for a user.

Description: Used to roll back an issuance whose delivery failed, so no
undeliverable token sits redeemable.

Parameters:
  - context: context.Context
  - userID: string

Returns:
  - error: Deletion failures
*/
func (repository *RedisTokenRepository) Revoke(context context.Context, userID string) error {
	userKey := repository.userPrefix + userID

	token, err := repository.client.Get(context, userKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("redis_%s_token_revoke_lookup_failed: %w", repository.label, err)
	}

	if err := repository.client.Del(context, repository.tokenPrefix+token, userKey).Err(); err != nil {
		return fmt.Errorf("redis_%s_token_revoke_failed: %w", repository.label, err)
	}

	return nil
}

// # OTP Repository

// RedisOTPRepository implements OTPRepository using Redis, keyed by user ID.
type RedisOTPRepository struct {
	client *redis.Client
}

// NewOTPRepository creates a new Redis-backed OTPRepository.
func NewOTPRepository(client *redis.Client) *RedisOTPRepository {
	return &RedisOTPRepository{client: client}
}

/*
Issue stores a one-time password for a user with a TTL.

Description: Keyed by user ID, so reissuing naturally overwrites the prior
code.

Parameters:
  - context: context.Context
  - userID: string
  - code: string
  - ttl: time.Duration

Returns:
  - error: Storage failures
*/
func (repository *RedisOTPRepository) Issue(context context.Context, userID, code string, ttl time.Duration) error {
	key := constants.RedisPrefixMobileOTP + userID
	if err := repository.client.Set(context, key, code, ttl).Err(); err != nil {
		return fmt.Errorf("redis_otp_set_failed: %w", err)
	}
	return nil
}

/*
Peek retrieves the stored code without consuming it.

Description: The caller compares and decides; a mismatched attempt must leave
the code redeemable until expiry.

Parameters:
  - context: context.Context
  - userID: string

Returns:
  - string: Stored code
  - error: apperr.NotFound if absent or expired
*/
func (repository *RedisOTPRepository) Peek(context context.Context, userID string) (string, error) {
	key := constants.RedisPrefixMobileOTP + userID
	code, err := repository.client.Get(context, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", apperr.NotFound("OTP is invalid or expired")
		}
		return "", fmt.Errorf("redis_otp_get_failed: %w", err)
	}
	return code, nil
}

/*
Consume removes the stored code for a user.

Parameters:
  - context: context.Context
  - userID: string

Returns:
  - error: Deletion failures
*/
func (repository *RedisOTPRepository) Consume(context context.Context, userID string) error {
	key := constants.RedisPrefixMobileOTP + userID
	if err := repository.client.Del(context, key).Err(); err != nil {
		return fmt.Errorf("redis_otp_delete_failed: %w", err)
	}
	return nil
}
