// Copyright (c) 2026 Zaffran Foods. All rights reserved.
// Author: platform@zaffran.shop

package auth

import (
	"context"
	"time"
)

// # User Data Access

// UserRepository defines the data access contract for user accounts.
type UserRepository interface {

	/*
		Create persists a brand-new user account to the storage.

		Parameters:
		  - context: context.Context
		  - user: *User

		Returns:
		  - error: apperr.Conflict on duplicate email/mobile, or persistence failures
	*/
	Create(context context.Context, user *User) error

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
		FindByEmail returns the account with the given (case-folded) email,
		password hash included.

		Parameters:
		  - context: context.Context
		  - email: string

		Returns:
		  - *User: Hydrated entity
		  - error: Database retrieval failures
	*/
	FindByEmail(context context.Context, email string) (*User, error)

	/*
		FindByMobile returns the account with the given mobile number.

		Parameters:
		  - context: context.Context
		  - mobile: string

		Returns:
		  - *User: Hydrated entity
		  - error: Database retrieval failures
	*/
	FindByMobile(context context.Context, mobile string) (*User, error)

	/*
		UpdateProfile persists changes to mutable profile fields
		(full name, mobile, numberverified).

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
		MarkEmailVerified updates the user's status to emailverified = true.

		Parameters:
		  - context: context.Context
		  - userID: string

		Returns:
		  - error: Persistence failures
	*/
	MarkEmailVerified(context context.Context, userID string) error

	/*
		MarkMobileVerified updates the user's status to numberverified = true.

		Parameters:
		  - context: context.Context
		  - userID: string

		Returns:
		  - error: Persistence failures
	*/
	MarkMobileVerified(context context.Context, userID string) error
}

// # Session Data Access

// SessionRepository defines the data access contract for per-device sessions.
type SessionRepository interface {

	/*
		Upsert creates or replaces the session keyed on (userID, deviceInfo).

		Description: an existing row for the same device pair is overwritten
		in place (token hash, network identity, expiry, isactive=true), so a
		device never accumulates more than one session row.

		Parameters:
		  - context: context.Context
		  - session: *Session

		Returns:
		  - error: Persistence failures
	*/
	Upsert(context context.Context, session *Session) error

	/*
		FindActive returns the unexpired, active session matching the given
		user and refresh-token hash.

		Parameters:
		  - context: context.Context
		  - userID: string
		  - tokenHash: string

		Returns:
		  - *Session: Hydrated entity
		  - error: Database retrieval failures
	*/
	FindActive(context context.Context, userID, tokenHash string) (*Session, error)

	/*
		FindByID returns the session with the given ID regardless of state.

		Parameters:
		  - context: context.Context
		  - sessionID: string

		Returns:
		  - *Session: Hydrated entity
		  - error: Database retrieval failures
	*/
	FindByID(context context.Context, sessionID string) (*Session, error)

	/*
		ListActiveByUser returns every active session belonging to the user.

		Parameters:
		  - context: context.Context
		  - userID: string

		Returns:
		  - []Session: Active sessions, newest first
		  - error: Database retrieval failures
	*/
	ListActiveByUser(context context.Context, userID string) ([]*Session, error)

	/*
		Deactivate marks a specific session as inactive.

		Parameters:
		  - context: context.Context
		  - sessionID: string

		Returns:
		  - error: Persistence failures
	*/
	Deactivate(context context.Context, sessionID string) error

	/*
		DeactivateAllForUser marks every session of the user as inactive.

		Parameters:
		  - context: context.Context
		  - userID: string

		Returns:
		  - error: Persistence failures
	*/
	DeactivateAllForUser(context context.Context, userID string) error
}

// # Volatile Data Access

// VerificationTokenRepository stores single-use email verification tokens.
//
// Issuing a new token for a user invalidates any previously issued one
// (overwritten-by-reissue semantics).
type VerificationTokenRepository interface {

	/*
		Issue stores a verification token for a userID, replacing any prior token.

		Parameters:
		  - context: context.Context
		  - userID: string
		  - token: string
		  - ttl: time.Duration

		Returns:
		  - error: Persistence failures
	*/
	Issue(context context.Context, userID, token string, ttl time.Duration) error

	/*
		Lookup retrieves the userID associated with an unexpired token.

		Parameters:
		  - context: context.Context
		  - token: string

		Returns:
		  - string: UserID
		  - error: apperr.NotFound when absent or expired
	*/
	Lookup(context context.Context, token string) (string, error)

	/*
		Consume removes the token after successful redemption.

		Parameters:
		  - context: context.Context
		  - userID: string
		  - token: string

		Returns:
		  - error: Persistence failures
	*/
	Consume(context context.Context, userID, token string) error
}

// ResetTokenRepository stores hashed single-use password reset tokens.
type ResetTokenRepository interface {

	/*
		Issue stores a reset token hash for a userID, replacing any prior token.

		Parameters:
		  - context: context.Context
		  - userID: string
		  - tokenHash: string (SHA-256 of the raw emailed value)
		  - ttl: time.Duration

		Returns:
		  - error: Persistence failures
	*/
	Issue(context context.Context, userID, tokenHash string, ttl time.Duration) error

	/*
		Lookup retrieves the userID associated with an unexpired token hash.

		Parameters:
		  - context: context.Context
		  - tokenHash: string

		Returns:
		  - string: UserID
		  - error: apperr.NotFound when absent or expired
	*/
	Lookup(context context.Context, tokenHash string) (string, error)

	/*
		Consume removes the token hash after successful redemption.

		Parameters:
		  - context: context.Context
		  - userID: string
		  - tokenHash: string

		Returns:
		  - error: Persistence failures
	*/
	Consume(context context.Context, userID, tokenHash string) error

	/*
		Revoke removes any outstanding reset token for the user.

		Description: used to roll back an issued token when the outbound
		email could not be delivered, so no dangling valid token remains.

		Parameters:
		  - context: context.Context
		  - userID: string

		Returns:
		  - error: Persistence failures
	*/
	Revoke(context context.Context, userID string) error
}

// OTPRepository stores the current mobile one-time password per user.
type OTPRepository interface {

	/*
		Issue stores the OTP for a userID, replacing any prior code.

		Parameters:
		  - context: context.Context
		  - userID: string
		  - code: string
		  - ttl: time.Duration

		Returns:
		  - error: Persistence failures
	*/
	Issue(context context.Context, userID, code string, ttl time.Duration) error

	/*
		Peek retrieves the user's unexpired OTP without consuming it.

		Description: a mismatched submission must NOT invalidate the stored
		code — it stays redeemable until expiry or the next Issue.

		Parameters:
		  - context: context.Context
		  - userID: string

		Returns:
		  - string: The stored code
		  - error: apperr.NotFound when absent or expired
	*/
	Peek(context context.Context, userID string) (string, error)

	/*
		Consume removes the OTP after successful redemption.

		Parameters:
		  - context: context.Context
		  - userID: string

		Returns:
		  - error: Persistence failures
	*/
	Consume(context context.Context, userID string) error
}
