// Copyright (c) 2026 Zaffran Foods. All rights reserved.
// Author: platform@zaffran.shop

// This file implements the durable storage half of the auth package using
// PostgreSQL.
//
// # Architecture
//
// Repositories here are strictly separated from domain logic. They implement
// the domain-defined interfaces (e.g., [UserRepository]) using the
// [pgxpool.Pool] connection manager.
//
// # err Mapping
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

	"github.com/zaffranfoods/zaffran/internal/platform/apperr"
	"github.com/zaffranfoods/zaffran/internal/platform/dberr"
)

// # User Repository

// PostgresUserRepository implements the UserRepository interface using pgx.
type PostgresUserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository creates a new PostgreSQL implementation of the UserRepository.
func NewUserRepository(pool *pgxpool.Pool) *PostgresUserRepository {
	return &PostgresUserRepository{pool: pool}
}

const userColumns = `
	id, email, mobile, passwordhash, fullname, role,
	emailverified, numberverified, createdat, updatedat`

func scanUser(row pgx.Row) (*User, error) {
	user := &User{}

	// mobile is nullable (accounts may register without one); scan through
	// an intermediate so SQL NULL maps to the empty string.
	var mobile *string

	err := row.Scan(
		&user.ID,
		&user.Email,
		&mobile,
		&user.PasswordHash,
		&user.FullName,
		&user.Role,
		&user.EmailVerified,
		&user.NumberVerified,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if mobile != nil {
		user.Mobile = *mobile
	}

	return user, nil
}

/*
Create persists a new user record into the users.account table.

Description: Deep-persists account metadata, ensuring timestamps are
initialized if not provided. The unique indexes on email and mobile are the
final arbiter under concurrent registrations.

Parameters:
  - context: context.Context
  - user: *User (Entity to persist)

Returns:
  - error: apperr.Conflict on duplicate identity, or connectivity errors
*/
func (repository *PostgresUserRepository) Create(context context.Context, user *User) error {
	const query = `
		INSERT INTO users.account (
			id, email, mobile, passwordhash, fullname, role,
			emailverified, numberverified, createdat, updatedat
		) VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, $7, $8, $9, $10)`

	now := time.Now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	_, err := repository.pool.Exec(context, query,
		user.ID,
		user.Email,
		user.Mobile,
		user.PasswordHash,
		user.FullName,
		user.Role,
		user.EmailVerified,
		user.NumberVerified,
		user.CreatedAt,
		user.UpdatedAt,
	)

	return dberr.Wrap(err, "Email or mobile number is already registered")
}

/*
FindByEmail retrieves a user record by their unique (folded) email address.

Parameters:
  - context: context.Context
  - email: string

Returns:
  - *User: Hydrated account entity
  - error: apperr.NotFound or database errors
*/
func (repository *PostgresUserRepository) FindByEmail(context context.Context, email string) (*User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users.account
		WHERE email = $1`

	user, err := scanUser(repository.pool.QueryRow(context, query, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("User not found with this email")
		}
		return nil, fmt.Errorf("postgres_user_repo_find_by_email_failed: %w", err)
	}

	return user, nil
}

/*
FindByMobile retrieves a user record by their unique mobile number.

Parameters:
  - context: context.Context
  - mobile: string (10-digit number)

Returns:
  - *User: Hydrated account entity
  - error: apperr.NotFound or database errors
*/
func (repository *PostgresUserRepository) FindByMobile(context context.Context, mobile string) (*User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users.account
		WHERE mobile = $1`

	user, err := scanUser(repository.pool.QueryRow(context, query, mobile))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("User not found with this mobile number")
		}
		return nil, fmt.Errorf("postgres_user_repo_find_by_mobile_failed: %w", err)
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
  - error: Not found or execution errors
*/
func (repository *PostgresUserRepository) FindByID(context context.Context, id string) (*User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users.account
		WHERE id = $1`

	user, err := scanUser(repository.pool.QueryRow(context, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("User not found")
		}
		return nil, fmt.Errorf("postgres_user_repo_find_by_id_failed: %w", err)
	}

	return user, nil
}

/*
UpdateProfile persists changes to a user's mutable profile fields.

Description: Synchronizes fullname and mobile with the database, refreshing
the updatedat timestamp. Changing the mobile number resets its verified flag.

Parameters:
  - context: context.Context
  - user: *User

Returns:
  - error: apperr.Conflict on duplicate mobile, or update failures
*/
func (repository *PostgresUserRepository) UpdateProfile(context context.Context, user *User) error {
	const query = `
		UPDATE users.account
		SET fullname = $2, mobile = NULLIF($3, ''), numberverified = $4, updatedat = $5
		WHERE id = $1`

	user.UpdatedAt = time.Now()
	_, err := repository.pool.Exec(context, query,
		user.ID,
		user.FullName,
		user.Mobile,
		user.NumberVerified,
		user.UpdatedAt,
	)

	return dberr.Wrap(err, "Mobile number is already registered")
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
MarkEmailVerified updates the user's status to emailverified = TRUE.

Description: Post-verification cleanup to activate the account for login.

Parameters:
  - context: context.Context
  - userID: string

Returns:
  - error: Database errors
*/
func (repository *PostgresUserRepository) MarkEmailVerified(context context.Context, userID string) error {
	const query = "UPDATE users.account SET emailverified = TRUE, updatedat = $2 WHERE id = $1"
	_, err := repository.pool.Exec(context, query, userID, time.Now())
	if err != nil {
		return fmt.Errorf("postgres_user_repo_mark_email_verified_failed: %w", err)
	}
	return nil
}

/*
MarkMobileVerified updates the user's status to numberverified = TRUE.

Parameters:
  - context: context.Context
  - userID: string

Returns:
  - error: Database errors
*/
func (repository *PostgresUserRepository) MarkMobileVerified(context context.Context, userID string) error {
	const query = "UPDATE users.account SET numberverified = TRUE, updatedat = $2 WHERE id = $1"
	_, err := repository.pool.Exec(context, query, userID, time.Now())
	if err != nil {
		return fmt.Errorf("postgres_user_repo_mark_mobile_verified_failed: %w", err)
	}
	return nil
}

// # Session Repository

// PostgresSessionRepository implements the SessionRepository interface.
type PostgresSessionRepository struct {
	pool *pgxpool.Pool
}

// NewSessionRepository creates a new PostgreSQL implementation of SessionRepository.
func NewSessionRepository(pool *pgxpool.Pool) *PostgresSessionRepository {
	return &PostgresSessionRepository{pool: pool}
}

const sessionColumns = `
	id, userid, deviceinfo, useragent, ipaddress, tokenhash,
	isactive, expiresat, createdat, updatedat`

func scanSession(row pgx.Row) (*Session, error) {
	session := &Session{}
	err := row.Scan(
		&session.ID,
		&session.UserID,
		&session.DeviceInfo,
		&session.UserAgent,
		&session.IPAddress,
		&session.TokenHash,
		&session.IsActive,
		&session.ExpiresAt,
		&session.CreatedAt,
		&session.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return session, nil
}

/*
Upsert persists a session for a (user, device) pair, replacing any existing row.

Description: The UNIQUE (userid, deviceinfo) constraint makes this a rotation:
a second login or refresh on the same device overwrites the stored token hash,
so the superseded refresh token stops matching. Concurrent writers race
last-write-wins, which is acceptable — exactly one token survives.

Parameters:
  - context: context.Context
  - session: *Session

Returns:
  - error: Storage failures
*/
func (repository *PostgresSessionRepository) Upsert(context context.Context, session *Session) error {
	const query = `
		INSERT INTO users.session (
			id, userid, deviceinfo, useragent, ipaddress, tokenhash,
			isactive, expiresat, createdat, updatedat
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (userid, deviceinfo) DO UPDATE SET
			useragent = EXCLUDED.useragent,
			ipaddress = EXCLUDED.ipaddress,
			tokenhash = EXCLUDED.tokenhash,
			isactive  = TRUE,
			expiresat = EXCLUDED.expiresat,
			updatedat = EXCLUDED.updatedat`

	now := time.Now()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}
	session.UpdatedAt = now

	_, err := repository.pool.Exec(context, query,
		session.ID,
		session.UserID,
		session.DeviceInfo,
		session.UserAgent,
		session.IPAddress,
		session.TokenHash,
		session.IsActive,
		session.ExpiresAt,
		session.CreatedAt,
		session.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("postgres_session_repo_upsert_failed: %w", err)
	}

	return nil
}

/*
FindActive retrieves the live session matching a user and refresh token hash.

Description: Securely resolves a refresh token digest into its session. Only
active, unexpired rows qualify; a rotated-away or deactivated token finds
nothing.

Parameters:
  - context: context.Context
  - userID: string
  - tokenHash: string

Returns:
  - *Session: Hydrated session metadata
  - error: apperr.NotFound or execution errors
*/
func (repository *PostgresSessionRepository) FindActive(context context.Context, userID, tokenHash string) (*Session, error) {
	query := `
		SELECT ` + sessionColumns + `
		FROM users.session
		WHERE userid = $1 AND tokenhash = $2 AND isactive = TRUE AND expiresat > NOW()`

	session, err := scanSession(repository.pool.QueryRow(context, query, userID, tokenHash))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("Session not found or expired")
		}
		return nil, fmt.Errorf("postgres_session_repo_find_active_failed: %w", err)
	}

	return session, nil
}

/*
FindByID retrieves a session record by its unique ID.

Parameters:
  - context: context.Context
  - sessionID: string

Returns:
  - *Session: Hydrated session metadata
  - error: apperr.NotFound or execution errors
*/
func (repository *PostgresSessionRepository) FindByID(context context.Context, sessionID string) (*Session, error) {
	query := `
		SELECT ` + sessionColumns + `
		FROM users.session
		WHERE id = $1`

	session, err := scanSession(repository.pool.QueryRow(context, query, sessionID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("Session not found")
		}
		return nil, fmt.Errorf("postgres_session_repo_find_by_id_failed: %w", err)
	}

	return session, nil
}

/*
ListActiveByUser returns all live sessions for a user, newest first.

Description: Powers the account security screen listing signed-in devices.

Parameters:
  - context: context.Context
  - userID: string

Returns:
  - []*Session: Active, unexpired sessions
  - error: Execution errors
*/
func (repository *PostgresSessionRepository) ListActiveByUser(context context.Context, userID string) ([]*Session, error) {
	query := `
		SELECT ` + sessionColumns + `
		FROM users.session
		WHERE userid = $1 AND isactive = TRUE AND expiresat > NOW()
		ORDER BY updatedat DESC`

	rows, err := repository.pool.Query(context, query, userID)
	if err != nil {
		return nil, fmt.Errorf("postgres_session_repo_list_failed: %w", err)
	}
	defer rows.Close()

	sessions := []*Session{}
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres_session_repo_list_scan_failed: %w", err)
		}
		sessions = append(sessions, session)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres_session_repo_list_rows_failed: %w", err)
	}

	return sessions, nil
}

/*
Deactivate marks a specific session as inactive.

Parameters:
  - context: context.Context
  - sessionID: string

Returns:
  - error: Deactivation failures
*/
func (repository *PostgresSessionRepository) Deactivate(context context.Context, sessionID string) error {
	const query = "UPDATE users.session SET isactive = FALSE, updatedat = $2 WHERE id = $1"
	_, err := repository.pool.Exec(context, query, sessionID, time.Now())
	if err != nil {
		return fmt.Errorf("postgres_session_repo_deactivate_failed: %w", err)
	}
	return nil
}

/*
DeactivateAllForUser marks all active sessions for a user as inactive.

Description: Security nuking of every live session, used by logout and
password reset.

Parameters:
  - context: context.Context
  - userID: string

Returns:
  - error: Batch deactivation failures
*/
func (repository *PostgresSessionRepository) DeactivateAllForUser(context context.Context, userID string) error {
	const query = "UPDATE users.session SET isactive = FALSE, updatedat = $2 WHERE userid = $1 AND isactive = TRUE"
	_, err := repository.pool.Exec(context, query, userID, time.Now())
	if err != nil {
		return fmt.Errorf("postgres_session_repo_deactivate_all_failed: %w", err)
	}
	return nil
}
