// Copyright (c) 2026 Zaffran Foods. All rights reserved.
// Author: platform@zaffran.shop

/*
Package auth implements the customer identity and session management layer.

It defines the core domain entities (User, Session) and logic for
authentication, verification, and credential recovery.

# Architecture

This layer is the "Truth" of the system. Entities defined here have no external
dependencies and encapsulate all business rules related to customer identity.
*/
package auth

import (
	"time"

	"github.com/zaffranfoods/zaffran/internal/platform/sec"
)

// # Domain Entities

// User represents a registered customer or staff member of the storefront.
type User struct {
	ID             string       `json:"id"`
	Email          string       `json:"email"`
	Mobile         string       `json:"mobile,omitempty"`
	PasswordHash   string       `json:"-"` // Explicitly omitted from JSON for security.
	FullName       string       `json:"full_name"`
	Role           sec.UserRole `json:"role"`
	EmailVerified  bool         `json:"email_verified"`
	NumberVerified bool         `json:"number_verified"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

// Session represents the refresh-token session of a single (user, device) pair.
//
// At most one active session row exists per pair; logins and refreshes for the
// same device upsert this row rather than appending new ones.
type Session struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	DeviceInfo string    `json:"device_info"`
	UserAgent  string    `json:"user_agent"`
	IPAddress  string    `json:"ip_address"`
	TokenHash  string    `json:"-"` // SHA-256 of the current refresh token. Omitted for security.
	IsActive   bool      `json:"is_active"`
	ExpiresAt  time.Time `json:"expires_at"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// TokenPair carries a freshly minted access/refresh token couple.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// DeviceIdentity describes the client device attached to a session.
// All fields are free-form strings supplied by the client; empty is allowed.
type DeviceIdentity struct {
	DeviceInfo string
	UserAgent  string
	IPAddress  string
}

// # Field Identifiers

// Global field names for validation and identity mapping in the authentication domain.
const (
	FieldEmail        = "email"
	FieldMobile       = "mobile"
	FieldPassword     = "password"
	FieldFullName     = "full_name"
	FieldToken        = "token"
	FieldOTP          = "otp"
	FieldNewPassword  = "new_password"
	FieldRefreshToken = "refresh_token"
	FieldAccessToken  = "access_token"
	FieldTokenType    = "token_type"
	FieldExpiresIn    = "expires_in"
	FieldUser         = "user"
	FieldMessage      = "message"
)
