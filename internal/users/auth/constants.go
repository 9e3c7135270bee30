// Copyright (c) 2026 Zaffran Foods. All rights reserved.
// Author: platform@zaffran.shop

package auth

import "time"

// # Authentication Constraints

const (
	// AccessTokenTTL is the duration a JWT access token remains valid.
	// We keep it short (15m) to minimize the impact of a leaked token.
	AccessTokenTTL = 15 * time.Minute

	// RefreshTokenTTL is the duration a session/refresh token remains valid.
	// One week balances user experience against stale-session buildup.
	RefreshTokenTTL = 7 * 24 * time.Hour

	// EmailVerificationTTL is the duration an email verification token remains valid.
	// Long-lived (24 hours) as users might not check email immediately.
	EmailVerificationTTL = 24 * time.Hour

	// EmailVerificationTokenLength is the byte length of the random verification token.
	EmailVerificationTokenLength = 32

	// MobileOTPTTL is the duration a mobile one-time password remains valid.
	MobileOTPTTL = 10 * time.Minute

	// MobileOTPDigits is the length of the numeric one-time password.
	MobileOTPDigits = 6

	// PasswordResetTTL is the duration a password reset token remains valid.
	// Short-lived (15 minutes) for security.
	PasswordResetTTL = 15 * time.Minute

	// PasswordResetTokenLength is the byte length of the random password reset token.
	PasswordResetTokenLength = 32
)
