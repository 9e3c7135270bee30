// Copyright (c) 2026 Zaffran Foods. All rights reserved.
// Author: platform@zaffran.shop

/*
Package auth implements the core identity and access management system.

It handles everything from customer registration and secure password hashing to
session lifecycle management via JWT access/refresh tokens, with one tracked
session per (user, device) pair.

Architecture:

  - Service: Orchestrates business logic (Register, Login, Refresh, Verification).
  - Repository: Abstracted interfaces for Postgres (Users, Sessions) and Redis
    (volatile verification artifacts).
  - Security: Bcrypt hashing and RSA-signed JWTs via the sec package.

The package ensures that identity data remains consistent and secure throughout
the storefront's lifecycle.
*/
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/zaffranfoods/zaffran/internal/platform/apperr"
	"github.com/zaffranfoods/zaffran/internal/platform/sec"
	"github.com/zaffranfoods/zaffran/pkg/uuid"
)

// # Contracts & Types

// TokenProvider defines the contract for generating and checking signed tokens.
type TokenProvider interface {
	// GenerateAccessToken creates a signed JWT string embedding the user identity.
	GenerateAccessToken(userID, email, fullName, role string, timeToLive time.Duration) (string, error)

	// GenerateRefreshToken creates a signed JWT string carrying only the user ID.
	GenerateRefreshToken(userID string, timeToLive time.Duration) (string, error)

	// VerifyRefreshToken checks signature and expiry of a refresh token and
	// returns the embedded user ID. Must return sec.ErrTokenExpired for
	// out-of-date tokens so callers can word the rejection precisely.
	VerifyRefreshToken(token string) (string, error)
}

// Mailer defines the contract for outbound transactional email.
type Mailer interface {
	// SendVerificationEmail delivers the raw email verification token.
	SendVerificationEmail(context context.Context, toEmail, token string) error

	// SendPasswordResetEmail delivers the raw password reset token.
	SendPasswordResetEmail(context context.Context, toEmail, token string) error
}

// SMSSender defines the contract for outbound one-time passwords.
type SMSSender interface {
	// SendOTP delivers the code to the given 10-digit mobile number.
	SendOTP(context context.Context, mobile, code string) error
}

// Service implements customer authentication use cases.
//
// # Review Process
//
// This service is critical for security. Any changes to hashing, session,
// or verification logic must be reviewed by the security team.
type Service struct {
	userRepository        UserRepository
	sessionRepository     SessionRepository
	verifyTokenRepository VerificationTokenRepository
	resetTokenRepository  ResetTokenRepository
	otpRepository         OTPRepository
	tokenProvider         TokenProvider
	mailer                Mailer
	smsSender             SMSSender
}

// NewService constructs a new [Service] with necessary dependencies.
func NewService(
	userRepo UserRepository,
	sessionRepo SessionRepository,
	verifyRepo VerificationTokenRepository,
	resetRepo ResetTokenRepository,
	otpRepo OTPRepository,
	tokenProv TokenProvider,
	mailer Mailer,
	smsSender SMSSender,
) *Service {
	return &Service{
		userRepository:        userRepo,
		sessionRepository:     sessionRepo,
		verifyTokenRepository: verifyRepo,
		resetTokenRepository:  resetRepo,
		otpRepository:         otpRepo,
		tokenProvider:         tokenProv,
		mailer:                mailer,
		smsSender:             smsSender,
	}
}

// FoldEmail normalizes an email address for storage and lookups.
// Uniqueness is enforced on the folded form.
func FoldEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// # Registration Flow

// RegisterInput holds the data required to enroll a new customer.
type RegisterInput struct {
	Email    string
	Mobile   string // optional
	Password string
	FullName string
}

/*
Register validates, hashes, and persists a brand new customer account.

Description: Creates the account in unverified state and issues a time-boxed
email verification token. Email delivery is best-effort — a send failure does
not fail the registration, since the token can be reissued.

Parameters:
  - context: context.Context
  - input: RegisterInput

Returns:
  - *User: Created entity
  - err: Conflict (if identity exists) or storage errors
*/
func (service *Service) Register(context context.Context, input RegisterInput) (*User, error) {
	email := FoldEmail(input.Email)

	// Verify email uniqueness. Return a client-safe Conflict err.
	_, err := service.userRepository.FindByEmail(context, email)
	if err == nil {
		return nil, apperr.Conflict("Email is already registered")
	}

	// Verify mobile uniqueness when a number was supplied.
	if input.Mobile != "" {
		_, err = service.userRepository.FindByMobile(context, input.Mobile)
		if err == nil {
			return nil, apperr.Conflict("Mobile number is already registered")
		}
	}

	// Prevent storing plain-text passwords.
	hashedPassword, err := sec.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("auth_service_hash_failed: %w", err)
	}

	// Construct the new User entity. Time-sortable ID to prevent PG index fragmentation.
	user := &User{
		ID:             uuid.New(),
		Email:          email,
		Mobile:         input.Mobile,
		PasswordHash:   hashedPassword,
		FullName:       input.FullName,
		Role:           sec.RoleUser,
		EmailVerified:  false,
		NumberVerified: false,
	}

	// Persist the user to the database. The unique indexes are the final
	// arbiter under concurrent registrations; the repository maps violations
	// to Conflict.
	if err := service.userRepository.Create(context, user); err != nil {
		return nil, err
	}

	// Issue and send the verification token as a best-effort side effect.
	_ = service.issueEmailVerification(context, user)

	return user, nil
}

// issueEmailVerification generates, stores, and emails a fresh verification
// token, overwriting any previously issued one.
func (service *Service) issueEmailVerification(context context.Context, user *User) error {
	token, err := sec.GenerateSecureToken(EmailVerificationTokenLength)
	if err != nil {
		return fmt.Errorf("auth_service_generate_verify_token_failed: %w", err)
	}

	if err := service.verifyTokenRepository.Issue(context, user.ID, token, EmailVerificationTTL); err != nil {
		return fmt.Errorf("auth_service_save_verify_token_failed: %w", err)
	}

	if err := service.mailer.SendVerificationEmail(context, user.Email, token); err != nil {
		return fmt.Errorf("auth_service_send_verify_email_failed: %w", err)
	}

	return nil
}

// # Authentication Flow

// LoginInput defines credentials for an authentication attempt.
type LoginInput struct {
	Email    string
	Password string
	Device   DeviceIdentity
}

// AuthSession represents a successfully established user session.
type AuthSession struct {
	Tokens TokenPair
	User   *User
}

/*
Login validates customer credentials and issues security tokens.

Description: Verifies identity with constant-time password comparison, gates
on email verification, and upserts the per-device tracking session.

Parameters:
  - context: context.Context
  - input: LoginInput

Returns:
  - *AuthSession: Transport-ready session credentials
  - err: Unauthorized, Forbidden, or internal failures
*/
func (service *Service) Login(context context.Context, input LoginInput) (*AuthSession, error) {
	user, err := service.userRepository.FindByEmail(context, FoldEmail(input.Email))

	// Unknown email and wrong password must be indistinguishable to the
	// caller to prevent account enumeration.
	if err != nil {
		return nil, apperr.Unauthorized("Invalid email or password")
	}

	if !sec.CheckPasswordHash(input.Password, user.PasswordHash) {
		return nil, apperr.Unauthorized("Invalid email or password")
	}

	// Tokens are only ever issued to verified email addresses.
	if !user.EmailVerified {
		return nil, apperr.Forbidden("Email address is not verified")
	}

	tokens, err := service.issueTokensForUser(context, user, input.Device)
	if err != nil {
		return nil, err
	}

	return &AuthSession{Tokens: *tokens, User: user}, nil
}

/*
IssueTokens mints an access/refresh pair for a user and durably records the
refresh token against the (user, device) session.

Parameters:
  - context: context.Context
  - userID: string
  - device: DeviceIdentity

Returns:
  - *TokenPair: Freshly signed tokens
  - err: apperr.NotFound if the user is absent, or internal failures
*/
func (service *Service) IssueTokens(context context.Context, userID string, device DeviceIdentity) (*TokenPair, error) {
	user, err := service.userRepository.FindByID(context, userID)
	if err != nil {
		return nil, apperr.NotFound("User")
	}
	return service.issueTokensForUser(context, user, device)
}

// issueTokensForUser is the single code path that creates tokens and rotates
// the session row. Upserting on (user, device) guarantees that exactly one
// session reflects the newest refresh token for that device; any previously
// issued refresh token for the pair stops matching and dies at validation.
func (service *Service) issueTokensForUser(context context.Context, user *User, device DeviceIdentity) (*TokenPair, error) {
	accessToken, err := service.tokenProvider.GenerateAccessToken(
		user.ID, user.Email, user.FullName, string(user.Role), AccessTokenTTL,
	)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("auth_service_access_token_failed: %w", err))
	}

	refreshToken, err := service.tokenProvider.GenerateRefreshToken(user.ID, RefreshTokenTTL)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("auth_service_refresh_token_failed: %w", err))
	}

	session := &Session{
		ID:         uuid.New(),
		UserID:     user.ID,
		DeviceInfo: device.DeviceInfo,
		UserAgent:  device.UserAgent,
		IPAddress:  device.IPAddress,
		TokenHash:  sec.HashToken(refreshToken),
		IsActive:   true,
		ExpiresAt:  time.Now().Add(RefreshTokenTTL),
	}

	// Never leak the storage error shape to callers of the issuance path.
	if err := service.sessionRepository.Upsert(context, session); err != nil {
		return nil, apperr.Internal(fmt.Errorf("auth_service_token_issuance_failed: %w", err))
	}

	return &TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

// # Session Management

/*
Refresh exchanges a valid, still-registered refresh token for a fresh pair.

Description: Verifies signature and expiry of the presented token, then
requires an active session whose stored hash matches it exactly. A token
superseded by a later login/refresh on the same device, or deactivated by
logout, no longer matches and is rejected — single-use-per-issuance semantics.

Parameters:
  - context: context.Context
  - refreshToken: string
  - device: DeviceIdentity (current request's network identity)

Returns:
  - *AuthSession: New session credentials
  - err: Unauthorized or internal failures
*/
func (service *Service) Refresh(context context.Context, refreshToken string, device DeviceIdentity) (*AuthSession, error) {
	userID, err := service.tokenProvider.VerifyRefreshToken(refreshToken)
	if err != nil {
		// Expired and malformed tokens are both 401, but the message
		// distinguishes them for client diagnostics.
		if errors.Is(err, sec.ErrTokenExpired) {
			return nil, apperr.Unauthorized("Refresh token expired")
		}
		return nil, apperr.Unauthorized("Invalid refresh token")
	}

	session, err := service.sessionRepository.FindActive(context, userID, sec.HashToken(refreshToken))
	if err != nil {
		return nil, apperr.Unauthorized("Refresh token is no longer valid")
	}

	user, err := service.userRepository.FindByID(context, userID)
	if err != nil {
		return nil, apperr.Unauthorized("User not found or deleted")
	}

	// Rotate on the session's own device key; the request may not resend
	// the original deviceInfo string.
	tokens, err := service.issueTokensForUser(context, user, DeviceIdentity{
		DeviceInfo: session.DeviceInfo,
		UserAgent:  device.UserAgent,
		IPAddress:  device.IPAddress,
	})
	if err != nil {
		return nil, err
	}

	return &AuthSession{Tokens: *tokens, User: user}, nil
}

/*
Logout deactivates every session belonging to the user.

Description: Broader than a single-device logout on purpose — the storefront
treats logout as "sign me out everywhere". Sessions are deactivated, not
deleted, preserving the device history for the account security screen.

Parameters:
  - context: context.Context
  - userID: string

Returns:
  - err: Deactivation failures (callers may deliberately swallow these)
*/
func (service *Service) Logout(context context.Context, userID string) error {
	if err := service.sessionRepository.DeactivateAllForUser(context, userID); err != nil {
		return fmt.Errorf("auth_service_logout_failed: %w", err)
	}
	return nil
}

// # Email Verification

/*
VerifyEmail confirms a customer's email address using the emailed token.

Parameters:
  - context: context.Context
  - token: string

Returns:
  - err: ValidationError for unknown/expired tokens, or storage failures
*/
func (service *Service) VerifyEmail(context context.Context, token string) error {
	userID, err := service.verifyTokenRepository.Lookup(context, token)
	if err != nil {
		return apperr.ValidationError("Invalid or expired verification token")
	}

	if err := service.userRepository.MarkEmailVerified(context, userID); err != nil {
		return fmt.Errorf("auth_service_verify_email_failed: %w", err)
	}

	// Single-use: the token dies with its successful redemption.
	_ = service.verifyTokenRepository.Consume(context, userID, token)

	return nil
}

/*
ResendVerificationEmail reissues the email verification token.

Description: Overwrites any previously issued token. Replies generically for
unknown emails to prevent enumeration.

Parameters:
  - context: context.Context
  - email: string

Returns:
  - err: Conflict if already verified, or delivery failures
*/
func (service *Service) ResendVerificationEmail(context context.Context, email string) error {
	user, err := service.userRepository.FindByEmail(context, FoldEmail(email))
	if err != nil {
		// Unknown email gets the same success reply as a known one.
		return nil
	}

	if user.EmailVerified {
		return apperr.Conflict("Email is already verified")
	}

	if err := service.issueEmailVerification(context, user); err != nil {
		return apperr.Internal(err)
	}

	return nil
}

// # Mobile Verification

/*
SendMobileOTP issues a one-time password to the user's stored mobile number.

Parameters:
  - context: context.Context
  - userID: string

Returns:
  - err: ValidationError (no mobile), Conflict (already verified), or delivery failures
*/
func (service *Service) SendMobileOTP(context context.Context, userID string) error {
	user, err := service.userRepository.FindByID(context, userID)
	if err != nil {
		return apperr.NotFound("User")
	}

	if user.Mobile == "" {
		return apperr.ValidationError("No mobile number on profile")
	}

	if user.NumberVerified {
		return apperr.Conflict("Mobile number is already verified")
	}

	code, err := sec.GenerateOTP(MobileOTPDigits)
	if err != nil {
		return fmt.Errorf("auth_service_generate_otp_failed: %w", err)
	}

	// Issuing overwrites any previous code for the user.
	if err := service.otpRepository.Issue(context, userID, code, MobileOTPTTL); err != nil {
		return fmt.Errorf("auth_service_save_otp_failed: %w", err)
	}

	if err := service.smsSender.SendOTP(context, user.Mobile, code); err != nil {
		// Roll back so an undelivered code cannot sit redeemable.
		_ = service.otpRepository.Consume(context, userID)
		return apperr.Internal(fmt.Errorf("auth_service_send_otp_failed: %w", err))
	}

	return nil
}

/*
VerifyMobileOTP redeems a submitted one-time password.

Description: The stored code is only consumed on an exact, unexpired match.
A mismatch leaves it redeemable until expiry or the next reissue.

Parameters:
  - context: context.Context
  - userID: string
  - code: string

Returns:
  - err: ValidationError on mismatch/expiry, or storage failures
*/
func (service *Service) VerifyMobileOTP(context context.Context, userID, code string) error {
	stored, err := service.otpRepository.Peek(context, userID)
	if err != nil {
		return apperr.ValidationError("Invalid or expired OTP")
	}

	if stored != code {
		return apperr.ValidationError("Invalid or expired OTP")
	}

	if err := service.userRepository.MarkMobileVerified(context, userID); err != nil {
		return fmt.Errorf("auth_service_verify_mobile_failed: %w", err)
	}

	_ = service.otpRepository.Consume(context, userID)

	return nil
}

// # Password Recovery

/*
ForgotPassword initiates the reset flow for the given email.

Description: Generates a raw token, persists only its SHA-256 hash with a
15-minute TTL, and emails the raw value. If the email cannot be delivered the
stored hash is rolled back so no dangling valid token remains.

Parameters:
  - context: context.Context
  - email: string

Returns:
  - err: Delivery or storage failures (unknown emails return nil)
*/
func (service *Service) ForgotPassword(context context.Context, email string) error {
	// NOTE: We don't return NotFound if the email doesn't exist to prevent
	// user enumeration.
	user, err := service.userRepository.FindByEmail(context, FoldEmail(email))
	if err != nil {
		return nil
	}

	rawToken, err := sec.GenerateSecureToken(PasswordResetTokenLength)
	if err != nil {
		return fmt.Errorf("auth_service_generate_reset_token_failed: %w", err)
	}

	// Only the digest is persisted; a store leak cannot be replayed.
	if err := service.resetTokenRepository.Issue(context, user.ID, sec.HashToken(rawToken), PasswordResetTTL); err != nil {
		return fmt.Errorf("auth_service_save_reset_token_failed: %w", err)
	}

	if err := service.mailer.SendPasswordResetEmail(context, user.Email, rawToken); err != nil {
		_ = service.resetTokenRepository.Revoke(context, user.ID)
		return apperr.Internal(fmt.Errorf("auth_service_send_reset_email_failed: %w", err))
	}

	return nil
}

/*
ResetPassword completes the reset flow.

Description: Re-hashes the presented token, matches it against the stored
digest, applies the new password, consumes the token, and deactivates every
session as a security cleanup.

Parameters:
  - context: context.Context
  - token: string (raw emailed value)
  - newPassword: string

Returns:
  - err: ValidationError for unknown/expired tokens, or storage failures
*/
func (service *Service) ResetPassword(context context.Context, token, newPassword string) error {
	tokenHash := sec.HashToken(token)

	userID, err := service.resetTokenRepository.Lookup(context, tokenHash)
	if err != nil {
		return apperr.ValidationError("Invalid or expired reset token")
	}

	hashedPassword, err := sec.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("auth_service_reset_password_hash_failed: %w", err)
	}

	if err := service.userRepository.UpdatePassword(context, userID, hashedPassword); err != nil {
		return fmt.Errorf("auth_service_reset_password_update_failed: %w", err)
	}

	// Single-use: consume the token, then force re-login on all devices.
	_ = service.resetTokenRepository.Consume(context, userID, tokenHash)
	_ = service.sessionRepository.DeactivateAllForUser(context, userID)

	return nil
}
