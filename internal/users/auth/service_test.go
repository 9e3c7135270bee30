// Copyright (c) 2026 Zaffran Foods. All rights reserved.
// Author: platform@zaffran.shop

package auth_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zaffranfoods/zaffran/internal/platform/apperr"
	"github.com/zaffranfoods/zaffran/internal/platform/sec"
	"github.com/zaffranfoods/zaffran/internal/users/auth"
)

// # In-Memory Fakes

type fakeUserRepo struct {
	users map[string]*auth.User // keyed by ID
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[string]*auth.User{}}
}

func (r *fakeUserRepo) Create(_ context.Context, user *auth.User) error {
	for _, u := range r.users {
		if u.Email == user.Email {
			return apperr.Conflict("Email is already registered")
		}
		if user.Mobile != "" && u.Mobile == user.Mobile {
			return apperr.Conflict("Mobile number is already registered")
		}
	}
	clone := *user
	r.users[user.ID] = &clone
	return nil
}

func (r *fakeUserRepo) FindByID(_ context.Context, id string) (*auth.User, error) {
	if u, ok := r.users[id]; ok {
		clone := *u
		return &clone, nil
	}
	return nil, apperr.NotFound("User not found")
}

func (r *fakeUserRepo) FindByEmail(_ context.Context, email string) (*auth.User, error) {
	for _, u := range r.users {
		if u.Email == email {
			clone := *u
			return &clone, nil
		}
	}
	return nil, apperr.NotFound("User not found with this email")
}

func (r *fakeUserRepo) FindByMobile(_ context.Context, mobile string) (*auth.User, error) {
	for _, u := range r.users {
		if u.Mobile == mobile {
			clone := *u
			return &clone, nil
		}
	}
	return nil, apperr.NotFound("User not found with this mobile number")
}

func (r *fakeUserRepo) UpdateProfile(_ context.Context, user *auth.User) error {
	stored, ok := r.users[user.ID]
	if !ok {
		return apperr.NotFound("User not found")
	}
	stored.FullName = user.FullName
	stored.Mobile = user.Mobile
	stored.NumberVerified = user.NumberVerified
	return nil
}

func (r *fakeUserRepo) UpdatePassword(_ context.Context, userID, newHash string) error {
	if u, ok := r.users[userID]; ok {
		u.PasswordHash = newHash
		return nil
	}
	return apperr.NotFound("User not found")
}

func (r *fakeUserRepo) MarkEmailVerified(_ context.Context, userID string) error {
	if u, ok := r.users[userID]; ok {
		u.EmailVerified = true
		return nil
	}
	return apperr.NotFound("User not found")
}

func (r *fakeUserRepo) MarkMobileVerified(_ context.Context, userID string) error {
	if u, ok := r.users[userID]; ok {
		u.NumberVerified = true
		return nil
	}
	return apperr.NotFound("User not found")
}

type fakeSessionRepo struct {
	sessions map[string]*auth.Session // keyed by userID + "|" + deviceInfo
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{sessions: map[string]*auth.Session{}}
}

func (r *fakeSessionRepo) Upsert(_ context.Context, session *auth.Session) error {
	key := session.UserID + "|" + session.DeviceInfo
	if existing, ok := r.sessions[key]; ok {
		existing.TokenHash = session.TokenHash
		existing.UserAgent = session.UserAgent
		existing.IPAddress = session.IPAddress
		existing.IsActive = true
		existing.ExpiresAt = session.ExpiresAt
		return nil
	}
	clone := *session
	r.sessions[key] = &clone
	return nil
}

func (r *fakeSessionRepo) FindActive(_ context.Context, userID, tokenHash string) (*auth.Session, error) {
	for _, s := range r.sessions {
		if s.UserID == userID && s.TokenHash == tokenHash && s.IsActive && s.ExpiresAt.After(time.Now()) {
			clone := *s
			return &clone, nil
		}
	}
	return nil, apperr.NotFound("Session not found or expired")
}

func (r *fakeSessionRepo) FindByID(_ context.Context, sessionID string) (*auth.Session, error) {
	for _, s := range r.sessions {
		if s.ID == sessionID {
			clone := *s
			return &clone, nil
		}
	}
	return nil, apperr.NotFound("Session not found")
}

func (r *fakeSessionRepo) ListActiveByUser(_ context.Context, userID string) ([]*auth.Session, error) {
	out := []*auth.Session{}
	for _, s := range r.sessions {
		if s.UserID == userID && s.IsActive {
			clone := *s
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (r *fakeSessionRepo) Deactivate(_ context.Context, sessionID string) error {
	for _, s := range r.sessions {
		if s.ID == sessionID {
			s.IsActive = false
			return nil
		}
	}
	return nil
}

func (r *fakeSessionRepo) DeactivateAllForUser(_ context.Context, userID string) error {
	for _, s := range r.sessions {
		if s.UserID == userID {
			s.IsActive = false
		}
	}
	return nil
}

// fakeTokenRepo backs both verification and reset token stores: forward
// token->user plus reverse user->token, with Issue overwriting.
type fakeTokenRepo struct {
	byToken map[string]string
	byUser  map[string]string
}

func newFakeTokenRepo() *fakeTokenRepo {
	return &fakeTokenRepo{byToken: map[string]string{}, byUser: map[string]string{}}
}

func (r *fakeTokenRepo) Issue(_ context.Context, userID, token string, _ time.Duration) error {
	if previous, ok := r.byUser[userID]; ok {
		delete(r.byToken, previous)
	}
	r.byToken[token] = userID
	r.byUser[userID] = token
	return nil
}

func (r *fakeTokenRepo) Lookup(_ context.Context, token string) (string, error) {
	if userID, ok := r.byToken[token]; ok {
		return userID, nil
	}
	return "", apperr.NotFound("Token is invalid or expired")
}

func (r *fakeTokenRepo) Consume(_ context.Context, userID, token string) error {
	delete(r.byToken, token)
	delete(r.byUser, userID)
	return nil
}

func (r *fakeTokenRepo) Revoke(_ context.Context, userID string) error {
	if token, ok := r.byUser[userID]; ok {
		delete(r.byToken, token)
		delete(r.byUser, userID)
	}
	return nil
}

type fakeOTPRepo struct {
	codes map[string]string
}

func newFakeOTPRepo() *fakeOTPRepo {
	return &fakeOTPRepo{codes: map[string]string{}}
}

func (r *fakeOTPRepo) Issue(_ context.Context, userID, code string, _ time.Duration) error {
	r.codes[userID] = code
	return nil
}

func (r *fakeOTPRepo) Peek(_ context.Context, userID string) (string, error) {
	if code, ok := r.codes[userID]; ok {
		return code, nil
	}
	return "", apperr.NotFound("OTP is invalid or expired")
}

func (r *fakeOTPRepo) Consume(_ context.Context, userID string) error {
	delete(r.codes, userID)
	return nil
}

// stubTokenProvider mints predictable tokens and tracks which refresh tokens
// it has signed.
type stubTokenProvider struct {
	counter int
	issued  map[string]string // refresh token -> userID
}

func newStubTokenProvider() *stubTokenProvider {
	return &stubTokenProvider{issued: map[string]string{}}
}

func (p *stubTokenProvider) GenerateAccessToken(userID, _, _, _ string, _ time.Duration) (string, error) {
	p.counter++
	return fmt.Sprintf("access-%s-%d", userID, p.counter), nil
}

func (p *stubTokenProvider) GenerateRefreshToken(userID string, _ time.Duration) (string, error) {
	p.counter++
	token := fmt.Sprintf("refresh-%s-%d", userID, p.counter)
	p.issued[token] = userID
	return token, nil
}

func (p *stubTokenProvider) VerifyRefreshToken(token string) (string, error) {
	if token == "expired-refresh" {
		return "", sec.ErrTokenExpired
	}
	if userID, ok := p.issued[token]; ok {
		return userID, nil
	}
	return "", sec.ErrTokenInvalid
}

type fakeMailer struct {
	verifyTokens map[string]string // email -> last token
	resetTokens  map[string]string
	failNext     bool
}

func newFakeMailer() *fakeMailer {
	return &fakeMailer{verifyTokens: map[string]string{}, resetTokens: map[string]string{}}
}

func (m *fakeMailer) SendVerificationEmail(_ context.Context, toEmail, token string) error {
	if m.failNext {
		m.failNext = false
		return errors.New("smtp unavailable")
	}
	m.verifyTokens[toEmail] = token
	return nil
}

func (m *fakeMailer) SendPasswordResetEmail(_ context.Context, toEmail, token string) error {
	if m.failNext {
		m.failNext = false
		return errors.New("smtp unavailable")
	}
	m.resetTokens[toEmail] = token
	return nil
}

type fakeSMSSender struct {
	sent     map[string]string // mobile -> last code
	failNext bool
}

func newFakeSMSSender() *fakeSMSSender {
	return &fakeSMSSender{sent: map[string]string{}}
}

func (s *fakeSMSSender) SendOTP(_ context.Context, mobile, code string) error {
	if s.failNext {
		s.failNext = false
		return errors.New("sms gateway unavailable")
	}
	s.sent[mobile] = code
	return nil
}

// # Fixture

type fixture struct {
	service  *auth.Service
	users    *fakeUserRepo
	sessions *fakeSessionRepo
	verify   *fakeTokenRepo
	reset    *fakeTokenRepo
	otp      *fakeOTPRepo
	tokens   *stubTokenProvider
	mailer   *fakeMailer
	sms      *fakeSMSSender
}

func newFixture() *fixture {
	f := &fixture{
		users:    newFakeUserRepo(),
		sessions: newFakeSessionRepo(),
		verify:   newFakeTokenRepo(),
		reset:    newFakeTokenRepo(),
		otp:      newFakeOTPRepo(),
		tokens:   newStubTokenProvider(),
		mailer:   newFakeMailer(),
		sms:      newFakeSMSSender(),
	}
	f.service = auth.NewService(
		f.users, f.sessions, f.verify, f.reset, f.otp, f.tokens, f.mailer, f.sms,
	)
	return f
}

func (f *fixture) register(t *testing.T, email, mobile string) *auth.User {
	t.Helper()
	user, err := f.service.Register(context.Background(), auth.RegisterInput{
		Email:    email,
		Mobile:   mobile,
		Password: "correct horse battery",
		FullName: "Test Customer",
	})
	require.NoError(t, err)
	return user
}

func (f *fixture) registerVerified(t *testing.T, email, mobile string) *auth.User {
	t.Helper()
	user := f.register(t, email, mobile)
	require.NoError(t, f.users.MarkEmailVerified(context.Background(), user.ID))
	return user
}

func device(name string) auth.DeviceIdentity {
	return auth.DeviceIdentity{DeviceInfo: name, UserAgent: "go-test", IPAddress: "10.0.0.1"}
}

// # Registration

/*
TestService_Register_Duplicate ensures identity uniqueness is enforced with a
client-safe Conflict.
*/
func TestService_Register_Duplicate(t *testing.T) {
	f := newFixture()
	f.register(t, "amina@example.com", "9876543210")

	_, err := f.service.Register(context.Background(), auth.RegisterInput{
		Email:    "Amina@Example.com", // folding makes this a duplicate
		Password: "another password",
		FullName: "Second Try",
	})
	require.Error(t, err)
	ae := apperr.As(err)
	require.NotNil(t, ae)
	assert.Equal(t, 409, ae.HTTPStatus)

	_, err = f.service.Register(context.Background(), auth.RegisterInput{
		Email:    "other@example.com",
		Mobile:   "9876543210",
		Password: "another password",
		FullName: "Second Try",
	})
	require.Error(t, err)
	ae = apperr.As(err)
	require.NotNil(t, ae)
	assert.Equal(t, 409, ae.HTTPStatus)
}

/*
TestService_Register_SendsVerificationEmail confirms a token is issued and
emailed, and that registration survives a delivery failure.
*/
func TestService_Register_SendsVerificationEmail(t *testing.T) {
	f := newFixture()
	user := f.register(t, "amina@example.com", "")

	token, ok := f.mailer.verifyTokens[user.Email]
	require.True(t, ok)
	assert.NotEmpty(t, token)

	// The emailed token resolves back to the new user.
	userID, err := f.verify.Lookup(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, userID)

	// Delivery failure must not fail registration.
	f.mailer.failNext = true
	user2, err := f.service.Register(context.Background(), auth.RegisterInput{
		Email:    "rahim@example.com",
		Password: "correct horse battery",
		FullName: "Second Customer",
	})
	require.NoError(t, err)
	assert.False(t, user2.EmailVerified)
}

// # Login

/*
TestService_Login_ErrorParity ensures unknown email and wrong password are
indistinguishable to the caller.
*/
func TestService_Login_ErrorParity(t *testing.T) {
	f := newFixture()
	f.registerVerified(t, "amina@example.com", "")

	_, errUnknown := f.service.Login(context.Background(), auth.LoginInput{
		Email: "nobody@example.com", Password: "whatever", Device: device("phone"),
	})
	_, errWrongPass := f.service.Login(context.Background(), auth.LoginInput{
		Email: "amina@example.com", Password: "not the password", Device: device("phone"),
	})

	require.Error(t, errUnknown)
	require.Error(t, errWrongPass)

	aeUnknown := apperr.As(errUnknown)
	aeWrong := apperr.As(errWrongPass)
	require.NotNil(t, aeUnknown)
	require.NotNil(t, aeWrong)
	assert.Equal(t, 401, aeUnknown.HTTPStatus)
	assert.Equal(t, aeUnknown.Message, aeWrong.Message)
}

/*
TestService_Login_UnverifiedEmail gates token issuance on email verification.
*/
func TestService_Login_UnverifiedEmail(t *testing.T) {
	f := newFixture()
	f.register(t, "amina@example.com", "")

	_, err := f.service.Login(context.Background(), auth.LoginInput{
		Email: "amina@example.com", Password: "correct horse battery", Device: device("phone"),
	})
	require.Error(t, err)
	ae := apperr.As(err)
	require.NotNil(t, ae)
	assert.Equal(t, 403, ae.HTTPStatus)
}

// # Session Rotation

/*
TestService_Refresh_RotationInvalidatesPredecessor drives the per-device
session contract: a second login on the same device kills the first refresh
token, while a different device keeps its own session alive.
*/
func TestService_Refresh_RotationInvalidatesPredecessor(t *testing.T) {
	f := newFixture()
	user := f.registerVerified(t, "amina@example.com", "")

	first, err := f.service.Login(context.Background(), auth.LoginInput{
		Email: "amina@example.com", Password: "correct horse battery", Device: device("phone"),
	})
	require.NoError(t, err)

	tablet, err := f.service.Login(context.Background(), auth.LoginInput{
		Email: "amina@example.com", Password: "correct horse battery", Device: device("tablet"),
	})
	require.NoError(t, err)

	// Second login on the phone rotates that device's session.
	second, err := f.service.Login(context.Background(), auth.LoginInput{
		Email: "amina@example.com", Password: "correct horse battery", Device: device("phone"),
	})
	require.NoError(t, err)

	// Superseded phone token is dead.
	_, err = f.service.Refresh(context.Background(), first.Tokens.RefreshToken, device("phone"))
	require.Error(t, err)
	assert.Equal(t, 401, apperr.As(err).HTTPStatus)

	// Current phone token and the tablet's token still work.
	rotated, err := f.service.Refresh(context.Background(), second.Tokens.RefreshToken, device("phone"))
	require.NoError(t, err)
	assert.Equal(t, user.ID, rotated.User.ID)

	_, err = f.service.Refresh(context.Background(), tablet.Tokens.RefreshToken, device("tablet"))
	require.NoError(t, err)

	// A used refresh token was itself rotated away.
	_, err = f.service.Refresh(context.Background(), second.Tokens.RefreshToken, device("phone"))
	require.Error(t, err)
}

/*
TestService_Refresh_RejectionMessages distinguishes expired from invalid
refresh tokens while keeping both as 401s.
*/
func TestService_Refresh_RejectionMessages(t *testing.T) {
	f := newFixture()

	_, err := f.service.Refresh(context.Background(), "expired-refresh", device("phone"))
	require.Error(t, err)
	ae := apperr.As(err)
	require.NotNil(t, ae)
	assert.Equal(t, 401, ae.HTTPStatus)
	assert.Equal(t, "Refresh token expired", ae.Message)

	_, err = f.service.Refresh(context.Background(), "garbage", device("phone"))
	require.Error(t, err)
	ae = apperr.As(err)
	require.NotNil(t, ae)
	assert.Equal(t, 401, ae.HTTPStatus)
	assert.Equal(t, "Invalid refresh token", ae.Message)
}

/*
TestService_Logout_KillsAllSessions verifies that logout deactivates every
device's session.
*/
func TestService_Logout_KillsAllSessions(t *testing.T) {
	f := newFixture()
	user := f.registerVerified(t, "amina@example.com", "")

	phone, err := f.service.Login(context.Background(), auth.LoginInput{
		Email: "amina@example.com", Password: "correct horse battery", Device: device("phone"),
	})
	require.NoError(t, err)
	tablet, err := f.service.Login(context.Background(), auth.LoginInput{
		Email: "amina@example.com", Password: "correct horse battery", Device: device("tablet"),
	})
	require.NoError(t, err)

	require.NoError(t, f.service.Logout(context.Background(), user.ID))

	_, err = f.service.Refresh(context.Background(), phone.Tokens.RefreshToken, device("phone"))
	require.Error(t, err)
	_, err = f.service.Refresh(context.Background(), tablet.Tokens.RefreshToken, device("tablet"))
	require.Error(t, err)
}

// # Email Verification

/*
TestService_VerifyEmail_RoundTrip drives issue, redeem, and single-use.
*/
func TestService_VerifyEmail_RoundTrip(t *testing.T) {
	f := newFixture()
	user := f.register(t, "amina@example.com", "")
	token := f.mailer.verifyTokens[user.Email]
	require.NotEmpty(t, token)

	require.NoError(t, f.service.VerifyEmail(context.Background(), token))

	stored, err := f.users.FindByID(context.Background(), user.ID)
	require.NoError(t, err)
	assert.True(t, stored.EmailVerified)

	// Single-use: a second redemption fails.
	err = f.service.VerifyEmail(context.Background(), token)
	require.Error(t, err)
	assert.Equal(t, 400, apperr.As(err).HTTPStatus)
}

/*
TestService_ResendVerificationEmail_Overwrites ensures reissue invalidates
the previously emailed token.
*/
func TestService_ResendVerificationEmail_Overwrites(t *testing.T) {
	f := newFixture()
	user := f.register(t, "amina@example.com", "")
	firstToken := f.mailer.verifyTokens[user.Email]

	require.NoError(t, f.service.ResendVerificationEmail(context.Background(), user.Email))
	secondToken := f.mailer.verifyTokens[user.Email]
	require.NotEqual(t, firstToken, secondToken)

	// Old token is dead, new one redeems.
	require.Error(t, f.service.VerifyEmail(context.Background(), firstToken))
	require.NoError(t, f.service.VerifyEmail(context.Background(), secondToken))

	// Already-verified accounts get a Conflict on further resends.
	err := f.service.ResendVerificationEmail(context.Background(), user.Email)
	require.Error(t, err)
	assert.Equal(t, 409, apperr.As(err).HTTPStatus)

	// Unknown emails reply success to prevent enumeration.
	assert.NoError(t, f.service.ResendVerificationEmail(context.Background(), "nobody@example.com"))
}

// # Mobile Verification

/*
TestService_MobileOTP_Flow drives send, mismatch, and redeem semantics.
*/
func TestService_MobileOTP_Flow(t *testing.T) {
	f := newFixture()
	user := f.registerVerified(t, "amina@example.com", "9876543210")

	require.NoError(t, f.service.SendMobileOTP(context.Background(), user.ID))
	code := f.sms.sent["9876543210"]
	require.Len(t, code, 6)

	// A wrong guess is rejected and must NOT consume the stored code.
	err := f.service.VerifyMobileOTP(context.Background(), user.ID, "000000")
	if code == "000000" {
		t.Skip("improbable collision with the generated code")
	}
	require.Error(t, err)
	assert.Equal(t, 400, apperr.As(err).HTTPStatus)

	// The real code still redeems afterwards.
	require.NoError(t, f.service.VerifyMobileOTP(context.Background(), user.ID, code))

	stored, err := f.users.FindByID(context.Background(), user.ID)
	require.NoError(t, err)
	assert.True(t, stored.NumberVerified)

	// Consumed: replaying the code fails.
	require.Error(t, f.service.VerifyMobileOTP(context.Background(), user.ID, code))
}

/*
TestService_SendMobileOTP_Preconditions covers the no-mobile and delivery
failure paths.
*/
func TestService_SendMobileOTP_Preconditions(t *testing.T) {
	f := newFixture()
	noMobile := f.registerVerified(t, "nomobile@example.com", "")

	err := f.service.SendMobileOTP(context.Background(), noMobile.ID)
	require.Error(t, err)
	assert.Equal(t, 400, apperr.As(err).HTTPStatus)

	withMobile := f.registerVerified(t, "amina@example.com", "9876543210")
	f.sms.failNext = true
	err = f.service.SendMobileOTP(context.Background(), withMobile.ID)
	require.Error(t, err)

	// Undelivered code was rolled back, nothing sits redeemable.
	_, err = f.otp.Peek(context.Background(), withMobile.ID)
	require.Error(t, err)
}

// # Password Recovery

/*
TestService_PasswordReset_RoundTrip drives forgot, reset, and the session
cleanup that follows.
*/
func TestService_PasswordReset_RoundTrip(t *testing.T) {
	f := newFixture()
	user := f.registerVerified(t, "amina@example.com", "")

	session, err := f.service.Login(context.Background(), auth.LoginInput{
		Email: "amina@example.com", Password: "correct horse battery", Device: device("phone"),
	})
	require.NoError(t, err)

	require.NoError(t, f.service.ForgotPassword(context.Background(), user.Email))
	rawToken := f.mailer.resetTokens[user.Email]
	require.NotEmpty(t, rawToken)

	// Stored form is the digest, never the raw token.
	_, err = f.reset.Lookup(context.Background(), rawToken)
	require.Error(t, err)
	_, err = f.reset.Lookup(context.Background(), sec.HashToken(rawToken))
	require.NoError(t, err)

	require.NoError(t, f.service.ResetPassword(context.Background(), rawToken, "a brand new password"))

	// Old password rejected, new one accepted.
	_, err = f.service.Login(context.Background(), auth.LoginInput{
		Email: "amina@example.com", Password: "correct horse battery", Device: device("phone"),
	})
	require.Error(t, err)
	_, err = f.service.Login(context.Background(), auth.LoginInput{
		Email: "amina@example.com", Password: "a brand new password", Device: device("phone"),
	})
	require.NoError(t, err)

	// Single-use token.
	err = f.service.ResetPassword(context.Background(), rawToken, "yet another password")
	require.Error(t, err)
	assert.Equal(t, 400, apperr.As(err).HTTPStatus)

	// Pre-reset session was deactivated.
	_, err = f.service.Refresh(context.Background(), session.Tokens.RefreshToken, device("phone"))
	require.Error(t, err)
}

/*
TestService_ForgotPassword_RollbackOnDeliveryFailure ensures no redeemable
token survives a failed email send.
*/
func TestService_ForgotPassword_RollbackOnDeliveryFailure(t *testing.T) {
	f := newFixture()
	user := f.registerVerified(t, "amina@example.com", "")

	f.mailer.failNext = true
	err := f.service.ForgotPassword(context.Background(), user.Email)
	require.Error(t, err)

	// Reverse key cleanup: nothing is live for the user.
	_, live := f.reset.byUser[user.ID]
	assert.False(t, live)

	// Unknown emails reply success to prevent enumeration.
	assert.NoError(t, f.service.ForgotPassword(context.Background(), "nobody@example.com"))
}
