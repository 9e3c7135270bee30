// Copyright (c) 2026 Zaffran Foods. All rights reserved.
// Author: platform@zaffran.shop

package account_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zaffranfoods/zaffran/internal/platform/apperr"
	"github.com/zaffranfoods/zaffran/internal/platform/sec"
	"github.com/zaffranfoods/zaffran/internal/users/account"
	"github.com/zaffranfoods/zaffran/internal/users/auth"
)

// # In-Memory Fakes

type fakeUserRepo struct {
	users map[string]*auth.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[string]*auth.User{}}
}

func (r *fakeUserRepo) Create(_ context.Context, user *auth.User) error {
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
	}
	return nil
}

func (r *fakeUserRepo) MarkEmailVerified(_ context.Context, userID string) error {
	if u, ok := r.users[userID]; ok {
		u.EmailVerified = true
	}
	return nil
}

func (r *fakeUserRepo) MarkMobileVerified(_ context.Context, userID string) error {
	if u, ok := r.users[userID]; ok {
		u.NumberVerified = true
	}
	return nil
}

type fakeSessionRepo struct {
	sessions map[string]*auth.Session // keyed by session ID
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{sessions: map[string]*auth.Session{}}
}

func (r *fakeSessionRepo) Upsert(_ context.Context, session *auth.Session) error {
	clone := *session
	r.sessions[session.ID] = &clone
	return nil
}

func (r *fakeSessionRepo) FindActive(_ context.Context, userID, tokenHash string) (*auth.Session, error) {
	for _, s := range r.sessions {
		if s.UserID == userID && s.TokenHash == tokenHash && s.IsActive {
			clone := *s
			return &clone, nil
		}
	}
	return nil, apperr.NotFound("Session not found or expired")
}

func (r *fakeSessionRepo) FindByID(_ context.Context, sessionID string) (*auth.Session, error) {
	if s, ok := r.sessions[sessionID]; ok {
		clone := *s
		return &clone, nil
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
	if s, ok := r.sessions[sessionID]; ok {
		s.IsActive = false
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

// fakeAddressRepo mirrors the transactional single-default behavior of the
// Postgres implementation.
type fakeAddressRepo struct {
	addresses map[string]*account.Address
}

func newFakeAddressRepo() *fakeAddressRepo {
	return &fakeAddressRepo{addresses: map[string]*account.Address{}}
}

func (r *fakeAddressRepo) clearDefault(userID, keepID string) {
	for _, a := range r.addresses {
		if a.UserID == userID && a.ID != keepID {
			a.IsDefault = false
		}
	}
}

func (r *fakeAddressRepo) Create(_ context.Context, address *account.Address) error {
	if address.IsDefault {
		r.clearDefault(address.UserID, "")
	}
	clone := *address
	r.addresses[address.ID] = &clone
	return nil
}

func (r *fakeAddressRepo) FindByID(_ context.Context, addressID string) (*account.Address, error) {
	if a, ok := r.addresses[addressID]; ok {
		clone := *a
		return &clone, nil
	}
	return nil, apperr.NotFound("Address not found")
}

func (r *fakeAddressRepo) ListByUser(_ context.Context, userID string) ([]*account.Address, error) {
	out := []*account.Address{}
	for _, a := range r.addresses {
		if a.UserID == userID {
			clone := *a
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (r *fakeAddressRepo) Update(_ context.Context, address *account.Address) error {
	if _, ok := r.addresses[address.ID]; !ok {
		return apperr.NotFound("Address not found")
	}
	if address.IsDefault {
		r.clearDefault(address.UserID, address.ID)
	}
	clone := *address
	r.addresses[address.ID] = &clone
	return nil
}

func (r *fakeAddressRepo) Delete(_ context.Context, addressID string) error {
	delete(r.addresses, addressID)
	return nil
}

type fakeAccountRepo struct {
	users     *fakeUserRepo
	sessions  *fakeSessionRepo
	addresses *fakeAddressRepo
}

func (r *fakeAccountRepo) DeleteCascade(_ context.Context, userID string) error {
	if _, ok := r.users.users[userID]; !ok {
		return apperr.NotFound("User not found")
	}
	for id, s := range r.sessions.sessions {
		if s.UserID == userID {
			delete(r.sessions.sessions, id)
		}
	}
	for id, a := range r.addresses.addresses {
		if a.UserID == userID {
			delete(r.addresses.addresses, id)
		}
	}
	delete(r.users.users, userID)
	return nil
}

// # Fixture

type fixture struct {
	service   *account.Service
	users     *fakeUserRepo
	sessions  *fakeSessionRepo
	addresses *fakeAddressRepo
}

func newFixture() *fixture {
	f := &fixture{
		users:     newFakeUserRepo(),
		sessions:  newFakeSessionRepo(),
		addresses: newFakeAddressRepo(),
	}
	accountRepo := &fakeAccountRepo{users: f.users, sessions: f.sessions, addresses: f.addresses}
	f.service = account.NewService(
		f.users, f.sessions, f.addresses, accountRepo,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)
	return f
}

func (f *fixture) seedUser(t *testing.T, id string, role sec.UserRole) *auth.User {
	t.Helper()
	user := &auth.User{
		ID:            id,
		Email:         id + "@example.com",
		FullName:      "Customer " + id,
		Role:          role,
		EmailVerified: true,
	}
	require.NoError(t, f.users.Create(context.Background(), user))
	return user
}

func sampleAddress(isDefault bool) account.AddressInput {
	return account.AddressInput{
		AddressType: "home",
		Line1:       "14 Spice Market Road",
		City:        "Kochi",
		State:       "Kerala",
		Country:     "India",
		PostalCode:  "682001",
		IsDefault:   isDefault,
	}
}

// # Profile

/*
TestService_UpdateProfile_MobileChangeResetsVerification ensures a changed
number must be re-verified by OTP.
*/
func TestService_UpdateProfile_MobileChangeResetsVerification(t *testing.T) {
	f := newFixture()
	user := f.seedUser(t, "u1", sec.RoleUser)
	user.Mobile = "9876543210"
	user.NumberVerified = true
	f.users.users[user.ID].Mobile = "9876543210"
	f.users.users[user.ID].NumberVerified = true

	newMobile := "9123456780"
	updated, err := f.service.UpdateProfile(context.Background(), user.ID, account.UpdateProfileInput{
		Mobile: &newMobile,
	})
	require.NoError(t, err)
	assert.Equal(t, newMobile, updated.Mobile)
	assert.False(t, updated.NumberVerified)

	// Resubmitting the same number must not reset the flag.
	require.NoError(t, f.users.MarkMobileVerified(context.Background(), user.ID))
	updated, err = f.service.UpdateProfile(context.Background(), user.ID, account.UpdateProfileInput{
		Mobile: &newMobile,
	})
	require.NoError(t, err)
	assert.True(t, updated.NumberVerified)
}

// # Address Book

/*
TestService_AddAddress_DefaultInvariant drives the single-default rules:
first address is promoted, a later default demotes its predecessor.
*/
func TestService_AddAddress_DefaultInvariant(t *testing.T) {
	f := newFixture()
	user := f.seedUser(t, "u1", sec.RoleUser)

	// First address becomes default even when not requested.
	first, err := f.service.AddAddress(context.Background(), user.ID, sampleAddress(false))
	require.NoError(t, err)
	assert.True(t, first.IsDefault)

	// A non-default second address leaves the first alone.
	second, err := f.service.AddAddress(context.Background(), user.ID, sampleAddress(false))
	require.NoError(t, err)
	assert.False(t, second.IsDefault)

	// A new default demotes the old one.
	third, err := f.service.AddAddress(context.Background(), user.ID, sampleAddress(true))
	require.NoError(t, err)
	assert.True(t, third.IsDefault)

	defaults := 0
	addresses, err := f.service.ListAddresses(context.Background(), user.ID)
	require.NoError(t, err)
	require.Len(t, addresses, 3)
	for _, a := range addresses {
		if a.IsDefault {
			defaults++
			assert.Equal(t, third.ID, a.ID)
		}
	}
	assert.Equal(t, 1, defaults)

	// Promoting via update also demotes everyone else.
	input := sampleAddress(true)
	_, err = f.service.UpdateAddress(context.Background(), user.ID, second.ID, input)
	require.NoError(t, err)

	addresses, err = f.service.ListAddresses(context.Background(), user.ID)
	require.NoError(t, err)
	defaults = 0
	for _, a := range addresses {
		if a.IsDefault {
			defaults++
			assert.Equal(t, second.ID, a.ID)
		}
	}
	assert.Equal(t, 1, defaults)
}

/*
TestService_Address_OwnershipIsNotFound ensures foreign addresses read as
absent rather than forbidden.
*/
func TestService_Address_OwnershipIsNotFound(t *testing.T) {
	f := newFixture()
	owner := f.seedUser(t, "owner", sec.RoleUser)
	intruder := f.seedUser(t, "intruder", sec.RoleUser)

	address, err := f.service.AddAddress(context.Background(), owner.ID, sampleAddress(true))
	require.NoError(t, err)

	_, err = f.service.UpdateAddress(context.Background(), intruder.ID, address.ID, sampleAddress(false))
	require.Error(t, err)
	assert.Equal(t, 404, apperr.As(err).HTTPStatus)

	err = f.service.DeleteAddress(context.Background(), intruder.ID, address.ID)
	require.Error(t, err)
	assert.Equal(t, 404, apperr.As(err).HTTPStatus)

	// The owner still can.
	require.NoError(t, f.service.DeleteAddress(context.Background(), owner.ID, address.ID))
}

// # Sessions

/*
TestService_TerminateSession_Ownership verifies per-session and wholesale
termination respect ownership.
*/
func TestService_TerminateSession_Ownership(t *testing.T) {
	f := newFixture()
	owner := f.seedUser(t, "owner", sec.RoleUser)
	intruder := f.seedUser(t, "intruder", sec.RoleUser)

	session := &auth.Session{
		ID: "s1", UserID: owner.ID, DeviceInfo: "phone",
		IsActive: true, ExpiresAt: time.Now().Add(time.Hour),
	}
	require.NoError(t, f.sessions.Upsert(context.Background(), session))

	err := f.service.TerminateSession(context.Background(), intruder.ID, session.ID)
	require.Error(t, err)
	assert.Equal(t, 404, apperr.As(err).HTTPStatus)

	require.NoError(t, f.service.TerminateSession(context.Background(), owner.ID, session.ID))

	infos, err := f.service.ListSessions(context.Background(), owner.ID)
	require.NoError(t, err)
	assert.Empty(t, infos)
}

// # Account Deletion

/*
TestService_DeleteAccount_Capability exercises the who-may-delete-whom matrix
and the cascade.
*/
func TestService_DeleteAccount_Capability(t *testing.T) {
	f := newFixture()
	target := f.seedUser(t, "target", sec.RoleUser)
	other := f.seedUser(t, "other", sec.RoleUser)
	admin := f.seedUser(t, "admin", sec.RoleAdmin)
	_ = other

	// Seed dependents for the cascade check.
	_, err := f.service.AddAddress(context.Background(), target.ID, sampleAddress(true))
	require.NoError(t, err)
	require.NoError(t, f.sessions.Upsert(context.Background(), &auth.Session{
		ID: "s1", UserID: target.ID, DeviceInfo: "phone",
		IsActive: true, ExpiresAt: time.Now().Add(time.Hour),
	}))

	// A peer cannot delete someone else.
	err = f.service.DeleteAccount(context.Background(),
		sec.Actor{UserID: "other", Role: sec.RoleUser}, target.ID)
	require.Error(t, err)
	assert.Equal(t, 403, apperr.As(err).HTTPStatus)

	// An admin can.
	require.NoError(t, f.service.DeleteAccount(context.Background(),
		sec.Actor{UserID: admin.ID, Role: sec.RoleAdmin}, target.ID))

	// Cascade removed everything.
	_, err = f.users.FindByID(context.Background(), target.ID)
	require.Error(t, err)
	assert.Empty(t, f.sessions.sessions)
	addresses, err := f.addresses.ListByUser(context.Background(), target.ID)
	require.NoError(t, err)
	assert.Empty(t, addresses)

	// Self-deletion works for a plain user.
	require.NoError(t, f.service.DeleteAccount(context.Background(),
		sec.Actor{UserID: "other", Role: sec.RoleUser}, "other"))

	// Deleting an absent user is NotFound.
	err = f.service.DeleteAccount(context.Background(),
		sec.Actor{UserID: admin.ID, Role: sec.RoleAdmin}, "ghost")
	require.Error(t, err)
	assert.Equal(t, 404, apperr.As(err).HTTPStatus)
}
