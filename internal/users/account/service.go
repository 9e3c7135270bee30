// Copyright (c) 2026 Zaffran Foods. All rights reserved.
// Author: platform@zaffran.shop

package account

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/zaffranfoods/zaffran/internal/platform/apperr"
	"github.com/zaffranfoods/zaffran/internal/platform/sec"
	"github.com/zaffranfoods/zaffran/internal/users/auth"
	"github.com/zaffranfoods/zaffran/pkg/uuid"
)

// # Service Layer

// Service orchestrates business logic for customer accounts, the address
// book, and session security.
//
// It enforces ownership on every address and session operation, the
// single-default address invariant, and the capability check guarding
// account deletion.
type Service struct {
	userRepository    auth.UserRepository
	sessionRepository auth.SessionRepository
	addressRepository AddressRepository
	accountRepository AccountRepository
	logger            *slog.Logger
}

// NewService constructs a new [Service] with its repository dependencies.
func NewService(
	userRepo auth.UserRepository,
	sessionRepo auth.SessionRepository,
	addressRepo AddressRepository,
	accountRepo AccountRepository,
	logger *slog.Logger,
) *Service {
	return &Service{
		userRepository:    userRepo,
		sessionRepository: sessionRepo,
		addressRepository: addressRepo,
		accountRepository: accountRepo,
		logger:            logger,
	}
}

// # Profile Management

/*
GetProfile retrieves the full private identity of a customer.

Parameters:
  - context: context.Context
  - userID: string

Returns:
  - *auth.User: The hydrated customer profile
  - error: Not found or execution failures
*/
func (service *Service) GetProfile(context context.Context, userID string) (*auth.User, error) {
	user, err := service.userRepository.FindByID(context, userID)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// UpdateProfileInput defines the mutable subset of profile fields. Nil
// pointers mean "leave unchanged".
type UpdateProfileInput struct {
	FullName *string
	Mobile   *string
}

/*
UpdateProfile applies a partial set of changes to a customer's profile.

Description: Fetches the existing state, overlays provided fields, and
synchronizes the change. Changing the mobile number resets its verified
flag — the new number must be re-verified by OTP.

Parameters:
  - context: context.Context
  - userID: string
  - input: UpdateProfileInput

Returns:
  - *auth.User: The updated customer profile
  - error: Conflict on duplicate mobile, or storage failures
*/
func (service *Service) UpdateProfile(context context.Context, userID string, input UpdateProfileInput) (*auth.User, error) {
	user, err := service.userRepository.FindByID(context, userID)
	if err != nil {
		return nil, err
	}

	if input.FullName != nil {
		user.FullName = *input.FullName
	}

	if input.Mobile != nil && *input.Mobile != user.Mobile {
		user.Mobile = *input.Mobile
		user.NumberVerified = false
	}

	if err := service.userRepository.UpdateProfile(context, user); err != nil {
		return nil, err
	}

	return user, nil
}

// # Address Book

// AddressInput carries the writable fields of an address.
type AddressInput struct {
	AddressType string
	Line1       string
	Line2       string
	City        string
	State       string
	Country     string
	PostalCode  string
	IsDefault   bool
}

/*
AddAddress creates a new address in the customer's book.

Description: A customer's first address is promoted to default regardless of
the submitted flag, so a populated book always has exactly one default.

Parameters:
  - context: context.Context
  - userID: string
  - input: AddressInput

Returns:
  - *Address: The created entity
  - error: Storage failures
*/
func (service *Service) AddAddress(context context.Context, userID string, input AddressInput) (*Address, error) {
	existing, err := service.addressRepository.ListByUser(context, userID)
	if err != nil {
		return nil, err
	}

	address := &Address{
		ID:          uuid.New(),
		UserID:      userID,
		AddressType: input.AddressType,
		Line1:       input.Line1,
		Line2:       input.Line2,
		City:        input.City,
		State:       input.State,
		Country:     input.Country,
		PostalCode:  input.PostalCode,
		IsDefault:   input.IsDefault || len(existing) == 0,
	}

	if err := service.addressRepository.Create(context, address); err != nil {
		return nil, err
	}

	return address, nil
}

/*
ListAddresses returns the customer's address book, default first.

Parameters:
  - context: context.Context
  - userID: string

Returns:
  - []*Address: All addresses
  - error: Retrieval failures
*/
func (service *Service) ListAddresses(context context.Context, userID string) ([]*Address, error) {
	return service.addressRepository.ListByUser(context, userID)
}

/*
UpdateAddress modifies an address the customer owns.

Description: Ownership is checked before any write. Addresses of other
customers read as NotFound, never Forbidden, to avoid confirming their
existence.

Parameters:
  - context: context.Context
  - userID: string
  - addressID: string
  - input: AddressInput

Returns:
  - *Address: The updated entity
  - error: apperr.NotFound or storage failures
*/
func (service *Service) UpdateAddress(context context.Context, userID, addressID string, input AddressInput) (*Address, error) {
	address, err := service.ownedAddress(context, userID, addressID)
	if err != nil {
		return nil, err
	}

	address.AddressType = input.AddressType
	address.Line1 = input.Line1
	address.Line2 = input.Line2
	address.City = input.City
	address.State = input.State
	address.Country = input.Country
	address.PostalCode = input.PostalCode
	address.IsDefault = input.IsDefault

	if err := service.addressRepository.Update(context, address); err != nil {
		return nil, err
	}

	return address, nil
}

/*
DeleteAddress removes an address the customer owns.

Parameters:
  - context: context.Context
  - userID: string
  - addressID: string

Returns:
  - error: apperr.NotFound or deletion failures
*/
func (service *Service) DeleteAddress(context context.Context, userID, addressID string) error {
	if _, err := service.ownedAddress(context, userID, addressID); err != nil {
		return err
	}
	return service.addressRepository.Delete(context, addressID)
}

// ownedAddress loads an address and verifies the caller owns it.
func (service *Service) ownedAddress(context context.Context, userID, addressID string) (*Address, error) {
	address, err := service.addressRepository.FindByID(context, addressID)
	if err != nil {
		return nil, err
	}
	if address.UserID != userID {
		return nil, apperr.NotFound("Address not found")
	}
	return address, nil
}

// # Session Security

/*
ListSessions returns the customer's active device sessions as transport-safe
views.

Parameters:
  - context: context.Context
  - userID: string

Returns:
  - []SessionInfo: Active devices, newest first
  - error: Retrieval failures
*/
func (service *Service) ListSessions(context context.Context, userID string) ([]SessionInfo, error) {
	sessions, err := service.sessionRepository.ListActiveByUser(context, userID)
	if err != nil {
		return nil, err
	}

	infos := make([]SessionInfo, 0, len(sessions))
	for _, session := range sessions {
		infos = append(infos, SessionInfo{
			ID:         session.ID,
			DeviceInfo: session.DeviceInfo,
			UserAgent:  session.UserAgent,
			IPAddress:  session.IPAddress,
			CreatedAt:  session.CreatedAt,
			ExpiresAt:  session.ExpiresAt,
		})
	}

	return infos, nil
}

/*
TerminateSession deactivates a single session the customer owns.

Parameters:
  - context: context.Context
  - userID: string
  - sessionID: string

Returns:
  - error: apperr.NotFound for unknown or foreign sessions, or failures
*/
func (service *Service) TerminateSession(context context.Context, userID, sessionID string) error {
	session, err := service.sessionRepository.FindByID(context, sessionID)
	if err != nil {
		return err
	}
	if session.UserID != userID {
		return apperr.NotFound("Session not found")
	}
	return service.sessionRepository.Deactivate(context, sessionID)
}

/*
TerminateAllSessions deactivates every session of the customer.

Parameters:
  - context: context.Context
  - userID: string

Returns:
  - error: Batch deactivation failures
*/
func (service *Service) TerminateAllSessions(context context.Context, userID string) error {
	return service.sessionRepository.DeactivateAllForUser(context, userID)
}

// # Account Deletion

/*
DeleteAccount permanently removes a customer account and everything attached
to it.

Description: The actor must hold the user:delete capability over the target —
the customer themself, or an admin. The cascade removes sessions, addresses,
and the account row atomically.

Parameters:
  - context: context.Context
  - actor: sec.Actor (who is asking)
  - targetUserID: string (whose account dies)

Returns:
  - error: apperr.Forbidden, apperr.NotFound, or storage failures
*/
func (service *Service) DeleteAccount(context context.Context, actor sec.Actor, targetUserID string) error {
	if !sec.Can(actor, sec.ActionDeleteUser, targetUserID) {
		return apperr.Forbidden("Not allowed to delete this account")
	}

	if err := service.accountRepository.DeleteCascade(context, targetUserID); err != nil {
		return fmt.Errorf("account_service_delete_cascade_failed: %w", err)
	}

	service.logger.Info("account deleted",
		slog.String("target_user_id", targetUserID),
		slog.String("actor_user_id", actor.UserID),
	)

	return nil
}
