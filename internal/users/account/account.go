// Copyright (c) 2026 Zaffran Foods. All rights reserved.
// Author: platform@zaffran.shop

/*
Package account handles customer profile management, the address book, and
security settings.

It provides functionalities for customers to view and update their private
identity data, maintain delivery addresses, and manage their active device
sessions — including full account deletion.

# Architecture

  - Entities: Address, SessionInfo (DTO).
  - Domain: This package depends on the auth package for the User and
    Session entities.
  - Security: Session transparency, session revocation, and a capability
    check guarding account deletion.
*/
package account

import (
	"context"
	"time"
)

// # Domain Entities

// Address represents a delivery address in a customer's address book.
type Address struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	AddressType string    `json:"address_type"` // 'home', 'work', 'other'
	Line1       string    `json:"line1"`
	Line2       string    `json:"line2,omitempty"`
	City        string    `json:"city"`
	State       string    `json:"state"`
	Country     string    `json:"country"`
	PostalCode  string    `json:"postal_code"`
	IsDefault   bool      `json:"is_default"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// AddressTypes enumerates the accepted address_type values.
var AddressTypes = []string{"home", "work", "other"}

// SessionInfo provides a safety-mapped view of an active customer session.
// It omits the stored token hash for transport.
type SessionInfo struct {
	ID         string    `json:"id"`
	DeviceInfo string    `json:"device_info"` // e.g. "Chrome on Windows"
	UserAgent  string    `json:"user_agent"`
	IPAddress  string    `json:"ip_address"`
	CreatedAt  time.Time `json:"created_at"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// # Field Identifiers

// Field identifiers used in validation errors and JSON payloads.
const (
	FieldAddressType = "address_type"
	FieldLine1       = "line1"
	FieldLine2       = "line2"
	FieldCity        = "city"
	FieldState       = "state"
	FieldCountry     = "country"
	FieldPostalCode  = "postal_code"
	FieldIsDefault   = "is_default"
	FieldAddressID   = "address_id"
	FieldSessionID   = "session_id"
	FieldUserID      = "user_id"
)

// # Repository Contracts

// AddressRepository defines the persistence contract for the address book.
type AddressRepository interface {
	/*
		Create persists a new address. When the address is flagged default,
		the implementation must atomically clear the flag on the user's
		other addresses.

		Parameters:
		  - context: context.Context
		  - address: *Address

		Returns:
		  - error: Storage or constraint failures
	*/
	Create(context context.Context, address *Address) error

	/*
		FindByID retrieves an address by its unique ID.

		Parameters:
		  - context: context.Context
		  - addressID: string

		Returns:
		  - *Address: Hydrated entity
		  - error: apperr.NotFound or storage failures
	*/
	FindByID(context context.Context, addressID string) (*Address, error)

	/*
		ListByUser returns all addresses for a user, default first.

		Parameters:
		  - context: context.Context
		  - userID: string

		Returns:
		  - []*Address: The user's address book
		  - error: Retrieval errors
	*/
	ListByUser(context context.Context, userID string) ([]*Address, error)

	/*
		Update persists changes to an existing address, preserving the
		single-default invariant when the default flag is set.

		Parameters:
		  - context: context.Context
		  - address: *Address

		Returns:
		  - error: Storage or constraint failures
	*/
	Update(context context.Context, address *Address) error

	/*
		Delete removes an address permanently.

		Parameters:
		  - context: context.Context
		  - addressID: string

		Returns:
		  - error: Deletion failures
	*/
	Delete(context context.Context, addressID string) error
}

// AccountRepository defines the destructive account lifecycle contract.
type AccountRepository interface {
	/*
		DeleteCascade permanently removes a user and every dependent row —
		sessions, then addresses, then the account — inside one transaction
		so no orphans survive a partial failure.

		Parameters:
		  - context: context.Context
		  - userID: string

		Returns:
		  - error: apperr.NotFound if the user is absent, or storage failures
	*/
	DeleteCascade(context context.Context, userID string) error
}
