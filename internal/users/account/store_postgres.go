// Copyright (c) 2026 Zaffran Foods. All rights reserved.
// Author: platform@zaffran.shop

package account

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/zaffranfoods/zaffran/internal/platform/apperr"
)

// # Address Repository

// PostgresAddressRepository implements the AddressRepository interface using pgx.
type PostgresAddressRepository struct {
	pool *pgxpool.Pool
}

// NewAddressRepository creates a new PostgreSQL implementation of AddressRepository.
func NewAddressRepository(pool *pgxpool.Pool) *PostgresAddressRepository {
	return &PostgresAddressRepository{pool: pool}
}

const addressColumns = `
	id, userid, addresstype, line1, line2, city, state, country,
	postalcode, isdefault, createdat, updatedat`

func scanAddress(row pgx.Row) (*Address, error) {
	address := &Address{}
	err := row.Scan(
		&address.ID,
		&address.UserID,
		&address.AddressType,
		&address.Line1,
		&address.Line2,
		&address.City,
		&address.State,
		&address.Country,
		&address.PostalCode,
		&address.IsDefault,
		&address.CreatedAt,
		&address.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return address, nil
}

/*
Create persists a new address into the users.address table.

Description: When the new address is flagged default, the user's other
addresses have their flag cleared inside the same transaction, keeping at
most one default per user.

Parameters:
  - context: context.Context
  - address: *Address

Returns:
  - error: Storage or constraint failures
*/
func (repository *PostgresAddressRepository) Create(context context.Context, address *Address) error {
	const insertQuery = `
		INSERT INTO users.address (
			id, userid, addresstype, line1, line2, city, state, country,
			postalcode, isdefault, createdat, updatedat
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	now := time.Now()
	if address.CreatedAt.IsZero() {
		address.CreatedAt = now
	}
	address.UpdatedAt = now

	transaction, err := repository.pool.Begin(context)
	if err != nil {
		return fmt.Errorf("postgres_address_repo_begin_failed: %w", err)
	}
	defer transaction.Rollback(context)

	if address.IsDefault {
		if err := clearDefault(context, transaction, address.UserID, ""); err != nil {
			return err
		}
	}

	_, err = transaction.Exec(context, insertQuery,
		address.ID,
		address.UserID,
		address.AddressType,
		address.Line1,
		address.Line2,
		address.City,
		address.State,
		address.Country,
		address.PostalCode,
		address.IsDefault,
		address.CreatedAt,
		address.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres_address_repo_create_failed: %w", err)
	}

	if err := transaction.Commit(context); err != nil {
		return fmt.Errorf("postgres_address_repo_commit_failed: %w", err)
	}

	return nil
}

// clearDefault drops the default flag from every address of the user except
// the one being kept (empty keepID clears all).
func clearDefault(context context.Context, transaction pgx.Tx, userID, keepID string) error {
	const query = `
		UPDATE users.address
		SET isdefault = FALSE, updatedat = $3
		WHERE userid = $1 AND id != $2 AND isdefault = TRUE`

	_, err := transaction.Exec(context, query, userID, keepID, time.Now())
	if err != nil {
		return fmt.Errorf("postgres_address_repo_clear_default_failed: %w", err)
	}
	return nil
}

/*
FindByID retrieves an address by its unique ID.

Parameters:
  - context: context.Context
  - addressID: string

Returns:
  - *Address: Hydrated entity
  - error: apperr.NotFound or execution errors
*/
func (repository *PostgresAddressRepository) FindByID(context context.Context, addressID string) (*Address, error) {
	query := `
		SELECT ` + addressColumns + `
		FROM users.address
		WHERE id = $1`

	address, err := scanAddress(repository.pool.QueryRow(context, query, addressID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("Address not found")
		}
		return nil, fmt.Errorf("postgres_address_repo_find_by_id_failed: %w", err)
	}

	return address, nil
}

/*
ListByUser returns all addresses for a user, default first, then newest.

Parameters:
  - context: context.Context
  - userID: string

Returns:
  - []*Address: The user's address book
  - error: Execution errors
*/
func (repository *PostgresAddressRepository) ListByUser(context context.Context, userID string) ([]*Address, error) {
	query := `
		SELECT ` + addressColumns + `
		FROM users.address
		WHERE userid = $1
		ORDER BY isdefault DESC, createdat DESC`

	rows, err := repository.pool.Query(context, query, userID)
	if err != nil {
		return nil, fmt.Errorf("postgres_address_repo_list_failed: %w", err)
	}
	defer rows.Close()

	addresses := []*Address{}
	for rows.Next() {
		address, err := scanAddress(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres_address_repo_list_scan_failed: %w", err)
		}
		addresses = append(addresses, address)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres_address_repo_list_rows_failed: %w", err)
	}

	return addresses, nil
}

/*
Update persists changes to an existing address.

Description: Setting the default flag clears it from the user's other
addresses inside the same transaction.

Parameters:
  - context: context.Context
  - address: *Address

Returns:
  - error: Storage or constraint failures
*/
func (repository *PostgresAddressRepository) Update(context context.Context, address *Address) error {
	const updateQuery = `
		UPDATE users.address
		SET addresstype = $2, line1 = $3, line2 = $4, city = $5, state = $6,
			country = $7, postalcode = $8, isdefault = $9, updatedat = $10
		WHERE id = $1`

	address.UpdatedAt = time.Now()

	transaction, err := repository.pool.Begin(context)
	if err != nil {
		return fmt.Errorf("postgres_address_repo_begin_failed: %w", err)
	}
	defer transaction.Rollback(context)

	if address.IsDefault {
		if err := clearDefault(context, transaction, address.UserID, address.ID); err != nil {
			return err
		}
	}

	_, err = transaction.Exec(context, updateQuery,
		address.ID,
		address.AddressType,
		address.Line1,
		address.Line2,
		address.City,
		address.State,
		address.Country,
		address.PostalCode,
		address.IsDefault,
		address.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres_address_repo_update_failed: %w", err)
	}

	if err := transaction.Commit(context); err != nil {
		return fmt.Errorf("postgres_address_repo_commit_failed: %w", err)
	}

	return nil
}

/*
Delete removes an address permanently.

Parameters:
  - context: context.Context
  - addressID: string

Returns:
  - error: Deletion failures
*/
func (repository *PostgresAddressRepository) Delete(context context.Context, addressID string) error {
	const query = "DELETE FROM users.address WHERE id = $1"
	_, err := repository.pool.Exec(context, query, addressID)
	if err != nil {
		return fmt.Errorf("postgres_address_repo_delete_failed: %w", err)
	}
	return nil
}

// # Account Repository

// PostgresAccountRepository implements the AccountRepository interface.
type PostgresAccountRepository struct {
	pool *pgxpool.Pool
}

// NewAccountRepository creates a new PostgreSQL implementation of AccountRepository.
func NewAccountRepository(pool *pgxpool.Pool) *PostgresAccountRepository {
	return &PostgresAccountRepository{pool: pool}
}

/*
DeleteCascade permanently removes a user and all dependent rows.

Description: Sessions, then addresses, then the account itself, inside one
transaction. A failure at any step rolls back the whole cascade so no orphan
rows survive.

Parameters:
  - context: context.Context
  - userID: string

Returns:
  - error: apperr.NotFound if the user is absent, or storage failures
*/
func (repository *PostgresAccountRepository) DeleteCascade(context context.Context, userID string) error {
	transaction, err := repository.pool.Begin(context)
	if err != nil {
		return fmt.Errorf("postgres_account_repo_begin_failed: %w", err)
	}
	defer transaction.Rollback(context)

	if _, err := transaction.Exec(context, "DELETE FROM users.session WHERE userid = $1", userID); err != nil {
		return fmt.Errorf("postgres_account_repo_delete_sessions_failed: %w", err)
	}

	if _, err := transaction.Exec(context, "DELETE FROM users.address WHERE userid = $1", userID); err != nil {
		return fmt.Errorf("postgres_account_repo_delete_addresses_failed: %w", err)
	}

	tag, err := transaction.Exec(context, "DELETE FROM users.account WHERE id = $1", userID)
	if err != nil {
		return fmt.Errorf("postgres_account_repo_delete_user_failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("User not found")
	}

	if err := transaction.Commit(context); err != nil {
		return fmt.Errorf("postgres_account_repo_commit_failed: %w", err)
	}

	return nil
}
