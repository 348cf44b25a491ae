// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Emberlink Contributors

package account

import "context"

// Store manages account and legacy-account persistence. Implementations
// return ErrNotFound for missing records, ErrDuplicateUsername when the
// uniqueness constraint rejects a Save, and wrap transient backend
// failures in ErrStoreUnavailable.
type Store interface {
	// FindByID retrieves an account by ID.
	FindByID(ctx context.Context, id string) (*Account, error)

	// FindByUsername retrieves an account by normalized username
	// (case-insensitive).
	FindByUsername(ctx context.Context, username string) (*Account, error)

	// FindByDiscordID retrieves an account linked to a Discord user.
	FindByDiscordID(ctx context.Context, discordID string) (*Account, error)

	// FindBySessionToken retrieves the account holding a non-expired
	// session under the given derived token.
	FindBySessionToken(ctx context.Context, token string) (*Account, error)

	// Save upserts the account, replacing the full record.
	Save(ctx context.Context, acc *Account) error

	// FindLegacy retrieves a legacy account by its username hash.
	FindLegacy(ctx context.Context, usernameHash string) (*LegacyAccount, error)

	// DeleteLegacy removes a legacy account. Deleting a missing record
	// is not an error.
	DeleteLegacy(ctx context.Context, usernameHash string) error
}
