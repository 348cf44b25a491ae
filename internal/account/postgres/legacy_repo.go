// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Emberlink Contributors

package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/samber/oops"

	"github.com/emberlink/emberlink/internal/account"
)

// LegacyRepository persists legacy (pre-migration) accounts, keyed by
// the one-way hash of their normalized old username.
type LegacyRepository struct {
	db DB
}

// NewLegacyRepository creates a LegacyRepository.
func NewLegacyRepository(db DB) *LegacyRepository {
	return &LegacyRepository{db: db}
}

// FindLegacy retrieves a legacy account by its username hash.
func (r *LegacyRepository) FindLegacy(ctx context.Context, usernameHash string) (*account.LegacyAccount, error) {
	row := r.db.QueryRow(ctx, `
		SELECT username_hash, password_hash, verified, playtime_seconds,
		       games, achievements
		FROM legacy_accounts
		WHERE username_hash = $1
	`, usernameHash)

	var (
		legacy           account.LegacyAccount
		playtimeSeconds  int64
		achievementsJSON []byte
	)
	err := row.Scan(
		&legacy.UsernameHash,
		&legacy.PasswordHash,
		&legacy.Verified,
		&playtimeSeconds,
		&legacy.Games,
		&achievementsJSON,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("LEGACY_NOT_FOUND").
			Wrap(account.ErrNotFound)
	}
	if err != nil {
		return nil, unavailable("find legacy account", err)
	}

	if err := json.Unmarshal(achievementsJSON, &legacy.Achievements); err != nil {
		return nil, oops.Code("LEGACY_CORRUPT_ACHIEVEMENTS").Wrap(err)
	}
	legacy.Playtime = time.Duration(playtimeSeconds) * time.Second

	return &legacy, nil
}

// DeleteLegacy removes a legacy account. Deleting a missing record is
// not an error: a migration retry may have already completed the delete.
func (r *LegacyRepository) DeleteLegacy(ctx context.Context, usernameHash string) error {
	_, err := r.db.Exec(ctx, `
		DELETE FROM legacy_accounts WHERE username_hash = $1
	`, usernameHash)
	if err != nil {
		return unavailable("delete legacy account", err)
	}
	return nil
}

// SaveLegacy inserts a legacy record. Used by import tooling and tests;
// the game server itself never creates legacy accounts.
func (r *LegacyRepository) SaveLegacy(ctx context.Context, legacy *account.LegacyAccount) error {
	achievementsJSON, err := json.Marshal(legacy.Achievements)
	if err != nil {
		return oops.Code("LEGACY_SAVE_FAILED").
			With("operation", "marshal achievements").
			Wrap(err)
	}

	_, err = r.db.Exec(ctx, `
		INSERT INTO legacy_accounts (
			username_hash, password_hash, verified, playtime_seconds,
			games, achievements
		) VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (username_hash) DO UPDATE SET
			password_hash = EXCLUDED.password_hash,
			verified = EXCLUDED.verified,
			playtime_seconds = EXCLUDED.playtime_seconds,
			games = EXCLUDED.games,
			achievements = EXCLUDED.achievements
	`,
		legacy.UsernameHash,
		legacy.PasswordHash,
		legacy.Verified,
		int64(legacy.Playtime/time.Second),
		legacy.Games,
		achievementsJSON,
	)
	if err != nil {
		return unavailable("save legacy account", err)
	}
	return nil
}
