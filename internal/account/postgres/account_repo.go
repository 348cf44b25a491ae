// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Emberlink Contributors

// Package postgres implements account.Store using PostgreSQL.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/emberlink/emberlink/internal/account"
)

// DB is the subset of pgxpool.Pool used by the repositories. pgxmock's
// PgxPoolIface satisfies it for unit tests.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const accountColumns = `id, username, password_hash, sessions, verified, roles,
	       discord_id, migrated_from, playtime_seconds, games, achievements,
	       created_at, updated_at`

// AccountRepository implements account.Store backed by PostgreSQL. The
// accounts table carries a unique index on username, closing the
// manager's check-then-act registration race at the store layer.
type AccountRepository struct {
	db DB
}

// NewAccountRepository creates an AccountRepository.
func NewAccountRepository(db DB) *AccountRepository {
	return &AccountRepository{db: db}
}

// FindByID retrieves an account by ID.
func (r *AccountRepository) FindByID(ctx context.Context, id string) (*account.Account, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE id = $1
	`, id)

	acc, err := scanAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("ACCOUNT_NOT_FOUND").
			With("id", id).
			Wrap(account.ErrNotFound)
	}
	if err != nil {
		return nil, unavailable("find account by id", err)
	}
	return acc, nil
}

// FindByUsername retrieves an account by username (case-insensitive).
func (r *AccountRepository) FindByUsername(ctx context.Context, username string) (*account.Account, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE username = LOWER($1)
	`, username)

	acc, err := scanAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("ACCOUNT_NOT_FOUND").
			With("username", username).
			Wrap(account.ErrNotFound)
	}
	if err != nil {
		return nil, unavailable("find account by username", err)
	}
	return acc, nil
}

// FindByDiscordID retrieves an account linked to a Discord user.
func (r *AccountRepository) FindByDiscordID(ctx context.Context, discordID string) (*account.Account, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE discord_id = $1
	`, discordID)

	acc, err := scanAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("ACCOUNT_NOT_FOUND").
			With("discord_id", discordID).
			Wrap(account.ErrNotFound)
	}
	if err != nil {
		return nil, unavailable("find account by discord id", err)
	}
	return acc, nil
}

// FindBySessionToken retrieves the account holding a non-expired session
// under the token. The jsonb key lookup narrows to the holding row; the
// expiry check happens here because the expiry lives inside the value.
func (r *AccountRepository) FindBySessionToken(ctx context.Context, token string) (*account.Account, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE sessions ? $1
	`, token)

	acc, err := scanAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("ACCOUNT_NOT_FOUND").
			Wrap(account.ErrNotFound)
	}
	if err != nil {
		return nil, unavailable("find account by session token", err)
	}

	if !acc.HasActiveSession(token, time.Now()) {
		return nil, oops.Code("ACCOUNT_NOT_FOUND").
			Wrap(account.ErrNotFound)
	}
	return acc, nil
}

// Save upserts the account, replacing the full record.
func (r *AccountRepository) Save(ctx context.Context, acc *account.Account) error {
	sessionsJSON, err := json.Marshal(acc.Sessions)
	if err != nil {
		return oops.Code("ACCOUNT_SAVE_FAILED").
			With("operation", "marshal sessions").
			Wrap(err)
	}
	rolesJSON, err := json.Marshal(acc.Roles)
	if err != nil {
		return oops.Code("ACCOUNT_SAVE_FAILED").
			With("operation", "marshal roles").
			Wrap(err)
	}
	achievementsJSON, err := json.Marshal(acc.Achievements)
	if err != nil {
		return oops.Code("ACCOUNT_SAVE_FAILED").
			With("operation", "marshal achievements").
			Wrap(err)
	}

	_, err = r.db.Exec(ctx, `
		INSERT INTO accounts (
			id, username, password_hash, sessions, verified, roles,
			discord_id, migrated_from, playtime_seconds, games,
			achievements, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO UPDATE SET
			username = EXCLUDED.username,
			password_hash = EXCLUDED.password_hash,
			sessions = EXCLUDED.sessions,
			verified = EXCLUDED.verified,
			roles = EXCLUDED.roles,
			discord_id = EXCLUDED.discord_id,
			migrated_from = EXCLUDED.migrated_from,
			playtime_seconds = EXCLUDED.playtime_seconds,
			games = EXCLUDED.games,
			achievements = EXCLUDED.achievements,
			updated_at = EXCLUDED.updated_at
	`,
		acc.ID.String(),
		acc.Username,
		acc.PasswordHash,
		sessionsJSON,
		acc.Verified,
		rolesJSON,
		acc.DiscordID,
		acc.MigratedFrom,
		int64(acc.Playtime/time.Second),
		acc.Games,
		achievementsJSON,
		acc.CreatedAt,
		acc.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return oops.Code("ACCOUNT_DUPLICATE_USERNAME").
				With("username", acc.Username).
				Wrap(account.ErrDuplicateUsername)
		}
		return unavailable("save account", err)
	}
	return nil
}

// scanAccount scans a single row into an Account.
// Callers are responsible for handling pgx.ErrNoRows.
func scanAccount(row pgx.Row) (*account.Account, error) {
	var (
		idStr            string
		acc              account.Account
		sessionsJSON     []byte
		rolesJSON        []byte
		achievementsJSON []byte
		playtimeSeconds  int64
	)

	err := row.Scan(
		&idStr,
		&acc.Username,
		&acc.PasswordHash,
		&sessionsJSON,
		&acc.Verified,
		&rolesJSON,
		&acc.DiscordID,
		&acc.MigratedFrom,
		&playtimeSeconds,
		&acc.Games,
		&achievementsJSON,
		&acc.CreatedAt,
		&acc.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	acc.ID, err = ulid.Parse(idStr)
	if err != nil {
		return nil, oops.Code("ACCOUNT_CORRUPT_ID").
			With("id", idStr).
			Wrap(err)
	}
	if err := json.Unmarshal(sessionsJSON, &acc.Sessions); err != nil {
		return nil, oops.Code("ACCOUNT_CORRUPT_SESSIONS").Wrap(err)
	}
	if acc.Sessions == nil {
		acc.Sessions = make(map[string]time.Time)
	}
	if err := json.Unmarshal(rolesJSON, &acc.Roles); err != nil {
		return nil, oops.Code("ACCOUNT_CORRUPT_ROLES").Wrap(err)
	}
	if err := json.Unmarshal(achievementsJSON, &acc.Achievements); err != nil {
		return nil, oops.Code("ACCOUNT_CORRUPT_ACHIEVEMENTS").Wrap(err)
	}
	acc.Playtime = time.Duration(playtimeSeconds) * time.Second

	return &acc, nil
}

// unavailable maps a backend failure to account.ErrStoreUnavailable,
// keeping the cause as context. The manager surfaces it as "try later".
func unavailable(operation string, err error) error {
	return oops.Code("ACCOUNT_STORE_UNAVAILABLE").
		With("operation", operation).
		With("cause", err.Error()).
		Wrap(account.ErrStoreUnavailable)
}
