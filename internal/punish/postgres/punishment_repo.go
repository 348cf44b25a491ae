// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Emberlink Contributors

// Package postgres implements punish.Store using PostgreSQL.
package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/emberlink/emberlink/internal/punish"
)

// DB is the subset of pgxpool.Pool used by the repository.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const punishmentColumns = `id, target, reason, type, duration_seconds,
	       pardon_at, pardon_reason, pardon_author, author, created_at`

// PunishmentRepository implements punish.Store backed by PostgreSQL.
type PunishmentRepository struct {
	db DB
}

// NewPunishmentRepository creates a PunishmentRepository.
func NewPunishmentRepository(db DB) *PunishmentRepository {
	return &PunishmentRepository{db: db}
}

// Save upserts a punishment record.
func (r *PunishmentRepository) Save(ctx context.Context, p *punish.Punishment) error {
	var durationSeconds *int64
	if p.Duration != nil {
		s := int64(*p.Duration / time.Second)
		durationSeconds = &s
	}

	var pardonAt *time.Time
	var pardonReason, pardonAuthor *string
	if p.Pardon != nil {
		pardonAt = &p.Pardon.At
		pardonReason = &p.Pardon.Reason
		pardonAuthor = &p.Pardon.Author
	}

	_, err := r.db.Exec(ctx, `
		INSERT INTO punishments (
			id, target, reason, type, duration_seconds,
			pardon_at, pardon_reason, pardon_author, author, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			pardon_at = EXCLUDED.pardon_at,
			pardon_reason = EXCLUDED.pardon_reason,
			pardon_author = EXCLUDED.pardon_author
	`,
		p.ID.String(),
		p.Target,
		p.Reason,
		string(p.Type),
		durationSeconds,
		pardonAt,
		pardonReason,
		pardonAuthor,
		p.Author,
		p.CreatedAt,
	)
	if err != nil {
		return oops.Code("PUNISH_SAVE_FAILED").
			With("punishment_id", p.ID.String()).
			Wrap(err)
	}
	return nil
}

// FindByID retrieves a punishment by ID.
func (r *PunishmentRepository) FindByID(ctx context.Context, id string) (*punish.Punishment, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+punishmentColumns+`
		FROM punishments
		WHERE id = $1
	`, id)

	p, err := scanPunishment(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("PUNISH_NOT_FOUND").
			With("punishment_id", id).
			Wrap(punish.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("PUNISH_GET_FAILED").
			With("punishment_id", id).
			Wrap(err)
	}
	return p, nil
}

// FindActiveByTarget retrieves punishments in force for a target.
// Pardoned records are filtered in SQL; duration expiry is checked here
// since it derives from created_at + duration.
func (r *PunishmentRepository) FindActiveByTarget(ctx context.Context, target string) ([]*punish.Punishment, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+punishmentColumns+`
		FROM punishments
		WHERE target = $1 AND pardon_at IS NULL
		ORDER BY created_at DESC
	`, target)
	if err != nil {
		return nil, oops.Code("PUNISH_QUERY_FAILED").
			With("target", target).
			Wrap(err)
	}
	defer rows.Close()

	now := time.Now()
	var active []*punish.Punishment
	for rows.Next() {
		p, err := scanPunishment(rows)
		if err != nil {
			return nil, oops.Code("PUNISH_QUERY_FAILED").
				With("operation", "scan punishment row").
				Wrap(err)
		}
		if p.ActiveAt(now) {
			active = append(active, p)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code("PUNISH_QUERY_FAILED").
			With("operation", "iterate punishments").
			Wrap(err)
	}
	return active, nil
}

// scanPunishment scans a single row into a Punishment.
// Callers are responsible for handling pgx.ErrNoRows.
func scanPunishment(row pgx.Row) (*punish.Punishment, error) {
	var (
		idStr           string
		p               punish.Punishment
		typeStr         string
		durationSeconds *int64
		pardonAt        *time.Time
		pardonReason    *string
		pardonAuthor    *string
	)

	err := row.Scan(
		&idStr,
		&p.Target,
		&p.Reason,
		&typeStr,
		&durationSeconds,
		&pardonAt,
		&pardonReason,
		&pardonAuthor,
		&p.Author,
		&p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	p.ID, err = ulid.Parse(idStr)
	if err != nil {
		return nil, oops.Code("PUNISH_CORRUPT_ID").
			With("id", idStr).
			Wrap(err)
	}
	p.Type = punish.Type(typeStr)
	if durationSeconds != nil {
		d := time.Duration(*durationSeconds) * time.Second
		p.Duration = &d
	}
	if pardonAt != nil {
		pardon := punish.Pardon{At: *pardonAt}
		if pardonReason != nil {
			pardon.Reason = *pardonReason
		}
		if pardonAuthor != nil {
			pardon.Author = *pardonAuthor
		}
		p.Pardon = &pardon
	}

	return &p, nil
}
