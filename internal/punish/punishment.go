// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Emberlink Contributors

// Package punish manages moderation punishment records and their
// lifecycle events.
package punish

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Type identifies the kind of punishment.
type Type string

const (
	TypeBan  Type = "ban"
	TypeMute Type = "mute"
	TypeKick Type = "kick"
	TypeWarn Type = "warn"
)

// Pardon records the single allowed mutation of a punishment.
type Pardon struct {
	At     time.Time
	Reason string
	Author string
}

// Punishment is a moderation record targeting a network address or a
// device UUID. Created once; mutated exactly once by a pardon.
type Punishment struct {
	ID       ulid.ULID
	Target   string // network address or device uuid
	Reason   string
	Type     Type
	Duration *time.Duration // nil for permanent
	Pardon   *Pardon
	Author   string
	CreatedAt time.Time
}

// NewPunishment creates a validated Punishment.
func NewPunishment(target, reason string, kind Type, duration *time.Duration, author string) (*Punishment, error) {
	if target == "" {
		return nil, oops.Code("PUNISH_INVALID_TARGET").Errorf("target cannot be empty")
	}
	switch kind {
	case TypeBan, TypeMute, TypeKick, TypeWarn:
	default:
		return nil, oops.Code("PUNISH_INVALID_TYPE").Errorf("unknown punishment type: %s", kind)
	}
	if duration != nil && *duration <= 0 {
		return nil, oops.Code("PUNISH_INVALID_DURATION").Errorf("duration must be positive when set")
	}
	return &Punishment{
		ID:        ulid.Make(),
		Target:    target,
		Reason:    reason,
		Type:      kind,
		Duration:  duration,
		Author:    author,
		CreatedAt: time.Now(),
	}, nil
}

// IsPardoned reports whether the punishment has been pardoned.
func (p *Punishment) IsPardoned() bool {
	return p.Pardon != nil
}

// ExpiresAt returns the expiry instant, or false for permanent
// punishments.
func (p *Punishment) ExpiresAt() (time.Time, bool) {
	if p.Duration == nil {
		return time.Time{}, false
	}
	return p.CreatedAt.Add(*p.Duration), true
}

// ActiveAt reports whether the punishment is in force at the given
// instant: not pardoned and not expired.
func (p *Punishment) ActiveAt(now time.Time) bool {
	if p.IsPardoned() {
		return false
	}
	if expiry, ok := p.ExpiresAt(); ok && !expiry.After(now) {
		return false
	}
	return true
}

// Store manages punishment persistence.
type Store interface {
	// Save upserts a punishment record.
	Save(ctx context.Context, p *Punishment) error

	// FindByID retrieves a punishment by ID.
	FindByID(ctx context.Context, id string) (*Punishment, error)

	// FindActiveByTarget retrieves punishments in force for a target.
	FindActiveByTarget(ctx context.Context, target string) ([]*Punishment, error)
}
