// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Emberlink Contributors

package account

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// SessionTTL is how long a session stays valid after (re-)issue.
const SessionTTL = 7 * 24 * time.Hour

// Role tags attached to an account.
const (
	RoleVerified = "VERIFIED"
)

// Account is a durable player identity.
type Account struct {
	ID           ulid.ULID
	Username     string // normalized: trimmed, lowercased
	PasswordHash string

	// Sessions maps derived session token to expiry. One entry per
	// originating identity; entries at or past their expiry are invalid
	// and pruned before use.
	Sessions map[string]time.Time

	Verified  bool
	Roles     []string
	DiscordID *string

	// MigratedFrom holds the legacy username hash this account was
	// migrated from, empty for natively registered accounts. Used as the
	// idempotency marker for re-invoked migrations.
	MigratedFrom string

	// Accumulated stats, mutated by gameplay collaborators.
	Playtime     time.Duration
	Games        int
	Achievements []string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Normalize canonicalizes a username: whitespace trimmed, lowercased.
// Idempotent: Normalize(Normalize(u)) == Normalize(u).
func Normalize(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

// HashLegacyUsername produces the one-way key under which a legacy
// account is stored. The plaintext old username never touches the store.
func HashLegacyUsername(username string) string {
	sum := sha256.Sum256([]byte(Normalize(username)))
	return hex.EncodeToString(sum[:])
}

// NewAccount creates a validated Account. The username is normalized;
// the password hash must already be encoded by a PasswordHasher.
func NewAccount(username, passwordHash string) (*Account, error) {
	normalized := Normalize(username)
	if normalized == "" {
		return nil, oops.Code("ACCOUNT_INVALID_USERNAME").Errorf("username cannot be empty")
	}
	if passwordHash == "" {
		return nil, oops.Code("ACCOUNT_INVALID_HASH").Errorf("password hash cannot be empty")
	}

	now := time.Now()
	return &Account{
		ID:           ulid.Make(),
		Username:     normalized,
		PasswordHash: passwordHash,
		Sessions:     make(map[string]time.Time),
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// HasRole reports whether the account carries the given role tag.
func (a *Account) HasRole(role string) bool {
	for _, r := range a.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// GrantRole adds a role tag if not already present.
func (a *Account) GrantRole(role string) {
	if a.HasRole(role) {
		return
	}
	a.Roles = append(a.Roles, role)
	a.UpdatedAt = time.Now()
}

// PruneSessions removes entries that are expired at the given instant.
func (a *Account) PruneSessions(now time.Time) {
	for token, expiry := range a.Sessions {
		if !expiry.After(now) {
			delete(a.Sessions, token)
		}
	}
}

// IssueSession upserts a session under the token, valid for ttl from now.
// Re-issuing under an existing token extends it (refresh semantics).
func (a *Account) IssueSession(token string, now time.Time, ttl time.Duration) {
	if a.Sessions == nil {
		a.Sessions = make(map[string]time.Time)
	}
	a.Sessions[token] = now.Add(ttl)
	a.UpdatedAt = now
}

// HasActiveSession reports whether the token maps to a non-expired entry.
func (a *Account) HasActiveSession(token string, now time.Time) bool {
	expiry, ok := a.Sessions[token]
	return ok && expiry.After(now)
}

// LegacyAccount is a read-only migration source. It is keyed by the
// one-way hash of its normalized old username and deleted once migrated.
type LegacyAccount struct {
	UsernameHash string
	PasswordHash string // legacy pbkdf2 format, verify-only
	Verified     bool
	Playtime     time.Duration
	Games        int
	Achievements []string
}
