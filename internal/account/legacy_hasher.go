// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Emberlink Contributors

package account

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/samber/oops"
	"golang.org/x/crypto/pbkdf2"
)

// Legacy hash parameters. These match the pre-migration credential store
// and are frozen: new accounts always use argon2id.
const (
	legacyIterations = 64000
	legacySaltLen    = 16
	legacyKeyLen     = 32
)

// LegacyHasher verifies pre-migration password records hashed with
// iterated HMAC-SHA256 (PBKDF2). It is never used for live accounts;
// Migrate re-hashes the password with argon2id on success.
type LegacyHasher struct{}

// NewLegacyHasher creates a LegacyHasher.
func NewLegacyHasher() *LegacyHasher {
	return &LegacyHasher{}
}

// Hash produces a PBKDF2-SHA256 hash. Exists for seeding legacy fixtures
// in tests and import tooling; production registration never calls it.
func (h *LegacyHasher) Hash(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}

	salt := make([]byte, legacySaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", oops.Code("ACCOUNT_SALT_FAILED").Wrap(err)
	}

	digest := pbkdf2.Key([]byte(password), salt, legacyIterations, legacyKeyLen, sha256.New)

	encoded := fmt.Sprintf(
		"$pbkdf2-sha256$i=%d$%s$%s",
		legacyIterations,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(digest),
	)

	return encoded, nil
}

// Verify checks the password against a stored legacy record.
func (h *LegacyHasher) Verify(password, encodedHash string) (bool, error) {
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 5 {
		return false, oops.Code("ACCOUNT_INVALID_HASH").Errorf("invalid legacy hash format")
	}

	if parts[1] != "pbkdf2-sha256" {
		return false, oops.Code("ACCOUNT_INVALID_HASH").Errorf("unsupported legacy hash algorithm: %s", parts[1])
	}

	var iterations int
	if _, err := fmt.Sscanf(parts[2], "i=%d", &iterations); err != nil {
		return false, oops.Code("ACCOUNT_INVALID_HASH").Wrap(err)
	}
	if iterations <= 0 {
		return false, oops.Code("ACCOUNT_INVALID_HASH").Errorf("invalid iteration count: %d", iterations)
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[3])
	if err != nil {
		return false, oops.Code("ACCOUNT_INVALID_HASH").Wrap(err)
	}

	expected, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false, oops.Code("ACCOUNT_INVALID_HASH").Wrap(err)
	}
	if len(expected) == 0 {
		return false, oops.Code("ACCOUNT_INVALID_HASH").Errorf("empty legacy digest")
	}

	computed := pbkdf2.Key([]byte(password), salt, iterations, len(expected), sha256.New)

	if subtle.ConstantTimeCompare(computed, expected) == 1 {
		return true, nil
	}

	return false, nil
}

// NeedsUpgrade always returns true: every legacy record must be re-hashed
// with argon2id when the owner migrates.
func (h *LegacyHasher) NeedsUpgrade(string) bool {
	return true
}
