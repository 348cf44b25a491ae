// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Emberlink Contributors

package account_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emberlink/emberlink/internal/account"
)

func TestLegacyHasher_HashAndVerify(t *testing.T) {
	hasher := account.NewLegacyHasher()

	hash, err := hasher.Hash("oldpassword1")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(hash, "$pbkdf2-sha256$i=64000$"), "unexpected format: %q", hash)

	valid, err := hasher.Verify("oldpassword1", hash)
	require.NoError(t, err)
	assert.True(t, valid)

	valid, err = hasher.Verify("notit", hash)
	require.NoError(t, err)
	assert.False(t, valid)
}

func TestLegacyHasher_EmptyPassword(t *testing.T) {
	_, err := account.NewLegacyHasher().Hash("")
	assert.ErrorIs(t, err, account.ErrEmptyPassword)
}

func TestLegacyHasher_VerifyMalformedHash(t *testing.T) {
	hasher := account.NewLegacyHasher()

	tests := []struct {
		name string
		hash string
	}{
		{"empty", ""},
		{"argon2 record", "$argon2id$v=19$m=1024,t=1,p=1$c2FsdA$aGFzaA"},
		{"bad iterations", "$pbkdf2-sha256$i=-5$c2FsdA$aGFzaA"},
		{"bad salt", "$pbkdf2-sha256$i=64000$!!!$aGFzaA"},
		{"truncated", "$pbkdf2-sha256$i=64000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			valid, err := hasher.Verify("anything", tt.hash)
			assert.False(t, valid)
			assert.Error(t, err)
		})
	}
}

func TestLegacyHasher_AlwaysNeedsUpgrade(t *testing.T) {
	hasher := account.NewLegacyHasher()

	hash, err := hasher.Hash("whatever1")
	require.NoError(t, err)

	assert.True(t, hasher.NeedsUpgrade(hash))
}
