// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Emberlink Contributors

package account_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emberlink/emberlink/internal/account"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Alice", "alice"},
		{"  Alice  ", "alice"},
		{"ALICE", "alice"},
		{"alice", "alice"},
		{"", ""},
		{"  ", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, account.Normalize(tt.in), "Normalize(%q)", tt.in)
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	for _, in := range []string{"Alice", "  BOB  ", "cHaRlIe", ""} {
		once := account.Normalize(in)
		assert.Equal(t, once, account.Normalize(once))
	}
}

func TestHashLegacyUsername(t *testing.T) {
	// Case and whitespace variants of the same name hash identically.
	assert.Equal(t, account.HashLegacyUsername("Alice"), account.HashLegacyUsername(" alice "))
	assert.NotEqual(t, account.HashLegacyUsername("alice"), account.HashLegacyUsername("bob"))
	assert.Len(t, account.HashLegacyUsername("alice"), 64)
}

func TestNewAccount(t *testing.T) {
	acc, err := account.NewAccount("  Alice  ", "$argon2id$hash")
	require.NoError(t, err)

	assert.Equal(t, "alice", acc.Username)
	assert.Equal(t, "$argon2id$hash", acc.PasswordHash)
	assert.NotZero(t, acc.ID)
	assert.NotNil(t, acc.Sessions)
	assert.False(t, acc.Verified)
}

func TestNewAccount_Invalid(t *testing.T) {
	_, err := account.NewAccount("  ", "$argon2id$hash")
	require.Error(t, err)

	_, err = account.NewAccount("alice", "")
	require.Error(t, err)
}

func TestAccount_Roles(t *testing.T) {
	acc, err := account.NewAccount("alice", "hash")
	require.NoError(t, err)

	assert.False(t, acc.HasRole(account.RoleVerified))

	acc.GrantRole(account.RoleVerified)
	assert.True(t, acc.HasRole(account.RoleVerified))

	// Granting twice does not duplicate the tag.
	acc.GrantRole(account.RoleVerified)
	assert.Len(t, acc.Roles, 1)
}

func TestAccount_SessionLifecycle(t *testing.T) {
	acc, err := account.NewAccount("alice", "hash")
	require.NoError(t, err)

	now := time.Now()
	acc.IssueSession("token-a", now, time.Hour)

	assert.True(t, acc.HasActiveSession("token-a", now))
	assert.True(t, acc.HasActiveSession("token-a", now.Add(59*time.Minute)))
	assert.False(t, acc.HasActiveSession("token-a", now.Add(time.Hour)), "expiry instant itself is invalid")
	assert.False(t, acc.HasActiveSession("token-b", now))
}

func TestAccount_IssueSessionRefreshes(t *testing.T) {
	acc, err := account.NewAccount("alice", "hash")
	require.NoError(t, err)

	now := time.Now()
	acc.IssueSession("token-a", now, time.Hour)
	acc.IssueSession("token-a", now.Add(30*time.Minute), time.Hour)

	assert.Len(t, acc.Sessions, 1, "re-issue must overwrite, not duplicate")
	assert.True(t, acc.HasActiveSession("token-a", now.Add(80*time.Minute)))
}

func TestAccount_PruneSessions(t *testing.T) {
	acc, err := account.NewAccount("alice", "hash")
	require.NoError(t, err)

	now := time.Now()
	acc.IssueSession("live", now, time.Hour)
	acc.IssueSession("dead", now, time.Minute)

	acc.PruneSessions(now.Add(10 * time.Minute))

	assert.Len(t, acc.Sessions, 1)
	assert.True(t, acc.HasActiveSession("live", now.Add(10*time.Minute)))
}

func TestAccount_IssueSessionNilMap(t *testing.T) {
	// Accounts hydrated from the store may carry a nil session map.
	acc := &account.Account{}
	acc.IssueSession("token", time.Now(), time.Hour)

	assert.True(t, acc.HasActiveSession("token", time.Now()))
}
