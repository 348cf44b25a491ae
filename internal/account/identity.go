// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Emberlink Contributors

package account

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// Identity is the caller-supplied triple identifying an in-game
// connection attempt. DeviceID and SessionSecret come from the game
// client's handshake; Addr is the remote network address used for
// rate-limit keying.
type Identity struct {
	DeviceID      string
	SessionSecret string
	Addr          string
}

// TokenDeriver derives session tokens from identities.
type TokenDeriver interface {
	// DeriveToken produces the session token for an identity.
	// Derivation is deterministic: the same identity always yields the
	// same token, so a re-login refreshes the existing session entry
	// instead of creating a duplicate.
	DeriveToken(id Identity) string
}

// HMACTokenDeriver derives session tokens with HMAC-SHA256 over the
// device and session-secret pair, keyed with a server-side pepper. The
// raw identity never appears in the store; the derivation is cheap by
// design since the token is not a guessable secret in the password
// sense.
type HMACTokenDeriver struct {
	pepper []byte
}

// NewHMACTokenDeriver creates a deriver keyed with pepper.
func NewHMACTokenDeriver(pepper string) *HMACTokenDeriver {
	return &HMACTokenDeriver{pepper: []byte(pepper)}
}

// DeriveToken implements TokenDeriver.
func (d *HMACTokenDeriver) DeriveToken(id Identity) string {
	mac := hmac.New(sha256.New, d.pepper)
	mac.Write([]byte(id.DeviceID))
	mac.Write([]byte{0})
	mac.Write([]byte(id.SessionSecret))
	return hex.EncodeToString(mac.Sum(nil))
}
