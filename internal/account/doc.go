// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Emberlink Contributors

// Package account provides the durable player identity core for
// Emberlink: registration, login, session management, legacy migration,
// and password changes.
//
// # Domain Types
//
// Account should be created through NewAccount, which normalizes the
// username and validates required fields. Direct struct initialization
// bypasses validation and may create invalid state. Repository
// implementations receive pre-validated records.
//
// # Manager
//
// Manager coordinates the operations and returns a tagged Result per
// call. Expected business conditions (wrong password, taken username,
// rate limit) are result kinds, never errors; only transient
// infrastructure failures carry an error, inside the Failed kind.
//
// # Hashing
//
// Argon2idHasher stores live passwords. LegacyHasher only verifies
// pre-migration PBKDF2 records and is never used for new accounts.
// Session tokens use a separate cheap HMAC derivation (HMACTokenDeriver)
// so the raw identity never reaches the store.
package account
