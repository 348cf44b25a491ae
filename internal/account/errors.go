// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Emberlink Contributors

package account

import "errors"

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicateUsername is returned by Save when the store's uniqueness
// constraint rejects the username.
var ErrDuplicateUsername = errors.New("duplicate username")

// ErrStoreUnavailable wraps transient store failures. Callers surface it
// as "try again later"; the core never retries silently.
var ErrStoreUnavailable = errors.New("store unavailable")
