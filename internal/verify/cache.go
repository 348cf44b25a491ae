// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Emberlink Contributors

package verify

import (
	"sync"
	"time"
)

// CodeTTL is how long a pending verification code stays valid.
const CodeTTL = 10 * time.Minute

// pending is a cached verification code awaiting its response.
type pending struct {
	code      int
	expiresAt time.Time
}

// CodeCache holds pending verification codes keyed by account id.
// Eviction is passive: expiry is checked on read, and Put over an
// expired entry replaces it. Safe for concurrent use.
type CodeCache struct {
	mu    sync.Mutex
	codes map[string]pending
	ttl   time.Duration
	now   func() time.Time
}

// NewCodeCache creates a cache with the given TTL. A zero ttl falls back
// to CodeTTL; a nil clock falls back to time.Now.
func NewCodeCache(ttl time.Duration, clock func() time.Time) *CodeCache {
	if ttl <= 0 {
		ttl = CodeTTL
	}
	if clock == nil {
		clock = time.Now
	}
	return &CodeCache{
		codes: make(map[string]pending),
		ttl:   ttl,
		now:   clock,
	}
}

// Get returns the pending code for an account, or false if none is
// pending. An expired entry is removed and reported absent.
func (c *CodeCache) Get(accountID string) (int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	p, ok := c.codes[accountID]
	if !ok {
		return 0, false
	}
	if !p.expiresAt.After(c.now()) {
		delete(c.codes, accountID)
		return 0, false
	}
	return p.code, true
}

// Put stores a code for an account, replacing any existing entry.
func (c *CodeCache) Put(accountID string, code int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.codes[accountID] = pending{code: code, expiresAt: c.now().Add(c.ttl)}
}

// Consume atomically removes the pending entry if its code matches and
// has not expired. Returns true exactly once per stored code; late or
// duplicate attempts return false.
func (c *CodeCache) Consume(accountID string, code int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	p, ok := c.codes[accountID]
	if !ok {
		return false
	}
	if !p.expiresAt.After(c.now()) {
		delete(c.codes, accountID)
		return false
	}
	if p.code != code {
		return false
	}
	delete(c.codes, accountID)
	return true
}
