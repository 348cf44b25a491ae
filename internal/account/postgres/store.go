// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Emberlink Contributors

package postgres

// Store combines the account and legacy repositories into a single
// account.Store implementation.
type Store struct {
	*AccountRepository
	*LegacyRepository
}

// NewStore creates a Store over the given database handle.
func NewStore(db DB) *Store {
	return &Store{
		AccountRepository: NewAccountRepository(db),
		LegacyRepository:  NewLegacyRepository(db),
	}
}
