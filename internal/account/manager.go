// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Emberlink Contributors

package account

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/samber/oops"
)

// Operation names used for rate-limit keying and metrics.
const (
	opRegister       = "register"
	opLogin          = "login"
	opLogout         = "logout"
	opRefresh        = "refresh"
	opMigrate        = "migrate"
	opChangePassword = "change_password"
)

// Manager orchestrates account operations: registration, login, logout,
// session refresh, legacy migration, and password changes. Every public
// operation returns a tagged Result; expected business conditions never
// surface as errors. No lock is held across a store round trip, so
// check-then-act races (duplicate registration, slight rate-limit
// over-admission) are possible and bounded by the store's uniqueness
// constraint.
type Manager struct {
	store     Store
	hasher    PasswordHasher
	legacy    PasswordHasher
	deriver   TokenDeriver
	validator  *Validator
	limiter    *RateLimiter
	logger     *slog.Logger
	sessionTTL time.Duration
	now        func() time.Time
}

// ManagerOption configures optional Manager behavior.
type ManagerOption func(*Manager)

// WithSessionTTL overrides the default session lifetime.
func WithSessionTTL(ttl time.Duration) ManagerOption {
	return func(m *Manager) {
		if ttl > 0 {
			m.sessionTTL = ttl
		}
	}
}

// NewManager creates a Manager. All dependencies are required except
// logger, which defaults to slog.Default().
func NewManager(store Store, hasher PasswordHasher, legacy PasswordHasher, deriver TokenDeriver, validator *Validator, limiter *RateLimiter, logger *slog.Logger, opts ...ManagerOption) (*Manager, error) {
	if store == nil {
		return nil, oops.Code("MANAGER_INVALID_DEPS").Errorf("account store is required")
	}
	if hasher == nil {
		return nil, oops.Code("MANAGER_INVALID_DEPS").Errorf("password hasher is required")
	}
	if legacy == nil {
		return nil, oops.Code("MANAGER_INVALID_DEPS").Errorf("legacy hasher is required")
	}
	if deriver == nil {
		return nil, oops.Code("MANAGER_INVALID_DEPS").Errorf("token deriver is required")
	}
	if validator == nil {
		return nil, oops.Code("MANAGER_INVALID_DEPS").Errorf("validator is required")
	}
	if limiter == nil {
		return nil, oops.Code("MANAGER_INVALID_DEPS").Errorf("rate limiter is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	m := &Manager{
		store:      store,
		hasher:     hasher,
		legacy:     legacy,
		deriver:    deriver,
		validator:  validator,
		limiter:    limiter,
		logger:     logger,
		sessionTTL: SessionTTL,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Register creates a new account. Existence checks run before policy
// checks so a taken name is reported before password strength.
func (m *Manager) Register(ctx context.Context, username, password string, id Identity) Result {
	res := m.register(ctx, username, password, id)
	recordOperation(opRegister, res.Kind)
	return res
}

func (m *Manager) register(ctx context.Context, username, password string, id Identity) Result {
	if !m.limiter.Allow(opRegister, id.Addr) {
		return Result{Kind: RateLimited}
	}

	name := Normalize(username)

	_, err := m.store.FindByUsername(ctx, name)
	switch {
	case err == nil:
		return Result{Kind: AlreadyRegistered}
	case !errors.Is(err, ErrNotFound):
		return failed(err)
	}

	// A legacy account with this name reserves it for its owner until
	// migrated; registering over it would shadow the migration source.
	_, err = m.store.FindLegacy(ctx, HashLegacyUsername(name))
	switch {
	case err == nil:
		return Result{Kind: InvalidUsername, Missing: []Requirement{RequirementUsernameReserved}}
	case !errors.Is(err, ErrNotFound):
		return failed(err)
	}

	if missing := m.validator.MissingPasswordRequirements(password, name); len(missing) > 0 {
		return Result{Kind: InvalidPassword, Missing: missing}
	}
	if missing := m.validator.MissingUsernameRequirements(name); len(missing) > 0 {
		return Result{Kind: InvalidUsername, Missing: missing}
	}

	hash, err := m.hasher.Hash(password)
	if err != nil {
		return failed(err)
	}

	acc, err := NewAccount(name, hash)
	if err != nil {
		return failed(err)
	}

	if err := m.store.Save(ctx, acc); err != nil {
		// The store's uniqueness constraint closes the check-then-act
		// window between FindByUsername and Save.
		if errors.Is(err, ErrDuplicateUsername) {
			return Result{Kind: AlreadyRegistered}
		}
		return failed(err)
	}

	m.logger.Info("account registered", "account_id", acc.ID.String(), "username", acc.Username)
	return success(acc)
}

// Login verifies credentials and issues (or refreshes) a session for the
// identity. Expired sessions are pruned before the new one is issued.
func (m *Manager) Login(ctx context.Context, username, password string, id Identity) Result {
	res := m.login(ctx, username, password, id)
	recordOperation(opLogin, res.Kind)
	return res
}

func (m *Manager) login(ctx context.Context, username, password string, id Identity) Result {
	if !m.limiter.Allow(opLogin, id.Addr) {
		return Result{Kind: RateLimited}
	}

	acc, err := m.store.FindByUsername(ctx, Normalize(username))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Result{Kind: NotRegistered}
		}
		return failed(err)
	}

	valid, err := m.hasher.Verify(password, acc.PasswordHash)
	if err != nil || !valid {
		// A malformed stored record verifies false, never crashes.
		return Result{Kind: WrongPassword}
	}

	now := m.now()
	acc.PruneSessions(now)
	acc.IssueSession(m.deriver.DeriveToken(id), now, m.sessionTTL)

	if m.hasher.NeedsUpgrade(acc.PasswordHash) {
		if newHash, hashErr := m.hasher.Hash(password); hashErr == nil {
			acc.PasswordHash = newHash
		}
	}

	if err := m.store.Save(ctx, acc); err != nil {
		return failed(err)
	}

	return success(acc)
}

// Logout removes the identity's session, or every session when all is
// true. Silently a no-op when the identity does not resolve.
func (m *Manager) Logout(ctx context.Context, id Identity, all bool) Result {
	res := m.logout(ctx, id, all)
	recordOperation(opLogout, res.Kind)
	return res
}

func (m *Manager) logout(ctx context.Context, id Identity, all bool) Result {
	token := m.deriver.DeriveToken(id)

	acc, err := m.store.FindBySessionToken(ctx, token)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return success(nil)
		}
		return failed(err)
	}

	if all {
		acc.Sessions = make(map[string]time.Time)
	} else {
		delete(acc.Sessions, token)
	}
	acc.UpdatedAt = m.now()

	if err := m.store.Save(ctx, acc); err != nil {
		return failed(err)
	}

	return success(acc)
}

// Refresh extends the identity's session if the account is currently
// resolvable by identity. Silently a no-op otherwise.
func (m *Manager) Refresh(ctx context.Context, id Identity) Result {
	res := m.refresh(ctx, id)
	recordOperation(opRefresh, res.Kind)
	return res
}

func (m *Manager) refresh(ctx context.Context, id Identity) Result {
	token := m.deriver.DeriveToken(id)

	acc, err := m.store.FindBySessionToken(ctx, token)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return success(nil)
		}
		return failed(err)
	}

	now := m.now()
	acc.PruneSessions(now)
	acc.IssueSession(token, now, m.sessionTTL)

	if err := m.store.Save(ctx, acc); err != nil {
		return failed(err)
	}

	return success(acc)
}

// Migrate converts a legacy account into a durable one, carrying over
// stats and the verified flag, and deletes the legacy record. The
// create-then-delete pair is not atomic from this component's view: a
// crash between the two steps leaves both records present. Migrate is
// re-invocable; the MigratedFrom marker lets a retry recognize the
// half-finished state and complete the delete instead of reporting
// AlreadyRegistered.
func (m *Manager) Migrate(ctx context.Context, oldUsername, newUsername, password string, id Identity) Result {
	res := m.migrate(ctx, oldUsername, newUsername, password, id)
	recordOperation(opMigrate, res.Kind)
	return res
}

func (m *Manager) migrate(ctx context.Context, oldUsername, newUsername, password string, id Identity) Result {
	if !m.limiter.Allow(opMigrate, id.Addr) {
		return Result{Kind: RateLimited}
	}

	oldHash := HashLegacyUsername(oldUsername)

	legacy, err := m.store.FindLegacy(ctx, oldHash)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Result{Kind: NotRegistered}
		}
		return failed(err)
	}

	valid, err := m.legacy.Verify(password, legacy.PasswordHash)
	if err != nil || !valid {
		return Result{Kind: WrongPassword}
	}

	name := Normalize(newUsername)

	existing, err := m.store.FindByUsername(ctx, name)
	switch {
	case err == nil:
		if existing.MigratedFrom == oldHash {
			// Retry of a migration that crashed between create and
			// delete: the account exists, only the delete remains.
			if err := m.store.DeleteLegacy(ctx, oldHash); err != nil {
				return failed(err)
			}
			return success(existing)
		}
		return Result{Kind: AlreadyRegistered}
	case !errors.Is(err, ErrNotFound):
		return failed(err)
	}

	if missing := m.validator.MissingUsernameRequirements(name); len(missing) > 0 {
		return Result{Kind: InvalidUsername, Missing: missing}
	}

	newHash, err := m.hasher.Hash(password)
	if err != nil {
		return failed(err)
	}

	acc, err := NewAccount(name, newHash)
	if err != nil {
		return failed(err)
	}
	acc.MigratedFrom = oldHash
	acc.Playtime = legacy.Playtime
	acc.Games = legacy.Games
	acc.Achievements = legacy.Achievements
	if legacy.Verified {
		acc.Verified = true
		acc.GrantRole(RoleVerified)
	}
	acc.IssueSession(m.deriver.DeriveToken(id), m.now(), m.sessionTTL)

	if err := m.store.Save(ctx, acc); err != nil {
		if errors.Is(err, ErrDuplicateUsername) {
			return Result{Kind: AlreadyRegistered}
		}
		return failed(err)
	}

	if err := m.store.DeleteLegacy(ctx, oldHash); err != nil {
		return failed(err)
	}

	m.logger.Info("legacy account migrated", "account_id", acc.ID.String(), "username", acc.Username)
	return success(acc)
}

// ChangePassword re-hashes the password for the account resolved by the
// identity's active session.
func (m *Manager) ChangePassword(ctx context.Context, oldPassword, newPassword string, id Identity) Result {
	res := m.changePassword(ctx, oldPassword, newPassword, id)
	recordOperation(opChangePassword, res.Kind)
	return res
}

func (m *Manager) changePassword(ctx context.Context, oldPassword, newPassword string, id Identity) Result {
	if !m.limiter.Allow(opChangePassword, id.Addr) {
		return Result{Kind: RateLimited}
	}

	acc, err := m.store.FindBySessionToken(ctx, m.deriver.DeriveToken(id))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Result{Kind: NotLogged}
		}
		return failed(err)
	}

	valid, err := m.hasher.Verify(oldPassword, acc.PasswordHash)
	if err != nil || !valid {
		return Result{Kind: WrongPassword}
	}

	if missing := m.validator.MissingPasswordRequirements(newPassword, acc.Username); len(missing) > 0 {
		return Result{Kind: InvalidPassword, Missing: missing}
	}

	newHash, err := m.hasher.Hash(newPassword)
	if err != nil {
		return failed(err)
	}
	acc.PasswordHash = newHash
	acc.UpdatedAt = m.now()

	if err := m.store.Save(ctx, acc); err != nil {
		return failed(err)
	}

	return success(acc)
}
