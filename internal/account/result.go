// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Emberlink Contributors

package account

// ResultKind tags the outcome of a manager operation. Business outcomes
// never cross the manager boundary as errors; callers branch on the
// kind exhaustively.
type ResultKind uint8

const (
	// Success means the operation completed.
	Success ResultKind = iota

	// AlreadyRegistered means the username is taken.
	AlreadyRegistered

	// NotRegistered means no account (or legacy account) exists for the
	// given username.
	NotRegistered

	// NotLogged means the identity does not resolve to an account with
	// an active session.
	NotLogged

	// WrongPassword means credential verification failed.
	WrongPassword

	// InvalidPassword means the password fails policy; Missing lists
	// every unmet requirement.
	InvalidPassword

	// InvalidUsername means the username fails policy; Missing lists
	// every unmet requirement.
	InvalidUsername

	// RateLimited means the caller exhausted its window budget.
	RateLimited

	// Failed means a transient infrastructure failure; Err carries the
	// cause. Surface as "try again later".
	Failed
)

func (k ResultKind) String() string {
	switch k {
	case Success:
		return "success"
	case AlreadyRegistered:
		return "already_registered"
	case NotRegistered:
		return "not_registered"
	case NotLogged:
		return "not_logged"
	case WrongPassword:
		return "wrong_password"
	case InvalidPassword:
		return "invalid_password"
	case InvalidUsername:
		return "invalid_username"
	case RateLimited:
		return "rate_limited"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Result is the tagged outcome of a manager operation.
type Result struct {
	Kind ResultKind

	// Missing lists unmet requirements for InvalidPassword and
	// InvalidUsername results.
	Missing []Requirement

	// Account is the affected account on Success, when one exists.
	Account *Account

	// Err is the underlying cause for Failed results.
	Err error
}

// OK reports whether the result is Success.
func (r Result) OK() bool {
	return r.Kind == Success
}

func success(acc *Account) Result {
	return Result{Kind: Success, Account: acc}
}

func failed(err error) Result {
	return Result{Kind: Failed, Err: err}
}
