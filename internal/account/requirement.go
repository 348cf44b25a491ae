// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Emberlink Contributors

package account

import (
	"regexp"
	"strings"

	"github.com/gobwas/glob"
)

// Requirement names a single policy predicate over a username or
// password. Validators return every unmet requirement so a player can
// fix all of them in one pass.
type Requirement string

// Username requirements.
const (
	RequirementUsernameTooShort Requirement = "username_too_short"
	RequirementUsernameTooLong  Requirement = "username_too_long"
	RequirementUsernameCharset  Requirement = "username_charset"
	RequirementUsernameReserved Requirement = "username_reserved"
)

// Password requirements.
const (
	RequirementPasswordTooShort Requirement = "password_too_short"
	RequirementPasswordTooLong  Requirement = "password_too_long"
	RequirementPasswordLetter   Requirement = "password_needs_letter"
	RequirementPasswordDigit    Requirement = "password_needs_digit"
	RequirementPasswordCommon   Requirement = "password_too_common"
	RequirementPasswordUsername Requirement = "password_equals_username"
)

// Username and password policy bounds.
const (
	MinUsernameLength = 3
	MaxUsernameLength = 16
	MinPasswordLength = 8
	MaxPasswordLength = 72
)

// usernameRegex matches usernames that start with a letter and contain
// only letters, numbers, and underscores.
var usernameRegex = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_]*$`)

// DefaultReservedPatterns are glob patterns for names players may not
// register. Matched against the normalized username.
var DefaultReservedPatterns = []string{
	"admin*",
	"mod*",
	"staff*",
	"server",
	"console",
	"owner",
}

// commonPasswords is a short denylist of passwords seen constantly in
// credential dumps. Matched case-insensitively.
var commonPasswords = map[string]struct{}{
	"password":  {},
	"password1": {},
	"12345678":  {},
	"123456789": {},
	"qwerty123": {},
	"iloveyou1": {},
	"minecraft": {},
}

// Validator checks usernames and passwords against registration policy.
type Validator struct {
	reserved []glob.Glob
}

// NewValidator compiles the reserved-name patterns. Nil patterns fall
// back to DefaultReservedPatterns. Invalid patterns are skipped.
func NewValidator(reservedPatterns []string) *Validator {
	if reservedPatterns == nil {
		reservedPatterns = DefaultReservedPatterns
	}
	compiled := make([]glob.Glob, 0, len(reservedPatterns))
	for _, p := range reservedPatterns {
		g, err := glob.Compile(strings.ToLower(p))
		if err != nil {
			continue
		}
		compiled = append(compiled, g)
	}
	return &Validator{reserved: compiled}
}

// MissingUsernameRequirements returns every unmet username requirement.
// The username is normalized before checking. Empty result means fully
// compliant.
func (v *Validator) MissingUsernameRequirements(username string) []Requirement {
	name := Normalize(username)

	var missing []Requirement
	if len(name) < MinUsernameLength {
		missing = append(missing, RequirementUsernameTooShort)
	}
	if len(name) > MaxUsernameLength {
		missing = append(missing, RequirementUsernameTooLong)
	}
	if name != "" && !usernameRegex.MatchString(name) {
		missing = append(missing, RequirementUsernameCharset)
	}
	for _, g := range v.reserved {
		if g.Match(name) {
			missing = append(missing, RequirementUsernameReserved)
			break
		}
	}
	return missing
}

// MissingPasswordRequirements returns every unmet password requirement.
// The username is consulted only for the password-equals-username check
// and may be empty when not applicable.
func (v *Validator) MissingPasswordRequirements(password, username string) []Requirement {
	var missing []Requirement
	if len(password) < MinPasswordLength {
		missing = append(missing, RequirementPasswordTooShort)
	}
	if len(password) > MaxPasswordLength {
		missing = append(missing, RequirementPasswordTooLong)
	}
	if !strings.ContainsFunc(password, isLetter) {
		missing = append(missing, RequirementPasswordLetter)
	}
	if !strings.ContainsAny(password, "0123456789") {
		missing = append(missing, RequirementPasswordDigit)
	}
	if _, ok := commonPasswords[strings.ToLower(password)]; ok {
		missing = append(missing, RequirementPasswordCommon)
	}
	if username != "" && strings.EqualFold(password, Normalize(username)) {
		missing = append(missing, RequirementPasswordUsername)
	}
	return missing
}

func isLetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}
