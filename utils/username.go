package utils

import (
	"errors"
	"regexp"
)

var usernamePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]{1,28}[a-z0-9]$`)

var (
	ErrUsernameLength  = errors.New("username must be between 3 and 30 characters")
	ErrUsernameCharset = errors.New("username may only contain lowercase letters, numbers and hyphens, and cannot start or end with a hyphen")
)

// ValidateUsername checks a public username: 3-30 characters of [a-z0-9-],
// not starting or ending with a hyphen.
func ValidateUsername(username string) error {
	if len(username) < 3 || len(username) > 30 {
		return ErrUsernameLength
	}
	if !usernamePattern.MatchString(username) {
		return ErrUsernameCharset
	}
	return nil
}
