package domain

import (
	"fmt"
	"strings"
	"unicode"
)

const (
	minPasswordLength = 12
	maxPasswordLength = 128
)

// weakFragments are substrings that disqualify a password outright no matter
// how many character classes it covers.
var weakFragments = []string{"password", "qwerty", "123456", "letmein"}

// ValidatePassword enforces the signup/reset password policy: length bounds,
// all four character classes, no well-known weak fragments.
func ValidatePassword(password string) error {
	if len(password) < minPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, minPasswordLength)
	}
	if len(password) > maxPasswordLength {
		return fmt.Errorf("%w: password must be <= %d characters", ErrInvalidInput, maxPasswordLength)
	}

	const (
		classUpper = 1 << iota
		classLower
		classDigit
		classSymbol
	)
	classes := 0
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			classes |= classUpper
		case unicode.IsLower(r):
			classes |= classLower
		case unicode.IsDigit(r):
			classes |= classDigit
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			classes |= classSymbol
		}
	}
	if classes != classUpper|classLower|classDigit|classSymbol {
		return fmt.Errorf("%w: password must include upper, lower, digit, and symbol", ErrInvalidInput)
	}

	lowered := strings.ToLower(password)
	for _, fragment := range weakFragments {
		if strings.Contains(lowered, fragment) {
			return fmt.Errorf("%w: password includes weak pattern", ErrInvalidInput)
		}
	}
	return nil
}
