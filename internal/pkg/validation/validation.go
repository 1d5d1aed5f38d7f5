package validation

import (
	"regexp"
	"unicode"
	"unicode/utf8"
)

var emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Handle: letters, digits, underscores, 3-32 chars.
var handleRe = regexp.MustCompile(`^[A-Za-z0-9_]{3,32}$`)

func IsValidEmail(email string) bool {
	return emailRe.MatchString(email)
}

// IsValidPassword enforces:
// - at least 8 characters
// - contains at least one letter
// - contains at least one number
// - contains at least one special character
func IsValidPassword(password string) bool {
	if len(password) < 8 {
		return false
	}
	hasLetter, hasDigit, hasSpecial := false, false, false
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			hasSpecial = true
		}
	}
	return hasLetter && hasDigit && hasSpecial
}

func IsValidHandle(handle string) bool {
	return handleRe.MatchString(handle)
}

// IsValidMessage bounds free-text fields (instruction messages, dispute reasons).
func IsValidMessage(msg string, maxLen int) bool {
	n := utf8.RuneCountInString(msg)
	return n > 0 && n <= maxLen
}
