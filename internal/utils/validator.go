package utils

import (
	"regexp"
	"strings"
)

var (
	emailRegex    = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	usernameRegex = regexp.MustCompile(`^[-a-zA-Z0-9_\.]+$`)
)

// ValidateEmail validates an email address
func ValidateEmail(email string) bool {
	return emailRegex.MatchString(email) && len(email) <= 255
}

// ValidateUsername validates a username: letters, digits, dash,
// underscore and dot, between 3 and 255 characters
func ValidateUsername(username string) bool {
	if len(username) < 3 || len(username) > 255 {
		return false
	}
	return usernameRegex.MatchString(username)
}

// ValidatePasswordLength checks a password against configured length bounds
func ValidatePasswordLength(password string, min, max int) bool {
	return len(password) >= min && len(password) <= max
}

// SanitizeEmail sanitizes an email address
func SanitizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// SanitizeUsername sanitizes a username
func SanitizeUsername(username string) string {
	return strings.TrimSpace(username)
}
