package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateEmail(t *testing.T) {
	valid := []string{
		"user@example.com",
		"first.last@example.co.uk",
		"user+tag@example.com",
		"user_name@sub.example.com",
	}
	for _, email := range valid {
		assert.True(t, ValidateEmail(email), email)
	}

	invalid := []string{
		"",
		"plainaddress",
		"@example.com",
		"user@",
		"user@example",
		"user @example.com",
		"user@example.com" + strings.Repeat("m", 255),
	}
	for _, email := range invalid {
		assert.False(t, ValidateEmail(email), email)
	}
}

func TestValidateUsername(t *testing.T) {
	valid := []string{"bob", "bob.builder", "bob-builder", "bob_builder", "b0b"}
	for _, username := range valid {
		assert.True(t, ValidateUsername(username), username)
	}

	invalid := []string{"", "ab", "has space", "has@sign", strings.Repeat("a", 256)}
	for _, username := range invalid {
		assert.False(t, ValidateUsername(username), username)
	}
}

func TestValidatePasswordLength(t *testing.T) {
	assert.True(t, ValidatePasswordLength("12345678", 8, 72))
	assert.False(t, ValidatePasswordLength("1234567", 8, 72))
	assert.False(t, ValidatePasswordLength(strings.Repeat("a", 73), 8, 72))
}

func TestSanitizers(t *testing.T) {
	assert.Equal(t, "bob@example.com", SanitizeEmail("  Bob@Example.COM "))
	assert.Equal(t, "Bob", SanitizeUsername(" Bob "))
}
