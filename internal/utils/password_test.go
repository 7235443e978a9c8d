package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("correct horse", 4)
	require.NoError(t, err)
	assert.NotEqual(t, "correct horse", hash)

	assert.True(t, CheckPasswordHash("correct horse", hash))
	assert.False(t, CheckPasswordHash("wrong", hash))
	assert.False(t, CheckPasswordHash("correct horse", "not-a-hash"))
}

func TestGeneratePassword(t *testing.T) {
	password, err := GeneratePassword(16)
	require.NoError(t, err)
	assert.Len(t, password, 16)

	other, err := GeneratePassword(16)
	require.NoError(t, err)
	assert.NotEqual(t, password, other)

	// Non-positive lengths fall back to the default
	password, err = GeneratePassword(0)
	require.NoError(t, err)
	assert.Len(t, password, 12)
}

func TestCheckPasswordStrength(t *testing.T) {
	tests := []struct {
		name     string
		password string
		score    int
		feedback []string
	}{
		{
			name:     "empty",
			password: "",
			score:    0,
			feedback: []string{
				"Password should be at least 8 characters.",
				"Add lowercase letters.",
				"Add uppercase letters.",
				"Add numbers.",
				"Add special characters.",
			},
		},
		{
			name:     "short lowercase",
			password: "abc",
			score:    0,
			feedback: []string{
				"Password should be at least 8 characters.",
				"Add uppercase letters.",
				"Add numbers.",
				"Add special characters.",
			},
		},
		{
			name:     "long lowercase only",
			password: "aaaaaaaaaaaa",
			score:    2,
			feedback: []string{
				"Add uppercase letters.",
				"Add numbers.",
				"Add special characters.",
			},
		},
		{
			name:     "all classes, short",
			password: "aB3!aB3!",
			score:    3,
			feedback: nil,
		},
		{
			name:     "all classes, long",
			password: "Tr0ub4dor&3xtra!",
			score:    4,
			feedback: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score, feedback := CheckPasswordStrength(tt.password)
			assert.Equal(t, tt.score, score)
			assert.Equal(t, tt.feedback, feedback)
		})
	}
}
