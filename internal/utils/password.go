package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"golang.org/x/crypto/bcrypt"
)

const passwordAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789!@#$%^&*"

// HashPassword hashes a password using bcrypt
func HashPassword(password string, cost int) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(bytes), nil
}

// CheckPasswordHash compares a password with a hash
func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// GeneratePassword generates a random password of the given length
func GeneratePassword(length int) (string, error) {
	if length <= 0 {
		length = 12
	}

	password := make([]byte, length)
	max := big.NewInt(int64(len(passwordAlphabet)))

	for i := range password {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to generate password: %w", err)
		}
		password[i] = passwordAlphabet[n.Int64()]
	}

	return string(password), nil
}

// CheckPasswordStrength scores a password from 0 to 4 and returns
// feedback messages for the missing ingredients
func CheckPasswordStrength(password string) (int, []string) {
	var score float64
	var feedback []string

	length := len(password)
	if length >= 8 {
		score++
	}
	if length >= 12 {
		score++
	}
	if length < 8 {
		feedback = append(feedback, "Password should be at least 8 characters.")
	}

	hasLower := false
	hasUpper := false
	hasNumber := false
	hasSpecial := false
	for _, char := range password {
		switch {
		case 'a' <= char && char <= 'z':
			hasLower = true
		case 'A' <= char && char <= 'Z':
			hasUpper = true
		case '0' <= char && char <= '9':
			hasNumber = true
		default:
			hasSpecial = true
		}
	}

	if hasLower {
		score += 0.5
	} else {
		feedback = append(feedback, "Add lowercase letters.")
	}
	if hasUpper {
		score += 0.5
	} else {
		feedback = append(feedback, "Add uppercase letters.")
	}
	if hasNumber {
		score += 0.5
	} else {
		feedback = append(feedback, "Add numbers.")
	}
	if hasSpecial {
		score += 0.5
	} else {
		feedback = append(feedback, "Add special characters.")
	}

	result := int(score)
	if result > 4 {
		result = 4
	}

	return result, feedback
}
