package service

import (
	"github.com/cgsmith/user-service/internal/dto"
)

// LoginResult is what a successful (or paused) login produces. Exactly one
// of AuthResponse or TwoFactorPending is set.
type LoginResult struct {
	AuthResponse     *dto.AuthResponse
	RefreshToken     string
	RefreshExpiresIn int
	SessionID        string
	TwoFactorPending *dto.TwoFactorPendingResponse
}

// NeedsTwoFactor reports whether the login is paused for a second factor
func (r *LoginResult) NeedsTwoFactor() bool {
	return r.TwoFactorPending != nil
}
