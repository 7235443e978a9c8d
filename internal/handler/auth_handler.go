package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cgsmith/user-service/internal/config"
	"github.com/cgsmith/user-service/internal/dto"
	"github.com/cgsmith/user-service/internal/service"
)

const refreshCookiePath = "/api/v1/auth/refresh"

// AuthHandler handles authentication requests
type AuthHandler struct {
	authService    service.AuthService
	accountService service.AccountService
	cfg            *config.Config
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService service.AuthService, accountService service.AccountService, cfg *config.Config) *AuthHandler {
	return &AuthHandler{
		authService:    authService,
		accountService: accountService,
		cfg:            cfg,
	}
}

// Login handles login by email or username. Accounts with 2FA enabled
// get a pending handle instead of tokens.
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	result, err := h.authService.Login(c.Request.Context(), &req, c.ClientIP(), c.Request.UserAgent())
	if err != nil {
		respondError(c, err)
		return
	}

	if result.NeedsTwoFactor() {
		c.JSON(http.StatusOK, result.TwoFactorPending)
		return
	}

	h.respondWithTokens(c, result)
}

// TwoFactorLogin completes a login paused for a second factor
func (h *AuthHandler) TwoFactorLogin(c *gin.Context) {
	var req dto.TwoFactorLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	result, err := h.authService.CompleteTwoFactorLogin(c.Request.Context(), &req, c.ClientIP(), c.Request.UserAgent())
	if err != nil {
		respondError(c, err)
		return
	}

	h.respondWithTokens(c, result)
}

// Refresh rotates the refresh token cookie into a new token pair
func (h *AuthHandler) Refresh(c *gin.Context) {
	refreshToken, err := c.Cookie("refresh_token")
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "Bad request",
			Message: "Refresh token not found in cookie",
		})
		return
	}

	result, err := h.authService.RefreshToken(c.Request.Context(), refreshToken)
	if err != nil {
		respondError(c, err)
		return
	}

	h.respondWithTokens(c, result)
}

// Logout revokes the current access token and drops the session
func (h *AuthHandler) Logout(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	sessionID := c.GetString(ctxSessionID)
	accessToken := c.GetString(ctxAccessToken)

	err := h.authService.Logout(c.Request.Context(), userID, sessionID, accessToken,
		h.cfg.JWT.AccessTokenExpiry.Duration)
	if err != nil {
		respondError(c, err)
		return
	}

	// Clear refresh token cookie
	c.SetCookie("refresh_token", "", -1, refreshCookiePath, "", true, true)

	c.JSON(http.StatusOK, dto.SuccessResponse{
		Message: "Logged out successfully",
	})
}

// GetMe returns the current user's profile
func (h *AuthHandler) GetMe(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	user, err := h.accountService.GetProfile(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, user)
}

func (h *AuthHandler) respondWithTokens(c *gin.Context, result *service.LoginResult) {
	// Refresh token travels in an httpOnly cookie only
	c.SetCookie("refresh_token", result.RefreshToken, result.RefreshExpiresIn, refreshCookiePath, "", true, true)

	c.JSON(http.StatusOK, result.AuthResponse)
}
