package handler

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cgsmith/user-service/internal/dto"
	"github.com/cgsmith/user-service/internal/service"
)

// SocialHandler handles OAuth2 login and account linking
type SocialHandler struct {
	socialService service.SocialService
	cfg           socialCookieConfig
}

type socialCookieConfig struct {
	secure bool
}

// NewSocialHandler creates a new social handler
func NewSocialHandler(socialService service.SocialService, secureCookies bool) *SocialHandler {
	return &SocialHandler{
		socialService: socialService,
		cfg:           socialCookieConfig{secure: secureCookies},
	}
}

// Authorize redirects the visitor to the provider's consent screen
func (h *SocialHandler) Authorize(c *gin.Context) {
	provider := c.Param("provider")

	state, err := newStateToken()
	if err != nil {
		respondError(c, err)
		return
	}

	url, err := h.socialService.AuthURL(provider, state)
	if err != nil {
		respondError(c, err)
		return
	}

	// State round-trips through a short-lived cookie
	c.SetCookie("oauth_state", state, 600, "/", "", h.cfg.secure, true)
	c.Redirect(http.StatusTemporaryRedirect, url)
}

// Callback finishes the OAuth flow for an anonymous visitor
func (h *SocialHandler) Callback(c *gin.Context) {
	provider := c.Param("provider")

	var req dto.SocialCallbackRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		respondBindError(c, err)
		return
	}

	if !h.stateMatches(c, req.State) {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "Bad request",
			Message: "OAuth state mismatch",
		})
		return
	}

	result, err := h.socialService.HandleCallback(c.Request.Context(), provider, req.Code, c.ClientIP(), c.Request.UserAgent())
	if err != nil {
		respondError(c, err)
		return
	}

	c.SetCookie("refresh_token", result.RefreshToken, result.RefreshExpiresIn, refreshCookiePath, "", true, true)
	c.JSON(http.StatusOK, result.AuthResponse)
}

// Connect links a provider identity to the authenticated account
func (h *SocialHandler) Connect(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	provider := c.Param("provider")

	var req dto.SocialCallbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	account, err := h.socialService.Connect(c.Request.Context(), userID, provider, req.Code)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, account)
}

// List returns the user's linked provider accounts
func (h *SocialHandler) List(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	accounts, err := h.socialService.ListConnections(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, accounts)
}

// Disconnect unlinks a provider account
func (h *SocialHandler) Disconnect(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	if err := h.socialService.Disconnect(c.Request.Context(), userID, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.SuccessResponse{Message: "Account disconnected"})
}

func newStateToken() (string, error) {
	raw := make([]byte, 24)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("failed to generate state token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

func (h *SocialHandler) stateMatches(c *gin.Context, state string) bool {
	cookie, err := c.Cookie("oauth_state")
	if err != nil || cookie == "" {
		return false
	}
	c.SetCookie("oauth_state", "", -1, "/", "", h.cfg.secure, true)
	return cookie == state
}
