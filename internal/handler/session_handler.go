package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cgsmith/user-service/internal/config"
	"github.com/cgsmith/user-service/internal/dto"
	"github.com/cgsmith/user-service/internal/service"
)

// SessionHandler exposes the session history surface
type SessionHandler struct {
	sessionService service.SessionService
	authService    service.AuthService
	cfg            *config.Config
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(sessionService service.SessionService, authService service.AuthService, cfg *config.Config) *SessionHandler {
	return &SessionHandler{
		sessionService: sessionService,
		authService:    authService,
		cfg:            cfg,
	}
}

// List returns the user's sessions with the current one marked
func (h *SessionHandler) List(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	sessions, err := h.sessionService.List(c.Request.Context(), userID, c.GetString(ctxSessionID))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, sessions)
}

// Terminate ends one session by record id. Terminating the current
// session also revokes the caller's access token, like a logout.
func (h *SessionHandler) Terminate(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	session, err := h.sessionService.Terminate(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	if session.SessionID == c.GetString(ctxSessionID) {
		err := h.authService.Logout(c.Request.Context(), userID, session.SessionID,
			c.GetString(ctxAccessToken), h.cfg.JWT.AccessTokenExpiry.Duration)
		if err != nil {
			respondError(c, err)
			return
		}
	}

	c.JSON(http.StatusOK, dto.SuccessResponse{Message: "Session terminated"})
}

// TerminateOthers ends every session except the current one
func (h *SessionHandler) TerminateOthers(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	count, err := h.sessionService.TerminateOthers(c.Request.Context(), userID, c.GetString(ctxSessionID))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"terminated": count})
}
