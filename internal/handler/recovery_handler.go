package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cgsmith/user-service/internal/dto"
	"github.com/cgsmith/user-service/internal/service"
)

// RecoveryHandler handles the forgotten-password flow
type RecoveryHandler struct {
	recoveryService service.RecoveryService
}

// NewRecoveryHandler creates a new recovery handler
func NewRecoveryHandler(recoveryService service.RecoveryService) *RecoveryHandler {
	return &RecoveryHandler{recoveryService: recoveryService}
}

// Request starts a recovery flow. The response is identical whether or
// not the address exists.
func (h *RecoveryHandler) Request(c *gin.Context) {
	var req dto.RecoveryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	if err := h.recoveryService.RequestRecovery(c.Request.Context(), &req, c.ClientIP()); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.SuccessResponse{
		Message: "If the address belongs to an account, a recovery email has been sent",
	})
}

// ValidateToken checks a recovery token before the reset form is shown
func (h *RecoveryHandler) ValidateToken(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "Bad request",
			Message: "token query parameter is required",
		})
		return
	}

	if err := h.recoveryService.ValidateToken(c.Request.Context(), token); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.SuccessResponse{Message: "Token is valid"})
}

// Reset redeems a recovery token and sets a new password
func (h *RecoveryHandler) Reset(c *gin.Context) {
	var req dto.ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	if err := h.recoveryService.ResetPassword(c.Request.Context(), &req); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.SuccessResponse{Message: "Password has been reset"})
}
