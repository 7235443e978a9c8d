package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cgsmith/user-service/internal/dto"
	"github.com/cgsmith/user-service/internal/service"
)

// TwoFactorHandler manages TOTP enrollment
type TwoFactorHandler struct {
	twoFactorService service.TwoFactorService
}

// NewTwoFactorHandler creates a new two-factor handler
func NewTwoFactorHandler(twoFactorService service.TwoFactorService) *TwoFactorHandler {
	return &TwoFactorHandler{twoFactorService: twoFactorService}
}

// Setup generates a secret and QR code for enrollment
func (h *TwoFactorHandler) Setup(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	setup, err := h.twoFactorService.StartSetup(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, setup)
}

// Enable confirms enrollment with a first code
func (h *TwoFactorHandler) Enable(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req dto.TwoFactorEnableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	enabled, err := h.twoFactorService.Enable(c.Request.Context(), userID, req.Code)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, enabled)
}

// Disable turns 2FA off
func (h *TwoFactorHandler) Disable(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req dto.TwoFactorDisableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	if err := h.twoFactorService.Disable(c.Request.Context(), userID, req.Password); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.SuccessResponse{Message: "Two-factor authentication disabled"})
}

// RegenerateBackupCodes replaces the backup code set
func (h *TwoFactorHandler) RegenerateBackupCodes(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	codes, err := h.twoFactorService.RegenerateBackupCodes(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.TwoFactorEnabledResponse{BackupCodes: codes})
}
