package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cgsmith/user-service/internal/dto"
	"github.com/cgsmith/user-service/internal/service"
)

// GDPRHandler covers consent, export and erasure
type GDPRHandler struct {
	gdprService service.GDPRService
}

// NewGDPRHandler creates a new GDPR handler
func NewGDPRHandler(gdprService service.GDPRService) *GDPRHandler {
	return &GDPRHandler{gdprService: gdprService}
}

// Consent records data processing consent
func (h *GDPRHandler) Consent(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req dto.GDPRConsentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	if err := h.gdprService.RecordConsent(c.Request.Context(), userID, &req); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.SuccessResponse{Message: "Consent recorded"})
}

// Export downloads everything stored about the user
func (h *GDPRHandler) Export(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	export, err := h.gdprService.Export(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "user-data-"+userID+".json"))
	c.JSON(http.StatusOK, export)
}

// Delete is the right-to-be-forgotten endpoint
func (h *GDPRHandler) Delete(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req dto.GDPRDeleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	if err := h.gdprService.Delete(c.Request.Context(), userID, req.Password); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.SuccessResponse{Message: "Your account has been deleted"})
}
