package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cgsmith/user-service/internal/service"
)

// MaintenanceHandler triggers periodic sweeps, meant to be called by an
// external scheduler
type MaintenanceHandler struct {
	maintenanceService service.MaintenanceService
}

// NewMaintenanceHandler creates a new maintenance handler
func NewMaintenanceHandler(maintenanceService service.MaintenanceService) *MaintenanceHandler {
	return &MaintenanceHandler{maintenanceService: maintenanceService}
}

// Sweep removes expired tokens and stale sessions
func (h *MaintenanceHandler) Sweep(c *gin.Context) {
	result, err := h.maintenanceService.Sweep(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}
