package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cgsmith/user-service/internal/dto"
	"github.com/cgsmith/user-service/internal/service"
)

// AdminHandler exposes the administrative surface
type AdminHandler struct {
	adminService service.UserAdminService
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(adminService service.UserAdminService) *AdminHandler {
	return &AdminHandler{adminService: adminService}
}

// CreateUser provisions an account
func (h *AdminHandler) CreateUser(c *gin.Context) {
	var req dto.AdminCreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	user, err := h.adminService.Create(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, user)
}

// GetUser returns any account by id
func (h *AdminHandler) GetUser(c *gin.Context) {
	user, err := h.adminService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, user)
}

// SetBlocked blocks or unblocks an account
func (h *AdminHandler) SetBlocked(c *gin.Context) {
	actorID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req dto.AdminBlockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	var err error
	if req.Block {
		err = h.adminService.Block(c.Request.Context(), actorID, c.Param("id"))
	} else {
		err = h.adminService.Unblock(c.Request.Context(), c.Param("id"))
	}
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.SuccessResponse{Message: "User updated"})
}

// ForceConfirm confirms an account without a token
func (h *AdminHandler) ForceConfirm(c *gin.Context) {
	if err := h.adminService.ForceConfirm(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.SuccessResponse{Message: "User confirmed"})
}

// ResendPassword mails a freshly generated password
func (h *AdminHandler) ResendPassword(c *gin.Context) {
	if err := h.adminService.ResendPassword(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.SuccessResponse{Message: "Password sent"})
}

// DeleteUser removes an account and everything it owns
func (h *AdminHandler) DeleteUser(c *gin.Context) {
	actorID, ok := currentUserID(c)
	if !ok {
		return
	}

	if err := h.adminService.Delete(c.Request.Context(), actorID, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.SuccessResponse{Message: "User deleted"})
}

// Impersonate checks whether the actor may switch into the target
func (h *AdminHandler) Impersonate(c *gin.Context) {
	actorID, ok := currentUserID(c)
	if !ok {
		return
	}

	if err := h.adminService.CanImpersonate(actorID, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}

	user, err := h.adminService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, user)
}
