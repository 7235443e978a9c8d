package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/cgsmith/user-service/internal/dto"
	"github.com/cgsmith/user-service/internal/service"
)

// Context keys set by AuthMiddleware
const (
	ctxUserID      = "user_id"
	ctxEmail       = "email"
	ctxSessionID   = "session_id"
	ctxClaims      = "claims"
	ctxAccessToken = "access_token"
)

// AuthMiddleware validates the JWT and adds user info to the context
func AuthMiddleware(authService service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, dto.ErrorResponse{
				Error:   "Unauthorized",
				Message: "Authorization header is required",
			})
			c.Abort()
			return
		}

		// Extract token from "Bearer <token>"
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, dto.ErrorResponse{
				Error:   "Unauthorized",
				Message: "Invalid authorization header format",
			})
			c.Abort()
			return
		}

		token := parts[1]

		claims, err := authService.ValidateToken(c.Request.Context(), token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, dto.ErrorResponse{
				Error:   "Unauthorized",
				Message: "Invalid or expired token",
			})
			c.Abort()
			return
		}

		c.Set(ctxUserID, claims.UserID)
		c.Set(ctxEmail, claims.Email)
		c.Set(ctxSessionID, claims.SessionID)
		c.Set(ctxClaims, claims)
		c.Set(ctxAccessToken, token)

		c.Next()
	}
}

// AdminMiddleware restricts a route to configured admins. Must run after
// AuthMiddleware.
func AdminMiddleware(admins []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		email := c.GetString(ctxEmail)
		userID := c.GetString(ctxUserID)

		for _, admin := range admins {
			if admin != "" && (admin == email || admin == userID) {
				c.Next()
				return
			}
		}

		c.JSON(http.StatusForbidden, dto.ErrorResponse{
			Error:   "Forbidden",
			Message: "Administrator access required",
		})
		c.Abort()
	}
}

// currentUserID pulls the authenticated user id out of the context
func currentUserID(c *gin.Context) (string, bool) {
	userID := c.GetString(ctxUserID)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, dto.ErrorResponse{
			Error:   "Unauthorized",
			Message: "User ID not found in context",
		})
		return "", false
	}
	return userID, true
}
