// internal/interfaces/http/handlers/auth.go
package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-backend/internal/domain/user"
	"github.com/your-org/storefront-backend/internal/interfaces/http/middleware"
	"github.com/your-org/storefront-backend/internal/pkg/apperrors"
)

// Authenticator verifies credentials and looks up accounts
type Authenticator interface {
	Login(ctx context.Context, req *user.LoginRequest) (*user.AuthResponse, error)
	FindUser(ctx context.Context, id uint) (*user.User, error)
}

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	users  Authenticator
	logger logrus.FieldLogger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(users Authenticator, logger logrus.FieldLogger) *AuthHandler {
	return &AuthHandler{users: users, logger: logger}
}

// Login handles POST /auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req user.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	response, err := h.users.Login(c.Request.Context(), &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Login successful",
		"data":    response,
	})
}

// Me handles GET /auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		respondError(c, h.logger, apperrors.New(apperrors.CodeUnauthorized, "User not authenticated"))
		return
	}

	u, err := h.users.FindUser(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Profile retrieved successfully",
		"data":    u,
	})
}
