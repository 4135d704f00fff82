// internal/interfaces/http/handlers/user_address.go
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

// AddressBook manages a customer's saved addresses
type AddressBook interface {
	ListAddresses(ctx context.Context, userID uint) ([]user.Address, error)
	CreateAddress(ctx context.Context, userID uint, req *user.CreateAddressRequest) (*user.Address, error)
	DeleteAddress(ctx context.Context, userID, addressID uint) error
}

// UserAddressHandler handles user address endpoints
type UserAddressHandler struct {
	addresses AddressBook
	logger    logrus.FieldLogger
}

// NewUserAddressHandler creates a new user address handler
func NewUserAddressHandler(addresses AddressBook, logger logrus.FieldLogger) *UserAddressHandler {
	return &UserAddressHandler{addresses: addresses, logger: logger}
}

// GetAddresses handles GET /users/addresses
func (h *UserAddressHandler) GetAddresses(c *gin.Context) {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		respondError(c, h.logger, apperrors.New(apperrors.CodeUnauthorized, "User not authenticated"))
		return
	}

	addresses, err := h.addresses.ListAddresses(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Addresses retrieved successfully",
		"data":    addresses,
	})
}

// CreateAddress handles POST /users/addresses
func (h *UserAddressHandler) CreateAddress(c *gin.Context) {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		respondError(c, h.logger, apperrors.New(apperrors.CodeUnauthorized, "User not authenticated"))
		return
	}

	var req user.CreateAddressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	address, err := h.addresses.CreateAddress(c.Request.Context(), userID, &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Address created successfully",
		"data":    address,
	})
}

// DeleteAddress handles DELETE /users/addresses/:id
func (h *UserAddressHandler) DeleteAddress(c *gin.Context) {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		respondError(c, h.logger, apperrors.New(apperrors.CodeUnauthorized, "User not authenticated"))
		return
	}

	addressID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.addresses.DeleteAddress(c.Request.Context(), userID, addressID); err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Address deleted successfully"})
}
