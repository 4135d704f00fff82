// internal/interfaces/http/handlers/order.go
package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-backend/internal/domain/checkout"
	"github.com/your-org/storefront-backend/internal/domain/order"
	"github.com/your-org/storefront-backend/internal/interfaces/http/middleware"
	"github.com/your-org/storefront-backend/internal/pkg/apperrors"
)

// OrderPlacer runs checkout
type OrderPlacer interface {
	PlaceOrder(ctx context.Context, req *order.CreateOrderRequest, actorID *uint) (*checkout.Result, error)
}

// OrderManager is the order service surface used over HTTP
type OrderManager interface {
	Get(ctx context.Context, id uint) (*order.Order, error)
	GetByNumber(ctx context.Context, orderNumber string) (*order.Order, error)
	List(ctx context.Context, req *order.ListRequest) (*order.ListResponse, error)
	TransitionStatus(ctx context.Context, orderID uint, to order.Status, comment string, actorID *uint) (*order.Order, error)
	UpdateItemProductionStatus(ctx context.Context, orderID, itemID uint, req *order.UpdateProductionRequest, actorID *uint) (*order.Order, error)
	UpdateTracking(ctx context.Context, orderID uint, req *order.UpdateTrackingRequest) (*order.Order, error)
	Delete(ctx context.Context, orderID uint, actorID *uint) error
}

// OrderHandler handles order endpoints
type OrderHandler struct {
	checkout OrderPlacer
	orders   OrderManager
	logger   logrus.FieldLogger
}

// NewOrderHandler creates a new order handler
func NewOrderHandler(checkout OrderPlacer, orders OrderManager, logger logrus.FieldLogger) *OrderHandler {
	return &OrderHandler{checkout: checkout, orders: orders, logger: logger}
}

// CreateOrder handles POST /orders. Guests may order; an authenticated
// caller becomes the order's owner.
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	var req order.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	req.UserID = nil
	if userID, ok := middleware.GetUserIDFromContext(c); ok {
		req.UserID = &userID
	}

	result, err := h.checkout.PlaceOrder(c.Request.Context(), &req, middleware.ActorID(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Order created successfully",
		"data":    result,
		"meta":    gin.H{"warnings": result.Warnings},
	})
}

// GetMyOrders handles GET /orders
func (h *OrderHandler) GetMyOrders(c *gin.Context) {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		respondError(c, h.logger, apperrors.New(apperrors.CodeUnauthorized, "User not authenticated"))
		return
	}

	var req order.ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		respondBindError(c, err)
		return
	}
	req.UserID = userID

	resp, err := h.orders.List(c.Request.Context(), &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Orders retrieved successfully",
		"data":    resp,
	})
}

// GetOrderByNumber handles GET /orders/number/:orderNumber. Orders owned by
// somebody else look missing.
func (h *OrderHandler) GetOrderByNumber(c *gin.Context) {
	o, ok := h.loadVisibleOrder(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Order retrieved successfully",
		"data":    o,
	})
}

func (h *OrderHandler) loadVisibleOrder(c *gin.Context) (*order.Order, bool) {
	o, err := h.orders.GetByNumber(c.Request.Context(), c.Param("orderNumber"))
	if err != nil {
		respondError(c, h.logger, err)
		return nil, false
	}
	if !canSee(c, o) {
		respondError(c, h.logger, apperrors.NotFound("order"))
		return nil, false
	}
	return o, true
}

func canSee(c *gin.Context, o *order.Order) bool {
	if middleware.IsBackOffice(c) {
		return true
	}
	userID, ok := middleware.GetUserIDFromContext(c)
	return ok && o.UserID != nil && *o.UserID == userID
}

// ListOrders handles GET /admin/orders
func (h *OrderHandler) ListOrders(c *gin.Context) {
	var req order.ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		respondBindError(c, err)
		return
	}

	resp, err := h.orders.List(c.Request.Context(), &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Orders retrieved successfully",
		"data":    resp,
	})
}

// GetOrder handles GET /admin/orders/:id
func (h *OrderHandler) GetOrder(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	o, err := h.orders.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Order retrieved successfully",
		"data":    o,
	})
}

// UpdateOrderStatus handles PUT /admin/orders/:id/status
func (h *OrderHandler) UpdateOrderStatus(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req order.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	o, err := h.orders.TransitionStatus(c.Request.Context(), id, req.Status, req.Comment, middleware.ActorID(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Order status updated successfully",
		"data":    o,
	})
}

// UpdateItemProduction handles PUT /admin/orders/:id/items/:itemId/production
func (h *OrderHandler) UpdateItemProduction(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	itemID, ok := parseIDParam(c, "itemId")
	if !ok {
		return
	}

	var req order.UpdateProductionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	o, err := h.orders.UpdateItemProductionStatus(c.Request.Context(), id, itemID, &req, middleware.ActorID(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Production status updated successfully",
		"data":    o,
	})
}

// UpdateTracking handles PUT /admin/orders/:id/tracking
func (h *OrderHandler) UpdateTracking(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req order.UpdateTrackingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	o, err := h.orders.UpdateTracking(c.Request.Context(), id, &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Tracking updated successfully",
		"data":    o,
	})
}

// DeleteOrder handles DELETE /admin/orders/:id
func (h *OrderHandler) DeleteOrder(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.orders.Delete(c.Request.Context(), id, middleware.ActorID(c)); err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Order deleted successfully",
	})
}
