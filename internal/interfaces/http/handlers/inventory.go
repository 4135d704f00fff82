// internal/interfaces/http/handlers/inventory.go
package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-backend/internal/domain/inventory"
	"github.com/your-org/storefront-backend/internal/interfaces/http/middleware"
)

// InventoryManager is the stock administration surface
type InventoryManager interface {
	AdjustStock(ctx context.Context, variantID uint, req *inventory.AdjustStockRequest, actorID *uint) (*inventory.AdjustResult, error)
	ReceiveStock(ctx context.Context, variantID uint, req *inventory.ReceiveStockRequest, actorID *uint) (*inventory.AdjustResult, error)
	ListMovements(ctx context.Context, variantID uint, page, limit int) ([]inventory.StockMovement, int64, error)
	Reconcile(ctx context.Context, variantID uint) (*inventory.Reconciliation, error)
	ListAlerts(ctx context.Context, includeResolved bool) ([]inventory.StockAlert, error)
	ResolveAlert(ctx context.Context, id uint) (*inventory.StockAlert, error)
}

// OpenQuantityCounter sums quantities held by open orders
type OpenQuantityCounter interface {
	OpenQuantityForVariant(ctx context.Context, variantID uint) (int, error)
}

// InventoryHandler handles stock endpoints
type InventoryHandler struct {
	inventory InventoryManager
	orders    OpenQuantityCounter
	logger    logrus.FieldLogger
}

// NewInventoryHandler creates a new inventory handler
func NewInventoryHandler(inventory InventoryManager, orders OpenQuantityCounter, logger logrus.FieldLogger) *InventoryHandler {
	return &InventoryHandler{inventory: inventory, orders: orders, logger: logger}
}

// AdjustStock handles PUT /admin/variants/:id/stock
func (h *InventoryHandler) AdjustStock(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req inventory.AdjustStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	result, err := h.inventory.AdjustStock(c.Request.Context(), id, &req, middleware.ActorID(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Stock adjusted successfully",
		"data":    result,
	})
}

// ReceiveStock handles POST /admin/variants/:id/stock/receive
func (h *InventoryHandler) ReceiveStock(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req inventory.ReceiveStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	result, err := h.inventory.ReceiveStock(c.Request.Context(), id, &req, middleware.ActorID(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Stock received successfully",
		"data":    result,
	})
}

// GetMovements handles GET /admin/variants/:id/movements
func (h *InventoryHandler) GetMovements(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	page := queryInt(c, "page", 1)
	limit := queryInt(c, "limit", 50)

	movements, total, err := h.inventory.ListMovements(c.Request.Context(), id, page, limit)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Stock movements retrieved successfully",
		"data":    movements,
		"meta":    gin.H{"total": total, "page": page, "limit": limit},
	})
}

// Reconcile handles GET /admin/variants/:id/reconcile. Besides replaying the
// ledger it checks that order debits match what open orders still hold.
func (h *InventoryHandler) Reconcile(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	rec, err := h.inventory.Reconcile(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	open, err := h.orders.OpenQuantityForVariant(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Reconciliation completed",
		"data": gin.H{
			"ledger":              rec,
			"open_order_quantity": open,
			"reservations_match":  rec.NetOrderDebits == open,
		},
	})
}

// GetAlerts handles GET /admin/inventory/alerts
func (h *InventoryHandler) GetAlerts(c *gin.Context) {
	alerts, err := h.inventory.ListAlerts(c.Request.Context(), c.Query("include_resolved") == "true")
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Stock alerts retrieved successfully",
		"data":    alerts,
	})
}

// ResolveAlert handles PUT /admin/inventory/alerts/:id/resolve
func (h *InventoryHandler) ResolveAlert(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	alert, err := h.inventory.ResolveAlert(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Stock alert resolved",
		"data":    alert,
	})
}
