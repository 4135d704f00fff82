// internal/interfaces/http/handlers/checkout.go
package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-backend/internal/domain/checkout"
	"github.com/your-org/storefront-backend/internal/domain/order"
	"github.com/your-org/storefront-backend/internal/domain/shipping"
)

// CheckoutPreviewer prices a cart without writing anything
type CheckoutPreviewer interface {
	Preview(ctx context.Context, req *order.CreateOrderRequest) (*checkout.Summary, error)
}

// ShippingLister lists active shipping methods
type ShippingLister interface {
	List(ctx context.Context) ([]shipping.Method, error)
}

// CheckoutHandler handles checkout endpoints
type CheckoutHandler struct {
	checkout CheckoutPreviewer
	shipping ShippingLister
	logger   logrus.FieldLogger
}

// NewCheckoutHandler creates a new checkout handler
func NewCheckoutHandler(checkout CheckoutPreviewer, shipping ShippingLister, logger logrus.FieldLogger) *CheckoutHandler {
	return &CheckoutHandler{checkout: checkout, shipping: shipping, logger: logger}
}

// Preview handles POST /checkout/preview. An invalid cart is still a 200;
// the summary carries the problems.
func (h *CheckoutHandler) Preview(c *gin.Context) {
	var req order.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	summary, err := h.checkout.Preview(c.Request.Context(), &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Checkout summary calculated",
		"data":    summary,
	})
}

// GetShippingMethods handles GET /checkout/shipping-methods
func (h *CheckoutHandler) GetShippingMethods(c *gin.Context) {
	methods, err := h.shipping.List(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Shipping methods retrieved successfully",
		"data":    methods,
	})
}
