// internal/interfaces/http/handlers/invoice.go
package handlers

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-backend/internal/domain/invoice"
	"github.com/your-org/storefront-backend/internal/interfaces/http/middleware"
	"github.com/your-org/storefront-backend/internal/pkg/apperrors"
)

// InvoiceManager is the invoice service surface used over HTTP
type InvoiceManager interface {
	Issue(ctx context.Context, orderID uint, actorID *uint) (*invoice.Invoice, error)
	GetByOrder(ctx context.Context, orderID uint) (*invoice.Invoice, error)
	UpdateStatus(ctx context.Context, id uint, status invoice.Status) (*invoice.Invoice, error)
}

// InvoiceRenderer produces the printable invoice
type InvoiceRenderer interface {
	GenerateInvoice(inv *invoice.Invoice) (*bytes.Buffer, error)
}

// InvoiceHandler handles invoice-related endpoints
type InvoiceHandler struct {
	invoices InvoiceManager
	orders   OrderManager
	pdf      InvoiceRenderer
	logger   logrus.FieldLogger
}

// NewInvoiceHandler creates a new invoice handler
func NewInvoiceHandler(invoices InvoiceManager, orders OrderManager, pdf InvoiceRenderer, logger logrus.FieldLogger) *InvoiceHandler {
	return &InvoiceHandler{invoices: invoices, orders: orders, pdf: pdf, logger: logger}
}

// IssueInvoice handles POST /admin/orders/:id/invoice. A second call for
// the same order is a 409.
func (h *InvoiceHandler) IssueInvoice(c *gin.Context) {
	orderID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	inv, err := h.invoices.Issue(c.Request.Context(), orderID, middleware.ActorID(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Invoice issued successfully",
		"data":    inv,
	})
}

// GetInvoice handles GET /admin/orders/:id/invoice
func (h *InvoiceHandler) GetInvoice(c *gin.Context) {
	orderID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	inv, err := h.invoices.GetByOrder(c.Request.Context(), orderID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Invoice retrieved successfully",
		"data":    inv,
	})
}

// DownloadInvoice handles GET /admin/orders/:id/invoice/pdf
func (h *InvoiceHandler) DownloadInvoice(c *gin.Context) {
	orderID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	h.sendPDF(c, orderID)
}

// DownloadMyInvoice handles GET /orders/number/:orderNumber/invoice/pdf for
// the order's owner
func (h *InvoiceHandler) DownloadMyInvoice(c *gin.Context) {
	o, err := h.orders.GetByNumber(c.Request.Context(), c.Param("orderNumber"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if !canSee(c, o) {
		respondError(c, h.logger, apperrors.NotFound("order"))
		return
	}
	h.sendPDF(c, o.ID)
}

func (h *InvoiceHandler) sendPDF(c *gin.Context, orderID uint) {
	inv, err := h.invoices.GetByOrder(c.Request.Context(), orderID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	buf, err := h.pdf.GenerateInvoice(inv)
	if err != nil {
		respondError(c, h.logger, apperrors.Internal(err, "rendering invoice pdf"))
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=invoice-%s.pdf", inv.InvoiceNumber))
	c.Header("Content-Length", strconv.Itoa(buf.Len()))
	c.Data(http.StatusOK, "application/pdf", buf.Bytes())
}

// UpdateInvoiceStatus handles PUT /admin/invoices/:id/status
func (h *InvoiceHandler) UpdateInvoiceStatus(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req invoice.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	inv, err := h.invoices.UpdateStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Invoice status updated successfully",
		"data":    inv,
	})
}
