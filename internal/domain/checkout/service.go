// internal/domain/checkout/service.go
package checkout

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-backend/internal/domain/inventory"
	"github.com/your-org/storefront-backend/internal/domain/invoice"
	"github.com/your-org/storefront-backend/internal/domain/order"
	"github.com/your-org/storefront-backend/internal/pkg/apperrors"
	"github.com/your-org/storefront-backend/internal/pkg/money"
)

// OrderCreator runs the order creation transaction
type OrderCreator interface {
	CreateOrder(ctx context.Context, req *order.CreateOrderRequest, actorID *uint) (*order.Order, error)
}

// InvoiceIssuer issues the order's invoice at most once
type InvoiceIssuer interface {
	Ensure(ctx context.Context, orderID uint, actorID *uint) (*invoice.Invoice, bool, error)
}

// Service turns a submitted cart into an order and its invoice
type Service struct {
	orders    OrderCreator
	invoices  InvoiceIssuer
	validator order.StockValidator
	shipping  order.ShippingQuoter
	taxRate   decimal.Decimal
	logger    logrus.FieldLogger
}

// NewService creates a new checkout service
func NewService(orders OrderCreator, invoices InvoiceIssuer, validator order.StockValidator, shipping order.ShippingQuoter,
	taxRate decimal.Decimal, logger logrus.FieldLogger) *Service {
	return &Service{
		orders:    orders,
		invoices:  invoices,
		validator: validator,
		shipping:  shipping,
		taxRate:   taxRate,
		logger:    logger,
	}
}

// Result is what a placed order returns. Invoice is nil when issuing failed;
// Warnings then says why.
type Result struct {
	Order    *order.Order     `json:"order"`
	Invoice  *invoice.Invoice `json:"invoice"`
	Warnings []string         `json:"-"`
}

// SummaryLine is one priced line of a checkout preview
type SummaryLine struct {
	ProductID uint            `json:"product_id"`
	VariantID *uint           `json:"variant_id,omitempty"`
	SKU       string          `json:"sku"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Total     decimal.Decimal `json:"total"`
	Available int             `json:"available,omitempty"`
}

// Summary is a priced, non-binding view of a cart
type Summary struct {
	Valid          bool                    `json:"valid"`
	Errors         []string                `json:"errors"`
	Failures       []inventory.LineFailure `json:"failures,omitempty"`
	Lines          []SummaryLine           `json:"lines"`
	ShippingMethod string                  `json:"shipping_method,omitempty"`
	Totals         order.Totals            `json:"totals"`
}

// PlaceOrder creates the order and then issues its invoice. The invoice is
// best-effort: once the order is committed a failure only adds a warning, and
// the order.created handler retries it.
func (s *Service) PlaceOrder(ctx context.Context, req *order.CreateOrderRequest, actorID *uint) (*Result, error) {
	created, err := s.orders.CreateOrder(ctx, req, actorID)
	if err != nil {
		return nil, err
	}

	result := &Result{Order: created, Warnings: []string{}}
	inv, _, err := s.invoices.Ensure(ctx, created.ID, actorID)
	if err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"order_id":     created.ID,
			"order_number": created.OrderNumber,
		}).Warn("invoice not issued at checkout")
		result.Warnings = append(result.Warnings, "invoice could not be issued yet: "+publicMessage(err))
		return result, nil
	}
	result.Invoice = inv
	return result, nil
}

// Preview prices the cart against current stock without reserving anything
func (s *Service) Preview(ctx context.Context, req *order.CreateOrderRequest) (*Summary, error) {
	if req == nil {
		return nil, apperrors.New(apperrors.CodeValidation, "checkout request is required")
	}

	lines := make([]inventory.LineRequest, len(req.Items))
	for i, item := range req.Items {
		lines[i] = inventory.LineRequest{ProductID: item.ProductID, VariantID: item.VariantID, Quantity: item.Quantity}
	}
	result, err := s.validator.Validate(ctx, nil, lines)
	if err != nil {
		return nil, err
	}

	shippingCost, err := s.shipping.Quote(ctx, nil, req.ShippingMethod)
	if err != nil {
		return nil, err
	}

	summary := &Summary{
		Valid:          result.Valid,
		Errors:         result.Errors,
		Failures:       result.Failures,
		Lines:          make([]SummaryLine, 0, len(result.Lines)),
		ShippingMethod: req.ShippingMethod,
	}
	pricing := make([]order.TotalsLine, 0, len(result.Lines))
	for _, line := range result.Lines {
		unit := money.Round(line.UnitPrice)
		sl := SummaryLine{
			ProductID: line.Product.ID,
			VariantID: line.Request.VariantID,
			SKU:       line.Product.SKU,
			Name:      line.Product.Name,
			Quantity:  line.Request.Quantity,
			UnitPrice: unit,
			Total:     order.LineTotal(unit, line.Request.Quantity),
		}
		if line.Variant != nil {
			sl.SKU = line.Variant.SKU
			sl.Name = line.Variant.DisplayName()
			sl.Available = line.Variant.Stock
		}
		summary.Lines = append(summary.Lines, sl)
		pricing = append(pricing, order.TotalsLine{UnitPrice: unit, Quantity: sl.Quantity})
	}
	summary.Totals = order.CalculateTotals(pricing, shippingCost, s.taxRate)
	return summary, nil
}

func publicMessage(err error) string {
	if appErr := apperrors.As(err); appErr != nil {
		return appErr.Message()
	}
	return err.Error()
}
