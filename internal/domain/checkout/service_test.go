package checkout

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/storefront-backend/internal/config"
	"github.com/your-org/storefront-backend/internal/domain/inventory"
	"github.com/your-org/storefront-backend/internal/domain/invoice"
	"github.com/your-org/storefront-backend/internal/domain/order"
	"github.com/your-org/storefront-backend/internal/domain/product"
	"github.com/your-org/storefront-backend/internal/domain/sequence"
	"github.com/your-org/storefront-backend/internal/domain/shipping"
	"github.com/your-org/storefront-backend/internal/domain/user"
	"github.com/your-org/storefront-backend/internal/pkg/apperrors"
	"github.com/your-org/storefront-backend/internal/pkg/database/dbtest"
	"github.com/your-org/storefront-backend/internal/pkg/logger"
	"github.com/your-org/storefront-backend/internal/pkg/outbox"
	"gorm.io/gorm"
)

type harness struct {
	db       *gorm.DB
	orders   *order.Service
	invoices *invoice.Service
	checkout *Service
	variant  *product.ProductVariant
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db := dbtest.NewTestDB(t,
		&product.Product{}, &product.ProductVariant{},
		&inventory.StockMovement{}, &inventory.StockAlert{},
		&outbox.Event{}, &sequence.Counter{}, &shipping.Method{},
		&user.User{}, &user.Address{},
		&order.Order{}, &order.OrderItem{}, &order.OrderStatusHistory{},
		&invoice.Invoice{},
	)
	p := &product.Product{SKU: "MUG", Name: "Mug", Slug: "mug", Price: decimal.RequireFromString("12.50"), IsActive: true}
	require.NoError(t, db.Create(p).Error)
	v := &product.ProductVariant{ProductID: p.ID, SKU: "SKU-001", Name: "Blue", Stock: 3, LowStockThreshold: 1, IsActive: true}
	require.NoError(t, db.Create(v).Error)
	methods := shipping.DefaultMethods()
	require.NoError(t, db.Create(&methods).Error)

	log := logger.Discard()
	repo := product.NewRepository(db)
	emitter := outbox.NewEmitter(log)
	numbers := sequence.NewAllocator()
	directory := user.NewService(db, nil, nil, log)
	validator := inventory.NewValidator(repo)
	shippingSvc := shipping.NewService(db, log)
	taxRate := decimal.RequireFromString("0.21")

	orders := order.NewService(db, config.OrderConfig{TaxRate: taxRate, Currency: "EUR", Location: time.UTC}, order.Dependencies{
		Ledger:    inventory.NewLedger(db, repo, emitter, nil, log, 5),
		Validator: validator,
		Numbers:   numbers,
		Shipping:  shippingSvc,
		Directory: directory,
		Emitter:   emitter,
		Logger:    log,
	})
	invoices := invoice.NewService(db, numbers, invoice.NewCompanyProvider(config.CompanyConfig{}, "Storefront"),
		directory, emitter, nil, log, time.UTC)

	return &harness{
		db:       db,
		orders:   orders,
		invoices: invoices,
		checkout: NewService(orders, invoices, validator, shippingSvc, taxRate, log),
		variant:  v,
	}
}

func (h *harness) request(qty int) *order.CreateOrderRequest {
	return &order.CreateOrderRequest{
		CustomerName:   "Ana Ruiz",
		Email:          "ana@example.com",
		ShippingMethod: "standard",
		Items: []order.CreateOrderItemRequest{
			{ProductID: h.variant.ProductID, VariantID: &h.variant.ID, Quantity: qty},
		},
	}
}

type brokenIssuer struct{}

func (brokenIssuer) Ensure(context.Context, uint, *uint) (*invoice.Invoice, bool, error) {
	return nil, false, apperrors.Internal(errors.New("disk full"), "creating invoice")
}

func TestPlaceOrderIssuesInvoice(t *testing.T) {
	h := newHarness(t)

	res, err := h.checkout.PlaceOrder(context.Background(), h.request(2), nil)
	require.NoError(t, err)
	require.NotNil(t, res.Invoice)
	assert.Empty(t, res.Warnings)
	assert.Equal(t, res.Order.ID, res.Invoice.OrderID)
	assert.Equal(t, res.Order.TotalAmount.StringFixed(2), res.Invoice.TotalAmount.StringFixed(2))
	assert.Len(t, res.Invoice.InvoiceNumber, len("2024-0001"))
}

func TestPlaceOrderKeepsOrderWhenInvoiceFails(t *testing.T) {
	h := newHarness(t)
	h.checkout.invoices = brokenIssuer{}

	res, err := h.checkout.PlaceOrder(context.Background(), h.request(1), nil)
	require.NoError(t, err)
	assert.Nil(t, res.Invoice)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "creating invoice")

	stored, err := h.orders.Get(context.Background(), res.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.StatusPending, stored.Status)
}

func TestPlaceOrderSecondBuyerIsRejected(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.checkout.PlaceOrder(ctx, h.request(2), nil)
	require.NoError(t, err)
	_, err = h.checkout.PlaceOrder(ctx, h.request(2), nil)
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInsufficientStock))

	var invoices int64
	require.NoError(t, h.db.Model(&invoice.Invoice{}).Count(&invoices).Error)
	assert.Equal(t, int64(1), invoices)
}

func TestPreviewDoesNotReserve(t *testing.T) {
	h := newHarness(t)

	summary, err := h.checkout.Preview(context.Background(), h.request(2))
	require.NoError(t, err)
	assert.True(t, summary.Valid)
	require.Len(t, summary.Lines, 1)
	assert.Equal(t, "Mug - Blue", summary.Lines[0].Name)
	assert.Equal(t, 3, summary.Lines[0].Available)
	assert.Equal(t, "25.00", summary.Totals.Subtotal.StringFixed(2))
	assert.Equal(t, "5.25", summary.Totals.TaxAmount.StringFixed(2))
	assert.Equal(t, "35.20", summary.Totals.Total.StringFixed(2))

	short, err := h.checkout.Preview(context.Background(), h.request(5))
	require.NoError(t, err)
	assert.False(t, short.Valid)
	require.Len(t, short.Failures, 1)
	assert.Equal(t, apperrors.CodeInsufficientStock, short.Failures[0].Code)
	assert.Equal(t, 3, short.Failures[0].Available)

	var v product.ProductVariant
	require.NoError(t, h.db.First(&v, h.variant.ID).Error)
	assert.Equal(t, 3, v.Stock)
}

func TestGuestCannotOrderToAnotherCustomersAddress(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	victim := user.User{Email: "vic@example.com", Password: "x", IsActive: true}
	require.NoError(t, h.db.Create(&victim).Error)
	addr := user.Address{UserID: victim.ID, FirstName: "Vic", LastName: "Tim", AddressLine1: "1 Secret Street", City: "Madrid", Country: "ES"}
	require.NoError(t, h.db.Create(&addr).Error)

	req := h.request(1)
	req.AddressID = &addr.ID
	res, err := h.checkout.PlaceOrder(ctx, req, nil)
	require.Error(t, err)
	assert.Nil(t, res)
	assert.Equal(t, apperrors.CodeNotFound, apperrors.CodeOf(err))

	var orders, invoices int64
	require.NoError(t, h.db.Model(&order.Order{}).Count(&orders).Error)
	require.NoError(t, h.db.Model(&invoice.Invoice{}).Count(&invoices).Error)
	assert.Zero(t, orders)
	assert.Zero(t, invoices)

	req = h.request(1)
	req.UserID = &victim.ID
	req.AddressID = &addr.ID
	res, err = h.checkout.PlaceOrder(ctx, req, &victim.ID)
	require.NoError(t, err)
	require.NotNil(t, res.Invoice)
	assert.Contains(t, res.Invoice.Customer.Address, "1 Secret Street")
}
