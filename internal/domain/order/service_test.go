package order

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/storefront-backend/internal/config"
	"github.com/your-org/storefront-backend/internal/domain/inventory"
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

var testDay = time.Date(2024, time.January, 15, 10, 0, 0, 0, time.UTC)

type fixture struct {
	db        *gorm.DB
	svc       *Service
	ledger    *inventory.Ledger
	inventory *inventory.Service
	numbers   *sequence.Allocator
	mug       *product.Product
	blue      *product.ProductVariant
	gold      *product.ProductVariant
	card      *product.Product
}

type fixtureOption func(*Dependencies)

func newFixture(t *testing.T, blueStock int, opts ...fixtureOption) *fixture {
	t.Helper()
	db := dbtest.NewTestDB(t,
		&product.Product{}, &product.ProductVariant{},
		&inventory.StockMovement{}, &inventory.StockAlert{},
		&outbox.Event{}, &sequence.Counter{}, &shipping.Method{},
		&user.User{}, &user.Address{},
		&Order{}, &OrderItem{}, &OrderStatusHistory{},
	)

	mug := &product.Product{SKU: "MUG", Name: "Mug", Slug: "mug", Price: decimal.RequireFromString("12.50"), IsActive: true}
	card := &product.Product{SKU: "CARD", Name: "Gift card", Slug: "gift-card", Price: decimal.RequireFromString("3.10"), IsActive: true}
	require.NoError(t, db.Create(mug).Error)
	require.NoError(t, db.Create(card).Error)
	blue := &product.ProductVariant{ProductID: mug.ID, SKU: "SKU-001", Name: "Blue", Stock: blueStock, LowStockThreshold: 1, IsActive: true}
	gold := &product.ProductVariant{
		ProductID: mug.ID, SKU: "SKU-002", Name: "Gold", Stock: 50, LowStockThreshold: 1, IsActive: true,
		Price: decimal.NewNullDecimal(decimal.RequireFromString("10.005")),
	}
	require.NoError(t, db.Create(blue).Error)
	require.NoError(t, db.Create(gold).Error)
	methods := shipping.DefaultMethods()
	require.NoError(t, db.Create(&methods).Error)

	log := logger.Discard()
	repo := product.NewRepository(db)
	emitter := outbox.NewEmitter(log)
	ledger := inventory.NewLedger(db, repo, emitter, nil, log, 5)
	numbers := sequence.NewAllocator()
	deps := Dependencies{
		Ledger:    ledger,
		Validator: inventory.NewValidator(repo),
		Numbers:   numbers,
		Shipping:  shipping.NewService(db, log),
		Directory: user.NewService(db, nil, nil, log),
		Emitter:   emitter,
		Logger:    log,
	}
	for _, opt := range opts {
		opt(&deps)
	}

	svc := NewService(db, config.OrderConfig{
		TaxRate:  decimal.RequireFromString("0.21"),
		Currency: "EUR",
		Location: time.UTC,
	}, deps)
	svc.now = func() time.Time { return testDay }

	return &fixture{
		db:        db,
		svc:       svc,
		ledger:    ledger,
		inventory: inventory.NewService(db, ledger, repo, log),
		numbers:   numbers,
		mug:       mug,
		blue:      blue,
		gold:      gold,
		card:      card,
	}
}

func (f *fixture) request(items ...CreateOrderItemRequest) *CreateOrderRequest {
	return &CreateOrderRequest{
		CustomerName:   "Ana Ruiz",
		Email:          "Ana@Example.com",
		ShippingMethod: "standard",
		Items:          items,
	}
}

func (f *fixture) blueLine(qty int) CreateOrderItemRequest {
	return CreateOrderItemRequest{ProductID: f.mug.ID, VariantID: &f.blue.ID, Quantity: qty}
}

func (f *fixture) stock(t *testing.T, id uint) int {
	t.Helper()
	var v product.ProductVariant
	require.NoError(t, f.db.Unscoped().First(&v, id).Error)
	return v.Stock
}

func (f *fixture) count(t *testing.T, model interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(model).Count(&n).Error)
	return n
}

func (f *fixture) forceStatus(t *testing.T, id uint, status Status) {
	t.Helper()
	require.NoError(t, f.db.Model(&Order{}).Where("id = ?", id).Update("status", status).Error)
}

// faultyLedger fails the failOn-th debit.
type faultyLedger struct {
	StockLedger
	failOn int
	debits int
}

func (l *faultyLedger) Debit(ctx context.Context, tx *gorm.DB, e inventory.Entry) (*inventory.StockMovement, error) {
	l.debits++
	if l.debits == l.failOn {
		return nil, apperrors.New(apperrors.CodeInternal, "injected debit failure")
	}
	return l.StockLedger.Debit(ctx, tx, e)
}

func TestCreateOrder(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()
	actor := uint(9)

	req := f.request(
		f.blueLine(2),
		CreateOrderItemRequest{ProductID: f.mug.ID, VariantID: &f.gold.ID, Quantity: 1,
			Customization: &Customization{Kind: CustomizationEngraving, Engraving: &Engraving{Text: "Ana"}}},
		CreateOrderItemRequest{ProductID: f.card.ID, Quantity: 3},
	)
	order, err := f.svc.CreateOrder(ctx, req, &actor)
	require.NoError(t, err)

	assert.Equal(t, "LV240115-001", order.OrderNumber)
	assert.Equal(t, StatusPending, order.Status)
	assert.Equal(t, "ana@example.com", order.Email)
	assert.Equal(t, "44.31", order.SubtotalAmount.StringFixed(2))
	assert.Equal(t, "9.31", order.TaxAmount.StringFixed(2))
	assert.Equal(t, "4.95", order.ShippingCost.StringFixed(2))
	assert.Equal(t, "58.57", order.TotalAmount.StringFixed(2))

	require.Len(t, order.Items, 3)
	assert.Equal(t, "SKU-001", order.Items[0].SKU)
	assert.Equal(t, "Mug - Blue", order.Items[0].Name)
	assert.Equal(t, "10.01", order.Items[1].UnitPrice.StringFixed(2))
	assert.Equal(t, "CARD", order.Items[2].SKU)
	assert.Nil(t, order.Items[2].VariantID)

	assert.Equal(t, 8, f.stock(t, f.blue.ID))
	assert.Equal(t, 49, f.stock(t, f.gold.ID))

	var movements []inventory.StockMovement
	require.NoError(t, f.db.Order("id ASC").Find(&movements).Error)
	require.Len(t, movements, 2)
	assert.Equal(t, f.blue.ID, movements[0].VariantID)
	assert.Equal(t, inventory.MovementOut, movements[0].Type)
	assert.Equal(t, inventory.ReferenceOrder, movements[0].ReferenceType)
	assert.Equal(t, order.ID, *movements[0].ReferenceID)
	assert.Equal(t, "order LV240115-001", movements[0].Reason)

	loaded, err := f.svc.GetByNumber(ctx, "lv240115-001")
	require.NoError(t, err)
	require.Len(t, loaded.StatusHistory, 1)
	assert.Equal(t, StatusPending, loaded.StatusHistory[0].ToStatus)
	require.NotNil(t, loaded.Items[1].Customization)
	assert.Equal(t, "Ana", loaded.Items[1].Customization.Engraving.Text)
	assert.Equal(t, CustomizationSchemaVersion, loaded.Items[1].Customization.SchemaVersion)

	var events []outbox.Event
	require.NoError(t, f.db.Where("event_type = ?", outbox.EventOrderCreated).Find(&events).Error)
	require.Len(t, events, 1)
	assert.Equal(t, "1", events[0].AggregateID)
}

func TestCreateOrderUnknownShippingMethodIsFree(t *testing.T) {
	f := newFixture(t, 10)
	req := f.request(f.blueLine(1))
	req.ShippingMethod = "drone"

	order, err := f.svc.CreateOrder(context.Background(), req, nil)
	require.NoError(t, err)
	assert.True(t, order.ShippingCost.IsZero())
	assert.Equal(t, "15.13", order.TotalAmount.StringFixed(2))
}

func TestCreateOrderValidationFailureIsItemizedAndWritesNothing(t *testing.T) {
	f := newFixture(t, 1)
	ctx := context.Background()
	missing := uint(404)

	_, err := f.svc.CreateOrder(ctx, f.request(
		f.blueLine(2),
		CreateOrderItemRequest{ProductID: f.mug.ID, VariantID: &missing, Quantity: 1},
	), nil)
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeValidation, apperrors.CodeOf(err))
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInsufficientStock))

	details, ok := apperrors.As(err).Details().([]string)
	require.True(t, ok)
	require.Len(t, details, 2)
	assert.Contains(t, details[0], `"Mug - Blue" (SKU SKU-001): available 1, requested 2`)
	assert.Equal(t, "Variant 404 not found", details[1])

	assert.Zero(t, f.count(t, &Order{}))
	assert.Zero(t, f.count(t, &inventory.StockMovement{}))
	peek, err := f.numbers.Peek(ctx, f.db, sequence.OrderScope(testDay))
	require.NoError(t, err)
	assert.Zero(t, peek)
}

func TestCreateOrderRejectsBadRequestShape(t *testing.T) {
	f := newFixture(t, 10)

	_, err := f.svc.CreateOrder(context.Background(), &CreateOrderRequest{
		Email: "x@example.com",
		Items: []CreateOrderItemRequest{
			{Quantity: 1},
			{ProductID: f.mug.ID, VariantID: &f.blue.ID, Quantity: 1, Customization: &Customization{Kind: "hologram"}},
		},
	}, nil)
	require.Error(t, err)
	details := apperrors.As(err).Details().([]string)
	assert.Len(t, details, 3)
	assert.Equal(t, "customer name is required", details[0])

	_, err = f.svc.CreateOrder(context.Background(), f.request(), nil)
	details = apperrors.As(err).Details().([]string)
	assert.Equal(t, []string{"order must contain at least one item"}, details)
}

func TestCreateOrderRejectsOversizedQuantities(t *testing.T) {
	f := newFixture(t, 3)
	ctx := context.Background()

	_, err := f.svc.CreateOrder(ctx, f.request(f.blueLine(1), f.blueLine(math.MaxInt)), nil)
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeValidation, apperrors.CodeOf(err))
	assert.Equal(t, []string{"Item 2: quantity must be at most 10000"}, apperrors.As(err).Details())

	_, err = f.svc.CreateOrder(ctx, f.request(CreateOrderItemRequest{ProductID: f.card.ID, Quantity: math.MaxInt}), nil)
	assert.Equal(t, apperrors.CodeValidation, apperrors.CodeOf(err))

	lines := make([]CreateOrderItemRequest, MaxOrderLines+1)
	for i := range lines {
		lines[i] = CreateOrderItemRequest{ProductID: f.card.ID, Quantity: 1}
	}
	_, err = f.svc.CreateOrder(ctx, f.request(lines...), nil)
	assert.Equal(t, apperrors.CodeValidation, apperrors.CodeOf(err))

	assert.Zero(t, f.count(t, &Order{}))
	assert.Equal(t, 3, f.stock(t, f.blue.ID))
}

func TestCreateOrderRejectsTotalBeyondColumnRange(t *testing.T) {
	f := newFixture(t, 3)
	yacht := &product.Product{SKU: "YACHT", Name: "Yacht", Slug: "yacht", Price: decimal.RequireFromString("9000000000.00"), IsActive: true}
	require.NoError(t, f.db.Create(yacht).Error)

	_, err := f.svc.CreateOrder(context.Background(), f.request(CreateOrderItemRequest{ProductID: yacht.ID, Quantity: 2}), nil)
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeValidation, apperrors.CodeOf(err))
	details := apperrors.As(err).Details().([]string)
	require.Len(t, details, 1)
	assert.Contains(t, details[0], "exceeds the maximum")
	assert.Zero(t, f.count(t, &Order{}))
}

func TestCreateOrderMissingUserOrAddress(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()

	ghost := uint(77)
	req := f.request(f.blueLine(1))
	req.UserID = &ghost
	_, err := f.svc.CreateOrder(ctx, req, nil)
	assert.Equal(t, apperrors.CodeNotFound, apperrors.CodeOf(err))

	owner := user.User{Email: "owner@example.com", Password: "x", IsActive: true}
	require.NoError(t, f.db.Create(&owner).Error)
	req = f.request(f.blueLine(1))
	req.UserID = &owner.ID
	req.AddressID = &ghost
	_, err = f.svc.CreateOrder(ctx, req, nil)
	assert.Equal(t, apperrors.CodeNotFound, apperrors.CodeOf(err))

	addr := user.Address{UserID: owner.ID, AddressLine1: "Calle Mayor 1", City: "Madrid", Country: "ES"}
	require.NoError(t, f.db.Create(&addr).Error)
	req.AddressID = &addr.ID
	order, err := f.svc.CreateOrder(ctx, req, nil)
	require.NoError(t, err)
	assert.Equal(t, addr.ID, *order.AddressID)
	assert.Equal(t, 9, f.stock(t, f.blue.ID))
}

func TestCreateOrderRejectsSomeoneElsesAddress(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()

	owner := user.User{Email: "owner@example.com", Password: "x", IsActive: true}
	other := user.User{Email: "other@example.com", Password: "x", IsActive: true}
	require.NoError(t, f.db.Create(&owner).Error)
	require.NoError(t, f.db.Create(&other).Error)
	addr := user.Address{UserID: owner.ID, AddressLine1: "1 Secret Street", City: "Madrid", Country: "ES"}
	require.NoError(t, f.db.Create(&addr).Error)

	guest := f.request(f.blueLine(1))
	guest.AddressID = &addr.ID
	_, err := f.svc.CreateOrder(ctx, guest, nil)
	assert.Equal(t, apperrors.CodeNotFound, apperrors.CodeOf(err))

	stranger := f.request(f.blueLine(1))
	stranger.UserID = &other.ID
	stranger.AddressID = &addr.ID
	_, err = f.svc.CreateOrder(ctx, stranger, &other.ID)
	assert.Equal(t, apperrors.CodeNotFound, apperrors.CodeOf(err))

	assert.Zero(t, f.count(t, &Order{}))
	assert.Equal(t, 10, f.stock(t, f.blue.ID))
}

func TestCreateOrderRollsBackWhenDebitFails(t *testing.T) {
	for k := 1; k <= 3; k++ {
		k := k
		t.Run(fmt.Sprintf("fail on debit %d", k), func(t *testing.T) {
			faulty := &faultyLedger{failOn: k}
			f := newFixture(t, 10, func(d *Dependencies) {
				faulty.StockLedger = d.Ledger
				d.Ledger = faulty
			})
			ctx := context.Background()

			_, err := f.svc.CreateOrder(ctx, f.request(
				f.blueLine(1),
				CreateOrderItemRequest{ProductID: f.mug.ID, VariantID: &f.gold.ID, Quantity: 2},
				f.blueLine(3),
			), nil)
			require.Error(t, err)
			assert.Equal(t, apperrors.CodeInternal, apperrors.CodeOf(err))

			assert.Zero(t, f.count(t, &Order{}))
			assert.Zero(t, f.count(t, &OrderItem{}))
			assert.Zero(t, f.count(t, &OrderStatusHistory{}))
			assert.Zero(t, f.count(t, &inventory.StockMovement{}))
			assert.Zero(t, f.count(t, &outbox.Event{}))
			assert.Equal(t, 10, f.stock(t, f.blue.ID))
			assert.Equal(t, 50, f.stock(t, f.gold.ID))

			// the number was not consumed
			faulty.failOn = 0
			order, err := f.svc.CreateOrder(ctx, f.request(f.blueLine(1)), nil)
			require.NoError(t, err)
			assert.Equal(t, "LV240115-001", order.OrderNumber)
		})
	}
}

func TestTwoBuyersRaceForLastUnits(t *testing.T) {
	f := newFixture(t, 3)

	type outcome struct {
		order *Order
		err   error
	}
	results := make(chan outcome, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			o, err := f.svc.CreateOrder(context.Background(), f.request(f.blueLine(2)), nil)
			results <- outcome{o, err}
		}()
	}
	wg.Wait()
	close(results)

	var ok, rejected int
	for r := range results {
		if r.err == nil {
			ok++
			continue
		}
		rejected++
		assert.True(t, apperrors.HasCode(r.err, apperrors.CodeInsufficientStock), r.err.Error())
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, rejected)
	assert.Equal(t, 1, f.stock(t, f.blue.ID))
	assert.Equal(t, int64(1), f.count(t, &Order{}))
}

func TestConcurrentOrdersNeverOversell(t *testing.T) {
	f := newFixture(t, 5)

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded, short := 0, 0
	for i := 0; i < 12; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.CreateOrder(context.Background(), f.request(f.blueLine(1)), nil)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				succeeded++
			} else if apperrors.HasCode(err, apperrors.CodeInsufficientStock) {
				short++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 5, succeeded)
	assert.Equal(t, 7, short)
	assert.Equal(t, 0, f.stock(t, f.blue.ID))

	open, err := f.svc.OpenQuantityForVariant(context.Background(), f.blue.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, open)
}

func TestConcurrentOrderNumbersAreUniqueAndIncreasing(t *testing.T) {
	f := newFixture(t, 100)
	const n = 10

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.CreateOrder(context.Background(), f.request(f.blueLine(1)), nil)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	var orders []Order
	require.NoError(t, f.db.Order("id ASC").Find(&orders).Error)
	require.Len(t, orders, n)

	seen := map[string]bool{}
	prev := ""
	for _, o := range orders {
		assert.False(t, seen[o.OrderNumber], "duplicate %s", o.OrderNumber)
		seen[o.OrderNumber] = true
		assert.True(t, strings.HasPrefix(o.OrderNumber, "LV240115-"))
		assert.Greater(t, o.OrderNumber, prev)
		prev = o.OrderNumber
	}
	numbers := make([]string, 0, n)
	for k := range seen {
		numbers = append(numbers, k)
	}
	sort.Strings(numbers)
	assert.Equal(t, "LV240115-001", numbers[0])
	assert.Equal(t, "LV240115-010", numbers[n-1])
}

func TestOrderNumbersRestartEachDay(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()

	first, err := f.svc.CreateOrder(ctx, f.request(f.blueLine(1)), nil)
	require.NoError(t, err)
	f.svc.now = func() time.Time { return testDay.AddDate(0, 0, 1) }
	second, err := f.svc.CreateOrder(ctx, f.request(f.blueLine(1)), nil)
	require.NoError(t, err)

	assert.Equal(t, "LV240115-001", first.OrderNumber)
	assert.Equal(t, "LV240116-001", second.OrderNumber)
}

func TestTransitionLegalityOverAllPairs(t *testing.T) {
	f := newFixture(t, 1000)
	ctx := context.Background()

	for _, from := range AllStatuses() {
		for _, to := range AllStatuses() {
			order, err := f.svc.CreateOrder(ctx, f.request(f.blueLine(1)), nil)
			require.NoError(t, err)
			f.forceStatus(t, order.ID, from)

			got, err := f.svc.TransitionStatus(ctx, order.ID, to, "", nil)
			if CanTransition(from, to) {
				require.NoError(t, err, "%s -> %s", from, to)
				assert.Equal(t, to, got.Status)
				continue
			}
			require.Error(t, err, "%s -> %s", from, to)
			assert.Equal(t, apperrors.CodeInvalidTransition, apperrors.CodeOf(err), "%s -> %s", from, to)
			reloaded, err := f.svc.Get(ctx, order.ID)
			require.NoError(t, err)
			assert.Equal(t, from, reloaded.Status)
		}
	}

	_, err := f.svc.TransitionStatus(ctx, 1, "LOST", "", nil)
	assert.Equal(t, apperrors.CodeValidation, apperrors.CodeOf(err))
	_, err = f.svc.TransitionStatus(ctx, 99999, StatusConfirmed, "", nil)
	assert.Equal(t, apperrors.CodeNotFound, apperrors.CodeOf(err))
}

func TestLifecycleTimestampsAndHistory(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()
	staff := uint(3)

	order, err := f.svc.CreateOrder(ctx, f.request(f.blueLine(1)), nil)
	require.NoError(t, err)
	for _, next := range []Status{StatusConfirmed, StatusInProduction, StatusShipped, StatusDelivered} {
		order, err = f.svc.TransitionStatus(ctx, order.ID, next, "step", &staff)
		require.NoError(t, err)
	}

	assert.Equal(t, StatusDelivered, order.Status)
	require.NotNil(t, order.ConfirmedAt)
	require.NotNil(t, order.ShippedAt)
	require.NotNil(t, order.DeliveredAt)
	assert.True(t, order.DeliveredAt.Equal(testDay))
	assert.Nil(t, order.CancelledAt)
	require.Len(t, order.StatusHistory, 5)
	assert.Equal(t, StatusShipped, order.StatusHistory[4].FromStatus)
	assert.Equal(t, StatusDelivered, order.StatusHistory[4].ToStatus)
	assert.Equal(t, &staff, order.StatusHistory[4].ActorID)

	var events int64
	require.NoError(t, f.db.Model(&outbox.Event{}).Where("event_type = ?", outbox.EventOrderStatusChanged).Count(&events).Error)
	assert.Equal(t, int64(4), events)

	order, err = f.svc.TransitionStatus(ctx, order.ID, StatusRefunded, "returned", &staff)
	require.NoError(t, err)
	assert.Equal(t, PaymentStatusRefunded, order.PaymentStatus)
	assert.Equal(t, 10, f.stock(t, f.blue.ID))
}

func TestCancelCreditsStockBack(t *testing.T) {
	f := newFixture(t, 3)
	ctx := context.Background()

	order, err := f.svc.CreateOrder(ctx, f.request(f.blueLine(2), CreateOrderItemRequest{ProductID: f.card.ID, Quantity: 1}), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, f.stock(t, f.blue.ID))

	order, err = f.svc.TransitionStatus(ctx, order.ID, StatusConfirmed, "", nil)
	require.NoError(t, err)
	order, err = f.svc.TransitionStatus(ctx, order.ID, StatusCancelled, "customer asked", nil)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, order.Status)
	assert.NotNil(t, order.CancelledAt)
	assert.Equal(t, 3, f.stock(t, f.blue.ID))

	var ret inventory.StockMovement
	require.NoError(t, f.db.Where("type = ?", inventory.MovementReturn).First(&ret).Error)
	assert.Equal(t, 2, ret.Quantity)
	assert.Equal(t, "order cancelled", ret.Reason)
	assert.Equal(t, order.ID, *ret.ReferenceID)

	_, err = f.svc.TransitionStatus(ctx, order.ID, StatusConfirmed, "", nil)
	assert.Equal(t, apperrors.CodeInvalidTransition, apperrors.CodeOf(err))
	assert.Equal(t, 3, f.stock(t, f.blue.ID))
}

func TestProductionStatusAutoPromotes(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()

	order, err := f.svc.CreateOrder(ctx, f.request(f.blueLine(1), CreateOrderItemRequest{ProductID: f.card.ID, Quantity: 1}), nil)
	require.NoError(t, err)
	first, second := order.Items[0].ID, order.Items[1].ID
	_, err = f.svc.TransitionStatus(ctx, order.ID, StatusConfirmed, "", nil)
	require.NoError(t, err)

	order, err = f.svc.UpdateItemProductionStatus(ctx, order.ID, first, &UpdateProductionRequest{Status: ProductionInProgress}, nil)
	require.NoError(t, err)
	assert.Equal(t, StatusInProduction, order.Status)

	order, err = f.svc.UpdateItemProductionStatus(ctx, order.ID, first, &UpdateProductionRequest{Status: ProductionCompleted}, nil)
	require.NoError(t, err)
	assert.Equal(t, StatusInProduction, order.Status)

	notes := "glaze ok"
	order, err = f.svc.UpdateItemProductionStatus(ctx, order.ID, second, &UpdateProductionRequest{Status: ProductionCompleted, Notes: &notes}, nil)
	require.NoError(t, err)
	assert.Equal(t, StatusReadyForPickup, order.Status)
	assert.Equal(t, "glaze ok", order.Items[1].Notes)

	last := order.StatusHistory[len(order.StatusHistory)-1]
	assert.True(t, last.Automatic)
	assert.Equal(t, StatusReadyForPickup, last.ToStatus)

	_, err = f.svc.UpdateItemProductionStatus(ctx, order.ID, 9999, &UpdateProductionRequest{Status: ProductionCompleted}, nil)
	assert.Equal(t, apperrors.CodeNotFound, apperrors.CodeOf(err))
	_, err = f.svc.UpdateItemProductionStatus(ctx, order.ID, first, &UpdateProductionRequest{Status: "DONE"}, nil)
	assert.Equal(t, apperrors.CodeValidation, apperrors.CodeOf(err))
}

func TestProductionCompletionWalksConfirmedToReady(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()

	order, err := f.svc.CreateOrder(ctx, f.request(f.blueLine(1)), nil)
	require.NoError(t, err)
	_, err = f.svc.TransitionStatus(ctx, order.ID, StatusConfirmed, "", nil)
	require.NoError(t, err)

	order, err = f.svc.UpdateItemProductionStatus(ctx, order.ID, order.Items[0].ID, &UpdateProductionRequest{Status: ProductionCompleted}, nil)
	require.NoError(t, err)
	assert.Equal(t, StatusReadyForPickup, order.Status)

	var automatic []OrderStatusHistory
	require.NoError(t, f.db.Where("order_id = ? AND automatic = ?", order.ID, true).Order("id ASC").Find(&automatic).Error)
	require.Len(t, automatic, 2)
	assert.Equal(t, StatusInProduction, automatic[0].ToStatus)
	assert.Equal(t, StatusReadyForPickup, automatic[1].ToStatus)
}

func TestPendingOrderIsNotAutoPromoted(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()

	order, err := f.svc.CreateOrder(ctx, f.request(f.blueLine(1)), nil)
	require.NoError(t, err)

	order, err = f.svc.UpdateItemProductionStatus(ctx, order.ID, order.Items[0].ID, &UpdateProductionRequest{Status: ProductionCompleted}, nil)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, order.Status)
	assert.Equal(t, ProductionCompleted, order.Items[0].ProductionStatus)
	assert.Len(t, order.StatusHistory, 1)

	_, err = f.svc.TransitionStatus(ctx, order.ID, StatusCancelled, "", nil)
	require.NoError(t, err)
	_, err = f.svc.UpdateItemProductionStatus(ctx, order.ID, order.Items[0].ID, &UpdateProductionRequest{Status: ProductionOnHold}, nil)
	assert.Equal(t, apperrors.CodeInvalidTransition, apperrors.CodeOf(err))
}

func TestUpdateTracking(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()
	order, err := f.svc.CreateOrder(ctx, f.request(f.blueLine(1)), nil)
	require.NoError(t, err)

	order, err = f.svc.UpdateTracking(ctx, order.ID, &UpdateTrackingRequest{TrackingNumber: " PK123ES ", ShippingCarrier: "Correos"})
	require.NoError(t, err)
	assert.Equal(t, "PK123ES", order.TrackingNumber)
	assert.Equal(t, "Correos", order.ShippingCarrier)

	_, err = f.svc.UpdateTracking(ctx, order.ID, &UpdateTrackingRequest{})
	assert.Equal(t, apperrors.CodeValidation, apperrors.CodeOf(err))
}

func TestDeleteRules(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()

	pending, err := f.svc.CreateOrder(ctx, f.request(f.blueLine(4)), nil)
	require.NoError(t, err)
	assert.Equal(t, 6, f.stock(t, f.blue.ID))
	require.NoError(t, f.svc.Delete(ctx, pending.ID, nil))
	assert.Equal(t, 10, f.stock(t, f.blue.ID))
	_, err = f.svc.Get(ctx, pending.ID)
	assert.Equal(t, apperrors.CodeNotFound, apperrors.CodeOf(err))
	assert.Zero(t, f.count(t, &OrderItem{}))

	confirmed, err := f.svc.CreateOrder(ctx, f.request(f.blueLine(1)), nil)
	require.NoError(t, err)
	_, err = f.svc.TransitionStatus(ctx, confirmed.ID, StatusConfirmed, "", nil)
	require.NoError(t, err)
	err = f.svc.Delete(ctx, confirmed.ID, nil)
	assert.Equal(t, apperrors.CodeInvalidTransition, apperrors.CodeOf(err))

	_, err = f.svc.TransitionStatus(ctx, confirmed.ID, StatusCancelled, "", nil)
	require.NoError(t, err)
	require.NoError(t, f.svc.Delete(ctx, confirmed.ID, nil))
	assert.Equal(t, 10, f.stock(t, f.blue.ID))

	rec, err := f.inventory.Reconcile(ctx, f.blue.ID)
	require.NoError(t, err)
	assert.True(t, rec.Consistent, rec.Issues)
	assert.Equal(t, 0, rec.NetOrderDebits)
}

func TestReservedStockMatchesOpenOrders(t *testing.T) {
	f := newFixture(t, 20)
	ctx := context.Background()

	a, err := f.svc.CreateOrder(ctx, f.request(f.blueLine(3)), nil)
	require.NoError(t, err)
	_, err = f.svc.CreateOrder(ctx, f.request(f.blueLine(5)), nil)
	require.NoError(t, err)
	_, err = f.svc.TransitionStatus(ctx, a.ID, StatusCancelled, "", nil)
	require.NoError(t, err)

	open, err := f.svc.OpenQuantityForVariant(ctx, f.blue.ID)
	require.NoError(t, err)
	rec, err := f.inventory.Reconcile(ctx, f.blue.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, open)
	assert.Equal(t, open, rec.NetOrderDebits)
	assert.True(t, rec.Consistent)
}

func TestListOrders(t *testing.T) {
	f := newFixture(t, 50)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := f.svc.CreateOrder(ctx, f.request(f.blueLine(1)), nil)
		require.NoError(t, err)
	}
	other := f.request(f.blueLine(1))
	other.CustomerName = "Luis Gómez"
	other.Email = "luis@example.com"
	luis, err := f.svc.CreateOrder(ctx, other, nil)
	require.NoError(t, err)
	_, err = f.svc.TransitionStatus(ctx, luis.ID, StatusConfirmed, "", nil)
	require.NoError(t, err)

	page, err := f.svc.List(ctx, &ListRequest{Page: 1, Limit: 2})
	require.NoError(t, err)
	assert.Len(t, page.Orders, 2)
	assert.Equal(t, int64(4), page.Pagination.Total)
	assert.Equal(t, 2, page.Pagination.TotalPages)
	assert.True(t, page.Pagination.HasNext)

	confirmed, err := f.svc.List(ctx, &ListRequest{Status: StatusConfirmed})
	require.NoError(t, err)
	require.Len(t, confirmed.Orders, 1)
	assert.Equal(t, luis.ID, confirmed.Orders[0].ID)

	search, err := f.svc.List(ctx, &ListRequest{Search: "LUIS@"})
	require.NoError(t, err)
	assert.Len(t, search.Orders, 1)

	_, err = f.svc.List(ctx, &ListRequest{DateFrom: "15/01/2024"})
	assert.Equal(t, apperrors.CodeValidation, apperrors.CodeOf(err))
}
