package inventory

import (
	"context"
	"math"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/storefront-backend/internal/domain/product"
	"github.com/your-org/storefront-backend/internal/pkg/apperrors"
	"github.com/your-org/storefront-backend/internal/pkg/database/dbtest"
	"github.com/your-org/storefront-backend/internal/pkg/logger"
	"github.com/your-org/storefront-backend/internal/pkg/outbox"
	"gorm.io/gorm"
)

type fixture struct {
	db      *gorm.DB
	ledger  *Ledger
	service *Service
	product *product.Product
	variant *product.ProductVariant
}

func newFixture(t *testing.T, stock int) *fixture {
	t.Helper()
	db := dbtest.NewTestDB(t,
		&product.Product{}, &product.ProductVariant{},
		&StockMovement{}, &StockAlert{}, &outbox.Event{},
	)
	p := &product.Product{SKU: "MUG", Name: "Mug", Slug: "mug", Price: decimal.RequireFromString("12.50"), IsActive: true}
	require.NoError(t, db.Create(p).Error)
	v := &product.ProductVariant{ProductID: p.ID, SKU: "SKU-001", Name: "Blue", Stock: stock, LowStockThreshold: 1, IsActive: true}
	require.NoError(t, db.Create(v).Error)

	repo := product.NewRepository(db)
	ledger := NewLedger(db, repo, outbox.NewEmitter(logger.Discard()), nil, logger.Discard(), 5)
	return &fixture{
		db:      db,
		ledger:  ledger,
		service: NewService(db, ledger, repo, logger.Discard()),
		product: p,
		variant: v,
	}
}

func (f *fixture) stock(t *testing.T) int {
	t.Helper()
	var v product.ProductVariant
	require.NoError(t, f.db.First(&v, f.variant.ID).Error)
	return v.Stock
}

func (f *fixture) movements(t *testing.T) []StockMovement {
	t.Helper()
	var ms []StockMovement
	require.NoError(t, f.db.Order("id ASC").Find(&ms).Error)
	return ms
}

func TestDebitRecordsOutMovement(t *testing.T) {
	f := newFixture(t, 10)
	orderID := uint(42)

	m, err := f.ledger.Debit(context.Background(), nil, Entry{
		VariantID:     f.variant.ID,
		Quantity:      4,
		Reason:        "order LV240115-001",
		ReferenceType: ReferenceOrder,
		ReferenceID:   &orderID,
	})
	require.NoError(t, err)
	assert.Equal(t, MovementOut, m.Type)
	assert.Equal(t, 4, m.Quantity)
	assert.Equal(t, -4, m.Delta())
	assert.Equal(t, 10, m.StockBefore)
	assert.Equal(t, 6, m.StockAfter)
	assert.Equal(t, 6, f.stock(t))
	assert.Len(t, f.movements(t), 1)
}

func TestDebitRejectsShortfallWithoutWriting(t *testing.T) {
	f := newFixture(t, 1)

	_, err := f.ledger.Debit(context.Background(), nil, Entry{VariantID: f.variant.ID, Quantity: 2})
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInsufficientStock))
	msg := apperrors.As(err).Message()
	assert.Contains(t, msg, "Mug - Blue")
	assert.Contains(t, msg, "SKU-001")
	assert.Contains(t, msg, "available 1, requested 2")

	assert.Equal(t, 1, f.stock(t))
	assert.Empty(t, f.movements(t))

	_, err = f.ledger.Debit(context.Background(), nil, Entry{VariantID: f.variant.ID, Quantity: 0})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))

	_, err = f.ledger.Debit(context.Background(), nil, Entry{VariantID: 999, Quantity: 1})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
}

func TestConcurrentDebitsNeverOversell(t *testing.T) {
	f := newFixture(t, 3)

	var ok, short int32
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.ledger.Debit(context.Background(), nil, Entry{VariantID: f.variant.ID, Quantity: 1})
			switch {
			case err == nil:
				atomic.AddInt32(&ok, 1)
			case apperrors.HasCode(err, apperrors.CodeInsufficientStock):
				atomic.AddInt32(&short, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(3), ok)
	assert.Equal(t, int32(7), short)
	assert.Equal(t, 0, f.stock(t))
	assert.Len(t, f.movements(t), 3)
}

func TestCreditTypes(t *testing.T) {
	f := newFixture(t, 2)
	ctx := context.Background()

	m, err := f.ledger.Credit(ctx, nil, Entry{VariantID: f.variant.ID, Quantity: 3, Type: MovementReturn, Reason: "order cancelled"})
	require.NoError(t, err)
	assert.Equal(t, MovementReturn, m.Type)
	assert.Equal(t, 5, m.StockAfter)

	m, err = f.ledger.Credit(ctx, nil, Entry{VariantID: f.variant.ID, Quantity: 1})
	require.NoError(t, err)
	assert.Equal(t, MovementIn, m.Type)

	_, err = f.ledger.Credit(ctx, nil, Entry{VariantID: f.variant.ID, Quantity: 1, Type: MovementOut})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))
	assert.Equal(t, 6, f.stock(t))
}

func TestLedgerWritesRollBackWithCallerTransaction(t *testing.T) {
	f := newFixture(t, 5)

	err := f.db.Transaction(func(tx *gorm.DB) error {
		if _, err := f.ledger.Debit(context.Background(), tx, Entry{VariantID: f.variant.ID, Quantity: 2}); err != nil {
			return err
		}
		_, err := f.ledger.Debit(context.Background(), tx, Entry{VariantID: f.variant.ID, Quantity: 9})
		return err
	})
	require.Error(t, err)
	assert.Equal(t, 5, f.stock(t))
	assert.Empty(t, f.movements(t))
}

// movingRepo changes the stored stock right after the row is read, the way a
// writer that ignored the row lock would.
type movingRepo struct {
	product.Repository
	db      *gorm.DB
	stockTo int
}

func (r *movingRepo) WithTx(tx *gorm.DB) product.Repository {
	return &movingRepo{Repository: r.Repository.WithTx(tx), db: tx, stockTo: r.stockTo}
}

func (r *movingRepo) LockVariant(ctx context.Context, id uint) (*product.ProductVariant, error) {
	v, err := r.Repository.LockVariant(ctx, id)
	if err != nil {
		return nil, err
	}
	err = r.db.WithContext(ctx).Model(&product.ProductVariant{}).Where("id = ?", id).UpdateColumn("stock", r.stockTo).Error
	if err != nil {
		return nil, err
	}
	return v, nil
}

func TestLedgerDetectsStockChangedAfterRead(t *testing.T) {
	f := newFixture(t, 5)
	ctx := context.Background()
	ledger := NewLedger(f.db, &movingRepo{Repository: product.NewRepository(f.db), stockTo: 1},
		outbox.NewEmitter(logger.Discard()), nil, logger.Discard(), 5)

	_, err := ledger.Debit(ctx, nil, Entry{VariantID: f.variant.ID, Quantity: 3})
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInsufficientStock))
	assert.Contains(t, err.Error(), "requested 3")

	_, err = ledger.Credit(ctx, nil, Entry{VariantID: f.variant.ID, Quantity: 2})
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInternal))
	assert.Contains(t, err.Error(), "changed concurrently")

	// The interleaved write rolled back with the failed transaction.
	assert.Equal(t, 5, f.stock(t))
	assert.Empty(t, f.movements(t))
}

func TestAdjust(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()
	actor := uint(7)

	m, v, err := f.ledger.Adjust(ctx, nil, f.variant.ID, 7, "cycle count", &actor)
	require.NoError(t, err)
	assert.Equal(t, MovementAdjustment, m.Type)
	assert.Equal(t, -3, m.Delta())
	assert.Equal(t, 7, v.Stock)
	assert.Equal(t, &actor, m.ActorID)

	m, _, err = f.ledger.Adjust(ctx, nil, f.variant.ID, 12, "found a box", nil)
	require.NoError(t, err)
	assert.Equal(t, 5, m.Delta())

	m, _, err = f.ledger.Adjust(ctx, nil, f.variant.ID, 12, "recount", nil)
	require.NoError(t, err)
	assert.Nil(t, m)

	_, _, err = f.ledger.Adjust(ctx, nil, f.variant.ID, -1, "bad", nil)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))
	assert.Len(t, f.movements(t), 2)
}

func TestStockAlertsFollowStockLevel(t *testing.T) {
	f := newFixture(t, 3)
	ctx := context.Background()
	require.NoError(t, f.db.Model(&product.ProductVariant{}).Where("id = ?", f.variant.ID).Update("low_stock_threshold", 2).Error)

	openAlerts := func() []StockAlert {
		alerts, err := f.service.ListAlerts(ctx, false)
		require.NoError(t, err)
		return alerts
	}

	_, err := f.ledger.Debit(ctx, nil, Entry{VariantID: f.variant.ID, Quantity: 1})
	require.NoError(t, err)
	alerts := openAlerts()
	require.Len(t, alerts, 1)
	assert.Equal(t, AlertLowStock, alerts[0].AlertType)
	assert.Contains(t, alerts[0].Message, "SKU-001")
	assert.Equal(t, 2, alerts[0].Threshold)

	// still low, no duplicate
	_, err = f.ledger.Debit(ctx, nil, Entry{VariantID: f.variant.ID, Quantity: 1})
	require.NoError(t, err)
	require.Len(t, openAlerts(), 1)

	_, err = f.ledger.Debit(ctx, nil, Entry{VariantID: f.variant.ID, Quantity: 1})
	require.NoError(t, err)
	alerts = openAlerts()
	require.Len(t, alerts, 1)
	assert.Equal(t, AlertOutOfStock, alerts[0].AlertType)

	_, err = f.ledger.Credit(ctx, nil, Entry{VariantID: f.variant.ID, Quantity: 10})
	require.NoError(t, err)
	assert.Empty(t, openAlerts())

	all, err := f.service.ListAlerts(ctx, true)
	require.NoError(t, err)
	require.Len(t, all, 2)
	for _, a := range all {
		assert.True(t, a.IsResolved)
		assert.NotNil(t, a.ResolvedAt)
	}

	var events []outbox.Event
	require.NoError(t, f.db.Where("event_type = ?", outbox.EventStockLow).Find(&events).Error)
	assert.Len(t, events, 2)

	resolved, err := f.service.ResolveAlert(ctx, all[0].ID)
	require.NoError(t, err)
	assert.True(t, resolved.IsResolved)
	_, err = f.service.ResolveAlert(ctx, 999)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
}

func TestReconcile(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()
	orderID := uint(1)

	_, err := f.ledger.Debit(ctx, nil, Entry{VariantID: f.variant.ID, Quantity: 4, ReferenceType: ReferenceOrder, ReferenceID: &orderID})
	require.NoError(t, err)
	_, err = f.ledger.Credit(ctx, nil, Entry{VariantID: f.variant.ID, Quantity: 1, Type: MovementReturn, ReferenceType: ReferenceOrder, ReferenceID: &orderID})
	require.NoError(t, err)
	_, _, err = f.ledger.Adjust(ctx, nil, f.variant.ID, 8, "count", nil)
	require.NoError(t, err)

	rec, err := f.service.Reconcile(ctx, f.variant.ID)
	require.NoError(t, err)
	assert.True(t, rec.Consistent, rec.Issues)
	assert.Equal(t, 10, rec.OpeningStock)
	assert.Equal(t, 8, rec.LedgerStock)
	assert.Equal(t, 3, rec.NetOrderDebits)
	assert.Equal(t, int64(3), rec.MovementCount)

	// a write that bypassed the ledger
	require.NoError(t, f.db.Model(&product.ProductVariant{}).Where("id = ?", f.variant.ID).Update("stock", 20).Error)
	rec, err = f.service.Reconcile(ctx, f.variant.ID)
	require.NoError(t, err)
	assert.False(t, rec.Consistent)
	assert.Equal(t, 20, rec.Stock)
	assert.Equal(t, 8, rec.LedgerStock)
}

func TestServiceAdjustAndReceive(t *testing.T) {
	f := newFixture(t, 4)
	ctx := context.Background()
	actor := uint(2)
	stock := 9

	res, err := f.service.AdjustStock(ctx, f.variant.ID, &AdjustStockRequest{Stock: &stock, Reason: "count"}, &actor)
	require.NoError(t, err)
	assert.Equal(t, 9, res.Stock)
	require.NotNil(t, res.Movement)

	res, err = f.service.ReceiveStock(ctx, f.variant.ID, &ReceiveStockRequest{Quantity: 6}, &actor)
	require.NoError(t, err)
	assert.Equal(t, 15, res.Stock)
	assert.Equal(t, "stock received", res.Movement.Reason)
	assert.Equal(t, ReferenceReceipt, res.Movement.ReferenceType)

	movements, total, err := f.service.ListMovements(ctx, f.variant.ID, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, movements, 1)
	assert.Equal(t, MovementIn, movements[0].Type)

	_, _, err = f.service.ListMovements(ctx, 999, 1, 10)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
}

func TestValidatorReportsEveryLine(t *testing.T) {
	f := newFixture(t, 1)
	ctx := context.Background()

	inactive := &product.ProductVariant{ProductID: f.product.ID, SKU: "SKU-002", Name: "Red", Stock: 5, LowStockThreshold: 1, IsActive: false}
	require.NoError(t, f.db.Create(inactive).Error)
	missing := uint(999)

	v := NewValidator(product.NewRepository(f.db))
	res, err := v.Validate(ctx, nil, []LineRequest{
		{ProductID: f.product.ID, VariantID: &f.variant.ID, Quantity: 2},
		{ProductID: f.product.ID, VariantID: &inactive.ID, Quantity: 1},
		{ProductID: f.product.ID, VariantID: &missing, Quantity: 1},
		{ProductID: f.product.ID, VariantID: &f.variant.ID, Quantity: 0},
	})
	require.NoError(t, err)
	assert.False(t, res.Valid)
	require.Len(t, res.Errors, 4)
	assert.Equal(t, `Insufficient stock for "Mug - Blue" (SKU SKU-001): available 1, requested 2`, res.Errors[0])
	assert.Contains(t, res.Errors[1], "SKU-002")
	assert.Contains(t, res.Errors[1], "not available")
	assert.Equal(t, "Variant 999 not found", res.Errors[2])
	assert.Contains(t, res.Errors[3], "quantity")

	err = res.Err()
	assert.Equal(t, apperrors.CodeValidation, apperrors.CodeOf(err))
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInsufficientStock))
	assert.Equal(t, res.Errors, apperrors.As(err).Details())
}

func TestValidatorRejectsOversizedQuantities(t *testing.T) {
	f := newFixture(t, 3)
	v := NewValidator(product.NewRepository(f.db))

	res, err := v.Validate(context.Background(), nil, []LineRequest{
		{VariantID: &f.variant.ID, Quantity: 1},
		{VariantID: &f.variant.ID, Quantity: math.MaxInt},
		{ProductID: f.product.ID, Quantity: MaxLineQuantity + 1},
	})
	require.NoError(t, err)
	assert.False(t, res.Valid)
	require.Len(t, res.Failures, 2)
	assert.Equal(t, 1, res.Failures[0].Index)
	assert.Equal(t, apperrors.CodeValidation, res.Failures[0].Code)
	assert.Contains(t, res.Failures[0].Message, "at most")
	assert.Equal(t, 2, res.Failures[1].Index)
	assert.Equal(t, 3, f.stock(t))
}

func TestValidatorSumsRepeatedVariants(t *testing.T) {
	f := newFixture(t, 3)
	v := NewValidator(product.NewRepository(f.db))

	res, err := v.Validate(context.Background(), nil, []LineRequest{
		{VariantID: &f.variant.ID, Quantity: 2},
		{VariantID: &f.variant.ID, Quantity: 2},
	})
	require.NoError(t, err)
	assert.False(t, res.Valid)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, 1, res.Failures[0].Index)
	assert.Equal(t, 4, res.Failures[0].Requested)
	assert.Equal(t, 3, res.Failures[0].Available)
}

func TestValidatorResolvesPricesAndLocksInTransaction(t *testing.T) {
	f := newFixture(t, 3)
	override := &product.ProductVariant{
		ProductID: f.product.ID, SKU: "SKU-003", Name: "Gold", Stock: 2, LowStockThreshold: 1, IsActive: true,
		Price: decimal.NewNullDecimal(decimal.RequireFromString("19.90")),
	}
	require.NoError(t, f.db.Create(override).Error)
	v := NewValidator(product.NewRepository(f.db))

	require.NoError(t, f.db.Transaction(func(tx *gorm.DB) error {
		res, err := v.Validate(context.Background(), tx, []LineRequest{
			{ProductID: f.product.ID, VariantID: &f.variant.ID, Quantity: 3},
			{ProductID: f.product.ID, VariantID: &override.ID, Quantity: 1},
			{ProductID: f.product.ID, Quantity: 1},
		})
		require.NoError(t, err)
		require.True(t, res.Valid, res.Errors)
		require.NoError(t, res.Err())
		require.Len(t, res.Lines, 3)
		assert.Equal(t, "12.5", res.Lines[0].UnitPrice.String())
		assert.Equal(t, "19.9", res.Lines[1].UnitPrice.String())
		assert.Nil(t, res.Lines[2].Variant)
		assert.Equal(t, "12.5", res.Lines[2].UnitPrice.String())
		return nil
	}))

	res, err := v.Validate(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.False(t, res.Valid)
	assert.Equal(t, []string{"order must contain at least one item"}, res.Errors)

	res, err = v.Validate(context.Background(), nil, []LineRequest{{ProductID: 999, Quantity: 1}})
	require.NoError(t, err)
	assert.Equal(t, []string{"Product 999 not found"}, res.Errors)
}
