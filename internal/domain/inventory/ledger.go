// internal/domain/inventory/ledger.go
package inventory

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-backend/internal/domain/product"
	"github.com/your-org/storefront-backend/internal/pkg/apperrors"
	"github.com/your-org/storefront-backend/internal/pkg/metrics"
	"github.com/your-org/storefront-backend/internal/pkg/outbox"
	"gorm.io/gorm"
)

// EventEmitter queues outbox events inside a transaction
type EventEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) (*outbox.Event, error)
}

// Ledger is the only writer of ProductVariant.Stock. Every change appends a
// StockMovement in the same transaction, so stock always equals the opening
// balance plus the sum of movement deltas.
type Ledger struct {
	db               *gorm.DB
	products         product.Repository
	emitter          EventEmitter
	metrics          *metrics.EngineMetrics
	logger           logrus.FieldLogger
	defaultThreshold int
	now              func() time.Time
}

func NewLedger(db *gorm.DB, products product.Repository, emitter EventEmitter, m *metrics.EngineMetrics, logger logrus.FieldLogger, defaultThreshold int) *Ledger {
	return &Ledger{
		db:               db,
		products:         products,
		emitter:          emitter,
		metrics:          m,
		logger:           logger,
		defaultThreshold: defaultThreshold,
		now:              time.Now,
	}
}

// ShortageMessage is the client-facing text for a stock shortfall.
func ShortageMessage(v *product.ProductVariant, available, requested int) string {
	return fmt.Sprintf("Insufficient stock for %q (SKU %s): available %d, requested %d",
		v.DisplayName(), v.SKU, available, requested)
}

// Debit removes stock. It fails with InsufficientStock rather than let stock go negative.
func (l *Ledger) Debit(ctx context.Context, tx *gorm.DB, e Entry) (*StockMovement, error) {
	if e.Quantity <= 0 {
		return nil, apperrors.Newf(apperrors.CodeValidation, "debit quantity must be positive, got %d", e.Quantity)
	}
	var movement *StockMovement
	err := l.inTx(ctx, tx, func(tx *gorm.DB) error {
		v, err := l.products.WithTx(tx).LockVariant(ctx, e.VariantID)
		if err != nil {
			return err
		}
		if v.Stock < e.Quantity {
			return apperrors.New(apperrors.CodeInsufficientStock, ShortageMessage(v, v.Stock, e.Quantity))
		}
		movement, err = l.apply(ctx, tx, v, MovementOut, v.Stock-e.Quantity, e)
		return err
	})
	if err != nil {
		return nil, err
	}
	return movement, nil
}

// Credit adds stock back as an IN or RETURN movement.
func (l *Ledger) Credit(ctx context.Context, tx *gorm.DB, e Entry) (*StockMovement, error) {
	if e.Quantity <= 0 {
		return nil, apperrors.Newf(apperrors.CodeValidation, "credit quantity must be positive, got %d", e.Quantity)
	}
	typ := e.Type
	switch typ {
	case "":
		typ = MovementIn
	case MovementIn, MovementReturn:
	default:
		return nil, apperrors.Newf(apperrors.CodeValidation, "credit cannot record a %s movement", typ)
	}
	var movement *StockMovement
	err := l.inTx(ctx, tx, func(tx *gorm.DB) error {
		v, err := l.products.WithTx(tx).LockVariant(ctx, e.VariantID)
		if err != nil {
			return err
		}
		movement, err = l.apply(ctx, tx, v, typ, v.Stock+e.Quantity, e)
		return err
	})
	if err != nil {
		return nil, err
	}
	return movement, nil
}

// Adjust sets stock to an absolute count found by a physical check. A matching
// count records nothing and returns a nil movement.
func (l *Ledger) Adjust(ctx context.Context, tx *gorm.DB, variantID uint, newStock int, reason string, actorID *uint) (*StockMovement, *product.ProductVariant, error) {
	if newStock < 0 {
		return nil, nil, apperrors.Newf(apperrors.CodeValidation, "stock cannot be negative, got %d", newStock)
	}
	var (
		movement *StockMovement
		variant  *product.ProductVariant
	)
	err := l.inTx(ctx, tx, func(tx *gorm.DB) error {
		v, err := l.products.WithTx(tx).LockVariant(ctx, variantID)
		if err != nil {
			return err
		}
		variant = v
		if v.Stock == newStock {
			return nil
		}
		movement, err = l.apply(ctx, tx, v, MovementAdjustment, newStock, Entry{
			VariantID:     variantID,
			Reason:        reason,
			ReferenceType: ReferenceAdjustment,
			ActorID:       actorID,
		})
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return movement, variant, nil
}

func (l *Ledger) inTx(ctx context.Context, tx *gorm.DB, fn func(tx *gorm.DB) error) error {
	if tx != nil {
		return fn(tx)
	}
	return l.db.WithContext(ctx).Transaction(fn)
}

// apply moves v from its current stock to target, guarded by a compare-and-set
// on the previous value, and appends the movement.
func (l *Ledger) apply(ctx context.Context, tx *gorm.DB, v *product.ProductVariant, typ MovementType, target int, e Entry) (*StockMovement, error) {
	before := v.Stock
	delta := target - before
	now := l.now().UTC()

	res := tx.WithContext(ctx).Unscoped().Model(&product.ProductVariant{}).
		Where("id = ? AND stock = ?", v.ID, before).
		Updates(map[string]interface{}{
			"stock":      target,
			"updated_at": now,
		})
	if res.Error != nil {
		return nil, apperrors.Internal(res.Error, "updating stock")
	}
	if res.RowsAffected == 0 {
		// Another writer moved stock between our read and write.
		if delta < 0 {
			return nil, apperrors.New(apperrors.CodeInsufficientStock, ShortageMessage(v, before, -delta))
		}
		return nil, apperrors.Newf(apperrors.CodeInternal, "stock for variant %d changed concurrently", v.ID)
	}
	v.Stock = target

	direction := 1
	quantity := delta
	if delta < 0 {
		direction = -1
		quantity = -delta
	}
	movement := &StockMovement{
		VariantID:     v.ID,
		Type:          typ,
		Quantity:      quantity,
		Direction:     direction,
		StockBefore:   before,
		StockAfter:    target,
		Reason:        e.Reason,
		ReferenceType: e.ReferenceType,
		ReferenceID:   e.ReferenceID,
		ActorID:       e.ActorID,
		CreatedAt:     now,
	}
	if err := tx.WithContext(ctx).Create(movement).Error; err != nil {
		return nil, apperrors.Internal(err, "recording stock movement")
	}

	if err := l.syncAlert(ctx, tx, v); err != nil {
		return nil, err
	}

	l.metrics.IncStockMovement(string(typ))
	if l.logger != nil {
		l.logger.WithFields(logrus.Fields{
			"variant_id":     v.ID,
			"sku":            v.SKU,
			"movement_type":  typ,
			"delta":          delta,
			"stock_after":    target,
			"reference_type": e.ReferenceType,
		}).Debug("stock movement recorded")
	}
	return movement, nil
}

func (l *Ledger) thresholdFor(v *product.ProductVariant) int {
	if v.LowStockThreshold > 0 {
		return v.LowStockThreshold
	}
	return l.defaultThreshold
}

// syncAlert opens, escalates or resolves the variant's stock alert.
func (l *Ledger) syncAlert(ctx context.Context, tx *gorm.DB, v *product.ProductVariant) error {
	threshold := l.thresholdFor(v)
	now := l.now().UTC()

	var open StockAlert
	if err := tx.WithContext(ctx).
		Where("variant_id = ? AND is_resolved = ?", v.ID, false).
		Order("id DESC").Limit(1).
		Find(&open).Error; err != nil {
		return apperrors.Internal(err, "loading stock alert")
	}

	resolveOpen := func() error {
		err := tx.WithContext(ctx).Model(&StockAlert{}).
			Where("variant_id = ? AND is_resolved = ?", v.ID, false).
			Updates(map[string]interface{}{"is_resolved": true, "resolved_at": now}).Error
		if err != nil {
			return apperrors.Internal(err, "resolving stock alert")
		}
		return nil
	}

	if v.Stock > threshold {
		if open.ID != 0 {
			return resolveOpen()
		}
		return nil
	}

	alertType := AlertLowStock
	message := fmt.Sprintf("%s (SKU %s) is running low: %d left, threshold %d", v.DisplayName(), v.SKU, v.Stock, threshold)
	if v.Stock <= 0 {
		alertType = AlertOutOfStock
		message = fmt.Sprintf("%s (SKU %s) is out of stock", v.DisplayName(), v.SKU)
	}
	if open.ID != 0 {
		if open.AlertType == alertType {
			return nil
		}
		if err := resolveOpen(); err != nil {
			return err
		}
	}

	alert := &StockAlert{
		VariantID: v.ID,
		AlertType: alertType,
		Message:   message,
		Stock:     v.Stock,
		Threshold: threshold,
	}
	if err := tx.WithContext(ctx).Create(alert).Error; err != nil {
		return apperrors.Internal(err, "creating stock alert")
	}
	if l.emitter == nil {
		return nil
	}
	_, err := l.emitter.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     outbox.EventStockLow,
		AggregateType: outbox.AggregateVariant,
		AggregateID:   strconv.FormatUint(uint64(v.ID), 10),
		Data: outbox.StockLowData{
			VariantID: v.ID,
			SKU:       v.SKU,
			Name:      v.DisplayName(),
			Stock:     v.Stock,
			Threshold: threshold,
			AlertType: alertType,
		},
	})
	if err != nil {
		return apperrors.Internal(err, "queueing stock alert event")
	}
	return nil
}
