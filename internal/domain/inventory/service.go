// internal/domain/inventory/service.go
package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-backend/internal/domain/product"
	"github.com/your-org/storefront-backend/internal/pkg/apperrors"
	"github.com/your-org/storefront-backend/internal/pkg/database"
	"gorm.io/gorm"
)

// Service exposes the back-office stock operations
type Service struct {
	db       *gorm.DB
	ledger   *Ledger
	products product.Repository
	logger   logrus.FieldLogger
}

// NewService creates a new inventory service
func NewService(db *gorm.DB, ledger *Ledger, products product.Repository, logger logrus.FieldLogger) *Service {
	return &Service{
		db:       db,
		ledger:   ledger,
		products: products,
		logger:   logger,
	}
}

// AdjustStock records a physical count as an ADJUSTMENT movement
func (s *Service) AdjustStock(ctx context.Context, variantID uint, req *AdjustStockRequest, actorID *uint) (*AdjustResult, error) {
	if req == nil || req.Stock == nil {
		return nil, apperrors.New(apperrors.CodeValidation, "stock is required")
	}
	movement, variant, err := s.ledger.Adjust(ctx, nil, variantID, *req.Stock, req.Reason, actorID)
	if err != nil {
		return nil, err
	}

	if movement != nil {
		s.logger.WithFields(logrus.Fields{
			"variant_id": variantID,
			"sku":        variant.SKU,
			"from":       movement.StockBefore,
			"to":         movement.StockAfter,
		}).Info("stock adjusted")
	}
	return &AdjustResult{VariantID: variant.ID, Stock: variant.Stock, Movement: movement}, nil
}

// ReceiveStock books incoming goods as an IN movement
func (s *Service) ReceiveStock(ctx context.Context, variantID uint, req *ReceiveStockRequest, actorID *uint) (*AdjustResult, error) {
	if req == nil {
		return nil, apperrors.New(apperrors.CodeValidation, "quantity is required")
	}
	reason := req.Reason
	if reason == "" {
		reason = "stock received"
	}
	movement, err := s.ledger.Credit(ctx, nil, Entry{
		VariantID:     variantID,
		Quantity:      req.Quantity,
		Type:          MovementIn,
		Reason:        reason,
		ReferenceType: ReferenceReceipt,
		ActorID:       actorID,
	})
	if err != nil {
		return nil, err
	}
	return &AdjustResult{VariantID: variantID, Stock: movement.StockAfter, Movement: movement}, nil
}

// ListMovements returns a variant's ledger, newest first
func (s *Service) ListMovements(ctx context.Context, variantID uint, page, limit int) ([]StockMovement, int64, error) {
	if _, err := s.products.FindVariant(ctx, variantID); err != nil {
		return nil, 0, err
	}
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	query := s.db.WithContext(ctx).Model(&StockMovement{}).Where("variant_id = ?", variantID)
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, apperrors.Internal(err, "counting stock movements")
	}

	var movements []StockMovement
	err := query.Order("id DESC").Offset((page - 1) * limit).Limit(limit).Find(&movements).Error
	if err != nil {
		return nil, 0, apperrors.Internal(err, "listing stock movements")
	}
	return movements, total, nil
}

// Reconcile replays the movement chain and compares it with the stored stock
func (s *Service) Reconcile(ctx context.Context, variantID uint) (*Reconciliation, error) {
	variant, err := s.products.FindVariant(ctx, variantID)
	if err != nil {
		return nil, err
	}

	var movements []StockMovement
	if err := s.db.WithContext(ctx).Where("variant_id = ?", variantID).Order("id ASC").Find(&movements).Error; err != nil {
		return nil, apperrors.Internal(err, "loading stock movements")
	}

	rec := &Reconciliation{
		VariantID:     variant.ID,
		SKU:           variant.SKU,
		Stock:         variant.Stock,
		OpeningStock:  variant.Stock,
		MovementCount: int64(len(movements)),
	}
	if len(movements) > 0 {
		rec.OpeningStock = movements[0].StockBefore
	}

	running := rec.OpeningStock
	for i := range movements {
		m := &movements[i]
		if i > 0 && m.StockBefore != movements[i-1].StockAfter {
			rec.BrokenLinks = append(rec.BrokenLinks, m.ID)
		}
		if m.StockAfter != m.StockBefore+m.Delta() {
			rec.Issues = append(rec.Issues, fmt.Sprintf("movement %d: %d %+d != %d", m.ID, m.StockBefore, m.Delta(), m.StockAfter))
		}
		running += m.Delta()
		if m.ReferenceType == ReferenceOrder {
			rec.NetOrderDebits -= m.Delta()
		}
	}
	rec.LedgerStock = running

	if len(rec.BrokenLinks) > 0 {
		rec.Issues = append(rec.Issues, fmt.Sprintf("%d movements do not continue from the previous balance", len(rec.BrokenLinks)))
	}
	if rec.LedgerStock != rec.Stock {
		rec.Issues = append(rec.Issues, fmt.Sprintf("stored stock %d differs from ledger %d", rec.Stock, rec.LedgerStock))
	}
	rec.Consistent = len(rec.Issues) == 0
	return rec, nil
}

// ListAlerts returns open alerts, or all of them when includeResolved is set
func (s *Service) ListAlerts(ctx context.Context, includeResolved bool) ([]StockAlert, error) {
	query := s.db.WithContext(ctx).Order("created_at DESC")
	if !includeResolved {
		query = query.Where("is_resolved = ?", false)
	}
	var alerts []StockAlert
	if err := query.Find(&alerts).Error; err != nil {
		return nil, apperrors.Internal(err, "listing stock alerts")
	}
	return alerts, nil
}

// ResolveAlert acknowledges an alert by hand
func (s *Service) ResolveAlert(ctx context.Context, id uint) (*StockAlert, error) {
	var alert StockAlert
	if err := s.db.WithContext(ctx).First(&alert, id).Error; err != nil {
		if database.IsNotFound(err) {
			return nil, apperrors.Newf(apperrors.CodeNotFound, "stock alert %d not found", id)
		}
		return nil, apperrors.Internal(err, "loading stock alert")
	}
	if alert.IsResolved {
		return &alert, nil
	}
	now := time.Now().UTC()
	alert.IsResolved = true
	alert.ResolvedAt = &now
	if err := s.db.WithContext(ctx).Save(&alert).Error; err != nil {
		return nil, apperrors.Internal(err, "resolving stock alert")
	}
	return &alert, nil
}
