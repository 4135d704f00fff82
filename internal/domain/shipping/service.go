// internal/domain/shipping/service.go
package shipping

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-backend/internal/pkg/apperrors"
	"github.com/your-org/storefront-backend/internal/pkg/money"
	"gorm.io/gorm"
)

// Method represents a shipping option
type Method struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	Code          string          `gorm:"uniqueIndex;not null;size:50" json:"code"`
	Name          string          `gorm:"not null;size:100" json:"name"`
	Description   string          `gorm:"size:255" json:"description"`
	Carrier       string          `gorm:"size:100" json:"carrier"`
	EstimatedDays string          `gorm:"size:50" json:"estimated_days"`
	Price         decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"price"`
	IsActive      bool            `gorm:"not null" json:"is_active"`
	SortOrder     int             `gorm:"not null;default:0" json:"sort_order"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

func (Method) TableName() string { return "shipping_methods" }

// DefaultMethods are seeded on first migration
func DefaultMethods() []Method {
	return []Method{
		{Code: "pickup", Name: "Store Pickup", Description: "Collect from the workshop", EstimatedDays: "When ready", Price: decimal.Zero, IsActive: true, SortOrder: 1},
		{Code: "standard", Name: "Standard Shipping", Description: "Regular delivery in 3-5 business days", Carrier: "Correos", EstimatedDays: "3-5 business days", Price: decimal.RequireFromString("4.95"), IsActive: true, SortOrder: 2},
		{Code: "express", Name: "Express Shipping", Description: "Delivery in 24-48 hours", Carrier: "SEUR", EstimatedDays: "1-2 business days", Price: decimal.RequireFromString("9.95"), IsActive: true, SortOrder: 3},
	}
}

// Service resolves shipping methods and prices
type Service struct {
	db     *gorm.DB
	logger logrus.FieldLogger
}

func NewService(db *gorm.DB, logger logrus.FieldLogger) *Service {
	return &Service{db: db, logger: logger}
}

// List returns the active methods in display order
func (s *Service) List(ctx context.Context) ([]Method, error) {
	var methods []Method
	err := s.db.WithContext(ctx).Where("is_active = ?", true).Order("sort_order ASC, id ASC").Find(&methods).Error
	if err != nil {
		return nil, apperrors.Internal(err, "listing shipping methods")
	}
	return methods, nil
}

// Quote returns the price for code. An empty, unknown or inactive code costs
// zero; the order is still accepted.
func (s *Service) Quote(ctx context.Context, tx *gorm.DB, code string) (decimal.Decimal, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return decimal.Zero, nil
	}
	db := s.db
	if tx != nil {
		db = tx
	}

	var m Method
	err := db.WithContext(ctx).Where("code = ? AND is_active = ?", code, true).Limit(1).Find(&m).Error
	if err != nil {
		return decimal.Zero, apperrors.Internal(err, "loading shipping method")
	}
	if m.ID == 0 {
		if s.logger != nil {
			s.logger.WithField("shipping_method", code).Warn("unknown shipping method, charging zero")
		}
		return decimal.Zero, nil
	}
	return money.Round(m.Price), nil
}
