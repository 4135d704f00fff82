// internal/domain/sequence/allocator.go
package sequence

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/your-org/storefront-backend/internal/pkg/apperrors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrTransactionRequired is returned when Next is called without a transaction.
var ErrTransactionRequired = errors.New("sequence: transaction required")

// Counter is one numbering scope, e.g. "order:20240115" or "invoice:2024".
type Counter struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Scope        string    `gorm:"uniqueIndex;not null;size:100" json:"scope"`
	CurrentValue int64     `gorm:"not null" json:"current_value"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (Counter) TableName() string { return "sequence_counters" }

// Allocator hands out gap-free values per scope. The increment takes the
// counter row lock, so the value is reserved until the caller's transaction
// ends and is released again on rollback.
type Allocator struct {
	clock func() time.Time
}

func NewAllocator() *Allocator {
	return &Allocator{clock: time.Now}
}

// Next increments scope inside tx and returns the new value.
func (a *Allocator) Next(ctx context.Context, tx *gorm.DB, scope string) (int64, error) {
	if tx == nil {
		return 0, ErrTransactionRequired
	}
	scope = strings.TrimSpace(scope)
	if scope == "" {
		return 0, apperrors.New(apperrors.CodeValidation, "sequence scope is required")
	}

	now := a.clock().UTC()
	seed := Counter{Scope: scope, CurrentValue: 1, UpdatedAt: now}
	err := tx.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "scope"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"current_value": gorm.Expr("sequence_counters.current_value + 1"),
			"updated_at":    now,
		}),
	}).Create(&seed).Error
	if err != nil {
		return 0, apperrors.Internal(err, fmt.Sprintf("incrementing sequence %s", scope))
	}

	var current Counter
	if err := tx.WithContext(ctx).Where("scope = ?", scope).First(&current).Error; err != nil {
		return 0, apperrors.Internal(err, fmt.Sprintf("reading sequence %s", scope))
	}
	return current.CurrentValue, nil
}

// Peek returns the last allocated value for scope without reserving one.
func (a *Allocator) Peek(ctx context.Context, db *gorm.DB, scope string) (int64, error) {
	var current Counter
	err := db.WithContext(ctx).Where("scope = ?", scope).Limit(1).Find(&current).Error
	if err != nil {
		return 0, apperrors.Internal(err, "reading sequence")
	}
	return current.CurrentValue, nil
}
