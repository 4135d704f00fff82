// internal/domain/inventory/entity.go
package inventory

import (
	"time"
)

// MovementType enum
type MovementType string

const (
	MovementIn         MovementType = "IN"
	MovementOut        MovementType = "OUT"
	MovementAdjustment MovementType = "ADJUSTMENT"
	MovementReturn     MovementType = "RETURN"
)

// Reference types recorded on movements
const (
	ReferenceOrder      = "order"
	ReferenceAdjustment = "adjustment"
	ReferenceReceipt    = "receipt"
)

// Alert types
const (
	AlertLowStock   = "low_stock"
	AlertOutOfStock = "out_of_stock"
)

// StockMovement is one append-only ledger line. Rows are never updated or deleted.
type StockMovement struct {
	ID            uint         `gorm:"primaryKey" json:"id"`
	VariantID     uint         `gorm:"not null;index:idx_stock_movements_variant_created,priority:1" json:"variant_id"`
	Type          MovementType `gorm:"size:20;not null" json:"type"`
	Quantity      int          `gorm:"not null;check:chk_stock_movements_quantity,quantity > 0" json:"quantity"`
	Direction     int          `gorm:"not null" json:"direction"` // +1 credit, -1 debit
	StockBefore   int          `gorm:"not null" json:"stock_before"`
	StockAfter    int          `gorm:"not null" json:"stock_after"`
	Reason        string       `gorm:"size:255" json:"reason"`
	ReferenceType string       `gorm:"size:50;index:idx_stock_movements_reference,priority:1" json:"reference_type,omitempty"`
	ReferenceID   *uint        `gorm:"index:idx_stock_movements_reference,priority:2" json:"reference_id,omitempty"`
	ActorID       *uint        `gorm:"index" json:"actor_id,omitempty"`
	CreatedAt     time.Time    `gorm:"index:idx_stock_movements_variant_created,priority:2" json:"created_at"`
}

// StockAlert is raised when a variant falls to or below its threshold
type StockAlert struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	VariantID  uint       `gorm:"not null;index" json:"variant_id"`
	AlertType  string     `gorm:"size:50;not null" json:"alert_type"`
	Message    string     `gorm:"type:text;not null" json:"message"`
	Stock      int        `gorm:"not null" json:"stock"`
	Threshold  int        `gorm:"not null" json:"threshold"`
	IsResolved bool       `gorm:"not null" json:"is_resolved"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

func (StockMovement) TableName() string { return "stock_movements" }
func (StockAlert) TableName() string    { return "stock_alerts" }

// Delta is the signed stock change of the movement
func (m *StockMovement) Delta() int {
	return m.Direction * m.Quantity
}

// Entry describes a single ledger write.
type Entry struct {
	VariantID     uint
	Quantity      int
	Type          MovementType // Credit only: IN or RETURN, defaults to IN
	Reason        string
	ReferenceType string
	ReferenceID   *uint
	ActorID       *uint
}

// Request DTOs

type AdjustStockRequest struct {
	Stock  *int   `json:"stock" binding:"required,min=0"`
	Reason string `json:"reason" binding:"required,max=255"`
}

type ReceiveStockRequest struct {
	Quantity int    `json:"quantity" binding:"required,min=1"`
	Reason   string `json:"reason" binding:"max=255"`
}

// AdjustResult is returned by AdjustStock. Movement is nil when the count already matched.
type AdjustResult struct {
	VariantID uint           `json:"variant_id"`
	Stock     int            `json:"stock"`
	Movement  *StockMovement `json:"movement"`
}

// Reconciliation compares the stored stock with the movement chain.
type Reconciliation struct {
	VariantID     uint   `json:"variant_id"`
	SKU           string `json:"sku"`
	Stock         int    `json:"stock"`
	OpeningStock  int    `json:"opening_stock"`
	LedgerStock   int    `json:"ledger_stock"`
	MovementCount int64  `json:"movement_count"`
	// NetOrderDebits is order-referenced OUT minus order-referenced RETURN/IN.
	NetOrderDebits int      `json:"net_order_debits"`
	BrokenLinks    []uint   `json:"broken_links,omitempty"`
	Consistent     bool     `json:"consistent"`
	Issues         []string `json:"issues,omitempty"`
}
