// internal/domain/product/entity.go
package product

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Product represents the product entity
type Product struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	SKU         string          `gorm:"uniqueIndex;not null;size:100" json:"sku"`
	Name        string          `gorm:"not null;size:255" json:"name"`
	Slug        string          `gorm:"uniqueIndex;not null;size:255" json:"slug"`
	Description string          `gorm:"type:text" json:"description"`
	Price       decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"price"`
	IsActive    bool            `gorm:"not null" json:"is_active"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	DeletedAt   gorm.DeletedAt  `gorm:"index" json:"-"`

	// Relationships
	Variants []ProductVariant `gorm:"foreignKey:ProductID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"variants,omitempty"`
}

// ProductVariant is a sellable SKU. Stock is only written by the stock ledger.
type ProductVariant struct {
	ID                uint                `gorm:"primaryKey" json:"id"`
	ProductID         uint                `gorm:"not null;index" json:"product_id"`
	SKU               string              `gorm:"uniqueIndex;not null;size:100" json:"sku"`
	Name              string              `gorm:"not null;size:255" json:"name"`
	Price             decimal.NullDecimal `gorm:"type:numeric(12,2)" json:"price"` // Overrides product price when set
	Stock             int                 `gorm:"not null;default:0;check:chk_product_variants_stock,stock >= 0" json:"stock"`
	LowStockThreshold int                 `gorm:"not null;default:5" json:"low_stock_threshold"`
	IsActive          bool                `gorm:"not null" json:"is_active"`
	CreatedAt         time.Time           `json:"created_at"`
	UpdatedAt         time.Time           `json:"updated_at"`
	DeletedAt         gorm.DeletedAt      `gorm:"index" json:"-"`

	Product *Product `gorm:"foreignKey:ProductID" json:"product,omitempty"`
}

// TableName overrides
func (Product) TableName() string        { return "products" }
func (ProductVariant) TableName() string { return "product_variants" }

// UnitPrice returns the variant override or the product price
func (v *ProductVariant) UnitPrice(p *Product) decimal.Decimal {
	if v.Price.Valid {
		return v.Price.Decimal
	}
	if p != nil {
		return p.Price
	}
	if v.Product != nil {
		return v.Product.Price
	}
	return decimal.Zero
}

// DisplayName is "Product - Variant" when the product is loaded
func (v *ProductVariant) DisplayName() string {
	if v.Product == nil || v.Product.Name == "" {
		return v.Name
	}
	if v.Name == "" || v.Name == v.Product.Name {
		return v.Product.Name
	}
	return v.Product.Name + " - " + v.Name
}
