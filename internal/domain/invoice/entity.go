// internal/domain/invoice/entity.go
package invoice

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status is the only mutable part of an issued invoice
type Status string

const (
	StatusPending Status = "PENDING"
	StatusSent    Status = "SENT"
	StatusPaid    Status = "PAID"
	StatusVoid    Status = "VOID"
)

// Valid reports whether s is a known invoice status
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusSent, StatusPaid, StatusVoid:
		return true
	}
	return false
}

// Invoice is an immutable snapshot of an order at issuance time
type Invoice struct {
	ID             uint            `gorm:"primaryKey" json:"id"`
	InvoiceNumber  string          `gorm:"uniqueIndex;not null;size:20" json:"invoice_number"`
	OrderID        uint            `gorm:"uniqueIndex;not null" json:"order_id"`
	OrderNumber    string          `gorm:"not null;size:20" json:"order_number"`
	Status         Status          `gorm:"not null;size:20;index" json:"status"`
	Currency       string          `gorm:"not null;size:3" json:"currency"`
	SubtotalAmount decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"subtotal_amount"`
	TaxRate        decimal.Decimal `gorm:"type:numeric(6,4);not null" json:"tax_rate"`
	TaxAmount      decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"tax_amount"`
	ShippingCost   decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"shipping_cost"`
	TotalAmount    decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"total_amount"`
	LineItems      []LineItem      `gorm:"type:jsonb;serializer:json;not null" json:"line_items"`
	Company        Company         `gorm:"type:jsonb;serializer:json;not null" json:"company"`
	Customer       Customer        `gorm:"type:jsonb;serializer:json;not null" json:"customer"`
	IssuedAt       time.Time       `gorm:"not null" json:"issued_at"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

func (Invoice) TableName() string { return "invoices" }

// LineItem is the copy of an order line printed on the invoice
type LineItem struct {
	ProductID     uint            `json:"product_id"`
	VariantID     *uint           `json:"variant_id,omitempty"`
	SKU           string          `json:"sku"`
	Name          string          `json:"name"`
	Quantity      int             `json:"quantity"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	TotalPrice    decimal.Decimal `json:"total_price"`
	Customization string          `json:"customization,omitempty"`
}

// Company is the issuer block
type Company struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	TaxID   string `json:"tax_id"`
	Phone   string `json:"phone"`
	Email   string `json:"email"`
	Website string `json:"website,omitempty"`
}

// Customer is the billed party as known when the invoice was issued
type Customer struct {
	Name    string   `json:"name"`
	Email   string   `json:"email"`
	Phone   string   `json:"phone,omitempty"`
	UserID  *uint    `json:"user_id,omitempty"`
	Address []string `json:"address,omitempty"`
}

// UpdateStatusRequest changes an invoice's status
type UpdateStatusRequest struct {
	Status Status `json:"status" binding:"required,oneof=PENDING SENT PAID VOID"`
}
