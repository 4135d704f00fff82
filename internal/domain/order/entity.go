// internal/domain/order/entity.go
package order

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status represents the order status
type Status string

const (
	StatusPending        Status = "PENDING"
	StatusConfirmed      Status = "CONFIRMED"
	StatusInProduction   Status = "IN_PRODUCTION"
	StatusReadyForPickup Status = "READY_FOR_PICKUP"
	StatusShipped        Status = "SHIPPED"
	StatusDelivered      Status = "DELIVERED"
	StatusCancelled      Status = "CANCELLED"
	StatusRefunded       Status = "REFUNDED"
)

// PaymentStatus represents payment status
type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "PENDING"
	PaymentStatusPaid     PaymentStatus = "PAID"
	PaymentStatusFailed   PaymentStatus = "FAILED"
	PaymentStatusRefunded PaymentStatus = "REFUNDED"
)

// ProductionStatus tracks manufacturing progress of a single line
type ProductionStatus string

const (
	ProductionPending    ProductionStatus = "PENDING"
	ProductionInProgress ProductionStatus = "IN_PROGRESS"
	ProductionCompleted  ProductionStatus = "COMPLETED"
	ProductionOnHold     ProductionStatus = "ON_HOLD"
)

// Valid reports whether s is a known production status
func (s ProductionStatus) Valid() bool {
	switch s {
	case ProductionPending, ProductionInProgress, ProductionCompleted, ProductionOnHold:
		return true
	}
	return false
}

// Order represents the order entity
type Order struct {
	ID            uint          `gorm:"primaryKey" json:"id"`
	OrderNumber   string        `gorm:"uniqueIndex;not null;size:50" json:"order_number"`
	UserID        *uint         `gorm:"index" json:"user_id"` // Nullable for guest orders
	AddressID     *uint         `gorm:"index" json:"address_id"`
	Status        Status        `gorm:"not null;size:30;index;default:'PENDING'" json:"status"`
	PaymentStatus PaymentStatus `gorm:"not null;size:30;default:'PENDING'" json:"payment_status"`

	// Customer contact
	CustomerName string `gorm:"not null;size:200" json:"customer_name"`
	Email        string `gorm:"not null;size:255;index" json:"email"`
	Phone        string `gorm:"size:20" json:"phone"`

	// Financial Information
	SubtotalAmount decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"subtotal_amount"`
	TaxRate        decimal.Decimal `gorm:"type:numeric(6,4);not null" json:"tax_rate"`
	TaxAmount      decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"tax_amount"`
	ShippingCost   decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"shipping_cost"`
	TotalAmount    decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"total_amount"`
	Currency       string          `gorm:"size:3;not null" json:"currency"`

	// Shipping Information
	ShippingMethod  string `gorm:"size:50" json:"shipping_method"`
	TrackingNumber  string `gorm:"size:100" json:"tracking_number"`
	ShippingCarrier string `gorm:"size:50" json:"shipping_carrier"`
	Notes           string `gorm:"type:text" json:"notes"`

	// Timestamps
	ConfirmedAt *time.Time `json:"confirmed_at"`
	ShippedAt   *time.Time `json:"shipped_at"`
	DeliveredAt *time.Time `json:"delivered_at"`
	CancelledAt *time.Time `json:"cancelled_at"`
	CreatedAt   time.Time  `gorm:"index" json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`

	// Relationships
	Items         []OrderItem          `gorm:"foreignKey:OrderID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"items"`
	StatusHistory []OrderStatusHistory `gorm:"foreignKey:OrderID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"status_history,omitempty"`
}

// OrderItem represents items in an order. Quantity and prices never change after creation.
type OrderItem struct {
	ID               uint             `gorm:"primaryKey" json:"id"`
	OrderID          uint             `gorm:"not null;index" json:"order_id"`
	ProductID        uint             `gorm:"not null;index" json:"product_id"`
	VariantID        *uint            `gorm:"index" json:"variant_id"`
	SKU              string           `gorm:"not null;size:100" json:"sku"`
	Name             string           `gorm:"not null;size:255" json:"name"`
	Quantity         int              `gorm:"not null;check:chk_order_items_quantity,quantity > 0" json:"quantity"`
	UnitPrice        decimal.Decimal  `gorm:"type:numeric(12,2);not null" json:"unit_price"`
	TotalPrice       decimal.Decimal  `gorm:"type:numeric(12,2);not null" json:"total_price"`
	ProductionStatus ProductionStatus `gorm:"not null;size:20;default:'PENDING'" json:"production_status"`
	Notes            string           `gorm:"type:text" json:"notes"`
	Customization    *Customization   `gorm:"type:text;serializer:json" json:"customization,omitempty"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
}

// OrderStatusHistory tracks order status changes
type OrderStatusHistory struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	OrderID    uint      `gorm:"not null;index" json:"order_id"`
	FromStatus Status    `gorm:"size:30" json:"from_status"`
	ToStatus   Status    `gorm:"not null;size:30" json:"to_status"`
	Comment    string    `gorm:"type:text" json:"comment"`
	ActorID    *uint     `gorm:"index" json:"actor_id"` // User ID who made the change
	Automatic  bool      `gorm:"not null" json:"automatic"`
	CreatedAt  time.Time `json:"created_at"`
}

// TableName overrides
func (Order) TableName() string              { return "orders" }
func (OrderItem) TableName() string          { return "order_items" }
func (OrderStatusHistory) TableName() string { return "order_status_history" }

// IsClosed reports whether the order reached a terminal status
func (o *Order) IsClosed() bool {
	return o.Status.IsTerminal()
}

// Request DTOs

// CreateOrderItemRequest is one requested line
type CreateOrderItemRequest struct {
	ProductID     uint           `json:"product_id"`
	VariantID     *uint          `json:"variant_id"`
	Quantity      int            `json:"quantity" binding:"min=1,max=10000"`
	Notes         string         `json:"notes" binding:"max=1000"`
	Customization *Customization `json:"customization"`
}

// CreateOrderRequest represents order creation request
type CreateOrderRequest struct {
	CustomerName   string                   `json:"customer_name" binding:"required,max=200"`
	Email          string                   `json:"email" binding:"required,email,max=255"`
	Phone          string                   `json:"phone" binding:"max=20"`
	AddressID      *uint                    `json:"address_id"`
	ShippingMethod string                   `json:"shipping_method" binding:"max=50"`
	Notes          string                   `json:"notes" binding:"max=2000"`
	Items          []CreateOrderItemRequest `json:"items" binding:"required,max=100,dive"`

	// Set from the authenticated caller, never from the body.
	UserID *uint `json:"-"`
}

// UpdateStatusRequest represents an admin status change
type UpdateStatusRequest struct {
	Status  Status `json:"status" binding:"required,order_status"`
	Comment string `json:"comment" binding:"max=1000"`
}

// UpdateProductionRequest changes one line's production status
type UpdateProductionRequest struct {
	Status ProductionStatus `json:"production_status" binding:"required,production_status"`
	Notes  *string          `json:"notes" binding:"omitempty,max=1000"`
}

// UpdateTrackingRequest sets carrier details
type UpdateTrackingRequest struct {
	TrackingNumber  string `json:"tracking_number" binding:"required,max=100"`
	ShippingCarrier string `json:"shipping_carrier" binding:"max=50"`
}

// ListRequest represents order list request
type ListRequest struct {
	Page      int    `form:"page"`
	Limit     int    `form:"limit"`
	Status    Status `form:"status" binding:"omitempty,order_status"`
	UserID    uint   `form:"user_id"`
	Search    string `form:"search"`
	DateFrom  string `form:"date_from"`
	DateTo    string `form:"date_to"`
	SortBy    string `form:"sort_by"`
	SortOrder string `form:"sort_order"`
}

// Pagination represents pagination info
type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
	HasPrev    bool  `json:"has_prev"`
}

// ListResponse represents a page of orders
type ListResponse struct {
	Orders     []Order    `json:"orders"`
	Pagination Pagination `json:"pagination"`
}
