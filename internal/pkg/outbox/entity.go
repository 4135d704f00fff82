// internal/pkg/outbox/entity.go
package outbox

import (
	"encoding/json"
	"time"
)

type EventType string

const (
	EventOrderCreated       EventType = "order.created"
	EventOrderStatusChanged EventType = "order.status_changed"
	EventInvoiceIssued      EventType = "invoice.issued"
	EventStockLow           EventType = "stock.low"
)

type AggregateType string

const (
	AggregateOrder   AggregateType = "order"
	AggregateInvoice AggregateType = "invoice"
	AggregateVariant AggregateType = "product_variant"
)

type Status string

const (
	StatusPending    Status = "PENDING"
	StatusProcessing Status = "PROCESSING"
	StatusSent       Status = "SENT"
	StatusFailed     Status = "FAILED"
	StatusDead       Status = "DEAD"
)

// Event is a row of the transactional outbox. It is written in the same
// transaction as the state change it describes and delivered after commit.
type Event struct {
	ID            string          `gorm:"primaryKey;size:36" json:"id"`
	EventType     EventType       `gorm:"size:64;not null;index" json:"event_type"`
	AggregateType AggregateType   `gorm:"size:64;not null" json:"aggregate_type"`
	AggregateID   string          `gorm:"size:64;not null;index" json:"aggregate_id"`
	Payload       json.RawMessage `gorm:"type:jsonb;not null" json:"payload"`
	Status        Status          `gorm:"size:20;not null;index" json:"status"`
	Attempts      int             `gorm:"not null" json:"attempts"`
	NextAttemptAt *time.Time      `json:"next_attempt_at,omitempty"`
	LockedAt      *time.Time      `json:"locked_at,omitempty"`
	LockedBy      *string         `gorm:"size:64" json:"locked_by,omitempty"`
	LastError     *string         `gorm:"type:text" json:"last_error,omitempty"`
	PublishedAt   *time.Time      `json:"published_at,omitempty"`
	CreatedAt     time.Time       `gorm:"index" json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

func (Event) TableName() string { return "outbox_events" }

// ActorRef identifies who caused the event.
type ActorRef struct {
	UserID uint   `json:"user_id"`
	Role   string `json:"role,omitempty"`
}

// PayloadEnvelope is the JSON stored in Event.Payload.
type PayloadEnvelope struct {
	Version    int             `json:"version"`
	EventID    string          `json:"event_id"`
	OccurredAt time.Time       `json:"occurred_at"`
	Actor      *ActorRef       `json:"actor,omitempty"`
	Data       json.RawMessage `json:"data"`
}

// Message is what handlers receive for a claimed event.
type Message struct {
	ID            string
	EventType     EventType
	AggregateType AggregateType
	AggregateID   string
	Attempt       int
	Envelope      PayloadEnvelope
}

// Decode unmarshals the event data into v.
func (m Message) Decode(v interface{}) error {
	return json.Unmarshal(m.Envelope.Data, v)
}

// Payloads carried by the engine's events.

type OrderCreatedData struct {
	OrderID     uint   `json:"order_id"`
	OrderNumber string `json:"order_number"`
	UserID      *uint  `json:"user_id,omitempty"`
	Email       string `json:"email"`
	Total       string `json:"total"`
}

type OrderStatusChangedData struct {
	OrderID     uint   `json:"order_id"`
	OrderNumber string `json:"order_number"`
	From        string `json:"from"`
	To          string `json:"to"`
	Email       string `json:"email"`
	Note        string `json:"note,omitempty"`
}

type InvoiceIssuedData struct {
	InvoiceID     uint   `json:"invoice_id"`
	InvoiceNumber string `json:"invoice_number"`
	OrderID       uint   `json:"order_id"`
	OrderNumber   string `json:"order_number"`
	Email         string `json:"email"`
}

type StockLowData struct {
	VariantID uint   `json:"variant_id"`
	SKU       string `json:"sku"`
	Name      string `json:"name"`
	Stock     int    `json:"stock"`
	Threshold int    `json:"threshold"`
	AlertType string `json:"alert_type"`
}
