// internal/pkg/outbox/emitter.go
package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var ErrTransactionRequired = errors.New("outbox: transaction required")

// DomainEvent is the input to Emit.
type DomainEvent struct {
	EventType     EventType
	AggregateType AggregateType
	AggregateID   string
	Actor         *ActorRef
	Data          interface{}
	Version       int
	OccurredAt    time.Time
}

// Emitter appends events to the outbox inside the caller's transaction.
type Emitter struct {
	logger logrus.FieldLogger
	now    func() time.Time
}

func NewEmitter(logger logrus.FieldLogger) *Emitter {
	return &Emitter{logger: logger, now: time.Now}
}

func (e *Emitter) Emit(ctx context.Context, tx *gorm.DB, event DomainEvent) (*Event, error) {
	if tx == nil {
		return nil, ErrTransactionRequired
	}
	if ctx == nil {
		ctx = context.Background()
	}
	data, err := json.Marshal(event.Data)
	if err != nil {
		return nil, err
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = e.now().UTC()
	}
	if event.Version == 0 {
		event.Version = 1
	}

	id := uuid.NewString()
	envelope := PayloadEnvelope{
		Version:    event.Version,
		EventID:    id,
		OccurredAt: event.OccurredAt,
		Actor:      event.Actor,
		Data:       data,
	}
	payload, err := json.Marshal(envelope)
	if err != nil {
		return nil, err
	}

	row := &Event{
		ID:            id,
		EventType:     event.EventType,
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
		Payload:       payload,
		Status:        StatusPending,
	}
	if err := tx.WithContext(ctx).Create(row).Error; err != nil {
		return nil, err
	}

	if e.logger != nil {
		e.logger.WithFields(logrus.Fields{
			"event_id":       id,
			"event_type":     event.EventType,
			"aggregate_type": event.AggregateType,
			"aggregate_id":   event.AggregateID,
		}).Debug("outbox event queued")
	}
	return row, nil
}
