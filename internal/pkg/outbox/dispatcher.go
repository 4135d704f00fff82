// internal/pkg/outbox/dispatcher.go
package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-backend/internal/config"
	"github.com/your-org/storefront-backend/internal/pkg/metrics"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const maxBackoff = 10 * time.Minute

// Handler processes one delivered event. Handlers must be idempotent:
// an event is retried until every handler for its type succeeds.
type Handler func(ctx context.Context, msg Message) error

// LeaderLock gates a dispatch round so only one replica polls at a time.
type LeaderLock interface {
	TryAcquire(ctx context.Context) (release func(context.Context), ok bool, err error)
}

// Dispatcher claims pending outbox rows and hands them to registered handlers.
type Dispatcher struct {
	DB           *gorm.DB
	Logger       logrus.FieldLogger
	Metrics      *metrics.EngineMetrics
	Leader       LeaderLock
	DispatcherID string

	BatchSize      int
	PollInterval   time.Duration
	LockTimeout    time.Duration
	MaxAttempts    int
	InitialBackoff time.Duration

	handlers map[EventType][]Handler
	now      func() time.Time
}

func NewDispatcher(db *gorm.DB, cfg config.OutboxConfig, logger logrus.FieldLogger, m *metrics.EngineMetrics) *Dispatcher {
	d := &Dispatcher{
		DB:             db,
		Logger:         logger,
		Metrics:        m,
		DispatcherID:   uuid.NewString(),
		BatchSize:      cfg.BatchSize,
		PollInterval:   cfg.PollInterval,
		LockTimeout:    cfg.LockTimeout,
		MaxAttempts:    cfg.MaxAttempts,
		InitialBackoff: cfg.InitialBackoff,
		handlers:       make(map[EventType][]Handler),
		now:            time.Now,
	}
	if d.BatchSize <= 0 {
		d.BatchSize = 50
	}
	if d.PollInterval <= 0 {
		d.PollInterval = 2 * time.Second
	}
	if d.LockTimeout <= 0 {
		d.LockTimeout = 30 * time.Second
	}
	if d.InitialBackoff <= 0 {
		d.InitialBackoff = 5 * time.Second
	}
	return d
}

// Register adds a handler for eventType. Call before Run.
func (d *Dispatcher) Register(eventType EventType, h Handler) {
	d.handlers[eventType] = append(d.handlers[eventType], h)
}

func (d *Dispatcher) Run(ctx context.Context) {
	if d.Logger != nil {
		d.Logger.WithField("dispatcher_id", d.DispatcherID).Info("outbox dispatcher started")
	}
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		if _, err := d.tick(ctx); err != nil && d.Logger != nil && ctx.Err() == nil {
			d.Logger.WithError(err).Warn("outbox dispatch round failed")
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(d.PollInterval):
		}
	}
}

func (d *Dispatcher) tick(ctx context.Context) (int, error) {
	if d.Leader == nil {
		return d.DispatchOnce(ctx)
	}
	release, ok, err := d.Leader.TryAcquire(ctx)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}
	defer release(ctx)
	return d.DispatchOnce(ctx)
}

// DispatchOnce claims one batch and delivers it. It returns the number of
// events that reached a final or retry state in this round.
func (d *Dispatcher) DispatchOnce(ctx context.Context) (int, error) {
	now := d.now().UTC()
	staleBefore := now.Add(-d.LockTimeout)

	var claimed []Event
	err := d.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q := tx.
			Where(`(status IN ? AND (next_attempt_at IS NULL OR next_attempt_at <= ?))
				OR (status = ? AND locked_at IS NOT NULL AND locked_at <= ?)`,
				[]Status{StatusPending, StatusFailed}, now, StatusProcessing, staleBefore).
			Order("created_at ASC").
			Limit(d.BatchSize).
			Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"})
		if err := q.Find(&claimed).Error; err != nil {
			return err
		}

		for i := range claimed {
			if d.MaxAttempts > 0 && claimed[i].Attempts >= d.MaxAttempts {
				msg := fmt.Sprintf("max attempts exceeded (%d)", d.MaxAttempts)
				claimed[i].Status = StatusDead
				if err := tx.Model(&Event{}).Where("id = ?", claimed[i].ID).Updates(map[string]interface{}{
					"status":          StatusDead,
					"last_error":      &msg,
					"next_attempt_at": nil,
					"locked_at":       nil,
					"locked_by":       nil,
				}).Error; err != nil {
					return err
				}
				continue
			}

			claimed[i].Status = StatusProcessing
			claimed[i].Attempts++
			if err := tx.Model(&Event{}).Where("id = ?", claimed[i].ID).Updates(map[string]interface{}{
				"status":          StatusProcessing,
				"locked_at":       now,
				"locked_by":       d.DispatcherID,
				"attempts":        gorm.Expr("attempts + 1"),
				"last_error":      nil,
				"next_attempt_at": nil,
			}).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	processed := 0
	for _, ev := range claimed {
		if ev.Status == StatusDead {
			d.Metrics.IncOutboxDispatch(string(ev.EventType), "dead")
			processed++
			continue
		}
		if err := d.deliver(ctx, ev); err != nil {
			d.markFailed(ctx, ev, err)
		} else {
			d.markSent(ctx, ev)
		}
		processed++
	}
	return processed, nil
}

func (d *Dispatcher) deliver(ctx context.Context, ev Event) error {
	var envelope PayloadEnvelope
	if err := json.Unmarshal(ev.Payload, &envelope); err != nil {
		return fmt.Errorf("decoding payload: %w", err)
	}
	msg := Message{
		ID:            ev.ID,
		EventType:     ev.EventType,
		AggregateType: ev.AggregateType,
		AggregateID:   ev.AggregateID,
		Attempt:       ev.Attempts,
		Envelope:      envelope,
	}
	for _, h := range d.handlers[ev.EventType] {
		if err := h(ctx, msg); err != nil {
			return err
		}
	}
	return nil
}

func (d *Dispatcher) markSent(ctx context.Context, ev Event) {
	now := d.now().UTC()
	err := d.DB.WithContext(ctx).Model(&Event{}).Where("id = ?", ev.ID).Updates(map[string]interface{}{
		"status":          StatusSent,
		"published_at":    now,
		"locked_at":       nil,
		"locked_by":       nil,
		"next_attempt_at": nil,
	}).Error
	if err != nil && d.Logger != nil {
		d.Logger.WithError(err).WithField("event_id", ev.ID).Error("failed to mark outbox event sent")
	}
	d.Metrics.IncOutboxDispatch(string(ev.EventType), "sent")
}

func (d *Dispatcher) markFailed(ctx context.Context, ev Event, cause error) {
	now := d.now().UTC()
	msg := cause.Error()
	fields := logrus.Fields{
		"event_id":   ev.ID,
		"event_type": ev.EventType,
		"attempt":    ev.Attempts,
	}

	if d.MaxAttempts > 0 && ev.Attempts >= d.MaxAttempts {
		err := d.DB.WithContext(ctx).Model(&Event{}).Where("id = ?", ev.ID).Updates(map[string]interface{}{
			"status":          StatusDead,
			"last_error":      &msg,
			"next_attempt_at": nil,
			"locked_at":       nil,
			"locked_by":       nil,
		}).Error
		if err != nil && d.Logger != nil {
			d.Logger.WithError(err).WithField("event_id", ev.ID).Error("failed to mark outbox event dead")
		}
		if d.Logger != nil {
			d.Logger.WithFields(fields).WithError(cause).Error("outbox event moved to DEAD after max attempts")
		}
		d.Metrics.IncOutboxDispatch(string(ev.EventType), "dead")
		return
	}

	next := now.Add(d.backoff(ev.Attempts))
	err := d.DB.WithContext(ctx).Model(&Event{}).Where("id = ?", ev.ID).Updates(map[string]interface{}{
		"status":          StatusFailed,
		"last_error":      &msg,
		"next_attempt_at": next,
		"locked_at":       nil,
		"locked_by":       nil,
	}).Error
	if err != nil && d.Logger != nil {
		d.Logger.WithError(err).WithField("event_id", ev.ID).Error("failed to mark outbox event failed")
	}
	if d.Logger != nil {
		fields["next_attempt_at"] = next.Format(time.RFC3339Nano)
		d.Logger.WithFields(fields).WithError(cause).Warn("outbox event delivery failed")
	}
	d.Metrics.IncOutboxDispatch(string(ev.EventType), "failed")
}

func (d *Dispatcher) backoff(attempt int) time.Duration {
	backoff := d.InitialBackoff
	for i := 1; i < attempt; i++ {
		backoff *= 2
		if backoff > maxBackoff {
			return maxBackoff
		}
	}
	return backoff
}
