// internal/domain/notification/handlers.go
package notification

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-backend/internal/domain/invoice"
	"github.com/your-org/storefront-backend/internal/pkg/apperrors"
	"github.com/your-org/storefront-backend/internal/pkg/outbox"
)

// InvoiceEnsurer issues an order's invoice if it is still missing
type InvoiceEnsurer interface {
	Ensure(ctx context.Context, orderID uint, actorID *uint) (*invoice.Invoice, bool, error)
}

// Registrar is where outbox handlers are attached
type Registrar interface {
	Register(eventType outbox.EventType, h outbox.Handler)
}

// RegisterHandlers wires the engine's events to invoicing and notifications.
// A returned error makes the dispatcher retry the event.
func RegisterHandlers(r Registrar, invoices InvoiceEnsurer, notifier Notifier, logger logrus.FieldLogger) {
	r.Register(outbox.EventOrderCreated, func(ctx context.Context, msg outbox.Message) error {
		var data outbox.OrderCreatedData
		if err := msg.Decode(&data); err != nil {
			return fmt.Errorf("decode %s: %w", msg.EventType, err)
		}

		inv, created, err := invoices.Ensure(ctx, data.OrderID, nil)
		switch {
		case err == nil && created:
			logger.WithFields(logrus.Fields{
				"order_id":       data.OrderID,
				"invoice_number": inv.InvoiceNumber,
			}).Info("invoice issued by outbox retry")
		case apperrors.HasCode(err, apperrors.CodeNotFound), apperrors.HasCode(err, apperrors.CodeInvalidTransition):
			// order deleted or cancelled before the event was delivered
			logger.WithError(err).WithField("order_id", data.OrderID).Info("invoice skipped")
		case err != nil:
			return err
		}

		return notifier.Notify(ctx, msg.EventType, data)
	})

	r.Register(outbox.EventOrderStatusChanged, notifyAs[outbox.OrderStatusChangedData](notifier))
	r.Register(outbox.EventInvoiceIssued, notifyAs[outbox.InvoiceIssuedData](notifier))
	r.Register(outbox.EventStockLow, notifyAs[outbox.StockLowData](notifier))
}

func notifyAs[T any](notifier Notifier) outbox.Handler {
	return func(ctx context.Context, msg outbox.Message) error {
		var data T
		if err := msg.Decode(&data); err != nil {
			return fmt.Errorf("decode %s: %w", msg.EventType, err)
		}
		return notifier.Notify(ctx, msg.EventType, data)
	}
}
