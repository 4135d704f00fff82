// internal/domain/notification/notifier.go
package notification

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-backend/internal/pkg/email"
	"github.com/your-org/storefront-backend/internal/pkg/outbox"
)

// Notifier delivers a domain event to people. payload is one of the outbox
// data structs.
type Notifier interface {
	Notify(ctx context.Context, eventType outbox.EventType, payload interface{}) error
}

// Mailer is the subset of the email service the notifier uses
type Mailer interface {
	SendOrderConfirmationEmail(ctx context.Context, data email.OrderConfirmationData) error
	SendOrderStatusUpdateEmail(ctx context.Context, data email.OrderStatusUpdateData) error
	SendInvoiceIssuedEmail(ctx context.Context, data email.InvoiceIssuedData) error
	SendLowStockAlertEmail(ctx context.Context, data email.LowStockAlertData) error
}

// EmailNotifier turns events into customer and staff email
type EmailNotifier struct {
	mailer     Mailer
	staffEmail string
	logger     logrus.FieldLogger
}

func NewEmailNotifier(mailer Mailer, staffEmail string, logger logrus.FieldLogger) *EmailNotifier {
	return &EmailNotifier{mailer: mailer, staffEmail: staffEmail, logger: logger}
}

func (n *EmailNotifier) Notify(ctx context.Context, eventType outbox.EventType, payload interface{}) error {
	switch p := payload.(type) {
	case outbox.OrderCreatedData:
		if p.Email == "" {
			return nil
		}
		return n.mailer.SendOrderConfirmationEmail(ctx, email.OrderConfirmationData{
			EmailTemplateData: email.EmailTemplateData{UserEmail: p.Email},
			OrderNumber:       p.OrderNumber,
			OrderTotal:        p.Total,
		})
	case outbox.OrderStatusChangedData:
		if p.Email == "" {
			return nil
		}
		return n.mailer.SendOrderStatusUpdateEmail(ctx, email.OrderStatusUpdateData{
			EmailTemplateData: email.EmailTemplateData{UserEmail: p.Email},
			OrderNumber:       p.OrderNumber,
			Status:            p.To,
			Note:              p.Note,
		})
	case outbox.InvoiceIssuedData:
		if p.Email == "" {
			return nil
		}
		return n.mailer.SendInvoiceIssuedEmail(ctx, email.InvoiceIssuedData{
			EmailTemplateData: email.EmailTemplateData{UserEmail: p.Email},
			InvoiceNumber:     p.InvoiceNumber,
			OrderNumber:       p.OrderNumber,
		})
	case outbox.StockLowData:
		if n.staffEmail == "" {
			n.logger.WithField("sku", p.SKU).Debug("no staff address, stock alert not mailed")
			return nil
		}
		return n.mailer.SendLowStockAlertEmail(ctx, email.LowStockAlertData{
			SKU:       p.SKU,
			Name:      p.Name,
			Stock:     p.Stock,
			Threshold: p.Threshold,
			AlertType: p.AlertType,
		})
	default:
		return fmt.Errorf("no email for %s payload %T", eventType, payload)
	}
}

// LogNotifier only logs. It is used when no mail provider is configured.
type LogNotifier struct {
	logger logrus.FieldLogger
}

func NewLogNotifier(logger logrus.FieldLogger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(ctx context.Context, eventType outbox.EventType, payload interface{}) error {
	n.logger.WithFields(logrus.Fields{
		"event_type": eventType,
		"payload":    payload,
	}).Info("notification")
	return nil
}
