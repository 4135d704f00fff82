// internal/domain/invoice/service.go
package invoice

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-backend/internal/domain/order"
	"github.com/your-org/storefront-backend/internal/domain/sequence"
	"github.com/your-org/storefront-backend/internal/domain/user"
	"github.com/your-org/storefront-backend/internal/pkg/apperrors"
	"github.com/your-org/storefront-backend/internal/pkg/database"
	"github.com/your-org/storefront-backend/internal/pkg/metrics"
	"github.com/your-org/storefront-backend/internal/pkg/outbox"
	"gorm.io/gorm"
)

// NumberAllocator hands out per-scope sequence values inside a transaction
type NumberAllocator interface {
	Next(ctx context.Context, tx *gorm.DB, scope string) (int64, error)
}

// EventEmitter queues outbox events inside a transaction
type EventEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) (*outbox.Event, error)
}

// Service issues invoices, at most one per order
type Service struct {
	db        *gorm.DB
	numbers   NumberAllocator
	company   CompanySettingsProvider
	directory user.Directory
	emitter   EventEmitter
	metrics   *metrics.EngineMetrics
	logger    logrus.FieldLogger
	location  *time.Location
	now       func() time.Time
}

// NewService creates a new invoice service. directory may be nil, the
// customer snapshot then carries no postal address.
func NewService(db *gorm.DB, numbers NumberAllocator, company CompanySettingsProvider, directory user.Directory,
	emitter EventEmitter, m *metrics.EngineMetrics, logger logrus.FieldLogger, location *time.Location) *Service {
	if location == nil {
		location = time.UTC
	}
	return &Service{
		db:        db,
		numbers:   numbers,
		company:   company,
		directory: directory,
		emitter:   emitter,
		metrics:   m,
		logger:    logger,
		location:  location,
		now:       time.Now,
	}
}

// Issue snapshots the order into a new invoice. A second call for the same
// order fails with DUPLICATE_RESOURCE.
func (s *Service) Issue(ctx context.Context, orderID uint, actorID *uint) (*Invoice, error) {
	var issued *Invoice
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing int64
		if err := tx.WithContext(ctx).Model(&Invoice{}).Where("order_id = ?", orderID).Count(&existing).Error; err != nil {
			return apperrors.Internal(err, "checking existing invoice")
		}
		if existing > 0 {
			return apperrors.Newf(apperrors.CodeDuplicate, "an invoice already exists for order %d", orderID)
		}

		var o order.Order
		err := tx.WithContext(ctx).
			Preload("Items", func(db *gorm.DB) *gorm.DB {
				return db.Order("id ASC")
			}).
			First(&o, orderID).Error
		if err != nil {
			if database.IsNotFound(err) {
				return apperrors.NotFound("order")
			}
			return apperrors.Internal(err, "loading order")
		}
		if o.Status == order.StatusCancelled {
			return apperrors.Newf(apperrors.CodeInvalidTransition, "order %s is cancelled", o.OrderNumber)
		}

		company, err := s.company.CompanySettings(ctx)
		if err != nil {
			return apperrors.Internal(err, "loading company settings")
		}

		issuedAt := s.now().UTC()
		seq, err := s.numbers.Next(ctx, tx, sequence.InvoiceScope(issuedAt.In(s.location)))
		if err != nil {
			return err
		}

		inv := &Invoice{
			InvoiceNumber:  sequence.FormatInvoiceNumber(issuedAt.In(s.location), seq),
			OrderID:        o.ID,
			OrderNumber:    o.OrderNumber,
			Status:         StatusPending,
			Currency:       o.Currency,
			SubtotalAmount: o.SubtotalAmount,
			TaxRate:        o.TaxRate,
			TaxAmount:      o.TaxAmount,
			ShippingCost:   o.ShippingCost,
			TotalAmount:    o.TotalAmount,
			LineItems:      snapshotLines(o.Items),
			Company:        company,
			Customer:       s.snapshotCustomer(ctx, tx, &o),
			IssuedAt:       issuedAt,
		}
		if err := tx.WithContext(ctx).Create(inv).Error; err != nil {
			if database.IsUniqueViolation(err, "") {
				return apperrors.Wrap(apperrors.CodeDuplicate, err, "an invoice already exists for order "+o.OrderNumber)
			}
			return apperrors.Internal(err, "creating invoice")
		}

		_, err = s.emitter.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     outbox.EventInvoiceIssued,
			AggregateType: outbox.AggregateInvoice,
			AggregateID:   strconv.FormatUint(uint64(inv.ID), 10),
			Actor:         actorRef(actorID),
			Data: outbox.InvoiceIssuedData{
				InvoiceID:     inv.ID,
				InvoiceNumber: inv.InvoiceNumber,
				OrderID:       o.ID,
				OrderNumber:   o.OrderNumber,
				Email:         o.Email,
			},
		})
		if err != nil {
			return apperrors.Internal(err, "queueing invoice.issued event")
		}

		issued = inv
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncInvoiceIssued()
	s.logger.WithFields(logrus.Fields{
		"invoice_id":     issued.ID,
		"invoice_number": issued.InvoiceNumber,
		"order_id":       issued.OrderID,
	}).Info("invoice issued")
	return issued, nil
}

// Ensure returns the order's invoice, issuing it if none exists yet. created
// reports whether this call issued it.
func (s *Service) Ensure(ctx context.Context, orderID uint, actorID *uint) (inv *Invoice, created bool, err error) {
	if inv, err = s.GetByOrder(ctx, orderID); err == nil {
		return inv, false, nil
	}
	if !apperrors.HasCode(err, apperrors.CodeNotFound) {
		return nil, false, err
	}

	inv, err = s.Issue(ctx, orderID, actorID)
	if err == nil {
		return inv, true, nil
	}
	if apperrors.HasCode(err, apperrors.CodeDuplicate) {
		// lost the race to a concurrent issuer
		inv, err = s.GetByOrder(ctx, orderID)
		return inv, false, err
	}
	return nil, false, err
}

// Get retrieves an invoice by ID
func (s *Service) Get(ctx context.Context, id uint) (*Invoice, error) {
	return s.findOne(ctx, "id = ?", id)
}

// GetByOrder retrieves the invoice issued for an order
func (s *Service) GetByOrder(ctx context.Context, orderID uint) (*Invoice, error) {
	return s.findOne(ctx, "order_id = ?", orderID)
}

// UpdateStatus changes the invoice status. A VOID invoice stays void.
func (s *Service) UpdateStatus(ctx context.Context, id uint, status Status) (*Invoice, error) {
	if !status.Valid() {
		return nil, apperrors.Newf(apperrors.CodeValidation, "unknown invoice status %q", status)
	}
	inv, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if inv.Status == status {
		return inv, nil
	}
	if inv.Status == StatusVoid {
		return nil, apperrors.Newf(apperrors.CodeInvalidTransition, "invoice %s is void", inv.InvoiceNumber)
	}

	res := s.db.WithContext(ctx).Model(&Invoice{}).
		Where("id = ? AND status = ?", id, inv.Status).
		Updates(map[string]interface{}{"status": status, "updated_at": s.now().UTC()})
	if res.Error != nil {
		return nil, apperrors.Internal(res.Error, "updating invoice status")
	}
	if res.RowsAffected == 0 {
		return nil, apperrors.Newf(apperrors.CodeInvalidTransition, "invoice %s changed status concurrently", inv.InvoiceNumber)
	}

	s.logger.WithFields(logrus.Fields{
		"invoice_id": id,
		"from":       inv.Status,
		"to":         status,
	}).Info("invoice status changed")
	inv.Status = status
	return inv, nil
}

func (s *Service) findOne(ctx context.Context, query string, arg interface{}) (*Invoice, error) {
	var inv Invoice
	if err := s.db.WithContext(ctx).Where(query, arg).First(&inv).Error; err != nil {
		if database.IsNotFound(err) {
			return nil, apperrors.NotFound("invoice")
		}
		return nil, apperrors.Internal(err, "loading invoice")
	}
	return &inv, nil
}

func (s *Service) snapshotCustomer(ctx context.Context, tx *gorm.DB, o *order.Order) Customer {
	c := Customer{
		Name:   o.CustomerName,
		Email:  o.Email,
		Phone:  o.Phone,
		UserID: o.UserID,
	}
	if s.directory == nil || o.AddressID == nil || o.UserID == nil {
		return c
	}
	addr, err := s.directory.WithTx(tx).FindAddress(ctx, *o.AddressID, *o.UserID)
	if err != nil {
		s.logger.WithError(err).WithField("order_id", o.ID).Warn("invoice issued without postal address")
		return c
	}
	c.Address = addr.Lines()
	return c
}

func snapshotLines(items []order.OrderItem) []LineItem {
	lines := make([]LineItem, 0, len(items))
	for _, it := range items {
		line := LineItem{
			ProductID:  it.ProductID,
			VariantID:  it.VariantID,
			SKU:        it.SKU,
			Name:       it.Name,
			Quantity:   it.Quantity,
			UnitPrice:  it.UnitPrice,
			TotalPrice: it.TotalPrice,
		}
		if it.Customization != nil {
			line.Customization = strings.TrimSpace(it.Customization.Summary())
		}
		lines = append(lines, line)
	}
	return lines
}

func actorRef(actorID *uint) *outbox.ActorRef {
	if actorID == nil {
		return nil
	}
	return &outbox.ActorRef{UserID: *actorID}
}
