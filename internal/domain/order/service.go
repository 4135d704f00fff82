// internal/domain/order/service.go
package order

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-backend/internal/config"
	"github.com/your-org/storefront-backend/internal/domain/inventory"
	"github.com/your-org/storefront-backend/internal/domain/sequence"
	"github.com/your-org/storefront-backend/internal/domain/user"
	"github.com/your-org/storefront-backend/internal/pkg/apperrors"
	"github.com/your-org/storefront-backend/internal/pkg/database"
	"github.com/your-org/storefront-backend/internal/pkg/metrics"
	"github.com/your-org/storefront-backend/internal/pkg/money"
	"github.com/your-org/storefront-backend/internal/pkg/outbox"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// StockLedger is the only writer of variant stock
type StockLedger interface {
	Debit(ctx context.Context, tx *gorm.DB, e inventory.Entry) (*inventory.StockMovement, error)
	Credit(ctx context.Context, tx *gorm.DB, e inventory.Entry) (*inventory.StockMovement, error)
}

// StockValidator checks requested lines against catalog and stock
type StockValidator interface {
	Validate(ctx context.Context, tx *gorm.DB, lines []inventory.LineRequest) (*inventory.ValidationResult, error)
}

// NumberAllocator hands out per-scope sequence values inside a transaction
type NumberAllocator interface {
	Next(ctx context.Context, tx *gorm.DB, scope string) (int64, error)
}

// ShippingQuoter prices a shipping method, zero when unknown
type ShippingQuoter interface {
	Quote(ctx context.Context, tx *gorm.DB, code string) (decimal.Decimal, error)
}

// EventEmitter queues outbox events inside a transaction
type EventEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) (*outbox.Event, error)
}

// Dependencies are the collaborators of the order service
type Dependencies struct {
	Ledger    StockLedger
	Validator StockValidator
	Numbers   NumberAllocator
	Shipping  ShippingQuoter
	Directory user.Directory
	Emitter   EventEmitter
	Metrics   *metrics.EngineMetrics
	Logger    logrus.FieldLogger
}

// Service handles order business logic
type Service struct {
	db        *gorm.DB
	cfg       config.OrderConfig
	ledger    StockLedger
	validator StockValidator
	numbers   NumberAllocator
	shipping  ShippingQuoter
	directory user.Directory
	emitter   EventEmitter
	metrics   *metrics.EngineMetrics
	logger    logrus.FieldLogger
	now       func() time.Time
}

// NewService creates a new order service
func NewService(db *gorm.DB, cfg config.OrderConfig, deps Dependencies) *Service {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Currency == "" {
		cfg.Currency = "EUR"
	}
	return &Service{
		db:        db,
		cfg:       cfg,
		ledger:    deps.Ledger,
		validator: deps.Validator,
		numbers:   deps.Numbers,
		shipping:  deps.Shipping,
		directory: deps.Directory,
		emitter:   deps.Emitter,
		metrics:   deps.Metrics,
		logger:    deps.Logger,
		now:       time.Now,
	}
}

type appliedTransition struct {
	from, to Status
}

// CreateOrder validates, prices, numbers, persists and reserves stock for an
// order in one transaction. Any failure leaves no order, item, movement or
// consumed number behind.
func (s *Service) CreateOrder(ctx context.Context, req *CreateOrderRequest, actorID *uint) (*Order, error) {
	started := s.now()
	created, err := s.createOrder(ctx, req, actorID)
	if err != nil {
		code := apperrors.CodeOf(err)
		s.metrics.IncOrderFailure(string(code))
		s.logger.WithField("code", code).WithError(err).Warn("order creation rolled back")
		return nil, err
	}

	s.metrics.ObserveOrderCreated(s.now().Sub(started))
	s.logger.WithFields(logrus.Fields{
		"order_id":     created.ID,
		"order_number": created.OrderNumber,
		"total":        money.Format(created.TotalAmount),
		"items":        len(created.Items),
	}).Info("order created")
	return created, nil
}

func (s *Service) createOrder(ctx context.Context, req *CreateOrderRequest, actorID *uint) (*Order, error) {
	if req == nil {
		return nil, apperrors.New(apperrors.CodeValidation, "order request is required")
	}
	if details := checkRequest(req); len(details) > 0 {
		return nil, apperrors.New(apperrors.CodeValidation, "order validation failed").WithDetails(details)
	}

	var created *Order
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		directory := s.directory.WithTx(tx)
		if req.UserID != nil {
			if _, err := directory.FindUser(ctx, *req.UserID); err != nil {
				return err
			}
		}
		if req.AddressID != nil {
			// Guests have no address book.
			if req.UserID == nil {
				return apperrors.Newf(apperrors.CodeNotFound, "address %d not found", *req.AddressID)
			}
			if _, err := directory.FindAddress(ctx, *req.AddressID, *req.UserID); err != nil {
				return err
			}
		}

		lines := make([]inventory.LineRequest, len(req.Items))
		for i, item := range req.Items {
			lines[i] = inventory.LineRequest{ProductID: item.ProductID, VariantID: item.VariantID, Quantity: item.Quantity}
		}
		result, err := s.validator.Validate(ctx, tx, lines)
		if err != nil {
			return err
		}
		if err := result.Err(); err != nil {
			return err
		}

		shippingCost, err := s.shipping.Quote(ctx, tx, req.ShippingMethod)
		if err != nil {
			return err
		}

		items := make([]OrderItem, len(result.Lines))
		pricing := make([]TotalsLine, len(result.Lines))
		for i, line := range result.Lines {
			unit := money.Round(line.UnitPrice)
			item := OrderItem{
				ProductID:        line.Product.ID,
				VariantID:        line.Request.VariantID,
				SKU:              line.Product.SKU,
				Name:             line.Product.Name,
				Quantity:         line.Request.Quantity,
				UnitPrice:        unit,
				TotalPrice:       LineTotal(unit, line.Request.Quantity),
				ProductionStatus: ProductionPending,
				Notes:            req.Items[i].Notes,
				Customization:    req.Items[i].Customization,
			}
			if line.Variant != nil {
				item.SKU = line.Variant.SKU
				item.Name = line.Variant.DisplayName()
			}
			items[i] = item
			pricing[i] = TotalsLine{UnitPrice: unit, Quantity: item.Quantity}
		}
		totals := CalculateTotals(pricing, shippingCost, s.cfg.TaxRate)
		if totals.Total.GreaterThan(MaxOrderTotal) {
			return apperrors.New(apperrors.CodeValidation, "order validation failed").WithDetails([]string{
				fmt.Sprintf("order total %s exceeds the maximum of %s", money.Format(totals.Total), money.Format(MaxOrderTotal)),
			})
		}

		day := s.now().In(s.cfg.Location)
		seq, err := s.numbers.Next(ctx, tx, sequence.OrderScope(day))
		if err != nil {
			return err
		}

		order := &Order{
			OrderNumber:    sequence.FormatOrderNumber(day, seq),
			UserID:         req.UserID,
			AddressID:      req.AddressID,
			Status:         StatusPending,
			PaymentStatus:  PaymentStatusPending,
			CustomerName:   strings.TrimSpace(req.CustomerName),
			Email:          strings.ToLower(strings.TrimSpace(req.Email)),
			Phone:          strings.TrimSpace(req.Phone),
			SubtotalAmount: totals.Subtotal,
			TaxRate:        totals.TaxRate,
			TaxAmount:      totals.TaxAmount,
			ShippingCost:   totals.ShippingCost,
			TotalAmount:    totals.Total,
			Currency:       s.cfg.Currency,
			ShippingMethod: strings.TrimSpace(req.ShippingMethod),
			Notes:          req.Notes,
			Items:          items,
		}
		if err := tx.WithContext(ctx).Create(order).Error; err != nil {
			if database.IsUniqueViolation(err, "") {
				return apperrors.Wrap(apperrors.CodeDuplicate, err, fmt.Sprintf("order number %s already exists", order.OrderNumber))
			}
			return apperrors.Internal(err, "creating order")
		}

		if err := s.recordHistory(ctx, tx, order.ID, "", StatusPending, "order placed", actorID, false); err != nil {
			return err
		}

		// Debits follow submission order.
		for _, item := range order.Items {
			if item.VariantID == nil {
				continue
			}
			_, err := s.ledger.Debit(ctx, tx, inventory.Entry{
				VariantID:     *item.VariantID,
				Quantity:      item.Quantity,
				Reason:        "order " + order.OrderNumber,
				ReferenceType: inventory.ReferenceOrder,
				ReferenceID:   &order.ID,
				ActorID:       actorID,
			})
			if err != nil {
				return err
			}
		}

		_, err = s.emitter.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     outbox.EventOrderCreated,
			AggregateType: outbox.AggregateOrder,
			AggregateID:   strconv.FormatUint(uint64(order.ID), 10),
			Actor:         actorRef(actorID),
			Data: outbox.OrderCreatedData{
				OrderID:     order.ID,
				OrderNumber: order.OrderNumber,
				UserID:      order.UserID,
				Email:       order.Email,
				Total:       money.Format(order.TotalAmount),
			},
		})
		if err != nil {
			return apperrors.Internal(err, "queueing order.created event")
		}

		created = order
		return nil
	})
	if err != nil {
		if apperrors.As(err) == nil {
			return nil, apperrors.Internal(err, "creating order")
		}
		return nil, err
	}
	return created, nil
}

// MaxOrderLines bounds the number of lines in one order
const MaxOrderLines = 100

// checkRequest validates what does not need the database
func checkRequest(req *CreateOrderRequest) []string {
	var details []string
	if strings.TrimSpace(req.CustomerName) == "" {
		details = append(details, "customer name is required")
	}
	if strings.TrimSpace(req.Email) == "" {
		details = append(details, "email is required")
	}
	if len(req.Items) > MaxOrderLines {
		details = append(details, fmt.Sprintf("an order can have at most %d items", MaxOrderLines))
	}
	for i := range req.Items {
		item := &req.Items[i]
		if item.Quantity > inventory.MaxLineQuantity {
			details = append(details, fmt.Sprintf("Item %d: quantity must be at most %d", i+1, inventory.MaxLineQuantity))
		}
		if item.ProductID == 0 && item.VariantID == nil {
			details = append(details, fmt.Sprintf("Item %d: product_id or variant_id is required", i+1))
		}
		if err := item.Customization.Validate(); err != nil {
			details = append(details, fmt.Sprintf("Item %d: %v", i+1, err))
		}
	}
	return details
}

// TransitionStatus moves an order along the status table
func (s *Service) TransitionStatus(ctx context.Context, orderID uint, to Status, comment string, actorID *uint) (*Order, error) {
	if !to.Valid() {
		return nil, apperrors.Newf(apperrors.CodeValidation, "unknown order status %q", to)
	}

	var applied []appliedTransition
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order, err := s.lockOrder(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if !CanTransition(order.Status, to) {
			return apperrors.Newf(apperrors.CodeInvalidTransition,
				"order %s cannot move from %s to %s", order.OrderNumber, order.Status, to).
				WithDetails(map[string]interface{}{
					"from":    order.Status,
					"to":      to,
					"allowed": AllowedTransitions(order.Status),
				})
		}
		from := order.Status
		if err := s.applyTransition(ctx, tx, order, to, comment, actorID, false); err != nil {
			return err
		}
		applied = append(applied, appliedTransition{from: from, to: to})
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.recordTransitions(orderID, applied)
	return s.Get(ctx, orderID)
}

// applyTransition writes the new status with its side effects. The caller has
// already checked legality and holds the order row lock.
func (s *Service) applyTransition(ctx context.Context, tx *gorm.DB, order *Order, to Status, comment string, actorID *uint, automatic bool) error {
	from := order.Status
	now := s.now().UTC()

	updates := map[string]interface{}{
		"status":     to,
		"updated_at": now,
	}
	switch to {
	case StatusConfirmed:
		updates["confirmed_at"] = now
	case StatusShipped:
		updates["shipped_at"] = now
	case StatusDelivered:
		updates["delivered_at"] = now
	case StatusCancelled:
		updates["cancelled_at"] = now
	case StatusRefunded:
		updates["payment_status"] = PaymentStatusRefunded
	}

	if to == StatusCancelled || to == StatusRefunded {
		reason := "order cancelled"
		if to == StatusRefunded {
			reason = "order refunded"
		}
		if err := s.restock(ctx, tx, order, reason, actorID); err != nil {
			return err
		}
	}

	res := tx.WithContext(ctx).Model(&Order{}).
		Where("id = ? AND status = ?", order.ID, from).
		Updates(updates)
	if res.Error != nil {
		return apperrors.Internal(res.Error, "updating order status")
	}
	if res.RowsAffected == 0 {
		return apperrors.Newf(apperrors.CodeInvalidTransition, "order %s changed status concurrently", order.OrderNumber)
	}
	order.Status = to

	if err := s.recordHistory(ctx, tx, order.ID, from, to, comment, actorID, automatic); err != nil {
		return err
	}

	_, err := s.emitter.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     outbox.EventOrderStatusChanged,
		AggregateType: outbox.AggregateOrder,
		AggregateID:   strconv.FormatUint(uint64(order.ID), 10),
		Actor:         actorRef(actorID),
		Data: outbox.OrderStatusChangedData{
			OrderID:     order.ID,
			OrderNumber: order.OrderNumber,
			From:        string(from),
			To:          string(to),
			Email:       order.Email,
			Note:        comment,
		},
	})
	if err != nil {
		return apperrors.Internal(err, "queueing order.status_changed event")
	}
	return nil
}

// restock credits every variant line back as a RETURN movement
func (s *Service) restock(ctx context.Context, tx *gorm.DB, order *Order, reason string, actorID *uint) error {
	for _, item := range order.Items {
		if item.VariantID == nil {
			continue
		}
		_, err := s.ledger.Credit(ctx, tx, inventory.Entry{
			VariantID:     *item.VariantID,
			Quantity:      item.Quantity,
			Type:          inventory.MovementReturn,
			Reason:        reason,
			ReferenceType: inventory.ReferenceOrder,
			ReferenceID:   &order.ID,
			ActorID:       actorID,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// UpdateItemProductionStatus records a line's production progress and
// auto-promotes the order when the items allow it.
func (s *Service) UpdateItemProductionStatus(ctx context.Context, orderID, itemID uint, req *UpdateProductionRequest, actorID *uint) (*Order, error) {
	if req == nil || !req.Status.Valid() {
		return nil, apperrors.New(apperrors.CodeValidation, "valid production_status is required")
	}

	var applied []appliedTransition
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order, err := s.lockOrder(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if order.IsClosed() {
			return apperrors.Newf(apperrors.CodeInvalidTransition, "order %s is %s, production can no longer change", order.OrderNumber, order.Status)
		}

		idx := -1
		for i := range order.Items {
			if order.Items[i].ID == itemID {
				idx = i
				break
			}
		}
		if idx < 0 {
			return apperrors.Newf(apperrors.CodeNotFound, "item %d not found on order %s", itemID, order.OrderNumber)
		}

		updates := map[string]interface{}{
			"production_status": req.Status,
			"updated_at":        s.now().UTC(),
		}
		if req.Notes != nil {
			updates["notes"] = *req.Notes
		}
		if err := tx.WithContext(ctx).Model(&OrderItem{}).Where("id = ?", itemID).Updates(updates).Error; err != nil {
			return apperrors.Internal(err, "updating item production status")
		}
		order.Items[idx].ProductionStatus = req.Status

		path := promotionPath(order.Status, order.Items)
		if len(path) == 0 {
			if order.Status != StatusConfirmed && order.Status != StatusInProduction {
				s.logger.WithFields(logrus.Fields{
					"order_id":          order.ID,
					"order_status":      order.Status,
					"production_status": req.Status,
				}).Info("auto-promotion skipped, order not in production window")
			}
			return nil
		}
		for _, next := range path {
			if !CanTransition(order.Status, next) {
				s.logger.WithFields(logrus.Fields{
					"order_id": order.ID,
					"from":     order.Status,
					"to":       next,
				}).Warn("auto-promotion rejected by transition table")
				return nil
			}
			from := order.Status
			comment := fmt.Sprintf("automatic: item %d %s", itemID, req.Status)
			if err := s.applyTransition(ctx, tx, order, next, comment, actorID, true); err != nil {
				return err
			}
			applied = append(applied, appliedTransition{from: from, to: next})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.recordTransitions(orderID, applied)
	return s.Get(ctx, orderID)
}

// UpdateTracking sets the tracking number and carrier
func (s *Service) UpdateTracking(ctx context.Context, orderID uint, req *UpdateTrackingRequest) (*Order, error) {
	if req == nil || strings.TrimSpace(req.TrackingNumber) == "" {
		return nil, apperrors.New(apperrors.CodeValidation, "tracking_number is required")
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order, err := s.lockOrder(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if order.IsClosed() {
			return apperrors.Newf(apperrors.CodeInvalidTransition, "order %s is %s", order.OrderNumber, order.Status)
		}
		err = tx.WithContext(ctx).Model(&Order{}).Where("id = ?", orderID).Updates(map[string]interface{}{
			"tracking_number":  strings.TrimSpace(req.TrackingNumber),
			"shipping_carrier": strings.TrimSpace(req.ShippingCarrier),
			"updated_at":       s.now().UTC(),
		}).Error
		if err != nil {
			return apperrors.Internal(err, "updating tracking")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, orderID)
}

// Delete physically removes a PENDING or CANCELLED order. A PENDING order's
// stock is returned first.
func (s *Service) Delete(ctx context.Context, orderID uint, actorID *uint) error {
	var number string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order, err := s.lockOrder(ctx, tx, orderID)
		if err != nil {
			return err
		}
		number = order.OrderNumber
		switch order.Status {
		case StatusPending:
			if err := s.restock(ctx, tx, order, "order deleted", actorID); err != nil {
				return err
			}
		case StatusCancelled:
		default:
			return apperrors.Newf(apperrors.CodeInvalidTransition,
				"order %s is %s; only PENDING or CANCELLED orders can be deleted", order.OrderNumber, order.Status)
		}

		if err := tx.WithContext(ctx).Where("order_id = ?", orderID).Delete(&OrderStatusHistory{}).Error; err != nil {
			return apperrors.Internal(err, "deleting order history")
		}
		if err := tx.WithContext(ctx).Where("order_id = ?", orderID).Delete(&OrderItem{}).Error; err != nil {
			return apperrors.Internal(err, "deleting order items")
		}
		if err := tx.WithContext(ctx).Delete(&Order{}, orderID).Error; err != nil {
			return apperrors.Internal(err, "deleting order")
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.logger.WithFields(logrus.Fields{"order_id": orderID, "order_number": number}).Info("order deleted")
	return nil
}

// Get retrieves a single order by ID
func (s *Service) Get(ctx context.Context, id uint) (*Order, error) {
	return s.findOne(ctx, "id = ?", id)
}

// GetByNumber retrieves a single order by order number
func (s *Service) GetByNumber(ctx context.Context, orderNumber string) (*Order, error) {
	return s.findOne(ctx, "order_number = ?", strings.ToUpper(strings.TrimSpace(orderNumber)))
}

func (s *Service) findOne(ctx context.Context, query string, arg interface{}) (*Order, error) {
	var order Order
	err := s.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("id ASC")
		}).
		Preload("StatusHistory", func(db *gorm.DB) *gorm.DB {
			return db.Order("id ASC")
		}).
		Where(query, arg).
		First(&order).Error
	if err != nil {
		if database.IsNotFound(err) {
			return nil, apperrors.NotFound("order")
		}
		return nil, apperrors.Internal(err, "loading order")
	}
	return &order, nil
}

// List returns a filtered page of orders
func (s *Service) List(ctx context.Context, req *ListRequest) (*ListResponse, error) {
	if req == nil {
		req = &ListRequest{}
	}
	if req.Page < 1 {
		req.Page = 1
	}
	if req.Limit < 1 || req.Limit > 100 {
		req.Limit = 20
	}

	query := s.db.WithContext(ctx).Model(&Order{})
	if req.Status != "" {
		query = query.Where("status = ?", req.Status)
	}
	if req.UserID > 0 {
		query = query.Where("user_id = ?", req.UserID)
	}
	if search := strings.TrimSpace(req.Search); search != "" {
		like := "%" + strings.ToLower(search) + "%"
		query = query.Where("LOWER(order_number) LIKE ? OR LOWER(email) LIKE ? OR LOWER(customer_name) LIKE ?", like, like, like)
	}
	if req.DateFrom != "" {
		from, err := time.ParseInLocation("2006-01-02", req.DateFrom, s.cfg.Location)
		if err != nil {
			return nil, apperrors.Newf(apperrors.CodeValidation, "date_from must be YYYY-MM-DD")
		}
		query = query.Where("created_at >= ?", from.UTC())
	}
	if req.DateTo != "" {
		to, err := time.ParseInLocation("2006-01-02", req.DateTo, s.cfg.Location)
		if err != nil {
			return nil, apperrors.Newf(apperrors.CodeValidation, "date_to must be YYYY-MM-DD")
		}
		query = query.Where("created_at < ?", to.AddDate(0, 0, 1).UTC())
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, apperrors.Internal(err, "counting orders")
	}

	var orders []Order
	err := query.
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("id ASC")
		}).
		Order(buildOrderClause(req.SortBy, req.SortOrder)).
		Offset((req.Page - 1) * req.Limit).
		Limit(req.Limit).
		Find(&orders).Error
	if err != nil {
		return nil, apperrors.Internal(err, "listing orders")
	}

	totalPages := int((total + int64(req.Limit) - 1) / int64(req.Limit))
	return &ListResponse{
		Orders: orders,
		Pagination: Pagination{
			Page:       req.Page,
			Limit:      req.Limit,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    req.Page < totalPages,
			HasPrev:    req.Page > 1,
		},
	}, nil
}

// OpenQuantityForVariant sums the quantities held by orders that are neither
// CANCELLED nor REFUNDED
func (s *Service) OpenQuantityForVariant(ctx context.Context, variantID uint) (int, error) {
	var total int64
	err := s.db.WithContext(ctx).Model(&OrderItem{}).
		Joins("JOIN orders ON orders.id = order_items.order_id").
		Where("order_items.variant_id = ? AND orders.status NOT IN ?", variantID, []Status{StatusCancelled, StatusRefunded}).
		Select("COALESCE(SUM(order_items.quantity), 0)").
		Scan(&total).Error
	if err != nil {
		return 0, apperrors.Internal(err, "summing open order quantity")
	}
	return int(total), nil
}

func (s *Service) lockOrder(ctx context.Context, tx *gorm.DB, id uint) (*Order, error) {
	var order Order
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&order, id).Error
	if err != nil {
		if database.IsNotFound(err) {
			return nil, apperrors.NotFound("order")
		}
		return nil, apperrors.Internal(err, "locking order")
	}
	if err := tx.WithContext(ctx).Where("order_id = ?", id).Order("id ASC").Find(&order.Items).Error; err != nil {
		return nil, apperrors.Internal(err, "loading order items")
	}
	return &order, nil
}

func (s *Service) recordHistory(ctx context.Context, tx *gorm.DB, orderID uint, from, to Status, comment string, actorID *uint, automatic bool) error {
	entry := &OrderStatusHistory{
		OrderID:    orderID,
		FromStatus: from,
		ToStatus:   to,
		Comment:    comment,
		ActorID:    actorID,
		Automatic:  automatic,
		CreatedAt:  s.now().UTC(),
	}
	if err := tx.WithContext(ctx).Create(entry).Error; err != nil {
		return apperrors.Internal(err, "recording status history")
	}
	return nil
}

func (s *Service) recordTransitions(orderID uint, applied []appliedTransition) {
	for _, t := range applied {
		s.metrics.IncTransition(string(t.from), string(t.to))
		s.logger.WithFields(logrus.Fields{
			"order_id": orderID,
			"from":     t.from,
			"to":       t.to,
		}).Info("order status changed")
	}
}

func actorRef(actorID *uint) *outbox.ActorRef {
	if actorID == nil {
		return nil
	}
	return &outbox.ActorRef{UserID: *actorID}
}

func buildOrderClause(sortBy, sortOrder string) string {
	validSortFields := map[string]bool{
		"created_at":   true,
		"updated_at":   true,
		"total_amount": true,
		"status":       true,
		"order_number": true,
	}

	if !validSortFields[sortBy] {
		sortBy = "created_at"
	}

	if sortOrder != "asc" && sortOrder != "desc" {
		sortOrder = "desc"
	}

	return fmt.Sprintf("%s %s, id %s", sortBy, sortOrder, sortOrder)
}
