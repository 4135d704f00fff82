// internal/infrastructure/database/postgres/migration.go
package postgres

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-backend/internal/config"
	"github.com/your-org/storefront-backend/internal/domain/inventory"
	"github.com/your-org/storefront-backend/internal/domain/invoice"
	"github.com/your-org/storefront-backend/internal/domain/order"
	"github.com/your-org/storefront-backend/internal/domain/product"
	"github.com/your-org/storefront-backend/internal/domain/sequence"
	"github.com/your-org/storefront-backend/internal/domain/shipping"
	"github.com/your-org/storefront-backend/internal/domain/user"
	"github.com/your-org/storefront-backend/internal/pkg/auth"
	"github.com/your-org/storefront-backend/internal/pkg/outbox"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Migration handles database migrations
type Migration struct {
	db     *gorm.DB
	logger logrus.FieldLogger
}

// NewMigration creates a new migration instance
func NewMigration(db *gorm.DB, logger logrus.FieldLogger) *Migration {
	return &Migration{db: db, logger: logger}
}

// Models lists every persisted model in dependency order
func Models() []interface{} {
	return []interface{}{
		&user.User{},
		&user.Address{},

		&product.Product{},
		&product.ProductVariant{},

		&inventory.StockMovement{},
		&inventory.StockAlert{},

		&sequence.Counter{},
		&shipping.Method{},

		&order.Order{},
		&order.OrderItem{},
		&order.OrderStatusHistory{},

		&invoice.Invoice{},

		&outbox.Event{},
	}
}

// RunAutoMigrations runs GORM auto-migrations for all models
func (m *Migration) RunAutoMigrations() error {
	m.logger.Info("running database auto-migrations")

	for _, model := range Models() {
		m.logger.Debugf("migrating model: %T", model)
		if err := m.db.AutoMigrate(model); err != nil {
			return fmt.Errorf("failed to migrate model %T: %w", model, err)
		}
	}

	m.logger.Info("database auto-migrations completed")
	return nil
}

// CreateIndexes creates the Postgres-only indexes AutoMigrate cannot express
func (m *Migration) CreateIndexes() error {
	if m.db.Dialector.Name() != "postgres" {
		return nil
	}

	indexes := []string{
		// dispatcher claim query
		"CREATE INDEX IF NOT EXISTS idx_outbox_events_pending ON outbox_events(next_attempt_at, created_at) WHERE status = 'PENDING'",
		"CREATE INDEX IF NOT EXISTS idx_orders_user_status ON orders(user_id, status)",
		"CREATE INDEX IF NOT EXISTS idx_orders_status_created ON orders(status, created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_order_status_history_order ON order_status_history(order_id, created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_stock_alerts_open ON stock_alerts(variant_id) WHERE is_resolved = false",
		"CREATE INDEX IF NOT EXISTS idx_product_variants_product_active ON product_variants(product_id, is_active)",
		"CREATE INDEX IF NOT EXISTS idx_invoices_issued_at ON invoices(issued_at DESC)",
	}

	failed := 0
	for _, indexSQL := range indexes {
		if err := m.db.Exec(indexSQL).Error; err != nil {
			m.logger.WithError(err).WithField("sql", indexSQL).Warn("failed to create index")
			failed++
		}
	}

	m.logger.WithFields(logrus.Fields{
		"created": len(indexes) - failed,
		"failed":  failed,
	}).Info("additional indexes created")
	return nil
}

// SeedInitialData inserts shipping methods, the first admin and, when asked,
// a demo catalog. Running it again changes nothing.
func (m *Migration) SeedInitialData(cfg config.SeedConfig, bcryptCost int) error {
	if err := m.seedShippingMethods(); err != nil {
		return fmt.Errorf("failed to seed shipping methods: %w", err)
	}
	if err := m.seedAdminUser(cfg, bcryptCost); err != nil {
		return fmt.Errorf("failed to seed admin user: %w", err)
	}
	if cfg.SampleCatalog {
		if err := m.seedSampleCatalog(); err != nil {
			return fmt.Errorf("failed to seed sample catalog: %w", err)
		}
	}
	return nil
}

func (m *Migration) seedShippingMethods() error {
	methods := shipping.DefaultMethods()
	result := m.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "code"}},
		DoNothing: true,
	}).Create(&methods)
	if result.Error != nil {
		return result.Error
	}
	m.logger.WithField("inserted", result.RowsAffected).Info("shipping methods seeded")
	return nil
}

func (m *Migration) seedAdminUser(cfg config.SeedConfig, bcryptCost int) error {
	email := strings.ToLower(strings.TrimSpace(cfg.AdminEmail))
	if email == "" || cfg.AdminPassword == "" {
		m.logger.Info("admin seed skipped, SEED_ADMIN_EMAIL or SEED_ADMIN_PASSWORD not set")
		return nil
	}

	var count int64
	if err := m.db.Model(&user.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		m.logger.WithField("email", email).Debug("admin user already exists")
		return nil
	}

	if bcryptCost < bcrypt.MinCost {
		bcryptCost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(cfg.AdminPassword), bcryptCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	admin := user.User{
		Email:     email,
		Password:  string(hash),
		FirstName: "Admin",
		Role:      auth.RoleAdmin,
		IsActive:  true,
	}
	if err := m.db.Create(&admin).Error; err != nil {
		return err
	}
	m.logger.WithFields(logrus.Fields{"email": email, "user_id": admin.ID}).Info("admin user created")
	return nil
}

// seedSampleCatalog inserts demo products. Opening stock goes through a
// receipt movement so the ledger chain starts consistent.
func (m *Migration) seedSampleCatalog() error {
	var count int64
	if err := m.db.Model(&product.Product{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	return m.db.Transaction(func(tx *gorm.DB) error {
		mug := product.Product{
			SKU: "MUG", Name: "Ceramic Mug", Slug: "ceramic-mug",
			Description: "Hand-glazed mug, personalised with an engraving",
			Price:       decimal.RequireFromString("12.50"), IsActive: true,
			Variants: []product.ProductVariant{
				{SKU: "SKU-001", Name: "Blue", LowStockThreshold: 2, IsActive: true},
				{SKU: "SKU-002", Name: "Gold", Price: decimal.NewNullDecimal(decimal.RequireFromString("15.00")), LowStockThreshold: 2, IsActive: true},
			},
		}
		if err := tx.Create(&mug).Error; err != nil {
			return err
		}

		opening := map[string]int{"SKU-001": 3, "SKU-002": 20}
		for _, v := range mug.Variants {
			qty := opening[v.SKU]
			movement := inventory.StockMovement{
				VariantID:     v.ID,
				Type:          inventory.MovementIn,
				Quantity:      qty,
				Direction:     1,
				StockBefore:   0,
				StockAfter:    qty,
				Reason:        "opening stock",
				ReferenceType: inventory.ReferenceReceipt,
			}
			if err := tx.Create(&movement).Error; err != nil {
				return err
			}
			if err := tx.Model(&product.ProductVariant{}).Where("id = ?", v.ID).Update("stock", qty).Error; err != nil {
				return err
			}
		}
		m.logger.Info("sample catalog seeded")
		return nil
	})
}
