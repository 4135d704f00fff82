// cmd/api/main.go
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-backend/internal/config"
	"github.com/your-org/storefront-backend/internal/domain/checkout"
	"github.com/your-org/storefront-backend/internal/domain/inventory"
	"github.com/your-org/storefront-backend/internal/domain/invoice"
	"github.com/your-org/storefront-backend/internal/domain/notification"
	"github.com/your-org/storefront-backend/internal/domain/order"
	"github.com/your-org/storefront-backend/internal/domain/product"
	"github.com/your-org/storefront-backend/internal/domain/sequence"
	"github.com/your-org/storefront-backend/internal/domain/shipping"
	"github.com/your-org/storefront-backend/internal/domain/user"
	"github.com/your-org/storefront-backend/internal/infrastructure/database/postgres"
	"github.com/your-org/storefront-backend/internal/infrastructure/database/redis"
	"github.com/your-org/storefront-backend/internal/interfaces/http"
	"github.com/your-org/storefront-backend/internal/interfaces/http/handlers"
	"github.com/your-org/storefront-backend/internal/interfaces/http/middleware"
	"github.com/your-org/storefront-backend/internal/interfaces/http/routes"
	"github.com/your-org/storefront-backend/internal/pkg/auth"
	"github.com/your-org/storefront-backend/internal/pkg/email"
	"github.com/your-org/storefront-backend/internal/pkg/logger"
	"github.com/your-org/storefront-backend/internal/pkg/metrics"
	"github.com/your-org/storefront-backend/internal/pkg/outbox"
	"github.com/your-org/storefront-backend/internal/pkg/pdf"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}

	log := logger.New(cfg)
	log.WithFields(logrus.Fields{
		"app":         cfg.App.Name,
		"version":     cfg.App.Version,
		"environment": cfg.App.Environment,
	}).Info("starting")

	conn, err := postgres.NewConnection(cfg, log)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer conn.Close()

	if err := conn.Health(); err != nil {
		log.Fatalf("Database health check failed: %v", err)
	}
	db := conn.GetDB()

	migration := postgres.NewMigration(db, log)
	if err := migration.RunAutoMigrations(); err != nil {
		log.Fatalf("Database migration failed: %v", err)
	}
	if err := migration.CreateIndexes(); err != nil {
		log.WithError(err).Warn("index creation failed")
	}
	seed := cfg.Seed
	seed.SampleCatalog = seed.SampleCatalog && cfg.IsDevelopment()
	if err := migration.SeedInitialData(seed, cfg.Security.BcryptCost); err != nil {
		log.WithError(err).Warn("data seeding failed")
	}

	// Redis is optional: rate limiting, replay protection and the leader
	// lock fall back when it is down.
	redisConn, err := redis.NewConnection(cfg, log)
	if err != nil {
		log.WithError(err).Warn("redis unavailable, continuing without it")
		redisConn = nil
	} else {
		defer redisConn.Close()
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	engineMetrics := metrics.NewEngineMetrics(registry)

	// Domain services
	emitter := outbox.NewEmitter(log)
	products := product.NewRepository(db)
	ledger := inventory.NewLedger(db, products, emitter, engineMetrics, log, cfg.Order.LowStockThreshold)
	validator := inventory.NewValidator(products)
	numbers := sequence.NewAllocator()
	shippingService := shipping.NewService(db, log)
	jwtManager := auth.NewJWTManager(cfg)
	userService := user.NewService(db, jwtManager, auth.NewPasswordManager(cfg), log)

	orderService := order.NewService(db, cfg.Order, order.Dependencies{
		Ledger:    ledger,
		Validator: validator,
		Numbers:   numbers,
		Shipping:  shippingService,
		Directory: userService,
		Emitter:   emitter,
		Metrics:   engineMetrics,
		Logger:    log,
	})
	invoiceService := invoice.NewService(db, numbers, invoice.NewCompanyProvider(cfg.Company, cfg.App.Name),
		userService, emitter, engineMetrics, log, cfg.Order.Location)
	checkoutService := checkout.NewService(orderService, invoiceService, validator, shippingService, cfg.Order.TaxRate, log)
	inventoryService := inventory.NewService(db, ledger, products, log)

	// Outbox delivery
	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	mailer := email.NewEmailService(cfg.Email, cfg.App.BaseURL, log)
	dispatcher := outbox.NewDispatcher(db, cfg.Outbox, log, engineMetrics)
	if redisConn != nil && cfg.Outbox.LeaderLock {
		dispatcher.Leader = redis.NewLeaderLock(redisConn.GetClient(), "outbox:dispatcher:leader", cfg.Outbox.LeaderLockTTL, log)
	}
	notification.RegisterHandlers(dispatcher, invoiceService, notification.NewEmailNotifier(mailer, cfg.Email.StaffEmail, log), log)

	dispatcherDone := make(chan struct{})
	if cfg.Outbox.Enabled {
		go func() {
			defer close(dispatcherDone)
			dispatcher.Run(ctx)
		}()
	} else {
		close(dispatcherDone)
	}

	// HTTP
	guards := routes.Guards{
		Tokens:         jwtManager,
		Idempotency:    middleware.NewMemoryIdempotencyStore(),
		IdempotencyTTL: cfg.Security.IdempotencyTTL,
		Logger:         log,
	}
	optional := map[string]handlers.Check{}
	var opts http.Options
	if redisConn != nil {
		guards.Idempotency = redis.NewIdempotencyStore(redisConn.GetClient())
		optional["redis"] = redisConn.Health
		opts.RedisClient = redisConn.GetClient()
	}

	opts.Handlers = routes.Handlers{
		Auth:      handlers.NewAuthHandler(userService, log),
		Addresses: handlers.NewUserAddressHandler(userService, log),
		Orders:    handlers.NewOrderHandler(checkoutService, orderService, log),
		Checkout:  handlers.NewCheckoutHandler(checkoutService, shippingService, log),
		Inventory: handlers.NewInventoryHandler(inventoryService, orderService, log),
		Invoices:  handlers.NewInvoiceHandler(invoiceService, orderService, pdf.NewService(cfg.Order.Location), log),
	}
	opts.Guards = guards
	opts.Gatherer = registry
	opts.Health = handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version,
		map[string]handlers.Check{"database": func(context.Context) error { return conn.Health() }},
		optional,
	)

	server, err := http.NewServer(cfg, log, opts)
	if err != nil {
		log.Fatalf("Failed to build HTTP server: %v", err)
	}

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	select {
	case sig := <-quit:
		log.WithField("signal", sig.String()).Info("shutting down gracefully")
	case err := <-serverErr:
		if err != nil {
			log.WithError(err).Error("HTTP server stopped")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Stop(shutdownCtx); err != nil {
		log.WithError(err).Error("failed to shutdown HTTP server gracefully")
	}

	stop()
	select {
	case <-dispatcherDone:
	case <-shutdownCtx.Done():
		if errors.Is(shutdownCtx.Err(), context.DeadlineExceeded) {
			log.Warn("outbox dispatcher did not stop in time")
		}
	}

	log.Info("server shutdown completed")
}
