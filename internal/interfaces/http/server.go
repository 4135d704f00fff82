// internal/interfaces/http/server.go
package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-backend/internal/config"
	"github.com/your-org/storefront-backend/internal/interfaces/http/handlers"
	"github.com/your-org/storefront-backend/internal/interfaces/http/middleware"
	"github.com/your-org/storefront-backend/internal/interfaces/http/routes"
)

// Server represents the HTTP server
type Server struct {
	config     *config.Config
	logger     logrus.FieldLogger
	gin        *gin.Engine
	httpServer *http.Server
}

// Options are the collaborators the server mounts
type Options struct {
	Handlers routes.Handlers
	Guards   routes.Guards
	Health   *handlers.HealthHandler
	// RedisClient backs rate limiting; nil disables it.
	RedisClient *redis.Client
	Gatherer    prometheus.Gatherer
}

// NewServer creates a new HTTP server instance with middleware and routes in place
func NewServer(cfg *config.Config, logger logrus.FieldLogger, opts Options) (*Server, error) {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	if err := middleware.RegisterValidators(); err != nil {
		return nil, fmt.Errorf("register validators: %w", err)
	}

	s := &Server{config: cfg, logger: logger, gin: gin.New()}
	if err := s.gin.SetTrustedProxies(cfg.Security.TrustedProxies); err != nil {
		return nil, fmt.Errorf("trusted proxies: %w", err)
	}
	if opts.Guards.Logger == nil {
		opts.Guards.Logger = logger
	}

	s.setupMiddleware(opts)
	s.setupRoutes(opts)

	s.httpServer = &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      s.gin,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
	return s, nil
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.gin
}

// Start starts the HTTP server and blocks until it stops
func (s *Server) Start() error {
	s.logger.WithFields(logrus.Fields{
		"port":        s.config.Server.Port,
		"environment": s.config.App.Environment,
	}).Info("HTTP server starting")

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}
	return nil
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown HTTP server: %w", err)
	}

	s.logger.Info("HTTP server stopped gracefully")
	return nil
}

func (s *Server) setupMiddleware(opts Options) {
	s.gin.Use(middleware.RequestID())
	s.gin.Use(middleware.Recovery(s.logger))
	s.gin.Use(middleware.Logger(s.logger))
	s.gin.Use(middleware.CORS(s.config))
	s.gin.Use(middleware.SecurityHeaders())
	s.gin.Use(middleware.RateLimit(opts.RedisClient, s.config.Security.RateLimitPerMinute, s.logger))
	s.gin.Use(middleware.MaxBodySize(s.config.Server.MaxBodyBytes))
	s.gin.Use(middleware.Timeout(s.config.Server.RequestTimeout))
}

func (s *Server) setupRoutes(opts Options) {
	if opts.Health != nil {
		s.gin.GET("/health", opts.Health.Health)
		s.gin.GET("/ready", opts.Health.Ready)
	}
	if opts.Gatherer != nil {
		s.gin.GET("/metrics", gin.WrapH(promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})))
	}

	apiV1 := s.gin.Group("/api/v1")
	routes.SetupRoutes(apiV1, opts.Handlers, opts.Guards)

	s.gin.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Route not found",
			"code":  "NOT_FOUND",
		})
	})
}
