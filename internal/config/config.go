// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config holds all configuration for our application
type Config struct {
	App      AppConfig
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Security SecurityConfig
	Order    OrderConfig
	Company  CompanyConfig
	Outbox   OutboxConfig
	Email    EmailConfig
	Logging  LoggingConfig
	Seed     SeedConfig
}

// AppConfig contains application-level configuration
type AppConfig struct {
	Name        string
	Version     string
	Environment string
	Debug       bool
	BaseURL     string
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port           string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	RequestTimeout time.Duration
	MaxBodyBytes   int64
}

// DatabaseConfig contains database connection configuration
type DatabaseConfig struct {
	Host         string
	Port         string
	Name         string
	User         string
	Password     string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  time.Duration
	LogQueries   bool
}

// RedisConfig contains Redis configuration
type RedisConfig struct {
	Host         string
	Port         string
	Password     string
	DB           int
	PoolSize     int
	MinIdleConns int
}

// JWTConfig contains JWT token configuration
type JWTConfig struct {
	Secret            string
	AccessTokenExpiry time.Duration
}

// SecurityConfig contains security-related configuration
type SecurityConfig struct {
	BcryptCost         int
	RateLimitPerMinute int
	IdempotencyTTL     time.Duration
	CORSAllowedOrigins []string
	CORSAllowedMethods []string
	CORSAllowedHeaders []string
	TrustedProxies     []string
}

// OrderConfig controls pricing and numbering of orders
type OrderConfig struct {
	TaxRate  decimal.Decimal
	Currency string
	// Location decides the calendar day used in order numbers.
	Location *time.Location
	// LowStockThreshold raises a stock alert when a variant drops to or below it.
	LowStockThreshold int
}

// CompanyConfig is the company block printed on invoices
type CompanyConfig struct {
	Name    string
	Address string
	TaxID   string
	Phone   string
	Email   string
	Website string
}

// OutboxConfig tunes the background event dispatcher
type OutboxConfig struct {
	Enabled        bool
	BatchSize      int
	PollInterval   time.Duration
	LockTimeout    time.Duration
	MaxAttempts    int
	InitialBackoff time.Duration
	LeaderLock     bool
	LeaderLockTTL  time.Duration
}

// EmailConfig contains email service configuration
type EmailConfig struct {
	Provider     string
	FromEmail    string
	FromName     string
	ReplyTo      string
	StaffEmail   string
	APIKey       string
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPUseTLS   bool
}

// SeedConfig controls the data inserted on first start
type SeedConfig struct {
	AdminEmail    string
	AdminPassword string
	// SampleCatalog adds demo products, development only.
	SampleCatalog bool
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string
	Format string
}

// Load loads configuration from environment variables and .env file
func Load() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file found, using environment variables")
	}

	taxRate, err := decimal.NewFromString(getEnv("ORDER_TAX_RATE", "0.21"))
	if err != nil {
		return nil, fmt.Errorf("invalid ORDER_TAX_RATE: %w", err)
	}

	location, err := time.LoadLocation(getEnv("ORDER_TIMEZONE", "UTC"))
	if err != nil {
		return nil, fmt.Errorf("invalid ORDER_TIMEZONE: %w", err)
	}

	config := &Config{
		App: AppConfig{
			Name:        getEnv("APP_NAME", "Storefront Backend"),
			Version:     getEnv("APP_VERSION", "1.0.0"),
			Environment: getEnv("APP_ENV", "development"),
			Debug:       getEnvAsBool("APP_DEBUG", true),
			BaseURL:     getEnv("APP_BASE_URL", "http://localhost:3000"),
		},
		Server: ServerConfig{
			Port:           getEnv("APP_PORT", "8080"),
			ReadTimeout:    getEnvAsDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:   getEnvAsDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:    getEnvAsDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
			RequestTimeout: getEnvAsDuration("SERVER_REQUEST_TIMEOUT", 30*time.Second),
			MaxBodyBytes:   getEnvAsInt64("SERVER_MAX_BODY_BYTES", 10<<20),
		},
		Database: DatabaseConfig{
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnv("DB_PORT", "5432"),
			Name:         getEnv("DB_NAME", "storefront_db"),
			User:         getEnv("DB_USER", "storefront_user"),
			Password:     getEnv("DB_PASSWORD", "storefront_password"),
			SSLMode:      getEnv("DB_SSL_MODE", "disable"),
			MaxOpenConns: getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			MaxLifetime:  getEnvAsDuration("DB_MAX_LIFETIME", 300*time.Second),
			LogQueries:   getEnvAsBool("DB_LOG_QUERIES", false),
		},
		Redis: RedisConfig{
			Host:         getEnv("REDIS_HOST", "localhost"),
			Port:         getEnv("REDIS_PORT", "6379"),
			Password:     getEnv("REDIS_PASSWORD", ""),
			DB:           getEnvAsInt("REDIS_DB", 0),
			PoolSize:     getEnvAsInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: getEnvAsInt("REDIS_MIN_IDLE_CONNS", 5),
		},
		JWT: JWTConfig{
			Secret:            getEnv("JWT_SECRET", "your-super-secret-jwt-key-change-in-production"),
			AccessTokenExpiry: getEnvAsDuration("JWT_ACCESS_EXPIRE", 24*time.Hour),
		},
		Security: SecurityConfig{
			BcryptCost:         getEnvAsInt("BCRYPT_COST", 12),
			RateLimitPerMinute: getEnvAsInt("RATE_LIMIT_PER_MINUTE", 100),
			IdempotencyTTL:     getEnvAsDuration("IDEMPOTENCY_TTL", 24*time.Hour),
			CORSAllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000", "http://localhost:3001"}),
			CORSAllowedMethods: getEnvAsSlice("CORS_ALLOWED_METHODS", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
			CORSAllowedHeaders: getEnvAsSlice("CORS_ALLOWED_HEADERS", []string{"Origin", "Content-Type", "Accept", "Authorization", "Idempotency-Key", "X-Request-ID"}),
			TrustedProxies:     getEnvAsSlice("TRUSTED_PROXIES", []string{}),
		},
		Order: OrderConfig{
			TaxRate:           taxRate,
			Currency:          getEnv("ORDER_CURRENCY", "EUR"),
			Location:          location,
			LowStockThreshold: getEnvAsInt("LOW_STOCK_THRESHOLD", 5),
		},
		Company: CompanyConfig{
			Name:    getEnv("COMPANY_NAME", ""),
			Address: getEnv("COMPANY_ADDRESS", ""),
			TaxID:   getEnv("COMPANY_TAX_ID", ""),
			Phone:   getEnv("COMPANY_PHONE", ""),
			Email:   getEnv("COMPANY_EMAIL", ""),
			Website: getEnv("COMPANY_WEBSITE", ""),
		},
		Outbox: OutboxConfig{
			Enabled:        getEnvAsBool("OUTBOX_ENABLED", true),
			BatchSize:      getEnvAsInt("OUTBOX_BATCH_SIZE", 50),
			PollInterval:   getEnvAsDuration("OUTBOX_POLL_INTERVAL", 2*time.Second),
			LockTimeout:    getEnvAsDuration("OUTBOX_LOCK_TIMEOUT", 30*time.Second),
			MaxAttempts:    getEnvAsInt("OUTBOX_MAX_ATTEMPTS", 10),
			InitialBackoff: getEnvAsDuration("OUTBOX_INITIAL_BACKOFF", 5*time.Second),
			LeaderLock:     getEnvAsBool("OUTBOX_LEADER_LOCK", true),
			LeaderLockTTL:  getEnvAsDuration("OUTBOX_LEADER_LOCK_TTL", 15*time.Second),
		},
		Email: EmailConfig{
			Provider:     getEnv("EMAIL_PROVIDER", "log"),
			FromEmail:    getEnv("FROM_EMAIL", "noreply@example.com"),
			FromName:     getEnv("FROM_NAME", "Storefront"),
			ReplyTo:      getEnv("REPLY_TO_EMAIL", ""),
			StaffEmail:   getEnv("STAFF_EMAIL", ""),
			APIKey:       getEnv("EMAIL_API_KEY", ""),
			SMTPHost:     getEnv("SMTP_HOST", ""),
			SMTPPort:     getEnvAsInt("SMTP_PORT", 587),
			SMTPUsername: getEnv("SMTP_USER", ""),
			SMTPPassword: getEnv("SMTP_PASS", ""),
			SMTPUseTLS:   getEnvAsBool("SMTP_USE_TLS", false),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "debug"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Seed: SeedConfig{
			AdminEmail:    getEnv("SEED_ADMIN_EMAIL", "admin@example.com"),
			AdminPassword: getEnv("SEED_ADMIN_PASSWORD", ""),
			SampleCatalog: getEnvAsBool("SEED_SAMPLE_CATALOG", false),
		},
	}

	// Validate configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	// Validate JWT secret
	if len(c.JWT.Secret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters long")
	}

	// Validate database configuration
	if c.Database.Host == "" {
		return fmt.Errorf("DB_HOST is required")
	}
	if c.Database.Name == "" {
		return fmt.Errorf("DB_NAME is required")
	}
	if c.Database.User == "" {
		return fmt.Errorf("DB_USER is required")
	}

	// Validate Redis configuration
	if c.Redis.Host == "" {
		return fmt.Errorf("REDIS_HOST is required")
	}

	// Validate server port
	if c.Server.Port == "" {
		return fmt.Errorf("APP_PORT is required")
	}

	if c.Order.TaxRate.IsNegative() || c.Order.TaxRate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return fmt.Errorf("ORDER_TAX_RATE must be in [0, 1)")
	}

	if c.Outbox.BatchSize <= 0 {
		return fmt.Errorf("OUTBOX_BATCH_SIZE must be positive")
	}

	return nil
}

// IsDevelopment returns true if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// IsProduction returns true if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// GetDatabaseDSN returns the database connection string
func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// GetRedisAddr returns the Redis address
func (c *Config) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", c.Redis.Host, c.Redis.Port)
}

// Helper functions for environment variable parsing

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts
	}
	return defaultValue
}
