package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Logger   LoggerConfig
	Auth     AuthConfig
	Payment  PaymentConfig
	Checkout CheckoutConfig
	Archive  ArchiveConfig
}

// ServerConfig holds server-related configuration.
type ServerConfig struct {
	Host string
	Port int
}

// DatabaseConfig holds database-related configuration.
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Database        string
	MaxConnections  int
	MinConnections  int
	MaxConnLifetime int // seconds
}

// RedisConfig holds the cart session store configuration.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	CartTTL  int // seconds
}

// LoggerConfig holds logger-related configuration.
type LoggerConfig struct {
	Level  string
	Format string // "json" or "console"
}

// AuthConfig holds authentication configuration for admin endpoints.
type AuthConfig struct {
	APIKey string
}

// PaymentConfig holds payment processor configuration.
type PaymentConfig struct {
	BaseURL       string
	APIKey        string
	WebhookSecret string
	SuccessURL    string
	CancelURL     string
	TimeoutSecs   int
}

// CheckoutConfig holds checkout pricing configuration.
type CheckoutConfig struct {
	ShippingFeeCents int64
}

// ArchiveConfig holds AWS S3 configuration for the webhook event archive.
type ArchiveConfig struct {
	Enabled bool
	Bucket  string
	Region  string
	Prefix  string // Path prefix within bucket (e.g., "webhooks/")
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Port: getEnvAsInt("SERVER_PORT", 8080),
		},
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnvAsInt("DB_PORT", 5432),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", ""),
			Database:        getEnv("DB_NAME", "farmstand"),
			MaxConnections:  getEnvAsInt("DB_MAX_CONNECTIONS", 25),
			MinConnections:  getEnvAsInt("DB_MIN_CONNECTIONS", 5),
			MaxConnLifetime: getEnvAsInt("DB_MAX_CONN_LIFETIME", 300),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			CartTTL:  getEnvAsInt("CART_TTL", 7*24*3600),
		},
		Logger: LoggerConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Auth: AuthConfig{
			APIKey: getEnv("API_KEY", ""),
		},
		Payment: PaymentConfig{
			BaseURL:       getEnv("PAYMENT_BASE_URL", ""),
			APIKey:        getEnv("PAYMENT_API_KEY", ""),
			WebhookSecret: getEnv("PAYMENT_WEBHOOK_SECRET", ""),
			SuccessURL:    getEnv("CHECKOUT_SUCCESS_URL", ""),
			CancelURL:     getEnv("CHECKOUT_CANCEL_URL", ""),
			TimeoutSecs:   getEnvAsInt("PAYMENT_TIMEOUT", 15),
		},
		Checkout: CheckoutConfig{
			ShippingFeeCents: int64(getEnvAsInt("SHIPPING_FEE_CENTS", 599)),
		},
		Archive: ArchiveConfig{
			Enabled: getEnvAsBool("ARCHIVE_ENABLED", false),
			Bucket:  getEnv("ARCHIVE_BUCKET", ""),
			Region:  getEnv("ARCHIVE_REGION", "us-east-1"),
			Prefix:  getEnv("ARCHIVE_PREFIX", "webhooks/"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}

	if c.Database.Port < 1 || c.Database.Port > 65535 {
		return fmt.Errorf("invalid database port: %d", c.Database.Port)
	}

	if c.Database.User == "" {
		return fmt.Errorf("database user is required")
	}

	if c.Database.Database == "" {
		return fmt.Errorf("database name is required")
	}

	if c.Database.MaxConnections < 1 {
		return fmt.Errorf("database max connections must be at least 1")
	}

	if c.Database.MinConnections < 1 {
		return fmt.Errorf("database min connections must be at least 1")
	}

	if c.Database.MinConnections > c.Database.MaxConnections {
		return fmt.Errorf("database min connections cannot exceed max connections")
	}

	if c.Redis.Addr == "" {
		return fmt.Errorf("redis address is required")
	}

	if c.Auth.APIKey == "" {
		return fmt.Errorf("API key is required")
	}

	if c.Payment.BaseURL == "" {
		return fmt.Errorf("payment processor base URL is required")
	}

	if c.Payment.APIKey == "" {
		return fmt.Errorf("payment processor API key is required")
	}

	if c.Payment.WebhookSecret == "" {
		return fmt.Errorf("payment webhook secret is required")
	}

	if c.Payment.SuccessURL == "" {
		return fmt.Errorf("checkout success URL is required")
	}

	if c.Payment.CancelURL == "" {
		return fmt.Errorf("checkout cancel URL is required")
	}

	if c.Checkout.ShippingFeeCents < 0 {
		return fmt.Errorf("shipping fee cannot be negative")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}

	if !validLogLevels[c.Logger.Level] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if c.Logger.Format != "json" && c.Logger.Format != "console" {
		return fmt.Errorf("invalid log format: %s (must be json or console)", c.Logger.Format)
	}

	if c.Archive.Enabled {
		if c.Archive.Bucket == "" {
			return fmt.Errorf("archive bucket is required when archival is enabled")
		}
		if c.Archive.Region == "" {
			return fmt.Errorf("archive region is required when archival is enabled")
		}
	}

	return nil
}

// ConnectionString returns the PostgreSQL connection string.
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.User,
		c.Password,
		c.Host,
		c.Port,
		c.Database,
	)
}

// Address returns the server address.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// getEnv retrieves an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value.
func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value.
func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
