package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server ServerConfig

	// Database configuration
	Database DatabaseConfig

	// Intake (single, bulk and CSV) configuration
	Intake IntakeConfig

	// CORS configuration for the public submission endpoints
	CORS CORSConfig

	// Turnstile bot verification
	Turnstile TurnstileConfig

	// Shopify Admin API (metaobjects)
	Shopify ShopifyConfig

	// App-level settings
	App AppConfig

	// Logging configuration
	Log LogConfig
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// DatabaseConfig holds database connection settings.
// The pool is created once at startup and shared by every handler.
type DatabaseConfig struct {
	Host         string
	Port         string
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  time.Duration
}

// Handle length bounds. The upper bound is the width of the handle column;
// the lower one leaves room for the random suffix.
const (
	MinHandleLength = 8
	MaxHandleLength = 120
)

// IntakeConfig holds submission intake settings
type IntakeConfig struct {
	MinBatchRows    int
	MaxBatchRows    int
	MaxUploadSize   int64 // in bytes
	HandleMaxLength int
	MigrationsPath  string
}

// CORSConfig holds the origins allowed to call the public endpoints
type CORSConfig struct {
	AllowedOrigins []string
}

// TurnstileConfig holds Cloudflare Turnstile settings
type TurnstileConfig struct {
	SecretKey string
	SiteKey   string
	VerifyURL string
	Timeout   time.Duration
	// Required rejects submissions when no secret is configured
	Required bool
}

// ShopifyConfig holds Admin GraphQL API settings
type ShopifyConfig struct {
	Shop           string
	AccessToken    string
	APIVersion     string
	MetaobjectType string
	StatusFieldKey string
	Timeout        time.Duration
	ListPageSize   int
}

// AppConfig holds settings shared across handlers
type AppConfig struct {
	PublicBaseURL string
	AdminAPIToken string
}

// LogConfig holds logging settings
type LogConfig struct {
	Level  string
	Format string // "json" or "pretty"
}

// Load reads configuration from environment variables.
// A .env file in the working directory is loaded first when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnv("PORT", "8080"),
			ReadTimeout:     getDurationEnv("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getDurationEnv("SERVER_WRITE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getDurationEnv("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Database: DatabaseConfig{
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnv("DB_PORT", "5432"),
			User:         getEnv("DB_USER", "postgres"),
			Password:     getEnv("DB_PASSWORD", "postgres"),
			Name:         getEnv("DB_NAME", "class_submissions"),
			SSLMode:      getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns: getIntEnv("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns: getIntEnv("DB_MAX_IDLE_CONNS", 5),
			MaxLifetime:  getDurationEnv("DB_MAX_LIFETIME", 5*time.Minute),
		},
		Intake: IntakeConfig{
			MinBatchRows:    1,
			MaxBatchRows:    getIntEnv("MAX_BATCH_ROWS", 100),
			MaxUploadSize:   getInt64Env("MAX_UPLOAD_SIZE", 5*1024*1024), // 5MB
			HandleMaxLength: getIntEnv("HANDLE_MAX_LENGTH", 80),
			MigrationsPath:  getEnv("MIGRATIONS_PATH", "./migrations"),
		},
		CORS: CORSConfig{
			AllowedOrigins: getListEnv("CORS_ALLOWED_ORIGINS"),
		},
		Turnstile: TurnstileConfig{
			SecretKey: getEnv("TURNSTILE_SECRET_KEY", ""),
			SiteKey:   getEnv("TURNSTILE_SITE_KEY", ""),
			VerifyURL: getEnv("TURNSTILE_VERIFY_URL", "https://challenges.cloudflare.com/turnstile/v0/siteverify"),
			Timeout:   getDurationEnv("TURNSTILE_TIMEOUT", 10*time.Second),
			Required:  getBoolEnv("TURNSTILE_REQUIRED", false),
		},
		Shopify: ShopifyConfig{
			Shop:           getEnv("SHOPIFY_SHOP", ""),
			AccessToken:    getEnv("SHOPIFY_ADMIN_ACCESS_TOKEN", ""),
			APIVersion:     getEnv("SHOPIFY_API_VERSION", "2025-01"),
			MetaobjectType: getEnv("SHOPIFY_METAOBJECT_TYPE", "class_submission"),
			StatusFieldKey: getEnv("SHOPIFY_STATUS_FIELD_KEY", "status"),
			Timeout:        getDurationEnv("SHOPIFY_TIMEOUT", 15*time.Second),
			ListPageSize:   getIntEnv("SHOPIFY_LIST_PAGE_SIZE", 250),
		},
		App: AppConfig{
			PublicBaseURL: getEnv("PUBLIC_BASE_URL", ""),
			AdminAPIToken: getEnv("ADMIN_API_TOKEN", ""),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	// Validate required configuration
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Database.Host == "" {
		return fmt.Errorf("DB_HOST is required")
	}
	if c.Database.Name == "" {
		return fmt.Errorf("DB_NAME is required")
	}
	if c.Intake.MaxBatchRows < c.Intake.MinBatchRows {
		return fmt.Errorf("MAX_BATCH_ROWS must be at least %d", c.Intake.MinBatchRows)
	}
	if c.Intake.HandleMaxLength < MinHandleLength || c.Intake.HandleMaxLength > MaxHandleLength {
		return fmt.Errorf("HANDLE_MAX_LENGTH must be between %d and %d", MinHandleLength, MaxHandleLength)
	}
	if (c.Shopify.Shop == "") != (c.Shopify.AccessToken == "") {
		return fmt.Errorf("SHOPIFY_SHOP and SHOPIFY_ADMIN_ACCESS_TOKEN must be set together")
	}
	if c.Shopify.ListPageSize < 1 || c.Shopify.ListPageSize > 250 {
		return fmt.Errorf("SHOPIFY_LIST_PAGE_SIZE must be between 1 and 250")
	}
	return nil
}

// GetDSN returns the PostgreSQL connection string
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// Enabled reports whether server-to-server Admin API calls are configured
func (c *ShopifyConfig) Enabled() bool {
	return c.Shop != "" && c.AccessToken != ""
}

// Helper functions for environment variable parsing

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getInt64Env(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

// getListEnv splits a comma-separated variable, dropping blanks
func getListEnv(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
