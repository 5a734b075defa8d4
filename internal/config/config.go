package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config represents the full application configuration surface.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Audit    AuditConfig
	Auth     AuthConfig
	Stock    StockConfig
	Backup   BackupConfig
	Webhook  WebhookConfig
	Seed     SeedConfig
	LogLevel string
}

type ServerConfig struct {
	Port    string
	AppName string
}

// DatabaseConfig selects the SQL backend behind the key-value store and the audit log.
type DatabaseConfig struct {
	Driver     string // postgres or sqlite
	URL        string
	Host       string
	User       string
	Password   string
	Name       string
	Port       string
	SQLitePath string
}

// AuditConfig picks where transformation records are kept.
type AuditConfig struct {
	Backend  string // sql or mongo
	MongoURI string
	MongoDB  string
}

type AuthConfig struct {
	JWTSecret string
	Issuer    string
	TokenTTL  time.Duration
}

type StockConfig struct {
	CacheTTL          time.Duration
	LowStockThreshold float64
}

type BackupConfig struct {
	Enabled      bool
	CronSchedule string
}

// WebhookConfig is optional; an empty URL disables outbound notifications.
type WebhookConfig struct {
	URL     string
	Timeout time.Duration
}

type SeedConfig struct {
	DemoData bool
}

// Load reads environment variables (optionally from the provided file) and
// materializes a Config instance.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed loading env file %s: %w", envFile, err)
			}
		}
	} else {
		// A missing .env is fine when everything comes from the environment.
		_ = godotenv.Load()
	}

	cacheTTL, err := getDuration("STOCK_CACHE_TTL", 5*time.Minute)
	if err != nil {
		return nil, err
	}
	tokenTTL, err := getDuration("JWT_TTL", 24*time.Hour)
	if err != nil {
		return nil, err
	}
	webhookTimeout, err := getDuration("WEBHOOK_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}
	lowStock, err := getFloat("LOW_STOCK_THRESHOLD", 10)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:    getenvWithDefault("PORT", "3000"),
			AppName: getenvWithDefault("APP_NAME", "Inventory UoM Transformation v1.0"),
		},
		Database: DatabaseConfig{
			Driver:     getenvWithDefault("DB_DRIVER", "postgres"),
			URL:        os.Getenv("DATABASE_URL"),
			Host:       os.Getenv("DB_HOST"),
			User:       os.Getenv("DB_USER"),
			Password:   os.Getenv("DB_PASSWORD"),
			Name:       os.Getenv("DB_NAME"),
			Port:       getenvWithDefault("DB_PORT", "5432"),
			SQLitePath: getenvWithDefault("SQLITE_PATH", "inventory.db"),
		},
		Audit: AuditConfig{
			Backend:  getenvWithDefault("AUDIT_BACKEND", "sql"),
			MongoURI: os.Getenv("MONGODB_URI"),
			MongoDB:  getenvWithDefault("MONGODB_DB_NAME", "inventory"),
		},
		Auth: AuthConfig{
			JWTSecret: getenvWithDefault("JWT_SECRET", "your-super-secret-key-change-in-production"),
			Issuer:    getenvWithDefault("JWT_ISSUER", "go-inventory-uom"),
			TokenTTL:  tokenTTL,
		},
		Stock: StockConfig{
			CacheTTL:          cacheTTL,
			LowStockThreshold: lowStock,
		},
		Backup: BackupConfig{
			Enabled:      getenvWithDefault("BACKUP_ENABLED", "true") == "true",
			CronSchedule: getenvWithDefault("BACKUP_CRON_SCHEDULE", "0 * * * *"),
		},
		Webhook: WebhookConfig{
			URL:     os.Getenv("TRANSFORM_WEBHOOK_URL"),
			Timeout: webhookTimeout,
		},
		Seed: SeedConfig{
			DemoData: os.Getenv("SEED_DEMO_DATA") == "true",
		},
		LogLevel: getenvWithDefault("LOG_LEVEL", "info"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate ensures that required configuration fields are populated.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}

	if c.Server.Port == "" {
		return errors.New("PORT must be provided")
	}

	switch c.Database.Driver {
	case "postgres":
		if c.Database.URL == "" && c.Database.Host == "" {
			return errors.New("DATABASE_URL or DB_HOST must be provided for postgres")
		}
	case "sqlite":
		if c.Database.SQLitePath == "" {
			return errors.New("SQLITE_PATH must not be empty")
		}
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.Database.Driver)
	}

	switch c.Audit.Backend {
	case "sql":
	case "mongo":
		if c.Audit.MongoURI == "" {
			return errors.New("MONGODB_URI must be provided when AUDIT_BACKEND=mongo")
		}
	default:
		return fmt.Errorf("unsupported AUDIT_BACKEND %q", c.Audit.Backend)
	}

	if c.Auth.JWTSecret == "" {
		return errors.New("JWT_SECRET must not be empty")
	}

	if c.Stock.CacheTTL <= 0 {
		return errors.New("STOCK_CACHE_TTL must be positive")
	}

	if c.Backup.Enabled && c.Backup.CronSchedule == "" {
		return errors.New("BACKUP_CRON_SCHEDULE must be provided when backups are enabled")
	}

	return nil
}

func getenvWithDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func getFloat(key string, fallback float64) (float64, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return f, nil
}
