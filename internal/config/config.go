package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	// Server
	Port        int    `mapstructure:"PORT"`
	Env         string `mapstructure:"APP_ENV"` // development | production
	LogLevel    string `mapstructure:"LOG_LEVEL"`
	CORSOrigins string `mapstructure:"CORS_ORIGINS"`
	Timezone    string `mapstructure:"TIMEZONE"`

	// Database
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	DBHost      string `mapstructure:"DB_HOST"`
	DBPort      string `mapstructure:"DB_PORT"`
	DBUser      string `mapstructure:"DB_USER"`
	DBPassword  string `mapstructure:"DB_PASSWORD"`
	DBName      string `mapstructure:"DB_NAME"`
	DBSSLMode   string `mapstructure:"DB_SSLMODE"`

	// Redis, empty disables it
	RedisURL string `mapstructure:"REDIS_URL"`

	// Auth
	JWTSecret          string `mapstructure:"JWT_SECRET"`
	JWTExpirationHours int    `mapstructure:"JWT_EXPIRATION_HOURS"`

	// Ranking
	LibraryTopK     int `mapstructure:"LIBRARY_TOP_K"`
	DashboardTopK   int `mapstructure:"DASHBOARD_TOP_K"`
	LowUsageFloor   int `mapstructure:"LOW_USAGE_FLOOR"`
	StaleWindowDays int `mapstructure:"STALE_WINDOW_DAYS"`

	// Background work
	DashboardDebounce time.Duration `mapstructure:"DASHBOARD_DEBOUNCE"`
	UsageWorkers      int           `mapstructure:"USAGE_WORKERS"`
	UsageQueueSize    int           `mapstructure:"USAGE_QUEUE_SIZE"`
	ActivityFeedLimit int           `mapstructure:"ACTIVITY_FEED_LIMIT"`

	// Object storage and chat
	StorageDir       string `mapstructure:"STORAGE_DIR"`
	StoragePublicURL string `mapstructure:"STORAGE_PUBLIC_URL"`
	ChatMaxUploadMB  int    `mapstructure:"CHAT_MAX_UPLOAD_MB"`

	// Postal code lookup
	PostalBaseURL string `mapstructure:"POSTAL_BASE_URL"`

	// Kafka audit stream, empty brokers disables it
	KafkaBrokers string `mapstructure:"KAFKA_BROKERS"`
	KafkaTopic   string `mapstructure:"KAFKA_TOPIC"`

	// Bootstrap admin, created on boot when the users table is empty
	AdminUsername string `mapstructure:"ADMIN_USERNAME"`
	AdminPassword string `mapstructure:"ADMIN_PASSWORD"`
}

// Load reads configs/.env (or .env) when present, then environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load("configs/.env")
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("PORT", 8080)
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000,http://localhost:5173")
	v.SetDefault("TIMEZONE", "America/Sao_Paulo")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "phrasedesk")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("JWT_EXPIRATION_HOURS", 12)
	v.SetDefault("LIBRARY_TOP_K", 4)
	v.SetDefault("DASHBOARD_TOP_K", 10)
	v.SetDefault("LOW_USAGE_FLOOR", 1)
	v.SetDefault("STALE_WINDOW_DAYS", 90)
	v.SetDefault("DASHBOARD_DEBOUNCE", "2s")
	v.SetDefault("USAGE_WORKERS", 2)
	v.SetDefault("USAGE_QUEUE_SIZE", 256)
	v.SetDefault("ACTIVITY_FEED_LIMIT", 100)
	v.SetDefault("STORAGE_DIR", "./uploads")
	v.SetDefault("STORAGE_PUBLIC_URL", "/uploads")
	v.SetDefault("CHAT_MAX_UPLOAD_MB", 10)
	v.SetDefault("POSTAL_BASE_URL", "https://viacep.com.br/ws")
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("KAFKA_TOPIC", "phrasedesk.activity")
	v.SetDefault("ADMIN_USERNAME", "admin")
	v.SetDefault("ADMIN_PASSWORD", "")

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	if cfg.IsProduction() && cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required in production")
	}
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = "dev-secret-change-me"
	}
	return cfg, nil
}

// IsProduction reports whether APP_ENV is production
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production") || strings.EqualFold(c.Env, "release")
}

// DSN returns DATABASE_URL or composes one from the DB_* keys
func (c *Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=%s",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort, c.DBSSLMode, c.Timezone)
}

// Location resolves TIMEZONE, falling back to UTC
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Origins splits CORS_ORIGINS
func (c *Config) Origins() []string {
	var out []string
	for _, o := range strings.Split(c.CORSOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// KafkaBrokerList splits KAFKA_BROKERS
func (c *Config) KafkaBrokerList() []string {
	var out []string
	for _, b := range strings.Split(c.KafkaBrokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

// MaxUploadBytes is CHAT_MAX_UPLOAD_MB in bytes
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.ChatMaxUploadMB) << 20
}

// StaleWindow is STALE_WINDOW_DAYS as a duration
func (c *Config) StaleWindow() time.Duration {
	return time.Duration(c.StaleWindowDays) * 24 * time.Hour
}
