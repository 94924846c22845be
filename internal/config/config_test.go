package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv blanks every key Load reads; viper treats empty values as unset
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"PORT", "APP_ENV", "LOG_LEVEL", "CORS_ORIGINS", "TIMEZONE",
		"DATABASE_URL", "DB_HOST", "DB_PORT", "DB_USER", "DB_PASSWORD", "DB_NAME", "DB_SSLMODE",
		"REDIS_URL", "JWT_SECRET", "JWT_EXPIRATION_HOURS",
		"LIBRARY_TOP_K", "DASHBOARD_TOP_K", "LOW_USAGE_FLOOR", "STALE_WINDOW_DAYS",
		"DASHBOARD_DEBOUNCE", "USAGE_WORKERS", "USAGE_QUEUE_SIZE", "ACTIVITY_FEED_LIMIT",
		"STORAGE_DIR", "STORAGE_PUBLIC_URL", "CHAT_MAX_UPLOAD_MB", "POSTAL_BASE_URL",
		"KAFKA_BROKERS", "KAFKA_TOPIC", "ADMIN_USERNAME", "ADMIN_PASSWORD",
	} {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.False(t, cfg.IsProduction())
	assert.Equal(t, "dev-secret-change-me", cfg.JWTSecret)
	assert.Equal(t, 12, cfg.JWTExpirationHours)
	assert.Equal(t, 4, cfg.LibraryTopK)
	assert.Equal(t, 10, cfg.DashboardTopK)
	assert.Equal(t, 1, cfg.LowUsageFloor)
	assert.Equal(t, 90*24*time.Hour, cfg.StaleWindow())
	assert.Equal(t, 2*time.Second, cfg.DashboardDebounce)
	assert.Equal(t, int64(10<<20), cfg.MaxUploadBytes())
	assert.Equal(t, []string{"http://localhost:3000", "http://localhost:5173"}, cfg.Origins())
	assert.Empty(t, cfg.KafkaBrokerList())
	assert.Equal(t, "host=localhost user=postgres password=postgres dbname=phrasedesk port=5432 sslmode=disable TimeZone=America/Sao_Paulo", cfg.DSN())
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_NAME", "desk")
	t.Setenv("LIBRARY_TOP_K", "10")
	t.Setenv("DASHBOARD_DEBOUNCE", "500ms")
	t.Setenv("CORS_ORIGINS", " https://a.example , ,https://b.example")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, 10, cfg.LibraryTopK)
	assert.Equal(t, 500*time.Millisecond, cfg.DashboardDebounce)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Origins())
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokerList())
	assert.Contains(t, cfg.DSN(), "host=db.internal")
	assert.Contains(t, cfg.DSN(), "dbname=desk")

	t.Setenv("DATABASE_URL", "postgres://u:p@h:5432/x")
	cfg, err = Load()
	require.NoError(t, err)
	assert.Equal(t, "postgres://u:p@h:5432/x", cfg.DSN())
}

func TestLoad_ProductionRequiresSecret(t *testing.T) {
	clearEnv(t)
	t.Setenv("APP_ENV", "production")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")

	t.Setenv("JWT_SECRET", "s3cret")
	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, "s3cret", cfg.JWTSecret)
}

func TestLocationFallsBackToUTC(t *testing.T) {
	assert.Equal(t, time.UTC, (&Config{Timezone: "Not/AZone"}).Location())
}
