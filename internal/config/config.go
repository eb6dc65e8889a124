package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration.
// Values are loaded from environment variables with sensible defaults.
type Config struct {
	// Server
	Port     int
	LogLevel string

	// Record store. Empty DatabaseURL selects the in-memory store.
	DatabaseURL      string
	DBMaxOpenConns   int
	DBConnectRetries int
	DBConnectBackoff time.Duration

	// Settings store. Empty RedisURL selects the in-memory store.
	RedisURL             string
	SettingsDefaultsFile string

	// Reports & exports
	ReportCacheTTL       time.Duration // 0 disables the report cache
	MaxConcurrentExports int

	// Export archive (S3). Empty bucket disables archiving.
	ExportArchiveBucket string
	AWSRegion           string

	// Observability
	OTLPEndpoint string

	// JWT / Admin auth
	JWTSecret         string
	JWTAccessTTL      time.Duration
	AdminUsername     string
	AdminPasswordHash string // bcrypt
}

// Load reads configuration from environment variables with defaults.
func Load() *Config {
	return &Config{
		Port:     getEnvInt("PORT", 8080),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		DatabaseURL:      getEnv("DATABASE_URL", ""),
		DBMaxOpenConns:   getEnvInt("DB_MAX_OPEN_CONNS", 10),
		DBConnectRetries: getEnvInt("DB_CONNECT_RETRIES", 5),
		DBConnectBackoff: getEnvDuration("DB_CONNECT_BACKOFF", 500*time.Millisecond),

		RedisURL:             getEnv("REDIS_URL", ""),
		SettingsDefaultsFile: getEnv("SETTINGS_DEFAULTS_FILE", ""),

		ReportCacheTTL:       getEnvDuration("REPORT_CACHE_TTL", 0),
		MaxConcurrentExports: getEnvInt("MAX_CONCURRENT_EXPORTS", 4),

		ExportArchiveBucket: getEnv("EXPORT_ARCHIVE_BUCKET", ""),
		AWSRegion:           getEnv("AWS_REGION", "us-east-1"),

		OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),

		JWTSecret:         getEnv("JWT_SECRET", "ledger-default-dev-secret-change-me"),
		JWTAccessTTL:      getEnvDuration("JWT_ACCESS_TTL", 15*time.Minute),
		AdminUsername:     getEnv("ADMIN_USERNAME", "admin"),
		AdminPasswordHash: getEnv("ADMIN_PASSWORD_HASH", ""),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
