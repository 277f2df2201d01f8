package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is centralized process configuration.
// Keep infra values here and pass typed config into builders.
type Config struct {
	ServiceName string
	HTTPPort    string
	PostgresDSN string
	RedisAddr   string
	RedisPass   string
	JWTSecret   string
	JWTIssuer   string

	ClaimsStaleAfter    time.Duration
	AccessSweepInterval time.Duration
	SweepBatchSize      int
	ExpiryWarningWindow time.Duration

	EnableAccessSweep    bool
	EnableExpiryWarnings bool
	EnableClaimsAudit    bool
}

func Load() (Config, error) {
	// Optional .env for local development; real deployments set the
	// environment directly.
	_ = godotenv.Load()

	service := os.Getenv("SERVICE_NAME")
	if service == "" {
		service = "lyceum"
	}

	port := os.Getenv("HTTP_PORT")
	if port == "" {
		port = "8080"
	}

	return Config{
		ServiceName: service,
		HTTPPort:    port,
		PostgresDSN: os.Getenv("POSTGRES_DSN"),
		RedisAddr:   envString("REDIS_ADDR", "localhost:6379"),
		RedisPass:   os.Getenv("REDIS_PASSWORD"),
		JWTSecret:   os.Getenv("JWT_SECRET"),
		JWTIssuer:   envString("JWT_ISSUER", "lyceum"),

		ClaimsStaleAfter:    envDuration("CLAIMS_STALE_AFTER", 24*time.Hour),
		AccessSweepInterval: envDuration("ACCESS_SWEEP_INTERVAL", time.Hour),
		SweepBatchSize:      envInt("SWEEP_BATCH_SIZE", 400),
		ExpiryWarningWindow: envDuration("EXPIRY_WARNING_WINDOW", 72*time.Hour),

		EnableAccessSweep:    envBool("ENABLE_ACCESS_SWEEP", true),
		EnableExpiryWarnings: envBool("ENABLE_EXPIRY_WARNINGS", true),
		EnableClaimsAudit:    envBool("ENABLE_CLAIMS_AUDIT", false),
	}, nil
}

func envString(name, fallback string) string {
	value := strings.TrimSpace(os.Getenv(name))
	if value == "" {
		return fallback
	}
	return value
}

func envBool(name string, fallback bool) bool {
	raw := strings.TrimSpace(strings.ToLower(os.Getenv(name)))
	if raw == "" {
		return fallback
	}
	switch raw {
	case "1", "true", "t", "yes", "y", "on":
		return true
	case "0", "false", "f", "no", "n", "off":
		return false
	default:
		return fallback
	}
}

func envDuration(name string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	value, err := time.ParseDuration(raw)
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}

func envInt(name string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}
