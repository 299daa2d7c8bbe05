package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Storage backends
const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

type Config struct {
	AppPort      string
	DatabaseURL  string
	Storage      string
	JWTSecret    string
	TokenTTL     time.Duration
	CookieSecure bool
	AdminEmails  []string // lower-cased allow-list

	// websocket Origin check; empty accepts any origin
	AllowedOrigin string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	APIRateLimit    int
	APIRateWindow   time.Duration
	AuthRateLimit   int
	AuthRateWindow  time.Duration
	TradeRateLimit  int
	TradeRateWindow time.Duration

	LogLevel string
	LogJSON  bool

	// Business rule defaults, overridable per deployment through system settings
	FirstDepositBonusRate decimal.Decimal
	BonusVolumeMultiplier decimal.Decimal
	WithdrawalFee         decimal.Decimal
	TradeReportMax        decimal.Decimal
}

// Load reads configuration from the environment (and .env when present)
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		AppPort:               getEnv("APP_PORT", "8080"),
		DatabaseURL:           os.Getenv("DATABASE_URL"),
		Storage:               strings.ToLower(getEnv("STORAGE", StoragePostgres)),
		JWTSecret:             os.Getenv("JWT_SECRET"),
		TokenTTL:              24 * time.Hour,
		CookieSecure:          os.Getenv("COOKIE_SECURE") == "true",
		AllowedOrigin:         strings.TrimSpace(os.Getenv("ALLOWED_ORIGIN")),
		AdminEmails:           splitList(os.Getenv("ADMIN_EMAILS")),
		RedisAddr:             os.Getenv("REDIS_ADDR"),
		RedisPassword:         os.Getenv("REDIS_PASSWORD"),
		RedisDB:               getInt("REDIS_DB", 0),
		APIRateLimit:          getInt("API_RATE_LIMIT", 120),
		APIRateWindow:         getSeconds("API_RATE_WINDOW_SECONDS", time.Minute),
		AuthRateLimit:         getInt("AUTH_RATE_LIMIT", 10),
		AuthRateWindow:        getSeconds("AUTH_RATE_WINDOW_SECONDS", time.Minute),
		TradeRateLimit:        getInt("TRADE_RATE_LIMIT", 60),
		TradeRateWindow:       getSeconds("TRADE_RATE_WINDOW_SECONDS", time.Minute),
		LogLevel:              getEnv("LOG_LEVEL", "info"),
		LogJSON:               os.Getenv("LOG_JSON") == "true",
		FirstDepositBonusRate: getDecimal("FIRST_DEPOSIT_BONUS_RATE", "0.10"),
		BonusVolumeMultiplier: getDecimal("BONUS_VOLUME_MULTIPLIER", "10"),
		WithdrawalFee:         getDecimal("WITHDRAWAL_FEE", "0.5"),
		TradeReportMax:        getDecimal("TRADE_REPORT_MAX", "10000"),
	}

	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is not set")
	}
	switch cfg.Storage {
	case StoragePostgres:
		if cfg.DatabaseURL == "" {
			return nil, errors.New("DATABASE_URL is not set")
		}
	case StorageMemory:
	default:
		return nil, fmt.Errorf("unknown STORAGE %q", cfg.Storage)
	}

	return cfg, nil
}

// IsAdminEmail reports whether email is on the admin allow-list
func (c *Config) IsAdminEmail(email string) bool {
	email = strings.ToLower(strings.TrimSpace(email))
	for _, e := range c.AdminEmails {
		if e == email {
			return true
		}
	}
	return false
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			return n
		}
	}
	return def
}

func getSeconds(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return time.Duration(n) * time.Second
		}
	}
	return def
}

func getDecimal(key, def string) decimal.Decimal {
	if v := os.Getenv(key); v != "" {
		if d, err := decimal.NewFromString(v); err == nil && !d.IsNegative() {
			return d
		}
	}
	return decimal.RequireFromString(def)
}

// ADMIN_EMAILS is comma separated
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
