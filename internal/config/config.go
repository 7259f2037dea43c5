package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	HTTPPort        string
	LogLevel        string
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
	MaxRequestBody  int64

	// remote collaborators
	CartBaseURL     string
	ProductBaseURL  string
	VoucherBaseURL  string
	PurchaseBaseURL string
	AuthBaseURL     string
	GatewayTimeout  time.Duration

	RedisAddr string

	OutboxPath        string
	KafkaBrokers      []string
	InvalidationTopic string
	InstanceID        string

	StockConcurrency int
}

func Load() *Config {
	api := getEnv("STOREFRONT_API_URL", "http://localhost:8000/api")
	return &Config{
		HTTPPort:        getEnv("HTTP_PORT", "8080"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		RequestTimeout:  getEnvDuration("REQUEST_TIMEOUT", 30*time.Second),
		ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		MaxRequestBody:  int64(getEnvInt("MAX_REQUEST_BODY", 1<<20)), // 1MB

		CartBaseURL:     getEnv("CART_API_URL", api),
		ProductBaseURL:  getEnv("PRODUCT_API_URL", api),
		VoucherBaseURL:  getEnv("VOUCHER_API_URL", api),
		PurchaseBaseURL: getEnv("PURCHASE_API_URL", api),
		AuthBaseURL:     getEnv("AUTH_API_URL", api),
		GatewayTimeout:  getEnvDuration("GATEWAY_TIMEOUT", 10*time.Second),

		RedisAddr: getEnv("REDIS_ADDR", "localhost:6379"),

		OutboxPath:        getEnv("OUTBOX_PATH", "./storefront-outbox.db"),
		KafkaBrokers:      splitList(getEnv("KAFKA_BROKERS", "localhost:9092")),
		InvalidationTopic: getEnv("INVALIDATION_TOPIC", "storefront-invalidations"),
		InstanceID:        getEnv("INSTANCE_ID", hostname()),

		StockConcurrency: getEnvInt("STOCK_CONCURRENCY", 8),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		slog.Warn("invalid integer in env, using default", "key", key, "value", value, "default", defaultValue)
		return defaultValue
	}
	return n
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		slog.Warn("invalid duration in env, using default", "key", key, "value", value, "default", defaultValue)
		return defaultValue
	}
	return d
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func hostname() string {
	h, err := os.Hostname()
	if err != nil || h == "" {
		return "storefront"
	}
	return h
}
