// Package config builds runtime configuration from environment variables so
// main stays lean.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures everything the server needs at startup. Optional
// integrations (redis, kafka, email) degrade gracefully when unset.
type Config struct {
	Addr          string
	DatabaseURL   string
	JWTSigningKey string

	Redis RedisConfig
	Kafka KafkaConfig
	Email EmailConfig

	// EligibilityCacheTTL bounds how stale the advisory eligibility view may
	// be. Enrollment never reads the cache; it always evaluates inside the
	// transaction.
	EligibilityCacheTTL time.Duration
}

type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type KafkaConfig struct {
	Brokers []string
	Topic   string
	Group   string
}

type EmailConfig struct {
	APIKey      string
	FromAddress string
	BaseURL     string
}

// FromEnv builds a Config from environment variables, applying development
// defaults where safe.
func FromEnv() Config {
	return Config{
		Addr:                envOr("CMMS_ADDR", ":8080"),
		DatabaseURL:         os.Getenv("CMMS_DATABASE_URL"),
		JWTSigningKey:       envOr("CMMS_JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		EligibilityCacheTTL: envDurationOr("CMMS_ELIGIBILITY_CACHE_TTL", 5*time.Minute),
		Redis: RedisConfig{
			URL:          os.Getenv("CMMS_REDIS_URL"),
			PoolSize:     envIntOr("CMMS_REDIS_POOL_SIZE", 10),
			MinIdleConns: envIntOr("CMMS_REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDurationOr("CMMS_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDurationOr("CMMS_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDurationOr("CMMS_REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers: splitNonEmpty(os.Getenv("CMMS_KAFKA_BROKERS")),
			Topic:   envOr("CMMS_KAFKA_NOTIFY_TOPIC", "cmms.notifications"),
			Group:   envOr("CMMS_KAFKA_NOTIFY_GROUP", "cmms-notify-worker"),
		},
		Email: EmailConfig{
			APIKey:      os.Getenv("CMMS_EMAIL_API_KEY"),
			FromAddress: os.Getenv("CMMS_EMAIL_FROM"),
			BaseURL:     envOr("CMMS_EMAIL_BASE_URL", "https://api.resend.com"),
		},
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			return parsed
		}
	}
	return fallback
}

func splitNonEmpty(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
