package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures everything the compliance service needs at startup.
type Config struct {
	Addr          string
	DatabaseURL   string
	Redis         RedisConfig
	Kafka         KafkaConfig
	JWTSigningKey string

	// FlushInterval drives the periodic audit buffer flush.
	FlushInterval time.Duration
	// SweepInterval drives the periodic retention sweep.
	SweepInterval time.Duration
}

// RedisConfig holds connection settings for the consent-status cache.
// An empty URL disables the cache; reads fall through to the store.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	CacheTTL     time.Duration
}

// KafkaConfig holds settings for the breach alert sink. Empty brokers
// fall back to log-only alerting.
type KafkaConfig struct {
	Brokers    []string
	AlertTopic string
}

// FromEnv builds a Config from environment variables so main stays lean.
func FromEnv() Config {
	cfg := Config{
		Addr:          envOr("CUSTODIA_ADDR", ":8080"),
		DatabaseURL:   os.Getenv("CUSTODIA_DATABASE_URL"),
		JWTSigningKey: envOr("CUSTODIA_JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		FlushInterval: envDurationOr("CUSTODIA_FLUSH_INTERVAL", 5*time.Second),
		SweepInterval: envDurationOr("CUSTODIA_SWEEP_INTERVAL", 24*time.Hour),
		Redis: RedisConfig{
			URL:          os.Getenv("CUSTODIA_REDIS_URL"),
			PoolSize:     envIntOr("CUSTODIA_REDIS_POOL_SIZE", 10),
			MinIdleConns: envIntOr("CUSTODIA_REDIS_MIN_IDLE", 2),
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
			CacheTTL:     envDurationOr("CUSTODIA_CONSENT_CACHE_TTL", 5*time.Minute),
		},
		Kafka: KafkaConfig{
			AlertTopic: envOr("CUSTODIA_BREACH_ALERT_TOPIC", "compliance.breach-alerts"),
		},
	}
	if brokers := os.Getenv("CUSTODIA_KAFKA_BROKERS"); brokers != "" {
		for _, b := range strings.Split(brokers, ",") {
			if b = strings.TrimSpace(b); b != "" {
				cfg.Kafka.Brokers = append(cfg.Kafka.Brokers, b)
			}
		}
	}
	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
