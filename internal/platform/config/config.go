package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config gathers everything main needs to wire the service. Values come from
// the environment so main stays lean.
type Config struct {
	Server   Server
	Auth     Auth
	Redis    RedisConfig
	Postgres PostgresConfig
	Kafka    KafkaConfig
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr      string
	LogFormat string
}

// Auth configures caller identity and the capability roster.
type Auth struct {
	JWTSigningKey string
	Owner         string
	Authorized    []string
}

// RedisConfig configures the optional record query cache. An empty URL
// disables it.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	CacheTTL     time.Duration
}

// PostgresConfig configures the optional snapshot store. An empty URL
// disables persistence.
type PostgresConfig struct {
	URL              string
	SnapshotInterval time.Duration
}

// KafkaConfig configures the optional audit sink. No brokers means audit
// events stay in the in-memory store.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// FromEnv builds a Config from environment variables.
func FromEnv() Config {
	return Config{
		Server: Server{
			Addr:      envOr("ONSD_ADDR", ":8080"),
			LogFormat: envOr("LOG_FORMAT", "text"),
		},
		Auth: Auth{
			// Development default; override in production.
			JWTSigningKey: envOr("ONSD_JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
			Owner:         os.Getenv("ONSD_OWNER"),
			Authorized:    splitList(os.Getenv("ONSD_AUTHORIZED")),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("ONSD_REDIS_URL"),
			PoolSize:     envIntOr("ONSD_REDIS_POOL_SIZE", 10),
			MinIdleConns: envIntOr("ONSD_REDIS_MIN_IDLE", 2),
			DialTimeout:  envDurationOr("ONSD_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDurationOr("ONSD_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDurationOr("ONSD_REDIS_WRITE_TIMEOUT", 3*time.Second),
			CacheTTL:     envDurationOr("ONSD_RECORD_CACHE_TTL", 5*time.Minute),
		},
		Postgres: PostgresConfig{
			URL:              os.Getenv("ONSD_POSTGRES_URL"),
			SnapshotInterval: envDurationOr("ONSD_SNAPSHOT_INTERVAL", time.Minute),
		},
		Kafka: KafkaConfig{
			Brokers: splitList(os.Getenv("ONSD_KAFKA_BROKERS")),
			Topic:   envOr("ONSD_KAFKA_AUDIT_TOPIC", "onsd.audit"),
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
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func splitList(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
