package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures process-level configuration.
type Config struct {
	Addr          string
	JWTSigningKey string

	Redis    RedisConfig
	Postgres PostgresConfig
	Kafka    KafkaConfig

	// External collaborator endpoints.
	IdentityBaseURL         string
	SubmissionURL           string
	UploadBaseURL           string
	CollaboratorHTTPTimeout time.Duration
}

// RedisConfig configures the optional Redis-backed wizard state store.
// An empty URL disables Redis and falls back to in-memory persistence.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// PostgresConfig configures the optional PostgreSQL-backed wizard state
// store. An empty DSN disables it.
type PostgresConfig struct {
	DSN string
}

// KafkaConfig configures the optional audit event publisher. No brokers
// means audit events stay in the local store only.
type KafkaConfig struct {
	Brokers    []string
	AuditTopic string
}

// FromEnv builds a Config from environment variables so main stays lean.
func FromEnv() Config {
	addr := os.Getenv("ANALYSTHUB_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	jwtSigningKey := os.Getenv("JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		// Use a default for development - should be overridden in production
		jwtSigningKey = "dev-secret-key-change-in-production"
	}

	auditTopic := os.Getenv("KAFKA_AUDIT_TOPIC")
	if auditTopic == "" {
		auditTopic = "analysthub.audit.v1"
	}

	var brokers []string
	if raw := os.Getenv("KAFKA_BROKERS"); raw != "" {
		brokers = strings.Split(raw, ",")
	}

	return Config{
		Addr:          addr,
		JWTSigningKey: jwtSigningKey,
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     envInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Postgres: PostgresConfig{
			DSN: os.Getenv("POSTGRES_DSN"),
		},
		Kafka: KafkaConfig{
			Brokers:    brokers,
			AuditTopic: auditTopic,
		},
		IdentityBaseURL:         envString("IDENTITY_BASE_URL", "http://localhost:9081"),
		SubmissionURL:           envString("SUBMISSION_URL", "http://localhost:9082/analyst/applications"),
		UploadBaseURL:           envString("UPLOAD_BASE_URL", "http://localhost:9083"),
		CollaboratorHTTPTimeout: envDuration("COLLABORATOR_HTTP_TIMEOUT", 15*time.Second),
	}
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
