package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFromEnvDefaults(t *testing.T) {
	cfg := FromEnv()

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, "", cfg.Redis.URL)
	assert.Equal(t, "", cfg.Postgres.DSN)
	assert.Empty(t, cfg.Kafka.Brokers)
	assert.Equal(t, "analysthub.audit.v1", cfg.Kafka.AuditTopic)
	assert.Equal(t, 15*time.Second, cfg.CollaboratorHTTPTimeout)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("ANALYSTHUB_ADDR", ":9999")
	t.Setenv("JWT_SIGNING_KEY", "secret")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("REDIS_POOL_SIZE", "25")
	t.Setenv("KAFKA_BROKERS", "broker-a:9092,broker-b:9092")
	t.Setenv("COLLABORATOR_HTTP_TIMEOUT", "3s")

	cfg := FromEnv()

	assert.Equal(t, ":9999", cfg.Addr)
	assert.Equal(t, "secret", cfg.JWTSigningKey)
	assert.Equal(t, "redis://localhost:6379/0", cfg.Redis.URL)
	assert.Equal(t, 25, cfg.Redis.PoolSize)
	assert.Equal(t, []string{"broker-a:9092", "broker-b:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 3*time.Second, cfg.CollaboratorHTTPTimeout)
}

func TestFromEnvIgnoresMalformedValues(t *testing.T) {
	t.Setenv("REDIS_POOL_SIZE", "lots")
	t.Setenv("COLLABORATOR_HTTP_TIMEOUT", "soon")

	cfg := FromEnv()
	assert.Equal(t, 10, cfg.Redis.PoolSize)
	assert.Equal(t, 15*time.Second, cfg.CollaboratorHTTPTimeout)
}
