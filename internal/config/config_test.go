package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

// clearEnv blanks variables a developer shell may already export.
func clearEnv(t *testing.T) {
	for _, key := range []string{"STORE", "MYSQL_DSN", "REDIS_ADDR", "KAFKA_BROKERS", "KAFKA_TOPIC", "JWT_SECRET", "LOCK_WAIT", "TOKEN_TTL", "EVENT_WORKERS"} {
		t.Setenv(key, "")
	}
}

func TestLoad_YAMLOverridesDefaults(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
store: mysql
mysql:
  dsn: "u:p@tcp(db:3306)/inv?parseTime=true"
redis:
  addr: "redis:6379"
kafka:
  brokers: ["k1:9092", "k2:9092"]
lock:
  wait: 2s
auth:
  jwt_secret: from-file
  token_ttl: 1h
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, StoreMySQL, cfg.Store)
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "inventory-events", cfg.Kafka.Topic)
	assert.Equal(t, 2*time.Second, cfg.Lock.Wait)
	assert.Equal(t, 10*time.Second, cfg.Lock.TTL)
	assert.Equal(t, time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, 50, cfg.MySQL.MaxOpenConns)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "auth:\n  jwt_secret: from-file\n")
	t.Setenv("JWT_SECRET", "from-env")
	t.Setenv("KAFKA_BROKERS", "a:1, b:2,")
	t.Setenv("EVENT_WORKERS", "8")
	t.Setenv("TOKEN_TTL", "2h")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Auth.JWTSecret)
	assert.Equal(t, []string{"a:1", "b:2"}, cfg.Kafka.Brokers)
	assert.Equal(t, 8, cfg.Events.Workers)
	assert.Equal(t, 2*time.Hour, cfg.Auth.TokenTTL)
}

func TestLoad_InvalidEnv(t *testing.T) {
	t.Setenv("JWT_SECRET", "x")
	t.Setenv("EVENT_WORKERS", "many")

	_, err := Load("")
	assert.ErrorContains(t, err, "EVENT_WORKERS")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	err := cfg.Validate()
	assert.ErrorContains(t, err, "jwt_secret")

	cfg.Auth.JWTSecret = "s"
	assert.NoError(t, cfg.Validate())

	cfg.Store = "postgres"
	assert.ErrorContains(t, cfg.Validate(), "store must be")

	cfg.Store = StoreMemory
	cfg.Auth.AdminEmail = "admin@example.com"
	assert.ErrorContains(t, cfg.Validate(), "admin_password")
}
