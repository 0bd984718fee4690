package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-for-unit-tests-min-32-chars"

var configKeys = []string{
	"HTTP_ADDR", "DATABASE_URL", "KAFKA_BROKERS", "KAFKA_TOPIC", "INSTANCE_ID",
	"WS_ALLOWED_ORIGINS", "AMQP_URL", "AMQP_NOTIFICATIONS_EXCHANGE", "JWT_SECRET", "JWT_ACCESS_TTL",
	"OPERATIONAL_WINDOW", "RUN_MIGRATIONS", "STRICT_STATUS_TRANSITIONS", "ENFORCE_OPTION_QUANTITY", "NOTIFIER_GROUP",
}

// clearEnv blanks every config variable for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range configKeys {
		t.Setenv(key, "")
	}
}

func TestFromEnv_Defaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("JWT_SECRET", testSecret)

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.Equal(t, "order-events", cfg.KafkaTopic)
	assert.NotEmpty(t, cfg.InstanceID)
	assert.Empty(t, cfg.AMQPURL)
	assert.Equal(t, "notifications_fanout", cfg.NotificationsExchange)
	assert.Equal(t, 15*time.Minute, cfg.JWTAccessTTL)
	assert.Equal(t, 24*time.Hour, cfg.Window)
	assert.True(t, cfg.RunMigrations)
	assert.False(t, cfg.StrictStatus)
	assert.False(t, cfg.EnforceOptions)
}

func TestFromEnv_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("JWT_SECRET", testSecret)
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092,")
	t.Setenv("INSTANCE_ID", "api-1")
	t.Setenv("WS_ALLOWED_ORIGINS", "https://merchant.example.com")
	t.Setenv("OPERATIONAL_WINDOW", "48h")
	t.Setenv("STRICT_STATUS_TRANSITIONS", "true")
	t.Setenv("ENFORCE_OPTION_QUANTITY", "1")
	t.Setenv("RUN_MIGRATIONS", "false")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "api-1", cfg.InstanceID)
	assert.Equal(t, []string{"https://merchant.example.com"}, cfg.AllowedOrigins)
	assert.Equal(t, 48*time.Hour, cfg.Window)
	assert.True(t, cfg.StrictStatus)
	assert.True(t, cfg.EnforceOptions)
	assert.False(t, cfg.RunMigrations)
}

func TestFromEnv_Errors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"missing secret", map[string]string{}},
		{"short secret", map[string]string{"JWT_SECRET": "short"}},
		{"bad window", map[string]string{"JWT_SECRET": testSecret, "OPERATIONAL_WINDOW": "a day"}},
		{"negative window", map[string]string{"JWT_SECRET": testSecret, "OPERATIONAL_WINDOW": "-1h"}},
		{"bad bool", map[string]string{"JWT_SECRET": testSecret, "STRICT_STATUS_TRANSITIONS": "maybe"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := FromEnv()
			assert.Error(t, err)
		})
	}
}

func TestLoad_EnvFile(t *testing.T) {
	clearEnv(t)
	// godotenv never overrides variables that are already set, even empty
	os.Unsetenv("JWT_SECRET")
	os.Unsetenv("KAFKA_TOPIC")

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("JWT_SECRET="+testSecret+"\nKAFKA_TOPIC=from-file\n"), 0o600))
	t.Cleanup(func() {
		os.Unsetenv("JWT_SECRET")
		os.Unsetenv("KAFKA_TOPIC")
	})

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.KafkaTopic)
	assert.Equal(t, testSecret, cfg.JWTSecret)
}

func TestLoad_MissingEnvFileIsIgnored(t *testing.T) {
	clearEnv(t)
	t.Setenv("JWT_SECRET", testSecret)

	_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	assert.NoError(t, err)
}
