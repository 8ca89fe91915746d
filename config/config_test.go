package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/signup-go/apperror"
)

// clearEnv blanks every known key. Empty variables are ignored by viper,
// so the defaults apply.
func clearEnv(t *testing.T) {
	t.Helper()
	for key := range defaults {
		t.Setenv(key, "")
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, &PoolConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "postgres",
		Password: "postgres",
		DBName:   "userdb",
		MaxSize:  10,
	}, cfg.DB)
	assert.Equal(t, StorageDriverPostgres, cfg.Storage.Driver)
	assert.True(t, cfg.Storage.AutoMigrate)

	assert.Equal(t, "3000", cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Server.RequestTimeout)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)

	assert.Equal(t, NotifierDriverSimulated, cfg.Notifier.Driver)
	assert.Equal(t, 100*time.Millisecond, cfg.Notifier.Delay)
	assert.Equal(t, 3, cfg.Notifier.Workers)
	assert.Equal(t, 10, cfg.Notifier.QueueSize)
	assert.Equal(t, "user_events", cfg.Notifier.RabbitMQExchange)
	assert.Empty(t, cfg.Notifier.KafkaBrokers)

	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadConfig_EnvironmentOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_PORT", "6543")
	t.Setenv("STORAGE_DRIVER", "Memory")
	t.Setenv("NOTIFIER_DRIVER", "kafka")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://localhost:5173,https://signup.example.com")
	t.Setenv("NOTIFIER_DELAY", "250ms")

	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "db.internal", cfg.DB.Host)
	assert.Equal(t, 6543, cfg.DB.Port)
	assert.Equal(t, StorageDriverMemory, cfg.Storage.Driver)
	assert.Equal(t, NotifierDriverKafka, cfg.Notifier.Driver)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Notifier.KafkaBrokers)
	assert.Equal(t, 250*time.Millisecond, cfg.Notifier.Delay)
	assert.Equal(t, []string{"http://localhost:5173", "https://signup.example.com"}, cfg.Server.AllowedOrigins)
}

func TestLoadConfig_ReadsDotEnvFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	content := "PORT=4000\nDB_NAME=signup_test\nLOG_LEVEL=debug\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte(content), 0o600))

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, "4000", cfg.Server.Port)
	assert.Equal(t, "signup_test", cfg.DB.DBName)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadConfig_EnvironmentWinsOverDotEnv(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("PORT=4000\n"), 0o600))
	t.Setenv("PORT", "5000")

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, "5000", cfg.Server.Port)
}

func TestLoadConfig_CollectsAllErrors(t *testing.T) {
	clearEnv(t)
	t.Setenv("DB_PORT", "not-a-port")
	t.Setenv("DB_POOL_SIZE", "500")
	t.Setenv("NOTIFIER_DELAY", "soon")
	t.Setenv("NOTIFIER_DRIVER", "carrier-pigeon")
	t.Setenv("NOTIFIER_WORKERS", "0")
	t.Setenv("DB_AUTO_MIGRATE", "maybe")

	cfg, err := LoadConfig(t.TempDir())
	require.Error(t, err)
	assert.Nil(t, cfg)

	appErr, ok := apperror.FromError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.ConfigError, appErr.Type)

	for _, want := range []string{
		"invalid value for DB_PORT",
		"pool size for DB_POOL_SIZE (500) is greater than maximum 100",
		"invalid value for NOTIFIER_DELAY",
		"invalid value for NOTIFIER_DRIVER",
		"NOTIFIER_WORKERS must be at least 1",
		"invalid value for DB_AUTO_MIGRATE",
	} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestLoadConfig_BrokerDriversRequireAddresses(t *testing.T) {
	tests := []struct {
		driver string
		want   string
	}{
		{NotifierDriverAMQP, "RABBITMQ_URL"},
		{NotifierDriverKafka, "KAFKA_BROKERS"},
	}

	for _, tt := range tests {
		t.Run(tt.driver, func(t *testing.T) {
			clearEnv(t)
			t.Setenv("NOTIFIER_DRIVER", tt.driver)

			_, err := LoadConfig(t.TempDir())
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
