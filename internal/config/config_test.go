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

func TestLoadConfigFromFile(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
database:
  host: db.internal
  name: opd
jwt:
  secret: from-file
cache:
  driver: local
  ttl: 3s
clinic:
  timezone: UTC
  reminder_window: 15m
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, 3*time.Second, cfg.Cache.TTL)
	assert.Equal(t, 15*time.Minute, cfg.Clinic.ReminderWindow)
	assert.Equal(t, "log", cfg.SMS.Driver)
	assert.Equal(t, time.UTC, cfg.Location())
}

func TestSecretsComeFromEnvironment(t *testing.T) {
	path := writeConfig(t, `
jwt:
  secret: from-file
`)
	t.Setenv("QUEUE_JWT_SECRET", "from-env")
	t.Setenv("QUEUE_DB_PASSWORD", "s3cret")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.JWT.Secret)
	assert.Equal(t, "s3cret", cfg.Database.Password)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"missing jwt secret", "jwt:\n  enabled: true\n", "jwt.secret is required"},
		{"redis without url", "jwt:\n  enabled: false\ncache:\n  driver: redis\n", "redis.url is required"},
		{"unknown sms driver", "jwt:\n  enabled: false\nsms:\n  driver: pigeon\n", `unknown sms.driver "pigeon"`},
		{"zero cache ttl", "jwt:\n  enabled: false\ncache:\n  ttl: 0s\n", "cache.ttl must be positive"},
		{"negative cache ttl", "jwt:\n  enabled: false\ncache:\n  ttl: -1s\n", "cache.ttl must be positive"},
		{"bad timezone", "jwt:\n  enabled: false\nclinic:\n  timezone: Mars/Olympus\n", "invalid clinic.timezone"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
