package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalYAML = `
app:
  name: school-results
server:
  port: 8080
database:
  host: localhost
  port: 3306
  user: school
  name: school
redis:
  host: localhost
  port: 6379
  cleanup_queue: results:cleanup
auth:
  jwt_secret: secret
`

func TestParseAppliesDefaults(t *testing.T) {
	cfg, err := Parse([]byte(minimalYAML))
	require.NoError(t, err)

	assert.Equal(t, int64(DefaultMaxFileSize), cfg.Upload.MaxFileSize)
	assert.Equal(t, DefaultBatchSize, cfg.Upload.BatchSize)
	assert.Equal(t, DefaultMaxReportedErrors, cfg.Upload.MaxReportedErrors)
	assert.Equal(t, "auth_token", cfg.Auth.CookieName)
	assert.Equal(t, "admin", cfg.Auth.AdminRole)
	assert.Equal(t, ":dlq", cfg.Redis.DLQSuffix)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
	assert.False(t, cfg.ArchiveEnabled())
}

func TestParseEnvOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "from-env")
	t.Setenv("DB_PASSWORD", "db-secret")

	cfg, err := Parse([]byte(minimalYAML))
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Auth.JWTSecret)
	assert.Equal(t, "db-secret", cfg.Database.Password)
}

func TestParseRejectsInvalidConfig(t *testing.T) {
	_, err := Parse([]byte("app:\n  name: x\n"))
	assert.Error(t, err)

	_, err = Parse([]byte(minimalYAML + "logging:\n  level: verbose\n"))
	assert.Error(t, err)
}

func TestDatabaseDSN(t *testing.T) {
	cfg, err := Parse([]byte(minimalYAML))
	require.NoError(t, err)
	cfg.Database.Password = "pw"

	assert.Equal(t, "school:pw@tcp(localhost:3306)/school?charset=utf8mb4&parseTime=true&loc=UTC", cfg.DatabaseDSN())
	assert.Equal(t, "localhost:6379", cfg.RedisAddr())
}
