package config

import (
	"encoding/base64"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("ENCRYPTION_KEY", base64.StdEncoding.EncodeToString(make([]byte, 32)))
	t.Setenv("TRANSACTION_TOKEN_SECRET", "test-secret")
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 24*time.Hour, cfg.Session.Duration)
	assert.Equal(t, 30*time.Minute, cfg.Session.InactivityTimeout)
	assert.Equal(t, 5*time.Minute, cfg.Session.SweepInterval)
	assert.Equal(t, 60, cfg.RateLimit.MaxRequests)
	assert.Equal(t, time.Minute, cfg.RateLimit.Window)
	assert.Equal(t, 10000.0, cfg.Transaction.DefaultCeiling)
	assert.Equal(t, 25000.0, cfg.Transaction.EmergencyCeiling)
	assert.Equal(t, []string{"GET", "HEAD", "OPTIONS", "TRACE"}, cfg.CSRF.SafeMethods)
	assert.Len(t, cfg.Crypto.EncryptionKey(), 32)
}

func TestLoad_Overrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("RATE_LIMIT_MAX_REQUESTS", "10")
	t.Setenv("SESSION_DURATION", "2h")
	t.Setenv("CSRF_SAFE_METHODS", "get, head")
	t.Setenv("TRANSACTION_CEILING_DEFAULT", "500.5")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 10, cfg.RateLimit.MaxRequests)
	assert.Equal(t, 2*time.Hour, cfg.Session.Duration)
	assert.Equal(t, []string{"GET", "HEAD"}, cfg.CSRF.SafeMethods)
	assert.Equal(t, 500.5, cfg.Transaction.DefaultCeiling)
}

func TestLoad_ProductionRequiresSecureCookies(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("ENVIRONMENT", "production")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SECURE_COOKIES")

	t.Setenv("SECURE_COOKIES", "true")
	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.Server.IsProduction())
}

func TestLoad_RejectsBadKey(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("ENCRYPTION_KEY", base64.StdEncoding.EncodeToString([]byte("short")))

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ENCRYPTION_KEY")
}

func TestLoad_RedisBackendRequiresRedis(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("SESSION_BACKEND", "redis")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "REDIS_ENABLED")
}

func TestDatabaseConfig_URL(t *testing.T) {
	c := DatabaseConfig{Host: "db", Port: "5432", User: "u", Password: "p", DBName: "n", SSLMode: "disable"}
	assert.Equal(t, "postgres://u:p@db:5432/n?sslmode=disable", c.URL())
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=n sslmode=disable", c.DSN())
}

func TestDatabaseConfig_URLEscapesCredentials(t *testing.T) {
	c := DatabaseConfig{Host: "db", Port: "5432", User: "app@svc", Password: "p@ss/w:rd?", DBName: "n", SSLMode: "require"}

	u, err := url.Parse(c.URL())
	require.NoError(t, err)
	assert.Equal(t, "db:5432", u.Host)
	assert.Equal(t, "app@svc", u.User.Username())
	password, ok := u.User.Password()
	require.True(t, ok)
	assert.Equal(t, "p@ss/w:rd?", password)
	assert.Equal(t, "/n", u.Path)
	assert.Equal(t, "require", u.Query().Get("sslmode"))
}
