package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

type Config struct {
	Server      ServerConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	Session     SessionConfig
	RateLimit   RateLimitConfig
	CSRF        CSRFConfig
	Crypto      CryptoConfig
	Transaction TransactionConfig
	Google      GoogleConfig
	Email       EmailConfig
	ContractGen ContractGenConfig
}

type ServerConfig struct {
	Port           string
	Environment    string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	AllowedOrigins string
	SecureCookies  bool
	FrontendURL    string
}

type DatabaseConfig struct {
	Host           string
	Port           string
	User           string
	Password       string
	DBName         string
	SSLMode        string
	MigrateOnStart bool
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     string
	Password string
	DB       int
}

type SessionConfig struct {
	Duration          time.Duration
	InactivityTimeout time.Duration
	SweepInterval     time.Duration
	CookieName        string
	HeaderName        string
	Backend           string
}

type RateLimitConfig struct {
	MaxRequests   int
	Window        time.Duration
	BlockDuration time.Duration
	SweepInterval time.Duration
	Backend       string
}

type CSRFConfig struct {
	CookieName  string
	HeaderName  string
	SafeMethods []string
}

type CryptoConfig struct {
	// Key is the base64-encoded 32-byte AES key.
	Key            string
	LegacyFallback bool
}

type TransactionConfig struct {
	DefaultCeiling   float64
	EmergencyCeiling float64
	RecurringCeiling float64
	TokenSecret      string
	TokenTTL         time.Duration
	Issuer           string
}

type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

type EmailConfig struct {
	Enabled   bool
	APIKey    string
	FromEmail string
	FromName  string
}

type ContractGenConfig struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

func Load() (*Config, error) {
	// .env is optional outside development
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:           getEnv("SERVER_PORT", "8080"),
			Environment:    getEnv("ENVIRONMENT", "development"),
			ReadTimeout:    getDurationEnv("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:   getDurationEnv("SERVER_WRITE_TIMEOUT", 30*time.Second),
			AllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000"),
			SecureCookies:  getBoolEnv("SECURE_COOKIES", false),
			FrontendURL:    getEnv("FRONTEND_URL", "http://localhost:3000"),
		},
		Database: DatabaseConfig{
			Host:           getEnv("DB_HOST", "localhost"),
			Port:           getEnv("DB_PORT", "5432"),
			User:           getEnv("DB_USER", "transac"),
			Password:       getEnv("DB_PASSWORD", "transac"),
			DBName:         getEnv("DB_NAME", "transac"),
			SSLMode:        getEnv("DB_SSLMODE", "disable"),
			MigrateOnStart: getBoolEnv("MIGRATE_ON_START", false),
		},
		Redis: RedisConfig{
			Enabled:  getBoolEnv("REDIS_ENABLED", false),
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getIntEnv("REDIS_DB", 0),
		},
		Session: SessionConfig{
			Duration:          getDurationEnv("SESSION_DURATION", 24*time.Hour),
			InactivityTimeout: getDurationEnv("SESSION_INACTIVITY_TIMEOUT", 30*time.Minute),
			SweepInterval:     getDurationEnv("SESSION_SWEEP_INTERVAL", 5*time.Minute),
			CookieName:        getEnv("SESSION_COOKIE_NAME", "session_id"),
			HeaderName:        getEnv("SESSION_HEADER_NAME", "X-Session-Token"),
			Backend:           getEnv("SESSION_BACKEND", BackendMemory),
		},
		RateLimit: RateLimitConfig{
			MaxRequests:   getIntEnv("RATE_LIMIT_MAX_REQUESTS", 60),
			Window:        getDurationEnv("RATE_LIMIT_WINDOW", time.Minute),
			BlockDuration: getDurationEnv("RATE_LIMIT_BLOCK_DURATION", 5*time.Minute),
			SweepInterval: getDurationEnv("RATE_LIMIT_SWEEP_INTERVAL", 5*time.Minute),
			Backend:       getEnv("RATE_LIMIT_BACKEND", BackendMemory),
		},
		CSRF: CSRFConfig{
			CookieName:  getEnv("CSRF_COOKIE_NAME", "csrf_token"),
			HeaderName:  getEnv("CSRF_HEADER_NAME", "X-CSRF-Token"),
			SafeMethods: getListEnv("CSRF_SAFE_METHODS", []string{"GET", "HEAD", "OPTIONS", "TRACE"}),
		},
		Crypto: CryptoConfig{
			Key:            getEnv("ENCRYPTION_KEY", ""),
			LegacyFallback: getBoolEnv("ENCRYPTION_LEGACY_FALLBACK", false),
		},
		Transaction: TransactionConfig{
			DefaultCeiling:   getFloatEnv("TRANSACTION_CEILING_DEFAULT", 10000),
			EmergencyCeiling: getFloatEnv("TRANSACTION_CEILING_EMERGENCY", 25000),
			RecurringCeiling: getFloatEnv("TRANSACTION_CEILING_RECURRING", 15000),
			TokenSecret:      getEnv("TRANSACTION_TOKEN_SECRET", ""),
			TokenTTL:         getDurationEnv("TRANSACTION_TOKEN_TTL", 15*time.Minute),
			Issuer:           getEnv("TRANSACTION_TOKEN_ISSUER", "transac"),
		},
		Google: GoogleConfig{
			ClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
			ClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
			RedirectURL:  getEnv("GOOGLE_REDIRECT_URL", "http://localhost:8080/api/v1/auth/google/callback"),
		},
		Email: EmailConfig{
			Enabled:   getBoolEnv("EMAIL_ENABLED", false),
			APIKey:    getEnv("RESEND_API_KEY", ""),
			FromEmail: getEnv("EMAIL_FROM", "no-reply@transac.local"),
			FromName:  getEnv("EMAIL_FROM_NAME", "Transac"),
		},
		ContractGen: ContractGenConfig{
			BaseURL: getEnv("CONTRACTGEN_BASE_URL", "http://localhost:11434"),
			APIKey:  getEnv("CONTRACTGEN_API_KEY", ""),
			Model:   getEnv("CONTRACTGEN_MODEL", "contract-drafter"),
			Timeout: getDurationEnv("CONTRACTGEN_TIMEOUT", 60*time.Second),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate reports the first configuration problem that would make the service misbehave.
func (c *Config) Validate() error {
	key, err := base64.StdEncoding.DecodeString(c.Crypto.Key)
	if err != nil || len(key) != 32 {
		return errors.New("ENCRYPTION_KEY must be a base64-encoded 32-byte key")
	}
	if c.Transaction.TokenSecret == "" {
		return errors.New("TRANSACTION_TOKEN_SECRET is required")
	}
	if c.Session.Duration <= 0 || c.Session.InactivityTimeout <= 0 || c.Session.SweepInterval <= 0 {
		return errors.New("session durations must be positive")
	}
	if c.RateLimit.MaxRequests <= 0 || c.RateLimit.Window <= 0 || c.RateLimit.BlockDuration <= 0 {
		return errors.New("rate limit settings must be positive")
	}
	if c.Transaction.DefaultCeiling <= 0 || c.Transaction.EmergencyCeiling <= 0 || c.Transaction.RecurringCeiling <= 0 {
		return errors.New("transaction ceilings must be positive")
	}
	if c.Server.IsProduction() && !c.Server.SecureCookies {
		return errors.New("SECURE_COOKIES must be true in production")
	}
	for name, backend := range map[string]string{"SESSION_BACKEND": c.Session.Backend, "RATE_LIMIT_BACKEND": c.RateLimit.Backend} {
		if backend != BackendMemory && backend != BackendRedis {
			return fmt.Errorf("%s must be %q or %q, got %q", name, BackendMemory, BackendRedis, backend)
		}
		if backend == BackendRedis && !c.Redis.Enabled {
			return fmt.Errorf("%s=redis requires REDIS_ENABLED=true", name)
		}
	}
	return nil
}

// EncryptionKey returns the decoded AES key. Validate must have passed.
func (c *CryptoConfig) EncryptionKey() []byte {
	key, _ := base64.StdEncoding.DecodeString(c.Key)
	return key
}

func (c *ServerConfig) IsProduction() bool {
	return c.Environment == "production"
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

// URL returns the connection string in URL form, as expected by golang-migrate.
// Credentials are escaped.
func (c *DatabaseConfig) URL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     net.JoinHostPort(c.Host, c.Port),
		Path:     "/" + c.DBName,
		RawQuery: url.Values{"sslmode": {c.SSLMode}}.Encode(),
	}
	return u.String()
}

func (c *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getListEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, strings.ToUpper(part))
		}
	}
	return out
}
