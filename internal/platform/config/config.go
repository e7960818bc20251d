// Package config builds process configuration from the environment once, at
// startup. Business logic never reads the environment directly; the values
// travel by reference into policy checks and service constructors.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is the full process configuration.
type Config struct {
	Addr          string
	JWTSigningKey string

	// Account policy inputs.
	SessionTTL               time.Duration
	PasswordMinLength        int
	PasswordMaxLength        int
	AllowedEmailDomains      []string
	EmailVerificationEnabled bool

	DB      DBConfig
	Redis   RedisConfig
	Storage StorageConfig
}

// DBConfig holds the Postgres connection settings for the GORM store.
type DBConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// DSN renders the GORM postgres DSN. Empty host means "run on in-memory
// stores" (dev and unit-test mode).
func (c DBConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%d sslmode=%s",
		c.Host, c.User, c.Password, c.Name, c.Port, c.SSLMode,
	)
}

// RedisConfig holds session store settings. Empty URL disables Redis and the
// in-memory session store is used instead.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// StorageConfig holds the S3-compatible object storage settings. Empty
// endpoint selects the in-memory gateway.
type StorageConfig struct {
	Endpoint      string
	AccessKey     string
	SecretKey     string
	Bucket        string
	UseSSL        bool
	PublicBaseURL string
}

// FromEnv builds a Config from environment variables so main stays lean.
func FromEnv() Config {
	return Config{
		Addr:          getEnv("CAREHUB_ADDR", ":8080"),
		JWTSigningKey: getEnv("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),

		SessionTTL:               getEnvDuration("SESSION_TTL", 30*24*time.Hour),
		PasswordMinLength:        getEnvInt("PASSWORD_MIN_LENGTH", 8),
		PasswordMaxLength:        getEnvInt("PASSWORD_MAX_LENGTH", 100),
		AllowedEmailDomains:      splitList(os.Getenv("ALLOWED_EMAIL_DOMAINS")),
		EmailVerificationEnabled: getEnv("EMAIL_VERIFICATION_ENABLED", "true") == "true",

		DB: DBConfig{
			Host:            os.Getenv("DB_HOST"),
			Port:            getEnvInt("DB_PORT", 5432),
			User:            getEnv("DB_USER", "carehub"),
			Password:        getEnv("DB_PASSWORD", "carehub"),
			Name:            getEnv("DB_NAME", "carehub"),
			SSLMode:         getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     getEnvInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: getEnvInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  getEnvDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getEnvDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getEnvDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Storage: StorageConfig{
			Endpoint:      os.Getenv("STORAGE_ENDPOINT"),
			AccessKey:     os.Getenv("STORAGE_ACCESS_KEY"),
			SecretKey:     os.Getenv("STORAGE_SECRET_KEY"),
			Bucket:        getEnv("STORAGE_BUCKET", "provider-documents"),
			UseSSL:        getEnv("STORAGE_USE_SSL", "true") == "true",
			PublicBaseURL: os.Getenv("STORAGE_PUBLIC_BASE_URL"),
		},
	}
}

func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, strings.ToLower(trimmed))
		}
	}
	return out
}
