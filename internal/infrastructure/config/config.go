// Package config loads process configuration from the environment.
// A .env file in the working directory is read first when present;
// real environment variables win over it.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config is the complete server and CLI configuration.
type Config struct {
	App      AppConfig
	HTTP     HTTPConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Log      LogConfig
	Report   ReportConfig
}

type AppConfig struct {
	Env string `validate:"oneof=development staging production test"`
}

// IsDevelopment reports whether pretty logging and gin debug mode apply.
func (a AppConfig) IsDevelopment() bool {
	return a.Env == "development"
}

type HTTPConfig struct {
	Port            string        `validate:"required,numeric"`
	ReadTimeout     time.Duration `validate:"gt=0"`
	WriteTimeout    time.Duration `validate:"gt=0"`
	IdleTimeout     time.Duration `validate:"gt=0"`
	ShutdownTimeout time.Duration `validate:"gt=0"`
}

type DatabaseConfig struct {
	URL      string `validate:"required"`
	MaxConns int32  `validate:"gte=1"`
	MinConns int32  `validate:"gte=0,ltefield=MaxConns"`
	// StatementTimeout is applied with SET LOCAL inside every transaction.
	StatementTimeout time.Duration `validate:"gt=0"`
	MigrationsDir    string        `validate:"required"`
}

// RedisConfig is optional: an empty Addr selects the in-process cache and
// disables the cross-process conversion lock.
type RedisConfig struct {
	Addr       string
	Password   string
	DB         int           `validate:"gte=0,lte=15"`
	ProductTTL time.Duration `validate:"gte=0"`
	LockTTL    time.Duration `validate:"gte=0"`
}

// Enabled reports whether a Redis address is configured.
func (r RedisConfig) Enabled() bool {
	return r.Addr != ""
}

type LogConfig struct {
	Level string `validate:"oneof=debug info warn error"`
}

type ReportConfig struct {
	// AllowUnderflow lets issues clamp at zero instead of failing on shortage.
	AllowUnderflow bool
	// AuditCompressThreshold is the payload size above which audit changes are zstd-compressed.
	AuditCompressThreshold int `validate:"gte=0"`
}

// Load reads configuration from the environment and validates it.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Env: getEnv("APP_ENV", "development"),
		},
		HTTP: HTTPConfig{
			Port:            getEnv("APP_PORT", "8080"),
			ReadTimeout:     getEnvDuration("HTTP_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getEnvDuration("HTTP_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:     getEnvDuration("HTTP_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvDuration("HTTP_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Database: DatabaseConfig{
			URL:              os.Getenv("DATABASE_URL"),
			MaxConns:         int32(getEnvInt("DB_MAX_CONNS", 25)),
			MinConns:         int32(getEnvInt("DB_MIN_CONNS", 5)),
			StatementTimeout: getEnvDuration("DB_STATEMENT_TIMEOUT", 30*time.Second),
			MigrationsDir:    getEnv("MIGRATIONS_DIR", "db/migrations"),
		},
		Redis: RedisConfig{
			Addr:       os.Getenv("REDIS_ADDR"),
			Password:   os.Getenv("REDIS_PASSWORD"),
			DB:         getEnvInt("REDIS_DB", 0),
			ProductTTL: getEnvDuration("PRODUCT_CACHE_TTL", 10*time.Minute),
			LockTTL:    getEnvDuration("CONVERSION_LOCK_TTL", 2*time.Minute),
		},
		Log: LogConfig{
			Level: strings.ToLower(getEnv("LOG_LEVEL", "info")),
		},
		Report: ReportConfig{
			AllowUnderflow:         getEnvBool("ALLOW_UNDERFLOW", false),
			AuditCompressThreshold: getEnvInt("AUDIT_COMPRESS_THRESHOLD", 8*1024),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

var validate = validator.New()

// Validate checks struct-tag constraints and reports every failing field.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate config: %w", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
