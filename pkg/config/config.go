package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/edukit/eduguard/pkg/observability"
)

// Config holds all application configuration
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Database      DatabaseConfig      `yaml:"database"`
	Redis         RedisConfig         `yaml:"redis"`
	Auth          AuthConfig          `yaml:"auth"`
	Audit         AuditConfig         `yaml:"audit"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            string        `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	CORSOrigin      string        `yaml:"cors_origin"`
}

// DatabaseConfig holds the relational store configuration. Driver is
// "postgres" in deployments; "sqlite3" exists for local development.
type DatabaseConfig struct {
	Driver       string        `yaml:"driver"`
	URL          string        `yaml:"url"`
	MaxOpenConns int           `yaml:"max_open_conns"`
	MaxIdleConns int           `yaml:"max_idle_conns"`
	ConnLifetime time.Duration `yaml:"conn_lifetime"`
}

// RedisConfig holds the permission-cache backend configuration. An empty
// Addr disables the shared cache layer; the in-process cache still runs.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	CacheTTL time.Duration `yaml:"cache_ttl"`
}

// AuthConfig holds token verification configuration. JWTSecret drives
// the built-in HMAC verifier; setting OIDCIssuer switches verification
// to the external identity provider.
type AuthConfig struct {
	JWTSecret        string        `yaml:"jwt_secret"`
	Issuer           string        `yaml:"issuer"`
	AccessTokenTTL   time.Duration `yaml:"access_token_ttl"`
	RefreshTokenTTL  time.Duration `yaml:"refresh_token_ttl"`
	OIDCIssuer       string        `yaml:"oidc_issuer"`
	OIDCClientID     string        `yaml:"oidc_client_id"`
	OIDCClientSecret string        `yaml:"oidc_client_secret"`
	OIDCRedirectURL  string        `yaml:"oidc_redirect_url"`
}

// AuditConfig holds security-event trail configuration
type AuditConfig struct {
	FileDir       string        `yaml:"file_dir"`
	FileMaxSize   int64         `yaml:"file_max_size"`
	FileMaxCount  int           `yaml:"file_max_count"`
	BufferWorkers int           `yaml:"buffer_workers"`
	WriteTimeout  time.Duration `yaml:"write_timeout"`
	RetentionDays int           `yaml:"retention_days"`
	SweepSchedule string        `yaml:"sweep_schedule"`
	ArchiveDir    string        `yaml:"archive_dir"`
}

// ObservabilityConfig holds logging and metrics settings
type ObservabilityConfig struct {
	LogLevel       string `yaml:"log_level"`
	MetricsEnabled bool   `yaml:"metrics_enabled"`
	Environment    string `yaml:"environment"`
}

// ParsedLogLevel converts the configured level string
func (o ObservabilityConfig) ParsedLogLevel() observability.LogLevel {
	return observability.ParseLevel(o.LogLevel)
}

// Defaults returns the built-in baseline configuration
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            "8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			CORSOrigin:      "*",
		},
		Database: DatabaseConfig{
			Driver:       "postgres",
			MaxOpenConns: 25,
			MaxIdleConns: 5,
			ConnLifetime: 5 * time.Minute,
		},
		Redis: RedisConfig{
			DB:       0,
			CacheTTL: 5 * time.Minute,
		},
		Auth: AuthConfig{
			Issuer:          "eduguard",
			AccessTokenTTL:  15 * time.Minute,
			RefreshTokenTTL: 7 * 24 * time.Hour,
		},
		Audit: AuditConfig{
			FileDir:       "logs",
			FileMaxSize:   10 << 20,
			FileMaxCount:  10,
			BufferWorkers: 4,
			WriteTimeout:  5 * time.Second,
			RetentionDays: 90,
			SweepSchedule: "0 3 * * *",
		},
		Observability: ObservabilityConfig{
			LogLevel:       "info",
			MetricsEnabled: true,
			Environment:    "production",
		},
	}
}

// LoadConfig resolves configuration from defaults, an optional YAML file
// named by EDUGUARD_CONFIG_FILE, and EDUGUARD_* environment variables.
func LoadConfig() (*Config, error) {
	cfg := Defaults()

	if path := os.Getenv("EDUGUARD_CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.loadEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) loadEnv() {
	c.Server.Host = getEnv("EDUGUARD_HOST", c.Server.Host)
	c.Server.Port = getEnv("EDUGUARD_PORT", c.Server.Port)
	c.Server.ReadTimeout = getEnvDuration("EDUGUARD_READ_TIMEOUT", c.Server.ReadTimeout)
	c.Server.WriteTimeout = getEnvDuration("EDUGUARD_WRITE_TIMEOUT", c.Server.WriteTimeout)
	c.Server.IdleTimeout = getEnvDuration("EDUGUARD_IDLE_TIMEOUT", c.Server.IdleTimeout)
	c.Server.ShutdownTimeout = getEnvDuration("EDUGUARD_SHUTDOWN_TIMEOUT", c.Server.ShutdownTimeout)
	c.Server.CORSOrigin = getEnv("EDUGUARD_CORS_ORIGIN", c.Server.CORSOrigin)

	c.Database.Driver = getEnv("EDUGUARD_DB_DRIVER", c.Database.Driver)
	c.Database.URL = getEnv("EDUGUARD_DB_URL", c.Database.URL)
	c.Database.MaxOpenConns = getEnvInt("EDUGUARD_DB_MAX_OPEN_CONNS", c.Database.MaxOpenConns)
	c.Database.MaxIdleConns = getEnvInt("EDUGUARD_DB_MAX_IDLE_CONNS", c.Database.MaxIdleConns)
	c.Database.ConnLifetime = getEnvDuration("EDUGUARD_DB_CONN_LIFETIME", c.Database.ConnLifetime)

	c.Redis.Addr = getEnv("EDUGUARD_REDIS_ADDR", c.Redis.Addr)
	c.Redis.Password = getEnv("EDUGUARD_REDIS_PASSWORD", c.Redis.Password)
	c.Redis.DB = getEnvInt("EDUGUARD_REDIS_DB", c.Redis.DB)
	c.Redis.CacheTTL = getEnvDuration("EDUGUARD_CACHE_TTL", c.Redis.CacheTTL)

	c.Auth.JWTSecret = getEnv("EDUGUARD_JWT_SECRET", c.Auth.JWTSecret)
	c.Auth.Issuer = getEnv("EDUGUARD_JWT_ISSUER", c.Auth.Issuer)
	c.Auth.AccessTokenTTL = getEnvDuration("EDUGUARD_ACCESS_TOKEN_TTL", c.Auth.AccessTokenTTL)
	c.Auth.RefreshTokenTTL = getEnvDuration("EDUGUARD_REFRESH_TOKEN_TTL", c.Auth.RefreshTokenTTL)
	c.Auth.OIDCIssuer = getEnv("EDUGUARD_OIDC_ISSUER", c.Auth.OIDCIssuer)
	c.Auth.OIDCClientID = getEnv("EDUGUARD_OIDC_CLIENT_ID", c.Auth.OIDCClientID)
	c.Auth.OIDCClientSecret = getEnv("EDUGUARD_OIDC_CLIENT_SECRET", c.Auth.OIDCClientSecret)
	c.Auth.OIDCRedirectURL = getEnv("EDUGUARD_OIDC_REDIRECT_URL", c.Auth.OIDCRedirectURL)

	c.Audit.FileDir = getEnv("EDUGUARD_AUDIT_FILE_DIR", c.Audit.FileDir)
	c.Audit.FileMaxSize = getEnvInt64("EDUGUARD_AUDIT_FILE_MAX_SIZE", c.Audit.FileMaxSize)
	c.Audit.FileMaxCount = getEnvInt("EDUGUARD_AUDIT_FILE_MAX_COUNT", c.Audit.FileMaxCount)
	c.Audit.BufferWorkers = getEnvInt("EDUGUARD_AUDIT_BUFFER_WORKERS", c.Audit.BufferWorkers)
	c.Audit.WriteTimeout = getEnvDuration("EDUGUARD_AUDIT_WRITE_TIMEOUT", c.Audit.WriteTimeout)
	c.Audit.RetentionDays = getEnvInt("EDUGUARD_AUDIT_RETENTION_DAYS", c.Audit.RetentionDays)
	c.Audit.SweepSchedule = getEnv("EDUGUARD_AUDIT_SWEEP_SCHEDULE", c.Audit.SweepSchedule)
	c.Audit.ArchiveDir = getEnv("EDUGUARD_AUDIT_ARCHIVE_DIR", c.Audit.ArchiveDir)

	c.Observability.LogLevel = getEnv("EDUGUARD_LOG_LEVEL", c.Observability.LogLevel)
	c.Observability.MetricsEnabled = getEnvBool("EDUGUARD_METRICS_ENABLED", c.Observability.MetricsEnabled)
	c.Observability.Environment = getEnv("EDUGUARD_ENVIRONMENT", c.Observability.Environment)
}

// UseOIDC reports whether token verification is delegated to an external
// identity provider
func (c *Config) UseOIDC() bool {
	return c.Auth.OIDCIssuer != ""
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}

	switch c.Database.Driver {
	case "postgres", "sqlite3":
	default:
		return fmt.Errorf("invalid database driver: %s (must be postgres or sqlite3)", c.Database.Driver)
	}
	if c.Database.URL == "" {
		return fmt.Errorf("database URL is required")
	}

	if c.UseOIDC() {
		if c.Auth.OIDCClientID == "" {
			return fmt.Errorf("OIDC client ID is required when OIDC issuer is set")
		}
	} else if c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT secret is required unless OIDC is configured")
	}

	if c.Audit.RetentionDays <= 0 {
		return fmt.Errorf("audit retention days must be positive")
	}
	if c.Audit.BufferWorkers <= 0 {
		return fmt.Errorf("audit buffer workers must be positive")
	}

	return nil
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvInt64 returns an int64 environment variable or a default
func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
