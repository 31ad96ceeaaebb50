// Package config loads and validates the registry configuration using Viper.
//
// Configuration is layered: built-in defaults < YAML config file < environment
// variables. Environment variables use the MODVAULT_ prefix (e.g.,
// MODVAULT_DATABASE_HOST overrides database.host in the YAML). This layering
// allows the same binary to run with a config.yaml in local development and
// with pure environment variables in containerized deployments.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Search    SearchConfig    `mapstructure:"search"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Security  SecurityConfig  `mapstructure:"security"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	BaseURL      string        `mapstructure:"base_url"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DatabaseConfig holds database connection configuration
type DatabaseConfig struct {
	Host               string `mapstructure:"host"`
	Port               int    `mapstructure:"port"`
	Name               string `mapstructure:"name"`
	User               string `mapstructure:"user"`
	Password           string `mapstructure:"password"`
	SSLMode            string `mapstructure:"ssl_mode"`
	MaxConnections     int    `mapstructure:"max_connections"`
	MinIdleConnections int    `mapstructure:"min_idle_connections"`
}

// GetDSN builds a PostgreSQL connection string from the database settings.
func (d *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		d.Host, d.Port, d.Name, d.User, d.Password, d.SSLMode)
}

// StorageConfig holds blob storage backend configuration. Two logical buckets
// exist: one for project files and one for gallery images. Both are served by
// the same backend type.
type StorageConfig struct {
	Backend string             `mapstructure:"backend"`
	S3      S3StorageConfig    `mapstructure:"s3"`
	Local   LocalStorageConfig `mapstructure:"local"`
}

// S3StorageConfig holds S3-compatible storage configuration
type S3StorageConfig struct {
	// Endpoint is the S3-compatible endpoint URL (optional, for MinIO etc.)
	Endpoint string `mapstructure:"endpoint"`
	// Region is the AWS region
	Region string `mapstructure:"region"`
	// ProjectsBucket holds uploaded version artifacts
	ProjectsBucket string `mapstructure:"projects_bucket"`
	// GalleryBucket holds gallery images
	GalleryBucket string `mapstructure:"gallery_bucket"`

	// Static credentials; when empty the AWS default credential chain is used
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
}

// LocalStorageConfig holds local filesystem storage configuration
type LocalStorageConfig struct {
	BasePath string `mapstructure:"base_path"`
}

// SearchConfig holds the search engine (Typesense) connection settings
type SearchConfig struct {
	URL        string `mapstructure:"url"`
	APIKey     string `mapstructure:"api_key"`
	Collection string `mapstructure:"collection"`
}

// RedisConfig holds the Redis connection used for rate limiting and the
// best-effort per-user cache. Redis is optional; when Addr is empty both
// features fall back (in-memory limiter, no cache).
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// AuthConfig holds token authentication settings
type AuthConfig struct {
	// TokenTTL is how long newly issued bearer tokens remain valid
	TokenTTL time.Duration `mapstructure:"token_ttl"`
	// SessionSecret signs short-lived session JWTs; empty disables sessions
	SessionSecret string `mapstructure:"session_secret"`
	// SessionTTL is how long session JWTs remain valid
	SessionTTL time.Duration `mapstructure:"session_ttl"`
}

// SecurityConfig holds security-related settings
type SecurityConfig struct {
	RateLimiting RateLimitingConfig `mapstructure:"rate_limiting"`
}

// RateLimitingConfig holds rate limiting settings
type RateLimitingConfig struct {
	Enabled           bool `mapstructure:"enabled"`
	RequestsPerMinute int  `mapstructure:"requests_per_minute"`
	Burst             int  `mapstructure:"burst"`
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// TelemetryConfig holds observability settings
type TelemetryConfig struct {
	MetricsEnabled bool `mapstructure:"metrics_enabled"`
	PrometheusPort int  `mapstructure:"prometheus_port"`
}

// bindEnvVars explicitly binds environment variables to config keys.
// This is necessary because AutomaticEnv() doesn't work well with nested
// structs during Unmarshal. viper.BindEnv only errors when called with zero
// keys; since every key here is a non-empty hardcoded string, any error
// indicates a programming bug and is surfaced to the caller.
func bindEnvVars(v *viper.Viper) error {
	keys := []string{
		"server.host",
		"server.port",
		"server.base_url",
		"server.read_timeout",
		"server.write_timeout",

		"database.host",
		"database.port",
		"database.name",
		"database.user",
		"database.password",
		"database.ssl_mode",
		"database.max_connections",
		"database.min_idle_connections",

		"storage.backend",
		"storage.s3.endpoint",
		"storage.s3.region",
		"storage.s3.projects_bucket",
		"storage.s3.gallery_bucket",
		"storage.s3.access_key_id",
		"storage.s3.secret_access_key",
		"storage.local.base_path",

		"search.url",
		"search.api_key",
		"search.collection",

		"redis.addr",
		"redis.password",
		"redis.db",

		"auth.token_ttl",
		"auth.session_secret",
		"auth.session_ttl",

		"security.rate_limiting.enabled",
		"security.rate_limiting.requests_per_minute",
		"security.rate_limiting.burst",

		"logging.level",
		"logging.format",

		"telemetry.metrics_enabled",
		"telemetry.prometheus_port",
	}
	for _, key := range keys {
		if err := v.BindEnv(key); err != nil {
			return fmt.Errorf("failed to bind env var %q: %w", key, err)
		}
	}
	return nil
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/modvault")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found; use defaults and environment variables
	}

	v.SetEnvPrefix("MODVAULT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := bindEnvVars(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// Expand environment variables in sensitive fields
	cfg.Database.Password = expandEnv(cfg.Database.Password)
	cfg.Storage.S3.AccessKeyID = expandEnv(cfg.Storage.S3.AccessKeyID)
	cfg.Storage.S3.SecretAccessKey = expandEnv(cfg.Storage.S3.SecretAccessKey)
	cfg.Search.APIKey = expandEnv(cfg.Search.APIKey)
	cfg.Redis.Password = expandEnv(cfg.Redis.Password)
	cfg.Auth.SessionSecret = expandEnv(cfg.Auth.SessionSecret)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.base_url", "http://localhost:8080")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "modvault")
	v.SetDefault("database.user", "modvault")
	v.SetDefault("database.ssl_mode", "require")
	v.SetDefault("database.max_connections", 25)
	v.SetDefault("database.min_idle_connections", 5)

	v.SetDefault("storage.backend", "local")
	v.SetDefault("storage.local.base_path", "./storage")
	v.SetDefault("storage.s3.projects_bucket", "modvault-projects")
	v.SetDefault("storage.s3.gallery_bucket", "modvault-gallery")

	v.SetDefault("search.url", "http://localhost:8108")
	v.SetDefault("search.collection", "projects")

	v.SetDefault("auth.token_ttl", "720h")
	v.SetDefault("auth.session_ttl", "1h")

	v.SetDefault("security.rate_limiting.enabled", true)
	v.SetDefault("security.rate_limiting.requests_per_minute", 200)
	v.SetDefault("security.rate_limiting.burst", 50)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("telemetry.metrics_enabled", true)
	v.SetDefault("telemetry.prometheus_port", 9090)
}

// Validate checks the configuration for settings that would prevent startup.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case "local":
		if c.Storage.Local.BasePath == "" {
			return fmt.Errorf("storage.local.base_path is required for the local backend")
		}
	case "s3":
		if c.Storage.S3.Region == "" && c.Storage.S3.Endpoint == "" {
			return fmt.Errorf("storage.s3 requires a region or a custom endpoint")
		}
		if c.Storage.S3.ProjectsBucket == "" || c.Storage.S3.GalleryBucket == "" {
			return fmt.Errorf("storage.s3 requires projects_bucket and gallery_bucket")
		}
	default:
		return fmt.Errorf("unsupported storage backend: %s (must be 'local' or 's3')", c.Storage.Backend)
	}

	if c.Search.URL == "" {
		return fmt.Errorf("search.url is required")
	}

	return nil
}

// expandEnv expands ${VAR} references so secrets can be injected indirectly
// (e.g. database.password: ${DB_PASSWORD}).
func expandEnv(value string) string {
	if strings.HasPrefix(value, "${") && strings.HasSuffix(value, "}") {
		return os.Getenv(strings.TrimSuffix(strings.TrimPrefix(value, "${"), "}"))
	}
	return value
}
