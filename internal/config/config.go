package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig   `json:"server"`
	Database DatabaseConfig `json:"database"`
	Redis    RedisConfig    `json:"redis"`
	Log      LogConfig      `json:"log"`
	Security SecurityConfig `json:"security"`
	Engine   EngineConfig   `json:"engine"`
	Analysis AnalysisConfig `json:"analysis"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port         int    `json:"port"`
	Environment  string `json:"environment"`
	ReadTimeout  int    `json:"read_timeout"`
	WriteTimeout int    `json:"write_timeout"`
	IdleTimeout  int    `json:"idle_timeout"`
}

// DatabaseConfig holds database configuration. An empty Host selects the
// in-memory store.
type DatabaseConfig struct {
	Host            string        `json:"host"`
	Port            int           `json:"port"`
	User            string        `json:"user"`
	Password        string        `json:"-"`
	Name            string        `json:"name"`
	SSLMode         string        `json:"ssl_mode"`
	MaxOpenConns    int           `json:"max_open_conns"`
	MaxIdleConns    int           `json:"max_idle_conns"`
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime"`
	AutoMigrate     bool          `json:"auto_migrate"`
}

// DSN builds the postgres connection string
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

// Enabled reports whether a database is configured
func (d DatabaseConfig) Enabled() bool {
	return d.Host != ""
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host         string        `json:"host"`
	Port         int           `json:"port"`
	Password     string        `json:"-"`
	DB           int           `json:"db"`
	PoolSize     int           `json:"pool_size"`
	DialTimeout  time.Duration `json:"dial_timeout"`
	ReadTimeout  time.Duration `json:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"`
}

// SecurityConfig holds security configuration
type SecurityConfig struct {
	RateLimit  RateLimitConfig `json:"rate_limit"`
	CORS       CORSConfig      `json:"cors"`
	AdminToken string          `json:"-"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	RequestsPerMinute int           `json:"requests_per_minute"`
	BurstSize         int           `json:"burst_size"`
	CleanupInterval   time.Duration `json:"cleanup_interval"`
}

// CORSConfig holds CORS configuration
type CORSConfig struct {
	AllowedOrigins   []string `json:"allowed_origins"`
	AllowedMethods   []string `json:"allowed_methods"`
	AllowedHeaders   []string `json:"allowed_headers"`
	AllowCredentials bool     `json:"allow_credentials"`
}

// EngineConfig holds the investigation engine settings
type EngineConfig struct {
	BatchSize      int           `json:"batch_size"`
	QueryTimeout   time.Duration `json:"query_timeout"`
	ConfigCacheTTL time.Duration `json:"config_cache_ttl"`
	ResultCacheTTL time.Duration `json:"result_cache_ttl"`
	Workers        int           `json:"workers"`
	QueueSize      int           `json:"queue_size"`
	DepthMapPath   string        `json:"depth_map_path"`
	// MaxAttempts/BaseDelay/MaxJitter feed the provider retry policy
	MaxAttempts int           `json:"max_attempts"`
	BaseDelay   time.Duration `json:"base_delay"`
	MaxJitter   time.Duration `json:"max_jitter"`
	// ProviderBaseURLs overrides adapter endpoints, e.g. DATAJUD=http://...
	ProviderBaseURLs map[string]string `json:"provider_base_urls"`
}

// AnalysisConfig holds the downstream analysis service settings. An empty
// URL disables the handoff.
type AnalysisConfig struct {
	URL     string        `json:"url"`
	Timeout time.Duration `json:"timeout"`
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	timeouts := DefaultTimeoutConfig()

	cfg := &Config{
		Server: ServerConfig{
			Port:         getEnvAsInt("PORT", 8080),
			Environment:  getEnv("ENVIRONMENT", "development"),
			ReadTimeout:  getEnvAsInt("READ_TIMEOUT", int(timeouts.ServerReadTimeout.Seconds())),
			WriteTimeout: getEnvAsInt("WRITE_TIMEOUT", int(timeouts.ServerWriteTimeout.Seconds())),
			IdleTimeout:  getEnvAsInt("IDLE_TIMEOUT", int(timeouts.ServerIdleTimeout.Seconds())),
		},
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", ""),
			Port:            getEnvAsInt("DB_PORT", 5432),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", ""),
			Name:            getEnv("DB_NAME", "investigacao"),
			SSLMode:         getEnv("DB_SSL_MODE", "disable"),
			MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
			AutoMigrate:     getEnvAsBool("DB_AUTO_MIGRATE", true),
		},
		Redis: RedisConfig{
			Host:         getEnv("REDIS_HOST", ""),
			Port:         getEnvAsInt("REDIS_PORT", 6379),
			Password:     getEnv("REDIS_PASSWORD", ""),
			DB:           getEnvAsInt("REDIS_DB", 0),
			PoolSize:     getEnvAsInt("REDIS_POOL_SIZE", 10),
			DialTimeout:  getEnvAsDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getEnvAsDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getEnvAsDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Security: SecurityConfig{
			RateLimit: RateLimitConfig{
				RequestsPerMinute: getEnvAsInt("RATE_LIMIT_RPM", 100),
				BurstSize:         getEnvAsInt("RATE_LIMIT_BURST", 10),
				CleanupInterval:   getEnvAsDuration("RATE_LIMIT_CLEANUP", time.Minute),
			},
			CORS: CORSConfig{
				AllowedOrigins:   getEnvAsSlice("CORS_ALLOWED_ORIGINS", []string{"*"}),
				AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
				AllowedHeaders:   []string{"*"},
				AllowCredentials: false,
			},
			AdminToken: getEnv("ADMIN_TOKEN", ""),
		},
		Engine: EngineConfig{
			BatchSize:        getEnvAsInt("ENGINE_BATCH_SIZE", 5),
			QueryTimeout:     getEnvAsDuration("ENGINE_QUERY_TIMEOUT", timeouts.ProviderQueryTimeout),
			ConfigCacheTTL:   getEnvAsDuration("ENGINE_CONFIG_CACHE_TTL", 5*time.Minute),
			ResultCacheTTL:   getEnvAsDuration("ENGINE_RESULT_CACHE_TTL", time.Hour),
			Workers:          getEnvAsInt("ENGINE_WORKERS", 4),
			QueueSize:        getEnvAsInt("ENGINE_QUEUE_SIZE", 256),
			DepthMapPath:     getEnv("ENGINE_DEPTH_MAP", ""),
			MaxAttempts:      getEnvAsInt("ENGINE_MAX_ATTEMPTS", 3),
			BaseDelay:        getEnvAsDuration("ENGINE_RETRY_BASE_DELAY", time.Second),
			MaxJitter:        getEnvAsDuration("ENGINE_RETRY_MAX_JITTER", 500*time.Millisecond),
			ProviderBaseURLs: getEnvAsMap("PROVIDER_BASE_URLS"),
		},
		Analysis: AnalysisConfig{
			URL:     getEnv("ANALYSIS_URL", ""),
			Timeout: getEnvAsDuration("ANALYSIS_TIMEOUT", timeouts.AnalysisTimeout),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the values that cannot be defaulted safely
func (c *Config) Validate() error {
	if c.Engine.BatchSize < 1 {
		return fmt.Errorf("ENGINE_BATCH_SIZE must be at least 1, got %d", c.Engine.BatchSize)
	}
	if c.Engine.MaxAttempts < 1 {
		return fmt.Errorf("ENGINE_MAX_ATTEMPTS must be at least 1, got %d", c.Engine.MaxAttempts)
	}
	if c.Engine.Workers < 1 {
		return fmt.Errorf("ENGINE_WORKERS must be at least 1, got %d", c.Engine.Workers)
	}
	if c.Engine.QueryTimeout <= 0 {
		return fmt.Errorf("ENGINE_QUERY_TIMEOUT must be positive")
	}
	if c.Server.Environment == "production" && c.Security.AdminToken == "" {
		return fmt.Errorf("ADMIN_TOKEN is required in production")
	}
	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getEnvAsDuration accepts Go durations ("30s") or plain seconds ("30")
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// getEnvAsMap parses KEY=value pairs separated by commas
func getEnvAsMap(key string) map[string]string {
	out := make(map[string]string)
	for _, pair := range getEnvAsSlice(key, nil) {
		k, v, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		out[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	return out
}
