package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Environment represents the deployment environment
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvStaging     Environment = "staging"
	EnvProduction  Environment = "production"
)

// Config holds all application configuration
type Config struct {
	// Environment
	Env      Environment `envconfig:"ENV" default:"development"`
	LogLevel string      `envconfig:"LOG_LEVEL" default:"info"`
	Debug    bool        `envconfig:"DEBUG" default:"false"`

	App        AppConfig
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	Storage    StorageConfig
	Analyzer   AnalyzerConfig
	Cache      CacheConfig
	ErrorLog   ErrorLogConfig
	RateLimits RateLimitConfig
	Security   SecurityConfig
}

// AppConfig holds application metadata
type AppConfig struct {
	Name    string `envconfig:"APP_NAME" default:"styleforge"`
	Version string `envconfig:"APP_VERSION" default:"1.0.0"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Host            string        `envconfig:"SERVER_HOST" default:"0.0.0.0"`
	Port            int           `envconfig:"SERVER_PORT" default:"8080"`
	ReadTimeout     time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"30s"`
	WriteTimeout    time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"120s"`
	ShutdownTimeout time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`
	MaxRequestSize  int64         `envconfig:"SERVER_MAX_REQUEST_SIZE" default:"65536"`
}

// Addr returns the listen address
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// DatabaseConfig holds PostgreSQL settings for analysis persistence
type DatabaseConfig struct {
	Enabled         bool          `envconfig:"DB_ENABLED" default:"true"`
	Host            string        `envconfig:"DB_HOST" default:"localhost"`
	Port            int           `envconfig:"DB_PORT" default:"5432"`
	User            string        `envconfig:"DB_USER" default:"styleforge"`
	Password        string        `envconfig:"DB_PASSWORD" default:""`
	Database        string        `envconfig:"DB_NAME" default:"styleforge"`
	SSLMode         string        `envconfig:"DB_SSL_MODE" default:"disable"`
	MaxOpenConns    int           `envconfig:"DB_MAX_OPEN_CONNS" default:"10"`
	MaxIdleConns    int           `envconfig:"DB_MAX_IDLE_CONNS" default:"5"`
	ConnMaxLifetime time.Duration `envconfig:"DB_CONN_MAX_LIFETIME" default:"5m"`
	ConnMaxIdleTime time.Duration `envconfig:"DB_CONN_MAX_IDLE_TIME" default:"1m"`
}

// DSN returns the PostgreSQL connection string
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// RedisConfig holds Redis settings
type RedisConfig struct {
	Enabled      bool          `envconfig:"REDIS_ENABLED" default:"true"`
	Host         string        `envconfig:"REDIS_HOST" default:"localhost"`
	Port         int           `envconfig:"REDIS_PORT" default:"6379"`
	Password     string        `envconfig:"REDIS_PASSWORD" default:""`
	DB           int           `envconfig:"REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"REDIS_READ_TIMEOUT" default:"3s"`
	WriteTimeout time.Duration `envconfig:"REDIS_WRITE_TIMEOUT" default:"3s"`
}

// Addr returns Redis address
func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// StorageConfig holds object storage settings for screenshot archiving
type StorageConfig struct {
	Enabled   bool   `envconfig:"STORAGE_ENABLED" default:"false"`
	Endpoint  string `envconfig:"STORAGE_ENDPOINT" default:"localhost:9000"`
	AccessKey string `envconfig:"STORAGE_ACCESS_KEY" default:"minioadmin"`
	SecretKey string `envconfig:"STORAGE_SECRET_KEY" default:"minioadmin"`
	Bucket    string `envconfig:"STORAGE_BUCKET" default:"styleforge"`
	UseSSL    bool   `envconfig:"STORAGE_USE_SSL" default:"false"`
}

// AnalyzerConfig holds headless browser and retry settings
type AnalyzerConfig struct {
	Headless       bool          `envconfig:"ANALYZER_HEADLESS" default:"true"`
	NavTimeout     time.Duration `envconfig:"ANALYZER_NAV_TIMEOUT" default:"30s"`
	SettleDelay    time.Duration `envconfig:"ANALYZER_SETTLE_DELAY" default:"2s"`
	MaxRetries     int           `envconfig:"ANALYZER_MAX_RETRIES" default:"2"`
	RetryDelay     time.Duration `envconfig:"ANALYZER_RETRY_DELAY" default:"1500ms"`
	UserAgent      string        `envconfig:"ANALYZER_USER_AGENT" default:"Mozilla/5.0 (compatible; StyleAnalyzer/1.0)"`
	ViewportWidth  int           `envconfig:"ANALYZER_VIEWPORT_WIDTH" default:"1280"`
	ViewportHeight int           `envconfig:"ANALYZER_VIEWPORT_HEIGHT" default:"720"`
}

// CacheConfig holds analysis cache settings. Zero MaxEntries and TTL keep
// every analysis for the life of the process.
type CacheConfig struct {
	MaxEntries   int           `envconfig:"CACHE_MAX_ENTRIES" default:"0"`
	TTL          time.Duration `envconfig:"CACHE_TTL" default:"0s"`
	RedisEnabled bool          `envconfig:"CACHE_REDIS_ENABLED" default:"false"`
	RedisTTL     time.Duration `envconfig:"CACHE_REDIS_TTL" default:"24h"`
}

// ErrorLogConfig holds settings for the async analysis error log
type ErrorLogConfig struct {
	BufferSize    int           `envconfig:"ERROR_LOG_BUFFER_SIZE" default:"100"`
	FlushInterval time.Duration `envconfig:"ERROR_LOG_FLUSH_INTERVAL" default:"1s"`
}

// RateLimitConfig holds rate limiting settings
type RateLimitConfig struct {
	Enabled          bool          `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
	AnalysisRequests int           `envconfig:"RATE_LIMIT_ANALYSIS_REQUESTS" default:"5"`
	AnalysisWindow   time.Duration `envconfig:"RATE_LIMIT_ANALYSIS_WINDOW" default:"15m"`
}

// SecurityConfig holds security settings
type SecurityConfig struct {
	CORSEnabled        bool     `envconfig:"CORS_ENABLED" default:"true"`
	CORSAllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("processing config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	var errors []string

	if c.Analyzer.NavTimeout <= 0 {
		errors = append(errors, "ANALYZER_NAV_TIMEOUT must be positive")
	}
	if c.Analyzer.MaxRetries < 0 {
		errors = append(errors, "ANALYZER_MAX_RETRIES must not be negative")
	}
	if c.Analyzer.ViewportWidth <= 0 || c.Analyzer.ViewportHeight <= 0 {
		errors = append(errors, "ANALYZER_VIEWPORT_WIDTH and ANALYZER_VIEWPORT_HEIGHT must be positive")
	}
	if c.Cache.MaxEntries < 0 {
		errors = append(errors, "CACHE_MAX_ENTRIES must not be negative")
	}
	if c.RateLimits.Enabled && (c.RateLimits.AnalysisRequests <= 0 || c.RateLimits.AnalysisWindow <= 0) {
		errors = append(errors, "RATE_LIMIT_ANALYSIS_REQUESTS and RATE_LIMIT_ANALYSIS_WINDOW must be positive when rate limiting is enabled")
	}

	// Validate database in non-development mode
	if c.Env != EnvDevelopment && c.Database.Enabled && c.Database.Password == "" {
		errors = append(errors, "DB_PASSWORD is required in non-development mode")
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errors, "; "))
	}

	return nil
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env == EnvDevelopment
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Env == EnvProduction
}

// GetLogLevel returns the appropriate zap log level
func (c *Config) GetLogLevel() string {
	if c.Debug {
		return "debug"
	}
	return c.LogLevel
}
