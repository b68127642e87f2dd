// Package config - application configuration via Viper.
//
// Precedence (highest first): environment variables (WALLETD_*), config
// file, defaults.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the root configuration for the service.
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Transfer TransferConfig `mapstructure:"transfer"`
	Interest InterestConfig `mapstructure:"interest"`
	Log      LogConfig      `mapstructure:"log"`
}

// AppConfig identifies the running instance.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
	Debug       bool   `mapstructure:"debug"`
}

// IsProduction reports whether the environment is production.
func (c *AppConfig) IsProduction() bool {
	return c.Environment == "production"
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// Address returns host:port for net.Listen.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// DatabaseConfig configures the PostgreSQL pool.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Database        string        `mapstructure:"database"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxConnections  int32         `mapstructure:"max_connections"`
	MinConnections  int32         `mapstructure:"min_connections"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
	AcquireTimeout  time.Duration `mapstructure:"acquire_timeout"`
}

// DSN returns the PostgreSQL connection string.
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User,
		c.Password,
		c.Host,
		c.Port,
		c.Database,
		c.SSLMode,
	)
}

// RedisConfig configures the cache / mutex backend.
type RedisConfig struct {
	Addr            string        `mapstructure:"addr"`
	Password        string        `mapstructure:"password"`
	DB              int           `mapstructure:"db"`
	MaxRetries      int           `mapstructure:"max_retries"`
	MinRetryBackoff time.Duration `mapstructure:"min_retry_backoff"`
	MaxRetryBackoff time.Duration `mapstructure:"max_retry_backoff"`
	DialTimeout     time.Duration `mapstructure:"dial_timeout"`
}

// TransferConfig bounds the transfer coordinator.
type TransferConfig struct {
	IdempotencyTTLSeconds int    `mapstructure:"idempotency_ttl_seconds"`
	LeaseTTLSeconds       int    `mapstructure:"lease_ttl_seconds"`
	MaxTransferAmount     string `mapstructure:"max_transfer_amount"`
	DefaultCurrency       string `mapstructure:"default_currency"`
}

// IdempotencyTTL returns the result-cache TTL as a duration.
func (c *TransferConfig) IdempotencyTTL() time.Duration {
	return time.Duration(c.IdempotencyTTLSeconds) * time.Second
}

// LeaseTTL returns the lease TTL as a duration.
func (c *TransferConfig) LeaseTTL() time.Duration {
	return time.Duration(c.LeaseTTLSeconds) * time.Second
}

// InterestConfig configures the daily interest calculator.
type InterestConfig struct {
	DefaultAnnualRate string `mapstructure:"default_annual_rate"`
	DaysInYear        int    `mapstructure:"days_in_year"`
}

// LogConfig configures structured logging.
type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, text
}

// Load reads configuration from the given directory/name plus environment
// variables. A missing config file is not an error; defaults and env apply.
func Load(configPath, configName string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName(configName)
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	v.AddConfigPath("/etc/walletd")

	v.SetEnvPrefix("WALLETD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// LoadFromEnv builds configuration from environment variables only.
func LoadFromEnv() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("WALLETD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "walletd")
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.debug", true)

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.idle_timeout", "60s")
	v.SetDefault("server.shutdown_timeout", "30s")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.database", "walletd")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_connections", 25)
	v.SetDefault("database.min_connections", 5)
	v.SetDefault("database.max_conn_lifetime", "1h")
	v.SetDefault("database.max_conn_idle_time", "30m")
	v.SetDefault("database.acquire_timeout", "5s")

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.max_retries", 3)
	v.SetDefault("redis.min_retry_backoff", "8ms")
	v.SetDefault("redis.max_retry_backoff", "512ms")
	v.SetDefault("redis.dial_timeout", "5s")

	v.SetDefault("transfer.idempotency_ttl_seconds", 86400)
	v.SetDefault("transfer.lease_ttl_seconds", 30)
	v.SetDefault("transfer.max_transfer_amount", "1000000000")
	v.SetDefault("transfer.default_currency", "NGN")

	v.SetDefault("interest.default_annual_rate", "0.05")
	v.SetDefault("interest.days_in_year", 365)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

func bindEnvVars(v *viper.Viper) {
	_ = v.BindEnv("database.host", "WALLETD_DATABASE_HOST", "DB_HOST")
	_ = v.BindEnv("database.port", "WALLETD_DATABASE_PORT", "DB_PORT")
	_ = v.BindEnv("database.user", "WALLETD_DATABASE_USER", "DB_USER")
	_ = v.BindEnv("database.password", "WALLETD_DATABASE_PASSWORD", "DB_PASSWORD")
	_ = v.BindEnv("database.database", "WALLETD_DATABASE_DATABASE", "DB_NAME")

	_ = v.BindEnv("redis.addr", "WALLETD_REDIS_ADDR", "REDIS_ADDR")

	_ = v.BindEnv("transfer.idempotency_ttl_seconds", "WALLETD_TRANSFER_IDEMPOTENCY_TTL_SECONDS", "IDEMPOTENCY_TTL_SECONDS")
	_ = v.BindEnv("transfer.lease_ttl_seconds", "WALLETD_TRANSFER_LEASE_TTL_SECONDS", "LEASE_TTL_SECONDS")
	_ = v.BindEnv("transfer.max_transfer_amount", "WALLETD_TRANSFER_MAX_TRANSFER_AMOUNT", "MAX_TRANSFER_AMOUNT")

	_ = v.BindEnv("server.port", "WALLETD_SERVER_PORT", "PORT")
	_ = v.BindEnv("app.environment", "WALLETD_APP_ENVIRONMENT", "ENVIRONMENT", "ENV")
}

// Validate rejects configurations the service cannot run with.
func (c *Config) Validate() error {
	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Transfer.LeaseTTLSeconds <= 0 {
		return fmt.Errorf("transfer lease TTL must be positive, got %d", c.Transfer.LeaseTTLSeconds)
	}

	if c.Transfer.IdempotencyTTLSeconds <= 0 {
		return fmt.Errorf("idempotency TTL must be positive, got %d", c.Transfer.IdempotencyTTLSeconds)
	}

	if len(c.Transfer.DefaultCurrency) != 3 {
		return fmt.Errorf("default currency must be a 3-letter code, got %q", c.Transfer.DefaultCurrency)
	}

	return nil
}

// Test returns a configuration suitable for tests.
func Test() *Config {
	cfg := &Config{
		App: AppConfig{
			Name:        "walletd",
			Version:     "test",
			Environment: "test",
			Debug:       true,
		},
		Server: ServerConfig{
			Host:            "localhost",
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Database: DatabaseConfig{
			Host:            "localhost",
			Port:            5432,
			User:            "postgres",
			Password:        "postgres",
			Database:        "walletd_test",
			SSLMode:         "disable",
			MaxConnections:  10,
			MinConnections:  2,
			MaxConnLifetime: time.Hour,
			MaxConnIdleTime: 30 * time.Minute,
			AcquireTimeout:  5 * time.Second,
		},
		Redis: RedisConfig{
			Addr:            "localhost:6379",
			MaxRetries:      3,
			MinRetryBackoff: 8 * time.Millisecond,
			MaxRetryBackoff: 512 * time.Millisecond,
			DialTimeout:     5 * time.Second,
		},
		Transfer: TransferConfig{
			IdempotencyTTLSeconds: 86400,
			LeaseTTLSeconds:       30,
			MaxTransferAmount:     "1000000000",
			DefaultCurrency:       "NGN",
		},
		Interest: InterestConfig{
			DefaultAnnualRate: "0.05",
			DaysInYear:        365,
		},
		Log: LogConfig{
			Level:  "error",
			Format: "text",
		},
	}
	return cfg
}
