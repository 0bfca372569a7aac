package config

import (
	"errors"
	"fmt"
	"strings"

	"servicecatalog/engine/internal/pricing"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Catalog  CatalogConfig  `mapstructure:"catalog"`
	Pricing  PricingConfig  `mapstructure:"pricing"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Workers  WorkersConfig  `mapstructure:"workers"`
	Log      LogConfig      `mapstructure:"log"`
}

// CatalogConfig describes where the catalog document comes from and how it is fetched
type CatalogConfig struct {
	// Source is a file path, a file:// URL or an http(s):// URL.
	Source               string   `mapstructure:"source"`
	Format               string   `mapstructure:"format"` // xml, json or empty to detect
	Watch                bool     `mapstructure:"watch"`
	Mirrors              []string `mapstructure:"mirrors"`
	Timeout              int      `mapstructure:"timeout"`
	MaxRetries           int      `mapstructure:"max_retries"`
	MaxRequestsPerSecond int      `mapstructure:"max_requests_per_second"`
	BreakerCooldown      int      `mapstructure:"breaker_cooldown"`
}

// PricingConfig selects the resolver policies
type PricingConfig struct {
	DiscountStacking string `mapstructure:"discount_stacking"` // stack | once_per_condition
	RecurringTerm    string `mapstructure:"recurring_term"`    // per_period | full_term
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Name     string `mapstructure:"name"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
}

// DSN returns the pgx connection string.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		c.Host, c.Port, c.User, c.Password, c.Name)
}

// RedisConfig holds Redis connection details
type RedisConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Password       string `mapstructure:"password"`
	Database       int    `mapstructure:"database"`
	ConsumerGroup  string `mapstructure:"consumer_group"`
	MinIdleTime    int    `mapstructure:"min_idle_time"`
	QuoteResultTTL int    `mapstructure:"quote_result_ttl"`
}

// Addr returns host:port.
func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type WorkersConfig struct {
	Count int `mapstructure:"count"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // text | json
}

// Load loads configuration from YAML file with environment variable overrides.
// The engine refuses to start without config.yaml.
func Load() (*Config, error) {
	return load(true)
}

// LoadOptional is Load for command line tools: a missing config.yaml is not an
// error and defaults plus environment overrides are used instead.
func LoadOptional() (*Config, error) {
	return load(false)
}

func load(required bool) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	setDefaults(v)

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		switch {
		case errors.As(err, &notFound) && !required:
		case errors.As(err, &notFound):
			return nil, fmt.Errorf("config.yaml file not found in current directory")
		default:
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate rejects policy values the resolver does not know.
func (c *Config) Validate() error {
	if _, err := pricing.ParsePolicy(c.Pricing.DiscountStacking, c.Pricing.RecurringTerm); err != nil {
		return fmt.Errorf("invalid pricing policy: %w", err)
	}
	switch c.Catalog.Format {
	case "", "xml", "json":
	default:
		return fmt.Errorf("invalid catalog.format %q", c.Catalog.Format)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("catalog.source", "./catalog.xml")
	v.SetDefault("catalog.format", "")
	v.SetDefault("catalog.watch", false)
	v.SetDefault("catalog.mirrors", []string{})
	v.SetDefault("catalog.timeout", 30)
	v.SetDefault("catalog.max_retries", 3)
	v.SetDefault("catalog.max_requests_per_second", 5)
	v.SetDefault("catalog.breaker_cooldown", 300)

	v.SetDefault("pricing.discount_stacking", "stack")
	v.SetDefault("pricing.recurring_term", "per_period")

	v.SetDefault("database.enabled", false)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "catalog")
	v.SetDefault("database.user", "catalog_user")
	v.SetDefault("database.password", "catalog_pass")

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.database", 0)
	v.SetDefault("redis.consumer_group", "catalog_engine")
	v.SetDefault("redis.min_idle_time", 120)
	v.SetDefault("redis.quote_result_ttl", 3600)

	v.SetDefault("workers.count", 4)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}
