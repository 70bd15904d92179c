// Package config loads the storefront settings from defaults, an optional
// YAML/JSON file and BAKERY_ prefixed environment variables, in increasing
// priority.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"github.com/jcmexdev/bakery-storefront/internal/cart"
	"github.com/jcmexdev/bakery-storefront/internal/promotion"
)

const EnvPrefix = "BAKERY"

type Config struct {
	HTTP       HTTPConfig         `mapstructure:"http"`
	GRPC       GRPCConfig         `mapstructure:"grpc"`
	Redis      RedisConfig        `mapstructure:"redis"`
	SQLite     SQLiteConfig       `mapstructure:"sqlite"`
	Postgres   PostgresConfig     `mapstructure:"postgres"`
	Catalog    CatalogConfig      `mapstructure:"catalog"`
	Sync       SyncConfig         `mapstructure:"sync"`
	Cart       CartConfig         `mapstructure:"cart"`
	Promotions []promotion.Record `mapstructure:"promotions"`
	Telemetry  TelemetryConfig    `mapstructure:"telemetry"`
}

type HTTPConfig struct {
	Addr string `mapstructure:"addr"`
}

type GRPCConfig struct {
	Addr string `mapstructure:"addr"`
}

// RedisConfig with an empty Addr keeps carts and the catalog mirror in
// process.
type RedisConfig struct {
	Addr      string `mapstructure:"addr"`
	Namespace string `mapstructure:"namespace"`
}

// SQLiteConfig with an empty Path disables the sync log.
type SQLiteConfig struct {
	Path string `mapstructure:"path"`
}

// PostgresConfig with an empty DSN uses the in-memory admin store.
type PostgresConfig struct {
	DSN string `mapstructure:"dsn"`
}

type CatalogConfig struct {
	TTL      time.Duration `mapstructure:"ttl"`
	PageSize int           `mapstructure:"page_size"`
	// SeedFile is a JSON array of admin products loaded into the in-memory
	// admin store at startup.
	SeedFile string `mapstructure:"seed_file"`
}

type SyncConfig struct {
	MaxRetries int           `mapstructure:"max_retries"`
	BaseDelay  time.Duration `mapstructure:"base_delay"`
	// Timeout bounds one sync triggered over HTTP, including its retries.
	Timeout time.Duration `mapstructure:"timeout"`
}

type CartConfig struct {
	TTL      time.Duration `mapstructure:"ttl"`
	Delivery cart.Delivery `mapstructure:"delivery"`
}

type TelemetryConfig struct {
	ServiceName string `mapstructure:"service_name"`
	// TracingEnabled exports spans to OTLPEndpoint.
	TracingEnabled bool   `mapstructure:"tracing_enabled"`
	OTLPEndpoint   string `mapstructure:"otlp_endpoint"`
	Environment    string `mapstructure:"environment"`
	LogLevel       string `mapstructure:"log_level"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("grpc.addr", ":9090")
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.namespace", "bakery")
	v.SetDefault("sqlite.path", "sync_logs.db")
	v.SetDefault("postgres.dsn", "")
	v.SetDefault("catalog.ttl", 5*time.Minute)
	v.SetDefault("catalog.page_size", 12)
	v.SetDefault("catalog.seed_file", "")
	v.SetDefault("sync.max_retries", 3)
	v.SetDefault("sync.base_delay", time.Second)
	v.SetDefault("sync.timeout", 30*time.Second)
	v.SetDefault("cart.ttl", 7*24*time.Hour)
	v.SetDefault("cart.delivery.fee", 300)
	v.SetDefault("cart.delivery.free_threshold", 0)
	v.SetDefault("telemetry.service_name", "bakery-storefront")
	v.SetDefault("telemetry.tracing_enabled", false)
	v.SetDefault("telemetry.otlp_endpoint", "localhost:4317")
	v.SetDefault("telemetry.environment", "local")
	v.SetDefault("telemetry.log_level", "info")
}

// Load reads the configuration into a fresh Config. cfgFile may be empty.
func Load(v *viper.Viper, cfgFile string) (*Config, error) {
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	decoderConfigOption := viper.DecoderConfigOption(func(config *mapstructure.DecoderConfig) {
		config.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToTimeHookFunc(time.RFC3339),
			mapstructure.StringToSliceHookFunc(","),
		)
	})
	if err := v.Unmarshal(&cfg, decoderConfigOption); err != nil {
		return nil, fmt.Errorf("unable to decode into struct, %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.HTTP.Addr == "" {
		errs = append(errs, errors.New("http.addr is required"))
	}
	if c.Catalog.TTL <= 0 {
		errs = append(errs, errors.New("catalog.ttl must be positive"))
	}
	if c.Catalog.PageSize < 1 {
		errs = append(errs, errors.New("catalog.page_size must be at least 1"))
	}
	if c.Sync.MaxRetries < 0 {
		errs = append(errs, errors.New("sync.max_retries must not be negative"))
	}
	if c.Sync.BaseDelay < 0 {
		errs = append(errs, errors.New("sync.base_delay must not be negative"))
	}
	if c.Cart.Delivery.Fee < 0 || c.Cart.Delivery.FreeThreshold < 0 {
		errs = append(errs, errors.New("cart.delivery amounts must not be negative"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
