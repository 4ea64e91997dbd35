// Package config loads runtime settings from the environment, an optional .env file
// and an optional config file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/railzwaylabs/salesanalytics/internal/sales/domain"
	"github.com/spf13/viper"
)

const (
	EnvPrefix = "SALES"

	// FileEnv names an optional config file (yaml, json, toml).
	FileEnv = "SALES_CONFIG_FILE"
)

type Config struct {
	AppEnv   string `mapstructure:"app_env"`
	LogLevel string `mapstructure:"log_level"`

	InputDir  string `mapstructure:"input_dir"`
	OutputDir string `mapstructure:"output_dir"`

	Pipeline PipelineConfig `mapstructure:"pipeline"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Slack    SlackConfig    `mapstructure:"slack"`
	Temporal TemporalConfig `mapstructure:"temporal"`
	HTTP     HTTPConfig     `mapstructure:"http"`
	Otel     OtelConfig     `mapstructure:"otel"`
	Watch    WatchConfig    `mapstructure:"watch"`
}

type PipelineConfig struct {
	LowStockThreshold   int64    `mapstructure:"low_stock_threshold"`
	OrderStatuses       []string `mapstructure:"order_statuses"`
	BackfillParallelism int      `mapstructure:"backfill_parallelism"`
	MaxRangeDays        int      `mapstructure:"max_range_days"`
	NodeID              int64    `mapstructure:"node_id"`
}

type DatabaseConfig struct {
	// Driver is one of postgres, mysql, sqlite, clickhouse. Empty disables the warehouse sink.
	Driver          string        `mapstructure:"driver"`
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	Tracing         bool          `mapstructure:"tracing"`
	Metrics         bool          `mapstructure:"metrics"`
}

type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	LockTTL  time.Duration `mapstructure:"lock_ttl"`
}

type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

type SlackConfig struct {
	WebhookURL string `mapstructure:"webhook_url"`
	Channel    string `mapstructure:"channel"`
}

type TemporalConfig struct {
	HostPort  string `mapstructure:"host_port"`
	Namespace string `mapstructure:"namespace"`
	TaskQueue string `mapstructure:"task_queue"`
}

type HTTPConfig struct {
	Addr string `mapstructure:"addr"`
}

type OtelConfig struct {
	Endpoint string `mapstructure:"endpoint"`
	// Protocol is grpc or http.
	Protocol    string `mapstructure:"protocol"`
	ServiceName string `mapstructure:"service_name"`
	Insecure    bool   `mapstructure:"insecure"`
}

type WatchConfig struct {
	Debounce time.Duration `mapstructure:"debounce"`
}

func (c Config) IsDevelopment() bool {
	return strings.EqualFold(c.AppEnv, "development")
}

// Statuses returns the configured closed set of order statuses.
func (c Config) Statuses() []domain.OrderStatus {
	out := make([]domain.OrderStatus, 0, len(c.Pipeline.OrderStatuses))
	for _, s := range c.Pipeline.OrderStatuses {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, domain.OrderStatus(strings.ToLower(s)))
		}
	}
	if len(out) == 0 {
		return domain.DefaultOrderStatuses()
	}
	return out
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app_env", "production")
	v.SetDefault("log_level", "info")
	v.SetDefault("input_dir", "data/raw")
	v.SetDefault("output_dir", "data")

	v.SetDefault("pipeline.low_stock_threshold", domain.DefaultLowStockThreshold)
	v.SetDefault("pipeline.order_statuses", []string{"completed", "cancelled", "returned", "pending"})
	v.SetDefault("pipeline.backfill_parallelism", 4)
	v.SetDefault("pipeline.max_range_days", 366)
	v.SetDefault("pipeline.node_id", 1)

	v.SetDefault("database.driver", "")
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 30*time.Minute)
	v.SetDefault("database.tracing", true)
	v.SetDefault("database.metrics", true)

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.lock_ttl", 15*time.Minute)

	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.topic", "sales.daily-summary")

	v.SetDefault("slack.webhook_url", "")
	v.SetDefault("slack.channel", "")

	v.SetDefault("temporal.host_port", "localhost:7233")
	v.SetDefault("temporal.namespace", "default")
	v.SetDefault("temporal.task_queue", "sales-analytics")

	v.SetDefault("http.addr", ":8080")

	v.SetDefault("otel.endpoint", "")
	v.SetDefault("otel.protocol", "grpc")
	v.SetDefault("otel.service_name", "salesanalytics")
	v.SetDefault("otel.insecure", true)

	v.SetDefault("watch.debounce", 2*time.Second)
}

// Load reads configuration. Environment variables use the SALES_ prefix with dots
// replaced by underscores, e.g. SALES_DATABASE_DSN. A .env file in the working
// directory is loaded first when present. file may be empty.
func Load(file string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", file, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.Pipeline.LowStockThreshold < 0 {
		return errors.New("pipeline.low_stock_threshold must be >= 0")
	}
	if c.Pipeline.BackfillParallelism < 1 {
		return errors.New("pipeline.backfill_parallelism must be >= 1")
	}
	if c.Pipeline.MaxRangeDays < 1 {
		return errors.New("pipeline.max_range_days must be >= 1")
	}
	switch strings.ToLower(c.Database.Driver) {
	case "", "postgres", "mysql", "sqlite", "clickhouse":
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	switch strings.ToLower(c.Otel.Protocol) {
	case "", "grpc", "http":
	default:
		return fmt.Errorf("unsupported otel protocol %q", c.Otel.Protocol)
	}
	if c.Database.Driver != "" && c.Database.DSN == "" {
		return errors.New("database.dsn is required when database.driver is set")
	}
	return nil
}

// FromEnv loads configuration using the file named by SALES_CONFIG_FILE, if any.
func FromEnv() (Config, error) {
	return Load(os.Getenv(FileEnv))
}
