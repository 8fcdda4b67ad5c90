package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Alpaca   AlpacaConfig   `mapstructure:"alpaca"`
	Feed     FeedConfig     `mapstructure:"feed"`
	Log      LogConfig      `mapstructure:"log"`
	Archive  ArchiveConfig  `mapstructure:"archive"`
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
}

type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	StatusInterval  time.Duration `mapstructure:"status_interval"`
}

// AlpacaConfig holds credentials and endpoints for the Alpaca market data APIs.
type AlpacaConfig struct {
	APIKey           string        `mapstructure:"api_key"`
	APISecret        string        `mapstructure:"api_secret"`
	WSURL            string        `mapstructure:"ws_url"`
	DataURL          string        `mapstructure:"data_url"`
	HandshakeTimeout time.Duration `mapstructure:"handshake_timeout"`
	ReadWait         time.Duration `mapstructure:"read_wait"`
	Subscriptions    []string      `mapstructure:"subscriptions"`
}

// FeedConfig controls the premium trade feed.
type FeedConfig struct {
	Source           string        `mapstructure:"source"` // "mock" or "live"
	Capacity         int           `mapstructure:"capacity"`
	DefaultThreshold float64       `mapstructure:"default_threshold"`
	MinThreshold     float64       `mapstructure:"min_threshold"`
	Timezone         string        `mapstructure:"timezone"`
	MockMinInterval  time.Duration `mapstructure:"mock_min_interval"`
	MockMaxInterval  time.Duration `mapstructure:"mock_max_interval"`
	MockTickers      []string      `mapstructure:"mock_tickers"`
	SinkQueueSize    int           `mapstructure:"sink_queue_size"`
}

// Options defines the logger configuration options.
type LogConfig struct {
	Level       string `mapstructure:"level"`       // log level: "debug", "info", "warn", "error"
	Format      string `mapstructure:"format"`      // log format: "json" or "console"
	OutputFile  string `mapstructure:"output_file"` // file path to store logs (optional)
	Environment string `mapstructure:"environment"` // environment: "dev" or "prod"
}

// ArchiveConfig selects where admitted trades are persisted.
type ArchiveConfig struct {
	Driver     string        `mapstructure:"driver"` // "none", "memory", "postgres" or "sqlite"
	SQLitePath string        `mapstructure:"sqlite_path"`
	Retention  time.Duration `mapstructure:"retention"`
	CreateDB   bool          `mapstructure:"create_db"`
}

type RedisConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	Addr        string `mapstructure:"addr"`
	Password    string `mapstructure:"password"`
	DB          int    `mapstructure:"db"`
	Channel     string `mapstructure:"channel"`
	RecentKey   string `mapstructure:"recent_key"`
	RecentLimit int    `mapstructure:"recent_limit"`
}

type KafkaConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

const (
	SourceMock = "mock"
	SourceLive = "live"
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.shutdown_timeout", 5*time.Second)
	v.SetDefault("server.status_interval", 30*time.Second)

	v.SetDefault("alpaca.api_key", "")
	v.SetDefault("alpaca.api_secret", "")
	v.SetDefault("alpaca.ws_url", "wss://stream.data.alpaca.markets/v1beta1/options")
	v.SetDefault("alpaca.data_url", "https://data.alpaca.markets")
	v.SetDefault("alpaca.handshake_timeout", 10*time.Second)
	v.SetDefault("alpaca.read_wait", time.Second)
	v.SetDefault("alpaca.subscriptions", []string{"*"})

	v.SetDefault("feed.source", SourceMock)
	v.SetDefault("feed.capacity", 100)
	v.SetDefault("feed.default_threshold", 10000.0)
	v.SetDefault("feed.min_threshold", 1000.0)
	v.SetDefault("feed.timezone", "America/New_York")
	v.SetDefault("feed.mock_min_interval", 2*time.Second)
	v.SetDefault("feed.mock_max_interval", 5*time.Second)
	v.SetDefault("feed.mock_tickers", []string{"AAPL", "MSFT", "GOOGL", "AMZN", "META", "NVDA", "TSLA", "JPM", "V", "WMT"})
	v.SetDefault("feed.sink_queue_size", 1024)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.output_file", "")
	v.SetDefault("log.environment", "dev")

	v.SetDefault("archive.driver", "none")
	v.SetDefault("archive.sqlite_path", "data/premiumflow.db")
	v.SetDefault("archive.retention", 30*24*time.Hour)
	v.SetDefault("archive.create_db", false)

	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.user", "postgres")
	v.SetDefault("postgres.password", "")
	v.SetDefault("postgres.dbname", "premiumflow")
	v.SetDefault("postgres.sslmode", "disable")
	v.SetDefault("postgres.timezone", "UTC")
	v.SetDefault("postgres.max_open_conns", 10)
	v.SetDefault("postgres.max_idle_conns", 5)
	v.SetDefault("postgres.conn_max_lifetime", time.Hour)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.channel", "premium.trades")
	v.SetDefault("redis.recent_key", "premium:recent")
	v.SetDefault("redis.recent_limit", 1000)

	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.topic", "premium_option_trades")
}

// Load loads application configuration using Viper.
// Defaults are overridden by the config file, then by environment variables.
// An empty path searches for config.yaml next to the binary and in ./config.
func Load(path string) (*Config, error) {
	// .env is optional; values land in the process environment
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config") // config.yaml
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		if ex, err := os.Executable(); err == nil {
			v.AddConfigPath(filepath.Join(filepath.Dir(ex), "../config"))
		}
	}

	// Support environment variables with dot notation (e.g., ALPACA_WS_URL)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field constraints that defaults cannot guarantee.
func (c *Config) Validate() error {
	switch c.Feed.Source {
	case SourceMock, SourceLive:
	default:
		return fmt.Errorf("feed.source must be %q or %q, got %q", SourceMock, SourceLive, c.Feed.Source)
	}
	if c.Feed.Capacity < 1 {
		return fmt.Errorf("feed.capacity must be positive, got %d", c.Feed.Capacity)
	}
	if c.Feed.MinThreshold <= 0 {
		return fmt.Errorf("feed.min_threshold must be positive")
	}
	if c.Feed.DefaultThreshold < c.Feed.MinThreshold {
		return fmt.Errorf("feed.default_threshold %.2f is below feed.min_threshold %.2f",
			c.Feed.DefaultThreshold, c.Feed.MinThreshold)
	}
	if c.Feed.MockMinInterval <= 0 || c.Feed.MockMaxInterval < c.Feed.MockMinInterval {
		return fmt.Errorf("feed mock interval range is invalid: [%s, %s]",
			c.Feed.MockMinInterval, c.Feed.MockMaxInterval)
	}
	if c.Feed.Source == SourceMock && len(c.Feed.MockTickers) == 0 {
		return fmt.Errorf("feed.mock_tickers cannot be empty")
	}
	switch c.Archive.Driver {
	case "none", "memory", "postgres", "sqlite":
	default:
		return fmt.Errorf("archive.driver must be none, memory, postgres or sqlite, got %q", c.Archive.Driver)
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka brokers cannot be empty")
	}
	return nil
}
