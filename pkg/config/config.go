package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"ImpVol/internal/domain/models"
	"ImpVol/pkg/logger"
)

const envPrefix = "IMPVOL_"

type Config struct {
	Environment string              `yaml:"environment" default:"development"`
	Logger      logger.Config       `yaml:"logger"`
	Solver      models.SolverConfig `yaml:"solver"`
	Server      struct {
		Port            int           `yaml:"port" default:"8080"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"30s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"15s"`
		CORSOrigins     []string      `yaml:"cors_origins"`
	} `yaml:"server"`
	Metrics struct {
		Path string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`
	Backend struct {
		Type         string        `yaml:"type" default:"none"` // none, kafka or clickhouse
		BatchSize    int           `yaml:"batch_size" default:"500"`
		BatchTimeout time.Duration `yaml:"batch_timeout" default:"1s"`
	} `yaml:"backend"`
	Pipeline struct {
		Workers     int           `yaml:"workers" default:"8"`
		BufferSize  int           `yaml:"buffer_size" default:"1024"`
		MinInterval time.Duration `yaml:"min_interval" default:"250ms"` // per-symbol throttle
	} `yaml:"pipeline"`
	Kafka struct {
		Brokers      []string `yaml:"brokers"`
		QuotesTopic  string   `yaml:"quotes_topic" default:"option-quotes"`
		ResultsTopic string   `yaml:"results_topic" default:"implied-vols"`
		RequiredAcks int      `yaml:"required_acks" default:"-1"`
		Compression  string   `yaml:"compression" default:"snappy"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts" default:"5"`
			Linger       time.Duration `yaml:"linger" default:"50ms"`
			BatchBytes   int           `yaml:"batch_bytes" default:"1048576"`
			BatchSize    int           `yaml:"batch_size" default:"500"`
			WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
		Consumer struct {
			Enabled    bool          `yaml:"enabled"`
			GroupID    string        `yaml:"group_id" default:"impvol-solver"`
			Workers    int           `yaml:"workers" default:"4"`
			BufferSize int           `yaml:"buffer_size" default:"256"`
			RetryMax   int           `yaml:"retry_max" default:"3"`
			BackoffMin time.Duration `yaml:"backoff_min" default:"100ms"`
			BackoffMax time.Duration `yaml:"backoff_max" default:"5s"`
			DLQTopic   string        `yaml:"dlq_topic"`
			MinBytes   int           `yaml:"min_bytes" default:"1"`
			MaxBytes   int           `yaml:"max_bytes" default:"10485760"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Host             string        `yaml:"host"`
		Port             int           `yaml:"port" default:"9000"`
		Database         string        `yaml:"database" default:"impvol"`
		Table            string        `yaml:"table" default:"implied_vols"`
		User             string        `yaml:"user" default:"default"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout      time.Duration `yaml:"read_timeout" default:"30s"`
		WriteTimeout     time.Duration `yaml:"write_timeout" default:"30s"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"60s"`
	} `yaml:"clickhouse"`
	Feed struct {
		Enabled        bool          `yaml:"enabled"`
		URL            string        `yaml:"url"`
		APIKey         string        `yaml:"api_key"`
		Symbols        []string      `yaml:"symbols"`
		ReconnectDelay time.Duration `yaml:"reconnect_delay" default:"2s"`
		PingInterval   time.Duration `yaml:"ping_interval" default:"30s"`
	} `yaml:"feed"`
	Cache struct {
		TTL   time.Duration `yaml:"ttl" default:"1m"`
		Redis struct {
			Enabled  bool   `yaml:"enabled"`
			Addr     string `yaml:"addr" default:"localhost:6379"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
			Prefix   string `yaml:"prefix" default:"impvol:"`
		} `yaml:"redis"`
	} `yaml:"cache"`
	RateLimit struct {
		RPS   float64       `yaml:"rps" default:"50"`
		Burst int           `yaml:"burst" default:"100"`
		Sweep time.Duration `yaml:"sweep" default:"1m"` // how often idle clients are dropped
		Idle  time.Duration `yaml:"idle" default:"10m"`
	} `yaml:"ratelimit"`
	Digest struct {
		Enabled   bool          `yaml:"enabled"`
		Topic     string        `yaml:"topic" default:"impvol-log-digest"`
		Interval  time.Duration `yaml:"interval" default:"30s"`
		Threshold int           `yaml:"threshold" default:"100"`
	} `yaml:"digest"`
}

// Load reads the YAML file at path, fills defaults, applies IMPVOL_* environment
// overrides and validates the result. A .env file next to the config is loaded
// first when present; variables already set in the environment win.
func Load(path string) (*Config, error) {
	envFile := filepath.Join(filepath.Dir(path), ".env")
	if _, err := os.Stat(envFile); err == nil {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}
	if err := c.applyEnv(); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &c, nil
}

// Default returns a configuration with only defaults applied.
func Default() *Config {
	var c Config
	if err := defaults.Set(&c); err != nil {
		panic(fmt.Sprintf("config defaults: %v", err))
	}
	return &c
}

func (c *Config) applyEnv() error {
	if v := env("ENV"); v != "" {
		c.Environment = v
	}
	if v := env("LOG_LEVEL"); v != "" {
		c.Logger.Level = v
	}
	if v := env("HTTP_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%sHTTP_PORT: %w", envPrefix, err)
		}
		c.Server.Port = port
	}
	if v := env("BACKEND"); v != "" {
		c.Backend.Type = v
	}
	if v := env("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = splitList(v)
	}
	if v := env("CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Host = v
	}
	if v := env("CLICKHOUSE_PASSWORD"); v != "" {
		c.ClickHouse.Password = v
	}
	if v := env("FEED_API_KEY"); v != "" {
		c.Feed.APIKey = v
	}
	if v := env("FEED_SYMBOLS"); v != "" {
		c.Feed.Symbols = splitList(v)
	}
	if v := env("REDIS_ADDR"); v != "" {
		c.Cache.Redis.Addr = v
		c.Cache.Redis.Enabled = true
	}
	if v := env("REDIS_PASSWORD"); v != "" {
		c.Cache.Redis.Password = v
	}
	return nil
}

func env(key string) string { return strings.TrimSpace(os.Getenv(envPrefix + key)) }

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

var validate = validator.New()

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return errors.New("environment is required")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in 1..65535, got %d", c.Server.Port)
	}
	if err := validate.Struct(c.Solver); err != nil {
		return fmt.Errorf("solver: %w", err)
	}
	switch c.Backend.Type {
	case "none":
	case "kafka":
		if len(c.Kafka.Brokers) == 0 {
			return errors.New("kafka.brokers cannot be empty when backend.type is 'kafka'")
		}
		if c.Kafka.ResultsTopic == "" {
			return errors.New("kafka.results_topic is required")
		}
	case "clickhouse":
		if c.ClickHouse.Host == "" {
			return errors.New("clickhouse.host is required when backend.type is 'clickhouse'")
		}
	default:
		return fmt.Errorf("backend.type must be 'none', 'kafka' or 'clickhouse', got '%s'", c.Backend.Type)
	}
	if c.Kafka.Consumer.Enabled && len(c.Kafka.Brokers) == 0 {
		return errors.New("kafka.brokers cannot be empty when the consumer is enabled")
	}
	if c.Digest.Enabled && len(c.Kafka.Brokers) == 0 {
		return errors.New("kafka.brokers cannot be empty when digest is enabled")
	}
	if c.Feed.Enabled {
		if c.Feed.URL == "" {
			return errors.New("feed.url is required when feed is enabled")
		}
		if len(c.Feed.Symbols) == 0 {
			return errors.New("feed.symbols cannot be empty")
		}
	}
	if c.Pipeline.Workers <= 0 {
		return fmt.Errorf("pipeline.workers must be positive, got %d", c.Pipeline.Workers)
	}
	if c.RateLimit.RPS <= 0 || c.RateLimit.Burst <= 0 {
		return errors.New("ratelimit.rps and ratelimit.burst must be positive")
	}
	return nil
}
