package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"gopkg.in/yaml.v3"

	"BrentShift/pkg/util"
)

type Config struct {
	Environment string `yaml:"environment"`
	Server      struct {
		Port            int           `yaml:"port" default:"8080"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"15s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"30s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
	} `yaml:"server"`
	Metrics struct {
		Enabled bool   `yaml:"enabled" default:"true"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`
	Logging struct {
		Level  string `yaml:"level" default:"info"`
		Format string `yaml:"format" default:"console"`
		Output string `yaml:"output" default:"stdout"`
	} `yaml:"logging"`
	Data struct {
		PricesPath string `yaml:"prices_path"`
		PricesURL  string `yaml:"prices_url"`
		DateFormat string `yaml:"date_format" default:"02-Jan-06"`
		EventsPath string `yaml:"events_path"`
	} `yaml:"data"`
	Analysis struct {
		ChangePoints     int           `yaml:"change_points" default:"3"`
		Draws            int           `yaml:"draws" default:"2000"`
		Tune             int           `yaml:"tune" default:"1000"`
		Chains           int           `yaml:"chains" default:"4"`
		Seed             uint64        `yaml:"seed" default:"42"`
		Sampler          string        `yaml:"sampler" default:"gibbs"`
		Budget           time.Duration `yaml:"budget" default:"10m"`
		RHatThreshold    float64       `yaml:"rhat_threshold" default:"1.1"`
		EventWindowDays  int           `yaml:"event_window_days" default:"7"`
		MinSegment       int           `yaml:"min_segment" default:"5"`
		VolatilityWindow int           `yaml:"volatility_window" default:"30"`
		MuPriorSD        float64       `yaml:"mu_prior_sd" default:"0.1"`
		SigmaPriorSD     float64       `yaml:"sigma_prior_sd" default:"0.1"`
		RunOnStart       bool          `yaml:"run_on_start" default:"true"`
		Remote           struct {
			URL     string        `yaml:"url"`
			Timeout time.Duration `yaml:"timeout" default:"5m"`
		} `yaml:"remote"`
	} `yaml:"analysis"`
	Storage struct {
		Backend string `yaml:"backend" default:"file"`
		Dir     string `yaml:"dir" default:"artifacts"`
	} `yaml:"storage"`
	ClickHouse struct {
		Host             string        `yaml:"host"`
		Port             int           `yaml:"port"`
		Database         string        `yaml:"database" default:"brentshift"`
		User             string        `yaml:"user"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout      time.Duration `yaml:"read_timeout" default:"30s"`
		WriteTimeout     time.Duration `yaml:"write_timeout" default:"30s"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"60s"`
	} `yaml:"clickhouse"`
	Kafka struct {
		Enabled      bool     `yaml:"enabled"`
		Brokers      []string `yaml:"brokers"`
		Topic        string   `yaml:"topic" default:"brentshift.change_points"`
		LogTopic     string   `yaml:"log_topic"`
		RequiredAcks int      `yaml:"required_acks" default:"1"`
		Compression  string   `yaml:"compression" default:"snappy"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts" default:"3"`
			Linger       time.Duration `yaml:"linger" default:"100ms"`
			BatchBytes   int           `yaml:"batch_bytes" default:"1048576"`
			BatchSize    int           `yaml:"batch_size" default:"100"`
			WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
			ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
	} `yaml:"kafka"`
	Cache struct {
		TTL   time.Duration `yaml:"ttl" default:"60s"`
		Redis struct {
			Enabled  bool   `yaml:"enabled"`
			Addr     string `yaml:"addr"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
		} `yaml:"redis"`
	} `yaml:"cache"`
	RateLimit struct {
		RPS   float64 `yaml:"rps" default:"20"`
		Burst int     `yaml:"burst" default:"40"`
	} `yaml:"rate_limit"`
	Schedule struct {
		Cron string `yaml:"cron"`
	} `yaml:"schedule"`
	Plot struct {
		Path string `yaml:"path"`
	} `yaml:"plot"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// Fill anything the file left at zero
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply config defaults: %w", err)
	}

	// Validate required fields
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	// Override with environment variables
	if v := os.Getenv("SERVER_PORT"); v != "" {
		c.Server.Port = util.ParseIntDefault(v, c.Server.Port)
	}
	if v := os.Getenv("PRICES_PATH"); v != "" {
		c.Data.PricesPath = v
	}
	if v := os.Getenv("PRICES_URL"); v != "" {
		c.Data.PricesURL = v
	}
	if v := os.Getenv("EVENTS_PATH"); v != "" {
		c.Data.EventsPath = v
	}
	if v := os.Getenv("STORAGE_BACKEND"); v != "" {
		c.Storage.Backend = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("KAFKA_TOPIC"); v != "" {
		c.Kafka.Topic = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Cache.Redis.Addr = v
	}
	if v := os.Getenv("CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Host = v
	}

	return c, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Data.PricesPath == "" && c.Data.PricesURL == "" {
		return fmt.Errorf("data.prices_path or data.prices_url is required")
	}
	if c.Storage.Backend != "file" && c.Storage.Backend != "clickhouse" {
		return fmt.Errorf("storage.backend must be 'file' or 'clickhouse', got '%s'", c.Storage.Backend)
	}
	if c.Analysis.Sampler != "gibbs" && c.Analysis.Sampler != "remote" {
		return fmt.Errorf("analysis.sampler must be 'gibbs' or 'remote', got '%s'", c.Analysis.Sampler)
	}
	if c.Analysis.Sampler == "remote" && c.Analysis.Remote.URL == "" {
		return fmt.Errorf("analysis.remote.url is required for the remote sampler")
	}
	if c.Analysis.ChangePoints < 1 {
		return fmt.Errorf("analysis.change_points must be >= 1, got %d", c.Analysis.ChangePoints)
	}
	if c.Analysis.Chains < 1 {
		return fmt.Errorf("analysis.chains must be >= 1, got %d", c.Analysis.Chains)
	}
	if c.Analysis.EventWindowDays < 0 {
		return fmt.Errorf("analysis.event_window_days must be >= 0, got %d", c.Analysis.EventWindowDays)
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	return nil
}
