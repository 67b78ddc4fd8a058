// Package config loads and validates application configuration from YAML files
// with environment-variable overrides. It provides typed structs for every
// subsystem (Server, Store, Postgres, Redis, Kafka, Matching, Discovery, etc.).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Store     StoreConfig     `yaml:"store"`
	Postgres  PostgresConfig  `yaml:"postgres"`
	Redis     RedisConfig     `yaml:"redis"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Matching  MatchingConfig  `yaml:"matching"`
	Discovery DiscoveryConfig `yaml:"discovery"`
	Indexer   IndexerConfig   `yaml:"indexer"`
	RateLimit RateLimitConfig `yaml:"rateLimit"`
	Logging   LoggingConfig   `yaml:"logging"`
	Tracing   TracingConfig   `yaml:"tracing"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	RequestTimeout  time.Duration `yaml:"requestTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	AllowedOrigins  []string      `yaml:"allowedOrigins"`
	// AdminToken guards administrative routes when set.
	AdminToken      string        `yaml:"adminToken"`
}

// StoreConfig selects the relational backend holding the dictionaries.
type StoreConfig struct {
	// Driver is "sqlite" or "postgres".
	Driver   string `yaml:"driver"`
	Path     string `yaml:"path"`
	ReadOnly bool   `yaml:"readOnly"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Database        string        `yaml:"database"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"sslMode"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
}

// DSN returns a lib/pq-compatible data source name.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// RedisConfig holds Redis connection and caching parameters.
type RedisConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	PoolSize int           `yaml:"poolSize"`
	CacheTTL time.Duration `yaml:"cacheTTL"`
}

// KafkaConfig holds Kafka broker and topic settings.
type KafkaConfig struct {
	Enabled       bool        `yaml:"enabled"`
	Brokers       []string    `yaml:"brokers"`
	ConsumerGroup string      `yaml:"consumerGroup"`
	Topics        KafkaTopics `yaml:"topics"`
}

// KafkaTopics maps logical topic names to their Kafka topic strings.
type KafkaTopics struct {
	LookupEvents    string `yaml:"lookupEvents"`
	CacheInvalidate string `yaml:"cacheInvalidate"`
}

// MatchingConfig controls segment extraction and the position memo.
type MatchingConfig struct {
	SegmentThreshold  int `yaml:"segmentThreshold"`
	MaxSegments       int `yaml:"maxSegments"`
	PerWordOccurrence int `yaml:"perWordOccurrence"`
	OverlapFactor     int `yaml:"overlapFactor"`
	DefaultWindow     int `yaml:"defaultWindow"`
	PositionMemoSize  int `yaml:"positionMemoSize"`
}

// DiscoveryConfig controls store-backed lookups.
type DiscoveryConfig struct {
	// Concurrency bounds how many words a digest request discovers at once.
	Concurrency     int           `yaml:"concurrency"`
	StrategyTimeout time.Duration `yaml:"strategyTimeout"`
	MaxRetries      int           `yaml:"maxRetries"`
	BreakerFailures int           `yaml:"breakerFailures"`
	BreakerTimeout  time.Duration `yaml:"breakerTimeout"`
}

// IndexerConfig controls the position index rebuild.
type IndexerConfig struct {
	Workers   int `yaml:"workers"`
	BatchSize int `yaml:"batchSize"`
}

// RateLimitConfig controls the per-client token bucket on lookup requests.
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled"`
	Rate    float64 `yaml:"rate"`
	Burst   int     `yaml:"burst"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// TracingConfig controls span logging.
type TracingConfig struct {
	Enabled    bool    `yaml:"enabled"`
	SampleRate float64 `yaml:"sampleRate"`
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides. It returns a Config populated with sensible defaults for any
// missing values.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the services cannot run with.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case "sqlite":
		if c.Store.Path == "" {
			return fmt.Errorf("store.path is required for the sqlite driver")
		}
	case "postgres":
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}
	if c.Matching.SegmentThreshold <= 0 || c.Matching.MaxSegments <= 0 {
		return fmt.Errorf("matching thresholds must be positive")
	}
	if c.Discovery.Concurrency <= 0 {
		return fmt.Errorf("discovery.concurrency must be positive")
	}
	if c.Indexer.Workers <= 0 {
		return fmt.Errorf("indexer.workers must be positive")
	}
	return nil
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return defaultConfig()
}

// defaultConfig returns a Config with production-ready defaults for local
// development.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			RequestTimeout:  10 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			AllowedOrigins:  []string{"*"},
		},
		Store: StoreConfig{
			Driver:   "sqlite",
			Path:     "dictionary.db",
			ReadOnly: true,
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "lexicon",
			User:            "lexicon",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Redis: RedisConfig{
			Enabled:  false,
			Addr:     "localhost:6379",
			Password: "",
			DB:       0,
			PoolSize: 10,
			CacheTTL: 10 * time.Minute,
		},
		Kafka: KafkaConfig{
			Enabled:       false,
			Brokers:       []string{"localhost:9092"},
			ConsumerGroup: "lexicon-analytics",
			Topics: KafkaTopics{
				LookupEvents:    "lexicon.lookups",
				CacheInvalidate: "lexicon.cache-invalidate",
			},
		},
		Matching: MatchingConfig{
			SegmentThreshold:  1000,
			MaxSegments:       5,
			PerWordOccurrence: 3,
			OverlapFactor:     5,
			DefaultWindow:     20,
			PositionMemoSize:  1024,
		},
		Discovery: DiscoveryConfig{
			Concurrency:     4,
			StrategyTimeout: 5 * time.Second,
			MaxRetries:      2,
			BreakerFailures: 5,
			BreakerTimeout:  30 * time.Second,
		},
		Indexer: IndexerConfig{
			Workers:   8,
			BatchSize: 500,
		},
		RateLimit: RateLimitConfig{
			Enabled: true,
			Rate:    5,
			Burst:   20,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Tracing: TracingConfig{
			Enabled:    false,
			SampleRate: 0.1,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
		},
	}
}

// applyEnvOverrides reads LX_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("LX_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("LX_SERVER_ADMIN_TOKEN"); v != "" {
		cfg.Server.AdminToken = v
	}
	if v := os.Getenv("LX_STORE_DRIVER"); v != "" {
		cfg.Store.Driver = v
	}
	if v := os.Getenv("LX_STORE_PATH"); v != "" {
		cfg.Store.Path = v
	}
	if v := os.Getenv("LX_POSTGRES_HOST"); v != "" {
		cfg.Postgres.Host = v
	}
	if v := os.Getenv("LX_POSTGRES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.Port = port
		}
	}
	if v := os.Getenv("LX_POSTGRES_DATABASE"); v != "" {
		cfg.Postgres.Database = v
	}
	if v := os.Getenv("LX_POSTGRES_USER"); v != "" {
		cfg.Postgres.User = v
	}
	if v := os.Getenv("LX_POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("LX_POSTGRES_SSLMODE"); v != "" {
		cfg.Postgres.SSLMode = v
	}
	if v := os.Getenv("LX_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
		cfg.Redis.Enabled = true
	}
	if v := os.Getenv("LX_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("LX_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
		cfg.Kafka.Enabled = true
	}
	if v := os.Getenv("LX_INDEXER_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Indexer.Workers = n
		}
	}
	if v := os.Getenv("LX_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("LX_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}
