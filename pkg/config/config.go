// Package config loads and validates toolkit configuration from YAML files
// with environment-variable overrides. It provides typed structs for every
// subsystem (Pipeline, Kafka, Redis, Postgres, Server, Logging, Metrics).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	pkgerrors "github.com/cjdd3b/car-datascience-toolkit/pkg/errors"
)

// Config is the top-level toolkit configuration.
type Config struct {
	Pipeline PipelineConfig `yaml:"pipeline"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Redis    RedisConfig    `yaml:"redis"`
	Postgres PostgresConfig `yaml:"postgres"`
	Server   ServerConfig   `yaml:"server"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// PipelineConfig holds the tunables shared by the four similarity stages.
type PipelineConfig struct {
	// CorpusSize is the total number of documents in the corpus. The
	// inverted-index reducer cannot compute IDF without it. Zero means
	// "resolve from the Redis corpus counter at startup".
	CorpusSize int `yaml:"corpusSize"`
	// SimilarityThreshold is the minimum aggregate score a document pair
	// must strictly exceed to be emitted by the similarity reducer.
	SimilarityThreshold float64 `yaml:"similarityThreshold"`
	// IDPrefixLength is the number of leading characters of a document
	// identifier that form its canonical ID when normalizing pair keys.
	IDPrefixLength int `yaml:"idPrefixLength"`
	// Strict aborts a stage on the first malformed record instead of
	// skipping it with a logged diagnostic.
	Strict bool `yaml:"strict"`
}

// KafkaConfig holds Kafka broker and topic settings.
type KafkaConfig struct {
	Brokers       []string    `yaml:"brokers"`
	ConsumerGroup string      `yaml:"consumerGroup"`
	Topics        KafkaTopics `yaml:"topics"`
}

// KafkaTopics maps logical topic names to their Kafka topic strings.
type KafkaTopics struct {
	DocumentIngest    string `yaml:"documentIngest"`
	SimilarityUpdated string `yaml:"similarityUpdated"`
}

// RedisConfig holds Redis connection and caching parameters.
type RedisConfig struct {
	Addr           string        `yaml:"addr"`
	Password       string        `yaml:"password"`
	DB             int           `yaml:"db"`
	PoolSize       int           `yaml:"poolSize"`
	CacheTTL       time.Duration `yaml:"cacheTTL"`
	CorpusCountKey string        `yaml:"corpusCountKey"`
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

// ServerConfig holds the similarity API server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	RequestTimeout  time.Duration `yaml:"requestTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	RateLimit       int           `yaml:"rateLimit"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
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
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	return cfg, nil
}

// ValidatePipeline checks the stage tunables that must hold for any stage.
// CorpusSize is validated separately because only the inverted-index reducer
// requires it.
func (c *Config) ValidatePipeline() error {
	if c.Pipeline.IDPrefixLength < 1 {
		return pkgerrors.Newf(pkgerrors.ErrConfiguration,
			"idPrefixLength must be positive, got %d", c.Pipeline.IDPrefixLength)
	}
	return nil
}

// ValidateCorpusSize fails when the configured corpus size cannot drive an
// IDF computation.
func (c *Config) ValidateCorpusSize() error {
	if c.Pipeline.CorpusSize <= 0 {
		return pkgerrors.Newf(pkgerrors.ErrConfiguration,
			"corpusSize must be a positive integer, got %d", c.Pipeline.CorpusSize)
	}
	return nil
}

// defaultConfig returns a Config with defaults matching the historical
// Hadoop-streaming deployment of this pipeline.
func defaultConfig() *Config {
	return &Config{
		Pipeline: PipelineConfig{
			CorpusSize:          0,
			SimilarityThreshold: 1.0,
			IDPrefixLength:      8,
			Strict:              false,
		},
		Kafka: KafkaConfig{
			Brokers:       []string{"localhost:9092"},
			ConsumerGroup: "car-toolkit-group",
			Topics: KafkaTopics{
				DocumentIngest:    "document-ingest",
				SimilarityUpdated: "similarity.updated",
			},
		},
		Redis: RedisConfig{
			Addr:           "localhost:6379",
			Password:       "",
			DB:             0,
			PoolSize:       10,
			CacheTTL:       60 * time.Second,
			CorpusCountKey: "car:corpus_size",
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "cartoolkit",
			User:            "cartoolkit",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			RequestTimeout:  10 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			RateLimit:       100,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Port:    9090,
		},
	}
}

// applyEnvOverrides reads CAR_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("CAR_CORPUS_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Pipeline.CorpusSize = n
		}
	}
	if v := os.Getenv("CAR_SIMILARITY_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Pipeline.SimilarityThreshold = f
		}
	}
	if v := os.Getenv("CAR_ID_PREFIX_LENGTH"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Pipeline.IDPrefixLength = n
		}
	}
	if v := os.Getenv("CAR_STRICT"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Pipeline.Strict = b
		}
	}
	if v := os.Getenv("CAR_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("CAR_KAFKA_CONSUMER_GROUP"); v != "" {
		cfg.Kafka.ConsumerGroup = v
	}
	if v := os.Getenv("CAR_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("CAR_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("CAR_POSTGRES_HOST"); v != "" {
		cfg.Postgres.Host = v
	}
	if v := os.Getenv("CAR_POSTGRES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.Port = port
		}
	}
	if v := os.Getenv("CAR_POSTGRES_DATABASE"); v != "" {
		cfg.Postgres.Database = v
	}
	if v := os.Getenv("CAR_POSTGRES_USER"); v != "" {
		cfg.Postgres.User = v
	}
	if v := os.Getenv("CAR_POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("CAR_POSTGRES_SSLMODE"); v != "" {
		cfg.Postgres.SSLMode = v
	}
	if v := os.Getenv("CAR_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("CAR_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("CAR_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("CAR_METRICS_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Metrics.Enabled = b
		}
	}
	if v := os.Getenv("CAR_METRICS_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Metrics.Port = port
		}
	}
}
