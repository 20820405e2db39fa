// Package config loads SmartRead configuration from a YAML or TOML file with
// SR_* environment-variable overrides applied on top of built-in defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server" toml:"server"`
	Corpus    CorpusConfig    `yaml:"corpus" toml:"corpus"`
	Recommend RecommendConfig `yaml:"recommend" toml:"recommend"`
	Redis     RedisConfig     `yaml:"redis" toml:"redis"`
	Kafka     KafkaConfig     `yaml:"kafka" toml:"kafka"`
	Postgres  PostgresConfig  `yaml:"postgres" toml:"postgres"`
	Translate TranslateConfig `yaml:"translate" toml:"translate"`
	Logging   LoggingConfig   `yaml:"logging" toml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics" toml:"metrics"`
}

type ServerConfig struct {
	Port            int           `yaml:"port" toml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout" toml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout" toml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout" toml:"shutdownTimeout"`
	RequestTimeout  time.Duration `yaml:"requestTimeout" toml:"requestTimeout"`
	// CORSOrigins lists browser origins allowed to call the API. Empty
	// disables CORS headers; "*" allows any origin.
	CORSOrigins []string `yaml:"corsOrigins" toml:"corsOrigins"`
	// RateLimit is the per-client request budget per minute. Zero disables
	// rate limiting.
	RateLimit int `yaml:"rateLimit" toml:"rateLimit"`
}

// CorpusConfig points at the passage directory and controls how often it is
// re-checked for changes.
type CorpusConfig struct {
	Root          string        `yaml:"root" toml:"root"`
	Workers       int           `yaml:"workers" toml:"workers"`
	CheckInterval time.Duration `yaml:"checkInterval" toml:"checkInterval"`
	Watch         bool          `yaml:"watch" toml:"watch"`
}

// RecommendConfig holds ranking limits and TF-IDF tuning.
type RecommendConfig struct {
	DefaultLimit        int     `yaml:"defaultLimit" toml:"defaultLimit"`
	MaxLimit            int     `yaml:"maxLimit" toml:"maxLimit"`
	SimilarityThreshold float64 `yaml:"similarityThreshold" toml:"similarityThreshold"`
	MaxDF               float64 `yaml:"maxDF" toml:"maxDF"`
}

type RedisConfig struct {
	Enabled  bool          `yaml:"enabled" toml:"enabled"`
	Addr     string        `yaml:"addr" toml:"addr"`
	Password string        `yaml:"password" toml:"password"`
	DB       int           `yaml:"db" toml:"db"`
	PoolSize int           `yaml:"poolSize" toml:"poolSize"`
	CacheTTL time.Duration `yaml:"cacheTTL" toml:"cacheTTL"`
}

// KafkaConfig controls the analytics event stream. With Kafka enabled the
// service aggregates from the topic, which covers every replica.
type KafkaConfig struct {
	Enabled       bool     `yaml:"enabled" toml:"enabled"`
	Brokers       []string `yaml:"brokers" toml:"brokers"`
	Topic         string   `yaml:"topic" toml:"topic"`
	ConsumerGroup string   `yaml:"consumerGroup" toml:"consumerGroup"`
	Buffer        int      `yaml:"buffer" toml:"buffer"`
}

type PostgresConfig struct {
	Enabled          bool          `yaml:"enabled" toml:"enabled"`
	Host             string        `yaml:"host" toml:"host"`
	Port             int           `yaml:"port" toml:"port"`
	Database         string        `yaml:"database" toml:"database"`
	User             string        `yaml:"user" toml:"user"`
	Password         string        `yaml:"password" toml:"password"`
	SSLMode          string        `yaml:"sslMode" toml:"sslMode"`
	MaxOpenConns     int           `yaml:"maxOpenConns" toml:"maxOpenConns"`
	MaxIdleConns     int           `yaml:"maxIdleConns" toml:"maxIdleConns"`
	ConnMaxLifetime  time.Duration `yaml:"connMaxLifetime" toml:"connMaxLifetime"`
	SnapshotInterval time.Duration `yaml:"snapshotInterval" toml:"snapshotInterval"`
}

// DSN returns a lib/pq-compatible data source name.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// TranslateConfig configures the optional LibreTranslate-compatible
// collaborator.
type TranslateConfig struct {
	Enabled   bool          `yaml:"enabled" toml:"enabled"`
	URL       string        `yaml:"url" toml:"url"`
	APIKey    string        `yaml:"apiKey" toml:"apiKey"`
	Source    string        `yaml:"source" toml:"source"`
	Target    string        `yaml:"target" toml:"target"`
	Timeout   time.Duration `yaml:"timeout" toml:"timeout"`
	CacheSize int           `yaml:"cacheSize" toml:"cacheSize"`
}

type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
}

type MetricsConfig struct {
	Enabled bool `yaml:"enabled" toml:"enabled"`
}

// Load reads the config file at path, if any, and applies environment
// overrides. Files ending in .toml are decoded as TOML; anything else as YAML.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := decode(path, data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decode(path string, data []byte, cfg *Config) error {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		_, err := toml.Decode(string(data), cfg)
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// Default returns the configuration used when no file or environment
// overrides are given. Every external collaborator is disabled.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			RequestTimeout:  20 * time.Second,
		},
		Corpus: CorpusConfig{
			Root:          "papers",
			Workers:       8,
			CheckInterval: 2 * time.Second,
			Watch:         true,
		},
		Recommend: RecommendConfig{
			DefaultLimit:        10,
			MaxLimit:            50,
			SimilarityThreshold: 0.05,
			MaxDF:               0.6,
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			PoolSize: 10,
			CacheTTL: 10 * time.Minute,
		},
		Kafka: KafkaConfig{
			Brokers:       []string{"localhost:9092"},
			Topic:         "smartread-recommendations",
			ConsumerGroup: "smartread-analytics",
			Buffer:        10000,
		},
		Postgres: PostgresConfig{
			Host:             "localhost",
			Port:             5432,
			Database:         "smartread",
			User:             "smartread",
			Password:         "localdev",
			SSLMode:          "disable",
			MaxOpenConns:     10,
			MaxIdleConns:     2,
			ConnMaxLifetime:  5 * time.Minute,
			SnapshotInterval: time.Minute,
		},
		Translate: TranslateConfig{
			URL:       "http://localhost:5000",
			Source:    "en",
			Target:    "zh",
			Timeout:   10 * time.Second,
			CacheSize: 512,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

// Validate rejects values the service cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	if c.Server.RateLimit < 0 {
		errs = append(errs, errors.New("server.rateLimit must not be negative"))
	}
	if c.Corpus.Root == "" {
		errs = append(errs, errors.New("corpus.root must be set"))
	}
	if c.Recommend.DefaultLimit <= 0 {
		errs = append(errs, errors.New("recommend.defaultLimit must be positive"))
	}
	if c.Recommend.MaxLimit < c.Recommend.DefaultLimit {
		errs = append(errs, errors.New("recommend.maxLimit must be at least recommend.defaultLimit"))
	}
	if c.Recommend.MaxDF <= 0 || c.Recommend.MaxDF > 1 {
		errs = append(errs, fmt.Errorf("recommend.maxDF %v must be in (0, 1]", c.Recommend.MaxDF))
	}
	if c.Recommend.SimilarityThreshold < 0 || c.Recommend.SimilarityThreshold >= 1 {
		errs = append(errs, fmt.Errorf("recommend.similarityThreshold %v must be in [0, 1)", c.Recommend.SimilarityThreshold))
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		errs = append(errs, errors.New("kafka.brokers must be set when kafka is enabled"))
	}
	if c.Translate.Enabled && c.Translate.URL == "" {
		errs = append(errs, errors.New("translate.url must be set when translation is enabled"))
	}
	switch c.Logging.Format {
	case "json", "text", "pretty":
	default:
		errs = append(errs, fmt.Errorf("logging.format %q must be json, text or pretty", c.Logging.Format))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// applyEnvOverrides reads SR_* environment variables and overrides the
// corresponding fields. Malformed numbers and booleans are ignored.
func applyEnvOverrides(cfg *Config) {
	setInt("SR_SERVER_PORT", &cfg.Server.Port)
	setDuration("SR_SERVER_REQUEST_TIMEOUT", &cfg.Server.RequestTimeout)
	setInt("SR_SERVER_RATE_LIMIT", &cfg.Server.RateLimit)
	if v := os.Getenv("SR_SERVER_CORS_ORIGINS"); v != "" {
		cfg.Server.CORSOrigins = strings.Split(v, ",")
	}

	setString("SR_CORPUS_ROOT", &cfg.Corpus.Root)
	setInt("SR_CORPUS_WORKERS", &cfg.Corpus.Workers)
	setDuration("SR_CORPUS_CHECK_INTERVAL", &cfg.Corpus.CheckInterval)
	setBool("SR_CORPUS_WATCH", &cfg.Corpus.Watch)

	setInt("SR_RECOMMEND_DEFAULT_LIMIT", &cfg.Recommend.DefaultLimit)
	setInt("SR_RECOMMEND_MAX_LIMIT", &cfg.Recommend.MaxLimit)
	setFloat("SR_RECOMMEND_SIMILARITY_THRESHOLD", &cfg.Recommend.SimilarityThreshold)
	setFloat("SR_RECOMMEND_MAX_DF", &cfg.Recommend.MaxDF)

	setBool("SR_REDIS_ENABLED", &cfg.Redis.Enabled)
	setString("SR_REDIS_ADDR", &cfg.Redis.Addr)
	setString("SR_REDIS_PASSWORD", &cfg.Redis.Password)
	setDuration("SR_REDIS_CACHE_TTL", &cfg.Redis.CacheTTL)

	setBool("SR_KAFKA_ENABLED", &cfg.Kafka.Enabled)
	if v := os.Getenv("SR_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	setString("SR_KAFKA_TOPIC", &cfg.Kafka.Topic)

	setBool("SR_POSTGRES_ENABLED", &cfg.Postgres.Enabled)
	setString("SR_POSTGRES_HOST", &cfg.Postgres.Host)
	setInt("SR_POSTGRES_PORT", &cfg.Postgres.Port)
	setString("SR_POSTGRES_DATABASE", &cfg.Postgres.Database)
	setString("SR_POSTGRES_USER", &cfg.Postgres.User)
	setString("SR_POSTGRES_PASSWORD", &cfg.Postgres.Password)
	setString("SR_POSTGRES_SSLMODE", &cfg.Postgres.SSLMode)

	setBool("SR_TRANSLATE_ENABLED", &cfg.Translate.Enabled)
	setString("SR_TRANSLATE_URL", &cfg.Translate.URL)
	setString("SR_TRANSLATE_API_KEY", &cfg.Translate.APIKey)
	setString("SR_TRANSLATE_TARGET", &cfg.Translate.Target)

	setString("SR_LOGGING_LEVEL", &cfg.Logging.Level)
	setString("SR_LOGGING_FORMAT", &cfg.Logging.Format)
	setBool("SR_METRICS_ENABLED", &cfg.Metrics.Enabled)
}

func setString(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(key string, dst *int) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat(key string, dst *float64) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(key string, dst *bool) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(key string, dst *time.Duration) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
