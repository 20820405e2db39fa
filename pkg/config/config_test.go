package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "papers", cfg.Corpus.Root)
	assert.Equal(t, 10, cfg.Recommend.DefaultLimit)
	assert.Equal(t, 0.05, cfg.Recommend.SimilarityThreshold)
	assert.Equal(t, 0.6, cfg.Recommend.MaxDF)
	assert.False(t, cfg.Redis.Enabled)
	assert.False(t, cfg.Kafka.Enabled)
	assert.False(t, cfg.Translate.Enabled)
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "smartread.yaml", `
server:
  port: 9000
corpus:
  root: /srv/papers
  checkInterval: 5s
recommend:
  defaultLimit: 5
  maxLimit: 20
redis:
  enabled: true
  cacheTTL: 1m
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "/srv/papers", cfg.Corpus.Root)
	assert.Equal(t, 5*time.Second, cfg.Corpus.CheckInterval)
	assert.Equal(t, 5, cfg.Recommend.DefaultLimit)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, time.Minute, cfg.Redis.CacheTTL)
	// untouched sections keep defaults
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoadTOML(t *testing.T) {
	path := writeFile(t, "smartread.toml", `
[corpus]
root = "exams"
workers = 2

[logging]
level = "debug"
format = "pretty"

[translate]
enabled = true
target = "ja"
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "exams", cfg.Corpus.Root)
	assert.Equal(t, 2, cfg.Corpus.Workers)
	assert.Equal(t, "pretty", cfg.Logging.Format)
	assert.True(t, cfg.Translate.Enabled)
	assert.Equal(t, "ja", cfg.Translate.Target)
	assert.Equal(t, "en", cfg.Translate.Source)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("SR_SERVER_PORT", "7070")
	t.Setenv("SR_CORPUS_ROOT", "/data")
	t.Setenv("SR_CORPUS_WATCH", "false")
	t.Setenv("SR_RECOMMEND_MAX_DF", "0.8")
	t.Setenv("SR_KAFKA_BROKERS", "a:9092,b:9092")
	t.Setenv("SR_REDIS_CACHE_TTL", "30s")
	t.Setenv("SR_RECOMMEND_DEFAULT_LIMIT", "not-a-number")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "/data", cfg.Corpus.Root)
	assert.False(t, cfg.Corpus.Watch)
	assert.Equal(t, 0.8, cfg.Recommend.MaxDF)
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 30*time.Second, cfg.Redis.CacheTTL)
	assert.Equal(t, 10, cfg.Recommend.DefaultLimit)
}

func TestValidate(t *testing.T) {
	cases := map[string]func(*Config){
		"port":      func(c *Config) { c.Server.Port = 0 },
		"root":      func(c *Config) { c.Corpus.Root = "" },
		"limits":    func(c *Config) { c.Recommend.MaxLimit = 1 },
		"maxdf":     func(c *Config) { c.Recommend.MaxDF = 1.5 },
		"threshold": func(c *Config) { c.Recommend.SimilarityThreshold = 1 },
		"kafka":     func(c *Config) { c.Kafka = KafkaConfig{Enabled: true} },
		"format":    func(c *Config) { c.Logging.Format = "xml" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
	assert.NoError(t, Default().Validate())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestPostgresDSN(t *testing.T) {
	dsn := Default().Postgres.DSN()
	assert.Contains(t, dsn, "dbname=smartread")
	assert.Contains(t, dsn, "sslmode=disable")
}

func TestLoadSampleConfig(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "configs", "smartread.yaml"))
	require.NoError(t, err)

	assert.Equal(t, []string{"http://localhost:3000"}, cfg.Server.CORSOrigins)
	assert.Equal(t, 120, cfg.Server.RateLimit)
	assert.Equal(t, 20*time.Second, cfg.Server.RequestTimeout)
	assert.Equal(t, time.Minute, cfg.Postgres.SnapshotInterval)
	assert.False(t, cfg.Redis.Enabled)
}

func TestServerEnvOverrides(t *testing.T) {
	t.Setenv("SR_SERVER_RATE_LIMIT", "30")
	t.Setenv("SR_SERVER_CORS_ORIGINS", "https://a.example,https://b.example")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 30, cfg.Server.RateLimit)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.CORSOrigins)
}
