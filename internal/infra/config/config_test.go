package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDefaultsAreValid(t *testing.T) {
	cfg := defaultConfig()
	require.NoError(t, cfg.Validate())
	require.Equal(t, DriverMemory, cfg.AuditDriver())
	require.Equal(t, 5, cfg.Search.TopK)
	require.InDelta(t, 0.70, cfg.Search.SimilarityThreshold, 1e-9)
}

func TestLoadAppliesFileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
http:
  address: ":9000"
storage:
  driver: sqlite
  sqlite:
    path: /tmp/kb.db
search:
  topK: 8
audit:
  writeTimeout: 3s
`), 0o600))
	t.Setenv("CONFIG_PATH", path)
	t.Setenv("SEARCH_SIMILARITY_THRESHOLD", "0.8")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("AUDIT_DRIVER", "Memory")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, ":9000", cfg.HTTP.Address)
	require.Equal(t, DriverSQLite, cfg.Storage.Driver)
	require.Equal(t, "/tmp/kb.db", cfg.Storage.SQLite.Path)
	require.Equal(t, 8, cfg.Search.TopK)
	require.InDelta(t, 0.8, cfg.Search.SimilarityThreshold, 1e-9)
	require.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.HTTP.CORS.AllowedOrigins)
	require.Equal(t, 3*time.Second, cfg.Audit.WriteTimeout)
	require.Equal(t, DriverMemory, cfg.AuditDriver())
}

func TestLoadReadsEnvFile(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(envPath, []byte("SEARCH_TOP_K=3\nEMBEDDING_MODEL=from-dotenv\n"), 0o600))
	t.Setenv("CONFIG_PATH", "")
	t.Setenv("ENV_FILE", envPath)
	t.Setenv("EMBEDDING_MODEL", "from-environment")
	// registered first so the value is removed again after the test
	t.Setenv("SEARCH_TOP_K", "")
	require.NoError(t, os.Unsetenv("SEARCH_TOP_K"))

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, 3, cfg.Search.TopK)
	require.Equal(t, "from-environment", cfg.Embedding.Model)
}

func TestLoadFailsOnMissingEnvFile(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
	_, err := Load()
	require.Error(t, err)
}

func TestValidateRejects(t *testing.T) {
	cases := map[string]func(c *Config){
		"unknown storage":     func(c *Config) { c.Storage.Driver = "mongo" },
		"openai without key":  func(c *Config) { c.Embedding.Provider = ProviderOpenAI },
		"zero topK":           func(c *Config) { c.Search.TopK = 0 },
		"threshold above one": func(c *Config) { c.Search.SimilarityThreshold = 1.5 },
		"zero threshold":      func(c *Config) { c.Search.SimilarityThreshold = 0 },
		"valkey without addr": func(c *Config) { c.Audit.Driver = DriverValkey },
		"unknown audit":       func(c *Config) { c.Audit.Driver = "kafka" },
		"no audit timeout":    func(c *Config) { c.Audit.WriteTimeout = 0 },
		"rate limit burst":    func(c *Config) { c.HTTP.RateLimit = RateLimitConfig{Enabled: true, RequestsPerMinute: 1} },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := defaultConfig()
			mutate(cfg)
			require.Error(t, cfg.Validate())
		})
	}
}
