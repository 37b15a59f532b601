package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kulmaganbetov/overbot123/models"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, SourceDatabase, cfg.Catalog.Source)
	assert.Equal(t, 2*time.Second, cfg.Assembly.SlotTimeout)
	assert.Equal(t, "gpt-4o-mini", cfg.LLM.Model)
}

func TestLoadMissingFile(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")

	cfg, err := Load(filepath.Join(t.TempDir(), "nonexistent.yml"))

	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Server, cfg.Server)
	assert.Equal(t, DefaultConfig().Catalog, cfg.Catalog)
}

func TestLoadYAML(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9000
database:
  driver: postgres
  dsn: postgres://shop@localhost/shop
catalog:
  source: file
  path: /srv/catalog.json
  watch: true
  refresh_interval: 5m
assembly:
  slot_timeout: 3s
  labels:
    storage: SSD
llm:
  enabled: false
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, SourceFile, cfg.Catalog.Source)
	assert.Equal(t, "/srv/catalog.json", cfg.Catalog.Path)
	assert.True(t, cfg.Catalog.Watch)
	assert.Equal(t, 5*time.Minute, cfg.Catalog.RefreshInterval)
	assert.Equal(t, 3*time.Second, cfg.Assembly.SlotTimeout)
	assert.False(t, cfg.LLM.Enabled)
	// untouched keys keep their defaults
	assert.Equal(t, "видеокарта", cfg.Assembly.UpgradeQuery)
	assert.Equal(t, 400, cfg.LLM.MaxTokens)

	labels, err := cfg.Assembly.SlotLabels()
	require.NoError(t, err)
	assert.Equal(t, map[models.Slot]string{models.SlotStorage: "SSD"}, labels)
}

func TestLoadEnvOverrides(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 9000\n")
	t.Setenv("ASSISTANT_SERVER__PORT", "9191")
	t.Setenv("ASSISTANT_LLM__MODEL", "gpt-4o")
	t.Setenv("ASSISTANT_LLM__API_KEY", "sk-from-prefix")
	t.Setenv("OPENAI_API_KEY", "sk-plain")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9191, cfg.Server.Port)
	assert.Equal(t, "gpt-4o", cfg.LLM.Model)
	assert.Equal(t, "sk-from-prefix", cfg.LLM.APIKey)
}

func TestLoadOpenAIKeyFallback(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-plain")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "sk-plain", cfg.LLM.APIKey)
}

func TestLoadInvalidYAML(t *testing.T) {
	path := writeConfig(t, "server: [unterminated")

	_, err := Load(path)

	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := DefaultConfig()
		cfg.LLM.APIKey = "sk-test"
		return cfg
	}

	testCases := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "Defaults with a key", mutate: func(c *Config) {}},
		{name: "LLM disabled needs no key", mutate: func(c *Config) { c.LLM.Enabled = false; c.LLM.APIKey = "" }},
		{name: "Missing API key", mutate: func(c *Config) { c.LLM.APIKey = "" }, wantErr: "llm.api_key"},
		{name: "Bad port", mutate: func(c *Config) { c.Server.Port = 0 }, wantErr: "server.port"},
		{name: "Unknown driver", mutate: func(c *Config) { c.Database.Driver = "mysql" }, wantErr: "database.driver"},
		{name: "Unknown source", mutate: func(c *Config) { c.Catalog.Source = "ftp" }, wantErr: "catalog.source"},
		{name: "File source without path", mutate: func(c *Config) { c.Catalog.Source = SourceFile }, wantErr: "catalog.path"},
		{name: "S3 source without bucket", mutate: func(c *Config) {
			c.Catalog.Source = SourceS3
			c.Catalog.S3 = S3Config{Endpoint: "s3.local", Key: "catalog.json"}
		}, wantErr: "catalog.s3"},
		{name: "Notify channel on sqlite", mutate: func(c *Config) { c.Catalog.NotifyChannel = "catalog" }, wantErr: "notify_channel"},
		{name: "Zero slot timeout", mutate: func(c *Config) { c.Assembly.SlotTimeout = 0 }, wantErr: "slot_timeout"},
		{name: "Unknown slot label", mutate: func(c *Config) { c.Assembly.Labels = map[string]string{"cooler": "Кулеры"} }, wantErr: "cooler"},
		{name: "Bad log level", mutate: func(c *Config) { c.Log.Level = "loud" }, wantErr: "log.level"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// Arrange
			cfg := valid()
			tc.mutate(cfg)

			// Act
			err := cfg.Validate()

			// Assert
			if tc.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := LogConfig{Level: "warn", Format: "json"}.NewLogger(&buf)

	logger.Info("hidden")
	logger.Warn("shown", "slot", "gpu")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)
	assert.Contains(t, buf.String(), `"slot":"gpu"`)
}

func TestSaveAndLoad(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	path := filepath.Join(t.TempDir(), "config.yml")

	original := DefaultConfig()
	original.Catalog.Source = SourceS3
	original.Catalog.S3 = S3Config{Endpoint: "minio:9000", Bucket: "exports", Key: "catalog.json"}
	original.Assembly.SlotTimeout = 1500 * time.Millisecond
	original.Assembly.Labels = map[string]string{"gpu": "Видеокарты"}

	require.NoError(t, original.Save(path))
	loaded, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, original, loaded)
}
