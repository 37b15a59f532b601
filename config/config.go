package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"

	"github.com/kulmaganbetov/overbot123/models"
)

const envPrefix = "ASSISTANT_"

// Load reads configuration from the given YAML file, then overlays
// environment variable overrides (ASSISTANT_SECTION__KEY). A .env file in
// the working directory is loaded into the environment first.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	k := koanf.New(".")
	cfg := DefaultConfig()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("reading config %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("accessing config %s: %w", path, err)
		}
	}

	// ASSISTANT_LLM__API_KEY -> llm.api_key
	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		key := strings.ToLower(strings.TrimPrefix(s, envPrefix))
		return strings.ReplaceAll(key, "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	if cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	return cfg, nil
}

// Save writes the configuration to the given YAML file path.
func (c *Config) Save(path string) error {
	data, err := yamlv3.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

var validSources = map[CatalogSourceType]bool{
	SourceDatabase: true,
	SourceFile:     true,
	SourceS3:       true,
}

var validDrivers = map[string]bool{
	"postgres": true,
	"sqlite":   true,
}

// Validate checks that the configuration contains valid values.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d", c.Server.Port)
	}
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("server.shutdown_timeout must be positive")
	}

	if !validDrivers[c.Database.Driver] {
		return fmt.Errorf("invalid database.driver %q: must be one of postgres, sqlite", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required")
	}

	if !validSources[c.Catalog.Source] {
		return fmt.Errorf("invalid catalog.source %q: must be one of database, file, s3", c.Catalog.Source)
	}
	switch c.Catalog.Source {
	case SourceFile:
		if c.Catalog.Path == "" {
			return fmt.Errorf("catalog.path is required for a file catalog")
		}
	case SourceS3:
		if c.Catalog.S3.Endpoint == "" || c.Catalog.S3.Bucket == "" || c.Catalog.S3.Key == "" {
			return fmt.Errorf("catalog.s3 needs endpoint, bucket and key")
		}
	}
	if c.Catalog.NotifyChannel != "" && c.Database.Driver != "postgres" {
		return fmt.Errorf("catalog.notify_channel requires the postgres driver")
	}

	if c.Assembly.SlotTimeout <= 0 {
		return fmt.Errorf("assembly.slot_timeout must be positive")
	}
	if _, err := c.Assembly.SlotLabels(); err != nil {
		return err
	}

	if c.LLM.Enabled {
		if c.LLM.APIKey == "" {
			return fmt.Errorf("llm.api_key (or OPENAI_API_KEY) is required when llm is enabled")
		}
		if c.LLM.Timeout <= 0 {
			return fmt.Errorf("llm.timeout must be positive")
		}
	}
	if c.LLM.RequestsPerMinute < 0 {
		return fmt.Errorf("llm.requests_per_minute must be non-negative")
	}

	if _, err := parseLevel(c.Log.Level); err != nil {
		return err
	}
	return nil
}

// SlotLabels converts the label overrides to slot keys.
func (a AssemblyConfig) SlotLabels() (map[models.Slot]string, error) {
	out := make(map[models.Slot]string, len(a.Labels))
	for name, label := range a.Labels {
		s, ok := models.ParseSlot(strings.ToLower(name))
		if !ok {
			return nil, fmt.Errorf("unknown slot %q in assembly.labels", name)
		}
		out[s] = label
	}
	return out, nil
}

// NewLogger builds the service logger described by the log section.
func (l LogConfig) NewLogger(w io.Writer) *slog.Logger {
	level, err := parseLevel(l.Level)
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(l.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if s == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return level, fmt.Errorf("invalid log.level %q", s)
	}
	return level, nil
}
