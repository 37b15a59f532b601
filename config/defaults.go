package config

import "time"

// DefaultConfig returns a Config with sensible defaults for local runs.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			AllowedOrigins:  []string{"http://localhost:*", "http://127.0.0.1:*"},
			RequestTimeout:  60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
			DSN:    "overbot.db",
		},
		Catalog: CatalogConfig{
			Source:          SourceDatabase,
			RefreshInterval: 15 * time.Minute,
		},
		Assembly: AssemblyConfig{
			SlotTimeout:  2 * time.Second,
			UpgradeQuery: "видеокарта",
		},
		LLM: LLMConfig{
			Enabled:           true,
			Model:             "gpt-4o-mini",
			MaxTokens:         400,
			Timeout:           30 * time.Second,
			RequestsPerMinute: 60,
			Burst:             5,
		},
	}
}
