package config

import "time"

// CatalogSourceType selects where catalog snapshots are read from.
type CatalogSourceType string

const (
	SourceDatabase CatalogSourceType = "database"
	SourceFile     CatalogSourceType = "file"
	SourceS3       CatalogSourceType = "s3"
)

// Config is the top-level service configuration, corresponding to config.yml.
type Config struct {
	Server   ServerConfig   `yaml:"server" koanf:"server"`
	Log      LogConfig      `yaml:"log" koanf:"log"`
	Database DatabaseConfig `yaml:"database" koanf:"database"`
	Catalog  CatalogConfig  `yaml:"catalog" koanf:"catalog"`
	Assembly AssemblyConfig `yaml:"assembly" koanf:"assembly"`
	LLM      LLMConfig      `yaml:"llm" koanf:"llm"`
}

type ServerConfig struct {
	Port            int           `yaml:"port" koanf:"port"`
	AllowedOrigins  []string      `yaml:"allowed_origins" koanf:"allowed_origins"`
	RequestTimeout  time.Duration `yaml:"request_timeout" koanf:"request_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" koanf:"shutdown_timeout"`
}

type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level" koanf:"level"`
	// Format is text or json.
	Format string `yaml:"format" koanf:"format"`
}

type DatabaseConfig struct {
	Driver string `yaml:"driver" koanf:"driver"`
	DSN    string `yaml:"dsn" koanf:"dsn"`
}

type CatalogConfig struct {
	Source CatalogSourceType `yaml:"source" koanf:"source"`
	// Path of the dealer export when Source is file.
	Path            string        `yaml:"path" koanf:"path"`
	RefreshInterval time.Duration `yaml:"refresh_interval" koanf:"refresh_interval"`
	// Watch reloads a file catalog as soon as the file changes.
	Watch bool `yaml:"watch" koanf:"watch"`
	// NotifyChannel, when set, is a Postgres channel whose notifications
	// trigger a reload.
	NotifyChannel string   `yaml:"notify_channel" koanf:"notify_channel"`
	S3            S3Config `yaml:"s3" koanf:"s3"`
}

type S3Config struct {
	Endpoint  string `yaml:"endpoint" koanf:"endpoint"`
	Region    string `yaml:"region" koanf:"region"`
	Bucket    string `yaml:"bucket" koanf:"bucket"`
	Key       string `yaml:"key" koanf:"key"`
	AccessKey string `yaml:"access_key" koanf:"access_key"`
	SecretKey string `yaml:"secret_key" koanf:"secret_key"`
	UseSSL    bool   `yaml:"use_ssl" koanf:"use_ssl"`
}

type AssemblyConfig struct {
	SlotTimeout  time.Duration `yaml:"slot_timeout" koanf:"slot_timeout"`
	UpgradeQuery string        `yaml:"upgrade_query" koanf:"upgrade_query"`
	// Labels overrides the catalog category of a slot, keyed by slot name.
	Labels map[string]string `yaml:"labels" koanf:"labels"`
}

type LLMConfig struct {
	Enabled           bool          `yaml:"enabled" koanf:"enabled"`
	APIKey            string        `yaml:"api_key" koanf:"api_key"`
	BaseURL           string        `yaml:"base_url" koanf:"base_url"`
	Model             string        `yaml:"model" koanf:"model"`
	MaxTokens         int           `yaml:"max_tokens" koanf:"max_tokens"`
	Timeout           time.Duration `yaml:"timeout" koanf:"timeout"`
	RequestsPerMinute int           `yaml:"requests_per_minute" koanf:"requests_per_minute"`
	Burst             int           `yaml:"burst" koanf:"burst"`
}
