package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Canvas   CanvasConfig   `mapstructure:"canvas"`
	Sync     SyncConfig     `mapstructure:"sync"`
	Database DatabaseConfig `mapstructure:"database"`
	Server   ServerConfig   `mapstructure:"server"`
	Google   GoogleConfig   `mapstructure:"google"`
}

type CanvasConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	APIToken       string        `mapstructure:"api_token"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	MaxPages       int           `mapstructure:"max_pages"`
}

type SyncConfig struct {
	Timeout           time.Duration `mapstructure:"timeout"`
	Concurrency       int           `mapstructure:"concurrency"`
	GraceDays         int           `mapstructure:"grace_days"`
	RecencyDays       int           `mapstructure:"recency_days"`
	DiscoveryAttempts int           `mapstructure:"discovery_attempts"`
	RetryDelay        time.Duration `mapstructure:"retry_delay"`
	Denylist          []DenyRule    `mapstructure:"denylist"`
}

// DenyRule excludes assignments whose subject and title both match.
// Both fields are regular expressions; an empty field matches anything.
type DenyRule struct {
	Subject string `mapstructure:"subject"`
	Title   string `mapstructure:"title"`
}

type DatabaseConfig struct {
	Path       string `mapstructure:"path"`
	StorageKey string `mapstructure:"storage_key"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
}

type GoogleConfig struct {
	Enabled        bool           `mapstructure:"enabled"`
	CalendarID     string         `mapstructure:"calendar_id"`
	ServiceAccount map[string]any `mapstructure:"service_account"`
}

// ConfigurationError reports a required setting that is missing or invalid.
type ConfigurationError struct {
	Key string
	Msg string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s %s", e.Key, e.Msg)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("canvas.base_url", "")
	v.SetDefault("canvas.api_token", "")
	v.SetDefault("canvas.request_timeout", 15*time.Second)
	v.SetDefault("canvas.max_pages", 10)
	v.SetDefault("sync.timeout", 60*time.Second)
	v.SetDefault("sync.concurrency", 8)
	v.SetDefault("sync.grace_days", 10)
	v.SetDefault("sync.recency_days", 90)
	v.SetDefault("sync.discovery_attempts", 3)
	v.SetDefault("sync.retry_delay", 250*time.Millisecond)
	v.SetDefault("database.path", "assignments.db")
	v.SetDefault("database.storage_key", "homework-kanban-assignments")
	v.SetDefault("server.port", "8080")
	v.SetDefault("google.enabled", false)
	v.SetDefault("google.calendar_id", "")
}

// Load reads the TOML file at path, layering environment overrides on top.
// A missing file is not an error; the defaults and environment still apply.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	v.SetConfigType("toml")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("unable to read config file %s: %w", path, err)
		}
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("canvas.api_token", "CANVAS_API_TOKEN")
	_ = v.BindEnv("canvas.base_url", "CANVAS_BASE_URL")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	cfg.Canvas.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.Canvas.BaseURL), "/")
	return &cfg, nil
}

// Validate checks the settings a sync cannot start without.
func (c CanvasConfig) Validate() error {
	if c.APIToken == "" {
		return &ConfigurationError{Key: "CANVAS_API_TOKEN", Msg: "is not configured"}
	}
	if c.BaseURL == "" {
		return &ConfigurationError{Key: "CANVAS_BASE_URL", Msg: "is not configured"}
	}
	return nil
}

func (c GoogleConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.CalendarID == "" {
		return &ConfigurationError{Key: "google.calendar_id", Msg: "is required when google.enabled is set"}
	}
	if len(c.ServiceAccount) == 0 {
		return &ConfigurationError{Key: "google.service_account", Msg: "is required when google.enabled is set"}
	}
	return nil
}

func (c SyncConfig) GraceWindow() time.Duration {
	return time.Duration(c.GraceDays) * 24 * time.Hour
}

func (c SyncConfig) RecencyWindow() time.Duration {
	return time.Duration(c.RecencyDays) * 24 * time.Hour
}
