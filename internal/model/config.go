package model

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override,
// e.g. BUILDFAST_DATABASE_DSN.
const EnvPrefix = "BUILDFAST"

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr string `mapstructure:"addr" yaml:"addr"`

	// SessionSecret signs the session cookie. Serving refuses to start
	// without one.
	SessionSecret string `mapstructure:"session_secret" yaml:"session_secret"`

	CORSOrigins       []string `mapstructure:"cors_origins" yaml:"cors_origins"`
	ChatRatePerMin    int      `mapstructure:"chat_rate_per_min" yaml:"chat_rate_per_min"`
	RequestTimeoutSec int      `mapstructure:"request_timeout_sec" yaml:"request_timeout_sec"`
}

// DatabaseConfig selects the SQL backend.
type DatabaseConfig struct {
	// Driver is "sqlite" or "postgres".
	Driver string `mapstructure:"driver" yaml:"driver"`
	DSN    string `mapstructure:"dsn" yaml:"dsn"`
}

// AIConfig holds settings for the chat model.
type AIConfig struct {
	BaseURL      string `mapstructure:"base_url" yaml:"base_url"`
	Model        string `mapstructure:"model" yaml:"model"`
	MaxTokens    int    `mapstructure:"max_tokens" yaml:"max_tokens"`
	ToolsEnabled bool   `mapstructure:"tools_enabled" yaml:"tools_enabled"`

	// MaxSteps caps model rounds per chat turn when tools are in play.
	MaxSteps int `mapstructure:"max_steps" yaml:"max_steps"`

	// HistoryWindow bounds how many persisted section messages are replayed.
	// Zero replays the whole log.
	HistoryWindow int `mapstructure:"history_window" yaml:"history_window"`

	// PlanningWindow is the trailing window embedded in planning prompts.
	PlanningWindow int `mapstructure:"planning_window" yaml:"planning_window"`
}

// TracingConfig toggles OpenTelemetry span export.
type TracingConfig struct {
	Enabled     bool   `mapstructure:"enabled" yaml:"enabled"`
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
}

// LogConfig controls slog output.
type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
}

// ClientConfig is used by the terminal client commands.
type ClientConfig struct {
	BaseURL      string `mapstructure:"base_url" yaml:"base_url"`
	SessionToken string `mapstructure:"session_token" yaml:"session_token"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	Server   ServerConfig   `mapstructure:"server" yaml:"server"`
	Database DatabaseConfig `mapstructure:"database" yaml:"database"`
	AI       AIConfig       `mapstructure:"ai" yaml:"ai"`
	Tracing  TracingConfig  `mapstructure:"tracing" yaml:"tracing"`
	Log      LogConfig      `mapstructure:"log" yaml:"log"`
	Client   ClientConfig   `mapstructure:"client" yaml:"client"`
}

// DefaultConfigPath returns ~/.config/buildfast/config.yaml.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "config.yaml")
	}
	return filepath.Join(home, ".config", "buildfast", "config.yaml")
}

// DefaultDatabasePath returns ~/.local/share/buildfast/buildfast.db.
func DefaultDatabasePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "buildfast.db"
	}
	return filepath.Join(home, ".local", "share", "buildfast", "buildfast.db")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.session_secret", "")
	v.SetDefault("server.cors_origins", []string{"http://localhost:3000"})
	v.SetDefault("server.chat_rate_per_min", 20)
	v.SetDefault("server.request_timeout_sec", 120)
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", DefaultDatabasePath())
	v.SetDefault("ai.base_url", "https://openrouter.ai/api/v1")
	v.SetDefault("ai.model", "mistralai/mistral-small-3.2-24b-instruct:free")
	v.SetDefault("ai.max_tokens", 2048)
	v.SetDefault("ai.tools_enabled", true)
	v.SetDefault("ai.max_steps", 5)
	v.SetDefault("ai.history_window", 0)
	v.SetDefault("ai.planning_window", 10)
	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.service_name", "buildfast")
	v.SetDefault("log.level", "info")
	v.SetDefault("client.base_url", "http://localhost:8080")
	v.SetDefault("client.session_token", "")
}

// LoadConfig reads configuration from the given YAML file path using Viper,
// with BUILDFAST_* environment variables taking precedence.
// A missing file is not an error; defaults and env still apply.
func LoadConfig(path string) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var pathErr *os.PathError
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &pathErr) && !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	cfg := &AppConfig{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if cfg.AI.MaxSteps < 1 {
		cfg.AI.MaxSteps = 1
	}
	if cfg.AI.PlanningWindow < 1 {
		cfg.AI.PlanningWindow = 10
	}

	return cfg, nil
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("server", cfg.Server)
	v.Set("database", cfg.Database)
	v.Set("ai", cfg.AI)
	v.Set("tracing", cfg.Tracing)
	v.Set("log", cfg.Log)
	v.Set("client", cfg.Client)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
