package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Grid     GridConfig     `mapstructure:"grid"`
	Provider ProviderConfig `mapstructure:"provider"`
	Log      LogConfig      `mapstructure:"log"`
	Export   ExportConfig   `mapstructure:"export"`
	State    StateConfig    `mapstructure:"state"`
}

type GridConfig struct {
	PageSize         int    `mapstructure:"page_size"`
	SearchDebounceMs int    `mapstructure:"search_debounce_ms"`
	DefaultOrderBy   string `mapstructure:"default_order_by"`
	DefaultOrderDesc bool   `mapstructure:"default_order_desc"`
}

type ProviderConfig struct {
	Kind      string `mapstructure:"kind"` // local, rest, postgres or sqlite
	BaseURL   string `mapstructure:"base_url"`
	DSN       string `mapstructure:"dsn"`
	TimeoutMs int    `mapstructure:"timeout_ms"`
	MaxConns  int    `mapstructure:"max_conns"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type ExportConfig struct {
	Format string `mapstructure:"format"` // csv, json or yaml
}

// StateConfig locates saved views and the query history
type StateConfig struct {
	Dir     string `mapstructure:"dir"` // empty means the user config directory
	History bool   `mapstructure:"history"`
	Keyring bool   `mapstructure:"keyring"` // look up tokens and passwords in the OS keyring
}

// SearchDebounce returns the debounce quiet period
func (g GridConfig) SearchDebounce() time.Duration {
	return time.Duration(g.SearchDebounceMs) * time.Millisecond
}

// Timeout returns the provider request timeout
func (p ProviderConfig) Timeout() time.Duration {
	return time.Duration(p.TimeoutMs) * time.Millisecond
}

// Directory returns the state directory, falling back to the user config path
func (s StateConfig) Directory() (string, error) {
	if s.Dir != "" {
		return s.Dir, nil
	}
	return GetConfigPath()
}

// GetDefaults returns a Config with all default values
func GetDefaults() *Config {
	return &Config{
		Grid: GridConfig{
			PageSize:         25,
			SearchDebounceMs: 400,
		},
		Provider: ProviderConfig{
			Kind:      "local",
			TimeoutMs: 30000,
			MaxConns:  5,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Export: ExportConfig{
			Format: "csv",
		},
		State: StateConfig{
			History: true,
			Keyring: true,
		},
	}
}

// Load loads configuration from files and LAZYGRID_* environment variables.
// An explicit path skips the search paths.
func Load(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")

		// 1. User config directory
		if configDir, err := GetConfigPath(); err == nil {
			v.AddConfigPath(configDir)
		}
		// 2. Current directory
		v.AddConfigPath(".")
		// 3. Default config directory
		v.AddConfigPath("./config")
	}

	v.SetEnvPrefix("LAZYGRID")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := GetDefaults()
	v.SetDefault("grid.page_size", defaults.Grid.PageSize)
	v.SetDefault("grid.search_debounce_ms", defaults.Grid.SearchDebounceMs)
	v.SetDefault("grid.default_order_by", defaults.Grid.DefaultOrderBy)
	v.SetDefault("grid.default_order_desc", defaults.Grid.DefaultOrderDesc)
	v.SetDefault("provider.kind", defaults.Provider.Kind)
	v.SetDefault("provider.base_url", defaults.Provider.BaseURL)
	v.SetDefault("provider.dsn", defaults.Provider.DSN)
	v.SetDefault("provider.timeout_ms", defaults.Provider.TimeoutMs)
	v.SetDefault("provider.max_conns", defaults.Provider.MaxConns)
	v.SetDefault("log.level", defaults.Log.Level)
	v.SetDefault("log.format", defaults.Log.Format)
	v.SetDefault("export.format", defaults.Export.Format)
	v.SetDefault("state.dir", defaults.State.Dir)
	v.SetDefault("state.history", defaults.State.History)
	v.SetDefault("state.keyring", defaults.State.Keyring)

	// Read config (it's okay if file doesn't exist, we have defaults)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the grid cannot work with
func (c *Config) Validate() error {
	if c.Grid.PageSize <= 0 {
		return fmt.Errorf("grid.page_size must be positive, got %d", c.Grid.PageSize)
	}
	if c.Grid.SearchDebounceMs < 0 {
		return fmt.Errorf("grid.search_debounce_ms must not be negative, got %d", c.Grid.SearchDebounceMs)
	}
	switch c.Provider.Kind {
	case "local", "rest", "postgres", "sqlite":
	default:
		return fmt.Errorf("unknown provider kind %q", c.Provider.Kind)
	}
	return nil
}

// GetConfigPath returns the user config directory path
func GetConfigPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "lazygrid"), nil
}
