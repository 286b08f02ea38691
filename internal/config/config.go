package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	Database DatabaseConfig
	Log      LogConfig
	UI       UIConfig
}

// DatabaseConfig holds sqlite settings.
type DatabaseConfig struct {
	Path string
}

// LogConfig holds logger settings.
type LogConfig struct {
	Mode string
	Path string
}

// UIConfig holds presentation settings.
type UIConfig struct {
	CurrencySymbol string `mapstructure:"currency_symbol"`
	Timezone       string `mapstructure:"timezone"`
	LookbackDays   int    `mapstructure:"lookback_days"`
}

// Load reads configuration from file and env. Env var overrides use prefix PENNYJAR_.
func Load() (Config, error) {
	v := viper.New()

	// default values
	v.SetDefault("database.path", filepath.Join(os.Getenv("HOME"), ".local", "share", "pennyjar", "pennyjar.db"))
	v.SetDefault("log.mode", "production")
	v.SetDefault("log.path", filepath.Join(os.Getenv("HOME"), ".local", "share", "pennyjar", "pennyjar.log"))
	v.SetDefault("ui.currency_symbol", "$")
	v.SetDefault("ui.timezone", "Local")
	v.SetDefault("ui.lookback_days", 30)

	v.SetConfigType("toml")

	cfgPath := os.Getenv("PENNYJAR_CONFIG")
	if cfgPath != "" {
		v.SetConfigFile(cfgPath)
	} else {
		v.AddConfigPath(filepath.Join(os.Getenv("HOME"), ".config", "pennyjar"))
		v.SetConfigName("config")
	}

	v.SetEnvPrefix("PENNYJAR")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// read config file if present
	_ = v.ReadInConfig()

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return c, nil
}

// Save writes the provided config to disk, creating the config directory if
// needed. Used by the settings view for preferences.
func Save(cfg Config) error {
	path := os.Getenv("PENNYJAR_CONFIG")
	if path == "" {
		path = filepath.Join(os.Getenv("HOME"), ".config", "pennyjar", "config.toml")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
	}

	v := viper.New()
	v.SetConfigType("toml")
	v.Set("database.path", cfg.Database.Path)
	v.Set("log.mode", cfg.Log.Mode)
	v.Set("log.path", cfg.Log.Path)
	v.Set("ui.currency_symbol", cfg.UI.CurrencySymbol)
	v.Set("ui.timezone", cfg.UI.Timezone)
	v.Set("ui.lookback_days", cfg.UI.LookbackDays)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Location resolves the configured timezone, falling back to local time.
func (c Config) Location() string {
	if c.UI.Timezone == "" {
		return "Local"
	}
	return c.UI.Timezone
}
