package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PENNYJAR_CONFIG", filepath.Join(t.TempDir(), "missing.toml"))

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "$", cfg.UI.CurrencySymbol)
	require.Equal(t, "Local", cfg.UI.Timezone)
	require.Equal(t, 30, cfg.UI.LookbackDays)
	require.Equal(t, "production", cfg.Log.Mode)
	require.NotEmpty(t, cfg.Database.Path)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[database]
path = "/tmp/custom.db"

[ui]
currency_symbol = "€"
lookback_days = 90
`), 0o644))
	t.Setenv("PENNYJAR_CONFIG", path)

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "/tmp/custom.db", cfg.Database.Path)
	require.Equal(t, "€", cfg.UI.CurrencySymbol)
	require.Equal(t, 90, cfg.UI.LookbackDays)
	require.Equal(t, "Local", cfg.UI.Timezone) // unset keys keep defaults
}

func TestSaveRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	t.Setenv("PENNYJAR_CONFIG", path)

	want := Config{
		Database: DatabaseConfig{Path: "/tmp/pj.db"},
		Log:      LogConfig{Mode: "development", Path: "/tmp/pj.log"},
		UI:       UIConfig{CurrencySymbol: "£", Timezone: "America/New_York", LookbackDays: 14},
	}
	require.NoError(t, Save(want))

	got, err := Load()
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func TestLocationFallback(t *testing.T) {
	t.Parallel()

	require.Equal(t, "Local", Config{}.Location())
	require.Equal(t, "UTC", Config{UI: UIConfig{Timezone: "UTC"}}.Location())
}
