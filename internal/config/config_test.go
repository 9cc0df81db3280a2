package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse()
	require.NoError(t, err)

	assert.Equal(t, "EUR", cfg.AccountCurrency)
	assert.Equal(t, 3, cfg.FXWindow)
	assert.Equal(t, "before", cfg.FXDirection)
	assert.Equal(t, BackendMemory, cfg.CatalogBackend)
	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.Equal(t, 30*time.Second, cfg.HTTPReadTimeout)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestParse_Environment(t *testing.T) {
	t.Setenv("ACCOUNT_CURRENCY", "USD")
	t.Setenv("FX_WINDOW", "5")
	t.Setenv("FX_DIRECTION", "after")
	t.Setenv("CATALOG_BACKEND", "redis")
	t.Setenv("HTTP_WRITE_TIMEOUT", "2m")

	cfg, err := Parse()
	require.NoError(t, err)

	assert.Equal(t, "USD", cfg.AccountCurrency)
	assert.Equal(t, 5, cfg.FXWindow)
	assert.Equal(t, "after", cfg.FXDirection)
	assert.Equal(t, BackendRedis, cfg.CatalogBackend)
	assert.Equal(t, 2*time.Minute, cfg.HTTPWriteTimeout)
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{"CATALOG_BACKEND", "sqlite"},
		{"ACCOUNT_CURRENCY", "EURO"},
		{"FX_WINDOW", "0"},
		{"FX_WINDOW", "three"},
		{"FX_DIRECTION", "sideways"},
	}

	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Parse()
			assert.Error(t, err)
		})
	}
}

func TestLoad_DotEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("ACCOUNT_CURRENCY=CHF\nLOG_LEVEL=debug\n"), 0o600))

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() {
		_ = os.Chdir(wd)
		os.Unsetenv("ACCOUNT_CURRENCY")
		os.Unsetenv("LOG_LEVEL")
	})

	// A variable already in the environment wins over the file.
	t.Setenv("LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "CHF", cfg.AccountCurrency)
	assert.Equal(t, "warn", cfg.LogLevel)
}

func TestLoad_WithoutDotEnv(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	_, err = Load()
	assert.NoError(t, err)
}
