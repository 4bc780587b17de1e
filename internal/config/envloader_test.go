package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("LISTQUERY_HOST", "0.0.0.0")
	t.Setenv("LISTQUERY_PORT", "9090")
	t.Setenv("LISTQUERY_SHUTDOWN_TIMEOUT", "3s")
	t.Setenv("LISTQUERY_MAX_TOP", "50")
	t.Setenv("LISTQUERY_LOG_LEVEL", "debug")
	t.Setenv("LISTQUERY_LOG_PRETTY", "true")
	t.Setenv("LISTQUERY_PROPERTY_CASE", "none")
	t.Setenv("LISTQUERY_HISTORY_PATH", "/var/lib/listquery/history.duckdb")

	cfg := DefaultConfig()
	require.NoError(t, LoadFromEnv(cfg))

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 3*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, 50, cfg.Server.MaxTop)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.Logging.Pretty)
	assert.Equal(t, "none", cfg.Query.PropertyCase)
	assert.Equal(t, "/var/lib/listquery/history.duckdb", cfg.History.Path)
}

func TestLoadFromEnv_EmptyIgnored(t *testing.T) {
	t.Setenv("LISTQUERY_PORT", "")

	cfg := DefaultConfig()
	require.NoError(t, LoadFromEnv(cfg))
	assert.Equal(t, 8080, cfg.Server.Port)
}

func TestLoadFromEnv_InvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
		want  string
	}{
		{"integer", "LISTQUERY_PORT", "eighty", "invalid integer for Port"},
		{"duration", "LISTQUERY_SHUTDOWN_TIMEOUT", "soon", "invalid duration for ShutdownTimeout"},
		{"boolean", "LISTQUERY_LOG_PRETTY", "sometimes", "invalid boolean for Pretty"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			err := LoadFromEnv(DefaultConfig())
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadFromEnv_SlicesAndNil(t *testing.T) {
	type withSlice struct {
		Tags []string `env:"LISTQUERY_TEST_TAGS"`
		skip string   `env:"LISTQUERY_TEST_SKIP"`
	}
	t.Setenv("LISTQUERY_TEST_TAGS", "a, b ,c")
	t.Setenv("LISTQUERY_TEST_SKIP", "x")

	var v withSlice
	require.NoError(t, LoadFromEnv(&v))
	assert.Equal(t, []string{"a", "b", "c"}, v.Tags)
	assert.Empty(t, v.skip)

	var nilCfg *Config
	assert.NoError(t, LoadFromEnv(nilCfg))
}
