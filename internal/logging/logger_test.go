package logging

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestNew_Levels(t *testing.T) {
	tests := []struct {
		level    string
		expected zerolog.Level
		logged   []string
		dropped  []string
	}{
		{"trace", zerolog.TraceLevel, []string{"trace message", "debug message", "info message"}, nil},
		{"debug", zerolog.DebugLevel, []string{"debug message", "info message"}, []string{"trace message"}},
		{"info", zerolog.InfoLevel, []string{"info message", "warn message"}, []string{"debug message"}},
		{"WARN", zerolog.WarnLevel, []string{"warn message"}, []string{"info message"}},
		{"error", zerolog.ErrorLevel, []string{"error message"}, []string{"warn message"}},
		{"invalid", zerolog.InfoLevel, []string{"info message"}, []string{"debug message"}},
	}

	for _, tc := range tests {
		t.Run(tc.level, func(t *testing.T) {
			var buf bytes.Buffer
			logger := New(Config{Level: tc.level, Output: &buf})
			assert.Equal(t, tc.expected, logger.GetLevel())

			logger.Trace().Msg("trace message")
			logger.Debug().Msg("debug message")
			logger.Info().Msg("info message")
			logger.Warn().Msg("warn message")
			logger.Error().Msg("error message")

			for _, msg := range tc.logged {
				assert.Contains(t, buf.String(), msg)
			}
			for _, msg := range tc.dropped {
				assert.NotContains(t, buf.String(), msg)
			}
		})
	}
}

func TestParseLevel_Disabled(t *testing.T) {
	assert.Equal(t, zerolog.Disabled, ParseLevel("off"))
	assert.Equal(t, zerolog.WarnLevel, ParseLevel(" warning "))
}

func TestNew_PrettyOutput(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: "info", Pretty: true, Output: &buf})

	logger.Info().Str("dataset", "users").Msg("served")

	assert.Contains(t, buf.String(), "served")
	assert.NotContains(t, buf.String(), `"message"`)
}

func TestNew_DefaultOutput(t *testing.T) {
	logger := New(Config{Level: "info"})
	assert.NotPanics(t, func() { logger.Info().Msg("test message") })
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "info", cfg.Level)
	assert.NotNil(t, cfg.Output)
}

func TestIsTerminal_Nil(t *testing.T) {
	assert.False(t, IsTerminal(nil))
}
