package logger_test

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"taskmon/internal/logger"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"INFO":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
	}
	for in, want := range cases {
		got, ok := logger.ParseLevel(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}

	got, ok := logger.ParseLevel("verbose")
	assert.False(t, ok)
	assert.Equal(t, slog.LevelWarn, got)
}

func TestNew_DebugOverridesLevel(t *testing.T) {
	var buf bytes.Buffer
	l := logger.New(&buf, "error", true)
	l.Debug("request", "path", "/api/tasks")
	assert.Contains(t, buf.String(), "path=/api/tasks")
}

func TestNew_FiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	l := logger.New(&buf, "warn", false)
	l.Info("hidden")
	assert.Empty(t, buf.String())
}

func TestNew_InvalidLevelWarns(t *testing.T) {
	var buf bytes.Buffer
	logger.New(&buf, "loud", false)
	assert.Contains(t, buf.String(), "invalid log level configured")
}
