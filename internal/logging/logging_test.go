package logging

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"info":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"error":   slog.LevelError,
		"verbose": slog.LevelInfo,
	}
	for name, want := range tests {
		assert.Equal(t, want, ParseLevel(name), name)
	}
}

func TestNewFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, "warn")

	logger.Info("candidate run unavailable")
	logger.Warn("run history not recorded", "run", "2024-03-01T18Z")

	out := buf.String()
	assert.NotContains(t, out, "candidate run unavailable")
	assert.Contains(t, out, "level=WARN")
	assert.Contains(t, out, "run=2024-03-01T18Z")
}
