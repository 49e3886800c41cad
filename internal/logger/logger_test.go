package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name   string
		want   slog.Level
		wantOK bool
	}{
		{"debug", slog.LevelDebug, true},
		{"INFO", slog.LevelInfo, true},
		{"warn", slog.LevelWarn, true},
		{"error", slog.LevelError, true},
		{"trace", slog.LevelInfo, false},
	}
	for _, tt := range tests {
		got, ok := ParseLevel(tt.name)
		assert.Equal(t, tt.want, got, tt.name)
		assert.Equal(t, tt.wantOK, ok, tt.name)
	}
}

func TestSetup(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		Setup(&buf, "warn", "json")
		slog.Info("hidden")
		slog.Warn("shown", "deck", "zh_CN")

		var entry map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
		assert.Equal(t, "shown", entry["msg"])
		assert.Equal(t, "zh_CN", entry["deck"])
	})

	t.Run("text with bad level", func(t *testing.T) {
		var buf bytes.Buffer
		Setup(&buf, "loud", "text")
		assert.True(t, strings.Contains(buf.String(), "invalid log level configured"))
	})
}
