package infrastructure

import (
	"bufio"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bnvision/internal/config"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"bogus", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLogLevel(tt.input))
		})
	}
}

func TestInitializeLogger_FileOutput(t *testing.T) {
	logDir := t.TempDir()
	cfg := config.LoggingConfig{
		Level:  "info",
		Output: "file",
		LogDir: logDir,
	}

	logger, closer, err := InitializeLogger(cfg, "downloader")
	require.NoError(t, err)
	defer closer.Close()

	ctx, runID := NewRunContext(context.Background())
	logger.InfoContext(ctx, "hello", slog.String("symbol", "BTCUSDT"))
	require.NoError(t, closer.Close())

	file, err := os.Open(filepath.Join(logDir, "downloader.log"))
	require.NoError(t, err)
	defer file.Close()

	scanner := bufio.NewScanner(file)
	require.True(t, scanner.Scan())

	var record map[string]any
	require.NoError(t, json.Unmarshal(scanner.Bytes(), &record))

	assert.Equal(t, "hello", record["msg"])
	assert.Equal(t, "BTCUSDT", record["symbol"])
	assert.Equal(t, "downloader", record["component"])
	assert.Equal(t, runID, record["trace_id"])
}

func TestNewRunContext(t *testing.T) {
	ctx, runID := NewRunContext(context.Background())

	assert.NotEmpty(t, runID)
	assert.Equal(t, runID, GetTraceID(ctx))
	assert.Empty(t, GetTraceID(context.Background()))
}
