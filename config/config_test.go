package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"roadwatch/internal/domain/entity"
)

var configKeys = []string{
	"TELEGRAM_TOKEN", "DATA_DIR", "STORE_BACKEND", "DETECTOR_URL", "DETECTOR_TRANSPORT",
	"DETECTOR_MIN_CONFIDENCE", "FRAME_STRIDE", "WORKING_WIDTH", "WORKING_HEIGHT", "IOU_THRESHOLD",
	"SEVERITY_MINOR_MAX", "SEVERITY_MODERATE_MAX", "DETECT_WORKERS", "REWARD_AMOUNT",
	"BOT_WORKERS", "LOG_LEVEL", "ROADWATCH_CONFIG",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range configKeys {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "./data", cfg.DataDir)
	require.Equal(t, BackendJSON, cfg.StoreBackend)
	require.Equal(t, TransportHTTP, cfg.DetectorTransport)
	require.Equal(t, entity.DefaultPipelineConfig(), cfg.Pipeline)
	require.Equal(t, 10, cfg.RewardAmount)
	require.Equal(t, 4, cfg.BotWorkers)
	require.Equal(t, slog.LevelInfo, cfg.SlogLevel())
}

func TestLoad_FromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("TELEGRAM_TOKEN", "token")
	t.Setenv("STORE_BACKEND", "sqlite")
	t.Setenv("DETECTOR_TRANSPORT", "websocket")
	t.Setenv("DETECTOR_URL", "localhost:8000")
	t.Setenv("DETECTOR_MIN_CONFIDENCE", "0.25")
	t.Setenv("FRAME_STRIDE", "5")
	t.Setenv("IOU_THRESHOLD", "0.4")
	t.Setenv("SEVERITY_MINOR_MAX", "1000")
	t.Setenv("DETECT_WORKERS", "3")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "token", cfg.TelegramToken)
	require.Equal(t, BackendSQLite, cfg.StoreBackend)
	require.Equal(t, TransportWebSocket, cfg.DetectorTransport)
	require.Equal(t, "localhost:8000", cfg.DetectorURL)
	require.Equal(t, 0.25, cfg.DetectorMinConfidence)
	require.Equal(t, 5, cfg.Pipeline.FrameStride)
	require.Equal(t, 0.4, cfg.Pipeline.IoUThreshold)
	require.Equal(t, 1000, cfg.Pipeline.Severity.MinorMax)
	require.Equal(t, 20000, cfg.Pipeline.Severity.ModerateMax)
	require.Equal(t, 3, cfg.Pipeline.DetectWorkers)
	require.Equal(t, slog.LevelDebug, cfg.SlogLevel())
}

func TestLoad_FileOverridesPipeline(t *testing.T) {
	clearEnv(t)
	t.Setenv("FRAME_STRIDE", "3")

	path := filepath.Join(t.TempDir(), "roadwatch.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
pipeline:
  working_width: 320
  working_height: 240
  severity:
    moderate_max: 9000
reward_amount: 15
`), 0o644))
	t.Setenv("ROADWATCH_CONFIG", path)

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, 3, cfg.Pipeline.FrameStride)
	require.Equal(t, 320, cfg.Pipeline.WorkingWidth)
	require.Equal(t, 240, cfg.Pipeline.WorkingHeight)
	require.Equal(t, 5000, cfg.Pipeline.Severity.MinorMax)
	require.Equal(t, 9000, cfg.Pipeline.Severity.ModerateMax)
	require.Equal(t, 0.5, cfg.Pipeline.IoUThreshold)
	require.Equal(t, 15, cfg.RewardAmount)
}

func TestLoad_Errors(t *testing.T) {
	cases := map[string]map[string]string{
		"bad int":         {"FRAME_STRIDE": "two"},
		"bad float":       {"IOU_THRESHOLD": "half"},
		"zero stride":     {"FRAME_STRIDE": "0"},
		"iou over one":    {"IOU_THRESHOLD": "1.5"},
		"unknown backend": {"STORE_BACKEND": "postgres"},
		"unknown proto":   {"DETECTOR_TRANSPORT": "grpc"},
		"bad confidence":  {"DETECTOR_MIN_CONFIDENCE": "2"},
		"no workers":      {"BOT_WORKERS": "0"},
		"missing file":    {"ROADWATCH_CONFIG": "/nonexistent/roadwatch.yaml"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := Load()
			require.Error(t, err)
		})
	}
}

func TestSlogLevel_Unknown(t *testing.T) {
	cfg := Default()
	cfg.LogLevel = "loud"
	require.Equal(t, slog.LevelInfo, cfg.SlogLevel())

	cfg.LogLevel = "WARN"
	require.Equal(t, slog.LevelWarn, cfg.SlogLevel())
}
