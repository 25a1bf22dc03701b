package entity

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultPipelineConfig(t *testing.T) {
	cfg := DefaultPipelineConfig()
	require.NoError(t, cfg.Validate())
	require.Equal(t, 2, cfg.FrameStride)
	require.Equal(t, 640, cfg.WorkingWidth)
	require.Equal(t, 480, cfg.WorkingHeight)
	require.Equal(t, 0.5, cfg.IoUThreshold)
	require.Equal(t, SeverityThresholds{MinorMax: 5000, ModerateMax: 20000}, cfg.Severity)
}

func TestPipelineConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*PipelineConfig)
	}{
		{"zero stride", func(c *PipelineConfig) { c.FrameStride = 0 }},
		{"zero width", func(c *PipelineConfig) { c.WorkingWidth = 0 }},
		{"zero iou", func(c *PipelineConfig) { c.IoUThreshold = 0 }},
		{"iou above one", func(c *PipelineConfig) { c.IoUThreshold = 1.01 }},
		{"no workers", func(c *PipelineConfig) { c.DetectWorkers = 0 }},
		{"bad severity", func(c *PipelineConfig) { c.Severity.ModerateMax = 1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultPipelineConfig()
			tt.mutate(&cfg)
			require.Error(t, cfg.Validate())
		})
	}

	cfg := DefaultPipelineConfig()
	cfg.IoUThreshold = 1
	require.NoError(t, cfg.Validate())
}
