package entity

import "fmt"

// PipelineConfig параметры прогона конвейера детекции.
type PipelineConfig struct {
	FrameStride   int                `yaml:"frame_stride"`
	WorkingWidth  int                `yaml:"working_width"`
	WorkingHeight int                `yaml:"working_height"`
	IoUThreshold  float64            `yaml:"iou_threshold"`
	Severity      SeverityThresholds `yaml:"severity"`

	// DetectWorkers число параллельных вызовов детектора по кадрам видео.
	// Результаты всё равно подаются в дедупликатор в исходном порядке кадров.
	DetectWorkers int `yaml:"detect_workers"`
}

// DefaultPipelineConfig каждый второй кадр, 640x480, IoU 0.5.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		FrameStride:   2,
		WorkingWidth:  640,
		WorkingHeight: 480,
		IoUThreshold:  0.5,
		Severity:      DefaultSeverityThresholds(),
		DetectWorkers: 1,
	}
}

func (c PipelineConfig) Validate() error {
	if c.FrameStride < 1 {
		return fmt.Errorf("frame_stride must be >= 1, got %d", c.FrameStride)
	}
	if c.WorkingWidth <= 0 || c.WorkingHeight <= 0 {
		return fmt.Errorf("working resolution must be positive, got %dx%d", c.WorkingWidth, c.WorkingHeight)
	}
	if c.IoUThreshold <= 0 || c.IoUThreshold > 1 {
		return fmt.Errorf("iou_threshold must be in (0,1], got %v", c.IoUThreshold)
	}
	if c.DetectWorkers < 1 {
		return fmt.Errorf("detect_workers must be >= 1, got %d", c.DetectWorkers)
	}
	return c.Severity.Validate()
}
