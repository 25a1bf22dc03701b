package port

import (
	"context"
	"image"

	"roadwatch/internal/domain/entity"
)

// FrameDetector интерфейс внешнего детектора дефектов
type FrameDetector interface {
	// Detect возвращает сырые рамки с уверенностью для одного кадра
	Detect(ctx context.Context, frame image.Image) ([]entity.RawDetection, error)
}
