package detector

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"log/slog"

	"roadwatch/internal/domain/entity"
)

// wireDetection одна рамка в ответе сервиса инференса.
type wireDetection struct {
	Box        []float64 `json:"bbox"`
	Confidence float64   `json:"confidence"`
}

// encodeFrame кадр уходит в сервис инференса как JPEG.
func encodeFrame(frame image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, frame, &jpeg.Options{Quality: 90}); err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	return buf.Bytes(), nil
}

// toRawDetections переводит ответ в доменные рамки, отбрасывая
// вырожденные рамки и рамки с уверенностью ниже minConfidence.
func toRawDetections(in []wireDetection, minConfidence float64, log *slog.Logger) []entity.RawDetection {
	out := make([]entity.RawDetection, 0, len(in))
	for _, w := range in {
		if len(w.Box) != 4 {
			log.Debug("skipping detection with malformed bbox", slog.Int("coords", len(w.Box)))
			continue
		}
		box := entity.BoundingBox{X1: int(w.Box[0]), Y1: int(w.Box[1]), X2: int(w.Box[2]), Y2: int(w.Box[3])}
		if !box.Valid() {
			log.Debug("skipping degenerate bbox", slog.Any("bbox", w.Box))
			continue
		}
		if w.Confidence < 0 || w.Confidence > 1 || w.Confidence < minConfidence {
			continue
		}
		out = append(out, entity.RawDetection{Box: box, Confidence: w.Confidence})
	}
	return out
}
