package vision

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"

	"github.com/disintegration/imaging"

	"roadwatch/internal/domain/entity"
	"roadwatch/internal/domain/port"
)

// Annotator обводит дефекты рамками цвета их серьёзности и кодирует кадр в PNG.
type Annotator struct {
	Thickness int
}

func NewAnnotator() *Annotator {
	return &Annotator{Thickness: 2}
}

// SeverityColor зелёный, жёлтый или красный.
func SeverityColor(s entity.Severity) color.NRGBA {
	switch s {
	case entity.SeverityModerate:
		return color.NRGBA{R: 255, G: 200, A: 255}
	case entity.SeverityMajor:
		return color.NRGBA{R: 255, A: 255}
	default:
		return color.NRGBA{G: 255, A: 255}
	}
}

// Annotate рисует на копии кадра, исходный кадр не меняется.
func (a *Annotator) Annotate(frame image.Image, detections []entity.UniqueDetection) ([]byte, error) {
	if frame == nil {
		return nil, fmt.Errorf("annotate: nil frame")
	}
	canvas := imaging.Clone(frame)
	for _, d := range detections {
		drawRect(canvas, d.Box, SeverityColor(d.Severity), a.Thickness)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, canvas); err != nil {
		return nil, fmt.Errorf("encode annotated frame: %w", err)
	}
	return buf.Bytes(), nil
}

func drawRect(img *image.NRGBA, box entity.BoundingBox, col color.NRGBA, thickness int) {
	bounds := img.Bounds()

	setPixel := func(x, y int) {
		if x >= bounds.Min.X && x < bounds.Max.X && y >= bounds.Min.Y && y < bounds.Max.Y {
			img.SetNRGBA(x, y, col)
		}
	}

	for t := 0; t < thickness; t++ {
		for x := box.X1; x <= box.X2; x++ {
			setPixel(x, box.Y1+t)
			setPixel(x, box.Y2-t)
		}
		for y := box.Y1; y <= box.Y2; y++ {
			setPixel(box.X1+t, y)
			setPixel(box.X2-t, y)
		}
	}
}

var _ port.Annotator = (*Annotator)(nil)
