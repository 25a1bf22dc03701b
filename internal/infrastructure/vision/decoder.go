package vision

import (
	"bytes"
	"fmt"
	"image"

	"github.com/disintegration/imaging"

	"roadwatch/internal/domain/entity"
	"roadwatch/internal/domain/port"
)

// Decoder декодирует загрузки в кадры и приводит их к рабочему разрешению.
// Видео читается через ffmpeg, а при сборке с тегом gocv через OpenCV.
type Decoder struct {
	FFmpegPath  string
	FFprobePath string

	// FrameWidth и FrameHeight размер, до которого ffmpeg масштабирует кадры видео
	// после автоповорота. Ноль означает исходный размер без поворота.
	FrameWidth  int
	FrameHeight int
}

// NewDecoder создаёт декодер с ffmpeg/ffprobe из PATH, отдающий кадры видео
// размером frameWidth x frameHeight.
func NewDecoder(frameWidth, frameHeight int) *Decoder {
	return &Decoder{
		FFmpegPath:  "ffmpeg",
		FFprobePath: "ffprobe",
		FrameWidth:  frameWidth,
		FrameHeight: frameHeight,
	}
}

// DecodeImage декодирует JPEG/PNG/GIF/BMP/TIFF с учётом EXIF-ориентации.
func (d *Decoder) DecodeImage(data []byte) (image.Image, error) {
	if len(data) == 0 {
		return nil, entity.ErrEmptyArtifact
	}
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", entity.ErrArtifactDecode, err)
	}
	if img.Bounds().Empty() {
		return nil, fmt.Errorf("%w: empty image", entity.ErrArtifactDecode)
	}
	return img, nil
}

// Resize растягивает кадр ровно до width x height.
func (d *Decoder) Resize(frame image.Image, width, height int) image.Image {
	if frame.Bounds().Dx() == width && frame.Bounds().Dy() == height {
		return frame
	}
	return imaging.Resize(frame, width, height, imaging.Linear)
}

var _ port.ArtifactDecoder = (*Decoder)(nil)
