package port

import (
	"context"
	"image"
)

// ArtifactDecoder превращает загруженные файлы в кадры.
type ArtifactDecoder interface {
	// DecodeImage декодирует изображение в полном разрешении
	DecodeImage(data []byte) (image.Image, error)

	// OpenVideo открывает видеофайл для последовательного чтения кадров
	OpenVideo(ctx context.Context, path string) (FrameStream, error)

	// Resize приводит кадр к рабочему разрешению
	Resize(frame image.Image, width, height int) image.Image
}

// FrameStream последовательность кадров видео в исходном порядке.
type FrameStream interface {
	// Next возвращает следующий кадр; ok=false означает конец потока
	Next() (frame image.Image, ok bool, err error)

	// Skip пропускает кадр без декодирования, если источник это умеет
	Skip() (ok bool, err error)

	Close() error
}
