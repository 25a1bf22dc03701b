package port

import (
	"context"
	"image"

	"roadwatch/internal/domain/entity"
)

// MediaStore сохраняет файлы отчёта и возвращает ссылку на них
type MediaStore interface {
	Save(ctx context.Context, name string, data []byte) (ref string, err error)
	// Remove удаляет файл по ссылке из Save. Отсутствующий файл не ошибка.
	Remove(ctx context.Context, ref string) error
}

// Annotator рисует найденные дефекты поверх кадра
type Annotator interface {
	// Annotate возвращает закодированное изображение с подсветкой
	Annotate(frame image.Image, detections []entity.UniqueDetection) ([]byte, error)
}
