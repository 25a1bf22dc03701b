package app

import (
	"errors"

	"roadwatch/internal/domain/entity"
)

// ErrDeduplicatorSpent повторное использование после Finalize.
var ErrDeduplicatorSpent = errors.New("deduplicator already finalized")

// Deduplicator накапливает уникальные дефекты по кадрам одного прогона.
//
// Сопоставление жадное: сырая рамка сливается с первой по порядку уникальной рамкой,
// у которой IoU >= порога. Геометрия остаётся от первого наблюдения, уверенность
// поднимается до максимальной. Результат зависит от порядка кадров и рамок внутри кадра.
type Deduplicator struct {
	iouThreshold float64
	severity     entity.SeverityThresholds
	unique       []entity.RawDetection
	spent        bool
}

// NewDeduplicator создаёт пустой накопитель для одного прогона.
func NewDeduplicator(iouThreshold float64, severity entity.SeverityThresholds) *Deduplicator {
	return &Deduplicator{
		iouThreshold: iouThreshold,
		severity:     severity,
	}
}

// Observe добавляет рамки одного кадра в порядке их прихода.
func (d *Deduplicator) Observe(batch []entity.RawDetection) error {
	if d.spent {
		return ErrDeduplicatorSpent
	}
	for _, det := range batch {
		if i := d.match(det.Box); i >= 0 {
			if det.Confidence > d.unique[i].Confidence {
				d.unique[i].Confidence = det.Confidence
			}
			continue
		}
		d.unique = append(d.unique, det)
	}
	return nil
}

// match ищет первую уникальную рамку с перекрытием не ниже порога.
func (d *Deduplicator) match(box entity.BoundingBox) int {
	for i := range d.unique {
		if entity.IoU(box, d.unique[i].Box) >= d.iouThreshold {
			return i
		}
	}
	return -1
}

// Len число уникальных дефектов на текущий момент.
func (d *Deduplicator) Len() int {
	return len(d.unique)
}

// Finalize классифицирует дефекты и закрывает накопитель.
func (d *Deduplicator) Finalize() ([]entity.UniqueDetection, error) {
	if d.spent {
		return nil, ErrDeduplicatorSpent
	}
	d.spent = true

	out := make([]entity.UniqueDetection, 0, len(d.unique))
	for _, u := range d.unique {
		area := u.Box.Area()
		out = append(out, entity.UniqueDetection{
			Box:        u.Box,
			Confidence: u.Confidence,
			Area:       area,
			Severity:   d.severity.Classify(area),
		})
	}
	d.unique = nil
	return out, nil
}
