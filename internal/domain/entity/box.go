package entity

import (
	"encoding/json"
	"fmt"
)

// BoundingBox прямоугольник дефекта в пикселях кадра, (X1,Y1) левый верхний угол.
type BoundingBox struct {
	X1 int
	Y1 int
	X2 int
	Y2 int
}

// Valid сообщает, что x1<x2 и y1<y2.
func (b BoundingBox) Valid() bool {
	return b.X1 < b.X2 && b.Y1 < b.Y2
}

func (b BoundingBox) Width() int  { return b.X2 - b.X1 }
func (b BoundingBox) Height() int { return b.Y2 - b.Y1 }

// Area площадь рамки; для вырожденной рамки 0.
func (b BoundingBox) Area() int {
	if !b.Valid() {
		return 0
	}
	return b.Width() * b.Height()
}

// IoU считает отношение площади пересечения к площади объединения двух рамок.
// Рамки, которые только касаются краями, дают 0.
func IoU(a, b BoundingBox) float64 {
	left := max(a.X1, b.X1)
	top := max(a.Y1, b.Y1)
	right := min(a.X2, b.X2)
	bottom := min(a.Y2, b.Y2)

	inter := 0
	if right >= left && bottom >= top {
		inter = (right - left) * (bottom - top)
	}

	union := a.Area() + b.Area() - inter
	if union <= 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

// MarshalJSON пишет рамку массивом [x1, y1, x2, y2].
func (b BoundingBox) MarshalJSON() ([]byte, error) {
	return json.Marshal([4]int{b.X1, b.Y1, b.X2, b.Y2})
}

// UnmarshalJSON читает рамку из массива [x1, y1, x2, y2].
func (b *BoundingBox) UnmarshalJSON(data []byte) error {
	var raw []float64
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("bbox: %w", err)
	}
	if len(raw) != 4 {
		return fmt.Errorf("bbox: want 4 coordinates, got %d", len(raw))
	}
	b.X1, b.Y1, b.X2, b.Y2 = int(raw[0]), int(raw[1]), int(raw[2]), int(raw[3])
	return nil
}
