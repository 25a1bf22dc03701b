package storage

import (
	"fmt"

	"roadwatch/internal/domain/entity"
)

func ptr[T any](v T) *T { return &v }

// sampleReport отчёт с одним мелким дефектом.
func sampleReport(id string) *entity.Report {
	return &entity.Report{
		ID:                id,
		Timestamp:         1700000000,
		OriginalFile:      fmt.Sprintf("reports/%s_orig_road.jpg", id),
		Description:       "near the bus stop",
		TotalDetections:   1,
		SeverityBreakdown: entity.SeverityBreakdown{Minor: 1},
		Detections: []entity.UniqueDetection{{
			Box:        entity.BoundingBox{X1: 0, Y1: 0, X2: 50, Y2: 50},
			Confidence: 0.8,
			Area:       2500,
			Severity:   entity.SeverityMinor,
		}},
	}
}
