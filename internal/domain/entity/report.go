package entity

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Report запись об одном прогоне, в котором найден хотя бы один дефект.
type Report struct {
	ID                string            `json:"id"`
	Timestamp         int64             `json:"timestamp"`
	OriginalFile      string            `json:"original_file"`
	AnnotatedFile     *string           `json:"annotated_file"`
	Lat               *float64          `json:"lat"`
	Lon               *float64          `json:"lon"`
	Description       string            `json:"description"`
	TotalDetections   int               `json:"total_detections"`
	SeverityBreakdown SeverityBreakdown `json:"severity_breakdown"`
	Detections        []UniqueDetection `json:"detections"`
}

// NewReportID собирает идентификатор вида <epoch_millis>_<8 hex>.
func NewReportID(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("%d_%s", now.UnixMilli(), suffix)
}

// Location координаты отчёта, если они известны.
func (r Report) Location() (Location, bool) {
	if r.Lat == nil || r.Lon == nil {
		return Location{}, false
	}
	return Location{Lat: *r.Lat, Lon: *r.Lon}, true
}

// Validate проверяет инварианты отчёта перед записью.
func (r Report) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("report id is empty")
	}
	if r.TotalDetections != len(r.Detections) {
		return fmt.Errorf("report %s: total_detections=%d but %d detections", r.ID, r.TotalDetections, len(r.Detections))
	}
	if r.SeverityBreakdown.Total() != r.TotalDetections {
		return fmt.Errorf("report %s: severity breakdown sums to %d, want %d", r.ID, r.SeverityBreakdown.Total(), r.TotalDetections)
	}
	return nil
}
