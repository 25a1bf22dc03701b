package entity

// RawDetection одна рамка, которую детектор вернул для одного кадра.
type RawDetection struct {
	Box        BoundingBox `json:"bbox"`
	Confidence float64     `json:"confidence"`
}

// UniqueDetection дефект, переживший дедупликацию в рамках одного прогона.
type UniqueDetection struct {
	Box        BoundingBox `json:"bbox"`
	Confidence float64     `json:"confidence"`
	Area       int         `json:"area"`
	Severity   Severity    `json:"severity"`
}

// Breakdown считает уровни серьёзности по списку дефектов.
func Breakdown(detections []UniqueDetection) SeverityBreakdown {
	var b SeverityBreakdown
	for _, d := range detections {
		b.Add(d.Severity)
	}
	return b
}
