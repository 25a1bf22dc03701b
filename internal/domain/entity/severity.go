package entity

import (
	"encoding/json"
	"fmt"
)

// Severity грубая оценка размера дефекта по площади рамки.
type Severity string

const (
	SeverityMinor    Severity = "Minor"
	SeverityModerate Severity = "Moderate"
	SeverityMajor    Severity = "Major"
)

// Severities перечисляет уровни от меньшего к большему.
var Severities = [...]Severity{SeverityMinor, SeverityModerate, SeverityMajor}

// SeverityThresholds границы классификации: area < MinorMax → Minor,
// area < ModerateMax → Moderate, иначе Major.
type SeverityThresholds struct {
	MinorMax    int `yaml:"minor_max"`
	ModerateMax int `yaml:"moderate_max"`
}

// DefaultSeverityThresholds возвращает пороги 5000 / 20000.
func DefaultSeverityThresholds() SeverityThresholds {
	return SeverityThresholds{MinorMax: 5000, ModerateMax: 20000}
}

func (t SeverityThresholds) Validate() error {
	if t.MinorMax <= 0 || t.ModerateMax <= t.MinorMax {
		return fmt.Errorf("severity thresholds must satisfy 0 < minor_max < moderate_max, got %d/%d", t.MinorMax, t.ModerateMax)
	}
	return nil
}

// Classify относит площадь к одному из уровней.
func (t SeverityThresholds) Classify(area int) Severity {
	switch {
	case area < t.MinorMax:
		return SeverityMinor
	case area < t.ModerateMax:
		return SeverityModerate
	default:
		return SeverityMajor
	}
}

// SeverityBreakdown число уникальных дефектов каждого уровня.
type SeverityBreakdown struct {
	Minor    int
	Moderate int
	Major    int
}

// Add увеличивает счётчик для уровня s.
func (b *SeverityBreakdown) Add(s Severity) {
	switch s {
	case SeverityMinor:
		b.Minor++
	case SeverityModerate:
		b.Moderate++
	case SeverityMajor:
		b.Major++
	}
}

// Count число дефектов уровня s.
func (b SeverityBreakdown) Count(s Severity) int {
	switch s {
	case SeverityMinor:
		return b.Minor
	case SeverityModerate:
		return b.Moderate
	case SeverityMajor:
		return b.Major
	}
	return 0
}

// Total сумма по всем уровням.
func (b SeverityBreakdown) Total() int {
	return b.Minor + b.Moderate + b.Major
}

// MarshalJSON пишет разбивку объектом {"Minor":..,"Moderate":..,"Major":..}.
func (b SeverityBreakdown) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[Severity]int{
		SeverityMinor:    b.Minor,
		SeverityModerate: b.Moderate,
		SeverityMajor:    b.Major,
	})
}

func (b *SeverityBreakdown) UnmarshalJSON(data []byte) error {
	var m map[Severity]int
	if err := json.Unmarshal(data, &m); err != nil {
		return fmt.Errorf("severity breakdown: %w", err)
	}
	*b = SeverityBreakdown{
		Minor:    m[SeverityMinor],
		Moderate: m[SeverityModerate],
		Major:    m[SeverityMajor],
	}
	return nil
}
