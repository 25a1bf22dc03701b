package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"roadwatch/internal/domain/entity"
	"roadwatch/internal/domain/port"
)

// JSONReportStore хранит историю отчётов одним JSON-массивом в файле.
// Каждое добавление перечитывает файл, дописывает отчёт и атомарно пишет файл целиком
// под мьютексом пути, поэтому параллельные записи не теряются. Уже записанные
// записи переносятся как есть, вместе с полями, о которых Report не знает.
type JSONReportStore struct {
	path string
	mu   *sync.Mutex
	now  func() time.Time
}

// NewJSONReportStore создаёт хранилище поверх файла path (например data/reports.json).
func NewJSONReportStore(path string) *JSONReportStore {
	return &JSONReportStore{
		path: path,
		mu:   lockFor(path),
		now:  time.Now,
	}
}

// Append добавляет отчёт в конец файла.
func (s *JSONReportStore) Append(ctx context.Context, report *entity.Report) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.loadRaw()
	if err != nil {
		return err
	}

	if err := prepareReport(report, s.now()); err != nil {
		return err
	}
	for _, rec := range records {
		var head struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(rec, &head); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrCorruptStore, s.path, err)
		}
		if head.ID == report.ID {
			return fmt.Errorf("%w: %s", ErrDuplicateReportID, report.ID)
		}
	}

	encoded, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	records = append(records, encoded)
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("encode reports: %w", err)
	}
	if err := writeFileAtomic(s.path, data, 0o644); err != nil {
		return fmt.Errorf("write reports: %w", err)
	}
	return nil
}

// ListAll возвращает все отчёты в порядке добавления.
func (s *JSONReportStore) ListAll(ctx context.Context) ([]entity.Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	records, err := s.loadRaw()
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	reports := make([]entity.Report, 0, len(records))
	for _, rec := range records {
		var r entity.Report
		if err := json.Unmarshal(rec, &r); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrCorruptStore, s.path, err)
		}
		reports = append(reports, r)
	}
	return reports, nil
}

// FindByLocation фильтрует историю предикатом.
func (s *JSONReportStore) FindByLocation(ctx context.Context, match entity.LocationPredicate) ([]entity.Report, error) {
	reports, err := s.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	return filterReports(reports, match), nil
}

func (s *JSONReportStore) loadRaw() ([]json.RawMessage, error) {
	data, err := readFileIfExists(s.path)
	if err != nil {
		return nil, fmt.Errorf("read reports: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}

	var records []json.RawMessage
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorruptStore, s.path, err)
	}
	return records, nil
}

var _ port.ReportStore = (*JSONReportStore)(nil)
