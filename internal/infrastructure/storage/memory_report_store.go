package storage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"roadwatch/internal/domain/entity"
	"roadwatch/internal/domain/port"
)

// MemoryReportStore in-memory хранилище отчётов
type MemoryReportStore struct {
	mu      sync.RWMutex
	reports []entity.Report
	ids     map[string]struct{}
}

// NewMemoryReportStore создаёт новое in-memory хранилище
func NewMemoryReportStore() *MemoryReportStore {
	return &MemoryReportStore{
		ids: make(map[string]struct{}),
	}
}

// Append добавляет отчёт в конец истории
func (s *MemoryReportStore) Append(ctx context.Context, report *entity.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := prepareReport(report, time.Now()); err != nil {
		return err
	}
	if _, exists := s.ids[report.ID]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateReportID, report.ID)
	}

	s.ids[report.ID] = struct{}{}
	s.reports = append(s.reports, cloneReport(*report))
	return nil
}

// ListAll возвращает копию истории
func (s *MemoryReportStore) ListAll(ctx context.Context) ([]entity.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]entity.Report, 0, len(s.reports))
	for _, r := range s.reports {
		out = append(out, cloneReport(r))
	}
	return out, nil
}

// FindByLocation фильтрует историю предикатом
func (s *MemoryReportStore) FindByLocation(ctx context.Context, match entity.LocationPredicate) ([]entity.Report, error) {
	reports, err := s.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	return filterReports(reports, match), nil
}

// MemoryWallet in-memory счётчик вознаграждений
type MemoryWallet struct {
	mu      sync.Mutex
	balance int
}

func NewMemoryWallet() *MemoryWallet {
	return &MemoryWallet{}
}

// Credit увеличивает счётчик
func (w *MemoryWallet) Credit(ctx context.Context, amount int) (int, error) {
	if amount < 0 {
		return 0, fmt.Errorf("%w: %d", ErrNegativeCredit, amount)
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.balance += amount
	return w.balance, nil
}

// Balance возвращает текущее значение
func (w *MemoryWallet) Balance(ctx context.Context) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.balance, nil
}

// Проверка реализации интерфейсов
var (
	_ port.ReportStore  = (*MemoryReportStore)(nil)
	_ port.RewardLedger = (*MemoryWallet)(nil)
)
