package port

import (
	"context"

	"roadwatch/internal/domain/entity"
)

// ReportStore хранилище отчётов только на добавление
type ReportStore interface {
	// Append добавляет отчёт в конец истории; пустой ID будет сгенерирован
	Append(ctx context.Context, report *entity.Report) error

	// ListAll возвращает все отчёты в порядке поступления
	ListAll(ctx context.Context) ([]entity.Report, error)

	// FindByLocation возвращает отчёты, прошедшие фильтр, в порядке поступления
	FindByLocation(ctx context.Context, match entity.LocationPredicate) ([]entity.Report, error)
}

// RewardLedger общий счётчик вознаграждений
type RewardLedger interface {
	// Credit увеличивает счётчик и возвращает новое значение
	Credit(ctx context.Context, amount int) (int, error)

	// Balance возвращает текущее значение счётчика
	Balance(ctx context.Context) (int, error)
}
