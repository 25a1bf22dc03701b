package port

import (
	"context"

	"roadwatch/internal/domain/entity"
)

// UserRepository интерфейс хранилища пользователей
type UserRepository interface {
	// Get возвращает копию пользователя, создаёт нового если не найден
	Get(ctx context.Context, userID, chatID int64) (*entity.User, error)

	// Save сохраняет состояние пользователя
	Save(ctx context.Context, user *entity.User) error

	// Update атомарно применяет fn к пользователю. Если fn вернула ошибку,
	// состояние не меняется. Возвращает копию после изменения.
	Update(ctx context.Context, userID, chatID int64, fn func(*entity.User) error) (*entity.User, error)
}
