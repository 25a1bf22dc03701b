package storage

import (
	"context"
	"sync"

	"roadwatch/internal/domain/entity"
	"roadwatch/internal/domain/port"
)

// MemoryUserRepository in-memory хранилище пользователей.
// Наружу отдаются только копии, поэтому обработчики бота в разных горутинах
// не делят один *entity.User.
type MemoryUserRepository struct {
	mu    sync.Mutex
	users map[int64]*entity.User
}

// NewMemoryUserRepository создаёт новое in-memory хранилище
func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{
		users: make(map[int64]*entity.User),
	}
}

// Get возвращает пользователя по ID, создаёт нового если не найден
func (r *MemoryUserRepository) Get(ctx context.Context, userID, chatID int64) (*entity.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.getLocked(userID, chatID).Clone(), nil
}

// Save сохраняет состояние пользователя
func (r *MemoryUserRepository) Save(ctx context.Context, user *entity.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	r.users[user.ID] = user.Clone()
	r.mu.Unlock()

	return nil
}

// Update меняет пользователя под блокировкой хранилища.
func (r *MemoryUserRepository) Update(ctx context.Context, userID, chatID int64, fn func(*entity.User) error) (*entity.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	draft := r.getLocked(userID, chatID).Clone()
	if err := fn(draft); err != nil {
		return nil, err
	}
	r.users[userID] = draft
	return draft.Clone(), nil
}

func (r *MemoryUserRepository) getLocked(userID, chatID int64) *entity.User {
	user, exists := r.users[userID]
	if !exists {
		// Создаём нового пользователя
		user = entity.NewUser(userID, chatID)
		r.users[userID] = user
	}
	return user
}

// Проверка реализации интерфейса
var _ port.UserRepository = (*MemoryUserRepository)(nil)
