package app

import (
	"context"
	"errors"

	"roadwatch/internal/domain/entity"
	"roadwatch/internal/domain/port"
)

// ErrUserBusy у пользователя уже идёт обработка загрузки.
var ErrUserBusy = errors.New("user upload is already being processed")

type UserService struct {
	repo port.UserRepository
}

func NewUserService(repo port.UserRepository) *UserService {
	return &UserService{repo: repo}
}

func (s *UserService) SetState(ctx context.Context, userID, chatID int64, state entity.UserState) (*entity.User, error) {
	return s.repo.Update(ctx, userID, chatID, func(u *entity.User) error {
		u.SetState(state)
		return nil
	})
}

func (s *UserService) BeginReport(ctx context.Context, userID, chatID int64) (*entity.User, error) {
	return s.SetState(ctx, userID, chatID, entity.StateAwaitingMedia)
}

// Cancel возвращает в главное меню и забывает приложенную точку.
func (s *UserService) Cancel(ctx context.Context, userID, chatID int64) (*entity.User, error) {
	return s.repo.Update(ctx, userID, chatID, func(u *entity.User) error {
		u.SetState(entity.StateMainMenu)
		u.TakeLocation()
		return nil
	})
}

// StartProcessing переводит пользователя в обработку и забирает сохранённую
// точку для отчёта. Вторая загрузка во время обработки получает ErrUserBusy.
func (s *UserService) StartProcessing(ctx context.Context, userID, chatID int64) (*entity.Location, error) {
	var loc *entity.Location
	_, err := s.repo.Update(ctx, userID, chatID, func(u *entity.User) error {
		if u.State == entity.StateProcessing {
			return ErrUserBusy
		}
		u.SetState(entity.StateProcessing)
		loc = u.TakeLocation()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return loc, nil
}

// FinishProcessing возвращает пользователя в главное меню после загрузки.
func (s *UserService) FinishProcessing(ctx context.Context, userID, chatID int64) error {
	_, err := s.SetState(ctx, userID, chatID, entity.StateMainMenu)
	return err
}

// AttachLocation запоминает точку для следующей загрузки пользователя.
func (s *UserService) AttachLocation(ctx context.Context, userID, chatID int64, loc entity.Location) (*entity.User, error) {
	return s.repo.Update(ctx, userID, chatID, func(u *entity.User) error {
		u.SetLocation(loc)
		return nil
	})
}
