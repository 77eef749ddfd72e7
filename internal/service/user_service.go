package service

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/telemed_bot/internal/model"
	"go.uber.org/zap"
)

// Profile данные профиля, которые присылает Telegram
type Profile struct {
	TelegramID   int64
	Username     string
	FirstName    string
	LastName     string
	LanguageCode string
}

type UserService struct {
	users  UserStore
	logger *zap.Logger
}

func NewUserService(users UserStore, logger *zap.Logger) *UserService {
	return &UserService{users: users, logger: logger}
}

// RegisterUser заводит аккаунт пациента или освежает профиль существующего.
// Роль при повторной регистрации сохраняется
func (s *UserService) RegisterUser(ctx context.Context, p Profile) (*model.User, error) {
	if p.TelegramID == 0 {
		return nil, &model.ValidationError{Field: "telegramId"}
	}

	user := &model.User{
		TelegramID:   p.TelegramID,
		Username:     p.Username,
		FirstName:    p.FirstName,
		LastName:     p.LastName,
		LanguageCode: p.LanguageCode,
	}
	created, err := s.users.Upsert(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("register user: %w", err)
	}

	if created {
		s.logger.Info("New user registered",
			zap.Int64("user_id", user.ID),
			zap.Int64("telegram_id", p.TelegramID),
			zap.String("username", p.Username))
	}
	return user, nil
}

// GetByTelegramID nil без ошибки если аккаунта нет
func (s *UserService) GetByTelegramID(ctx context.Context, telegramID int64) (*model.User, error) {
	return s.users.GetByTelegramID(ctx, telegramID)
}

func (s *UserService) GetByID(ctx context.Context, id int64) (*model.User, error) {
	return s.users.GetByID(ctx, id)
}

// DisplayNames имена пользователей по ID для подписей в сообщениях
func (s *UserService) DisplayNames(ctx context.Context, ids []int64) (map[int64]string, error) {
	users, err := s.users.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("get users: %w", err)
	}
	names := make(map[int64]string, len(users))
	for _, u := range users {
		names[u.ID] = u.DisplayName()
	}
	return names, nil
}
