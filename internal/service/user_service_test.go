package service

import (
	"context"
	"testing"

	"github.com/Freeeeeet/telemed_bot/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRegisterUserKeepsRole(t *testing.T) {
	users := newFakeUsers(model.User{ID: 7, TelegramID: 700, FirstName: "Ирина", Role: model.RoleDoctor})
	svc := NewUserService(users, zap.NewNop())
	ctx := context.Background()

	u, err := svc.RegisterUser(ctx, Profile{TelegramID: 700, FirstName: "Ирина", LastName: "Соколова"})
	require.NoError(t, err)
	assert.Equal(t, int64(7), u.ID)
	assert.Equal(t, model.RoleDoctor, u.Role)
	assert.Equal(t, "Ирина Соколова", u.DisplayName())

	u, err = svc.RegisterUser(ctx, Profile{TelegramID: 800, FirstName: "Пётр"})
	require.NoError(t, err)
	assert.Equal(t, int64(8), u.ID)
	assert.Equal(t, model.RolePatient, u.Role)

	_, err = svc.RegisterUser(ctx, Profile{})
	assert.ErrorIs(t, err, model.ErrValidation)
}

func TestDisplayNames(t *testing.T) {
	svc := NewUserService(newFakeUsers(
		model.User{ID: 1, TelegramID: 10, FirstName: "Анна", LastName: "Петрова"},
		model.User{ID: 2, TelegramID: 20, FirstName: "Олег"},
	), zap.NewNop())

	names, err := svc.DisplayNames(context.Background(), []int64{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, map[int64]string{1: "Анна Петрова", 2: "Олег"}, names)
}
