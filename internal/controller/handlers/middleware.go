package handlers

import (
	"context"

	"github.com/Freeeeeet/telemed_bot/internal/model"
	"github.com/Freeeeeet/telemed_bot/internal/service"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// requireUser находит аккаунт отправителя. Того, кто ещё не нажимал /start
// (например родственник пришёл сразу с кодом приглашения), регистрирует как пациента
func (h *Handlers) requireUser(ctx context.Context, b *bot.Bot, update *models.Update) (*model.User, bool) {
	msg := update.Message
	if msg == nil || msg.From == nil {
		return nil, false
	}

	user, err := h.UserService.GetByTelegramID(ctx, msg.From.ID)
	if err == nil && user == nil {
		user, err = h.UserService.RegisterUser(ctx, service.Profile{
			TelegramID:   msg.From.ID,
			Username:     msg.From.Username,
			FirstName:    msg.From.FirstName,
			LastName:     msg.From.LastName,
			LanguageCode: msg.From.LanguageCode,
		})
	}
	if err != nil {
		h.Logger.Error("Failed to resolve user", zap.Int64("telegram_id", msg.From.ID), zap.Error(err))
		h.sendError(ctx, b, msg.Chat.ID, "❌ Произошла ошибка. Попробуйте позже.")
		return nil, false
	}
	return user, true
}

// requireDoctor пропускает только зарегистрированных врачей
func (h *Handlers) requireDoctor(ctx context.Context, b *bot.Bot, update *models.Update) (*model.User, bool) {
	user, ok := h.requireUser(ctx, b, update)
	if !ok {
		return nil, false
	}
	if !user.IsDoctor() {
		h.sendError(ctx, b, update.Message.Chat.ID,
			"❌ Раздел доступен только врачам.\n\nЗарегистрироваться врачом: /becomedoctor")
		return nil, false
	}
	return user, true
}
