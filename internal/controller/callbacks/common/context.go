package common

import (
	"context"
	"strings"

	"github.com/Freeeeeet/telemed_bot/internal/controller/callbacks/callbacktypes"
	"github.com/Freeeeeet/telemed_bot/internal/controller/state"
	"github.com/Freeeeeet/telemed_bot/internal/model"
	"github.com/Freeeeeet/telemed_bot/internal/policy"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// HandlerContext содержит общие данные для обработки callback
type HandlerContext struct {
	Ctx        context.Context
	Bot        *bot.Bot
	Callback   *models.CallbackQuery
	Handler    *callbacktypes.Handler
	Message    *models.Message
	User       *model.User
	TelegramID int64
	ChatID     int64
}

// NewHandlerContext создаёт новый контекст обработчика
func NewHandlerContext(
	ctx context.Context,
	b *bot.Bot,
	callback *models.CallbackQuery,
	h *callbacktypes.Handler,
) *HandlerContext {
	msg := GetMessageFromCallback(callback)
	var chatID int64
	if msg != nil {
		chatID = msg.Chat.ID
	}

	return &HandlerContext{
		Ctx:        ctx,
		Bot:        b,
		Callback:   callback,
		Handler:    h,
		Message:    msg,
		TelegramID: callback.From.ID,
		ChatID:     chatID,
	}
}

// LoadUser загружает пользователя в контекст
func (hc *HandlerContext) LoadUser() error {
	user, err := hc.Handler.UserService.GetByTelegramID(hc.Ctx, hc.TelegramID)
	if err != nil {
		return err
	}
	if user == nil {
		return ErrUserNotFound
	}
	hc.User = user
	return nil
}

// RequireUser проверяет что пользователь загружен
func (hc *HandlerContext) RequireUser() error {
	if hc.User == nil {
		return hc.LoadUser()
	}
	return nil
}

// RequireDoctor проверяет что пользователь зарегистрирован врачом
func (hc *HandlerContext) RequireDoctor() error {
	if err := hc.RequireUser(); err != nil {
		return err
	}
	if !hc.User.IsDoctor() {
		return ErrNotADoctor
	}
	return nil
}

// Actor собирает актора с актуальными грантами
func (hc *HandlerContext) Actor() (policy.Actor, error) {
	if err := hc.RequireUser(); err != nil {
		return policy.Actor{}, err
	}
	return ActorFor(hc.Ctx, hc.Handler, hc.User)
}

// ActorFor актор для пользователя. Роль врача сохраняется, остальные действуют как пациенты
func ActorFor(ctx context.Context, h *callbacktypes.Handler, user *model.User) (policy.Actor, error) {
	resolver, err := h.DelegationService.ResolverFor(ctx, user.ID)
	if err != nil {
		return policy.Actor{}, err
	}
	role := model.RolePatient
	if user.IsDoctor() {
		role = model.RoleDoctor
	}
	return policy.Actor{Resolver: resolver, Role: role}, nil
}

// Answer отвечает на callback query
func (hc *HandlerContext) Answer(text string) {
	AnswerCallback(hc.Ctx, hc.Bot, hc.Callback.ID, text)
}

// AnswerAlert отвечает на callback query с alert
func (hc *HandlerContext) AnswerAlert(text string) {
	AnswerCallbackAlert(hc.Ctx, hc.Bot, hc.Callback.ID, text)
}

// Fail логирует ошибку и показывает её пользователю
func (hc *HandlerContext) Fail(operation string, err error) {
	hc.Handler.Logger.Warn("Callback failed",
		zap.String("operation", operation),
		zap.Int64("telegram_id", hc.TelegramID),
		zap.Error(err))
	hc.AnswerAlert(ErrorMessage(err))
}

// EditMessage редактирует сообщение
func (hc *HandlerContext) EditMessage(text string, keyboard *models.InlineKeyboardMarkup) error {
	if hc.Message == nil {
		return ErrNoMessage
	}

	_, err := hc.Bot.EditMessageText(hc.Ctx, &bot.EditMessageTextParams{
		ChatID:      hc.ChatID,
		MessageID:   hc.Message.ID,
		Text:        text,
		ParseMode:   models.ParseModeHTML,
		ReplyMarkup: keyboard,
	})

	// Игнорируем ошибку "message is not modified" - это не настоящая ошибка
	if IsMessageNotModifiedError(err) {
		return nil
	}

	return err
}

// Show редактирует сообщение и логирует неудачу
func (hc *HandlerContext) Show(text string, keyboard *models.InlineKeyboardMarkup) {
	if err := hc.EditMessage(text, keyboard); err != nil {
		hc.Handler.Logger.Error("Failed to edit message",
			zap.Int64("telegram_id", hc.TelegramID),
			zap.Error(err))
	}
}

// SendMessage отправляет новое сообщение
func (hc *HandlerContext) SendMessage(text string, keyboard *models.InlineKeyboardMarkup) error {
	params := &bot.SendMessageParams{
		ChatID:    hc.ChatID,
		Text:      text,
		ParseMode: models.ParseModeHTML,
	}
	if keyboard != nil {
		params.ReplyMarkup = keyboard
	}
	_, err := hc.Bot.SendMessage(hc.Ctx, params)
	return err
}

// Prompt переводит пользователя в состояние ожидания текста
func (hc *HandlerContext) Prompt(st state.UserState, text string) {
	hc.Handler.StateManager.SetState(hc.TelegramID, st)
	hc.Answer("")
	if err := hc.SendMessage(text+"\n\nОтменить: /cancel", nil); err != nil {
		hc.Handler.Logger.Error("Failed to send prompt", zap.Error(err))
	}
}

// SetData устанавливает данные в state
func (hc *HandlerContext) SetData(key string, value interface{}) {
	hc.Handler.StateManager.SetData(hc.TelegramID, key, value)
}

// IsMessageNotModifiedError ошибка Telegram при редактировании тем же текстом
func IsMessageNotModifiedError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "message is not modified")
}
