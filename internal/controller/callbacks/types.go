package callbacks

import (
	"context"

	"github.com/Freeeeeet/telemed_bot/internal/controller/callbacks/callbacktypes"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// Handler обертка для callbacktypes.Handler с методами
type Handler struct {
	*callbacktypes.Handler
}

// NewHandler создаёт обработчик callbacks с зависимостями
func NewHandler(deps *callbacktypes.Handler) *Handler {
	return &Handler{Handler: deps}
}

// HandleCallbackQuery точка входа для нажатий inline-кнопок.
// Паника в обработчике логируется, процесс бота продолжает работу
func (h *Handler) HandleCallbackQuery(ctx context.Context, b *bot.Bot, update *models.Update) {
	callback := update.CallbackQuery
	if callback == nil {
		return
	}

	h.Logger.Debug("Callback received",
		zap.String("data", callback.Data),
		zap.Int64("user_id", callback.From.ID))

	defer func() {
		if r := recover(); r != nil {
			h.Logger.Error("Callback handler panicked",
				zap.String("data", callback.Data),
				zap.Any("panic", r),
				zap.Stack("stack"))
			b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
				CallbackQueryID: callback.ID,
				Text:            "❌ Произошла ошибка. Попробуйте позже.",
				ShowAlert:       true,
			})
		}
	}()

	Route(ctx, b, callback, h.Handler)
}
