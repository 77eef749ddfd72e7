package handlers

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/Freeeeeet/telemed_bot/internal/controller/callbacks/common"
	"github.com/Freeeeeet/telemed_bot/internal/model"
	"github.com/Freeeeeet/telemed_bot/internal/policy"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// sendError отправляет сообщение об ошибке и логирует если не удалось
func (h *Handlers) sendError(ctx context.Context, b *bot.Bot, chatID int64, text string) {
	_, err := b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   text,
	})
	if err != nil {
		h.Logger.Error("Failed to send error message",
			zap.Int64("chat_id", chatID),
			zap.String("text", text),
			zap.Error(err),
		)
	}
}

// sendMessage отправляет HTML сообщение с необязательной клавиатурой
func (h *Handlers) sendMessage(ctx context.Context, b *bot.Bot, chatID int64, text string, kb *models.InlineKeyboardMarkup) {
	params := &bot.SendMessageParams{
		ChatID:    chatID,
		Text:      text,
		ParseMode: models.ParseModeHTML,
	}
	if kb != nil {
		params.ReplyMarkup = kb
	}
	if _, err := b.SendMessage(ctx, params); err != nil {
		h.Logger.Error("Failed to send message",
			zap.Int64("chat_id", chatID),
			zap.Error(err),
		)
	}
}

// fail логирует ошибку операции и показывает пользователю понятный текст
func (h *Handlers) fail(ctx context.Context, b *bot.Bot, chatID int64, operation string, err error) {
	h.Logger.Warn("Command failed",
		zap.String("operation", operation),
		zap.Int64("chat_id", chatID),
		zap.Error(err))
	h.sendError(ctx, b, chatID, common.ErrorMessage(err))
}

// screen отправляет экран, собранный функцией render
func (h *Handlers) screen(ctx context.Context, b *bot.Bot, chatID int64, operation string, text string, kb *models.InlineKeyboardMarkup, err error) {
	if err != nil {
		h.fail(ctx, b, chatID, operation, err)
		return
	}
	h.sendMessage(ctx, b, chatID, text, kb)
}

func (h *Handlers) actor(ctx context.Context, user *model.User) (policy.Actor, error) {
	return common.ActorFor(ctx, h.Handler, user)
}

// checkLength проверяет длину текста в символах
func checkLength(text string, minLen, maxLen int) error {
	n := utf8.RuneCountInString(text)
	if n < minLen {
		return fmt.Errorf("слишком коротко, минимум %d символа", minLen)
	}
	if n > maxLen {
		return fmt.Errorf("слишком длинно, максимум %d символов", maxLen)
	}
	return nil
}

// optional "-" означает пустое значение
func optional(text string) string {
	text = strings.TrimSpace(text)
	if text == emptyMarker {
		return ""
	}
	return text
}
