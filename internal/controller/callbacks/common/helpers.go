package common

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/google/uuid"
)

// AnswerCallback отвечает на callback query (без alert)
func AnswerCallback(ctx context.Context, b *bot.Bot, callbackID string, text string) {
	b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: callbackID,
		Text:            text,
		ShowAlert:       false,
	})
}

// AnswerCallbackAlert отвечает на callback query с alert (всплывающее окно)
func AnswerCallbackAlert(ctx context.Context, b *bot.Bot, callbackID string, text string) {
	b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: callbackID,
		Text:            text,
		ShowAlert:       true,
	})
}

// GetMessageFromCallback извлекает сообщение из callback query
func GetMessageFromCallback(callback *models.CallbackQuery) *models.Message {
	if callback.Message.Message != nil {
		return callback.Message.Message
	}
	return nil
}

// CallbackArgs части callback data после префикса.
// Например: "fm_tgl:12:view_records" с prefix "fm_tgl:" -> ["12", "view_records"]
func CallbackArgs(data, prefix string, n int) ([]string, error) {
	rest, ok := strings.CutPrefix(data, prefix)
	if !ok {
		return nil, ErrInvalidFormat
	}
	parts := strings.Split(rest, ":")
	if len(parts) != n {
		return nil, ErrInvalidFormat
	}
	for _, p := range parts {
		if p == "" {
			return nil, ErrInvalidFormat
		}
	}
	return parts, nil
}

// ParseID извлекает числовой ID
// Например: "dc_slot_del:123" -> 123
func ParseID(data, prefix string) (int64, error) {
	args, err := CallbackArgs(data, prefix, 1)
	if err != nil {
		return 0, err
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	return id, nil
}

// ParseUUID извлекает UUID записи
func ParseUUID(data, prefix string) (uuid.UUID, error) {
	args, err := CallbackArgs(data, prefix, 1)
	if err != nil {
		return uuid.Nil, err
	}
	id, err := uuid.Parse(args[0])
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	return id, nil
}
