package handlers

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"

	"github.com/Freeeeeet/telemed_bot/internal/controller/callbacks/common"
	"github.com/Freeeeeet/telemed_bot/internal/controller/callbacks/common/formatting"
	"github.com/Freeeeeet/telemed_bot/internal/controller/callbacks/doctor"
	"github.com/Freeeeeet/telemed_bot/internal/controller/state"
	"github.com/Freeeeeet/telemed_bot/internal/model"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// ============ Регистрация врача ============

func (h *Handlers) handleDoctorFullName(ctx context.Context, b *bot.Bot, update *models.Update) {
	telegramID := update.Message.From.ID
	name := strings.TrimSpace(update.Message.Text)
	if err := checkLength(name, FullNameMinLength, FullNameMaxLength); err != nil {
		h.sendError(ctx, b, update.Message.Chat.ID, "❌ ФИО "+err.Error()+".\n\nПопробуйте ещё раз:")
		return
	}

	h.StateManager.SetData(telegramID, state.KeyFullName, name)
	h.StateManager.SetState(telegramID, state.StateDoctorSpecialty)
	h.sendMessage(ctx, b, update.Message.Chat.ID, "Шаг 2 из 3: Укажите специальность. Например: терапевт, педиатр.", nil)
}

func (h *Handlers) handleDoctorSpecialty(ctx context.Context, b *bot.Bot, update *models.Update) {
	telegramID := update.Message.From.ID
	specialty := strings.TrimSpace(update.Message.Text)
	if err := checkLength(specialty, 2, SpecialtyMaxLength); err != nil {
		h.sendError(ctx, b, update.Message.Chat.ID, "❌ Специальность "+err.Error()+".\n\nПопробуйте ещё раз:")
		return
	}

	h.StateManager.SetData(telegramID, state.KeySpecialty, specialty)
	h.StateManager.SetState(telegramID, state.StateDoctorTimezone)
	h.sendMessage(ctx, b, update.Message.Chat.ID,
		"Шаг 3 из 3: Ваш часовой пояс, например <code>Europe/Moscow</code>. "+
			"В нём вы будете вводить время слотов.\n\nОтправьте «-», чтобы использовать UTC.", nil)
}

func (h *Handlers) handleDoctorTimezone(ctx context.Context, b *bot.Bot, update *models.Update) {
	chatID := update.Message.Chat.ID
	user, ok := h.requireUser(ctx, b, update)
	if !ok {
		return
	}

	fullName, ok1 := h.StateManager.GetString(user.TelegramID, state.KeyFullName)
	specialty, ok2 := h.StateManager.GetString(user.TelegramID, state.KeySpecialty)
	if !ok1 || !ok2 {
		h.StateManager.ClearState(user.TelegramID)
		h.sendError(ctx, b, chatID, "❌ Ошибка: данные не найдены. Начните заново через /becomedoctor")
		return
	}

	d, err := h.DoctorService.Register(ctx, user.ID, fullName, specialty, optional(update.Message.Text))
	if err != nil {
		var verr *model.ValidationError
		if errors.As(err, &verr) && verr.Field == "timezone" {
			h.sendError(ctx, b, chatID, "❌ Неизвестный часовой пояс. Пример: Europe/Moscow\n\nПопробуйте ещё раз:")
			return
		}
		h.StateManager.ClearState(user.TelegramID)
		h.fail(ctx, b, chatID, "register doctor", err)
		return
	}
	h.StateManager.ClearState(user.TelegramID)

	h.sendMessage(ctx, b, chatID, fmt.Sprintf("✅ Профиль врача сохранён: %s, %s.\n\nДобавьте слоты приёма:",
		html.EscapeString(d.FullName), html.EscapeString(d.Specialty)), nil)
	h.sendSchedule(ctx, b, chatID, d.AccountID)
}

// ============ Слоты ============

func (h *Handlers) handleAddSlot(ctx context.Context, b *bot.Bot, update *models.Update) {
	chatID := update.Message.Chat.ID
	user, ok := h.requireUser(ctx, b, update)
	if !ok {
		return
	}

	d, err := h.DoctorService.Get(ctx, user.ID)
	if err != nil {
		h.StateManager.ClearState(user.TelegramID)
		h.fail(ctx, b, chatID, "load doctor", err)
		return
	}

	in, err := doctor.ParseSlotInput(update.Message.Text, d.Location())
	if err == nil {
		_, err = h.DoctorService.PublishSlot(ctx, d.AccountID, in.Start, in.DurationMinutes, in.Mode)
	}
	if err != nil {
		if errors.Is(err, model.ErrValidation) {
			h.sendError(ctx, b, chatID, common.ErrorMessage(err)+"\n\nПопробуйте ещё раз или /cancel")
			return
		}
		h.StateManager.ClearState(user.TelegramID)
		h.fail(ctx, b, chatID, "publish slot", err)
		return
	}
	h.StateManager.ClearState(user.TelegramID)

	h.sendMessage(ctx, b, chatID, fmt.Sprintf("✅ Слот %s добавлен.",
		formatting.FormatDateTimeIn(in.Start, d.Location())), nil)
	h.sendSchedule(ctx, b, chatID, d.AccountID)
}

func (h *Handlers) handleAddWeeklySlot(ctx context.Context, b *bot.Bot, update *models.Update) {
	chatID := update.Message.Chat.ID
	user, ok := h.requireUser(ctx, b, update)
	if !ok {
		return
	}

	schedule, err := doctor.ParseWeeklyInput(update.Message.Text)
	if err != nil {
		h.sendError(ctx, b, chatID, common.ErrorMessage(err)+"\n\nПопробуйте ещё раз или /cancel")
		return
	}
	schedule.DoctorID = user.ID

	created, err := h.DoctorService.AddWeeklySchedule(ctx, schedule, doctor.WeeksAhead)
	h.StateManager.ClearState(user.TelegramID)
	if err != nil {
		h.fail(ctx, b, chatID, "add weekly schedule", err)
		return
	}

	h.sendMessage(ctx, b, chatID, fmt.Sprintf("✅ Шаблон добавлен: %s %02d:%02d. Создано %d %s на %d %s вперёд.",
		formatting.GetWeekdayName(schedule.Weekday), schedule.StartHour, schedule.StartMinute,
		created, formatting.PluralizeSlots(created),
		doctor.WeeksAhead, formatting.PluralizeWeeks(doctor.WeeksAhead)), nil)
	h.sendSchedule(ctx, b, chatID, user.ID)
}

func (h *Handlers) sendSchedule(ctx context.Context, b *bot.Bot, chatID, doctorID int64) {
	text, kb, err := doctor.ScheduleScreen(ctx, h.Handler, doctorID)
	h.screen(ctx, b, chatID, "render schedule", text, kb, err)
}
