package handlers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Freeeeeet/telemed_bot/internal/booking"
	"github.com/Freeeeeet/telemed_bot/internal/controller/callbacks/appointment"
	"github.com/Freeeeeet/telemed_bot/internal/controller/callbacks/common/keyboard"
	"github.com/Freeeeeet/telemed_bot/internal/controller/callbacks/family"
	"github.com/Freeeeeet/telemed_bot/internal/controller/callbacks/patient"
	"github.com/Freeeeeet/telemed_bot/internal/controller/state"
	"github.com/Freeeeeet/telemed_bot/internal/lifecycle"
	"github.com/Freeeeeet/telemed_bot/internal/model"
	"github.com/Freeeeeet/telemed_bot/internal/policy"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ============ Мастер записи ============

// handleBookingText причина обращения или комментарий для черновика записи
func (h *Handlers) handleBookingText(ctx context.Context, b *bot.Bot, update *models.Update, st state.UserState) {
	telegramID := update.Message.From.ID
	chatID := update.Message.Chat.ID
	text := strings.TrimSpace(update.Message.Text)

	var err error
	if st == state.StateBookingReason {
		if lenErr := checkLength(text, ReasonMinLength, ReasonMaxLength); lenErr != nil {
			h.sendError(ctx, b, chatID, "❌ Причина "+lenErr.Error()+".\n\nПопробуйте ещё раз:")
			return
		}
		err = h.StateManager.Booking(telegramID, func(o *booking.Orchestrator) error {
			return o.SetReasonForVisit(text)
		})
	} else {
		text = optional(text)
		if lenErr := checkLength(text, 0, NotesMaxLength); lenErr != nil {
			h.sendError(ctx, b, chatID, "❌ Комментарий "+lenErr.Error()+".\n\nПопробуйте ещё раз:")
			return
		}
		err = h.StateManager.Booking(telegramID, func(o *booking.Orchestrator) error {
			return o.SetPatientNotes(text)
		})
	}

	h.StateManager.ClearState(telegramID)
	if err != nil {
		h.fail(ctx, b, chatID, "update booking draft", err)
		return
	}

	screen, kb, err := patient.BookingScreen(ctx, h.Handler, telegramID)
	h.screen(ctx, b, chatID, "render booking", screen, kb, err)
}

// ============ Действия с записью ============

func (h *Handlers) handleEditReason(ctx context.Context, b *bot.Bot, update *models.Update) {
	reason := strings.TrimSpace(update.Message.Text)
	if err := checkLength(reason, ReasonMinLength, ReasonMaxLength); err != nil {
		h.sendError(ctx, b, update.Message.Chat.ID, "❌ Причина "+err.Error()+".\n\nПопробуйте ещё раз:")
		return
	}

	h.appointmentStep(ctx, b, update, "edit reason", func(actor policy.Actor, id uuid.UUID) (*model.Appointment, error) {
		return h.AppointmentService.Update(ctx, actor, id, lifecycle.Edit{ReasonForVisit: &reason})
	})
}

func (h *Handlers) handleCancelReason(ctx context.Context, b *bot.Bot, update *models.Update) {
	reason := optional(update.Message.Text)
	if err := checkLength(reason, 0, CancelReasonMaxLength); err != nil {
		h.sendError(ctx, b, update.Message.Chat.ID, "❌ Причина "+err.Error()+".\n\nПопробуйте ещё раз:")
		return
	}

	h.appointmentStep(ctx, b, update, "cancel", func(actor policy.Actor, id uuid.UUID) (*model.Appointment, error) {
		return h.AppointmentService.Cancel(ctx, actor, id, reason)
	})
}

func (h *Handlers) handleCompleteNotes(ctx context.Context, b *bot.Bot, update *models.Update) {
	notes := optional(update.Message.Text)
	if err := checkLength(notes, 0, NotesMaxLength); err != nil {
		h.sendError(ctx, b, update.Message.Chat.ID, "❌ Заключение "+err.Error()+".\n\nПопробуйте ещё раз:")
		return
	}

	h.appointmentStep(ctx, b, update, "complete call", func(actor policy.Actor, id uuid.UUID) (*model.Appointment, error) {
		return h.AppointmentService.CompleteCall(ctx, actor, id, notes)
	})
}

// appointmentStep завершает диалог над записью из state и показывает обновлённую карточку
func (h *Handlers) appointmentStep(
	ctx context.Context,
	b *bot.Bot,
	update *models.Update,
	operation string,
	fn func(policy.Actor, uuid.UUID) (*model.Appointment, error),
) {
	chatID := update.Message.Chat.ID
	user, ok := h.requireUser(ctx, b, update)
	if !ok {
		return
	}

	raw, _ := h.StateManager.GetString(user.TelegramID, state.KeyAppointmentID)
	h.StateManager.ClearState(user.TelegramID)

	id, err := uuid.Parse(raw)
	if err != nil {
		h.Logger.Error("Missing appointment in dialog state",
			zap.Int64("telegram_id", user.TelegramID),
			zap.String("operation", operation))
		h.sendError(ctx, b, chatID, "❌ Ошибка: данные не найдены. Откройте запись заново через /appointments")
		return
	}

	actor, err := h.actor(ctx, user)
	if err != nil {
		h.fail(ctx, b, chatID, "resolve actor", err)
		return
	}

	a, err := fn(actor, id)
	if err != nil {
		h.fail(ctx, b, chatID, operation, err)
		if !model.IsRetryable(err) {
			return
		}
	} else {
		h.Logger.Info("Appointment updated",
			zap.String("operation", operation),
			zap.String("appointment_id", a.ID.String()),
			zap.String("status", string(a.Status)),
			zap.Int64("actor_id", actor.ID()))
	}

	text, kb, err := appointment.CardScreen(ctx, h.Handler, actor, id)
	h.screen(ctx, b, chatID, "render appointment", text, kb, err)
}

// ============ Семейный доступ ============

func (h *Handlers) handleInviteRelationship(ctx context.Context, b *bot.Bot, update *models.Update) {
	chatID := update.Message.Chat.ID
	relationship := strings.TrimSpace(update.Message.Text)
	if err := checkLength(relationship, 1, RelationshipMaxLength); err != nil {
		h.sendError(ctx, b, chatID, "❌ Ответ "+err.Error()+".\n\nПопробуйте ещё раз:")
		return
	}

	user, ok := h.requireUser(ctx, b, update)
	if !ok {
		return
	}
	h.StateManager.ClearState(user.TelegramID)

	grant, err := h.DelegationService.CreateInvite(ctx, user.ID, relationship, family.DefaultInviteCapabilities())
	if err != nil {
		h.fail(ctx, b, chatID, "create invite", err)
		return
	}

	kb := keyboard.NewBuilder().
		Row(keyboard.Button("⚙️ Настроить права", fmt.Sprintf("%s%d", family.CbGrant, grant.ID))).
		Build()
	h.sendMessage(ctx, b, chatID, family.RenderInviteCreated(*grant), kb)
}

func (h *Handlers) handleEnteringInviteCode(ctx context.Context, b *bot.Bot, update *models.Update) {
	user, ok := h.requireUser(ctx, b, update)
	if !ok {
		return
	}
	if h.acceptInvite(ctx, b, update.Message.Chat.ID, user.ID, update.Message.Text) {
		h.StateManager.ClearState(user.TelegramID)
	}
}

// acceptInvite принимает код. При ошибке ввода пользователь может попробовать ещё раз
func (h *Handlers) acceptInvite(ctx context.Context, b *bot.Bot, chatID, memberID int64, code string) bool {
	grant, err := h.DelegationService.AcceptInvite(ctx, memberID, code)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) || errors.Is(err, model.ErrValidation) {
			h.sendError(ctx, b, chatID, "❌ Код не подошёл: он неверный или уже использован.\n\nВведите другой код или /cancel")
			return false
		}
		h.fail(ctx, b, chatID, "accept invite", err)
		return true
	}

	h.Logger.Info("Invite accepted",
		zap.Int64("grant_id", grant.ID),
		zap.Int64("member_id", memberID),
		zap.Int64("patient_id", grant.PatientID))

	h.sendMessage(ctx, b, chatID,
		"✅ Приглашение принято.\n\nЗаписи родственника появятся в /appointments, записать его можно через /book.", nil)
	return true
}
