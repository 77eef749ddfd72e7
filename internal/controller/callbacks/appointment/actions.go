package appointment

import (
	"context"
	"fmt"
	"strconv"

	"github.com/Freeeeeet/telemed_bot/internal/controller/callbacks/callbacktypes"
	"github.com/Freeeeeet/telemed_bot/internal/controller/callbacks/common"
	"github.com/Freeeeeet/telemed_bot/internal/controller/callbacks/common/formatting"
	"github.com/Freeeeeet/telemed_bot/internal/controller/callbacks/common/keyboard"
	"github.com/Freeeeeet/telemed_bot/internal/controller/state"
	"github.com/Freeeeeet/telemed_bot/internal/model"
	"github.com/Freeeeeet/telemed_bot/internal/policy"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type transition func(ctx context.Context, actor policy.Actor, id uuid.UUID) (*model.Appointment, error)

// HandleList ap_list:PAGE
func HandleList(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler) {
	common.WithActor(ctx, b, callback, h, func(hc *common.HandlerContext, actor policy.Actor) {
		page, err := common.ParseID(callback.Data, CbList)
		if err != nil {
			page = 0
		}
		text, kb, err := ListScreen(ctx, h, actor, int(page))
		if err != nil {
			hc.Fail("list appointments", err)
			return
		}
		hc.Answer("")
		hc.Show(text, kb)
	})
}

// HandleView ap_view:UUID
func HandleView(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler) {
	withAppointment(ctx, b, callback, h, CbView, func(hc *common.HandlerContext, actor policy.Actor, id uuid.UUID) {
		showCard(hc, actor, id, "")
	})
}

// HandleEdit ap_edit:UUID спрашивает новую причину обращения
func HandleEdit(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler) {
	withAppointment(ctx, b, callback, h, CbEdit, func(hc *common.HandlerContext, actor policy.Actor, id uuid.UUID) {
		a, actions, err := h.AppointmentService.Get(ctx, actor, id)
		if err != nil {
			hc.Fail("load appointment", err)
			return
		}
		if !actions.Has(policy.ActionEdit) {
			hc.AnswerAlert("🚫 Запись уже нельзя изменить")
			return
		}
		hc.SetData(state.KeyAppointmentID, a.ID.String())
		hc.Prompt(state.StateEditReason, "✏️ Опишите новую причину обращения:")
	})
}

// HandleCancel ap_cancel:UUID
func HandleCancel(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler) {
	withAppointment(ctx, b, callback, h, CbCancel, func(hc *common.HandlerContext, _ policy.Actor, id uuid.UUID) {
		text, kb := RenderCancelConfirm(id)
		hc.Answer("")
		hc.Show(text, kb)
	})
}

// HandleCancelConfirm ap_cancel_ok:UUID отмена без причины
func HandleCancelConfirm(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler) {
	run(ctx, b, callback, h, CbCancelOK, "cancel", "❌ Запись отменена",
		func(ctx context.Context, actor policy.Actor, id uuid.UUID) (*model.Appointment, error) {
			return h.AppointmentService.Cancel(ctx, actor, id, "")
		})
}

// HandleCancelWithReason ap_cancel_why:UUID
func HandleCancelWithReason(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler) {
	withAppointment(ctx, b, callback, h, CbCancelWhy, func(hc *common.HandlerContext, _ policy.Actor, id uuid.UUID) {
		hc.SetData(state.KeyAppointmentID, id.String())
		hc.Prompt(state.StateCancelReason, "✍️ Укажите причину отмены:")
	})
}

// HandleConfirm ap_confirm:UUID врач подтверждает очный приём
func HandleConfirm(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler) {
	run(ctx, b, callback, h, CbConfirm, "confirm", "✅ Приём подтверждён", h.AppointmentService.Confirm)
}

// HandleStart ap_start:UUID
func HandleStart(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler) {
	run(ctx, b, callback, h, CbStart, "start call", "🎥 Приём начат", h.AppointmentService.StartCall)
}

// HandleJoin ap_join:UUID пациент отмечает, что подключился
func HandleJoin(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler) {
	run(ctx, b, callback, h, CbJoin, "check in", "📞 Отмечено, врач скоро подключится", h.AppointmentService.CheckIn)
}

// HandleComplete ap_done:UUID спрашивает заключение врача
func HandleComplete(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler) {
	withAppointment(ctx, b, callback, h, CbComplete, func(hc *common.HandlerContext, _ policy.Actor, id uuid.UUID) {
		hc.SetData(state.KeyAppointmentID, id.String())
		hc.Prompt(state.StateCompleteNotes, "📋 Напишите заключение по приёму или отправьте «-», чтобы завершить без него:")
	})
}

// HandleDocuments ap_docs:UUID
func HandleDocuments(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler) {
	withAppointment(ctx, b, callback, h, CbDocuments, func(hc *common.HandlerContext, actor policy.Actor, id uuid.UUID) {
		docs, err := h.DocumentService.Attached(ctx, actor, id)
		if err != nil {
			hc.Fail("list documents", err)
			return
		}
		text, kb := RenderDocuments(id, docs)
		hc.Answer("")
		hc.Show(text, kb)
	})
}

// HandleDocument ap_doc:UUID:INDEX выдаёт ссылку на просмотр
func HandleDocument(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler) {
	common.WithActor(ctx, b, callback, h, func(hc *common.HandlerContext, actor policy.Actor) {
		args, err := common.CallbackArgs(callback.Data, CbDocument, 2)
		if err != nil {
			hc.Fail("parse document", err)
			return
		}
		id, err := uuid.Parse(args[0])
		if err != nil {
			hc.Fail("parse document", common.ErrInvalidFormat)
			return
		}
		idx, err := strconv.Atoi(args[1])
		if err != nil {
			hc.Fail("parse document", common.ErrInvalidFormat)
			return
		}

		docs, err := h.DocumentService.Attached(ctx, actor, id)
		if err != nil {
			hc.Fail("list documents", err)
			return
		}
		if idx < 0 || idx >= len(docs) {
			hc.Fail("open document", model.ErrNotFound)
			return
		}

		link, err := h.DocumentService.Open(ctx, actor, id, docs[idx].DocumentID)
		if err != nil {
			hc.Fail("open document", err)
			return
		}

		hc.Answer("")
		kb := keyboard.NewBuilder().Row(keyboard.URLButton("📄 Открыть", link.URL)).Build()
		text := fmt.Sprintf("🔗 Ссылка действует до %s (UTC)", formatting.FormatDateTimeIn(link.ExpiresAt, nil))
		if err := hc.SendMessage(text, kb); err != nil {
			h.Logger.Error("Failed to send document link", zap.Error(err))
		}
	})
}

func withAppointment(
	ctx context.Context,
	b *bot.Bot,
	callback *models.CallbackQuery,
	h *callbacktypes.Handler,
	prefix string,
	handler func(*common.HandlerContext, policy.Actor, uuid.UUID),
) {
	common.WithActor(ctx, b, callback, h, func(hc *common.HandlerContext, actor policy.Actor) {
		id, err := common.ParseUUID(callback.Data, prefix)
		if err != nil {
			hc.Fail("parse appointment", err)
			return
		}
		handler(hc, actor, id)
	})
}

// run выполняет переход и показывает обновлённую карточку
func run(
	ctx context.Context,
	b *bot.Bot,
	callback *models.CallbackQuery,
	h *callbacktypes.Handler,
	prefix, operation, done string,
	fn transition,
) {
	withAppointment(ctx, b, callback, h, prefix, func(hc *common.HandlerContext, actor policy.Actor, id uuid.UUID) {
		a, err := fn(ctx, actor, id)
		if err != nil {
			hc.Fail(operation, err)
			if model.IsRetryable(err) {
				refreshCard(hc, actor, id)
			}
			return
		}
		h.Logger.Info("Appointment updated",
			zap.String("operation", operation),
			zap.String("appointment_id", a.ID.String()),
			zap.String("status", string(a.Status)),
			zap.Int64("actor_id", actor.ID()))
		showCard(hc, actor, id, done)
	})
}

func showCard(hc *common.HandlerContext, actor policy.Actor, id uuid.UUID, answer string) {
	text, kb, err := CardScreen(hc.Ctx, hc.Handler, actor, id)
	if err != nil {
		hc.Fail("render appointment", err)
		return
	}
	hc.Answer(answer)
	hc.Show(text, kb)
}

func refreshCard(hc *common.HandlerContext, actor policy.Actor, id uuid.UUID) {
	text, kb, err := CardScreen(hc.Ctx, hc.Handler, actor, id)
	if err != nil {
		hc.Handler.Logger.Error("Failed to render appointment", zap.Error(err))
		return
	}
	hc.Show(text, kb)
}
