package doctor

import (
	"context"
	"time"

	"github.com/Freeeeeet/telemed_bot/internal/controller/callbacks/callbacktypes"
	"github.com/Freeeeeet/telemed_bot/internal/controller/callbacks/common"
	"github.com/Freeeeeet/telemed_bot/internal/controller/state"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// ScheduleScreen экран /myslots врача
func ScheduleScreen(ctx context.Context, h *callbacktypes.Handler, doctorID int64) (string, *models.InlineKeyboardMarkup, error) {
	doctor, err := h.DoctorService.Get(ctx, doctorID)
	if err != nil {
		return "", nil, err
	}

	now := h.Now
	if now == nil {
		now = time.Now
	}
	from := now()
	slots, err := h.DoctorService.Slots(ctx, doctorID, from, from.Add(ScheduleWindow))
	if err != nil {
		return "", nil, err
	}
	weekly, err := h.DoctorService.WeeklySchedules(ctx, doctorID)
	if err != nil {
		return "", nil, err
	}

	text, kb := RenderSchedule(Schedule{Doctor: doctor, Slots: slots, Weekly: weekly})
	return text, kb, nil
}

// HandleHome dc_home
func HandleHome(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler) {
	common.WithDoctor(ctx, b, callback, h, func(hc *common.HandlerContext) {
		show(hc, "")
	})
}

// HandleToggle dc_toggle открывает или закрывает запись к врачу
func HandleToggle(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler) {
	common.WithDoctor(ctx, b, callback, h, func(hc *common.HandlerContext) {
		doctor, err := h.DoctorService.ToggleAccepting(ctx, hc.User.ID)
		if err != nil {
			hc.Fail("toggle accepting", err)
			return
		}
		h.Logger.Info("Doctor accepting toggled",
			zap.Int64("doctor_id", doctor.AccountID),
			zap.Bool("is_active", doctor.IsActive))
		show(hc, "")
	})
}

// HandleAddSlot dc_add_slot
func HandleAddSlot(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler) {
	common.WithDoctor(ctx, b, callback, h, func(hc *common.HandlerContext) {
		hc.Prompt(state.StateAddSlot, SlotPrompt)
	})
}

// HandleAddWeekly dc_add_weekly
func HandleAddWeekly(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler) {
	common.WithDoctor(ctx, b, callback, h, func(hc *common.HandlerContext) {
		hc.Prompt(state.StateAddWeeklySlot, WeeklyPrompt)
	})
}

// HandleDeleteSlot dc_slot_del:ID
func HandleDeleteSlot(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler) {
	common.WithDoctor(ctx, b, callback, h, func(hc *common.HandlerContext) {
		slotID, err := common.ParseID(callback.Data, CbDeleteSlot)
		if err != nil {
			hc.Fail("parse slot", err)
			return
		}
		if err := h.DoctorService.DeleteSlot(ctx, hc.User.ID, slotID); err != nil {
			hc.Fail("delete slot", err)
			return
		}
		show(hc, "🗑 Слот удалён")
	})
}

// HandleWeeklyOff dc_wk_off:ID
func HandleWeeklyOff(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler) {
	common.WithDoctor(ctx, b, callback, h, func(hc *common.HandlerContext) {
		scheduleID, err := common.ParseID(callback.Data, CbWeeklyOff)
		if err != nil {
			hc.Fail("parse schedule", err)
			return
		}
		if err := h.DoctorService.DeactivateWeeklySchedule(ctx, hc.User.ID, scheduleID); err != nil {
			hc.Fail("deactivate schedule", err)
			return
		}
		show(hc, "⏹ Шаблон выключен, созданные слоты остались")
	})
}

func show(hc *common.HandlerContext, answer string) {
	text, kb, err := ScheduleScreen(hc.Ctx, hc.Handler, hc.User.ID)
	if err != nil {
		hc.Fail("render schedule", err)
		return
	}
	hc.Answer(answer)
	hc.Show(text, kb)
}
