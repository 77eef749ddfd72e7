package callbacks

import (
	"context"
	"strings"

	"github.com/Freeeeeet/telemed_bot/internal/controller/callbacks/appointment"
	"github.com/Freeeeeet/telemed_bot/internal/controller/callbacks/callbacktypes"
	"github.com/Freeeeeet/telemed_bot/internal/controller/callbacks/common"
	"github.com/Freeeeeet/telemed_bot/internal/controller/callbacks/common/keyboard"
	"github.com/Freeeeeet/telemed_bot/internal/controller/callbacks/doctor"
	"github.com/Freeeeeet/telemed_bot/internal/controller/callbacks/family"
	"github.com/Freeeeeet/telemed_bot/internal/controller/callbacks/patient"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

type callbackFunc func(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler)

// exact callback data без аргументов
var exact = map[string]callbackFunc{
	keyboard.Noop: func(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, _ *callbacktypes.Handler) {
		common.AnswerCallback(ctx, b, callback.ID, "")
	},

	// Мастер записи
	patient.CbNew:     patient.HandleNew,
	patient.CbReason:  patient.HandleReason,
	patient.CbNotes:   patient.HandleNotes,
	patient.CbRefresh: patient.HandleRefresh,
	patient.CbNext:    patient.HandleNext,
	patient.CbBack:    patient.HandleBack,
	patient.CbSubmit:  patient.HandleSubmit,
	patient.CbCancel:  patient.HandleCancel,

	// Семейный доступ
	family.CbHome:   family.HandleHome,
	family.CbInvite: family.HandleInvite,
	family.CbAccept: family.HandleAccept,

	// Расписание врача
	doctor.CbHome:      doctor.HandleHome,
	doctor.CbToggle:    doctor.HandleToggle,
	doctor.CbAddSlot:   doctor.HandleAddSlot,
	doctor.CbAddWeekly: doctor.HandleAddWeekly,
}

// prefixed callback data вида prefix:args. Префиксы не пересекаются: каждый заканчивается двоеточием
var prefixed = []struct {
	prefix  string
	handler callbackFunc
}{
	{patient.CbDoctor, patient.HandleSelectDoctor},
	{patient.CbMode, patient.HandleMode},
	{patient.CbDate, patient.HandleDate},
	{patient.CbSlot, patient.HandleSlot},
	{patient.CbPatient, patient.HandlePatient},

	{appointment.CbList, appointment.HandleList},
	{appointment.CbView, appointment.HandleView},
	{appointment.CbEdit, appointment.HandleEdit},
	{appointment.CbCancel, appointment.HandleCancel},
	{appointment.CbCancelOK, appointment.HandleCancelConfirm},
	{appointment.CbCancelWhy, appointment.HandleCancelWithReason},
	{appointment.CbConfirm, appointment.HandleConfirm},
	{appointment.CbStart, appointment.HandleStart},
	{appointment.CbComplete, appointment.HandleComplete},
	{appointment.CbJoin, appointment.HandleJoin},
	{appointment.CbDocuments, appointment.HandleDocuments},
	{appointment.CbDocument, appointment.HandleDocument},

	{family.CbGrant, family.HandleGrant},
	{family.CbToggle, family.HandleToggle},
	{family.CbRevoke, family.HandleRevoke},
	{family.CbRevokeOK, family.HandleRevokeConfirm},

	{doctor.CbDeleteSlot, doctor.HandleDeleteSlot},
	{doctor.CbWeeklyOff, doctor.HandleWeeklyOff},
}

// Route распределяет callback query по соответствующим обработчикам
func Route(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler) {
	handler := lookup(callback.Data)
	if handler == nil {
		h.Logger.Warn("Unknown callback",
			zap.String("data", callback.Data),
			zap.Int64("user_id", callback.From.ID))
		common.AnswerCallback(ctx, b, callback.ID, "❌ Неизвестная команда")
		return
	}
	handler(ctx, b, callback, h)
}

func lookup(data string) callbackFunc {
	if handler, ok := exact[data]; ok {
		return handler
	}
	for _, p := range prefixed {
		if strings.HasPrefix(data, p.prefix) {
			return p.handler
		}
	}
	return nil
}
