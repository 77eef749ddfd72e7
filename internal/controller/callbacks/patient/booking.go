package patient

import (
	"context"
	"errors"
	"strings"

	"github.com/Freeeeeet/telemed_bot/internal/availability"
	"github.com/Freeeeeet/telemed_bot/internal/booking"
	"github.com/Freeeeeet/telemed_bot/internal/controller/callbacks/callbacktypes"
	"github.com/Freeeeeet/telemed_bot/internal/controller/callbacks/common"
	"github.com/Freeeeeet/telemed_bot/internal/controller/state"
	"github.com/Freeeeeet/telemed_bot/internal/model"
	"github.com/Freeeeeet/telemed_bot/internal/policy"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// BookingScreen экран текущего шага мастера записи пользователя
func BookingScreen(ctx context.Context, h *callbacktypes.Handler, telegramID int64) (string, *models.InlineKeyboardMarkup, error) {
	var v BookingView
	err := h.StateManager.Booking(telegramID, func(o *booking.Orchestrator) error {
		v = Snapshot(o)
		return nil
	})
	if err != nil {
		return "", nil, err
	}

	switch v.Draft.CurrentStep {
	case booking.StepSelectDoctor:
		doctors, err := h.DoctorService.ListActive(ctx)
		if err != nil {
			return "", nil, err
		}
		v.Doctors = doctors
	case booking.StepSuccess:
	default:
		doctor, err := h.DoctorService.Get(ctx, v.Draft.SelectedDoctorID)
		if err != nil {
			return "", nil, err
		}
		v.Doctor = doctor

		names, err := h.UserService.DisplayNames(ctx, append(v.Choices, v.Draft.PatientID))
		if err != nil {
			return "", nil, err
		}
		v.Patients = names
	}

	text, kb := RenderBooking(v)
	return text, kb, nil
}

// NewOrchestrator мастер записи для актора
func NewOrchestrator(h *callbacktypes.Handler, actor policy.Actor) *booking.Orchestrator {
	opts := []booking.Option{booking.WithHorizon(h.BookingHorizon)}
	if h.Now != nil {
		opts = append(opts, booking.WithClock(h.Now))
	}
	return booking.New(h.AppointmentService.BookingBackend(actor), actor.Resolver, opts...)
}

// HandleNew начинает запись заново
func HandleNew(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler) {
	common.WithActor(ctx, b, callback, h, func(hc *common.HandlerContext, actor policy.Actor) {
		h.StateManager.ClearState(hc.TelegramID)
		h.StateManager.StartBooking(hc.TelegramID, NewOrchestrator(h, actor))
		show(hc)
	})
}

// HandleSelectDoctor bk_doc:ID выбор врача и загрузка его слотов
func HandleSelectDoctor(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler) {
	common.WithActor(ctx, b, callback, h, func(hc *common.HandlerContext, actor policy.Actor) {
		doctorID, err := common.ParseID(callback.Data, CbDoctor)
		if err != nil {
			hc.Fail("parse doctor", err)
			return
		}
		doctor, err := h.DoctorService.Get(ctx, doctorID)
		if err != nil {
			hc.Fail("get doctor", err)
			return
		}

		// Возврат на первый шаг сохраняет черновик, иначе начинаем заново
		reuse, err := reusableSession(h.StateManager, hc.TelegramID)
		if err != nil {
			hc.Fail("load booking session", err)
			return
		}
		if !reuse {
			h.StateManager.StartBooking(hc.TelegramID, NewOrchestrator(h, actor))
		}

		mutate(hc, "select doctor", func(o *booking.Orchestrator) error {
			if err := o.SelectDoctor(doctor.AccountID, doctor.Location()); err != nil {
				return err
			}
			if err := o.LoadAvailability(ctx); err != nil {
				return err
			}
			return o.Advance()
		})
	})
}

// HandleMode bk_mode:filter
func HandleMode(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler) {
	hc := common.NewHandlerContext(ctx, b, callback, h)
	filter := availability.ModeFilter(strings.TrimPrefix(callback.Data, CbMode))
	mutate(hc, "set mode filter", func(o *booking.Orchestrator) error {
		return o.SetModeFilter(filter)
	})
}

// HandleDate bk_date:YYYY-MM-DD
func HandleDate(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler) {
	hc := common.NewHandlerContext(ctx, b, callback, h)
	d, err := availability.ParseDate(strings.TrimPrefix(callback.Data, CbDate))
	if err != nil {
		hc.Fail("parse date", common.ErrInvalidFormat)
		return
	}
	mutate(hc, "select date", func(o *booking.Orchestrator) error {
		return o.SelectDate(d)
	})
}

// HandleSlot bk_slot:ID
func HandleSlot(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler) {
	hc := common.NewHandlerContext(ctx, b, callback, h)
	slotID, err := common.ParseID(callback.Data, CbSlot)
	if err != nil {
		hc.Fail("parse slot", err)
		return
	}
	mutate(hc, "select slot", func(o *booking.Orchestrator) error {
		return o.SelectTimeSlot(slotID)
	})
}

// HandleRefresh перечитывает свободные слоты
func HandleRefresh(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler) {
	hc := common.NewHandlerContext(ctx, b, callback, h)
	mutate(hc, "refresh availability", func(o *booking.Orchestrator) error {
		return o.LoadAvailability(ctx)
	})
}

// HandlePatient bk_pat:ID выбор пациента (себя или родственника)
func HandlePatient(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler) {
	hc := common.NewHandlerContext(ctx, b, callback, h)
	patientID, err := common.ParseID(callback.Data, CbPatient)
	if err != nil {
		hc.Fail("parse patient", err)
		return
	}
	mutate(hc, "select patient", func(o *booking.Orchestrator) error {
		return o.SelectPatient(patientID)
	})
}

// HandleReason запрашивает причину обращения текстом
func HandleReason(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler) {
	prompt(common.NewHandlerContext(ctx, b, callback, h), state.StateBookingReason,
		"🩺 Опишите причину обращения одним сообщением:")
}

// HandleNotes запрашивает комментарий для врача
func HandleNotes(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler) {
	prompt(common.NewHandlerContext(ctx, b, callback, h), state.StateBookingNotes,
		"💬 Напишите комментарий для врача (или «-», чтобы очистить):")
}

func prompt(hc *common.HandlerContext, st state.UserState, text string) {
	err := hc.Handler.StateManager.Booking(hc.TelegramID, func(o *booking.Orchestrator) error {
		if o.Step() != booking.StepEnterDetails {
			return booking.ErrWrongStep
		}
		return nil
	})
	if err != nil {
		hc.Fail("prompt", err)
		return
	}
	hc.Prompt(st, text)
}

// HandleNext проверяет шаг и идёт дальше
func HandleNext(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler) {
	hc := common.NewHandlerContext(ctx, b, callback, h)
	mutate(hc, "advance", func(o *booking.Orchestrator) error {
		return o.Advance()
	})
}

// HandleBack шаг назад
func HandleBack(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler) {
	hc := common.NewHandlerContext(ctx, b, callback, h)
	mutate(hc, "retreat", func(o *booking.Orchestrator) error {
		return o.Retreat()
	})
}

// HandleSubmit отправляет запись. При устаревшем слоте экран перерисовывается
// со свежими слотами, черновик остаётся как был
func HandleSubmit(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler) {
	hc := common.NewHandlerContext(ctx, b, callback, h)

	err := h.StateManager.Booking(hc.TelegramID, func(o *booking.Orchestrator) error {
		id, err := o.Submit(ctx)
		if err != nil {
			return err
		}
		h.Logger.Info("Appointment booked from chat",
			zap.Int64("telegram_id", hc.TelegramID),
			zap.String("appointment_id", id.String()))
		return nil
	})
	if err != nil {
		hc.Fail("submit booking", err)
		if errors.Is(err, model.ErrStaleResource) {
			refresh(hc)
		}
		return
	}

	hc.Answer("✅ Готово")
	refresh(hc)
}

// HandleCancel выход из мастера записи
func HandleCancel(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler) {
	hc := common.NewHandlerContext(ctx, b, callback, h)
	h.StateManager.Reset(hc.TelegramID)
	hc.Answer("")
	hc.Show("❌ Запись отменена.\n\nНачать заново: /book", nil)
}

// mutate применяет fn к мастеру и перерисовывает экран
func mutate(hc *common.HandlerContext, operation string, fn func(*booking.Orchestrator) error) {
	if err := hc.Handler.StateManager.Booking(hc.TelegramID, fn); err != nil {
		hc.Fail(operation, err)
		return
	}
	show(hc)
}

func show(hc *common.HandlerContext) {
	text, kb, err := BookingScreen(hc.Ctx, hc.Handler, hc.TelegramID)
	if err != nil {
		hc.Fail("render booking", err)
		return
	}
	hc.Answer("")
	hc.Show(text, kb)
}

// refresh перерисовка без ответа на callback
func refresh(hc *common.HandlerContext) {
	text, kb, err := BookingScreen(hc.Ctx, hc.Handler, hc.TelegramID)
	if err != nil {
		hc.Handler.Logger.Error("Failed to render booking", zap.Error(err))
		return
	}
	hc.Show(text, kb)
}

// reusableSession можно ли продолжить начатый мастер: он стоит на выборе врача.
// Отсутствие мастера не ошибка
func reusableSession(sm *state.Manager, telegramID int64) (bool, error) {
	reuse := false
	err := sm.Booking(telegramID, func(o *booking.Orchestrator) error {
		reuse = o.Step() == booking.StepSelectDoctor
		return nil
	})
	if err != nil && !errors.Is(err, state.ErrNoBookingSession) {
		return false, err
	}
	return reuse, nil
}
