package appointment

import (
	"context"

	"github.com/Freeeeeet/telemed_bot/internal/controller/callbacks/callbacktypes"
	"github.com/Freeeeeet/telemed_bot/internal/delegation"
	"github.com/Freeeeeet/telemed_bot/internal/model"
	"github.com/Freeeeeet/telemed_bot/internal/policy"
	"github.com/go-telegram/bot/models"
	"github.com/google/uuid"
)

// CardScreen загружает запись и собирает карточку для актора
func CardScreen(ctx context.Context, h *callbacktypes.Handler, actor policy.Actor, id uuid.UUID) (string, *models.InlineKeyboardMarkup, error) {
	a, actions, err := h.AppointmentService.Get(ctx, actor, id)
	if err != nil {
		return "", nil, err
	}

	doctor, err := h.DoctorService.Get(ctx, a.DoctorID)
	if err != nil {
		return "", nil, err
	}
	names, err := h.UserService.DisplayNames(ctx, []int64{a.PatientID})
	if err != nil {
		return "", nil, err
	}

	text, kb := RenderCard(BuildCard(h, actor, *a, actions, doctor, names[a.PatientID]))
	return text, kb, nil
}

// BuildCard вычисляет кнопки, которые не покрывает набор действий политики
func BuildCard(h *callbacktypes.Handler, actor policy.Actor, a model.Appointment, actions policy.ActionSet, doctor *model.Doctor, patientName string) Card {
	svc := h.AppointmentService
	assigned := actor.IsAssignedDoctor(a)
	live := a.Status == model.StatusReadyForCall || a.Status == model.StatusInProgress

	c := Card{
		Appointment:      a,
		Actions:          actions,
		Doctor:           doctor,
		PatientName:      patientName,
		CanConfirm:       assigned && a.Status == model.StatusPending,
		CanJoin:          !assigned && live && a.CheckedInAt == nil && actor.Resolver.Resolve(a.PatientID).Has(delegation.ManageAppointments),
		DocumentsVisible: svc.Policy().CanViewDocuments(a, actor),
		PaymentURL:       h.PaymentURL,
	}
	if actions.Has(policy.ActionPay) {
		c.PaymentDeadline = svc.Machine().PaymentDeadline(a)
	}
	return c
}

// ListScreen страница записей, доступных актору
func ListScreen(ctx context.Context, h *callbacktypes.Handler, actor policy.Actor, page int) (string, *models.InlineKeyboardMarkup, error) {
	list, err := h.AppointmentService.ListForActor(ctx, actor)
	if err != nil {
		return "", nil, err
	}

	ids := make([]int64, 0, len(list))
	for _, a := range list {
		ids = append(ids, a.DoctorID)
	}
	doctors, err := h.DoctorService.ByIDs(ctx, ids)
	if err != nil {
		return "", nil, err
	}

	text, kb := RenderList(list, doctors, page)
	return text, kb, nil
}
