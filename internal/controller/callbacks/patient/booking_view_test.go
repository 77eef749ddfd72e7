package patient

import (
	"context"
	"testing"
	"time"

	"github.com/Freeeeeet/telemed_bot/internal/booking"
	"github.com/Freeeeeet/telemed_bot/internal/delegation"
	"github.com/Freeeeeet/telemed_bot/internal/model"
	"github.com/go-telegram/bot/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

type slotBackend struct{ slots []model.TimeSlot }

func (s slotBackend) AvailableTimeSlots(context.Context, int64, time.Time, time.Time) ([]model.TimeSlot, error) {
	return s.slots, nil
}

func (s slotBackend) BookAppointment(context.Context, booking.Command) (uuid.UUID, error) {
	return uuid.New(), nil
}

func callbacks(kb *models.InlineKeyboardMarkup) []string {
	var out []string
	for _, row := range kb.InlineKeyboard {
		for _, b := range row {
			out = append(out, b.CallbackData)
		}
	}
	return out
}

func newWizard(t *testing.T) *booking.Orchestrator {
	t.Helper()
	backend := slotBackend{slots: []model.TimeSlot{
		{ID: 1, DoctorID: 5, StartTime: now.Add(2 * time.Hour), DurationMinutes: 30, ConsultationMode: model.ModeVirtual, IsAvailable: true},
		{ID: 2, DoctorID: 5, StartTime: now.Add(26 * time.Hour), DurationMinutes: 30, ConsultationMode: model.ModePhysical, IsAvailable: true},
	}}
	m := int64(10)
	grant := model.DelegationGrant{MemberAccountID: &m, PatientID: 11, ManageAppointments: true, ViewAppointments: true}
	o := booking.New(backend, delegation.NewResolver(10, []model.DelegationGrant{grant}), booking.WithClock(func() time.Time { return now }))

	require.NoError(t, o.SelectDoctor(5, time.UTC))
	require.NoError(t, o.LoadAvailability(context.Background()))
	require.NoError(t, o.Advance())
	return o
}

func TestRenderDoctors(t *testing.T) {
	text, kb := RenderDoctors([]*model.Doctor{{AccountID: 5, FullName: "Иванова", Specialty: "Терапевт"}})
	assert.Contains(t, text, "Шаг 1/4")
	assert.Equal(t, []string{"bk_doc:5", CbCancel}, callbacks(kb))

	text, kb = RenderDoctors(nil)
	assert.Contains(t, text, "нет врачей")
	assert.Nil(t, kb)
}

func TestRenderTimeSlotStep(t *testing.T) {
	o := newWizard(t)
	v := Snapshot(o)
	v.Doctor = &model.Doctor{AccountID: 5, FullName: "Иванова", Timezone: "UTC"}

	text, kb := RenderBooking(v)
	assert.Contains(t, text, "Выберите день")
	assert.Contains(t, callbacks(kb), "bk_date:2026-03-10")
	assert.Contains(t, callbacks(kb), "bk_date:2026-03-11")
	assert.NotContains(t, callbacks(kb), "bk_slot:1")

	require.NoError(t, o.SelectTimeSlot(1))
	v = Snapshot(o)
	v.Doctor = &model.Doctor{AccountID: 5, FullName: "Иванова", Timezone: "UTC"}
	text, kb = RenderBooking(v)
	assert.Contains(t, text, "10.03.2026 11:00")
	assert.Contains(t, callbacks(kb), "bk_slot:1")
	assert.NotContains(t, callbacks(kb), "bk_slot:2")
}

func TestRenderDetailsOffersDelegatedPatients(t *testing.T) {
	o := newWizard(t)
	require.NoError(t, o.SelectTimeSlot(1))
	require.NoError(t, o.Advance())

	v := Snapshot(o)
	v.Patients = map[int64]string{10: "Анна", 11: "Пётр"}
	text, kb := RenderBooking(v)

	assert.Contains(t, text, "Анна (я)")
	assert.Contains(t, callbacks(kb), "bk_pat:11")
	assert.Contains(t, callbacks(kb), CbReason)
}

func TestRenderConfirmAndSuccess(t *testing.T) {
	o := newWizard(t)
	require.NoError(t, o.SelectTimeSlot(1))
	require.NoError(t, o.Advance())
	require.NoError(t, o.SetReasonForVisit("кашель"))
	require.NoError(t, o.Advance())

	text, kb := RenderBooking(Snapshot(o))
	assert.Contains(t, text, "кашель")
	assert.Contains(t, text, "оплатить")
	assert.Contains(t, callbacks(kb), CbSubmit)

	id, err := o.Submit(context.Background())
	require.NoError(t, err)

	text, kb = RenderBooking(Snapshot(o))
	assert.Contains(t, text, "Запись создана")
	assert.Contains(t, callbacks(kb), CbViewAppointment+id.String())
}
