package service

import (
	"context"
	"testing"
	"time"

	"github.com/Freeeeeet/telemed_bot/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newDoctorEnv() (*DoctorService, *fakeSlots) {
	slots := newFakeSlots()
	doctors := newFakeDoctors(model.Doctor{AccountID: doctorID, FullName: "Петрова А.А.", Specialty: "Педиатр", Timezone: "Europe/Moscow", IsActive: true})
	svc := NewDoctorService(doctors, slots, &fakeSchedules{}, zap.NewNop())
	svc.now = func() time.Time { return baseTime }
	return svc, slots
}

func TestOccurrencesUseDoctorTimezone(t *testing.T) {
	msk, err := time.LoadLocation("Europe/Moscow")
	require.NoError(t, err)

	// baseTime вторник 09:00 UTC = 12:00 MSK
	schedule := model.RecurringSchedule{Weekday: int(time.Tuesday), StartHour: 10, StartMinute: 30, DurationMinutes: 30}
	got := occurrences(schedule, msk, baseTime, 2)

	require.Len(t, got, 1)
	assert.Equal(t, time.Date(2026, 3, 17, 10, 30, 0, 0, msk), got[0])

	schedule.StartHour = 15
	got = occurrences(schedule, msk, baseTime, 2)
	require.Len(t, got, 2)
	assert.Equal(t, time.Date(2026, 3, 10, 15, 0, 0, 0, msk), got[0])
}

func TestAddWeeklyScheduleGeneratesSlotsOnce(t *testing.T) {
	svc, slots := newDoctorEnv()
	ctx := context.Background()

	schedule := &model.RecurringSchedule{
		DoctorID:         doctorID,
		Weekday:          int(time.Wednesday),
		StartHour:        9,
		DurationMinutes:  45,
		ConsultationMode: model.ModeVirtual,
	}
	count, err := svc.AddWeeklySchedule(ctx, schedule, 4)
	require.NoError(t, err)
	assert.Equal(t, 4, count)

	again, err := svc.GenerateSlotsForAllRecurringSchedules(ctx, 4)
	require.NoError(t, err)
	assert.Zero(t, again)

	list, err := slots.ListByDoctor(ctx, doctorID, baseTime, baseTime.Add(60*24*time.Hour))
	require.NoError(t, err)
	require.Len(t, list, 4)
	for _, s := range list {
		assert.Equal(t, model.ModeVirtual, s.ConsultationMode)
		assert.Equal(t, 45, s.DurationMinutes)
		assert.True(t, s.IsAvailable)
	}
}

func TestAddWeeklyScheduleValidates(t *testing.T) {
	svc, _ := newDoctorEnv()

	_, err := svc.AddWeeklySchedule(context.Background(), &model.RecurringSchedule{
		DoctorID: doctorID, Weekday: 7, DurationMinutes: 30, ConsultationMode: model.ModeVirtual,
	}, 4)
	assert.ErrorIs(t, err, model.ErrValidation)
}

func TestPublishSlot(t *testing.T) {
	svc, _ := newDoctorEnv()
	ctx := context.Background()

	slot, err := svc.PublishSlot(ctx, doctorID, baseTime.Add(time.Hour), 30, model.ModePhysical)
	require.NoError(t, err)
	assert.NotZero(t, slot.ID)

	_, err = svc.PublishSlot(ctx, doctorID, baseTime.Add(-time.Hour), 30, model.ModePhysical)
	assert.ErrorIs(t, err, model.ErrValidation)

	_, err = svc.PublishSlot(ctx, doctorID, baseTime.Add(time.Hour), 30, "phone")
	assert.ErrorIs(t, err, model.ErrValidation)

	_, err = svc.PublishSlot(ctx, doctorID+1, baseTime.Add(time.Hour), 30, model.ModeVirtual)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestDeleteSlotKeptByCancelledAppointment(t *testing.T) {
	env := newAppointmentEnv(t)
	doctors := newFakeDoctors(model.Doctor{AccountID: doctorID, FullName: "Петрова А.А.", Timezone: "Europe/Moscow", IsActive: true})
	svc := NewDoctorService(doctors, env.slots, &fakeSchedules{}, zap.NewNop())
	ctx := context.Background()

	booked := env.slot(2*time.Hour, model.ModePhysical)
	id := env.book(t, patientActor(), booked)
	_, err := env.svc.Cancel(ctx, patientActor(), id, "передумал")
	require.NoError(t, err)

	freed, err := env.slots.GetByID(ctx, booked.ID)
	require.NoError(t, err)
	require.True(t, freed.IsAvailable)

	err = svc.DeleteSlot(ctx, doctorID, booked.ID)
	assert.ErrorIs(t, err, model.ErrStaleResource)

	free := env.slot(3*time.Hour, model.ModePhysical)
	require.NoError(t, svc.DeleteSlot(ctx, doctorID, free.ID))
	gone, err := env.slots.GetByID(ctx, free.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)
}

func TestRegisterDoctorValidatesTimezone(t *testing.T) {
	svc, _ := newDoctorEnv()

	_, err := svc.Register(context.Background(), 77, "Сидоров", "Кардиолог", "Mars/Olympus")
	assert.ErrorIs(t, err, model.ErrValidation)

	d, err := svc.Register(context.Background(), 77, "Сидоров", "Кардиолог", "")
	require.NoError(t, err)
	assert.Equal(t, "UTC", d.Timezone)
	assert.True(t, d.IsActive)
}
