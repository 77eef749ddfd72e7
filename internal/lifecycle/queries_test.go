package lifecycle

import (
	"testing"
	"time"

	"github.com/Freeeeeet/telemed_bot/internal/model"
	"github.com/stretchr/testify/assert"
)

func TestGraceStatus(t *testing.T) {
	m := New(DefaultTiming())

	a := appointment(model.StatusPendingPayment)
	a.CreatedAt = now.Add(-31 * time.Minute)
	assert.Equal(t, GraceExpired, m.GraceStatus(a, now))

	a.CreatedAt = now.Add(-10 * time.Minute)
	assert.Equal(t, GraceWithin, m.GraceStatus(a, now))

	a.CreatedAt = now.Add(-30 * time.Minute)
	assert.Equal(t, GraceWithin, m.GraceStatus(a, now))

	assert.Equal(t, GraceNotApplicable, m.GraceStatus(appointment(model.StatusConfirmed), now))
	assert.Equal(t, a.CreatedAt.Add(30*time.Minute), m.PaymentDeadline(a))
}

func TestGraceStatusIsPureOverRepeatedEvaluation(t *testing.T) {
	m := New(DefaultTiming())
	a := appointment(model.StatusPendingPayment)

	for i := 0; i < 3; i++ {
		assert.Equal(t, GraceWithin, m.GraceStatus(a, now))
		assert.Equal(t, GraceExpired, m.GraceStatus(a, now.Add(time.Hour)))
	}
}

func TestCallWindowOpen(t *testing.T) {
	m := New(DefaultTiming())
	a := appointment(model.StatusConfirmed)
	a.ScheduledStart = now

	assert.False(t, m.CallWindowOpen(a, now.Add(-16*time.Minute)))
	assert.True(t, m.CallWindowOpen(a, now.Add(-15*time.Minute)))
	assert.True(t, m.CallWindowOpen(a, now.Add(29*time.Minute)))
	assert.False(t, m.CallWindowOpen(a, now.Add(30*time.Minute)))
}

func TestNoShowDue(t *testing.T) {
	m := New(DefaultTiming())
	a := appointment(model.StatusReadyForCall)
	a.ScheduledStart = now.Add(-16 * time.Minute)

	assert.True(t, m.NoShowDue(a, now))

	checkedIn := now.Add(-17 * time.Minute)
	a.CheckedInAt = &checkedIn
	assert.False(t, m.NoShowDue(a, now))

	b := appointment(model.StatusPending)
	b.ScheduledStart = now.Add(-time.Hour)
	assert.False(t, m.NoShowDue(b, now))
}

func TestDueSystemTrigger(t *testing.T) {
	m := New(DefaultTiming())

	unpaid := appointment(model.StatusPendingPayment)
	unpaid.CreatedAt = now.Add(-time.Hour)
	tr, ok := m.DueSystemTrigger(unpaid, now)
	assert.True(t, ok)
	assert.Equal(t, TriggerExpirePayment, tr)

	soon := appointment(model.StatusConfirmed)
	soon.ScheduledStart = now.Add(10 * time.Minute)
	tr, ok = m.DueSystemTrigger(soon, now)
	assert.True(t, ok)
	assert.Equal(t, TriggerOpenCallWindow, tr)

	late := appointment(model.StatusConfirmed)
	late.ScheduledStart = now.Add(-20 * time.Minute)
	tr, ok = m.DueSystemTrigger(late, now)
	assert.True(t, ok)
	assert.Equal(t, TriggerMarkNoShow, tr)

	_, ok = m.DueSystemTrigger(appointment(model.StatusConfirmed), now)
	assert.False(t, ok)

	_, ok = m.DueSystemTrigger(appointment(model.StatusCompleted), now)
	assert.False(t, ok)
}

func TestTimingValidate(t *testing.T) {
	assert.NoError(t, DefaultTiming().Validate())
	assert.Error(t, Timing{GracePeriod: 0, NoShowAfter: time.Minute}.Validate())
	assert.Error(t, Timing{GracePeriod: time.Minute, CallWindowLead: -time.Second, NoShowAfter: time.Minute}.Validate())
}
