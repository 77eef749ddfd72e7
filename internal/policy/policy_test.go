package policy

import (
	"testing"
	"time"

	"github.com/Freeeeeet/telemed_bot/internal/delegation"
	"github.com/Freeeeeet/telemed_bot/internal/lifecycle"
	"github.com/Freeeeeet/telemed_bot/internal/model"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	patientID = int64(1)
	memberID  = int64(2)
	doctorID  = int64(3)
)

var now = time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)

func newPolicy() *Policy { return New(lifecycle.New(lifecycle.DefaultTiming())) }

func appt(status model.AppointmentStatus, mode model.ConsultationMode) model.Appointment {
	return model.Appointment{
		ID:               uuid.New(),
		PatientID:        patientID,
		DoctorID:         doctorID,
		Status:           status,
		ConsultationMode: mode,
		ScheduledStart:   now.Add(time.Hour),
		DurationMinutes:  30,
		CreatedAt:        now.Add(-5 * time.Minute),
	}
}

func self() Actor {
	return Actor{Resolver: delegation.NewResolver(patientID, nil), Role: model.RolePatient}
}

func delegate(g model.DelegationGrant) Actor {
	id := memberID
	g.MemberAccountID = &id
	g.PatientID = patientID
	return Actor{Resolver: delegation.NewResolver(memberID, []model.DelegationGrant{g}), Role: model.RolePatient}
}

func assignedDoctor() Actor {
	return Actor{Resolver: delegation.NewResolver(doctorID, nil), Role: model.RoleDoctor}
}

func fullGrant() model.DelegationGrant {
	return model.DelegationGrant{
		ViewAppointments: true, ManageAppointments: true, ViewRecords: true,
		ViewPrescriptions: true, ManagePrescriptions: true, ViewBilling: true, ManageBilling: true,
	}
}

func TestViewOnlyDelegateOnPendingGetsViewOnly(t *testing.T) {
	p := newPolicy()
	actor := delegate(model.DelegationGrant{ViewAppointments: true, ManageAppointments: false})

	got := p.AllowedActions(appt(model.StatusPending, model.ModePhysical), actor, now)

	assert.Equal(t, Actions(ActionView), got)
	assert.False(t, got.Has(ActionEdit))
	assert.False(t, got.Has(ActionCancel))
}

func TestSelfOnPendingPayment(t *testing.T) {
	p := newPolicy()

	got := p.AllowedActions(appt(model.StatusPendingPayment, model.ModeVirtual), self(), now)
	assert.Equal(t, Actions(ActionView, ActionEdit, ActionCancel, ActionPay), got)
}

func TestPayNeedsManageBilling(t *testing.T) {
	p := newPolicy()
	g := fullGrant()
	g.ManageBilling = false

	got := p.AllowedActions(appt(model.StatusPendingPayment, model.ModeVirtual), delegate(g), now)
	assert.Equal(t, Actions(ActionView, ActionEdit, ActionCancel), got)
}

func TestPayHiddenForPhysicalAndAfterGrace(t *testing.T) {
	p := newPolicy()

	physical := appt(model.StatusPendingPayment, model.ModePhysical)
	assert.False(t, p.AllowedActions(physical, self(), now).Has(ActionPay))

	expired := appt(model.StatusPendingPayment, model.ModeVirtual)
	expired.CreatedAt = now.Add(-31 * time.Minute)
	assert.False(t, p.AllowedActions(expired, self(), now).Has(ActionPay))
}

func TestStartCallOnlyForAssignedDoctor(t *testing.T) {
	p := newPolicy()
	a := appt(model.StatusReadyForCall, model.ModeVirtual)

	assert.True(t, p.AllowedActions(a, assignedDoctor(), now).Has(ActionStartCall))
	assert.False(t, p.AllowedActions(a, delegate(fullGrant()), now).Has(ActionStartCall))
	assert.False(t, p.AllowedActions(a, self(), now).Has(ActionStartCall))

	otherDoctor := Actor{Resolver: delegation.NewResolver(77, nil), Role: model.RoleDoctor}
	assert.False(t, p.AllowedActions(a, otherDoctor, now).Has(ActionStartCall))
	assert.False(t, p.AllowedActions(a, otherDoctor, now).Has(ActionView))
}

func TestCompleteOnlyInProgress(t *testing.T) {
	p := newPolicy()

	assert.Equal(t, Actions(ActionView, ActionComplete),
		p.AllowedActions(appt(model.StatusInProgress, model.ModeVirtual), assignedDoctor(), now))
	assert.Equal(t, Actions(ActionView, ActionStartCall),
		p.AllowedActions(appt(model.StatusReadyForCall, model.ModeVirtual), assignedDoctor(), now))
}

func TestAllowedIsNeverSupersetOfIntersection(t *testing.T) {
	p := newPolicy()
	actors := []Actor{
		self(),
		assignedDoctor(),
		delegate(fullGrant()),
		delegate(model.DelegationGrant{ViewAppointments: true}),
		delegate(model.DelegationGrant{}),
		delegate(func() model.DelegationGrant { g := fullGrant(); g.Pending = true; return g }()),
	}

	for _, status := range model.AllStatuses {
		for _, mode := range []model.ConsultationMode{model.ModeVirtual, model.ModePhysical} {
			a := appt(status, mode)
			for _, actor := range actors {
				allowed := p.AllowedActions(a, actor, now)
				assert.Equal(t, p.StateActions(a, now)&p.GrantedActions(a, actor), allowed)

				if !lifecycle.Editable(status) {
					assert.False(t, allowed.Has(ActionEdit), status)
					assert.False(t, allowed.Has(ActionCancel), status)
				}
				if status != model.StatusPendingPayment || mode != model.ModeVirtual {
					assert.False(t, allowed.Has(ActionPay), status)
				}
				if status != model.StatusReadyForCall {
					assert.False(t, allowed.Has(ActionStartCall), status)
				}
				if status != model.StatusInProgress {
					assert.False(t, allowed.Has(ActionComplete), status)
				}
			}
		}
	}
}

func TestPendingGrantGetsNothing(t *testing.T) {
	p := newPolicy()
	g := fullGrant()
	g.Pending = true

	got := p.AllowedActions(appt(model.StatusPending, model.ModePhysical), delegate(g), now)
	assert.Equal(t, ActionSet(0), got)
}

func TestRequire(t *testing.T) {
	p := newPolicy()
	viewer := delegate(model.DelegationGrant{ViewAppointments: true})

	require.NoError(t, p.Require(appt(model.StatusPending, model.ModePhysical), self(), ActionCancel, now))

	err := p.Require(appt(model.StatusPending, model.ModePhysical), viewer, ActionCancel, now)
	assert.ErrorIs(t, err, model.ErrPermissionDenied)

	err = p.Require(appt(model.StatusConfirmed, model.ModePhysical), self(), ActionCancel, now)
	assert.ErrorIs(t, err, model.ErrIllegalTransition)
}

func TestCanViewDocuments(t *testing.T) {
	p := newPolicy()
	viewOnly := delegate(model.DelegationGrant{ViewAppointments: true})
	records := delegate(model.DelegationGrant{ViewAppointments: true, ViewRecords: true})

	confirmed := appt(model.StatusConfirmed, model.ModeVirtual)
	assert.True(t, p.CanViewDocuments(confirmed, self()))
	assert.True(t, p.CanViewDocuments(confirmed, assignedDoctor()))
	assert.True(t, p.CanViewDocuments(confirmed, records))
	assert.False(t, p.CanViewDocuments(confirmed, viewOnly))

	for _, s := range []model.AppointmentStatus{model.StatusCancelled, model.StatusCompleted} {
		a := appt(s, model.ModeVirtual)
		assert.True(t, p.AllowedActions(a, self(), now).Has(ActionView))
		assert.False(t, p.CanViewDocuments(a, self()), s)
		assert.False(t, p.CanViewDocuments(a, assignedDoctor()), s)
	}
}

func TestLifecycleActorRoles(t *testing.T) {
	a := appt(model.StatusPending, model.ModePhysical)

	assert.Equal(t, model.RolePatient, self().LifecycleActor(a).Role)
	assert.Equal(t, model.RoleFamilyMember, delegate(fullGrant()).LifecycleActor(a).Role)
	assert.Equal(t, model.RoleDoctor, assignedDoctor().LifecycleActor(a).Role)
	assert.True(t, delegate(fullGrant()).LifecycleActor(a).Caps.ManageAppointments)
}

func TestActionSetString(t *testing.T) {
	assert.Equal(t, "{VIEW, CANCEL}", Actions(ActionCancel, ActionView).String())
	assert.Equal(t, "{}", ActionSet(0).String())
}
