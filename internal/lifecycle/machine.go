package lifecycle

import (
	"strings"
	"time"

	"github.com/Freeeeeet/telemed_bot/internal/delegation"
	"github.com/Freeeeeet/telemed_bot/internal/model"
)

type Trigger string

const (
	TriggerCapturePayment Trigger = "capture_payment"
	TriggerExpirePayment  Trigger = "expire_payment"
	TriggerConfirm        Trigger = "confirm"
	TriggerOpenCallWindow Trigger = "open_call_window"
	TriggerStartCall      Trigger = "start_call"
	TriggerComplete       Trigger = "complete"
	TriggerCancel         Trigger = "cancel"
	TriggerMarkNoShow     Trigger = "mark_no_show"
)

// TriggerEdit не является переходом, но отклоняется той же ошибкой
const TriggerEdit Trigger = "edit"

const (
	// ReasonPaymentNotReceived причина системной отмены неоплаченной записи
	ReasonPaymentNotReceived = "payment_not_received"
	// ReasonUnspecified причина отмены когда пользователь её не указал
	ReasonUnspecified = "unspecified"
)

type rule struct {
	from []model.AppointmentStatus
	to   model.AppointmentStatus
}

var transitions = map[Trigger]rule{
	TriggerCapturePayment: {from: []model.AppointmentStatus{model.StatusPendingPayment}, to: model.StatusConfirmed},
	TriggerExpirePayment:  {from: []model.AppointmentStatus{model.StatusPendingPayment}, to: model.StatusCancelled},
	TriggerConfirm:        {from: []model.AppointmentStatus{model.StatusPending}, to: model.StatusConfirmed},
	TriggerOpenCallWindow: {from: []model.AppointmentStatus{model.StatusConfirmed}, to: model.StatusReadyForCall},
	TriggerStartCall:      {from: []model.AppointmentStatus{model.StatusReadyForCall}, to: model.StatusInProgress},
	TriggerComplete:       {from: []model.AppointmentStatus{model.StatusInProgress}, to: model.StatusCompleted},
	TriggerCancel:         {from: []model.AppointmentStatus{model.StatusPending, model.StatusPendingPayment}, to: model.StatusCancelled},
	TriggerMarkNoShow: {
		from: []model.AppointmentStatus{model.StatusConfirmed, model.StatusReadyForCall, model.StatusInProgress},
		to:   model.StatusNoShow,
	},
}

// Actor кто запрашивает переход.
// Caps права над пациентом записи (для отмены), для врача и системы не используются
type Actor struct {
	ID   int64
	Role model.Role
	Caps delegation.CapabilitySet
}

// SystemActor актор для переходов, которые инициирует бэкенд
func SystemActor() Actor {
	return Actor{Role: model.RoleSystem}
}

type Request struct {
	Trigger     Trigger
	Actor       Actor
	Now         time.Time
	Reason      string  // для отмены
	DoctorNotes *string // для завершения
}

type Machine struct {
	timing Timing
}

func New(timing Timing) *Machine {
	return &Machine{timing: timing}
}

// Timing возвращает длительности, с которыми работает машина
func (m *Machine) Timing() Timing {
	return m.timing
}

// Initial начальный статус новой записи
func (m *Machine) Initial(mode model.ConsultationMode) model.AppointmentStatus {
	if mode == model.ModeVirtual {
		return model.StatusPendingPayment
	}
	return model.StatusPending
}

// Transition применяет триггер и возвращает новую версию записи.
// Переход вне таблицы или с невыполненным временным условием даёт IllegalTransition,
// не тот актор даёт PermissionDenied.
func (m *Machine) Transition(a model.Appointment, req Request) (model.Appointment, error) {
	r, ok := transitions[req.Trigger]
	if !ok || !containsStatus(r.from, a.Status) {
		return a, illegal(a.Status, req.Trigger, "")
	}

	if err := m.checkPrecondition(a, req); err != nil {
		return a, err
	}

	next := a.Clone()
	next.Status = r.to
	next.UpdatedAt = req.Now

	switch req.Trigger {
	case TriggerCapturePayment:
		paidAt := req.Now
		next.PaidAt = &paidAt
	case TriggerExpirePayment:
		setCancelled(&next, ReasonPaymentNotReceived, model.RoleSystem)
	case TriggerCancel:
		reason := strings.TrimSpace(req.Reason)
		if reason == "" {
			reason = ReasonUnspecified
		}
		setCancelled(&next, reason, req.Actor.Role)
	case TriggerComplete:
		completedAt := req.Now
		next.CompletedAt = &completedAt
		if req.DoctorNotes != nil {
			notes := *req.DoctorNotes
			next.DoctorNotes = &notes
		}
	case TriggerMarkNoShow:
		setCancelled(&next, model.NoShowMarker, model.RoleSystem)
	}

	return next, nil
}

func (m *Machine) checkPrecondition(a model.Appointment, req Request) error {
	actor := req.Actor

	switch req.Trigger {
	case TriggerCapturePayment:
		if actor.Role != model.RoleSystem {
			return denied(actor, a, "payment_capture")
		}
		if m.GraceStatus(a, req.Now) != GraceWithin {
			return illegal(a.Status, req.Trigger, "grace period elapsed")
		}
	case TriggerExpirePayment:
		if actor.Role != model.RoleSystem {
			return denied(actor, a, "payment_expiry")
		}
		if a.PaidAt != nil {
			return illegal(a.Status, req.Trigger, "payment already captured")
		}
		if m.GraceStatus(a, req.Now) != GraceExpired {
			return illegal(a.Status, req.Trigger, "grace period not elapsed")
		}
	case TriggerConfirm:
		if actor.Role != model.RoleSystem && !isAssignedDoctor(actor, a) {
			return denied(actor, a, "assigned_doctor")
		}
	case TriggerOpenCallWindow:
		if actor.Role != model.RoleSystem {
			return denied(actor, a, "call_window")
		}
		if !m.CallWindowOpen(a, req.Now) {
			return illegal(a.Status, req.Trigger, "outside call-eligibility window")
		}
	case TriggerStartCall, TriggerComplete:
		if !isAssignedDoctor(actor, a) {
			return denied(actor, a, "assigned_doctor")
		}
	case TriggerCancel:
		if !actor.Caps.ManageAppointments {
			return denied(actor, a, string(delegation.ManageAppointments))
		}
	case TriggerMarkNoShow:
		if actor.Role != model.RoleSystem {
			return denied(actor, a, "no_show_detection")
		}
		if !m.NoShowDue(a, req.Now) {
			return illegal(a.Status, req.Trigger, "no-show not due")
		}
	}
	return nil
}

// Edit изменения данных записи. nil поле не трогается
type Edit struct {
	ReasonForVisit *string
	PatientNotes   *string
	Documents      *[]model.DocumentRef
}

// ApplyEdit применяет правку. Допустимо только в pending и pending_payment,
// в остальных статусах правка отклоняется независимо от прав актора.
func (m *Machine) ApplyEdit(a model.Appointment, e Edit, now time.Time) (model.Appointment, error) {
	if !Editable(a.Status) {
		return a, illegal(a.Status, TriggerEdit, "appointment is no longer editable")
	}

	next := a.Clone()
	if e.ReasonForVisit != nil {
		reason := strings.TrimSpace(*e.ReasonForVisit)
		if reason == "" {
			return a, &model.ValidationError{Field: "reasonForVisit"}
		}
		next.ReasonForVisit = reason
	}
	if e.PatientNotes != nil {
		notes := *e.PatientNotes
		next.PatientNotes = &notes
	}
	if e.Documents != nil {
		next.Documents = append([]model.DocumentRef(nil), (*e.Documents)...)
	}
	next.UpdatedAt = now

	return next, nil
}

// IsTerminal true для completed, cancelled и no_show
func IsTerminal(s model.AppointmentStatus) bool {
	return s == model.StatusCompleted || s == model.StatusCancelled || s == model.StatusNoShow
}

// Editable true пока запись можно редактировать и отменять
func Editable(s model.AppointmentStatus) bool {
	return s == model.StatusPending || s == model.StatusPendingPayment
}

// LegalTriggers триггеры, которые таблица допускает из статуса
func LegalTriggers(s model.AppointmentStatus) []Trigger {
	order := []Trigger{
		TriggerCapturePayment, TriggerExpirePayment, TriggerConfirm, TriggerOpenCallWindow,
		TriggerStartCall, TriggerComplete, TriggerCancel, TriggerMarkNoShow,
	}
	var out []Trigger
	for _, t := range order {
		if containsStatus(transitions[t].from, s) {
			out = append(out, t)
		}
	}
	return out
}

func isAssignedDoctor(actor Actor, a model.Appointment) bool {
	return actor.Role == model.RoleDoctor && actor.ID == a.DoctorID
}

func setCancelled(a *model.Appointment, reason string, by model.Role) {
	a.CancellationReason = &reason
	a.CancelledBy = &by
}

func containsStatus(list []model.AppointmentStatus, s model.AppointmentStatus) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func illegal(from model.AppointmentStatus, t Trigger, reason string) error {
	return &model.IllegalTransitionError{From: from, Trigger: string(t), Reason: reason}
}

func denied(actor Actor, a model.Appointment, capability string) error {
	return &model.PermissionDeniedError{ActorID: actor.ID, PatientID: a.PatientID, Capability: capability}
}
