package policy

import (
	"strings"
	"time"

	"github.com/Freeeeeet/telemed_bot/internal/delegation"
	"github.com/Freeeeeet/telemed_bot/internal/lifecycle"
	"github.com/Freeeeeet/telemed_bot/internal/model"
)

type Action uint8

const (
	ActionView Action = 1 << iota
	ActionEdit
	ActionCancel
	ActionPay
	ActionStartCall
	ActionComplete
)

var actionOrder = []Action{ActionView, ActionEdit, ActionCancel, ActionPay, ActionStartCall, ActionComplete}

func (a Action) String() string {
	switch a {
	case ActionView:
		return "VIEW"
	case ActionEdit:
		return "EDIT"
	case ActionCancel:
		return "CANCEL"
	case ActionPay:
		return "PAY"
	case ActionStartCall:
		return "START_CALL"
	case ActionComplete:
		return "COMPLETE"
	}
	return "UNKNOWN"
}

// ActionSet множество действий
type ActionSet uint8

func Actions(actions ...Action) ActionSet {
	var s ActionSet
	for _, a := range actions {
		s |= ActionSet(a)
	}
	return s
}

func (s ActionSet) Has(a Action) bool { return s&ActionSet(a) != 0 }

func (s ActionSet) List() []Action {
	var out []Action
	for _, a := range actionOrder {
		if s.Has(a) {
			out = append(out, a)
		}
	}
	return out
}

func (s ActionSet) String() string {
	names := make([]string, 0, len(actionOrder))
	for _, a := range s.List() {
		names = append(names, a.String())
	}
	return "{" + strings.Join(names, ", ") + "}"
}

// Actor тот, для кого считаются действия
type Actor struct {
	Resolver *delegation.Resolver
	Role     model.Role // роль аккаунта: patient или doctor
}

func (a Actor) ID() int64 { return a.Resolver.ActorID() }

// IsAssignedDoctor true если актор врач этой записи. Врачи никогда не бывают делегатами
func (a Actor) IsAssignedDoctor(appt model.Appointment) bool {
	return a.Role == model.RoleDoctor && a.ID() == appt.DoctorID
}

// LifecycleActor актор для машины статусов: права над пациентом и роль
func (a Actor) LifecycleActor(appt model.Appointment) lifecycle.Actor {
	role := a.Resolver.RelationTo(appt.PatientID)
	if a.IsAssignedDoctor(appt) {
		role = model.RoleDoctor
	}
	return lifecycle.Actor{
		ID:   a.ID(),
		Role: role,
		Caps: a.Resolver.Resolve(appt.PatientID),
	}
}

type Policy struct {
	machine *lifecycle.Machine
}

func New(machine *lifecycle.Machine) *Policy {
	return &Policy{machine: machine}
}

// StateActions действия, допустимые в текущем статусе без учёта актора
func (p *Policy) StateActions(a model.Appointment, now time.Time) ActionSet {
	s := Actions(ActionView)

	if lifecycle.Editable(a.Status) {
		s |= Actions(ActionEdit, ActionCancel)
	}
	if a.Status == model.StatusPendingPayment &&
		a.ConsultationMode == model.ModeVirtual &&
		p.machine.GraceStatus(a, now) == lifecycle.GraceWithin {
		s |= Actions(ActionPay)
	}
	switch a.Status {
	case model.StatusReadyForCall:
		s |= Actions(ActionStartCall)
	case model.StatusInProgress:
		s |= Actions(ActionComplete)
	}
	return s
}

// GrantedActions действия, на которые у актора есть права, без учёта статуса
func (p *Policy) GrantedActions(a model.Appointment, actor Actor) ActionSet {
	caps := actor.Resolver.Resolve(a.PatientID)
	assigned := actor.IsAssignedDoctor(a)

	var s ActionSet
	if caps.ViewAppointments || assigned {
		s |= Actions(ActionView)
	}
	if caps.ManageAppointments {
		s |= Actions(ActionEdit, ActionCancel)
		if caps.ManageBilling {
			s |= Actions(ActionPay)
		}
	}
	if assigned {
		s |= Actions(ActionStartCall, ActionComplete)
	}
	return s
}

// AllowedActions пересечение допустимого по статусу и разрешённого актору
func (p *Policy) AllowedActions(a model.Appointment, actor Actor, now time.Time) ActionSet {
	return p.StateActions(a, now) & p.GrantedActions(a, actor)
}

// Require проверяет одно действие. Статус запрещает: IllegalTransition,
// не хватает прав: PermissionDenied
func (p *Policy) Require(a model.Appointment, actor Actor, action Action, now time.Time) error {
	if !p.StateActions(a, now).Has(action) {
		return &model.IllegalTransitionError{From: a.Status, Trigger: strings.ToLower(action.String())}
	}
	if !p.GrantedActions(a, actor).Has(action) {
		return &model.PermissionDeniedError{
			ActorID:    actor.ID(),
			PatientID:  a.PatientID,
			Capability: requiredCapability(action),
		}
	}
	return nil
}

// CanViewDocuments одно правило для всех ролей: документы видны тому, кто видит запись
// (делегату нужен ещё view_records), и скрываются в cancelled и completed.
func (p *Policy) CanViewDocuments(a model.Appointment, actor Actor) bool {
	if a.Status == model.StatusCancelled || a.Status == model.StatusCompleted {
		return false
	}
	if actor.IsAssignedDoctor(a) {
		return true
	}
	caps := actor.Resolver.Resolve(a.PatientID)
	return caps.ViewAppointments && caps.ViewRecords
}

func requiredCapability(action Action) string {
	switch action {
	case ActionView:
		return string(delegation.ViewAppointments)
	case ActionEdit, ActionCancel:
		return string(delegation.ManageAppointments)
	case ActionPay:
		return string(delegation.ManageBilling)
	default:
		return "assigned_doctor"
	}
}
