package lifecycle

import (
	"time"

	"github.com/Freeeeeet/telemed_bot/internal/model"
)

type GraceState int

const (
	GraceNotApplicable GraceState = iota // запись не ожидает оплаты
	GraceWithin
	GraceExpired
)

func (g GraceState) String() string {
	switch g {
	case GraceWithin:
		return "within_grace_period"
	case GraceExpired:
		return "expired"
	default:
		return "not_applicable"
	}
}

// GraceStatus вычисляется только из (now - created_at), таймеров машина не держит.
// Решение об отмене принимает бэкенд.
func (m *Machine) GraceStatus(a model.Appointment, now time.Time) GraceState {
	if a.Status != model.StatusPendingPayment {
		return GraceNotApplicable
	}
	if now.Sub(a.CreatedAt) > m.timing.GracePeriod {
		return GraceExpired
	}
	return GraceWithin
}

// PaymentDeadline момент, после которого неоплаченная запись отменяется
func (m *Machine) PaymentDeadline(a model.Appointment) time.Time {
	return a.CreatedAt.Add(m.timing.GracePeriod)
}

// CallWindowOpen true если now в окне [start - lead, end)
func (m *Machine) CallWindowOpen(a model.Appointment, now time.Time) bool {
	opens := a.ScheduledStart.Add(-m.timing.CallWindowLead)
	return !now.Before(opens) && now.Before(a.ScheduledEnd())
}

// NoShowDue true если приём начался больше NoShowAfter назад, а пациент так и не подключился
func (m *Machine) NoShowDue(a model.Appointment, now time.Time) bool {
	switch a.Status {
	case model.StatusConfirmed, model.StatusReadyForCall, model.StatusInProgress:
	default:
		return false
	}
	if a.CheckedInAt != nil {
		return false
	}
	return now.After(a.ScheduledStart.Add(m.timing.NoShowAfter))
}

// DueSystemTrigger возвращает системный переход, который пора применить к записи.
// Неявка важнее открытия окна звонка: просроченную подтверждённую запись сразу закрываем
func (m *Machine) DueSystemTrigger(a model.Appointment, now time.Time) (Trigger, bool) {
	switch a.Status {
	case model.StatusPendingPayment:
		if a.PaidAt == nil && m.GraceStatus(a, now) == GraceExpired {
			return TriggerExpirePayment, true
		}
	case model.StatusConfirmed:
		if m.NoShowDue(a, now) {
			return TriggerMarkNoShow, true
		}
		if m.CallWindowOpen(a, now) {
			return TriggerOpenCallWindow, true
		}
	case model.StatusReadyForCall, model.StatusInProgress:
		if m.NoShowDue(a, now) {
			return TriggerMarkNoShow, true
		}
	}
	return "", false
}
