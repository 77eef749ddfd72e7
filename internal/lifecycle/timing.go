package lifecycle

import (
	"fmt"
	"time"
)

// Timing единственный источник длительностей жизненного цикла записи
type Timing struct {
	// GracePeriod окно оплаты онлайн-консультации с момента создания записи
	GracePeriod time.Duration
	// CallWindowLead за сколько до начала приёма открывается звонок.
	// Окно закрывается в плановое время окончания приёма
	CallWindowLead time.Duration
	// NoShowAfter через сколько после начала приёма без check-in фиксируется неявка
	NoShowAfter time.Duration
}

func DefaultTiming() Timing {
	return Timing{
		GracePeriod:    30 * time.Minute,
		CallWindowLead: 15 * time.Minute,
		NoShowAfter:    15 * time.Minute,
	}
}

// Validate проверяет что длительности положительные
func (t Timing) Validate() error {
	if t.GracePeriod <= 0 {
		return fmt.Errorf("grace period must be positive, got %s", t.GracePeriod)
	}
	if t.CallWindowLead < 0 {
		return fmt.Errorf("call window lead must not be negative, got %s", t.CallWindowLead)
	}
	if t.NoShowAfter <= 0 {
		return fmt.Errorf("no-show delay must be positive, got %s", t.NoShowAfter)
	}
	return nil
}
