package model

import (
	"errors"
	"fmt"
)

// Базовые ошибки. Конкретные типы ниже совпадают с ними через errors.Is
var (
	ErrNotFound          = errors.New("not found")
	ErrIllegalTransition = errors.New("illegal transition")
	ErrPermissionDenied  = errors.New("permission denied")
	ErrValidation        = errors.New("validation failed")
	ErrStaleResource     = errors.New("stale resource")
	ErrResourceExpired   = errors.New("resource expired")
)

// IllegalTransitionError запрошенный переход отсутствует в таблице переходов
// или его временное условие не выполнено
type IllegalTransitionError struct {
	From    AppointmentStatus
	Trigger string
	Reason  string
}

func (e *IllegalTransitionError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("illegal transition %q from %s: %s", e.Trigger, e.From, e.Reason)
	}
	return fmt.Sprintf("illegal transition %q from %s", e.Trigger, e.From)
}

func (e *IllegalTransitionError) Is(target error) bool { return target == ErrIllegalTransition }

// PermissionDeniedError у актора нет нужного права
type PermissionDeniedError struct {
	ActorID    int64
	PatientID  int64
	Capability string
}

func (e *PermissionDeniedError) Error() string {
	return fmt.Sprintf("permission denied: actor %d lacks %s for patient %d", e.ActorID, e.Capability, e.PatientID)
}

func (e *PermissionDeniedError) Is(target error) bool { return target == ErrPermissionDenied }

// ValidationError обязательное поле шага не заполнено
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s is required", e.Field)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// StaleResourceError ресурс изменился конкурентно (слот заняли, запись обновили)
type StaleResourceError struct {
	Resource string
	ID       string
}

func (e *StaleResourceError) Error() string {
	return fmt.Sprintf("stale %s %s", e.Resource, e.ID)
}

func (e *StaleResourceError) Is(target error) bool { return target == ErrStaleResource }

// Retryable всегда true: достаточно перечитать данные и повторить
func (e *StaleResourceError) Retryable() bool { return true }

// ResourceExpiredError истёк TTL ресурса (ссылка на документ).
// Permanent выставляется когда локальные повторы исчерпаны
type ResourceExpiredError struct {
	Resource  string
	ID        string
	Permanent bool
}

func (e *ResourceExpiredError) Error() string {
	if e.Permanent {
		return fmt.Sprintf("%s %s expired, retries exhausted", e.Resource, e.ID)
	}
	return fmt.Sprintf("%s %s expired", e.Resource, e.ID)
}

func (e *ResourceExpiredError) Is(target error) bool { return target == ErrResourceExpired }

func (e *ResourceExpiredError) Retryable() bool { return !e.Permanent }

// IsRetryable сообщает можно ли повторить операцию.
// IllegalTransition и PermissionDenied не повторяются никогда
func IsRetryable(err error) bool {
	var r interface{ Retryable() bool }
	if errors.As(err, &r) {
		return r.Retryable()
	}
	return false
}
