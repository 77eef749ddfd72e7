package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type AppointmentStatus string

const (
	StatusPending        AppointmentStatus = "pending"         // Ожидает подтверждения врача (очный приём)
	StatusPendingPayment AppointmentStatus = "pending_payment" // Ожидает оплаты (онлайн-консультация)
	StatusConfirmed      AppointmentStatus = "confirmed"
	StatusReadyForCall   AppointmentStatus = "ready_for_call"
	StatusInProgress     AppointmentStatus = "in_progress"
	StatusCompleted      AppointmentStatus = "completed"
	StatusCancelled      AppointmentStatus = "cancelled"
	StatusNoShow         AppointmentStatus = "no_show"
)

// AllStatuses перечисляет статусы в порядке жизненного цикла
var AllStatuses = []AppointmentStatus{
	StatusPending,
	StatusPendingPayment,
	StatusConfirmed,
	StatusReadyForCall,
	StatusInProgress,
	StatusCompleted,
	StatusCancelled,
	StatusNoShow,
}

// NoShowMarker пишется в cancellation_reason при неявке
const NoShowMarker = "no_show"

// DocumentRef ссылка на документ, приложенный к записи
type DocumentRef struct {
	DocumentID uuid.UUID `json:"document_id"`
	Note       string    `json:"note,omitempty"`
}

type Appointment struct {
	ID                 uuid.UUID         `json:"id"`
	PatientID          int64             `json:"patient_id"`
	DoctorID           int64             `json:"doctor_id"`
	TimeSlotID         int64             `json:"time_slot_id"`
	Status             AppointmentStatus `json:"status"`
	ConsultationMode   ConsultationMode  `json:"consultation_mode"`
	ScheduledStart     time.Time         `json:"scheduled_start"`
	DurationMinutes    int               `json:"duration_minutes"`
	PatientNotes       *string           `json:"patient_notes,omitempty"`
	ReasonForVisit     string            `json:"reason_for_visit"`
	DoctorNotes        *string           `json:"doctor_notes,omitempty"`
	CancellationReason *string           `json:"cancellation_reason,omitempty"`
	CancelledBy        *Role             `json:"cancelled_by,omitempty"`
	CompletedAt        *time.Time        `json:"completed_at,omitempty"`
	PaidAt             *time.Time        `json:"paid_at,omitempty"`
	CheckedInAt        *time.Time        `json:"checked_in_at,omitempty"`
	Documents          []DocumentRef     `json:"attached_documents"`
	Version            int               `json:"version"`
	CreatedAt          time.Time         `json:"created_at"`
	UpdatedAt          time.Time         `json:"updated_at"`
}

// ScheduledEnd возвращает плановое время окончания приёма
func (a *Appointment) ScheduledEnd() time.Time {
	return a.ScheduledStart.Add(time.Duration(a.DurationMinutes) * time.Minute)
}

// Clone возвращает глубокую копию, изменения которой не затрагивают оригинал
func (a Appointment) Clone() Appointment {
	out := a
	if a.Documents != nil {
		out.Documents = make([]DocumentRef, len(a.Documents))
		copy(out.Documents, a.Documents)
	}
	out.PatientNotes = cloneString(a.PatientNotes)
	out.DoctorNotes = cloneString(a.DoctorNotes)
	out.CancellationReason = cloneString(a.CancellationReason)
	if a.CancelledBy != nil {
		r := *a.CancelledBy
		out.CancelledBy = &r
	}
	out.CompletedAt = cloneTime(a.CompletedAt)
	out.PaidAt = cloneTime(a.PaidAt)
	out.CheckedInAt = cloneTime(a.CheckedInAt)
	return out
}

// CheckInvariants проверяет согласованность полей со статусом:
// completed_at заполнено только для completed,
// cancellation_reason и cancelled_by только для cancelled и no_show.
func (a *Appointment) CheckInvariants() error {
	completed := a.Status == StatusCompleted
	if completed != (a.CompletedAt != nil) {
		return fmt.Errorf("appointment %s: completed_at does not match status %s", a.ID, a.Status)
	}

	cancelled := a.Status == StatusCancelled || a.Status == StatusNoShow
	if cancelled != (a.CancellationReason != nil) || cancelled != (a.CancelledBy != nil) {
		return fmt.Errorf("appointment %s: cancellation fields do not match status %s", a.ID, a.Status)
	}

	if a.Status == StatusNoShow && *a.CancellationReason != NoShowMarker {
		return fmt.Errorf("appointment %s: no-show marker missing", a.ID)
	}

	return nil
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
