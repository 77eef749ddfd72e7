package booking

import (
	"time"

	"github.com/Freeeeeet/telemed_bot/internal/model"
	"github.com/google/uuid"
)

// Step шаг мастера записи
type Step int

const (
	StepSelectDoctor Step = iota
	StepSelectTimeSlot
	StepEnterDetails
	StepConfirm
	StepSuccess
)

func (s Step) String() string {
	switch s {
	case StepSelectDoctor:
		return "select_doctor"
	case StepSelectTimeSlot:
		return "select_time_slot"
	case StepEnterDetails:
		return "enter_details"
	case StepConfirm:
		return "confirm"
	case StepSuccess:
		return "success"
	}
	return "unknown"
}

// Draft накопленные выборы пользователя за одну сессию записи.
// Нулевые ID означают "не выбрано"
type Draft struct {
	SelectedDoctorID   int64
	SelectedTimeSlotID int64
	ConsultationMode   model.ConsultationMode
	ScheduledStart     time.Time
	PatientID          int64
	IsForSelf          bool
	ReasonForVisit     string
	PatientNotes       string
	Documents          []model.DocumentRef
	CurrentStep        Step

	SubmissionResultAppointmentID uuid.UUID
}

func (d Draft) clone() Draft {
	out := d
	out.Documents = append([]model.DocumentRef(nil), d.Documents...)
	return out
}

// Command неизменяемая команда записи, которую собирает Submit
type Command struct {
	DoctorID            int64
	PatientID           int64
	TimeSlotID          int64
	ConsultationMode    model.ConsultationMode
	PatientNotes        *string
	ReasonForVisit      string
	DocumentRequestList []model.DocumentRef
}
