package model

import "time"

type ConsultationMode string

const (
	ModeVirtual  ConsultationMode = "virtual"
	ModePhysical ConsultationMode = "physical"
)

// Valid проверяет что режим один из известных
func (m ConsultationMode) Valid() bool {
	return m == ModeVirtual || m == ModePhysical
}

// TimeSlot слот в расписании врача
type TimeSlot struct {
	ID               int64            `json:"id"`
	DoctorID         int64            `json:"doctor_id"`
	StartTime        time.Time        `json:"start_time"`
	DurationMinutes  int              `json:"duration_minutes"`
	ConsultationMode ConsultationMode `json:"consultation_mode"`
	IsAvailable      bool             `json:"is_available"`
	CreatedAt        time.Time        `json:"created_at"`
}

// EndTime возвращает время окончания слота
func (s *TimeSlot) EndTime() time.Time {
	return s.StartTime.Add(time.Duration(s.DurationMinutes) * time.Minute)
}
