package model

import "time"

// RecurringSchedule еженедельный шаблон приёма врача.
// Время задаётся в часовом поясе врача
type RecurringSchedule struct {
	ID               int64            `json:"id"`
	DoctorID         int64            `json:"doctor_id"`
	Weekday          int              `json:"weekday"`          // 0 = Sunday, 6 = Saturday
	StartHour        int              `json:"start_hour"`       // 0-23
	StartMinute      int              `json:"start_minute"`     // 0-59
	DurationMinutes  int              `json:"duration_minutes"` // длительность в минутах
	ConsultationMode ConsultationMode `json:"consultation_mode"`
	IsActive         bool             `json:"is_active"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
}

// Validate проверяет границы полей шаблона
func (s *RecurringSchedule) Validate() error {
	switch {
	case s.Weekday < 0 || s.Weekday > 6:
		return &ValidationError{Field: "weekday", Message: "must be 0..6"}
	case s.StartHour < 0 || s.StartHour > 23:
		return &ValidationError{Field: "startHour", Message: "must be 0..23"}
	case s.StartMinute < 0 || s.StartMinute > 59:
		return &ValidationError{Field: "startMinute", Message: "must be 0..59"}
	case s.DurationMinutes <= 0:
		return &ValidationError{Field: "durationMinutes", Message: "must be positive"}
	case !s.ConsultationMode.Valid():
		return &ValidationError{Field: "consultationMode", Message: "unknown mode"}
	}
	return nil
}
