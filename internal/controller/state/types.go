package state

// UserState представляет текущее состояние пользователя в диалоге
type UserState string

const (
	StateNone UserState = "" // Нет активного состояния

	// Мастер записи: ввод текстовых полей шага "детали"
	StateBookingReason UserState = "booking_reason"
	StateBookingNotes  UserState = "booking_notes"

	// Действия с записью
	StateEditReason    UserState = "edit_reason"
	StateCancelReason  UserState = "cancel_reason"
	StateCompleteNotes UserState = "complete_notes"

	// Семейный доступ
	StateInviteRelationship UserState = "invite_relationship"
	StateEnteringInviteCode UserState = "entering_invite_code"

	// Регистрация врача
	StateDoctorFullName  UserState = "doctor_full_name"
	StateDoctorSpecialty UserState = "doctor_specialty"
	StateDoctorTimezone  UserState = "doctor_timezone"

	// Расписание врача
	StateAddSlot       UserState = "add_slot"
	StateAddWeeklySlot UserState = "add_weekly_slot"
)

// Ключи временных данных
const (
	KeyAppointmentID = "appointment_id"
	KeyFullName      = "full_name"
	KeySpecialty     = "specialty"
)

// UserData хранит временные данные пользователя во время диалога
type UserData struct {
	State UserState
	Data  map[string]interface{} // Временные данные для текущего диалога
}
