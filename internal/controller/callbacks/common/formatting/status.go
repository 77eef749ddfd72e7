package formatting

import (
	"github.com/Freeeeeet/telemed_bot/internal/delegation"
	"github.com/Freeeeeet/telemed_bot/internal/model"
)

// StatusDisplay emoji и текст для отображения
type StatusDisplay struct {
	Emoji string
	Text  string
}

func (d StatusDisplay) String() string {
	return d.Emoji + " " + d.Text
}

// GetAppointmentStatusDisplay возвращает emoji и текст для статуса записи
func GetAppointmentStatusDisplay(status model.AppointmentStatus) StatusDisplay {
	displays := map[model.AppointmentStatus]StatusDisplay{
		model.StatusPending:        {"⏳", "Ожидает подтверждения врача"},
		model.StatusPendingPayment: {"💳", "Ожидает оплаты"},
		model.StatusConfirmed:      {"✅", "Подтверждена"},
		model.StatusReadyForCall:   {"📞", "Можно подключаться"},
		model.StatusInProgress:     {"🎥", "Идёт приём"},
		model.StatusCompleted:      {"✔️", "Завершена"},
		model.StatusCancelled:      {"❌", "Отменена"},
		model.StatusNoShow:         {"🚫", "Неявка"},
	}

	if display, ok := displays[status]; ok {
		return display
	}

	return StatusDisplay{"❓", "Неизвестно"}
}

// GetModeDisplay формат приёма
func GetModeDisplay(mode model.ConsultationMode) StatusDisplay {
	switch mode {
	case model.ModeVirtual:
		return StatusDisplay{"💻", "Онлайн"}
	case model.ModePhysical:
		return StatusDisplay{"🏥", "Очно"}
	}
	return StatusDisplay{"❓", string(mode)}
}

// GetRoleName кто отменил запись
func GetRoleName(role model.Role) string {
	switch role {
	case model.RolePatient:
		return "пациент"
	case model.RoleFamilyMember:
		return "родственник"
	case model.RoleDoctor:
		return "врач"
	case model.RoleSystem:
		return "система"
	}
	return string(role)
}

// GetCapabilityName название права делегирования
func GetCapabilityName(c delegation.Capability) string {
	names := map[delegation.Capability]string{
		delegation.ViewAppointments:    "Просмотр записей",
		delegation.ManageAppointments:  "Запись и отмена",
		delegation.ViewRecords:         "Медицинские документы",
		delegation.ViewPrescriptions:   "Просмотр рецептов",
		delegation.ManagePrescriptions: "Управление рецептами",
		delegation.ViewBilling:         "Просмотр счетов",
		delegation.ManageBilling:       "Оплата",
	}
	if name, ok := names[c]; ok {
		return name
	}
	return string(c)
}
