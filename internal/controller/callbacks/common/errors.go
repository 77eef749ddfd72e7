package common

import (
	"errors"

	"github.com/Freeeeeet/telemed_bot/internal/booking"
	"github.com/Freeeeeet/telemed_bot/internal/controller/state"
	"github.com/Freeeeeet/telemed_bot/internal/model"
)

// Ошибки слоя бота
var (
	ErrUserNotFound  = errors.New("user not found")
	ErrNotADoctor    = errors.New("user is not a doctor")
	ErrNoMessage     = errors.New("no message in callback")
	ErrInvalidFormat = errors.New("invalid callback format")
)

// ErrorMessage возвращает пользовательское сообщение для ошибки.
// Единственное место, где ошибки домена превращаются в текст
func ErrorMessage(err error) string {
	var validation *model.ValidationError
	var expired *model.ResourceExpiredError

	switch {
	case errors.Is(err, ErrUserNotFound):
		return "❌ Пользователь не найден. Используйте /start"
	case errors.Is(err, ErrNotADoctor):
		return "❌ Эта функция доступна только врачам"
	case errors.Is(err, ErrNoMessage):
		return "❌ Ошибка обработки сообщения"
	case errors.Is(err, ErrInvalidFormat):
		return "❌ Неверный формат данных"
	case errors.Is(err, state.ErrNoBookingSession), errors.Is(err, booking.ErrSessionFinished):
		return "⌛️ Сессия записи устарела. Начните заново: /book"
	case errors.Is(err, booking.ErrWrongStep), errors.Is(err, booking.ErrNotAtConfirm), errors.Is(err, booking.ErrSubmitRequired):
		return "⚠️ Это действие недоступно на текущем шаге"
	case errors.Is(err, booking.ErrAtFirstStep):
		return "⚠️ Это первый шаг"
	case errors.As(err, &validation):
		return validationMessage(validation)
	case errors.Is(err, model.ErrStaleResource):
		return "🔄 Данные устарели: слот уже заняли или запись изменилась. Обновите экран и попробуйте ещё раз"
	case errors.As(err, &expired):
		if expired.Permanent {
			return "⌛️ Не удалось открыть документ. Попробуйте позже"
		}
		return "⌛️ Ссылка устарела, запросите новую"
	case errors.Is(err, model.ErrIllegalTransition):
		return "🚫 Это действие сейчас недоступно для записи"
	case errors.Is(err, model.ErrPermissionDenied):
		return "🔒 Недостаточно прав"
	case errors.Is(err, model.ErrNotFound):
		return "❌ Не найдено"
	default:
		return "❌ Произошла ошибка. Попробуйте позже."
	}
}

var fieldNames = map[string]string{
	"selectedDoctorId":   "выберите врача",
	"selectedTimeSlotId": "выберите время приёма",
	"patientId":          "выберите пациента",
	"reasonForVisit":     "укажите причину обращения",
	"inviteCode":         "код приглашения",
	"capabilities":       "выберите хотя бы одно право",
	"timezone":           "неизвестный часовой пояс",
	"startTime":          "время должно быть в будущем и не пересекаться с другим слотом",
	"fullName":           "укажите ФИО",
	"date":               "на эту дату нет свободного времени",
	"consultationMode":   "неизвестный формат приёма",
	"durationMinutes":    "длительность должна быть больше нуля",
	"weekday":            "неизвестный день недели",
	"specialty":          "укажите специальность",
}

func validationMessage(err *model.ValidationError) string {
	if text, ok := fieldNames[err.Field]; ok {
		if err.Field == "inviteCode" && err.Message != "" {
			return "⚠️ " + text + ": " + err.Message
		}
		return "⚠️ Проверьте данные: " + text
	}
	return "⚠️ Проверьте данные: " + err.Field
}
