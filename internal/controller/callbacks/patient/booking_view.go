package patient

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/Freeeeeet/telemed_bot/internal/availability"
	"github.com/Freeeeeet/telemed_bot/internal/booking"
	"github.com/Freeeeeet/telemed_bot/internal/controller/callbacks/common/formatting"
	"github.com/Freeeeeet/telemed_bot/internal/controller/callbacks/common/keyboard"
	"github.com/Freeeeeet/telemed_bot/internal/model"
	"github.com/go-telegram/bot/models"
)

// Callback data мастера записи
const (
	CbNew     = "bk_new"
	CbDoctor  = "bk_doc:"  // bk_doc:doctor_id
	CbMode    = "bk_mode:" // bk_mode:all|virtual|physical
	CbDate    = "bk_date:" // bk_date:2026-03-10
	CbSlot    = "bk_slot:" // bk_slot:slot_id
	CbPatient = "bk_pat:"  // bk_pat:patient_id
	CbReason  = "bk_reason"
	CbNotes   = "bk_notes"
	CbRefresh = "bk_refresh"
	CbNext    = "bk_next"
	CbBack    = "bk_back"
	CbSubmit  = "bk_submit"
	CbCancel  = "bk_cancel"

	// CbViewAppointment открывает карточку записи после успешной записи
	CbViewAppointment = "ap_view:"
)

// BookingView снимок мастера записи для отрисовки
type BookingView struct {
	Draft      booking.Draft
	Selection  availability.Selection
	Projection availability.Projection
	Choices    []int64

	Doctors  []*model.Doctor // для шага выбора врача
	Doctor   *model.Doctor
	Patients map[int64]string
}

// Snapshot копирует состояние мастера. Вызывается под блокировкой сессии
func Snapshot(o *booking.Orchestrator) BookingView {
	return BookingView{
		Draft:      o.Draft(),
		Selection:  o.Selection(),
		Projection: o.Projection(),
		Choices:    o.PatientChoices(),
	}
}

func (v BookingView) location() *time.Location {
	if v.Doctor == nil {
		return time.UTC
	}
	return v.Doctor.Location()
}

func (v BookingView) patientName(id int64) string {
	if name, ok := v.Patients[id]; ok && name != "" {
		if len(v.Choices) > 0 && id == v.Choices[0] {
			return name + " (я)"
		}
		return name
	}
	return fmt.Sprintf("Пациент #%d", id)
}

// RenderBooking текст и клавиатура текущего шага
func RenderBooking(v BookingView) (string, *models.InlineKeyboardMarkup) {
	switch v.Draft.CurrentStep {
	case booking.StepSelectDoctor:
		return RenderDoctors(v.Doctors)
	case booking.StepSelectTimeSlot:
		return renderTimeSlotStep(v)
	case booking.StepEnterDetails:
		return renderDetailsStep(v)
	case booking.StepConfirm:
		return renderConfirmStep(v)
	default:
		return renderSuccess(v)
	}
}

// RenderDoctors первый шаг: список врачей
func RenderDoctors(doctors []*model.Doctor) (string, *models.InlineKeyboardMarkup) {
	if len(doctors) == 0 {
		return "👨‍⚕️ Сейчас нет врачей, принимающих записи.", nil
	}

	kb := keyboard.NewBuilder()
	for _, d := range doctors {
		kb.Row(keyboard.Button(
			fmt.Sprintf("👨‍⚕️ %s · %s", d.FullName, d.Specialty),
			fmt.Sprintf("%s%d", CbDoctor, d.AccountID),
		))
	}
	kb.Row(keyboard.CancelButton(CbCancel))

	return "📋 <b>Шаг 1/4.</b> Выберите врача:", kb.Build()
}

func renderTimeSlotStep(v BookingView) (string, *models.InlineKeyboardMarkup) {
	loc := v.location()
	filter := v.Selection.Filter()

	var sb strings.Builder
	sb.WriteString("🗓 <b>Шаг 2/4.</b> Выберите время\n\n")
	if v.Doctor != nil {
		fmt.Fprintf(&sb, "👨‍⚕️ %s\n", html.EscapeString(v.Doctor.FullName))
		fmt.Fprintf(&sb, "🌍 Время врача: %s\n", loc.String())
	}

	kb := keyboard.NewBuilder()
	kb.Row(
		modeButton("Все", availability.FilterAll, filter),
		modeButton("💻 Онлайн", availability.FilterVirtual, filter),
		modeButton("🏥 Очно", availability.FilterPhysical, filter),
	)

	if v.Projection.IsEmpty() {
		sb.WriteString("\n😔 Свободного времени нет. Попробуйте другой формат или обновите позже.")
	} else {
		selectedDate, hasDate := v.Selection.Date()
		var days []models.InlineKeyboardButton
		for _, d := range v.Projection.AvailableDates() {
			label := formatting.FormatDayButton(d.Start(loc))
			if hasDate && d == selectedDate {
				label = "✅ " + label
			}
			days = append(days, keyboard.Button(label, CbDate+d.String()))
		}
		kb.Grid(4, days...)

		if hasDate {
			selectedSlot, _ := v.Selection.SlotID()
			var slots []models.InlineKeyboardButton
			for _, s := range v.Projection.SlotsForDate(selectedDate) {
				label := formatting.GetModeDisplay(s.ConsultationMode).Emoji + " " + formatting.FormatTime(s.StartTime.In(loc))
				if s.ID == selectedSlot {
					label = "✅ " + label
				}
				slots = append(slots, keyboard.Button(label, fmt.Sprintf("%s%d", CbSlot, s.ID)))
			}
			kb.Grid(4, slots...)
		} else {
			sb.WriteString("\nВыберите день.")
		}
	}

	if v.Draft.SelectedTimeSlotID != 0 {
		fmt.Fprintf(&sb, "\n⏰ Выбрано: %s, %s",
			formatting.FormatDateTimeIn(v.Draft.ScheduledStart, loc),
			formatting.GetModeDisplay(v.Draft.ConsultationMode).Text)
	}

	kb.Row(keyboard.Button("🔄 Обновить", CbRefresh))
	kb.Row(keyboard.BackButton(CbBack), keyboard.Button("Далее ➡️", CbNext))
	kb.Row(keyboard.CancelButton(CbCancel))
	return sb.String(), kb.Build()
}

func modeButton(label string, f, current availability.ModeFilter) models.InlineKeyboardButton {
	if f == current {
		label = "• " + label + " •"
	}
	return keyboard.Button(label, CbMode+string(f))
}

func renderDetailsStep(v BookingView) (string, *models.InlineKeyboardMarkup) {
	d := v.Draft

	var sb strings.Builder
	sb.WriteString("📝 <b>Шаг 3/4.</b> Детали записи\n\n")
	fmt.Fprintf(&sb, "👤 Пациент: %s\n", html.EscapeString(v.patientName(d.PatientID)))
	fmt.Fprintf(&sb, "🩺 Причина: %s\n", orDash(d.ReasonForVisit))
	fmt.Fprintf(&sb, "💬 Комментарий: %s\n", orDash(d.PatientNotes))
	if len(d.Documents) > 0 {
		fmt.Fprintf(&sb, "📎 Документов: %d\n", len(d.Documents))
	}

	kb := keyboard.NewBuilder()
	if len(v.Choices) > 1 {
		sb.WriteString("\nЗа кого записываемся?")
		for _, id := range v.Choices {
			label := v.patientName(id)
			if id == d.PatientID {
				label = "✅ " + label
			}
			kb.Row(keyboard.Button(label, fmt.Sprintf("%s%d", CbPatient, id)))
		}
	}
	kb.Row(
		keyboard.Button("🩺 Причина обращения", CbReason),
		keyboard.Button("💬 Комментарий", CbNotes),
	)
	kb.Row(keyboard.BackButton(CbBack), keyboard.Button("Далее ➡️", CbNext))
	kb.Row(keyboard.CancelButton(CbCancel))
	return sb.String(), kb.Build()
}

func renderConfirmStep(v BookingView) (string, *models.InlineKeyboardMarkup) {
	d := v.Draft
	loc := v.location()

	var sb strings.Builder
	sb.WriteString("✅ <b>Шаг 4/4.</b> Проверьте запись\n\n")
	if v.Doctor != nil {
		fmt.Fprintf(&sb, "👨‍⚕️ %s, %s\n", html.EscapeString(v.Doctor.FullName), html.EscapeString(v.Doctor.Specialty))
	}
	fmt.Fprintf(&sb, "⏰ %s\n", formatting.FormatDateTimeIn(d.ScheduledStart, loc))
	fmt.Fprintf(&sb, "%s\n", formatting.GetModeDisplay(d.ConsultationMode))
	fmt.Fprintf(&sb, "👤 %s\n", html.EscapeString(v.patientName(d.PatientID)))
	fmt.Fprintf(&sb, "🩺 %s\n", html.EscapeString(d.ReasonForVisit))
	if d.PatientNotes != "" {
		fmt.Fprintf(&sb, "💬 %s\n", html.EscapeString(d.PatientNotes))
	}
	if d.ConsultationMode == model.ModeVirtual {
		sb.WriteString("\n💳 Онлайн-консультацию нужно оплатить сразу после записи, иначе она будет отменена.")
	} else {
		sb.WriteString("\n⏳ Очный приём подтверждает врач.")
	}

	kb := keyboard.NewBuilder().
		Row(keyboard.Button("✅ Записаться", CbSubmit)).
		Row(keyboard.BackButton(CbBack), keyboard.CancelButton(CbCancel))
	return sb.String(), kb.Build()
}

func renderSuccess(v BookingView) (string, *models.InlineKeyboardMarkup) {
	id := v.Draft.SubmissionResultAppointmentID
	kb := keyboard.NewBuilder().
		Row(keyboard.Button("📄 Открыть запись", CbViewAppointment+id.String())).
		Row(keyboard.Button("➕ Записаться ещё", CbNew))
	return "🎉 Запись создана!", kb.Build()
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "не указано"
	}
	return html.EscapeString(s)
}
