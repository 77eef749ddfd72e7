package doctor

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/Freeeeeet/telemed_bot/internal/controller/callbacks/common/formatting"
	"github.com/Freeeeeet/telemed_bot/internal/controller/callbacks/common/keyboard"
	"github.com/Freeeeeet/telemed_bot/internal/model"
	"github.com/go-telegram/bot/models"
)

const (
	CbHome       = "dc_home"
	CbToggle     = "dc_toggle"
	CbAddSlot    = "dc_add_slot"
	CbAddWeekly  = "dc_add_weekly"
	CbDeleteSlot = "dc_slot_del:" // dc_slot_del:ID
	CbWeeklyOff  = "dc_wk_off:"   // dc_wk_off:ID

	// WeeksAhead на сколько недель вперёд генерируются слоты шаблонов
	WeeksAhead = 4
	// ScheduleWindow сколько дней расписания показывает экран врача
	ScheduleWindow = 14 * 24 * time.Hour

	maxSlotButtons = 20
)

// Schedule данные экрана расписания врача
type Schedule struct {
	Doctor *model.Doctor
	Slots  []model.TimeSlot
	Weekly []*model.RecurringSchedule
}

// RenderSchedule расписание врача: свободные слоты можно снять, шаблоны выключить
func RenderSchedule(s Schedule) (string, *models.InlineKeyboardMarkup) {
	loc := s.Doctor.Location()

	var sb strings.Builder
	fmt.Fprintf(&sb, "👨‍⚕️ <b>%s</b>, %s\n", html.EscapeString(s.Doctor.FullName), html.EscapeString(s.Doctor.Specialty))
	fmt.Fprintf(&sb, "🌍 Часовой пояс: %s\n", html.EscapeString(loc.String()))
	if s.Doctor.IsActive {
		sb.WriteString("🟢 Принимаю новые записи\n")
	} else {
		sb.WriteString("🔴 Новые записи закрыты\n")
	}

	kb := keyboard.NewBuilder()

	var free, booked int
	var freeButtons []models.InlineKeyboardButton
	for _, slot := range s.Slots {
		if !slot.IsAvailable {
			booked++
			continue
		}
		free++
		if len(freeButtons) < maxSlotButtons {
			label := fmt.Sprintf("🗑 %s %s %s",
				formatting.GetModeDisplay(slot.ConsultationMode).Emoji,
				formatting.FormatDayButton(slot.StartTime.In(loc)),
				formatting.FormatTime(slot.StartTime.In(loc)))
			freeButtons = append(freeButtons, keyboard.Button(label, fmt.Sprintf("%s%d", CbDeleteSlot, slot.ID)))
		}
	}
	fmt.Fprintf(&sb, "\n📅 Ближайшие 14 дней: %d %s свободно, %d занято\n", free, formatting.PluralizeSlots(free), booked)
	if free > maxSlotButtons {
		fmt.Fprintf(&sb, "Показаны первые %d.\n", maxSlotButtons)
	}
	kb.Grid(2, freeButtons...)

	active := 0
	for _, w := range s.Weekly {
		if !w.IsActive {
			continue
		}
		if active == 0 {
			sb.WriteString("\n🔁 Еженедельно:\n")
		}
		active++
		line := fmt.Sprintf("%s %02d:%02d · %s · %s",
			formatting.GetWeekdayShortName(w.Weekday), w.StartHour, w.StartMinute,
			formatting.FormatDuration(w.DurationMinutes),
			formatting.GetModeDisplay(w.ConsultationMode).Text)
		fmt.Fprintf(&sb, "• %s\n", line)
		kb.Row(keyboard.Button("⏹ "+line, fmt.Sprintf("%s%d", CbWeeklyOff, w.ID)))
	}

	kb.Row(keyboard.Button("➕ Слот", CbAddSlot), keyboard.Button("🔁 Еженедельно", CbAddWeekly))
	if s.Doctor.IsActive {
		kb.Row(keyboard.Button("🔴 Закрыть запись", CbToggle))
	} else {
		kb.Row(keyboard.Button("🟢 Открыть запись", CbToggle))
	}
	return sb.String(), kb.Build()
}

// SlotPrompt подсказка формата разового слота
const SlotPrompt = "➕ Введите дату и время слота в вашем часовом поясе:\n" +
	"<code>10.03.2026 14:30 30 онлайн</code>\n\n" +
	"Длительность в минутах и формат (онлайн/очно) можно не указывать: по умолчанию 30 минут онлайн."

// WeeklyPrompt подсказка формата шаблона
const WeeklyPrompt = "🔁 Введите день недели и время:\n" +
	"<code>Пн 10:00 30 очно</code>\n\n" +
	"Слоты создаются на 4 недели вперёд и продлеваются автоматически."
