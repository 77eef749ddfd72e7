package appointment

import (
	"fmt"
	"html"
	"net/url"
	"strings"
	"time"

	"github.com/Freeeeeet/telemed_bot/internal/controller/callbacks/common/formatting"
	"github.com/Freeeeeet/telemed_bot/internal/controller/callbacks/common/keyboard"
	"github.com/Freeeeeet/telemed_bot/internal/model"
	"github.com/Freeeeeet/telemed_bot/internal/policy"
	"github.com/go-telegram/bot/models"
	"github.com/google/uuid"
)

// Callback data карточки записи
const (
	CbList       = "ap_list:"       // ap_list:page
	CbView       = "ap_view:"       // ap_view:uuid
	CbEdit       = "ap_edit:"       // ap_edit:uuid
	CbCancel     = "ap_cancel:"     // ap_cancel:uuid
	CbCancelOK   = "ap_cancel_ok:"  // ap_cancel_ok:uuid
	CbCancelWhy  = "ap_cancel_why:" // ap_cancel_why:uuid
	CbConfirm    = "ap_confirm:"    // ap_confirm:uuid
	CbStart      = "ap_start:"      // ap_start:uuid
	CbComplete   = "ap_done:"       // ap_done:uuid
	CbJoin       = "ap_join:"       // ap_join:uuid
	CbDocuments  = "ap_docs:"       // ap_docs:uuid
	CbDocument   = "ap_doc:"        // ap_doc:uuid:index
	perPage      = 8
	listCallback = CbList + "0"
)

// Card всё, что нужно для карточки записи
type Card struct {
	Appointment model.Appointment
	Actions     policy.ActionSet
	Doctor      *model.Doctor
	PatientName string

	// Подтверждение очного приёма и подключение к звонку не входят в набор действий политики:
	// первое проверяет машина статусов, второе только отмечает явку
	CanConfirm bool
	CanJoin    bool

	DocumentsVisible bool
	PaymentDeadline  time.Time
	PaymentURL       string
}

func (c Card) location() *time.Location {
	if c.Doctor == nil {
		return time.UTC
	}
	return c.Doctor.Location()
}

// RenderCard карточка записи с кнопками разрешённых действий
func RenderCard(c Card) (string, *models.InlineKeyboardMarkup) {
	a := c.Appointment
	loc := c.location()
	id := a.ID.String()

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s <b>Запись</b>\n\n", formatting.GetAppointmentStatusDisplay(a.Status).Emoji)
	fmt.Fprintf(&sb, "📊 Статус: %s\n", formatting.GetAppointmentStatusDisplay(a.Status).Text)
	if c.Doctor != nil {
		fmt.Fprintf(&sb, "👨‍⚕️ %s, %s\n", html.EscapeString(c.Doctor.FullName), html.EscapeString(c.Doctor.Specialty))
	}
	if c.PatientName != "" {
		fmt.Fprintf(&sb, "👤 %s\n", html.EscapeString(c.PatientName))
	}
	fmt.Fprintf(&sb, "⏰ %s, %s\n", formatting.FormatDateTimeIn(a.ScheduledStart, loc), formatting.FormatDuration(a.DurationMinutes))
	fmt.Fprintf(&sb, "%s\n", formatting.GetModeDisplay(a.ConsultationMode))
	fmt.Fprintf(&sb, "🩺 %s\n", html.EscapeString(a.ReasonForVisit))
	if a.PatientNotes != nil && *a.PatientNotes != "" {
		fmt.Fprintf(&sb, "💬 %s\n", html.EscapeString(*a.PatientNotes))
	}
	if a.DoctorNotes != nil && *a.DoctorNotes != "" {
		fmt.Fprintf(&sb, "📋 Заключение: %s\n", html.EscapeString(*a.DoctorNotes))
	}
	if a.Status == model.StatusCancelled && a.CancellationReason != nil {
		by := ""
		if a.CancelledBy != nil {
			by = " (" + formatting.GetRoleName(*a.CancelledBy) + ")"
		}
		fmt.Fprintf(&sb, "❌ Причина отмены: %s%s\n", html.EscapeString(*a.CancellationReason), by)
	}
	if a.CheckedInAt != nil {
		sb.WriteString("✅ Пациент подключился\n")
	}

	kb := keyboard.NewBuilder()
	if c.Actions.Has(policy.ActionPay) {
		label := "💳 Оплатить до " + formatting.FormatTime(c.PaymentDeadline.In(loc))
		fmt.Fprintf(&sb, "\n💳 Оплатите до %s, иначе запись будет отменена.\n", formatting.FormatDateTimeIn(c.PaymentDeadline, loc))
		if link := paymentLink(c.PaymentURL, a.ID); link != "" {
			kb.Row(keyboard.URLButton(label, link))
		} else {
			kb.Row(keyboard.Label(label))
		}
	}
	if c.CanConfirm {
		kb.Row(keyboard.Button("✅ Подтвердить приём", CbConfirm+id))
	}
	if c.Actions.Has(policy.ActionStartCall) {
		kb.Row(keyboard.Button("🎥 Начать приём", CbStart+id))
	}
	if c.CanJoin {
		kb.Row(keyboard.Button("📞 Я подключился", CbJoin+id))
	}
	if c.Actions.Has(policy.ActionComplete) {
		kb.Row(keyboard.Button("✔️ Завершить приём", CbComplete+id))
	}
	if c.Actions.Has(policy.ActionEdit) {
		kb.Row(keyboard.Button("✏️ Изменить причину", CbEdit+id))
	}
	if c.DocumentsVisible && len(a.Documents) > 0 {
		kb.Row(keyboard.Button(fmt.Sprintf("📎 Документы (%d)", len(a.Documents)), CbDocuments+id))
	}
	if c.Actions.Has(policy.ActionCancel) {
		kb.Row(keyboard.Button("❌ Отменить запись", CbCancel+id))
	}
	kb.Row(keyboard.Button("🔄 Обновить", CbView+id), keyboard.BackButton(listCallback))

	return sb.String(), kb.Build()
}

// RenderCancelConfirm вопрос перед отменой
func RenderCancelConfirm(id uuid.UUID) (string, *models.InlineKeyboardMarkup) {
	kb := keyboard.NewBuilder().
		Row(keyboard.Button("✅ Да, отменить", CbCancelOK+id.String())).
		Row(keyboard.Button("✍️ Указать причину", CbCancelWhy+id.String())).
		Row(keyboard.BackButton(CbView + id.String()))
	return "❓ Отменить запись?", kb.Build()
}

// RenderDocuments список приложенных документов
func RenderDocuments(id uuid.UUID, docs []model.DocumentRef) (string, *models.InlineKeyboardMarkup) {
	kb := keyboard.NewBuilder()
	for i, d := range docs {
		label := d.Note
		if label == "" {
			label = fmt.Sprintf("Документ %d", i+1)
		}
		kb.Row(keyboard.Button("📄 "+label, fmt.Sprintf("%s%s:%d", CbDocument, id, i)))
	}
	kb.AddBackButton(CbView + id.String())
	return "📎 <b>Документы записи</b>\n\nСсылка на просмотр действует ограниченное время.", kb.Build()
}

// RenderList страница списка записей
func RenderList(list []*model.Appointment, doctors map[int64]*model.Doctor, page int) (string, *models.InlineKeyboardMarkup) {
	if len(list) == 0 {
		return "📅 У вас пока нет записей.\n\nЗаписаться: /book", nil
	}

	from, to, pages := keyboard.Page(page, perPage, len(list))
	page = from / perPage

	kb := keyboard.NewBuilder()
	for _, a := range list[from:to] {
		loc := time.UTC
		name := ""
		if d, ok := doctors[a.DoctorID]; ok {
			loc = d.Location()
			name = " · " + d.FullName
		}
		label := fmt.Sprintf("%s %s %s%s",
			formatting.GetAppointmentStatusDisplay(a.Status).Emoji,
			formatting.GetModeDisplay(a.ConsultationMode).Emoji,
			formatting.FormatDateTimeIn(a.ScheduledStart, loc),
			name)
		kb.Row(keyboard.Button(label, CbView+a.ID.String()))
	}
	kb.AddPagination(CbList, page, pages)

	text := fmt.Sprintf("📅 <b>Записи</b>: %d %s", len(list), formatting.PluralizeAppointments(len(list)))
	return text, kb.Build()
}

func paymentLink(base string, id uuid.UUID) string {
	if base == "" {
		return ""
	}
	u, err := url.Parse(base)
	if err != nil {
		return ""
	}
	q := u.Query()
	q.Set("appointment", id.String())
	u.RawQuery = q.Encode()
	return u.String()
}
