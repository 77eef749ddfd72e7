package appointment

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/Freeeeeet/telemed_bot/internal/controller/callbacks/callbacktypes"
	"github.com/Freeeeeet/telemed_bot/internal/delegation"
	"github.com/Freeeeeet/telemed_bot/internal/lifecycle"
	"github.com/Freeeeeet/telemed_bot/internal/model"
	"github.com/Freeeeeet/telemed_bot/internal/policy"
	"github.com/Freeeeeet/telemed_bot/internal/service"
	"github.com/go-telegram/bot/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var baseTime = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

func buttons(kb *models.InlineKeyboardMarkup) (callbacks []string, urls []string) {
	for _, row := range kb.InlineKeyboard {
		for _, b := range row {
			if b.URL != "" {
				urls = append(urls, b.URL)
				continue
			}
			callbacks = append(callbacks, b.CallbackData)
		}
	}
	return callbacks, urls
}

func newAppointment(status model.AppointmentStatus) model.Appointment {
	return model.Appointment{
		ID:               uuid.MustParse("6f1c2a3e-1111-4a4b-9c9d-000000000001"),
		PatientID:        11,
		DoctorID:         50,
		Status:           status,
		ConsultationMode: model.ModeVirtual,
		ScheduledStart:   baseTime.Add(3 * time.Hour),
		DurationMinutes:  30,
		ReasonForVisit:   "Головная <боль>",
		Documents:        []model.DocumentRef{{DocumentID: uuid.New()}},
		CreatedAt:        baseTime,
	}
}

func newHandler() *callbacktypes.Handler {
	machine := lifecycle.New(lifecycle.DefaultTiming())
	return &callbacktypes.Handler{
		AppointmentService: service.NewAppointmentService(nil, nil, nil, machine, zap.NewNop()),
		PaymentURL:         "https://pay.example/checkout?src=bot",
	}
}

func patientActor(id int64) policy.Actor {
	return policy.Actor{Resolver: delegation.NewResolver(id, nil), Role: model.RolePatient}
}

func TestRenderCardPatientPending(t *testing.T) {
	h := newHandler()
	a := newAppointment(model.StatusPendingPayment)
	actions := policy.Actions(policy.ActionView, policy.ActionEdit, policy.ActionCancel, policy.ActionPay)

	card := BuildCard(h, patientActor(11), a, actions, &model.Doctor{AccountID: 50, FullName: "Иванова", Specialty: "Терапевт", Timezone: "Europe/Moscow"}, "Пётр")
	assert.False(t, card.CanConfirm)
	assert.False(t, card.CanJoin)
	assert.True(t, card.DocumentsVisible)
	assert.Equal(t, baseTime.Add(lifecycle.DefaultTiming().GracePeriod), card.PaymentDeadline)

	text, kb := RenderCard(card)
	assert.Contains(t, text, "Головная &lt;боль&gt;")
	assert.Contains(t, text, "10.03.2026 15:00")
	assert.Contains(t, text, "Ожидает оплаты")

	id := a.ID.String()
	callbacks, urls := buttons(kb)
	assert.Equal(t, []string{CbEdit + id, CbDocuments + id, CbCancel + id, CbView + id, listCallback}, callbacks)
	require.Len(t, urls, 1)
	assert.Equal(t, "https://pay.example/checkout?appointment="+id+"&src=bot", urls[0])
}

func TestRenderCardDoctorAndJoin(t *testing.T) {
	h := newHandler()
	doctor := policy.Actor{Resolver: delegation.NewResolver(50, nil), Role: model.RoleDoctor}

	pending := newAppointment(model.StatusPending)
	card := BuildCard(h, doctor, pending, policy.Actions(policy.ActionView, policy.ActionCancel), nil, "")
	assert.True(t, card.CanConfirm)
	callbacks, _ := buttons(mustKeyboard(RenderCard(card)))
	assert.Contains(t, callbacks, CbConfirm+pending.ID.String())

	ready := newAppointment(model.StatusReadyForCall)
	card = BuildCard(h, doctor, ready, policy.Actions(policy.ActionView, policy.ActionStartCall), nil, "")
	assert.False(t, card.CanJoin)
	callbacks, _ = buttons(mustKeyboard(RenderCard(card)))
	assert.Contains(t, callbacks, CbStart+ready.ID.String())

	card = BuildCard(h, patientActor(11), ready, policy.Actions(policy.ActionView), nil, "")
	assert.True(t, card.CanJoin)

	now := baseTime
	ready.CheckedInAt = &now
	card = BuildCard(h, patientActor(11), ready, policy.Actions(policy.ActionView), nil, "")
	assert.False(t, card.CanJoin)
	text, _ := RenderCard(card)
	assert.Contains(t, text, "Пациент подключился")

	// без гранта на пациента подключиться нельзя
	card = BuildCard(h, patientActor(99), newAppointment(model.StatusReadyForCall), policy.Actions(policy.ActionView), nil, "")
	assert.False(t, card.CanJoin)
}

func TestRenderCardCancelled(t *testing.T) {
	a := newAppointment(model.StatusCancelled)
	reason := "Заболел"
	by := model.RolePatient
	a.CancellationReason = &reason
	a.CancelledBy = &by

	card := BuildCard(newHandler(), patientActor(11), a, policy.Actions(policy.ActionView), nil, "")
	assert.False(t, card.DocumentsVisible)

	text, kb := RenderCard(card)
	assert.Contains(t, text, "Заболел")
	callbacks, urls := buttons(kb)
	assert.Equal(t, []string{CbView + a.ID.String(), listCallback}, callbacks)
	assert.Empty(t, urls)
}

func TestRenderList(t *testing.T) {
	text, kb := RenderList(nil, nil, 0)
	assert.Contains(t, text, "/book")
	assert.Nil(t, kb)

	var list []*model.Appointment
	for i := 0; i < 10; i++ {
		a := newAppointment(model.StatusConfirmed)
		a.ID = uuid.New()
		list = append(list, &a)
	}
	doctors := map[int64]*model.Doctor{50: {AccountID: 50, FullName: "Иванова"}}

	text, kb = RenderList(list, doctors, 1)
	assert.Contains(t, text, "10 записей")
	callbacks, _ := buttons(kb)
	var views int
	for _, c := range callbacks {
		if strings.HasPrefix(c, CbView) {
			views++
		}
	}
	assert.Equal(t, 2, views)
	assert.Contains(t, callbacks, CbList+"0")
}

func TestRenderDocuments(t *testing.T) {
	id := uuid.New()
	text, kb := RenderDocuments(id, []model.DocumentRef{{Note: "Анализы"}, {}})
	assert.Contains(t, text, "Документы")
	callbacks, _ := buttons(kb)
	assert.Equal(t, []string{
		fmt.Sprintf("%s%s:0", CbDocument, id),
		fmt.Sprintf("%s%s:1", CbDocument, id),
		CbView + id.String(),
	}, callbacks)
	for _, c := range callbacks {
		assert.LessOrEqual(t, len(c), 64)
	}
}

func TestPaymentLink(t *testing.T) {
	id := uuid.New()
	assert.Empty(t, paymentLink("", id))
	assert.Equal(t, "https://pay.example/?appointment="+id.String(), paymentLink("https://pay.example/", id))
}

func mustKeyboard(_ string, kb *models.InlineKeyboardMarkup) *models.InlineKeyboardMarkup {
	return kb
}
