package common

import (
	"fmt"
	"testing"

	"github.com/Freeeeeet/telemed_bot/internal/booking"
	"github.com/Freeeeeet/telemed_bot/internal/controller/state"
	"github.com/Freeeeeet/telemed_bot/internal/model"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCallbackArgs(t *testing.T) {
	args, err := CallbackArgs("fm_tgl:12:view_records", "fm_tgl:", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"12", "view_records"}, args)

	_, err = CallbackArgs("fm_tgl:12", "fm_tgl:", 2)
	assert.ErrorIs(t, err, ErrInvalidFormat)

	_, err = CallbackArgs("other:12", "fm_tgl:", 1)
	assert.ErrorIs(t, err, ErrInvalidFormat)

	_, err = CallbackArgs("fm_tgl::", "fm_tgl:", 2)
	assert.ErrorIs(t, err, ErrInvalidFormat)
}

func TestParseIDs(t *testing.T) {
	id, err := ParseID("dc_slot_del:42", "dc_slot_del:")
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	_, err = ParseID("dc_slot_del:x", "dc_slot_del:")
	assert.ErrorIs(t, err, ErrInvalidFormat)

	want := uuid.New()
	got, err := ParseUUID("ap_view:"+want.String(), "ap_view:")
	require.NoError(t, err)
	assert.Equal(t, want, got)

	_, err = ParseUUID("ap_view:nope", "ap_view:")
	assert.ErrorIs(t, err, ErrInvalidFormat)
}

func TestErrorMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"stale", fmt.Errorf("book: %w", &model.StaleResourceError{Resource: "time_slot", ID: "1"}), "🔄"},
		{"illegal", &model.IllegalTransitionError{From: model.StatusCancelled, Trigger: "cancel"}, "🚫"},
		{"denied", &model.PermissionDeniedError{ActorID: 1, PatientID: 2, Capability: "manage_appointments"}, "🔒"},
		{"reason", &model.ValidationError{Field: "reasonForVisit"}, "⚠️ Проверьте данные: укажите причину обращения"},
		{"expired", &model.ResourceExpiredError{Resource: "document_link", ID: "x"}, "⌛️ Ссылка устарела"},
		{"expired for good", &model.ResourceExpiredError{Resource: "document_link", ID: "x", Permanent: true}, "⌛️ Не удалось"},
		{"no session", state.ErrNoBookingSession, "⌛️ Сессия записи устарела"},
		{"wrong step", booking.ErrWrongStep, "⚠️ Это действие недоступно"},
		{"not found", fmt.Errorf("x: %w", model.ErrNotFound), "❌ Не найдено"},
		{"other", fmt.Errorf("boom"), "❌ Произошла ошибка"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Contains(t, ErrorMessage(tt.err), tt.want)
		})
	}
}
