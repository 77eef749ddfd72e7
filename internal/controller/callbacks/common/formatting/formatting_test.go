package formatting

import (
	"testing"
	"time"

	"github.com/Freeeeeet/telemed_bot/internal/model"
	"github.com/stretchr/testify/assert"
)

func TestPluralizeSlots(t *testing.T) {
	tests := []struct {
		count int
		want  string
	}{
		{1, "слот"},
		{2, "слота"},
		{5, "слотов"},
		{11, "слотов"},
		{21, "слот"},
		{22, "слота"},
		{112, "слотов"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, PluralizeSlots(tt.count), "count %d", tt.count)
	}
}

func TestParseWeekday(t *testing.T) {
	wd, ok := ParseWeekday("Пн")
	assert.True(t, ok)
	assert.Equal(t, 1, wd)

	wd, ok = ParseWeekday("воскресенье")
	assert.True(t, ok)
	assert.Equal(t, 0, wd)

	_, ok = ParseWeekday("пятн")
	assert.False(t, ok)
}

func TestFormatDateTimeIn(t *testing.T) {
	msk := time.FixedZone("MSK", 3*60*60)
	ts := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	assert.Equal(t, "10.03.2026 12:00", FormatDateTimeIn(ts, msk))
	assert.Equal(t, "10.03.2026 09:00", FormatDateTimeIn(ts, nil))
	assert.Equal(t, "Вт 10.03", FormatDayButton(ts))
}

func TestStatusDisplayCoversAllStatuses(t *testing.T) {
	for _, s := range model.AllStatuses {
		assert.NotEqual(t, "❓", GetAppointmentStatusDisplay(s).Emoji, s)
	}
	assert.Equal(t, "💻 Онлайн", GetModeDisplay(model.ModeVirtual).String())
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "45 мин", FormatDuration(45))
	assert.Equal(t, "1 ч", FormatDuration(60))
	assert.Equal(t, "1 ч 30 мин", FormatDuration(90))
}
