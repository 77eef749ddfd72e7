package availability

import (
	"testing"
	"time"

	"github.com/Freeeeeet/telemed_bot/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 4, 10, 12, 0, 0, 0, time.UTC)

func slot(id int64, start time.Time, mode model.ConsultationMode) model.TimeSlot {
	return model.TimeSlot{
		ID:               id,
		DoctorID:         1,
		StartTime:        start,
		DurationMinutes:  30,
		ConsultationMode: mode,
		IsAvailable:      true,
	}
}

func fixture() []model.TimeSlot {
	taken := slot(6, now.Add(5*time.Hour), model.ModeVirtual)
	taken.IsAvailable = false
	return []model.TimeSlot{
		slot(1, now.Add(-time.Hour), model.ModeVirtual),    // в прошлом
		slot(2, now, model.ModeVirtual),                    // ровно сейчас
		slot(3, now.Add(2*time.Hour), model.ModeVirtual),   // сегодня
		slot(4, now.Add(26*time.Hour), model.ModePhysical), // завтра
		slot(5, now.Add(25*time.Hour), model.ModeVirtual),  // завтра
		taken,
	}
}

func TestProjectVirtualNeverIncludesPastOrOtherModes(t *testing.T) {
	p := Project(fixture(), FilterVirtual, now, time.UTC)

	for _, d := range p.AvailableDates() {
		for _, s := range p.SlotsForDate(d) {
			assert.True(t, s.StartTime.After(now))
			assert.Equal(t, model.ModeVirtual, s.ConsultationMode)
		}
	}

	_, ok := p.Slot(2)
	assert.False(t, ok, "slot starting exactly now is not eligible")
	_, ok = p.Slot(6)
	assert.False(t, ok, "unavailable slot is not eligible")
}

func TestProjectDatesAndOrdering(t *testing.T) {
	p := Project(fixture(), FilterAll, now, time.UTC)

	today := Date{2026, time.April, 10}
	tomorrow := Date{2026, time.April, 11}
	assert.Equal(t, []Date{today, tomorrow}, p.AvailableDates())

	ids := func(slots []model.TimeSlot) []int64 {
		var out []int64
		for _, s := range slots {
			out = append(out, s.ID)
		}
		return out
	}
	assert.Equal(t, []int64{3}, ids(p.SlotsForDate(today)))
	assert.Equal(t, []int64{5, 4}, ids(p.SlotsForDate(tomorrow)))
	assert.Empty(t, p.SlotsForDate(Date{2026, time.April, 12}))
}

func TestProjectUsesDoctorLocalDate(t *testing.T) {
	loc := time.FixedZone("UTC+5", 5*3600)
	late := slot(1, time.Date(2026, 4, 10, 20, 0, 0, 0, time.UTC), model.ModeVirtual)

	p := Project([]model.TimeSlot{late}, FilterAll, now, loc)
	assert.Equal(t, []Date{{2026, time.April, 11}}, p.AvailableDates())
}

func TestProjectEmpty(t *testing.T) {
	p := Project(nil, FilterAll, now, nil)
	assert.True(t, p.IsEmpty())
	assert.Empty(t, p.AvailableDates())
}

func TestProjectionResultsAreCopies(t *testing.T) {
	p := Project(fixture(), FilterAll, now, time.UTC)
	d := p.AvailableDates()[0]

	list := p.SlotsForDate(d)
	list[0].ID = 999
	assert.NotEqual(t, int64(999), p.SlotsForDate(d)[0].ID)
}

func TestSelectionInvalidatesSlot(t *testing.T) {
	s := NewSelection()
	d := Date{2026, time.April, 10}

	s.SelectDate(d)
	s.SelectSlot(3)
	_, ok := s.SlotID()
	require.True(t, ok)

	s.SelectDate(d)
	_, ok = s.SlotID()
	assert.True(t, ok, "re-selecting the same date keeps the slot")

	s.SelectDate(Date{2026, time.April, 11})
	_, ok = s.SlotID()
	assert.False(t, ok)

	s.SelectSlot(5)
	s.SetFilter(FilterVirtual)
	_, ok = s.SlotID()
	assert.False(t, ok)
	assert.Equal(t, FilterVirtual, s.Filter())
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2026-04-10")
	require.NoError(t, err)
	assert.Equal(t, Date{2026, time.April, 10}, d)
	assert.Equal(t, "2026-04-10", d.String())

	_, err = ParseDate("10.04.2026")
	assert.Error(t, err)
}
