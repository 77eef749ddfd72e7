package availability

import (
	"sort"
	"time"

	"github.com/Freeeeeet/telemed_bot/internal/model"
)

// ModeFilter фильтр по формату приёма
type ModeFilter string

const (
	FilterAll      ModeFilter = "all"
	FilterVirtual  ModeFilter = ModeFilter(model.ModeVirtual)
	FilterPhysical ModeFilter = ModeFilter(model.ModePhysical)
)

// Valid проверяет значение фильтра
func (f ModeFilter) Valid() bool {
	return f == FilterAll || f == FilterVirtual || f == FilterPhysical
}

// Matches true если слот с таким режимом проходит фильтр
func (f ModeFilter) Matches(mode model.ConsultationMode) bool {
	return f == FilterAll || ModeFilter(mode) == f
}

// Eligible слот можно забронировать: режим подходит, слот свободен и начинается строго после now
func Eligible(slot model.TimeSlot, filter ModeFilter, now time.Time) bool {
	return filter.Matches(slot.ConsultationMode) && slot.IsAvailable && slot.StartTime.After(now)
}

// Projection результат проекции. Значение неизменяемо, методы отдают копии
type Projection struct {
	filter ModeFilter
	dates  []Date
	byDate map[Date][]model.TimeSlot
	byID   map[int64]model.TimeSlot
}

// Project отбирает подходящие слоты и группирует их по локальной дате врача (loc)
func Project(slots []model.TimeSlot, filter ModeFilter, now time.Time, loc *time.Location) Projection {
	p := Projection{
		filter: filter,
		byDate: make(map[Date][]model.TimeSlot),
		byID:   make(map[int64]model.TimeSlot),
	}

	for _, slot := range slots {
		if !Eligible(slot, filter, now) {
			continue
		}
		d := DateOf(slot.StartTime, loc)
		if _, seen := p.byDate[d]; !seen {
			p.dates = append(p.dates, d)
		}
		p.byDate[d] = append(p.byDate[d], slot)
		p.byID[slot.ID] = slot
	}

	sort.Slice(p.dates, func(i, j int) bool { return p.dates[i].Before(p.dates[j]) })
	for _, list := range p.byDate {
		sort.SliceStable(list, func(i, j int) bool { return list[i].StartTime.Before(list[j].StartTime) })
	}

	return p
}

// Filter фильтр, с которым построена проекция
func (p Projection) Filter() ModeFilter { return p.filter }

// AvailableDates даты с хотя бы одним подходящим слотом, по возрастанию
func (p Projection) AvailableDates() []Date {
	return append([]Date(nil), p.dates...)
}

func (p Projection) HasDate(d Date) bool {
	_, ok := p.byDate[d]
	return ok
}

// SlotsForDate подходящие слоты даты по времени начала
func (p Projection) SlotsForDate(d Date) []model.TimeSlot {
	return append([]model.TimeSlot(nil), p.byDate[d]...)
}

// Slot ищет подходящий слот по ID
func (p Projection) Slot(id int64) (model.TimeSlot, bool) {
	s, ok := p.byID[id]
	return s, ok
}

func (p Projection) IsEmpty() bool { return len(p.dates) == 0 }
