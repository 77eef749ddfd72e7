package doctor

import (
	"strconv"
	"strings"
	"time"

	"github.com/Freeeeeet/telemed_bot/internal/controller/callbacks/common/formatting"
	"github.com/Freeeeeet/telemed_bot/internal/model"
)

const defaultDuration = 30

// SlotInput разобранная строка разового слота
type SlotInput struct {
	Start           time.Time
	DurationMinutes int
	Mode            model.ConsultationMode
}

// ParseSlotInput "10.03.2026 14:30 30 онлайн". Длительность и формат необязательны.
// Время понимается в часовом поясе врача
func ParseSlotInput(input string, loc *time.Location) (SlotInput, error) {
	fields := strings.Fields(input)
	if len(fields) < 2 {
		return SlotInput{}, &model.ValidationError{Field: "date", Message: "expected DD.MM.YYYY HH:MM"}
	}
	if loc == nil {
		loc = time.UTC
	}

	start, err := time.ParseInLocation("02.01.2006 15:04", fields[0]+" "+fields[1], loc)
	if err != nil {
		return SlotInput{}, &model.ValidationError{Field: "date", Message: err.Error()}
	}

	out := SlotInput{Start: start, DurationMinutes: defaultDuration, Mode: model.ModeVirtual}
	if err := parseTail(fields[2:], &out.DurationMinutes, &out.Mode); err != nil {
		return SlotInput{}, err
	}
	return out, nil
}

// ParseWeeklyInput "Пн 10:00 30 очно" в шаблон без врача
func ParseWeeklyInput(input string) (*model.RecurringSchedule, error) {
	fields := strings.Fields(input)
	if len(fields) < 2 {
		return nil, &model.ValidationError{Field: "weekday", Message: "expected weekday and HH:MM"}
	}

	weekday, ok := formatting.ParseWeekday(fields[0])
	if !ok {
		return nil, &model.ValidationError{Field: "weekday", Message: "unknown weekday " + fields[0]}
	}
	at, err := time.Parse("15:04", fields[1])
	if err != nil {
		return nil, &model.ValidationError{Field: "startTime", Message: err.Error()}
	}

	s := &model.RecurringSchedule{
		Weekday:          weekday,
		StartHour:        at.Hour(),
		StartMinute:      at.Minute(),
		DurationMinutes:  defaultDuration,
		ConsultationMode: model.ModeVirtual,
	}
	if err := parseTail(fields[2:], &s.DurationMinutes, &s.ConsultationMode); err != nil {
		return nil, err
	}
	return s, s.Validate()
}

// parseTail необязательные длительность и формат в любом порядке
func parseTail(fields []string, duration *int, mode *model.ConsultationMode) error {
	for _, f := range fields {
		if n, err := strconv.Atoi(f); err == nil {
			if n <= 0 || n > 240 {
				return &model.ValidationError{Field: "durationMinutes", Message: "must be 1..240"}
			}
			*duration = n
			continue
		}
		m, ok := parseMode(f)
		if !ok {
			return &model.ValidationError{Field: "consultationMode", Message: "unknown mode " + f}
		}
		*mode = m
	}
	return nil
}

func parseMode(s string) (model.ConsultationMode, bool) {
	switch strings.ToLower(s) {
	case "онлайн", "online", "virtual", "видео":
		return model.ModeVirtual, true
	case "очно", "offline", "physical", "клиника":
		return model.ModePhysical, true
	}
	return "", false
}
