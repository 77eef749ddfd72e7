package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Freeeeeet/telemed_bot/internal/model"
	"go.uber.org/zap"
)

type DoctorService struct {
	doctors   DoctorStore
	slots     SlotStore
	schedules ScheduleStore
	now       func() time.Time
	logger    *zap.Logger
}

func NewDoctorService(doctors DoctorStore, slots SlotStore, schedules ScheduleStore, logger *zap.Logger) *DoctorService {
	return &DoctorService{
		doctors:   doctors,
		slots:     slots,
		schedules: schedules,
		now:       time.Now,
		logger:    logger,
	}
}

// ============ Профиль ============

// Register регистрирует аккаунт врачом или обновляет профиль
func (s *DoctorService) Register(ctx context.Context, accountID int64, fullName, specialty, timezone string) (*model.Doctor, error) {
	fullName = strings.TrimSpace(fullName)
	specialty = strings.TrimSpace(specialty)
	timezone = strings.TrimSpace(timezone)

	if fullName == "" {
		return nil, &model.ValidationError{Field: "fullName"}
	}
	if specialty == "" {
		return nil, &model.ValidationError{Field: "specialty"}
	}
	if timezone == "" {
		timezone = "UTC"
	}
	if _, err := time.LoadLocation(timezone); err != nil {
		return nil, &model.ValidationError{Field: "timezone", Message: "unknown time zone " + timezone}
	}

	doctor := &model.Doctor{
		AccountID: accountID,
		FullName:  fullName,
		Specialty: specialty,
		Timezone:  timezone,
		IsActive:  true,
	}
	if err := s.doctors.Register(ctx, doctor); err != nil {
		return nil, fmt.Errorf("register doctor: %w", err)
	}

	s.logger.Info("Doctor registered",
		zap.Int64("account_id", accountID),
		zap.String("specialty", specialty),
		zap.String("timezone", timezone),
	)
	return doctor, nil
}

// Get профиль врача или ErrNotFound
func (s *DoctorService) Get(ctx context.Context, accountID int64) (*model.Doctor, error) {
	doctor, err := s.doctors.GetByAccountID(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("get doctor: %w", err)
	}
	if doctor == nil {
		return nil, fmt.Errorf("doctor %d: %w", accountID, model.ErrNotFound)
	}
	return doctor, nil
}

// ListActive врачи, к которым можно записаться
func (s *DoctorService) ListActive(ctx context.Context) ([]*model.Doctor, error) {
	return s.doctors.ListActive(ctx)
}

// ByIDs профили по ID, ключ account_id
func (s *DoctorService) ByIDs(ctx context.Context, ids []int64) (map[int64]*model.Doctor, error) {
	list, err := s.doctors.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("get doctors: %w", err)
	}
	out := make(map[int64]*model.Doctor, len(list))
	for _, d := range list {
		out[d.AccountID] = d
	}
	return out, nil
}

// ToggleAccepting включает или выключает приём новых записей
func (s *DoctorService) ToggleAccepting(ctx context.Context, accountID int64) (*model.Doctor, error) {
	doctor, err := s.Get(ctx, accountID)
	if err != nil {
		return nil, err
	}

	doctor.IsActive = !doctor.IsActive
	if err := s.doctors.SetActive(ctx, accountID, doctor.IsActive); err != nil {
		return nil, fmt.Errorf("toggle doctor: %w", err)
	}
	return doctor, nil
}

// ============ Слоты ============

// PublishSlot публикует один слот приёма
func (s *DoctorService) PublishSlot(ctx context.Context, doctorID int64, start time.Time, durationMinutes int, mode model.ConsultationMode) (*model.TimeSlot, error) {
	if _, err := s.Get(ctx, doctorID); err != nil {
		return nil, err
	}
	if !mode.Valid() {
		return nil, &model.ValidationError{Field: "consultationMode", Message: "unknown mode"}
	}
	if durationMinutes <= 0 {
		return nil, &model.ValidationError{Field: "durationMinutes", Message: "must be positive"}
	}
	if !start.After(s.now()) {
		return nil, &model.ValidationError{Field: "startTime", Message: "slot must be in the future"}
	}

	slot := &model.TimeSlot{
		DoctorID:         doctorID,
		StartTime:        start,
		DurationMinutes:  durationMinutes,
		ConsultationMode: mode,
		IsAvailable:      true,
	}
	if err := s.slots.Create(ctx, slot); err != nil {
		return nil, fmt.Errorf("create slot: %w", err)
	}

	s.logger.Info("Slot published",
		zap.Int64("slot_id", slot.ID),
		zap.Int64("doctor_id", doctorID),
		zap.Time("start_time", start),
		zap.String("mode", string(mode)),
	)
	return slot, nil
}

// Slots все слоты врача в окне [from, to)
func (s *DoctorService) Slots(ctx context.Context, doctorID int64, from, to time.Time) ([]model.TimeSlot, error) {
	return s.slots.ListByDoctor(ctx, doctorID, from, to)
}

// DeleteSlot снимает свободный слот с публикации
func (s *DoctorService) DeleteSlot(ctx context.Context, doctorID, slotID int64) error {
	if err := s.slots.Delete(ctx, doctorID, slotID); err != nil {
		return fmt.Errorf("delete slot: %w", err)
	}
	return nil
}

// ============ Регулярное расписание ============

// AddWeeklySchedule создаёт еженедельный шаблон и сразу генерирует слоты на weeksAhead недель
func (s *DoctorService) AddWeeklySchedule(ctx context.Context, schedule *model.RecurringSchedule, weeksAhead int) (int, error) {
	doctor, err := s.Get(ctx, schedule.DoctorID)
	if err != nil {
		return 0, err
	}
	if err := schedule.Validate(); err != nil {
		return 0, err
	}

	schedule.IsActive = true
	if err := s.schedules.Create(ctx, schedule); err != nil {
		return 0, fmt.Errorf("create recurring schedule: %w", err)
	}

	count := s.generateSlots(ctx, schedule, doctor.Location(), weeksAhead)

	s.logger.Info("Recurring schedule created",
		zap.Int64("recurring_schedule_id", schedule.ID),
		zap.Int64("doctor_id", schedule.DoctorID),
		zap.Int("weekday", schedule.Weekday),
		zap.Int("slots_created", count),
	)
	return count, nil
}

// WeeklySchedules шаблоны врача
func (s *DoctorService) WeeklySchedules(ctx context.Context, doctorID int64) ([]*model.RecurringSchedule, error) {
	return s.schedules.GetByDoctorID(ctx, doctorID)
}

// DeactivateWeeklySchedule выключает шаблон. Уже созданные слоты остаются
func (s *DoctorService) DeactivateWeeklySchedule(ctx context.Context, doctorID, scheduleID int64) error {
	if err := s.schedules.Deactivate(ctx, doctorID, scheduleID); err != nil {
		return fmt.Errorf("deactivate recurring schedule: %w", err)
	}
	s.logger.Info("Recurring schedule deactivated",
		zap.Int64("recurring_schedule_id", scheduleID),
		zap.Int64("doctor_id", doctorID))
	return nil
}

// GenerateSlotsForAllRecurringSchedules догенерирует слоты по всем активным шаблонам.
// Вызывается планировщиком
func (s *DoctorService) GenerateSlotsForAllRecurringSchedules(ctx context.Context, weeksAhead int) (int, error) {
	schedules, err := s.schedules.GetAllActive(ctx)
	if err != nil {
		return 0, fmt.Errorf("get all active recurring schedules: %w", err)
	}

	locations := make(map[int64]*time.Location)
	totalCount := 0
	for _, schedule := range schedules {
		loc, ok := locations[schedule.DoctorID]
		if !ok {
			doctor, err := s.doctors.GetByAccountID(ctx, schedule.DoctorID)
			if err != nil || doctor == nil {
				s.logger.Warn("Skipping schedule of unknown doctor",
					zap.Int64("recurring_schedule_id", schedule.ID),
					zap.Error(err))
				continue
			}
			loc = doctor.Location()
			locations[schedule.DoctorID] = loc
		}
		totalCount += s.generateSlots(ctx, schedule, loc, weeksAhead)
	}

	s.logger.Info("Generated slots for all recurring schedules",
		zap.Int("total_schedules", len(schedules)),
		zap.Int("total_slots_created", totalCount),
	)
	return totalCount, nil
}

func (s *DoctorService) generateSlots(ctx context.Context, schedule *model.RecurringSchedule, loc *time.Location, weeksAhead int) int {
	count := 0
	for _, start := range occurrences(*schedule, loc, s.now(), weeksAhead) {
		slot := &model.TimeSlot{
			DoctorID:         schedule.DoctorID,
			StartTime:        start,
			DurationMinutes:  schedule.DurationMinutes,
			ConsultationMode: schedule.ConsultationMode,
			IsAvailable:      true,
		}
		created, err := s.slots.CreateIfAbsent(ctx, slot)
		if err != nil {
			s.logger.Warn("Failed to create slot",
				zap.Error(err),
				zap.Time("start_time", start),
			)
			continue
		}
		if created {
			count++
		}
	}
	return count
}

// occurrences моменты начала по шаблону в ближайшие weeksAhead недель, строго после now.
// Время шаблона понимается в часовом поясе врача
func occurrences(schedule model.RecurringSchedule, loc *time.Location, now time.Time, weeksAhead int) []time.Time {
	local := now.In(loc)
	var out []time.Time
	for i := 0; i < weeksAhead*7; i++ {
		start := time.Date(local.Year(), local.Month(), local.Day()+i,
			schedule.StartHour, schedule.StartMinute, 0, 0, loc)
		if int(start.Weekday()) != schedule.Weekday || !start.After(now) {
			continue
		}
		out = append(out, start)
	}
	return out
}
