package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/Freeeeeet/telemed_bot/internal/availability"
	"github.com/Freeeeeet/telemed_bot/internal/booking"
	"github.com/Freeeeeet/telemed_bot/internal/delegation"
	"github.com/Freeeeeet/telemed_bot/internal/lifecycle"
	"github.com/Freeeeeet/telemed_bot/internal/model"
	"github.com/Freeeeeet/telemed_bot/internal/policy"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type AppointmentService struct {
	appointments AppointmentStore
	slots        SlotStore
	doctors      DoctorStore
	machine      *lifecycle.Machine
	policy       *policy.Policy
	now          func() time.Time
	logger       *zap.Logger
}

func NewAppointmentService(
	appointments AppointmentStore,
	slots SlotStore,
	doctors DoctorStore,
	machine *lifecycle.Machine,
	logger *zap.Logger,
) *AppointmentService {
	return &AppointmentService{
		appointments: appointments,
		slots:        slots,
		doctors:      doctors,
		machine:      machine,
		policy:       policy.New(machine),
		now:          time.Now,
		logger:       logger,
	}
}

// WithClock подменяет часы (для тестов)
func (s *AppointmentService) WithClock(now func() time.Time) *AppointmentService {
	s.now = now
	return s
}

func (s *AppointmentService) Policy() *policy.Policy { return s.policy }

func (s *AppointmentService) Machine() *lifecycle.Machine { return s.machine }

// ============ Чтение ============

// Get возвращает запись и действия, доступные актору
func (s *AppointmentService) Get(ctx context.Context, actor policy.Actor, id uuid.UUID) (*model.Appointment, policy.ActionSet, error) {
	a, err := s.load(ctx, id)
	if err != nil {
		return nil, 0, err
	}

	if err := s.policy.Require(*a, actor, policy.ActionView, s.now()); err != nil {
		return nil, 0, err
	}

	return a, s.policy.AllowedActions(*a, actor, s.now()), nil
}

// AllowedActions действия актора над уже загруженной записью
func (s *AppointmentService) AllowedActions(a model.Appointment, actor policy.Actor) policy.ActionSet {
	return s.policy.AllowedActions(a, actor, s.now())
}

// ListForActor записи пациентов, которые актор может видеть, и, для врача, его приёмы.
// Сначала самые поздние
func (s *AppointmentService) ListForActor(ctx context.Context, actor policy.Actor) ([]*model.Appointment, error) {
	patientIDs := actor.Resolver.AuthorizedPatientsFor(delegation.ViewAppointments)

	list, err := s.appointments.ListByPatients(ctx, patientIDs)
	if err != nil {
		return nil, fmt.Errorf("list patient appointments: %w", err)
	}

	if actor.Role == model.RoleDoctor {
		own, err := s.appointments.ListByDoctor(ctx, actor.ID())
		if err != nil {
			return nil, fmt.Errorf("list doctor appointments: %w", err)
		}
		seen := make(map[uuid.UUID]bool, len(list))
		for _, a := range list {
			seen[a.ID] = true
		}
		for _, a := range own {
			if !seen[a.ID] {
				list = append(list, a)
			}
		}
	}

	sort.SliceStable(list, func(i, j int) bool {
		return list[i].ScheduledStart.After(list[j].ScheduledStart)
	})
	return list, nil
}

// AvailableTimeSlots слоты врача в окне [from, to)
func (s *AppointmentService) AvailableTimeSlots(ctx context.Context, doctorID int64, from, to time.Time) ([]model.TimeSlot, error) {
	slots, err := s.slots.ListByDoctor(ctx, doctorID, from, to)
	if err != nil {
		return nil, fmt.Errorf("list doctor slots: %w", err)
	}
	return slots, nil
}

// ============ Запись ============

// Book создаёт запись по команде мастера. Начальный статус зависит от режима приёма
func (s *AppointmentService) Book(ctx context.Context, actor policy.Actor, cmd booking.Command) (uuid.UUID, error) {
	if err := actor.Resolver.Require(cmd.PatientID, delegation.ManageAppointments); err != nil {
		return uuid.Nil, err
	}

	reason := strings.TrimSpace(cmd.ReasonForVisit)
	if reason == "" {
		return uuid.Nil, &model.ValidationError{Field: "reasonForVisit"}
	}

	doctor, err := s.doctors.GetByAccountID(ctx, cmd.DoctorID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("get doctor: %w", err)
	}
	if doctor == nil || !doctor.IsActive {
		return uuid.Nil, &model.ValidationError{Field: "selectedDoctorId", Message: "doctor is not accepting appointments"}
	}

	slot, err := s.slots.GetByID(ctx, cmd.TimeSlotID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("get slot: %w", err)
	}

	now := s.now()
	stale := &model.StaleResourceError{Resource: "time_slot", ID: fmt.Sprint(cmd.TimeSlotID)}
	if slot == nil || slot.DoctorID != cmd.DoctorID {
		return uuid.Nil, stale
	}
	if !availability.Eligible(*slot, availability.FilterAll, now) || slot.ConsultationMode != cmd.ConsultationMode {
		return uuid.Nil, stale
	}

	a := &model.Appointment{
		ID:               uuid.New(),
		PatientID:        cmd.PatientID,
		DoctorID:         cmd.DoctorID,
		TimeSlotID:       slot.ID,
		Status:           s.machine.Initial(slot.ConsultationMode),
		ConsultationMode: slot.ConsultationMode,
		ScheduledStart:   slot.StartTime,
		DurationMinutes:  slot.DurationMinutes,
		PatientNotes:     cmd.PatientNotes,
		ReasonForVisit:   reason,
		Documents:        append([]model.DocumentRef{}, cmd.DocumentRequestList...),
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := s.appointments.Create(ctx, a); err != nil {
		return uuid.Nil, fmt.Errorf("create appointment: %w", err)
	}

	s.logger.Info("Appointment booked",
		zap.String("appointment_id", a.ID.String()),
		zap.Int64("actor_id", actor.ID()),
		zap.Int64("patient_id", a.PatientID),
		zap.Int64("doctor_id", a.DoctorID),
		zap.Int64("slot_id", a.TimeSlotID),
		zap.String("status", string(a.Status)),
	)

	return a.ID, nil
}

// BookingBackend привязывает сервис к актору для мастера записи
func (s *AppointmentService) BookingBackend(actor policy.Actor) booking.Backend {
	return &bookingBackend{svc: s, actor: actor}
}

type bookingBackend struct {
	svc   *AppointmentService
	actor policy.Actor
}

func (b *bookingBackend) AvailableTimeSlots(ctx context.Context, doctorID int64, from, to time.Time) ([]model.TimeSlot, error) {
	return b.svc.AvailableTimeSlots(ctx, doctorID, from, to)
}

func (b *bookingBackend) BookAppointment(ctx context.Context, cmd booking.Command) (uuid.UUID, error) {
	return b.svc.Book(ctx, b.actor, cmd)
}

// ============ Изменения ============

// Update правит причину, заметки и документы. Только pending и pending_payment
func (s *AppointmentService) Update(ctx context.Context, actor policy.Actor, id uuid.UUID, edit lifecycle.Edit) (*model.Appointment, error) {
	a, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if err := s.policy.Require(*a, actor, policy.ActionEdit, now); err != nil {
		return nil, err
	}

	next, err := s.machine.ApplyEdit(*a, edit, now)
	if err != nil {
		return nil, err
	}

	if err := s.save(ctx, &next, actor.ID(), lifecycle.TriggerEdit); err != nil {
		return nil, err
	}
	return &next, nil
}

// Cancel отменяет запись. Пустая причина сохраняется как "unspecified"
func (s *AppointmentService) Cancel(ctx context.Context, actor policy.Actor, id uuid.UUID, reason string) (*model.Appointment, error) {
	return s.transition(ctx, actor, id, policy.ActionCancel, lifecycle.Request{
		Trigger: lifecycle.TriggerCancel,
		Reason:  reason,
	})
}

// Confirm подтверждение очного приёма назначенным врачом
func (s *AppointmentService) Confirm(ctx context.Context, actor policy.Actor, id uuid.UUID) (*model.Appointment, error) {
	return s.transition(ctx, actor, id, 0, lifecycle.Request{Trigger: lifecycle.TriggerConfirm})
}

// StartCall врач начинает консультацию
func (s *AppointmentService) StartCall(ctx context.Context, actor policy.Actor, id uuid.UUID) (*model.Appointment, error) {
	return s.transition(ctx, actor, id, policy.ActionStartCall, lifecycle.Request{Trigger: lifecycle.TriggerStartCall})
}

// CompleteCall врач завершает консультацию, заметки необязательны
func (s *AppointmentService) CompleteCall(ctx context.Context, actor policy.Actor, id uuid.UUID, doctorNotes string) (*model.Appointment, error) {
	req := lifecycle.Request{Trigger: lifecycle.TriggerComplete}
	if notes := strings.TrimSpace(doctorNotes); notes != "" {
		req.DoctorNotes = &notes
	}
	return s.transition(ctx, actor, id, policy.ActionComplete, req)
}

// CheckIn пациент подключился к звонку. Без отметки запись со временем уходит в no_show
func (s *AppointmentService) CheckIn(ctx context.Context, actor policy.Actor, id uuid.UUID) (*model.Appointment, error) {
	a, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := actor.Resolver.Require(a.PatientID, delegation.ManageAppointments); err != nil {
		return nil, err
	}
	if a.Status != model.StatusReadyForCall && a.Status != model.StatusInProgress {
		return nil, &model.IllegalTransitionError{From: a.Status, Trigger: "check_in"}
	}
	if a.CheckedInAt != nil {
		return a, nil
	}

	next := a.Clone()
	now := s.now()
	next.CheckedInAt = &now
	next.UpdatedAt = now

	if err := s.save(ctx, &next, actor.ID(), "check_in"); err != nil {
		return nil, err
	}
	return &next, nil
}

// PaymentDeadline проверяет что актор может оплатить и возвращает крайний срок оплаты
func (s *AppointmentService) PaymentDeadline(ctx context.Context, actor policy.Actor, id uuid.UUID) (*model.Appointment, time.Time, error) {
	a, err := s.load(ctx, id)
	if err != nil {
		return nil, time.Time{}, err
	}
	if err := s.policy.Require(*a, actor, policy.ActionPay, s.now()); err != nil {
		return nil, time.Time{}, err
	}
	return a, s.machine.PaymentDeadline(*a), nil
}

// CapturePayment платёжный провайдер сообщил об оплате в момент paidAt
func (s *AppointmentService) CapturePayment(ctx context.Context, id uuid.UUID, paidAt time.Time) (*model.Appointment, error) {
	a, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if paidAt.IsZero() {
		paidAt = s.now()
	}

	next, err := s.machine.Transition(*a, lifecycle.Request{
		Trigger: lifecycle.TriggerCapturePayment,
		Actor:   lifecycle.SystemActor(),
		Now:     paidAt,
	})
	if err != nil {
		return nil, err
	}

	if err := s.save(ctx, &next, 0, lifecycle.TriggerCapturePayment); err != nil {
		return nil, err
	}
	return &next, nil
}

// ============ Фоновые переходы ============

// SweepResult сколько записей продвинуто каждым системным триггером
type SweepResult struct {
	Checked  int
	Advanced map[lifecycle.Trigger]int
	Skipped  int
}

// Sweep применяет наступившие по времени системные переходы:
// истечение оплаты, открытие окна звонка, неявку
func (s *AppointmentService) Sweep(ctx context.Context) (SweepResult, error) {
	result := SweepResult{Advanced: make(map[lifecycle.Trigger]int)}

	active, err := s.appointments.ListActive(ctx)
	if err != nil {
		return result, fmt.Errorf("list active appointments: %w", err)
	}

	now := s.now()
	for _, a := range active {
		result.Checked++

		trigger, due := s.machine.DueSystemTrigger(*a, now)
		if !due {
			continue
		}

		next, err := s.machine.Transition(*a, lifecycle.Request{
			Trigger: trigger,
			Actor:   lifecycle.SystemActor(),
			Now:     now,
		})
		if err != nil {
			s.logger.Warn("Sweep transition rejected",
				zap.String("appointment_id", a.ID.String()),
				zap.String("trigger", string(trigger)),
				zap.Error(err))
			result.Skipped++
			continue
		}

		if err := s.save(ctx, &next, 0, trigger); err != nil {
			if errors.Is(err, model.ErrStaleResource) {
				// запись изменили параллельно, разберёмся на следующем проходе
				result.Skipped++
				continue
			}
			return result, err
		}
		result.Advanced[trigger]++
	}

	return result, nil
}

// ============ Внутреннее ============

func (s *AppointmentService) transition(ctx context.Context, actor policy.Actor, id uuid.UUID, action policy.Action, req lifecycle.Request) (*model.Appointment, error) {
	a, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if action != 0 {
		if err := s.policy.Require(*a, actor, action, now); err != nil {
			return nil, err
		}
	}

	req.Actor = actor.LifecycleActor(*a)
	req.Now = now
	next, err := s.machine.Transition(*a, req)
	if err != nil {
		return nil, err
	}

	if err := s.save(ctx, &next, actor.ID(), req.Trigger); err != nil {
		return nil, err
	}
	return &next, nil
}

func (s *AppointmentService) load(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	a, err := s.appointments.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get appointment: %w", err)
	}
	if a == nil {
		return nil, fmt.Errorf("appointment %s: %w", id, model.ErrNotFound)
	}
	return a, nil
}

func (s *AppointmentService) save(ctx context.Context, a *model.Appointment, actorID int64, trigger lifecycle.Trigger) error {
	if err := a.CheckInvariants(); err != nil {
		return err
	}
	if err := s.appointments.Update(ctx, a); err != nil {
		return fmt.Errorf("save appointment: %w", err)
	}

	s.logger.Info("Appointment updated",
		zap.String("appointment_id", a.ID.String()),
		zap.Int64("actor_id", actorID),
		zap.String("trigger", string(trigger)),
		zap.String("status", string(a.Status)),
		zap.Int("version", a.Version),
	)
	return nil
}
