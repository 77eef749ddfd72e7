package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Freeeeeet/telemed_bot/internal/availability"
	"github.com/Freeeeeet/telemed_bot/internal/delegation"
	"github.com/Freeeeeet/telemed_bot/internal/model"
	"github.com/google/uuid"
)

var (
	ErrAtFirstStep     = errors.New("already at the first step")
	ErrSubmitRequired  = errors.New("confirm step is finished by submit")
	ErrNotAtConfirm    = errors.New("submit is only possible from the confirm step")
	ErrSessionFinished = errors.New("booking session is finished, start a new one")
	ErrWrongStep       = errors.New("operation is not available at this step")
)

// Backend то, что мастеру нужно от бэкенда
type Backend interface {
	AvailableTimeSlots(ctx context.Context, doctorID int64, from, to time.Time) ([]model.TimeSlot, error)
	BookAppointment(ctx context.Context, cmd Command) (uuid.UUID, error)
}

type Option func(*Orchestrator)

// WithClock подменяет источник текущего времени
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// WithHorizon окно, на которое запрашиваются слоты
func WithHorizon(d time.Duration) Option {
	return func(o *Orchestrator) { o.horizon = d }
}

// Orchestrator единственный владелец черновика записи одной сессии
type Orchestrator struct {
	backend  Backend
	resolver *delegation.Resolver
	now      func() time.Time
	horizon  time.Duration

	draft      Draft
	selection  availability.Selection
	loc        *time.Location
	slots      []model.TimeSlot
	projection availability.Projection
}

func New(backend Backend, resolver *delegation.Resolver, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		backend:  backend,
		resolver: resolver,
		now:      time.Now,
		horizon:  14 * 24 * time.Hour,
	}
	for _, opt := range opts {
		opt(o)
	}
	o.Start()
	return o
}

// Start начинает новую сессию с пустым черновиком. По умолчанию запись для себя
func (o *Orchestrator) Start() {
	o.draft = Draft{
		CurrentStep: StepSelectDoctor,
		PatientID:   o.resolver.ActorID(),
		IsForSelf:   true,
	}
	o.selection = availability.NewSelection()
	o.loc = time.UTC
	o.slots = nil
	o.projection = availability.Project(nil, availability.FilterAll, o.now(), o.loc)
}

// Draft копия текущего черновика
func (o *Orchestrator) Draft() Draft { return o.draft.clone() }

func (o *Orchestrator) Step() Step { return o.draft.CurrentStep }

func (o *Orchestrator) Selection() availability.Selection { return o.selection }

func (o *Orchestrator) Projection() availability.Projection { return o.projection }

// SelectDoctor выбирает врача. loc часовой пояс врача для календарных дат.
// Смена врача сбрасывает всё, что выбрано по слотам
func (o *Orchestrator) SelectDoctor(doctorID int64, loc *time.Location) error {
	if err := o.requireStep(StepSelectDoctor); err != nil {
		return err
	}
	if doctorID <= 0 {
		return &model.ValidationError{Field: "selectedDoctorId", Message: "unknown doctor"}
	}
	if loc == nil {
		loc = time.UTC
	}
	if o.draft.SelectedDoctorID != doctorID {
		o.selection = availability.NewSelection()
		o.slots = nil
		o.clearSlot()
	}
	o.draft.SelectedDoctorID = doctorID
	o.loc = loc
	o.reproject()
	return nil
}

// LoadAvailability перечитывает слоты врача с бэкенда
func (o *Orchestrator) LoadAvailability(ctx context.Context) error {
	if o.draft.SelectedDoctorID == 0 {
		return &model.ValidationError{Field: "selectedDoctorId"}
	}
	now := o.now()
	slots, err := o.backend.AvailableTimeSlots(ctx, o.draft.SelectedDoctorID, now, now.Add(o.horizon))
	if err != nil {
		return fmt.Errorf("load availability: %w", err)
	}
	o.slots = slots
	o.reproject()

	// выбранный слот мог пропасть
	if id, ok := o.selection.SlotID(); ok {
		if _, still := o.projection.Slot(id); !still {
			o.clearSlot()
		}
	}
	return nil
}

// SetModeFilter меняет фильтр режима приёма и сбрасывает выбранный слот
func (o *Orchestrator) SetModeFilter(f availability.ModeFilter) error {
	if err := o.requireStep(StepSelectTimeSlot); err != nil {
		return err
	}
	if !f.Valid() {
		return &model.ValidationError{Field: "consultationMode", Message: "unknown filter " + string(f)}
	}
	if f != o.selection.Filter() {
		o.selection.SetFilter(f)
		o.clearSlot()
		o.reproject()
	}
	return nil
}

// SelectDate выбирает дату из доступных; смена даты сбрасывает слот
func (o *Orchestrator) SelectDate(d availability.Date) error {
	if err := o.requireStep(StepSelectTimeSlot); err != nil {
		return err
	}
	if !o.projection.HasDate(d) {
		return &model.ValidationError{Field: "date", Message: "no available slots on " + d.String()}
	}
	if cur, ok := o.selection.Date(); !ok || cur != d {
		o.selection.SelectDate(d)
		o.clearSlot()
	}
	return nil
}

// SelectTimeSlot выбирает слот из текущей проекции
func (o *Orchestrator) SelectTimeSlot(slotID int64) error {
	if err := o.requireStep(StepSelectTimeSlot); err != nil {
		return err
	}
	slot, ok := o.projection.Slot(slotID)
	if !ok {
		return &model.StaleResourceError{Resource: "time_slot", ID: fmt.Sprint(slotID)}
	}
	o.selection.SelectDate(availability.DateOf(slot.StartTime, o.loc))
	o.selection.SelectSlot(slot.ID)
	o.draft.SelectedTimeSlotID = slot.ID
	o.draft.ConsultationMode = slot.ConsultationMode
	o.draft.ScheduledStart = slot.StartTime
	return nil
}

// PatientChoices пациенты, за которых актор может записываться (сам актор первым)
func (o *Orchestrator) PatientChoices() []int64 {
	return o.resolver.AuthorizedPatientsFor(delegation.ManageAppointments)
}

// SelectPatient выбирает пациента. Нужно право manage_appointments
func (o *Orchestrator) SelectPatient(patientID int64) error {
	if err := o.requireStep(StepEnterDetails); err != nil {
		return err
	}
	if err := o.resolver.Require(patientID, delegation.ManageAppointments); err != nil {
		return err
	}
	o.draft.PatientID = patientID
	o.draft.IsForSelf = patientID == o.resolver.ActorID()
	return nil
}

func (o *Orchestrator) SetReasonForVisit(reason string) error {
	if err := o.requireStep(StepEnterDetails); err != nil {
		return err
	}
	o.draft.ReasonForVisit = reason
	return nil
}

func (o *Orchestrator) SetPatientNotes(notes string) error {
	if err := o.requireStep(StepEnterDetails); err != nil {
		return err
	}
	o.draft.PatientNotes = notes
	return nil
}

// AttachDocument добавляет документ; повторное добавление обновляет заметку
func (o *Orchestrator) AttachDocument(ref model.DocumentRef) error {
	if err := o.requireStep(StepEnterDetails); err != nil {
		return err
	}
	for i, existing := range o.draft.Documents {
		if existing.DocumentID == ref.DocumentID {
			o.draft.Documents[i].Note = ref.Note
			return nil
		}
	}
	o.draft.Documents = append(o.draft.Documents, ref)
	return nil
}

func (o *Orchestrator) RemoveDocument(id uuid.UUID) error {
	if err := o.requireStep(StepEnterDetails); err != nil {
		return err
	}
	docs := o.draft.Documents[:0]
	for _, d := range o.draft.Documents {
		if d.DocumentID != id {
			docs = append(docs, d)
		}
	}
	o.draft.Documents = docs
	return nil
}

// Advance проверяет обязательные поля текущего шага и переходит к следующему
func (o *Orchestrator) Advance() error {
	switch o.draft.CurrentStep {
	case StepConfirm:
		return ErrSubmitRequired
	case StepSuccess:
		return ErrSessionFinished
	}
	if err := o.validateStep(o.draft.CurrentStep); err != nil {
		return err
	}
	o.draft.CurrentStep++
	return nil
}

// Retreat возвращает на предыдущий шаг без проверок
func (o *Orchestrator) Retreat() error {
	switch o.draft.CurrentStep {
	case StepSelectDoctor:
		return ErrAtFirstStep
	case StepSuccess:
		return ErrSessionFinished
	}
	o.draft.CurrentStep--
	return nil
}

// Submit отправляет одну команду записи. Перед отправкой слот перепроверяется
// по свежим данным. При ошибке черновик не меняется и можно повторить.
// При успехе черновик очищается, остаётся только ID созданной записи.
func (o *Orchestrator) Submit(ctx context.Context) (uuid.UUID, error) {
	if o.draft.CurrentStep != StepConfirm {
		return uuid.Nil, ErrNotAtConfirm
	}
	for step := StepSelectDoctor; step < StepConfirm; step++ {
		if err := o.validateStep(step); err != nil {
			return uuid.Nil, err
		}
	}
	if err := o.resolver.Require(o.draft.PatientID, delegation.ManageAppointments); err != nil {
		return uuid.Nil, err
	}

	if err := o.ensureSlotStillAvailable(ctx); err != nil {
		return uuid.Nil, err
	}

	id, err := o.backend.BookAppointment(ctx, o.command())
	if err != nil {
		return uuid.Nil, fmt.Errorf("book appointment: %w", err)
	}

	o.Start()
	o.draft.CurrentStep = StepSuccess
	o.draft.SubmissionResultAppointmentID = id
	return id, nil
}

func (o *Orchestrator) ensureSlotStillAvailable(ctx context.Context) error {
	now := o.now()
	slots, err := o.backend.AvailableTimeSlots(ctx, o.draft.SelectedDoctorID, now, now.Add(o.horizon))
	if err != nil {
		return fmt.Errorf("refresh availability: %w", err)
	}
	o.slots = slots
	o.reproject()

	for _, s := range slots {
		if s.ID == o.draft.SelectedTimeSlotID &&
			s.ConsultationMode == o.draft.ConsultationMode &&
			availability.Eligible(s, availability.FilterAll, now) {
			return nil
		}
	}
	return &model.StaleResourceError{Resource: "time_slot", ID: fmt.Sprint(o.draft.SelectedTimeSlotID)}
}

func (o *Orchestrator) command() Command {
	cmd := Command{
		DoctorID:            o.draft.SelectedDoctorID,
		PatientID:           o.draft.PatientID,
		TimeSlotID:          o.draft.SelectedTimeSlotID,
		ConsultationMode:    o.draft.ConsultationMode,
		ReasonForVisit:      strings.TrimSpace(o.draft.ReasonForVisit),
		DocumentRequestList: append([]model.DocumentRef{}, o.draft.Documents...),
	}
	if notes := strings.TrimSpace(o.draft.PatientNotes); notes != "" {
		cmd.PatientNotes = &notes
	}
	return cmd
}

func (o *Orchestrator) validateStep(step Step) error {
	switch step {
	case StepSelectDoctor:
		if o.draft.SelectedDoctorID == 0 {
			return &model.ValidationError{Field: "selectedDoctorId"}
		}
	case StepSelectTimeSlot:
		if o.draft.SelectedTimeSlotID == 0 {
			return &model.ValidationError{Field: "selectedTimeSlotId"}
		}
	case StepEnterDetails:
		if o.draft.PatientID == 0 {
			return &model.ValidationError{Field: "patientId"}
		}
		if strings.TrimSpace(o.draft.ReasonForVisit) == "" {
			return &model.ValidationError{Field: "reasonForVisit"}
		}
	}
	return nil
}

func (o *Orchestrator) requireStep(step Step) error {
	if o.draft.CurrentStep != step {
		return fmt.Errorf("%w: at %s, need %s", ErrWrongStep, o.draft.CurrentStep, step)
	}
	return nil
}

func (o *Orchestrator) clearSlot() {
	o.selection.ClearSlot()
	o.draft.SelectedTimeSlotID = 0
	o.draft.ConsultationMode = ""
	o.draft.ScheduledStart = time.Time{}
}

func (o *Orchestrator) reproject() {
	o.projection = availability.Project(o.slots, o.selection.Filter(), o.now(), o.loc)
}
