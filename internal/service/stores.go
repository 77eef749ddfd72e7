package service

import (
	"context"
	"time"

	"github.com/Freeeeeet/telemed_bot/internal/model"
	"github.com/google/uuid"
)

// Контракты хранилищ. Реализованы репозиториями в internal/repository.
// Методы Get* возвращают nil, nil если запись не найдена

type AppointmentStore interface {
	Create(ctx context.Context, a *model.Appointment) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Appointment, error)
	ListByPatients(ctx context.Context, patientIDs []int64) ([]*model.Appointment, error)
	ListByDoctor(ctx context.Context, doctorID int64) ([]*model.Appointment, error)
	ListActive(ctx context.Context) ([]*model.Appointment, error)
	Update(ctx context.Context, a *model.Appointment) error
}

type SlotStore interface {
	Create(ctx context.Context, slot *model.TimeSlot) error
	CreateIfAbsent(ctx context.Context, slot *model.TimeSlot) (bool, error)
	GetByID(ctx context.Context, id int64) (*model.TimeSlot, error)
	ListByDoctor(ctx context.Context, doctorID int64, from, to time.Time) ([]model.TimeSlot, error)
	Delete(ctx context.Context, doctorID, slotID int64) error
}

type GrantStore interface {
	Create(ctx context.Context, g *model.DelegationGrant) error
	GetByID(ctx context.Context, id int64) (*model.DelegationGrant, error)
	GetByInviteCode(ctx context.Context, code string) (*model.DelegationGrant, error)
	Accept(ctx context.Context, id, memberAccountID int64, at time.Time) error
	ListForMember(ctx context.Context, memberAccountID int64) ([]model.DelegationGrant, error)
	ListForPatient(ctx context.Context, patientID int64) ([]model.DelegationGrant, error)
	UpdateFlags(ctx context.Context, g *model.DelegationGrant) error
	Delete(ctx context.Context, id, patientID int64) error
}

type UserStore interface {
	// Upsert создаёт аккаунт или обновляет профиль, роль не трогает
	Upsert(ctx context.Context, user *model.User) (created bool, err error)
	GetByTelegramID(ctx context.Context, telegramID int64) (*model.User, error)
	GetByID(ctx context.Context, id int64) (*model.User, error)
	GetByIDs(ctx context.Context, ids []int64) ([]*model.User, error)
}

type DoctorStore interface {
	Register(ctx context.Context, doctor *model.Doctor) error
	GetByAccountID(ctx context.Context, accountID int64) (*model.Doctor, error)
	ListActive(ctx context.Context) ([]*model.Doctor, error)
	GetByIDs(ctx context.Context, ids []int64) ([]*model.Doctor, error)
	SetActive(ctx context.Context, accountID int64, active bool) error
}

type ScheduleStore interface {
	Create(ctx context.Context, schedule *model.RecurringSchedule) error
	GetByDoctorID(ctx context.Context, doctorID int64) ([]*model.RecurringSchedule, error)
	GetAllActive(ctx context.Context) ([]*model.RecurringSchedule, error)
	Deactivate(ctx context.Context, doctorID, id int64) error
}
