package repository

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/telemed_bot/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const scheduleColumns = `
	id, doctor_id, weekday, start_hour, start_minute, duration_minutes,
	consultation_mode, is_active, created_at, updated_at`

type RecurringScheduleRepository struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

func NewRecurringScheduleRepository(pool *pgxpool.Pool, logger *zap.Logger) *RecurringScheduleRepository {
	return &RecurringScheduleRepository{
		pool:   pool,
		logger: logger,
	}
}

// Create создаёт новый шаблон расписания
func (r *RecurringScheduleRepository) Create(ctx context.Context, schedule *model.RecurringSchedule) error {
	query := `
		INSERT INTO recurring_schedules (doctor_id, weekday, start_hour, start_minute, duration_minutes, consultation_mode, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`

	err := r.pool.QueryRow(
		ctx, query,
		schedule.DoctorID,
		schedule.Weekday,
		schedule.StartHour,
		schedule.StartMinute,
		schedule.DurationMinutes,
		schedule.ConsultationMode,
		schedule.IsActive,
	).Scan(&schedule.ID, &schedule.CreatedAt, &schedule.UpdatedAt)

	if err != nil {
		return fmt.Errorf("create recurring schedule: %w", err)
	}

	r.logger.Debug("Recurring schedule created",
		zap.Int64("recurring_schedule_id", schedule.ID),
		zap.Int64("doctor_id", schedule.DoctorID),
		zap.Int("weekday", schedule.Weekday))

	return nil
}

// GetByDoctorID возвращает все шаблоны врача
func (r *RecurringScheduleRepository) GetByDoctorID(ctx context.Context, doctorID int64) ([]*model.RecurringSchedule, error) {
	query := `SELECT ` + scheduleColumns + `
		FROM recurring_schedules
		WHERE doctor_id = $1
		ORDER BY weekday, start_hour, start_minute
	`
	return r.list(ctx, "get recurring schedules by doctor", query, doctorID)
}

// GetAllActive возвращает активные шаблоны активных врачей
func (r *RecurringScheduleRepository) GetAllActive(ctx context.Context) ([]*model.RecurringSchedule, error) {
	query := `SELECT ` + scheduleColumns + `
		FROM recurring_schedules rs
		WHERE rs.is_active = true
		  AND EXISTS (SELECT 1 FROM doctors d WHERE d.account_id = rs.doctor_id AND d.is_active = true)
		ORDER BY doctor_id
	`
	return r.list(ctx, "get active recurring schedules", query)
}

// Deactivate выключает шаблон врача. Уже созданные слоты остаются
func (r *RecurringScheduleRepository) Deactivate(ctx context.Context, doctorID, id int64) error {
	query := `
		UPDATE recurring_schedules
		SET is_active = false, updated_at = now()
		WHERE id = $1 AND doctor_id = $2
	`

	result, err := r.pool.Exec(ctx, query, id, doctorID)
	if err != nil {
		return fmt.Errorf("deactivate recurring schedule: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("recurring schedule not found")
	}

	return nil
}

func (r *RecurringScheduleRepository) list(ctx context.Context, op, query string, args ...any) ([]*model.RecurringSchedule, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var schedules []*model.RecurringSchedule
	for rows.Next() {
		schedule, err := scanSchedule(rows)
		if err != nil {
			return nil, fmt.Errorf("scan recurring schedule: %w", err)
		}
		schedules = append(schedules, schedule)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate recurring schedules: %w", err)
	}

	return schedules, nil
}

func scanSchedule(row pgx.Row) (*model.RecurringSchedule, error) {
	schedule := &model.RecurringSchedule{}
	var mode string
	err := row.Scan(
		&schedule.ID,
		&schedule.DoctorID,
		&schedule.Weekday,
		&schedule.StartHour,
		&schedule.StartMinute,
		&schedule.DurationMinutes,
		&mode,
		&schedule.IsActive,
		&schedule.CreatedAt,
		&schedule.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	schedule.ConsultationMode = model.ConsultationMode(mode)
	return schedule, nil
}
