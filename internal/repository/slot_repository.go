package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/telemed_bot/internal/model"
	"github.com/Freeeeeet/telemed_bot/internal/repository/base"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type SlotRepository struct {
	pool *pgxpool.Pool
}

func NewSlotRepository(pool *pgxpool.Pool) *SlotRepository {
	return &SlotRepository{pool: pool}
}

// Create публикует новый слот врача
func (r *SlotRepository) Create(ctx context.Context, slot *model.TimeSlot) error {
	query := `
		INSERT INTO time_slots (doctor_id, start_time, duration_minutes, consultation_mode, is_available)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`

	err := r.pool.QueryRow(
		ctx, query,
		slot.DoctorID,
		slot.StartTime,
		slot.DurationMinutes,
		slot.ConsultationMode,
		slot.IsAvailable,
	).Scan(&slot.ID, &slot.CreatedAt)

	if err != nil {
		if base.IsUniqueViolation(err) {
			return &model.ValidationError{Field: "startTime", Message: "slot already exists"}
		}
		return fmt.Errorf("create slot: %w", err)
	}

	return nil
}

// CreateIfAbsent создаёт слот, если у врача ещё нет слота на это время.
// Возвращает false, если слот уже существовал
func (r *SlotRepository) CreateIfAbsent(ctx context.Context, slot *model.TimeSlot) (bool, error) {
	query := `
		INSERT INTO time_slots (doctor_id, start_time, duration_minutes, consultation_mode, is_available)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (doctor_id, start_time) DO NOTHING
		RETURNING id, created_at
	`

	err := r.pool.QueryRow(
		ctx, query,
		slot.DoctorID,
		slot.StartTime,
		slot.DurationMinutes,
		slot.ConsultationMode,
		slot.IsAvailable,
	).Scan(&slot.ID, &slot.CreatedAt)

	if err != nil {
		if base.IsNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("create slot if absent: %w", err)
	}

	return true, nil
}

// GetByID получает слот по ID
func (r *SlotRepository) GetByID(ctx context.Context, id int64) (*model.TimeSlot, error) {
	query := `
		SELECT id, doctor_id, start_time, duration_minutes, consultation_mode, is_available, created_at
		FROM time_slots
		WHERE id = $1
	`

	slot, err := scanSlot(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get slot by id: %w", err)
	}

	return slot, nil
}

// ListByDoctor все слоты врача в диапазоне [from, to).
// Фильтрацию по доступности делает проектор
func (r *SlotRepository) ListByDoctor(ctx context.Context, doctorID int64, from, to time.Time) ([]model.TimeSlot, error) {
	query := `
		SELECT id, doctor_id, start_time, duration_minutes, consultation_mode, is_available, created_at
		FROM time_slots
		WHERE doctor_id = $1
		  AND start_time >= $2
		  AND start_time < $3
		ORDER BY start_time
	`

	rows, err := r.pool.Query(ctx, query, doctorID, from, to)
	if err != nil {
		return nil, fmt.Errorf("get slots by doctor: %w", err)
	}
	defer rows.Close()

	var slots []model.TimeSlot
	for rows.Next() {
		slot, err := scanSlot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan slot: %w", err)
		}
		slots = append(slots, *slot)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate slots: %w", err)
	}

	return slots, nil
}

// Delete удаляет свободный слот врача. Слот, освобождённый отменой,
// остаётся в истории записи и не удаляется
func (r *SlotRepository) Delete(ctx context.Context, doctorID, slotID int64) error {
	query := `
		DELETE FROM time_slots
		WHERE id = $1 AND doctor_id = $2 AND is_available = true
		  AND NOT EXISTS (SELECT 1 FROM appointments WHERE time_slot_id = $1)
	`

	result, err := r.pool.Exec(ctx, query, slotID, doctorID)
	if err != nil {
		if base.IsForeignKeyViolation(err) {
			return &model.StaleResourceError{Resource: "time_slot", ID: fmt.Sprint(slotID)}
		}
		return fmt.Errorf("delete slot: %w", err)
	}

	if result.RowsAffected() == 0 {
		return &model.StaleResourceError{Resource: "time_slot", ID: fmt.Sprint(slotID)}
	}

	return nil
}

func scanSlot(row pgx.Row) (*model.TimeSlot, error) {
	var slot model.TimeSlot
	var mode string
	err := row.Scan(
		&slot.ID,
		&slot.DoctorID,
		&slot.StartTime,
		&slot.DurationMinutes,
		&mode,
		&slot.IsAvailable,
		&slot.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	slot.ConsultationMode = model.ConsultationMode(mode)
	return &slot, nil
}
