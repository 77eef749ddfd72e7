package repository

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/telemed_bot/internal/model"
	"github.com/Freeeeeet/telemed_bot/internal/repository/base"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const appointmentColumns = `
	id, patient_id, doctor_id, time_slot_id, status, consultation_mode,
	scheduled_start, duration_minutes, patient_notes, reason_for_visit, doctor_notes,
	cancellation_reason, cancelled_by, completed_at, paid_at, checked_in_at,
	version, created_at, updated_at`

type AppointmentRepository struct {
	pool *pgxpool.Pool
}

func NewAppointmentRepository(pool *pgxpool.Pool) *AppointmentRepository {
	return &AppointmentRepository{pool: pool}
}

// Create занимает слот и создаёт запись в одной транзакции.
// Если слот уже занят или прошёл, возвращает StaleResourceError
func (r *AppointmentRepository) Create(ctx context.Context, a *model.Appointment) error {
	return base.InTx(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE time_slots
			SET is_available = false
			WHERE id = $1 AND doctor_id = $2 AND is_available = true AND start_time > $3
		`, a.TimeSlotID, a.DoctorID, a.CreatedAt)
		if err != nil {
			return fmt.Errorf("reserve slot: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return &model.StaleResourceError{Resource: "time_slot", ID: fmt.Sprint(a.TimeSlotID)}
		}

		query := `
			INSERT INTO appointments (
				id, patient_id, doctor_id, time_slot_id, status, consultation_mode,
				scheduled_start, duration_minutes, patient_notes, reason_for_visit,
				version, created_at, updated_at
			)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, 1, $11, $11)
		`
		_, err = tx.Exec(
			ctx, query,
			a.ID,
			a.PatientID,
			a.DoctorID,
			a.TimeSlotID,
			a.Status,
			a.ConsultationMode,
			a.ScheduledStart,
			a.DurationMinutes,
			a.PatientNotes,
			a.ReasonForVisit,
			a.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("create appointment: %w", err)
		}

		if err := replaceDocuments(ctx, tx, a.ID, a.Documents); err != nil {
			return err
		}

		a.Version = 1
		a.UpdatedAt = a.CreatedAt
		return nil
	})
}

// GetByID получает запись по ID вместе с документами
func (r *AppointmentRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE id = $1`

	a, err := scanAppointment(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get appointment by id: %w", err)
	}

	if err := r.loadDocuments(ctx, []*model.Appointment{a}); err != nil {
		return nil, err
	}
	return a, nil
}

// ListByPatients записи указанных пациентов, новые сверху
func (r *AppointmentRepository) ListByPatients(ctx context.Context, patientIDs []int64) ([]*model.Appointment, error) {
	if len(patientIDs) == 0 {
		return []*model.Appointment{}, nil
	}
	query := `SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE patient_id = ANY($1)
		ORDER BY scheduled_start DESC
	`
	return r.list(ctx, "list appointments by patients", query, patientIDs)
}

// ListByDoctor записи врача, новые сверху
func (r *AppointmentRepository) ListByDoctor(ctx context.Context, doctorID int64) ([]*model.Appointment, error) {
	query := `SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE doctor_id = $1
		ORDER BY scheduled_start DESC
	`
	return r.list(ctx, "list appointments by doctor", query, doctorID)
}

// ListActive нетерминальные записи, которые может продвинуть фоновая задача
func (r *AppointmentRepository) ListActive(ctx context.Context) ([]*model.Appointment, error) {
	query := `SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE status IN ('pending_payment', 'confirmed', 'ready_for_call', 'in_progress')
		ORDER BY scheduled_start
	`
	return r.list(ctx, "list active appointments", query)
}

// Update сохраняет запись, если её версия не менялась с момента чтения.
// При конфликте возвращает StaleResourceError. Отменённая запись освобождает слот
func (r *AppointmentRepository) Update(ctx context.Context, a *model.Appointment) error {
	return base.InTx(ctx, r.pool, func(tx pgx.Tx) error {
		var cancelledBy *string
		if a.CancelledBy != nil {
			s := string(*a.CancelledBy)
			cancelledBy = &s
		}

		query := `
			UPDATE appointments
			SET status = $1, patient_notes = $2, reason_for_visit = $3, doctor_notes = $4,
			    cancellation_reason = $5, cancelled_by = $6, completed_at = $7, paid_at = $8,
			    checked_in_at = $9, updated_at = $10, version = version + 1
			WHERE id = $11 AND version = $12
			RETURNING version
		`
		err := tx.QueryRow(
			ctx, query,
			a.Status,
			a.PatientNotes,
			a.ReasonForVisit,
			a.DoctorNotes,
			a.CancellationReason,
			cancelledBy,
			a.CompletedAt,
			a.PaidAt,
			a.CheckedInAt,
			a.UpdatedAt,
			a.ID,
			a.Version,
		).Scan(&a.Version)
		if err != nil {
			if base.IsNotFound(err) {
				return &model.StaleResourceError{Resource: "appointment", ID: a.ID.String()}
			}
			return fmt.Errorf("update appointment: %w", err)
		}

		if err := replaceDocuments(ctx, tx, a.ID, a.Documents); err != nil {
			return err
		}

		if a.Status == model.StatusCancelled {
			_, err := tx.Exec(ctx, `
				UPDATE time_slots SET is_available = true
				WHERE id = $1 AND start_time > $2
			`, a.TimeSlotID, a.UpdatedAt)
			if err != nil {
				return fmt.Errorf("release slot: %w", err)
			}
		}
		return nil
	})
}

func (r *AppointmentRepository) list(ctx context.Context, op, query string, args ...any) ([]*model.Appointment, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var appointments []*model.Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan appointment: %w", err)
		}
		appointments = append(appointments, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate appointments: %w", err)
	}

	if err := r.loadDocuments(ctx, appointments); err != nil {
		return nil, err
	}
	return appointments, nil
}

func (r *AppointmentRepository) loadDocuments(ctx context.Context, appointments []*model.Appointment) error {
	if len(appointments) == 0 {
		return nil
	}
	byID := make(map[uuid.UUID]*model.Appointment, len(appointments))
	ids := make([]uuid.UUID, 0, len(appointments))
	for _, a := range appointments {
		a.Documents = []model.DocumentRef{}
		byID[a.ID] = a
		ids = append(ids, a.ID)
	}

	rows, err := r.pool.Query(ctx, `
		SELECT appointment_id, document_id, note
		FROM appointment_documents
		WHERE appointment_id = ANY($1)
		ORDER BY appointment_id, position
	`, ids)
	if err != nil {
		return fmt.Errorf("load appointment documents: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var appointmentID uuid.UUID
		var ref model.DocumentRef
		if err := rows.Scan(&appointmentID, &ref.DocumentID, &ref.Note); err != nil {
			return fmt.Errorf("scan appointment document: %w", err)
		}
		if a, ok := byID[appointmentID]; ok {
			a.Documents = append(a.Documents, ref)
		}
	}
	return rows.Err()
}

func replaceDocuments(ctx context.Context, q base.Querier, appointmentID uuid.UUID, docs []model.DocumentRef) error {
	if _, err := q.Exec(ctx, `DELETE FROM appointment_documents WHERE appointment_id = $1`, appointmentID); err != nil {
		return fmt.Errorf("clear appointment documents: %w", err)
	}
	for i, d := range docs {
		_, err := q.Exec(ctx, `
			INSERT INTO appointment_documents (appointment_id, position, document_id, note)
			VALUES ($1, $2, $3, $4)
		`, appointmentID, i, d.DocumentID, d.Note)
		if err != nil {
			return fmt.Errorf("insert appointment document: %w", err)
		}
	}
	return nil
}

func scanAppointment(row pgx.Row) (*model.Appointment, error) {
	var (
		a           model.Appointment
		status      string
		mode        string
		cancelledBy *string
	)
	err := row.Scan(
		&a.ID,
		&a.PatientID,
		&a.DoctorID,
		&a.TimeSlotID,
		&status,
		&mode,
		&a.ScheduledStart,
		&a.DurationMinutes,
		&a.PatientNotes,
		&a.ReasonForVisit,
		&a.DoctorNotes,
		&a.CancellationReason,
		&cancelledBy,
		&a.CompletedAt,
		&a.PaidAt,
		&a.CheckedInAt,
		&a.Version,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	a.Status = model.AppointmentStatus(status)
	a.ConsultationMode = model.ConsultationMode(mode)
	if cancelledBy != nil {
		role := model.Role(*cancelledBy)
		a.CancelledBy = &role
	}
	return &a, nil
}
