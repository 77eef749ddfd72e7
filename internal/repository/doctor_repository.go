package repository

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/telemed_bot/internal/model"
	"github.com/Freeeeeet/telemed_bot/internal/repository/base"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const doctorColumns = `account_id, full_name, specialty, timezone, is_active, created_at`

type DoctorRepository struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

func NewDoctorRepository(pool *pgxpool.Pool, logger *zap.Logger) *DoctorRepository {
	return &DoctorRepository{
		pool:   pool,
		logger: logger,
	}
}

// Register создаёт или обновляет профиль врача и переводит аккаунт в роль doctor
func (r *DoctorRepository) Register(ctx context.Context, doctor *model.Doctor) error {
	r.logger.Debug("DoctorRepository.Register called",
		zap.Int64("account_id", doctor.AccountID),
		zap.String("specialty", doctor.Specialty),
		zap.String("timezone", doctor.Timezone))

	return base.InTx(ctx, r.pool, func(tx pgx.Tx) error {
		query := `
			INSERT INTO doctors (account_id, full_name, specialty, timezone, is_active)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (account_id) DO UPDATE
			SET full_name = EXCLUDED.full_name, specialty = EXCLUDED.specialty,
			    timezone = EXCLUDED.timezone, is_active = EXCLUDED.is_active
			RETURNING created_at
		`
		err := tx.QueryRow(
			ctx, query,
			doctor.AccountID,
			doctor.FullName,
			doctor.Specialty,
			doctor.Timezone,
			doctor.IsActive,
		).Scan(&doctor.CreatedAt)
		if err != nil {
			r.logger.Error("Failed to upsert doctor",
				zap.Int64("account_id", doctor.AccountID),
				zap.Error(err))
			return fmt.Errorf("upsert doctor: %w", err)
		}

		if _, err := tx.Exec(ctx, `UPDATE users SET role = $1 WHERE id = $2`, model.RoleDoctor, doctor.AccountID); err != nil {
			return fmt.Errorf("set doctor role: %w", err)
		}
		return nil
	})
}

// GetByAccountID получает профиль врача
func (r *DoctorRepository) GetByAccountID(ctx context.Context, accountID int64) (*model.Doctor, error) {
	query := `SELECT ` + doctorColumns + ` FROM doctors WHERE account_id = $1`

	doctor, err := scanDoctor(r.pool.QueryRow(ctx, query, accountID))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get doctor by account id: %w", err)
	}

	return doctor, nil
}

// ListActive врачи, принимающие записи
func (r *DoctorRepository) ListActive(ctx context.Context) ([]*model.Doctor, error) {
	query := `SELECT ` + doctorColumns + `
		FROM doctors
		WHERE is_active = true
		ORDER BY specialty, full_name
	`
	return r.list(ctx, "list active doctors", query)
}

// GetByIDs получает профили по списку ID
func (r *DoctorRepository) GetByIDs(ctx context.Context, ids []int64) ([]*model.Doctor, error) {
	if len(ids) == 0 {
		return []*model.Doctor{}, nil
	}
	query := `SELECT ` + doctorColumns + `
		FROM doctors
		WHERE account_id = ANY($1)
	`
	return r.list(ctx, "get doctors by ids", query, ids)
}

// SetActive включает или выключает приём записей
func (r *DoctorRepository) SetActive(ctx context.Context, accountID int64, active bool) error {
	result, err := r.pool.Exec(ctx, `UPDATE doctors SET is_active = $1 WHERE account_id = $2`, active, accountID)
	if err != nil {
		return fmt.Errorf("set doctor active: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("doctor not found")
	}

	r.logger.Info("Doctor availability toggled",
		zap.Int64("account_id", accountID),
		zap.Bool("is_active", active))
	return nil
}

func (r *DoctorRepository) list(ctx context.Context, op, query string, args ...any) ([]*model.Doctor, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to query doctors", zap.String("op", op), zap.Error(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var doctors []*model.Doctor
	for rows.Next() {
		doctor, err := scanDoctor(rows)
		if err != nil {
			return nil, fmt.Errorf("scan doctor: %w", err)
		}
		doctors = append(doctors, doctor)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate doctors: %w", err)
	}

	return doctors, nil
}

func scanDoctor(row pgx.Row) (*model.Doctor, error) {
	var d model.Doctor
	err := row.Scan(
		&d.AccountID,
		&d.FullName,
		&d.Specialty,
		&d.Timezone,
		&d.IsActive,
		&d.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
