package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Freeeeeet/telemed_bot/internal/model"
	"github.com/Freeeeeet/telemed_bot/internal/repository/base"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrInviteCodeTaken код приглашения уже существует
var ErrInviteCodeTaken = errors.New("invite code already exists")

const grantColumns = `
	id, member_account_id, patient_id, relationship, invite_code, pending, created_at, accepted_at,
	view_appointments, manage_appointments, view_records, view_prescriptions,
	manage_prescriptions, view_billing, manage_billing`

type DelegationRepository struct {
	pool *pgxpool.Pool
}

func NewDelegationRepository(pool *pgxpool.Pool) *DelegationRepository {
	return &DelegationRepository{pool: pool}
}

// Create создаёт ожидающий грант с кодом приглашения
func (r *DelegationRepository) Create(ctx context.Context, g *model.DelegationGrant) error {
	query := `
		INSERT INTO delegation_grants (
			patient_id, relationship, invite_code, pending,
			view_appointments, manage_appointments, view_records, view_prescriptions,
			manage_prescriptions, view_billing, manage_billing
		)
		VALUES ($1, $2, $3, true, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at
	`

	err := r.pool.QueryRow(
		ctx, query,
		g.PatientID,
		g.Relationship,
		g.InviteCode,
		g.ViewAppointments,
		g.ManageAppointments,
		g.ViewRecords,
		g.ViewPrescriptions,
		g.ManagePrescriptions,
		g.ViewBilling,
		g.ManageBilling,
	).Scan(&g.ID, &g.CreatedAt)

	if err != nil {
		if base.IsUniqueViolation(err) {
			return ErrInviteCodeTaken
		}
		return fmt.Errorf("create delegation grant: %w", err)
	}

	g.Pending = true
	return nil
}

// GetByID получает грант по ID
func (r *DelegationRepository) GetByID(ctx context.Context, id int64) (*model.DelegationGrant, error) {
	query := `SELECT ` + grantColumns + ` FROM delegation_grants WHERE id = $1`

	g, err := scanGrant(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get delegation grant by id: %w", err)
	}
	return g, nil
}

// GetByInviteCode получает грант по коду приглашения
func (r *DelegationRepository) GetByInviteCode(ctx context.Context, code string) (*model.DelegationGrant, error) {
	query := `SELECT ` + grantColumns + ` FROM delegation_grants WHERE invite_code = $1`

	g, err := scanGrant(r.pool.QueryRow(ctx, query, code))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get delegation grant by code: %w", err)
	}
	return g, nil
}

// Accept привязывает ожидающий грант к аккаунту члена семьи.
// Если грант уже принят, возвращает StaleResourceError
func (r *DelegationRepository) Accept(ctx context.Context, id, memberAccountID int64, at time.Time) error {
	query := `
		UPDATE delegation_grants
		SET member_account_id = $1, pending = false, accepted_at = $2
		WHERE id = $3 AND pending = true
	`

	result, err := r.pool.Exec(ctx, query, memberAccountID, at, id)
	if err != nil {
		if base.IsUniqueViolation(err) {
			return &model.ValidationError{Field: "inviteCode", Message: "delegation already exists"}
		}
		return fmt.Errorf("accept delegation grant: %w", err)
	}

	if result.RowsAffected() == 0 {
		return &model.StaleResourceError{Resource: "delegation_grant", ID: fmt.Sprint(id)}
	}
	return nil
}

// ListForMember принятые гранты, выданные аккаунту
func (r *DelegationRepository) ListForMember(ctx context.Context, memberAccountID int64) ([]model.DelegationGrant, error) {
	query := `SELECT ` + grantColumns + `
		FROM delegation_grants
		WHERE member_account_id = $1 AND pending = false
		ORDER BY patient_id
	`
	return r.list(ctx, "list grants for member", query, memberAccountID)
}

// ListForPatient все гранты пациента, включая ожидающие
func (r *DelegationRepository) ListForPatient(ctx context.Context, patientID int64) ([]model.DelegationGrant, error) {
	query := `SELECT ` + grantColumns + `
		FROM delegation_grants
		WHERE patient_id = $1
		ORDER BY created_at DESC
	`
	return r.list(ctx, "list grants for patient", query, patientID)
}

// UpdateFlags меняет права гранта. Менять может только сам пациент
func (r *DelegationRepository) UpdateFlags(ctx context.Context, g *model.DelegationGrant) error {
	query := `
		UPDATE delegation_grants
		SET view_appointments = $1, manage_appointments = $2, view_records = $3,
		    view_prescriptions = $4, manage_prescriptions = $5, view_billing = $6, manage_billing = $7
		WHERE id = $8 AND patient_id = $9
	`

	result, err := r.pool.Exec(
		ctx, query,
		g.ViewAppointments,
		g.ManageAppointments,
		g.ViewRecords,
		g.ViewPrescriptions,
		g.ManagePrescriptions,
		g.ViewBilling,
		g.ManageBilling,
		g.ID,
		g.PatientID,
	)
	if err != nil {
		return fmt.Errorf("update delegation flags: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("delegation grant not found")
	}
	return nil
}

// Delete отзывает грант пациента
func (r *DelegationRepository) Delete(ctx context.Context, id, patientID int64) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM delegation_grants WHERE id = $1 AND patient_id = $2`, id, patientID)
	if err != nil {
		return fmt.Errorf("revoke delegation grant: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("delegation grant not found")
	}
	return nil
}

func (r *DelegationRepository) list(ctx context.Context, op, query string, args ...any) ([]model.DelegationGrant, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var grants []model.DelegationGrant
	for rows.Next() {
		g, err := scanGrant(rows)
		if err != nil {
			return nil, fmt.Errorf("scan delegation grant: %w", err)
		}
		grants = append(grants, *g)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate delegation grants: %w", err)
	}
	return grants, nil
}

func scanGrant(row pgx.Row) (*model.DelegationGrant, error) {
	var g model.DelegationGrant
	err := row.Scan(
		&g.ID,
		&g.MemberAccountID,
		&g.PatientID,
		&g.Relationship,
		&g.InviteCode,
		&g.Pending,
		&g.CreatedAt,
		&g.AcceptedAt,
		&g.ViewAppointments,
		&g.ManageAppointments,
		&g.ViewRecords,
		&g.ViewPrescriptions,
		&g.ManagePrescriptions,
		&g.ViewBilling,
		&g.ManageBilling,
	)
	if err != nil {
		return nil, err
	}
	return &g, nil
}
