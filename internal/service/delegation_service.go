package service

import (
	"context"
	"crypto/rand"
	"encoding/base32"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/Freeeeeet/telemed_bot/internal/delegation"
	"github.com/Freeeeeet/telemed_bot/internal/model"
	"github.com/Freeeeeet/telemed_bot/internal/repository"
	"go.uber.org/zap"
)

type DelegationService struct {
	grants GrantStore
	users  UserStore
	now    func() time.Time
	logger *zap.Logger
}

func NewDelegationService(grants GrantStore, users UserStore, logger *zap.Logger) *DelegationService {
	return &DelegationService{
		grants: grants,
		users:  users,
		now:    time.Now,
		logger: logger,
	}
}

// ResolverFor собирает резолвер прав по принятым грантам аккаунта
func (s *DelegationService) ResolverFor(ctx context.Context, accountID int64) (*delegation.Resolver, error) {
	grants, err := s.grants.ListForMember(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("list member grants: %w", err)
	}
	return delegation.NewResolver(accountID, grants), nil
}

// ============ Приглашения ============

// generateInviteCode генерирует случайный код из 8 символов base32
func generateInviteCode() (string, error) {
	bytes := make([]byte, 6)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("generate random bytes: %w", err)
	}

	code := base32.StdEncoding.EncodeToString(bytes)
	code = strings.TrimRight(code, "=")
	if len(code) > 8 {
		code = code[:8]
	}
	return code, nil
}

// CreateInvite пациент создаёт ожидающий грант с выбранными правами.
// Права вступят в силу только после принятия кода
func (s *DelegationService) CreateInvite(ctx context.Context, patientID int64, relationship string, caps delegation.CapabilitySet) (*model.DelegationGrant, error) {
	if caps.IsEmpty() {
		return nil, &model.ValidationError{Field: "capabilities", Message: "at least one capability is required"}
	}

	const maxAttempts = 10

	for i := 0; i < maxAttempts; i++ {
		code, err := generateInviteCode()
		if err != nil {
			return nil, err
		}

		grant := &model.DelegationGrant{
			PatientID:    patientID,
			Relationship: strings.TrimSpace(relationship),
			InviteCode:   code,
		}
		applyCapabilities(grant, caps)

		err = s.grants.Create(ctx, grant)
		if errors.Is(err, repository.ErrInviteCodeTaken) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("create grant: %w", err)
		}

		s.logger.Info("Delegation invite created",
			zap.Int64("grant_id", grant.ID),
			zap.Int64("patient_id", patientID),
			zap.String("relationship", grant.Relationship),
		)
		return grant, nil
	}

	return nil, fmt.Errorf("failed to generate unique code after %d attempts", maxAttempts)
}

// AcceptInvite член семьи принимает код приглашения
func (s *DelegationService) AcceptInvite(ctx context.Context, memberID int64, code string) (*model.DelegationGrant, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, &model.ValidationError{Field: "inviteCode"}
	}

	grant, err := s.grants.GetByInviteCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("get grant by code: %w", err)
	}
	if grant == nil {
		return nil, fmt.Errorf("invite code %s: %w", code, model.ErrNotFound)
	}
	if !grant.IsPending() {
		return nil, &model.ValidationError{Field: "inviteCode", Message: "invite code already used"}
	}
	if grant.PatientID == memberID {
		return nil, &model.ValidationError{Field: "inviteCode", Message: "cannot accept own invite"}
	}

	member, err := s.users.GetByID(ctx, memberID)
	if err != nil {
		return nil, fmt.Errorf("get member: %w", err)
	}
	if member == nil {
		return nil, fmt.Errorf("member %d: %w", memberID, model.ErrNotFound)
	}
	if member.IsDoctor() {
		return nil, &model.ValidationError{Field: "inviteCode", Message: "doctor accounts cannot act as family members"}
	}

	now := s.now()
	if err := s.grants.Accept(ctx, grant.ID, memberID, now); err != nil {
		return nil, fmt.Errorf("accept grant: %w", err)
	}

	grant.Pending = false
	grant.MemberAccountID = &memberID
	grant.AcceptedAt = &now

	s.logger.Info("Delegation invite accepted",
		zap.Int64("grant_id", grant.ID),
		zap.Int64("patient_id", grant.PatientID),
		zap.Int64("member_id", memberID),
	)
	return grant, nil
}

// ============ Управление грантами ============

// GrantsOfPatient все гранты, выданные пациентом
func (s *DelegationService) GrantsOfPatient(ctx context.Context, patientID int64) ([]model.DelegationGrant, error) {
	return s.grants.ListForPatient(ctx, patientID)
}

// GrantsOfMember принятые гранты, по которым аккаунт действует за других
func (s *DelegationService) GrantsOfMember(ctx context.Context, memberID int64) ([]model.DelegationGrant, error) {
	return s.grants.ListForMember(ctx, memberID)
}

// UpdateCapabilities меняет права гранта. Только сам пациент
func (s *DelegationService) UpdateCapabilities(ctx context.Context, patientID, grantID int64, caps delegation.CapabilitySet) (*model.DelegationGrant, error) {
	grant, err := s.ownGrant(ctx, patientID, grantID)
	if err != nil {
		return nil, err
	}

	applyCapabilities(grant, caps)
	if err := s.grants.UpdateFlags(ctx, grant); err != nil {
		return nil, fmt.Errorf("update grant flags: %w", err)
	}

	s.logger.Info("Delegation capabilities updated",
		zap.Int64("grant_id", grantID),
		zap.Int64("patient_id", patientID),
	)
	return grant, nil
}

// ToggleCapability переключает одно право гранта
func (s *DelegationService) ToggleCapability(ctx context.Context, patientID, grantID int64, capability delegation.Capability) (*model.DelegationGrant, error) {
	grant, err := s.ownGrant(ctx, patientID, grantID)
	if err != nil {
		return nil, err
	}

	if !slices.Contains(delegation.AllCapabilities, capability) {
		return nil, &model.ValidationError{Field: "capability", Message: "unknown capability " + string(capability)}
	}

	caps := delegation.FromGrant(*grant)
	caps = caps.With(capability, !caps.Has(capability))

	return s.UpdateCapabilities(ctx, patientID, grantID, caps)
}

// Revoke пациент отзывает грант (в том числе ещё не принятый)
func (s *DelegationService) Revoke(ctx context.Context, patientID, grantID int64) error {
	if _, err := s.ownGrant(ctx, patientID, grantID); err != nil {
		return err
	}

	if err := s.grants.Delete(ctx, grantID, patientID); err != nil {
		return fmt.Errorf("revoke grant: %w", err)
	}

	s.logger.Info("Delegation revoked",
		zap.Int64("grant_id", grantID),
		zap.Int64("patient_id", patientID),
	)
	return nil
}

func (s *DelegationService) ownGrant(ctx context.Context, patientID, grantID int64) (*model.DelegationGrant, error) {
	grant, err := s.grants.GetByID(ctx, grantID)
	if err != nil {
		return nil, fmt.Errorf("get grant: %w", err)
	}
	if grant == nil {
		return nil, fmt.Errorf("grant %d: %w", grantID, model.ErrNotFound)
	}
	if grant.PatientID != patientID {
		return nil, &model.PermissionDeniedError{ActorID: patientID, PatientID: grant.PatientID, Capability: "grant_owner"}
	}
	return grant, nil
}

func applyCapabilities(g *model.DelegationGrant, caps delegation.CapabilitySet) {
	g.ViewAppointments = caps.ViewAppointments
	g.ManageAppointments = caps.ManageAppointments
	g.ViewRecords = caps.ViewRecords
	g.ViewPrescriptions = caps.ViewPrescriptions
	g.ManagePrescriptions = caps.ManagePrescriptions
	g.ViewBilling = caps.ViewBilling
	g.ManageBilling = caps.ManageBilling
}
