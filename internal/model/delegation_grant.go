package model

import "time"

// DelegationGrant доступ родственника к записям пациента.
// До принятия кода приглашения грант pending и никаких прав не даёт
type DelegationGrant struct {
	ID              int64      `json:"id"`
	MemberAccountID *int64     `json:"member_account_id"` // nil пока приглашение не принято
	PatientID       int64      `json:"patient_id"`
	Relationship    string     `json:"relationship"`
	InviteCode      string     `json:"invite_code"`
	Pending         bool       `json:"pending"`
	CreatedAt       time.Time  `json:"created_at"`
	AcceptedAt      *time.Time `json:"accepted_at"`

	ViewAppointments    bool `json:"view_appointments"`
	ManageAppointments  bool `json:"manage_appointments"`
	ViewRecords         bool `json:"view_records"`
	ViewPrescriptions   bool `json:"view_prescriptions"`
	ManagePrescriptions bool `json:"manage_prescriptions"`
	ViewBilling         bool `json:"view_billing"`
	ManageBilling       bool `json:"manage_billing"`
}

// IsPending приглашение ещё не принято
func (g *DelegationGrant) IsPending() bool {
	return g.Pending
}

// BelongsTo грант принят этим аккаунтом
func (g *DelegationGrant) BelongsTo(accountID int64) bool {
	return g.MemberAccountID != nil && *g.MemberAccountID == accountID
}
