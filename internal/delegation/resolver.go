package delegation

import (
	"sort"

	"github.com/Freeeeeet/telemed_bot/internal/model"
)

// Capability одно право из набора делегирования
type Capability string

const (
	ViewAppointments    Capability = "view_appointments"
	ManageAppointments  Capability = "manage_appointments"
	ViewRecords         Capability = "view_records"
	ViewPrescriptions   Capability = "view_prescriptions"
	ManagePrescriptions Capability = "manage_prescriptions"
	ViewBilling         Capability = "view_billing"
	ManageBilling       Capability = "manage_billing"
)

// AllCapabilities перечисляет все права
var AllCapabilities = []Capability{
	ViewAppointments,
	ManageAppointments,
	ViewRecords,
	ViewPrescriptions,
	ManagePrescriptions,
	ViewBilling,
	ManageBilling,
}

// CapabilitySet итоговые права одного актора над одним пациентом
type CapabilitySet struct {
	ViewAppointments    bool
	ManageAppointments  bool
	ViewRecords         bool
	ViewPrescriptions   bool
	ManagePrescriptions bool
	ViewBilling         bool
	ManageBilling       bool
}

// Full набор со всеми правами (пациент над самим собой)
func Full() CapabilitySet {
	return CapabilitySet{true, true, true, true, true, true, true}
}

// None пустой набор
func None() CapabilitySet {
	return CapabilitySet{}
}

// FromGrant переносит флаги гранта в набор без учёта pending
func FromGrant(g model.DelegationGrant) CapabilitySet {
	return CapabilitySet{
		ViewAppointments:    g.ViewAppointments,
		ManageAppointments:  g.ManageAppointments,
		ViewRecords:         g.ViewRecords,
		ViewPrescriptions:   g.ViewPrescriptions,
		ManagePrescriptions: g.ManagePrescriptions,
		ViewBilling:         g.ViewBilling,
		ManageBilling:       g.ManageBilling,
	}
}

// Has проверяет наличие права
func (c CapabilitySet) Has(capability Capability) bool {
	switch capability {
	case ViewAppointments:
		return c.ViewAppointments
	case ManageAppointments:
		return c.ManageAppointments
	case ViewRecords:
		return c.ViewRecords
	case ViewPrescriptions:
		return c.ViewPrescriptions
	case ManagePrescriptions:
		return c.ManagePrescriptions
	case ViewBilling:
		return c.ViewBilling
	case ManageBilling:
		return c.ManageBilling
	}
	return false
}

// With копия набора с изменённым правом
func (c CapabilitySet) With(capability Capability, on bool) CapabilitySet {
	switch capability {
	case ViewAppointments:
		c.ViewAppointments = on
	case ManageAppointments:
		c.ManageAppointments = on
	case ViewRecords:
		c.ViewRecords = on
	case ViewPrescriptions:
		c.ViewPrescriptions = on
	case ManagePrescriptions:
		c.ManagePrescriptions = on
	case ViewBilling:
		c.ViewBilling = on
	case ManageBilling:
		c.ManageBilling = on
	}
	return c
}

// IsEmpty true если нет ни одного права
func (c CapabilitySet) IsEmpty() bool {
	return c == CapabilitySet{}
}

// Resolver вычисляет права актора по загруженным грантам.
// После создания не изменяется, поэтому безопасен для конкурентного чтения.
type Resolver struct {
	actorID int64
	grants  map[int64]model.DelegationGrant // patientID -> принятый грант актора
}

// NewResolver строит resolver для актора.
// Гранты чужих аккаунтов и ещё не принятые гранты не дают прав и отбрасываются.
func NewResolver(actorID int64, grants []model.DelegationGrant) *Resolver {
	r := &Resolver{
		actorID: actorID,
		grants:  make(map[int64]model.DelegationGrant, len(grants)),
	}
	for _, g := range grants {
		if g.Pending || !g.BelongsTo(actorID) || g.PatientID == actorID {
			continue
		}
		r.grants[g.PatientID] = g
	}
	return r
}

// ActorID возвращает ID актора
func (r *Resolver) ActorID() int64 {
	return r.actorID
}

// Resolve возвращает права актора над пациентом
func (r *Resolver) Resolve(patientID int64) CapabilitySet {
	if patientID == r.actorID {
		return Full()
	}
	g, ok := r.grants[patientID]
	if !ok {
		return None()
	}
	return FromGrant(g)
}

// Require возвращает PermissionDenied если права нет
func (r *Resolver) Require(patientID int64, capability Capability) error {
	if r.Resolve(patientID).Has(capability) {
		return nil
	}
	return &model.PermissionDeniedError{
		ActorID:    r.actorID,
		PatientID:  patientID,
		Capability: string(capability),
	}
}

// RelationTo тег роли актора по отношению к пациенту
func (r *Resolver) RelationTo(patientID int64) model.Role {
	if patientID == r.actorID {
		return model.RolePatient
	}
	return model.RoleFamilyMember
}

// Relationship подпись связи из гранта ("мама", "сын"), пустая для себя
func (r *Resolver) Relationship(patientID int64) string {
	return r.grants[patientID].Relationship
}

// AuthorizedPatientsFor возвращает всех пациентов, над которыми у актора есть право.
// Сам актор всегда первый, остальные по возрастанию ID.
func (r *Resolver) AuthorizedPatientsFor(capability Capability) []int64 {
	patients := []int64{r.actorID}

	others := make([]int64, 0, len(r.grants))
	for patientID := range r.grants {
		if r.Resolve(patientID).Has(capability) {
			others = append(others, patientID)
		}
	}
	sort.Slice(others, func(i, j int) bool { return others[i] < others[j] })

	return append(patients, others...)
}
