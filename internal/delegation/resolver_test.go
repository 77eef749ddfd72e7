package delegation

import (
	"errors"
	"sync"
	"testing"

	"github.com/Freeeeeet/telemed_bot/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func member(id int64) *int64 { return &id }

func TestResolveSelfIsFullWithoutGrants(t *testing.T) {
	r := NewResolver(7, nil)

	assert.Equal(t, Full(), r.Resolve(7))
	for _, c := range AllCapabilities {
		assert.True(t, r.Resolve(7).Has(c), c)
	}
}

func TestResolveAcceptedGrantReturnsItsFlags(t *testing.T) {
	r := NewResolver(1, []model.DelegationGrant{{
		MemberAccountID:  member(1),
		PatientID:        2,
		ViewAppointments: true,
		ViewBilling:      true,
	}})

	got := r.Resolve(2)
	assert.True(t, got.ViewAppointments)
	assert.True(t, got.ViewBilling)
	assert.False(t, got.ManageAppointments)
	assert.False(t, got.ManageBilling)
}

func TestResolvePendingGrantYieldsNothing(t *testing.T) {
	g := model.DelegationGrant{
		MemberAccountID:     member(1),
		PatientID:           2,
		Pending:             true,
		ViewAppointments:    true,
		ManageAppointments:  true,
		ViewRecords:         true,
		ViewPrescriptions:   true,
		ManagePrescriptions: true,
		ViewBilling:         true,
		ManageBilling:       true,
	}
	r := NewResolver(1, []model.DelegationGrant{g})

	got := r.Resolve(2)
	assert.True(t, got.IsEmpty())
	for _, c := range AllCapabilities {
		assert.False(t, got.Has(c), c)
	}
}

func TestResolveUnknownPatientAndForeignGrant(t *testing.T) {
	r := NewResolver(1, []model.DelegationGrant{
		{MemberAccountID: member(99), PatientID: 2, ViewAppointments: true},
		{MemberAccountID: nil, PatientID: 3, ViewAppointments: true},
	})

	assert.Equal(t, None(), r.Resolve(2))
	assert.Equal(t, None(), r.Resolve(3))
	assert.Equal(t, None(), r.Resolve(4))
}

func TestRequire(t *testing.T) {
	r := NewResolver(1, []model.DelegationGrant{{
		MemberAccountID:  member(1),
		PatientID:        2,
		ViewAppointments: true,
	}})

	require.NoError(t, r.Require(2, ViewAppointments))
	require.NoError(t, r.Require(1, ManageBilling))

	err := r.Require(2, ManageAppointments)
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrPermissionDenied))

	var denied *model.PermissionDeniedError
	require.ErrorAs(t, err, &denied)
	assert.Equal(t, "manage_appointments", denied.Capability)
	assert.Equal(t, int64(2), denied.PatientID)
}

func TestAuthorizedPatientsFor(t *testing.T) {
	r := NewResolver(1, []model.DelegationGrant{
		{MemberAccountID: member(1), PatientID: 5, ManageAppointments: true, ViewAppointments: true},
		{MemberAccountID: member(1), PatientID: 3, ViewAppointments: true},
		{MemberAccountID: member(1), PatientID: 4, ManageAppointments: true, Pending: true},
	})

	assert.Equal(t, []int64{1, 5}, r.AuthorizedPatientsFor(ManageAppointments))
	assert.Equal(t, []int64{1, 3, 5}, r.AuthorizedPatientsFor(ViewAppointments))
	assert.Equal(t, []int64{1}, r.AuthorizedPatientsFor(ManageBilling))
}

func TestRelationTo(t *testing.T) {
	r := NewResolver(1, []model.DelegationGrant{{MemberAccountID: member(1), PatientID: 2, Relationship: "мама"}})

	assert.Equal(t, model.RolePatient, r.RelationTo(1))
	assert.Equal(t, model.RoleFamilyMember, r.RelationTo(2))
	assert.Equal(t, "мама", r.Relationship(2))
}

func TestResolverConcurrentReads(t *testing.T) {
	r := NewResolver(1, []model.DelegationGrant{{MemberAccountID: member(1), PatientID: 2, ViewAppointments: true}})

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.True(t, r.Resolve(2).ViewAppointments)
			assert.Len(t, r.AuthorizedPatientsFor(ViewAppointments), 2)
		}()
	}
	wg.Wait()
}

func TestCapabilitySetWith(t *testing.T) {
	c := None().With(ViewRecords, true).With(ManageBilling, true)

	assert.True(t, c.Has(ViewRecords))
	assert.True(t, c.Has(ManageBilling))
	assert.False(t, c.Has(ViewAppointments))
	assert.True(t, c.With(ViewRecords, false).With(ManageBilling, false).IsEmpty())
}
