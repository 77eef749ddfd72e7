package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Freeeeeet/telemed_bot/internal/model"
	"github.com/Freeeeeet/telemed_bot/internal/repository"
	"github.com/google/uuid"
)

// Память вместо Postgres. Семантика совпадает с репозиториями:
// nil, nil для отсутствующей записи и CAS по version в Update.

type fakeSlots struct {
	mu     sync.Mutex
	nextID int64
	slots  map[int64]*model.TimeSlot
	booked map[int64]bool // на слот ссылается запись
}

func newFakeSlots() *fakeSlots {
	return &fakeSlots{slots: make(map[int64]*model.TimeSlot), booked: make(map[int64]bool)}
}

func (f *fakeSlots) add(slot model.TimeSlot) model.TimeSlot {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	slot.ID = f.nextID
	f.slots[slot.ID] = &slot
	return slot
}

func (f *fakeSlots) Create(_ context.Context, slot *model.TimeSlot) error {
	*slot = f.add(*slot)
	return nil
}

func (f *fakeSlots) CreateIfAbsent(_ context.Context, slot *model.TimeSlot) (bool, error) {
	f.mu.Lock()
	for _, s := range f.slots {
		if s.DoctorID == slot.DoctorID && s.StartTime.Equal(slot.StartTime) {
			f.mu.Unlock()
			return false, nil
		}
	}
	f.mu.Unlock()
	*slot = f.add(*slot)
	return true, nil
}

func (f *fakeSlots) GetByID(_ context.Context, id int64) (*model.TimeSlot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.slots[id]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (f *fakeSlots) ListByDoctor(_ context.Context, doctorID int64, from, to time.Time) ([]model.TimeSlot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.TimeSlot
	for _, s := range f.slots {
		if s.DoctorID == doctorID && !s.StartTime.Before(from) && s.StartTime.Before(to) {
			out = append(out, *s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out, nil
}

func (f *fakeSlots) Delete(_ context.Context, doctorID, slotID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.slots[slotID]
	if !ok || s.DoctorID != doctorID || !s.IsAvailable || f.booked[slotID] {
		return &model.StaleResourceError{Resource: "time_slot", ID: fmt.Sprint(slotID)}
	}
	delete(f.slots, slotID)
	return nil
}

func (f *fakeSlots) setAvailable(id int64, v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.slots[id]; ok {
		s.IsAvailable = v
	}
}

type fakeAppointments struct {
	mu    sync.Mutex
	slots *fakeSlots
	items map[uuid.UUID]model.Appointment
}

func newFakeAppointments(slots *fakeSlots) *fakeAppointments {
	return &fakeAppointments{slots: slots, items: make(map[uuid.UUID]model.Appointment)}
}

func (f *fakeAppointments) Create(_ context.Context, a *model.Appointment) error {
	f.slots.mu.Lock()
	slot, ok := f.slots.slots[a.TimeSlotID]
	if !ok || !slot.IsAvailable {
		f.slots.mu.Unlock()
		return &model.StaleResourceError{Resource: "time_slot", ID: fmt.Sprint(a.TimeSlotID)}
	}
	slot.IsAvailable = false
	f.slots.booked[slot.ID] = true
	f.slots.mu.Unlock()

	f.mu.Lock()
	defer f.mu.Unlock()
	a.Version = 1
	f.items[a.ID] = a.Clone()
	return nil
}

func (f *fakeAppointments) put(a model.Appointment) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if a.Version == 0 {
		a.Version = 1
	}
	f.items[a.ID] = a.Clone()
}

func (f *fakeAppointments) GetByID(_ context.Context, id uuid.UUID) (*model.Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.items[id]
	if !ok {
		return nil, nil
	}
	cp := a.Clone()
	return &cp, nil
}

func (f *fakeAppointments) filter(keep func(model.Appointment) bool) []*model.Appointment {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.Appointment
	for _, a := range f.items {
		if keep(a) {
			cp := a.Clone()
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledStart.Before(out[j].ScheduledStart) })
	return out
}

func (f *fakeAppointments) ListByPatients(_ context.Context, patientIDs []int64) ([]*model.Appointment, error) {
	ids := make(map[int64]bool, len(patientIDs))
	for _, id := range patientIDs {
		ids[id] = true
	}
	return f.filter(func(a model.Appointment) bool { return ids[a.PatientID] }), nil
}

func (f *fakeAppointments) ListByDoctor(_ context.Context, doctorID int64) ([]*model.Appointment, error) {
	return f.filter(func(a model.Appointment) bool { return a.DoctorID == doctorID }), nil
}

func (f *fakeAppointments) ListActive(_ context.Context) ([]*model.Appointment, error) {
	return f.filter(func(a model.Appointment) bool {
		switch a.Status {
		case model.StatusPendingPayment, model.StatusConfirmed, model.StatusReadyForCall, model.StatusInProgress:
			return true
		}
		return false
	}), nil
}

func (f *fakeAppointments) Update(_ context.Context, a *model.Appointment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cur, ok := f.items[a.ID]
	if !ok || cur.Version != a.Version {
		return &model.StaleResourceError{Resource: "appointment", ID: a.ID.String()}
	}
	a.Version++
	f.items[a.ID] = a.Clone()
	if a.Status == model.StatusCancelled {
		f.slots.setAvailable(a.TimeSlotID, true)
	}
	return nil
}

func (f *fakeAppointments) get(id uuid.UUID) model.Appointment {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.items[id].Clone()
}

type fakeDoctors struct {
	mu      sync.Mutex
	doctors map[int64]*model.Doctor
}

func newFakeDoctors(ds ...model.Doctor) *fakeDoctors {
	f := &fakeDoctors{doctors: make(map[int64]*model.Doctor)}
	for _, d := range ds {
		d := d
		f.doctors[d.AccountID] = &d
	}
	return f
}

func (f *fakeDoctors) Register(_ context.Context, d *model.Doctor) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *d
	f.doctors[d.AccountID] = &cp
	return nil
}

func (f *fakeDoctors) GetByAccountID(_ context.Context, id int64) (*model.Doctor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.doctors[id]
	if !ok {
		return nil, nil
	}
	cp := *d
	return &cp, nil
}

func (f *fakeDoctors) ListActive(_ context.Context) ([]*model.Doctor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.Doctor
	for _, d := range f.doctors {
		if d.IsActive {
			cp := *d
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeDoctors) GetByIDs(_ context.Context, ids []int64) ([]*model.Doctor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.Doctor
	for _, id := range ids {
		if d, ok := f.doctors[id]; ok {
			cp := *d
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeDoctors) SetActive(_ context.Context, id int64, active bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.doctors[id]
	if !ok {
		return fmt.Errorf("doctor not found")
	}
	d.IsActive = active
	return nil
}

type fakeGrants struct {
	mu     sync.Mutex
	nextID int64
	grants map[int64]model.DelegationGrant
}

func newFakeGrants() *fakeGrants {
	return &fakeGrants{grants: make(map[int64]model.DelegationGrant)}
}

func (f *fakeGrants) Create(_ context.Context, g *model.DelegationGrant) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.grants {
		if existing.InviteCode == g.InviteCode {
			return repository.ErrInviteCodeTaken
		}
	}
	f.nextID++
	g.ID = f.nextID
	g.Pending = true
	f.grants[g.ID] = *g
	return nil
}

func (f *fakeGrants) GetByID(_ context.Context, id int64) (*model.DelegationGrant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	g, ok := f.grants[id]
	if !ok {
		return nil, nil
	}
	return &g, nil
}

func (f *fakeGrants) GetByInviteCode(_ context.Context, code string) (*model.DelegationGrant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, g := range f.grants {
		if g.InviteCode == code {
			return &g, nil
		}
	}
	return nil, nil
}

func (f *fakeGrants) Accept(_ context.Context, id, memberID int64, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	g, ok := f.grants[id]
	if !ok || !g.Pending {
		return &model.StaleResourceError{Resource: "delegation_grant", ID: fmt.Sprint(id)}
	}
	g.Pending = false
	g.MemberAccountID = &memberID
	g.AcceptedAt = &at
	f.grants[id] = g
	return nil
}

func (f *fakeGrants) ListForMember(_ context.Context, memberID int64) ([]model.DelegationGrant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.DelegationGrant
	for _, g := range f.grants {
		if !g.Pending && g.BelongsTo(memberID) {
			out = append(out, g)
		}
	}
	return out, nil
}

func (f *fakeGrants) ListForPatient(_ context.Context, patientID int64) ([]model.DelegationGrant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.DelegationGrant
	for _, g := range f.grants {
		if g.PatientID == patientID {
			out = append(out, g)
		}
	}
	return out, nil
}

func (f *fakeGrants) UpdateFlags(_ context.Context, g *model.DelegationGrant) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.grants[g.ID]; !ok {
		return fmt.Errorf("delegation grant not found")
	}
	f.grants[g.ID] = *g
	return nil
}

func (f *fakeGrants) Delete(_ context.Context, id, patientID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	g, ok := f.grants[id]
	if !ok || g.PatientID != patientID {
		return fmt.Errorf("delegation grant not found")
	}
	delete(f.grants, id)
	return nil
}

type fakeUsers struct {
	mu    sync.Mutex
	users map[int64]*model.User
}

func newFakeUsers(us ...model.User) *fakeUsers {
	f := &fakeUsers{users: make(map[int64]*model.User)}
	for _, u := range us {
		u := u
		f.users[u.ID] = &u
	}
	return f
}

func (f *fakeUsers) Upsert(_ context.Context, u *model.User) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.users {
		if existing.TelegramID == u.TelegramID {
			existing.Username, existing.FirstName = u.Username, u.FirstName
			existing.LastName, existing.LanguageCode = u.LastName, u.LanguageCode
			*u = *existing
			return false, nil
		}
	}
	for id := range f.users {
		u.ID = max(u.ID, id)
	}
	u.ID++
	u.Role = model.RolePatient
	cp := *u
	f.users[u.ID] = &cp
	return true, nil
}

func (f *fakeUsers) GetByTelegramID(_ context.Context, telegramID int64) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.TelegramID == telegramID {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeUsers) GetByID(_ context.Context, id int64) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUsers) GetByIDs(_ context.Context, ids []int64) ([]*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.User
	for _, id := range ids {
		if u, ok := f.users[id]; ok {
			cp := *u
			out = append(out, &cp)
		}
	}
	return out, nil
}

type fakeSchedules struct {
	mu        sync.Mutex
	schedules []*model.RecurringSchedule
}

func (f *fakeSchedules) Create(_ context.Context, s *model.RecurringSchedule) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s.ID = int64(len(f.schedules) + 1)
	cp := *s
	f.schedules = append(f.schedules, &cp)
	return nil
}

func (f *fakeSchedules) GetByDoctorID(_ context.Context, doctorID int64) ([]*model.RecurringSchedule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.RecurringSchedule
	for _, s := range f.schedules {
		if s.DoctorID == doctorID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeSchedules) GetAllActive(_ context.Context) ([]*model.RecurringSchedule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.RecurringSchedule
	for _, s := range f.schedules {
		if s.IsActive {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeSchedules) Deactivate(_ context.Context, doctorID, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.schedules {
		if s.ID == id && s.DoctorID == doctorID {
			s.IsActive = false
			return nil
		}
	}
	return fmt.Errorf("recurring schedule not found")
}
