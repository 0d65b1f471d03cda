// Package memstore holds in-memory repositories with the same contracts as
// the Postgres ones, including the unique (date, time) slot guard. Tests use
// it in place of a database.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ymcoiffure/salon-bookings/internal/domain"
	"github.com/ymcoiffure/salon-bookings/internal/repository"
)

var (
	_ repository.AppointmentRepository  = (*Appointments)(nil)
	_ repository.VerificationRepository = (*Verifications)(nil)
	_ repository.SettingsRepository     = (*Settings)(nil)
	_ repository.BlacklistRepository    = (*Blacklist)(nil)
)

type Store struct {
	mu           sync.Mutex
	appointments map[string]domain.Appointment
	pending      map[string]domain.PendingVerification
	status       *domain.SalonStatus
	blacklist    map[string]domain.BlacklistEntry

	// Err, when set, is returned by every call.
	Err error
}

func New() *Store {
	return &Store{
		appointments: make(map[string]domain.Appointment),
		pending:      make(map[string]domain.PendingVerification),
		blacklist:    make(map[string]domain.BlacklistEntry),
	}
}

type Appointments struct{ s *Store }
type Verifications struct{ s *Store }
type Settings struct{ s *Store }
type Blacklist struct{ s *Store }

func (s *Store) Appointments() *Appointments   { return &Appointments{s} }
func (s *Store) Verifications() *Verifications { return &Verifications{s} }
func (s *Store) Settings() *Settings           { return &Settings{s} }
func (s *Store) Blacklist() *Blacklist         { return &Blacklist{s} }

// AllAppointments is a snapshot for assertions.
func (s *Store) AllAppointments() []domain.Appointment {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Appointment, 0, len(s.appointments))
	for _, a := range s.appointments {
		out = append(out, a)
	}
	sortAppointments(out, true)
	return out
}

// Pending is a snapshot of the pending verification for email, if any.
func (s *Store) Pending(email string) (domain.PendingVerification, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pending[email]
	return p, ok
}

// Seed inserts an appointment as-is, bypassing the slot guard.
func (s *Store) Seed(a domain.Appointment) domain.Appointment {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	s.appointments[a.ID] = a
	return a
}

func sortAppointments(a []domain.Appointment, asc bool) {
	sort.Slice(a, func(i, j int) bool {
		ki, kj := a[i].Date+" "+a[i].Time, a[j].Date+" "+a[j].Time
		if asc {
			return ki < kj
		}
		return ki > kj
	})
}

func (r *Appointments) Create(_ context.Context, a *domain.Appointment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Err != nil {
		return r.s.Err
	}
	for _, existing := range r.s.appointments {
		if existing.Date == a.Date && existing.Time == a.Time {
			return domain.ErrSlotTaken
		}
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}
	a.ReminderSent = false
	r.s.appointments[a.ID] = *a
	return nil
}

func (r *Appointments) GetByID(_ context.Context, id string) (*domain.Appointment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Err != nil {
		return nil, r.s.Err
	}
	a, ok := r.s.appointments[id]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

func (r *Appointments) filter(keep func(domain.Appointment) bool, asc bool) ([]domain.Appointment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Err != nil {
		return nil, r.s.Err
	}
	out := []domain.Appointment{}
	for _, a := range r.s.appointments {
		if keep(a) {
			out = append(out, a)
		}
	}
	sortAppointments(out, asc)
	return out, nil
}

func (r *Appointments) FindActiveByEmail(_ context.Context, email, fromDate string) ([]domain.Appointment, error) {
	return r.filter(func(a domain.Appointment) bool { return a.Email == email && a.Date >= fromDate }, true)
}

func (r *Appointments) ExistsAtSlot(_ context.Context, date, hhmm string) (bool, error) {
	found, err := r.filter(func(a domain.Appointment) bool { return a.Date == date && a.Time == hhmm }, true)
	return len(found) > 0, err
}

func (r *Appointments) ListTimesByDate(_ context.Context, date string) ([]string, error) {
	found, err := r.filter(func(a domain.Appointment) bool { return a.Date == date }, true)
	if err != nil {
		return nil, err
	}
	times := make([]string, 0, len(found))
	for _, a := range found {
		times = append(times, a.Time)
	}
	return times, nil
}

func (r *Appointments) ListAll(_ context.Context) ([]domain.Appointment, error) {
	return r.filter(func(domain.Appointment) bool { return true }, false)
}

func (r *Appointments) ListReminderCandidates(_ context.Context, date string) ([]domain.Appointment, error) {
	return r.filter(func(a domain.Appointment) bool { return a.Date == date && !a.ReminderSent }, true)
}

func (r *Appointments) MarkReminderSent(_ context.Context, id string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Err != nil {
		return false, r.s.Err
	}
	a, ok := r.s.appointments[id]
	if !ok || a.ReminderSent {
		return false, nil
	}
	a.ReminderSent = true
	r.s.appointments[id] = a
	return true, nil
}

func (r *Appointments) Delete(_ context.Context, id string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Err != nil {
		return false, r.s.Err
	}
	if _, ok := r.s.appointments[id]; !ok {
		return false, nil
	}
	delete(r.s.appointments, id)
	return true, nil
}

func (r *Appointments) DeleteBefore(_ context.Context, date string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Err != nil {
		return 0, r.s.Err
	}
	var n int64
	for id, a := range r.s.appointments {
		if a.Date < date {
			delete(r.s.appointments, id)
			n++
		}
	}
	return n, nil
}

func (r *Verifications) Upsert(_ context.Context, p *domain.PendingVerification) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Err != nil {
		return r.s.Err
	}
	r.s.pending[p.Email] = *p
	return nil
}

func (r *Verifications) Get(_ context.Context, email string) (*domain.PendingVerification, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Err != nil {
		return nil, r.s.Err
	}
	p, ok := r.s.pending[email]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (r *Verifications) Delete(_ context.Context, email string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Err != nil {
		return r.s.Err
	}
	delete(r.s.pending, email)
	return nil
}

func (r *Verifications) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Err != nil {
		return 0, r.s.Err
	}
	var n int64
	for email, p := range r.s.pending {
		if p.ExpiresAt.Before(now) {
			delete(r.s.pending, email)
			n++
		}
	}
	return n, nil
}

func (r *Settings) GetStatus(_ context.Context) (*domain.SalonStatus, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Err != nil {
		return nil, r.s.Err
	}
	if r.s.status == nil {
		return nil, nil
	}
	st := *r.s.status
	return &st, nil
}

func (r *Settings) SetOpen(_ context.Context, open bool) (*domain.SalonStatus, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Err != nil {
		return nil, r.s.Err
	}
	r.s.status = &domain.SalonStatus{IsOpen: open, UpdatedAt: time.Now()}
	st := *r.s.status
	return &st, nil
}

func (r *Blacklist) Contains(_ context.Context, email string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Err != nil {
		return false, r.s.Err
	}
	_, ok := r.s.blacklist[email]
	return ok, nil
}

func (r *Blacklist) List(_ context.Context) ([]domain.BlacklistEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Err != nil {
		return nil, r.s.Err
	}
	out := []domain.BlacklistEntry{}
	for _, e := range r.s.blacklist {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, nil
}

func (r *Blacklist) Add(_ context.Context, entry *domain.BlacklistEntry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Err != nil {
		return r.s.Err
	}
	if existing, ok := r.s.blacklist[entry.Email]; ok {
		entry.CreatedAt = existing.CreatedAt
	} else {
		entry.CreatedAt = time.Now()
	}
	r.s.blacklist[entry.Email] = *entry
	return nil
}

func (r *Blacklist) Remove(_ context.Context, email string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Err != nil {
		return r.s.Err
	}
	delete(r.s.blacklist, email)
	return nil
}
