package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ymcoiffure/salon-bookings/internal/domain"
	"github.com/ymcoiffure/salon-bookings/internal/mailer"
	"github.com/ymcoiffure/salon-bookings/internal/repository"
	"github.com/ymcoiffure/salon-bookings/pkg/config"
	"github.com/ymcoiffure/salon-bookings/pkg/events"
	"github.com/ymcoiffure/salon-bookings/pkg/logger"
)

// Scheduler runs the purge and reminder jobs once at start and then on a
// fixed interval. Both jobs are safe to run alongside request traffic.
type Scheduler struct {
	Appointments  repository.AppointmentRepository
	Verifications repository.VerificationRepository
	Mailer        mailer.Service
	Events        events.Publisher
	Clock         *domain.SalonClock

	Interval       time.Duration
	GraceDays      int
	ReminderLead   time.Duration
	ReminderMinAge time.Duration

	running atomic.Bool

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func New(
	appointments repository.AppointmentRepository,
	verifications repository.VerificationRepository,
	m mailer.Service,
	bus events.Publisher,
	clock *domain.SalonClock,
	cfg config.MaintenanceConfig,
) *Scheduler {
	if bus == nil {
		bus = events.NoopPublisher{}
	}
	return &Scheduler{
		Appointments:   appointments,
		Verifications:  verifications,
		Mailer:         m,
		Events:         bus,
		Clock:          clock,
		Interval:       cfg.Interval,
		GraceDays:      cfg.PurgeGraceDays,
		ReminderLead:   cfg.ReminderLead,
		ReminderMinAge: cfg.ReminderMinAge,
	}
}

type PurgeResult struct {
	Appointments int64
	Pending      int64
}

// PurgeExpired deletes appointments dated before today minus the grace
// window, plus verification codes that have expired. Calendar events of
// purged appointments are left alone.
func (s *Scheduler) PurgeExpired(ctx context.Context) (PurgeResult, error) {
	ctx = logger.WithJob(ctx, "purge")
	var res PurgeResult

	cutoff := s.Clock.DaysFromToday(-s.GraceDays)
	n, err := s.Appointments.DeleteBefore(ctx, cutoff)
	if err != nil {
		return res, fmt.Errorf("purge appointments before %s: %w", cutoff, err)
	}
	res.Appointments = n

	n, err = s.Verifications.DeleteExpired(ctx, s.Clock.Now())
	if err != nil {
		return res, fmt.Errorf("purge expired verifications: %w", err)
	}
	res.Pending = n

	if res.Appointments > 0 || res.Pending > 0 {
		logger.InfoContext(ctx, "Purged expired records",
			"cutoff", cutoff,
			"appointments", res.Appointments,
			"pending_verifications", res.Pending,
		)
	}
	return res, nil
}

// SendReminders mails tomorrow's clients whose slot is within the reminder
// lead and who did not book moments ago. The flag is only set after a
// successful send, so failures are retried on the next run.
func (s *Scheduler) SendReminders(ctx context.Context) (int, error) {
	ctx = logger.WithJob(ctx, "reminders")

	target := s.Clock.DaysFromToday(1)
	candidates, err := s.Appointments.ListReminderCandidates(ctx, target)
	if err != nil {
		return 0, fmt.Errorf("list reminder candidates for %s: %w", target, err)
	}

	now := s.Clock.Now()
	sent := 0
	var errs []error
	for i := range candidates {
		a := &candidates[i]
		if !s.due(a, now) {
			continue
		}

		if err := s.Mailer.SendReminder(ctx, a); err != nil {
			logger.ErrorContext(ctx, "Failed to send reminder", "appointment_id", a.ID, "email", a.Email, "error", err)
			errs = append(errs, fmt.Errorf("reminder %s: %w", a.ID, err))
			continue
		}

		marked, err := s.Appointments.MarkReminderSent(ctx, a.ID)
		if err != nil {
			logger.ErrorContext(ctx, "Failed to flag reminder as sent", "appointment_id", a.ID, "error", err)
			errs = append(errs, fmt.Errorf("flag reminder %s: %w", a.ID, err))
			continue
		}
		if !marked {
			logger.WarnContext(ctx, "Reminder already flagged by another run", "appointment_id", a.ID)
		}
		sent++

		err = s.Events.Publish(ctx, events.AppointmentReminded, events.AppointmentRemindedEvent{
			AppointmentID: a.ID,
			Email:         a.Email,
			Date:          a.Date,
			Time:          a.Time,
			SentAt:        now,
		})
		if err != nil {
			logger.WarnContext(ctx, "Failed to publish reminder event", "appointment_id", a.ID, "error", err)
		}
	}

	if sent > 0 {
		logger.InfoContext(ctx, "Reminders sent", "date", target, "count", sent)
	}
	return sent, errors.Join(errs...)
}

func (s *Scheduler) due(a *domain.Appointment, now time.Time) bool {
	start, err := s.Clock.SlotStart(a.Date, a.Time)
	if err != nil {
		logger.Warn("Skipping appointment with unreadable slot", "appointment_id", a.ID, "date", a.Date, "time", a.Time)
		return false
	}
	if start.Sub(now) > s.ReminderLead {
		return false
	}
	return now.Sub(a.CreatedAt) >= s.ReminderMinAge
}

// RunOnce runs both jobs and reports false when a previous run is still busy.
func (s *Scheduler) RunOnce(ctx context.Context) bool {
	if !s.running.CompareAndSwap(false, true) {
		logger.WarnContext(ctx, "Maintenance still running, skipping tick")
		return false
	}
	defer s.running.Store(false)

	if _, err := s.PurgeExpired(ctx); err != nil {
		logger.ErrorContext(ctx, "Purge job failed", "error", err)
	}
	if _, err := s.SendReminders(ctx); err != nil {
		logger.ErrorContext(ctx, "Reminder job failed", "error", err)
	}
	return true
}

// Run blocks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	t := time.NewTicker(s.Interval)
	defer t.Stop()

	// kick immediately
	s.RunOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			s.RunOnce(ctx)
		}
	}
}

// Start runs the scheduler in the background until Stop is called or ctx ends.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.cancel = cancel
	s.done = done

	go func() {
		defer close(done)
		s.Run(ctx)
	}()
	logger.Info("Maintenance scheduler started", "interval", s.Interval.String())
}

// Stop cancels the loop and waits for the current run to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	logger.Info("Maintenance scheduler stopped")
}
