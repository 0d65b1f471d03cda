package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/ymcoiffure/salon-bookings/internal/calendar"
	"github.com/ymcoiffure/salon-bookings/internal/domain"
	"github.com/ymcoiffure/salon-bookings/internal/mailer"
	"github.com/ymcoiffure/salon-bookings/internal/ratelimit"
	"github.com/ymcoiffure/salon-bookings/internal/repository"
	"github.com/ymcoiffure/salon-bookings/pkg/auth"
	"github.com/ymcoiffure/salon-bookings/pkg/config"
	"github.com/ymcoiffure/salon-bookings/pkg/events"
	"github.com/ymcoiffure/salon-bookings/pkg/logger"
)

type BookingService interface {
	// RequestVerification validates a booking request and e-mails a one-time code.
	RequestVerification(ctx context.Context, req domain.VerificationRequest, originIP string) error
	// ConfirmVerification turns a pending verification into an appointment.
	ConfirmVerification(ctx context.Context, in domain.VerificationConfirm) (*domain.Appointment, error)
	BusySlots(ctx context.Context, date string) ([]string, error)
	// IsOpen never fails; an unreadable status counts as open.
	IsOpen(ctx context.Context) bool
	// PreviewCancel checks a cancel token and returns the appointment it targets.
	PreviewCancel(ctx context.Context, token string) (*domain.Appointment, error)
	CancelByToken(ctx context.Context, token string) error
}

const (
	defaultConfirmAttempts = 5
	defaultVerificationTTL = 15 * time.Minute
)

// Deps are the collaborators shared by the booking and admin services and the scheduler.
type Deps struct {
	Appointments  repository.AppointmentRepository
	Verifications repository.VerificationRepository
	Settings      repository.SettingsRepository
	Blacklist     repository.BlacklistRepository
	Mailer        mailer.Service
	Calendar      calendar.Service
	Events        events.Publisher
	Clock         *domain.SalonClock

	// Attempts counts code submissions per email. Nil means an in-process
	// window of MaxConfirmAttempts per VerificationTTL.
	Attempts ratelimit.Limiter
}

type bookingService struct {
	Deps
	config *config.Config

	emailLocks *keyedMutex
	slotLocks  *keyedMutex

	newCode  func() (string, error)
	hashCost int
}

func NewBookingService(deps Deps, cfg *config.Config) BookingService {
	return newBookingService(deps, cfg)
}

func newBookingService(deps Deps, cfg *config.Config) *bookingService {
	if deps.Events == nil {
		deps.Events = events.NoopPublisher{}
	}
	if deps.Attempts == nil {
		deps.Attempts = ratelimit.NewMemoryLimiter(confirmAttemptPolicy(cfg))
	}
	return &bookingService{
		Deps:       deps,
		config:     cfg,
		emailLocks: newKeyedMutex(),
		slotLocks:  newKeyedMutex(),
		newCode:    newVerificationCode,
		hashCost:   bcrypt.DefaultCost,
	}
}

func (s *bookingService) RequestVerification(ctx context.Context, req domain.VerificationRequest, originIP string) error {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return err
	}

	start, err := s.Clock.SlotStart(req.Date, req.Time)
	if err != nil {
		return err
	}
	if !start.After(s.Clock.Now()) {
		return &domain.ValidationError{Field: "time", Reason: domain.ReasonInThePast}
	}

	unlock := s.emailLocks.Lock(req.Email)
	defer unlock()

	blocked, err := s.Blacklist.Contains(ctx, req.Email)
	if err != nil {
		return fmt.Errorf("check blacklist: %w", err)
	}
	if blocked {
		logger.WarnContext(ctx, "Verification refused for blacklisted email", "email", req.Email)
		return domain.ErrForbidden
	}

	if err := s.checkNoActiveBooking(ctx, req.Email); err != nil {
		return err
	}

	taken, err := s.Appointments.ExistsAtSlot(ctx, req.Date, req.Time)
	if err != nil {
		return fmt.Errorf("check slot: %w", err)
	}
	if taken {
		return domain.ErrSlotTaken
	}

	code, err := s.newCode()
	if err != nil {
		return fmt.Errorf("generate code: %w", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), s.hashCost)
	if err != nil {
		return fmt.Errorf("hash code: %w", err)
	}

	now := s.Clock.Now()
	pending := &domain.PendingVerification{
		Email:      req.Email,
		CodeHash:   string(hash),
		ClientName: req.ClientName,
		Date:       req.Date,
		Time:       req.Time,
		Phone:      req.Phone,
		OriginIP:   originIP,
		ExpiresAt:  now.Add(s.config.Booking.VerificationTTL),
		CreatedAt:  now,
	}
	if err := s.Verifications.Upsert(ctx, pending); err != nil {
		return fmt.Errorf("save pending verification: %w", err)
	}

	if err := s.Mailer.SendVerificationCode(ctx, req.Email, req.ClientName, code); err != nil {
		logger.ErrorContext(ctx, "Failed to send verification code", "email", req.Email, "error", err)
		return fmt.Errorf("%w: %v", domain.ErrDeliveryFailed, err)
	}

	logger.InfoContext(ctx, "Verification code issued", "email", req.Email, "date", req.Date, "time", req.Time)
	return nil
}

// checkNoActiveBooking treats an appointment dated today or later as active.
func (s *bookingService) checkNoActiveBooking(ctx context.Context, email string) error {
	active, err := s.Appointments.FindActiveByEmail(ctx, email, s.Clock.Today())
	if err != nil {
		return fmt.Errorf("check active bookings: %w", err)
	}
	if len(active) > 0 {
		return &domain.DuplicateBookingError{Date: active[0].Date, Time: active[0].Time}
	}
	return nil
}

func (s *bookingService) ConfirmVerification(ctx context.Context, in domain.VerificationConfirm) (*domain.Appointment, error) {
	in.Normalize()
	if err := in.Validate(); err != nil {
		return nil, err
	}

	// Counted per target email so rotating client addresses cannot widen
	// the guessing budget. The pending record is left as is.
	allowed, err := s.Attempts.Allow(ctx, "confirm:"+in.Email)
	if err != nil {
		logger.WarnContext(ctx, "Attempt limiter unavailable, failing open", "error", err)
	}
	if !allowed && err == nil {
		logger.WarnContext(ctx, "Too many code submissions", "email", in.Email)
		return nil, domain.ErrTooManyAttempts
	}

	unlockEmail := s.emailLocks.Lock(in.Email)
	defer unlockEmail()

	pending, err := s.Verifications.Get(ctx, in.Email)
	if err != nil {
		return nil, fmt.Errorf("load pending verification: %w", err)
	}
	if pending == nil || pending.IsExpired(s.Clock.Now()) {
		return nil, domain.ErrInvalidOrExpiredCode
	}
	if bcrypt.CompareHashAndPassword([]byte(pending.CodeHash), []byte(in.Code)) != nil {
		return nil, domain.ErrInvalidOrExpiredCode
	}

	start, err := s.Clock.SlotStart(pending.Date, pending.Time)
	if err != nil {
		return nil, err
	}
	if !start.After(s.Clock.Now()) {
		return nil, &domain.ValidationError{Field: "time", Reason: domain.ReasonInThePast}
	}

	unlockSlot := s.slotLocks.Lock(pending.Date + "|" + pending.Time)
	defer unlockSlot()

	if err := s.checkNoActiveBooking(ctx, pending.Email); err != nil {
		return nil, err
	}
	taken, err := s.Appointments.ExistsAtSlot(ctx, pending.Date, pending.Time)
	if err != nil {
		return nil, fmt.Errorf("check slot: %w", err)
	}
	if taken {
		return nil, domain.ErrSlotTaken
	}

	ev := calendar.NewAppointmentEvent(pending.ClientName, pending.Phone, pending.Email, start, s.config.Booking.AppointmentDuration)
	eventID, err := s.Calendar.CreateEvent(ctx, ev)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to create calendar event", "email", pending.Email, "error", err)
		return nil, fmt.Errorf("%w: %v", domain.ErrCalendarUnavailable, err)
	}

	appt := &domain.Appointment{
		Date:            pending.Date,
		Time:            pending.Time,
		ClientName:      pending.ClientName,
		Phone:           pending.Phone,
		Email:           pending.Email,
		CalendarEventID: eventID,
		OriginIP:        pending.OriginIP,
		CreatedAt:       s.Clock.Now(),
	}
	if err := s.Appointments.Create(ctx, appt); err != nil {
		s.dropCalendarEvent(ctx, eventID)
		if errors.Is(err, domain.ErrSlotTaken) {
			return nil, domain.ErrSlotTaken
		}
		return nil, fmt.Errorf("save appointment: %w", err)
	}

	s.sendConfirmation(ctx, appt, start)

	err = s.Events.Publish(ctx, events.AppointmentCreated, events.AppointmentCreatedEvent{
		AppointmentID:   appt.ID,
		ClientName:      appt.ClientName,
		Email:           appt.Email,
		Date:            appt.Date,
		Time:            appt.Time,
		CalendarEventID: appt.CalendarEventID,
		CreatedAt:       appt.CreatedAt,
	})
	if err != nil {
		logger.WarnContext(ctx, "Failed to publish appointment event", "appointment_id", appt.ID, "error", err)
	}

	if err := s.Verifications.Delete(ctx, pending.Email); err != nil {
		logger.ErrorContext(ctx, "Failed to delete pending verification", "email", pending.Email, "error", err)
	}

	logger.InfoContext(ctx, "Appointment confirmed", "appointment_id", appt.ID, "date", appt.Date, "time", appt.Time)
	return appt, nil
}

func confirmAttemptPolicy(cfg *config.Config) (int, time.Duration) {
	attempts, window := defaultConfirmAttempts, defaultVerificationTTL
	if cfg != nil {
		if cfg.Booking.MaxConfirmAttempts > 0 {
			attempts = cfg.Booking.MaxConfirmAttempts
		}
		if cfg.Booking.VerificationTTL > 0 {
			window = cfg.Booking.VerificationTTL
		}
	}
	return attempts, window
}

// sendConfirmation is best-effort: the booking already exists.
func (s *bookingService) sendConfirmation(ctx context.Context, appt *domain.Appointment, start time.Time) {
	cancelURL := ""
	token, err := auth.NewCancelToken(appt.ID, appt.Email, s.config.Booking.CancelTokenSecret, s.Clock.Now(), s.cancelDeadline(start))
	if err != nil {
		logger.ErrorContext(ctx, "Failed to sign cancel token", "appointment_id", appt.ID, "error", err)
	} else {
		cancelURL = strings.TrimRight(s.config.Server.PublicBaseURL, "/") + "/api/appointments/cancel?token=" + url.QueryEscape(token)
	}

	if err := s.Mailer.SendConfirmation(ctx, appt, cancelURL); err != nil {
		logger.ErrorContext(ctx, "Failed to send confirmation email", "appointment_id", appt.ID, "email", appt.Email, "error", err)
	}
}

// cancelDeadline is the slot start, capped by the configured token lifetime.
func (s *bookingService) cancelDeadline(start time.Time) time.Time {
	if ttl := s.config.Booking.CancelTokenTTL; ttl > 0 {
		if limit := s.Clock.Now().Add(ttl); limit.Before(start) {
			return limit
		}
	}
	return start
}

func (s *bookingService) dropCalendarEvent(ctx context.Context, eventID string) {
	if eventID == "" {
		return
	}
	if err := s.Calendar.DeleteEvent(ctx, eventID); err != nil {
		logger.ErrorContext(ctx, "Failed to delete calendar event", "event_id", eventID, "error", err)
	}
}

func (s *bookingService) BusySlots(ctx context.Context, date string) ([]string, error) {
	date = strings.TrimSpace(date)
	if date == "" {
		return nil, &domain.ValidationError{Field: "date", Reason: domain.ReasonRequired}
	}
	if !domain.IsValidDate(date) {
		return nil, &domain.ValidationError{Field: "date", Reason: domain.ReasonDateLayout}
	}
	times, err := s.Appointments.ListTimesByDate(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("list busy slots: %w", err)
	}
	return times, nil
}

func (s *bookingService) IsOpen(ctx context.Context) bool {
	status, err := s.Settings.GetStatus(ctx)
	if err != nil {
		logger.WarnContext(ctx, "Failed to read salon status, assuming open", "error", err)
		return true
	}
	if status == nil {
		return true
	}
	return status.IsOpen
}

// PreviewCancel resolves a cancel link without touching the appointment.
// Link scanners fetch e-mailed URLs, so only CancelByToken deletes.
func (s *bookingService) PreviewCancel(ctx context.Context, token string) (*domain.Appointment, error) {
	return s.appointmentForToken(ctx, token)
}

func (s *bookingService) CancelByToken(ctx context.Context, token string) error {
	appt, err := s.appointmentForToken(ctx, token)
	if err != nil {
		return err
	}
	return removeAppointment(ctx, s.Deps, appt, events.ReasonUserRequested)
}

func (s *bookingService) appointmentForToken(ctx context.Context, token string) (*domain.Appointment, error) {
	claims, err := auth.ParseCancelToken(strings.TrimSpace(token), s.config.Booking.CancelTokenSecret, s.Clock.Now())
	if err != nil {
		return nil, domain.ErrInvalidOrExpiredCode
	}

	appt, err := s.Appointments.GetByID(ctx, claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("load appointment: %w", err)
	}
	if appt == nil {
		return nil, domain.ErrNotFound
	}
	if !strings.EqualFold(appt.Email, claims.Email) {
		return nil, domain.ErrInvalidOrExpiredCode
	}
	return appt, nil
}

// removeAppointment deletes the store record and then its calendar event.
// Only the store deletion can fail the call.
func removeAppointment(ctx context.Context, deps Deps, appt *domain.Appointment, reason string) error {
	deleted, err := deps.Appointments.Delete(ctx, appt.ID)
	if err != nil {
		return fmt.Errorf("delete appointment: %w", err)
	}
	if !deleted {
		return domain.ErrNotFound
	}

	if appt.CalendarEventID != "" {
		if err := deps.Calendar.DeleteEvent(ctx, appt.CalendarEventID); err != nil {
			logger.ErrorContext(ctx, "Failed to delete calendar event",
				"appointment_id", appt.ID,
				"event_id", appt.CalendarEventID,
				"error", err,
			)
		}
	}

	err = deps.Events.Publish(ctx, events.AppointmentCanceled, events.AppointmentCanceledEvent{
		AppointmentID: appt.ID,
		Email:         appt.Email,
		Date:          appt.Date,
		Time:          appt.Time,
		Reason:        reason,
		CanceledAt:    deps.Clock.Now(),
	})
	if err != nil {
		logger.WarnContext(ctx, "Failed to publish cancel event", "appointment_id", appt.ID, "error", err)
	}

	logger.InfoContext(ctx, "Appointment canceled", "appointment_id", appt.ID, "reason", reason)
	return nil
}
