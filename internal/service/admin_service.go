package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/ymcoiffure/salon-bookings/internal/domain"
	"github.com/ymcoiffure/salon-bookings/pkg/events"
	"github.com/ymcoiffure/salon-bookings/pkg/logger"
)

type AdminService interface {
	// ListAppointments returns every appointment, latest slot first.
	ListAppointments(ctx context.Context) ([]domain.Appointment, error)
	DeleteAppointment(ctx context.Context, id string) error
	SetOpen(ctx context.Context, open bool) (*domain.SalonStatus, error)
	ListBlacklist(ctx context.Context) ([]domain.BlacklistEntry, error)
	AddToBlacklist(ctx context.Context, email, reason string) (*domain.BlacklistEntry, error)
	RemoveFromBlacklist(ctx context.Context, email string) error
}

type adminService struct {
	Deps
}

func NewAdminService(deps Deps) AdminService {
	if deps.Events == nil {
		deps.Events = events.NoopPublisher{}
	}
	return &adminService{Deps: deps}
}

func (s *adminService) ListAppointments(ctx context.Context) ([]domain.Appointment, error) {
	appts, err := s.Appointments.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	return appts, nil
}

func (s *adminService) DeleteAppointment(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return &domain.ValidationError{Field: "id", Reason: domain.ReasonRequired}
	}

	appt, err := s.Appointments.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("load appointment: %w", err)
	}
	if appt == nil {
		return domain.ErrNotFound
	}

	return removeAppointment(ctx, s.Deps, appt, events.ReasonAdminCanceled)
}

func (s *adminService) SetOpen(ctx context.Context, open bool) (*domain.SalonStatus, error) {
	status, err := s.Settings.SetOpen(ctx, open)
	if err != nil {
		return nil, fmt.Errorf("set salon status: %w", err)
	}
	logger.InfoContext(ctx, "Salon status changed", "is_open", open)
	return status, nil
}

func (s *adminService) ListBlacklist(ctx context.Context) ([]domain.BlacklistEntry, error) {
	entries, err := s.Blacklist.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list blacklist: %w", err)
	}
	return entries, nil
}

func (s *adminService) AddToBlacklist(ctx context.Context, email, reason string) (*domain.BlacklistEntry, error) {
	email = domain.NormalizeEmail(email)
	if email == "" {
		return nil, &domain.ValidationError{Field: "email", Reason: domain.ReasonRequired}
	}
	if !domain.IsValidEmail(email) {
		return nil, &domain.ValidationError{Field: "email", Reason: domain.ReasonMalformed}
	}

	entry := &domain.BlacklistEntry{Email: email, Reason: strings.TrimSpace(reason)}
	if err := s.Blacklist.Add(ctx, entry); err != nil {
		return nil, fmt.Errorf("add to blacklist: %w", err)
	}
	logger.InfoContext(ctx, "Email blacklisted", "email", email)
	return entry, nil
}

func (s *adminService) RemoveFromBlacklist(ctx context.Context, email string) error {
	email = domain.NormalizeEmail(email)
	if email == "" {
		return &domain.ValidationError{Field: "email", Reason: domain.ReasonRequired}
	}
	if err := s.Blacklist.Remove(ctx, email); err != nil {
		return fmt.Errorf("remove from blacklist: %w", err)
	}
	logger.InfoContext(ctx, "Email removed from blacklist", "email", email)
	return nil
}
