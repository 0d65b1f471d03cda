package mailer

import (
	"context"

	"github.com/ymcoiffure/salon-bookings/internal/domain"
)

type Service interface {
	SendVerificationCode(ctx context.Context, toEmail, toName, code string) error
	// SendConfirmation includes cancelURL when it is not empty.
	SendConfirmation(ctx context.Context, a *domain.Appointment, cancelURL string) error
	SendReminder(ctx context.Context, a *domain.Appointment) error
}

// Salon is what every outgoing message signs with.
type Salon struct {
	Name    string
	Address string
}
