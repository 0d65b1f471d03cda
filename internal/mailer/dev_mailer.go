package mailer

import (
	"context"

	"github.com/ymcoiffure/salon-bookings/internal/domain"
	"github.com/ymcoiffure/salon-bookings/pkg/logger"
)

// DevMailer logs messages instead of sending them.
type DevMailer struct {
	salon Salon
}

func NewDevMailer(salon Salon) *DevMailer {
	return &DevMailer{salon: salon}
}

func (d *DevMailer) SendVerificationCode(ctx context.Context, toEmail, toName, code string) error {
	msg := verificationMessage(d.salon, code)
	logger.InfoContext(ctx, "📧 [DEV MAIL] Verification code",
		"to", toEmail,
		"name", toName,
		"subject", msg.subject,
		"code", code,
	)
	return nil
}

func (d *DevMailer) SendConfirmation(ctx context.Context, a *domain.Appointment, cancelURL string) error {
	msg := confirmationMessage(d.salon, a, cancelURL)
	logger.InfoContext(ctx, "📧 [DEV MAIL] Appointment confirmed",
		"to", a.Email,
		"subject", msg.subject,
		"date", a.Date,
		"time", a.Time,
		"cancel_url", cancelURL,
	)
	return nil
}

func (d *DevMailer) SendReminder(ctx context.Context, a *domain.Appointment) error {
	msg := reminderMessage(d.salon, a)
	logger.InfoContext(ctx, "📧 [DEV MAIL] Reminder",
		"to", a.Email,
		"subject", msg.subject,
		"date", a.Date,
		"time", a.Time,
	)
	return nil
}
