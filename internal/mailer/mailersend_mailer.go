package mailer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mailersend/mailersend-go"

	"github.com/ymcoiffure/salon-bookings/internal/domain"
)

type MailerSendClient struct {
	client  *mailersend.Mailersend
	from    mailersend.From
	salon   Salon
	enabled bool
}

func NewMailerSend(apiKey, fromName, fromEmail string, salon Salon) *MailerSendClient {
	m := &MailerSendClient{
		enabled: apiKey != "" && fromEmail != "",
		from: mailersend.From{
			Name:  fromName,
			Email: fromEmail,
		},
		salon: salon,
	}

	if m.enabled {
		m.client = mailersend.NewMailersend(apiKey)
	}

	return m
}

func (m *MailerSendClient) SendVerificationCode(ctx context.Context, toEmail, toName, code string) error {
	return m.send(ctx, toEmail, toName, verificationMessage(m.salon, code))
}

func (m *MailerSendClient) SendConfirmation(ctx context.Context, a *domain.Appointment, cancelURL string) error {
	return m.send(ctx, a.Email, a.ClientName, confirmationMessage(m.salon, a, cancelURL))
}

func (m *MailerSendClient) SendReminder(ctx context.Context, a *domain.Appointment) error {
	return m.send(ctx, a.Email, a.ClientName, reminderMessage(m.salon, a))
}

func (m *MailerSendClient) send(ctx context.Context, toEmail, toName string, msg message) error {
	if !m.enabled {
		return errors.New("MailerSend not configured")
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	email := m.client.Email.NewMessage()
	email.SetFrom(m.from)
	email.SetRecipients([]mailersend.Recipient{{Name: toName, Email: toEmail}})
	email.SetSubject(msg.subject)

	if strings.TrimSpace(msg.text) != "" {
		email.SetText(msg.text)
	}
	if strings.TrimSpace(msg.html) != "" {
		email.SetHTML(msg.html)
	}

	// The client turns any non-2xx answer into an error.
	if _, err := m.client.Email.Send(ctx, email); err != nil {
		return fmt.Errorf("mailersend: %w", err)
	}
	return nil
}
