// Package testutil provides recording fakes for the mailer, calendar and
// event bus.
package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/ymcoiffure/salon-bookings/internal/calendar"
	"github.com/ymcoiffure/salon-bookings/internal/domain"
)

type SentCode struct {
	Email string
	Name  string
	Code  string
}

type Mailer struct {
	mu            sync.Mutex
	Codes         []SentCode
	Confirmations []domain.Appointment
	CancelURLs    []string
	Reminders     []domain.Appointment

	CodeErr     error
	ConfirmErr  error
	ReminderErr error
}

func (m *Mailer) SendVerificationCode(_ context.Context, toEmail, toName, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CodeErr != nil {
		return m.CodeErr
	}
	m.Codes = append(m.Codes, SentCode{Email: toEmail, Name: toName, Code: code})
	return nil
}

func (m *Mailer) SendConfirmation(_ context.Context, a *domain.Appointment, cancelURL string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ConfirmErr != nil {
		return m.ConfirmErr
	}
	m.Confirmations = append(m.Confirmations, *a)
	m.CancelURLs = append(m.CancelURLs, cancelURL)
	return nil
}

func (m *Mailer) SendReminder(_ context.Context, a *domain.Appointment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ReminderErr != nil {
		return m.ReminderErr
	}
	m.Reminders = append(m.Reminders, *a)
	return nil
}

// LastCode returns the most recent code sent to email.
func (m *Mailer) LastCode(email string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.Codes) - 1; i >= 0; i-- {
		if m.Codes[i].Email == email {
			return m.Codes[i].Code
		}
	}
	return ""
}

func (m *Mailer) ReminderCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Reminders)
}

type Calendar struct {
	mu      sync.Mutex
	next    int
	Events  map[string]calendar.Event
	Deleted []string

	CreateErr error
	DeleteErr error
}

func NewCalendar() *Calendar {
	return &Calendar{Events: make(map[string]calendar.Event)}
}

func (c *Calendar) CreateEvent(_ context.Context, ev calendar.Event) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.CreateErr != nil {
		return "", c.CreateErr
	}
	c.next++
	id := fmt.Sprintf("evt-%d", c.next)
	c.Events[id] = ev
	return id, nil
}

func (c *Calendar) DeleteEvent(_ context.Context, eventID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Deleted = append(c.Deleted, eventID)
	if c.DeleteErr != nil {
		return c.DeleteErr
	}
	delete(c.Events, eventID)
	return nil
}

func (c *Calendar) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.Events)
}

type Published struct {
	Subject string
	Data    interface{}
}

type Publisher struct {
	mu     sync.Mutex
	Events []Published
}

func (p *Publisher) Publish(_ context.Context, subject string, data interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Events = append(p.Events, Published{Subject: subject, Data: data})
	return nil
}

func (p *Publisher) Close() error { return nil }

// Subjects lists published subjects in order.
func (p *Publisher) Subjects() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.Events))
	for _, e := range p.Events {
		out = append(out, e.Subject)
	}
	return out
}
