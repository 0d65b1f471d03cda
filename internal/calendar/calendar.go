package calendar

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ymcoiffure/salon-bookings/pkg/logger"
)

// Service mirrors appointments into the salon's external calendar.
type Service interface {
	CreateEvent(ctx context.Context, ev Event) (string, error)
	DeleteEvent(ctx context.Context, eventID string) error
}

type Event struct {
	Summary     string
	Description string
	Start       time.Time
	End         time.Time
}

// NewAppointmentEvent builds the event for a client visit.
func NewAppointmentEvent(clientName, phone, email string, start time.Time, d time.Duration) Event {
	return Event{
		Summary:     fmt.Sprintf("✂️ %s", clientName),
		Description: fmt.Sprintf("Tel: %s\nMail: %s", phone, email),
		Start:       start,
		End:         start.Add(d),
	}
}

// DevCalendar logs events and hands out random ids.
type DevCalendar struct{}

func NewDevCalendar() *DevCalendar {
	return &DevCalendar{}
}

func (DevCalendar) CreateEvent(ctx context.Context, ev Event) (string, error) {
	id := "dev-" + uuid.NewString()
	logger.InfoContext(ctx, "📅 [DEV CALENDAR] Event created",
		"event_id", id,
		"summary", ev.Summary,
		"start", ev.Start.Format(time.RFC3339),
		"end", ev.End.Format(time.RFC3339),
	)
	return id, nil
}

func (DevCalendar) DeleteEvent(ctx context.Context, eventID string) error {
	logger.InfoContext(ctx, "📅 [DEV CALENDAR] Event deleted", "event_id", eventID)
	return nil
}
