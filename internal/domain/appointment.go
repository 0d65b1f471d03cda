package domain

import (
	"strings"
	"time"
)

type Appointment struct {
	ID              string    `json:"id"`
	Date            string    `json:"date"`
	Time            string    `json:"time"`
	ClientName      string    `json:"clientName"`
	Phone           string    `json:"phone"`
	Email           string    `json:"email"`
	CalendarEventID string    `json:"calendarEventId"`
	ReminderSent    bool      `json:"reminderSent"`
	OriginIP        string    `json:"originIp,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
}

// PendingVerification is the single outstanding code for an email. A new
// request for the same email replaces it wholesale.
type PendingVerification struct {
	Email      string
	CodeHash   string
	ClientName string
	Date       string
	Time       string
	Phone      string
	OriginIP   string
	ExpiresAt  time.Time
	CreatedAt  time.Time
}

func (p *PendingVerification) IsExpired(now time.Time) bool {
	return !p.ExpiresAt.IsZero() && !now.Before(p.ExpiresAt)
}

type SalonStatus struct {
	IsOpen    bool      `json:"is_open"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

type BlacklistEntry struct {
	Email     string    `json:"email"`
	Reason    string    `json:"reason,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type VerificationRequest struct {
	Email      string `json:"email"`
	ClientName string `json:"clientName"`
	Date       string `json:"date"`
	Time       string `json:"time"`
	Phone      string `json:"phone"`
}

type VerificationConfirm struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

func (r *VerificationRequest) Normalize() {
	r.Email = NormalizeEmail(r.Email)
	r.ClientName = strings.Join(strings.Fields(r.ClientName), " ")
	r.Date = strings.TrimSpace(r.Date)
	r.Time = strings.TrimSpace(r.Time)
	r.Phone = NormalizePhone(r.Phone)
}

// Validate checks presence first, then shape. Whether the slot lies in the
// future is left to the caller, which owns the clock.
func (r *VerificationRequest) Validate() error {
	switch {
	case r.Email == "":
		return &ValidationError{Field: "email", Reason: ReasonRequired}
	case r.ClientName == "":
		return &ValidationError{Field: "clientName", Reason: ReasonRequired}
	case r.Date == "":
		return &ValidationError{Field: "date", Reason: ReasonRequired}
	case r.Time == "":
		return &ValidationError{Field: "time", Reason: ReasonRequired}
	case r.Phone == "":
		return &ValidationError{Field: "phone", Reason: ReasonRequired}
	}
	if !IsValidEmail(r.Email) {
		return &ValidationError{Field: "email", Reason: ReasonMalformed}
	}
	if !IsValidPhone(r.Phone) {
		return &ValidationError{Field: "phone", Reason: ReasonMalformed}
	}
	if !IsValidDate(r.Date) {
		return &ValidationError{Field: "date", Reason: ReasonDateLayout}
	}
	if !IsValidTime(r.Time) {
		return &ValidationError{Field: "time", Reason: ReasonTimeLayout}
	}
	return nil
}

func (c *VerificationConfirm) Normalize() {
	c.Email = NormalizeEmail(c.Email)
	c.Code = strings.TrimSpace(c.Code)
}

func (c *VerificationConfirm) Validate() error {
	if c.Email == "" {
		return &ValidationError{Field: "email", Reason: ReasonRequired}
	}
	if c.Code == "" {
		return &ValidationError{Field: "code", Reason: ReasonRequired}
	}
	return nil
}
