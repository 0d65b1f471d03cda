package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput           = errors.New("invalid input")
	ErrForbidden              = errors.New("forbidden")
	ErrDuplicateActiveBooking = errors.New("duplicate active booking")
	ErrSlotTaken              = errors.New("slot already booked")
	ErrInvalidOrExpiredCode   = errors.New("invalid or expired code")
	ErrDeliveryFailed         = errors.New("email delivery failed")
	ErrCalendarUnavailable    = errors.New("calendar unavailable")
	ErrUnauthorized           = errors.New("unauthorized")
	ErrNotFound               = errors.New("not found")
	ErrTooManyAttempts        = errors.New("too many attempts")
)

// Validation reasons. Error() keeps them in English for logs; Message()
// renders them for clients.
const (
	ReasonRequired   = "is required"
	ReasonMalformed  = "is malformed"
	ReasonDateLayout = "must be YYYY-MM-DD"
	ReasonTimeLayout = "must be HH:MM"
	ReasonInThePast  = "is in the past"
)

// ValidationError names the offending field. It matches ErrInvalidInput.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrInvalidInput }

var fieldLabels = map[string]string{
	"email":      "L'adresse e-mail",
	"clientName": "Le nom",
	"date":       "La date",
	"time":       "L'heure",
	"phone":      "Le numéro de téléphone",
	"code":       "Le code",
	"id":         "L'identifiant",
}

var reasonTexts = map[string]string{
	ReasonRequired:   "est obligatoire",
	ReasonMalformed:  "est invalide",
	ReasonDateLayout: "doit être au format AAAA-MM-JJ",
	ReasonTimeLayout: "doit être au format HH:MM",
}

// Message is the client-facing French text for the error.
func (e *ValidationError) Message() string {
	if e.Reason == ReasonInThePast {
		return "Ce créneau est déjà passé"
	}
	label, ok := fieldLabels[e.Field]
	text, known := reasonTexts[e.Reason]
	if !ok || !known {
		return "Données manquantes ou invalides"
	}
	return label + " " + text
}

// DuplicateBookingError carries the client's existing active appointment.
type DuplicateBookingError struct {
	Date string
	Time string
}

func (e *DuplicateBookingError) Error() string {
	return fmt.Sprintf("an appointment already exists on %s at %s", e.Date, e.Time)
}

func (e *DuplicateBookingError) Unwrap() error { return ErrDuplicateActiveBooking }
