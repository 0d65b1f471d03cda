package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func paris(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Europe/Paris")
	require.NoError(t, err)
	return loc
}

func TestSalonClock_TodayUsesSalonZone(t *testing.T) {
	// 23:30 UTC on June 9th is already June 10th in Paris (UTC+2).
	utc := time.Date(2025, 6, 9, 23, 30, 0, 0, time.UTC)
	clock := NewSalonClock(paris(t), func() time.Time { return utc })

	assert.Equal(t, "2025-06-10", clock.Today())
	assert.Equal(t, "2025-06-11", clock.DaysFromToday(1))
	assert.Equal(t, "2025-06-03", clock.DaysFromToday(-7))
}

func TestSalonClock_DaysFromTodayAcrossDST(t *testing.T) {
	// Paris switches to summer time on 2025-03-30.
	now := time.Date(2025, 3, 29, 23, 30, 0, 0, paris(t))
	clock := NewSalonClock(paris(t), func() time.Time { return now })
	assert.Equal(t, "2025-03-30", clock.DaysFromToday(1))
	assert.Equal(t, "2025-03-31", clock.DaysFromToday(2))
}

func TestSalonClock_SlotStart(t *testing.T) {
	clock := NewSalonClock(paris(t), nil)

	start, err := clock.SlotStart("2025-06-10", "14:00")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC), start.UTC())

	winter, err := clock.SlotStart("2025-01-10", "14:00")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 1, 10, 13, 0, 0, 0, time.UTC), winter.UTC())

	_, err = clock.SlotStart("2025-13-10", "14:00")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestVerificationRequest_Validate(t *testing.T) {
	valid := func() VerificationRequest {
		return VerificationRequest{
			Email: " Jane@Example.com ", ClientName: "  Jane   Doe ",
			Date: "2025-06-10", Time: "14:00", Phone: "06 12 34 56 78",
		}
	}

	r := valid()
	r.Normalize()
	require.NoError(t, r.Validate())
	assert.Equal(t, "jane@example.com", r.Email)
	assert.Equal(t, "Jane Doe", r.ClientName)
	assert.Equal(t, "0612345678", r.Phone)

	tests := []struct {
		name   string
		mutate func(*VerificationRequest)
		field  string
	}{
		{"missing email", func(r *VerificationRequest) { r.Email = "" }, "email"},
		{"missing name", func(r *VerificationRequest) { r.ClientName = " " }, "clientName"},
		{"missing date", func(r *VerificationRequest) { r.Date = "" }, "date"},
		{"missing time", func(r *VerificationRequest) { r.Time = "" }, "time"},
		{"missing phone", func(r *VerificationRequest) { r.Phone = "" }, "phone"},
		{"bad email", func(r *VerificationRequest) { r.Email = "nope" }, "email"},
		{"bad date", func(r *VerificationRequest) { r.Date = "2025-02-30" }, "date"},
		{"bad time", func(r *VerificationRequest) { r.Time = "25:00" }, "time"},
		{"short time", func(r *VerificationRequest) { r.Time = "9:00" }, "time"},
		{"short phone", func(r *VerificationRequest) { r.Phone = "123" }, "phone"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := valid()
			tt.mutate(&r)
			r.Normalize()
			err := r.Validate()
			require.ErrorIs(t, err, ErrInvalidInput)
			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestPendingVerification_IsExpired(t *testing.T) {
	now := time.Now()
	p := PendingVerification{ExpiresAt: now.Add(time.Minute)}
	assert.False(t, p.IsExpired(now))
	assert.True(t, p.IsExpired(now.Add(time.Minute)))
	assert.False(t, (&PendingVerification{}).IsExpired(now))
}

func TestDuplicateBookingError_Unwraps(t *testing.T) {
	err := error(&DuplicateBookingError{Date: "2025-06-10", Time: "14:00"})
	assert.ErrorIs(t, err, ErrDuplicateActiveBooking)
	assert.Contains(t, err.Error(), "2025-06-10")
}

func TestValidationError_MessageIsFrench(t *testing.T) {
	tests := []struct {
		err  *ValidationError
		want string
	}{
		{&ValidationError{Field: "email", Reason: ReasonMalformed}, "L'adresse e-mail est invalide"},
		{&ValidationError{Field: "phone", Reason: ReasonRequired}, "Le numéro de téléphone est obligatoire"},
		{&ValidationError{Field: "date", Reason: ReasonDateLayout}, "La date doit être au format AAAA-MM-JJ"},
		{&ValidationError{Field: "time", Reason: ReasonInThePast}, "Ce créneau est déjà passé"},
		{&ValidationError{Field: "unknown", Reason: ReasonRequired}, "Données manquantes ou invalides"},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Message())
		})
	}
}
