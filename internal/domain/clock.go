package domain

import (
	"fmt"
	"time"
	_ "time/tzdata"
)

// SalonClock answers every "what day is it" question in the salon's zone,
// whatever zone the host runs in.
type SalonClock struct {
	loc *time.Location
	now func() time.Time
}

func NewSalonClock(loc *time.Location, now func() time.Time) *SalonClock {
	if now == nil {
		now = time.Now
	}
	return &SalonClock{loc: loc, now: now}
}

func LoadSalonClock(zone string) (*SalonClock, error) {
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return nil, fmt.Errorf("load salon time zone %q: %w", zone, err)
	}
	return NewSalonClock(loc, nil), nil
}

func (c *SalonClock) Location() *time.Location { return c.loc }

func (c *SalonClock) Now() time.Time { return c.now().In(c.loc) }

// Today is the salon-local calendar date as YYYY-MM-DD.
func (c *SalonClock) Today() string { return c.Now().Format(DateLayout) }

// DaysFromToday shifts the salon-local date by n calendar days. AddDate is
// applied to the date, not to a 24h duration, so DST changes do not skew it.
func (c *SalonClock) DaysFromToday(n int) string {
	now := c.Now()
	day := time.Date(now.Year(), now.Month(), now.Day(), 12, 0, 0, 0, c.loc)
	return day.AddDate(0, 0, n).Format(DateLayout)
}

// SlotStart builds the absolute instant of a salon-local date and time.
func (c *SalonClock) SlotStart(date, hhmm string) (time.Time, error) {
	d, err := time.Parse(DateLayout, date)
	if err != nil {
		return time.Time{}, &ValidationError{Field: "date", Reason: ReasonDateLayout}
	}
	t, err := time.Parse(TimeLayout, hhmm)
	if err != nil {
		return time.Time{}, &ValidationError{Field: "time", Reason: ReasonTimeLayout}
	}
	return time.Date(d.Year(), d.Month(), d.Day(), t.Hour(), t.Minute(), 0, 0, c.loc), nil
}
