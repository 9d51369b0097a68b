package event

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrRegistrationWindowClosed = errors.New("registration window closed")
	ErrScanNotYetOpen           = errors.New("ticket scanning not yet open")
	ErrScanWindowClosed         = errors.New("ticket scanning closed")
)

const dateLayout = "2006-01-02"

// WindowError carries the boundary date that was violated so callers can
// surface it verbatim.
type WindowError struct {
	Err      error
	Boundary time.Time
	Opens    bool
}

func (e *WindowError) Error() string {
	day := e.Boundary.Format(dateLayout)

	switch {
	case errors.Is(e.Err, ErrRegistrationWindowClosed) && e.Opens:
		return "registration opens on " + day
	case errors.Is(e.Err, ErrRegistrationWindowClosed):
		return "registration closed on " + day
	case errors.Is(e.Err, ErrScanNotYetOpen):
		return "check-in opens on " + day
	case errors.Is(e.Err, ErrScanWindowClosed):
		return "check-in closed on " + day
	default:
		return fmt.Sprintf("%v (%s)", e.Err, day)
	}
}

func (e *WindowError) Unwrap() error { return e.Err }

// StartOfDay truncates t to midnight in loc.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// afterEndOfDay reports whether now falls on a calendar day after t.
func afterEndOfDay(now, t time.Time, loc *time.Location) bool {
	next := StartOfDay(t, loc).AddDate(0, 0, 1)
	return !now.Before(next)
}

// CheckRegistrationWindow compares dates only: the opening day starts at
// midnight and the closing day is inclusive.
func (e Event) CheckRegistrationWindow(now time.Time, loc *time.Location) error {
	if e.RegistrationStartDate != nil {
		start := StartOfDay(*e.RegistrationStartDate, loc)
		if now.Before(start) {
			return &WindowError{Err: ErrRegistrationWindowClosed, Boundary: start, Opens: true}
		}
	}

	if e.RegistrationEndDate != nil && afterEndOfDay(now, *e.RegistrationEndDate, loc) {
		return &WindowError{Err: ErrRegistrationWindowClosed, Boundary: StartOfDay(*e.RegistrationEndDate, loc)}
	}

	return nil
}

// CheckScanWindow gates ticket resolution to [startDate, endDate] by
// calendar day, both ends inclusive.
func (e Event) CheckScanWindow(now time.Time, loc *time.Location) error {
	start := StartOfDay(e.StartDate, loc)
	if now.Before(start) {
		return &WindowError{Err: ErrScanNotYetOpen, Boundary: start, Opens: true}
	}

	if afterEndOfDay(now, e.EndDate, loc) {
		return &WindowError{Err: ErrScanWindowClosed, Boundary: StartOfDay(e.EndDate, loc)}
	}

	return nil
}
