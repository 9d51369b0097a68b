package registration

import "errors"

var (
	ErrNotFound              = errors.New("registration not found")
	ErrDuplicateRegistration = errors.New("email already registered for this event")
	ErrInvalidToken          = errors.New("invalid invitation token")
	ErrTicketNotFound        = errors.New("ticket not found")
	ErrAlreadyCheckedIn      = errors.New("already checked in")
	ErrInvalidTransition     = errors.New("status transition not allowed")
	ErrValidation            = errors.New("validation failed")
)

// DuplicateEmailError names the email that collided with an existing
// registration for the same event.
type DuplicateEmailError struct {
	Email string
}

func (e *DuplicateEmailError) Error() string {
	return e.Email + " is already registered for this event"
}

func (e *DuplicateEmailError) Is(target error) bool {
	return target == ErrDuplicateRegistration
}

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// AlreadyCheckedInError names the participant whose ticket was scanned twice.
type AlreadyCheckedInError struct {
	Name     string
	IsLeader bool
}

func (e *AlreadyCheckedInError) Error() string {
	if e.Name == "" {
		return ErrAlreadyCheckedIn.Error()
	}
	return e.Name + " is already checked in"
}

func (e *AlreadyCheckedInError) Is(target error) bool {
	return target == ErrAlreadyCheckedIn
}
