package event

import (
	"errors"
	"time"
)

// Event is the read-only view of a catalog entry that registration and
// check-in need. Registration window bounds are optional.
type Event struct {
	ID                    string     `json:"id"`
	Title                 string     `json:"title"`
	RegistrationStartDate *time.Time `json:"registrationStartDate,omitempty"`
	RegistrationEndDate   *time.Time `json:"registrationEndDate,omitempty"`
	StartDate             time.Time  `json:"startDate"`
	EndDate               time.Time  `json:"endDate"`
	CreatedAt             time.Time  `json:"createdAt"`
	UpdatedAt             time.Time  `json:"updatedAt"`
}

var ErrNotFound = errors.New("event not found")
