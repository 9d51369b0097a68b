package notifications

import "context"

// Invitation asks a team member to confirm membership through AcceptURL.
type Invitation struct {
	RegistrationID string `json:"registrationId" validate:"required"`
	EventID        string `json:"eventId"`
	EventTitle     string `json:"eventTitle"`
	TeamName       string `json:"teamName,omitempty"`
	LeaderName     string `json:"leaderName"`
	MemberName     string `json:"memberName"`
	Email          string `json:"email" validate:"required,email"`
	AcceptURL      string `json:"acceptUrl" validate:"required"`
}

// RegistrationConfirmation tells the leader their registration exists and
// carries their ticket code.
type RegistrationConfirmation struct {
	RegistrationID string `json:"registrationId" validate:"required"`
	EventID        string `json:"eventId"`
	EventTitle     string `json:"eventTitle"`
	Name           string `json:"name"`
	Email          string `json:"email" validate:"required,email"`
	QRCode         string `json:"qrCode"`
	Status         string `json:"status"`
}

// Notifier delivers messages out of band. Callers treat it as best effort.
type Notifier interface {
	SendInvitation(ctx context.Context, in Invitation) error
	SendRegistrationConfirmation(ctx context.Context, in RegistrationConfirmation) error
}

// Nop discards everything.
type Nop struct{}

func (Nop) SendInvitation(context.Context, Invitation) error { return nil }

func (Nop) SendRegistrationConfirmation(context.Context, RegistrationConfirmation) error {
	return nil
}
