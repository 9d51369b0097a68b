// Package service holds the registration and check-in core: creating team
// registrations, accepting member invitations and recording attendance.
package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/geocoder89/rollcall/internal/domain/event"
	"github.com/geocoder89/rollcall/internal/domain/registration"
	"github.com/geocoder89/rollcall/internal/observability"
	"github.com/geocoder89/rollcall/internal/utils"
)

// RegistrationStore is the durable home of registrations. Create must
// reject any (event, email) pair already taken in one atomic step, and
// Update must run mutate as a single read-modify-write on one record.
type RegistrationStore interface {
	Ping(ctx context.Context) error
	Create(ctx context.Context, reg registration.Registration) error
	GetByID(ctx context.Context, id string) (registration.Registration, error)
	FindByQRCode(ctx context.Context, code string) (registration.Registration, error)
	FindByInvitationToken(ctx context.Context, token string) (registration.Registration, error)
	FindByParticipantEmail(ctx context.Context, eventID, email string) (registration.Registration, error)
	ListByEvent(ctx context.Context, eventID string, limit int, after *utils.Cursor) ([]registration.Registration, *string, bool, error)
	Update(ctx context.Context, id string, mutate func(*registration.Registration) error) (registration.Registration, error)
	Delete(ctx context.Context, id string) error
}

type EventCatalog interface {
	GetByID(ctx context.Context, id string) (event.Event, error)
}

// Options carries the collaborators every component shares.
type Options struct {
	Now      func() time.Time
	Location *time.Location
	Log      *slog.Logger
	Prom     *observability.Prom
}

func (o Options) withDefaults() Options {
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.Location == nil {
		o.Location = time.UTC
	}
	if o.Log == nil {
		o.Log = slog.Default()
	}
	return o
}
