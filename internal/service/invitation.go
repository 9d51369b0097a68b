package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/geocoder89/rollcall/internal/domain/event"
	"github.com/geocoder89/rollcall/internal/domain/registration"
	"github.com/geocoder89/rollcall/internal/observability"
)

// errUnchanged aborts an Update whose mutate found nothing to write.
var errUnchanged = errors.New("unchanged")

type AcceptResult struct {
	EventTitle      string                    `json:"eventTitle"`
	TeamName        string                    `json:"teamName,omitempty"`
	Registration    registration.Registration `json:"-"`
	AlreadyAccepted bool                      `json:"alreadyAccepted"`
}

// InvitationWorkflow turns an invitation token into an accepted membership
// and promotes the registration once the whole team has accepted.
type InvitationWorkflow struct {
	store  RegistrationStore
	events EventCatalog
	log    *slog.Logger
	prom   *observability.Prom
}

func NewInvitationWorkflow(store RegistrationStore, events EventCatalog, opts Options) *InvitationWorkflow {
	opts = opts.withDefaults()
	return &InvitationWorkflow{store: store, events: events, log: opts.Log, prom: opts.Prom}
}

// AcceptInvite is idempotent: a second call with the same token returns the
// current state without writing.
func (w *InvitationWorkflow) AcceptInvite(ctx context.Context, token string) (AcceptResult, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return AcceptResult{}, &registration.ValidationError{Field: "token", Message: "is required"}
	}

	found, err := w.store.FindByInvitationToken(ctx, token)
	if err != nil {
		if errors.Is(err, registration.ErrNotFound) {
			return AcceptResult{}, registration.ErrInvalidToken
		}
		return AcceptResult{}, err
	}

	var (
		already  bool
		promoted bool
		current  registration.Registration
	)

	reg, err := w.store.Update(ctx, found.ID, func(r *registration.Registration) error {
		i, ok := r.MemberByToken(token)
		if !ok {
			return registration.ErrInvalidToken
		}

		if r.TeamMembers[i].InvitationStatus == registration.InvitationAccepted {
			already = true
			current = r.Clone()
			return errUnchanged
		}

		r.TeamMembers[i].InvitationStatus = registration.InvitationAccepted

		if r.AllMembersAccepted() && r.Status == registration.StatusAwaitingMembers {
			promoted = true
			return r.Promote()
		}
		return nil
	})

	switch {
	case errors.Is(err, errUnchanged):
		reg = current
	case errors.Is(err, registration.ErrNotFound):
		// deleted between lookup and update
		return AcceptResult{}, registration.ErrInvalidToken
	case err != nil:
		return AcceptResult{}, err
	}

	title, err := w.eventTitle(ctx, reg.EventID)
	if err != nil {
		return AcceptResult{}, err
	}

	outcome := "accepted"
	if already {
		outcome = "already_accepted"
	}
	if w.prom != nil {
		w.prom.InvitationsTotal.WithLabelValues(outcome).Inc()
	}

	w.log.InfoContext(ctx, "invitation."+outcome,
		"registration_id", reg.ID,
		"event_id", reg.EventID,
		"promoted", promoted,
	)

	return AcceptResult{
		EventTitle:      title,
		TeamName:        reg.TeamName,
		Registration:    reg,
		AlreadyAccepted: already,
	}, nil
}

// eventTitle tolerates an event that has since left the catalog.
func (w *InvitationWorkflow) eventTitle(ctx context.Context, eventID string) (string, error) {
	ev, err := w.events.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, event.ErrNotFound) {
			return "", nil
		}
		return "", err
	}
	return ev.Title, nil
}
