package queue

import (
	"context"

	"github.com/geocoder89/rollcall/internal/jobs"
	"github.com/geocoder89/rollcall/internal/notifications"
)

type Enqueuer interface {
	Enqueue(ctx context.Context, j jobs.Job) error
}

// Notifier hands messages to the worker through the queue instead of
// calling a provider inline.
type Notifier struct {
	q Enqueuer
}

func NewNotifier(q Enqueuer) *Notifier {
	return &Notifier{q: q}
}

func (n *Notifier) SendInvitation(ctx context.Context, in notifications.Invitation) error {
	j, err := jobs.Build(jobs.JobSendTeamInvitation, in)
	if err != nil {
		return err
	}
	return n.q.Enqueue(ctx, j)
}

func (n *Notifier) SendRegistrationConfirmation(ctx context.Context, in notifications.RegistrationConfirmation) error {
	j, err := jobs.Build(jobs.JobSendRegistrationConfirmation, in)
	if err != nil {
		return err
	}
	return n.q.Enqueue(ctx, j)
}
