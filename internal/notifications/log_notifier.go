package notifications

import (
	"context"
	"log/slog"
)

// LogNotifier writes messages to the log instead of sending them. Used in
// dev and whenever no provider is configured.
type LogNotifier struct {
	log *slog.Logger
}

func NewLogNotifier(log *slog.Logger) *LogNotifier {
	if log == nil {
		log = slog.Default()
	}
	return &LogNotifier{log: log}
}

func (n *LogNotifier) SendInvitation(ctx context.Context, in Invitation) error {
	n.log.InfoContext(ctx, "notification.team_invitation",
		"email", in.Email,
		"member", in.MemberName,
		"event_id", in.EventID,
		"registration_id", in.RegistrationID,
		"accept_url", in.AcceptURL,
	)
	return nil
}

func (n *LogNotifier) SendRegistrationConfirmation(ctx context.Context, in RegistrationConfirmation) error {
	n.log.InfoContext(ctx, "notification.registration_confirmation",
		"email", in.Email,
		"name", in.Name,
		"event_id", in.EventID,
		"registration_id", in.RegistrationID,
		"status", in.Status,
	)
	return nil
}
