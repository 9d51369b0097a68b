package jobs

import "github.com/geocoder89/rollcall/internal/notifications"

// Payloads carry everything the worker needs to render and send; the worker
// does not read the registration store.
type TeamInvitationPayload = notifications.Invitation

type RegistrationConfirmationPayload = notifications.RegistrationConfirmation
