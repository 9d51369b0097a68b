package registration

import "fmt"

type Status string

const (
	StatusPending         Status = "Pending"
	StatusAwaitingMembers Status = "AwaitingMembers"
	StatusAccepted        Status = "Accepted"
	StatusRejected        Status = "Rejected"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusAwaitingMembers, StatusAccepted, StatusRejected:
		return true
	default:
		return false
	}
}

// transitions lists the organizer decisions. AwaitingMembers has no entry:
// it only leaves through Promote.
var transitions = map[Status][]Status{
	StatusPending:  {StatusAccepted, StatusRejected},
	StatusAccepted: {StatusPending, StatusRejected},
	StatusRejected: {StatusPending, StatusAccepted},
}

func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// TransitionTo applies a status change. Moving to the current status is a
// no-op.
func (r *Registration) TransitionTo(to Status) error {
	if !to.IsValid() {
		return &ValidationError{Field: "status", Message: fmt.Sprintf("unknown status %q", to)}
	}
	if r.Status == to {
		return nil
	}
	if !CanTransition(r.Status, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, r.Status, to)
	}
	r.Status = to
	return nil
}

// Promote moves a team out of AwaitingMembers once every member has
// accepted their invitation.
func (r *Registration) Promote() error {
	if r.Status != StatusAwaitingMembers {
		return fmt.Errorf("%w: %s is not awaiting members", ErrInvalidTransition, r.Status)
	}
	if !r.AllMembersAccepted() {
		return fmt.Errorf("%w: invitations still outstanding", ErrInvalidTransition)
	}
	r.Status = StatusPending
	return nil
}

type InvitationStatus string

const (
	InvitationPending  InvitationStatus = "Pending"
	InvitationAccepted InvitationStatus = "Accepted"
	InvitationRejected InvitationStatus = "Rejected"
)

func (s InvitationStatus) IsValid() bool {
	switch s {
	case InvitationPending, InvitationAccepted, InvitationRejected:
		return true
	default:
		return false
	}
}
