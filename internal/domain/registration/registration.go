package registration

import (
	"strconv"
	"strings"
	"time"
)

type Leader struct {
	UserID string `json:"userId"`
	Name   string `json:"name"`
	Email  string `json:"email"`
}

type TeamMember struct {
	ID               string           `json:"id"`
	Name             string           `json:"name"`
	Email            string           `json:"email"`
	Phone            string           `json:"phone,omitempty"`
	QRCode           string           `json:"qrCode"`
	Attended         bool             `json:"attended"`
	InvitationStatus InvitationStatus `json:"invitationStatus"`
	InvitationToken  string           `json:"invitationToken"`
}

// Registration is the aggregate root for one leader and their team for a
// single event. CheckedIn reflects the leader's attendance only.
type Registration struct {
	ID          string       `json:"id"`
	EventID     string       `json:"eventId"`
	TeamName    string       `json:"teamName,omitempty"`
	Leader      Leader       `json:"leader"`
	TeamMembers []TeamMember `json:"teamMembers"`
	Status      Status       `json:"status"`
	CheckedIn   bool         `json:"checkedIn"`
	QRCode      string       `json:"qrCode"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

type LeaderInput struct {
	UserID string `json:"userId" binding:"required"`
	Name   string `json:"name" binding:"required,max=120"`
	Email  string `json:"email" binding:"required,email"`
}

type TeamMemberInput struct {
	Name  string `json:"name" binding:"required,max=120"`
	Email string `json:"email" binding:"required,email"`
	Phone string `json:"phone" binding:"omitempty,max=32"`
}

type CreateRegistrationRequest struct {
	EventID     string            `json:"eventId" binding:"required"`
	Leader      LeaderInput       `json:"leader" binding:"required"`
	TeamName    string            `json:"teamName" binding:"omitempty,max=120"`
	TeamMembers []TeamMemberInput `json:"teamMembers" binding:"omitempty,max=50,dive"`
}

type MemberAttendanceInput struct {
	MemberEmail string `json:"memberEmail" binding:"required,email"`
	Attended    *bool  `json:"attended" binding:"required"`
}

// UpdateRegistrationRequest carries exactly one of its fields.
type UpdateRegistrationRequest struct {
	Status               *Status                `json:"status"`
	CheckedIn            *bool                  `json:"checkedIn"`
	TeamMemberAttendance *MemberAttendanceInput `json:"teamMemberAttendance"`
}

func (r UpdateRegistrationRequest) fieldsSet() int {
	n := 0
	if r.Status != nil {
		n++
	}
	if r.CheckedIn != nil {
		n++
	}
	if r.TeamMemberAttendance != nil {
		n++
	}
	return n
}

// Validate rejects bodies that match none or several of the allowed shapes.
func (r UpdateRegistrationRequest) Validate() error {
	if r.fieldsSet() != 1 {
		return &ValidationError{Message: "body must contain exactly one of status, checkedIn, teamMemberAttendance"}
	}
	if r.Status != nil && *r.Status != StatusAccepted && *r.Status != StatusRejected && *r.Status != StatusPending {
		return &ValidationError{Field: "status", Message: "must be one of Pending, Accepted, Rejected"}
	}
	return nil
}

// Version changes whenever the stored record does; it backs HTTP ETags.
func (r Registration) Version() string {
	return r.ID + "-" + strconv.FormatInt(r.UpdatedAt.UnixNano(), 36)
}

// NormalizeEmail is the canonical form used for uniqueness and lookups.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Emails returns the leader's email followed by every member's, in order.
func (r Registration) Emails() []string {
	out := make([]string, 0, len(r.TeamMembers)+1)
	out = append(out, r.Leader.Email)
	for _, m := range r.TeamMembers {
		out = append(out, m.Email)
	}
	return out
}

func (r *Registration) MemberByToken(token string) (int, bool) {
	for i := range r.TeamMembers {
		if r.TeamMembers[i].InvitationToken == token {
			return i, true
		}
	}
	return -1, false
}

func (r *Registration) MemberByQRCode(code string) (int, bool) {
	for i := range r.TeamMembers {
		if r.TeamMembers[i].QRCode == code {
			return i, true
		}
	}
	return -1, false
}

func (r *Registration) MemberByEmail(email string) (int, bool) {
	email = NormalizeEmail(email)
	for i := range r.TeamMembers {
		if r.TeamMembers[i].Email == email {
			return i, true
		}
	}
	return -1, false
}

// AllMembersAccepted is false for a registration without members.
func (r Registration) AllMembersAccepted() bool {
	if len(r.TeamMembers) == 0 {
		return false
	}
	for _, m := range r.TeamMembers {
		if m.InvitationStatus != InvitationAccepted {
			return false
		}
	}
	return true
}

// Clone returns a deep copy so stores never hand out shared member slices.
func (r Registration) Clone() Registration {
	out := r
	if r.TeamMembers != nil {
		out.TeamMembers = make([]TeamMember, len(r.TeamMembers))
		copy(out.TeamMembers, r.TeamMembers)
	}
	return out
}
