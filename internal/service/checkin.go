package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/geocoder89/rollcall/internal/domain/registration"
	"github.com/geocoder89/rollcall/internal/observability"
)

// Scan is a resolved ticket: the registration and which participant holds
// the code.
type Scan struct {
	Registration  registration.Registration `json:"registration"`
	IsLeader      bool                      `json:"isLeader"`
	ScannedMember *registration.TeamMember  `json:"scannedMember,omitempty"`
}

// participant picks one attendee out of a registration. Exactly one of
// leader, qrCode or email is meaningful.
type participant struct {
	leader bool
	qrCode string
	email  string
}

func (p participant) locate(r *registration.Registration) (isLeader bool, idx int, err error) {
	switch {
	case p.leader:
		return true, -1, nil
	case p.qrCode != "":
		if r.QRCode == p.qrCode {
			return true, -1, nil
		}
		if i, ok := r.MemberByQRCode(p.qrCode); ok {
			return false, i, nil
		}
		return false, -1, registration.ErrTicketNotFound
	default:
		if i, ok := r.MemberByEmail(p.email); ok {
			return false, i, nil
		}
		return false, -1, &registration.ValidationError{
			Field:   "teamMemberAttendance.memberEmail",
			Message: "no team member with this email",
		}
	}
}

// CheckInEngine resolves tickets and records attendance. Marking present is
// gated by the event's scan window; unmarking is not.
type CheckInEngine struct {
	store  RegistrationStore
	events EventCatalog
	now    func() time.Time
	loc    *time.Location
	log    *slog.Logger
	prom   *observability.Prom
}

func NewCheckInEngine(store RegistrationStore, events EventCatalog, opts Options) *CheckInEngine {
	opts = opts.withDefaults()
	return &CheckInEngine{
		store:  store,
		events: events,
		now:    opts.Now,
		loc:    opts.Location,
		log:    opts.Log,
		prom:   opts.Prom,
	}
}

// Resolve finds the holder of code and checks the event's scan window.
func (e *CheckInEngine) Resolve(ctx context.Context, code string) (Scan, error) {
	reg, p, err := e.lookup(ctx, code)
	if err != nil {
		return Scan{}, err
	}
	if err := e.checkWindow(ctx, reg.EventID); err != nil {
		return Scan{}, err
	}
	return scanOf(reg, p)
}

// CheckIn marks the ticket holder present. Checking in the leader marks the
// whole team present.
func (e *CheckInEngine) CheckIn(ctx context.Context, code string) (Scan, error) {
	scan, err := e.Resolve(ctx, code)
	if err != nil {
		return Scan{}, err
	}
	return e.apply(ctx, scan.Registration.ID, participant{qrCode: scan.qrCode()}, true)
}

// Uncheck clears attendance for the ticket holder, cascading from the
// leader to every member. It is held to the same scan window as CheckIn.
// Clearing an absent participant succeeds.
func (e *CheckInEngine) Uncheck(ctx context.Context, code string) (Scan, error) {
	scan, err := e.Resolve(ctx, code)
	if err != nil {
		return Scan{}, err
	}
	return e.apply(ctx, scan.Registration.ID, participant{qrCode: scan.qrCode()}, false)
}

// SetLeaderAttendance is the organizer toggle on the leader.
func (e *CheckInEngine) SetLeaderAttendance(ctx context.Context, regID string, attended bool) (Scan, error) {
	return e.set(ctx, regID, participant{leader: true}, attended)
}

// SetMemberAttendance is the organizer toggle on one member by email.
func (e *CheckInEngine) SetMemberAttendance(ctx context.Context, regID, email string, attended bool) (Scan, error) {
	email = registration.NormalizeEmail(email)
	if email == "" {
		return Scan{}, &registration.ValidationError{Field: "teamMemberAttendance.memberEmail", Message: "is required"}
	}
	return e.set(ctx, regID, participant{email: email}, attended)
}

func (e *CheckInEngine) set(ctx context.Context, regID string, p participant, attended bool) (Scan, error) {
	reg, err := e.store.GetByID(ctx, regID)
	if err != nil {
		return Scan{}, err
	}
	if err := e.checkWindow(ctx, reg.EventID); err != nil {
		return Scan{}, err
	}
	return e.apply(ctx, regID, p, attended)
}

func (e *CheckInEngine) lookup(ctx context.Context, code string) (registration.Registration, participant, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return registration.Registration{}, participant{}, &registration.ValidationError{Field: "code", Message: "is required"}
	}

	reg, err := e.store.FindByQRCode(ctx, code)
	if err != nil {
		if errors.Is(err, registration.ErrNotFound) {
			return registration.Registration{}, participant{}, registration.ErrTicketNotFound
		}
		return registration.Registration{}, participant{}, err
	}
	return reg, participant{qrCode: code}, nil
}

func (e *CheckInEngine) checkWindow(ctx context.Context, eventID string) error {
	ev, err := e.events.GetByID(ctx, eventID)
	if err != nil {
		return err
	}
	return ev.CheckScanWindow(e.now(), e.loc)
}

// apply performs the attendance change as one compare-and-set inside the
// store's update.
func (e *CheckInEngine) apply(ctx context.Context, regID string, p participant, attended bool) (Scan, error) {
	var isLeader bool

	reg, err := e.store.Update(ctx, regID, func(r *registration.Registration) error {
		leader, idx, err := p.locate(r)
		if err != nil {
			return err
		}
		isLeader = leader

		if leader {
			if attended && r.CheckedIn {
				return &registration.AlreadyCheckedInError{Name: r.Leader.Name, IsLeader: true}
			}
			r.CheckedIn = attended
			for i := range r.TeamMembers {
				r.TeamMembers[i].Attended = attended
			}
			return nil
		}

		m := &r.TeamMembers[idx]
		if attended && m.Attended {
			return &registration.AlreadyCheckedInError{Name: m.Name}
		}
		m.Attended = attended
		return nil
	})
	if err != nil {
		return Scan{}, err
	}

	role, action := "member", "unmark"
	if isLeader {
		role = "leader"
	}
	if attended {
		action = "mark"
	}
	if e.prom != nil {
		e.prom.CheckInsTotal.WithLabelValues(role, action).Inc()
	}
	e.log.InfoContext(ctx, "checkin."+action,
		"registration_id", reg.ID,
		"event_id", reg.EventID,
		"role", role,
	)

	return scanOf(reg, p)
}

func scanOf(reg registration.Registration, p participant) (Scan, error) {
	isLeader, idx, err := p.locate(&reg)
	if err != nil {
		return Scan{}, err
	}
	scan := Scan{Registration: reg, IsLeader: isLeader}
	if !isLeader {
		m := reg.TeamMembers[idx]
		scan.ScannedMember = &m
	}
	return scan, nil
}

func (s Scan) qrCode() string {
	if s.IsLeader {
		return s.Registration.QRCode
	}
	return s.ScannedMember.QRCode
}
