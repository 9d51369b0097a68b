package service

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/geocoder89/rollcall/internal/domain/event"
	"github.com/geocoder89/rollcall/internal/domain/registration"
	"github.com/geocoder89/rollcall/internal/notifications"
	"github.com/geocoder89/rollcall/internal/observability"
	"github.com/geocoder89/rollcall/internal/tickets"
	"github.com/geocoder89/rollcall/internal/utils"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100

	notifyTimeout = 10 * time.Second
)

// RegistrationService creates and administers registrations.
type RegistrationService struct {
	store    RegistrationStore
	events   EventCatalog
	notifier notifications.Notifier
	tickets  *tickets.Generator
	validate *validator.Validate
	baseURL  string

	now  func() time.Time
	loc  *time.Location
	log  *slog.Logger
	prom *observability.Prom

	// detached notification sends
	wg sync.WaitGroup
}

func NewRegistrationService(
	store RegistrationStore,
	events EventCatalog,
	notifier notifications.Notifier,
	gen *tickets.Generator,
	baseURL string,
	opts Options,
) *RegistrationService {
	opts = opts.withDefaults()
	if notifier == nil {
		notifier = notifications.Nop{}
	}
	if gen == nil {
		gen = tickets.NewGenerator()
	}

	return &RegistrationService{
		store:    store,
		events:   events,
		notifier: notifier,
		tickets:  gen,
		validate: newValidator(),
		baseURL:  strings.TrimRight(baseURL, "/"),
		now:      opts.Now,
		loc:      opts.Location,
		log:      opts.Log,
		prom:     opts.Prom,
	}
}

// Create validates the request, checks the event's registration window and
// persists a new registration with freshly issued tickets. Invitations and
// the leader's confirmation are sent in the background.
func (s *RegistrationService) Create(ctx context.Context, req registration.CreateRegistrationRequest) (registration.Registration, error) {
	req = normalizeRequest(req)

	if err := s.validate.Struct(req); err != nil {
		return registration.Registration{}, validationError(err)
	}
	if err := checkDistinctEmails(req); err != nil {
		return registration.Registration{}, err
	}

	ev, err := s.events.GetByID(ctx, req.EventID)
	if err != nil {
		return registration.Registration{}, err
	}

	now := s.now()
	if err := ev.CheckRegistrationWindow(now, s.loc); err != nil {
		return registration.Registration{}, err
	}

	reg, err := s.build(req, now.UTC())
	if err != nil {
		return registration.Registration{}, err
	}

	if err := s.store.Create(ctx, reg); err != nil {
		return registration.Registration{}, err
	}

	s.log.InfoContext(ctx, "registration.created",
		"registration_id", reg.ID,
		"event_id", reg.EventID,
		"status", reg.Status,
		"members", len(reg.TeamMembers),
	)

	s.notify(ctx, ev, reg)

	return reg, nil
}

func normalizeRequest(req registration.CreateRegistrationRequest) registration.CreateRegistrationRequest {
	req.EventID = strings.TrimSpace(req.EventID)
	req.TeamName = strings.TrimSpace(req.TeamName)
	req.Leader.UserID = strings.TrimSpace(req.Leader.UserID)
	req.Leader.Name = strings.TrimSpace(req.Leader.Name)
	req.Leader.Email = registration.NormalizeEmail(req.Leader.Email)

	members := make([]registration.TeamMemberInput, len(req.TeamMembers))
	for i, m := range req.TeamMembers {
		members[i] = registration.TeamMemberInput{
			Name:  strings.TrimSpace(m.Name),
			Email: registration.NormalizeEmail(m.Email),
			Phone: strings.TrimSpace(m.Phone),
		}
	}
	req.TeamMembers = members

	// a team name only means something for a team
	if len(req.TeamMembers) == 0 {
		req.TeamName = ""
	}
	return req
}

func checkDistinctEmails(req registration.CreateRegistrationRequest) error {
	seen := map[string]struct{}{req.Leader.Email: {}}
	for i, m := range req.TeamMembers {
		if _, dup := seen[m.Email]; dup {
			return &registration.ValidationError{
				Field:   fmt.Sprintf("teamMembers[%d].email", i),
				Message: m.Email + " appears more than once in this registration",
			}
		}
		seen[m.Email] = struct{}{}
	}
	return nil
}

func (s *RegistrationService) build(req registration.CreateRegistrationRequest, now time.Time) (registration.Registration, error) {
	reg := registration.Registration{
		ID:       uuid.NewString(),
		EventID:  req.EventID,
		TeamName: req.TeamName,
		Leader: registration.Leader{
			UserID: req.Leader.UserID,
			Name:   req.Leader.Name,
			Email:  req.Leader.Email,
		},
		TeamMembers: make([]registration.TeamMember, 0, len(req.TeamMembers)),
		Status:      registration.StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if len(req.TeamMembers) > 0 {
		reg.Status = registration.StatusAwaitingMembers
	}

	code, err := s.tickets.QRCode(reg.EventID, reg.Leader.UserID, tickets.RoleLeader)
	if err != nil {
		return registration.Registration{}, err
	}
	reg.QRCode = code

	for _, in := range req.TeamMembers {
		m := registration.TeamMember{
			ID:               uuid.NewString(),
			Name:             in.Name,
			Email:            in.Email,
			Phone:            in.Phone,
			InvitationStatus: registration.InvitationPending,
		}
		if m.QRCode, err = s.tickets.QRCode(reg.EventID, m.ID, tickets.RoleMember); err != nil {
			return registration.Registration{}, err
		}
		if m.InvitationToken, err = s.tickets.InvitationToken(); err != nil {
			return registration.Registration{}, err
		}
		reg.TeamMembers = append(reg.TeamMembers, m)
	}

	return reg, nil
}

// AcceptURL is the link a member follows to accept an invitation.
func (s *RegistrationService) AcceptURL(token string) string {
	return s.baseURL + "/accept-invite?token=" + url.QueryEscape(token)
}

func (s *RegistrationService) notify(ctx context.Context, ev event.Event, reg registration.Registration) {
	for _, m := range reg.TeamMembers {
		in := notifications.Invitation{
			RegistrationID: reg.ID,
			EventID:        reg.EventID,
			EventTitle:     ev.Title,
			TeamName:       reg.TeamName,
			LeaderName:     reg.Leader.Name,
			MemberName:     m.Name,
			Email:          m.Email,
			AcceptURL:      s.AcceptURL(m.InvitationToken),
		}
		s.dispatch(ctx, "team_invitation", reg.ID, m.Email, func(sendCtx context.Context) error {
			return s.notifier.SendInvitation(sendCtx, in)
		})
	}

	confirm := notifications.RegistrationConfirmation{
		RegistrationID: reg.ID,
		EventID:        reg.EventID,
		EventTitle:     ev.Title,
		Name:           reg.Leader.Name,
		Email:          reg.Leader.Email,
		QRCode:         reg.QRCode,
		Status:         string(reg.Status),
	}
	s.dispatch(ctx, "registration_confirmation", reg.ID, reg.Leader.Email, func(sendCtx context.Context) error {
		return s.notifier.SendRegistrationConfirmation(sendCtx, confirm)
	})
}

// dispatch sends on its own goroutine with a context that outlives the
// request. Failures are only logged.
func (s *RegistrationService) dispatch(ctx context.Context, kind, regID, email string, send func(context.Context) error) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
		defer cancel()

		err := send(sendCtx)
		if kind == "team_invitation" && s.prom != nil {
			outcome := "dispatched"
			if err != nil {
				outcome = "dispatch_failed"
			}
			s.prom.InvitationsTotal.WithLabelValues(outcome).Inc()
		}
		if err != nil {
			s.log.WarnContext(sendCtx, "notification.dispatch_failed",
				"kind", kind,
				"registration_id", regID,
				"email", email,
				"err", err,
			)
		}
	}()
}

// Wait blocks until every background notification has finished.
func (s *RegistrationService) Wait() {
	s.wg.Wait()
}

func (s *RegistrationService) Get(ctx context.Context, id string) (registration.Registration, error) {
	return s.store.GetByID(ctx, id)
}

// FindByParticipant returns the registration in which email appears as
// leader or member for the event.
func (s *RegistrationService) FindByParticipant(ctx context.Context, eventID, email string) (registration.Registration, error) {
	email = registration.NormalizeEmail(email)
	if email == "" {
		return registration.Registration{}, &registration.ValidationError{Field: "email", Message: "is required"}
	}
	return s.store.FindByParticipantEmail(ctx, eventID, email)
}

type Page struct {
	Items      []registration.Registration `json:"items"`
	NextCursor *string                     `json:"nextCursor,omitempty"`
	HasMore    bool                        `json:"hasMore"`
}

// ListByEvent pages through an event's registrations oldest first.
func (s *RegistrationService) ListByEvent(ctx context.Context, eventID string, limit int, cursor string) (Page, error) {
	if _, err := s.events.GetByID(ctx, eventID); err != nil {
		return Page{}, err
	}

	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}

	var after *utils.Cursor
	if cursor != "" {
		c, err := utils.DecodeCursor(eventID, cursor)
		if err != nil {
			return Page{}, &registration.ValidationError{Field: "cursor", Message: "is invalid"}
		}
		after = &c
	}

	items, next, more, err := s.store.ListByEvent(ctx, eventID, limit, after)
	if err != nil {
		return Page{}, err
	}
	return Page{Items: items, NextCursor: next, HasMore: more}, nil
}

// Decide applies an organizer status decision through the transition table.
func (s *RegistrationService) Decide(ctx context.Context, id string, to registration.Status) (registration.Registration, error) {
	if !to.IsValid() {
		return registration.Registration{}, &registration.ValidationError{Field: "status", Message: fmt.Sprintf("unknown status %q", to)}
	}

	var from registration.Status
	reg, err := s.store.Update(ctx, id, func(r *registration.Registration) error {
		from = r.Status
		return r.TransitionTo(to)
	})
	if err != nil {
		return registration.Registration{}, err
	}

	if from != to {
		s.log.InfoContext(ctx, "registration.status_changed",
			"registration_id", id,
			"from", from,
			"to", to,
		)
	}
	return reg, nil
}

// Delete is the organizer's hard cancellation.
func (s *RegistrationService) Delete(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.log.InfoContext(ctx, "registration.deleted", "registration_id", id)
	return nil
}

// Ready reports whether the store answers.
func (s *RegistrationService) Ready(ctx context.Context) error {
	if err := s.store.Ping(ctx); err != nil {
		return fmt.Errorf("store: %w", err)
	}
	return nil
}
