package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/geocoder89/rollcall/internal/domain/event"
	"github.com/geocoder89/rollcall/internal/domain/registration"
	"github.com/geocoder89/rollcall/internal/notifications"
	"github.com/geocoder89/rollcall/internal/repo/memory"
	"github.com/geocoder89/rollcall/internal/service"
	"github.com/geocoder89/rollcall/internal/tickets"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func at(s string) time.Time {
	t, err := time.Parse("2006-01-02 15:04", s)
	if err != nil {
		panic(err)
	}
	return t
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

type recordingNotifier struct {
	mu            sync.Mutex
	err           error
	invitations   []notifications.Invitation
	confirmations []notifications.RegistrationConfirmation
}

func (n *recordingNotifier) SendInvitation(_ context.Context, in notifications.Invitation) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.invitations = append(n.invitations, in)
	return n.err
}

func (n *recordingNotifier) SendRegistrationConfirmation(_ context.Context, in notifications.RegistrationConfirmation) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.confirmations = append(n.confirmations, in)
	return n.err
}

type harness struct {
	clock    *clock
	store    *memory.RegistrationsRepo
	events   *memory.EventsRepo
	notifier *recordingNotifier
	regs     *service.RegistrationService
	invites  *service.InvitationWorkflow
	checkins *service.CheckInEngine
}

const eventID = "evt-1"

func scenarioEvent() event.Event {
	regStart, regEnd := day("2024-01-01"), day("2024-01-31")
	return event.Event{
		ID:                    eventID,
		Title:                 "Hack Night",
		RegistrationStartDate: &regStart,
		RegistrationEndDate:   &regEnd,
		StartDate:             day("2024-02-10"),
		EndDate:               day("2024-02-10"),
	}
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	h := &harness{
		clock:    &clock{now: at("2024-01-15 10:00")},
		store:    memory.NewRegistrationsRepo(),
		events:   memory.NewEventsRepo(scenarioEvent()),
		notifier: &recordingNotifier{},
	}
	opts := service.Options{Now: h.clock.Now, Location: time.UTC}

	h.regs = service.NewRegistrationService(h.store, h.events, h.notifier, tickets.NewGenerator(), "https://rollcall.test/", opts)
	h.invites = service.NewInvitationWorkflow(h.store, h.events, opts)
	h.checkins = service.NewCheckInEngine(h.store, h.events, opts)

	t.Cleanup(h.regs.Wait)
	return h
}

func teamRequest(leaderEmail string, memberEmails ...string) registration.CreateRegistrationRequest {
	req := registration.CreateRegistrationRequest{
		EventID: eventID,
		Leader: registration.LeaderInput{
			UserID: "user-" + leaderEmail,
			Name:   "Leader " + leaderEmail,
			Email:  leaderEmail,
		},
	}
	if len(memberEmails) > 0 {
		req.TeamName = "The Team"
	}
	for _, e := range memberEmails {
		req.TeamMembers = append(req.TeamMembers, registration.TeamMemberInput{
			Name:  "Member " + e,
			Email: e,
		})
	}
	return req
}

func isAlreadyCheckedIn(err error) bool {
	return errors.Is(err, registration.ErrAlreadyCheckedIn)
}
