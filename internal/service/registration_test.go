package service_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/geocoder89/rollcall/internal/domain/event"
	"github.com/geocoder89/rollcall/internal/domain/registration"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEndToEndScenario(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	reg, err := h.regs.Create(ctx, teamRequest("alice@x.com", "bob@x.com"))
	require.NoError(t, err)
	assert.Equal(t, registration.StatusAwaitingMembers, reg.Status)
	require.Len(t, reg.TeamMembers, 1)

	bob := reg.TeamMembers[0]
	assert.NotEqual(t, reg.QRCode, bob.QRCode)
	assert.NotEmpty(t, bob.InvitationToken)

	res, err := h.invites.AcceptInvite(ctx, bob.InvitationToken)
	require.NoError(t, err)
	assert.Equal(t, "Hack Night", res.EventTitle)
	assert.Equal(t, "The Team", res.TeamName)
	assert.Equal(t, registration.StatusPending, res.Registration.Status)

	h.clock.Set(at("2024-02-10 09:00"))

	scan, err := h.checkins.Resolve(ctx, reg.QRCode)
	require.NoError(t, err)
	assert.True(t, scan.IsLeader)
	assert.Nil(t, scan.ScannedMember)

	scan, err = h.checkins.CheckIn(ctx, reg.QRCode)
	require.NoError(t, err)
	assert.True(t, scan.Registration.CheckedIn)
	assert.True(t, scan.Registration.TeamMembers[0].Attended)

	_, err = h.checkins.CheckIn(ctx, reg.QRCode)
	assert.True(t, isAlreadyCheckedIn(err))

	h.clock.Set(at("2024-02-11 00:00"))

	_, err = h.checkins.Resolve(ctx, bob.QRCode)
	assert.ErrorIs(t, err, event.ErrScanWindowClosed)
}

func TestCreate_IssuesDistinctTickets(t *testing.T) {
	h := newHarness(t)

	reg, err := h.regs.Create(context.Background(), teamRequest("lead@x.io", "a@x.io", "b@x.io", "c@x.io"))
	require.NoError(t, err)

	codes := map[string]bool{reg.QRCode: true}
	tokens := map[string]bool{}
	for _, m := range reg.TeamMembers {
		assert.False(t, codes[m.QRCode], "duplicate qr code %s", m.QRCode)
		codes[m.QRCode] = true
		assert.False(t, tokens[m.InvitationToken])
		tokens[m.InvitationToken] = true

		assert.Len(t, m.InvitationToken, 64)
		assert.Equal(t, registration.InvitationPending, m.InvitationStatus)
		assert.False(t, m.Attended)
	}
	assert.True(t, strings.HasPrefix(reg.QRCode, eventID+"|"))
}

func TestCreate_NoMembersStartsPending(t *testing.T) {
	h := newHarness(t)

	req := teamRequest("solo@x.io")
	req.TeamName = "Lonely"

	reg, err := h.regs.Create(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, registration.StatusPending, reg.Status)
	assert.Empty(t, reg.TeamName)
	assert.Empty(t, reg.TeamMembers)
}

func TestCreate_NormalizesEmails(t *testing.T) {
	h := newHarness(t)

	reg, err := h.regs.Create(context.Background(), teamRequest("  Alice@X.com ", "BOB@x.com"))
	require.NoError(t, err)
	assert.Equal(t, "alice@x.com", reg.Leader.Email)
	assert.Equal(t, "bob@x.com", reg.TeamMembers[0].Email)

	_, err = h.regs.Create(context.Background(), teamRequest("bob@X.COM"))
	assert.ErrorIs(t, err, registration.ErrDuplicateRegistration)
}

func TestCreate_DuplicateAcrossRegistrations(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.regs.Create(ctx, teamRequest("alice@x.com", "bob@x.com"))
	require.NoError(t, err)

	_, err = h.regs.Create(ctx, teamRequest("carol@x.com", "dave@x.com", "bob@x.com"))
	require.Error(t, err)

	var dup *registration.DuplicateEmailError
	require.True(t, errors.As(err, &dup))
	assert.Equal(t, "bob@x.com", dup.Email)

	// nothing from the failed request was stored
	_, err = h.regs.FindByParticipant(ctx, eventID, "carol@x.com")
	assert.ErrorIs(t, err, registration.ErrNotFound)

	page, err := h.regs.ListByEvent(ctx, eventID, 0, "")
	require.NoError(t, err)
	assert.Len(t, page.Items, 1)
}

func TestCreate_ConcurrentOverlapOnlyOneWins(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	const n = 10
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		go func(i int) {
			_, err := h.regs.Create(ctx, teamRequest("lead"+string(rune('a'+i))+"@x.io", "shared@x.io"))
			errs <- err
		}(i)
	}

	ok := 0
	for i := 0; i < n; i++ {
		err := <-errs
		if err == nil {
			ok++
			continue
		}
		assert.ErrorIs(t, err, registration.ErrDuplicateRegistration)
	}
	assert.Equal(t, 1, ok)
}

func TestCreate_DuplicateInsideRequest(t *testing.T) {
	h := newHarness(t)

	_, err := h.regs.Create(context.Background(), teamRequest("alice@x.com", "bob@x.com", "Bob@x.com"))

	var ve *registration.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "teamMembers[1].email", ve.Field)
}

func TestCreate_Validation(t *testing.T) {
	h := newHarness(t)

	req := teamRequest("not-an-email")
	_, err := h.regs.Create(context.Background(), req)

	var ve *registration.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "leader.email", ve.Field)

	req = teamRequest("ok@x.io")
	req.Leader.UserID = ""
	_, err = h.regs.Create(context.Background(), req)
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "leader.userId", ve.Field)

	req = teamRequest("blank@x.io", "m@x.io")
	req.TeamMembers[0].Name = "   "
	_, err = h.regs.Create(context.Background(), req)
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "teamMembers[0].name", ve.Field)
}

func TestCreate_SingleCharacterNames(t *testing.T) {
	h := newHarness(t)

	req := teamRequest("q@x.io", "z@x.io")
	req.Leader.Name = "Q"
	req.TeamMembers[0].Name = "Z"

	reg, err := h.regs.Create(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "Q", reg.Leader.Name)
	assert.Equal(t, "Z", reg.TeamMembers[0].Name)
}

func TestCreate_EventNotFound(t *testing.T) {
	h := newHarness(t)

	req := teamRequest("alice@x.com")
	req.EventID = "missing"

	_, err := h.regs.Create(context.Background(), req)
	assert.ErrorIs(t, err, event.ErrNotFound)
}

func TestCreate_RegistrationWindow(t *testing.T) {
	cases := []struct {
		name string
		now  string
		err  bool
		msg  string
	}{
		{name: "day before opening", now: "2023-12-31 23:59", err: true, msg: "registration opens on 2024-01-01"},
		{name: "opening day", now: "2024-01-01 00:00"},
		{name: "closing day evening", now: "2024-01-31 23:59"},
		{name: "day after closing", now: "2024-02-01 00:00", err: true, msg: "registration closed on 2024-01-31"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t)
			h.clock.Set(at(tc.now))

			_, err := h.regs.Create(context.Background(), teamRequest("alice@x.com"))
			if !tc.err {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, event.ErrRegistrationWindowClosed)
			assert.Equal(t, tc.msg, err.Error())
		})
	}
}

func TestCreate_SendsInvitationsAndConfirmation(t *testing.T) {
	h := newHarness(t)

	reg, err := h.regs.Create(context.Background(), teamRequest("alice@x.com", "bob@x.com", "carl@x.com"))
	require.NoError(t, err)
	h.regs.Wait()

	require.Len(t, h.notifier.invitations, 2)
	require.Len(t, h.notifier.confirmations, 1)
	assert.Equal(t, reg.QRCode, h.notifier.confirmations[0].QRCode)

	byEmail := map[string]string{}
	for _, in := range h.notifier.invitations {
		byEmail[in.Email] = in.AcceptURL
		assert.Equal(t, "Hack Night", in.EventTitle)
	}
	for _, m := range reg.TeamMembers {
		assert.Equal(t, "https://rollcall.test/accept-invite?token="+m.InvitationToken, byEmail[m.Email])
	}
}

func TestCreate_NotificationFailureIsNotFatal(t *testing.T) {
	h := newHarness(t)
	h.notifier.err = errors.New("provider down")

	reg, err := h.regs.Create(context.Background(), teamRequest("alice@x.com", "bob@x.com"))
	require.NoError(t, err)
	h.regs.Wait()

	stored, err := h.regs.Get(context.Background(), reg.ID)
	require.NoError(t, err)
	assert.Equal(t, reg.ID, stored.ID)
}

func TestDecide(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	team, err := h.regs.Create(ctx, teamRequest("alice@x.com", "bob@x.com"))
	require.NoError(t, err)

	_, err = h.regs.Decide(ctx, team.ID, registration.StatusAccepted)
	assert.ErrorIs(t, err, registration.ErrInvalidTransition)

	// invitations are still outstanding, so the organizer cannot promote
	_, err = h.regs.Decide(ctx, team.ID, registration.StatusPending)
	assert.ErrorIs(t, err, registration.ErrInvalidTransition)

	stored, err := h.regs.Get(ctx, team.ID)
	require.NoError(t, err)
	assert.Equal(t, registration.StatusAwaitingMembers, stored.Status)
	assert.Equal(t, registration.InvitationPending, stored.TeamMembers[0].InvitationStatus)

	solo, err := h.regs.Create(ctx, teamRequest("solo@x.com"))
	require.NoError(t, err)

	got, err := h.regs.Decide(ctx, solo.ID, registration.StatusAccepted)
	require.NoError(t, err)
	assert.Equal(t, registration.StatusAccepted, got.Status)

	got, err = h.regs.Decide(ctx, solo.ID, registration.StatusRejected)
	require.NoError(t, err)
	assert.Equal(t, registration.StatusRejected, got.Status)

	_, err = h.regs.Decide(ctx, solo.ID, registration.StatusAwaitingMembers)
	assert.ErrorIs(t, err, registration.ErrInvalidTransition)

	_, err = h.regs.Decide(ctx, solo.ID, registration.Status("Maybe"))
	assert.ErrorIs(t, err, registration.ErrValidation)

	_, err = h.regs.Decide(ctx, "missing", registration.StatusAccepted)
	assert.ErrorIs(t, err, registration.ErrNotFound)
}

func TestDeleteFreesEmails(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	reg, err := h.regs.Create(ctx, teamRequest("alice@x.com", "bob@x.com"))
	require.NoError(t, err)

	require.NoError(t, h.regs.Delete(ctx, reg.ID))
	assert.ErrorIs(t, h.regs.Delete(ctx, reg.ID), registration.ErrNotFound)

	_, err = h.regs.Create(ctx, teamRequest("bob@x.com"))
	assert.NoError(t, err)
}

func TestListByEvent_Pages(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	for _, email := range []string{"a@x.io", "b@x.io", "c@x.io"} {
		_, err := h.regs.Create(ctx, teamRequest(email))
		require.NoError(t, err)
	}

	first, err := h.regs.ListByEvent(ctx, eventID, 2, "")
	require.NoError(t, err)
	assert.Len(t, first.Items, 2)
	assert.True(t, first.HasMore)
	require.NotNil(t, first.NextCursor)

	second, err := h.regs.ListByEvent(ctx, eventID, 2, *first.NextCursor)
	require.NoError(t, err)
	assert.Len(t, second.Items, 1)
	assert.False(t, second.HasMore)

	_, err = h.regs.ListByEvent(ctx, eventID, 2, "%%%")
	assert.ErrorIs(t, err, registration.ErrValidation)

	_, err = h.regs.ListByEvent(ctx, "missing", 2, "")
	assert.ErrorIs(t, err, event.ErrNotFound)
}
