package jobs

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildDecode_TeamInvitation(t *testing.T) {
	payload := TeamInvitationPayload{
		RegistrationID: "reg-1",
		EventID:        "event-123",
		EventTitle:     "Hack Night",
		MemberName:     "Bob",
		Email:          "bob@x.com",
		AcceptURL:      "https://rollcall.test/accept-invite?token=abc",
	}

	j, err := Build(JobSendTeamInvitation, &payload)
	require.NoError(t, err)

	decoded, err := DecodePayload(j)
	require.NoError(t, err)

	p, ok := decoded.(TeamInvitationPayload)
	require.True(t, ok, "got %T", decoded)
	assert.Equal(t, payload, p)
}

func TestValidatePayload(t *testing.T) {
	tests := []struct {
		name    string
		typ     JobType
		payload any
		want    error
	}{
		{"wrong struct", JobSendTeamInvitation, RegistrationConfirmationPayload{RegistrationID: "r1", Email: "a@x.com"}, ErrPayloadTypeMismatch},
		{"missing accept url", JobSendTeamInvitation, TeamInvitationPayload{RegistrationID: "r1", Email: "b@x.com"}, ErrInvalidJobPayload},
		{"bad email", JobSendRegistrationConfirmation, RegistrationConfirmationPayload{RegistrationID: "r1", Email: "nope"}, ErrInvalidJobPayload},
		{"nil pointer", JobSendRegistrationConfirmation, (*RegistrationConfirmationPayload)(nil), ErrInvalidJobPayload},
		{"unknown type", JobType("nope"), TeamInvitationPayload{}, ErrInvalidJobType},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.ErrorIs(t, ValidatePayload(tc.typ, tc.payload), tc.want)
		})
	}
}

func TestDecodePayload_Rejects(t *testing.T) {
	_, err := DecodePayload(Job{Type: JobSendTeamInvitation})
	assert.ErrorIs(t, err, ErrInvalidJobPayload)

	_, err = DecodePayload(Job{Type: JobSendTeamInvitation, Payload: []byte("{")})
	assert.ErrorIs(t, err, ErrInvalidJobPayload)

	_, err = DecodePayload(Job{Type: "other", Payload: []byte("{}")})
	assert.ErrorIs(t, err, ErrInvalidJobType)
}

func TestBuild_Defaults(t *testing.T) {
	j, err := Build(JobSendRegistrationConfirmation, RegistrationConfirmationPayload{
		RegistrationID: "r1",
		Email:          "alice@x.com",
	})
	require.NoError(t, err)
	assert.Equal(t, DefaultMaxAttempts, j.MaxAttempts)
	assert.Zero(t, j.Attempts)
	assert.False(t, j.RunAt.IsZero())
	assert.False(t, j.Exhausted())
}

func TestNewJob_InvalidType(t *testing.T) {
	_, err := NewJob(JobType("nope"), nil, time.Time{})
	assert.ErrorIs(t, err, ErrInvalidJobType)
}
