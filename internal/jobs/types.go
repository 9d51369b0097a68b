package jobs

type JobType string

const (
	JobSendTeamInvitation           JobType = "send_team_invitation"
	JobSendRegistrationConfirmation JobType = "send_registration_confirmation"
)

func (t JobType) IsValid() bool {
	_, ok := codecs[t]
	return ok
}
