package jobs

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// codec knows how to check and decode the payload of one job type.
type codec struct {
	check  func(payload any) error
	decode func(raw []byte) (any, error)
}

var codecs = map[JobType]codec{
	JobSendTeamInvitation:           codecFor[TeamInvitationPayload](),
	JobSendRegistrationConfirmation: codecFor[RegistrationConfirmationPayload](),
}

func codecFor[P any]() codec {
	return codec{
		check: func(payload any) error {
			var p P
			switch v := payload.(type) {
			case P:
				p = v
			case *P:
				if v == nil {
					return ErrInvalidJobPayload
				}
				p = *v
			default:
				return ErrPayloadTypeMismatch
			}
			if err := validate.Struct(p); err != nil {
				return fmt.Errorf("%w: %v", ErrInvalidJobPayload, err)
			}
			return nil
		},
		decode: func(raw []byte) (any, error) {
			var p P
			if err := json.Unmarshal(raw, &p); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrInvalidJobPayload, err)
			}
			return p, nil
		},
	}
}

// ValidatePayload checks that payload is the struct expected for t and that
// its required fields are present.
func ValidatePayload(t JobType, payload any) error {
	c, ok := codecs[t]
	if !ok {
		return ErrInvalidJobType
	}
	return c.check(payload)
}

// Build validates, encodes and wraps a payload in a ready-to-run job.
func Build(t JobType, payload any) (Job, error) {
	if err := ValidatePayload(t, payload); err != nil {
		return Job{}, err
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return Job{}, fmt.Errorf("%w: %v", ErrInvalidJobPayload, err)
	}
	return NewJob(t, raw, time.Time{})
}

// DecodePayload returns the typed payload (by value) carried by j.
func DecodePayload(j Job) (any, error) {
	c, ok := codecs[j.Type]
	if !ok {
		return nil, ErrInvalidJobType
	}
	if len(j.Payload) == 0 {
		return nil, ErrInvalidJobPayload
	}
	return c.decode(j.Payload)
}
