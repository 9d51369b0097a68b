package jobs

import (
	"time"

	"github.com/google/uuid"
)

const DefaultMaxAttempts = 8

// Job is the envelope that travels through the delivery queue.
type Job struct {
	ID          string    `json:"id"`
	Type        JobType   `json:"type"`
	Payload     []byte    `json:"payload"` // raw json
	Attempts    int       `json:"attempts"`
	MaxAttempts int       `json:"maxAttempts"`
	RunAt       time.Time `json:"runAt"`
	LastError   *string   `json:"lastError,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// creation of a new pending job with defaults.
func NewJob(t JobType, payloadJSON []byte, runAt time.Time) (Job, error) {
	if !t.IsValid() {
		return Job{}, ErrInvalidJobType
	}

	now := time.Now().UTC()

	if runAt.IsZero() {
		runAt = now
	}

	j := Job{
		ID:          uuid.NewString(),
		Type:        t,
		Payload:     payloadJSON,
		Attempts:    0,
		MaxAttempts: DefaultMaxAttempts,
		RunAt:       runAt,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	return j, nil
}

// Exhausted reports whether another failure should dead-letter the job.
func (j Job) Exhausted() bool {
	return j.Attempts >= j.MaxAttempts
}
