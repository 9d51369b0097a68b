package observability

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeliveryStats_Snapshot(t *testing.T) {
	s := NewDeliveryStats()

	s.Dequeued("send_team_invitation")
	s.Record("send_team_invitation", OutcomeRetried, 30*time.Millisecond, errors.New("ses throttled"))
	s.Dequeued("send_team_invitation")
	s.Record("send_team_invitation", OutcomeDelivered, 10*time.Millisecond, nil)
	s.Dequeued("send_registration_confirmation")
	s.Record("send_registration_confirmation", OutcomeDead, 20*time.Millisecond, errors.New("bad payload"))

	snap := s.Snapshot()

	assert.Equal(t, DeliveryCounts{Dequeued: 3, Delivered: 1, Retried: 1, DeadLettered: 1}, snap.Totals)
	assert.Equal(t, uint64(2), snap.ByType["send_team_invitation"].Dequeued)
	assert.Equal(t, 20*time.Millisecond, snap.AverageDuration)
	assert.Equal(t, 30*time.Millisecond, snap.MaxDuration)
	require.NotNil(t, snap.LastFailureAt)
	assert.Equal(t, "bad payload", snap.LastError)
}

func TestDeliveryStats_Empty(t *testing.T) {
	snap := NewDeliveryStats().Snapshot()

	assert.Zero(t, snap.Totals)
	assert.Zero(t, snap.AverageDuration)
	assert.Nil(t, snap.LastFailureAt)
}
