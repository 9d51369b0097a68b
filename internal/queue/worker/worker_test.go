package worker

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/geocoder89/rollcall/internal/jobs"
	"github.com/geocoder89/rollcall/internal/notifications"
	"github.com/geocoder89/rollcall/internal/queue"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeQueue struct {
	mu      sync.Mutex
	pending []jobs.Job
	retried []jobs.Job
	delays  []time.Duration
	dead    []jobs.Job
	pingErr error
	deqErr  error
}

func (q *fakeQueue) Ping(context.Context) error { return q.pingErr }

func (q *fakeQueue) Dequeue(ctx context.Context, _ time.Duration) (jobs.Job, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.deqErr != nil {
		err := q.deqErr
		q.deqErr = nil
		return jobs.Job{}, err
	}
	if len(q.pending) == 0 {
		return jobs.Job{}, queue.ErrEmpty
	}
	j := q.pending[0]
	q.pending = q.pending[1:]
	return j, nil
}

func (q *fakeQueue) Retry(_ context.Context, j jobs.Job, delay time.Duration, _ error) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.retried = append(q.retried, j)
	q.delays = append(q.delays, delay)
	return nil
}

func (q *fakeQueue) DeadLetter(_ context.Context, j jobs.Job, _ error) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.dead = append(q.dead, j)
	return nil
}

func (q *fakeQueue) PromoteDue(context.Context, int64) (int, error) { return 0, nil }

type fakeNotifier struct {
	err         error
	invitations []notifications.Invitation
}

func (n *fakeNotifier) SendInvitation(_ context.Context, in notifications.Invitation) error {
	n.invitations = append(n.invitations, in)
	return n.err
}

func (n *fakeNotifier) SendRegistrationConfirmation(context.Context, notifications.RegistrationConfirmation) error {
	return n.err
}

func newInvitationJob(t *testing.T) jobs.Job {
	t.Helper()
	j, err := jobs.Build(jobs.JobSendTeamInvitation, notifications.Invitation{
		RegistrationID: "reg-1",
		Email:          "m@x.io",
		AcceptURL:      "https://rollcall.test/accept/tok",
	})
	require.NoError(t, err)
	return j
}

func newTestWorker(q JobQueue, n notifications.Notifier) *Worker {
	w := New(Config{PollInterval: 10 * time.Millisecond, WorkerID: "test"}, q, n, nil, nil)
	w.backoff = func(attempt int) time.Duration { return time.Duration(attempt+1) * time.Second }
	return w
}

func TestProcessOne_Delivers(t *testing.T) {
	q := &fakeQueue{pending: []jobs.Job{newInvitationJob(t)}}
	n := &fakeNotifier{}
	w := newTestWorker(q, n)

	ok, err := w.ProcessOne(context.Background(), context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	require.Len(t, n.invitations, 1)
	assert.Equal(t, "m@x.io", n.invitations[0].Email)
	assert.Equal(t, uint64(1), w.Stats().Totals.Delivered)
}

func TestProcessOne_Empty(t *testing.T) {
	w := newTestWorker(&fakeQueue{}, &fakeNotifier{})

	ok, err := w.ProcessOne(context.Background(), context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestProcessOne_RetriesOnFailure(t *testing.T) {
	q := &fakeQueue{pending: []jobs.Job{newInvitationJob(t)}}
	w := newTestWorker(q, &fakeNotifier{err: errors.New("provider down")})

	_, err := w.ProcessOne(context.Background(), context.Background())
	require.NoError(t, err)

	require.Len(t, q.retried, 1)
	assert.Equal(t, 1, q.retried[0].Attempts)
	assert.Equal(t, time.Second, q.delays[0])
	assert.Empty(t, q.dead)
	assert.Equal(t, uint64(1), w.Stats().Totals.Retried)
}

func TestProcessOne_DeadLettersWhenExhausted(t *testing.T) {
	j := newInvitationJob(t)
	j.Attempts = j.MaxAttempts - 1
	q := &fakeQueue{pending: []jobs.Job{j}}
	w := newTestWorker(q, &fakeNotifier{err: errors.New("provider down")})

	_, err := w.ProcessOne(context.Background(), context.Background())
	require.NoError(t, err)

	assert.Empty(t, q.retried)
	require.Len(t, q.dead, 1)
	assert.Equal(t, uint64(1), w.Stats().Totals.DeadLettered)
}

func TestProcessOne_DeadLettersBadPayload(t *testing.T) {
	j := newInvitationJob(t)
	j.Payload = []byte("{not json")
	q := &fakeQueue{pending: []jobs.Job{j}}
	w := newTestWorker(q, &fakeNotifier{})

	_, err := w.ProcessOne(context.Background(), context.Background())
	require.NoError(t, err)
	assert.Len(t, q.dead, 1)
}

func TestRunStopsOnCancel(t *testing.T) {
	q := &fakeQueue{pending: []jobs.Job{newInvitationJob(t)}}
	n := &fakeNotifier{}
	w := newTestWorker(q, n)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.Eventually(t, func() bool { return w.Stats().Totals.Delivered == 1 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop")
	}
}

func TestHealthHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	q := &fakeQueue{}
	w := newTestWorker(q, &fakeNotifier{})
	h := w.HealthHandler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	w.setReady(true)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	q.pingErr = errors.New("redis down")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestProcessOne_MalformedEntryCountsAsDead(t *testing.T) {
	q := &fakeQueue{deqErr: fmt.Errorf("%w: unexpected end of JSON input", queue.ErrMalformedJob)}
	n := &fakeNotifier{}
	w := newTestWorker(q, n)

	ok, err := w.ProcessOne(context.Background(), context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, n.invitations)

	snap := w.Stats()
	assert.Equal(t, uint64(1), snap.Totals.DeadLettered)
	assert.Equal(t, uint64(1), snap.ByType["malformed"].DeadLettered)
	assert.Contains(t, snap.LastError, "malformed job")
}
