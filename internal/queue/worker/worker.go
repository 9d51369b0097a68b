package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/geocoder89/rollcall/internal/jobs"
	"github.com/geocoder89/rollcall/internal/notifications"
	"github.com/geocoder89/rollcall/internal/observability"
	"github.com/geocoder89/rollcall/internal/queue"
)

// JobQueue is the slice of the redis queue the worker drives.
type JobQueue interface {
	Ping(ctx context.Context) error
	Dequeue(ctx context.Context, wait time.Duration) (jobs.Job, error)
	Retry(ctx context.Context, j jobs.Job, delay time.Duration, cause error) error
	DeadLetter(ctx context.Context, j jobs.Job, cause error) error
	PromoteDue(ctx context.Context, max int64) (int, error)
}

type Config struct {
	PollInterval  time.Duration
	WorkerID      string
	Concurrency   int
	ShutdownGrace time.Duration
}

type Worker struct {
	cfg      Config
	queue    JobQueue
	notifier notifications.Notifier
	log      *slog.Logger
	stats    *observability.DeliveryStats
	prom     *observability.Prom
	backoff  func(attempt int) time.Duration

	readyMu sync.RWMutex
	ready   bool
}

func New(cfg Config, q JobQueue, notifier notifications.Notifier, log *slog.Logger, prom *observability.Prom) *Worker {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.ShutdownGrace <= 0 {
		cfg.ShutdownGrace = 10 * time.Second
	}
	if log == nil {
		log = slog.Default()
	}

	return &Worker{
		cfg:      cfg,
		queue:    q,
		notifier: notifier,
		log:      log.With("worker_id", cfg.WorkerID),
		stats:    observability.NewDeliveryStats(),
		prom:     prom,
		backoff:  ExponentialBackoff,
	}
}

func (w *Worker) Stats() observability.DeliverySnapshot {
	return w.stats.Snapshot()
}

func (w *Worker) setReady(v bool) {
	w.readyMu.Lock()
	w.ready = v
	w.readyMu.Unlock()
}

// Run starts Concurrency consumers plus a promoter for delayed retries and
// blocks until ctx is cancelled. In-flight jobs get ShutdownGrace to finish.
func (w *Worker) Run(ctx context.Context) error {
	w.setReady(true)
	defer w.setReady(false)

	// jobs keep running on this context after ctx is cancelled
	execCtx, cancelExec := context.WithCancel(context.WithoutCancel(ctx))
	defer cancelExec()

	var wg sync.WaitGroup

	for i := 0; i < w.cfg.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.consume(ctx, execCtx)
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		w.promote(ctx)
	}()

	w.log.Info("worker.started", "concurrency", w.cfg.Concurrency)
	<-ctx.Done()
	w.setReady(false)
	w.log.Info("worker.draining", "grace", w.cfg.ShutdownGrace.String())

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(w.cfg.ShutdownGrace):
		w.log.Warn("worker.shutdown_grace_exceeded")
		cancelExec()
		<-done
	}
	return nil
}

func (w *Worker) consume(ctx, execCtx context.Context) {
	for ctx.Err() == nil {
		_, err := w.ProcessOne(ctx, execCtx)
		if err != nil && ctx.Err() == nil {
			w.log.Error("worker.dequeue_failed", "err", err)
			sleep(ctx, w.cfg.PollInterval)
		}
	}
}

func (w *Worker) promote(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := w.queue.PromoteDue(ctx, 100); err != nil && ctx.Err() == nil {
				w.log.Error("worker.promote_failed", "err", err)
			}
		}
	}
}

// ProcessOne waits up to PollInterval for a job and runs it. It reports
// whether a job was handled.
func (w *Worker) ProcessOne(ctx, execCtx context.Context) (bool, error) {
	j, err := w.queue.Dequeue(ctx, w.cfg.PollInterval)
	switch {
	case err == nil:
	case errors.Is(err, queue.ErrEmpty), errors.Is(err, context.Canceled):
		return false, nil
	case errors.Is(err, queue.ErrMalformedJob):
		w.record(jobs.Job{Type: malformedType}, observability.OutcomeDead, 0, err)
		w.log.Error("job.malformed", "err", err)
		return true, nil
	default:
		return false, err
	}

	w.stats.Dequeued(string(j.Type))
	if w.prom != nil {
		w.prom.DeliveriesInFlight.Inc()
		defer w.prom.DeliveriesInFlight.Dec()
	}

	start := time.Now()
	j.Attempts++
	err = w.execute(execCtx, j)
	elapsed := time.Since(start)

	if err == nil {
		w.record(j, observability.OutcomeDelivered, elapsed, nil)
		w.log.Info("job.done", "job_id", j.ID, "job_type", j.Type, "attempts", j.Attempts, "duration_ms", elapsed.Milliseconds())
		return true, nil
	}

	w.handleFailure(execCtx, j, err, elapsed)
	return true, nil
}

// malformedType labels entries whose envelope could not be decoded.
const malformedType = "malformed"

func (w *Worker) execute(ctx context.Context, j jobs.Job) error {
	payload, err := jobs.DecodePayload(j)
	if err != nil {
		return err
	}

	switch p := payload.(type) {
	case jobs.TeamInvitationPayload:
		return w.notifier.SendInvitation(ctx, p)
	case jobs.RegistrationConfirmationPayload:
		return w.notifier.SendRegistrationConfirmation(ctx, p)
	default:
		return jobs.ErrInvalidJobType
	}
}

func (w *Worker) handleFailure(ctx context.Context, j jobs.Job, cause error, elapsed time.Duration) {
	// a payload that cannot be decoded will never succeed
	permanent := errors.Is(cause, jobs.ErrInvalidJobPayload) || errors.Is(cause, jobs.ErrInvalidJobType)

	if permanent || j.Exhausted() {
		if err := w.queue.DeadLetter(ctx, j, cause); err != nil {
			w.log.Error("job.dead_letter_failed", "job_id", j.ID, "err", err)
		}
		w.record(j, observability.OutcomeDead, elapsed, cause)
		w.log.Error("job.dead", "job_id", j.ID, "job_type", j.Type, "attempts", j.Attempts, "err", cause)
		return
	}

	delay := w.backoff(j.Attempts - 1)
	if err := w.queue.Retry(ctx, j, delay, cause); err != nil {
		w.log.Error("job.retry_failed", "job_id", j.ID, "err", err)
		return
	}
	w.record(j, observability.OutcomeRetried, elapsed, cause)
	w.log.Warn("job.retry", "job_id", j.ID, "job_type", j.Type, "attempts", j.Attempts, "delay_ms", delay.Milliseconds(), "err", cause)
}

func (w *Worker) record(j jobs.Job, outcome string, elapsed time.Duration, cause error) {
	w.stats.Record(string(j.Type), outcome, elapsed, cause)
	if w.prom == nil {
		return
	}
	w.prom.DeliveryResults.WithLabelValues(string(j.Type), outcome).Inc()
	w.prom.DeliveryDuration.WithLabelValues(string(j.Type), outcome).Observe(elapsed.Seconds())
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
