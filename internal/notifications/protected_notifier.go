package notifications

import (
	"context"
	"errors"
	"sync"
	"time"
)

var ErrCircuitOpen = errors.New("circuit breaker open")

type BreakerState string

const (
	BreakerClosed   BreakerState = "closed"
	BreakerOpen     BreakerState = "open"
	BreakerHalfOpen BreakerState = "half_open"
)

type ProtectedNotifierConfig struct {
	Timeout          time.Duration // hard timeout per send
	FailureThreshold int           // consecutive provider failures that open the breaker
	Cooldown         time.Duration // time spent open before a trial call
	HalfOpenMaxCalls int           // concurrent trial calls while half-open

	// OnStateChange is called outside the lock after every transition.
	OnStateChange func(from, to BreakerState)
}

// ProtectedNotifier guards an email provider with a per-send timeout and a
// consecutive-failure circuit breaker, so a dead provider turns into fast
// retryable errors for the delivery worker instead of stalled consumers.
type ProtectedNotifier struct {
	inner Notifier
	cfg   ProtectedNotifierConfig
	now   func() time.Time

	mu                  sync.Mutex
	state               BreakerState
	consecutiveFailures int
	openedAt            time.Time
	halfOpenInFlight    int
}

func NewProtectedNotifier(inner Notifier, cfg ProtectedNotifierConfig) *ProtectedNotifier {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 3 * time.Second
	}
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 3
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 15 * time.Second
	}
	if cfg.HalfOpenMaxCalls <= 0 {
		cfg.HalfOpenMaxCalls = 1
	}

	return &ProtectedNotifier{
		inner: inner,
		cfg:   cfg,
		state: BreakerClosed,
		now:   time.Now,
	}
}

func (n *ProtectedNotifier) SendInvitation(ctx context.Context, in Invitation) error {
	return n.call(ctx, func(sendCtx context.Context) error {
		return n.inner.SendInvitation(sendCtx, in)
	})
}

func (n *ProtectedNotifier) SendRegistrationConfirmation(ctx context.Context, in RegistrationConfirmation) error {
	return n.call(ctx, func(sendCtx context.Context) error {
		return n.inner.SendRegistrationConfirmation(sendCtx, in)
	})
}

func (n *ProtectedNotifier) call(ctx context.Context, send func(context.Context) error) error {
	if !n.admit() {
		return ErrCircuitOpen
	}

	sendCtx, cancel := context.WithTimeout(ctx, n.cfg.Timeout)
	defer cancel()

	err := send(sendCtx)

	// the caller giving up says nothing about the provider
	if err != nil && ctx.Err() != nil {
		n.release()
		return err
	}

	n.settle(err)
	return err
}

func (n *ProtectedNotifier) State() BreakerState {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.state
}

func (n *ProtectedNotifier) admit() bool {
	n.mu.Lock()

	switch n.state {
	case BreakerOpen:
		if n.now().Sub(n.openedAt) < n.cfg.Cooldown {
			n.mu.Unlock()
			return false
		}
		from := n.moveLocked(BreakerHalfOpen)
		n.halfOpenInFlight = 1
		n.mu.Unlock()
		n.notify(from, BreakerHalfOpen)
		return true

	case BreakerHalfOpen:
		ok := n.halfOpenInFlight < n.cfg.HalfOpenMaxCalls
		if ok {
			n.halfOpenInFlight++
		}
		n.mu.Unlock()
		return ok

	default:
		n.mu.Unlock()
		return true
	}
}

// release returns a half-open slot without judging the provider.
func (n *ProtectedNotifier) release() {
	n.mu.Lock()
	if n.state == BreakerHalfOpen && n.halfOpenInFlight > 0 {
		n.halfOpenInFlight--
	}
	n.mu.Unlock()
}

func (n *ProtectedNotifier) settle(err error) {
	n.mu.Lock()

	if n.state == BreakerHalfOpen && n.halfOpenInFlight > 0 {
		n.halfOpenInFlight--
	}

	var from, to BreakerState
	switch {
	case err == nil:
		n.consecutiveFailures = 0
		to = BreakerClosed
	case n.state == BreakerHalfOpen:
		n.consecutiveFailures++
		to = BreakerOpen
	default:
		n.consecutiveFailures++
		to = n.state
		if n.consecutiveFailures >= n.cfg.FailureThreshold {
			to = BreakerOpen
		}
	}

	if to == n.state {
		n.mu.Unlock()
		return
	}
	if to == BreakerOpen {
		n.openedAt = n.now()
	}
	from = n.moveLocked(to)
	n.mu.Unlock()
	n.notify(from, to)
}

func (n *ProtectedNotifier) moveLocked(to BreakerState) BreakerState {
	from := n.state
	n.state = to
	return from
}

func (n *ProtectedNotifier) notify(from, to BreakerState) {
	if n.cfg.OnStateChange != nil && from != to {
		n.cfg.OnStateChange(from, to)
	}
}
