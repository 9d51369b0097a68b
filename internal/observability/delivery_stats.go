package observability

import (
	"sync"
	"time"
)

const (
	OutcomeDelivered = "done"
	OutcomeRetried   = "retry"
	OutcomeDead      = "dead"
)

type DeliveryCounts struct {
	Dequeued     uint64 `json:"dequeued"`
	Delivered    uint64 `json:"delivered"`
	Retried      uint64 `json:"retried"`
	DeadLettered uint64 `json:"deadLettered"`
}

func (c *DeliveryCounts) add(o DeliveryCounts) {
	c.Dequeued += o.Dequeued
	c.Delivered += o.Delivered
	c.Retried += o.Retried
	c.DeadLettered += o.DeadLettered
}

// DeliveryStats is the worker's in-process tally of notification jobs,
// broken down by job type. Prometheus carries the same data for scraping;
// this copy backs the worker's /stats page.
type DeliveryStats struct {
	mu     sync.Mutex
	byType map[string]*DeliveryCounts

	durationCount int64
	durationTotal time.Duration
	durationMax   time.Duration

	lastFailureAt time.Time
	lastError     string
}

func NewDeliveryStats() *DeliveryStats {
	return &DeliveryStats{byType: make(map[string]*DeliveryCounts)}
}

func (s *DeliveryStats) counts(jobType string) *DeliveryCounts {
	c, ok := s.byType[jobType]
	if !ok {
		c = &DeliveryCounts{}
		s.byType[jobType] = c
	}
	return c
}

func (s *DeliveryStats) Dequeued(jobType string) {
	s.mu.Lock()
	s.counts(jobType).Dequeued++
	s.mu.Unlock()
}

// Record tallies one finished attempt. cause is nil for deliveries.
func (s *DeliveryStats) Record(jobType, outcome string, d time.Duration, cause error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.counts(jobType)
	switch outcome {
	case OutcomeDelivered:
		c.Delivered++
	case OutcomeRetried:
		c.Retried++
	case OutcomeDead:
		c.DeadLettered++
	}

	s.durationCount++
	s.durationTotal += d
	if d > s.durationMax {
		s.durationMax = d
	}

	if cause != nil {
		s.lastFailureAt = time.Now().UTC()
		s.lastError = cause.Error()
	}
}

type DeliverySnapshot struct {
	Totals          DeliveryCounts            `json:"totals"`
	ByType          map[string]DeliveryCounts `json:"byType"`
	AverageDuration time.Duration             `json:"-"`
	MaxDuration     time.Duration             `json:"-"`
	LastFailureAt   *time.Time                `json:"lastFailureAt,omitempty"`
	LastError       string                    `json:"lastError,omitempty"`
}

func (s *DeliveryStats) Snapshot() DeliverySnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := DeliverySnapshot{
		ByType:      make(map[string]DeliveryCounts, len(s.byType)),
		MaxDuration: s.durationMax,
		LastError:   s.lastError,
	}
	for t, c := range s.byType {
		out.ByType[t] = *c
		out.Totals.add(*c)
	}
	if s.durationCount > 0 {
		out.AverageDuration = s.durationTotal / time.Duration(s.durationCount)
	}
	if !s.lastFailureAt.IsZero() {
		at := s.lastFailureAt
		out.LastFailureAt = &at
	}
	return out
}
