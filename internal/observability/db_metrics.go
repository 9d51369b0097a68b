package observability

import (
	"context"
	"errors"
	"time"

	"github.com/geocoder89/rollcall/internal/domain/registration"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ObserveDB times one logical storage operation. Expected business outcomes
// (missing row, duplicate email, refused mutation) are recorded as "miss"
// rather than "error" so they do not page anyone.
func (p *Prom) ObserveDB(op string, fn func() error) error {
	start := time.Now()
	err := fn()

	status := "ok"
	switch class := ClassifyDBErr(err); {
	case err == nil:
	case class == "business":
		status = "miss"
	default:
		status = "error"
		p.DbErrorsTotal.WithLabelValues(op, class).Inc()
	}

	p.DbQueryDuration.WithLabelValues(op, status).Observe(time.Since(start).Seconds())
	return err
}

// ClassifyDBErr buckets a storage error into a low-cardinality label.
func ClassifyDBErr(err error) string {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, pgx.ErrNoRows),
		errors.Is(err, registration.ErrNotFound),
		errors.Is(err, registration.ErrDuplicateRegistration),
		errors.Is(err, registration.ErrValidation),
		errors.Is(err, registration.ErrAlreadyCheckedIn),
		errors.Is(err, registration.ErrInvalidTransition):
		return "business"
	case errors.Is(err, context.DeadlineExceeded), pgconn.Timeout(err):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return "unique_violation"
		case "40001":
			return "serialization_failure"
		case "40P01":
			return "deadlock"
		case "57014":
			return "query_canceled"
		default:
			return "pg_" + pgErr.Code
		}
	}

	if pgconn.SafeToRetry(err) {
		return "connection"
	}
	return "unknown"
}
