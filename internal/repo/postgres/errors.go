package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

const (
	participantsUniq  = "registration_participants_event_email_uniq"
	pgUniqueViolation = "23505"
)

func isConstraint(err error, name string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation && pgErr.ConstraintName == name
}

// IsTransient reports errors worth another attempt: nothing reached the
// server, or the server aborted the transaction for concurrency reasons.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if pgconn.SafeToRetry(err) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01":
			return true
		}
	}
	return false
}
