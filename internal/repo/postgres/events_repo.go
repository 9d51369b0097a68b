package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/geocoder89/rollcall/internal/domain/event"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// EventsRepo is the event catalog as seen by registration and check-in.
// Events are owned by the catalog service; Upsert only serves seeding.
type EventsRepo struct {
	pool *pgxpool.Pool
}

func NewEventsRepo(pool *pgxpool.Pool) *EventsRepo {
	return &EventsRepo{
		pool: pool,
	}
}

func (r *EventsRepo) GetByID(ctx context.Context, id string) (event.Event, error) {
	var e event.Event

	err := withRetry(ctx, func() error {
		return r.pool.QueryRow(ctx, `
			SELECT id, title, registration_start_date, registration_end_date,
			       start_date, end_date, created_at, updated_at
			FROM events
			WHERE id = $1
		`, id).Scan(&e.ID, &e.Title, &e.RegistrationStartDate, &e.RegistrationEndDate,
			&e.StartDate, &e.EndDate, &e.CreatedAt, &e.UpdatedAt)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return event.Event{}, event.ErrNotFound
		}
		return event.Event{}, err
	}

	return e, nil
}

// Upsert writes e, replacing title and dates when the id already exists.
func (r *EventsRepo) Upsert(ctx context.Context, e event.Event) error {
	now := time.Now().UTC()
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	return withRetry(ctx, func() error {
		_, err := r.pool.Exec(ctx, `
			INSERT INTO events
				(id, title, registration_start_date, registration_end_date,
				 start_date, end_date, created_at, updated_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
			ON CONFLICT (id) DO UPDATE SET
				title = EXCLUDED.title,
				registration_start_date = EXCLUDED.registration_start_date,
				registration_end_date = EXCLUDED.registration_end_date,
				start_date = EXCLUDED.start_date,
				end_date = EXCLUDED.end_date,
				updated_at = EXCLUDED.updated_at
		`, e.ID, e.Title, e.RegistrationStartDate, e.RegistrationEndDate,
			e.StartDate, e.EndDate, e.CreatedAt, now)
		return err
	})
}
