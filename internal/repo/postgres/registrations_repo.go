package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/geocoder89/rollcall/internal/domain/registration"
	"github.com/geocoder89/rollcall/internal/observability"
	"github.com/geocoder89/rollcall/internal/utils"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// querier is satisfied by both the pool and a transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type RegistrationRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewRegistrationsRepo(pool *pgxpool.Pool, prom *observability.Prom) *RegistrationRepo {
	return &RegistrationRepo{
		pool: pool,
		prom: prom,
	}
}

func (repo *RegistrationRepo) observe(op string, fn func() error) error {
	if repo.prom != nil {
		return repo.prom.ObserveDB(op, fn)
	}
	return fn()
}

func (repo *RegistrationRepo) Ping(ctx context.Context) error {
	return repo.pool.Ping(ctx)
}

// inTx runs fn in a transaction, retrying the whole unit on transient
// failures.
func (repo *RegistrationRepo) inTx(ctx context.Context, op string, fn func(tx pgx.Tx) error) error {
	return withRetry(ctx, func() error {
		return repo.observe(op, func() error {
			tx, err := repo.pool.BeginTx(ctx, pgx.TxOptions{})
			if err != nil {
				return err
			}
			defer func() { _ = tx.Rollback(ctx) }()

			if err := fn(tx); err != nil {
				return err
			}
			return tx.Commit(ctx)
		})
	})
}

// Create inserts the registration, one participant row per email and the
// member rows in one transaction. The (event_id, email) primary key on
// registration_participants is what enforces uniqueness, so two racing
// creates cannot both succeed. Emails are inserted one at a time so the
// colliding one can be reported.
func (repo *RegistrationRepo) Create(ctx context.Context, reg registration.Registration) error {
	return repo.inTx(ctx, "registrations.create", func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO registrations
				(id, event_id, team_name, leader_user_id, leader_name, leader_email,
				 status, checked_in, qr_code, created_at, updated_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		`, reg.ID, reg.EventID, reg.TeamName, reg.Leader.UserID, reg.Leader.Name, reg.Leader.Email,
			string(reg.Status), reg.CheckedIn, reg.QRCode, reg.CreatedAt, reg.UpdatedAt)
		if err != nil {
			return err
		}

		for _, email := range reg.Emails() {
			_, err = tx.Exec(ctx, `
				INSERT INTO registration_participants (event_id, email, registration_id)
				VALUES ($1,$2,$3)
			`, reg.EventID, email, reg.ID)
			if err != nil {
				if isConstraint(err, participantsUniq) {
					return &registration.DuplicateEmailError{Email: email}
				}
				return err
			}
		}

		for i, m := range reg.TeamMembers {
			_, err = tx.Exec(ctx, `
				INSERT INTO registration_members
					(id, registration_id, position, name, email, phone, qr_code,
					 attended, invitation_status, invitation_token)
				VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
			`, m.ID, reg.ID, i, m.Name, m.Email, m.Phone, m.QRCode,
				m.Attended, string(m.InvitationStatus), m.InvitationToken)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

const selectRegistration = `
	SELECT id, event_id, team_name, leader_user_id, leader_name, leader_email,
	       status, checked_in, qr_code, created_at, updated_at
	FROM registrations
`

func scanRegistration(row pgx.Row) (registration.Registration, error) {
	var r registration.Registration
	var status string
	err := row.Scan(&r.ID, &r.EventID, &r.TeamName, &r.Leader.UserID, &r.Leader.Name, &r.Leader.Email,
		&status, &r.CheckedIn, &r.QRCode, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return registration.Registration{}, err
	}
	r.Status = registration.Status(status)
	return r, nil
}

func loadMembers(ctx context.Context, q querier, regID string) ([]registration.TeamMember, error) {
	rows, err := q.Query(ctx, `
		SELECT id, name, email, phone, qr_code, attended, invitation_status, invitation_token
		FROM registration_members
		WHERE registration_id = $1
		ORDER BY position ASC
	`, regID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	members := make([]registration.TeamMember, 0)
	for rows.Next() {
		var m registration.TeamMember
		var status string
		if err := rows.Scan(&m.ID, &m.Name, &m.Email, &m.Phone, &m.QRCode, &m.Attended, &status, &m.InvitationToken); err != nil {
			return nil, err
		}
		m.InvitationStatus = registration.InvitationStatus(status)
		members = append(members, m)
	}
	return members, rows.Err()
}

// load reads the aggregate. forUpdate takes the row lock that serialises
// every read-modify-write on one registration.
func load(ctx context.Context, q querier, id string, forUpdate bool) (registration.Registration, error) {
	sql := selectRegistration + ` WHERE id = $1`
	if forUpdate {
		sql += ` FOR UPDATE`
	}

	r, err := scanRegistration(q.QueryRow(ctx, sql, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return registration.Registration{}, registration.ErrNotFound
		}
		return registration.Registration{}, err
	}

	r.TeamMembers, err = loadMembers(ctx, q, r.ID)
	if err != nil {
		return registration.Registration{}, err
	}
	return r, nil
}

func (repo *RegistrationRepo) GetByID(ctx context.Context, id string) (reg registration.Registration, err error) {
	err = withRetry(ctx, func() error {
		return repo.observe("registrations.get_by_id", func() error {
			var e error
			reg, e = load(ctx, repo.pool, id, false)
			return e
		})
	})
	return
}

// findID resolves an id through the given lookup query and loads it.
func (repo *RegistrationRepo) findID(ctx context.Context, op, sql string, args ...any) (reg registration.Registration, err error) {
	err = withRetry(ctx, func() error {
		return repo.observe(op, func() error {
			var id string
			e := repo.pool.QueryRow(ctx, sql, args...).Scan(&id)
			if e != nil {
				if errors.Is(e, pgx.ErrNoRows) {
					return registration.ErrNotFound
				}
				return e
			}
			reg, e = load(ctx, repo.pool, id, false)
			return e
		})
	})
	return
}

// FindByQRCode checks leader tickets before member tickets.
func (repo *RegistrationRepo) FindByQRCode(ctx context.Context, code string) (registration.Registration, error) {
	reg, err := repo.findID(ctx, "registrations.find_by_leader_qr",
		`SELECT id FROM registrations WHERE qr_code = $1`, code)
	if !errors.Is(err, registration.ErrNotFound) {
		return reg, err
	}

	return repo.findID(ctx, "registrations.find_by_member_qr",
		`SELECT registration_id FROM registration_members WHERE qr_code = $1`, code)
}

func (repo *RegistrationRepo) FindByInvitationToken(ctx context.Context, token string) (registration.Registration, error) {
	return repo.findID(ctx, "registrations.find_by_token",
		`SELECT registration_id FROM registration_members WHERE invitation_token = $1`, token)
}

func (repo *RegistrationRepo) FindByParticipantEmail(ctx context.Context, eventID, email string) (registration.Registration, error) {
	return repo.findID(ctx, "registrations.find_by_participant",
		`SELECT registration_id FROM registration_participants WHERE event_id = $1 AND email = $2`,
		eventID, registration.NormalizeEmail(email))
}

func (repo *RegistrationRepo) ListByEvent(
	ctx context.Context,
	eventID string,
	limit int,
	after *utils.Cursor,
) (items []registration.Registration, nextCursor *string, hasMore bool, err error) {
	op := "registrations.list_by_event_cursor"

	afterCreatedAt := time.Unix(0, 0).UTC()
	afterID := ""
	if after != nil {
		afterCreatedAt = after.CreatedAt
		afterID = after.ID
	}

	err = withRetry(ctx, func() error {
		return repo.observe(op, func() error {
			rows, qerr := repo.pool.Query(ctx, selectRegistration+`
				WHERE event_id = $1
				  AND (created_at, id) > ($2, $3)
				ORDER BY created_at ASC, id ASC
				LIMIT $4
			`, eventID, afterCreatedAt, afterID, limit+1)
			if qerr != nil {
				return qerr
			}
			defer rows.Close()

			items = make([]registration.Registration, 0, limit)
			for rows.Next() {
				r, scanErr := scanRegistration(rows)
				if scanErr != nil {
					return scanErr
				}
				items = append(items, r)
			}
			if rows.Err() != nil {
				return rows.Err()
			}
			rows.Close()

			for i := range items {
				members, mErr := loadMembers(ctx, repo.pool, items[i].ID)
				if mErr != nil {
					return mErr
				}
				items[i].TeamMembers = members
			}
			return nil
		})
	})
	if err != nil {
		return nil, nil, false, err
	}

	if len(items) > limit {
		hasMore = true
		items = items[:limit]
		last := items[len(items)-1]
		if nextCursor, err = utils.NextCursor(eventID, last.ID, last.CreatedAt, hasMore); err != nil {
			return nil, nil, false, err
		}
	}

	return items, nextCursor, hasMore, nil
}

// Update locks the registration row, applies mutate to the loaded aggregate
// and writes back the mutable columns in the same transaction. A mutate
// error rolls everything back.
func (repo *RegistrationRepo) Update(
	ctx context.Context,
	id string,
	mutate func(*registration.Registration) error,
) (updated registration.Registration, err error) {
	err = repo.inTx(ctx, "registrations.update", func(tx pgx.Tx) error {
		reg, e := load(ctx, tx, id, true)
		if e != nil {
			return e
		}

		if e = mutate(&reg); e != nil {
			return e
		}
		reg.UpdatedAt = time.Now().UTC()

		batch := &pgx.Batch{}
		batch.Queue(`
			UPDATE registrations
			SET status = $2, checked_in = $3, updated_at = $4
			WHERE id = $1
		`, reg.ID, string(reg.Status), reg.CheckedIn, reg.UpdatedAt)

		for _, m := range reg.TeamMembers {
			batch.Queue(`
				UPDATE registration_members
				SET attended = $3, invitation_status = $4
				WHERE id = $1 AND registration_id = $2
			`, m.ID, reg.ID, m.Attended, string(m.InvitationStatus))
		}

		br := tx.SendBatch(ctx, batch)
		for i := 0; i < batch.Len(); i++ {
			if _, e = br.Exec(); e != nil {
				_ = br.Close()
				return e
			}
		}
		if e = br.Close(); e != nil {
			return e
		}

		updated = reg
		return nil
	})
	return
}

// Delete hard-deletes a registration; member and participant rows cascade.
func (repo *RegistrationRepo) Delete(ctx context.Context, id string) error {
	var tag pgconn.CommandTag
	err := withRetry(ctx, func() error {
		return repo.observe("registrations.delete", func() error {
			var e error
			tag, e = repo.pool.Exec(ctx, `DELETE FROM registrations WHERE id = $1`, id)
			return e
		})
	})
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return registration.ErrNotFound
	}
	return nil
}
