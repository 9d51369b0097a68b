package memory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/geocoder89/rollcall/internal/domain/registration"
	"github.com/geocoder89/rollcall/internal/utils"
)

var errTicketCollision = errors.New("ticket code collision")

// RegistrationsRepo keeps registrations in memory with secondary indexes on
// ticket code, invitation token and (event, email). A single mutex makes
// every write, including the uniqueness check, atomic.
type RegistrationsRepo struct {
	mu sync.RWMutex

	regs          map[string]registration.Registration
	byQRCode      map[string]string
	byToken       map[string]string
	byParticipant map[string]string

	now func() time.Time
}

func NewRegistrationsRepo() *RegistrationsRepo {
	return &RegistrationsRepo{
		regs:          make(map[string]registration.Registration),
		byQRCode:      make(map[string]string),
		byToken:       make(map[string]string),
		byParticipant: make(map[string]string),
		now:           time.Now,
	}
}

func participantKey(eventID, email string) string {
	return eventID + "\x00" + registration.NormalizeEmail(email)
}

func (r *RegistrationsRepo) Ping(context.Context) error { return nil }

func (r *RegistrationsRepo) Create(_ context.Context, reg registration.Registration) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, email := range reg.Emails() {
		if _, taken := r.byParticipant[participantKey(reg.EventID, email)]; taken {
			return &registration.DuplicateEmailError{Email: email}
		}
	}

	codes := []string{reg.QRCode}
	for _, m := range reg.TeamMembers {
		codes = append(codes, m.QRCode)
		if _, taken := r.byToken[m.InvitationToken]; taken {
			return errTicketCollision
		}
	}
	for _, c := range codes {
		if _, taken := r.byQRCode[c]; taken {
			return errTicketCollision
		}
	}

	for _, email := range reg.Emails() {
		r.byParticipant[participantKey(reg.EventID, email)] = reg.ID
	}
	for _, c := range codes {
		r.byQRCode[c] = reg.ID
	}
	for _, m := range reg.TeamMembers {
		r.byToken[m.InvitationToken] = reg.ID
	}
	r.regs[reg.ID] = reg.Clone()

	return nil
}

func (r *RegistrationsRepo) GetByID(_ context.Context, id string) (registration.Registration, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.get(id)
}

func (r *RegistrationsRepo) get(id string) (registration.Registration, error) {
	reg, ok := r.regs[id]
	if !ok {
		return registration.Registration{}, registration.ErrNotFound
	}
	return reg.Clone(), nil
}

func (r *RegistrationsRepo) lookup(index map[string]string, key string) (registration.Registration, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := index[key]
	if !ok {
		return registration.Registration{}, registration.ErrNotFound
	}
	return r.get(id)
}

func (r *RegistrationsRepo) FindByQRCode(_ context.Context, code string) (registration.Registration, error) {
	return r.lookup(r.byQRCode, code)
}

func (r *RegistrationsRepo) FindByInvitationToken(_ context.Context, token string) (registration.Registration, error) {
	return r.lookup(r.byToken, token)
}

func (r *RegistrationsRepo) FindByParticipantEmail(_ context.Context, eventID, email string) (registration.Registration, error) {
	return r.lookup(r.byParticipant, participantKey(eventID, email))
}

// ListByEvent pages through an event's registrations ordered by
// (createdAt, id), resuming strictly after the cursor when one is given.
func (r *RegistrationsRepo) ListByEvent(
	_ context.Context,
	eventID string,
	limit int,
	after *utils.Cursor,
) (items []registration.Registration, nextCursor *string, hasMore bool, err error) {
	r.mu.RLock()
	all := make([]registration.Registration, 0)
	for _, reg := range r.regs {
		if reg.EventID == eventID {
			all = append(all, reg.Clone())
		}
	}
	r.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].ID < all[j].ID
		}
		return all[i].CreatedAt.Before(all[j].CreatedAt)
	})

	items = make([]registration.Registration, 0, limit)
	for _, reg := range all {
		if after != nil {
			if reg.CreatedAt.Before(after.CreatedAt) {
				continue
			}
			if reg.CreatedAt.Equal(after.CreatedAt) && reg.ID <= after.ID {
				continue
			}
		}
		items = append(items, reg)
		if len(items) > limit {
			break
		}
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

// Update runs mutate against a private copy under the write lock and
// persists only the mutable fields: status, checkedIn and each member's
// attendance and invitation status. A mutate error leaves the record
// untouched.
func (r *RegistrationsRepo) Update(
	_ context.Context,
	id string,
	mutate func(*registration.Registration) error,
) (registration.Registration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.regs[id]
	if !ok {
		return registration.Registration{}, registration.ErrNotFound
	}

	working := current.Clone()
	if err := mutate(&working); err != nil {
		return registration.Registration{}, err
	}

	next := current.Clone()
	next.Status = working.Status
	next.CheckedIn = working.CheckedIn
	for i := range next.TeamMembers {
		if i >= len(working.TeamMembers) {
			break
		}
		next.TeamMembers[i].Attended = working.TeamMembers[i].Attended
		next.TeamMembers[i].InvitationStatus = working.TeamMembers[i].InvitationStatus
	}
	next.UpdatedAt = r.now().UTC()

	r.regs[id] = next
	return next.Clone(), nil
}

func (r *RegistrationsRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	reg, ok := r.regs[id]
	if !ok {
		return registration.ErrNotFound
	}

	for _, email := range reg.Emails() {
		delete(r.byParticipant, participantKey(reg.EventID, email))
	}
	delete(r.byQRCode, reg.QRCode)
	for _, m := range reg.TeamMembers {
		delete(r.byQRCode, m.QRCode)
		delete(r.byToken, m.InvitationToken)
	}
	delete(r.regs, id)

	return nil
}
