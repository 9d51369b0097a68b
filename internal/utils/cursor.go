package utils

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"time"
)

var ErrInvalidCursor = errors.New("invalid cursor")

// Cursor is a keyset position in one event's registration listing, ordered
// by (CreatedAt, ID). It only resumes the listing it was issued for.
type Cursor struct {
	EventID   string    `json:"e"`
	CreatedAt time.Time `json:"t"`
	ID        string    `json:"i"`
}

func (c Cursor) Encode() (string, error) {
	b, err := json.Marshal(c)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// DecodeCursor rejects malformed cursors and cursors minted for another event.
func DecodeCursor(eventID, raw string) (Cursor, error) {
	b, err := base64.RawURLEncoding.DecodeString(raw)
	if err != nil || len(b) == 0 {
		return Cursor{}, ErrInvalidCursor
	}

	var c Cursor
	if err := json.Unmarshal(b, &c); err != nil {
		return Cursor{}, ErrInvalidCursor
	}
	if c.ID == "" || c.CreatedAt.IsZero() || c.EventID != eventID {
		return Cursor{}, ErrInvalidCursor
	}
	return c, nil
}

// NextCursor returns the cursor following last, or nil when there is no
// further page.
func NextCursor(eventID, lastID string, lastCreatedAt time.Time, hasMore bool) (*string, error) {
	if !hasMore {
		return nil, nil
	}
	s, err := Cursor{EventID: eventID, CreatedAt: lastCreatedAt, ID: lastID}.Encode()
	if err != nil {
		return nil, err
	}
	return &s, nil
}
