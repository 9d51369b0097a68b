package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/geocoder89/rollcall/internal/domain/event"
)

// EventsRepo is an in-process EventCatalog used in dev and tests.
type EventsRepo struct {
	mu    sync.RWMutex
	items map[string]event.Event
}

func NewEventsRepo(events ...event.Event) *EventsRepo {
	r := &EventsRepo{
		items: make(map[string]event.Event),
	}
	for _, e := range events {
		r.items[e.ID] = e
	}
	return r
}

func (r *EventsRepo) Put(e event.Event) {
	r.mu.Lock()
	r.items[e.ID] = e
	r.mu.Unlock()
}

func (r *EventsRepo) GetByID(_ context.Context, id string) (event.Event, error) {
	r.mu.RLock()
	e, ok := r.items[id]
	r.mu.RUnlock()

	if !ok {
		return event.Event{}, event.ErrNotFound
	}
	return e, nil
}

// ReadEventsFile decodes a JSON array of events used to seed a catalog.
func ReadEventsFile(path string) ([]event.Event, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read events file: %w", err)
	}

	var events []event.Event
	if err := json.Unmarshal(b, &events); err != nil {
		return nil, fmt.Errorf("decode events file: %w", err)
	}
	return events, nil
}

func LoadEventsFile(path string) (*EventsRepo, error) {
	events, err := ReadEventsFile(path)
	if err != nil {
		return nil, err
	}
	return NewEventsRepo(events...), nil
}
