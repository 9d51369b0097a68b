package cache

import (
	"context"
	"errors"

	"github.com/geocoder89/rollcall/internal/domain/event"
	"golang.org/x/sync/singleflight"
)

type EventSource interface {
	GetByID(ctx context.Context, id string) (event.Event, error)
}

// CachedCatalog fronts the event catalog with the TTL cache. Misses for
// unknown events are not cached so a newly published event becomes visible
// immediately. Concurrent misses for one event share a single load.
type CachedCatalog struct {
	next  EventSource
	cache *Cache[event.Event]
	group singleflight.Group
}

func NewCachedCatalog(next EventSource, c *Cache[event.Event]) *CachedCatalog {
	return &CachedCatalog{next: next, cache: c}
}

func eventKey(id string) string {
	return "events:v1:" + id
}

func (c *CachedCatalog) GetByID(ctx context.Context, id string) (event.Event, error) {
	key := eventKey(id)

	if e, ok := c.cache.Get(key); ok {
		return e, nil
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		e, err := c.next.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, event.ErrNotFound) {
				c.cache.Delete(key)
			}
			return event.Event{}, err
		}
		c.cache.Set(key, e)
		return e, nil
	})
	if err != nil {
		return event.Event{}, err
	}
	return v.(event.Event), nil
}

// Invalidate drops one event, e.g. after the catalog reports a change.
func (c *CachedCatalog) Invalidate(id string) {
	c.cache.Delete(eventKey(id))
}
