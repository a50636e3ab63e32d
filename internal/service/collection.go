package service

import (
	"sync"
	"time"

	"github.com/enrolldesk/enrolldesk-api/internal/models"
)

// ChangeType classifies a collection change event.
type ChangeType string

// Collection change kinds.
const (
	ChangeReplaced ChangeType = "replaced"
	ChangeUpserted ChangeType = "upserted"
	ChangePatched  ChangeType = "patched"
	ChangeRemoved  ChangeType = "removed"
)

// ChangeEvent describes a mutation applied to the cached collection.
type ChangeEvent struct {
	Type ChangeType
	IDs  []string
	Size int
}

// EnrollmentCollection is the engine's exclusively-owned snapshot of the
// remote enrollment collection. Handlers and views read copies; only the
// engine services mutate it, and only after the remote store confirmed the
// corresponding write. The mutex exists because HTTP handlers run on
// separate goroutines, not because the engine interleaves its own writes.
type EnrollmentCollection struct {
	mu    sync.RWMutex
	items map[string]models.EnrollmentDetail
	subs  []func(ChangeEvent)
}

// NewEnrollmentCollection constructs an empty collection.
func NewEnrollmentCollection() *EnrollmentCollection {
	return &EnrollmentCollection{items: make(map[string]models.EnrollmentDetail)}
}

// Subscribe registers a callback invoked after every mutation. Callbacks
// run synchronously on the mutating goroutine and must not call back into
// the collection.
func (c *EnrollmentCollection) Subscribe(fn func(ChangeEvent)) {
	if fn == nil {
		return
	}
	c.mu.Lock()
	c.subs = append(c.subs, fn)
	c.mu.Unlock()
}

// Replace swaps the entire cached collection for a fresh remote snapshot.
func (c *EnrollmentCollection) Replace(enrollments []models.EnrollmentDetail) {
	c.mu.Lock()
	items := make(map[string]models.EnrollmentDetail, len(enrollments))
	ids := make([]string, 0, len(enrollments))
	for _, e := range enrollments {
		items[e.ID] = e
		ids = append(ids, e.ID)
	}
	c.items = items
	size := len(items)
	c.mu.Unlock()
	c.publish(ChangeEvent{Type: ChangeReplaced, IDs: ids, Size: size})
}

// Upsert inserts or overwrites a single record.
func (c *EnrollmentCollection) Upsert(detail models.EnrollmentDetail) {
	c.mu.Lock()
	c.items[detail.ID] = detail
	size := len(c.items)
	c.mu.Unlock()
	c.publish(ChangeEvent{Type: ChangeUpserted, IDs: []string{detail.ID}, Size: size})
}

// ApplyStatusPatch merges a confirmed remote status update into the cached
// records. The confirmed date is always taken from the patch, never from
// the stored value, so records that drifted out of line with the
// date-iff-confirmed invariant are corrected here. Returns how many cached
// records matched; ids unknown to the cache are skipped silently since the
// remote store already holds their truth.
func (c *EnrollmentCollection) ApplyStatusPatch(ids []string, status models.EnrollmentStatus, confirmedDate *time.Time) int {
	c.mu.Lock()
	matched := make([]string, 0, len(ids))
	for _, id := range ids {
		e, ok := c.items[id]
		if !ok {
			continue
		}
		e.Status = status
		if confirmedDate != nil {
			d := *confirmedDate
			e.ConfirmedDate = &d
		} else {
			e.ConfirmedDate = nil
		}
		c.items[id] = e
		matched = append(matched, id)
	}
	size := len(c.items)
	c.mu.Unlock()
	if len(matched) > 0 {
		c.publish(ChangeEvent{Type: ChangePatched, IDs: matched, Size: size})
	}
	return len(matched)
}

// Remove drops a record from the cache.
func (c *EnrollmentCollection) Remove(id string) bool {
	c.mu.Lock()
	_, ok := c.items[id]
	if ok {
		delete(c.items, id)
	}
	size := len(c.items)
	c.mu.Unlock()
	if ok {
		c.publish(ChangeEvent{Type: ChangeRemoved, IDs: []string{id}, Size: size})
	}
	return ok
}

// Get returns a copy of one cached record.
func (c *EnrollmentCollection) Get(id string) (models.EnrollmentDetail, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.items[id]
	return e, ok
}

// Snapshot returns a copy of every cached record. Order is unspecified;
// views apply their own ordering.
func (c *EnrollmentCollection) Snapshot() []models.EnrollmentDetail {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]models.EnrollmentDetail, 0, len(c.items))
	for _, e := range c.items {
		out = append(out, e)
	}
	return out
}

// Len reports the cached collection size.
func (c *EnrollmentCollection) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

func (c *EnrollmentCollection) publish(event ChangeEvent) {
	c.mu.RLock()
	subs := make([]func(ChangeEvent), len(c.subs))
	copy(subs, c.subs)
	c.mu.RUnlock()
	for _, fn := range subs {
		fn(event)
	}
}
