// Package queue provides the ordered work queue with loop-replay support.
package queue

import (
	"sync"
	"time"

	"github.com/cockroachdb/errors"

	"cueloop/internal/domain/item"
)

// ErrNotFound is returned when an id is not present in the queue.
var ErrNotFound = errors.New("item not found")

// Store holds the pending queue and the replay template.
//
// pending is consumed destructively front-to-back by the orchestrator.
// template mirrors every enqueued item and is used to repopulate pending
// when looping is enabled. Both slices hold the same *item.Item pointers,
// so a pre-fetch that fills in Source is visible on loop replay.
//
// Invariant: every id in pending also exists in template, and pending
// preserves template's relative order.
type Store struct {
	mu       sync.Mutex
	pending  []*item.Item
	template []*item.Item
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		pending:  make([]*item.Item, 0),
		template: make([]*item.Item, 0),
	}
}

// Enqueue appends a reference to both pending and template and returns
// a copy of the created item. Ids are collision-checked against the
// template.
func (s *Store) Enqueue(reference string) item.Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.enqueueLocked(reference)
}

// EnqueueBatch appends multiple references, preserving their order.
func (s *Store) EnqueueBatch(references []string) []item.Item {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := make([]item.Item, 0, len(references))
	for _, ref := range references {
		items = append(items, *s.enqueueLocked(ref))
	}
	return items
}

func (s *Store) enqueueLocked(reference string) *item.Item {
	it := &item.Item{
		ID:        newID(s.idTakenLocked),
		Reference: reference,
		AddedAt:   time.Now(),
	}
	s.pending = append(s.pending, it)
	s.template = append(s.template, it)
	return it
}

func (s *Store) idTakenLocked(id string) bool {
	for _, it := range s.template {
		if it.ID == id {
			return true
		}
	}
	return false
}

// DequeueFront removes and returns the first pending item.
func (s *Store) DequeueFront() (*item.Item, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.pending) == 0 {
		return nil, false
	}
	it := s.pending[0]
	s.pending = s.pending[1:]
	return it, true
}

// RemoveByID removes the item from both pending and template and returns
// a copy. Returns ErrNotFound if the id is absent from the template.
func (s *Store) RemoveByID(id string) (item.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed *item.Item
	for i, it := range s.template {
		if it.ID == id {
			removed = it
			s.template = append(s.template[:i], s.template[i+1:]...)
			break
		}
	}
	if removed == nil {
		return item.Item{}, errors.Wrapf(ErrNotFound, "id %s", id)
	}

	for i, it := range s.pending {
		if it.ID == id {
			s.pending = append(s.pending[:i], s.pending[i+1:]...)
			break
		}
	}
	return *removed, nil
}

// SetSource records the resolved local source for an item. All Source
// writes go through here so listing and removal copies never observe a
// torn write.
func (s *Store) SetSource(it *item.Item, source string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	it.Source = source
}

// Snapshot returns a read-only copy of the pending items for listing.
func (s *Store) Snapshot() []item.Item {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]item.Item, len(s.pending))
	for i, it := range s.pending {
		out[i] = *it
	}
	return out
}

// RefillFromTemplate replaces pending with a fresh ordered copy of the
// template. Only meaningful when pending is empty and looping is enabled;
// items keep their fetched Source so a replay reuses the local copy.
func (s *Store) RefillFromTemplate() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pending = make([]*item.Item, len(s.template))
	copy(s.pending, s.template)
}

// Clear empties both pending and template.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pending = s.pending[:0]
	s.template = s.template[:0]
}

// Len returns the number of pending items.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// TemplateLen returns the number of template items.
func (s *Store) TemplateLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.template)
}
