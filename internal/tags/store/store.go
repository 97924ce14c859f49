// Package store holds the in-memory canonical tag collection the UI renders
// from. It intentionally favors clarity over performance; a user owns a
// handful of tags, not thousands.
package store

import (
	"sync"

	"github.com/theiiinsiderz/AppConnect360-sub000/internal/tags/models"
	"github.com/theiiinsiderz/AppConnect360-sub000/internal/tags/wire"
	"github.com/theiiinsiderz/AppConnect360-sub000/pkg/platform/sentinel"
)

// Store is an ordered in-memory collection of canonical tags plus the
// loading/error flags the UI layer reads. All state lives on the instance so
// independent stores (one per test, say) never share hidden state.
type Store struct {
	mu        sync.RWMutex
	tags      []models.Tag
	loading   bool
	err       string
	listeners []func()
}

func New() *Store {
	return &Store{}
}

// Subscribe registers fn to run after every state change. The returned
// function removes the subscription. Callbacks run outside the store lock.
func (s *Store) Subscribe(fn func()) func() {
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	idx := len(s.listeners) - 1
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		s.listeners[idx] = nil
		s.mu.Unlock()
	}
}

func (s *Store) notify() {
	s.mu.RLock()
	listeners := make([]func(), 0, len(s.listeners))
	for _, fn := range s.listeners {
		if fn != nil {
			listeners = append(listeners, fn)
		}
	}
	s.mu.RUnlock()

	for _, fn := range listeners {
		fn()
	}
}

// Upsert replaces the entry matching tag (by identity or code) or appends it,
// preserving insertion order. This is what guarantees exactly one canonical
// tag per identity.
func (s *Store) Upsert(tag models.Tag) {
	s.mu.Lock()
	replaced := false
	for i := range s.tags {
		if wire.SameTag(s.tags[i], tag) {
			s.tags[i] = tag
			replaced = true
			break
		}
	}
	if !replaced {
		s.tags = append(s.tags, tag)
	}
	s.mu.Unlock()
	s.notify()
}

// ReplaceAll swaps in the result of a full collection fetch. Entities absent
// from the new set are dropped; there is no explicit delete operation.
func (s *Store) ReplaceAll(tags []models.Tag) {
	s.mu.Lock()
	s.tags = append([]models.Tag(nil), tags...)
	s.mu.Unlock()
	s.notify()
}

// Get returns the tag with the given identity.
func (s *Store) Get(identity string) (models.Tag, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := range s.tags {
		if s.tags[i].Identity == identity {
			return s.tags[i], nil
		}
	}
	return models.Tag{}, sentinel.ErrNotFound
}

// Tags returns a snapshot copy of the collection in store order.
func (s *Store) Tags() []models.Tag {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Tag(nil), s.tags...)
}

// Len reports how many tags the store holds.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tags)
}

// SetPrivacy flips one privacy toggle on the identified tag and returns the
// prior value, so the optimistic mutator can restore it on rollback.
func (s *Store) SetPrivacy(identity, setting string, value bool) (prior bool, err error) {
	s.mu.Lock()
	for i := range s.tags {
		if s.tags[i].Identity == identity {
			prior = s.tags[i].Privacy.Value(setting)
			s.tags[i].Privacy = s.tags[i].Privacy.WithValue(setting, value)
			s.mu.Unlock()
			s.notify()
			return prior, nil
		}
	}
	s.mu.Unlock()
	return false, sentinel.ErrNotFound
}

// SetLoading records whether a fetch is in progress. No business logic.
func (s *Store) SetLoading(v bool) {
	s.mu.Lock()
	s.loading = v
	s.mu.Unlock()
	s.notify()
}

// SetError records a user-facing error message; "" clears it.
func (s *Store) SetError(msg string) {
	s.mu.Lock()
	s.err = msg
	s.mu.Unlock()
	s.notify()
}

func (s *Store) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// Err returns the current user-facing error message, "" when none.
func (s *Store) Err() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}
