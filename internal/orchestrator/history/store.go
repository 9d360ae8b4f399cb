// Package history keeps the most recent OCR extractions in memory and fans
// them out as events.
package history

import (
	"sync"
	"time"
)

// Defaults for a Store.
const (
	DefaultMaxEntries  = 30
	DefaultEventBuffer = 100
)

// Entry is one extraction that produced new lines.
type Entry struct {
	Timestamp time.Time `json:"timestamp"`
	Display   int       `json:"display"`
	App       string    `json:"app,omitempty"`
	Title     string    `json:"title,omitempty"`
	Text      string    `json:"text"`
	Lines     int       `json:"lines"`
}

// Store is a bounded in-memory log of extractions.
type Store struct {
	mu       sync.RWMutex
	entries  []Entry
	maxSize  int
	eventsCh chan Entry
	now      func() time.Time
}

// NewStore creates a store keeping at most maxEntries entries.
func NewStore(maxEntries, eventBuffer int) *Store {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	if eventBuffer < 0 {
		eventBuffer = DefaultEventBuffer
	}
	return &Store{
		entries:  make([]Entry, 0, maxEntries),
		maxSize:  maxEntries,
		eventsCh: make(chan Entry, eventBuffer),
		now:      time.Now,
	}
}

// Add stores e, stamping it when it has no timestamp, and emits it.
func (s *Store) Add(e Entry) {
	if e.Timestamp.IsZero() {
		e.Timestamp = s.now()
	}

	s.mu.Lock()
	s.entries = append(s.entries, e)
	if len(s.entries) > s.maxSize {
		s.entries = s.entries[len(s.entries)-s.maxSize:]
	}
	s.mu.Unlock()

	s.emit(e)
}

// Recent returns entries newer than window, oldest first.
func (s *Store) Recent(window time.Duration) []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cutoff := s.now().Add(-window)
	var out []Entry
	for _, e := range s.entries {
		if !e.Timestamp.Before(cutoff) {
			out = append(out, e)
		}
	}
	return out
}

// Events returns the channel new entries are emitted on.
func (s *Store) Events() <-chan Entry {
	return s.eventsCh
}

// emit is non-blocking; events are dropped when nobody keeps up.
func (s *Store) emit(e Entry) {
	select {
	case s.eventsCh <- e:
	default:
	}
}

// Entries returns a copy of all entries.
func (s *Store) Entries() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]Entry, len(s.entries))
	copy(result, s.entries)
	return result
}
