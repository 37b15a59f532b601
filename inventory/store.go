package inventory

import (
	"sync/atomic"
)

// Store publishes the current snapshot to any number of concurrent readers.
type Store struct {
	current atomic.Pointer[Snapshot]
}

func NewStore() *Store {
	return &Store{}
}

// Current returns the snapshot in effect, or ErrNoSnapshot.
func (s *Store) Current() (*Snapshot, error) {
	snap := s.current.Load()
	if snap == nil {
		return nil, ErrNoSnapshot
	}
	return snap, nil
}

// Swap installs next and returns the snapshot it replaced, if any.
func (s *Store) Swap(next *Snapshot) *Snapshot {
	return s.current.Swap(next)
}
