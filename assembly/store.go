package assembly

import (
	"context"
	"sync"

	"github.com/kulmaganbetov/overbot123/models"
)

// MemoryStore keeps builds in process memory.
type MemoryStore struct {
	mu     sync.RWMutex
	builds map[string]models.Build
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{builds: make(map[string]models.Build)}
}

func (s *MemoryStore) Get(_ context.Context, sessionID string) (models.Build, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.builds[sessionID].Clone(), nil
}

func (s *MemoryStore) Save(_ context.Context, sessionID string, build models.Build) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.builds[sessionID] = build.Clone()
	return nil
}

// keyedMutex serializes work per key and forgets keys nobody holds.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*refMutex
}

type refMutex struct {
	sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*refMutex)}
}

// Lock blocks until key is free and returns the matching unlock.
func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &refMutex{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
