package blob

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// MemStore is an in-memory Store for tests and local development.
// It is safe for concurrent use.
type MemStore struct {
	mu      sync.RWMutex
	objects map[string][]byte

	// failListUntil makes the next n List calls fail with ErrUnauthorized,
	// mimicking role-assignment propagation delay.
	failListUntil int
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{objects: make(map[string][]byte)}
}

// Put stores an object.
func (s *MemStore) Put(name string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[name] = data
}

// FailListTimes makes the next n List calls fail with ErrUnauthorized.
func (s *MemStore) FailListTimes(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failListUntil = n
}

// List returns every stored object, sorted by name.
func (s *MemStore) List(ctx context.Context) ([]ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.failListUntil > 0 {
		s.failListUntil--
		s.mu.Unlock()
		return nil, ErrUnauthorized
	}
	s.mu.Unlock()

	s.mu.RLock()
	defer s.mu.RUnlock()

	objects := make([]ObjectInfo, 0, len(s.objects))
	for name, data := range s.objects {
		objects = append(objects, ObjectInfo{Name: name, Size: int64(len(data))})
	}
	sort.Slice(objects, func(i, j int) bool {
		return objects[i].Name < objects[j].Name
	})
	return objects, nil
}

// Download returns a copy of the named object's content.
func (s *MemStore) Download(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.objects[name]
	if !ok {
		return nil, fmt.Errorf("downloading %s: %w", name, ErrNotFound)
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}
