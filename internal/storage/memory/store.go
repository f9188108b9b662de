// Package memory implements an in-memory object Store for tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"spatialcore/internal/storage/core"
)

// Store implements core.Store backed by process memory. Intended for tests.
type Store struct {
	mu   sync.RWMutex
	objs map[string][]byte
}

// New returns an in-memory object store.
func New() *Store { return &Store{objs: make(map[string][]byte)} }

// Driver returns the store driver identifier.
func (s *Store) Driver() core.Driver { return core.DriverMemory }

// Put stores a copy of data under key, replacing any previous value.
func (s *Store) Put(_ context.Context, key string, data []byte) (core.Info, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b := make([]byte, len(data))
	copy(b, data)
	s.objs[key] = b
	return core.Info{Key: key, Size: int64(len(b))}, nil
}

// Get returns a copy of the data stored under key.
func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	b, ok := s.objs[key]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", core.ErrKeyNotFound, key)
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out, nil
}

// Stat returns object metadata only.
func (s *Store) Stat(_ context.Context, key string) (core.Info, error) {
	s.mu.RLock()
	b, ok := s.objs[key]
	s.mu.RUnlock()
	if !ok {
		return core.Info{}, fmt.Errorf("%w: %s", core.ErrKeyNotFound, key)
	}
	return core.Info{Key: key, Size: int64(len(b))}, nil
}

// Delete removes the object returning true if it existed.
func (s *Store) Delete(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objs[key]
	if ok {
		delete(s.objs, key)
	}
	return ok, nil
}

// List returns all objects matching prefix.
func (s *Store) List(_ context.Context, prefix string) ([]core.Info, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.Info, 0, len(s.objs))
	for k, v := range s.objs {
		if prefix == "" || strings.HasPrefix(k, prefix) {
			out = append(out, core.Info{Key: k, Size: int64(len(v))})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

// Close is a no-op for the memory driver.
func (s *Store) Close() error { return nil }
