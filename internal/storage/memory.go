// Package storage provides watch-list store implementations.
package storage

import (
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/hammamikhairi/announcer/internal/domain"
	"github.com/hammamikhairi/announcer/internal/logger"
)

// Compile-time interface check.
var _ domain.ScheduleStore = (*MemoryStore)(nil)

// MemoryStore is an in-memory watch list. Safe for concurrent access.
// Values are copied in and out, so callers never share a Variables map
// with the store.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]domain.Announcement
	log   *logger.Logger
}

// NewMemoryStore creates an empty in-memory watch list.
func NewMemoryStore(log *logger.Logger) *MemoryStore {
	return &MemoryStore{
		items: make(map[string]domain.Announcement),
		log:   log,
	}
}

// Save stores an announcement. Overwrites if the ID already exists.
func (s *MemoryStore) Save(ctx context.Context, a domain.Announcement) error {
	if a.ID == "" {
		return domain.ErrInvalidAnnouncement
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.log.Debug("saving %s (repeat=%s, at=%s)", a.ID, a.Repeat, a.PlayTime.Format(domain.TimeLayout))
	s.items[a.ID] = clone(a)
	return nil
}

// Load retrieves an announcement by ID.
func (s *MemoryStore) Load(ctx context.Context, id string) (domain.Announcement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.items[id]
	if !ok {
		s.log.Debug("announcement not found: %s", id)
		return domain.Announcement{}, domain.ErrNotFound
	}
	return clone(a), nil
}

// Delete removes an announcement by ID.
func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[id]; !ok {
		return domain.ErrNotFound
	}
	delete(s.items, id)
	s.log.Debug("deleted %s", id)
	return nil
}

// List returns every announcement in queue order, ties broken by ID.
func (s *MemoryStore) List(ctx context.Context) ([]domain.Announcement, error) {
	s.mu.RLock()
	out := make([]domain.Announcement, 0, len(s.items))
	for _, a := range s.items {
		out = append(out, clone(a))
	}
	s.mu.RUnlock()

	slices.SortFunc(out, func(a, b domain.Announcement) int {
		switch {
		case a.Less(b):
			return -1
		case b.Less(a):
			return 1
		}
		if a.ID < b.ID {
			return -1
		}
		if a.ID > b.ID {
			return 1
		}
		return 0
	})
	s.log.Debug("listing watch list, count=%d", len(out))
	return out, nil
}

func clone(a domain.Announcement) domain.Announcement {
	a.Variables = maps.Clone(a.Variables)
	return a
}
