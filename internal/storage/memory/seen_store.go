package memory

import (
	"context"
	"sync"
	"time"

	"guild-scout/internal/domain"
	"guild-scout/internal/storage"
)

// SeenStore is an in-memory implementation of storage.SeenStore.
type SeenStore struct {
	mu   sync.RWMutex
	data map[string]*domain.SeenRecord // keyed by Identity.Key()
}

// NewSeenStore creates a new in-memory seen store.
func NewSeenStore() *SeenStore {
	return &SeenStore{
		data: make(map[string]*domain.SeenRecord),
	}
}

// Get retrieves the full record for an identity.
func (s *SeenStore) Get(_ context.Context, id domain.Identity) (*domain.SeenRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, exists := s.data[id.Key()]
	if !exists {
		return nil, storage.ErrNotFound
	}

	// Return a copy
	recCopy := *rec
	return &recCopy, nil
}

// GetLastSeenAt retrieves only last_seen_at for an identity.
func (s *SeenStore) GetLastSeenAt(_ context.Context, id domain.Identity) (time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, exists := s.data[id.Key()]
	if !exists {
		return time.Time{}, storage.ErrNotFound
	}
	return rec.LastSeenAt, nil
}

// UpsertSeen records an observation at listedAt. The whole
// read-modify-write happens under the lock, matching the
// compare-and-set semantics of the Postgres implementation:
// last_seen_at only moves forward, first_seen_at never changes.
func (s *SeenStore) UpsertSeen(_ context.Context, id domain.Identity, listedAt time.Time) error {
	if id.Name == "" || id.Realm == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, exists := s.data[id.Key()]
	if !exists {
		s.data[id.Key()] = &domain.SeenRecord{
			Identity:    id,
			FirstSeenAt: listedAt,
			LastSeenAt:  listedAt,
		}
		return nil
	}

	if listedAt.After(rec.LastSeenAt) {
		rec.LastSeenAt = listedAt
	}
	return nil
}

// CountSeen returns the number of tracked identities.
func (s *SeenStore) CountSeen(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data), nil
}

// PurgeOlderThan removes records whose last_seen_at is before cutoff.
func (s *SeenStore) PurgeOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed int64
	for key, rec := range s.data {
		if rec.LastSeenAt.Before(cutoff) {
			delete(s.data, key)
			removed++
		}
	}
	return removed, nil
}

// Verify interface compliance at compile time.
var _ storage.SeenStore = (*SeenStore)(nil)
