package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"guild-scout/internal/domain"
	"guild-scout/internal/storage"
)

// BlacklistStore is an in-memory implementation of storage.BlacklistStore.
type BlacklistStore struct {
	mu   sync.RWMutex
	data map[string]*domain.BlacklistRecord // keyed by Identity.Key()
}

// NewBlacklistStore creates a new in-memory blacklist store.
func NewBlacklistStore() *BlacklistStore {
	return &BlacklistStore{
		data: make(map[string]*domain.BlacklistRecord),
	}
}

// IsBlacklisted reports whether an identity is blacklisted.
func (s *BlacklistStore) IsBlacklisted(_ context.Context, id domain.Identity) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, exists := s.data[id.Key()]
	return exists, nil
}

// Add inserts or updates a blacklist entry with an optional reason.
func (s *BlacklistStore) Add(_ context.Context, id domain.Identity, reason string) error {
	if id.Name == "" || id.Realm == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[id.Key()] = &domain.BlacklistRecord{
		Identity:      id,
		Reason:        reason,
		BlacklistedAt: time.Now().UTC(),
	}
	return nil
}

// Remove deletes the blacklist entry for an identity, if any.
func (s *BlacklistStore) Remove(_ context.Context, id domain.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.data, id.Key())
	return nil
}

// List retrieves all blacklist entries ordered by blacklisted_at.
func (s *BlacklistStore) List(_ context.Context) ([]*domain.BlacklistRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var records []*domain.BlacklistRecord
	for _, rec := range s.data {
		recCopy := *rec
		records = append(records, &recCopy)
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].BlacklistedAt.Before(records[j].BlacklistedAt)
	})

	return records, nil
}

// Verify interface compliance at compile time.
var _ storage.BlacklistStore = (*BlacklistStore)(nil)
