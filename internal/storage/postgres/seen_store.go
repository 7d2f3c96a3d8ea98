package postgres

import (
	"context"
	"fmt"
	"time"

	"guild-scout/internal/domain"
	"guild-scout/internal/storage"
)

// SeenStore implements storage.SeenStore using PostgreSQL.
type SeenStore struct {
	pool *Pool
}

// NewSeenStore creates a new SeenStore.
func NewSeenStore(pool *Pool) *SeenStore {
	return &SeenStore{pool: pool}
}

// Compile-time interface check.
var _ storage.SeenStore = (*SeenStore)(nil)

// Get retrieves the full record for an identity. Returns ErrNotFound
// if the identity has never been seen.
func (s *SeenStore) Get(ctx context.Context, id domain.Identity) (*domain.SeenRecord, error) {
	query := `
		SELECT character_name, realm, first_seen_at, last_seen_at
		FROM seen_players
		WHERE LOWER(character_name) = LOWER($1) AND LOWER(realm) = LOWER($2)
	`

	var rec domain.SeenRecord
	err := s.pool.QueryRow(ctx, query, id.Name, id.Realm).Scan(
		&rec.Identity.Name,
		&rec.Identity.Realm,
		&rec.FirstSeenAt,
		&rec.LastSeenAt,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get seen record: %w", err)
	}
	return &rec, nil
}

// GetLastSeenAt retrieves only last_seen_at for an identity.
func (s *SeenStore) GetLastSeenAt(ctx context.Context, id domain.Identity) (time.Time, error) {
	query := `
		SELECT last_seen_at
		FROM seen_players
		WHERE LOWER(character_name) = LOWER($1) AND LOWER(realm) = LOWER($2)
	`

	var lastSeen time.Time
	err := s.pool.QueryRow(ctx, query, id.Name, id.Realm).Scan(&lastSeen)
	if err != nil {
		if isNotFoundError(err) {
			return time.Time{}, storage.ErrNotFound
		}
		return time.Time{}, fmt.Errorf("get last seen at: %w", err)
	}
	return lastSeen, nil
}

// UpsertSeen records an observation at listedAt. The statement is a
// single compare-and-set: the conflict branch only advances
// last_seen_at when the stored value is older, so concurrent upserts
// for the same identity cannot move it backwards, and first_seen_at is
// never rewritten.
func (s *SeenStore) UpsertSeen(ctx context.Context, id domain.Identity, listedAt time.Time) error {
	if id.Name == "" || id.Realm == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO seen_players (character_name, realm, first_seen_at, last_seen_at)
		VALUES ($1, $2, $3, $3)
		ON CONFLICT (LOWER(character_name), LOWER(realm)) DO UPDATE
		SET last_seen_at = EXCLUDED.last_seen_at
		WHERE seen_players.last_seen_at < EXCLUDED.last_seen_at
	`

	_, err := s.pool.Exec(ctx, query, id.Name, id.Realm, listedAt.UTC())
	if err != nil {
		return fmt.Errorf("upsert seen record: %w", err)
	}
	return nil
}

// CountSeen returns the number of tracked identities.
func (s *SeenStore) CountSeen(ctx context.Context) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM seen_players`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count seen records: %w", err)
	}
	return count, nil
}

// PurgeOlderThan removes records whose last_seen_at is before cutoff.
func (s *SeenStore) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM seen_players WHERE last_seen_at < $1`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("purge seen records: %w", err)
	}
	return tag.RowsAffected(), nil
}
