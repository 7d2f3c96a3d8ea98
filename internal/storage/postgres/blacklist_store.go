package postgres

import (
	"context"
	"fmt"
	"time"

	"guild-scout/internal/domain"
	"guild-scout/internal/storage"
)

// BlacklistStore implements storage.BlacklistStore using PostgreSQL.
type BlacklistStore struct {
	pool *Pool
}

// NewBlacklistStore creates a new BlacklistStore.
func NewBlacklistStore(pool *Pool) *BlacklistStore {
	return &BlacklistStore{pool: pool}
}

// Compile-time interface check.
var _ storage.BlacklistStore = (*BlacklistStore)(nil)

// IsBlacklisted reports whether an identity is blacklisted.
func (s *BlacklistStore) IsBlacklisted(ctx context.Context, id domain.Identity) (bool, error) {
	query := `
		SELECT COUNT(1)
		FROM blacklisted_players
		WHERE LOWER(character_name) = LOWER($1) AND LOWER(realm) = LOWER($2)
	`

	var count int
	if err := s.pool.QueryRow(ctx, query, id.Name, id.Realm).Scan(&count); err != nil {
		return false, fmt.Errorf("check blacklist: %w", err)
	}
	return count > 0, nil
}

// Add inserts or updates a blacklist entry with an optional reason.
func (s *BlacklistStore) Add(ctx context.Context, id domain.Identity, reason string) error {
	if id.Name == "" || id.Realm == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO blacklisted_players (character_name, realm, reason, blacklisted_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (LOWER(character_name), LOWER(realm)) DO UPDATE
		SET reason = EXCLUDED.reason, blacklisted_at = EXCLUDED.blacklisted_at
	`

	_, err := s.pool.Exec(ctx, query, id.Name, id.Realm, reason, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("add blacklist entry: %w", err)
	}
	return nil
}

// Remove deletes the blacklist entry for an identity, if any.
func (s *BlacklistStore) Remove(ctx context.Context, id domain.Identity) error {
	query := `
		DELETE FROM blacklisted_players
		WHERE LOWER(character_name) = LOWER($1) AND LOWER(realm) = LOWER($2)
	`

	_, err := s.pool.Exec(ctx, query, id.Name, id.Realm)
	if err != nil {
		return fmt.Errorf("remove blacklist entry: %w", err)
	}
	return nil
}

// List retrieves all blacklist entries ordered by blacklisted_at.
func (s *BlacklistStore) List(ctx context.Context) ([]*domain.BlacklistRecord, error) {
	query := `
		SELECT character_name, realm, reason, blacklisted_at
		FROM blacklisted_players
		ORDER BY blacklisted_at ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list blacklist entries: %w", err)
	}
	defer rows.Close()

	var records []*domain.BlacklistRecord
	for rows.Next() {
		var rec domain.BlacklistRecord
		if err := rows.Scan(
			&rec.Identity.Name,
			&rec.Identity.Realm,
			&rec.Reason,
			&rec.BlacklistedAt,
		); err != nil {
			return nil, fmt.Errorf("scan blacklist row: %w", err)
		}
		records = append(records, &rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate blacklist rows: %w", err)
	}

	return records, nil
}
