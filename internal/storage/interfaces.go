package storage

import (
	"context"
	"time"

	"guild-scout/internal/domain"
)

// SeenStore provides access to seen_players storage. It is the only
// shared mutable state in the pipeline; UpsertSeen must behave as an
// atomic compare-and-set on last_seen_at so overlapping scans cannot
// regress it.
type SeenStore interface {
	// Get retrieves the full record for an identity. Returns
	// ErrNotFound if the identity has never been seen.
	Get(ctx context.Context, id domain.Identity) (*domain.SeenRecord, error)

	// GetLastSeenAt retrieves only last_seen_at for an identity.
	// Returns ErrNotFound if the identity has never been seen.
	GetLastSeenAt(ctx context.Context, id domain.Identity) (time.Time, error)

	// UpsertSeen records an observation at listedAt. On first
	// observation both first_seen_at and last_seen_at are set to
	// listedAt; afterwards last_seen_at advances to listedAt only if
	// listedAt is newer, and first_seen_at is never touched.
	UpsertSeen(ctx context.Context, id domain.Identity, listedAt time.Time) error

	// CountSeen returns the number of tracked identities.
	CountSeen(ctx context.Context) (int, error)

	// PurgeOlderThan removes records whose last_seen_at is before
	// cutoff and returns how many were removed.
	PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// BlacklistStore provides access to blacklisted_players storage.
// The scan pipeline only calls IsBlacklisted; Add, Remove and List
// serve the operator CLI.
type BlacklistStore interface {
	// IsBlacklisted reports whether an identity is blacklisted.
	IsBlacklisted(ctx context.Context, id domain.Identity) (bool, error)

	// Add inserts or updates a blacklist entry with an optional reason.
	Add(ctx context.Context, id domain.Identity, reason string) error

	// Remove deletes the blacklist entry for an identity, if any.
	Remove(ctx context.Context, id domain.Identity) error

	// List retrieves all blacklist entries.
	List(ctx context.Context) ([]*domain.BlacklistRecord, error)
}
