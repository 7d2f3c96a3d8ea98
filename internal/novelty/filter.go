// Package novelty decides which raw candidates from a scan are worth
// enriching, backed by the durable seen/blacklist state.
package novelty

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"guild-scout/internal/domain"
	"guild-scout/internal/storage"
)

// Filter is the stateful gate in front of enrichment. A candidate
// passes when its identity is not blacklisted and its listing
// timestamp is strictly newer than the stored last_seen_at (or the
// identity has never been seen). Every acceptance is recorded before
// the candidate is returned, so a second occurrence of the same
// identity later in the batch observes the first occurrence's record.
type Filter struct {
	seen      storage.SeenStore
	blacklist storage.BlacklistStore
	logger    *zap.Logger
}

// FilterStats summarizes one FilterBatch call for the cycle report.
type FilterStats struct {
	Blacklisted int
	AlreadySeen int
	StoreErrors int
}

// NewFilter creates a novelty filter over the given stores.
func NewFilter(seen storage.SeenStore, blacklist storage.BlacklistStore, logger *zap.Logger) *Filter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Filter{seen: seen, blacklist: blacklist, logger: logger}
}

// FilterBatch returns the accepted subset of raw, preserving input
// order. A store failure for one candidate rejects that candidate for
// this cycle (fail-closed) and never aborts the rest of the batch.
func (f *Filter) FilterBatch(ctx context.Context, raw []domain.Player) ([]domain.Player, FilterStats) {
	var accepted []domain.Player
	var stats FilterStats

	for _, player := range raw {
		ok, err := f.admit(ctx, player, &stats)
		if err != nil {
			stats.StoreErrors++
			f.logger.Warn("skipping candidate after store error",
				zap.String("identity", player.Identity.String()),
				zap.Error(err))
			continue
		}
		if ok {
			accepted = append(accepted, player)
		}
	}

	return accepted, stats
}

// admit evaluates one candidate and records the acceptance. Only
// store failures are returned as errors.
func (f *Filter) admit(ctx context.Context, player domain.Player, stats *FilterStats) (bool, error) {
	blacklisted, err := f.blacklist.IsBlacklisted(ctx, player.Identity)
	if err != nil {
		return false, err
	}
	if blacklisted {
		stats.Blacklisted++
		f.logger.Debug("candidate is blacklisted",
			zap.String("identity", player.Identity.String()))
		return false, nil
	}

	lastSeen, err := f.seen.GetLastSeenAt(ctx, player.Identity)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		// Never seen: fall through to acceptance.
	case err != nil:
		return false, err
	case !player.ListedAt.After(lastSeen):
		// Equal timestamps mean the listing is unchanged since the
		// last scan; re-accepting would double-notify.
		stats.AlreadySeen++
		return false, nil
	}

	if err := f.seen.UpsertSeen(ctx, player.Identity, player.ListedAt); err != nil {
		return false, err
	}

	return true, nil
}
