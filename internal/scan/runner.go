package scan

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"guild-scout/internal/domain"
	"guild-scout/internal/novelty"
	"guild-scout/internal/observability"
	"guild-scout/internal/storage"
)

// Collector produces the current looking-for-guild listing.
type Collector interface {
	FetchListing(ctx context.Context) ([]domain.Player, error)
}

// Evaluator enriches one candidate and decides eligibility.
type Evaluator interface {
	EnrichAndEvaluate(ctx context.Context, player domain.Player) (domain.Verdict, *domain.Enrichment)
}

// Notifier delivers one accepted candidate.
type Notifier interface {
	NotifyCandidate(ctx context.Context, player domain.Player, enrichment domain.Enrichment, summary string) error
}

// Summarizer produces an optional evaluation text for an accepted
// candidate. An empty result means no summary.
type Summarizer interface {
	Summarize(ctx context.Context, player domain.Player, enrichment domain.Enrichment) string
}

// Default configuration values.
const (
	DefaultPollInterval    = 5 * time.Minute
	DefaultDispatchDelay   = 5 * time.Second
	DefaultRetentionWindow = 30 * 24 * time.Hour
)

// Runner drives the scan loop: fetch the listing, filter out known
// and blacklisted characters, enrich and evaluate the rest, and
// notify for every accepted candidate.
type Runner struct {
	collector       Collector
	filter          *novelty.Filter
	evaluator       Evaluator
	notifier        Notifier
	summarizer      Summarizer
	seenStore       storage.SeenStore
	pollInterval    time.Duration
	dispatchDelay   time.Duration
	retentionWindow time.Duration
	logger          *zap.Logger
	metrics         *observability.Metrics
}

// RunnerOptions contains configuration for creating a Runner.
type RunnerOptions struct {
	Collector       Collector
	Filter          *novelty.Filter
	Evaluator       Evaluator
	Notifier        Notifier
	Summarizer      Summarizer // optional
	SeenStore       storage.SeenStore
	PollInterval    time.Duration
	DispatchDelay   time.Duration // pause between notifications
	RetentionWindow time.Duration // seen records older than this are purged
	Logger          *zap.Logger
	Metrics         *observability.Metrics // optional
}

// NewRunner creates a scan runner.
func NewRunner(opts RunnerOptions) (*Runner, error) {
	if opts.Collector == nil {
		return nil, fmt.Errorf("collector is required")
	}
	if opts.Filter == nil {
		return nil, fmt.Errorf("filter is required")
	}
	if opts.Evaluator == nil {
		return nil, fmt.Errorf("evaluator is required")
	}
	if opts.Notifier == nil {
		return nil, fmt.Errorf("notifier is required")
	}
	if opts.SeenStore == nil {
		return nil, fmt.Errorf("seen store is required")
	}

	if opts.PollInterval == 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.DispatchDelay == 0 {
		opts.DispatchDelay = DefaultDispatchDelay
	}
	if opts.RetentionWindow == 0 {
		opts.RetentionWindow = DefaultRetentionWindow
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	return &Runner{
		collector:       opts.Collector,
		filter:          opts.Filter,
		evaluator:       opts.Evaluator,
		notifier:        opts.Notifier,
		summarizer:      opts.Summarizer,
		seenStore:       opts.SeenStore,
		pollInterval:    opts.PollInterval,
		dispatchDelay:   opts.DispatchDelay,
		retentionWindow: opts.RetentionWindow,
		logger:          opts.Logger,
		metrics:         opts.Metrics,
	}, nil
}

// Run executes scan cycles until the context is cancelled. The first
// cycle starts immediately; later cycles follow the poll interval. A
// failed cycle never stops the loop.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.Info("scan runner started",
		zap.Duration("poll_interval", r.pollInterval),
		zap.Duration("retention_window", r.retentionWindow))

	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()

	r.runCycle(ctx)

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("scan runner stopping")
			return ctx.Err()
		case <-ticker.C:
			r.runCycle(ctx)
		}
	}
}

// cycleReport aggregates the outcome of one scan cycle.
type cycleReport struct {
	fetched  int
	accepted int
	rejected int
	notified int
	errored  int
	stats    novelty.FilterStats
}

func (r *Runner) runCycle(ctx context.Context) {
	start := time.Now()

	report, err := r.scanOnce(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		r.logger.Error("scan cycle failed", zap.Error(err))
		if r.metrics != nil {
			r.metrics.ScanCycleErrors.Inc()
		}
		return
	}

	r.sweepRetention(ctx)

	elapsed := time.Since(start)
	r.logger.Info("scan cycle complete",
		zap.Int("fetched", report.fetched),
		zap.Int("blacklisted", report.stats.Blacklisted),
		zap.Int("already_seen", report.stats.AlreadySeen),
		zap.Int("store_errors", report.stats.StoreErrors),
		zap.Int("accepted", report.accepted),
		zap.Int("rejected", report.rejected),
		zap.Int("notified", report.notified),
		zap.Int("errored", report.errored),
		zap.Duration("elapsed", elapsed))

	if r.metrics != nil {
		r.metrics.ScanCycles.Inc()
		r.metrics.ScanCycleDuration.Observe(elapsed.Seconds())
		r.metrics.LastSuccessfulScan.SetToCurrentTime()
		r.metrics.CandidatesFetched.Add(float64(report.fetched))
		r.metrics.CandidatesAccepted.Add(float64(report.accepted))
		r.metrics.CandidatesRejected.WithLabelValues(observability.StageBlacklisted).Add(float64(report.stats.Blacklisted))
		r.metrics.CandidatesRejected.WithLabelValues(observability.StageAlreadySeen).Add(float64(report.stats.AlreadySeen))
		r.metrics.CandidatesRejected.WithLabelValues(observability.StageIneligible).Add(float64(report.rejected))
		r.metrics.NotificationsSent.Add(float64(report.notified))
		r.metrics.CandidateErrors.Add(float64(report.errored))
		if count, err := r.seenStore.CountSeen(ctx); err == nil {
			r.metrics.SeenRecords.Set(float64(count))
		}
	}
}

func (r *Runner) scanOnce(ctx context.Context) (cycleReport, error) {
	var report cycleReport

	listing, err := r.collector.FetchListing(ctx)
	if err != nil {
		return report, fmt.Errorf("fetch listing: %w", err)
	}
	report.fetched = len(listing)

	candidates, stats := r.filter.FilterBatch(ctx, listing)
	report.stats = stats

	for _, player := range candidates {
		if ctx.Err() != nil {
			return report, ctx.Err()
		}
		r.processCandidate(ctx, player, &report)
	}

	return report, nil
}

// processCandidate enriches, evaluates and (if accepted) notifies one
// candidate. Errors and panics stay inside this boundary so one bad
// candidate never takes down the rest of the cycle.
func (r *Runner) processCandidate(ctx context.Context, player domain.Player, report *cycleReport) {
	defer func() {
		if rec := recover(); rec != nil {
			report.errored++
			r.logger.Error("candidate processing panicked",
				zap.String("character", player.Identity.String()),
				zap.Any("panic", rec))
		}
	}()

	verdict, enrichment := r.evaluator.EnrichAndEvaluate(ctx, player)
	if !verdict.Accepted {
		report.rejected++
		r.logger.Info("candidate rejected",
			zap.String("character", player.Identity.String()),
			zap.String("reason", verdict.Reason))
		return
	}
	report.accepted++

	// Space out webhook deliveries.
	select {
	case <-ctx.Done():
		return
	case <-time.After(r.dispatchDelay):
	}

	var summary string
	if r.summarizer != nil {
		summary = r.summarizer.Summarize(ctx, player, *enrichment)
		if summary != "" && r.metrics != nil {
			r.metrics.SummariesGenerated.Inc()
		}
	}

	if err := r.notifier.NotifyCandidate(ctx, player, *enrichment, summary); err != nil {
		report.errored++
		if r.metrics != nil {
			r.metrics.NotificationErrors.Inc()
		}
		r.logger.Error("notification failed",
			zap.String("character", player.Identity.String()),
			zap.Error(err))
		return
	}
	report.notified++
	r.logger.Info("candidate notified",
		zap.String("character", player.Identity.String()),
		zap.String("class", player.Class),
		zap.Float64("item_level", player.ItemLevel))
}

// sweepRetention drops seen records older than the retention window so
// characters that relist after a long absence surface again.
func (r *Runner) sweepRetention(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-r.retentionWindow)
	purged, err := r.seenStore.PurgeOlderThan(ctx, cutoff)
	if err != nil {
		r.logger.Error("retention sweep failed", zap.Error(err))
		return
	}
	if purged > 0 {
		r.logger.Info("retention sweep removed records", zap.Int64("purged", purged))
		if r.metrics != nil {
			r.metrics.SeenRecordsPurged.Add(float64(purged))
		}
	}
}
