// Package enrichment gathers supplementary profiles for an accepted
// candidate from independent external sources and decides final
// eligibility.
package enrichment

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"guild-scout/internal/domain"
)

// RaidProfileClient fetches the raid-progression profile for a
// character. A nil profile with nil error means "not found".
type RaidProfileClient interface {
	CharacterProfile(ctx context.Context, region, realm, name string) (*domain.RaidProfile, error)
}

// RankingsClient fetches parse rankings for a character.
type RankingsClient interface {
	CharacterRankings(ctx context.Context, name, realmSlug, region string) (*domain.RankingsProfile, error)
}

// DetailFetcher fetches the richer per-candidate detail page. This is
// the expensive second round-trip and is only invoked after the cheap
// eligibility rules pass.
type DetailFetcher interface {
	FetchDetail(ctx context.Context, id domain.Identity) (*domain.CharacterDetail, error)
}

// Options configures an Aggregator.
type Options struct {
	RaidProfiles RaidProfileClient
	Rankings     RankingsClient
	Details      DetailFetcher

	// Region passed to profile sources, e.g. "eu".
	Region string

	// Tiers is the ordered set of tier slugs of which at least one
	// must carry the required achievement.
	Tiers []string

	// RequireCuttingEdge demands a Cutting Edge date on a configured
	// tier; when false an Ahead of the Curve date also satisfies the
	// progression rule.
	RequireCuttingEdge bool

	// RequiredLanguage, when non-empty, must appear (case-insensitive
	// substring) in the candidate's declared languages. Candidates
	// that declare no language pass the rule.
	RequiredLanguage string

	Logger *zap.Logger
}

// Aggregator merges multi-source enrichment data and applies the
// eligibility rule chain. A single source being down never fails the
// candidate; the pipeline continues with partial data.
type Aggregator struct {
	raidProfiles RaidProfileClient
	rankings     RankingsClient
	details      DetailFetcher
	region       string
	cheapRules   []rule
	detailRules  []rule
	logger       *zap.Logger
}

// rule is one named predicate of the eligibility chain. A returned
// rejection short-circuits the remaining rules.
type rule struct {
	name  string
	check func(player domain.Player, e *domain.Enrichment) domain.Verdict
}

// NewAggregator creates an Aggregator.
func NewAggregator(opts Options) *Aggregator {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	a := &Aggregator{
		raidProfiles: opts.RaidProfiles,
		rankings:     opts.Rankings,
		details:      opts.Details,
		region:       opts.Region,
		logger:       logger,
	}

	a.cheapRules = []rule{
		{name: "raid progression", check: progressionRule(opts.Tiers, opts.RequireCuttingEdge)},
	}
	a.detailRules = []rule{
		{name: "required language", check: languageRule(opts.RequiredLanguage)},
	}

	return a
}

// EnrichAndEvaluate gathers all configured sources for one candidate
// and returns the verdict together with whatever data was collected.
// A rejection is an expected outcome, not an error, and carries a
// human-readable reason.
func (a *Aggregator) EnrichAndEvaluate(ctx context.Context, player domain.Player) (domain.Verdict, *domain.Enrichment) {
	e := &domain.Enrichment{}

	a.fetchProfiles(ctx, player, e)

	if verdict := a.applyRules(a.cheapRules, player, e); !verdict.Accepted {
		return verdict, e
	}

	// Cheap rules passed; the detail page round-trip is now worth the
	// network cost.
	a.fetchDetail(ctx, player, e)

	if verdict := a.applyRules(a.detailRules, player, e); !verdict.Accepted {
		return verdict, e
	}

	return domain.Accept(), e
}

// fetchProfiles gathers the independent profile sources. The sources
// have no ordering dependency, so they run in parallel; each failure
// is captured on the enrichment as an absent field and never
// escalated.
func (a *Aggregator) fetchProfiles(ctx context.Context, player domain.Player, e *domain.Enrichment) {
	var wg sync.WaitGroup

	if a.raidProfiles != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			profile, err := a.raidProfiles.CharacterProfile(ctx, a.region, player.Identity.Realm, player.Identity.Name)
			switch {
			case err != nil:
				e.RaidErr = err.Error()
				a.logger.Debug("raid profile unavailable",
					zap.String("identity", player.Identity.String()),
					zap.Error(err))
			case profile == nil:
				e.RaidErr = "profile not found"
			default:
				e.Raid = profile
			}
		}()
	} else {
		e.RaidErr = "source not configured"
	}

	if a.rankings != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rankings, err := a.rankings.CharacterRankings(ctx, player.Identity.Name, player.Identity.RealmSlug(), a.region)
			switch {
			case err != nil:
				e.RankingsErr = err.Error()
				a.logger.Debug("rankings unavailable",
					zap.String("identity", player.Identity.String()),
					zap.Error(err))
			case rankings == nil:
				e.RankingsErr = "rankings not found"
			default:
				e.Rankings = rankings
			}
		}()
	} else {
		e.RankingsErr = "source not configured"
	}

	wg.Wait()
}

// fetchDetail performs the deferred detail-page fetch.
func (a *Aggregator) fetchDetail(ctx context.Context, player domain.Player, e *domain.Enrichment) {
	if a.details == nil {
		e.DetailErr = "source not configured"
		return
	}

	detail, err := a.details.FetchDetail(ctx, player.Identity)
	switch {
	case err != nil:
		e.DetailErr = err.Error()
		a.logger.Debug("character detail unavailable",
			zap.String("identity", player.Identity.String()),
			zap.Error(err))
	case detail == nil:
		e.DetailErr = "detail not found"
	default:
		e.Detail = detail
	}
}

// applyRules runs a rule chain in order, short-circuiting on the
// first failing predicate.
func (a *Aggregator) applyRules(rules []rule, player domain.Player, e *domain.Enrichment) domain.Verdict {
	for _, r := range rules {
		if verdict := r.check(player, e); !verdict.Accepted {
			a.logger.Debug("eligibility rule failed",
				zap.String("identity", player.Identity.String()),
				zap.String("rule", r.name),
				zap.String("reason", verdict.Reason))
			return verdict
		}
	}
	return domain.Accept()
}
