package domain

import "time"

// RaidTier is per-raid boss-kill progress from the RaiderIO profile.
type RaidTier struct {
	Summary            string
	TotalBosses        int
	NormalBossesKilled int
	HeroicBossesKilled int
	MythicBossesKilled int
}

// TierAchievement is one entry of the raid achievement curve: the
// dates at which the character earned the tier meta-achievements,
// nil when never earned.
type TierAchievement struct {
	Raid         string // tier slug, e.g. "manaforge-omega"
	AheadOfCurve *time.Time
	CuttingEdge  *time.Time
}

// RaidProfile is the normalized character profile from RaiderIO.
type RaidProfile struct {
	Name              string
	Race              string
	Class             string
	ActiveSpec        string
	Faction           string
	AchievementPoints int
	Realm             string
	Region            string
	ThumbnailURL      string
	ProfileURL        string
	Progression       map[string]RaidTier // keyed by tier slug
	AchievementCurve  []TierAchievement
}

// CurveFor returns the achievement-curve entry for a tier slug, or nil.
func (p *RaidProfile) CurveFor(slug string) *TierAchievement {
	for i := range p.AchievementCurve {
		if p.AchievementCurve[i].Raid == slug {
			return &p.AchievementCurve[i]
		}
	}
	return nil
}

// AllstarRanking is one spec's all-star standing from WarcraftLogs.
type AllstarRanking struct {
	Spec        string
	Points      float64
	RankPercent float64
}

// BossRanking is a per-encounter best performance from WarcraftLogs.
type BossRanking struct {
	Encounter   string
	BestPercent float64
	BestSpec    string
	TotalKills  int
}

// RankingsProfile is the normalized zone-rankings payload from
// WarcraftLogs for the current raid zone.
type RankingsProfile struct {
	BestPerformanceAvg float64
	MedianPerformance  float64
	Allstars           []AllstarRanking
	Bosses             []BossRanking
}

// CharacterDetail is the richer per-candidate data from the listing
// source's character page, fetched with a second round-trip.
type CharacterDetail struct {
	Bio          string
	Languages    string // raw "Languages:" value; empty when not declared
	SpecsPlaying string
	GuildHistory []string
}

// Enrichment carries the per-source results for one candidate. Each
// source is independently present or absent; an absent source records
// the reason it is missing. Transient, rebuilt every scan.
type Enrichment struct {
	Raid        *RaidProfile
	RaidErr     string
	Rankings    *RankingsProfile
	RankingsErr string
	Detail      *CharacterDetail
	DetailErr   string
}
