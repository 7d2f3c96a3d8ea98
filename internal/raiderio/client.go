package raiderio

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"guild-scout/internal/domain"
)

// Default configuration values.
const (
	DefaultBaseURL     = "https://raider.io"
	DefaultTimeout     = 15 * time.Second
	DefaultMaxRetries  = 3
	DefaultRetryDelay  = 1 * time.Second
	DefaultMaxDelay    = 10 * time.Second
	DefaultBackoffMult = 2.0
)

// Client fetches character raid profiles from the Raider.IO API.
type Client struct {
	baseURL     string
	apiKey      string
	tiers       []string
	client      *http.Client
	maxRetries  int
	retryDelay  time.Duration
	maxDelay    time.Duration
	backoffMult float64
}

// ClientOption configures Client.
type ClientOption func(*Client)

// WithBaseURL overrides the API base URL.
func WithBaseURL(u string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(u, "/")
	}
}

// WithAPIKey sets the access key sent with every request.
func WithAPIKey(key string) ClientOption {
	return func(c *Client) {
		c.apiKey = key
	}
}

// WithTiers sets the raid tier slugs requested from the achievement
// curve endpoint.
func WithTiers(tiers []string) ClientOption {
	return func(c *Client) {
		c.tiers = tiers
	}
}

// WithTimeout sets HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.client.Timeout = d
	}
}

// WithMaxRetries sets maximum retry attempts.
func WithMaxRetries(n int) ClientOption {
	return func(c *Client) {
		c.maxRetries = n
	}
}

// WithRetryDelay sets initial retry delay.
func WithRetryDelay(d time.Duration) ClientOption {
	return func(c *Client) {
		c.retryDelay = d
	}
}

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.client = client
	}
}

// NewClient creates a Raider.IO API client.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL:     DefaultBaseURL,
		client:      &http.Client{Timeout: DefaultTimeout},
		maxRetries:  DefaultMaxRetries,
		retryDelay:  DefaultRetryDelay,
		maxDelay:    DefaultMaxDelay,
		backoffMult: DefaultBackoffMult,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// profileResponse is the raw API payload for a character profile.
type profileResponse struct {
	Name              string `json:"name"`
	Race              string `json:"race"`
	Class             string `json:"class"`
	ActiveSpecName    string `json:"active_spec_name"`
	Faction           string `json:"faction"`
	AchievementPoints int    `json:"achievement_points"`
	Region            string `json:"region"`
	Realm             string `json:"realm"`
	ThumbnailURL      string `json:"thumbnail_url"`
	ProfileURL        string `json:"profile_url"`
	RaidProgression   map[string]struct {
		Summary            string `json:"summary"`
		TotalBosses        int    `json:"total_bosses"`
		NormalBossesKilled int    `json:"normal_bosses_killed"`
		HeroicBossesKilled int    `json:"heroic_bosses_killed"`
		MythicBossesKilled int    `json:"mythic_bosses_killed"`
	} `json:"raid_progression"`
	RaidAchievementCurve []struct {
		Raid        string     `json:"raid"`
		AotC        *time.Time `json:"aotc"`
		CuttingEdge *time.Time `json:"cutting_edge"`
	} `json:"raid_achievement_curve"`
}

// CharacterProfile fetches raid progression and curve achievements for
// one character. A character unknown to the API returns (nil, nil).
func (c *Client) CharacterProfile(ctx context.Context, region, realmSlug, name string) (*domain.RaidProfile, error) {
	fields := "raid_progression:current-expansion"
	if len(c.tiers) > 0 {
		fields += ",raid_achievement_curve:" + strings.Join(c.tiers, ":")
	}

	params := url.Values{}
	if c.apiKey != "" {
		params.Set("access_key", c.apiKey)
	}
	params.Set("region", region)
	params.Set("realm", realmSlug)
	params.Set("name", name)
	params.Set("fields", fields)

	endpoint := fmt.Sprintf("%s/api/v1/characters/profile?%s", c.baseURL, params.Encode())

	body, status, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		// Character has no Raider.IO record.
		return nil, nil
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("profile request: unexpected status %d: %s", status, truncate(body, 200))
	}

	var raw profileResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("decode profile: %w", err)
	}

	profile := &domain.RaidProfile{
		Name:              raw.Name,
		Race:              raw.Race,
		Class:             raw.Class,
		ActiveSpec:        raw.ActiveSpecName,
		Faction:           raw.Faction,
		AchievementPoints: raw.AchievementPoints,
		Realm:             raw.Realm,
		Region:            raw.Region,
		ThumbnailURL:      raw.ThumbnailURL,
		ProfileURL:        raw.ProfileURL,
		Progression:       make(map[string]domain.RaidTier, len(raw.RaidProgression)),
	}
	for slug, tier := range raw.RaidProgression {
		profile.Progression[slug] = domain.RaidTier{
			Summary:            tier.Summary,
			TotalBosses:        tier.TotalBosses,
			NormalBossesKilled: tier.NormalBossesKilled,
			HeroicBossesKilled: tier.HeroicBossesKilled,
			MythicBossesKilled: tier.MythicBossesKilled,
		}
	}
	for _, curve := range raw.RaidAchievementCurve {
		profile.AchievementCurve = append(profile.AchievementCurve, domain.TierAchievement{
			Raid:         curve.Raid,
			AheadOfCurve: curve.AotC,
			CuttingEdge:  curve.CuttingEdge,
		})
	}

	return profile, nil
}

// get performs a GET with retries and exponential backoff. 4xx
// statuses are returned without retrying.
func (c *Client) get(ctx context.Context, endpoint string) ([]byte, int, error) {
	delay := c.retryDelay
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, 0, ctx.Err()
			case <-time.After(delay):
			}
			// Exponential backoff
			delay = time.Duration(float64(delay) * c.backoffMult)
			if delay > c.maxDelay {
				delay = c.maxDelay
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, 0, fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("http request: %w", err)
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("read response: %w", err)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			lastErr = fmt.Errorf("rate limited (429)")
			continue
		}
		if resp.StatusCode >= http.StatusInternalServerError {
			lastErr = fmt.Errorf("server error %d", resp.StatusCode)
			continue
		}

		return body, resp.StatusCode, nil
	}

	return nil, 0, fmt.Errorf("max retries exceeded: %w", lastErr)
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
