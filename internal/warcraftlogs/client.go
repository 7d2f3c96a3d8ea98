package warcraftlogs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"guild-scout/internal/domain"
)

// Default configuration values.
const (
	DefaultTokenURL = "https://www.warcraftlogs.com/oauth/token"
	DefaultAPIURL   = "https://www.warcraftlogs.com/api/v2/client"
	DefaultTimeout  = 20 * time.Second

	// Tokens are refreshed this long before their reported expiry.
	tokenRefreshMargin = 60 * time.Second
)

// Client fetches character rankings from the WarcraftLogs v2 API. It
// authenticates with the client-credentials flow and caches the access
// token until shortly before expiry.
type Client struct {
	tokenURL     string
	apiURL       string
	clientID     string
	clientSecret string
	client       *http.Client

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time

	now func() time.Time
}

// ClientOption configures Client.
type ClientOption func(*Client)

// WithTokenURL overrides the OAuth token endpoint.
func WithTokenURL(u string) ClientOption {
	return func(c *Client) {
		c.tokenURL = u
	}
}

// WithAPIURL overrides the GraphQL endpoint.
func WithAPIURL(u string) ClientOption {
	return func(c *Client) {
		c.apiURL = u
	}
}

// WithTimeout sets HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.client.Timeout = d
	}
}

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.client = client
	}
}

// NewClient creates a WarcraftLogs API client.
func NewClient(clientID, clientSecret string, opts ...ClientOption) *Client {
	c := &Client{
		tokenURL:     DefaultTokenURL,
		apiURL:       DefaultAPIURL,
		clientID:     clientID,
		clientSecret: clientSecret,
		client:       &http.Client{Timeout: DefaultTimeout},
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// token returns a valid access token, requesting a new one when the
// cached token is absent or close to expiry.
func (c *Client) token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.accessToken != "" && c.now().Before(c.tokenExpiry.Add(-tokenRefreshMargin)) {
		return c.accessToken, nil
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("build token request: %w", err)
	}
	req.SetBasicAuth(c.clientID, c.clientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("token request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read token response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token request: unexpected status %d", resp.StatusCode)
	}

	var tok struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := json.Unmarshal(body, &tok); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}
	if tok.AccessToken == "" {
		return "", fmt.Errorf("token response missing access_token")
	}

	c.accessToken = tok.AccessToken
	c.tokenExpiry = c.now().Add(time.Duration(tok.ExpiresIn) * time.Second)
	return c.accessToken, nil
}

const rankingsQuery = `query ($name: String!, $serverSlug: String!, $serverRegion: String!) {
  characterData {
    character(name: $name, serverSlug: $serverSlug, serverRegion: $serverRegion) {
      zoneRankings
    }
  }
}`

// graphqlRequest is the GraphQL POST envelope.
type graphqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

// graphqlResponse is the GraphQL response envelope. zoneRankings is a
// JSON scalar, so it arrives as raw JSON.
type graphqlResponse struct {
	Data struct {
		CharacterData struct {
			Character *struct {
				ZoneRankings json.RawMessage `json:"zoneRankings"`
			} `json:"character"`
		} `json:"characterData"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// zoneRankings is the raw shape of the zoneRankings scalar.
type zoneRankings struct {
	BestPerformanceAverage   float64 `json:"bestPerformanceAverage"`
	MedianPerformanceAverage float64 `json:"medianPerformanceAverage"`
	AllStars                 []struct {
		Spec        string  `json:"spec"`
		Points      float64 `json:"points"`
		RankPercent float64 `json:"rankPercent"`
	} `json:"allStars"`
	Rankings []struct {
		Encounter struct {
			Name string `json:"name"`
		} `json:"encounter"`
		RankPercent float64 `json:"rankPercent"`
		BestSpec    string  `json:"bestSpec"`
		TotalKills  int     `json:"totalKills"`
	} `json:"rankings"`
}

// CharacterRankings fetches current-zone parse rankings for one
// character. A character unknown to WarcraftLogs returns (nil, nil).
func (c *Client) CharacterRankings(ctx context.Context, name, realmSlug, region string) (*domain.RankingsProfile, error) {
	token, err := c.token(ctx)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(graphqlRequest{
		Query: rankingsQuery,
		Variables: map[string]any{
			"name":         name,
			"serverSlug":   realmSlug,
			"serverRegion": region,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build query request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rankings request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read rankings response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("rankings request: unexpected status %d", resp.StatusCode)
	}

	var gql graphqlResponse
	if err := json.Unmarshal(body, &gql); err != nil {
		return nil, fmt.Errorf("decode rankings response: %w", err)
	}
	if len(gql.Errors) > 0 {
		return nil, fmt.Errorf("rankings query: %s", gql.Errors[0].Message)
	}

	character := gql.Data.CharacterData.Character
	if character == nil || len(character.ZoneRankings) == 0 || string(character.ZoneRankings) == "null" {
		// Character has no logged parses.
		return nil, nil
	}

	var raw zoneRankings
	if err := json.Unmarshal(character.ZoneRankings, &raw); err != nil {
		return nil, fmt.Errorf("decode zone rankings: %w", err)
	}

	profile := &domain.RankingsProfile{
		BestPerformanceAvg: raw.BestPerformanceAverage,
		MedianPerformance:  raw.MedianPerformanceAverage,
	}
	for _, star := range raw.AllStars {
		profile.Allstars = append(profile.Allstars, domain.AllstarRanking{
			Spec:        star.Spec,
			Points:      star.Points,
			RankPercent: star.RankPercent,
		})
	}
	for _, boss := range raw.Rankings {
		profile.Bosses = append(profile.Bosses, domain.BossRanking{
			Encounter:   boss.Encounter.Name,
			BestPercent: boss.RankPercent,
			BestSpec:    boss.BestSpec,
			TotalKills:  boss.TotalKills,
		})
	}

	return profile, nil
}
