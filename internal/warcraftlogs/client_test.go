package warcraftlogs

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

const zoneRankingsJSON = `{
  "bestPerformanceAverage": 87.4,
  "medianPerformanceAverage": 72.1,
  "allStars": [
    {"spec": "Fury", "points": 312.5, "rankPercent": 88.2}
  ],
  "rankings": [
    {"encounter": {"name": "Dimensius"}, "rankPercent": 91.0, "bestSpec": "Fury", "totalKills": 12},
    {"encounter": {"name": "Nexus-King Salhadaar"}, "rankPercent": 83.7, "bestSpec": "Arms", "totalKills": 8}
  ]
}`

// newTestClient wires the client against a token server and an API
// server and returns both.
func newTestClient(t *testing.T, apiHandler http.HandlerFunc) (*Client, *int) {
	t.Helper()

	tokenCalls := 0
	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenCalls++
		user, pass, ok := r.BasicAuth()
		if !ok || user != "client-id" || pass != "client-secret" {
			t.Errorf("expected basic auth credentials, got %q/%q", user, pass)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		if grant := r.PostForm.Get("grant_type"); grant != "client_credentials" {
			t.Errorf("expected client_credentials grant, got %q", grant)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"access_token": "test-token",
			"expires_in":   3600,
		})
	}))
	t.Cleanup(tokenSrv.Close)

	apiSrv := httptest.NewServer(apiHandler)
	t.Cleanup(apiSrv.Close)

	c := NewClient("client-id", "client-secret",
		WithTokenURL(tokenSrv.URL),
		WithAPIURL(apiSrv.URL),
	)
	return c, &tokenCalls
}

func TestCharacterRankings(t *testing.T) {
	var gotAuth string
	var gotReq graphqlRequest
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Fatalf("decode query: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{
				"characterData": map[string]any{
					"character": map[string]any{
						"zoneRankings": json.RawMessage(zoneRankingsJSON),
					},
				},
			},
		})
	})

	profile, err := c.CharacterRankings(context.Background(), "Testplayer", "draenor", "eu")
	if err != nil {
		t.Fatalf("CharacterRankings: %v", err)
	}
	if profile == nil {
		t.Fatal("expected rankings profile")
	}

	if gotAuth != "Bearer test-token" {
		t.Errorf("unexpected authorization header %q", gotAuth)
	}
	if gotReq.Variables["name"] != "Testplayer" || gotReq.Variables["serverSlug"] != "draenor" {
		t.Errorf("unexpected variables %v", gotReq.Variables)
	}

	if profile.BestPerformanceAvg != 87.4 || profile.MedianPerformance != 72.1 {
		t.Errorf("unexpected averages %+v", profile)
	}
	if len(profile.Allstars) != 1 || profile.Allstars[0].Spec != "Fury" {
		t.Errorf("unexpected allstars %+v", profile.Allstars)
	}
	if len(profile.Bosses) != 2 || profile.Bosses[0].Encounter != "Dimensius" {
		t.Errorf("unexpected bosses %+v", profile.Bosses)
	}
	if profile.Bosses[1].BestSpec != "Arms" || profile.Bosses[1].TotalKills != 8 {
		t.Errorf("unexpected boss entry %+v", profile.Bosses[1])
	}
}

func TestCharacterRankingsUnknownCharacter(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{
				"characterData": map[string]any{
					"character": nil,
				},
			},
		})
	})

	profile, err := c.CharacterRankings(context.Background(), "Nobody", "draenor", "eu")
	if err != nil {
		t.Fatalf("expected nil error for unknown character, got %v", err)
	}
	if profile != nil {
		t.Fatalf("expected nil profile, got %+v", profile)
	}
}

func TestCharacterRankingsGraphQLError(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"errors": []map[string]any{
				{"message": "You do not have permission to view this character."},
			},
		})
	})

	_, err := c.CharacterRankings(context.Background(), "Hidden", "draenor", "eu")
	if err == nil {
		t.Fatal("expected error from GraphQL errors array")
	}
}

func TestTokenCaching(t *testing.T) {
	c, tokenCalls := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{
				"characterData": map[string]any{
					"character": map[string]any{
						"zoneRankings": json.RawMessage(zoneRankingsJSON),
					},
				},
			},
		})
	})

	for i := 0; i < 3; i++ {
		if _, err := c.CharacterRankings(context.Background(), "Testplayer", "draenor", "eu"); err != nil {
			t.Fatalf("CharacterRankings: %v", err)
		}
	}
	if *tokenCalls != 1 {
		t.Errorf("expected 1 token request for 3 queries, got %d", *tokenCalls)
	}
}

func TestTokenRefreshBeforeExpiry(t *testing.T) {
	c, tokenCalls := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{
				"characterData": map[string]any{
					"character": map[string]any{
						"zoneRankings": json.RawMessage(zoneRankingsJSON),
					},
				},
			},
		})
	})

	now := time.Now()
	c.now = func() time.Time { return now }

	if _, err := c.CharacterRankings(context.Background(), "Testplayer", "draenor", "eu"); err != nil {
		t.Fatalf("CharacterRankings: %v", err)
	}

	// Inside the refresh margin of the 3600s expiry: a new token must
	// be requested.
	now = now.Add(3600*time.Second - 30*time.Second)
	if _, err := c.CharacterRankings(context.Background(), "Testplayer", "draenor", "eu"); err != nil {
		t.Fatalf("CharacterRankings: %v", err)
	}

	if *tokenCalls != 2 {
		t.Errorf("expected token refresh near expiry, got %d token requests", *tokenCalls)
	}
}
