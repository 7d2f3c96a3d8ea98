package raiderio

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

const profileJSON = `{
  "name": "Testplayer",
  "race": "Orc",
  "class": "Warrior",
  "active_spec_name": "Fury",
  "faction": "horde",
  "achievement_points": 31200,
  "region": "eu",
  "realm": "Draenor",
  "profile_url": "https://raider.io/characters/eu/draenor/Testplayer",
  "raid_progression": {
    "manaforge-omega": {
      "summary": "5/8 M",
      "total_bosses": 8,
      "normal_bosses_killed": 8,
      "heroic_bosses_killed": 8,
      "mythic_bosses_killed": 5
    }
  },
  "raid_achievement_curve": [
    {
      "raid": "manaforge-omega",
      "aotc": "2025-08-20T18:30:00.000Z",
      "cutting_edge": null
    },
    {
      "raid": "liberation-of-undermine",
      "aotc": "2025-03-10T21:00:00.000Z",
      "cutting_edge": "2025-06-01T20:15:00.000Z"
    }
  ]
}`

func TestCharacterProfile(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/characters/profile" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(profileJSON))
	}))
	defer srv.Close()

	c := NewClient(
		WithBaseURL(srv.URL),
		WithAPIKey("test-key"),
		WithTiers([]string{"manaforge-omega", "liberation-of-undermine"}),
	)

	profile, err := c.CharacterProfile(context.Background(), "eu", "draenor", "Testplayer")
	if err != nil {
		t.Fatalf("CharacterProfile: %v", err)
	}
	if profile == nil {
		t.Fatal("expected profile")
	}

	for _, want := range []string{
		"access_key=test-key",
		"region=eu",
		"realm=draenor",
		"name=Testplayer",
		"raid_progression%3Acurrent-expansion",
		"raid_achievement_curve%3Amanaforge-omega%3Aliberation-of-undermine",
	} {
		if !strings.Contains(gotQuery, want) {
			t.Errorf("query missing %q: %s", want, gotQuery)
		}
	}

	if profile.Name != "Testplayer" || profile.ActiveSpec != "Fury" {
		t.Errorf("unexpected profile header %+v", profile)
	}
	tier, ok := profile.Progression["manaforge-omega"]
	if !ok {
		t.Fatal("expected manaforge-omega progression")
	}
	if tier.Summary != "5/8 M" || tier.MythicBossesKilled != 5 {
		t.Errorf("unexpected tier %+v", tier)
	}

	curve := profile.CurveFor("manaforge-omega")
	if curve == nil || curve.AheadOfCurve == nil || curve.CuttingEdge != nil {
		t.Fatalf("unexpected curve entry %+v", curve)
	}
	ce := profile.CurveFor("liberation-of-undermine")
	if ce == nil || ce.CuttingEdge == nil {
		t.Fatalf("expected cutting edge entry, got %+v", ce)
	}
	if want := time.Date(2025, 6, 1, 20, 15, 0, 0, time.UTC); !ce.CuttingEdge.Equal(want) {
		t.Errorf("unexpected cutting edge date %v", ce.CuttingEdge)
	}
}

func TestCharacterProfileNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"statusCode":404,"error":"Not Found"}`, http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL))
	profile, err := c.CharacterProfile(context.Background(), "eu", "draenor", "Nobody")
	if err != nil {
		t.Fatalf("expected nil error for 404, got %v", err)
	}
	if profile != nil {
		t.Fatalf("expected nil profile for 404, got %+v", profile)
	}
}

func TestCharacterProfileRetriesServerErrors(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		attempts++
		if attempts < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(profileJSON))
	}))
	defer srv.Close()

	c := NewClient(
		WithBaseURL(srv.URL),
		WithMaxRetries(3),
		WithRetryDelay(time.Millisecond),
	)

	profile, err := c.CharacterProfile(context.Background(), "eu", "draenor", "Testplayer")
	if err != nil {
		t.Fatalf("CharacterProfile: %v", err)
	}
	if profile == nil {
		t.Fatal("expected profile after retries")
	}
	if attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts)
	}
}

func TestCharacterProfileExhaustsRetries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(
		WithBaseURL(srv.URL),
		WithMaxRetries(1),
		WithRetryDelay(time.Millisecond),
	)

	_, err := c.CharacterProfile(context.Background(), "eu", "draenor", "Testplayer")
	if err == nil {
		t.Fatal("expected error after exhausted retries")
	}
	if !strings.Contains(err.Error(), "max retries exceeded") {
		t.Errorf("unexpected error %v", err)
	}
}
