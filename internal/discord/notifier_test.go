package discord

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"guild-scout/internal/domain"
)

func testPlayer() domain.Player {
	return domain.Player{
		Identity:   domain.Identity{Name: "Testplayer", Realm: "Tarren Mill"},
		Class:      "demon hunter",
		ItemLevel:  728.5,
		ListedAt:   time.Date(2025, 8, 24, 12, 0, 0, 0, time.UTC),
		ProfileURL: "https://www.wowprogress.com/character/eu/tarren-mill/Testplayer",
	}
}

func testEnrichment() domain.Enrichment {
	ce := time.Date(2025, 6, 1, 20, 15, 0, 0, time.UTC)
	return domain.Enrichment{
		Raid: &domain.RaidProfile{
			Progression: map[string]domain.RaidTier{
				"manaforge-omega": {Summary: "5/8 M", TotalBosses: 8, MythicBossesKilled: 5},
			},
			AchievementCurve: []domain.TierAchievement{
				{Raid: "liberation-of-undermine", CuttingEdge: &ce},
			},
		},
		Rankings: &domain.RankingsProfile{
			BestPerformanceAvg: 87.4,
			MedianPerformance:  72.1,
			Allstars: []domain.AllstarRanking{
				{Spec: "Havoc", Points: 310.2, RankPercent: 91.5},
			},
		},
		Detail: &domain.CharacterDetail{
			Bio:          "Looking for a mythic guild.",
			Languages:    "english, german",
			SpecsPlaying: "Havoc",
			GuildHistory: []string{"Old Guild"},
		},
	}
}

func TestNotifyCandidatePayload(t *testing.T) {
	var got webhookPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("unexpected content type %q", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode payload: %v", err)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	n := NewNotifier(NotifierOptions{WebhookURL: srv.URL, Region: "eu"})
	err := n.NotifyCandidate(context.Background(), testPlayer(), testEnrichment(), "Strong logs for the role.")
	if err != nil {
		t.Fatalf("NotifyCandidate: %v", err)
	}

	if got.Flags != componentsV2Flag {
		t.Errorf("expected components-v2 flag, got %d", got.Flags)
	}
	if len(got.Components) != 1 || got.Components[0].Type != componentContainer {
		t.Fatalf("expected a single container, got %+v", got.Components)
	}

	container := got.Components[0]
	if container.AccentColor == nil || *container.AccentColor != classColors["demon hunter"] {
		t.Errorf("expected demon hunter accent color, got %v", container.AccentColor)
	}

	var text strings.Builder
	for _, section := range container.Components {
		text.WriteString(section.Content)
		text.WriteString("\n")
	}
	body := text.String()

	for _, want := range []string{
		"Testplayer-Tarren Mill",
		"Demon Hunter, 728.5 item level",
		"Manaforge Omega: **5/8 M**",
		"Cutting Edge: Liberation of Undermine (Jun 2025)",
		"Best avg: **87.4**",
		"Allstars Havoc: 310 points",
		"**Languages:** english, german",
		"> Looking for a mythic guild.",
		"Strong logs for the role.",
		"[Raider.IO](https://raider.io/characters/eu/tarren-mill/Testplayer)",
		"[WoWProgress](https://www.wowprogress.com/character/eu/tarren-mill/Testplayer)",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("payload missing %q\n%s", want, body)
		}
	}
}

func TestNotifyCandidatePartialEnrichment(t *testing.T) {
	var got webhookPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	n := NewNotifier(NotifierOptions{WebhookURL: srv.URL})
	enrichment := testEnrichment()
	enrichment.Rankings = nil
	enrichment.RankingsErr = "rankings request: unexpected status 503"

	if err := n.NotifyCandidate(context.Background(), testPlayer(), enrichment, ""); err != nil {
		t.Fatalf("NotifyCandidate: %v", err)
	}

	var text strings.Builder
	for _, section := range got.Components[0].Components {
		text.WriteString(section.Content)
	}
	if !strings.Contains(text.String(), "unavailable: rankings request: unexpected status 503") {
		t.Errorf("expected missing-source reason in payload:\n%s", text.String())
	}
}

func TestNotifyCandidateNoWebhook(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	n := NewNotifier(NotifierOptions{Logger: zap.New(core)})

	for i := 0; i < 3; i++ {
		if err := n.NotifyCandidate(context.Background(), testPlayer(), testEnrichment(), ""); err != nil {
			t.Fatalf("expected silent drop without webhook URL, got %v", err)
		}
	}

	entries := logs.FilterMessageSnippet("webhook not configured").All()
	if len(entries) != 1 {
		t.Errorf("expected the missing webhook to be logged once, got %d entries", len(entries))
	}
}

func TestNotifyCandidateErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"message": "Invalid Webhook Token"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	n := NewNotifier(NotifierOptions{WebhookURL: srv.URL})
	err := n.NotifyCandidate(context.Background(), testPlayer(), testEnrichment(), "")
	if err == nil {
		t.Fatal("expected error on 4xx webhook response")
	}
}

func TestTierDisplayName(t *testing.T) {
	cases := []struct {
		slug string
		want string
	}{
		{"manaforge-omega", "Manaforge Omega"},
		{"liberation-of-undermine", "Liberation of Undermine"},
		{"amirdrassil-the-dreams-hope", "Amirdrassil the Dreams Hope"},
		{"nerubar-palace", "Nerubar Palace"},
	}
	for _, tc := range cases {
		if got := TierDisplayName(tc.slug); got != tc.want {
			t.Errorf("TierDisplayName(%q) = %q, want %q", tc.slug, got, tc.want)
		}
	}
}
