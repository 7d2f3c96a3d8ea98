package gemini

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"guild-scout/internal/domain"
)

func testCandidate() (domain.Player, domain.Enrichment) {
	player := domain.Player{
		Identity:  domain.Identity{Name: "Testplayer", Realm: "Draenor"},
		Class:     "warrior",
		ItemLevel: 728.5,
	}
	enrichment := domain.Enrichment{
		Raid: &domain.RaidProfile{
			Progression: map[string]domain.RaidTier{
				"manaforge-omega": {Summary: "5/8 M"},
			},
		},
		Rankings: &domain.RankingsProfile{BestPerformanceAvg: 87.4, MedianPerformance: 72.1},
		Detail:   &domain.CharacterDetail{Bio: "Available tue/thu evenings."},
	}
	return player, enrichment
}

func TestSummarize(t *testing.T) {
	var gotReq generateRequest
	var gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("x-goog-api-key")
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"candidates": []map[string]any{
				{"content": map[string]any{"parts": []map[string]any{
					{"text": "Worth contacting: solid mythic progress and strong parses.\n"},
				}}},
			},
		})
	}))
	defer srv.Close()

	s := NewSummarizer(SummarizerOptions{URL: srv.URL, APIKey: "test-key"})
	player, enrichment := testCandidate()

	summary := s.Summarize(context.Background(), player, enrichment)
	if summary != "Worth contacting: solid mythic progress and strong parses." {
		t.Errorf("unexpected summary %q", summary)
	}

	if gotKey != "test-key" {
		t.Errorf("unexpected api key header %q", gotKey)
	}
	if len(gotReq.SystemInstruction.Parts) == 0 ||
		!strings.Contains(gotReq.SystemInstruction.Parts[0].Text, "guild recruiter") {
		t.Error("expected recruiter system instruction")
	}

	dossier := gotReq.Contents[0].Parts[0].Text
	for _, want := range []string{
		"Testplayer-Draenor",
		"manaforge-omega: 5/8 M",
		"best performance average 87.4",
		"Available tue/thu evenings.",
	} {
		if !strings.Contains(dossier, want) {
			t.Errorf("dossier missing %q:\n%s", want, dossier)
		}
	}
}

func TestSummarizeFailureReturnsEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	s := NewSummarizer(SummarizerOptions{URL: srv.URL, APIKey: "test-key"})
	player, enrichment := testCandidate()

	if summary := s.Summarize(context.Background(), player, enrichment); summary != "" {
		t.Errorf("expected empty summary on failure, got %q", summary)
	}
}

func TestSummarizeWithoutAPIKey(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		called = true
	}))
	defer srv.Close()

	s := NewSummarizer(SummarizerOptions{URL: srv.URL})
	player, enrichment := testCandidate()

	if summary := s.Summarize(context.Background(), player, enrichment); summary != "" {
		t.Errorf("expected empty summary without key, got %q", summary)
	}
	if called {
		t.Error("expected no request without an API key")
	}
}
