package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"guild-scout/internal/domain"
)

// Default configuration values.
const (
	DefaultURL     = "https://generativelanguage.googleapis.com/v1beta/models/gemini-2.0-flash:generateContent"
	DefaultTimeout = 30 * time.Second
)

// systemPrompt frames the model as a guild recruiter evaluating an
// applicant dossier.
const systemPrompt = `You are an experienced World of Warcraft guild recruiter reviewing a candidate who listed themselves as looking for a guild.
Given the candidate's raid progression, log rankings and self-description, write a short evaluation (3-4 sentences) for the recruitment channel:
whether they look worth contacting, their apparent strengths, and anything that needs a follow-up question.
Be direct and specific. Do not repeat raw numbers that are already in the dossier; interpret them.`

// Summarizer generates a short recruiter evaluation for a candidate.
// It is best effort: any failure yields an empty summary and a log
// entry, never an error that blocks notification.
type Summarizer struct {
	url    string
	apiKey string
	client *http.Client
	logger *zap.Logger
}

// SummarizerOptions configures Summarizer.
type SummarizerOptions struct {
	URL    string
	APIKey string
	Client *http.Client
	Logger *zap.Logger
}

// NewSummarizer creates a Gemini-backed summarizer.
func NewSummarizer(opts SummarizerOptions) *Summarizer {
	if opts.URL == "" {
		opts.URL = DefaultURL
	}
	if opts.Client == nil {
		opts.Client = &http.Client{Timeout: DefaultTimeout}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Summarizer{
		url:    opts.URL,
		apiKey: opts.APIKey,
		client: opts.Client,
		logger: opts.Logger,
	}
}

// generateRequest is the generateContent request body.
type generateRequest struct {
	SystemInstruction content   `json:"system_instruction"`
	Contents          []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

// generateResponse is the generateContent response body.
type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

// Summarize produces the recruiter evaluation. Returns "" when the
// model is unavailable or unconfigured.
func (s *Summarizer) Summarize(ctx context.Context, player domain.Player, enrichment domain.Enrichment) string {
	if s.apiKey == "" {
		return ""
	}

	text, err := s.generate(ctx, buildDossier(player, enrichment))
	if err != nil {
		s.logger.Warn("summary generation failed",
			zap.String("character", player.Identity.String()),
			zap.Error(err))
		return ""
	}
	return strings.TrimSpace(text)
}

func (s *Summarizer) generate(ctx context.Context, dossier string) (string, error) {
	payload, err := json.Marshal(generateRequest{
		SystemInstruction: content{Parts: []part{{Text: systemPrompt}}},
		Contents:          []content{{Parts: []part{{Text: dossier}}}},
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("call model: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var gen generateResponse
	if err := json.Unmarshal(body, &gen); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(gen.Candidates) == 0 || len(gen.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("response contains no candidates")
	}
	return gen.Candidates[0].Content.Parts[0].Text, nil
}

// buildDossier flattens the candidate and enrichment into the text the
// model evaluates.
func buildDossier(player domain.Player, e domain.Enrichment) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Character: %s\nClass: %s\nItem level: %.1f\n",
		player.Identity.String(), player.Class, player.ItemLevel)

	if e.Raid != nil {
		b.WriteString("\nRaid progression:\n")
		slugs := make([]string, 0, len(e.Raid.Progression))
		for slug := range e.Raid.Progression {
			slugs = append(slugs, slug)
		}
		sort.Strings(slugs)
		for _, slug := range slugs {
			fmt.Fprintf(&b, "- %s: %s\n", slug, e.Raid.Progression[slug].Summary)
		}
		for _, curve := range e.Raid.AchievementCurve {
			if curve.CuttingEdge != nil {
				fmt.Fprintf(&b, "- Cutting Edge earned for %s\n", curve.Raid)
			} else if curve.AheadOfCurve != nil {
				fmt.Fprintf(&b, "- Ahead of the Curve earned for %s\n", curve.Raid)
			}
		}
	}

	if e.Rankings != nil {
		fmt.Fprintf(&b, "\nLog rankings: best performance average %.1f, median %.1f\n",
			e.Rankings.BestPerformanceAvg, e.Rankings.MedianPerformance)
		for _, boss := range e.Rankings.Bosses {
			fmt.Fprintf(&b, "- %s: %.1f%% as %s over %d kills\n",
				boss.Encounter, boss.BestPercent, boss.BestSpec, boss.TotalKills)
		}
	}

	if e.Detail != nil {
		if e.Detail.SpecsPlaying != "" {
			fmt.Fprintf(&b, "\nSpecs playing: %s\n", e.Detail.SpecsPlaying)
		}
		if e.Detail.Languages != "" {
			fmt.Fprintf(&b, "Languages: %s\n", e.Detail.Languages)
		}
		if len(e.Detail.GuildHistory) > 0 {
			fmt.Fprintf(&b, "Guild history: %s\n", strings.Join(e.Detail.GuildHistory, ", "))
		}
		if e.Detail.Bio != "" {
			fmt.Fprintf(&b, "\nSelf-description:\n%s\n", e.Detail.Bio)
		}
	}

	return b.String()
}
