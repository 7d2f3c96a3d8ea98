package discord

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"guild-scout/internal/domain"
)

// DefaultTimeout bounds a single webhook delivery.
const DefaultTimeout = 15 * time.Second

// componentsV2Flag marks a webhook payload as using the components-v2
// message layout.
const componentsV2Flag = 1 << 15

// Component types used in the payload.
const (
	componentContainer   = 17
	componentTextDisplay = 10
	componentSeparator   = 14
)

// classColors maps a lowercase class name to its accent color.
var classColors = map[string]int{
	"death knight": 0xC41E3A,
	"demon hunter": 0xA330C9,
	"druid":        0xFF7C0A,
	"evoker":       0x33937F,
	"hunter":       0xAAD372,
	"mage":         0x3FC7EB,
	"monk":         0x00FF98,
	"paladin":      0xF48CBA,
	"priest":       0xFFFFFF,
	"rogue":        0xFFF468,
	"shaman":       0x0070DD,
	"warlock":      0x8788EE,
	"warrior":      0xC69B6D,
}

const defaultAccentColor = 0x95A5A6

// maxBioLength caps the quoted bio in the notification.
const maxBioLength = 600

// Notifier delivers candidate notifications to a Discord webhook.
// Delivery is best effort: failures are logged and the notification is
// dropped, never retried.
type Notifier struct {
	webhookURL string
	region     string
	client     *http.Client
	logger     *zap.Logger

	warnOnce sync.Once
}

// NotifierOptions configures Notifier.
type NotifierOptions struct {
	WebhookURL string
	Region     string
	Client     *http.Client
	Logger     *zap.Logger
}

// NewNotifier creates a webhook notifier. An empty webhook URL is
// allowed; notifications are then dropped and the degradation is
// logged once.
func NewNotifier(opts NotifierOptions) *Notifier {
	if opts.Client == nil {
		opts.Client = &http.Client{Timeout: DefaultTimeout}
	}
	if opts.Region == "" {
		opts.Region = "eu"
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Notifier{
		webhookURL: opts.WebhookURL,
		region:     opts.Region,
		client:     opts.Client,
		logger:     opts.Logger,
	}
}

// component is one entry of a components-v2 message.
type component struct {
	Type        int         `json:"type"`
	AccentColor *int        `json:"accent_color,omitempty"`
	Components  []component `json:"components,omitempty"`
	Content     string      `json:"content,omitempty"`
	Divider     *bool       `json:"divider,omitempty"`
}

// webhookPayload is the webhook request body.
type webhookPayload struct {
	Flags      int         `json:"flags"`
	Components []component `json:"components"`
}

// NotifyCandidate posts one accepted candidate to the webhook. The
// summary may be empty.
func (n *Notifier) NotifyCandidate(ctx context.Context, player domain.Player, enrichment domain.Enrichment, summary string) error {
	if n.webhookURL == "" {
		n.warnOnce.Do(func() {
			n.logger.Warn("webhook not configured, dropping notifications")
		})
		return nil
	}

	payload, err := json.Marshal(n.buildPayload(player, enrichment, summary))
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("webhook returned status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}

func (n *Notifier) buildPayload(player domain.Player, enrichment domain.Enrichment, summary string) webhookPayload {
	accent := defaultAccentColor
	if color, ok := classColors[strings.ToLower(player.Class)]; ok {
		accent = color
	}

	var sections []component
	add := func(content string) {
		sections = append(sections, component{Type: componentTextDisplay, Content: content})
	}
	divider := func() {
		on := true
		sections = append(sections, component{Type: componentSeparator, Divider: &on})
	}

	add(fmt.Sprintf("## %s\n%s, %.1f item level",
		player.Identity.String(), titleCase(player.Class), player.ItemLevel))

	if body := progressionSection(enrichment); body != "" {
		divider()
		add(body)
	}
	if body := rankingsSection(enrichment); body != "" {
		divider()
		add(body)
	}
	if body := detailSection(enrichment); body != "" {
		divider()
		add(body)
	}
	if summary != "" {
		divider()
		add("**Recruiter notes**\n" + summary)
	}

	divider()
	add(n.linksSection(player, enrichment))

	return webhookPayload{
		Flags: componentsV2Flag,
		Components: []component{{
			Type:        componentContainer,
			AccentColor: &accent,
			Components:  sections,
		}},
	}
}

// progressionSection renders raid progression and curve achievements,
// or the reason the data is missing.
func progressionSection(e domain.Enrichment) string {
	if e.Raid == nil {
		if e.RaidErr != "" {
			return "**Progression**\n_unavailable: " + e.RaidErr + "_"
		}
		return ""
	}

	var b strings.Builder
	b.WriteString("**Progression**")

	slugs := make([]string, 0, len(e.Raid.Progression))
	for slug := range e.Raid.Progression {
		slugs = append(slugs, slug)
	}
	sort.Strings(slugs)
	for _, slug := range slugs {
		tier := e.Raid.Progression[slug]
		fmt.Fprintf(&b, "\n%s: **%s**", TierDisplayName(slug), tier.Summary)
	}

	for _, curve := range e.Raid.AchievementCurve {
		switch {
		case curve.CuttingEdge != nil:
			fmt.Fprintf(&b, "\nCutting Edge: %s (%s)", TierDisplayName(curve.Raid), curve.CuttingEdge.Format("Jan 2006"))
		case curve.AheadOfCurve != nil:
			fmt.Fprintf(&b, "\nAhead of the Curve: %s (%s)", TierDisplayName(curve.Raid), curve.AheadOfCurve.Format("Jan 2006"))
		}
	}
	return b.String()
}

// rankingsSection renders parse rankings, or the reason they are
// missing.
func rankingsSection(e domain.Enrichment) string {
	if e.Rankings == nil {
		if e.RankingsErr != "" {
			return "**Logs**\n_unavailable: " + e.RankingsErr + "_"
		}
		return ""
	}

	var b strings.Builder
	fmt.Fprintf(&b, "**Logs**\nBest avg: **%.1f**, median: %.1f",
		e.Rankings.BestPerformanceAvg, e.Rankings.MedianPerformance)
	for _, star := range e.Rankings.Allstars {
		fmt.Fprintf(&b, "\nAllstars %s: %.0f points (top %.0f%%)", star.Spec, star.Points, 100-star.RankPercent)
	}
	return b.String()
}

// detailSection renders the free-text character page fields.
func detailSection(e domain.Enrichment) string {
	if e.Detail == nil {
		return ""
	}

	var parts []string
	if e.Detail.SpecsPlaying != "" {
		parts = append(parts, "**Specs:** "+e.Detail.SpecsPlaying)
	}
	if e.Detail.Languages != "" {
		parts = append(parts, "**Languages:** "+e.Detail.Languages)
	}
	if len(e.Detail.GuildHistory) > 0 {
		parts = append(parts, "**Guild history:** "+strings.Join(e.Detail.GuildHistory, ", "))
	}
	if bio := strings.TrimSpace(e.Detail.Bio); bio != "" {
		if len(bio) > maxBioLength {
			bio = bio[:maxBioLength] + "..."
		}
		parts = append(parts, "> "+strings.ReplaceAll(bio, "\n", "\n> "))
	}
	return strings.Join(parts, "\n")
}

func (n *Notifier) linksSection(player domain.Player, e domain.Enrichment) string {
	slug := player.Identity.RealmSlug()
	links := []string{
		fmt.Sprintf("[Armory](https://worldofwarcraft.blizzard.com/en-gb/character/%s/%s/%s)", n.region, slug, strings.ToLower(player.Name)),
		fmt.Sprintf("[Raider.IO](https://raider.io/characters/%s/%s/%s)", n.region, slug, player.Name),
		fmt.Sprintf("[WarcraftLogs](https://www.warcraftlogs.com/character/%s/%s/%s)", n.region, slug, strings.ToLower(player.Name)),
	}
	if player.ProfileURL != "" {
		links = append(links, fmt.Sprintf("[WoWProgress](%s)", player.ProfileURL))
	}
	return strings.Join(links, " | ")
}

// TierDisplayName converts a tier slug like "liberation-of-undermine"
// to "Liberation of Undermine".
func TierDisplayName(slug string) string {
	words := strings.Split(slug, "-")
	for i, word := range words {
		switch word {
		case "of", "the", "and":
			if i > 0 {
				continue
			}
		}
		words[i] = titleWord(word)
	}
	return strings.Join(words, " ")
}

func titleWord(w string) string {
	if w == "" {
		return w
	}
	return strings.ToUpper(w[:1]) + w[1:]
}

func titleCase(s string) string {
	fields := strings.Fields(s)
	for i, f := range fields {
		fields[i] = titleWord(f)
	}
	return strings.Join(fields, " ")
}
