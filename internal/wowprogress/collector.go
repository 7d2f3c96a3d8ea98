package wowprogress

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"guild-scout/internal/domain"
)

// DefaultBaseURL is the public listing site.
const DefaultBaseURL = "https://www.wowprogress.com"

// Collector scrapes the looking-for-guild listing and individual
// character pages.
type Collector struct {
	fetcher PageFetcher
	baseURL string
	region  string
	logger  *zap.Logger
}

// CollectorOptions configures Collector.
type CollectorOptions struct {
	Fetcher PageFetcher
	BaseURL string
	Region  string
	Logger  *zap.Logger
}

// NewCollector creates a listing collector.
func NewCollector(opts CollectorOptions) (*Collector, error) {
	if opts.Fetcher == nil {
		return nil, fmt.Errorf("fetcher is required")
	}
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Region == "" {
		opts.Region = "eu"
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Collector{
		fetcher: opts.Fetcher,
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		region:  opts.Region,
		logger:  opts.Logger,
	}, nil
}

// FetchListing retrieves the current looking-for-guild page and parses
// every candidate row. Rows that fail to parse are skipped with a log
// entry; one bad row never fails the whole listing.
func (c *Collector) FetchListing(ctx context.Context) ([]domain.Player, error) {
	url := fmt.Sprintf("%s/gearscore/%s?lfg=1&sortby=ts", c.baseURL, c.region)

	html, err := c.fetcher.FetchPage(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("fetch listing: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse listing: %w", err)
	}

	var players []domain.Player
	doc.Find("table.rating tr").Each(func(i int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 6 {
			return
		}
		player, err := c.parseRow(cells)
		if err != nil {
			c.logger.Warn("skipping listing row", zap.Int("row", i), zap.Error(err))
			return
		}
		players = append(players, player)
	})

	return players, nil
}

func (c *Collector) parseRow(cells *goquery.Selection) (domain.Player, error) {
	link := cells.Eq(0).Find("a").First()
	name := strings.TrimSpace(link.Text())
	if name == "" {
		return domain.Player{}, fmt.Errorf("character name missing")
	}

	realm := strings.TrimSpace(cells.Eq(3).Text())
	if realm == "" {
		return domain.Player{}, fmt.Errorf("realm missing for %q", name)
	}

	class := parseClass(link.AttrOr("aria-label", ""))

	ilvlText := strings.TrimSpace(cells.Eq(4).Text())
	ilvl, err := strconv.ParseFloat(ilvlText, 64)
	if err != nil {
		return domain.Player{}, fmt.Errorf("parse item level %q: %w", ilvlText, err)
	}

	listedAt := time.Now().UTC()
	if ts, ok := cells.Eq(5).Find("span[data-ts]").First().Attr("data-ts"); ok {
		unix, err := strconv.ParseInt(ts, 10, 64)
		if err != nil {
			return domain.Player{}, fmt.Errorf("parse listing timestamp %q: %w", ts, err)
		}
		listedAt = time.Unix(unix, 0).UTC()
	}

	profileURL := ""
	if href, ok := link.Attr("href"); ok {
		profileURL = c.baseURL + href
	}

	return domain.Player{
		Identity:   domain.Identity{Name: name, Realm: realm},
		Class:      class,
		ItemLevel:  ilvl,
		ListedAt:   listedAt,
		ProfileURL: profileURL,
	}, nil
}

// parseClass extracts the class from an aria-label of the form
// "<race> <class>". Both race and class may be multi-word ("night elf
// demon hunter"), so match known class names from the end.
func parseClass(label string) string {
	label = strings.ToLower(strings.TrimSpace(label))
	if label == "" {
		return ""
	}
	for _, class := range []string{
		"demon hunter", "death knight", "warrior", "paladin", "hunter",
		"rogue", "priest", "shaman", "mage", "warlock", "monk", "druid",
		"evoker",
	} {
		if strings.HasSuffix(label, class) {
			return class
		}
	}

	// Fall back to the last word so an unknown class still renders.
	fields := strings.Fields(label)
	return fields[len(fields)-1]
}

// FetchDetail retrieves a character's own page and extracts the
// free-text fields the listing does not carry.
func (c *Collector) FetchDetail(ctx context.Context, id domain.Identity) (*domain.CharacterDetail, error) {
	url := fmt.Sprintf("%s/character/%s/%s/%s", c.baseURL, c.region, id.RealmSlug(), id.Name)

	html, err := c.fetcher.FetchPage(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("fetch character page: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse character page: %w", err)
	}

	detail := &domain.CharacterDetail{}

	detail.Bio = strings.TrimSpace(doc.Find("div.charCommentary").First().Text())

	doc.Find("div.gearscore").Each(func(_ int, sel *goquery.Selection) {
		text := strings.TrimSpace(sel.Text())
		switch {
		case strings.HasPrefix(text, "Languages:"):
			detail.Languages = strings.TrimSpace(strings.TrimPrefix(text, "Languages:"))
		case strings.HasPrefix(text, "Specs playing:"):
			detail.SpecsPlaying = strings.TrimSpace(strings.TrimPrefix(text, "Specs playing:"))
		}
	})

	doc.Find("a[href^='/guild/']").Each(func(_ int, sel *goquery.Selection) {
		guild := strings.TrimSpace(sel.Text())
		if guild != "" {
			detail.GuildHistory = append(detail.GuildHistory, guild)
		}
	})

	return detail, nil
}
