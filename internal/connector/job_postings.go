// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package connector

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"github.com/pdiddy/signal-engine/pkg/types"
)

const maxDetailRunes = 500

// JobPostings reports hiring activity from RSS/Atom job feeds. Feeds are not
// queryable, so items are pulled in full and filtered locally.
type JobPostings struct {
	Client    *http.Client
	Feeds     []string
	UserAgent string

	// Now overrides the clock; tests set it.
	Now func() time.Time
}

// Source returns the source type.
func (c *JobPostings) Source() types.SourceType { return types.SourceJobPostings }

// Fetch pulls every configured feed. A failing feed is recorded in the error
// string and the remaining feeds are still read.
func (c *JobPostings) Fetch(ctx context.Context, windowDays int, filters types.ProfileFilters) types.FetchResult {
	if windowDays < 1 {
		return types.FetchResult{Err: fmt.Sprintf("invalid window of %d days", windowDays)}
	}
	if len(c.Feeds) == 0 {
		return types.FetchResult{Err: "no job feeds configured"}
	}

	now := nowOr(c.Now)
	from := windowStart(now, windowDays)
	parser := gofeed.NewParser()

	var out []types.RawSignal
	var errs []string
	for _, feedURL := range c.Feeds {
		feed, err := c.pull(ctx, parser, feedURL)
		if err != nil {
			errs = append(errs, fmt.Sprintf("feed %s: %v", feedURL, err))
			if ctx.Err() != nil {
				break
			}
			continue
		}
		for _, item := range feed.Items {
			if raw, ok := jobToRaw(feed, item, from, now, filters); ok {
				out = append(out, raw)
			}
		}
	}
	return types.FetchResult{Signals: out, Err: strings.Join(errs, "; ")}
}

func (c *JobPostings) pull(ctx context.Context, parser *gofeed.Parser, feedURL string) (*gofeed.Feed, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}

	client := c.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	feed, err := parser.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parsing feed: %w", err)
	}
	return feed, nil
}

func jobToRaw(feed *gofeed.Feed, item *gofeed.Item, from, to time.Time, filters types.ProfileFilters) (types.RawSignal, bool) {
	var published time.Time
	switch {
	case item.PublishedParsed != nil:
		published = *item.PublishedParsed
	case item.UpdatedParsed != nil:
		published = *item.UpdatedParsed
	default:
		return types.RawSignal{}, false
	}
	if published.Before(from) || published.After(to) {
		return types.RawSignal{}, false
	}

	detail := plainText(item.Description)
	if detail == "" {
		detail = plainText(item.Content)
	}

	searchable := item.Title + " " + detail + " " + strings.Join(item.Categories, " ")
	if !filters.MatchesAny(searchable) {
		return types.RawSignal{}, false
	}
	if filters.Location != "" && !containsTerm(searchable, filters.Location) {
		return types.RawSignal{}, false
	}

	company, title := splitCompanyTitle(feed, item)
	if company == "" {
		return types.RawSignal{}, false
	}

	sourceID := item.GUID
	if sourceID == "" {
		sourceID = item.Link
	}

	return types.RawSignal{
		SourceType:  types.SourceJobPostings,
		SignalType:  types.SignalJobPosting,
		SourceID:    sourceID,
		CompanyName: company,
		Title:       title,
		Detail:      truncateRunes(detail, maxDetailRunes),
		URL:         strings.TrimSpace(item.Link),
		Location:    filters.Location,
		Industry:    filters.Industry,
		DetectedAt:  published.UTC(),
	}, true
}

// splitCompanyTitle picks the hiring company. Item authors win; otherwise
// boards that title items "Company: Role" are split; otherwise the feed
// title names the company.
func splitCompanyTitle(feed *gofeed.Feed, item *gofeed.Item) (string, string) {
	title := strings.TrimSpace(item.Title)
	if item.Author != nil && strings.TrimSpace(item.Author.Name) != "" {
		return strings.TrimSpace(item.Author.Name), title
	}
	for _, a := range item.Authors {
		if a != nil && strings.TrimSpace(a.Name) != "" {
			return strings.TrimSpace(a.Name), title
		}
	}
	if company, role, ok := strings.Cut(title, ": "); ok && strings.TrimSpace(company) != "" && strings.TrimSpace(role) != "" {
		return strings.TrimSpace(company), strings.TrimSpace(role)
	}
	return strings.TrimSpace(feed.Title), title
}

// plainText strips HTML markup from feed item bodies.
func plainText(html string) string {
	if strings.TrimSpace(html) == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return strings.Join(strings.Fields(html), " ")
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}

func truncateRunes(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
