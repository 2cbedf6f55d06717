// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package connector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pdiddy/signal-engine/internal/httputil"
	"github.com/pdiddy/signal-engine/pkg/types"
)

const (
	samSearchBase   = "https://api.sam.gov/opportunities/v2/search"
	samDateLayout   = "01/02/2006"
	samAwardType    = "a"
	defaultPageSize = 100
	maxPageSize     = 1000
	maxPages        = 5
)

// TenderAwards reports newly published contract award notices from SAM.gov.
type TenderAwards struct {
	Retrier   *httputil.Retrier
	BaseURL   string
	APIKey    string
	PageSize  int
	UserAgent string

	// Now overrides the clock; tests set it.
	Now func() time.Time
}

// Source returns the source type.
func (c *TenderAwards) Source() types.SourceType { return types.SourceTenderAwards }

// Fetch pages through award notices posted within the window, one query per
// profile keyword, merging notices by id. Query failures and truncation are
// reported in Err alongside whatever notices were fetched.
func (c *TenderAwards) Fetch(ctx context.Context, windowDays int, filters types.ProfileFilters) types.FetchResult {
	if windowDays < 1 {
		return types.FetchResult{Err: fmt.Sprintf("invalid window of %d days", windowDays)}
	}
	if strings.TrimSpace(c.APIKey) == "" {
		return types.FetchResult{Err: "SAM.gov API key not configured"}
	}

	now := nowOr(c.Now)
	from := windowStart(now, windowDays)

	pageSize := c.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	// SAM.gov takes a single title filter, so each keyword is its own query.
	titles := filters.Keywords
	if len(titles) == 0 {
		titles = []string{""}
	}

	var (
		out  []types.RawSignal
		errs []string
		seen = make(map[string]bool)
	)
	for _, title := range titles {
		raws, err := c.fetchTitle(ctx, from, now, filters, title, pageSize)
		for _, raw := range raws {
			if raw.SourceID != "" && seen[raw.SourceID] {
				continue
			}
			seen[raw.SourceID] = true
			out = append(out, raw)
		}
		if err != nil {
			if title != "" {
				err = fmt.Errorf("title %q: %w", title, err)
			}
			errs = append(errs, err.Error())
		}
		if ctx.Err() != nil {
			break
		}
	}
	return types.FetchResult{Signals: out, Err: strings.Join(errs, "; ")}
}

// fetchTitle pages through the notices matching one title filter. A failing
// page ends the query; notices from earlier pages are still returned. When
// the page cap stops the query before the last notice, the partial result
// comes back with a truncation error.
func (c *TenderAwards) fetchTitle(ctx context.Context, from, to time.Time, filters types.ProfileFilters, title string, pageSize int) ([]types.RawSignal, error) {
	var (
		out     []types.RawSignal
		fetched int
		total   int
	)
	for page := 0; page < maxPages; page++ {
		resp, err := c.fetchPage(ctx, from, to, filters, title, fetched, pageSize)
		if err != nil {
			return out, err
		}
		for _, opp := range resp.Opportunities {
			if raw, ok := c.toRaw(opp, from, to, filters); ok {
				out = append(out, raw)
			}
		}
		fetched += len(resp.Opportunities)
		total = resp.TotalRecords
		if len(resp.Opportunities) < pageSize || fetched >= total {
			return out, nil
		}
	}
	return out, fmt.Errorf("truncated after %d of %d notices", fetched, total)
}

func (c *TenderAwards) fetchPage(ctx context.Context, from, to time.Time, filters types.ProfileFilters, title string, offset, limit int) (*samResponse, error) {
	params := url.Values{
		"api_key":    {c.APIKey},
		"ptype":      {samAwardType},
		"postedFrom": {from.Format(samDateLayout)},
		"postedTo":   {to.Format(samDateLayout)},
		"limit":      {strconv.Itoa(limit)},
		"offset":     {strconv.Itoa(offset)},
	}
	if title != "" {
		params.Set("title", title)
	}
	if state, ok := stateCode(filters.Location); ok {
		params.Set("state", state)
	}
	if naics, ok := naicsCode(filters.Industry); ok {
		params.Set("ncode", naics)
	}

	base := c.BaseURL
	if base == "" {
		base = samSearchBase
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}

	resp, err := c.Retrier.Do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("SAM.gov request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("SAM.gov returned HTTP %d", resp.StatusCode)
	}

	var sr samResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("parsing SAM.gov response: %w", err)
	}
	return &sr, nil
}

func (c *TenderAwards) toRaw(opp samOpportunity, from, to time.Time, filters types.ProfileFilters) (types.RawSignal, bool) {
	awardee := strings.TrimSpace(opp.Award.Awardee.Name)
	if awardee == "" {
		return types.RawSignal{}, false
	}

	detected, ok := parseSAMDate(opp.PostedDate)
	if !ok {
		detected, ok = parseSAMDate(opp.Award.Date)
	}
	if !ok || detected.Before(from) || detected.After(to) {
		return types.RawSignal{}, false
	}

	location := opp.Award.Awardee.Location.String()
	if !filters.MatchesAny(opp.Title + " " + awardee + " " + opp.FullParentPathName) {
		return types.RawSignal{}, false
	}
	if _, isState := stateCode(filters.Location); filters.Location != "" && !isState &&
		!containsTerm(location, filters.Location) {
		return types.RawSignal{}, false
	}

	industry := filters.Industry
	if _, numeric := naicsCode(industry); numeric || industry == "" {
		industry = opp.NAICSCode
	}

	return types.RawSignal{
		SourceType:  types.SourceTenderAwards,
		SignalType:  types.SignalContractAward,
		SourceID:    opp.NoticeID,
		CompanyName: awardee,
		Title:       opp.Title,
		Detail:      awardDetail(opp),
		URL:         opp.UILink,
		Location:    location,
		Industry:    industry,
		Agency:      topAgency(opp.FullParentPathName),
		Amount:      float64(opp.Award.Amount),
		DetectedAt:  detected,
	}, true
}

func awardDetail(opp samOpportunity) string {
	var b strings.Builder
	b.WriteString("Award notice")
	if opp.Award.Number != "" {
		b.WriteString(" for contract " + opp.Award.Number)
	}
	if opp.SolicitationNumber != "" {
		b.WriteString(" under solicitation " + opp.SolicitationNumber)
	}
	if opp.NAICSCode != "" {
		b.WriteString(" (NAICS " + opp.NAICSCode + ")")
	}
	if d, ok := parseSAMDate(opp.Award.Date); ok {
		b.WriteString(", awarded " + d.Format("2006-01-02"))
	}
	b.WriteString(".")
	return b.String()
}

// topAgency returns the department from a dotted SAM.gov agency path such
// as "DEPT OF DEFENSE.DEPT OF THE ARMY.W6QK ACC-APG".
func topAgency(path string) string {
	first, _, _ := strings.Cut(path, ".")
	return strings.TrimSpace(first)
}

// parseSAMDate accepts the date layouts SAM.gov uses across fields.
func parseSAMDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{"2006-01-02", "2006-01-02 15:04:05", time.RFC3339, "2006-01-02T15:04:05", samDateLayout} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// stateCode reports whether a location filter is a two-letter state code.
func stateCode(location string) (string, bool) {
	location = strings.TrimSpace(location)
	if len(location) != 2 {
		return "", false
	}
	for _, r := range location {
		if (r < 'A' || r > 'Z') && (r < 'a' || r > 'z') {
			return "", false
		}
	}
	return strings.ToUpper(location), true
}

// naicsCode reports whether an industry filter is a NAICS code.
func naicsCode(industry string) (string, bool) {
	industry = strings.TrimSpace(industry)
	if len(industry) < 2 || len(industry) > 6 {
		return "", false
	}
	for _, r := range industry {
		if r < '0' || r > '9' {
			return "", false
		}
	}
	return industry, true
}

// SAM.gov API JSON structures.
type samResponse struct {
	TotalRecords  int              `json:"totalRecords"`
	Limit         int              `json:"limit"`
	Offset        int              `json:"offset"`
	Opportunities []samOpportunity `json:"opportunitiesData"`
}

type samOpportunity struct {
	NoticeID           string   `json:"noticeId"`
	Title              string   `json:"title"`
	SolicitationNumber string   `json:"solicitationNumber"`
	FullParentPathName string   `json:"fullParentPathName"`
	PostedDate         string   `json:"postedDate"`
	Type               string   `json:"type"`
	NAICSCode          string   `json:"naicsCode"`
	UILink             string   `json:"uiLink"`
	Award              samAward `json:"award"`
}

type samAward struct {
	Date    string     `json:"date"`
	Number  string     `json:"number"`
	Amount  samAmount  `json:"amount"`
	Awardee samAwardee `json:"awardee"`
}

type samAwardee struct {
	Name     string      `json:"name"`
	UEI      string      `json:"ueiSAM"`
	Location samLocation `json:"location"`
}

type samLocation struct {
	City  samNamed `json:"city"`
	State samNamed `json:"state"`
}

type samNamed struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// String renders "City, ST", dropping missing parts.
func (l samLocation) String() string {
	state := l.State.Code
	if state == "" {
		state = l.State.Name
	}
	switch {
	case l.City.Name != "" && state != "":
		return l.City.Name + ", " + state
	case l.City.Name != "":
		return l.City.Name
	default:
		return state
	}
}

// samAmount decodes award amounts that SAM.gov sends either as a JSON
// number or as a numeric string. Unparseable amounts decode as zero.
type samAmount float64

func (a *samAmount) UnmarshalJSON(data []byte) error {
	data = bytes.Trim(bytes.TrimSpace(data), `"`)
	if len(data) == 0 || string(data) == "null" {
		*a = 0
		return nil
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(string(data), ",", ""), 64)
	if err != nil {
		*a = 0
		return nil
	}
	*a = samAmount(v)
	return nil
}
