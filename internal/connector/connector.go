// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package connector fetches raw signal candidates from external sources.
// Each source implements Connector; the Registry maps source types to
// connectors and is built once at process start.
package connector

import (
	"context"
	"net/http"
	"sort"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/pdiddy/signal-engine/internal/httputil"
	"github.com/pdiddy/signal-engine/internal/logging"
	"github.com/pdiddy/signal-engine/pkg/types"
)

const (
	defaultTimeout   = 20 * time.Second
	defaultUserAgent = "signal-engine/0.1"
)

// Connector fetches candidates for one source. Fetch never panics and never
// returns a Go error: upstream failures are reported in FetchResult.Err
// together with whatever was parsed before the failure.
type Connector interface {
	Source() types.SourceType
	Fetch(ctx context.Context, windowDays int, filters types.ProfileFilters) types.FetchResult
}

// Registry maps source types to connectors.
type Registry struct {
	connectors map[types.SourceType]Connector
}

// NewRegistry builds a registry from connectors. A later connector for the
// same source type replaces an earlier one.
func NewRegistry(connectors ...Connector) *Registry {
	r := &Registry{connectors: make(map[types.SourceType]Connector, len(connectors))}
	for _, c := range connectors {
		r.connectors[c.Source()] = c
	}
	return r
}

// Get returns the connector for a source type.
func (r *Registry) Get(source types.SourceType) (Connector, bool) {
	c, ok := r.connectors[source]
	return c, ok
}

// Sources lists registered source types in sorted order.
func (r *Registry) Sources() []types.SourceType {
	out := make([]types.SourceType, 0, len(r.connectors))
	for s := range r.connectors {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Build constructs the registry of enabled connectors from configuration.
func Build(cfg types.ConnectorsConfig, logger logging.Logger) *Registry {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	client := &http.Client{Timeout: timeout}

	var connectors []Connector
	if cfg.TenderAwards.Enabled {
		connectors = append(connectors, &TenderAwards{
			Retrier: &httputil.Retrier{
				Client:     client,
				MaxRetries: cfg.MaxRetries,
				Logger:     logging.Component(logger, "connector.tender_awards"),
			},
			BaseURL:   cfg.TenderAwards.BaseURL,
			APIKey:    cfg.TenderAwards.APIKey,
			PageSize:  cfg.TenderAwards.PageSize,
			UserAgent: userAgent,
		})
	}
	if cfg.JobPostings.Enabled {
		connectors = append(connectors, &JobPostings{
			Client:    client,
			Feeds:     cfg.JobPostings.Feeds,
			UserAgent: userAgent,
		})
	}
	return NewRegistry(connectors...)
}

// windowStart returns the earliest instant a fetch may report: the start of
// the UTC day windowDays before now. Sources filter by calendar date, so the
// window covers whole days.
func windowStart(now time.Time, windowDays int) time.Time {
	y, m, d := now.UTC().AddDate(0, 0, -windowDays).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func nowOr(f func() time.Time) time.Time {
	if f != nil {
		return f()
	}
	return time.Now()
}

// containsTerm reports whether term occurs in text as a whole word or phrase,
// case-insensitively. "tx" matches "Austin, TX" but not "context".
func containsTerm(text, term string) bool {
	text, term = strings.ToLower(text), strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return true
	}
	for i := 0; ; {
		j := strings.Index(text[i:], term)
		if j < 0 {
			return false
		}
		start, end := i+j, i+j+len(term)
		if boundaryBefore(text, start) && boundaryAfter(text, end) {
			return true
		}
		i = start + 1
	}
}

func boundaryBefore(s string, i int) bool {
	r, _ := utf8.DecodeLastRuneInString(s[:i])
	return i == 0 || !isWordRune(r)
}

func boundaryAfter(s string, i int) bool {
	r, _ := utf8.DecodeRuneInString(s[i:])
	return i == len(s) || !isWordRune(r)
}

func isWordRune(r rune) bool { return unicode.IsLetter(r) || unicode.IsDigit(r) }
