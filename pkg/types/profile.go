// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"strings"
	"time"
)

// SearchProfile is a user's saved discovery configuration. The pipeline
// reads it as an immutable snapshot.
type SearchProfile struct {
	ID       string       `json:"id" yaml:"id"`
	UserID   string       `json:"user_id" yaml:"user_id"`
	Name     string       `json:"name" yaml:"name"`
	Industry string       `json:"industry" yaml:"industry"`
	Location string       `json:"location" yaml:"location"`
	Keywords []string     `json:"keywords" yaml:"keywords"`
	Sources  []SourceType `json:"sources" yaml:"sources"`

	CreatedAt time.Time `json:"created_at" yaml:"created_at,omitempty"`
}

// ProfileFilters is the subset of a profile that connectors see.
type ProfileFilters struct {
	Industry string   `json:"industry"`
	Location string   `json:"location"`
	Keywords []string `json:"keywords"`
}

// Filters returns a copy of the profile's filters. The keyword slice is
// copied so connectors cannot mutate the profile.
func (p SearchProfile) Filters() ProfileFilters {
	kw := make([]string, 0, len(p.Keywords))
	for _, k := range p.Keywords {
		if k = strings.TrimSpace(k); k != "" {
			kw = append(kw, k)
		}
	}
	return ProfileFilters{
		Industry: strings.TrimSpace(p.Industry),
		Location: strings.TrimSpace(p.Location),
		Keywords: kw,
	}
}

// EnabledSources returns the profile's source types without duplicates, in
// profile order.
func (p SearchProfile) EnabledSources() []SourceType {
	seen := make(map[SourceType]bool, len(p.Sources))
	var out []SourceType
	for _, s := range p.Sources {
		s = SourceType(strings.TrimSpace(string(s)))
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

// MatchesAny reports whether text contains any of the filter keywords,
// case-insensitively. With no keywords every text matches.
func (f ProfileFilters) MatchesAny(text string) bool {
	if len(f.Keywords) == 0 {
		return true
	}
	lower := strings.ToLower(text)
	for _, kw := range f.Keywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}
