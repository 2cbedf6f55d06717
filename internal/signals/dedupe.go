// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package signals

import (
	"strings"

	"github.com/pdiddy/signal-engine/pkg/types"
)

// Key returns the identity key of a signal within one owner's signal set:
// source type plus URL when the signal has a URL, otherwise source type,
// company domain, and the UTC date of detection. The store enforces the
// same key as a unique constraint.
func Key(s types.Signal) string {
	if u := strings.TrimSpace(s.SignalURL); u != "" {
		return string(s.SourceType) + "|url|" + u
	}
	return string(s.SourceType) + "|domain|" + strings.ToLower(strings.TrimSpace(s.CompanyDomain)) +
		"|" + s.DetectedAt.UTC().Format("2006-01-02")
}

// Dedupe returns the candidates whose key matches neither an existing signal
// nor an earlier candidate, along with the number of candidates dropped.
// When two candidates collide the first one wins.
func Dedupe(candidates, existing []types.Signal) ([]types.Signal, int) {
	seen := make(map[string]struct{}, len(existing)+len(candidates))
	for _, s := range existing {
		seen[Key(s)] = struct{}{}
	}

	fresh := make([]types.Signal, 0, len(candidates))
	removed := 0
	for _, c := range candidates {
		k := Key(c)
		if _, ok := seen[k]; ok {
			removed++
			continue
		}
		seen[k] = struct{}{}
		fresh = append(fresh, c)
	}
	return fresh, removed
}
