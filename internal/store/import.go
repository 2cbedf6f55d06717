// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/signal-engine/pkg/types"
)

// profileFile is the YAML layout accepted by ImportProfiles.
type profileFile struct {
	Profiles []types.SearchProfile `yaml:"profiles"`
}

// contactFile is the YAML layout accepted by ImportContacts. It is the
// hand-off format of the enrichment process.
type contactFile struct {
	Contacts []types.SignalContact `yaml:"contacts"`
}

// ImportProfiles reads a YAML document with a top-level "profiles" list and
// upserts each profile. It returns the number of profiles written.
func (s *Store) ImportProfiles(ctx context.Context, r io.Reader) (int, error) {
	var f profileFile
	if err := yaml.NewDecoder(r).Decode(&f); err != nil {
		return 0, fmt.Errorf("parsing profiles YAML: %w", err)
	}
	for i, p := range f.Profiles {
		if p.ID == "" || p.UserID == "" {
			return i, fmt.Errorf("profile #%d: id and user_id are required", i+1)
		}
		if err := s.PutProfile(ctx, p); err != nil {
			return i, err
		}
	}
	return len(f.Profiles), nil
}

// ImportContacts reads a YAML document with a top-level "contacts" list and
// replaces the contacts of every signal it mentions. Contacts without an id
// are assigned one. It returns the number of contacts written.
func (s *Store) ImportContacts(ctx context.Context, r io.Reader) (int, error) {
	var f contactFile
	if err := yaml.NewDecoder(r).Decode(&f); err != nil {
		return 0, fmt.Errorf("parsing contacts YAML: %w", err)
	}

	var order []string
	bySignal := make(map[string][]types.SignalContact)
	for i, c := range f.Contacts {
		if c.SignalID == "" {
			return 0, fmt.Errorf("contact #%d: signal_id is required", i+1)
		}
		if c.ID == "" {
			c.ID = uuid.NewString()
		}
		if _, ok := bySignal[c.SignalID]; !ok {
			order = append(order, c.SignalID)
		}
		bySignal[c.SignalID] = append(bySignal[c.SignalID], c)
	}

	written := 0
	for _, signalID := range order {
		if err := s.PutContacts(ctx, signalID, bySignal[signalID]); err != nil {
			return written, err
		}
		written += len(bySignal[signalID])
	}
	return written, nil
}
