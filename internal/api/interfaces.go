// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package api

import (
	"context"

	"github.com/pdiddy/signal-engine/internal/discovery"
	"github.com/pdiddy/signal-engine/internal/store"
	"github.com/pdiddy/signal-engine/pkg/types"
)

// Runner triggers discovery. *discovery.Orchestrator implements it.
type Runner interface {
	WindowDays() int
	RunWindow(ctx context.Context, profileID, userID string, windowDays int) (discovery.RunResult, error)
	FetchSource(ctx context.Context, source types.SourceType, windowDays int, filters types.ProfileFilters) (types.FetchResult, error)
}

// Store is the read side the handlers need. *store.Store implements it.
type Store interface {
	Ping(ctx context.Context) error
	ListRuns(ctx context.Context, q store.RunQuery) ([]types.SearchRun, error)
	ListSignalsWithContacts(ctx context.Context, userID string) ([]types.SignalWithContacts, error)
}
