// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package discovery runs a search profile against its source connectors,
// turns the raw candidates into net-new signals, and persists them with a
// SearchRun provenance record.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/pdiddy/signal-engine/internal/connector"
	"github.com/pdiddy/signal-engine/internal/logging"
	"github.com/pdiddy/signal-engine/internal/signals"
	"github.com/pdiddy/signal-engine/internal/store"
	"github.com/pdiddy/signal-engine/pkg/types"
)

const (
	defaultWindowDays = 7
	defaultDeadline   = 30 * time.Second
)

// Store is the persistence the orchestrator needs. GetProfile reports a
// missing profile with an error wrapping store.ErrNotFound. SaveRun must
// write the signals and the run as one unit and return the number of
// signal rows actually inserted.
type Store interface {
	GetProfile(ctx context.Context, id string) (types.SearchProfile, error)
	ListSignals(ctx context.Context, userID string) ([]types.Signal, error)
	SaveRun(ctx context.Context, run *types.SearchRun, sigs []types.Signal) (int, error)
}

// RunResult is what a completed run reports to its caller.
type RunResult struct {
	NewSignals int             `json:"newSignals"`
	Run        types.SearchRun `json:"run"`
}

// Orchestrator fans a profile out to its connectors and persists the
// net-new signals. It holds no per-run state and is safe for concurrent
// use.
type Orchestrator struct {
	store    Store
	registry *connector.Registry
	cfg      types.DiscoveryConfig
	logger   logging.Logger
	metrics  *Metrics

	now   func() time.Time
	newID func() string
}

// New creates an orchestrator. metrics may be nil.
func New(st Store, registry *connector.Registry, cfg types.DiscoveryConfig, logger logging.Logger, metrics *Metrics) *Orchestrator {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Orchestrator{
		store:    st,
		registry: registry,
		cfg:      cfg,
		logger:   logging.Component(logger, "discovery"),
		metrics:  metrics,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// WindowDays returns the configured default fetch window.
func (o *Orchestrator) WindowDays() int {
	if o.cfg.WindowDays > 0 {
		return o.cfg.WindowDays
	}
	return defaultWindowDays
}

func (o *Orchestrator) deadline() time.Duration {
	if o.cfg.Deadline > 0 {
		return o.cfg.Deadline
	}
	return defaultDeadline
}

// Run executes profileID on behalf of userID with the default window.
func (o *Orchestrator) Run(ctx context.Context, profileID, userID string) (RunResult, error) {
	return o.RunWindow(ctx, profileID, userID, o.WindowDays())
}

// RunWindow executes profileID on behalf of userID, looking windowDays
// back. Connector failures are recorded on the returned SearchRun; only
// ErrInvalidWindow, ErrNotFound, ErrPersistence and profile load failures
// are returned as errors, and in each case nothing has been written.
func (o *Orchestrator) RunWindow(ctx context.Context, profileID, userID string, windowDays int) (RunResult, error) {
	if windowDays < 1 {
		return RunResult{}, fmt.Errorf("%w: got %d", ErrInvalidWindow, windowDays)
	}

	profile, err := o.store.GetProfile(ctx, profileID)
	if errors.Is(err, store.ErrNotFound) {
		return RunResult{}, fmt.Errorf("%w: %s", ErrNotFound, profileID)
	}
	if err != nil {
		return RunResult{}, fmt.Errorf("loading profile %s: %w", profileID, err)
	}
	if userID == "" || profile.UserID != userID {
		return RunResult{}, fmt.Errorf("%w: %s", ErrNotFound, profileID)
	}

	log := o.logger.WithFields(logging.Fields{
		"profile_id":  profileID,
		"user_id":     userID,
		"window_days": windowDays,
	})
	ranAt := o.now().UTC()
	sources := profile.EnabledSources()
	log.WithField("sources", sources).Info("search run started")

	results := o.fetchAll(ctx, sources, windowDays, profile)

	var (
		raws    []types.RawSignal
		runErrs = []types.SourceError{}
	)
	for _, r := range results {
		for _, raw := range r.result.Signals {
			if raw.SourceType == "" {
				raw.SourceType = r.source
			}
			raws = append(raws, raw)
		}
		if r.result.Failed() {
			runErrs = append(runErrs, types.SourceError{Source: r.source, Message: r.result.Err})
			log.WithFields(logging.Fields{
				"source":    r.source,
				"error":     r.result.Err,
				"collected": len(r.result.Signals),
			}).Warn("source fetch failed")
		}
	}

	existing, err := o.store.ListSignals(ctx, userID)
	if err != nil {
		return RunResult{}, fmt.Errorf("%w: loading existing signals: %w", ErrPersistence, err)
	}
	fresh, removed := signals.Dedupe(signals.NormalizeAll(raws), existing)
	for i := range fresh {
		fresh[i].ID = o.newID()
		fresh[i].UserID = userID
		fresh[i].IsNew = true
	}

	run := &types.SearchRun{
		ID:        o.newID(),
		ProfileID: profileID,
		UserID:    userID,
		RanAt:     ranAt,
		Errors:    runErrs,
		Status:    runStatus(len(sources), len(runErrs), len(raws)),
	}
	inserted, err := o.store.SaveRun(ctx, run, fresh)
	if err != nil {
		log.WithError(err).Error("search run not persisted")
		return RunResult{}, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	run.NewSignals = inserted
	o.metrics.observeRun(run.Status, inserted, removed+len(fresh)-inserted)

	log.WithFields(logging.Fields{
		"run_id":      run.ID,
		"status":      run.Status,
		"candidates":  len(raws),
		"new_signals": inserted,
		"errors":      len(runErrs),
	}).Info("search run recorded")

	return RunResult{NewSignals: inserted, Run: *run}, nil
}

// FetchSource runs a single connector under the run deadline without
// persisting anything. It backs pull-on-demand feeds such as the tender
// award endpoint.
func (o *Orchestrator) FetchSource(ctx context.Context, source types.SourceType, windowDays int, filters types.ProfileFilters) (types.FetchResult, error) {
	if windowDays < 1 {
		return types.FetchResult{}, fmt.Errorf("%w: got %d", ErrInvalidWindow, windowDays)
	}
	if _, ok := o.registry.Get(source); !ok {
		return types.FetchResult{}, fmt.Errorf("%w: %s", ErrUnknownSource, source)
	}
	profile := types.SearchProfile{
		Industry: filters.Industry,
		Location: filters.Location,
		Keywords: filters.Keywords,
	}
	results := o.fetchAll(ctx, []types.SourceType{source}, windowDays, profile)
	return results[0].result, nil
}

type sourceResult struct {
	source types.SourceType
	result types.FetchResult
}

// fetchAll invokes the connector for each source concurrently and collects
// results until all report or the deadline passes. Connectors still running
// at the deadline are reported as timed out; their late results land in a
// buffered channel nobody reads. Results are returned sorted by source so
// downstream dedup does not depend on completion order.
func (o *Orchestrator) fetchAll(ctx context.Context, sources []types.SourceType, windowDays int, profile types.SearchProfile) []sourceResult {
	deadline := o.deadline()
	fetchCtx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	ch := make(chan sourceResult, len(sources))
	pending := make(map[types.SourceType]bool, len(sources))
	out := make([]sourceResult, 0, len(sources))

	for _, src := range sources {
		c, ok := o.registry.Get(src)
		if !ok {
			out = append(out, sourceResult{source: src, result: types.FetchResult{Err: ErrUnknownSource.Error()}})
			continue
		}
		pending[src] = true
		go func() {
			ch <- sourceResult{source: src, result: o.fetchOne(fetchCtx, c, windowDays, profile.Filters())}
		}()
	}

	collect := func(r sourceResult) {
		delete(pending, r.source)
		out = append(out, r)
	}
	for len(pending) > 0 {
		select {
		case r := <-ch:
			collect(r)
		case <-fetchCtx.Done():
		drain:
			for {
				select {
				case r := <-ch:
					collect(r)
				default:
					break drain
				}
			}
			msg := fmt.Sprintf("timed out after %s", deadline)
			if !errors.Is(fetchCtx.Err(), context.DeadlineExceeded) {
				msg = fmt.Sprintf("canceled: %v", fetchCtx.Err())
			}
			for src := range pending {
				out = append(out, sourceResult{source: src, result: types.FetchResult{Err: msg}})
			}
			pending = nil
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].source < out[j].source })
	return out
}

// fetchOne calls a connector and converts a panic into a soft error.
func (o *Orchestrator) fetchOne(ctx context.Context, c connector.Connector, windowDays int, filters types.ProfileFilters) (res types.FetchResult) {
	start := time.Now()
	defer func() {
		if p := recover(); p != nil {
			res = types.FetchResult{Err: fmt.Sprintf("connector panicked: %v", p)}
		}
		outcome := "ok"
		switch {
		case errors.Is(ctx.Err(), context.DeadlineExceeded):
			outcome = "timeout"
		case res.Failed():
			outcome = "error"
		}
		o.metrics.observeFetch(c.Source(), outcome, time.Since(start))
	}()
	return c.Fetch(ctx, windowDays, filters)
}

// runStatus classifies a run. A run fails outright only when every enabled
// source errored and nothing was collected.
func runStatus(sources, failures, collected int) types.RunStatus {
	switch {
	case failures == 0:
		return types.RunCompleted
	case failures >= sources && collected == 0:
		return types.RunFailed
	default:
		return types.RunCompletedWithErrors
	}
}
