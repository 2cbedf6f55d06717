// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package discovery

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/signal-engine/internal/connector"
	"github.com/pdiddy/signal-engine/internal/logging"
	"github.com/pdiddy/signal-engine/internal/signals"
	"github.com/pdiddy/signal-engine/internal/store"
	"github.com/pdiddy/signal-engine/pkg/types"
)

// --- fakes ---

var eventDay = time.Date(2026, 3, 9, 14, 0, 0, 0, time.UTC)

func raw(source types.SourceType, url, company string) types.RawSignal {
	return types.RawSignal{
		SourceType:  source,
		CompanyName: company,
		Title:       "Event at " + company,
		URL:         url,
		DetectedAt:  eventDay,
	}
}

type fakeConnector struct {
	source types.SourceType
	result types.FetchResult
	delay  time.Duration
	panics bool

	calls      atomic.Int32
	lastWindow atomic.Int32
}

func (f *fakeConnector) Source() types.SourceType { return f.source }

func (f *fakeConnector) Fetch(ctx context.Context, windowDays int, filters types.ProfileFilters) types.FetchResult {
	f.calls.Add(1)
	f.lastWindow.Store(int32(windowDays))
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.panics {
		panic("upstream parser exploded")
	}
	return f.result
}

// stuckConnector never returns until the test ends, ignoring its context.
type stuckConnector struct {
	source  types.SourceType
	release chan struct{}
}

func (s *stuckConnector) Source() types.SourceType { return s.source }

func (s *stuckConnector) Fetch(context.Context, int, types.ProfileFilters) types.FetchResult {
	<-s.release
	return types.FetchResult{Signals: []types.RawSignal{raw(s.source, "https://late.example/1", "Late")}}
}

// memStore enforces the same identity uniqueness as the SQLite store.
type memStore struct {
	mu       sync.Mutex
	profiles map[string]types.SearchProfile
	signals  []types.Signal
	keys     map[string]bool
	runs     []types.SearchRun

	saveErr error
	listErr error
}

func newMemStore(profiles ...types.SearchProfile) *memStore {
	m := &memStore{profiles: map[string]types.SearchProfile{}, keys: map[string]bool{}}
	for _, p := range profiles {
		m.profiles[p.ID] = p
	}
	return m
}

func (m *memStore) GetProfile(_ context.Context, id string) (types.SearchProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[id]
	if !ok {
		return types.SearchProfile{}, fmt.Errorf("profile %s: %w", id, store.ErrNotFound)
	}
	return p, nil
}

func (m *memStore) ListSignals(_ context.Context, userID string) ([]types.Signal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []types.Signal
	for _, s := range m.signals {
		if s.UserID == userID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *memStore) SaveRun(_ context.Context, run *types.SearchRun, sigs []types.Signal) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return 0, m.saveErr
	}
	inserted := 0
	for _, s := range sigs {
		k := s.UserID + "|" + signals.Key(s)
		if m.keys[k] {
			continue
		}
		m.keys[k] = true
		m.signals = append(m.signals, s)
		inserted++
	}
	run.NewSignals = inserted
	m.runs = append(m.runs, *run)
	return inserted, nil
}

func (m *memStore) signalKeys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, s := range m.signals {
		out = append(out, signals.Key(s))
	}
	sort.Strings(out)
	return out
}

func profile(sources ...types.SourceType) types.SearchProfile {
	return types.SearchProfile{ID: "p1", UserID: "u1", Name: "Federal", Sources: sources}
}

func newTestOrchestrator(st Store, cfg types.DiscoveryConfig, connectors ...connector.Connector) *Orchestrator {
	o := New(st, connector.NewRegistry(connectors...), cfg, logging.Discard(), nil)
	o.now = func() time.Time { return eventDay.Add(2 * time.Hour) }
	return o
}

// --- run ---

func TestRunPersistsNetNewThenIsIdempotent(t *testing.T) {
	st := newMemStore(profile(types.SourceTenderAwards))
	tender := &fakeConnector{source: types.SourceTenderAwards, result: types.FetchResult{Signals: []types.RawSignal{
		raw(types.SourceTenderAwards, "https://sam.gov/opp/1/view", "ACME LLC"),
		raw(types.SourceTenderAwards, "https://sam.gov/opp/2/view", "Globex"),
	}}}
	o := newTestOrchestrator(st, types.DiscoveryConfig{}, tender)

	first, err := o.Run(context.Background(), "p1", "u1")
	require.NoError(t, err)
	assert.Equal(t, 2, first.NewSignals)
	assert.Equal(t, 2, first.Run.NewSignals)
	assert.Equal(t, types.RunCompleted, first.Run.Status)
	assert.Empty(t, first.Run.Errors)
	assert.NotEmpty(t, first.Run.ID)
	assert.Equal(t, "p1", first.Run.ProfileID)

	for _, s := range st.signals {
		assert.Equal(t, "u1", s.UserID)
		assert.True(t, s.IsNew)
		assert.NotEmpty(t, s.ID)
	}

	second, err := o.Run(context.Background(), "p1", "u1")
	require.NoError(t, err)
	assert.Equal(t, 0, second.NewSignals)
	assert.Len(t, st.signals, 2)
	assert.Len(t, st.runs, 2)
}

func TestRunUsesDefaultAndOverrideWindow(t *testing.T) {
	st := newMemStore(profile(types.SourceTenderAwards))
	tender := &fakeConnector{source: types.SourceTenderAwards}
	o := newTestOrchestrator(st, types.DiscoveryConfig{}, tender)

	_, err := o.Run(context.Background(), "p1", "u1")
	require.NoError(t, err)
	assert.Equal(t, int32(7), tender.lastWindow.Load())

	_, err = o.RunWindow(context.Background(), "p1", "u1", 3)
	require.NoError(t, err)
	assert.Equal(t, int32(3), tender.lastWindow.Load())
}

func TestRunRejectsInvalidWindow(t *testing.T) {
	st := newMemStore(profile(types.SourceTenderAwards))
	tender := &fakeConnector{source: types.SourceTenderAwards}
	o := newTestOrchestrator(st, types.DiscoveryConfig{}, tender)

	_, err := o.RunWindow(context.Background(), "p1", "u1", 0)
	assert.ErrorIs(t, err, ErrInvalidWindow)
	assert.Zero(t, tender.calls.Load())
	assert.Empty(t, st.runs)
}

func TestRunCollapsesSameIdentityAcrossConnectors(t *testing.T) {
	st := newMemStore(profile(types.SourceTenderAwards, types.SourceJobPostings))
	shared := "https://sam.gov/opp/42/view"
	a := &fakeConnector{source: types.SourceTenderAwards, result: types.FetchResult{Signals: []types.RawSignal{
		raw(types.SourceTenderAwards, shared, "Acme"),
	}}}
	b := &fakeConnector{source: types.SourceJobPostings, result: types.FetchResult{Signals: []types.RawSignal{
		raw(types.SourceTenderAwards, shared, "Acme Corporation"),
	}}}
	o := newTestOrchestrator(st, types.DiscoveryConfig{}, a, b)

	res, err := o.Run(context.Background(), "p1", "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, res.NewSignals)
	assert.Len(t, st.signals, 1)
}

func TestRunOrderIndependent(t *testing.T) {
	batchA := []types.RawSignal{
		raw(types.SourceTenderAwards, "https://x.example/1", "One"),
		raw(types.SourceTenderAwards, "https://x.example/2", "Two"),
	}
	batchB := []types.RawSignal{
		raw(types.SourceJobPostings, "https://jobs.example/1", "Three"),
		raw(types.SourceTenderAwards, "https://x.example/2", "Two again"),
	}

	runWith := func(delayA, delayB time.Duration) []string {
		st := newMemStore(profile(types.SourceTenderAwards, types.SourceJobPostings))
		a := &fakeConnector{source: types.SourceTenderAwards, delay: delayA, result: types.FetchResult{Signals: batchA}}
		b := &fakeConnector{source: types.SourceJobPostings, delay: delayB, result: types.FetchResult{Signals: batchB}}
		o := newTestOrchestrator(st, types.DiscoveryConfig{}, a, b)
		_, err := o.Run(context.Background(), "p1", "u1")
		require.NoError(t, err)
		return st.signalKeys()
	}

	aFirst := runWith(0, 30*time.Millisecond)
	bFirst := runWith(30*time.Millisecond, 0)
	assert.Len(t, aFirst, 3)
	assert.Equal(t, aFirst, bFirst)
}

func TestRunPartialFailureContained(t *testing.T) {
	st := newMemStore(profile(types.SourceTenderAwards, types.SourceJobPostings))
	failing := &fakeConnector{source: types.SourceTenderAwards, result: types.FetchResult{Err: "SAM.gov returned HTTP 503"}}
	healthy := &fakeConnector{source: types.SourceJobPostings, result: types.FetchResult{Signals: []types.RawSignal{
		raw(types.SourceJobPostings, "https://jobs.example/1", "One"),
		raw(types.SourceJobPostings, "https://jobs.example/2", "Two"),
		raw(types.SourceJobPostings, "https://jobs.example/3", "Three"),
	}}}
	o := newTestOrchestrator(st, types.DiscoveryConfig{}, failing, healthy)

	res, err := o.Run(context.Background(), "p1", "u1")
	require.NoError(t, err)
	assert.Equal(t, 3, res.NewSignals)
	assert.Equal(t, types.RunCompletedWithErrors, res.Run.Status)
	require.Len(t, res.Run.Errors, 1)
	assert.Equal(t, types.SourceTenderAwards, res.Run.Errors[0].Source)
	assert.Contains(t, res.Run.Errors[0].Message, "503")
}

func TestRunKeepsPartialResultsOfFailingConnector(t *testing.T) {
	st := newMemStore(profile(types.SourceTenderAwards))
	partial := &fakeConnector{source: types.SourceTenderAwards, result: types.FetchResult{
		Signals: []types.RawSignal{raw(types.SourceTenderAwards, "https://x.example/1", "One")},
		Err:     "page 2: connection reset",
	}}
	o := newTestOrchestrator(st, types.DiscoveryConfig{}, partial)

	res, err := o.Run(context.Background(), "p1", "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, res.NewSignals)
	assert.Equal(t, types.RunCompletedWithErrors, res.Run.Status)
}

func TestRunFailedWhenEverySourceFails(t *testing.T) {
	st := newMemStore(profile(types.SourceTenderAwards, types.SourceJobPostings))
	a := &fakeConnector{source: types.SourceTenderAwards, result: types.FetchResult{Err: "unreachable"}}
	b := &fakeConnector{source: types.SourceJobPostings, result: types.FetchResult{Err: "malformed feed"}}
	o := newTestOrchestrator(st, types.DiscoveryConfig{}, a, b)

	res, err := o.Run(context.Background(), "p1", "u1")
	require.NoError(t, err)
	assert.Equal(t, types.RunFailed, res.Run.Status)
	assert.Len(t, res.Run.Errors, 2)
	assert.Len(t, st.runs, 1, "a failed run is still recorded")
}

func TestRunOwnershipEnforced(t *testing.T) {
	st := newMemStore(profile(types.SourceTenderAwards))
	tender := &fakeConnector{source: types.SourceTenderAwards}
	o := newTestOrchestrator(st, types.DiscoveryConfig{}, tender)

	_, err := o.Run(context.Background(), "p1", "intruder")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Zero(t, tender.calls.Load())
	assert.Empty(t, st.runs)
	assert.Empty(t, st.signals)
}

func TestRunMissingProfile(t *testing.T) {
	st := newMemStore()
	o := newTestOrchestrator(st, types.DiscoveryConfig{})

	_, err := o.Run(context.Background(), "nope", "u1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRunDeadlineDoesNotBlockOtherConnectors(t *testing.T) {
	st := newMemStore(profile(types.SourceTenderAwards, types.SourceJobPostings))
	stuck := &stuckConnector{source: types.SourceTenderAwards, release: make(chan struct{})}
	t.Cleanup(func() { close(stuck.release) })
	healthy := &fakeConnector{source: types.SourceJobPostings, result: types.FetchResult{Signals: []types.RawSignal{
		raw(types.SourceJobPostings, "https://jobs.example/1", "One"),
	}}}
	o := newTestOrchestrator(st, types.DiscoveryConfig{Deadline: 50 * time.Millisecond}, stuck, healthy)

	start := time.Now()
	res, err := o.Run(context.Background(), "p1", "u1")
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)

	assert.Equal(t, 1, res.NewSignals)
	require.Len(t, res.Run.Errors, 1)
	assert.Equal(t, types.SourceTenderAwards, res.Run.Errors[0].Source)
	assert.Contains(t, res.Run.Errors[0].Message, "timed out")
}

func TestRunRecoversConnectorPanic(t *testing.T) {
	st := newMemStore(profile(types.SourceTenderAwards, types.SourceJobPostings))
	bad := &fakeConnector{source: types.SourceTenderAwards, panics: true}
	good := &fakeConnector{source: types.SourceJobPostings, result: types.FetchResult{Signals: []types.RawSignal{
		raw(types.SourceJobPostings, "https://jobs.example/1", "One"),
	}}}
	o := newTestOrchestrator(st, types.DiscoveryConfig{}, bad, good)

	res, err := o.Run(context.Background(), "p1", "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, res.NewSignals)
	require.Len(t, res.Run.Errors, 1)
	assert.Contains(t, res.Run.Errors[0].Message, "panicked")
}

func TestRunUnregisteredSource(t *testing.T) {
	st := newMemStore(profile(types.SourceTenderAwards, types.SourceJobPostings))
	tender := &fakeConnector{source: types.SourceTenderAwards}
	o := newTestOrchestrator(st, types.DiscoveryConfig{}, tender)

	res, err := o.Run(context.Background(), "p1", "u1")
	require.NoError(t, err)
	require.Len(t, res.Run.Errors, 1)
	assert.Equal(t, types.SourceJobPostings, res.Run.Errors[0].Source)
	assert.Equal(t, "no connector registered", res.Run.Errors[0].Message)
	assert.Equal(t, types.RunCompletedWithErrors, res.Run.Status)
}

func TestRunPersistenceFailureIsFatal(t *testing.T) {
	st := newMemStore(profile(types.SourceTenderAwards))
	st.saveErr = errors.New("database is locked")
	tender := &fakeConnector{source: types.SourceTenderAwards, result: types.FetchResult{Signals: []types.RawSignal{
		raw(types.SourceTenderAwards, "https://x.example/1", "One"),
	}}}
	o := newTestOrchestrator(st, types.DiscoveryConfig{}, tender)

	res, err := o.Run(context.Background(), "p1", "u1")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPersistence)
	assert.Contains(t, err.Error(), "database is locked")
	assert.Equal(t, RunResult{}, res)
	assert.Empty(t, st.runs)
	assert.Empty(t, st.signals)
}

func TestRunExistingSignalsLoadFailureIsFatal(t *testing.T) {
	st := newMemStore(profile(types.SourceTenderAwards))
	st.listErr = errors.New("disk I/O error")
	o := newTestOrchestrator(st, types.DiscoveryConfig{}, &fakeConnector{source: types.SourceTenderAwards})

	_, err := o.Run(context.Background(), "p1", "u1")
	assert.ErrorIs(t, err, ErrPersistence)
	assert.Empty(t, st.runs)
}

func TestRunRecordsMetrics(t *testing.T) {
	st := newMemStore(profile(types.SourceTenderAwards))
	tender := &fakeConnector{source: types.SourceTenderAwards, result: types.FetchResult{Signals: []types.RawSignal{
		raw(types.SourceTenderAwards, "https://x.example/1", "One"),
		raw(types.SourceTenderAwards, "https://x.example/1", "One again"),
	}}}
	m := NewMetrics(prometheus.NewRegistry())
	o := New(st, connector.NewRegistry(tender), types.DiscoveryConfig{}, logging.Discard(), m)

	_, err := o.Run(context.Background(), "p1", "u1")
	require.NoError(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runsTotal.WithLabelValues("completed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.newSignals))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.dedupedSignals))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.fetchesTotal.WithLabelValues("tender_awards", "ok")))
}

// --- fetch source ---

func TestFetchSource(t *testing.T) {
	tender := &fakeConnector{source: types.SourceTenderAwards, result: types.FetchResult{
		Signals: []types.RawSignal{raw(types.SourceTenderAwards, "https://x.example/1", "One")},
		Err:     "page 2 failed",
	}}
	o := newTestOrchestrator(newMemStore(), types.DiscoveryConfig{}, tender)

	res, err := o.FetchSource(context.Background(), types.SourceTenderAwards, 7, types.ProfileFilters{})
	require.NoError(t, err)
	assert.Len(t, res.Signals, 1)
	assert.Equal(t, "page 2 failed", res.Err)

	_, err = o.FetchSource(context.Background(), types.SourceJobPostings, 7, types.ProfileFilters{})
	assert.ErrorIs(t, err, ErrUnknownSource)

	_, err = o.FetchSource(context.Background(), types.SourceTenderAwards, 0, types.ProfileFilters{})
	assert.ErrorIs(t, err, ErrInvalidWindow)
}

func TestRunStatus(t *testing.T) {
	tests := []struct {
		name                         string
		sources, failures, collected int
		want                         types.RunStatus
	}{
		{"clean", 2, 0, 5, types.RunCompleted},
		{"no sources", 0, 0, 0, types.RunCompleted},
		{"one of two failed", 2, 1, 0, types.RunCompletedWithErrors},
		{"all failed with partial data", 2, 2, 1, types.RunCompletedWithErrors},
		{"all failed", 2, 2, 0, types.RunFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, runStatus(tt.sources, tt.failures, tt.collected))
		})
	}
}
