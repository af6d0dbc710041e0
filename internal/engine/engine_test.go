package engine

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netopt/optiview/internal/config"
	"github.com/netopt/optiview/internal/errors"
	"github.com/netopt/optiview/internal/models"
)

// stubService implements Service with overridable function fields. The
// defaults answer like a healthy optimizer.
type stubService struct {
	mu             sync.Mutex
	healthFn       func(ctx context.Context) error
	metricsFn      func(ctx context.Context) (*models.MetricsSnapshot, error)
	statusFn       func(ctx context.Context) (*models.StatusSnapshot, error)
	decisionsFn    func(ctx context.Context, limit int) ([]models.DecisionRecord, error)
	runCycleFn     func(ctx context.Context) (*models.CycleResult, error)
	simulateFn     func(ctx context.Context, scenario string) error
	metricsCalls   int
	statusCalls    int
	decisionsCalls int
}

func healthySnapshot() *models.MetricsSnapshot {
	return &models.MetricsSnapshot{
		HealthScore: 93,
		Summary: models.MetricsSummary{
			NodeCount: 10, HealthyCount: 10,
			AvgLatency: 29.7, AvgBandwidth: 612.5, AvgPacketLoss: 1.4,
			AvgCPU: 41.2, AvgMemory: 52.8, MaxLatency: 88.1,
		},
	}
}

func (s *stubService) Health(ctx context.Context) error {
	if s.healthFn != nil {
		return s.healthFn(ctx)
	}
	return nil
}

func (s *stubService) Metrics(ctx context.Context) (*models.MetricsSnapshot, error) {
	s.mu.Lock()
	s.metricsCalls++
	s.mu.Unlock()
	if s.metricsFn != nil {
		return s.metricsFn(ctx)
	}
	return healthySnapshot(), nil
}

func (s *stubService) Status(ctx context.Context) (*models.StatusSnapshot, error) {
	s.mu.Lock()
	s.statusCalls++
	s.mu.Unlock()
	if s.statusFn != nil {
		return s.statusFn(ctx)
	}
	return &models.StatusSnapshot{
		Agents: []models.AgentStatus{{Name: "monitor", Status: "idle"}},
		Cycles: 3,
	}, nil
}

func (s *stubService) Decisions(ctx context.Context, limit int) ([]models.DecisionRecord, error) {
	s.mu.Lock()
	s.decisionsCalls++
	s.mu.Unlock()
	if s.decisionsFn != nil {
		return s.decisionsFn(ctx, limit)
	}
	return nil, nil
}

func (s *stubService) RunCycle(ctx context.Context) (*models.CycleResult, error) {
	if s.runCycleFn != nil {
		return s.runCycleFn(ctx)
	}
	return &models.CycleResult{HealthScore: 93}, nil
}

func (s *stubService) Simulate(ctx context.Context, scenario string) error {
	if s.simulateFn != nil {
		return s.simulateFn(ctx, scenario)
	}
	return nil
}

func (s *stubService) calls() (metrics, status, decisions int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.metricsCalls, s.statusCalls, s.decisionsCalls
}

// recordingPresenter captures every view the engine renders.
type recordingPresenter struct {
	mu         sync.Mutex
	cycles     []models.CycleView
	connection []models.ConnectionView
	activities models.ActivityFeedView
	decisions  models.DecisionListView
	toasts     models.ToastStackView
	agents     models.AgentStatusView
	rings      []models.HealthRingView
}

func (p *recordingPresenter) RenderConnection(v models.ConnectionView) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.connection = append(p.connection, v)
}

func (p *recordingPresenter) RenderHealthRing(v models.HealthRingView) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rings = append(p.rings, v)
}

func (p *recordingPresenter) RenderMetricBars([]models.MetricBarView) {}
func (p *recordingPresenter) RenderNodeGrid(models.NodeGridView)     {}

func (p *recordingPresenter) RenderAgents(v models.AgentStatusView) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.agents = v
}

func (p *recordingPresenter) RenderCycle(v models.CycleView) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cycles = append(p.cycles, v)
}

func (p *recordingPresenter) RenderActivities(v models.ActivityFeedView) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.activities = v
}

func (p *recordingPresenter) RenderDecisions(v models.DecisionListView) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.decisions = v
}

func (p *recordingPresenter) RenderToasts(v models.ToastStackView) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.toasts = v
}

func (p *recordingPresenter) phaseSequence() []models.CyclePhase {
	p.mu.Lock()
	defer p.mu.Unlock()
	phases := make([]models.CyclePhase, 0, len(p.cycles))
	for _, c := range p.cycles {
		phases = append(phases, c.Phase)
	}
	return phases
}

func (p *recordingPresenter) activityTitles() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	titles := make([]string, 0, len(p.activities.Entries))
	for _, a := range p.activities.Entries {
		titles = append(titles, a.Title)
	}
	return titles
}

func (p *recordingPresenter) toastCount(title string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, toast := range p.toasts.Toasts {
		if toast.Title == title {
			n++
		}
	}
	return n
}

func (p *recordingPresenter) connectionStates() []models.ConnectionState {
	p.mu.Lock()
	defer p.mu.Unlock()
	states := make([]models.ConnectionState, 0, len(p.connection))
	for _, c := range p.connection {
		states = append(states, c.State)
	}
	return states
}

func testConfig() *config.Config {
	return &config.Config{
		OptimizerURL:    "http://localhost:8000",
		RefreshInterval: 10 * time.Second,
		PhaseHold:       0, // flow tests run the phases synchronously
		ToastVisible:    4 * time.Second,
		ToastExit:       300 * time.Millisecond,
		ActivityLimit:   20,
		DecisionDisplay: 5,
		DecisionFetch:   10,
	}
}

func newTestEngine(svc *stubService) (*Engine, *recordingPresenter, clockwork.FakeClock) {
	rec := &recordingPresenter{}
	clock := clockwork.NewFakeClock()
	eng := New(testConfig(), svc, rec, clock, nil)
	return eng, rec, clock
}

func TestProbeFiresBoundaryEventsOnce(t *testing.T) {
	svc := &stubService{}
	eng, rec, _ := newTestEngine(svc)

	require.Equal(t, models.StateConnected, eng.Probe(context.Background()))
	eng.Probe(context.Background())
	eng.Probe(context.Background())

	assert.Equal(t, []models.ConnectionState{models.StateConnected}, rec.connectionStates())
	assert.Equal(t, []string{"Connected"}, rec.activityTitles())
	assert.Equal(t, 1, rec.toastCount("Connected"))

	svc.healthFn = func(context.Context) error {
		return errors.WrapConnectivityError("probe", fmt.Errorf("refused"))
	}
	require.Equal(t, models.StateDisconnected, eng.Probe(context.Background()))
	eng.Probe(context.Background())

	states := rec.connectionStates()
	assert.Equal(t, []models.ConnectionState{models.StateConnected, models.StateDisconnected}, states)
	assert.Equal(t, 1, rec.toastCount("Disconnected"))
}

func TestRefreshAppliesSurvivorsOnPartialFailure(t *testing.T) {
	svc := &stubService{
		metricsFn: func(context.Context) (*models.MetricsSnapshot, error) {
			return nil, errors.WrapRequestError("fetch_metrics", fmt.Errorf("boom"), 500)
		},
		decisionsFn: func(context.Context, int) ([]models.DecisionRecord, error) {
			return []models.DecisionRecord{{Timestamp: "t1", Reasoning: "stable"}}, nil
		},
	}
	eng, rec, _ := newTestEngine(svc)

	err := eng.Refresh(context.Background())
	require.Error(t, err)

	// The failed metrics fetch must not stop status and decisions from landing.
	rec.mu.Lock()
	agents := rec.agents
	decisions := rec.decisions
	rec.mu.Unlock()
	assert.Equal(t, 3, agents.Cycles)
	require.Len(t, decisions.Entries, 1)
	assert.False(t, decisions.Empty)

	// A request-level failure is not a connectivity loss.
	assert.Empty(t, rec.connectionStates())
}

func TestRefreshConnectivityFailureDisconnects(t *testing.T) {
	svc := &stubService{}
	eng, rec, _ := newTestEngine(svc)
	eng.Probe(context.Background()) // connected

	svc.metricsFn = func(context.Context) (*models.MetricsSnapshot, error) {
		return nil, errors.WrapConnectivityError("fetch_metrics", fmt.Errorf("refused"))
	}
	require.Error(t, eng.Refresh(context.Background()))

	assert.Equal(t, models.StateDisconnected, eng.Connection())
	assert.Equal(t, 1, rec.toastCount("Disconnected"))
}

func TestRunCycleHealthy(t *testing.T) {
	svc := &stubService{}
	eng, rec, _ := newTestEngine(svc)

	require.NoError(t, eng.RunCycle(context.Background()))

	assert.Equal(t, models.PhaseIdle, eng.Phase())
	assert.Equal(t, []models.CyclePhase{
		models.PhaseMonitor,
		models.PhaseDecision,
		models.PhaseIdle,
	}, rec.phaseSequence(), "a healthy cycle must skip the action phase")

	titles := rec.activityTitles()
	// Snapshot is most recent first.
	require.NotEmpty(t, titles)
	assert.Equal(t, "Network healthy", titles[0])
	assert.Contains(t, titles, "Cycle started")

	rec.mu.Lock()
	entries := rec.activities.Entries
	rec.mu.Unlock()
	assert.Equal(t, "Network healthy - score 93", entries[0].Description)

	// The cycle ends with a full refresh.
	metrics, status, decisions := svc.calls()
	assert.Equal(t, 1, metrics)
	assert.Equal(t, 1, status)
	assert.Equal(t, 1, decisions)
}

func TestRunCycleWithActions(t *testing.T) {
	svc := &stubService{
		runCycleFn: func(context.Context) (*models.CycleResult, error) {
			return &models.CycleResult{HealthScore: 61, ActionsRecommended: 2, ActionExecuted: true}, nil
		},
	}
	eng, rec, _ := newTestEngine(svc)

	require.NoError(t, eng.RunCycle(context.Background()))

	assert.Equal(t, []models.CyclePhase{
		models.PhaseMonitor,
		models.PhaseDecision,
		models.PhaseAction,
		models.PhaseIdle,
	}, rec.phaseSequence())

	rec.mu.Lock()
	entries := rec.activities.Entries
	rec.mu.Unlock()
	require.NotEmpty(t, entries)
	assert.Equal(t, "Actions executed", entries[0].Title)
	assert.Equal(t, "Executed 2 actions", entries[0].Description)
}

func TestRunCycleRejectsReentry(t *testing.T) {
	release := make(chan struct{})
	svc := &stubService{
		runCycleFn: func(context.Context) (*models.CycleResult, error) {
			<-release
			return &models.CycleResult{HealthScore: 93}, nil
		},
	}
	eng, _, _ := newTestEngine(svc)

	done := make(chan error, 1)
	go func() { done <- eng.RunCycle(context.Background()) }()

	require.Eventually(t, func() bool {
		return eng.Phase() == models.PhaseMonitor
	}, time.Second, time.Millisecond)

	// Second trigger while the first cycle is in flight.
	err := eng.RunCycle(context.Background())
	require.ErrorIs(t, err, errors.ErrCycleRunning)
	assert.Equal(t, models.PhaseMonitor, eng.Phase(), "rejected trigger must not disturb the running cycle")

	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, models.PhaseIdle, eng.Phase())
}

func TestRunCycleFailureReturnsToIdle(t *testing.T) {
	svc := &stubService{
		runCycleFn: func(context.Context) (*models.CycleResult, error) {
			return nil, errors.WrapConnectivityError("run_cycle", fmt.Errorf("refused"))
		},
	}
	eng, rec, _ := newTestEngine(svc)
	eng.Probe(context.Background()) // connected

	require.Error(t, eng.RunCycle(context.Background()))

	assert.Equal(t, models.PhaseIdle, eng.Phase())
	assert.Contains(t, rec.activityTitles(), "Cycle failed")
	assert.Equal(t, 1, rec.toastCount("Cycle failed"))

	// The connectivity failure also flips the connection state.
	assert.Equal(t, models.StateDisconnected, eng.Connection())
	assert.Equal(t, 1, rec.toastCount("Disconnected"))

	// The trigger is usable again after a failure.
	svc.runCycleFn = nil
	require.NoError(t, eng.RunCycle(context.Background()))
}

func TestTickRefreshesMetricsOnly(t *testing.T) {
	svc := &stubService{}
	eng, _, _ := newTestEngine(svc)

	eng.tick(context.Background())

	metrics, status, decisions := svc.calls()
	assert.Equal(t, 1, metrics, "auto-refresh fetches metrics")
	assert.Equal(t, 0, status, "auto-refresh must not fetch status")
	assert.Equal(t, 0, decisions, "auto-refresh must not fetch decisions")
}

func TestTickSkipsFetchWhileDisconnected(t *testing.T) {
	svc := &stubService{
		healthFn: func(context.Context) error {
			return errors.WrapConnectivityError("probe", fmt.Errorf("refused"))
		},
	}
	eng, _, _ := newTestEngine(svc)

	eng.tick(context.Background())

	metrics, _, _ := svc.calls()
	assert.Equal(t, 0, metrics, "no metrics fetch while disconnected")
}

func TestTickBackgroundFailureIsSilent(t *testing.T) {
	svc := &stubService{
		metricsFn: func(context.Context) (*models.MetricsSnapshot, error) {
			return nil, errors.WrapRequestError("fetch_metrics", fmt.Errorf("boom"), 500)
		},
	}
	eng, rec, _ := newTestEngine(svc)
	eng.Probe(context.Background())

	eng.tick(context.Background())

	// Only the connect boundary toast; the background failure adds none.
	rec.mu.Lock()
	total := len(rec.toasts.Toasts)
	rec.mu.Unlock()
	assert.Equal(t, 1, total)
	assert.Equal(t, models.StateConnected, eng.Connection())
}

func TestSimulate(t *testing.T) {
	svc := &stubService{}
	eng, rec, _ := newTestEngine(svc)

	require.NoError(t, eng.Simulate(context.Background(), "outage"))
	assert.Contains(t, rec.activityTitles(), "Scenario triggered")
	assert.Equal(t, 1, rec.toastCount("Scenario triggered"))

	svc.simulateFn = func(context.Context, string) error {
		return errors.WrapRequestError("simulate", fmt.Errorf("simulator busy"), 503)
	}
	require.Error(t, eng.Simulate(context.Background(), "outage"))
	assert.Equal(t, 1, rec.toastCount("Scenario failed"))
}

func TestDecisionsViewLimitsAndTruncates(t *testing.T) {
	long := strings.Repeat("x", 180)
	records := make([]models.DecisionRecord, 0, 7)
	for i := 0; i < 7; i++ {
		records = append(records, models.DecisionRecord{
			Timestamp: fmt.Sprintf("t%d", i),
			Reasoning: long,
			RecommendedActions: []models.RecommendedAction{
				{Action: "load_balance"},
			},
		})
	}
	svc := &stubService{
		decisionsFn: func(context.Context, int) ([]models.DecisionRecord, error) {
			return records, nil
		},
	}
	eng, rec, _ := newTestEngine(svc)

	require.NoError(t, eng.Refresh(context.Background()))

	rec.mu.Lock()
	view := rec.decisions
	rec.mu.Unlock()

	require.Len(t, view.Entries, 5)
	assert.False(t, view.Empty)
	for _, entry := range view.Entries {
		assert.True(t, entry.Truncated)
		assert.Len(t, []rune(entry.Reasoning), 153)
		assert.True(t, strings.HasSuffix(entry.Reasoning, "..."))
	}
}

func TestDecisionsViewEmpty(t *testing.T) {
	svc := &stubService{}
	eng, rec, _ := newTestEngine(svc)

	require.NoError(t, eng.Refresh(context.Background()))

	rec.mu.Lock()
	view := rec.decisions
	rec.mu.Unlock()
	assert.True(t, view.Empty)
	assert.Empty(t, view.Entries)
}

func TestShortReasoningPassesThrough(t *testing.T) {
	text := "  latency trending up on node-3  "
	got, truncated := truncateReasoning(text)
	assert.False(t, truncated)
	assert.Equal(t, text, got, "reasoning at or under the limit is shown unmodified")
}

func TestActivityFeedCapped(t *testing.T) {
	svc := &stubService{}
	eng, rec, _ := newTestEngine(svc)

	for i := 0; i < 30; i++ {
		eng.pushActivity("sync", fmt.Sprintf("event %d", i), "")
	}

	rec.mu.Lock()
	entries := rec.activities.Entries
	rec.mu.Unlock()
	require.Len(t, entries, 20)
	assert.Equal(t, "event 29", entries[0].Title, "newest entry first")
	assert.Equal(t, "event 10", entries[len(entries)-1].Title)
}
