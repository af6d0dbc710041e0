package engine

import (
	"github.com/netopt/optiview/internal/health"
	"github.com/netopt/optiview/internal/models"
)

// reasoningLimit bounds the reasoning text rendered per decision.
const reasoningLimit = 150

func (e *Engine) renderConnection() {
	e.presenter.RenderConnection(e.connectionView())
}

func (e *Engine) connectionView() models.ConnectionView {
	e.mu.Lock()
	state := e.connection
	e.mu.Unlock()

	label := "Disconnected"
	if state == models.StateConnected {
		label = "Connected"
	}
	return models.ConnectionView{State: state, Label: label}
}

// renderMetrics covers every panel derived from the metrics snapshot: the
// health ring, the summary bars, and the node grid.
func (e *Engine) renderMetrics() {
	ring, bars, grid := e.metricsViews()
	e.presenter.RenderHealthRing(ring)
	e.presenter.RenderMetricBars(bars)
	e.presenter.RenderNodeGrid(grid)
}

func (e *Engine) metricsViews() (models.HealthRingView, []models.MetricBarView, models.NodeGridView) {
	e.mu.Lock()
	snap := e.snapshot
	e.mu.Unlock()

	if snap == nil {
		return health.Ring(0), nil, models.NodeGridView{}
	}

	nodes := make([]models.NodeRecord, len(snap.Nodes))
	copy(nodes, snap.Nodes)

	return health.Ring(snap.HealthScore),
		health.SummaryBars(snap.Summary),
		models.NodeGridView{Nodes: nodes}
}

func (e *Engine) renderAgents() {
	e.presenter.RenderAgents(e.agentsView())
}

func (e *Engine) agentsView() models.AgentStatusView {
	e.mu.Lock()
	status := e.status
	e.mu.Unlock()

	if status == nil {
		return models.AgentStatusView{}
	}
	agents := make([]models.AgentStatus, len(status.Agents))
	copy(agents, status.Agents)
	return models.AgentStatusView{
		Agents:    agents,
		Cycles:    status.Cycles,
		LastCycle: status.LastCycle,
	}
}

func (e *Engine) renderCycle() {
	e.presenter.RenderCycle(e.cycleView())
}

func (e *Engine) cycleView() models.CycleView {
	e.mu.Lock()
	phase := e.phase
	e.mu.Unlock()
	return models.CycleView{
		Phase:   phase,
		Running: phase != models.PhaseIdle,
	}
}

func (e *Engine) renderActivities() {
	e.presenter.RenderActivities(models.ActivityFeedView{
		Entries: e.activities.Snapshot(),
	})
}

func (e *Engine) renderDecisions() {
	e.presenter.RenderDecisions(e.decisionsView())
}

func (e *Engine) decisionsView() models.DecisionListView {
	e.mu.Lock()
	decisions := e.decisions
	e.mu.Unlock()

	limit := e.cfg.DecisionDisplay
	if len(decisions) < limit {
		limit = len(decisions)
	}

	entries := make([]models.DecisionEntryView, 0, limit)
	for _, d := range decisions[:limit] {
		actions := make([]string, 0, len(d.RecommendedActions))
		for _, a := range d.RecommendedActions {
			actions = append(actions, a.Action)
		}
		reasoning, truncated := truncateReasoning(d.Reasoning)
		entries = append(entries, models.DecisionEntryView{
			Timestamp:      d.Timestamp,
			ActionRequired: d.ActionRequired,
			Actions:        actions,
			Reasoning:      reasoning,
			Truncated:      truncated,
		})
	}

	return models.DecisionListView{
		Entries: entries,
		Empty:   len(entries) == 0,
	}
}

func (e *Engine) renderToasts() {
	e.presenter.RenderToasts(e.toastsView())
}

func (e *Engine) toastsView() models.ToastStackView {
	e.mu.Lock()
	toasts := make([]models.ToastRecord, len(e.toasts))
	copy(toasts, e.toasts)
	e.mu.Unlock()
	return models.ToastStackView{Toasts: toasts}
}

// Dashboard assembles the full view for a newly connected dashboard client.
func (e *Engine) Dashboard() models.DashboardView {
	ring, bars, grid := e.metricsViews()
	return models.DashboardView{
		Connection: e.connectionView(),
		HealthRing: ring,
		MetricBars: bars,
		NodeGrid:   grid,
		Agents:     e.agentsView(),
		Cycle:      e.cycleView(),
		Activities: models.ActivityFeedView{Entries: e.activities.Snapshot()},
		Decisions:  e.decisionsView(),
		Toasts:     e.toastsView(),
	}
}

// truncateReasoning bounds reasoning text at reasoningLimit characters with
// a visible continuation marker. Text at or under the limit passes through
// unmodified.
func truncateReasoning(text string) (string, bool) {
	runes := []rune(text)
	if len(runes) <= reasoningLimit {
		return text, false
	}
	return string(runes[:reasoningLimit]) + "...", true
}
