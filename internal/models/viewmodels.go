package models

// View-models are the presentation-ready projections handed to the Presenter.
// Each panel gets its own type; the Presenter never sees raw engine state.

// BarSeverity is the visual severity of a metric bar.
type BarSeverity string

const (
	BarOK      BarSeverity = "ok"
	BarWarning BarSeverity = "warning"
	BarDanger  BarSeverity = "danger"
)

// ConnectionView drives the connection badge.
type ConnectionView struct {
	State ConnectionState `json:"state"`
	Label string          `json:"label"`
}

// HealthRingView drives the overall health ring.
type HealthRingView struct {
	Score      float64 `json:"score"`
	Color      string  `json:"color"` // green, amber, red
	DashOffset float64 `json:"dashOffset"`
}

// MetricBarView is one normalized summary bar.
type MetricBarView struct {
	Label      string      `json:"label"`
	Display    string      `json:"display"`
	Percentage float64     `json:"percentage"` // always within [0,100]
	Severity   BarSeverity `json:"severity"`
}

// NodeGridView drives the per-node grid.
type NodeGridView struct {
	Nodes []NodeRecord `json:"nodes"`
}

// AgentStatusView drives the agent status badges plus cycle counters.
type AgentStatusView struct {
	Agents    []AgentStatus `json:"agents"`
	Cycles    int           `json:"cycles"`
	LastCycle string        `json:"lastCycle,omitempty"`
}

// CycleView drives the phase indicator of the cycle control.
type CycleView struct {
	Phase   CyclePhase `json:"phase"`
	Running bool       `json:"running"`
}

// ActivityFeedView is the bounded activity feed, most recent first.
type ActivityFeedView struct {
	Entries []ActivityRecord `json:"entries"`
}

// DecisionEntryView is one rendered decision with bounded reasoning text.
type DecisionEntryView struct {
	Timestamp      string   `json:"timestamp"`
	ActionRequired bool     `json:"actionRequired"`
	Actions        []string `json:"actions"`
	Reasoning      string   `json:"reasoning"`
	Truncated      bool     `json:"truncated"`
}

// DecisionListView drives the decision panel. Empty means the panel shows
// its explicit empty-state placeholder.
type DecisionListView struct {
	Entries []DecisionEntryView `json:"entries"`
	Empty   bool                `json:"empty"`
}

// ToastStackView is the current set of visible toasts.
type ToastStackView struct {
	Toasts []ToastRecord `json:"toasts"`
}

// DashboardView bundles every panel for the initial state push to a newly
// connected dashboard client.
type DashboardView struct {
	Connection ConnectionView   `json:"connection"`
	HealthRing HealthRingView   `json:"healthRing"`
	MetricBars []MetricBarView  `json:"metricBars"`
	NodeGrid   NodeGridView     `json:"nodeGrid"`
	Agents     AgentStatusView  `json:"agents"`
	Cycle      CycleView        `json:"cycle"`
	Activities ActivityFeedView `json:"activities"`
	Decisions  DecisionListView `json:"decisions"`
	Toasts     ToastStackView   `json:"toasts"`
}
