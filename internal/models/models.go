package models

import "time"

// ConnectionState describes reachability of the optimizer service.
type ConnectionState string

const (
	StateConnected    ConnectionState = "connected"
	StateDisconnected ConnectionState = "disconnected"
)

// CyclePhase is the locally mirrored phase of an optimization cycle.
type CyclePhase string

const (
	PhaseIdle     CyclePhase = "idle"
	PhaseMonitor  CyclePhase = "monitor"
	PhaseDecision CyclePhase = "decision"
	PhaseAction   CyclePhase = "action"
)

// NodeStatus classifies a node by its health score.
type NodeStatus string

const (
	NodeHealthy  NodeStatus = "healthy"
	NodeWarning  NodeStatus = "warning"
	NodeCritical NodeStatus = "critical"
)

// NodeRecord is the telemetry for a single network node. Health and Status
// are derived locally and never stored remotely.
type NodeRecord struct {
	ID          string     `json:"id"`
	Latency     float64    `json:"latency"`     // milliseconds
	PacketLoss  float64    `json:"packetLoss"`  // percent
	Bandwidth   float64    `json:"bandwidth"`   // Mbps
	CPUUsage    float64    `json:"cpuUsage"`    // percent
	MemoryUsage float64    `json:"memoryUsage"` // percent
	Health      float64    `json:"health"`
	Status      NodeStatus `json:"status"`
}

// MetricsSummary aggregates telemetry across all nodes.
type MetricsSummary struct {
	NodeCount      int     `json:"nodeCount"`
	HealthyCount   int     `json:"healthyCount"`
	UnhealthyCount int     `json:"unhealthyCount"`
	AvgLatency     float64 `json:"avgLatency"`
	AvgBandwidth   float64 `json:"avgBandwidth"`
	AvgPacketLoss  float64 `json:"avgPacketLoss"`
	AvgCPU         float64 `json:"avgCpu"`
	AvgMemory      float64 `json:"avgMemory"`
	MaxLatency     float64 `json:"maxLatency"`
}

// MetricsSnapshot is the full metrics view. It is replaced wholesale on each
// successful fetch; there is no partial merge.
type MetricsSnapshot struct {
	HealthScore float64        `json:"healthScore"`
	Summary     MetricsSummary `json:"summary"`
	Nodes       []NodeRecord   `json:"nodes"`
	FetchedAt   time.Time      `json:"fetchedAt"`
}

// AgentStatus is the reported state of one remote agent.
type AgentStatus struct {
	Name   string `json:"name"`
	Status string `json:"status"`
}

// StatusSnapshot mirrors the optimizer's /status response.
type StatusSnapshot struct {
	Agents    []AgentStatus `json:"agents"`
	Cycles    int           `json:"cycles"`
	LastCycle string        `json:"lastCycle,omitempty"`
}

// RecommendedAction is one action suggested by the decision agent.
type RecommendedAction struct {
	Action string `json:"action"`
}

// DecisionRecord is one entry of the optimizer's decision history. Immutable
// once received.
type DecisionRecord struct {
	Timestamp          string              `json:"timestamp"`
	ActionRequired     bool                `json:"actionRequired"`
	RecommendedActions []RecommendedAction `json:"recommendedActions"`
	Reasoning          string              `json:"reasoning"`
}

// ActivityRecord is a locally generated feed entry.
type ActivityRecord struct {
	ID          string    `json:"id"`
	Icon        string    `json:"icon"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Time        time.Time `json:"time"`
}

// ToastKind classifies an advisory message.
type ToastKind string

const (
	ToastSuccess ToastKind = "success"
	ToastError   ToastKind = "error"
	ToastWarning ToastKind = "warning"
	ToastInfo    ToastKind = "info"
)

// ToastRecord is an ephemeral, self-removing advisory message.
type ToastRecord struct {
	ID        string    `json:"id"`
	Kind      ToastKind `json:"kind"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
	Exiting   bool      `json:"exiting"` // in the exit-transition window
}

// CycleResult is what the engine consumes from a POST /cycle response.
type CycleResult struct {
	HealthScore        float64 `json:"healthScore"`
	ActionsRecommended int     `json:"actionsRecommended"`
	ActionExecuted     bool    `json:"actionExecuted"`
}

// KnownScenarios are the perturbations the optimizer's simulator accepts.
var KnownScenarios = []string{
	"high_traffic",
	"outage",
	"gradual_degradation",
	"recovery",
	"normal",
}

// ActionKinds recognized for iconography and labeling. Anything else is
// passed through as an opaque string.
var ActionKinds = []string{
	"optimize_routing",
	"reduce_traffic",
	"load_balance",
	"clear_cache",
	"request_bandwidth",
	"restart_service",
	"alert",
	"scale_up",
	"scale_down",
}
