package optimizer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/netopt/optiview/internal/errors"
	"github.com/netopt/optiview/internal/health"
	"github.com/netopt/optiview/internal/models"
)

// Client talks to the network optimizer service's JSON API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// ClientConfig holds configuration for the optimizer client.
type ClientConfig struct {
	BaseURL string
	Timeout time.Duration
}

// NewClient creates an optimizer API client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		baseURL = "http://" + baseURL
		log.Debug().Str("url", baseURL).Msg("No protocol specified for optimizer, defaulting to HTTP")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Health probes the service's liveness endpoint. Any 2xx means reachable.
func (c *Client) Health(ctx context.Context) error {
	return c.get(ctx, "probe", "/health", nil)
}

// metricsResponse mirrors the GET /metrics wire shape.
type metricsResponse struct {
	Health  float64 `json:"health"`
	Summary struct {
		NodeCount      int     `json:"node_count"`
		HealthyNodes   int     `json:"healthy_nodes"`
		UnhealthyNodes int     `json:"unhealthy_nodes"`
		AvgLatency     float64 `json:"avg_latency"`
		AvgBandwidth   float64 `json:"avg_bandwidth"`
		AvgPacketLoss  float64 `json:"avg_packet_loss"`
		AvgCPU         float64 `json:"avg_cpu"`
		AvgMemory      float64 `json:"avg_memory"`
		MaxLatency     float64 `json:"max_latency"`
	} `json:"summary"`
	Metrics struct {
		Nodes []struct {
			NodeID      string  `json:"node_id"`
			Latency     float64 `json:"latency"`
			PacketLoss  float64 `json:"packet_loss"`
			Bandwidth   float64 `json:"bandwidth"`
			CPUUsage    float64 `json:"cpu_usage"`
			MemoryUsage float64 `json:"memory_usage"`
		} `json:"nodes"`
	} `json:"metrics"`
}

// Metrics fetches the current network telemetry and grades each node with
// its locally derived health score.
func (c *Client) Metrics(ctx context.Context) (*models.MetricsSnapshot, error) {
	var resp metricsResponse
	if err := c.get(ctx, "fetch_metrics", "/metrics", &resp); err != nil {
		return nil, err
	}

	snapshot := &models.MetricsSnapshot{
		HealthScore: resp.Health,
		Summary: models.MetricsSummary{
			NodeCount:      resp.Summary.NodeCount,
			HealthyCount:   resp.Summary.HealthyNodes,
			UnhealthyCount: resp.Summary.UnhealthyNodes,
			AvgLatency:     resp.Summary.AvgLatency,
			AvgBandwidth:   resp.Summary.AvgBandwidth,
			AvgPacketLoss:  resp.Summary.AvgPacketLoss,
			AvgCPU:         resp.Summary.AvgCPU,
			AvgMemory:      resp.Summary.AvgMemory,
			MaxLatency:     resp.Summary.MaxLatency,
		},
		Nodes:     make([]models.NodeRecord, 0, len(resp.Metrics.Nodes)),
		FetchedAt: time.Now(),
	}

	for _, n := range resp.Metrics.Nodes {
		snapshot.Nodes = append(snapshot.Nodes, health.Grade(models.NodeRecord{
			ID:          n.NodeID,
			Latency:     n.Latency,
			PacketLoss:  n.PacketLoss,
			Bandwidth:   n.Bandwidth,
			CPUUsage:    n.CPUUsage,
			MemoryUsage: n.MemoryUsage,
		}))
	}

	return snapshot, nil
}

// statusResponse mirrors the GET /status wire shape.
type statusResponse struct {
	Monitor     agentState `json:"monitor"`
	Decision    agentState `json:"decision"`
	Action      agentState `json:"action"`
	Coordinator agentState `json:"coordinator"`
	Cycles      struct {
		Total     int    `json:"total"`
		LastCycle string `json:"last_cycle"`
	} `json:"cycles"`
}

type agentState struct {
	Status string `json:"status"`
}

// Status fetches the per-agent status and cycle counters.
func (c *Client) Status(ctx context.Context) (*models.StatusSnapshot, error) {
	var resp statusResponse
	if err := c.get(ctx, "fetch_status", "/status", &resp); err != nil {
		return nil, err
	}

	return &models.StatusSnapshot{
		Agents: []models.AgentStatus{
			{Name: "monitor", Status: resp.Monitor.Status},
			{Name: "decision", Status: resp.Decision.Status},
			{Name: "action", Status: resp.Action.Status},
			{Name: "coordinator", Status: resp.Coordinator.Status},
		},
		Cycles:    resp.Cycles.Total,
		LastCycle: resp.Cycles.LastCycle,
	}, nil
}

// decisionsResponse mirrors the GET /decisions wire shape.
type decisionsResponse struct {
	Decisions []struct {
		Timestamp string `json:"timestamp"`
		Decision  struct {
			ActionRequired     bool `json:"action_required"`
			RecommendedActions []struct {
				Action string `json:"action"`
			} `json:"recommended_actions"`
			Reasoning string `json:"reasoning"`
		} `json:"decision"`
	} `json:"decisions"`
}

// Decisions fetches the recent decision history, most recent first.
func (c *Client) Decisions(ctx context.Context, limit int) ([]models.DecisionRecord, error) {
	var resp decisionsResponse
	path := fmt.Sprintf("/decisions?limit=%d", limit)
	if err := c.get(ctx, "fetch_decisions", path, &resp); err != nil {
		return nil, err
	}

	// The service returns oldest first; the dashboard wants newest first.
	records := make([]models.DecisionRecord, 0, len(resp.Decisions))
	for i := len(resp.Decisions) - 1; i >= 0; i-- {
		d := resp.Decisions[i]
		actions := make([]models.RecommendedAction, 0, len(d.Decision.RecommendedActions))
		for _, a := range d.Decision.RecommendedActions {
			actions = append(actions, models.RecommendedAction{Action: a.Action})
		}
		records = append(records, models.DecisionRecord{
			Timestamp:          d.Timestamp,
			ActionRequired:     d.Decision.ActionRequired,
			RecommendedActions: actions,
			Reasoning:          d.Decision.Reasoning,
		})
	}
	return records, nil
}

// cycleResponse mirrors the POST /cycle wire shape. Only the first result's
// phases are consumed.
type cycleResponse struct {
	Results []struct {
		Phases struct {
			Monitor struct {
				HealthScore float64 `json:"health_score"`
			} `json:"monitor"`
			Decision struct {
				ActionsRecommended int `json:"actions_recommended"`
			} `json:"decision"`
			Action struct {
				Executed bool `json:"executed"`
			} `json:"action"`
		} `json:"phases"`
	} `json:"results"`
}

// RunCycle asks the service to run one optimization cycle and reports the
// outcome of its phases.
func (c *Client) RunCycle(ctx context.Context) (*models.CycleResult, error) {
	var resp cycleResponse
	if err := c.post(ctx, "run_cycle", "/cycle", nil, &resp); err != nil {
		return nil, err
	}
	if len(resp.Results) == 0 {
		return nil, errors.WrapRequestError("run_cycle", fmt.Errorf("cycle response contained no results"), 0)
	}

	phases := resp.Results[0].Phases
	return &models.CycleResult{
		HealthScore:        phases.Monitor.HealthScore,
		ActionsRecommended: phases.Decision.ActionsRecommended,
		ActionExecuted:     phases.Action.Executed,
	}, nil
}

// Simulate triggers a named network scenario on the service's simulator.
func (c *Client) Simulate(ctx context.Context, scenario string) error {
	valid := false
	for _, s := range models.KnownScenarios {
		if s == scenario {
			valid = true
			break
		}
	}
	if !valid {
		return errors.WrapRequestError("simulate", fmt.Errorf("unknown scenario %q", scenario), 0)
	}

	body := map[string]string{"scenario": scenario}
	return c.post(ctx, "simulate", "/simulate", body, nil)
}

func (c *Client) get(ctx context.Context, op, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return errors.WrapRequestError(op, err, 0)
	}
	return c.do(op, req, out)
}

func (c *Client) post(ctx context.Context, op, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return errors.WrapRequestError(op, err, 0)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, reader)
	if err != nil {
		return errors.WrapRequestError(op, err, 0)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(op, req, out)
}

func (c *Client) do(op string, req *http.Request, out interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.WrapConnectivityError(op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Read a bounded chunk of the body for the error detail
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return errors.WrapRequestError(op,
			fmt.Errorf("%s: %s", resp.Status, strings.TrimSpace(string(detail))),
			resp.StatusCode)
	}

	if out == nil {
		// Drain so the connection can be reused
		io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.WrapRequestError(op, fmt.Errorf("decode response: %w", err), resp.StatusCode)
	}
	return nil
}
