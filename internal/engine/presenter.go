package engine

import (
	"context"

	"github.com/netopt/optiview/internal/models"
)

// Presenter is the rendering capability the engine requires. Implementations
// receive computed view-models and never mutate engine state; the shipped
// implementation is the websocket hub, tests use a recording presenter.
type Presenter interface {
	RenderConnection(models.ConnectionView)
	RenderHealthRing(models.HealthRingView)
	RenderMetricBars([]models.MetricBarView)
	RenderNodeGrid(models.NodeGridView)
	RenderAgents(models.AgentStatusView)
	RenderCycle(models.CycleView)
	RenderActivities(models.ActivityFeedView)
	RenderDecisions(models.DecisionListView)
	RenderToasts(models.ToastStackView)
}

// Service is the slice of the optimizer API the engine depends on.
type Service interface {
	Health(ctx context.Context) error
	Metrics(ctx context.Context) (*models.MetricsSnapshot, error)
	Status(ctx context.Context) (*models.StatusSnapshot, error)
	Decisions(ctx context.Context, limit int) ([]models.DecisionRecord, error)
	RunCycle(ctx context.Context) (*models.CycleResult, error)
	Simulate(ctx context.Context, scenario string) error
}
