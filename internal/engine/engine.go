package engine

import (
	"context"
	"fmt"
	"sync"

	"github.com/jonboulle/clockwork"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/netopt/optiview/internal/buffer"
	"github.com/netopt/optiview/internal/config"
	"github.com/netopt/optiview/internal/errors"
	"github.com/netopt/optiview/internal/history"
	"github.com/netopt/optiview/internal/models"
	"github.com/netopt/optiview/internal/telemetry"
)

// Engine keeps the local dashboard view consistent with the optimizer
// service. It owns all mutable state: connection, metrics snapshot, agent
// status, histories, the cycle phase, and the toast set. The Presenter only
// ever sees derived view-models.
type Engine struct {
	cfg       *config.Config
	service   Service
	presenter Presenter
	clock     clockwork.Clock
	store     *history.Store

	mu         sync.Mutex
	connection models.ConnectionState
	snapshot   *models.MetricsSnapshot
	status     *models.StatusSnapshot
	decisions  []models.DecisionRecord
	phase      models.CyclePhase
	toasts     []models.ToastRecord

	activities *buffer.Ring[models.ActivityRecord]
}

// New creates an Engine. The store may be nil to disable activity
// persistence; the clock is injectable so tests can drive virtual time.
func New(cfg *config.Config, service Service, presenter Presenter, clock clockwork.Clock, store *history.Store) *Engine {
	e := &Engine{
		cfg:        cfg,
		service:    service,
		presenter:  presenter,
		clock:      clock,
		store:      store,
		connection: models.StateDisconnected,
		phase:      models.PhaseIdle,
		activities: buffer.NewRing[models.ActivityRecord](cfg.ActivityLimit),
	}

	if store != nil {
		if saved, err := store.Load(); err != nil {
			log.Warn().Err(err).Msg("Failed to load persisted activity feed")
		} else if len(saved) > 0 {
			e.activities.Replace(saved)
			log.Info().Int("entries", len(saved)).Msg("Restored activity feed")
		}
	}

	return e
}

// Probe issues a liveness request and updates the connection state. A
// transition in either direction fires a boundary notification exactly once;
// repeated results in the same state are silent. The probe itself never
// retries; cadence belongs to the auto-refresh loop.
func (e *Engine) Probe(ctx context.Context) models.ConnectionState {
	err := e.service.Health(ctx)

	next := models.StateConnected
	if err != nil {
		next = models.StateDisconnected
	}

	e.mu.Lock()
	prev := e.connection
	e.connection = next
	e.mu.Unlock()

	if prev == next {
		return next
	}

	telemetry.SetConnectionState(next == models.StateConnected)
	e.renderConnection()

	if next == models.StateConnected {
		log.Info().Msg("Optimizer service reachable")
		e.pushActivity("plug", "Connected", "Optimizer service is reachable")
		e.Notify(models.ToastSuccess, "Connected", "Optimizer service is reachable")
	} else {
		log.Warn().Err(err).Msg("Optimizer service unreachable")
		e.pushActivity("plug", "Disconnected", "Lost connection to the optimizer service")
		e.Notify(models.ToastError, "Disconnected", "Lost connection to the optimizer service")
	}
	return next
}

// Refresh performs the full manual refresh: metrics, status, and decision
// history fetched concurrently. A failed fetch never aborts its siblings;
// whatever succeeded is applied and the first failure is returned.
func (e *Engine) Refresh(ctx context.Context) error {
	var g errgroup.Group

	g.Go(func() error {
		snap, err := e.service.Metrics(ctx)
		if err != nil {
			e.noteFetchFailure("fetch_metrics", err)
			return err
		}
		e.applySnapshot(snap)
		return nil
	})
	g.Go(func() error {
		status, err := e.service.Status(ctx)
		if err != nil {
			e.noteFetchFailure("fetch_status", err)
			return err
		}
		e.applyStatus(status)
		return nil
	})
	g.Go(func() error {
		decisions, err := e.service.Decisions(ctx, e.cfg.DecisionFetch)
		if err != nil {
			e.noteFetchFailure("fetch_decisions", err)
			return err
		}
		e.applyDecisions(decisions)
		return nil
	})

	err := g.Wait()
	telemetry.RecordRefresh(err == nil)
	return err
}

// RunCycle drives one optimization cycle through its locally paced phases.
// A second invocation while a cycle is running is rejected without touching
// any state.
func (e *Engine) RunCycle(ctx context.Context) error {
	e.mu.Lock()
	if e.phase != models.PhaseIdle {
		e.mu.Unlock()
		return errors.ErrCycleRunning
	}
	e.phase = models.PhaseMonitor
	e.mu.Unlock()

	started := e.clock.Now()

	// Cleanup is unconditional: whatever happens below, the engine returns
	// to Idle and the trigger is usable again.
	var failed bool
	defer func() {
		e.setPhase(models.PhaseIdle)
		telemetry.RecordCycle(!failed, e.clock.Since(started))
	}()

	e.renderCycle()
	e.pushActivity("sync", "Cycle started", "Running optimization cycle")

	// The remote cycle runs while the monitor phase is held on screen.
	type outcome struct {
		result *models.CycleResult
		err    error
	}
	resultCh := make(chan outcome, 1)
	go func() {
		r, err := e.service.RunCycle(ctx)
		resultCh <- outcome{r, err}
	}()

	if err := e.hold(ctx); err != nil {
		failed = true
		e.failCycle(err)
		return err
	}
	res := <-resultCh
	if res.err != nil {
		failed = true
		e.failCycle(res.err)
		return res.err
	}

	e.setPhase(models.PhaseDecision)
	if err := e.hold(ctx); err != nil {
		failed = true
		e.failCycle(err)
		return err
	}

	if res.result.ActionExecuted {
		e.setPhase(models.PhaseAction)
		if err := e.hold(ctx); err != nil {
			failed = true
			e.failCycle(err)
			return err
		}
	}

	if err := e.Refresh(ctx); err != nil {
		failed = true
		e.failCycle(err)
		return err
	}

	if res.result.ActionsRecommended > 0 {
		desc := fmt.Sprintf("Executed %d actions", res.result.ActionsRecommended)
		e.pushActivity("bolt", "Actions executed", desc)
		e.Notify(models.ToastSuccess, "Cycle complete", desc)
	} else {
		desc := fmt.Sprintf("Network healthy - score %.0f", e.currentHealthScore())
		e.pushActivity("check", "Network healthy", desc)
		e.Notify(models.ToastSuccess, "Cycle complete", "No actions needed")
	}
	return nil
}

// Simulate triggers a named scenario on the optimizer's network simulator.
func (e *Engine) Simulate(ctx context.Context, scenario string) error {
	if err := e.service.Simulate(ctx, scenario); err != nil {
		log.Error().Err(err).Str("scenario", scenario).Msg("Scenario trigger failed")
		e.Notify(models.ToastError, "Scenario failed", errors.Detail(err))
		return err
	}
	e.pushActivity("flask", "Scenario triggered", fmt.Sprintf("Injected %q into the simulator", scenario))
	e.Notify(models.ToastInfo, "Scenario triggered", scenario)
	return nil
}

// Run is the auto-refresh loop. While connected it re-probes and refreshes
// the metrics snapshot only; manual refresh is deliberately heavier (it also
// fetches status and decisions). While disconnected it only re-probes.
func (e *Engine) Run(ctx context.Context) {
	log.Info().
		Dur("interval", e.cfg.RefreshInterval).
		Msg("Starting auto-refresh loop")

	ticker := e.clock.NewTicker(e.cfg.RefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.Chan():
			e.tick(ctx)
		case <-ctx.Done():
			log.Info().Msg("Auto-refresh loop stopped")
			return
		}
	}
}

func (e *Engine) tick(ctx context.Context) {
	if e.Probe(ctx) != models.StateConnected {
		return
	}

	snap, err := e.service.Metrics(ctx)
	if err != nil {
		// Background failure: logged, never toasted. A transport-level
		// failure also flips the connection state like a failed probe.
		log.Warn().Err(err).Msg("Background metrics refresh failed")
		if errors.IsConnectivityError(err) {
			e.markDisconnected(err)
		}
		telemetry.RecordRefresh(false)
		return
	}
	e.applySnapshot(snap)
	telemetry.RecordRefresh(true)
}

// Connection returns the current connection state.
func (e *Engine) Connection() models.ConnectionState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.connection
}

// Phase returns the current cycle phase.
func (e *Engine) Phase() models.CyclePhase {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.phase
}

// hold keeps the current phase visible for the configured pacing delay.
func (e *Engine) hold(ctx context.Context) error {
	select {
	case <-e.clock.After(e.cfg.PhaseHold):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *Engine) setPhase(phase models.CyclePhase) {
	e.mu.Lock()
	e.phase = phase
	e.mu.Unlock()
	e.renderCycle()
}

func (e *Engine) failCycle(err error) {
	wrapped := errors.WrapCycleError("run_cycle", err)
	log.Error().Err(err).Msg("Optimization cycle failed")
	e.pushActivity("alert", "Cycle failed", errors.Detail(err))
	e.Notify(models.ToastError, "Cycle failed", errors.Detail(err))
	if errors.IsConnectivityError(err) {
		e.markDisconnected(wrapped)
	}
}

// markDisconnected flips the connection state after a failed fetch, firing
// the boundary event only when the state actually changes.
func (e *Engine) markDisconnected(err error) {
	e.mu.Lock()
	prev := e.connection
	e.connection = models.StateDisconnected
	e.mu.Unlock()

	if prev == models.StateDisconnected {
		return
	}
	telemetry.SetConnectionState(false)
	log.Warn().Err(err).Msg("Optimizer service unreachable")
	e.renderConnection()
	e.pushActivity("plug", "Disconnected", "Lost connection to the optimizer service")
	e.Notify(models.ToastError, "Disconnected", "Lost connection to the optimizer service")
}

func (e *Engine) noteFetchFailure(op string, err error) {
	log.Warn().Err(err).Str("op", op).Msg("Fetch failed")
	if errors.IsConnectivityError(err) {
		e.markDisconnected(err)
	}
}

func (e *Engine) applySnapshot(snap *models.MetricsSnapshot) {
	e.mu.Lock()
	e.snapshot = snap
	e.mu.Unlock()
	e.renderMetrics()
}

func (e *Engine) applyStatus(status *models.StatusSnapshot) {
	e.mu.Lock()
	e.status = status
	e.mu.Unlock()
	e.renderAgents()
}

func (e *Engine) applyDecisions(decisions []models.DecisionRecord) {
	e.mu.Lock()
	e.decisions = decisions
	e.mu.Unlock()
	e.renderDecisions()
}

func (e *Engine) currentHealthScore() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.snapshot == nil {
		return 0
	}
	return e.snapshot.HealthScore
}

func (e *Engine) pushActivity(icon, title, description string) {
	record := models.ActivityRecord{
		ID:          ulid.Make().String(),
		Icon:        icon,
		Title:       title,
		Description: description,
		Time:        e.clock.Now(),
	}
	e.activities.Push(record)
	e.renderActivities()

	if e.store != nil {
		if err := e.store.Save(e.activities.Oldest()); err != nil {
			log.Warn().Err(err).Msg("Failed to persist activity feed")
		}
	}
}
