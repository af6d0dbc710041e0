package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/netopt/optiview/internal/config"
	"github.com/netopt/optiview/internal/engine"
	engerrors "github.com/netopt/optiview/internal/errors"
	"github.com/netopt/optiview/internal/models"
	"github.com/netopt/optiview/internal/websocket"
)

// Router handles HTTP routing for the dashboard: the websocket endpoint plus
// the user-action relays into the engine.
type Router struct {
	mux    *http.ServeMux
	config *config.Config
	engine *engine.Engine
	wsHub  *websocket.Hub
}

// NewRouter creates a new router instance.
func NewRouter(cfg *config.Config, eng *engine.Engine, wsHub *websocket.Hub) http.Handler {
	r := &Router{
		mux:    http.NewServeMux(),
		config: cfg,
		engine: eng,
		wsHub:  wsHub,
	}

	r.setupRoutes()
	return r
}

func (r *Router) setupRoutes() {
	r.mux.HandleFunc("/ws", r.wsHub.HandleWebSocket)
	r.mux.HandleFunc("/healthz", r.handleHealthz)
	r.mux.HandleFunc("/api/state", r.handleState)
	r.mux.HandleFunc("/api/refresh", r.handleRefresh)
	r.mux.HandleFunc("/api/cycle", r.handleCycle)
	r.mux.HandleFunc("/api/simulate", r.handleSimulate)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

func (r *Router) handleHealthz(w http.ResponseWriter, req *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleState returns the full dashboard view-model, the same payload a
// websocket client receives on connect.
func (r *Router) handleState(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, r.engine.Dashboard())
}

func (r *Router) handleRefresh(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if err := r.engine.Refresh(req.Context()); err != nil {
		log.Warn().Err(err).Msg("Manual refresh failed")
		writeError(w, http.StatusBadGateway, engerrors.Detail(err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "refreshed"})
}

func (r *Router) handleCycle(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	if r.engine.Phase() != models.PhaseIdle {
		writeError(w, http.StatusConflict, "cycle already running")
		return
	}

	// Run detached: the cycle paces itself over multiple phases and a
	// dashboard client follows it over the websocket, not this response.
	go func() {
		if err := r.engine.RunCycle(context.Background()); err != nil && !errors.Is(err, engerrors.ErrCycleRunning) {
			log.Warn().Err(err).Msg("Cycle failed")
		}
	}()

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "started"})
}

func (r *Router) handleSimulate(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var body struct {
		Scenario string `json:"scenario"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := r.engine.Simulate(req.Context(), body.Scenario); err != nil {
		status := http.StatusBadGateway
		if !engerrors.IsConnectivityError(err) {
			status = http.StatusBadRequest
		}
		writeError(w, status, engerrors.Detail(err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "triggered", "scenario": body.Scenario})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
