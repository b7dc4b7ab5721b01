package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/aristath/capm/internal/modules/portfolio"
	"github.com/aristath/capm/internal/pipeline"
)

// RunTrigger starts a selection run
type RunTrigger interface {
	Run(ctx context.Context) (*pipeline.Result, error)
}

// RunStore reads persisted runs
type RunStore interface {
	ListRuns(ctx context.Context, limit int) ([]portfolio.RunSummary, error)
	GetRun(ctx context.Context, runID string) (*portfolio.Run, error)
	GetLatestRun(ctx context.Context) (*portfolio.Run, error)
}

// RunHandlers handles selection run HTTP requests
type RunHandlers struct {
	runner RunTrigger
	runs   RunStore
	log    zerolog.Logger
}

// NewRunHandlers creates new run handlers
func NewRunHandlers(runner RunTrigger, runs RunStore, log zerolog.Logger) *RunHandlers {
	return &RunHandlers{
		runner: runner,
		runs:   runs,
		log:    log.With().Str("handler", "runs").Logger(),
	}
}

// HandleTriggerRun handles POST /api/runs
func (h *RunHandlers) HandleTriggerRun(w http.ResponseWriter, r *http.Request) {
	result, err := h.runner.Run(r.Context())
	if errors.Is(err, pipeline.ErrRunInProgress) {
		http.Error(w, "A run is already in progress", http.StatusConflict)
		return
	}
	if err != nil {
		h.log.Error().Err(err).Msg("Triggered run failed")
		http.Error(w, "Run failed", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusCreated, map[string]interface{}{
		"data": result,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleListRuns handles GET /api/runs
func (h *RunHandlers) HandleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := 20 // default
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsedLimit, err := strconv.Atoi(limitStr); err == nil && parsedLimit > 0 {
			limit = parsedLimit
		}
	}

	runs, err := h.runs.ListRuns(r.Context(), limit)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list runs")
		http.Error(w, "Failed to list runs", http.StatusInternalServerError)
		return
	}
	if runs == nil {
		runs = []portfolio.RunSummary{}
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"runs":  runs,
			"count": len(runs),
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
			"limit":     limit,
		},
	})
}

// HandleGetLatestRun handles GET /api/runs/latest
func (h *RunHandlers) HandleGetLatestRun(w http.ResponseWriter, r *http.Request) {
	run, err := h.runs.GetLatestRun(r.Context())
	h.respondRun(w, run, err)
}

// HandleGetRun handles GET /api/runs/{runID}
func (h *RunHandlers) HandleGetRun(w http.ResponseWriter, r *http.Request) {
	run, err := h.runs.GetRun(r.Context(), chi.URLParam(r, "runID"))
	h.respondRun(w, run, err)
}

func (h *RunHandlers) respondRun(w http.ResponseWriter, run *portfolio.Run, err error) {
	if errors.Is(err, portfolio.ErrRunNotFound) {
		http.Error(w, "Run not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to get run")
		http.Error(w, "Failed to get run", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": run,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

func (h *RunHandlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	writeJSON(w, status, data, h.log)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}, log zerolog.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
