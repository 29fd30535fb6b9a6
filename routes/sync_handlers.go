// routes/sync_handlers.go
package routes

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/LilVoxy/sakila_analytics/ETL/models"
	"github.com/LilVoxy/sakila_analytics/ETL/pipeline"
	"github.com/LilVoxy/sakila_analytics/ETL/utils"
	"github.com/LilVoxy/sakila_analytics/ETL/validation"
)

const defaultRunDays = 7

// Syncer starts synchronizations; *pipeline.Synchronizer implements it.
// Start claims the run slot before returning and fails with
// pipeline.ErrRunInProgress when a run is active.
type Syncer interface {
	Start(ctx context.Context, mode pipeline.Mode) error
	Running() bool
}

// Validator runs the reconciliation check; *validation.Checker implements it
type Validator interface {
	Validate(ctx context.Context) (*validation.Result, error)
}

// WatermarkReader lists the stored watermarks; *load.WatermarkTracker implements it
type WatermarkReader interface {
	All(ctx context.Context) ([]models.SyncState, error)
}

// Pinger checks the analytics store; *sql.DB implements it
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Handler serves the monitor API
type Handler struct {
	runLog     models.ETLLogRepository
	watermarks WatermarkReader
	sync       Syncer
	validator  Validator
	target     Pinger
	logger     *utils.ETLLogger
}

// NewHandler creates a new Handler
func NewHandler(runLog models.ETLLogRepository, watermarks WatermarkReader, sync Syncer,
	validator Validator, target Pinger, logger *utils.ETLLogger) *Handler {
	return &Handler{
		runLog:     runLog,
		watermarks: watermarks,
		sync:       sync,
		validator:  validator,
		target:     target,
		logger:     logger,
	}
}

// ErrorResponse is the body of every non-2xx answer
type ErrorResponse struct {
	Error string `json:"error"`
}

// RunsResponse lists run log entries
type RunsResponse struct {
	Days int                `json:"days"`
	Runs []models.ETLRunLog `json:"runs"`
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("Failed to encode response: %v", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, msg string) {
	h.writeJSON(w, status, ErrorResponse{Error: msg})
}

// GetStatus returns the watermarks, the last successful run and whether a run is active
func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	lastRun, err := h.runLog.GetLastSuccessfulRun(r.Context())
	if err != nil {
		h.logger.Error("Status: %v", err)
		h.writeError(w, http.StatusInternalServerError, "failed to read run log")
		return
	}

	watermarks, err := h.watermarks.All(r.Context())
	if err != nil {
		h.logger.Error("Status: %v", err)
		h.writeError(w, http.StatusInternalServerError, "failed to read watermarks")
		return
	}
	if watermarks == nil {
		watermarks = []models.SyncState{}
	}

	h.writeJSON(w, http.StatusOK, models.ETLStateMonitor{
		LastSuccessfulRun: lastRun,
		Watermarks:        watermarks,
		Running:           h.sync.Running(),
	})
}

// GetRuns lists the runs started in the last ?days=N days (default 7)
func (h *Handler) GetRuns(w http.ResponseWriter, r *http.Request) {
	days := defaultRunDays
	if s := r.URL.Query().Get("days"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			h.writeError(w, http.StatusBadRequest, "days must be a positive integer")
			return
		}
		days = n
	}

	runs, err := h.runLog.GetETLRunStats(r.Context(), days)
	if err != nil {
		h.logger.Error("Runs: %v", err)
		h.writeError(w, http.StatusInternalServerError, "failed to read run log")
		return
	}
	if runs == nil {
		runs = []models.ETLRunLog{}
	}
	h.writeJSON(w, http.StatusOK, RunsResponse{Days: days, Runs: runs})
}

// GetRunReport returns the stored report of one run
func (h *Handler) GetRunReport(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid run id")
		return
	}

	report, err := h.runLog.GetRunReport(r.Context(), id)
	switch {
	case errors.Is(err, models.ErrRunNotFound):
		h.writeError(w, http.StatusNotFound, "run not found")
		return
	case err != nil:
		h.logger.Error("Run report %d: %v", id, err)
		h.writeError(w, http.StatusInternalServerError, "failed to read run report")
		return
	case report == nil:
		h.writeError(w, http.StatusNotFound, "run has no report")
		return
	}
	h.writeJSON(w, http.StatusOK, report)
}

// TriggerIncremental starts an incremental run in the background. Progress
// is streamed over /ws.
func (h *Handler) TriggerIncremental(w http.ResponseWriter, r *http.Request) {
	err := h.sync.Start(context.WithoutCancel(r.Context()), pipeline.Incremental)
	if errors.Is(err, pipeline.ErrRunInProgress) {
		h.writeError(w, http.StatusConflict, err.Error())
		return
	}
	if err != nil {
		h.logger.Error("Requested incremental run: %v", err)
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.writeJSON(w, http.StatusAccepted, map[string]string{"status": "started", "mode": string(pipeline.Incremental)})
}

// RunValidation runs the reconciliation check and returns every comparison.
// Mismatches are part of a 200 answer.
func (h *Handler) RunValidation(w http.ResponseWriter, r *http.Request) {
	result, err := h.validator.Validate(r.Context())
	if err != nil {
		h.logger.Error("Validation: %v", err)
		h.writeError(w, http.StatusBadGateway, "validation failed: "+err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

// Health reports whether the analytics store answers
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.target.PingContext(r.Context()); err != nil {
		h.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy", "error": err.Error()})
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}
