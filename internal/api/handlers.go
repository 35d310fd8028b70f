package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/aviation-impact-accelerator/aia-analysis-contrail-avoidance/internal/pipeline"
	"github.com/aviation-impact-accelerator/aia-analysis-contrail-avoidance/internal/storage/sqlite"
	"github.com/aviation-impact-accelerator/aia-analysis-contrail-avoidance/pkg/logger"
)

// Handler contains the API handlers
type Handler struct {
	runner *pipeline.Runner
	store  *sqlite.PartitionStore
	logger *logger.Logger
}

// NewHandler creates a new API handler
func NewHandler(runner *pipeline.Runner, store *sqlite.PartitionStore, log *logger.Logger) *Handler {
	return &Handler{
		runner: runner,
		store:  store,
		logger: log.Named("api-handler"),
	}
}

// GetStatus returns the current run progress snapshot
func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, h.runner.Status())
}

// GetDays lists the ordinal days with output partitions
func (h *Handler) GetDays(w http.ResponseWriter, r *http.Request) {
	days, err := h.store.ListDays()
	if err != nil {
		h.logger.Error("Failed to list day partitions", logger.Error(err))
		h.respondError(w, http.StatusInternalServerError, "failed to list day partitions")
		return
	}
	if days == nil {
		days = []int{}
	}
	h.respondJSON(w, http.StatusOK, map[string]any{"days": days})
}

// GetDayFlights returns per-flight summaries for one day partition
func (h *Handler) GetDayFlights(w http.ResponseWriter, r *http.Request) {
	day, ok := h.dayParam(w, r)
	if !ok {
		return
	}

	summaries, err := h.store.FlightSummaries(day)
	if err != nil {
		h.logger.Error("Failed to load flight summaries",
			logger.Error(err),
			logger.Int("day", day))
		h.respondError(w, http.StatusInternalServerError, "failed to load flight summaries")
		return
	}
	if summaries == nil {
		summaries = []sqlite.FlightSummary{}
	}
	h.respondJSON(w, http.StatusOK, map[string]any{
		"day":     day,
		"flights": summaries,
	})
}

// GetDayRecords returns the position records of one day partition. Supports
// an optional ?limit= query parameter.
func (h *Handler) GetDayRecords(w http.ResponseWriter, r *http.Request) {
	day, ok := h.dayParam(w, r)
	if !ok {
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			h.respondError(w, http.StatusBadRequest, "invalid limit parameter")
			return
		}
		limit = parsed
	}

	records, err := h.store.ReadDay(day, limit)
	if err != nil {
		h.logger.Error("Failed to read day partition",
			logger.Error(err),
			logger.Int("day", day))
		h.respondError(w, http.StatusInternalServerError, "failed to read day partition")
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]any{
		"day":     day,
		"count":   len(records),
		"records": records,
	})
}

// dayParam parses and validates the {day} URL parameter against the
// partitions that exist on disk.
func (h *Handler) dayParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	day, err := strconv.Atoi(chi.URLParam(r, "day"))
	if err != nil || day < 1 || day > 366 {
		h.respondError(w, http.StatusBadRequest, "invalid day parameter")
		return 0, false
	}

	days, err := h.store.ListDays()
	if err != nil {
		h.logger.Error("Failed to list day partitions", logger.Error(err))
		h.respondError(w, http.StatusInternalServerError, "failed to list day partitions")
		return 0, false
	}
	for _, d := range days {
		if d == day {
			return day, true
		}
	}
	h.respondError(w, http.StatusNotFound, "no partition for that day")
	return 0, false
}

func (h *Handler) respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("Failed to encode response", logger.Error(err))
	}
}

func (h *Handler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}
