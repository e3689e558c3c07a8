package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"NetSentinel/internal/artifact"
	"NetSentinel/internal/config"
	"NetSentinel/internal/correlator"
	"NetSentinel/internal/feature"
	"NetSentinel/internal/model"
	"NetSentinel/internal/pipeline"
	"NetSentinel/internal/storage"
)

// APIHandler holds the dependencies for API handlers.
type APIHandler struct {
	cfg     *config.Config
	bundle  *artifact.Bundle
	pipe    *pipeline.Pipeline
	corr    *correlator.Correlator
	querier *storage.Querier
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// The status line is already gone; nothing left to do.
		return
	}
}

func (h *APIHandler) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"degraded": h.bundle.Degraded,
	})
}

// modelsInfoHandler reports the loaded ensemble composition and the
// active thresholds.
func (h *APIHandler) modelsInfoHandler(w http.ResponseWriter, r *http.Request) {
	models := make([]map[string]any, 0, len(h.bundle.Models))
	for _, m := range h.bundle.Models {
		models = append(models, map[string]any{
			"name":   m.Name(),
			"weight": h.bundle.Weights[m.Name()],
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"strategy":             h.cfg.Ensemble.Strategy,
		"models":               models,
		"stacking":             h.bundle.Stacking != nil,
		"degraded":             h.bundle.Degraded,
		"detection_threshold":  h.cfg.Ensemble.DetectionThreshold,
		"confidence_threshold": h.cfg.Fusion.ConfidenceThreshold,
		"alert_threshold":      h.cfg.Correlator.AlertThreshold,
	})
}

// detectHandler classifies one already-aggregated feature record.
func (h *APIHandler) detectHandler(w http.ResponseWriter, r *http.Request) {
	var fv model.FeatureVector
	if err := json.NewDecoder(r.Body).Decode(&fv); err != nil {
		http.Error(w, fmt.Sprintf("failed to decode request: %v", err), http.StatusBadRequest)
		return
	}

	verdict, err := h.detect(&fv)
	if err != nil {
		http.Error(w, fmt.Sprintf("detection failed: %v", err), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, verdict)
}

// detectBatchHandler classifies a JSON array of feature records.
func (h *APIHandler) detectBatchHandler(w http.ResponseWriter, r *http.Request) {
	var fvs []*model.FeatureVector
	if err := json.NewDecoder(r.Body).Decode(&fvs); err != nil {
		http.Error(w, fmt.Sprintf("failed to decode request: %v", err), http.StatusBadRequest)
		return
	}
	h.respondBatch(w, fvs)
}

// detectCSVHandler classifies a CSV upload of feature records.
func (h *APIHandler) detectCSVHandler(w http.ResponseWriter, r *http.Request) {
	fvs, err := feature.ParseCSV(r.Body)
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to parse csv: %v", err), http.StatusBadRequest)
		return
	}
	h.respondBatch(w, fvs)
}

func (h *APIHandler) respondBatch(w http.ResponseWriter, fvs []*model.FeatureVector) {
	start := time.Now()
	verdicts := make([]*model.Verdict, 0, len(fvs))
	attacks := 0
	for _, fv := range fvs {
		v, err := h.detect(fv)
		if err != nil {
			http.Error(w, fmt.Sprintf("detection failed: %v", err), http.StatusInternalServerError)
			return
		}
		if v.Attack {
			attacks++
		}
		verdicts = append(verdicts, v)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"total":              len(verdicts),
		"attacks":            attacks,
		"processing_time_ms": float64(time.Since(start).Microseconds()) / 1000.0,
		"verdicts":           verdicts,
	})
}

// detect runs the detection stages and routes threshold-crossing
// verdicts into alert correlation.
func (h *APIHandler) detect(fv *model.FeatureVector) (*model.Verdict, error) {
	v, err := h.pipe.Detect(fv)
	if err != nil {
		return nil, err
	}
	h.corr.Process(v)
	return v, nil
}

func (h *APIHandler) listAlertsHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	status := model.AlertStatus(q.Get("status"))
	tier := q.Get("severity")
	offset, _ := strconv.Atoi(q.Get("offset"))
	limit, _ := strconv.Atoi(q.Get("limit"))
	if limit <= 0 || limit > 500 {
		limit = 50
	}

	alerts := h.corr.List(status, tier, offset, limit)
	writeJSON(w, http.StatusOK, map[string]any{
		"count":  len(alerts),
		"offset": offset,
		"alerts": alerts,
	})
}

func (h *APIHandler) alertStatsHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.corr.Stats())
}

func (h *APIHandler) getAlertHandler(w http.ResponseWriter, r *http.Request) {
	alert, ok := h.corr.Get(mux.Vars(r)["id"])
	if !ok {
		http.Error(w, "alert not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, alert)
}

// transitionRequest is the body of acknowledge/false-positive calls.
type transitionRequest struct {
	By string `json:"by"`
}

func (h *APIHandler) acknowledgeHandler(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.corr.Acknowledge)
}

func (h *APIHandler) falsePositiveHandler(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.corr.MarkFalsePositive)
}

func (h *APIHandler) transition(w http.ResponseWriter, r *http.Request, fn func(id, by string) (*model.Alert, error)) {
	var req transitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("failed to decode request: %v", err), http.StatusBadRequest)
		return
	}
	if req.By == "" {
		req.By = "api"
	}

	alert, err := fn(mux.Vars(r)["id"], req.By)
	if err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	writeJSON(w, http.StatusOK, alert)
}

// recentFlowsHandler serves persisted verdicts, filtered by query
// parameters. Requires ClickHouse persistence to be enabled.
func (h *APIHandler) recentFlowsHandler(w http.ResponseWriter, r *http.Request) {
	if h.querier == nil {
		http.Error(w, "flow persistence is not enabled", http.StatusNotImplemented)
		return
	}
	q := r.URL.Query()
	filter := storage.VerdictFilter{
		SrcAddr:    q.Get("src"),
		Category:   q.Get("category"),
		AttackOnly: q.Get("attacks") == "true",
	}
	if limit, err := strconv.Atoi(q.Get("limit")); err == nil {
		filter.Limit = limit
	}
	if since := q.Get("since"); since != "" {
		t, err := time.Parse(time.RFC3339, since)
		if err != nil {
			http.Error(w, fmt.Sprintf("invalid since: %v", err), http.StatusBadRequest)
			return
		}
		filter.Since = t
	}

	flows, err := h.querier.RecentFlows(r.Context(), filter)
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to query flows: %v", err), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"count": len(flows),
		"flows": flows,
	})
}

// flowSummaryHandler aggregates the stored verdicts over a window
// (default 24 hours).
func (h *APIHandler) flowSummaryHandler(w http.ResponseWriter, r *http.Request) {
	if h.querier == nil {
		http.Error(w, "flow persistence is not enabled", http.StatusNotImplemented)
		return
	}
	since := time.Now().Add(-24 * time.Hour)
	if s := r.URL.Query().Get("since"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			http.Error(w, fmt.Sprintf("invalid since: %v", err), http.StatusBadRequest)
			return
		}
		since = t
	}

	summary, err := h.querier.Summary(r.Context(), since)
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to query summary: %v", err), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}
