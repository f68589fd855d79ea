package rpc

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/flywheel-ml/flywheel/internal/domain"
)

// getHealth reports process-wide health: uptime, active pipeline count
// (from the execution engine, not the store, since a Running pipeline
// row may not yet have a live runner between reconcile ticks), and a
// database subreport from Store.Ping.
func (s *Server) getHealth(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	pingErr := s.store.Ping(r.Context())
	latency := time.Since(start)

	status := "healthy"
	if pingErr != nil {
		status = "degraded"
	}

	writeJSON(w, http.StatusOK, getHealthResponse{
		Status: status, Version: version, UptimeSeconds: int64(s.uptime().Seconds()),
		ActivePipelines: s.engine.ActiveCount(),
		Database:        databaseHealth{Connected: pingErr == nil, LatencyMs: latency.Milliseconds()},
	})
}

func toDriftEventInfo(e *domain.DriftEvent) driftEventInfo {
	return driftEventInfo{
		ID: e.ID, PipelineID: e.PipelineID, ModelID: e.ModelID,
		DriftType: string(e.DriftType), Severity: string(e.Severity),
		PSIScore: e.PSIScore, KLDivergence: e.KLDivergence, AccuracyDelta: e.AccuracyDelta,
		DetectedAt: e.DetectedAt, ResolvedAt: e.ResolvedAt,
	}
}

func (s *Server) getPipelineHealth(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	p, err := s.store.GetPipeline(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := pipelineHealthResponse{PipelineID: p.ID, Status: string(p.Status)}

	events, err := s.store.ListDriftEvents(r.Context(), p.ID, 1)
	if err != nil {
		writeError(w, err)
		return
	}
	if len(events) > 0 {
		e := events[0]
		resp.Drift = &driftSummary{
			IsDrifted: e.ResolvedAt == nil, Severity: string(e.Severity), LastChecked: e.DetectedAt,
		}
		if e.PSIScore != nil {
			resp.Drift.PSIScore = *e.PSIScore
		}
		if e.KLDivergence != nil {
			resp.Drift.KLDivergence = *e.KLDivergence
		}
		if e.AccuracyDelta != nil {
			resp.Drift.AccuracyDelta = *e.AccuracyDelta
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// getDriftStatus reports the open drift event (if any) for a specific
// pipeline/model pair, distinct from getPipelineHealth's "most recent
// event regardless of model" summary.
func (s *Server) getDriftStatus(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	pipelineID, modelID := vars["pipelineId"], vars["modelId"]

	e, err := s.store.GetOpenDriftEvent(r.Context(), pipelineID, modelID)
	if err != nil {
		if domain.IsNotFound(err) {
			writeJSON(w, http.StatusOK, driftSummary{IsDrifted: false})
			return
		}
		writeError(w, err)
		return
	}

	summary := driftSummary{IsDrifted: true, Severity: string(e.Severity), LastChecked: e.DetectedAt}
	if e.PSIScore != nil {
		summary.PSIScore = *e.PSIScore
	}
	if e.KLDivergence != nil {
		summary.KLDivergence = *e.KLDivergence
	}
	if e.AccuracyDelta != nil {
		summary.AccuracyDelta = *e.AccuracyDelta
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) listDriftEvents(w http.ResponseWriter, r *http.Request) {
	pipelineID := mux.Vars(r)["pipelineId"]
	events, err := s.store.ListDriftEvents(r.Context(), pipelineID, 100)
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]driftEventInfo, len(events))
	for i, e := range events {
		out[i] = toDriftEventInfo(e)
	}
	writeJSON(w, http.StatusOK, listDriftEventsResponse{Events: out})
}
