package rpc

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/flywheel-ml/flywheel/internal/domain"
)

// resolvedModel looks up the model's active version and its registered
// domain.Model client, the same resolution internal/runner.buildOne does
// for ml-inference stages, so an ad-hoc Predict call hits the same
// breaker-guarded client a pipeline stage would.
func (s *Server) resolvedModel(ctx context.Context, modelID string) (*domain.ModelVersion, domain.Model, error) {
	mv, err := s.store.GetActiveModelVersion(ctx, modelID)
	if err != nil {
		return nil, nil, err
	}
	m, err := s.models.Get(ctx, mv.Endpoint, mv.Version)
	if err != nil {
		return nil, nil, err
	}
	return mv, m, nil
}

func (s *Server) runPredict(ctx context.Context, req predictRequest) (predictResponse, error) {
	mv, m, err := s.resolvedModel(ctx, req.ModelID)
	if err != nil {
		return predictResponse{}, err
	}

	b := s.breakers.Get(req.ModelID)
	start := time.Now()
	raw, err := b.ExecuteWithTimeout(ctx, func(ctx context.Context) (interface{}, error) {
		return m.Predict(ctx, req.Features)
	})
	latencyUs := time.Since(start).Microseconds()
	if err != nil {
		return predictResponse{}, err
	}

	result := raw.(domain.PredictionResult)
	resultJSON, err := domain.MarshalPredictionResult(result)
	if err != nil {
		return predictResponse{}, err
	}

	predictionID := uuid.NewString()
	prediction := &domain.Prediction{
		ID: predictionID, ModelID: req.ModelID, ModelVersion: mv.Version,
		FeaturesJSON: req.Features, Result: result, LatencyUs: latencyUs,
	}
	if err := s.store.CreatePrediction(ctx, prediction); err != nil {
		return predictResponse{}, err
	}

	return predictResponse{
		PredictionID: predictionID, Result: resultJSON, LatencyUs: latencyUs, Confidence: 1.0,
	}, nil
}

func (s *Server) predict(w http.ResponseWriter, r *http.Request) {
	var req predictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "malformed request body")
		return
	}
	if req.ModelID == "" {
		badRequest(w, "model_id is required")
		return
	}
	resp, err := s.runPredict(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// predictBatch runs every request independently, collecting per-request
// failures into the response rather than failing the whole batch (spec
// §4.8: batch stats report total/succeeded/failed).
func (s *Server) predictBatch(w http.ResponseWriter, r *http.Request) {
	var req predictBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "malformed request body")
		return
	}

	items := make([]predictBatchResponseItem, len(req.Requests))
	latencies := make([]int64, 0, len(req.Requests))
	var succeeded, failed int

	for i, preq := range req.Requests {
		resp, err := s.runPredict(r.Context(), preq)
		if err != nil {
			items[i] = predictBatchResponseItem{Error: err.Error()}
			failed++
			continue
		}
		items[i] = predictBatchResponseItem{predictResponse: resp}
		latencies = append(latencies, resp.LatencyUs)
		succeeded++
	}

	writeJSON(w, http.StatusOK, predictBatchResponse{
		Responses: items,
		Stats: predictBatchStats{
			Total: len(req.Requests), Succeeded: succeeded, Failed: failed,
			AvgLatencyUs: avgLatency(latencies), P99LatencyUs: p99Latency(latencies),
		},
	})
}

func avgLatency(latencies []int64) int64 {
	if len(latencies) == 0 {
		return 0
	}
	var sum int64
	for _, l := range latencies {
		sum += l
	}
	return sum / int64(len(latencies))
}

func p99Latency(latencies []int64) int64 {
	if len(latencies) == 0 {
		return 0
	}
	sorted := append([]int64(nil), latencies...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	idx := (99 * len(sorted)) / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// predictStream accepts a JSON array of requests and returns newline-
// delimited JSON responses in the same order, one line per request, as
// plain HTTP's stand-in for the bidirectional gRPC stream: the same
// ordering guarantee survives, just not the duplex transport.
func (s *Server) predictStream(w http.ResponseWriter, r *http.Request) {
	var reqs []predictRequest
	if err := json.NewDecoder(r.Body).Decode(&reqs); err != nil {
		badRequest(w, "malformed request body")
		return
	}

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.WriteHeader(http.StatusOK)
	enc := json.NewEncoder(w)
	flusher, _ := w.(http.Flusher)

	for _, req := range reqs {
		resp, err := s.runPredict(r.Context(), req)
		if err != nil {
			_ = enc.Encode(statusError{Status: "Internal", Message: err.Error()})
		} else {
			_ = enc.Encode(resp)
		}
		if flusher != nil {
			flusher.Flush()
		}
	}
}

func (s *Server) getModelInfo(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	mv, err := s.store.GetActiveModelVersion(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toModelInfo(mv))
}

// modelHealthCheck reports whether the model's endpoint can be resolved
// and its breaker is currently allowing calls.
func (s *Server) modelHealthCheck(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	mv, err := s.store.GetActiveModelVersion(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	b := s.breakers.Get(mv.ModelID)
	writeJSON(w, http.StatusOK, healthCheckResponse{
		ModelID: id, Healthy: b.CanExecute(), Breaker: b.GetState().String(),
	})
}
