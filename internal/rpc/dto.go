package rpc

import (
	"encoding/json"
	"time"
)

// --- Control ---

type createPipelineRequest struct {
	Name      string `json:"name"`
	Namespace string `json:"namespace"`
	SpecYAML  string `json:"spec_yaml"`
}

type pipelineInfo struct {
	PipelineID string    `json:"pipeline_id"`
	Name       string    `json:"name"`
	Namespace  string    `json:"namespace"`
	Status     string    `json:"status"`
	SpecYAML   string    `json:"spec_yaml"`
	SpecHash   string    `json:"spec_hash"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type listPipelinesResponse struct {
	Pipelines []pipelineInfo `json:"pipelines"`
}

type enableDisableResponse struct {
	Success bool   `json:"success"`
	Status  string `json:"status"`
}

type registerModelRequest struct {
	ModelID  string `json:"model_id"`
	Version  string `json:"version"`
	Type     string `json:"model_type"`
	Endpoint string `json:"endpoint"`
}

type modelInfo struct {
	ModelID      string  `json:"model_id"`
	Version      string  `json:"version"`
	Type         string  `json:"model_type"`
	Endpoint     string  `json:"endpoint"`
	Status       string  `json:"status"`
	Accuracy     float64 `json:"accuracy"`
	LatencyP99Ms int64   `json:"latency_p99_ms"`
}

type listModelsResponse struct {
	Models []modelInfo `json:"models"`
}

// --- Inference ---

type predictRequest struct {
	ModelID  string          `json:"model_id"`
	Features json.RawMessage `json:"features"`
}

type predictResponse struct {
	PredictionID string          `json:"prediction_id"`
	Result       json.RawMessage `json:"result"`
	LatencyUs    int64           `json:"latency_us"`
	Confidence   float64         `json:"confidence"`
}

type predictBatchRequest struct {
	Requests []predictRequest `json:"requests"`
}

type predictBatchStats struct {
	Total        int   `json:"total"`
	Succeeded    int   `json:"succeeded"`
	Failed       int   `json:"failed"`
	AvgLatencyUs int64 `json:"avg_latency_us"`
	P99LatencyUs int64 `json:"p99_latency_us"`
}

type predictBatchResponseItem struct {
	predictResponse
	Error string `json:"error,omitempty"`
}

type predictBatchResponse struct {
	Responses []predictBatchResponseItem `json:"responses"`
	Stats     predictBatchStats          `json:"stats"`
}

type healthCheckResponse struct {
	ModelID string `json:"model_id"`
	Healthy bool   `json:"healthy"`
	Breaker string `json:"breaker_state"`
}

// --- Health ---

type databaseHealth struct {
	Connected bool  `json:"connected"`
	LatencyMs int64 `json:"latency_ms"`
}

type getHealthResponse struct {
	Status          string         `json:"status"`
	Version         string         `json:"version"`
	UptimeSeconds   int64          `json:"uptime_seconds"`
	ActivePipelines int            `json:"active_pipelines"`
	Database        databaseHealth `json:"database"`
}

type driftSummary struct {
	IsDrifted     bool      `json:"is_drifted"`
	Severity      string    `json:"severity"`
	PSIScore      float64   `json:"psi_score"`
	KLDivergence  float64   `json:"kl_divergence"`
	AccuracyDelta float64   `json:"accuracy_delta"`
	LastChecked   time.Time `json:"last_checked"`
}

type pipelineHealthResponse struct {
	PipelineID string        `json:"pipeline_id"`
	Status     string        `json:"status"`
	Drift      *driftSummary `json:"drift,omitempty"`
}

type driftEventInfo struct {
	ID            string     `json:"id"`
	PipelineID    string     `json:"pipeline_id"`
	ModelID       string     `json:"model_id"`
	DriftType     string     `json:"drift_type"`
	Severity      string     `json:"severity"`
	PSIScore      *float64   `json:"psi_score,omitempty"`
	KLDivergence  *float64   `json:"kl_divergence,omitempty"`
	AccuracyDelta *float64   `json:"accuracy_delta,omitempty"`
	DetectedAt    time.Time  `json:"detected_at"`
	ResolvedAt    *time.Time `json:"resolved_at,omitempty"`
}

type listDriftEventsResponse struct {
	Events []driftEventInfo `json:"events"`
}
