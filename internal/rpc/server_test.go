package rpc_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flywheel-ml/flywheel/internal/breaker"
	"github.com/flywheel-ml/flywheel/internal/config"
	"github.com/flywheel-ml/flywheel/internal/domain"
	"github.com/flywheel-ml/flywheel/internal/persistence"
	"github.com/flywheel-ml/flywheel/internal/rpc"
	"github.com/flywheel-ml/flywheel/internal/runner"
)

const samplePipelineSpec = `
apiVersion: flywheel-ml.io/v1
kind: FlywheelPipeline
metadata:
  name: fraud-scoring
  namespace: payments
spec:
  source: events.fraud.scored
  stages:
    - id: extract
      type: feature-extraction
      config:
        features:
          - name: amount_norm
            sourceField: amount
            transform:
              kind: normalize
              min: 0
              max: 10000
    - id: infer
      type: ml-inference
      config:
        modelEndpoint: http://models.internal/fraud/v3
        modelId: fraud-v3
        inputFeatures: [amount_norm]
        outputField: fraud_score
  sinks:
    - name: alerts-topic
`

// stubEngine satisfies rpc.Engine without pulling in internal/engine.
type stubEngine struct{ active int }

func (s stubEngine) ActiveCount() int { return s.active }

func newTestServer(t *testing.T) (*rpc.Server, persistence.Store) {
	t.Helper()
	store := persistence.NewMemoryStore()
	models := runner.NewModelRegistry(0)
	breakers := runner.NewBreakerRegistry(breaker.Config{
		FailureThreshold: 3, SuccessThreshold: 1, ResetTimeout: 1, CallTimeout: 0,
	})
	return rpc.NewServer(store, stubEngine{active: 2}, models, breakers, config.ServerConfig{}, nil), store
}

func doRequest(t *testing.T, router http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestCreateAndGetPipeline(t *testing.T) {
	server, _ := newTestServer(t)
	router := server.Router()

	rec := doRequest(t, router, http.MethodPost, "/control/pipelines", map[string]string{
		"name": "fraud-scoring", "namespace": "payments", "spec_yaml": samplePipelineSpec,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var created map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	id, _ := created["pipeline_id"].(string)
	require.NotEmpty(t, id)
	assert.Equal(t, string(domain.PipelineStatusPending), created["status"])

	rec = doRequest(t, router, http.MethodGet, "/control/pipelines/"+id, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, router, http.MethodGet, "/control/pipelines/does-not-exist", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreatePipelineRejectsInvalidSpec(t *testing.T) {
	server, _ := newTestServer(t)
	router := server.Router()

	rec := doRequest(t, router, http.MethodPost, "/control/pipelines", map[string]string{
		"name": "broken", "namespace": "payments", "spec_yaml": "not: [valid",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEnableDisablePipeline(t *testing.T) {
	server, _ := newTestServer(t)
	router := server.Router()

	rec := doRequest(t, router, http.MethodPost, "/control/pipelines", map[string]string{
		"name": "fraud-scoring", "namespace": "payments", "spec_yaml": samplePipelineSpec,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var created map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	id := created["pipeline_id"].(string)

	rec = doRequest(t, router, http.MethodPost, "/control/pipelines/"+id+"/enable", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var enabled map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &enabled))
	assert.Equal(t, string(domain.PipelineStatusRunning), enabled["status"])

	rec = doRequest(t, router, http.MethodPost, "/control/pipelines/"+id+"/disable", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var disabled map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &disabled))
	assert.Equal(t, string(domain.PipelineStatusStopped), disabled["status"])
}

func TestPredictRoundTrip(t *testing.T) {
	modelServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		result := domain.NewAnomalyResult(0.92, 0.5, []string{"amount_norm"})
		body, err := domain.MarshalPredictionResult(result)
		require.NoError(t, err)
		w.Header().Set("Content-Type", "application/json")
		w.Write(body)
	}))
	defer modelServer.Close()

	server, store := newTestServer(t)
	router := server.Router()

	mv := &domain.ModelVersion{
		ModelID: "fraud-v3", Version: "v3", Type: domain.ModelTypeAnomalyDetection,
		Endpoint: modelServer.URL, Status: domain.ModelVersionStatusActive,
	}
	require.NoError(t, store.CreateModelVersion(t.Context(), mv))

	rec := doRequest(t, router, http.MethodPost, "/inference/predict", map[string]interface{}{
		"model_id": "fraud-v3",
		"features": json.RawMessage(`{"amount_norm": 0.8}`),
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp["prediction_id"])
	result, ok := resp["result"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "anomaly", result["type"])
	assert.True(t, result["is_anomaly"].(bool))
}

func TestPredictUnknownModelReturnsNotFound(t *testing.T) {
	server, _ := newTestServer(t)
	router := server.Router()

	rec := doRequest(t, router, http.MethodPost, "/inference/predict", map[string]interface{}{
		"model_id": "does-not-exist",
		"features": json.RawMessage(`{}`),
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetHealthReportsDatabaseAndActivePipelines(t *testing.T) {
	server, _ := newTestServer(t)
	router := server.Router()

	rec := doRequest(t, router, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp["status"])
	assert.EqualValues(t, 2, resp["active_pipelines"])
	db, ok := resp["database"].(map[string]interface{})
	require.True(t, ok)
	assert.True(t, db["connected"].(bool))
}

func TestGetDriftStatusNotDriftedWhenNoOpenEvent(t *testing.T) {
	server, _ := newTestServer(t)
	router := server.Router()

	rec := doRequest(t, router, http.MethodGet, "/health/drift/pipe-1/fraud-v3", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp["is_drifted"].(bool))
}
