package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flywheel-ml/flywheel/internal/breaker"
	"github.com/flywheel-ml/flywheel/internal/config"
	"github.com/flywheel-ml/flywheel/internal/domain"
	"github.com/flywheel-ml/flywheel/internal/logging"
	"github.com/flywheel-ml/flywheel/internal/persistence"
	"github.com/flywheel-ml/flywheel/internal/runner"
)

const validManifestYAML = `
apiVersion: flywheel/v1
kind: FlywheelPipeline
metadata:
  name: test-pipeline
spec:
  source: events.raw
  stages:
    - id: extract
      type: feature-extraction
      config:
        features:
          - name: amount
            sourceField: amount
  sinks:
    - name: default
      all: true
`

const unparseableManifestYAML = `not: [valid`

func newTestEngine(t *testing.T, cfg config.ReconcileConfig) (*Engine, persistence.Store) {
	t.Helper()
	store := persistence.NewMemoryStore()
	deps := runner.Dependencies{
		Store:  store,
		Models: runner.NewModelRegistry(5 * time.Second),
		Breakers: runner.NewBreakerRegistry(breaker.Config{
			FailureThreshold: 5, SuccessThreshold: 3, ResetTimeout: 30 * time.Second, CallTimeout: 10 * time.Second,
		}),
		Logger: logging.NoOpLogger{},
	}
	return New(store, deps, cfg, logging.NoOpLogger{}), store
}

func TestEngine_ReconcileStartsRunnerForRunningPipeline(t *testing.T) {
	e, store := newTestEngine(t, config.ReconcileConfig{Interval: time.Hour, MaxConcurrency: 4})

	p := &domain.Pipeline{Name: "p1", Namespace: "default", SpecYAML: validManifestYAML, Status: domain.PipelineStatusRunning}
	created, err := store.CreatePipeline(context.Background(), p)
	require.NoError(t, err)

	e.reconcile(context.Background())

	assert.Equal(t, 1, e.ActiveCount())

	e.StopAll()
	assert.Equal(t, 0, e.ActiveCount())
	_ = created
}

func TestEngine_ReconcileIsIdempotentByID(t *testing.T) {
	e, store := newTestEngine(t, config.ReconcileConfig{Interval: time.Hour, MaxConcurrency: 4})

	p := &domain.Pipeline{Name: "p1", Namespace: "default", SpecYAML: validManifestYAML, Status: domain.PipelineStatusRunning}
	_, err := store.CreatePipeline(context.Background(), p)
	require.NoError(t, err)

	e.reconcile(context.Background())
	e.reconcile(context.Background())

	assert.Equal(t, 1, e.ActiveCount())
	e.StopAll()
}

func TestEngine_ReconcileStopsRunnerNoLongerRunning(t *testing.T) {
	e, store := newTestEngine(t, config.ReconcileConfig{Interval: time.Hour, MaxConcurrency: 4})

	p := &domain.Pipeline{Name: "p1", Namespace: "default", SpecYAML: validManifestYAML, Status: domain.PipelineStatusRunning}
	created, err := store.CreatePipeline(context.Background(), p)
	require.NoError(t, err)

	e.reconcile(context.Background())
	require.Equal(t, 1, e.ActiveCount())

	require.NoError(t, store.UpdatePipelineStatus(context.Background(), created.ID, domain.PipelineStatusStopped))
	e.reconcile(context.Background())

	assert.Equal(t, 0, e.ActiveCount())
}

func TestEngine_ReconcileMarksPipelineFailedOnManifestParseError(t *testing.T) {
	e, store := newTestEngine(t, config.ReconcileConfig{Interval: time.Hour, MaxConcurrency: 4})

	p := &domain.Pipeline{Name: "bad", Namespace: "default", SpecYAML: unparseableManifestYAML, Status: domain.PipelineStatusRunning}
	created, err := store.CreatePipeline(context.Background(), p)
	require.NoError(t, err)

	e.reconcile(context.Background())

	assert.Equal(t, 0, e.ActiveCount())
	got, err := store.GetPipeline(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PipelineStatusFailed, got.Status)
}

func TestEngine_PushRecordDoesNotPanicBeforeRunnerStarts(t *testing.T) {
	e, _ := newTestEngine(t, config.ReconcileConfig{Interval: time.Hour, MaxConcurrency: 4})
	assert.NotPanics(t, func() {
		e.PushRecord("unknown-pipeline", []byte(`{}`))
		e.PushFeedback("unknown-pipeline", domain.Feedback{ID: "fb-1"})
	})
}
