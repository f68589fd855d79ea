package runner

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flywheel-ml/flywheel/internal/domain"
	"github.com/flywheel-ml/flywheel/internal/dsl"
	"github.com/flywheel-ml/flywheel/internal/logging"
	"github.com/flywheel-ml/flywheel/internal/stages"
)

// fakeStage counts how many records it processed and can be told to fail
// every record it sees, to exercise the runner's failed-counter and
// stop-on-error paths without a real stage implementation.
type fakeStage struct {
	id      string
	calls   atomic.Int64
	failAll bool
}

func (f *fakeStage) ID() string { return f.id }

func (f *fakeStage) Process(_ context.Context, rec *stages.Record) error {
	f.calls.Add(1)
	if f.failAll {
		return assert.AnError
	}
	rec.PredictionID = "predicted"
	return nil
}

func testPipeline() *domain.Pipeline {
	return &domain.Pipeline{ID: "pipe-1", Name: "test-pipeline", Namespace: "default"}
}

func testManifest() *dsl.PipelineManifest {
	return &dsl.PipelineManifest{
		APIVersion: "flywheel/v1",
		Kind:       "FlywheelPipeline",
		Spec: dsl.PipelineSpec{
			Stages: []dsl.Stage{
				{ID: "extract", Type: dsl.StageTypeFeatureExtraction},
				{ID: "infer", Type: dsl.StageTypeMLInference},
			},
		},
	}
}

func TestRunner_ExecuteCycle_AccumulatesCountersAndPredictions(t *testing.T) {
	extract := &fakeStage{id: "extract"}
	infer := &fakeStage{id: "infer"}
	built := []namedStage{
		{stageType: dsl.StageTypeFeatureExtraction, stage: extract},
		{stageType: dsl.StageTypeMLInference, stage: infer},
	}

	source := NewQueueSource()
	source.Push(json.RawMessage(`{"a":1}`))
	source.Push(json.RawMessage(`{"a":2}`))

	r := New(testPipeline(), testManifest(), built, nil, source, nil, logging.NoOpLogger{})

	err := r.executeCycle(context.Background())
	require.NoError(t, err)

	stats := r.Stats()
	assert.Equal(t, uint64(4), stats.RecordsProcessed) // 2 records through 2 stages
	assert.Equal(t, uint64(0), stats.RecordsFailed)
	assert.Equal(t, uint64(2), stats.PredictionsMade) // only ml-inference counts toward predictions
	assert.EqualValues(t, 2, extract.calls.Load())
	assert.EqualValues(t, 2, infer.calls.Load())
}

func TestRunner_ExecuteCycle_NoRecordsIsANoOp(t *testing.T) {
	extract := &fakeStage{id: "extract"}
	built := []namedStage{{stageType: dsl.StageTypeFeatureExtraction, stage: extract}}

	r := New(testPipeline(), testManifest(), built, nil, NewQueueSource(), nil, logging.NoOpLogger{})

	err := r.executeCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(0), r.Stats().RecordsProcessed)
	assert.EqualValues(t, 0, extract.calls.Load())
}

func TestRunner_ExecuteCycle_PerRecordFailureIsCountedNotFatal(t *testing.T) {
	failing := &fakeStage{id: "extract", failAll: true}
	built := []namedStage{{stageType: dsl.StageTypeFeatureExtraction, stage: failing}}

	source := NewQueueSource()
	source.Push(json.RawMessage(`{}`))

	r := New(testPipeline(), testManifest(), built, nil, source, nil, logging.NoOpLogger{})

	err := r.executeCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(0), r.Stats().RecordsProcessed)
	assert.Equal(t, uint64(1), r.Stats().RecordsFailed)
}

func TestRunner_ExecuteCycle_FeedbackBatchRoutesToFeedbackStagesOnly(t *testing.T) {
	mainStage := &fakeStage{id: "extract"}
	feedbackStage := &fakeStage{id: "feedback"}
	built := []namedStage{
		{stageType: dsl.StageTypeFeatureExtraction, stage: mainStage},
		{stageType: dsl.StageTypeFeedbackJoin, stage: feedbackStage},
	}

	source := NewQueueSource()
	source.Push(json.RawMessage(`{}`))

	collector := NewQueueFeedbackCollector()
	collector.Push(domain.Feedback{ID: "fb-1"})
	collector.Push(domain.Feedback{ID: "fb-2"})

	r := New(testPipeline(), testManifest(), built, nil, source, collector, logging.NoOpLogger{})

	err := r.executeCycle(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 1, mainStage.calls.Load())
	assert.EqualValues(t, 2, feedbackStage.calls.Load())
}

func TestRunner_StopExitsLoopAtNextCycleBoundary(t *testing.T) {
	extract := &fakeStage{id: "extract"}
	built := []namedStage{{stageType: dsl.StageTypeFeatureExtraction, stage: extract}}

	r := New(testPipeline(), testManifest(), built, nil, NewQueueSource(), nil, logging.NoOpLogger{})
	require.True(t, r.IsRunning())

	done := make(chan struct{})
	go func() {
		r.Run(context.Background())
		close(done)
	}()

	r.Stop()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("runner did not stop after Stop()")
	}
	assert.False(t, r.IsRunning())
}

func TestRunner_ContextCancellationStopsLoop(t *testing.T) {
	extract := &fakeStage{id: "extract"}
	built := []namedStage{{stageType: dsl.StageTypeFeatureExtraction, stage: extract}}

	r := New(testPipeline(), testManifest(), built, nil, NewQueueSource(), nil, logging.NoOpLogger{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("runner did not stop after context cancellation")
	}
}

func TestRunner_ExecuteCycle_StageErrorStopsCycleAndSurfacesError(t *testing.T) {
	// stages.Execute only returns a non-nil error on context cancellation,
	// not per-record failure, so drive that path directly.
	extract := &fakeStage{id: "extract"}
	built := []namedStage{{stageType: dsl.StageTypeFeatureExtraction, stage: extract}}

	source := NewQueueSource()
	source.Push(json.RawMessage(`{}`))

	r := New(testPipeline(), testManifest(), built, nil, source, nil, logging.NoOpLogger{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := r.executeCycle(ctx)
	assert.Error(t, err)
}
