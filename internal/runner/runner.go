// Package runner drives one pipeline's stage chain in a loop until
// stopped, grounded on original_source/crates/flywheel-ml-server/src/
// executor/runner.rs for the cycle/counter/stop semantics and the
// teacher's core.BaseAgent goroutine-lifecycle idiom (an atomic running
// flag checked at a loop boundary, not a context cancellation racing
// mid-cycle) for the Go expression of it.
package runner

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/flywheel-ml/flywheel/internal/domain"
	"github.com/flywheel-ml/flywheel/internal/dsl"
	"github.com/flywheel-ml/flywheel/internal/logging"
	"github.com/flywheel-ml/flywheel/internal/stages"
)

const (
	defaultCycleSleep = 100 * time.Millisecond
	defaultBatchSize  = 100
)

// Stats is a point-in-time snapshot of a Runner's lifetime counters.
type Stats struct {
	RecordsProcessed uint64
	RecordsFailed    uint64
	PredictionsMade  uint64
	Errors           uint64
}

// Runner drives one Pipeline's manifest-ordered stage chain: a raw-event
// batch flows through feature-extraction/ml-inference/drift-detection in
// manifest order, and a separately-sourced feedback batch flows through
// feedback-join/training-export, since ground truth arrives on its own
// channel rather than riding the same event stream as the original
// prediction inputs (spec §4.3's stages share one execute(ctx) signature,
// but feedback-join and training-export are semantically downstream of a
// different source than the inference stages).
type Runner struct {
	pipeline       *domain.Pipeline
	manifest       *dsl.PipelineManifest
	stages         []namedStage
	trainingExport *stages.TrainingExportStage
	source         RecordSource
	feedback       domain.FeedbackCollector
	logger         logging.Logger
	batchSize      int

	running          atomic.Bool
	recordsProcessed atomic.Uint64
	recordsFailed    atomic.Uint64
	predictionsMade  atomic.Uint64
	errors           atomic.Uint64
}

// New builds a Runner for pipeline from its already-built stage chain.
// feedback and source may be nil: a pipeline whose manifest has no
// feedback-join stage needs no collector, and a nil source simply never
// yields records (a no-op cycle, not an error).
func New(pipeline *domain.Pipeline, manifest *dsl.PipelineManifest, built []namedStage, trainingExport *stages.TrainingExportStage, source RecordSource, feedback domain.FeedbackCollector, logger logging.Logger) *Runner {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	r := &Runner{
		pipeline:       pipeline,
		manifest:       manifest,
		stages:         built,
		trainingExport: trainingExport,
		source:         source,
		feedback:       feedback,
		logger:         logger,
		batchSize:      defaultBatchSize,
	}
	r.running.Store(true)
	return r
}

// IsRunning reports whether the runner's loop is still active.
func (r *Runner) IsRunning() bool { return r.running.Load() }

// Stop flips the cooperative stop flag; the loop exits at the next cycle
// boundary, not mid-cycle (spec §4.2 cancellation contract).
func (r *Runner) Stop() { r.running.Store(false) }

// Stats snapshots the runner's lifetime counters.
func (r *Runner) Stats() Stats {
	return Stats{
		RecordsProcessed: r.recordsProcessed.Load(),
		RecordsFailed:    r.recordsFailed.Load(),
		PredictionsMade:  r.predictionsMade.Load(),
		Errors:           r.errors.Load(),
	}
}

// Run executes cycles until Stop is called or ctx is cancelled, sleeping
// a short back-off between cycles. It returns when the loop exits; the
// caller (the execution engine) runs this in its own goroutine.
func (r *Runner) Run(ctx context.Context) {
	r.logger.Info("pipeline runner started", map[string]interface{}{
		"pipeline_id": r.pipeline.ID, "name": r.pipeline.Name, "stages": len(r.stages),
	})

	for r.IsRunning() {
		if ctx.Err() != nil {
			break
		}
		if err := r.executeCycle(ctx); err != nil {
			r.errors.Add(1)
			r.logger.Error("pipeline cycle failed", map[string]interface{}{
				"pipeline_id": r.pipeline.ID, "error": err.Error(),
			})
		}

		select {
		case <-ctx.Done():
		case <-time.After(defaultCycleSleep):
		}
	}

	if r.trainingExport != nil {
		if err := r.trainingExport.Flush(context.Background()); err != nil {
			r.logger.Error("training export flush failed on stop", map[string]interface{}{
				"pipeline_id": r.pipeline.ID, "error": err.Error(),
			})
		}
	}

	stats := r.Stats()
	r.logger.Info("pipeline runner stopped", map[string]interface{}{
		"pipeline_id": r.pipeline.ID, "records_processed": stats.RecordsProcessed,
		"predictions_made": stats.PredictionsMade, "errors": stats.Errors,
	})
}

// executeCycle runs one pass of the manifest's stages in order, stopping
// (and returning the cause) at the first stage that errors, matching the
// original's execute_cycle early-return-on-stage-error contract.
func (r *Runner) executeCycle(ctx context.Context) error {
	mainBatch, err := r.pullMainBatch(ctx)
	if err != nil {
		return err
	}
	feedbackBatch, err := r.pullFeedbackBatch(ctx)
	if err != nil {
		return err
	}

	for _, ns := range r.stages {
		var batch []stages.Record
		switch ns.stageType {
		case dsl.StageTypeFeedbackJoin, dsl.StageTypeTrainingExport:
			batch = feedbackBatch
		default:
			batch = mainBatch
		}
		if len(batch) == 0 {
			continue
		}

		processed, failed, err := stages.Execute(ctx, ns.stage, batch)
		if err != nil {
			return fmt.Errorf("stage %s: %w", ns.stage.ID(), err)
		}
		r.recordsProcessed.Add(uint64(processed))
		r.recordsFailed.Add(uint64(failed))
		if ns.stageType == dsl.StageTypeMLInference {
			r.predictionsMade.Add(uint64(processed))
		}
	}
	return nil
}

func (r *Runner) pullMainBatch(ctx context.Context) ([]stages.Record, error) {
	if r.source == nil {
		return nil, nil
	}
	raws, err := r.source.Pull(ctx, r.batchSize)
	if err != nil {
		return nil, domain.NewError("runner.executeCycle", "io", fmt.Errorf("%w: %v", domain.ErrIO, err)).WithID(r.pipeline.ID)
	}
	now := time.Now()
	batch := make([]stages.Record, len(raws))
	for i, raw := range raws {
		batch[i] = stages.Record{RawJSON: raw, ReceivedAt: now}
	}
	return batch, nil
}

func (r *Runner) pullFeedbackBatch(ctx context.Context) ([]stages.Record, error) {
	if r.feedback == nil {
		return nil, nil
	}
	events, err := r.feedback.Collect(ctx)
	if err != nil {
		return nil, domain.NewError("runner.executeCycle", "io", fmt.Errorf("%w: %v", domain.ErrIO, err)).WithID(r.pipeline.ID)
	}
	batch := make([]stages.Record, len(events))
	for i := range events {
		batch[i] = stages.Record{Feedback: &events[i], ReceivedAt: events[i].ReceivedAt}
	}
	return batch, nil
}
