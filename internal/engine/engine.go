// Package engine implements the execution engine: the reconciliation loop
// that converges the set of in-process pipeline runners to the set of
// Running pipelines in persistent state, grounded on
// original_source/crates/flywheel-ml-server/src/executor/engine.rs for the
// reconcile algorithm and the teacher's orchestration.TaskWorkerPool for the
// Go lifecycle idiom (atomic running flag, cancellable context, WaitGroup
// drain on stop).
package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/flywheel-ml/flywheel/internal/config"
	"github.com/flywheel-ml/flywheel/internal/domain"
	"github.com/flywheel-ml/flywheel/internal/dsl"
	"github.com/flywheel-ml/flywheel/internal/logging"
	"github.com/flywheel-ml/flywheel/internal/persistence"
	"github.com/flywheel-ml/flywheel/internal/runner"
)

// defaultReconcilePageSize bounds how many Running pipelines one
// reconciliation tick considers (spec: "bounded page, default 100").
const defaultReconcilePageSize = 100

// runnerHandle pairs a running Runner with the machinery to stop it and the
// supervisory PipelineRun row tracking its activation.
type runnerHandle struct {
	runner *runner.Runner
	cancel context.CancelFunc
	runID  string
}

// Engine converges in-process pipeline runners to the Running set in
// persistence, on a fixed poll interval. One Engine supervises every
// pipeline in the process; Dependencies (model/breaker registries, cache,
// notifier, drift/export defaults) are shared across every runner it
// starts, matching spec §5's "shared across runners" contract.
type Engine struct {
	store  persistence.PipelineStore
	deps   runner.Dependencies
	cfg    config.ReconcileConfig
	logger logging.Logger

	mu       sync.RWMutex
	runners  map[string]*runnerHandle
	sources  map[string]*runner.QueueSource
	feedback map[string]*runner.QueueFeedbackCollector

	running atomic.Bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New builds an Engine. deps is shared by every runner the engine starts;
// cfg controls the reconciliation cadence and per-tick startup
// concurrency.
func New(store persistence.PipelineStore, deps runner.Dependencies, cfg config.ReconcileConfig, logger logging.Logger) *Engine {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Second
	}
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = 16
	}
	return &Engine{
		store:    store,
		deps:     deps,
		cfg:      cfg,
		logger:   logger,
		runners:  make(map[string]*runnerHandle),
		sources:  make(map[string]*runner.QueueSource),
		feedback: make(map[string]*runner.QueueFeedbackCollector),
	}
}

// Start runs the reconciliation loop until ctx is cancelled or StopAll is
// called. It blocks — callers run it in its own goroutine, matching the
// original's "runs forever" contract.
func (e *Engine) Start(ctx context.Context) {
	if e.running.Swap(true) {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	defer e.running.Store(false)

	e.logger.Info("execution engine started", map[string]interface{}{"poll_interval": e.cfg.Interval.String()})

	ticker := time.NewTicker(e.cfg.Interval)
	defer ticker.Stop()

	e.reconcile(ctx)
	for {
		select {
		case <-ctx.Done():
			e.logger.Info("execution engine stopped", nil)
			return
		case <-ticker.C:
			e.reconcile(ctx)
		}
	}
}

// reconcile performs one convergence pass. Reconciliation failures log and
// continue rather than abort the loop (spec §4.1's resilience contract).
func (e *Engine) reconcile(ctx context.Context) {
	all, err := e.store.ListPipelines(ctx, "")
	if err != nil {
		e.logger.Error("reconcile: list pipelines failed", map[string]interface{}{"error": err.Error()})
		return
	}

	running := make([]*domain.Pipeline, 0, len(all))
	for _, p := range all {
		if p.Status == domain.PipelineStatusRunning {
			running = append(running, p)
		}
	}
	if len(running) > defaultReconcilePageSize {
		e.logger.Warn("reconcile: more Running pipelines than one page, remainder deferred to next tick", map[string]interface{}{
			"total": len(running), "page_size": defaultReconcilePageSize,
		})
		running = running[:defaultReconcilePageSize]
	}

	runningIDs := make(map[string]struct{}, len(running))
	for _, p := range running {
		runningIDs[p.ID] = struct{}{}
	}

	e.stopStale(runningIDs)
	e.startMissing(ctx, running)
}

// stopStale cooperatively stops and removes every runner whose pipeline is
// no longer in the Running set.
func (e *Engine) stopStale(runningIDs map[string]struct{}) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for id, h := range e.runners {
		if _, ok := runningIDs[id]; ok {
			continue
		}
		e.logger.Info("stopping pipeline runner", map[string]interface{}{"pipeline_id": id})
		h.runner.Stop()
		h.cancel()
		delete(e.runners, id)
	}
}

// startMissing constructs and starts a runner for every Running pipeline
// lacking one, up to cfg.MaxConcurrency concurrently within this tick.
// Starting is idempotent by id: a pipeline already running is skipped.
func (e *Engine) startMissing(ctx context.Context, pipelines []*domain.Pipeline) {
	var pending []*domain.Pipeline
	e.mu.RLock()
	for _, p := range pipelines {
		if _, ok := e.runners[p.ID]; !ok {
			pending = append(pending, p)
		}
	}
	e.mu.RUnlock()

	if len(pending) == 0 {
		return
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.MaxConcurrency)
	for _, p := range pending {
		p := p
		g.Go(func() error {
			e.startOne(gctx, p)
			return nil
		})
	}
	_ = g.Wait() // startOne never returns an error; failures are logged and the pipeline marked Failed
}

// startOne parses pipeline's manifest, builds its stage chain, and starts
// its runner. A parse or build failure marks the pipeline Failed in
// persistence and is otherwise non-fatal to the reconcile tick.
func (e *Engine) startOne(ctx context.Context, p *domain.Pipeline) {
	manifest, _, err := dsl.Parse(p.SpecYAML)
	if err != nil {
		e.failPipeline(ctx, p, fmt.Errorf("manifest parse: %w", err))
		return
	}

	source := e.sourceFor(p.ID)
	fb := e.feedbackFor(p.ID)

	built, trainingExport, err := runner.BuildStages(p.ID, manifest, e.deps)
	if err != nil {
		e.failPipeline(ctx, p, fmt.Errorf("build stages: %w", err))
		return
	}

	run := &domain.PipelineRun{PipelineID: p.ID, Status: domain.PipelineRunStatusRunning, StartedAt: time.Now()}
	if err := e.store.CreatePipelineRun(ctx, run); err != nil {
		e.logger.Error("reconcile: create pipeline run failed", map[string]interface{}{"pipeline_id": p.ID, "error": err.Error()})
		return
	}

	r := runner.New(p, manifest, built, trainingExport, source, fb, e.logger)
	runCtx, cancel := context.WithCancel(context.Background())

	e.mu.Lock()
	if _, exists := e.runners[p.ID]; exists {
		// another tick raced us to it; drop this one.
		e.mu.Unlock()
		cancel()
		return
	}
	e.runners[p.ID] = &runnerHandle{runner: r, cancel: cancel, runID: run.ID}
	e.mu.Unlock()

	e.logger.Info("starting pipeline runner", map[string]interface{}{"pipeline_id": p.ID, "name": p.Name})

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		r.Run(runCtx)
		e.finishRun(run, r)
	}()
}

// finishRun records a runner's terminal stats once its loop exits.
func (e *Engine) finishRun(run *domain.PipelineRun, r *runner.Runner) {
	stats := r.Stats()
	now := time.Now()
	run.Status = domain.PipelineRunStatusCompleted
	run.RecordsProcessed = int64(stats.RecordsProcessed)
	run.RecordsFailed = int64(stats.RecordsFailed)
	run.EndedAt = &now
	if err := e.store.UpdatePipelineRun(context.Background(), run); err != nil {
		e.logger.Error("reconcile: update pipeline run failed", map[string]interface{}{"pipeline_run_id": run.ID, "error": err.Error()})
	}
}

func (e *Engine) failPipeline(ctx context.Context, p *domain.Pipeline, cause error) {
	e.logger.Error("reconcile: failed to start pipeline runner", map[string]interface{}{"pipeline_id": p.ID, "error": cause.Error()})
	if err := e.store.UpdatePipelineStatus(ctx, p.ID, domain.PipelineStatusFailed); err != nil {
		e.logger.Error("reconcile: mark pipeline failed failed", map[string]interface{}{"pipeline_id": p.ID, "error": err.Error()})
	}
}

// sourceFor returns the in-process record queue a future ingest handler
// pushes raw events into for this pipeline, creating it on first use.
func (e *Engine) sourceFor(pipelineID string) *runner.QueueSource {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, ok := e.sources[pipelineID]
	if !ok {
		s = runner.NewQueueSource()
		e.sources[pipelineID] = s
	}
	return s
}

// feedbackFor returns the in-process feedback queue for pipelineID,
// creating it on first use.
func (e *Engine) feedbackFor(pipelineID string) *runner.QueueFeedbackCollector {
	e.mu.Lock()
	defer e.mu.Unlock()
	f, ok := e.feedback[pipelineID]
	if !ok {
		f = runner.NewQueueFeedbackCollector()
		e.feedback[pipelineID] = f
	}
	return f
}

// PushRecord enqueues a raw event for pipelineID's runner to pick up on its
// next cycle. Safe to call before the runner starts: the queue is created
// lazily and drained once the runner exists.
func (e *Engine) PushRecord(pipelineID string, raw json.RawMessage) {
	e.sourceFor(pipelineID).Push(raw)
}

// PushFeedback enqueues a ground-truth event for pipelineID's runner.
func (e *Engine) PushFeedback(pipelineID string, fb domain.Feedback) {
	e.feedbackFor(pipelineID).Push(fb)
}

// ActiveCount reports how many pipeline runners are currently in-process.
func (e *Engine) ActiveCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.runners)
}

// StopAll cooperatively stops every in-process runner and waits for their
// loops to exit.
func (e *Engine) StopAll() {
	e.mu.Lock()
	for id, h := range e.runners {
		e.logger.Info("stopping pipeline runner", map[string]interface{}{"pipeline_id": id})
		h.runner.Stop()
		h.cancel()
	}
	e.runners = make(map[string]*runnerHandle)
	e.mu.Unlock()

	if e.cancel != nil {
		e.cancel()
	}
	e.wg.Wait()
}
