package stages

import (
	"context"
	"fmt"
	"sync"

	"github.com/flywheel-ml/flywheel/internal/domain"
	"github.com/flywheel-ml/flywheel/internal/dsl"
	"github.com/flywheel-ml/flywheel/internal/export"
)

// TrainingExportStage buffers the LabeledExamples a feedback-join stage
// upstream in the same chain produces, subsets them through a Sampler, and
// flushes to a TrainingExporter once the buffer reaches flushSize,
// grounded on flywheel-ml-training/src/exporter.rs's batch-then-write
// shape.
type TrainingExportStage struct {
	id        string
	config    dsl.TrainingExport
	sampler   *export.Sampler
	exporter  domain.TrainingExporter
	flushSize int

	mu     sync.Mutex
	buffer []domain.LabeledExample
}

// NewTrainingExportStage builds a stage for one training-export DSL block.
// flushSize bounds how many sampled examples accumulate before a write;
// the runner should also call Flush on pipeline shutdown to avoid losing a
// partial buffer.
func NewTrainingExportStage(id string, config dsl.TrainingExport, sampler *export.Sampler, exporter domain.TrainingExporter, flushSize int) *TrainingExportStage {
	if flushSize <= 0 {
		flushSize = 1000
	}
	return &TrainingExportStage{id: id, config: config, sampler: sampler, exporter: exporter, flushSize: flushSize}
}

func (s *TrainingExportStage) ID() string { return s.id }

// Process subsets rec.LabeledExample through the sampler (a no-op if rec
// carries none, e.g. a record that never reached feedback-join) and
// buffers any accepted example, flushing once the buffer fills.
func (s *TrainingExportStage) Process(ctx context.Context, rec *Record) error {
	if rec.LabeledExample == nil {
		return nil
	}

	accepted, ok := s.sampler.SampleOne(*rec.LabeledExample)
	if !ok {
		// Reservoir absorbs the example internally until Flush drains it;
		// other strategies reject it outright.
		return nil
	}

	s.mu.Lock()
	s.buffer = append(s.buffer, accepted)
	shouldFlush := len(s.buffer) >= s.flushSize
	s.mu.Unlock()

	if shouldFlush {
		return s.Flush(ctx)
	}
	return nil
}

// Flush writes the current buffer plus anything still held in the
// sampler's reservoir through the exporter, then clears both. The runner
// calls this on pipeline shutdown so a partial buffer isn't lost.
func (s *TrainingExportStage) Flush(ctx context.Context) error {
	s.mu.Lock()
	batch := append(s.buffer, s.sampler.Drain()...)
	s.buffer = nil
	s.mu.Unlock()

	if len(batch) == 0 {
		return nil
	}
	if _, err := s.exporter.Export(ctx, batch); err != nil {
		return domain.NewError("stages.TrainingExport", "io", fmt.Errorf("%w: %v", domain.ErrIO, err)).WithID(s.id)
	}
	return nil
}

var _ Stage = (*TrainingExportStage)(nil)
