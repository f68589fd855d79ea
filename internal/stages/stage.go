// Package stages implements the five pipeline stage executors the DSL can
// name (feature-extraction, ml-inference, drift-detection, feedback-join,
// training-export), grounded on the original's
// flywheel-transform/flywheel-ml-transform crates for per-stage semantics
// and the teacher's orchestration/executor.go step-interface shape for the
// Go idiom: a stage is a small interface a runner drives one record at a
// time, rather than a trait object queue.
package stages

import (
	"context"
	"encoding/json"
	"time"

	"github.com/flywheel-ml/flywheel/internal/domain"
)

// Record is one unit of work flowing through a pipeline's stage chain. A
// stage reads the fields it needs and sets the ones it produces; later
// stages see earlier stages' writes.
type Record struct {
	RawJSON        json.RawMessage
	FeaturesJSON   json.RawMessage
	PredictionID   string
	ModelID        string
	ModelVersion   string
	Prediction     domain.PredictionResult
	LatencyUs      int64
	Feedback       *domain.Feedback
	LabeledExample *domain.LabeledExample
	ReceivedAt     time.Time
}

// Stage processes one Record. Implementations must not retain rec beyond
// the call; the runner passes the same batch slice to every stage of a
// cycle.
type Stage interface {
	ID() string
	Process(ctx context.Context, rec *Record) error
}

// Execute drives stage over a batch of records sequentially, the way the
// pipeline runner calls it once per cycle. Per-record failures are counted
// in failed, not surfaced as a batch error, so one bad record doesn't
// stall the rest of the cycle's throughput; the only error it returns is
// ctx.Err() when ctx is done before the batch finishes.
func Execute(ctx context.Context, stage Stage, records []Record) (processed, failed int64, err error) {
	for i := range records {
		if ctx.Err() != nil {
			return processed, failed, ctx.Err()
		}
		if perr := stage.Process(ctx, &records[i]); perr != nil {
			failed++
			continue
		}
		processed++
	}
	return processed, failed, nil
}
