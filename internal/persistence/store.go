// Package persistence defines the control plane's storage boundary and
// provides two implementations: an in-memory store for tests and local
// runs, and a Postgres-backed store for production, grounded on the
// teacher's MemoryStore (in-memory) and the pack's jackc/pgx + jmoiron/sqlx
// stack (Postgres) respectively.
package persistence

import (
	"context"
	"time"

	"github.com/flywheel-ml/flywheel/internal/domain"
)

// Store is the full persistence surface the control plane depends on.
// Implementations must make CreatePipeline idempotent on (name, namespace)
// and LinkFeedback a conditional write that sets a prediction's
// feedback_id at most once.
type Store interface {
	PipelineStore
	ModelStore
	PredictionStore
	FeedbackStore
	DriftStore

	// Close releases any underlying connections/resources.
	Close() error

	// Ping reports whether the store's backing connection is reachable,
	// for the health service's database subreport.
	Ping(ctx context.Context) error
}

// PipelineStore manages Pipeline and PipelineRun records.
type PipelineStore interface {
	// CreatePipeline inserts a new pipeline, or returns the existing row
	// unchanged if one with the same (name, namespace) already exists.
	CreatePipeline(ctx context.Context, p *domain.Pipeline) (*domain.Pipeline, error)
	GetPipeline(ctx context.Context, id string) (*domain.Pipeline, error)
	GetPipelineByName(ctx context.Context, namespace, name string) (*domain.Pipeline, error)
	ListPipelines(ctx context.Context, namespace string) ([]*domain.Pipeline, error)
	UpdatePipelineStatus(ctx context.Context, id string, status domain.PipelineStatus) error
	DeletePipeline(ctx context.Context, id string) error

	CreatePipelineRun(ctx context.Context, run *domain.PipelineRun) error
	UpdatePipelineRun(ctx context.Context, run *domain.PipelineRun) error
	ListPipelineRuns(ctx context.Context, pipelineID string, limit int) ([]*domain.PipelineRun, error)
}

// ModelStore manages ModelVersion records.
type ModelStore interface {
	CreateModelVersion(ctx context.Context, mv *domain.ModelVersion) error
	GetActiveModelVersion(ctx context.Context, modelID string) (*domain.ModelVersion, error)
	ListModelVersions(ctx context.Context, modelID string) ([]*domain.ModelVersion, error)
	UpdateModelVersionStatus(ctx context.Context, modelID, version string, status domain.ModelVersionStatus) error
}

// PredictionStore manages Prediction records.
type PredictionStore interface {
	CreatePrediction(ctx context.Context, p *domain.Prediction) error
	GetPrediction(ctx context.Context, id string) (*domain.Prediction, error)
	// LinkFeedback conditionally sets predictions.feedback_id, failing with
	// ErrConflict if it is already set (a prediction receives at most one
	// feedback link).
	LinkFeedback(ctx context.Context, predictionID, feedbackID string) error
}

// FeedbackStore manages Feedback records.
type FeedbackStore interface {
	CreateFeedback(ctx context.Context, f *domain.Feedback) error
	GetFeedback(ctx context.Context, id string) (*domain.Feedback, error)
	// ListUnexported returns feedback not yet exported for training,
	// oldest-first, bounded by limit.
	ListUnexported(ctx context.Context, limit int) ([]*domain.Feedback, error)
	MarkExported(ctx context.Context, ids []string) error
}

// DriftStore manages DriftEvent records.
type DriftStore interface {
	CreateDriftEvent(ctx context.Context, e *domain.DriftEvent) error
	GetOpenDriftEvent(ctx context.Context, pipelineID, modelID string) (*domain.DriftEvent, error)
	ResolveDriftEvent(ctx context.Context, id string, resolvedAt time.Time) error
	ListDriftEvents(ctx context.Context, pipelineID string, limit int) ([]*domain.DriftEvent, error)
}
