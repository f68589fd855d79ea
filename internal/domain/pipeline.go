package domain

import "time"

// PipelineStatus is the lifecycle state of a Pipeline.
type PipelineStatus string

const (
	PipelineStatusPending  PipelineStatus = "pending"
	PipelineStatusRunning  PipelineStatus = "running"
	PipelineStatusStopped  PipelineStatus = "stopped"
	PipelineStatusFailed   PipelineStatus = "failed"
	PipelineStatusDisabled PipelineStatus = "disabled"
)

// Pipeline is a registered inference pipeline. Name+Namespace is unique;
// Status transitions are driven by control RPC (Enable/Disable) and the
// execution engine (Failed on runner construction error).
type Pipeline struct {
	ID        string
	Name      string
	Namespace string
	SpecYAML  string
	SpecHash  string // sha256 of SpecYAML, hex-encoded
	Status    PipelineStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

// PipelineRunStatus is the lifecycle state of one supervisory activation.
type PipelineRunStatus string

const (
	PipelineRunStatusRunning   PipelineRunStatus = "running"
	PipelineRunStatusCompleted PipelineRunStatus = "completed"
	PipelineRunStatusFailed    PipelineRunStatus = "failed"
	PipelineRunStatusCancelled PipelineRunStatus = "cancelled"
)

// PipelineRun is a supervisory record created each time the execution
// engine activates a runner for a pipeline.
type PipelineRun struct {
	ID              string
	PipelineID      string
	Status          PipelineRunStatus
	RecordsProcessed int64
	RecordsFailed    int64
	ErrorMessage    string
	StartedAt       time.Time
	EndedAt         *time.Time
}

// ModelVersionStatus is the lifecycle state of a registered model version.
type ModelVersionStatus string

const (
	ModelVersionStatusPending    ModelVersionStatus = "pending"
	ModelVersionStatusActive     ModelVersionStatus = "active"
	ModelVersionStatusDeprecated ModelVersionStatus = "deprecated"
	ModelVersionStatusFailed     ModelVersionStatus = "failed"
)

// ModelVersion is one deployable version of a model, identified by
// (ModelID, Version). LatestActive lookup orders by DeployedAt desc among
// Active rows.
type ModelVersion struct {
	ModelID     string
	Version     string
	Type        ModelType
	Endpoint    string
	Status      ModelVersionStatus
	Accuracy    *float64
	P99LatencyMs *int64
	DeployedAt  *time.Time
	CreatedAt   time.Time
}

// ModelType enumerates the kinds of model a ModelVersion may serve.
type ModelType string

const (
	ModelTypeAnomalyDetection ModelType = "anomaly_detection"
	ModelTypeClassification   ModelType = "classification"
	ModelTypeRegression       ModelType = "regression"
	ModelTypeClustering       ModelType = "clustering"
	ModelTypeEmbedding        ModelType = "embedding"
	ModelTypeCustom           ModelType = "custom"
)
