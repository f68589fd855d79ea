// Package dsl parses and validates the YAML pipeline manifest that
// declares a flywheel pipeline's stages, feedback join, and training
// export, grounded on the original Rust manifest shape
// (flywheel-ml-dsl/src/types.rs) expressed the way the teacher's
// WorkflowDefinition/WorkflowStepDefinition YAML-tagged structs are.
package dsl

import "gopkg.in/yaml.v3"

// PipelineManifest is the top-level YAML document for a pipeline.
type PipelineManifest struct {
	APIVersion string       `yaml:"apiVersion" json:"apiVersion" validate:"required"`
	Kind       string       `yaml:"kind" json:"kind" validate:"required,eq=FlywheelPipeline"`
	Metadata   ObjectMeta   `yaml:"metadata" json:"metadata" validate:"required"`
	Spec       PipelineSpec `yaml:"spec" json:"spec" validate:"required"`
}

// ObjectMeta names and labels the pipeline, mirroring Kubernetes-style
// manifest metadata.
type ObjectMeta struct {
	Name        string            `yaml:"name" json:"name" validate:"required"`
	Namespace   string            `yaml:"namespace,omitempty" json:"namespace,omitempty"`
	Labels      map[string]string `yaml:"labels,omitempty" json:"labels,omitempty"`
	Annotations map[string]string `yaml:"annotations,omitempty" json:"annotations,omitempty"`
}

// PipelineSpec is the pipeline body: an ordered stage list plus optional
// feedback join and training export configuration.
type PipelineSpec struct {
	Source         string           `yaml:"source" json:"source" validate:"required"`
	Stages         []Stage          `yaml:"stages" json:"stages" validate:"required,min=1,dive"`
	Feedback       *FeedbackSpec    `yaml:"feedback,omitempty" json:"feedback,omitempty"`
	TrainingExport *TrainingExport  `yaml:"trainingExport,omitempty" json:"trainingExport,omitempty"`
	Sinks          []SinkSpec       `yaml:"sinks" json:"sinks" validate:"required,min=1,dive"`
	Enabled        *bool            `yaml:"enabled,omitempty" json:"enabled,omitempty"`
}

// IsEnabled reports the spec's enabled flag, defaulting to true when unset.
func (s PipelineSpec) IsEnabled() bool {
	return s.Enabled == nil || *s.Enabled
}

// StageType enumerates the five executors the runner knows how to build.
type StageType string

const (
	StageTypeFeatureExtraction StageType = "feature-extraction"
	StageTypeMLInference       StageType = "ml-inference"
	StageTypeDriftDetection    StageType = "drift-detection"
	StageTypeFeedbackJoin      StageType = "feedback-join"
	StageTypeTrainingExport    StageType = "training-export"
)

// Stage is one pipeline step: an id, a type selecting the executor, and an
// opaque per-type config blob validated separately by UnmarshalStageConfig.
type Stage struct {
	ID     string    `yaml:"id" json:"id" validate:"required"`
	Type   StageType `yaml:"type" json:"type" validate:"required,oneof=feature-extraction ml-inference drift-detection feedback-join training-export"`
	Config yaml.Node `yaml:"config" json:"-"`
}

// FeatureTransform is a named transform applied to one extracted feature.
type FeatureTransform struct {
	Kind       string    `yaml:"kind" json:"kind" validate:"required,oneof=normalize log1p clip bucketize one_hot standard_scale min_max_scale"`
	Min        float64   `yaml:"min,omitempty" json:"min,omitempty"`
	Max        float64   `yaml:"max,omitempty" json:"max,omitempty"`
	Mean       float64   `yaml:"mean,omitempty" json:"mean,omitempty"`
	Std        float64   `yaml:"std,omitempty" json:"std,omitempty"`
	Boundaries []float64 `yaml:"boundaries,omitempty" json:"boundaries,omitempty"`
	Categories []string  `yaml:"categories,omitempty" json:"categories,omitempty"`
}

// FeatureDef extracts one named feature from a source field, optionally
// transformed.
type FeatureDef struct {
	Name        string            `yaml:"name" json:"name" validate:"required"`
	SourceField string            `yaml:"sourceField" json:"sourceField" validate:"required"`
	Transform   *FeatureTransform `yaml:"transform,omitempty" json:"transform,omitempty"`
}

// FeatureExtractionConfig is the Stage.Config for a feature-extraction
// stage.
type FeatureExtractionConfig struct {
	Features   []FeatureDef `yaml:"features" json:"features" validate:"required,min=1,dive"`
	IncludeRaw bool         `yaml:"includeRaw" json:"includeRaw"`
}

// FallbackStrategy decides what ml-inference does when the model call
// fails or the breaker is open.
type FallbackStrategy string

const (
	FallbackPassthrough FallbackStrategy = "passthrough"
	FallbackReturnNull  FallbackStrategy = "return_null"
	FallbackError       FallbackStrategy = "error"
)

// MLInferenceConfig is the Stage.Config for an ml-inference stage.
type MLInferenceConfig struct {
	ModelEndpoint  string           `yaml:"modelEndpoint" json:"modelEndpoint" validate:"required"`
	ModelID        string           `yaml:"modelId" json:"modelId" validate:"required"`
	InputFeatures  []string         `yaml:"inputFeatures" json:"inputFeatures" validate:"required,min=1"`
	OutputField    string           `yaml:"outputField" json:"outputField" validate:"required"`
	TimeoutMs      uint64           `yaml:"timeoutMs" json:"timeoutMs" validate:"omitempty,min=1"`
	BatchSize      int              `yaml:"batchSize" json:"batchSize" validate:"omitempty,min=1"`
	Fallback       FallbackStrategy `yaml:"fallback,omitempty" json:"fallback,omitempty" validate:"omitempty,oneof=passthrough return_null error"`
}

// DriftMode decides whether drift detection only observes (shadow) or
// rejects records with an error once drift is detected (blocking).
type DriftMode string

const (
	DriftModeShadow   DriftMode = "shadow"
	DriftModeBlocking DriftMode = "blocking"
)

// DriftThresholds configures the statistical side of drift detection.
type DriftThresholds struct {
	PSI          float64 `yaml:"psi" json:"psi" validate:"omitempty,gt=0"`
	KLDivergence float64 `yaml:"klDivergence" json:"klDivergence" validate:"omitempty,gt=0"`
}

// DriftAction names what happens when a drift event opens.
type DriftAction struct {
	Action   string `yaml:"action" json:"action" validate:"required,oneof=alert retrain fallback"`
	ToModel  string `yaml:"toModel,omitempty" json:"toModel,omitempty"`
}

// DriftDetectionConfig is the Stage.Config for a drift-detection stage.
type DriftDetectionConfig struct {
	Mode             DriftMode       `yaml:"mode,omitempty" json:"mode,omitempty" validate:"omitempty,oneof=shadow blocking"`
	BaselineURI      string          `yaml:"baselineUri" json:"baselineUri" validate:"required"`
	WindowSize       int             `yaml:"windowSize,omitempty" json:"windowSize,omitempty" validate:"omitempty,min=1"`
	CheckIntervalSec uint64          `yaml:"checkIntervalSecs,omitempty" json:"checkIntervalSecs,omitempty"`
	Thresholds       DriftThresholds `yaml:"thresholds" json:"thresholds"`
	OnDrift          DriftAction     `yaml:"onDrift,omitempty" json:"onDrift,omitempty"`
}

// ImplicitLabelSpec maps an observed event to an implied ground-truth
// label with a default confidence.
type ImplicitLabelSpec struct {
	Event      string  `yaml:"event" json:"event" validate:"required"`
	Label      string  `yaml:"label" json:"label" validate:"required"`
	Confidence float64 `yaml:"confidence,omitempty" json:"confidence,omitempty" validate:"omitempty,gt=0,lte=1"`
}

// FeedbackSpec is the Stage.Config for a feedback-join stage.
type FeedbackSpec struct {
	Source        string              `yaml:"source" json:"source" validate:"required"`
	JoinKey       string              `yaml:"joinKey" json:"joinKey" validate:"required"`
	MaxDelayHours uint64              `yaml:"maxDelayHours,omitempty" json:"maxDelayHours,omitempty"`
	Labels        []ImplicitLabelSpec `yaml:"labels,omitempty" json:"labels,omitempty" validate:"dive"`
}

// ExportFormat selects the training-export stage's file format.
type ExportFormat string

const (
	ExportFormatJSONLines ExportFormat = "jsonl"
	ExportFormatCSV       ExportFormat = "csv"
	ExportFormatParquet   ExportFormat = "parquet"
)

// SamplingStrategy selects how the export stage subsets labeled examples.
type SamplingStrategy string

const (
	SamplingAll          SamplingStrategy = "all"
	SamplingRandom       SamplingStrategy = "random"
	SamplingStratified   SamplingStrategy = "stratified"
	SamplingHardNegative SamplingStrategy = "hard_negative"
	SamplingReservoir    SamplingStrategy = "reservoir"
)

// SamplingSpec parameterizes the chosen SamplingStrategy.
type SamplingSpec struct {
	Strategy     SamplingStrategy `yaml:"strategy,omitempty" json:"strategy,omitempty" validate:"omitempty,oneof=all random stratified hard_negative reservoir"`
	Rate         float64          `yaml:"rate,omitempty" json:"rate,omitempty" validate:"omitempty,gt=0,lte=1"`
	PositiveRate float64          `yaml:"positiveRate,omitempty" json:"positiveRate,omitempty"`
	NegativeRate float64          `yaml:"negativeRate,omitempty" json:"negativeRate,omitempty"`
	Size         int              `yaml:"size,omitempty" json:"size,omitempty"`
	ScoreField   string           `yaml:"scoreField,omitempty" json:"scoreField,omitempty"`
}

// TrainingExport is the Stage.Config for a training-export stage.
type TrainingExport struct {
	DestinationURI string       `yaml:"destinationUri" json:"destinationUri" validate:"required"`
	Format         ExportFormat `yaml:"format,omitempty" json:"format,omitempty" validate:"omitempty,oneof=jsonl csv parquet"`
	PartitionBy    []string     `yaml:"partitionBy,omitempty" json:"partitionBy,omitempty"`
	Sampling       SamplingSpec `yaml:"sampling,omitempty" json:"sampling,omitempty"`
}

// SinkSpec names a downstream consumer of a stage's output, optionally
// gated by a condition expression.
type SinkSpec struct {
	Name      string `yaml:"name" json:"name" validate:"required"`
	Condition string `yaml:"condition,omitempty" json:"condition,omitempty"`
	All       bool   `yaml:"all,omitempty" json:"all,omitempty"`
}
