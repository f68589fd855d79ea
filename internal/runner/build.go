package runner

import (
	"context"
	"fmt"
	"strings"

	"github.com/flywheel-ml/flywheel/internal/cache"
	"github.com/flywheel-ml/flywheel/internal/config"
	"github.com/flywheel-ml/flywheel/internal/domain"
	"github.com/flywheel-ml/flywheel/internal/dsl"
	"github.com/flywheel-ml/flywheel/internal/export"
	"github.com/flywheel-ml/flywheel/internal/logging"
	"github.com/flywheel-ml/flywheel/internal/metrics"
	"github.com/flywheel-ml/flywheel/internal/persistence"
	"github.com/flywheel-ml/flywheel/internal/stages"
)

const defaultDriftCheckIntervalSec = 30

// Dependencies bundles everything a pipeline's stage chain needs that
// outlives any single runner: shared model clients, shared per-model
// breakers, persistence, the optional feedback-dedup cache, drift
// alerting, and the config-resolved defaults DSL stage configs fall back
// to when a field is left zero.
type Dependencies struct {
	Store    persistence.Store
	Models   *ModelRegistry
	Breakers *BreakerRegistry
	Cache    *cache.Client
	Notifier stages.DriftNotifier
	Drift    config.DriftConfig
	Export   config.ExportConfig
	Logger   logging.Logger
}

// namedStage pairs a built Stage with the DSL type that produced it, so
// the runner can special-case ml-inference for the predictions_made
// counter without Stage itself exposing its type.
type namedStage struct {
	stageType dsl.StageType
	stage     stages.Stage
}

// BuildStages constructs one executor per manifest stage, in manifest
// order, resolving each stage's opaque config against its typed
// dsl.*Config struct and wiring in the shared Dependencies. The
// training-export stage (if any) is also returned directly so the runner
// can Flush it on Stop.
func BuildStages(pipelineID string, manifest *dsl.PipelineManifest, deps Dependencies) ([]namedStage, *stages.TrainingExportStage, error) {
	built := make([]namedStage, 0, len(manifest.Spec.Stages))
	var trainingExport *stages.TrainingExportStage

	for _, st := range manifest.Spec.Stages {
		stage, te, err := buildOne(pipelineID, st, deps)
		if err != nil {
			return nil, nil, err
		}
		built = append(built, namedStage{stageType: st.Type, stage: stage})
		if te != nil {
			trainingExport = te
		}
	}
	return built, trainingExport, nil
}

func buildOne(pipelineID string, st dsl.Stage, deps Dependencies) (stages.Stage, *stages.TrainingExportStage, error) {
	switch st.Type {
	case dsl.StageTypeFeatureExtraction:
		var cfg dsl.FeatureExtractionConfig
		if err := dsl.UnmarshalStageConfig(st, &cfg); err != nil {
			return nil, nil, err
		}
		return stages.NewFeatureExtractionStage(st.ID, cfg), nil, nil

	case dsl.StageTypeMLInference:
		var cfg dsl.MLInferenceConfig
		if err := dsl.UnmarshalStageConfig(st, &cfg); err != nil {
			return nil, nil, err
		}
		active, err := deps.Store.GetActiveModelVersion(context.Background(), cfg.ModelID)
		if err != nil {
			return nil, nil, domain.NewError("runner.BuildStages", "model",
				fmt.Errorf("%w: no active version for model %q: %v", domain.ErrModelNotFound, cfg.ModelID, err)).WithID(st.ID)
		}
		m, err := deps.Models.Get(context.Background(), cfg.ModelEndpoint, active.Version)
		if err != nil {
			return nil, nil, err
		}
		br := deps.Breakers.Get(cfg.ModelID)
		return stages.NewMLInferenceStage(st.ID, cfg, m, br), nil, nil

	case dsl.StageTypeDriftDetection:
		var cfg dsl.DriftDetectionConfig
		if err := dsl.UnmarshalStageConfig(st, &cfg); err != nil {
			return nil, nil, err
		}
		stage, err := buildDriftStage(pipelineID, st.ID, cfg, deps)
		if err != nil {
			return nil, nil, err
		}
		return stage, nil, nil

	case dsl.StageTypeFeedbackJoin:
		var cfg dsl.FeedbackSpec
		if err := dsl.UnmarshalStageConfig(st, &cfg); err != nil {
			return nil, nil, err
		}
		return stages.NewFeedbackJoinStage(st.ID, cfg, deps.Store, deps.Store, deps.Cache), nil, nil

	case dsl.StageTypeTrainingExport:
		var cfg dsl.TrainingExport
		if err := dsl.UnmarshalStageConfig(st, &cfg); err != nil {
			return nil, nil, err
		}
		te := buildTrainingExportStage(st.ID, cfg, deps)
		return te, te, nil

	default:
		return nil, nil, domain.NewError("runner.BuildStages", "config",
			fmt.Errorf("%w: unknown stage type %q", domain.ErrConfig, st.Type)).WithID(st.ID)
	}
}

func buildDriftStage(pipelineID, stageID string, cfg dsl.DriftDetectionConfig, deps Dependencies) (*stages.DriftDetectionStage, error) {
	psi := cfg.Thresholds.PSI
	if psi <= 0 {
		psi = deps.Drift.PSIThreshold
	}
	kl := cfg.Thresholds.KLDivergence
	if kl <= 0 {
		kl = deps.Drift.KLThreshold
	}
	windowSize := cfg.WindowSize
	if windowSize <= 0 {
		windowSize = deps.Drift.WindowSize
	}
	if cfg.CheckIntervalSec == 0 {
		cfg.CheckIntervalSec = defaultDriftCheckIntervalSec
	}

	detector := metrics.NewDetector(metrics.DetectorConfig{
		PSIThreshold:      psi,
		KLThreshold:       kl,
		AccuracyThreshold: deps.Drift.AccuracyThreshold,
		WindowSize:        windowSize,
		Bins:              deps.Drift.Bins,
	})

	if strings.HasPrefix(cfg.BaselineURI, "file://") {
		reference, err := loadBaseline(cfg.BaselineURI)
		if err != nil {
			return nil, err
		}
		detector.SetReference(reference)
	} else if cfg.BaselineURI != "" {
		deps.Logger.Warn("drift baseline uses an unsupported scheme, starting with no reference", map[string]interface{}{
			"pipeline_id": pipelineID, "stage_id": stageID, "baseline_uri": cfg.BaselineURI,
		})
	}

	return stages.NewDriftDetectionStage(stageID, pipelineID, cfg, detector, deps.Store, deps.Notifier), nil
}

func buildTrainingExportStage(stageID string, cfg dsl.TrainingExport, deps Dependencies) *stages.TrainingExportStage {
	outputDir := deps.Export.OutputDir
	if path, ok := strings.CutPrefix(cfg.DestinationURI, "file://"); ok {
		outputDir = path
	}
	format := string(cfg.Format)
	if format == "" {
		format = deps.Export.DefaultFormat
	}
	partitionBy := make([]export.PartitionKey, 0, len(cfg.PartitionBy))
	for _, p := range cfg.PartitionBy {
		partitionBy = append(partitionBy, export.PartitionKey(p))
	}

	exporter := export.NewLocalExporter(outputDir, format, partitionBy)
	sampler := export.NewSampler(cfg.Sampling, nil)
	return stages.NewTrainingExportStage(stageID, cfg, sampler, exporter, 0)
}
