package dsl

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/flywheel-ml/flywheel/internal/domain"
)

var validate = validator.New()

func validateStruct(v interface{}) error {
	return validate.Struct(v)
}

// Validate checks a parsed manifest against the struct-tag rules plus the
// cross-field rules the tags can't express: unique non-empty stage ids,
// and that each stage's config decodes into its type's struct.
func Validate(m *PipelineManifest) error {
	if err := validate.Struct(m); err != nil {
		return domain.NewError("dsl.Validate", "config", fmt.Errorf("%w: %v", domain.ErrConfig, err))
	}

	seen := make(map[string]bool, len(m.Spec.Stages))
	for _, stage := range m.Spec.Stages {
		if stage.ID == "" {
			return domain.NewError("dsl.Validate", "config",
				fmt.Errorf("%w: stage of type %q has no id", domain.ErrConfig, stage.Type))
		}
		if seen[stage.ID] {
			return domain.NewError("dsl.Validate", "config",
				fmt.Errorf("%w: duplicate stage id %q", domain.ErrConfig, stage.ID)).WithID(stage.ID)
		}
		seen[stage.ID] = true

		if err := validateStageConfig(stage); err != nil {
			return err
		}
	}
	return nil
}

// validateStageConfig decodes each stage's config into its expected type
// purely to surface shape errors at manifest-apply time rather than at
// first pipeline run, mirroring validate_stage's per-type decode check.
func validateStageConfig(stage Stage) error {
	switch stage.Type {
	case StageTypeFeatureExtraction:
		var cfg FeatureExtractionConfig
		return UnmarshalStageConfig(stage, &cfg)
	case StageTypeMLInference:
		var cfg MLInferenceConfig
		return UnmarshalStageConfig(stage, &cfg)
	case StageTypeDriftDetection:
		var cfg DriftDetectionConfig
		return UnmarshalStageConfig(stage, &cfg)
	case StageTypeFeedbackJoin:
		var cfg FeedbackSpec
		return UnmarshalStageConfig(stage, &cfg)
	case StageTypeTrainingExport:
		var cfg TrainingExport
		return UnmarshalStageConfig(stage, &cfg)
	default:
		return domain.NewError("dsl.validateStageConfig", "config",
			fmt.Errorf("%w: unknown stage type %q", domain.ErrConfig, stage.Type)).WithID(stage.ID)
	}
}
