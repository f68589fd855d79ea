package dsl

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/flywheel-ml/flywheel/internal/domain"
)

// Parse decodes a YAML pipeline manifest and validates it, returning the
// parsed manifest and the hex-encoded sha256 of the input (used as
// domain.Pipeline.SpecHash for idempotent reapply detection).
func Parse(specYAML string) (*PipelineManifest, string, error) {
	var m PipelineManifest
	if err := yaml.Unmarshal([]byte(specYAML), &m); err != nil {
		return nil, "", domain.NewError("dsl.Parse", "config", fmt.Errorf("%w: %v", domain.ErrConfig, err))
	}
	if err := Validate(&m); err != nil {
		return nil, "", err
	}
	sum := sha256.Sum256([]byte(specYAML))
	return &m, hex.EncodeToString(sum[:]), nil
}

// UnmarshalStageConfig decodes a stage's opaque config blob into dst,
// the per-stage-type struct the runner expects (FeatureExtractionConfig,
// MLInferenceConfig, DriftDetectionConfig, FeedbackSpec, or
// TrainingExport), then struct-tag validates it.
func UnmarshalStageConfig(stage Stage, dst interface{}) error {
	if err := stage.Config.Decode(dst); err != nil {
		return domain.NewError("dsl.UnmarshalStageConfig", "config",
			fmt.Errorf("%w: stage %q: %v", domain.ErrConfig, stage.ID, err)).WithID(stage.ID)
	}
	if err := validateStruct(dst); err != nil {
		return domain.NewError("dsl.UnmarshalStageConfig", "config",
			fmt.Errorf("%w: stage %q: %v", domain.ErrConfig, stage.ID, err)).WithID(stage.ID)
	}
	return nil
}
