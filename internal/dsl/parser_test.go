package dsl_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flywheel-ml/flywheel/internal/dsl"
)

const validManifest = `
apiVersion: flywheel-ml.io/v1
kind: FlywheelPipeline
metadata:
  name: fraud-scoring
  namespace: payments
spec:
  source: events.fraud.scored
  stages:
    - id: extract
      type: feature-extraction
      config:
        features:
          - name: amount_norm
            sourceField: amount
            transform:
              kind: normalize
              min: 0
              max: 10000
    - id: infer
      type: ml-inference
      config:
        modelEndpoint: http://models.internal/fraud/v3
        modelId: fraud-v3
        inputFeatures: [amount_norm]
        outputField: fraud_score
  sinks:
    - name: alerts-topic
`

func TestParseValidManifest(t *testing.T) {
	m, hash, err := dsl.Parse(validManifest)
	require.NoError(t, err)
	assert.NotEmpty(t, hash)
	assert.Equal(t, "fraud-scoring", m.Metadata.Name)
	assert.Len(t, m.Spec.Stages, 2)
	assert.True(t, m.Spec.IsEnabled())

	var cfg dsl.MLInferenceConfig
	require.NoError(t, dsl.UnmarshalStageConfig(m.Spec.Stages[1], &cfg))
	assert.Equal(t, "fraud-v3", cfg.ModelID)
}

func TestParseRejectsDuplicateStageIDs(t *testing.T) {
	bad := `
apiVersion: flywheel-ml.io/v1
kind: FlywheelPipeline
metadata:
  name: dup
spec:
  source: x
  stages:
    - id: a
      type: feature-extraction
      config: {features: [{name: f, sourceField: f}]}
    - id: a
      type: feature-extraction
      config: {features: [{name: g, sourceField: g}]}
  sinks:
    - name: out
`
	_, _, err := dsl.Parse(bad)
	require.Error(t, err)
}

func TestParseRejectsNoSinks(t *testing.T) {
	bad := `
apiVersion: flywheel-ml.io/v1
kind: FlywheelPipeline
metadata:
  name: no-sinks
spec:
  source: x
  stages:
    - id: a
      type: feature-extraction
      config: {features: [{name: f, sourceField: f}]}
  sinks: []
`
	_, _, err := dsl.Parse(bad)
	require.Error(t, err)
}
