package export_test

import (
	"encoding/json"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/flywheel-ml/flywheel/internal/domain"
	"github.com/flywheel-ml/flywheel/internal/dsl"
	"github.com/flywheel-ml/flywheel/internal/export"
)

func makeExample(positive bool) domain.LabeledExample {
	return domain.LabeledExample{
		ExampleID:           "ex-1",
		PredictionID:        "pred-1",
		ModelID:             "model-1",
		ModelVersion:        "v1",
		FeaturesJSON:        json.RawMessage(`{"cpu":0.85}`),
		PredictionJSON:      json.RawMessage(`{"score":0.9,"confidence":0.95}`),
		GroundTruth:         domain.GroundTruthBinary(positive),
		PredictionTimestamp: time.Unix(0, 0),
		FeedbackTimestamp:   time.Unix(0, 0),
		DelayMs:             1000,
		FeedbackConfidence:  0.95,
	}
}

func TestSamplerAllKeepsEverything(t *testing.T) {
	s := export.NewSampler(dsl.SamplingSpec{Strategy: dsl.SamplingAll}, nil)
	out := s.Sample([]domain.LabeledExample{makeExample(true), makeExample(false)})
	assert.Len(t, out, 2)
}

func TestSamplerReservoirCapsAtSize(t *testing.T) {
	s := export.NewSampler(dsl.SamplingSpec{Strategy: dsl.SamplingReservoir, Size: 5}, rand.New(rand.NewSource(7)))
	for i := 0; i < 100; i++ {
		s.SampleOne(makeExample(true))
	}
	out := s.Drain()
	assert.Len(t, out, 5)
}

func TestSamplerRandomApproximatesRate(t *testing.T) {
	s := export.NewSampler(dsl.SamplingSpec{Strategy: dsl.SamplingRandom, Rate: 0.5}, rand.New(rand.NewSource(42)))
	examples := make([]domain.LabeledExample, 1000)
	for i := range examples {
		examples[i] = makeExample(true)
	}
	out := s.Sample(examples)
	assert.Greater(t, len(out), 300)
	assert.Less(t, len(out), 700)
}
