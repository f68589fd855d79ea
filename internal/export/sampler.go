// Package export samples labeled examples for training-set export and
// writes them to partitioned files, grounded on
// original_source/crates/flywheel-ml-training/src/{sampling,exporter,format}.rs.
package export

import (
	"math/rand"

	"github.com/flywheel-ml/flywheel/internal/dsl"
	"github.com/flywheel-ml/flywheel/internal/domain"
)

// Sampler subsets a stream of labeled examples per a dsl.SamplingSpec. It
// is not safe for concurrent use — one Sampler per training-export stage
// instance, matching the original's &mut self sampling API.
type Sampler struct {
	spec      dsl.SamplingSpec
	rng       *rand.Rand
	reservoir []domain.LabeledExample
	seen      int
}

// NewSampler builds a Sampler from spec. rng may be nil, in which case a
// new source with the fixed seed 1 is used; tests pass their own seeded
// rand.Rand for determinism.
func NewSampler(spec dsl.SamplingSpec, rng *rand.Rand) *Sampler {
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	s := &Sampler{spec: spec, rng: rng}
	if spec.Strategy == dsl.SamplingReservoir && spec.Size > 0 {
		s.reservoir = make([]domain.LabeledExample, 0, spec.Size)
	}
	return s
}

// Sample filters a batch of examples according to the configured
// strategy. For SamplingReservoir it feeds the batch into the running
// reservoir and returns the reservoir's current contents.
func (s *Sampler) Sample(examples []domain.LabeledExample) []domain.LabeledExample {
	if s.spec.Strategy == dsl.SamplingReservoir {
		for _, e := range examples {
			s.addToReservoir(e)
		}
		return s.reservoir
	}

	out := make([]domain.LabeledExample, 0, len(examples))
	for _, e := range examples {
		if s.shouldSample(e) {
			out = append(out, e)
		}
	}
	return out
}

// SampleOne feeds a single example through the sampler. For reservoir
// sampling this always returns (zero value, false): the example is
// absorbed into the reservoir and must be retrieved later via Drain.
func (s *Sampler) SampleOne(e domain.LabeledExample) (domain.LabeledExample, bool) {
	if s.spec.Strategy == dsl.SamplingReservoir {
		s.addToReservoir(e)
		return domain.LabeledExample{}, false
	}
	if s.shouldSample(e) {
		return e, true
	}
	return domain.LabeledExample{}, false
}

// Drain empties and returns the reservoir, resetting it for the next
// accumulation window.
func (s *Sampler) Drain() []domain.LabeledExample {
	if s.reservoir == nil {
		return nil
	}
	out := s.reservoir
	s.reservoir = make([]domain.LabeledExample, 0, s.spec.Size)
	s.seen = 0
	return out
}

func (s *Sampler) addToReservoir(e domain.LabeledExample) {
	s.seen++
	if len(s.reservoir) < s.spec.Size {
		s.reservoir = append(s.reservoir, e)
		return
	}
	j := s.rng.Intn(s.seen)
	if j < s.spec.Size {
		s.reservoir[j] = e
	}
}

func (s *Sampler) shouldSample(e domain.LabeledExample) bool {
	switch s.spec.Strategy {
	case "", dsl.SamplingAll:
		return true
	case dsl.SamplingRandom:
		return s.rng.Float64() < s.spec.Rate
	case dsl.SamplingStratified:
		if e.IsPositive() {
			return s.rng.Float64() < s.spec.PositiveRate
		}
		return s.rng.Float64() < s.spec.NegativeRate
	case dsl.SamplingHardNegative:
		if e.IsFalsePositive() {
			if confidence, ok := e.Confidence(); ok {
				return confidence > s.spec.Rate
			}
		}
		return e.IsPositive()
	default:
		return true
	}
}
