package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// FeedbackSource identifies how a piece of feedback was produced. Base
// confidence per source follows the original's FeedbackSource::confidence:
// Explicit=1.0, Implicit=0.7, Manual=0.95, Automated carries its own value.
type FeedbackSource string

const (
	FeedbackSourceExplicit  FeedbackSource = "explicit"
	FeedbackSourceImplicit  FeedbackSource = "implicit"
	FeedbackSourceAutomated FeedbackSource = "automated"
	FeedbackSourceManual    FeedbackSource = "manual"
)

// DefaultConfidence returns the base confidence associated with a source,
// for sources whose confidence isn't explicitly supplied by the caller.
func (s FeedbackSource) DefaultConfidence() float64 {
	switch s {
	case FeedbackSourceExplicit:
		return 1.0
	case FeedbackSourceImplicit:
		return 0.7
	case FeedbackSourceManual:
		return 0.95
	default:
		return 0 // Automated must supply its own confidence
	}
}

// GroundTruth is a tagged union of the label shapes feedback may carry.
type GroundTruth interface {
	groundTruthType() string
}

const (
	GroundTruthTypeLabel      = "label"
	GroundTruthTypeValue      = "value"
	GroundTruthTypeBinary     = "binary"
	GroundTruthTypeRanking    = "ranking"
	GroundTruthTypeMultiLabel = "multi_label"
	GroundTruthTypeCustom     = "custom"
)

type GroundTruthLabel string

func (GroundTruthLabel) groundTruthType() string { return GroundTruthTypeLabel }

type GroundTruthValue float64

func (GroundTruthValue) groundTruthType() string { return GroundTruthTypeValue }

type GroundTruthBinary bool

func (GroundTruthBinary) groundTruthType() string { return GroundTruthTypeBinary }

type GroundTruthRanking []string

func (GroundTruthRanking) groundTruthType() string { return GroundTruthTypeRanking }

type GroundTruthMultiLabel []string

func (GroundTruthMultiLabel) groundTruthType() string { return GroundTruthTypeMultiLabel }

type GroundTruthCustom json.RawMessage

func (GroundTruthCustom) groundTruthType() string { return GroundTruthTypeCustom }

// positiveLabels are the case-insensitive label spellings treated as a
// positive/anomaly signal, per spec §4.3's correctness rule and the
// original's GroundTruth::as_binary / LabeledExample::is_positive.
var positiveLabels = map[string]bool{
	"anomaly": true, "true": true, "yes": true, "positive": true, "1": true,
}

// AsBinary coerces a GroundTruth to a bool where meaningful: Binary directly,
// or Label matched against the positive-label vocabulary.
func AsBinary(gt GroundTruth) (bool, bool) {
	switch v := gt.(type) {
	case GroundTruthBinary:
		return bool(v), true
	case GroundTruthLabel:
		return positiveLabels[strings.ToLower(string(v))], true
	default:
		return false, false
	}
}

// groundTruthEnvelope is the tagged-union wire shape for GroundTruth.
type groundTruthEnvelope struct {
	Type  string          `json:"type"`
	Label string          `json:"label,omitempty"`
	Value float64         `json:"value,omitempty"`
	Bool  bool            `json:"bool,omitempty"`
	List  []string        `json:"list,omitempty"`
	Raw   json.RawMessage `json:"raw,omitempty"`
}

// MarshalGroundTruth renders a GroundTruth as its tagged envelope; this is
// the canonical string form persisted on the Feedback row.
func MarshalGroundTruth(gt GroundTruth) ([]byte, error) {
	env := groundTruthEnvelope{Type: gt.groundTruthType()}
	switch v := gt.(type) {
	case GroundTruthLabel:
		env.Label = string(v)
	case GroundTruthValue:
		env.Value = float64(v)
	case GroundTruthBinary:
		env.Bool = bool(v)
	case GroundTruthRanking:
		env.List = v
	case GroundTruthMultiLabel:
		env.List = v
	case GroundTruthCustom:
		env.Raw = json.RawMessage(v)
	default:
		return nil, fmt.Errorf("%w: unknown ground truth type %T", ErrSerialization, gt)
	}
	return json.Marshal(env)
}

// UnmarshalGroundTruth parses the canonical string form back into a typed
// GroundTruth.
func UnmarshalGroundTruth(data []byte) (GroundTruth, error) {
	var env groundTruthEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSerialization, err)
	}
	switch env.Type {
	case GroundTruthTypeLabel:
		return GroundTruthLabel(env.Label), nil
	case GroundTruthTypeValue:
		return GroundTruthValue(env.Value), nil
	case GroundTruthTypeBinary:
		return GroundTruthBinary(env.Bool), nil
	case GroundTruthTypeRanking:
		return GroundTruthRanking(env.List), nil
	case GroundTruthTypeMultiLabel:
		return GroundTruthMultiLabel(env.List), nil
	case GroundTruthTypeCustom:
		return GroundTruthCustom(env.Raw), nil
	default:
		return nil, fmt.Errorf("%w: unknown ground truth type %q", ErrFeedbackInvalidGroundTruth, env.Type)
	}
}

// Feedback is a late-arriving ground-truth observation for a prior
// Prediction.
type Feedback struct {
	ID           string
	PredictionID string
	GroundTruth  GroundTruth
	Source       FeedbackSource
	Confidence   float64
	ReceivedAt   time.Time
	Exported     bool
}
