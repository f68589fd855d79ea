package runner

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/flywheel-ml/flywheel/internal/breaker"
	"github.com/flywheel-ml/flywheel/internal/domain"
	"github.com/flywheel-ml/flywheel/internal/model"
)

// ModelRegistry caches one domain.Model client per endpoint across every
// pipeline runner that calls it, so pipelines sharing a model endpoint
// share its connection rather than dialing fresh each cycle. Endpoints
// prefixed "bedrock://" build a BedrockModel (the prefix's remainder is
// the Bedrock model id); anything else is treated as an HTTP(S) URL.
type ModelRegistry struct {
	mu      sync.Mutex
	models  map[string]domain.Model
	timeout time.Duration
}

// NewModelRegistry builds an empty registry. callTimeout bounds every
// HTTPModel's round trip; it has no effect on BedrockModel, which is
// bounded by the caller's context instead.
func NewModelRegistry(callTimeout time.Duration) *ModelRegistry {
	return &ModelRegistry{models: make(map[string]domain.Model), timeout: callTimeout}
}

// Get returns the cached client for endpoint, constructing one on first
// use.
func (r *ModelRegistry) Get(ctx context.Context, endpoint, version string) (domain.Model, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if m, ok := r.models[endpoint]; ok {
		return m, nil
	}

	var m domain.Model
	if rest, ok := strings.CutPrefix(endpoint, "bedrock://"); ok {
		bm, err := model.NewBedrockModel(ctx, rest, version)
		if err != nil {
			return nil, err
		}
		m = bm
	} else {
		m = model.NewHTTPModel(endpoint, version, r.timeout)
	}

	r.models[endpoint] = m
	return m, nil
}

// BreakerRegistry caches one circuit breaker per model id, shared across
// every runner calling that model (spec §5: "the circuit breaker is
// per-model and shared across runners calling that model").
type BreakerRegistry struct {
	mu       sync.Mutex
	breakers map[string]*breaker.Breaker
	cfg      breaker.Config
}

// NewBreakerRegistry builds a registry whose breakers all share cfg's
// thresholds, varying only by Name.
func NewBreakerRegistry(cfg breaker.Config) *BreakerRegistry {
	return &BreakerRegistry{breakers: make(map[string]*breaker.Breaker), cfg: cfg}
}

// Get returns the shared breaker for modelID, constructing one on first
// use.
func (r *BreakerRegistry) Get(modelID string) *breaker.Breaker {
	r.mu.Lock()
	defer r.mu.Unlock()

	if b, ok := r.breakers[modelID]; ok {
		return b
	}
	cfg := r.cfg
	cfg.Name = fmt.Sprintf("model/%s", modelID)
	b := breaker.New(cfg)
	r.breakers[modelID] = b
	return b
}
