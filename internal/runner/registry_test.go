package runner

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flywheel-ml/flywheel/internal/breaker"
)

func TestModelRegistry_GetCachesByEndpoint(t *testing.T) {
	reg := NewModelRegistry(5 * time.Second)

	m1, err := reg.Get(context.Background(), "https://models.example.com/fraud", "v1")
	require.NoError(t, err)
	m2, err := reg.Get(context.Background(), "https://models.example.com/fraud", "v1")
	require.NoError(t, err)

	assert.Same(t, m1, m2, "same endpoint must return the cached client")
}

func TestModelRegistry_DistinctEndpointsGetDistinctClients(t *testing.T) {
	reg := NewModelRegistry(5 * time.Second)

	m1, err := reg.Get(context.Background(), "https://models.example.com/a", "v1")
	require.NoError(t, err)
	m2, err := reg.Get(context.Background(), "https://models.example.com/b", "v1")
	require.NoError(t, err)

	assert.NotSame(t, m1, m2)
}

func TestBreakerRegistry_GetSharesBreakerPerModelID(t *testing.T) {
	reg := NewBreakerRegistry(breaker.Config{FailureThreshold: 3, SuccessThreshold: 2, ResetTimeout: time.Second, CallTimeout: time.Second})

	b1 := reg.Get("fraud-detector")
	b2 := reg.Get("fraud-detector")
	b3 := reg.Get("churn-predictor")

	assert.Same(t, b1, b2, "same model id must share one breaker")
	assert.NotSame(t, b1, b3, "distinct model ids must not share a breaker")
}
