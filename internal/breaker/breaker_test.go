package breaker_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flywheel-ml/flywheel/internal/breaker"
	"github.com/flywheel-ml/flywheel/internal/domain"
)

func TestBreakerTripsAfterConsecutiveFailures(t *testing.T) {
	b := breaker.New(breaker.Config{
		Name:             "model-a",
		FailureThreshold: 3,
		SuccessThreshold: 2,
		ResetTimeout:     50 * time.Millisecond,
	})

	failing := func(ctx context.Context) (interface{}, error) { return nil, errors.New("boom") }

	for i := 0; i < 3; i++ {
		_, err := b.Execute(context.Background(), failing)
		require.Error(t, err)
	}

	assert.Equal(t, breaker.StateOpen, b.GetState())

	_, err := b.Execute(context.Background(), func(ctx context.Context) (interface{}, error) { return "ok", nil })
	require.Error(t, err)
	assert.True(t, domain.IsUnavailable(err))
}

func TestBreakerClosesAfterConsecutiveSuccessesInHalfOpen(t *testing.T) {
	b := breaker.New(breaker.Config{
		Name:             "model-b",
		FailureThreshold: 1,
		SuccessThreshold: 2,
		ResetTimeout:     10 * time.Millisecond,
	})

	_, err := b.Execute(context.Background(), func(ctx context.Context) (interface{}, error) { return nil, errors.New("boom") })
	require.Error(t, err)
	assert.Equal(t, breaker.StateOpen, b.GetState())

	time.Sleep(20 * time.Millisecond)

	ok := func(ctx context.Context) (interface{}, error) { return "ok", nil }
	_, err = b.Execute(context.Background(), ok)
	require.NoError(t, err)
	_, err = b.Execute(context.Background(), ok)
	require.NoError(t, err)

	assert.Equal(t, breaker.StateClosed, b.GetState())
}

func TestBreakerReset(t *testing.T) {
	b := breaker.New(breaker.Config{Name: "model-c", FailureThreshold: 1, SuccessThreshold: 1, ResetTimeout: time.Minute})
	_, _ = b.Execute(context.Background(), func(ctx context.Context) (interface{}, error) { return nil, errors.New("boom") })
	require.Equal(t, breaker.StateOpen, b.GetState())

	b.Reset()
	assert.Equal(t, breaker.StateClosed, b.GetState())
}
