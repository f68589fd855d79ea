// Package breaker wraps sony/gobreaker with the consecutive-failure/
// consecutive-success state machine the spec requires for per-model
// protection, since gobreaker's own default ReadyToTrip policy trips on an
// error ratio rather than a consecutive count.
package breaker

import (
	"context"
	"time"

	"github.com/sony/gobreaker"

	"github.com/flywheel-ml/flywheel/internal/domain"
)

// State mirrors gobreaker.State under the control plane's own naming, so
// callers outside this package never import gobreaker directly.
type State int

const (
	StateClosed State = iota
	StateHalfOpen
	StateOpen
)

func fromGobreakerState(s gobreaker.State) State {
	switch s {
	case gobreaker.StateOpen:
		return StateOpen
	case gobreaker.StateHalfOpen:
		return StateHalfOpen
	default:
		return StateClosed
	}
}

func (s State) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "closed"
	}
}

// Metrics reports the breaker's rolling counters for the RPC health report.
type Metrics struct {
	State                State
	Requests              uint32
	TotalSuccesses        uint32
	TotalFailures         uint32
	ConsecutiveSuccesses  uint32
	ConsecutiveFailures   uint32
}

// Config configures one Breaker instance.
type Config struct {
	Name             string
	FailureThreshold uint32
	SuccessThreshold uint32
	ResetTimeout     time.Duration
	CallTimeout      time.Duration
}

// Breaker guards calls to a single model endpoint. It trips to Open after
// FailureThreshold consecutive failures, stays Open for ResetTimeout, then
// allows up to SuccessThreshold HalfOpen probe calls; SuccessThreshold
// consecutive HalfOpen successes close it again, a single HalfOpen failure
// reopens it.
type Breaker struct {
	cfg         Config
	cb          *gobreaker.CircuitBreaker
	callTimeout time.Duration
}

// New constructs a Breaker from cfg.
func New(cfg Config) *Breaker {
	return &Breaker{cfg: cfg, cb: newGobreaker(cfg), callTimeout: cfg.CallTimeout}
}

func newGobreaker(cfg Config) *gobreaker.CircuitBreaker {
	successThreshold := cfg.SuccessThreshold
	if successThreshold == 0 {
		successThreshold = 1
	}
	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: successThreshold,
		Interval:    0, // never reset Closed-state counts on a timer; only ReadyToTrip decides
		Timeout:     cfg.ResetTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		IsSuccessful: func(err error) bool {
			return err == nil
		},
	}
	return gobreaker.NewCircuitBreaker(settings)
}

// Execute runs fn through the breaker, returning ErrCircuitBreakerOpen
// without calling fn if the circuit is open.
func (b *Breaker) Execute(ctx context.Context, fn func(ctx context.Context) (interface{}, error)) (interface{}, error) {
	result, err := b.cb.Execute(func() (interface{}, error) {
		return fn(ctx)
	})
	if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
		return nil, domain.NewError("breaker.Execute", "unavailable", domain.ErrCircuitBreakerOpen).WithID(b.cb.Name())
	}
	return result, err
}

// ExecuteWithTimeout is Execute with a bounded deadline applied to fn via
// ctx, returning ErrModelTimeout if fn does not return in time.
func (b *Breaker) ExecuteWithTimeout(ctx context.Context, fn func(ctx context.Context) (interface{}, error)) (interface{}, error) {
	if b.callTimeout <= 0 {
		return b.Execute(ctx, fn)
	}
	timeoutCtx, cancel := context.WithTimeout(ctx, b.callTimeout)
	defer cancel()

	type callResult struct {
		val interface{}
		err error
	}
	done := make(chan callResult, 1)
	go func() {
		v, err := b.Execute(timeoutCtx, fn)
		done <- callResult{v, err}
	}()

	select {
	case r := <-done:
		return r.val, r.err
	case <-timeoutCtx.Done():
		return nil, domain.NewError("breaker.ExecuteWithTimeout", "timeout", domain.ErrModelTimeout).WithID(b.cb.Name())
	}
}

// CanExecute reports whether the breaker is Closed or HalfOpen, without
// executing anything. It does not check whether HalfOpen probe slots
// remain, so a HalfOpen breaker reports true even when its probe calls are
// all in flight.
func (b *Breaker) CanExecute() bool {
	return b.cb.State() != gobreaker.StateOpen
}

// GetState returns the current breaker state.
func (b *Breaker) GetState() State {
	return fromGobreakerState(b.cb.State())
}

// GetMetrics returns a snapshot of the breaker's rolling counters.
func (b *Breaker) GetMetrics() Metrics {
	counts := b.cb.Counts()
	return Metrics{
		State:                fromGobreakerState(b.cb.State()),
		Requests:             counts.Requests,
		TotalSuccesses:       counts.TotalSuccesses,
		TotalFailures:        counts.TotalFailures,
		ConsecutiveSuccesses: counts.ConsecutiveSuccesses,
		ConsecutiveFailures:  counts.ConsecutiveFailures,
	}
}

// Name returns the breaker's identifying name (the model id it guards).
func (b *Breaker) Name() string {
	return b.cb.Name()
}

// Reset forces the breaker back to Closed with zeroed counters, discarding
// in-flight state, without waiting out ResetTimeout.
func (b *Breaker) Reset() {
	b.cb = newGobreaker(b.cfg)
}
