package circuitbreaker

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
)

var (
	// MinRequests is the number of requests in a window before the breaker
	// may trip.
	MinRequests uint32 = 10
	// FailingRatio is the share of failing requests that trips the breaker.
	FailingRatio = 0.6
	// OpenTimeout is how long the breaker stays open before probing again.
	OpenTimeout = 30 * time.Second
)

// New returns a *gobreaker.CircuitBreaker named after the remote it guards.
// It trips once more than MinRequests requests were made and at least
// FailingRatio of them failed. The breaker never retries: while open, calls
// fail fast with gobreaker.ErrOpenState.
func New(name string) *gobreaker.CircuitBreaker {
	logger := log.WithField("breaker", name)
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    name,
		Timeout: OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests > MinRequests && ratio >= FailingRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			switch {
			case to == gobreaker.StateOpen:
				logger.Warn("remote seems down, stop allowing requests")
			case from == gobreaker.StateOpen && to == gobreaker.StateHalfOpen:
				logger.Info("checking remote status")
			case from == gobreaker.StateHalfOpen && to == gobreaker.StateClosed:
				logger.Info("remote seems ok, restart allowing requests")
			}
		},
	})
}

// Execute runs fn through cb. A failure caused by the caller's own ctx being
// canceled or timing out is returned to the caller but not counted against
// the remote, and a ctx that is already done never reaches the breaker.
func Execute(ctx context.Context, cb *gobreaker.CircuitBreaker, fn func() (interface{}, error)) (interface{}, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var callerErr error
	res, err := cb.Execute(func() (interface{}, error) {
		res, err := fn()
		if err != nil && ctx.Err() != nil {
			callerErr = err
			return nil, nil
		}
		return res, err
	})
	if err != nil {
		return nil, err
	}
	if callerErr != nil {
		return nil, callerErr
	}
	return res, nil
}
