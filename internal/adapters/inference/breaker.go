package inference

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"

	"github.com/okian/talentscore/pkg/logger"
	"github.com/okian/talentscore/pkg/metrics"
)

const (
	defaultConsecutiveFailures = 5
	defaultOpenTimeout         = 30 * time.Second
	defaultHalfOpenRequests    = 1
)

func newBreaker(s BreakerSettings, c *Client) *gobreaker.CircuitBreaker {
	if s.ConsecutiveFailures == 0 {
		s.ConsecutiveFailures = defaultConsecutiveFailures
	}
	if s.OpenTimeout <= 0 {
		s.OpenTimeout = defaultOpenTimeout
	}
	if s.HalfOpenRequests == 0 {
		s.HalfOpenRequests = defaultHalfOpenRequests
	}
	_ = metrics.UpdateBreakerState(breakerName, metrics.BreakerClosed)

	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: s.HalfOpenRequests,
		Timeout:     s.OpenTimeout,
		IsSuccessful: countsAsSuccess,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= s.ConsecutiveFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			_ = metrics.UpdateBreakerState(name, to.String())
			if c.log != nil {
				c.log.Warn(context.Background(), "circuit breaker state changed",
					logger.String("breaker", name),
					logger.String("from", from.String()),
					logger.String("to", to.String()),
				)
			}
		},
	})
}

// countsAsSuccess keeps caller cancellations out of the failure count.
// Deadlines still count: they usually mean the upstream is slow.
func countsAsSuccess(err error) bool {
	return err == nil || errors.Is(err, context.Canceled)
}
