package kafka

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"
)

var ErrBrokerUnavailable = errors.New("broker is unavailable")

const (
	breakerConsecutiveFailures = 5
	breakerOpenTimeout         = 10 * time.Second
)

// ProducerBreakerOpt makes the producer fail fast after
// a run of failed produce calls, until the broker answers again.
func ProducerBreakerOpt(name string) ProducerOpt {
	return func(opts *producerOpts) error {
		opts.breaker = newBreaker(name)
		return nil
	}
}

func newBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     breakerOpenTimeout,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= breakerConsecutiveFailures
		},
		// canceled requests say nothing about the broker
		IsSuccessful: func(err error) bool {
			return err == nil ||
				errors.Is(err, context.Canceled) ||
				errors.Is(err, context.DeadlineExceeded)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn(
				"circuit breaker state changed",
				"name", name, "from", from.String(), "to", to.String(),
			)
		},
	})
}

func breakerErr(err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) ||
		errors.Is(err, gobreaker.ErrTooManyRequests) {
		return errors.Join(ErrBrokerUnavailable, err)
	}
	return err
}
