// Copyright (c) 2024 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package bus

import (
	"context"
	"log/slog"
	"time"

	"github.com/z5labs/pulse"
	"github.com/z5labs/pulse/pkg/noop"
	"github.com/z5labs/pulse/pkg/otelslog"
	"github.com/z5labs/pulse/pkg/slogfield"

	"github.com/sony/gobreaker"
)

type breakerOptions struct {
	name        string
	maxRequests uint32
	interval    time.Duration
	timeout     time.Duration
	tripCount   uint32
	logHandler  slog.Handler
}

// BreakerOption configures the circuit breaker constructed by [Breaker].
type BreakerOption func(*breakerOptions)

// BreakerName names the circuit breaker for logging purposes.
func BreakerName(s string) BreakerOption {
	return func(o *breakerOptions) {
		o.name = s
	}
}

// HalfOpenRequests sets how many invocations are let through while the
// circuit is half open.
func HalfOpenRequests(n uint32) BreakerOption {
	return func(o *breakerOptions) {
		o.maxRequests = n
	}
}

// CountResetInterval sets the cyclic period over which the circuit
// resets its failure counts while closed.
func CountResetInterval(d time.Duration) BreakerOption {
	return func(o *breakerOptions) {
		o.interval = d
	}
}

// OpenStateTimeout sets how long the circuit stays open before
// transitioning to half open.
func OpenStateTimeout(d time.Duration) BreakerOption {
	return func(o *breakerOptions) {
		o.timeout = d
	}
}

// TripAfter sets how many consecutive listener failures open the circuit.
func TripAfter(n uint32) BreakerOption {
	return func(o *breakerOptions) {
		o.tripCount = n
	}
}

// BreakerLogHandler sets the slog.Handler used for reporting circuit
// state changes.
func BreakerLogHandler(h slog.Handler) BreakerOption {
	return func(o *breakerOptions) {
		o.logHandler = otelslog.NewHandler(h)
	}
}

// Breaker wraps l with a circuit breaker so a repeatedly failing
// listener is skipped instead of being invoked on every notification.
// While the circuit is open the wrapped listener fails fast with
// [gobreaker.ErrOpenState].
func Breaker[T any](l pulse.Listener[T], opts ...BreakerOption) pulse.Listener[T] {
	o := &breakerOptions{
		tripCount:  5,
		logHandler: noop.LogHandler{},
	}
	for _, opt := range opts {
		opt(o)
	}

	logger := slog.New(o.logHandler)
	if o.name != "" {
		logger = logger.With(slogfield.String("listener", o.name))
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        o.name,
		MaxRequests: o.maxRequests,
		Interval:    o.interval,
		Timeout:     o.timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= o.tripCount
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			switch to {
			case gobreaker.StateOpen:
				logger.Error("circuit has been opened")
			case gobreaker.StateHalfOpen:
				logger.Warn(
					"circuit is now half open and letting some notifications through",
					slogfield.Uint32("max_notifications_allowed_through", o.maxRequests),
				)
			case gobreaker.StateClosed:
				logger.Info("circuit has been closed")
			}
		},
	})

	return pulse.ListenerFunc[T](func(ctx context.Context, v T) error {
		_, err := cb.Execute(func() (any, error) {
			return nil, l.Listen(ctx, v)
		})
		return err
	})
}
