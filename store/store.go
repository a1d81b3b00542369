// Copyright (c) 2024 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package store provides a reducer driven state container.
//
// A [Store] is the stateful variant of a [bus.Bus]: dispatching a
// message folds the current state through a pure [Reducer] and then
// notifies every subscribed listener. Listeners receive no value; they
// pull the current state via [Store.State]. A store is an explicitly
// owned object meant to be passed by reference into its consumers, not
// ambient shared state.
package store

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/z5labs/pulse"
	"github.com/z5labs/pulse/bus"
	"github.com/z5labs/pulse/internal/try"
	"github.com/z5labs/pulse/pkg/slogfield"

	"go.opentelemetry.io/otel"
)

// Reducer maps the current state and an incoming message to the next
// state. Implementations must be pure: no side effects and no
// mutation of the given state.
type Reducer[S, M any] interface {
	Reduce(S, M) S
}

// ReducerFunc is a func variant of the [Reducer] interface.
type ReducerFunc[S, M any] func(S, M) S

// Reduce implements the [Reducer] interface.
func (f ReducerFunc[S, M]) Reduce(s S, m M) S {
	return f(s, m)
}

// Listener is notified after every dispatch has produced a new state.
type Listener interface {
	StateChanged(context.Context) error
}

// ListenerFunc is a func variant of the [Listener] interface.
type ListenerFunc func(context.Context) error

// StateChanged implements the [Listener] interface.
func (f ListenerFunc) StateChanged(ctx context.Context) error {
	return f(ctx)
}

// ReduceError wraps an error recovered from a panicking [Reducer].
type ReduceError struct {
	Cause error
}

// Error implements the [builtin.error] interface.
func (e ReduceError) Error() string {
	return fmt.Sprintf("store: reducer failed: %s", e.Cause)
}

// Unwrap implements the implicit interface used by [errors.Is] and [errors.As].
func (e ReduceError) Unwrap() error {
	return e.Cause
}

// Store folds dispatched messages into a single state value.
type Store[S, M any] struct {
	log     *slog.Logger
	reducer Reducer[S, M]

	mu    sync.RWMutex
	state S

	bus *bus.Bus[struct{}]
}

// New constructs a [Store] with the given reducer and initial state.
func New[S, M any](reducer Reducer[S, M], initial S, opts ...Option) *Store[S, M] {
	o := &options{
		logHandler: defaultLogHandler(),
	}
	for _, opt := range opts {
		opt(o)
	}

	return &Store[S, M]{
		log:     slog.New(o.logHandler),
		reducer: reducer,
		state:   initial,
		bus:     bus.New[struct{}](bus.LogHandler(o.logHandler)),
	}
}

// State returns a snapshot of the current state value.
func (s *Store[S, M]) State() S {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Subscribe adds l to the store and returns a func which removes
// exactly this subscription.
func (s *Store[S, M]) Subscribe(l Listener) func() {
	return s.bus.Subscribe(pulse.ListenerFunc[struct{}](func(ctx context.Context, _ struct{}) error {
		return l.StateChanged(ctx)
	}))
}

// Dispatch folds the current state and msg through the reducer and
// then notifies every listener subscribed at the time of the call. If
// the reducer panics, the state is left unchanged, no listeners are
// notified and a [ReduceError] is returned.
func (s *Store[S, M]) Dispatch(ctx context.Context, msg M) error {
	spanCtx, span := otel.Tracer("store").Start(ctx, "Store.Dispatch")
	defer span.End()

	s.mu.Lock()
	next, err := reduce(s.reducer, s.state, msg)
	if err != nil {
		s.mu.Unlock()
		s.log.ErrorContext(spanCtx, "reducer failed", slogfield.Error(err))
		return ReduceError{Cause: err}
	}
	s.state = next
	s.mu.Unlock()

	return s.bus.Notify(spanCtx, struct{}{})
}

func reduce[S, M any](r Reducer[S, M], s S, m M) (out S, err error) {
	defer try.Recover(&err)
	return r.Reduce(s, m), nil
}
