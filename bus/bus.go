// Copyright (c) 2024 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package bus provides an in-process publish/subscribe registry.
//
// A [Bus] fans every published value out to all currently subscribed
// listeners. Notification operates on a snapshot of the listener set
// taken when [Bus.Notify] is called, so a listener unsubscribing during
// a notification pass never affects the completion of that pass.
package bus

import (
	"context"
	"errors"
	"log/slog"
	"reflect"
	"sync"

	"github.com/z5labs/pulse"
	"github.com/z5labs/pulse/internal/try"
	"github.com/z5labs/pulse/pkg/slogfield"

	"go.opentelemetry.io/otel"
	"golang.org/x/sync/errgroup"
)

type subscription[T any] struct {
	listener pulse.Listener[T]
}

// Bus fans published values out to subscribed listeners.
type Bus[T any] struct {
	log                    *slog.Logger
	maxConcurrentListeners int

	mu   sync.Mutex
	subs []*subscription[T]
}

// New constructs an empty [Bus].
func New[T any](opts ...Option) *Bus[T] {
	o := &options{
		logHandler:             defaultLogHandler(),
		maxConcurrentListeners: 0,
	}
	for _, opt := range opts {
		opt(o)
	}

	return &Bus[T]{
		log:                    slog.New(o.logHandler),
		maxConcurrentListeners: o.maxConcurrentListeners,
	}
}

// Subscribe adds l to the bus and returns a func which removes exactly
// this subscription. Subscribing the same listener multiple times adds
// it multiple times and each returned func removes only its own
// subscription. The returned func is a no-op after the first call.
func (b *Bus[T]) Subscribe(l pulse.Listener[T]) func() {
	sub := &subscription[T]{listener: l}

	b.mu.Lock()
	b.subs = append(b.subs, sub)
	b.mu.Unlock()

	return func() {
		b.remove(sub)
	}
}

// Unsubscribe removes the first subscription holding exactly l.
// Removing a listener which was never subscribed is a no-op.
func (b *Bus[T]) Unsubscribe(l pulse.Listener[T]) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, sub := range b.subs {
		if !sameListener[T](sub.listener, l) {
			continue
		}
		b.removeLocked(sub)
		return
	}
}

// Notify invokes every listener subscribed at the time of the call
// with v, in subscription order. An empty listener set is reported via
// the configured log handler but is not an error. A listener that
// fails or panics does not prevent the remaining listeners from being
// notified; all failures are joined into the returned error.
//
// When the bus was constructed with [MaxConcurrentListeners], listeners
// are notified concurrently, no invocation order is guaranteed and only
// the first listener failure is returned.
func (b *Bus[T]) Notify(ctx context.Context, v T) error {
	spanCtx, span := otel.Tracer("bus").Start(ctx, "Bus.Notify")
	defer span.End()

	b.mu.Lock()
	snapshot := make([]*subscription[T], len(b.subs))
	copy(snapshot, b.subs)
	b.mu.Unlock()

	if len(snapshot) == 0 {
		b.log.InfoContext(spanCtx, "notified with no listeners subscribed")
		return nil
	}

	if b.maxConcurrentListeners != 0 {
		return b.notifyConcurrent(spanCtx, snapshot, v)
	}

	errs := make([]error, 0, len(snapshot))
	for _, sub := range snapshot {
		err := listen(spanCtx, sub.listener, v)
		if err != nil {
			b.log.ErrorContext(spanCtx, "listener failed", slogfield.Error(err))
			errs = append(errs, err)
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return errors.Join(errs...)
}

func (b *Bus[T]) notifyConcurrent(ctx context.Context, snapshot []*subscription[T], v T) error {
	g := new(errgroup.Group)
	g.SetLimit(b.maxConcurrentListeners)

	for _, sub := range snapshot {
		sub := sub
		g.Go(func() error {
			err := listen(ctx, sub.listener, v)
			if err != nil {
				b.log.ErrorContext(ctx, "listener failed", slogfield.Error(err))
			}
			return err
		})
	}
	return g.Wait()
}

func (b *Bus[T]) remove(sub *subscription[T]) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.removeLocked(sub)
}

// removeLocked removes sub from the active set. b.mu must be held.
func (b *Bus[T]) removeLocked(sub *subscription[T]) {
	for i, s := range b.subs {
		if s != sub {
			continue
		}
		b.subs = append(b.subs[:i], b.subs[i+1:]...)
		return
	}
}

func listen[T any](ctx context.Context, l pulse.Listener[T], v T) (err error) {
	spanCtx, span := otel.Tracer("bus").Start(ctx, "listen")
	defer span.End()
	defer try.Recover(&err)

	return l.Listen(spanCtx, v)
}

// sameListener reports whether two listeners are the same instance.
// Func adapters compare by code pointer, everything else by interface
// equality when the dynamic type supports it.
func sameListener[T any](a, b pulse.Listener[T]) bool {
	av := reflect.ValueOf(a)
	bv := reflect.ValueOf(b)
	if !av.IsValid() || !bv.IsValid() {
		return false
	}
	if av.Kind() != bv.Kind() {
		return false
	}
	if av.Kind() == reflect.Func {
		return av.Pointer() == bv.Pointer()
	}
	if av.Type() != bv.Type() {
		return false
	}
	if !av.Type().Comparable() {
		return false
	}
	return a == b
}
