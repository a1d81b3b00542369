// Copyright (c) 2024 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package deferred provides a container for a single eventually produced value.
//
// A [Deferred] is constructed with a [Producer] which is invoked
// immediately and handed two completion hooks. The producer may settle
// the container synchronously or from another goroutine; whichever of
// the two hooks is invoked first wins and every later completion is
// ignored. Success values are folded, in registration order, through a
// chain of transform handlers before being stored. A handler that fails
// or panics never propagates back to the producer; its error is routed
// to the registered error handler instead.
package deferred

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/z5labs/pulse/internal/try"
	"github.com/z5labs/pulse/pkg/slogfield"
)

// Producer produces a single value and reports it through exactly one
// of the two completion hooks. A producer which invokes neither hook
// leaves the container pending forever, see [Timeout].
type Producer[T any] interface {
	Produce(resolve func(T), reject func(error))
}

// ProducerFunc is a func variant of the [Producer] interface.
type ProducerFunc[T any] func(func(T), func(error))

// Produce implements the [Producer] interface.
func (f ProducerFunc[T]) Produce(resolve func(T), reject func(error)) {
	f(resolve, reject)
}

// HandlerError wraps an error raised by a transform handler while a
// success value was being folded through the handler chain.
type HandlerError struct {
	Cause error
}

// Error implements the [builtin.error] interface.
func (e HandlerError) Error() string {
	return fmt.Sprintf("deferred: handler failed: %s", e.Cause)
}

// Unwrap implements the implicit interface used by [errors.Is] and [errors.As].
func (e HandlerError) Unwrap() error {
	return e.Cause
}

// TimeoutError signals that a producer settled neither hook within
// the duration configured via [Timeout].
type TimeoutError struct {
	After time.Duration
}

// Error implements the [builtin.error] interface.
func (e TimeoutError) Error() string {
	return fmt.Sprintf("deferred: no completion after %s", e.After)
}

type settleState int

const (
	pending settleState = iota
	resolved
	rejected
)

// Deferred holds a single eventually produced value of type T.
type Deferred[T any] struct {
	log *slog.Logger

	mu           sync.Mutex
	state        settleState
	value        T
	err          error
	errDelivered bool
	handlers     []func(T) (T, error)
	errHandler   func(error)
	timer        *time.Timer
	done         chan struct{}
}

// New constructs a pending [Deferred] and immediately invokes the
// producer with the container's two completion hooks. The hooks remain
// valid for the lifetime of the container, so the producer is free to
// hold on to them and settle from a timer or another goroutine.
func New[T any](producer Producer[T], opts ...Option) *Deferred[T] {
	o := &options{
		logHandler: defaultLogHandler(),
	}
	for _, opt := range opts {
		opt(o)
	}

	d := &Deferred[T]{
		log:  slog.New(o.logHandler),
		done: make(chan struct{}),
	}
	if o.timeout > 0 {
		timeout := o.timeout
		d.timer = time.AfterFunc(timeout, func() {
			d.Reject(TimeoutError{After: timeout})
		})
	}

	producer.Produce(d.Resolve, d.Reject)
	return d
}

// Then appends fn to the handler chain and returns the container for
// chaining. If the container already holds a success value, fn is
// applied to it immediately. Handlers must be pure transforms; they
// must not call back into the container.
func (d *Deferred[T]) Then(fn func(T) (T, error)) *Deferred[T] {
	d.mu.Lock()
	defer d.mu.Unlock()

	switch d.state {
	case pending:
		d.handlers = append(d.handlers, fn)
	case resolved:
		v, err := applyHandler(fn, d.value)
		if err != nil {
			d.log.Debug("handler failed after container was already resolved", slogfield.Error(err))
			d.settleErr(HandlerError{Cause: err})
			return d
		}
		d.value = v
	case rejected:
	}
	return d
}

// Catch replaces the error handler and returns the container for
// chaining. At most one error handler is active at a time. If the
// container was already rejected and the error was never delivered,
// fn receives it immediately.
func (d *Deferred[T]) Catch(fn func(error)) *Deferred[T] {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.errHandler = fn
	if d.state == rejected && !d.errDelivered {
		d.errDelivered = true
		fn(d.err)
	}
	return d
}

// Resolve folds v through every registered handler, in registration
// order, and stores the final value. If any handler fails or panics,
// the container is rejected with a [HandlerError] instead and the
// error never propagates back to the caller of Resolve.
//
// Only the first completion settles the container. Later calls to
// Resolve or Reject are ignored.
func (d *Deferred[T]) Resolve(v T) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.state != pending {
		d.log.Debug("ignoring resolve since the container is already settled")
		return
	}

	val := v
	for _, h := range d.handlers {
		out, err := applyHandler(h, val)
		if err != nil {
			d.settleErr(HandlerError{Cause: err})
			return
		}
		val = out
	}

	d.state = resolved
	d.value = val
	d.handlers = nil
	d.settled()
}

// Reject delivers err to the currently registered error handler. If no
// error handler is registered the rejection is logged and retained for
// a later [Deferred.Catch].
//
// Only the first completion settles the container. Later calls to
// Resolve or Reject are ignored.
func (d *Deferred[T]) Reject(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.state != pending {
		d.log.Debug("ignoring reject since the container is already settled")
		return
	}
	d.settleErr(err)
}

// Await blocks until the container settles or ctx is done. It returns
// the stored success value or the rejection error, regardless of
// whether an error handler already consumed the rejection.
func (d *Deferred[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	case <-d.done:
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state == rejected {
		var zero T
		return zero, d.err
	}
	return d.value, nil
}

// settleErr rejects the container and delivers the error before any
// awaiters are unblocked. d.mu must be held.
func (d *Deferred[T]) settleErr(err error) {
	d.state = rejected
	d.err = err
	d.handlers = nil

	if d.errHandler == nil {
		d.log.Warn("rejected without a registered error handler", slogfield.Error(err))
	} else {
		d.errDelivered = true
		d.errHandler(err)
	}

	d.settled()
}

// settled stops the timeout timer and unblocks awaiters. d.mu must be held.
// A container can settle a second time when a handler registered after
// resolution fails, so the done channel is only closed once.
func (d *Deferred[T]) settled() {
	if d.timer != nil {
		d.timer.Stop()
	}

	select {
	case <-d.done:
	default:
		close(d.done)
	}
}

func applyHandler[T any](h func(T) (T, error), v T) (out T, err error) {
	defer try.Recover(&err)
	return h(v)
}
