// Copyright (c) 2024 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package pulse

import (
	"context"
	"errors"
)

// Listener represents anything which can react to a published value.
type Listener[T any] interface {
	Listen(context.Context, T) error
}

// ListenerFunc is a func variant of the [Listener] interface.
type ListenerFunc[T any] func(context.Context, T) error

// Listen implements the [Listener] interface.
func (f ListenerFunc[T]) Listen(ctx context.Context, v T) error {
	return f(ctx, v)
}

type multiListener[T any] []Listener[T]

func (ml multiListener[T]) Listen(ctx context.Context, v T) error {
	errs := make([]error, 0, len(ml))
	for _, l := range ml {
		err := l.Listen(ctx, v)
		if err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) == 0 {
		return nil
	}
	if len(errs) == 1 {
		return errs[0]
	}
	return errors.Join(errs...)
}

// MultiListener returns a [Listener] that's the logical concatenation
// of the provided [Listener]s. They're applied sequentially and every
// listener is invoked regardless of whether an earlier one failed.
func MultiListener[T any](ls ...Listener[T]) Listener[T] {
	return multiListener[T](ls)
}
