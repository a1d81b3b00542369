// Copyright (c) 2024 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package bind provides an explicit form of partial function application.
//
// A [BoundFunc] pairs a target callable with a fixed receiver and any
// number of preset arguments. Calling it invokes the target with the
// receiver as its first argument, followed by the preset arguments and,
// lastly, any call time arguments. This makes the usual "method value"
// capture explicit: the receiver is a plain field of a record instead of
// an implicit language mechanism.
package bind

import (
	"fmt"
	"reflect"
)

// InvalidTargetError signals that the value given to [Bind] is not callable.
type InvalidTargetError struct {
	Target any
}

// Error implements the [builtin.error] interface.
func (e InvalidTargetError) Error() string {
	return fmt.Sprintf("bind: target is not callable: %T", e.Target)
}

// BoundFunc pairs a target callable with a fixed receiver and preset arguments.
//
// A BoundFunc is immutable after construction.
type BoundFunc struct {
	fn       reflect.Value
	receiver any
	preset   []any
}

// Bind pairs fn with the given receiver and preset arguments.
//
// fn must be callable and take the receiver as its first parameter.
// If fn is not callable, an [InvalidTargetError] is returned and
// nothing is invoked.
func Bind(fn any, receiver any, preset ...any) (*BoundFunc, error) {
	v := reflect.ValueOf(fn)
	if !v.IsValid() || v.Kind() != reflect.Func {
		return nil, InvalidTargetError{Target: fn}
	}

	return &BoundFunc{
		fn:       v,
		receiver: receiver,
		preset:   preset,
	}, nil
}

// Call invokes the target with the fixed receiver as its first argument,
// followed by the preset arguments and then args, in order. It returns
// whatever the target returns. Any panic raised by the target propagates
// to the caller unmodified.
func (b *BoundFunc) Call(args ...any) []any {
	in := make([]reflect.Value, 0, 1+len(b.preset)+len(args))
	in = append(in, b.argValue(0, b.receiver))
	for _, arg := range b.preset {
		in = append(in, b.argValue(len(in), arg))
	}
	for _, arg := range args {
		in = append(in, b.argValue(len(in), arg))
	}

	out := b.fn.Call(in)
	if len(out) == 0 {
		return nil
	}

	results := make([]any, 0, len(out))
	for _, v := range out {
		results = append(results, v.Interface())
	}
	return results
}

// Func returns a plain func wrapper around [BoundFunc.Call].
func (b *BoundFunc) Func() func(...any) []any {
	return b.Call
}

// argValue resolves an untyped nil argument to the zero value
// of the corresponding parameter type.
func (b *BoundFunc) argValue(i int, arg any) reflect.Value {
	v := reflect.ValueOf(arg)
	if v.IsValid() {
		return v
	}

	ft := b.fn.Type()
	if ft.IsVariadic() && i >= ft.NumIn()-1 {
		return reflect.Zero(ft.In(ft.NumIn() - 1).Elem())
	}
	if i < ft.NumIn() {
		return reflect.Zero(ft.In(i))
	}
	return v
}
