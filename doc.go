// Copyright (c) 2024 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package pulse provides small, composable eventing primitives for a single process.
//
// The package is built around one core abstraction:
//
//   - Listener[T]: anything which can react to a published value
//
// The subpackages build on it:
//
//   - bind: pair a callable with a fixed receiver and preset arguments
//   - deferred: deliver an eventually produced value through a chain of transforms
//   - bus: fan a published value out to every subscribed listener
//   - store: fold dispatched messages into a single state value and notify listeners
//
// # Basic Usage
//
// Subscribe a listener to a bus and publish to it:
//
//	b := bus.New[string]()
//	unsubscribe := b.Subscribe(pulse.ListenerFunc[string](func(ctx context.Context, s string) error {
//	    fmt.Println(s)
//	    return nil
//	}))
//	defer unsubscribe()
//
//	b.Notify(context.Background(), "hello")
package pulse
