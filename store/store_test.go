// Copyright (c) 2024 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package store

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type counterMsg struct {
	Type    string
	Payload int
}

func counterReducer() Reducer[int, counterMsg] {
	return ReducerFunc[int, counterMsg](func(s int, m counterMsg) int {
		switch m.Type {
		case "INCREMENT":
			return s + m.Payload
		case "DECREMENT":
			return s - m.Payload
		default:
			return s
		}
	})
}

func TestStore_Dispatch(t *testing.T) {
	t.Run("will fold the state through the reducer", func(t *testing.T) {
		t.Run("if increment and decrement messages are dispatched", func(t *testing.T) {
			s := New[int, counterMsg](counterReducer(), 0)

			err := s.Dispatch(context.Background(), counterMsg{Type: "INCREMENT", Payload: 1})
			if !assert.Nil(t, err) {
				return
			}
			if !assert.Equal(t, 1, s.State()) {
				return
			}

			err = s.Dispatch(context.Background(), counterMsg{Type: "INCREMENT", Payload: 1})
			if !assert.Nil(t, err) {
				return
			}
			if !assert.Equal(t, 2, s.State()) {
				return
			}

			err = s.Dispatch(context.Background(), counterMsg{Type: "DECREMENT", Payload: 1})
			if !assert.Nil(t, err) {
				return
			}
			if !assert.Equal(t, 1, s.State()) {
				return
			}
		})

		t.Run("if an unknown message type is dispatched", func(t *testing.T) {
			s := New[int, counterMsg](counterReducer(), 5)

			err := s.Dispatch(context.Background(), counterMsg{Type: "NOOP"})
			if !assert.Nil(t, err) {
				return
			}
			if !assert.Equal(t, 5, s.State()) {
				return
			}
		})
	})

	t.Run("will notify listeners after reducing", func(t *testing.T) {
		t.Run("if a listener is subscribed", func(t *testing.T) {
			s := New[int, counterMsg](counterReducer(), 0)

			var seen []int
			s.Subscribe(ListenerFunc(func(ctx context.Context) error {
				seen = append(seen, s.State())
				return nil
			}))

			err := s.Dispatch(context.Background(), counterMsg{Type: "INCREMENT", Payload: 1})
			if !assert.Nil(t, err) {
				return
			}

			err = s.Dispatch(context.Background(), counterMsg{Type: "INCREMENT", Payload: 2})
			if !assert.Nil(t, err) {
				return
			}

			if !assert.Equal(t, []int{1, 3}, seen) {
				return
			}
		})

		t.Run("if a listener failure should not hide the new state", func(t *testing.T) {
			s := New[int, counterMsg](counterReducer(), 0)

			listenErr := errors.New("listener failed")
			s.Subscribe(ListenerFunc(func(ctx context.Context) error {
				return listenErr
			}))

			err := s.Dispatch(context.Background(), counterMsg{Type: "INCREMENT", Payload: 1})
			if !assert.ErrorIs(t, err, listenErr) {
				return
			}
			if !assert.Equal(t, 1, s.State()) {
				return
			}
		})
	})

	t.Run("will stop notifying a listener", func(t *testing.T) {
		t.Run("if its unsubscribe func was called", func(t *testing.T) {
			s := New[int, counterMsg](counterReducer(), 0)

			count := 0
			unsubscribe := s.Subscribe(ListenerFunc(func(ctx context.Context) error {
				count += 1
				return nil
			}))

			err := s.Dispatch(context.Background(), counterMsg{Type: "INCREMENT", Payload: 1})
			if !assert.Nil(t, err) {
				return
			}

			unsubscribe()

			err = s.Dispatch(context.Background(), counterMsg{Type: "INCREMENT", Payload: 1})
			if !assert.Nil(t, err) {
				return
			}
			if !assert.Equal(t, 1, count) {
				return
			}
		})
	})

	t.Run("will leave the state unchanged", func(t *testing.T) {
		t.Run("if the reducer panics", func(t *testing.T) {
			s := New[int, counterMsg](
				ReducerFunc[int, counterMsg](func(s int, m counterMsg) int {
					panic("reducer blew up")
				}),
				7,
			)

			notified := false
			s.Subscribe(ListenerFunc(func(ctx context.Context) error {
				notified = true
				return nil
			}))

			err := s.Dispatch(context.Background(), counterMsg{Type: "INCREMENT", Payload: 1})

			var rerr ReduceError
			if !assert.ErrorAs(t, err, &rerr) {
				return
			}
			if !assert.Equal(t, 7, s.State()) {
				return
			}
			if !assert.False(t, notified) {
				return
			}
		})
	})
}
