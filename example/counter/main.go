// Copyright (c) 2024 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/z5labs/pulse/store"
)

type msg struct {
	Type    string
	Payload int
}

func main() {
	logHandler := slog.NewJSONHandler(os.Stderr, nil)

	s := store.New[int, msg](
		store.ReducerFunc[int, msg](func(state int, m msg) int {
			switch m.Type {
			case "INCREMENT":
				return state + m.Payload
			case "DECREMENT":
				return state - m.Payload
			default:
				return state
			}
		}),
		0,
		store.LogHandler(logHandler),
	)

	unsubscribe := s.Subscribe(store.ListenerFunc(func(ctx context.Context) error {
		fmt.Println("state is now", s.State())
		return nil
	}))
	defer unsubscribe()

	ctx := context.Background()
	s.Dispatch(ctx, msg{Type: "INCREMENT", Payload: 1})
	s.Dispatch(ctx, msg{Type: "INCREMENT", Payload: 1})
	s.Dispatch(ctx, msg{Type: "DECREMENT", Payload: 1})
}
