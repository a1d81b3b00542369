// Copyright (c) 2024 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package bus

import (
	"log/slog"

	"github.com/z5labs/pulse/pkg/noop"
	"github.com/z5labs/pulse/pkg/otelslog"
)

type options struct {
	logHandler             slog.Handler
	maxConcurrentListeners int
}

// Option configures a [Bus] at construction time.
type Option func(*options)

func defaultLogHandler() slog.Handler {
	return noop.LogHandler{}
}

// LogHandler sets the slog.Handler used for reporting listener
// failures and empty notification passes.
func LogHandler(h slog.Handler) Option {
	return func(o *options) {
		o.logHandler = otelslog.NewHandler(h)
	}
}

// MaxConcurrentListeners configures the bus to notify listeners
// concurrently, with at most n invocations in flight at a time.
// Concurrent notification gives up the subscription order guarantee.
// A negative n means no limit; zero leaves the bus sequential.
func MaxConcurrentListeners(n int) Option {
	return func(o *options) {
		o.maxConcurrentListeners = n
	}
}
