// Copyright (c) 2024 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package deferred

import (
	"log/slog"
	"time"

	"github.com/z5labs/pulse/pkg/noop"
	"github.com/z5labs/pulse/pkg/otelslog"
)

type options struct {
	logHandler slog.Handler
	timeout    time.Duration
}

// Option configures a [Deferred] at construction time.
type Option func(*options)

func defaultLogHandler() slog.Handler {
	return noop.LogHandler{}
}

// LogHandler sets the slog.Handler used for reporting unhandled
// rejections and ignored completions.
func LogHandler(h slog.Handler) Option {
	return func(o *options) {
		o.logHandler = otelslog.NewHandler(h)
	}
}

// Timeout bounds how long the container may remain pending. If the
// producer settles neither completion hook within d, the container is
// rejected with a [TimeoutError]. A zero or negative duration means
// the container may remain pending forever.
func Timeout(d time.Duration) Option {
	return func(o *options) {
		o.timeout = d
	}
}
