// Copyright (c) 2024 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package store

import (
	"log/slog"

	"github.com/z5labs/pulse/pkg/noop"
	"github.com/z5labs/pulse/pkg/otelslog"
)

type options struct {
	logHandler slog.Handler
}

// Option configures a [Store] at construction time.
type Option func(*options)

func defaultLogHandler() slog.Handler {
	return noop.LogHandler{}
}

// LogHandler sets the slog.Handler used for reporting reducer and
// listener failures.
func LogHandler(h slog.Handler) Option {
	return func(o *options) {
		o.logHandler = otelslog.NewHandler(h)
	}
}
