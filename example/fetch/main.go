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
	"time"

	"github.com/z5labs/pulse/deferred"
	"github.com/z5labs/pulse/fetch"
)

func main() {
	logHandler := slog.NewJSONHandler(os.Stderr, nil)

	client := fetch.NewClient(
		fetch.Name("example"),
		fetch.MaxRetries(3),
		fetch.RetryWaitMin(100*time.Millisecond),
		fetch.RetryWaitMax(time.Second),
		fetch.LogHandler(logHandler),
	)

	ctx := context.Background()

	d := fetch.Get(
		ctx,
		client,
		"https://www.example.com",
		deferred.Timeout(10*time.Second),
		deferred.LogHandler(logHandler),
	)
	d.Then(func(b []byte) ([]byte, error) {
		fmt.Println("fetched", len(b), "bytes")
		return b, nil
	})
	d.Catch(func(err error) {
		fmt.Println("fetch failed:", err)
	})

	d.Await(ctx)
}
