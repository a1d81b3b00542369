// Copyright (c) 2024 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package fetch models HTTP requests as deferred completions.
//
// [NewClient] constructs a production ready http.Client with request
// logging, optional retries and optional circuit breaking. [Do] and
// [Get] then act as opaque asynchronous producers: the request runs on
// its own goroutine and eventually settles exactly one of the returned
// container's completion hooks.
package fetch

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/z5labs/pulse/pkg/noop"
	"github.com/z5labs/pulse/pkg/otelslog"
	"github.com/z5labs/pulse/pkg/slogfield"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/sony/gobreaker"
)

// StatusCodeError signals that a response carried a status code which
// the circuit breaker counts as a failure.
type StatusCodeError struct {
	Code int
}

// Error implements the [builtin.error] interface.
func (e StatusCodeError) Error() string {
	return fmt.Sprintf("fetch: received failure status code: %d", e.Code)
}

type circuitOptions struct {
	maxRequests uint32
	interval    time.Duration
	timeout     time.Duration
	tripCount   uint32
	statusCodes []int
}

type retryOptions struct {
	maxRetries int
	waitMin    time.Duration
	waitMax    time.Duration
}

type options struct {
	timeout time.Duration
	rt      http.RoundTripper

	name       string
	logHandler slog.Handler

	co *circuitOptions
	ro *retryOptions
}

// Option configures the http.Client constructed by [NewClient].
type Option func(*options)

// Name names the client for logging purposes.
func Name(s string) Option {
	return func(o *options) {
		o.name = s
	}
}

// RoundTripper sets the base http.RoundTripper.
func RoundTripper(rt http.RoundTripper) Option {
	return func(o *options) {
		o.rt = rt
	}
}

// Timeout provides a global timeout value for the http.Client.
func Timeout(d time.Duration) Option {
	return func(o *options) {
		o.timeout = d
	}
}

// LogHandler sets the slog.Handler used for request logging.
func LogHandler(h slog.Handler) Option {
	return func(o *options) {
		o.logHandler = otelslog.NewHandler(h)
	}
}

func withCircuitOption(f func(*circuitOptions)) Option {
	return func(o *options) {
		if o.co == nil {
			o.co = new(circuitOptions)
		}
		f(o.co)
	}
}

// TripAfter sets how many consecutive request failures open the circuit.
func TripAfter(n uint32) Option {
	return withCircuitOption(func(co *circuitOptions) {
		co.tripCount = n
	})
}

// OpenStateTimeout sets how long the circuit stays open before
// transitioning to half open.
func OpenStateTimeout(d time.Duration) Option {
	return withCircuitOption(func(co *circuitOptions) {
		co.timeout = d
	})
}

// HalfOpenRequests sets how many requests are let through while the
// circuit is half open.
func HalfOpenRequests(n uint32) Option {
	return withCircuitOption(func(co *circuitOptions) {
		co.maxRequests = n
	})
}

// CountResetInterval sets the cyclic period over which the circuit
// resets its failure counts while closed.
func CountResetInterval(d time.Duration) Option {
	return withCircuitOption(func(co *circuitOptions) {
		co.interval = d
	})
}

// TripOnStatusCodes sets the response status codes which the circuit
// counts as failures. It defaults to 400, 401, 403 and 500.
func TripOnStatusCodes(codes ...int) Option {
	return withCircuitOption(func(co *circuitOptions) {
		co.statusCodes = append(co.statusCodes, codes...)
	})
}

func withRetryOption(f func(*retryOptions)) Option {
	return func(o *options) {
		if o.ro == nil {
			o.ro = new(retryOptions)
		}
		f(o.ro)
	}
}

// MaxRetries sets the maximum number of times a request is retried.
func MaxRetries(n int) Option {
	return withRetryOption(func(ro *retryOptions) {
		ro.maxRetries = n
	})
}

// RetryWaitMin sets the minimum wait between retries.
func RetryWaitMin(d time.Duration) Option {
	return withRetryOption(func(ro *retryOptions) {
		ro.waitMin = d
	})
}

// RetryWaitMax sets the maximum wait between retries.
func RetryWaitMax(d time.Duration) Option {
	return withRetryOption(func(ro *retryOptions) {
		ro.waitMax = d
	})
}

// NewClient constructs an http.Client which logs every request and,
// depending on the given options, retries failed requests and circuit
// breaks repeatedly failing ones.
func NewClient(opts ...Option) *http.Client {
	o := &options{
		rt:         http.DefaultTransport,
		logHandler: noop.LogHandler{},
	}
	for _, opt := range opts {
		opt(o)
	}

	logger := slog.New(o.logHandler)
	if o.name != "" {
		logger = logger.With(slogfield.String("http_client", o.name))
	}

	var rt http.RoundTripper = &logRoundTripper{
		base: o.rt,
		log:  logger,
	}
	if o.co != nil {
		rt = newCircuitRoundTripper(rt, o.co, o.name, logger)
	}

	client := &http.Client{
		Timeout:   o.timeout,
		Transport: rt,
	}
	if o.ro == nil {
		return client
	}

	rc := retryablehttp.Client{
		HTTPClient:   client,
		RetryWaitMin: o.ro.waitMin,
		RetryWaitMax: o.ro.waitMax,
		RetryMax:     o.ro.maxRetries,
		CheckRetry:   retryablehttp.DefaultRetryPolicy,
		Backoff:      retryablehttp.DefaultBackoff,
		ErrorHandler: retryablehttp.PassthroughErrorHandler,
	}
	return rc.StandardClient()
}

type logRoundTripper struct {
	base http.RoundTripper
	log  *slog.Logger
}

func (rt *logRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	start := time.Now()

	rt.log.InfoContext(
		ctx,
		"request sent",
		slogfield.String("url", req.URL.String()),
	)
	resp, err := rt.base.RoundTrip(req)
	if err != nil {
		return nil, err
	}

	rt.log.InfoContext(
		ctx,
		"response received",
		slogfield.String("url", req.URL.String()),
		slogfield.Int("status_code", resp.StatusCode),
		slogfield.Duration("latency", time.Since(start)),
	)
	return resp, nil
}

type circuitRoundTripper struct {
	base         http.RoundTripper
	cb           *gobreaker.CircuitBreaker
	onStatusCode func(int) error
}

func newCircuitRoundTripper(base http.RoundTripper, co *circuitOptions, name string, logger *slog.Logger) *circuitRoundTripper {
	if len(co.statusCodes) == 0 {
		co.statusCodes = append(
			co.statusCodes,
			http.StatusBadRequest,
			http.StatusUnauthorized,
			http.StatusForbidden,
			http.StatusInternalServerError,
		)
	}

	codes := make(map[int]struct{}, len(co.statusCodes))
	for _, code := range co.statusCodes {
		codes[code] = struct{}{}
	}

	return &circuitRoundTripper{
		base: base,
		cb: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        name,
			MaxRequests: co.maxRequests,
			Interval:    co.interval,
			Timeout:     co.timeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= co.tripCount
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				switch to {
				case gobreaker.StateOpen:
					logger.Error("circuit has been opened")
				case gobreaker.StateHalfOpen:
					logger.Warn(
						"circuit is now half open and letting some requests through",
						slogfield.Uint32("max_requests_allowed_through", co.maxRequests),
					)
				case gobreaker.StateClosed:
					logger.Info("circuit has been closed")
				}
			},
		}),
		onStatusCode: func(code int) error {
			_, ok := codes[code]
			if !ok {
				return nil
			}
			return StatusCodeError{Code: code}
		},
	}
}

func (rt *circuitRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	v, err := rt.cb.Execute(func() (any, error) {
		resp, err := rt.base.RoundTrip(req)
		if err != nil {
			return nil, err
		}
		return resp, rt.onStatusCode(resp.StatusCode)
	})

	// A failure status code trips the breaker but the response is
	// still surfaced to the caller.
	resp, ok := v.(*http.Response)
	if ok {
		return resp, nil
	}
	return nil, err
}
