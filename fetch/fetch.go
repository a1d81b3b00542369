// Copyright (c) 2024 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package fetch

import (
	"context"
	"io"
	"net/http"

	"github.com/z5labs/pulse/deferred"
	"github.com/z5labs/pulse/internal/try"
)

// Do performs req on its own goroutine and returns a container which
// is resolved with the response or rejected with the transport error.
// The caller owns the response body.
func Do(client *http.Client, req *http.Request, opts ...deferred.Option) *deferred.Deferred[*http.Response] {
	return deferred.New[*http.Response](
		deferred.ProducerFunc[*http.Response](func(resolve func(*http.Response), reject func(error)) {
			go func() {
				resp, err := client.Do(req)
				if err != nil {
					reject(err)
					return
				}
				resolve(resp)
			}()
		}),
		opts...,
	)
}

// Get performs a GET against url on its own goroutine and returns a
// container which is resolved with the full response body or rejected
// with the transport or read error.
func Get(ctx context.Context, client *http.Client, url string, opts ...deferred.Option) *deferred.Deferred[[]byte] {
	return deferred.New[[]byte](
		deferred.ProducerFunc[[]byte](func(resolve func([]byte), reject func(error)) {
			go func() {
				req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
				if err != nil {
					reject(err)
					return
				}

				b, err := get(client, req)
				if err != nil {
					reject(err)
					return
				}
				resolve(b)
			}()
		}),
		opts...,
	)
}

func get(client *http.Client, req *http.Request) (b []byte, err error) {
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer try.Close(&err, resp.Body)

	return io.ReadAll(resp.Body)
}
