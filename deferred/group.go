// Copyright (c) 2024 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package deferred

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// All awaits every given container and returns their values in the
// same order as the containers were given. If any container rejects,
// All returns that rejection error and stops waiting on the rest.
func All[T any](ctx context.Context, ds ...*Deferred[T]) ([]T, error) {
	g, gctx := errgroup.WithContext(ctx)

	vals := make([]T, len(ds))
	for i, d := range ds {
		i, d := i, d
		g.Go(func() error {
			v, err := d.Await(gctx)
			if err != nil {
				return err
			}
			vals[i] = v
			return nil
		})
	}

	err := g.Wait()
	if err != nil {
		return nil, err
	}
	return vals, nil
}
