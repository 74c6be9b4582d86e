package usecase

import (
	"context"

	"golang.org/x/sync/singleflight"
)

// sharedCall runs fn once per key for all concurrent callers. fn runs on a
// context that keeps the first caller's values but not its cancellation, so
// one caller leaving never fails the others. Each caller stops waiting when
// its own ctx is done.
func sharedCall[T any](ctx context.Context, group *singleflight.Group, key string, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	detached := context.WithoutCancel(ctx)
	ch := group.DoChan(key, func() (any, error) {
		return fn(detached)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		return res.Val.(T), nil
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}
