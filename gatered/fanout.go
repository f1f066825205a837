package gatered

import (
	"context"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// runAll executes the given functions concurrently, keeping at most maxAtOnce
// in flight and starting no more than maxPerSecond per second. Results keep
// the order of fns. The first error cancels the remaining work.
func runAll[T any](
	ctx context.Context,
	fns []func(ctx context.Context) (T, error),
	maxAtOnce int,
	maxPerSecond int,
) ([]T, error) {
	if maxAtOnce <= 0 {
		maxAtOnce = 1
	}

	var limiter *rate.Limiter
	if maxPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(maxPerSecond), 1)
	}

	results := make([]T, len(fns))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxAtOnce)

	for i, fn := range fns {
		g.Go(func() error {
			if limiter != nil {
				if err := limiter.Wait(ctx); err != nil {
					return err
				}
			}

			v, err := fn(ctx)
			if err != nil {
				return err
			}
			results[i] = v
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
