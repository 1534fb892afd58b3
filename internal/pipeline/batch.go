package pipeline

import (
	"context"
	"fmt"
	"runtime"

	"seedkey/go-keygen/internal/platform/ratelimiter"

	"golang.org/x/sync/errgroup"
)

type BatchOptions struct {
	// Workers bounds concurrent runs; zero means GOMAXPROCS.
	Workers int
	// RatePerSecond throttles run starts; zero disables throttling.
	RatePerSecond float64
}

// RunBatch runs every request on a bounded worker group. Results keep the
// order of reqs. The first failure cancels the remaining runs and is
// returned wrapped with the request index.
func (p *Pipeline) RunBatch(ctx context.Context, reqs []Request, opts BatchOptions) ([]*Result, error) {
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	limiter := ratelimiter.New(opts.RatePerSecond, 1)

	results := make([]*Result, len(reqs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, req := range reqs {
		i, req := i, req
		g.Go(func() error {
			if err := limiter.Wait(gctx); err != nil {
				return fmt.Errorf("request %d: %w", i, &StageError{Stage: StageObtainMnemonic, Err: err})
			}
			res, err := p.Run(gctx, req)
			if err != nil {
				return fmt.Errorf("request %d: %w", i, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
