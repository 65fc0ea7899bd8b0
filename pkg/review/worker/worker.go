// Package worker runs a per-item processor over an ordered slice with a
// bounded pool, a per-item timeout, and an optional global rate limit shared
// by every worker. Results come back at the index of their input, so callers
// that need input ordering get it for free regardless of worker count.
package worker

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type Options struct {
	// Workers is the pool size; 1 gives strictly sequential processing.
	Workers int

	// ItemTimeout bounds each processor call. Zero means no per-item bound
	// beyond the run context.
	ItemTimeout time.Duration

	// RateLimitRPS is a global limit across all workers. <=0 disables.
	RateLimitRPS float64
}

// Result holds the outcome for one input item.
type Result[In any, Out any] struct {
	Input  In
	Output Out
	Err    error
}

func (o Options) withDefaults() Options {
	if o.Workers <= 0 {
		o.Workers = 1
	}
	return o
}

// ProcessAll runs the processor over every item. Per-item errors are recorded
// in the matching Result; only context cancellation fails the whole call.
func ProcessAll[In any, Out any](
	ctx context.Context,
	items []In,
	processor func(context.Context, In) (Out, error),
	opts Options,
) ([]Result[In, Out], error) {
	opts = opts.withDefaults()

	var limiter *rate.Limiter
	if opts.RateLimitRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimitRPS), 1)
	}

	out := make([]Result[In, Out], len(items))

	type job struct {
		idx int
		in  In
	}
	jobs := make(chan job)

	var wg sync.WaitGroup
	for i := 0; i < opts.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				if ctx.Err() != nil {
					return
				}
				out[j.idx] = processOne(ctx, j.in, processor, limiter, opts)
			}
		}()
	}

	for i, item := range items {
		select {
		case jobs <- job{idx: i, in: item}:
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			return nil, ctx.Err()
		}
	}
	close(jobs)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func processOne[In any, Out any](
	ctx context.Context,
	item In,
	processor func(context.Context, In) (Out, error),
	limiter *rate.Limiter,
	opts Options,
) Result[In, Out] {
	res := Result[In, Out]{Input: item}

	if limiter != nil {
		if err := limiter.Wait(ctx); err != nil {
			res.Err = err
			return res
		}
	}

	itemCtx := ctx
	var cancel context.CancelFunc
	if opts.ItemTimeout > 0 {
		itemCtx, cancel = context.WithTimeout(ctx, opts.ItemTimeout)
		defer cancel()
	}

	res.Output, res.Err = processor(itemCtx, item)
	return res
}
