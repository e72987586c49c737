// Package parallel implements the bounded worker pool that schedules
// per-file work units across the five strategies (spec §2's "Parallel
// driver" / §5's scheduling model).
//
// Grounded directly on the teacher's two errgroup-based fan-out sites:
// discovery.Walker.Walk's content-loading phase and
// tokenizer.TokenCounter.CountFiles, both of which use
// golang.org/x/sync/errgroup with SetLimit plus a buffered results channel
// to avoid a mutex on the per-item hot path.
package parallel

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/allenai/datamap-go/internal/model"
)

// Pool runs work units across a bounded set of goroutines.
type Pool struct {
	concurrency int
	limiter     *rate.Limiter
}

// New constructs a Pool bounded to concurrency goroutines. A concurrency
// <= 0 defaults to runtime.NumCPU(), matching the teacher's convention in
// WalkerConfig.Concurrency and TokenCounter.CountFiles.
func New(concurrency int) *Pool {
	if concurrency <= 0 {
		concurrency = runtime.NumCPU()
	}
	return &Pool{concurrency: concurrency}
}

// WithOpenRate attaches an optional rate limiter throttling how fast new
// work units may start. This is an ambient operational knob (not required
// by any spec correctness property) for operators running against
// network-backed POSIX mounts where opening many files per second competes
// with other tenants.
func (p *Pool) WithOpenRate(qps float64) *Pool {
	if qps > 0 {
		p.limiter = rate.NewLimiter(rate.Limit(qps), 1)
	}
	return p
}

// Run fans units across the pool's bounded concurrency, invoking fn for
// each. Per-unit results are aggregated via fn's own closure (the teacher's
// channel idiom); Run merges each unit's model.Counters into the returned
// total using a buffered channel rather than a shared mutex. The first
// error from any worker is returned after every worker has been given the
// chance to run (matching errgroup.Group's WithContext cancellation: once
// one worker errors, gctx is cancelled and fn implementations are expected
// to check ctx.Err() promptly).
func Run[T any](ctx context.Context, p *Pool, units []T, fn func(ctx context.Context, item T) (model.Counters, error)) (model.Counters, error) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)

	results := make(chan model.Counters, len(units))

	for _, u := range units {
		unit := u
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return fmt.Errorf("cancelled: %w", err)
			}
			if p.limiter != nil {
				if err := p.limiter.Wait(gctx); err != nil {
					return err
				}
			}
			c, err := fn(gctx, unit)
			if err != nil {
				return err
			}
			results <- c
			return nil
		})
	}

	err := g.Wait()
	close(results)

	var total model.Counters
	for c := range results {
		total.Add(c)
	}
	return total, err
}
