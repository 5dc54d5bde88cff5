package pipeline

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// DefaultBatchConcurrency bounds simultaneous company runs in RunAll.
const DefaultBatchConcurrency = 4

// RunAll executes independent pipeline runs for multiple companies
// concurrently. Runs share no mutable state beyond the filesystem, which the
// artifact store treats as append-only, so no cross-run coordination is
// needed. Results are returned in input order; a run never fails the batch.
func (o *Orchestrator) RunAll(ctx context.Context, optsList []Options, concurrency int) []*Result {
	if concurrency <= 0 {
		concurrency = DefaultBatchConcurrency
	}

	results := make([]*Result, len(optsList))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i, opts := range optsList {
		g.Go(func() error {
			results[i] = o.Run(gCtx, opts)
			return nil
		})
	}
	_ = g.Wait()
	return results
}
