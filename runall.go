package backtest

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Job describes an independent backtest for RunAll.
type Job struct {
	Name     string
	New      func() (*Backtester, error) // builds a fresh backtester for this job
	Strategy Strategy
	Start    int // start index
	Options  Options
}

// RunAll runs jobs in parallel, at most limit at a time (no limit if limit <= 0), and
// returns their results in the order of jobs.
//
// Each job runs on its own Backtester. The first failure cancels the jobs not yet
// started and is returned.
func RunAll(ctx context.Context, jobs []Job, limit int) ([]*Result, error) {
	results := make([]*Result, len(jobs))
	g, ctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, job := range jobs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			b, err := job.New()
			if err != nil {
				return fmt.Errorf("job %q: %w", job.Name, err)
			}
			b.SetStrategy(job.Strategy)
			opts := job.Options
			if opts.Label == "" {
				opts.Label = job.Name
			}
			r, err := b.Run(job.Start, opts)
			if err != nil {
				return fmt.Errorf("job %q: %w", job.Name, err)
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
