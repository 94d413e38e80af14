// Package tasks provides a bounded fan-out joiner, the concurrency
// primitive §5 calls for when building independent layers in parallel:
// one task per eligible layer, awaited together, with a configurable
// cap on how many run at once. This replaces the teacher's single-slot
// cancelable TaskManager (good for "one background refresh at a time")
// with a join-all-or-first-error shape suited to a build plan's DAG.
package tasks

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Joiner runs a bounded number of jobs concurrently and waits for them
// all to finish (or for the first error, which cancels the rest via
// ctx). A Joiner holds only its limit, so it can be reused across calls
// to Run.
type Joiner struct {
	limit int
}

// NewJoiner returns a Joiner that runs at most limit jobs concurrently.
// A limit <= 0 means unbounded: SetLimit is only applied to a positive
// limit.
func NewJoiner(limit int) *Joiner {
	return &Joiner{limit: limit}
}

// Job is one unit of work submitted to Run.
type Job func(ctx context.Context) error

// Run executes every job, respecting the Joiner's concurrency limit, and
// returns the first error encountered (if any) after all jobs have
// either completed or been abandoned following cancellation.
func (j *Joiner) Run(ctx context.Context, jobs []Job) error {
	g, gctx := errgroup.WithContext(ctx)
	if j.limit > 0 {
		g.SetLimit(j.limit)
	}
	for _, job := range jobs {
		job := job
		g.Go(func() error {
			return job(gctx)
		})
	}
	return g.Wait()
}
