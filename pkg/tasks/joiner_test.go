package tasks

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
)

func TestJoinerRunsAllJobs(t *testing.T) {
	var count int64
	jobs := make([]Job, 10)
	for i := range jobs {
		jobs[i] = func(ctx context.Context) error {
			atomic.AddInt64(&count, 1)
			return nil
		}
	}
	if err := NewJoiner(3).Run(context.Background(), jobs); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if count != 10 {
		t.Fatalf("expected 10 jobs to run, got %d", count)
	}
}

func TestJoinerReturnsFirstError(t *testing.T) {
	sentinel := errors.New("boom")
	jobs := []Job{
		func(ctx context.Context) error { return nil },
		func(ctx context.Context) error { return sentinel },
	}
	err := NewJoiner(2).Run(context.Background(), jobs)
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected sentinel error, got %v", err)
	}
}

func TestJoinerRespectsLimit(t *testing.T) {
	var current, maxSeen int64
	jobs := make([]Job, 20)
	for i := range jobs {
		jobs[i] = func(ctx context.Context) error {
			n := atomic.AddInt64(&current, 1)
			for {
				m := atomic.LoadInt64(&maxSeen)
				if n <= m || atomic.CompareAndSwapInt64(&maxSeen, m, n) {
					break
				}
			}
			atomic.AddInt64(&current, -1)
			return nil
		}
	}
	if err := NewJoiner(4).Run(context.Background(), jobs); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if maxSeen > 4 {
		t.Fatalf("expected at most 4 concurrent jobs, saw %d", maxSeen)
	}
}
