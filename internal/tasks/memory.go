package tasks

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

type memoryScheduler struct {
	mu   sync.Mutex
	jobs []Job
}

// NewMemoryScheduler builds a Scheduler backed by plain time.Tickers, one
// goroutine per job. Used for dev/test and any deployment not configured
// with Redis.
func NewMemoryScheduler() Scheduler {
	return &memoryScheduler{}
}

func (s *memoryScheduler) RegisterPeriodic(job Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs = append(s.jobs, job)
}

// Run starts every registered job's ticker and blocks until ctx is
// cancelled.
func (s *memoryScheduler) Run(ctx context.Context) error {
	s.mu.Lock()
	jobs := append([]Job(nil), s.jobs...)
	s.mu.Unlock()

	var wg sync.WaitGroup
	for _, job := range jobs {
		wg.Add(1)
		go func(job Job) {
			defer wg.Done()
			runTicked(ctx, job)
		}(job)
	}
	wg.Wait()
	return nil
}

func runTicked(ctx context.Context, job Job) {
	ticker := time.NewTicker(job.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := job.Run(ctx); err != nil {
				slog.Error("scheduled job failed", "job", job.Name, "error", err)
			}
		}
	}
}
