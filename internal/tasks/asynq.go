package tasks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hibiken/asynq"
)

func taskTypeFor(jobName string) string {
	return "tick:" + jobName
}

// staticConfigProvider hands Asynq's periodic task manager a fixed list of
// cron schedules, one per registered job, built once by Run from the jobs
// registered before it.
type staticConfigProvider struct {
	configs []*asynq.PeriodicTaskConfig
}

func (p *staticConfigProvider) GetConfigs() ([]*asynq.PeriodicTaskConfig, error) {
	return p.configs, nil
}

type asynqScheduler struct {
	redisAddr string

	mu   sync.Mutex
	jobs map[string]Job
}

// NewAsynqScheduler builds a Scheduler that schedules ticks through
// Asynq's periodic task manager (itself backed by robfig/cron) and
// processes them with an embedded in-process worker, so a Redis-backed
// deployment gets at-most-one-active-scheduler-per-job semantics without
// needing a separate worker binary.
func NewAsynqScheduler(redisAddr string) Scheduler {
	return &asynqScheduler{redisAddr: redisAddr, jobs: make(map[string]Job)}
}

func (s *asynqScheduler) RegisterPeriodic(job Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.Name] = job
}

// Run starts the periodic task manager and an embedded worker, blocking
// until ctx is cancelled.
func (s *asynqScheduler) Run(ctx context.Context) error {
	s.mu.Lock()
	jobs := make(map[string]Job, len(s.jobs))
	configs := make([]*asynq.PeriodicTaskConfig, 0, len(s.jobs))
	for name, job := range s.jobs {
		jobs[name] = job
		configs = append(configs, &asynq.PeriodicTaskConfig{
			Cronspec: fmt.Sprintf("@every %s", job.Interval),
			Task:     asynq.NewTask(taskTypeFor(name), nil),
		})
	}
	s.mu.Unlock()

	redisOpt := asynq.RedisClientOpt{Addr: s.redisAddr}

	mgr, err := asynq.NewPeriodicTaskManager(asynq.PeriodicTaskManagerOpts{
		RedisConnOpt:               redisOpt,
		PeriodicTaskConfigProvider: &staticConfigProvider{configs: configs},
		SyncInterval:               time.Minute,
	})
	if err != nil {
		return fmt.Errorf("create periodic task manager: %w", err)
	}

	server := asynq.NewServer(redisOpt, asynq.Config{Concurrency: len(jobs) + 1})
	mux := asynq.NewServeMux()
	for name, job := range jobs {
		job := job
		mux.HandleFunc(taskTypeFor(name), func(ctx context.Context, _ *asynq.Task) error {
			return job.Run(ctx)
		})
	}

	mgrErrCh := make(chan error, 1)
	go func() { mgrErrCh <- mgr.Run() }()

	srvErrCh := make(chan error, 1)
	go func() { srvErrCh <- server.Run(mux) }()

	select {
	case <-ctx.Done():
		mgr.Stop()
		server.Shutdown()
		return nil
	case err := <-mgrErrCh:
		server.Shutdown()
		return fmt.Errorf("periodic task manager stopped: %w", err)
	case err := <-srvErrCh:
		mgr.Stop()
		return fmt.Errorf("task server stopped: %w", err)
	}
}
