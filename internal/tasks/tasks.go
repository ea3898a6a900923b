// Package tasks drives the periodic work the rest of the daemon needs
// ticked - domain verification, sync-engine pushes - behind one
// interface with two implementations, generalizing the original daemon's
// async DNS-lookup queue duality (NewMemoryClient vs NewClient) from a
// per-request job queue into a tick scheduler. In standalone mode ticks
// run on plain in-memory timers; when a Redis address is configured,
// ticks are scheduled through Asynq's periodic task manager so that a
// multi-instance deployment has only one active scheduler per job name.
package tasks

import (
	"context"
	"time"
)

// Job is one piece of periodic work: Run is invoked every Interval until
// the scheduler's context is cancelled.
type Job struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) error
}

// Scheduler ticks a set of registered Jobs until its context is
// cancelled. RegisterPeriodic must be called before Run.
type Scheduler interface {
	RegisterPeriodic(job Job)
	Run(ctx context.Context) error
}
