// Package scheduler runs named jobs once a day at a fixed hour in a given
// zone. A job still running when its next slot comes up is skipped.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Job is one unit of scheduled work.
type Job func(ctx context.Context) error

type entry struct {
	name    string
	hour    int
	job     Job
	running atomic.Bool
}

type Scheduler struct {
	loc *time.Location
	now func() time.Time

	mu      sync.Mutex
	entries []*entry

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(loc *time.Location) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	return &Scheduler{loc: loc, now: time.Now}
}

// Daily registers job to run every day at hour:00. Must be called before Start.
func (s *Scheduler) Daily(name string, hour int, job Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, &entry{name: name, hour: hour, job: job})
}

func (s *Scheduler) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.entries {
		s.wg.Add(1)
		go s.loop(ctx, e)
	}
	slog.Info("scheduler started", "jobs", len(s.entries), "timezone", s.loc.String())
}

// Stop cancels pending slots and waits for running jobs to return.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

func (s *Scheduler) loop(ctx context.Context, e *entry) {
	defer s.wg.Done()
	for {
		next := NextRun(s.now(), e.hour, s.loc)
		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			s.wg.Add(1)
			go func() {
				defer s.wg.Done()
				s.run(ctx, e)
			}()
		}
	}
}

// run reports false when e was still running and this slot was skipped.
func (s *Scheduler) run(ctx context.Context, e *entry) bool {
	if !e.running.CompareAndSwap(false, true) {
		slog.Warn("scheduled job still running, skipping", "job", e.name)
		return false
	}
	defer e.running.Store(false)

	started := time.Now()
	if err := e.job(ctx); err != nil {
		slog.Error("scheduled job failed", "job", e.name, "error", err, "action", "schedule")
		return true
	}
	slog.Info("scheduled job finished", "job", e.name, "duration", time.Since(started).String())
	return true
}

// NextRun is the first hour:00 in loc strictly after now.
func NextRun(now time.Time, hour int, loc *time.Location) time.Time {
	local := now.In(loc)
	next := time.Date(local.Year(), local.Month(), local.Day(), hour, 0, 0, 0, loc)
	if !next.After(local) {
		next = time.Date(local.Year(), local.Month(), local.Day()+1, hour, 0, 0, 0, loc)
	}
	return next
}
