// Package scheduler manages the engine's recurring job lifecycle.
//
// Crypto markets never close, so jobs are scheduled on wall-clock
// boundaries rather than a trading calendar:
//
// Daily jobs (at a chosen UTC hour; the engine uses midnight):
//   - Reset the risk gate's day anchor equity and the circuit breaker
//
// Periodic jobs (fixed interval):
//   - Sample equity to the store and alert while the circuit breaker is tripped
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// JobType categorizes when a job should run.
type JobType string

const (
	JobTypeDaily    JobType = "DAILY"
	JobTypePeriodic JobType = "PERIODIC"
)

// Job represents a scheduled task.
type Job struct {
	Name    string
	Type    JobType
	RunFunc func(ctx context.Context) error
}

// Scheduler runs registered jobs on daily and periodic cadences.
type Scheduler struct {
	jobs   []Job
	logger zerolog.Logger
}

// New creates a new scheduler.
func New(logger zerolog.Logger) *Scheduler {
	return &Scheduler{logger: logger}
}

// RegisterJob adds a job to the scheduler.
func (s *Scheduler) RegisterJob(job Job) {
	s.jobs = append(s.jobs, job)
	s.logger.Info().Str("job", job.Name).Str("type", string(job.Type)).Msg("scheduler: registered job")
}

// RunDailyJobs executes all daily jobs in sequence. Intended to run once
// per UTC day, triggered by RunDailyAt.
func (s *Scheduler) RunDailyJobs(ctx context.Context) error {
	s.logger.Info().Msg("scheduler: starting daily job cycle")

	for _, job := range s.jobs {
		if job.Type != JobTypeDaily {
			continue
		}

		start := time.Now()
		if err := job.RunFunc(ctx); err != nil {
			s.logger.Error().Err(err).Str("job", job.Name).Msg("scheduler: daily job failed")
			return fmt.Errorf("daily job %s failed: %w", job.Name, err)
		}
		s.logger.Info().Str("job", job.Name).Dur("elapsed", time.Since(start)).Msg("scheduler: daily job completed")
	}

	return nil
}

// RunDailyAt blocks, running RunDailyJobs once every time the wall clock
// reaches the given UTC hour (0 for midnight), until ctx is cancelled.
func (s *Scheduler) RunDailyAt(ctx context.Context, hour int) error {
	for {
		next := nextOccurrence(time.Now().UTC(), hour)
		timer := time.NewTimer(time.Until(next))

		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
			if err := s.RunDailyJobs(ctx); err != nil {
				s.logger.Error().Err(err).Msg("scheduler: daily cycle returned error, continuing")
			}
		}
	}
}

// RunPeriodicJobs executes every periodic job once. Failures are logged
// and do not stop other jobs, since a single failed health check should
// not halt the engine.
func (s *Scheduler) RunPeriodicJobs(ctx context.Context) {
	for _, job := range s.jobs {
		if job.Type != JobTypePeriodic {
			continue
		}

		if err := job.RunFunc(ctx); err != nil {
			s.logger.Error().Err(err).Str("job", job.Name).Msg("scheduler: periodic job failed")
		}
	}
}

// RunPeriodicEvery blocks, calling RunPeriodicJobs on every tick of
// interval, until ctx is cancelled.
func (s *Scheduler) RunPeriodicEvery(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.RunPeriodicJobs(ctx)
		}
	}
}

// nextOccurrence returns the next time after now at the given UTC hour.
func nextOccurrence(now time.Time, hour int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, time.UTC)
	if !next.After(now) {
		next = next.Add(24 * time.Hour)
	}
	return next
}
