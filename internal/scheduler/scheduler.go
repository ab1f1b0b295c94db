package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/i474232898/agro-insight/internal/agro"
)

const jobTimeout = 30 * time.Second

// Jobs is the work the scheduler drives.
type Jobs interface {
	Warm(ctx context.Context, coords []agro.Coordinate) int
	Probe(ctx context.Context) map[string]agro.Health
	SweepCache() int
}

// Intervals configures how often each job runs. A zero interval disables the job.
type Intervals struct {
	Warm    time.Duration
	Probe   time.Duration
	Cleanup time.Duration
}

// Scheduler periodically warms the cache, probes adapters and sweeps expired entries.
type Scheduler struct {
	scheduler *gocron.Scheduler
	jobs      Jobs
	locations []agro.Coordinate
	intervals Intervals
	log       *slog.Logger
}

// New creates a new Scheduler.
func New(jobs Jobs, locations []agro.Coordinate, intervals Intervals, log *slog.Logger) *Scheduler {
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		jobs:      jobs,
		locations: locations,
		intervals: intervals,
		log:       log.With("component", "scheduler"),
	}
}

// Start registers the jobs and starts the underlying scheduler. Each job also runs once
// immediately.
func (s *Scheduler) Start() error {
	if s.intervals.Warm > 0 && len(s.locations) > 0 {
		if _, err := s.scheduler.Every(s.intervals.Warm).Do(s.warm); err != nil {
			return err
		}
	} else {
		s.log.Info("no warm locations configured; cache warming disabled")
	}
	if s.intervals.Probe > 0 {
		if _, err := s.scheduler.Every(s.intervals.Probe).Do(s.probe); err != nil {
			return err
		}
	}
	if s.intervals.Cleanup > 0 {
		if _, err := s.scheduler.Every(s.intervals.Cleanup).Do(s.sweep); err != nil {
			return err
		}
	}

	s.scheduler.StartAsync()
	return nil
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}

func (s *Scheduler) warm() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	n := s.jobs.Warm(ctx, s.locations)
	s.log.Info("cache warmed", "locations", n)
}

func (s *Scheduler) probe() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	for adapter, h := range s.jobs.Probe(ctx) {
		if h != agro.HealthHealthy {
			s.log.Warn("adapter not healthy", "adapter", adapter, "health", h)
		}
	}
}

func (s *Scheduler) sweep() {
	if n := s.jobs.SweepCache(); n > 0 {
		s.log.Debug("expired cache entries removed", "count", n)
	}
}
