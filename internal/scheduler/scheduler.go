package scheduler

import (
	"context"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/i474232898/weather-prediction/internal/logger"
	"github.com/i474232898/weather-prediction/internal/weather"
)

// Scheduler periodically prunes cache entries older than maxAge.
type Scheduler struct {
	scheduler *gocron.Scheduler
	pruner    weather.Pruner
	maxAge    time.Duration
	interval  time.Duration
	log       logger.Logger
}

// New creates a new Scheduler. pruner may be nil for backends that expire
// entries on their own.
func New(pruner weather.Pruner, maxAge, interval time.Duration, log logger.Logger) *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	return &Scheduler{
		scheduler: s,
		pruner:    pruner,
		maxAge:    maxAge,
		interval:  interval,
		log:       log.WithField("component", "scheduler"),
	}
}

// Start schedules the housekeeping job and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	if s.pruner == nil || s.maxAge <= 0 {
		s.log.Info("cache housekeeping disabled")
		return nil
	}

	interval := s.interval
	if interval <= 0 {
		interval = time.Hour
	}

	_, err := s.scheduler.Every(interval).Do(s.RunOnce)
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

// RunOnce prunes the cache a single time.
func (s *Scheduler) RunOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	removed, err := s.pruner.Prune(ctx, s.maxAge)
	if err != nil {
		s.log.Errorf("cache prune failed: %v", err)
		return
	}
	s.log.WithField("removed", removed).Infof("pruned cache entries older than %s", s.maxAge)
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
