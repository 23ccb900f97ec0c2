// Package scheduler runs the periodic maintenance jobs of the cache: the blob
// sweep and the relational age purge.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"editorial-cache/internal/common/logging"
	"editorial-cache/internal/storage"
)

// Sweeper removes expired cache entries and reports how many it removed.
type Sweeper interface {
	CleanupExpired() (int, error)
}

// Purger deletes old relational rows.
type Purger interface {
	Purge(ctx context.Context, opts storage.PurgeOptions) (storage.PurgeResult, error)
}

// Config holds the cron specs and the purge age.
type Config struct {
	SweepSchedule string
	PurgeSchedule string
	PurgeAfter    time.Duration
}

// Scheduler wraps a robfig/cron runner with the two maintenance jobs.
type Scheduler struct {
	cron    *cron.Cron
	sweeper Sweeper
	purger  Purger
	config  Config
	logger  logging.Logger
}

// New registers the jobs without starting them. An empty schedule disables its job.
func New(config Config, sweeper Sweeper, purger Purger) (*Scheduler, error) {
	logger := logging.Component("scheduler")
	s := &Scheduler{
		cron:    cron.New(cron.WithLogger(cronLogger{logger: logger})),
		sweeper: sweeper,
		purger:  purger,
		config:  config,
		logger:  logger,
	}

	if config.SweepSchedule != "" && sweeper != nil {
		if _, err := s.cron.AddFunc(config.SweepSchedule, s.RunSweep); err != nil {
			return nil, fmt.Errorf("invalid sweep schedule %q: %w", config.SweepSchedule, err)
		}
	}
	if config.PurgeSchedule != "" && purger != nil {
		if _, err := s.cron.AddFunc(config.PurgeSchedule, s.RunPurge); err != nil {
			return nil, fmt.Errorf("invalid purge schedule %q: %w", config.PurgeSchedule, err)
		}
	}
	return s, nil
}

// Start runs the cron loop in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("Maintenance scheduler started",
		logging.String("sweep", s.config.SweepSchedule),
		logging.String("purge", s.config.PurgeSchedule),
		logging.Int("jobs", s.Jobs()),
	)
}

// Stop stops the cron loop and waits for running jobs, bounded by ctx.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.logger.Warn("Scheduler stopped before running jobs finished")
	}
}

// Jobs returns the number of registered jobs.
func (s *Scheduler) Jobs() int {
	return len(s.cron.Entries())
}

// RunSweep executes the blob sweep once.
func (s *Scheduler) RunSweep() {
	removed, err := s.sweeper.CleanupExpired()
	if err != nil {
		s.logger.Error("Blob sweep failed", err)
		return
	}
	s.logger.Debug("Blob sweep finished", logging.Int("removed", removed))
}

// RunPurge executes the age purge once.
func (s *Scheduler) RunPurge() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	result, err := s.purger.Purge(ctx, storage.PurgeOptions{OlderThan: s.config.PurgeAfter})
	if err != nil {
		s.logger.Error("Age purge failed", err)
		return
	}
	s.logger.Info("Age purge finished",
		logging.Int64("manuscripts", result.Manuscripts),
		logging.Int64("extraction_runs", result.ExtractionRuns),
	)
}

// cronLogger adapts the cache logger to cron.Logger
type cronLogger struct {
	logger logging.Logger
}

func (l cronLogger) fields(keysAndValues []interface{}) []logging.Field {
	fields := make([]logging.Field, 0, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		fields = append(fields, logging.Any(fmt.Sprint(keysAndValues[i]), keysAndValues[i+1]))
	}
	return fields
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug("cron: "+msg, l.fields(keysAndValues)...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error("cron: "+msg, err, l.fields(keysAndValues)...)
}
