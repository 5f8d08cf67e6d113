package usecase

import (
	"context"
	"log/slog"
	"time"

	"ResearchPosts/internal/ports"
)

// Scheduler wires the trigger driver with the pipeline use case.
type Scheduler struct {
	driver   ports.Scheduler
	pipeline *Pipeline
	logger   *slog.Logger
}

// NewScheduler returns a helper to start/stop recurring jobs.
func NewScheduler(driver ports.Scheduler, pipeline *Pipeline, log *slog.Logger) *Scheduler {
	return &Scheduler{driver: driver, pipeline: pipeline, logger: log}
}

// Start registers the pipeline with the provided scheduler. Run errors are logged, not returned.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.pipeline == nil {
		return nil
	}

	job := func(trigger time.Time) {
		report, err := s.pipeline.Process(ctx, trigger)
		if s.logger == nil {
			return
		}
		if err != nil {
			s.logger.Error("pipeline run failed", "trigger", trigger, "error", err)
			return
		}
		s.logger.Info("pipeline run finished",
			"batches", report.Batches,
			"seen", report.Seen,
			"added", report.Added,
			"retained", report.Retained,
			"summarized", report.Summarized,
			"delivered", report.Delivered)
	}

	return s.driver.Start(ctx, job)
}

// Stop gracefully tears down the underlying scheduler.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}

	return s.driver.Stop(ctx)
}
