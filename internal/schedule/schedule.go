// Package schedule wires up the cron job that periodically triggers
// ingestion runs in daemon mode.
package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/danilopena0/canopy/internal/model"
)

// Runner is the slice of the orchestrator the scheduler needs.
type Runner interface {
	Run(ctx context.Context, req model.RunRequest) (model.RunSummary, error)
}

// Scheduler wraps robfig/cron and fires ingestion runs on a spec like
// "@every 6h" or a standard five-field cron expression.
type Scheduler struct {
	cron   *cron.Cron
	runner Runner
	req    model.RunRequest
	spec   string
	logger *slog.Logger

	mu      sync.Mutex
	running bool
}

// New creates a scheduler for the given cron spec and run request.
func New(runner Runner, req model.RunRequest, spec string, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		cron:   cron.New(),
		runner: runner,
		req:    req,
		spec:   spec,
		logger: logger,
	}
}

// Start registers the job and starts the scheduler. One run fires
// immediately so the store is populated without waiting for the first tick.
func (s *Scheduler) Start(ctx context.Context) error {
	_, err := s.cron.AddFunc(s.spec, func() {
		s.runOnce(ctx)
	})
	if err != nil {
		return fmt.Errorf("register cron spec %q: %w", s.spec, err)
	}

	s.cron.Start()
	s.logger.Info("scheduler started", "spec", s.spec, "sources", s.req.Sources)

	go s.runOnce(ctx)

	return nil
}

// Stop shuts the scheduler down and waits for an in-flight run to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("scheduler stopped")
}

// runOnce executes a single ingestion run. Overlapping ticks are dropped: a
// run still in flight when the next fires wins, the tick is skipped.
func (s *Scheduler) runOnce(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		s.logger.Warn("previous run still in flight, skipping tick")
		return
	}
	s.running = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	if ctx.Err() != nil {
		return
	}

	summary, err := s.runner.Run(ctx, s.req)
	if err != nil {
		s.logger.Error("scheduled run aborted", "error", err)
		return
	}
	s.logger.Info("scheduled run finished",
		"run_id", summary.ID,
		"found", summary.JobsFound,
		"new", summary.NewJobs,
		"duplicates", summary.Duplicates,
		"errors", len(summary.Errors),
	)
}
