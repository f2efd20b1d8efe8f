package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/multierr"

	"github.com/lei/runci/internal/models"
	"github.com/lei/runci/pkg/logger"
)

// DefaultMaxConcurrency bounds how many jobs of one run execute at once
const DefaultMaxConcurrency = 4

// Scheduler fans a run's jobs out to concurrent job runners under an
// admission semaphore and aggregates their results into the run verdict.
// Jobs are independent failure domains: one job failing does not cancel
// its siblings.
type Scheduler struct {
	runner         *JobRunner
	maxConcurrency int
	log            *logger.Logger
}

// NewScheduler creates a scheduler executing at most maxConcurrency
// jobs at a time
func NewScheduler(runner *JobRunner, maxConcurrency int, log *logger.Logger) *Scheduler {
	if maxConcurrency <= 0 {
		maxConcurrency = DefaultMaxConcurrency
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Scheduler{runner: runner, maxConcurrency: maxConcurrency, log: log}
}

// Schedule executes all jobs of the run and blocks until every job has
// a terminal result. The returned error summarizes jobs that did not
// succeed; the verdict itself is carried by the result's status.
func (s *Scheduler) Schedule(ctx context.Context, run *models.Run) (models.RunResult, error) {
	start := time.Now()
	s.log.Info("scheduling run", "run_id", run.RunID, "jobs", len(run.Jobs),
		"max_concurrency", s.maxConcurrency)

	sem := make(chan struct{}, s.maxConcurrency)
	results := make([]models.JobResult, len(run.Jobs))

	var wg sync.WaitGroup
	for i, job := range run.Jobs {
		wg.Add(1)
		go func(i int, job models.Job) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			results[i] = s.runner.Run(ctx, job)
		}(i, job)
	}
	wg.Wait()

	result := models.RunResult{
		RunID:    run.RunID,
		Status:   models.StatusSuccess,
		Jobs:     results,
		Duration: time.Since(start),
	}

	var errs error
	for _, jr := range results {
		if jr.Status == models.StatusSuccess {
			continue
		}
		result.Status = models.StatusFailure
		errs = multierr.Append(errs, fmt.Errorf("job %q: %s", jr.Name, jr.Status))
	}
	// An externally canceled run reports canceled, not failure.
	if ctx.Err() != nil {
		result.Status = models.StatusCanceled
	}

	s.log.Info("run finished", "run_id", run.RunID, "status", result.Status,
		"duration_ms", result.Duration.Milliseconds())
	return result, errs
}
