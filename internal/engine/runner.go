package engine

import (
	"context"
	"time"

	"github.com/lei/runci/internal/models"
	"github.com/lei/runci/pkg/logger"
)

// JobRunner executes the ordered step sequence of one job with
// fail-fast semantics
type JobRunner struct {
	exec    StepExecutor
	workdir string
	log     *logger.Logger
}

// NewJobRunner creates a job runner that executes steps in workdir
func NewJobRunner(exec StepExecutor, workdir string, log *logger.Logger) *JobRunner {
	if log == nil {
		log = logger.NewNop()
	}
	return &JobRunner{exec: exec, workdir: workdir, log: log}
}

// Run executes the job's steps strictly in declared order. The first
// step that does not succeed stops the job: remaining steps are
// recorded as skipped and the job's status follows the stopping step
// (failure, or canceled when the step was canceled). Cancellation
// observed between steps prevents any further step from starting.
func (r *JobRunner) Run(ctx context.Context, job models.Job) models.JobResult {
	start := time.Now()
	result := models.JobResult{
		Name:   job.Name,
		Status: models.StatusSuccess,
		Steps:  make([]models.StepResult, 0, len(job.Steps)),
	}

	for i, step := range job.Steps {
		if ctx.Err() != nil {
			result.Status = models.StatusCanceled
			r.skipFrom(&result, job.Steps[i:])
			break
		}

		r.log.Debug("running step", "job", job.Name, "step", step.Name)
		stepRes := r.exec.Execute(ctx, step, r.workdir)
		result.Steps = append(result.Steps, stepRes)

		if stepRes.Status == models.StatusSuccess {
			r.log.Debug("step succeeded", "job", job.Name, "step", step.Name,
				"duration_ms", stepRes.Duration.Milliseconds())
			continue
		}

		r.log.Info("step stopped job", "job", job.Name, "step", step.Name,
			"status", stepRes.Status, "exit_code", stepRes.ExitCode, "cause", stepRes.Cause)
		result.Status = stepRes.Status
		r.skipFrom(&result, job.Steps[i+1:])
		break
	}

	result.Duration = time.Since(start)
	return result
}

// skipFrom records the remaining steps as skipped
func (r *JobRunner) skipFrom(result *models.JobResult, rest []models.Step) {
	for _, step := range rest {
		result.Steps = append(result.Steps, models.StepResult{
			Name:     step.Name,
			Status:   models.StatusSkipped,
			ExitCode: -1,
		})
	}
}
