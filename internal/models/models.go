package models

import "time"

// EventKind is the kind of event that can dispatch a pipeline run
type EventKind string

const (
	EventPush        EventKind = "push"
	EventPullRequest EventKind = "pull_request"
)

// Event is an incoming trigger event delivered by an external
// webhook/ingestion layer
type Event struct {
	Kind EventKind `json:"kind"`
	Ref  string    `json:"ref"` // branch name, e.g. "main"
}

// TriggerRule gates pipeline dispatch for one event kind.
// For push events the ref must match one of Branches exactly;
// an empty Branches list matches any ref.
type TriggerRule struct {
	Kind     EventKind `json:"kind" yaml:"kind"`
	Branches []string  `json:"branches,omitempty" yaml:"branches,omitempty"`
}

// Step is the smallest unit of work: one command execution.
// Immutable once loaded.
type Step struct {
	Name    string        `json:"name" yaml:"name"`
	Command []string      `json:"command" yaml:"command"` // argv vector
	Dir     string        `json:"dir,omitempty" yaml:"dir,omitempty"`
	Timeout time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

// Job is an independently schedulable unit within a run, containing an
// ordered step sequence. Jobs within one run carry no ordering
// constraints between each other.
type Job struct {
	Name  string `json:"name" yaml:"name"`
	Steps []Step `json:"steps" yaml:"steps"`
}

// Pipeline is the full declarative document: triggers plus jobs.
// Produced by the loader, read-only for the life of every run.
type Pipeline struct {
	Name     string        `json:"name"`
	Triggers []TriggerRule `json:"triggers"`
	Jobs     []Job         `json:"jobs"`
}

// Status is a terminal result status at step, job or run level
type Status string

const (
	StatusSuccess  Status = "success"
	StatusFailure  Status = "failure"
	StatusCanceled Status = "canceled"
	StatusSkipped  Status = "skipped" // steps after a fail-fast stop
)

// RunStatus represents the lifecycle state of a run
type RunStatus string

const (
	RunQueued   RunStatus = "queued"
	RunRunning  RunStatus = "running"
	RunSuccess  RunStatus = RunStatus(StatusSuccess)
	RunFailure  RunStatus = RunStatus(StatusFailure)
	RunCanceled RunStatus = RunStatus(StatusCanceled)
)

// Terminal reports whether the run has reached a final status
func (s RunStatus) Terminal() bool {
	switch s {
	case RunSuccess, RunFailure, RunCanceled:
		return true
	}
	return false
}

// Failure causes recorded on step results. A plain nonzero exit carries
// no cause, only the exit code.
const (
	CauseLaunchError = "launch_error" // command could not start
	CauseTimeout     = "timeout"      // step exceeded its deadline
)

// StepResult is the outcome of one step execution
type StepResult struct {
	Name      string        `json:"name"`
	Status    Status        `json:"status"`
	ExitCode  int           `json:"exit_code"` // -1 when no exit code exists
	Cause     string        `json:"cause,omitempty"`
	Error     string        `json:"error,omitempty"`
	Output    string        `json:"output,omitempty"`
	Truncated bool          `json:"truncated,omitempty"`
	Duration  time.Duration `json:"duration"`
}

// JobResult is the outcome of one job: per-step results in declared order
type JobResult struct {
	Name     string        `json:"name"`
	Status   Status        `json:"status"`
	Steps    []StepResult  `json:"steps"`
	Duration time.Duration `json:"duration"`
}

// RunResult aggregates job results into the run verdict
type RunResult struct {
	RunID    string        `json:"run_id"`
	Status   Status        `json:"status"`
	Jobs     []JobResult   `json:"jobs"`
	Duration time.Duration `json:"duration"`
}

// Run is one execution instance of a pipeline against a triggering event.
// The lifecycle owner mutates Status, Result and the timestamps; every
// other reader gets a Clone.
type Run struct {
	RunID      string     `json:"run_id"`
	Pipeline   string     `json:"pipeline"`
	Event      Event      `json:"event"`
	Jobs       []Job      `json:"-"`
	Status     RunStatus  `json:"status"`
	Result     *RunResult `json:"result,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// Clone returns a copy of the run that stays stable while the original
// keeps moving through its lifecycle. Jobs and Result are written once
// before publication and shared.
func (r *Run) Clone() *Run {
	c := *r
	if r.StartedAt != nil {
		t := *r.StartedAt
		c.StartedAt = &t
	}
	if r.FinishedAt != nil {
		t := *r.FinishedAt
		c.FinishedAt = &t
	}
	return &c
}
