package engine

import (
	"time"

	"github.com/google/uuid"

	"github.com/lei/runci/internal/models"
)

// NewRun creates a run for the event with a generated run id. A run
// with zero jobs is a contract violation and is refused here rather
// than silently reported as an empty success.
func NewRun(pipeline string, event models.Event, jobs []models.Job) (*models.Run, error) {
	if len(jobs) == 0 {
		return nil, ErrNoJobs
	}
	return &models.Run{
		RunID:     uuid.NewString(),
		Pipeline:  pipeline,
		Event:     event,
		Jobs:      jobs,
		Status:    models.RunQueued,
		CreatedAt: time.Now(),
	}, nil
}
