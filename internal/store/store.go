// Package store persists finished runs for later inspection. The
// registry holds live runs; the store is the history.
package store

import (
	"context"
	"errors"

	"github.com/lei/runci/internal/models"
)

// ErrRunNotFound indicates the run doesn't exist in the store
var ErrRunNotFound = errors.New("run not found in store")

// RunStore persists terminal runs
type RunStore interface {
	// SaveRun records a run that reached a terminal status
	SaveRun(ctx context.Context, run *models.Run) error

	// GetRun returns a stored run by id
	GetRun(ctx context.Context, runID string) (*models.Run, error)

	// ListRuns returns stored runs, newest first
	ListRuns(ctx context.Context) ([]*models.Run, error)

	// Close releases store resources
	Close() error
}
