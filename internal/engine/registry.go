package engine

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/lei/runci/internal/models"
)

// Registry tracks runs from admission to terminal status and owns the
// cancel function of every in-flight run. It is created alongside the
// scheduler and accessed only through an explicit handle, never through
// package globals.
type Registry struct {
	mu   sync.RWMutex
	runs map[string]*registryEntry
}

type registryEntry struct {
	run    *models.Run
	cancel context.CancelFunc
	done   chan struct{}
}

// NewRegistry creates an empty run registry
func NewRegistry() *Registry {
	return &Registry{runs: make(map[string]*registryEntry)}
}

// Add registers a run together with its cancel function
func (r *Registry) Add(run *models.Run, cancel context.CancelFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs[run.RunID] = &registryEntry{
		run:    run,
		cancel: cancel,
		done:   make(chan struct{}),
	}
}

// Get returns a snapshot of the run with the given id. The registry's
// own run keeps being mutated by MarkRunning and Complete, so callers
// never see the live object.
func (r *Registry) Get(runID string) (*models.Run, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.runs[runID]
	if !ok {
		return nil, false
	}
	return entry.run.Clone(), true
}

// List returns snapshots of all registered runs, newest first
func (r *Registry) List() []*models.Run {
	r.mu.RLock()
	defer r.mu.RUnlock()
	runs := make([]*models.Run, 0, len(r.runs))
	for _, entry := range r.runs {
		runs = append(runs, entry.run.Clone())
	}
	sortRunsByCreation(runs)
	return runs
}

// MarkRunning transitions the run to the running state
func (r *Registry) MarkRunning(runID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if entry, ok := r.runs[runID]; ok {
		now := time.Now()
		entry.run.Status = models.RunRunning
		entry.run.StartedAt = &now
	}
}

// Complete records the terminal result of a run and releases its
// cancel function
func (r *Registry) Complete(runID string, result models.RunResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.runs[runID]
	if !ok {
		return
	}
	now := time.Now()
	entry.run.Status = models.RunStatus(result.Status)
	entry.run.Result = &result
	entry.run.FinishedAt = &now
	entry.cancel()
	close(entry.done)
}

// Cancel broadcasts cancellation into an in-flight run. It returns
// ErrRunNotFound for unknown ids and ErrRunFinished when the run is
// already terminal.
func (r *Registry) Cancel(runID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.runs[runID]
	if !ok {
		return ErrRunNotFound
	}
	if entry.run.Status.Terminal() {
		return ErrRunFinished
	}
	entry.cancel()
	return nil
}

// Remove drops a terminal run from the registry, once its result has
// been handed to the history store. In-flight runs are kept so their
// cancel functions stay reachable.
func (r *Registry) Remove(runID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if entry, ok := r.runs[runID]; ok && entry.run.Status.Terminal() {
		delete(r.runs, runID)
	}
}

// CancelByRef cancels every in-flight run triggered from the given ref.
// Used to supersede runs when a newer push to the same ref arrives.
func (r *Registry) CancelByRef(ref string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, entry := range r.runs {
		if entry.run.Event.Ref == ref && !entry.run.Status.Terminal() {
			entry.cancel()
			n++
		}
	}
	return n
}

// Wait blocks until the run reaches a terminal status or the context
// is done
func (r *Registry) Wait(ctx context.Context, runID string) error {
	r.mu.RLock()
	entry, ok := r.runs[runID]
	r.mu.RUnlock()
	if !ok {
		return ErrRunNotFound
	}
	select {
	case <-entry.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func sortRunsByCreation(runs []*models.Run) {
	sort.Slice(runs, func(i, j int) bool {
		return runs[i].CreatedAt.After(runs[j].CreatedAt)
	})
}
