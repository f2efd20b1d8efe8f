package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/multierr"

	"github.com/lei/runci/internal/engine"
	"github.com/lei/runci/internal/models"
	"github.com/lei/runci/internal/sink"
	"github.com/lei/runci/internal/store"
	"github.com/lei/runci/pkg/logger"
)

var (
	// ErrRunNotFound indicates the requested run doesn't exist
	ErrRunNotFound = errors.New("run not found")
	// ErrRunFinished indicates a cancel arrived after the run finished
	ErrRunFinished = errors.New("run already finished")
)

// Options tunes service behavior beyond its collaborators
type Options struct {
	// SupersedeOnPush cancels in-flight runs for a ref when a newer
	// push to the same ref dispatches a run
	SupersedeOnPush bool
}

// Service coordinates trigger evaluation, run dispatch and result
// recording between the API and the execution engine
type Service struct {
	pipeline  *models.Pipeline
	scheduler *engine.Scheduler
	registry  *engine.Registry
	store     store.RunStore
	sink      sink.Sink
	opts      Options
	logger    *logger.Logger

	wg sync.WaitGroup
}

// NewService creates a new service instance
func NewService(pipeline *models.Pipeline, sched *engine.Scheduler, reg *engine.Registry,
	st store.RunStore, sk sink.Sink, opts Options, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewNop()
	}
	return &Service{
		pipeline:  pipeline,
		scheduler: sched,
		registry:  reg,
		store:     st,
		sink:      sk,
		opts:      opts,
		logger:    log,
	}
}

// getLogger retrieves the request-scoped logger from context or falls
// back to the service logger
func (s *Service) getLogger(ctx context.Context) *logger.Logger {
	if ctxLogger, ok := logger.FromContext(ctx); ok {
		return ctxLogger
	}
	return s.logger
}

// Pipeline returns the loaded pipeline document
func (s *Service) Pipeline() *models.Pipeline {
	return s.pipeline
}

// HandleEvent evaluates the event against the pipeline's trigger rules
// and dispatches a run when a rule matches. A nil run with nil error
// means no rule matched, which is a normal outcome. The run executes in
// the background; its context is detached from the request context so
// an HTTP disconnect never cancels a dispatched run.
func (s *Service) HandleEvent(ctx context.Context, event models.Event) (*models.Run, error) {
	log := s.getLogger(ctx)

	log.Debug("service: evaluating event", "kind", event.Kind, "ref", event.Ref)

	jobs := engine.SelectJobs(event, s.pipeline)
	if jobs == nil {
		log.Info("service: no trigger rule matched", "kind", event.Kind, "ref", event.Ref)
		return nil, nil
	}

	run, err := engine.NewRun(s.pipeline.Name, event, jobs)
	if err != nil {
		log.Error("service: failed to create run", "error", err)
		return nil, fmt.Errorf("create run: %w", err)
	}

	if s.opts.SupersedeOnPush && event.Kind == models.EventPush {
		if n := s.registry.CancelByRef(event.Ref); n > 0 {
			log.Info("service: superseded in-flight runs", "ref", event.Ref, "count", n)
		}
	}

	runCtx, cancel := context.WithCancel(context.Background())
	s.registry.Add(run, cancel)

	// Snapshot before the run starts moving; the live object belongs to
	// the execute goroutine from here on.
	snapshot, _ := s.registry.Get(run.RunID)

	log.Info("service: run dispatched",
		"run_id", run.RunID,
		"pipeline", run.Pipeline,
		"jobs", len(run.Jobs))

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.execute(runCtx, run)
	}()

	return snapshot, nil
}

// execute drives one run to its terminal status and records the result
func (s *Service) execute(ctx context.Context, run *models.Run) {
	s.registry.MarkRunning(run.RunID)

	result, err := s.scheduler.Schedule(ctx, run)
	if err != nil {
		s.logger.Info("run had unsuccessful jobs", "run_id", run.RunID, "error", err)
	}
	s.registry.Complete(run.RunID, result)

	// Terminal runs move to the history store; the registry entry stays
	// only when persisting failed, so the run remains visible somewhere.
	if err := s.store.SaveRun(context.Background(), run); err != nil {
		s.logger.Error("failed to persist run", "run_id", run.RunID, "error", err)
	} else {
		s.registry.Remove(run.RunID)
	}
	if err := s.sink.Publish(context.Background(), run, &result); err != nil {
		s.logger.Error("failed to publish run result", "run_id", run.RunID, "error", err)
	}
}

// GetRun retrieves a run from the registry or, failing that, the store
func (s *Service) GetRun(ctx context.Context, runID string) (*models.Run, error) {
	log := s.getLogger(ctx)

	if run, ok := s.registry.Get(runID); ok {
		return run, nil
	}

	run, err := s.store.GetRun(ctx, runID)
	if err != nil {
		if errors.Is(err, store.ErrRunNotFound) {
			log.Debug("service: run not found", "run_id", runID)
			return nil, ErrRunNotFound
		}
		log.Error("service: store lookup failed", "run_id", runID, "error", err)
		return nil, err
	}
	return run, nil
}

// ListRuns returns in-flight runs from the registry and finished runs
// from the history store, newest first
func (s *Service) ListRuns(ctx context.Context) ([]*models.Run, error) {
	runs := s.registry.List()
	seen := make(map[string]bool, len(runs))
	for _, run := range runs {
		seen[run.RunID] = true
	}

	stored, err := s.store.ListRuns(ctx)
	if err != nil {
		s.getLogger(ctx).Error("service: store listing failed", "error", err)
		return nil, err
	}
	for _, run := range stored {
		if !seen[run.RunID] {
			runs = append(runs, run)
		}
	}

	sort.Slice(runs, func(i, j int) bool {
		return runs[i].CreatedAt.After(runs[j].CreatedAt)
	})
	return runs, nil
}

// CancelRun broadcasts cancellation into an in-flight run
func (s *Service) CancelRun(ctx context.Context, runID string) error {
	log := s.getLogger(ctx)

	log.Info("service: canceling run", "run_id", runID)

	err := s.registry.Cancel(runID)
	switch {
	case errors.Is(err, engine.ErrRunNotFound):
		// Terminal runs live only in the store; a cancel for one is a
		// late cancel, not an unknown run.
		if _, storeErr := s.store.GetRun(ctx, runID); storeErr == nil {
			return ErrRunFinished
		}
		return ErrRunNotFound
	case errors.Is(err, engine.ErrRunFinished):
		return ErrRunFinished
	case err != nil:
		log.Error("service: cancel failed", "run_id", runID, "error", err)
		return err
	}

	log.Info("service: run canceled", "run_id", runID)
	return nil
}

// WaitRun blocks until the run reaches a terminal status and returns it.
// A run that already finished and moved to the history store is returned
// from there.
func (s *Service) WaitRun(ctx context.Context, runID string) (*models.Run, error) {
	err := s.registry.Wait(ctx, runID)
	switch {
	case err == nil:
		if run, ok := s.registry.Get(runID); ok {
			return run, nil
		}
	case errors.Is(err, engine.ErrRunNotFound):
	default:
		return nil, err
	}

	run, err := s.store.GetRun(ctx, runID)
	if err != nil {
		if errors.Is(err, store.ErrRunNotFound) {
			return nil, ErrRunNotFound
		}
		return nil, err
	}
	return run, nil
}

// HealthCheck reports service health and the in-flight run count
func (s *Service) HealthCheck(ctx context.Context) map[string]interface{} {
	inflight := 0
	for _, run := range s.registry.List() {
		if !run.Status.Terminal() {
			inflight++
		}
	}

	return map[string]interface{}{
		"status":   "healthy",
		"service":  "runci",
		"pipeline": s.pipeline.Name,
		"runs": map[string]interface{}{
			"in_flight": inflight,
		},
	}
}

// Close waits for in-flight runs to finish recording and shuts down
// the sink and store
func (s *Service) Close() error {
	s.wg.Wait()

	var errs error
	errs = multierr.Append(errs, s.sink.Close())
	errs = multierr.Append(errs, s.store.Close())
	return errs
}
