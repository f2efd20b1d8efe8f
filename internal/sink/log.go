package sink

import (
	"context"

	"github.com/lei/runci/internal/models"
	"github.com/lei/runci/pkg/logger"
)

// LogSink reports run results through the structured log. It is the
// default sink when nothing else is configured.
type LogSink struct {
	log *logger.Logger
}

// NewLogSink creates a sink writing to the given logger
func NewLogSink(log *logger.Logger) *LogSink {
	if log == nil {
		log = logger.NewNop()
	}
	return &LogSink{log: log}
}

// Publish logs the run verdict and each job's outcome
func (s *LogSink) Publish(ctx context.Context, run *models.Run, result *models.RunResult) error {
	s.log.Info("run result",
		"run_id", run.RunID,
		"pipeline", run.Pipeline,
		"event", run.Event.Kind,
		"ref", run.Event.Ref,
		"status", result.Status,
		"duration_ms", result.Duration.Milliseconds())

	for _, jr := range result.Jobs {
		s.log.Info("job result",
			"run_id", run.RunID,
			"job", jr.Name,
			"status", jr.Status,
			"steps", len(jr.Steps),
			"duration_ms", jr.Duration.Milliseconds())
	}
	return nil
}

// Close is a no-op for the log sink
func (s *LogSink) Close() error {
	return nil
}
