// Package sink delivers terminal run results to external reporting
// collaborators. The engine only hands results over; it never defines a
// wire format beyond the JSON shape of the result models.
package sink

import (
	"context"

	"go.uber.org/multierr"

	"github.com/lei/runci/internal/models"
)

// Sink receives the terminal result of every run
type Sink interface {
	// Publish delivers a finished run and its result
	Publish(ctx context.Context, run *models.Run, result *models.RunResult) error

	// Close shuts the sink down gracefully
	Close() error
}

// Multi fans results out to several sinks, delivering to all of them
// even when some fail
type Multi []Sink

// Publish delivers to every sink and combines their errors
func (m Multi) Publish(ctx context.Context, run *models.Run, result *models.RunResult) error {
	var errs error
	for _, s := range m {
		errs = multierr.Append(errs, s.Publish(ctx, run, result))
	}
	return errs
}

// Close closes every sink and combines their errors
func (m Multi) Close() error {
	var errs error
	for _, s := range m {
		errs = multierr.Append(errs, s.Close())
	}
	return errs
}
