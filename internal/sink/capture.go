package sink

import (
	"context"
	"sync"

	"github.com/lei/runci/internal/models"
)

// Capture retains published results in memory, for tests and for
// embedding applications that want direct access to results
type Capture struct {
	mu      sync.Mutex
	results []CapturedResult
}

// CapturedResult is one published run result
type CapturedResult struct {
	Run    *models.Run
	Result *models.RunResult
}

// NewCapture creates an empty capture sink
func NewCapture() *Capture {
	return &Capture{}
}

// Publish retains the result
func (c *Capture) Publish(ctx context.Context, run *models.Run, result *models.RunResult) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results = append(c.results, CapturedResult{Run: run, Result: result})
	return nil
}

// Results returns a copy of everything published so far
func (c *Capture) Results() []CapturedResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]CapturedResult, len(c.results))
	copy(out, c.results)
	return out
}

// Close is a no-op
func (c *Capture) Close() error {
	return nil
}
