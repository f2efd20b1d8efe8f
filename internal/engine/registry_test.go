package engine

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/lei/runci/internal/models"
)

func registeredRun(t *testing.T, reg *Registry, ref string) (*models.Run, context.Context) {
	t.Helper()
	run, err := NewRun("p", models.Event{Kind: models.EventPush, Ref: ref}, jobsOf("a"))
	if err != nil {
		t.Fatalf("NewRun() error = %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	reg.Add(run, cancel)
	return run, ctx
}

func TestRegistry_AddGetList(t *testing.T) {
	reg := NewRegistry()

	first, _ := registeredRun(t, reg, "main")
	second, _ := registeredRun(t, reg, "main")

	if _, ok := reg.Get(first.RunID); !ok {
		t.Error("Get() did not find registered run")
	}
	if _, ok := reg.Get("nope"); ok {
		t.Error("Get() found an unregistered run")
	}
	if got := len(reg.List()); got != 2 {
		t.Errorf("List() = %d runs, want 2", got)
	}
	_ = second
}

func TestRegistry_GetReturnsSnapshot(t *testing.T) {
	reg := NewRegistry()
	run, _ := registeredRun(t, reg, "main")

	before, ok := reg.Get(run.RunID)
	if !ok {
		t.Fatal("Get() did not find registered run")
	}
	if before == run {
		t.Fatal("Get() returned the registry's live run, want a snapshot")
	}

	reg.MarkRunning(run.RunID)
	reg.Complete(run.RunID, models.RunResult{RunID: run.RunID, Status: models.StatusSuccess})

	if before.Status != models.RunQueued {
		t.Errorf("earlier snapshot moved to %s, want queued", before.Status)
	}
	if before.Result != nil || before.FinishedAt != nil {
		t.Error("earlier snapshot picked up the terminal result")
	}

	after, _ := reg.Get(run.RunID)
	if after.Status != models.RunSuccess || after.Result == nil {
		t.Errorf("fresh snapshot = {%s, %v}, want terminal state", after.Status, after.Result)
	}
}

func TestRegistry_ReadWhileCompleting(t *testing.T) {
	// A reader encoding snapshots must never observe the lifecycle
	// writes in MarkRunning and Complete mid-flight
	reg := NewRegistry()
	run, _ := registeredRun(t, reg, "main")

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			if snap, ok := reg.Get(run.RunID); ok {
				if _, err := json.Marshal(snap); err != nil {
					t.Errorf("Marshal(Get()) error = %v", err)
					return
				}
			}
			for _, snap := range reg.List() {
				if _, err := json.Marshal(snap); err != nil {
					t.Errorf("Marshal(List()) error = %v", err)
					return
				}
			}
		}
	}()

	reg.MarkRunning(run.RunID)
	reg.Complete(run.RunID, models.RunResult{RunID: run.RunID, Status: models.StatusSuccess})
	wg.Wait()
}

func TestRegistry_Remove(t *testing.T) {
	reg := NewRegistry()
	inflight, _ := registeredRun(t, reg, "main")
	finished, _ := registeredRun(t, reg, "main")
	reg.Complete(finished.RunID, models.RunResult{RunID: finished.RunID, Status: models.StatusSuccess})

	reg.Remove(inflight.RunID)
	if _, ok := reg.Get(inflight.RunID); !ok {
		t.Error("Remove() dropped an in-flight run")
	}

	reg.Remove(finished.RunID)
	if _, ok := reg.Get(finished.RunID); ok {
		t.Error("Remove() kept a terminal run")
	}
}

func TestRegistry_Cancel(t *testing.T) {
	reg := NewRegistry()
	run, ctx := registeredRun(t, reg, "main")

	if err := reg.Cancel("nope"); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("Cancel(unknown) = %v, want ErrRunNotFound", err)
	}

	if err := reg.Cancel(run.RunID); err != nil {
		t.Fatalf("Cancel() error = %v", err)
	}
	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("run context not canceled")
	}
}

func TestRegistry_CancelAfterComplete(t *testing.T) {
	reg := NewRegistry()
	run, _ := registeredRun(t, reg, "main")

	reg.Complete(run.RunID, models.RunResult{RunID: run.RunID, Status: models.StatusSuccess})

	if err := reg.Cancel(run.RunID); !errors.Is(err, ErrRunFinished) {
		t.Errorf("Cancel(finished) = %v, want ErrRunFinished", err)
	}
	if run.Status != models.RunSuccess {
		t.Errorf("Status = %s, want %s", run.Status, models.RunSuccess)
	}
	if run.Result == nil || run.FinishedAt == nil {
		t.Error("Complete() did not record result and finish time")
	}
}

func TestRegistry_CancelByRef(t *testing.T) {
	reg := NewRegistry()
	older, olderCtx := registeredRun(t, reg, "main")
	_, featureCtx := registeredRun(t, reg, "feature/x")
	finished, _ := registeredRun(t, reg, "main")
	reg.Complete(finished.RunID, models.RunResult{RunID: finished.RunID, Status: models.StatusSuccess})

	if n := reg.CancelByRef("main"); n != 1 {
		t.Errorf("CancelByRef() = %d, want 1 (terminal runs are not canceled)", n)
	}
	select {
	case <-olderCtx.Done():
	case <-time.After(time.Second):
		t.Fatalf("run %s for main not canceled", older.RunID)
	}
	if featureCtx.Err() != nil {
		t.Error("run for a different ref was canceled")
	}
}

func TestRegistry_Wait(t *testing.T) {
	reg := NewRegistry()
	run, _ := registeredRun(t, reg, "main")

	go func() {
		time.Sleep(50 * time.Millisecond)
		reg.Complete(run.RunID, models.RunResult{RunID: run.RunID, Status: models.StatusSuccess})
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := reg.Wait(ctx, run.RunID); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}

	if err := reg.Wait(ctx, "nope"); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("Wait(unknown) = %v, want ErrRunNotFound", err)
	}
}
