package engine

import (
	"testing"

	"github.com/lei/runci/internal/models"
)

func TestShouldRun(t *testing.T) {
	mainOnly := []models.TriggerRule{
		{Kind: models.EventPush, Branches: []string{"main"}},
	}

	tests := []struct {
		name  string
		event models.Event
		rules []models.TriggerRule
		want  bool
	}{
		{
			name:  "push to main matches main filter",
			event: models.Event{Kind: models.EventPush, Ref: "main"},
			rules: mainOnly,
			want:  true,
		},
		{
			name:  "push to feature branch does not match main filter",
			event: models.Event{Kind: models.EventPush, Ref: "feature/x"},
			rules: mainOnly,
			want:  false,
		},
		{
			name:  "pull request does not match a push rule",
			event: models.Event{Kind: models.EventPullRequest, Ref: "feature/x"},
			rules: mainOnly,
			want:  false,
		},
		{
			name:  "pull request matches a pull_request rule regardless of ref",
			event: models.Event{Kind: models.EventPullRequest, Ref: "feature/x"},
			rules: []models.TriggerRule{{Kind: models.EventPullRequest}},
			want:  true,
		},
		{
			name:  "push rule without branch filter matches any ref",
			event: models.Event{Kind: models.EventPush, Ref: "feature/x"},
			rules: []models.TriggerRule{{Kind: models.EventPush}},
			want:  true,
		},
		{
			name:  "branch filter is exact, not prefix",
			event: models.Event{Kind: models.EventPush, Ref: "main-backup"},
			rules: mainOnly,
			want:  false,
		},
		{
			name:  "no rules never dispatches",
			event: models.Event{Kind: models.EventPush, Ref: "main"},
			rules: nil,
			want:  false,
		},
		{
			name:  "second rule can match",
			event: models.Event{Kind: models.EventPullRequest, Ref: "feature/x"},
			rules: []models.TriggerRule{
				{Kind: models.EventPush, Branches: []string{"main"}},
				{Kind: models.EventPullRequest},
			},
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ShouldRun(tt.event, tt.rules); got != tt.want {
				t.Errorf("ShouldRun() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSelectJobs(t *testing.T) {
	pipeline := &models.Pipeline{
		Name: "test",
		Triggers: []models.TriggerRule{
			{Kind: models.EventPush, Branches: []string{"main"}},
			{Kind: models.EventPush, Branches: []string{"main", "release"}},
		},
		Jobs: []models.Job{
			{Name: "test", Steps: []models.Step{{Name: "go test", Command: []string{"true"}}}},
			{Name: "lint", Steps: []models.Step{{Name: "vet", Command: []string{"true"}}}},
		},
	}

	t.Run("matching event selects all jobs exactly once", func(t *testing.T) {
		// Two rules match; matching is existence-only, so jobs appear once
		jobs := SelectJobs(models.Event{Kind: models.EventPush, Ref: "main"}, pipeline)
		if len(jobs) != 2 {
			t.Fatalf("SelectJobs() = %d jobs, want 2", len(jobs))
		}
	})

	t.Run("non-matching event selects nothing", func(t *testing.T) {
		jobs := SelectJobs(models.Event{Kind: models.EventPush, Ref: "feature/x"}, pipeline)
		if jobs != nil {
			t.Errorf("SelectJobs() = %v, want nil", jobs)
		}
	})
}
