package config

import (
	"strings"
	"testing"
	"time"

	"github.com/lei/runci/internal/models"
)

const sampleDoc = `
name: buffers
on:
  push:
    branches: [main]
  pull_request: {}
jobs:
  quality:
    steps:
      - name: clippy
        run: cargo clippy -- -D warnings
      - name: fmt
        run: cargo fmt --check
  msrv-test:
    steps:
      - name: test
        run: cargo test
        timeout: 10m
`

func TestParsePipeline(t *testing.T) {
	p, err := ParsePipeline([]byte(sampleDoc))
	if err != nil {
		t.Fatalf("ParsePipeline() error = %v", err)
	}

	if p.Name != "buffers" {
		t.Errorf("Name = %q, want buffers", p.Name)
	}

	if len(p.Triggers) != 2 {
		t.Fatalf("len(Triggers) = %d, want 2", len(p.Triggers))
	}
	if p.Triggers[0].Kind != models.EventPush || p.Triggers[0].Branches[0] != "main" {
		t.Errorf("Triggers[0] = %+v, want push to main", p.Triggers[0])
	}
	if p.Triggers[1].Kind != models.EventPullRequest {
		t.Errorf("Triggers[1].Kind = %s, want pull_request", p.Triggers[1].Kind)
	}

	// Jobs are sorted by name for a deterministic document
	if len(p.Jobs) != 2 {
		t.Fatalf("len(Jobs) = %d, want 2", len(p.Jobs))
	}
	if p.Jobs[0].Name != "msrv-test" || p.Jobs[1].Name != "quality" {
		t.Errorf("job order = [%s, %s], want [msrv-test, quality]", p.Jobs[0].Name, p.Jobs[1].Name)
	}

	// run: steps execute through the shell
	clippy := p.Jobs[1].Steps[0]
	if len(clippy.Command) != 3 || clippy.Command[0] != "sh" || clippy.Command[1] != "-c" {
		t.Errorf("clippy.Command = %v, want sh -c wrapper", clippy.Command)
	}
	if clippy.Command[2] != "cargo clippy -- -D warnings" {
		t.Errorf("clippy command line = %q", clippy.Command[2])
	}

	if p.Jobs[0].Steps[0].Timeout != 10*time.Minute {
		t.Errorf("timeout = %s, want 10m", p.Jobs[0].Steps[0].Timeout)
	}
}

func TestParsePipeline_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantErr string
	}{
		{
			name:    "no triggers",
			doc:     "jobs:\n  a:\n    steps:\n      - run: true\n",
			wantErr: "no triggers",
		},
		{
			name:    "no jobs",
			doc:     "on:\n  pull_request: {}\n",
			wantErr: "no jobs",
		},
		{
			name:    "job without steps",
			doc:     "on:\n  pull_request: {}\njobs:\n  a: {}\n",
			wantErr: "no steps",
		},
		{
			name:    "step without command",
			doc:     "on:\n  pull_request: {}\njobs:\n  a:\n    steps:\n      - name: x\n",
			wantErr: "no command",
		},
		{
			name:    "step with both run and command",
			doc:     "on:\n  pull_request: {}\njobs:\n  a:\n    steps:\n      - run: \"true\"\n        command: [\"true\"]\n",
			wantErr: "both run and command",
		},
		{
			name:    "not yaml",
			doc:     "{{{{",
			wantErr: "parse pipeline",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParsePipeline([]byte(tt.doc))
			if err == nil {
				t.Fatal("ParsePipeline() error = nil, want error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestParsePipeline_DefaultStepNames(t *testing.T) {
	p, err := ParsePipeline([]byte(
		"on:\n  pull_request: {}\njobs:\n  a:\n    steps:\n      - run: make test\n      - command: [go, vet]\n"))
	if err != nil {
		t.Fatalf("ParsePipeline() error = %v", err)
	}
	steps := p.Jobs[0].Steps
	if steps[0].Name != "make test" {
		t.Errorf("run step name = %q, want the command line", steps[0].Name)
	}
	if steps[1].Name != "go" {
		t.Errorf("command step name = %q, want the binary name", steps[1].Name)
	}
}
