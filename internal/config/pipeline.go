package config

import (
	"fmt"
	"os"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/lei/runci/internal/models"
)

// pipelineDoc is the on-disk pipeline document shape
type pipelineDoc struct {
	Name string            `yaml:"name"`
	On   triggerDoc        `yaml:"on"`
	Jobs map[string]jobDoc `yaml:"jobs"`
}

type triggerDoc struct {
	Push        *pushRuleDoc `yaml:"push"`
	PullRequest *struct{}    `yaml:"pull_request"`
}

type pushRuleDoc struct {
	Branches []string `yaml:"branches"`
}

type jobDoc struct {
	Steps []stepDoc `yaml:"steps"`
}

type stepDoc struct {
	Name    string        `yaml:"name"`
	Run     string        `yaml:"run"`     // shell command line
	Command []string      `yaml:"command"` // explicit argv, mutually exclusive with run
	Dir     string        `yaml:"dir"`
	Timeout time.Duration `yaml:"timeout"`
}

// LoadPipeline reads, parses and validates a pipeline document. The
// returned pipeline is immutable for the life of every run created
// from it. Shell-style `run:` steps execute through `sh -c`.
func LoadPipeline(path string) (*models.Pipeline, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read pipeline file: %w", err)
	}
	return ParsePipeline(data)
}

// ParsePipeline parses and validates pipeline document content
func ParsePipeline(data []byte) (*models.Pipeline, error) {
	var doc pipelineDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse pipeline: %w", err)
	}

	p := &models.Pipeline{Name: doc.Name}
	if p.Name == "" {
		p.Name = "pipeline"
	}

	if doc.On.Push != nil {
		p.Triggers = append(p.Triggers, models.TriggerRule{
			Kind:     models.EventPush,
			Branches: doc.On.Push.Branches,
		})
	}
	if doc.On.PullRequest != nil {
		p.Triggers = append(p.Triggers, models.TriggerRule{
			Kind: models.EventPullRequest,
		})
	}
	if len(p.Triggers) == 0 {
		return nil, fmt.Errorf("pipeline %q declares no triggers", p.Name)
	}

	if len(doc.Jobs) == 0 {
		return nil, fmt.Errorf("pipeline %q declares no jobs", p.Name)
	}

	// Jobs in a run are unordered by design; sort names so the loaded
	// document is deterministic across parses.
	names := make([]string, 0, len(doc.Jobs))
	for name := range doc.Jobs {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		jd := doc.Jobs[name]
		if len(jd.Steps) == 0 {
			return nil, fmt.Errorf("job %q has no steps", name)
		}
		job := models.Job{Name: name, Steps: make([]models.Step, 0, len(jd.Steps))}
		for i, sd := range jd.Steps {
			step, err := convertStep(name, i, sd)
			if err != nil {
				return nil, err
			}
			job.Steps = append(job.Steps, step)
		}
		p.Jobs = append(p.Jobs, job)
	}

	return p, nil
}

func convertStep(job string, index int, sd stepDoc) (models.Step, error) {
	step := models.Step{
		Name:    sd.Name,
		Dir:     sd.Dir,
		Timeout: sd.Timeout,
	}

	switch {
	case sd.Run != "" && len(sd.Command) > 0:
		return step, fmt.Errorf("job %q step %d sets both run and command", job, index)
	case sd.Run != "":
		step.Command = []string{"sh", "-c", sd.Run}
	case len(sd.Command) > 0:
		step.Command = sd.Command
	default:
		return step, fmt.Errorf("job %q step %d has no command", job, index)
	}

	if step.Name == "" {
		if sd.Run != "" {
			step.Name = sd.Run
		} else {
			step.Name = sd.Command[0]
		}
	}
	return step, nil
}
