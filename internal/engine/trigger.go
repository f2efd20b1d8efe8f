package engine

import "github.com/lei/runci/internal/models"

// ShouldRun reports whether the event matches any trigger rule. Rule
// matching is existence-only: several matching rules still dispatch
// exactly one run. A non-match is a normal outcome, not an error.
func ShouldRun(event models.Event, rules []models.TriggerRule) bool {
	for _, rule := range rules {
		if matches(event, rule) {
			return true
		}
	}
	return false
}

// SelectJobs returns the jobs to execute for the event, or nil when no
// trigger rule matches
func SelectJobs(event models.Event, p *models.Pipeline) []models.Job {
	if !ShouldRun(event, p.Triggers) {
		return nil
	}
	return p.Jobs
}

func matches(event models.Event, rule models.TriggerRule) bool {
	if event.Kind != rule.Kind {
		return false
	}
	// Branch filters only constrain push events; an empty filter list
	// matches any ref. Matching is by exact branch name.
	if event.Kind == models.EventPush && len(rule.Branches) > 0 {
		for _, branch := range rule.Branches {
			if event.Ref == branch {
				return true
			}
		}
		return false
	}
	return true
}
