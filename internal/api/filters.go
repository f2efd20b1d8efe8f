package api

import (
	"strings"

	"github.com/lei/runci/internal/models"
)

// FilterRuns filters runs based on query parameters
func FilterRuns(runs []*models.Run, search string, status models.RunStatus) []*models.Run {
	if search == "" && status == "" {
		return runs
	}

	filtered := make([]*models.Run, 0, len(runs))
	searchLower := strings.ToLower(search)

	for _, run := range runs {
		// Search filter matches pipeline name or ref
		if search != "" &&
			!strings.Contains(strings.ToLower(run.Pipeline), searchLower) &&
			!strings.Contains(strings.ToLower(run.Event.Ref), searchLower) {
			continue
		}

		// Status filter
		if status != "" && run.Status != status {
			continue
		}

		filtered = append(filtered, run)
	}

	return filtered
}

// parseStatusParam parses the status query parameter
func parseStatusParam(value string) models.RunStatus {
	switch models.RunStatus(value) {
	case models.RunQueued, models.RunRunning, models.RunSuccess,
		models.RunFailure, models.RunCanceled:
		return models.RunStatus(value)
	}
	return ""
}
