package preflight

import (
	"context"

	"recap/internal/config"
	"recap/internal/deps"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable preflight checks for the given config.
// Checks are only run when the corresponding feature is configured.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	results = append(results, CheckDirectoryAccess("Download directory", cfg.Paths.DownloadDir))
	results = append(results, CheckDirectoryAccess("Results directory", cfg.Paths.ResultsDir))

	for _, status := range CheckSystemDeps(cfg) {
		results = append(results, Result{
			Name:   status.Name,
			Passed: status.Available || status.Optional,
			Detail: statusDetail(status),
		})
	}

	results = append(results, CheckASRCredentials(cfg))
	results = append(results, CheckSummaryCredentials(cfg))
	if cfg.Storage.Configured() {
		results = append(results, Result{Name: "Object storage", Passed: true, Detail: cfg.Storage.Bucket + " @ " + cfg.Storage.Endpoint})
	} else {
		// Storage is optional; without it only the transcription fallback
		// is unavailable.
		results = append(results, Result{Name: "Object storage", Passed: true, Detail: "not configured (transcription fallback unavailable)"})
	}

	return results
}

// AllPassed reports whether every check passed.
func AllPassed(results []Result) bool {
	for _, result := range results {
		if !result.Passed {
			return false
		}
	}
	return true
}

func statusDetail(status deps.Status) string {
	if status.Available {
		return "found"
	}
	return status.Detail
}
