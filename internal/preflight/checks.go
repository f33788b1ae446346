package preflight

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"recap/internal/config"
	"recap/internal/deps"
)

// CheckDirectoryAccess verifies that the directory exists and is
// readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckSystemDeps evaluates the external binaries the pipeline shells out to.
func CheckSystemDeps(cfg *config.Config) []deps.Status {
	return deps.CheckBinaries(deps.Required())
}

// CheckASRCredentials verifies the speech recognition API is configured.
// Reachability is not probed: submitting a job is the only real check and
// that costs money.
func CheckASRCredentials(cfg *config.Config) Result {
	const name = "Speech recognition"
	if cfg.ASR.APIKey == "" {
		return Result{Name: name, Detail: "API key missing (set DASHSCOPE_API_KEY)"}
	}
	return Result{Name: name, Passed: true, Detail: cfg.ASR.Model + " @ " + cfg.ASR.BaseURL}
}

// CheckSummaryCredentials verifies the summarization API is configured.
func CheckSummaryCredentials(cfg *config.Config) Result {
	const name = "Summarization"
	if cfg.Summary.APIKey == "" {
		return Result{Name: name, Detail: "API key missing (set DASHSCOPE_API_KEY)"}
	}
	return Result{Name: name, Passed: true, Detail: cfg.Summary.Model + " @ " + cfg.Summary.BaseURL}
}
