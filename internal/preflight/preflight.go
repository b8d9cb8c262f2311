package preflight

import (
	"context"

	"bayloe/internal/config"
	"bayloe/internal/sandbox"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes every applicable check. The decoder handshake runs only
// when a launcher is supplied, since it starts a worker process.
func RunAll(ctx context.Context, cfg *config.Config, launcher sandbox.Launcher) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Staging directory", cfg.Paths.StagingDir),
		CheckDirectoryAccess("Output directory", cfg.Paths.OutputDir),
	}
	if cfg.Paths.LogDir != "" {
		results = append(results, CheckDirectoryAccess("Log directory", cfg.Paths.LogDir))
	}

	worker := &sandbox.ProcessLauncher{Binary: cfg.Sandbox.WorkerBinary}
	results = append(results, CheckWorkerBinary(worker))

	if launcher != nil {
		results = append(results, CheckDecoder(ctx, launcher, cfg.CallTimeout()))
	}
	return results
}

// Failed reports whether any result did not pass.
func Failed(results []Result) bool {
	for _, r := range results {
		if !r.Passed {
			return true
		}
	}
	return false
}
