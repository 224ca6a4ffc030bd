package preflight

import (
	"context"

	"shortsync/internal/config"
	"shortsync/internal/deps"
	"shortsync/internal/procexec"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes every check that applies to cfg. The synthesis endpoint
// is only checked for the http engine.
func RunAll(ctx context.Context, cfg *config.Config, runner procexec.Runner) []Result {
	if cfg == nil {
		return nil
	}
	results := []Result{CheckDirectoryAccess("Output directory", cfg.Paths.OutputDir)}
	if cfg.Paths.LogDir != "" {
		results = append(results, CheckDirectoryAccess("Log directory", cfg.Paths.LogDir))
	}

	for _, status := range deps.Locate(deps.ForConfig(cfg)) {
		result := Result{Name: status.Name, Passed: status.Available(), Detail: status.Path}
		if status.Err != nil {
			result.Detail = status.Err.Error()
		}
		results = append(results, result)
	}

	if runner != nil {
		results = append(results, CheckFFmpegFilters(ctx, runner, cfg.Media.FFmpegBinary))
	}

	if cfg.Synthesis.Engine == config.EngineHTTP {
		results = append(results, CheckSynthesisEndpoint(ctx, cfg.Synthesis.URL))
	}
	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}
