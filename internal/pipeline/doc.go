// Package pipeline runs render jobs end to end.
//
// An Orchestrator takes one script through synthesis, audio normalization,
// duration probing, and video rendering, in that order. Each stage consumes
// the file the previous stage wrote, so there is no parallelism inside a
// job. Every stage runs under its own timeout and a failure stops the job at
// that stage: the returned *PipelineError names the stage and wraps the
// stage error, which carries one of the services stage markers.
//
// Batch runs many jobs through a bounded worker pool. Jobs share nothing but
// the output directory, and their artifact names are unique per job id.
package pipeline
