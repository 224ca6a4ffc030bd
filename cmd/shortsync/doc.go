// Package main hosts the shortsync CLI entrypoint and command graph.
//
// The Cobra-based command tree renders single scripts and batches of
// scripts into vertical videos, runs preflight checks against the external
// tools, probes media files, and scaffolds configuration. It centralizes
// configuration resolution and logging setup so subcommands can focus on
// presenting results.
//
// Keep this package lean: the pipeline itself lives in internal/pipeline and
// the commands here only translate flags and print outcomes.
package main
