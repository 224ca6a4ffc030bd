// Package preflight provides readiness checks for the tools, service
// endpoint and filesystem paths shortsync depends on.
//
// The CLI "shortsync check" command runs RunAll and prints every result;
// "render" and "batch" run the same checks first and refuse to start a job
// when a required check fails, so a missing encoder is reported before any
// speech is synthesized.
package preflight
