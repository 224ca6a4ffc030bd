// Package procexec runs the external programs the render pipeline depends on.
//
// Runner is the seam every stage executes through: production code uses
// ExecRunner, which kills the whole process group when the stage context
// expires, while tests substitute a RunnerFunc that fabricates output files.
// Errors carry services markers so callers can tell a missing binary, a
// timeout, and a non-zero exit apart without parsing messages.
package procexec
