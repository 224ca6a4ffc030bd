// Package logging builds the slog loggers shortsync writes to stderr and,
// optionally, to a log file.
//
// Console output is one line per record with the component, job and stage
// lifted into a prefix; JSON output keeps them as fields. WithContext pulls
// those identifiers from a context so stage code never threads them by hand.
package logging
