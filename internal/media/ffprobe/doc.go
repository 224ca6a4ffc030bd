// Package ffprobe runs ffprobe with JSON output and decodes the streams and
// container format a render needs to verify: durations, sample rate and
// layout, frame geometry and frame counts.
//
// Numeric fields arrive as strings in ffprobe's JSON; the accessor methods
// on Stream and Format parse them and return zero when a field is absent.
package ffprobe
