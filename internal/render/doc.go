// Package render produces the final vertical video for a job.
//
// Renderer drives a single ffmpeg invocation: a lavfi colour source sized to
// round(duration × fps) frames, a drawtext caption read from a transient text
// file, and the normalized audio stream-copied in with -shortest. The encoded
// file is probed before it is moved into place; a missing stream, wrong frame
// size, or more than one frame of drift from the audio fails the render with
// services.ErrRender.
package render
