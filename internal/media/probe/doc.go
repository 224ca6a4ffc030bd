// Package probe measures the exact playback duration and sample format of
// audio files from ffprobe container metadata. Failures carry
// services.ErrProbe.
package probe
