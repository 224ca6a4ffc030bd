// Package jobid generates render job identifiers.
//
// Identifiers name every artifact a job writes (audio_<id>.wav,
// norm_<id>.wav, video_<id>.mp4), so they must be unique across concurrent
// jobs sharing an output directory. UUIDGenerator is the default. The
// CounterGenerator hands out short sequential ids from a file in the output
// directory, serialized across processes with an advisory file lock.
package jobid
