// Package synth converts script text into a spoken-audio WAV file.
//
// Service is the stage entry point: it rejects empty text, runs the
// configured Engine, and verifies a non-empty file was produced. Two engines
// are provided. EspeakEngine shells out to espeak or espeak-ng through a
// procexec.Runner; HTTPEngine posts JSON to a synthesis server and stores the
// returned WAV body. Every Service error carries services.ErrSynthesis.
package synth
