package synth

import (
	"context"
	"strconv"
	"strings"

	"shortsync/internal/procexec"
)

// EspeakEngine runs an espeak-compatible CLI (espeak, espeak-ng).
type EspeakEngine struct {
	runner procexec.Runner
	binary string
}

// NewEspeakEngine constructs an engine that invokes binary through runner.
func NewEspeakEngine(runner procexec.Runner, binary string) *EspeakEngine {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "espeak"
	}
	return &EspeakEngine{runner: runner, binary: binary}
}

// Name reports the binary name.
func (e *EspeakEngine) Name() string {
	return e.binary
}

// Binary returns the executable the engine runs.
func (e *EspeakEngine) Binary() string {
	return e.binary
}

// Synthesize writes text as a WAV file to dest.
func (e *EspeakEngine) Synthesize(ctx context.Context, text string, voice VoiceConfig, dest string) error {
	_, err := e.runner.Run(ctx, e.binary, EspeakArgs(text, voice, dest)...)
	return err
}

// EspeakArgs builds the argument list for one synthesis call. The text is
// passed after "--" so scripts starting with a dash are not parsed as flags.
func EspeakArgs(text string, voice VoiceConfig, dest string) []string {
	args := make([]string, 0, 10)
	if v := strings.TrimSpace(voice.Voice); v != "" {
		args = append(args, "-v", v)
	}
	args = append(args, "-s", strconv.Itoa(voice.SpeechRate))
	if voice.Pitch > 0 {
		args = append(args, "-p", strconv.Itoa(voice.Pitch))
	}
	args = append(args, "-w", dest, "--", text)
	return args
}
