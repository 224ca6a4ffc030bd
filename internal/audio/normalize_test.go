package audio_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"shortsync/internal/audio"
	"shortsync/internal/media/probe"
	"shortsync/internal/procexec"
	"shortsync/internal/services"
)

type staticInspector struct {
	info probe.AudioInfo
	err  error
}

func (s staticInspector) InspectAudio(context.Context, string) (probe.AudioInfo, error) {
	return s.info, s.err
}

var canonicalInfo = probe.AudioInfo{SampleRate: 48000, Channels: 2, BitDepth: 16, DurationSeconds: 2}

// copyingRunner emulates ffmpeg by copying the -i input to the last argument.
func copyingRunner(calls *[][]string) procexec.Runner {
	return procexec.RunnerFunc(func(_ context.Context, name string, args ...string) (procexec.Output, error) {
		*calls = append(*calls, append([]string{name}, args...))
		var src string
		for i := 0; i+1 < len(args); i++ {
			if args[i] == "-i" {
				src = args[i+1]
			}
		}
		data, err := os.ReadFile(src)
		if err != nil {
			return procexec.Output{}, err
		}
		return procexec.Output{}, os.WriteFile(args[len(args)-1], data, 0o644)
	})
}

func writeRaw(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "audio_job.wav")
	if err := os.WriteFile(path, []byte("RIFF....WAVEfmt raw-22050-mono"), 0o644); err != nil {
		t.Fatalf("write raw: %v", err)
	}
	return path
}

func TestNormalizeProducesCanonical(t *testing.T) {
	dir := t.TempDir()
	src := writeRaw(t, dir)
	dest := filepath.Join(dir, "norm_job.wav")
	var calls [][]string
	n := audio.NewNormalizer(copyingRunner(&calls), "ffmpeg", staticInspector{info: canonicalInfo}, nil)

	format, err := n.Normalize(context.Background(), src, dest)
	if err != nil {
		t.Fatalf("Normalize returned error: %v", err)
	}
	if format != audio.Canonical {
		t.Fatalf("unexpected format %v", format)
	}
	if _, err := os.Stat(dest); err != nil {
		t.Fatalf("expected output file: %v", err)
	}
	args := calls[0][1:]
	for _, pair := range [][2]string{{"-ar", "48000"}, {"-ac", "2"}, {"-sample_fmt", "s16"}, {"-c:a", "pcm_s16le"}} {
		found := false
		for i := 0; i+1 < len(args); i++ {
			if args[i] == pair[0] && args[i+1] == pair[1] {
				found = true
			}
		}
		if !found {
			t.Fatalf("expected %s %s in args %v", pair[0], pair[1], args)
		}
	}
	leftovers, _ := filepath.Glob(filepath.Join(dir, ".*.part"))
	if len(leftovers) != 0 {
		t.Fatalf("expected temp file cleanup, found %v", leftovers)
	}
}

func TestNormalizeIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	src := writeRaw(t, dir)
	dest := filepath.Join(dir, "norm_job.wav")
	var calls [][]string
	n := audio.NewNormalizer(copyingRunner(&calls), "ffmpeg", staticInspector{info: canonicalInfo}, nil)

	first, err := n.Normalize(context.Background(), src, dest)
	if err != nil {
		t.Fatalf("first pass: %v", err)
	}
	second, err := n.Normalize(context.Background(), dest, dest)
	if err != nil {
		t.Fatalf("second pass in place: %v", err)
	}
	if first != second {
		t.Fatalf("expected identical formats, got %v and %v", first, second)
	}
	flags := func(call []string) []string {
		out := make([]string, 0, len(call))
		for i, arg := range call {
			if (i > 0 && call[i-1] == "-i") || i == len(call)-1 {
				continue
			}
			out = append(out, arg)
		}
		return out
	}
	if !reflect.DeepEqual(flags(calls[0]), flags(calls[1])) {
		t.Fatalf("expected identical conversion flags, got %v and %v", calls[0], calls[1])
	}
}

func TestNormalizeMissingInput(t *testing.T) {
	var calls [][]string
	n := audio.NewNormalizer(copyingRunner(&calls), "ffmpeg", nil, nil)
	_, err := n.Normalize(context.Background(), filepath.Join(t.TempDir(), "missing.wav"), filepath.Join(t.TempDir(), "norm.wav"))
	if !errors.Is(err, services.ErrNormalization) || !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected normalization not-found error, got %v", err)
	}
	if len(calls) != 0 {
		t.Fatal("ffmpeg should not run for missing input")
	}
}

func TestNormalizeEmptyInput(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "empty.wav")
	if err := os.WriteFile(src, nil, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	var calls [][]string
	n := audio.NewNormalizer(copyingRunner(&calls), "ffmpeg", nil, nil)
	if _, err := n.Normalize(context.Background(), src, filepath.Join(dir, "norm.wav")); !errors.Is(err, services.ErrNormalization) {
		t.Fatalf("expected normalization error, got %v", err)
	}
}

func TestNormalizeConversionFailure(t *testing.T) {
	dir := t.TempDir()
	src := writeRaw(t, dir)
	dest := filepath.Join(dir, "norm.wav")
	runner := procexec.RunnerFunc(func(context.Context, string, ...string) (procexec.Output, error) {
		return procexec.Output{}, errors.New("Invalid data found when processing input")
	})
	n := audio.NewNormalizer(runner, "ffmpeg", nil, nil)
	_, err := n.Normalize(context.Background(), src, dest)
	if !errors.Is(err, services.ErrNormalization) {
		t.Fatalf("expected normalization error, got %v", err)
	}
	if _, statErr := os.Stat(dest); !errors.Is(statErr, os.ErrNotExist) {
		t.Fatalf("expected no output file, got %v", statErr)
	}
}

func TestNormalizeRejectsWrongFormat(t *testing.T) {
	dir := t.TempDir()
	src := writeRaw(t, dir)
	dest := filepath.Join(dir, "norm.wav")
	var calls [][]string
	mono := canonicalInfo
	mono.Channels = 1
	n := audio.NewNormalizer(copyingRunner(&calls), "ffmpeg", staticInspector{info: mono}, nil)
	_, err := n.Normalize(context.Background(), src, dest)
	if !errors.Is(err, services.ErrNormalization) {
		t.Fatalf("expected normalization error, got %v", err)
	}
	if _, statErr := os.Stat(dest); !errors.Is(statErr, os.ErrNotExist) {
		t.Fatalf("expected rejected output to be discarded, got %v", statErr)
	}
}

func TestFormatMatches(t *testing.T) {
	if !audio.Canonical.Matches(canonicalInfo) {
		t.Fatal("expected canonical info to match")
	}
	other := canonicalInfo
	other.SampleRate = 44100
	if audio.Canonical.Matches(other) {
		t.Fatal("expected 44.1kHz to mismatch")
	}
}
