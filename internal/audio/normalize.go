package audio

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"shortsync/internal/logging"
	"shortsync/internal/media/probe"
	"shortsync/internal/procexec"
	"shortsync/internal/services"
)

const stageName = "normalizing"

// Format describes a linear PCM layout.
type Format struct {
	SampleRate int
	Channels   int
	BitDepth   int
	Codec      string
}

// Canonical is the single audio format every downstream stage relies on.
var Canonical = Format{SampleRate: 48000, Channels: 2, BitDepth: 16, Codec: "pcm_s16le"}

func (f Format) String() string {
	return fmt.Sprintf("%s %dHz %dch %d-bit", f.Codec, f.SampleRate, f.Channels, f.BitDepth)
}

// Matches reports whether info has this format's rate, channel count, and depth.
func (f Format) Matches(info probe.AudioInfo) bool {
	return info.SampleRate == f.SampleRate && info.Channels == f.Channels && info.BitDepth == f.BitDepth
}

// Inspector reads back the format of a produced file.
type Inspector interface {
	InspectAudio(ctx context.Context, path string) (probe.AudioInfo, error)
}

// Normalizer converts arbitrary input audio to the Canonical format.
type Normalizer struct {
	runner    procexec.Runner
	ffmpeg    string
	inspector Inspector
	logger    *slog.Logger
}

// NewNormalizer constructs a Normalizer. When inspector is non-nil every
// output is read back and rejected unless it matches Canonical.
func NewNormalizer(runner procexec.Runner, ffmpegBinary string, inspector Inspector, logger *slog.Logger) *Normalizer {
	if ffmpegBinary == "" {
		ffmpegBinary = "ffmpeg"
	}
	return &Normalizer{
		runner:    runner,
		ffmpeg:    ffmpegBinary,
		inspector: inspector,
		logger:    logging.NewComponentLogger(logger, "normalizer"),
	}
}

// Args returns the ffmpeg arguments that convert src into the Canonical WAV at dest.
func Args(src, dest string) []string {
	return []string{
		"-y", "-hide_banner", "-loglevel", "error",
		"-i", src,
		"-vn", "-map_metadata", "-1",
		"-ar", strconv.Itoa(Canonical.SampleRate),
		"-ac", strconv.Itoa(Canonical.Channels),
		"-sample_fmt", "s16",
		"-c:a", Canonical.Codec,
		"-f", "wav",
		dest,
	}
}

// Normalize converts src to Canonical and writes it to dest. The conversion
// runs into a temporary file that is renamed over dest on success, so dest may
// equal src. Every failure carries services.ErrNormalization.
func (n *Normalizer) Normalize(ctx context.Context, src, dest string) (Format, error) {
	info, err := os.Stat(src)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return Format{}, services.Wrap(services.ErrNormalization, stageName, "stat input", src, services.ErrNotFound)
	case err != nil:
		return Format{}, services.Wrap(services.ErrNormalization, stageName, "stat input", src, err)
	case info.IsDir() || info.Size() == 0:
		return Format{}, services.Wrap(services.ErrNormalization, stageName, "stat input", "input is empty or not a file: "+src, nil)
	}

	tmp := filepath.Join(filepath.Dir(dest), "."+filepath.Base(dest)+".part")
	defer os.Remove(tmp)

	if _, err := n.runner.Run(ctx, n.ffmpeg, Args(src, tmp)...); err != nil {
		return Format{}, services.Wrap(services.ErrNormalization, stageName, "ffmpeg", "convert "+filepath.Base(src), err)
	}
	out, err := os.Stat(tmp)
	if err != nil || out.Size() == 0 {
		return Format{}, services.Wrap(services.ErrNormalization, stageName, "ffmpeg", "conversion produced no output", err)
	}

	if n.inspector != nil {
		got, err := n.inspector.InspectAudio(ctx, tmp)
		if err != nil {
			return Format{}, services.Wrap(services.ErrNormalization, stageName, "verify", "read back output", err)
		}
		if !Canonical.Matches(got) {
			return Format{}, services.Wrap(services.ErrNormalization, stageName, "verify",
				fmt.Sprintf("output is %dHz %dch %d-bit, want %s", got.SampleRate, got.Channels, got.BitDepth, Canonical), nil)
		}
	}

	if err := os.Rename(tmp, dest); err != nil {
		return Format{}, services.Wrap(services.ErrNormalization, stageName, "finalize", dest, err)
	}

	logging.WithContext(ctx, n.logger).Info("audio normalized",
		logging.String(logging.FieldEventType, "normalize_complete"),
		logging.String("audio_path", dest),
		logging.String("format", Canonical.String()),
	)
	return Canonical, nil
}
