package probe

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"math"
	"os"

	"shortsync/internal/logging"
	"shortsync/internal/media/ffprobe"
	"shortsync/internal/procexec"
	"shortsync/internal/services"
)

const stageName = "probing"

// AudioInfo describes the first audio stream of a file.
type AudioInfo struct {
	Path            string
	Codec           string
	SampleRate      int
	Channels        int
	BitDepth        int
	DurationSeconds float64
}

// Prober measures media files with ffprobe.
type Prober struct {
	runner procexec.Runner
	binary string
	logger *slog.Logger
}

// New constructs a Prober that runs binary through runner.
func New(runner procexec.Runner, binary string, logger *slog.Logger) *Prober {
	return &Prober{
		runner: runner,
		binary: binary,
		logger: logging.NewComponentLogger(logger, "probe"),
	}
}

// Inspect returns the raw ffprobe result for path. Errors are not tagged with
// a stage marker so callers in other stages can classify them.
func (p *Prober) Inspect(ctx context.Context, path string) (ffprobe.Result, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ffprobe.Result{}, fmt.Errorf("%w: %s", services.ErrNotFound, path)
		}
		return ffprobe.Result{}, fmt.Errorf("stat %s: %w", path, err)
	}
	return ffprobe.Inspect(ctx, p.runner, p.binary, path)
}

// Measure returns the exact playback duration of path in seconds as reported
// by container metadata.
func (p *Prober) Measure(ctx context.Context, path string) (float64, error) {
	info, err := p.InspectAudio(ctx, path)
	if err != nil {
		return 0, err
	}
	return info.DurationSeconds, nil
}

// InspectAudio reports the format and duration of the first audio stream.
// The container duration is authoritative; the stream duration is used only
// when the container reports none.
func (p *Prober) InspectAudio(ctx context.Context, path string) (AudioInfo, error) {
	result, err := p.Inspect(ctx, path)
	if err != nil {
		return AudioInfo{}, services.Wrap(services.ErrProbe, stageName, "ffprobe", path, err)
	}
	stream, ok := result.FirstStream("audio")
	if !ok {
		return AudioInfo{}, services.Wrap(services.ErrProbe, stageName, "ffprobe", "no audio stream in "+path, nil)
	}

	duration := result.DurationSeconds()
	if duration == 0 {
		duration = stream.DurationSeconds()
	}
	if math.IsNaN(duration) || math.IsInf(duration, 0) || duration <= 0 {
		return AudioInfo{}, services.Wrap(services.ErrProbe, stageName, "ffprobe",
			fmt.Sprintf("no positive duration reported for %s (format=%q stream=%q)", path, result.Format.Duration, stream.Duration), nil)
	}

	info := AudioInfo{
		Path:            path,
		Codec:           stream.CodecName,
		SampleRate:      stream.SampleRateHz(),
		Channels:        stream.Channels,
		BitDepth:        stream.BitDepth(),
		DurationSeconds: duration,
	}
	logging.WithContext(ctx, p.logger).Debug("audio probed",
		logging.String("audio_path", path),
		logging.Seconds("duration_seconds", duration),
		logging.Int("sample_rate", info.SampleRate),
		logging.Int("channels", info.Channels),
	)
	return info, nil
}
