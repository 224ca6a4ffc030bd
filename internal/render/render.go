package render

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"shortsync/internal/config"
	"shortsync/internal/logging"
	"shortsync/internal/media/ffprobe"
	"shortsync/internal/procexec"
	"shortsync/internal/services"
)

const (
	stageName = "rendering"
	// floatSlack absorbs decimal rounding in ffprobe's six-digit durations.
	floatSlack = 1e-6
)

// Settings describes the generated video track.
type Settings struct {
	Width       int
	Height      int
	FPS         int
	Background  string
	Codec       string
	Preset      string
	CRF         int
	PixelFormat string
}

// Request is one render invocation.
type Request struct {
	JobID           string
	DurationSeconds float64
	OverlayText     string
	AudioPath       string
	Dest            string
}

// Result describes a validated video file.
type Result struct {
	Path            string
	Width           int
	Height          int
	FPS             int
	Frames          int
	DurationSeconds float64
}

// Inspector reads container metadata for validation.
type Inspector interface {
	Inspect(ctx context.Context, path string) (ffprobe.Result, error)
}

// Renderer generates a solid-background video with a caption overlay and
// muxes pre-normalized audio into it without re-encoding.
type Renderer struct {
	runner    procexec.Runner
	ffmpeg    string
	inspector Inspector
	settings  Settings
	style     Style
	logger    *slog.Logger
}

// NewRenderer constructs a Renderer. inspector may be nil to skip output
// validation.
func NewRenderer(runner procexec.Runner, ffmpegBinary string, inspector Inspector, settings Settings, style Style, logger *slog.Logger) *Renderer {
	if ffmpegBinary == "" {
		ffmpegBinary = "ffmpeg"
	}
	return &Renderer{
		runner:    runner,
		ffmpeg:    ffmpegBinary,
		inspector: inspector,
		settings:  settings,
		style:     style,
		logger:    logging.NewComponentLogger(logger, "renderer"),
	}
}

// NewFromConfig builds a Renderer from the [video], [caption] and [media] sections.
func NewFromConfig(cfg *config.Config, runner procexec.Runner, inspector Inspector, logger *slog.Logger) *Renderer {
	settings := Settings{
		Width:       cfg.Video.Width,
		Height:      cfg.Video.Height,
		FPS:         cfg.Video.FPS,
		Background:  cfg.Video.Background,
		Codec:       cfg.Video.Codec,
		Preset:      cfg.Video.Preset,
		CRF:         cfg.Video.CRF,
		PixelFormat: cfg.Video.PixelFormat,
	}
	style := Style{
		FontColor:   cfg.Caption.FontColor,
		FontFile:    cfg.Caption.FontFile,
		FontSize:    cfg.Caption.FontSize,
		Position:    cfg.Caption.Position,
		WrapChars:   cfg.Caption.WrapChars,
		LineSpacing: cfg.Caption.LineSpacing,
	}
	return NewRenderer(runner, cfg.Media.FFmpegBinary, inspector, settings, style, logger)
}

// FrameCount returns the number of frames covering duration at fps.
func FrameCount(duration float64, fps int) int {
	frames := int(math.Round(duration * float64(fps)))
	if frames < 1 {
		return 1
	}
	return frames
}

func (r *Renderer) args(frames int, captionFile string, fontSize int, audioPath, dest string) []string {
	s := r.settings
	videoSeconds := float64(frames) / float64(s.FPS)
	source := fmt.Sprintf("color=c=%s:s=%dx%d:r=%d:d=%s",
		s.Background, s.Width, s.Height, s.FPS, strconv.FormatFloat(videoSeconds, 'f', 6, 64))
	return []string{
		"-y", "-hide_banner", "-loglevel", "error",
		"-f", "lavfi", "-i", source,
		"-i", audioPath,
		"-map", "0:v:0", "-map", "1:a:0",
		"-vf", r.style.drawtextFilter(captionFile, fontSize),
		"-frames:v", strconv.Itoa(frames),
		"-c:v", s.Codec, "-preset", s.Preset, "-crf", strconv.Itoa(s.CRF),
		"-pix_fmt", s.PixelFormat, "-r", strconv.Itoa(s.FPS),
		"-c:a", "copy",
		"-shortest",
		"-movflags", "+faststart",
		"-f", "mp4",
		dest,
	}
}

// CaptionPath returns the transient caption file used for a request.
func CaptionPath(req Request) string {
	id := req.JobID
	if id == "" {
		id = strings.TrimSuffix(filepath.Base(req.Dest), filepath.Ext(req.Dest))
	}
	return filepath.Join(filepath.Dir(req.Dest), "caption_"+id+".txt")
}

// Render produces req.Dest. The file only appears at req.Dest once ffmpeg
// succeeded and, when an inspector is configured, the output passed
// validation. Every failure carries services.ErrRender.
func (r *Renderer) Render(ctx context.Context, req Request) (Result, error) {
	if math.IsNaN(req.DurationSeconds) || math.IsInf(req.DurationSeconds, 0) || req.DurationSeconds <= 0 {
		return Result{}, services.Wrap(services.ErrRender, stageName, "validate", fmt.Sprintf("invalid duration %v", req.DurationSeconds), services.ErrValidation)
	}
	if _, err := os.Stat(req.AudioPath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			err = services.ErrNotFound
		}
		return Result{}, services.Wrap(services.ErrRender, stageName, "validate", "audio "+req.AudioPath, err)
	}

	caption := WrapText(req.OverlayText, r.style.WrapChars)
	fontSize := r.style.FontSizeFor(req.OverlayText)
	captionFile := CaptionPath(req)
	if err := os.WriteFile(captionFile, []byte(caption), 0o644); err != nil {
		return Result{}, services.Wrap(services.ErrRender, stageName, "caption", "write caption file", err)
	}
	defer os.Remove(captionFile)

	frames := FrameCount(req.DurationSeconds, r.settings.FPS)
	tmp := filepath.Join(filepath.Dir(req.Dest), "."+filepath.Base(req.Dest)+".part")
	defer os.Remove(tmp)

	logger := logging.WithContext(ctx, r.logger)
	logger.Debug("render started",
		logging.Int("frames", frames),
		logging.Seconds("duration_seconds", req.DurationSeconds),
		logging.Int("font_size", fontSize),
	)

	if _, err := r.runner.Run(ctx, r.ffmpeg, r.args(frames, captionFile, fontSize, req.AudioPath, tmp)...); err != nil {
		return Result{}, services.Wrap(services.ErrRender, stageName, "ffmpeg", "encode video", err)
	}
	info, err := os.Stat(tmp)
	if err != nil || info.Size() == 0 {
		return Result{}, services.Wrap(services.ErrRender, stageName, "ffmpeg", "encoder produced no output", err)
	}

	result := Result{
		Path:            req.Dest,
		Width:           r.settings.Width,
		Height:          r.settings.Height,
		FPS:             r.settings.FPS,
		Frames:          frames,
		DurationSeconds: float64(frames) / float64(r.settings.FPS),
	}
	if r.inspector != nil {
		measured, err := r.validate(ctx, tmp, req.DurationSeconds)
		if err != nil {
			return Result{}, err
		}
		result.DurationSeconds = measured
	}

	if err := os.Rename(tmp, req.Dest); err != nil {
		return Result{}, services.Wrap(services.ErrRender, stageName, "finalize", req.Dest, err)
	}

	logger.Info("video rendered",
		logging.String(logging.FieldEventType, "render_complete"),
		logging.String("video_path", req.Dest),
		logging.Int("frames", frames),
		logging.Seconds("duration_seconds", result.DurationSeconds),
		logging.Seconds("audio_seconds", req.DurationSeconds),
	)
	return result, nil
}

// validate probes the encoded file and enforces the sync invariant: the
// video track must be within one frame of the audio duration.
func (r *Renderer) validate(ctx context.Context, path string, audioSeconds float64) (float64, error) {
	probed, err := r.inspector.Inspect(ctx, path)
	if err != nil {
		return 0, services.Wrap(services.ErrRender, stageName, "validate", "probe output", err)
	}
	video, ok := probed.FirstStream("video")
	if !ok {
		return 0, services.Wrap(services.ErrRender, stageName, "validate", "output has no video stream", nil)
	}
	if probed.AudioStreamCount() == 0 {
		return 0, services.Wrap(services.ErrRender, stageName, "validate", "output has no audio stream", nil)
	}
	if video.Width != r.settings.Width || video.Height != r.settings.Height {
		return 0, services.Wrap(services.ErrRender, stageName, "validate",
			fmt.Sprintf("output is %dx%d, want %dx%d", video.Width, video.Height, r.settings.Width, r.settings.Height), nil)
	}
	duration := video.DurationSeconds()
	if duration <= 0 || math.IsNaN(duration) {
		duration = probed.DurationSeconds()
	}
	tolerance := 1/float64(r.settings.FPS) + floatSlack
	if math.IsNaN(duration) || math.Abs(duration-audioSeconds) > tolerance {
		return 0, services.Wrap(services.ErrRender, stageName, "validate",
			fmt.Sprintf("video duration %.3fs drifts from audio %.3fs by more than one frame", duration, audioSeconds), nil)
	}
	return duration, nil
}
