package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"shortsync/internal/audio"
	"shortsync/internal/config"
	"shortsync/internal/jobid"
	"shortsync/internal/logging"
	"shortsync/internal/media/probe"
	"shortsync/internal/procexec"
	"shortsync/internal/render"
	"shortsync/internal/services"
	"shortsync/internal/synth"
)

// Synthesizer speaks text into a WAV file at dest.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, dest string) (string, error)
}

// Normalizer converts src to the canonical audio format at dest.
type Normalizer interface {
	Normalize(ctx context.Context, src, dest string) (audio.Format, error)
}

// DurationProbe measures an audio file from its container metadata.
type DurationProbe interface {
	InspectAudio(ctx context.Context, path string) (probe.AudioInfo, error)
}

// VideoRenderer produces the final MP4.
type VideoRenderer interface {
	Render(ctx context.Context, req render.Request) (render.Result, error)
}

// Timeouts bounds each stage. A zero value leaves the stage unbounded.
type Timeouts struct {
	Synthesis time.Duration
	Normalize time.Duration
	Probe     time.Duration
	Render    time.Duration
}

// Options configures an Orchestrator.
type Options struct {
	OutputDir           string
	Script              ScriptPolicy
	Timeouts            Timeouts
	KeepFailedArtifacts bool
	IDs                 jobid.Generator
	Logger              *slog.Logger
	Now                 func() time.Time
}

// Orchestrator drives render jobs through the stage sequence.
type Orchestrator struct {
	synth    Synthesizer
	norm     Normalizer
	probe    DurationProbe
	renderer VideoRenderer
	opts     Options
	logger   *slog.Logger
}

// New constructs an Orchestrator from its stage components.
func New(synthesizer Synthesizer, normalizer Normalizer, prober DurationProbe, renderer VideoRenderer, opts Options) *Orchestrator {
	if opts.IDs == nil {
		opts.IDs = jobid.UUIDGenerator{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Orchestrator{
		synth:    synthesizer,
		norm:     normalizer,
		probe:    prober,
		renderer: renderer,
		opts:     opts,
		logger:   logging.NewComponentLogger(opts.Logger, "pipeline"),
	}
}

// NewFromConfig wires the espeak/http synthesizer, ffmpeg normalizer,
// ffprobe duration probe and ffmpeg renderer described by cfg. Every
// external process goes through runner.
func NewFromConfig(cfg *config.Config, runner procexec.Runner, logger *slog.Logger) (*Orchestrator, error) {
	if cfg == nil {
		return nil, errors.New("pipeline: nil config")
	}
	synthesizer, err := synth.NewFromConfig(cfg, runner, nil, logger)
	if err != nil {
		return nil, err
	}
	ids, err := jobid.NewFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	prober := probe.New(runner, cfg.Media.FFprobeBinary, logger)
	normalizer := audio.NewNormalizer(runner, cfg.Media.FFmpegBinary, prober, logger)
	renderer := render.NewFromConfig(cfg, runner, prober, logger)
	return New(synthesizer, normalizer, prober, renderer, OptionsFromConfig(cfg, ids, logger)), nil
}

// OptionsFromConfig maps configuration onto orchestrator options.
func OptionsFromConfig(cfg *config.Config, ids jobid.Generator, logger *slog.Logger) Options {
	return Options{
		OutputDir: cfg.Paths.OutputDir,
		Script: ScriptPolicy{
			MaxChars: cfg.Script.MaxChars,
			Overflow: cfg.Script.Overflow,
		},
		Timeouts: Timeouts{
			Synthesis: cfg.SynthesisTimeout(),
			Normalize: cfg.NormalizeTimeout(),
			Probe:     cfg.ProbeTimeout(),
			Render:    cfg.RenderTimeout(),
		},
		KeepFailedArtifacts: cfg.Pipeline.KeepFailedArtifacts,
		IDs:                 ids,
		Logger:              logger,
	}
}

// AudioPath is where the synthesizer writes the raw speech for id.
func AudioPath(dir, id string) string { return filepath.Join(dir, "audio_"+id+".wav") }

// NormPath is where the normalized audio for id lives.
func NormPath(dir, id string) string { return filepath.Join(dir, "norm_"+id+".wav") }

// VideoPath is where the rendered video for id lives.
func VideoPath(dir, id string) string { return filepath.Join(dir, "video_"+id+".mp4") }

// Run takes text through every stage. On success the job is Completed and
// carries both artifacts. On failure the job is returned alongside a
// *PipelineError; it is nil only when no job id could be allocated.
func (o *Orchestrator) Run(ctx context.Context, text string) (*Job, error) {
	id, err := o.opts.IDs.Next()
	if err != nil {
		return nil, &PipelineError{Stage: StageCreated, Err: err}
	}
	ctx = services.WithJobID(ctx, id)
	logger := logging.WithContext(ctx, o.logger)

	script, scriptErr := NewScript(text, o.opts.Script)
	job := newJob(id, script, o.opts.Now())
	if scriptErr != nil {
		return o.failJob(ctx, job, scriptErr)
	}
	if script.Truncated() {
		logging.WarnWithContext(logger, "script truncated", "script_truncated",
			logging.Int("original_chars", script.OriginalLen()),
			logging.Int("max_chars", o.opts.Script.MaxChars),
			logging.String(logging.FieldErrorHint, "raise script.max_chars or shorten the script"),
			logging.String(logging.FieldImpact, "the video speaks and shows only the leading words"),
		)
	}
	if err := os.MkdirAll(o.opts.OutputDir, 0o755); err != nil {
		return o.failJob(ctx, job, fmt.Errorf("%w: create output dir: %w", services.ErrConfiguration, err))
	}

	logger.Info("render job started",
		logging.String(logging.FieldEventType, "job_start"),
		logging.Int("script_chars", script.Len()),
	)

	dir := o.opts.OutputDir
	normPath := NormPath(dir, id)

	if err := o.runStage(ctx, job, StageSynthesizing, o.opts.Timeouts.Synthesis, func(ctx context.Context) error {
		path, err := o.synth.Synthesize(ctx, script.Text(), AudioPath(dir, id))
		if err != nil {
			return err
		}
		job.RawAudioPath = path
		return nil
	}); err != nil {
		return o.failJob(ctx, job, err)
	}

	if err := o.runStage(ctx, job, StageNormalizing, o.opts.Timeouts.Normalize, func(ctx context.Context) error {
		format, err := o.norm.Normalize(ctx, job.RawAudioPath, normPath)
		if err != nil {
			return err
		}
		job.Audio = &AudioArtifact{
			Path:       normPath,
			SampleRate: format.SampleRate,
			Channels:   format.Channels,
			BitDepth:   format.BitDepth,
		}
		return nil
	}); err != nil {
		return o.failJob(ctx, job, err)
	}

	if err := o.runStage(ctx, job, StageProbing, o.opts.Timeouts.Probe, func(ctx context.Context) error {
		info, err := o.probe.InspectAudio(ctx, normPath)
		if err != nil {
			return err
		}
		job.Audio.DurationSeconds = info.DurationSeconds
		return nil
	}); err != nil {
		return o.failJob(ctx, job, err)
	}

	if err := o.runStage(ctx, job, StageRendering, o.opts.Timeouts.Render, func(ctx context.Context) error {
		result, err := o.renderer.Render(ctx, render.Request{
			JobID:           id,
			DurationSeconds: job.Audio.DurationSeconds,
			OverlayText:     script.Text(),
			AudioPath:       normPath,
			Dest:            VideoPath(dir, id),
		})
		if err != nil {
			return err
		}
		job.Video = &VideoArtifact{
			Path:            result.Path,
			Width:           result.Width,
			Height:          result.Height,
			FPS:             result.FPS,
			Frames:          result.Frames,
			DurationSeconds: result.DurationSeconds,
		}
		return nil
	}); err != nil {
		return o.failJob(ctx, job, err)
	}

	if err := job.advance(StageCompleted); err != nil {
		return o.failJob(ctx, job, err)
	}
	job.FinishedAt = o.opts.Now()
	logger.Info("render job completed",
		logging.String(logging.FieldEventType, "job_complete"),
		logging.String("video_path", job.Video.Path),
		logging.Seconds("audio_seconds", job.Audio.DurationSeconds),
		logging.Seconds("video_seconds", job.Video.DurationSeconds),
		logging.Seconds("drift_seconds", job.Drift()),
		logging.Duration("elapsed", job.Elapsed()),
	)
	return job, nil
}

// runStage advances job into stage and runs fn under the stage timeout.
// The returned error always carries the stage marker, and ErrTimeout when
// the stage deadline expired.
func (o *Orchestrator) runStage(ctx context.Context, job *Job, stage Stage, timeout time.Duration, fn func(context.Context) error) error {
	if err := job.advance(stage); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return markStageError(stage, err)
	}

	stageCtx := services.WithStage(ctx, string(stage))
	if timeout > 0 {
		var cancel context.CancelFunc
		stageCtx, cancel = context.WithTimeout(stageCtx, timeout)
		defer cancel()
	}
	logger := logging.WithContext(stageCtx, o.logger)
	logger.Info("stage started", logging.String(logging.FieldEventType, "stage_start"))

	started := o.opts.Now()
	err := fn(stageCtx)
	if err != nil {
		if errors.Is(stageCtx.Err(), context.DeadlineExceeded) && !errors.Is(err, services.ErrTimeout) {
			err = fmt.Errorf("%w: %s exceeded %s: %w", services.ErrTimeout, stage, timeout, err)
		}
		return markStageError(stage, err)
	}

	logger.Info("stage completed",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.Duration("elapsed", o.opts.Now().Sub(started)),
	)
	return nil
}

func markStageError(stage Stage, err error) error {
	marker := stageMarker(stage)
	if marker == nil || errors.Is(err, marker) {
		return err
	}
	return services.Wrap(marker, string(stage), "", "", err)
}

// failJob makes job terminal, removes its files unless configured to keep
// them, and returns the PipelineError for the failing stage.
func (o *Orchestrator) failJob(ctx context.Context, job *Job, err error) (*Job, error) {
	stage := job.Stage
	if stage.IsTerminal() {
		stage = job.FailedStage
	}
	job.fail(err, o.opts.Now())

	stageCtx := services.WithStage(ctx, string(stage))
	logging.ErrorWithContext(logging.WithContext(stageCtx, o.logger), "stage failed", "stage_failed",
		logging.Error(err),
	)

	if !o.opts.KeepFailedArtifacts {
		o.removeArtifacts(ctx, job)
	}
	return job, &PipelineError{JobID: job.ID, Stage: stage, Err: err}
}

func (o *Orchestrator) removeArtifacts(ctx context.Context, job *Job) {
	dir := o.opts.OutputDir
	paths := []string{
		AudioPath(dir, job.ID),
		NormPath(dir, job.ID),
		VideoPath(dir, job.ID),
	}
	if job.RawAudioPath != "" && job.RawAudioPath != paths[0] {
		paths = append(paths, job.RawAudioPath)
	}
	for _, path := range paths {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			logging.WithContext(ctx, o.logger).Debug("failed to remove artifact",
				logging.String("path", path),
				logging.Error(err),
			)
		}
	}
	job.RawAudioPath = ""
	job.Audio = nil
	job.Video = nil
}
