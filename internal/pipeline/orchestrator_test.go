package pipeline_test

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"shortsync/internal/audio"
	"shortsync/internal/config"
	"shortsync/internal/jobid"
	"shortsync/internal/logging"
	"shortsync/internal/media/probe"
	"shortsync/internal/pipeline"
	"shortsync/internal/render"
	"shortsync/internal/services"
	"shortsync/internal/synth"
	"shortsync/internal/testsupport"
)

const frameTolerance = 1.0/30 + 1e-6

func newOrchestrator(t *testing.T, cfg *config.Config, fake *testsupport.FakeMedia, mutate func(*pipeline.Options)) *pipeline.Orchestrator {
	t.Helper()
	logger := logging.NewNop()
	synthesizer, err := synth.NewFromConfig(cfg, fake, nil, logger)
	if err != nil {
		t.Fatalf("synth.NewFromConfig: %v", err)
	}
	ids, err := jobid.NewFromConfig(cfg)
	if err != nil {
		t.Fatalf("jobid.NewFromConfig: %v", err)
	}
	prober := probe.New(fake, cfg.Media.FFprobeBinary, logger)
	normalizer := audio.NewNormalizer(fake, cfg.Media.FFmpegBinary, prober, logger)
	renderer := render.NewFromConfig(cfg, fake, prober, logger)
	opts := pipeline.OptionsFromConfig(cfg, ids, logger)
	if mutate != nil {
		mutate(&opts)
	}
	return pipeline.New(synthesizer, normalizer, prober, renderer, opts)
}

func requirePipelineError(t *testing.T, err error, stage pipeline.Stage) *pipeline.PipelineError {
	t.Helper()
	var pipeErr *pipeline.PipelineError
	if !errors.As(err, &pipeErr) {
		t.Fatalf("expected *PipelineError, got %T: %v", err, err)
	}
	if pipeErr.Stage != stage {
		t.Fatalf("expected failure at %s, got %s (%v)", stage, pipeErr.Stage, err)
	}
	return pipeErr
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func TestRunCompletesWithSyncedVideo(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	fake := testsupport.NewFakeMedia()
	orch, err := pipeline.NewFromConfig(cfg, fake, logging.NewNop())
	if err != nil {
		t.Fatalf("NewFromConfig: %v", err)
	}

	job, err := orch.Run(context.Background(), "John 3:16")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if job.Stage != pipeline.StageCompleted {
		t.Fatalf("expected completed job, got %s", job.Stage)
	}
	if job.Audio == nil || job.Video == nil {
		t.Fatalf("expected both artifacts, got audio=%v video=%v", job.Audio, job.Video)
	}
	if job.Audio.DurationSeconds <= 0 {
		t.Fatalf("expected positive duration, got %v", job.Audio.DurationSeconds)
	}
	want := testsupport.SpeechSeconds("John 3:16", cfg.Synthesis.SpeechRate)
	if math.Abs(job.Audio.DurationSeconds-want) > 1e-6 {
		t.Fatalf("expected measured duration %.6f, got %.6f", want, job.Audio.DurationSeconds)
	}
	if job.Audio.SampleRate != 48000 || job.Audio.Channels != 2 || job.Audio.BitDepth != 16 {
		t.Fatalf("unexpected audio format: %+v", job.Audio)
	}
	if job.Drift() > frameTolerance {
		t.Fatalf("video drifts %.6fs from audio", job.Drift())
	}
	if job.Video.Width != 1080 || job.Video.Height != 1920 || job.Video.FPS != 30 {
		t.Fatalf("unexpected video geometry: %+v", job.Video)
	}

	dir := cfg.Paths.OutputDir
	for _, path := range []string{
		pipeline.AudioPath(dir, job.ID),
		pipeline.NormPath(dir, job.ID),
		pipeline.VideoPath(dir, job.ID),
	} {
		if !fileExists(path) {
			t.Fatalf("expected artifact %s", path)
		}
	}
	if job.Video.Path != pipeline.VideoPath(dir, job.ID) || job.Audio.Path != pipeline.NormPath(dir, job.ID) {
		t.Fatalf("unexpected artifact paths: %s %s", job.Audio.Path, job.Video.Path)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read output dir: %v", err)
	}
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".part") || strings.HasPrefix(name, "caption_") {
			t.Fatalf("leftover transient file %s", name)
		}
	}
	if job.FinishedAt.Before(job.StartedAt) {
		t.Fatalf("finish %v before start %v", job.FinishedAt, job.StartedAt)
	}
}

func TestRunMissingSynthesizerFailsAtSynthesizing(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	fake := testsupport.NewFakeMedia()
	fake.Missing["espeak"] = true
	orch := newOrchestrator(t, cfg, fake, nil)

	job, err := orch.Run(context.Background(), "John 3:16")
	requirePipelineError(t, err, pipeline.StageSynthesizing)
	if !errors.Is(err, services.ErrSynthesis) {
		t.Fatalf("expected synthesis error, got %v", err)
	}
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found in chain, got %v", err)
	}
	if job == nil || job.Stage != pipeline.StageFailed || job.FailedStage != pipeline.StageSynthesizing {
		t.Fatalf("unexpected job state: %+v", job)
	}
	if job.Audio != nil || job.Video != nil {
		t.Fatal("failed job must not carry artifacts")
	}
	if fileExists(pipeline.NormPath(cfg.Paths.OutputDir, job.ID)) || fileExists(pipeline.VideoPath(cfg.Paths.OutputDir, job.ID)) {
		t.Fatal("no normalized audio or video may exist after synthesis failure")
	}
	if calls := fake.CallsTo("ffmpeg"); len(calls) != 0 {
		t.Fatalf("ffmpeg must not run after synthesis failure, got %d calls", len(calls))
	}
}

func TestRunEmptyScriptFailsAtSynthesizing(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	orch := newOrchestrator(t, cfg, testsupport.NewFakeMedia(), nil)

	_, err := orch.Run(context.Background(), "   \n\t")
	requirePipelineError(t, err, pipeline.StageSynthesizing)
	if !errors.Is(err, services.ErrSynthesis) || !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected synthesis validation error, got %v", err)
	}
}

func TestRunTruncatesLongScript(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithScriptLimit(30, config.OverflowTruncate))
	fake := testsupport.NewFakeMedia()
	orch := newOrchestrator(t, cfg, fake, nil)

	long := "For God so loved the world that he gave his only begotten Son"
	job, err := orch.Run(context.Background(), long)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !job.Script.Truncated() || job.Script.Len() > 30 {
		t.Fatalf("expected script truncated to 30 runes, got %q", job.Script.Text())
	}

	calls := fake.CallsTo("espeak")
	if len(calls) != 1 {
		t.Fatalf("expected one synthesis call, got %d", len(calls))
	}
	spoken := calls[0].Args[len(calls[0].Args)-1]
	if spoken != job.Script.Text() {
		t.Fatalf("synthesizer got %q, want truncated %q", spoken, job.Script.Text())
	}

	truncated := testsupport.SpeechSeconds(job.Script.Text(), cfg.Synthesis.SpeechRate)
	full := testsupport.SpeechSeconds(long, cfg.Synthesis.SpeechRate)
	if math.Abs(job.Audio.DurationSeconds-truncated) > 0.05 {
		t.Fatalf("duration %.3f does not match truncated text (%.3f)", job.Audio.DurationSeconds, truncated)
	}
	if job.Audio.DurationSeconds >= full {
		t.Fatalf("duration %.3f should be shorter than the full script (%.3f)", job.Audio.DurationSeconds, full)
	}
}

func TestRunRejectsLongScript(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithScriptLimit(10, config.OverflowReject))
	fake := testsupport.NewFakeMedia()
	orch := newOrchestrator(t, cfg, fake, nil)

	job, err := orch.Run(context.Background(), "This script is far too long")
	requirePipelineError(t, err, pipeline.StageCreated)
	if !errors.Is(err, pipeline.ErrScriptTooLong) || !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected script length validation error, got %v", err)
	}
	if job.Stage != pipeline.StageFailed || job.FailedStage != pipeline.StageCreated {
		t.Fatalf("unexpected job state: %s/%s", job.Stage, job.FailedStage)
	}
	if len(fake.Calls()) != 0 {
		t.Fatalf("no process may run for a rejected script, got %d calls", len(fake.Calls()))
	}
}

func TestRunIsDeterministic(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	fake := testsupport.NewFakeMedia()
	orch := newOrchestrator(t, cfg, fake, nil)

	first, err := orch.Run(context.Background(), "In the beginning was the Word")
	if err != nil {
		t.Fatalf("first Run: %v", err)
	}
	second, err := orch.Run(context.Background(), "In the beginning was the Word")
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if first.ID == second.ID {
		t.Fatal("jobs must get distinct ids")
	}
	if math.Abs(first.Audio.DurationSeconds-second.Audio.DurationSeconds) > 0.05 {
		t.Fatalf("durations differ: %.3f vs %.3f", first.Audio.DurationSeconds, second.Audio.DurationSeconds)
	}

	calls := fake.CallsTo("espeak")
	if len(calls) != 2 {
		t.Fatalf("expected two synthesis calls, got %d", len(calls))
	}
	strip := func(args []string) string {
		out := make([]string, 0, len(args))
		for i := 0; i < len(args); i++ {
			if args[i] == "-w" {
				i++
				continue
			}
			out = append(out, args[i])
		}
		return strings.Join(out, " ")
	}
	if strip(calls[0].Args) != strip(calls[1].Args) {
		t.Fatalf("synthesis arguments differ:\n%v\n%v", calls[0].Args, calls[1].Args)
	}
}

func TestRunStageTimeout(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	fake := testsupport.NewFakeMedia()
	fake.Delay["espeak"] = 5 * time.Second
	orch := newOrchestrator(t, cfg, fake, func(opts *pipeline.Options) {
		opts.Timeouts.Synthesis = 20 * time.Millisecond
	})

	start := time.Now()
	job, err := orch.Run(context.Background(), "John 3:16")
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("timeout was not enforced, run took %s", elapsed)
	}
	requirePipelineError(t, err, pipeline.StageSynthesizing)
	if !errors.Is(err, services.ErrTimeout) || !errors.Is(err, services.ErrSynthesis) {
		t.Fatalf("expected synthesis timeout, got %v", err)
	}
	if job.Stage != pipeline.StageFailed {
		t.Fatalf("expected failed job, got %s", job.Stage)
	}
}

func TestRunNormalizationFailureRemovesRawAudio(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	fake := testsupport.NewFakeMedia()
	fake.Fail["ffmpeg"] = "Conversion failed!"
	orch := newOrchestrator(t, cfg, fake, nil)

	job, err := orch.Run(context.Background(), "John 3:16")
	requirePipelineError(t, err, pipeline.StageNormalizing)
	if !errors.Is(err, services.ErrNormalization) || !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected normalization tool error, got %v", err)
	}
	if !strings.Contains(err.Error(), "Conversion failed!") {
		t.Fatalf("expected tool stderr in error, got %v", err)
	}
	if fileExists(pipeline.AudioPath(cfg.Paths.OutputDir, job.ID)) {
		t.Fatal("raw audio should be removed after failure")
	}
}

func TestRunKeepsFailedArtifactsWhenConfigured(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Pipeline.KeepFailedArtifacts = true
	fake := testsupport.NewFakeMedia()
	fake.Fail["ffmpeg"] = "Conversion failed!"
	orch := newOrchestrator(t, cfg, fake, nil)

	job, err := orch.Run(context.Background(), "John 3:16")
	if err == nil {
		t.Fatal("expected failure")
	}
	if !fileExists(pipeline.AudioPath(cfg.Paths.OutputDir, job.ID)) {
		t.Fatal("raw audio should be kept for inspection")
	}
}

func TestRunRenderDriftFailsAtRendering(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	fake := testsupport.NewFakeMedia()
	fake.DriftFrames = 3
	orch := newOrchestrator(t, cfg, fake, nil)

	job, err := orch.Run(context.Background(), "John 3:16")
	requirePipelineError(t, err, pipeline.StageRendering)
	if !errors.Is(err, services.ErrRender) {
		t.Fatalf("expected render error, got %v", err)
	}
	dir := cfg.Paths.OutputDir
	if fileExists(pipeline.VideoPath(dir, job.ID)) || fileExists(pipeline.NormPath(dir, job.ID)) {
		t.Fatal("failed render must leave no video or normalized audio")
	}
}

func TestRunCancelledContext(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	orch := newOrchestrator(t, cfg, testsupport.NewFakeMedia(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := orch.Run(ctx, "John 3:16")
	requirePipelineError(t, err, pipeline.StageSynthesizing)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context cancellation, got %v", err)
	}
}

func TestBatchRunsJobsIndependently(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithIDScheme(config.IDSchemeCounter))
	fake := testsupport.NewFakeMedia()
	orch := newOrchestrator(t, cfg, fake, nil)

	scripts := []string{
		"John 3:16",
		"In the beginning was the Word",
		"",
		"The Lord is my shepherd",
		"Jesus wept",
	}
	report := orch.Batch(context.Background(), scripts, 2)
	if report.CorrelationID == "" {
		t.Fatal("expected correlation id")
	}
	if len(report.Results) != len(scripts) {
		t.Fatalf("expected %d results, got %d", len(scripts), len(report.Results))
	}
	if report.Failed() != 1 {
		t.Fatalf("expected exactly one failure, got %d: %v", report.Failed(), report.Err())
	}

	ids := make(map[string]struct{})
	for i, result := range report.Results {
		if result.Index != i {
			t.Fatalf("result %d has index %d", i, result.Index)
		}
		if result.Job == nil {
			t.Fatalf("result %d has no job", i)
		}
		if _, dup := ids[result.Job.ID]; dup {
			t.Fatalf("duplicate job id %s", result.Job.ID)
		}
		ids[result.Job.ID] = struct{}{}
		if i == 2 {
			requirePipelineError(t, result.Err, pipeline.StageSynthesizing)
			continue
		}
		if result.Err != nil {
			t.Fatalf("script %d failed: %v", i, result.Err)
		}
		if result.Job.Drift() > frameTolerance {
			t.Fatalf("script %d drifts %.6fs", i, result.Job.Drift())
		}
		if filepath.Dir(result.Job.Video.Path) != cfg.Paths.OutputDir {
			t.Fatalf("unexpected video path %s", result.Job.Video.Path)
		}
	}
}

func TestBatchCancelledBeforeStart(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	fake := testsupport.NewFakeMedia()
	orch := newOrchestrator(t, cfg, fake, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report := orch.Batch(ctx, []string{"one", "two", "three"}, 1)
	if report.Failed() != 3 {
		t.Fatalf("expected all scripts to fail, got %d", report.Failed())
	}
	for _, result := range report.Results {
		if !errors.Is(result.Err, context.Canceled) {
			t.Fatalf("expected cancellation, got %v", result.Err)
		}
	}
	if len(fake.Calls()) != 0 {
		t.Fatalf("no process may run after cancellation, got %d calls", len(fake.Calls()))
	}
}

func TestBatchCancelledWhileQueued(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	fake := testsupport.NewFakeMedia()
	fake.Delay["espeak"] = 5 * time.Second
	orch := newOrchestrator(t, cfg, fake, nil)
	ctx, cancel := context.WithCancel(context.Background())
	timer := time.AfterFunc(50*time.Millisecond, cancel)
	defer timer.Stop()

	report := orch.Batch(ctx, []string{"one", "two", "three"}, 1)
	if report.Failed() != 3 {
		t.Fatalf("expected all scripts to fail, got %d", report.Failed())
	}
	requirePipelineError(t, report.Results[0].Err, pipeline.StageSynthesizing)
	for _, result := range report.Results[1:] {
		requirePipelineError(t, result.Err, pipeline.StageCreated)
		if !errors.Is(result.Err, context.Canceled) {
			t.Fatalf("expected cancellation, got %v", result.Err)
		}
		if result.Job != nil {
			t.Fatalf("queued script %d must not create a job", result.Index)
		}
	}
	if calls := fake.CallsTo("espeak"); len(calls) != 1 {
		t.Fatalf("expected one synthesis before cancellation, got %d", len(calls))
	}
}
