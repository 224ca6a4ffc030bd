package pipeline

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Stage is a render job lifecycle state.
type Stage string

const (
	StageCreated      Stage = "created"
	StageSynthesizing Stage = "synthesizing"
	StageNormalizing  Stage = "normalizing"
	StageProbing      Stage = "probing"
	StageRendering    Stage = "rendering"
	StageCompleted    Stage = "completed"
	StageFailed       Stage = "failed"
)

// stageOrder is the only forward path through the lifecycle.
var stageOrder = []Stage{
	StageCreated,
	StageSynthesizing,
	StageNormalizing,
	StageProbing,
	StageRendering,
	StageCompleted,
}

// Stages returns every stage in lifecycle order, ending with StageFailed.
func Stages() []Stage {
	out := make([]Stage, 0, len(stageOrder)+1)
	out = append(out, stageOrder...)
	return append(out, StageFailed)
}

// IsTerminal reports whether no further transition is possible.
func (s Stage) IsTerminal() bool {
	return s == StageCompleted || s == StageFailed
}

// Label renders the stage for display, e.g. "Synthesizing".
func (s Stage) Label() string {
	return cases.Title(language.English).String(strings.ReplaceAll(string(s), "_", " "))
}

func (s Stage) index() int {
	for i, stage := range stageOrder {
		if stage == s {
			return i
		}
	}
	return -1
}

// AudioArtifact is the normalized audio track. DurationSeconds is zero until
// the probing stage measures it.
type AudioArtifact struct {
	Path            string  `json:"path"`
	SampleRate      int     `json:"sample_rate"`
	Channels        int     `json:"channels"`
	BitDepth        int     `json:"bit_depth"`
	DurationSeconds float64 `json:"duration_seconds"`
}

// VideoArtifact is the rendered MP4.
type VideoArtifact struct {
	Path            string  `json:"path"`
	Width           int     `json:"width"`
	Height          int     `json:"height"`
	FPS             int     `json:"fps"`
	Frames          int     `json:"frames"`
	DurationSeconds float64 `json:"duration_seconds"`
}

// Job is one pipeline invocation. Only the orchestrator mutates it.
type Job struct {
	ID           string
	Script       Script
	Stage        Stage
	FailedStage  Stage
	RawAudioPath string
	Audio        *AudioArtifact
	Video        *VideoArtifact
	Err          error
	StartedAt    time.Time
	FinishedAt   time.Time
}

func newJob(id string, script Script, now time.Time) *Job {
	return &Job{
		ID:        id,
		Script:    script,
		Stage:     StageCreated,
		StartedAt: now,
	}
}

// advance moves the job to next, which must be the stage immediately after
// the current one.
func (j *Job) advance(next Stage) error {
	if j.Stage.IsTerminal() {
		return fmt.Errorf("job %s is %s; cannot move to %s", j.ID, j.Stage, next)
	}
	current := j.Stage.index()
	if current < 0 || next.index() != current+1 {
		return fmt.Errorf("job %s: invalid transition %s -> %s", j.ID, j.Stage, next)
	}
	j.Stage = next
	return nil
}

// fail records err against the current stage and makes the job terminal.
func (j *Job) fail(err error, now time.Time) {
	if j.Stage.IsTerminal() {
		return
	}
	j.FailedStage = j.Stage
	j.Stage = StageFailed
	j.Err = err
	j.FinishedAt = now
}

// Elapsed returns the wall time the job has run so far.
func (j *Job) Elapsed() time.Duration {
	if j.FinishedAt.IsZero() {
		return time.Since(j.StartedAt)
	}
	return j.FinishedAt.Sub(j.StartedAt)
}

// Drift is the absolute difference between video and audio duration, or -1
// when either artifact is missing.
func (j *Job) Drift() float64 {
	if j.Audio == nil || j.Video == nil {
		return -1
	}
	d := j.Video.DurationSeconds - j.Audio.DurationSeconds
	if d < 0 {
		d = -d
	}
	return d
}
