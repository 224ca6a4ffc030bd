package main

import (
	"errors"

	"shortsync/internal/pipeline"
	"shortsync/internal/services"
)

// jobView is the JSON shape of one render job.
type jobView struct {
	Index        *int                    `json:"index,omitempty"`
	JobID        string                  `json:"job_id,omitempty"`
	Stage        string                  `json:"stage"`
	FailedStage  string                  `json:"failed_stage,omitempty"`
	ScriptChars  int                     `json:"script_chars"`
	Truncated    bool                    `json:"truncated"`
	RawAudioPath string                  `json:"raw_audio_path,omitempty"`
	Audio        *pipeline.AudioArtifact `json:"audio,omitempty"`
	Video        *pipeline.VideoArtifact `json:"video,omitempty"`
	DriftSeconds *float64                `json:"drift_seconds,omitempty"`
	ElapsedMS    int64                   `json:"elapsed_ms"`
	Error        string                  `json:"error,omitempty"`
	ErrorHint    string                  `json:"error_hint,omitempty"`
}

func newJobView(job *pipeline.Job, err error) jobView {
	view := jobView{Stage: string(pipeline.StageFailed)}
	if job != nil {
		view.JobID = job.ID
		view.Stage = string(job.Stage)
		view.ScriptChars = job.Script.Len()
		view.Truncated = job.Script.Truncated()
		view.RawAudioPath = job.RawAudioPath
		view.Audio = job.Audio
		view.Video = job.Video
		view.ElapsedMS = job.Elapsed().Milliseconds()
		if job.FailedStage != "" {
			view.FailedStage = string(job.FailedStage)
		}
		if drift := job.Drift(); drift >= 0 {
			view.DriftSeconds = &drift
		}
	}
	if err != nil {
		view.Error = err.Error()
		view.ErrorHint = services.FailureHint(err)
		var pipeErr *pipeline.PipelineError
		if view.FailedStage == "" && errors.As(err, &pipeErr) {
			view.FailedStage = string(pipeErr.Stage)
		}
	}
	return view
}
