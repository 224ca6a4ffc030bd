package pipeline

import (
	"fmt"

	"shortsync/internal/services"
)

// PipelineError is returned by Run. It names the stage that failed and
// wraps that stage's error unchanged.
type PipelineError struct {
	JobID string
	Stage Stage
	Err   error
}

func (e *PipelineError) Error() string {
	if e.JobID == "" {
		return fmt.Sprintf("%s failed: %v", e.Stage, e.Err)
	}
	return fmt.Sprintf("job %s: %s failed: %v", e.JobID, e.Stage, e.Err)
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

// stageMarker maps a stage to the services marker its errors carry.
func stageMarker(stage Stage) error {
	switch stage {
	case StageSynthesizing:
		return services.ErrSynthesis
	case StageNormalizing:
		return services.ErrNormalization
	case StageProbing:
		return services.ErrProbe
	case StageRendering:
		return services.ErrRender
	default:
		return nil
	}
}
