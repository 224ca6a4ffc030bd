package services

import (
	"errors"
	"fmt"
	"strings"
)

// Cause markers describe why an operation failed.
var (
	ErrExternalTool  = errors.New("external tool error")
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
	ErrNotFound      = errors.New("not found")
	ErrTimeout       = errors.New("timeout")
)

// Stage markers say which render stage failed. Every error a stage returns
// carries exactly one of them.
var (
	ErrSynthesis     = errors.New("synthesis error")
	ErrNormalization = errors.New("normalization error")
	ErrProbe         = errors.New("probe error")
	ErrRender        = errors.New("render error")
)

// Wrap tags err with marker and a "stage: operation: message" prefix. Blank
// parts are skipped; a nil marker adds only the prefix.
func Wrap(marker error, stage, operation, message string, err error) error {
	var parts []string
	for _, part := range []string{stage, operation, message} {
		if part = strings.TrimSpace(part); part != "" {
			parts = append(parts, part)
		}
	}
	detail := strings.Join(parts, ": ")
	switch {
	case marker != nil && err != nil:
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	case marker != nil:
		return fmt.Errorf("%w: %s", marker, detail)
	case err != nil && detail != "":
		return fmt.Errorf("%s: %w", detail, err)
	case err != nil:
		return err
	default:
		return errors.New(detail)
	}
}

// FailureHint suggests the next operator step for a failed render. Cause
// markers take precedence over stage markers.
func FailureHint(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrTimeout):
		return "the external process exceeded its limit; raise the matching [timeouts] value"
	case errors.Is(err, ErrNotFound):
		return "install the missing tool or fix the binary path in config, then run 'shortsync check'"
	case errors.Is(err, ErrConfiguration):
		return "fix the configuration file and retry"
	case errors.Is(err, ErrValidation):
		return "adjust the script text and retry"
	case errors.Is(err, ErrSynthesis):
		return "check the voice name and that the speech engine can write WAV output"
	case errors.Is(err, ErrRender):
		return "ffmpeg needs the color and drawtext filters; run 'shortsync check'"
	default:
		return "inspect the tool output in the error message"
	}
}
