// Package services holds the error markers and context keys every render
// stage shares.
//
// A stage failure carries one stage marker (ErrSynthesis, ErrNormalization,
// ErrProbe, ErrRender) and, when known, a cause marker such as ErrTimeout or
// ErrNotFound, so callers classify failures with errors.Is alone.
package services
