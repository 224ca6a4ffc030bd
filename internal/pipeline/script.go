package pipeline

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"shortsync/internal/config"
	"shortsync/internal/services"
)

// ErrScriptTooLong reports a script over the limit under the reject policy.
var ErrScriptTooLong = errors.New("script exceeds maximum length")

// ScriptPolicy bounds script length. Overflow is config.OverflowTruncate or
// config.OverflowReject.
type ScriptPolicy struct {
	MaxChars int
	Overflow string
}

// Script is the bounded, normalized text a job speaks and displays.
type Script struct {
	text        string
	originalLen int
	truncated   bool
}

// NewScript normalizes raw to NFC, trims it, and applies policy. Length is
// counted in runes. Empty text is accepted here; synthesis rejects it.
func NewScript(raw string, policy ScriptPolicy) (Script, error) {
	text := strings.TrimSpace(norm.NFC.String(raw))
	length := utf8.RuneCountInString(text)
	script := Script{text: text, originalLen: length}
	if policy.MaxChars <= 0 || length <= policy.MaxChars {
		return script, nil
	}
	if policy.Overflow == config.OverflowReject {
		return Script{}, fmt.Errorf("%w: %w: %d characters, limit %d", services.ErrValidation, ErrScriptTooLong, length, policy.MaxChars)
	}
	script.text = truncateWords(text, policy.MaxChars)
	script.truncated = true
	return script, nil
}

// Text returns the script text.
func (s Script) Text() string { return s.text }

// Len returns the script length in runes.
func (s Script) Len() int { return utf8.RuneCountInString(s.text) }

// OriginalLen returns the rune count before truncation.
func (s Script) OriginalLen() int { return s.originalLen }

// Truncated reports whether the overflow policy shortened the script.
func (s Script) Truncated() bool { return s.truncated }

// truncateWords cuts text to at most limit runes, backing up to the last
// word boundary unless that would discard more than half the text.
func truncateWords(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	cut := runes[:limit]
	if !unicode.IsSpace(runes[limit]) {
		for i := len(cut) - 1; i > limit/2; i-- {
			if unicode.IsSpace(cut[i]) {
				cut = cut[:i]
				break
			}
		}
	}
	return strings.TrimRightFunc(string(cut), unicode.IsSpace)
}
