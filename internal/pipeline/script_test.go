package pipeline

import (
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"shortsync/internal/config"
	"shortsync/internal/services"
)

func TestNewScriptNormalizesAndTrims(t *testing.T) {
	// "e" followed by a combining acute accent composes to a single rune.
	script, err := NewScript("  Cafe\u0301 au lait \n", ScriptPolicy{MaxChars: 100, Overflow: config.OverflowTruncate})
	if err != nil {
		t.Fatalf("NewScript: %v", err)
	}
	if script.Text() != "Caf\u00e9 au lait" {
		t.Fatalf("unexpected text %q", script.Text())
	}
	if script.Len() != 12 || script.Truncated() {
		t.Fatalf("unexpected length %d truncated=%v", script.Len(), script.Truncated())
	}
}

func TestNewScriptTruncatesAtWordBoundary(t *testing.T) {
	tests := []struct {
		name  string
		input string
		limit int
		want  string
	}{
		{"cut mid word backs up", "the quick brown fox jumps", 12, "the quick"},
		{"cut on space keeps word", "the quick brown fox", 9, "the quick"},
		{"long single word hard cut", "abcdefghijklmnop", 5, "abcde"},
		{"multibyte counted in runes", "ééééé ééééé", 7, "ééééé"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			script, err := NewScript(tt.input, ScriptPolicy{MaxChars: tt.limit, Overflow: config.OverflowTruncate})
			if err != nil {
				t.Fatalf("NewScript: %v", err)
			}
			if script.Text() != tt.want {
				t.Fatalf("got %q, want %q", script.Text(), tt.want)
			}
			if !script.Truncated() || script.OriginalLen() != utf8.RuneCountInString(tt.input) {
				t.Fatalf("unexpected truncation metadata: %+v", script)
			}
			if script.Len() > tt.limit {
				t.Fatalf("script still %d runes, limit %d", script.Len(), tt.limit)
			}
		})
	}
}

func TestNewScriptRejectsOverLimit(t *testing.T) {
	_, err := NewScript(strings.Repeat("a", 11), ScriptPolicy{MaxChars: 10, Overflow: config.OverflowReject})
	if !errors.Is(err, ErrScriptTooLong) || !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected rejection, got %v", err)
	}
	if _, err := NewScript(strings.Repeat("a", 10), ScriptPolicy{MaxChars: 10, Overflow: config.OverflowReject}); err != nil {
		t.Fatalf("script at the limit should pass: %v", err)
	}
}

func TestNewScriptAllowsEmpty(t *testing.T) {
	script, err := NewScript("   ", ScriptPolicy{MaxChars: 10})
	if err != nil {
		t.Fatalf("NewScript: %v", err)
	}
	if script.Text() != "" {
		t.Fatalf("expected empty text, got %q", script.Text())
	}
}
