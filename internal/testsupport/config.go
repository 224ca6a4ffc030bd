package testsupport

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"shortsync/internal/config"
)

// ConfigOption adjusts the configuration NewConfig returns.
type ConfigOption func(t testing.TB, base string, cfg *config.Config)

// NewConfig returns defaults rooted in a fresh temp directory: artifacts go
// to <tmp>/outputs, nothing is logged to disk and speech comes from the
// espeak CLI.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.OutputDir = filepath.Join(base, "outputs")
	cfg.Paths.LogDir = ""
	cfg.Synthesis.Engine = config.EngineEspeak
	cfg.Synthesis.Binary = "espeak"

	for _, opt := range opts {
		opt(t, base, &cfg)
	}
	return &cfg
}

// BaseDir returns the temp directory NewConfig rooted cfg in.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.OutputDir)
}

func WithScriptLimit(maxChars int, overflow string) ConfigOption {
	return func(_ testing.TB, _ string, cfg *config.Config) {
		cfg.Script.MaxChars = maxChars
		cfg.Script.Overflow = overflow
	}
}

func WithIDScheme(scheme string) ConfigOption {
	return func(_ testing.TB, _ string, cfg *config.Config) {
		cfg.Jobs.IDScheme = scheme
	}
}

// WithStubbedBinaries puts no-op executables for names (espeak, ffmpeg and
// ffprobe when none are given) at the front of PATH so binary lookups pass.
// The stubs never run: tests execute tools through FakeMedia.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(t testing.TB, base string, _ *config.Config) {
		if len(names) == 0 {
			names = []string{"espeak", "ffmpeg", "ffprobe"}
		}
		binDir := filepath.Join(base, "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			t.Fatalf("mkdir bin dir: %v", err)
		}
		for _, name := range names {
			if err := os.WriteFile(filepath.Join(binDir, name), []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
				t.Fatalf("write stub %s: %v", name, err)
			}
		}
		t.Setenv("PATH", strings.Join([]string{binDir, os.Getenv("PATH")}, string(os.PathListSeparator)))
	}
}
