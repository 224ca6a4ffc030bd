package procexec_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"shortsync/internal/procexec"
	"shortsync/internal/services"
)

func TestRunCapturesStdout(t *testing.T) {
	runner := procexec.NewRunner()
	out, err := runner.Run(context.Background(), "sh", "-c", "printf hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(out.Stdout) != "hello" {
		t.Fatalf("unexpected stdout: %q", out.Stdout)
	}
}

func TestRunNonZeroExitCarriesStderr(t *testing.T) {
	runner := procexec.NewRunner()
	_, err := runner.Run(context.Background(), "sh", "-c", "echo 'bad input' >&2; exit 3")
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool marker, got %v", err)
	}
	var exitErr *procexec.ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("expected ExitError, got %T", err)
	}
	if exitErr.ExitCode != 3 || exitErr.Stderr != "bad input" {
		t.Fatalf("unexpected exit error: %+v", exitErr)
	}
	if !strings.Contains(err.Error(), "bad input") {
		t.Fatalf("expected stderr in message, got %q", err.Error())
	}
}

func TestRunMissingBinary(t *testing.T) {
	runner := procexec.NewRunner()
	_, err := runner.Run(context.Background(), filepath.Join(t.TempDir(), "no-such-tool"))
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found marker, got %v", err)
	}
}

func TestRunNonExecutableBinary(t *testing.T) {
	tool := filepath.Join(t.TempDir(), "espeak")
	if err := os.WriteFile(tool, []byte("#!/bin/sh\nexit 0\n"), 0o644); err != nil {
		t.Fatalf("write tool: %v", err)
	}
	_, err := procexec.NewRunner().Run(context.Background(), tool, "--version")
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration marker, got %v", err)
	}
	if errors.Is(err, services.ErrNotFound) {
		t.Fatalf("non-executable binary reported as missing: %v", err)
	}
	if !strings.Contains(err.Error(), "not executable") {
		t.Fatalf("expected permission wording, got %q", err.Error())
	}
}

func TestRunTimeoutKillsProcess(t *testing.T) {
	runner := procexec.NewRunner(procexec.WithWaitDelay(time.Second))
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := runner.Run(ctx, "sh", "-c", "sleep 10 & sleep 10")
	if !errors.Is(err, services.ErrTimeout) {
		t.Fatalf("expected timeout marker, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Fatalf("process group was not killed promptly: %s", elapsed)
	}
}

func TestRunnerFuncAdapter(t *testing.T) {
	var gotName string
	var gotArgs []string
	runner := procexec.RunnerFunc(func(_ context.Context, name string, args ...string) (procexec.Output, error) {
		gotName, gotArgs = name, args
		return procexec.Output{Stderr: []byte("  warn  \n")}, nil
	})
	out, err := runner.Run(context.Background(), "ffmpeg", "-version")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotName != "ffmpeg" || len(gotArgs) != 1 || gotArgs[0] != "-version" {
		t.Fatalf("unexpected call: %s %v", gotName, gotArgs)
	}
	if out.Diagnostic() != "warn" {
		t.Fatalf("unexpected diagnostic: %q", out.Diagnostic())
	}
}
