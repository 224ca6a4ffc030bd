package procexec

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"shortsync/internal/logging"
	"shortsync/internal/services"
)

const (
	defaultWaitDelay = 5 * time.Second
	stderrTailBytes  = 2048
)

// Output captures a finished process.
type Output struct {
	Stdout   []byte
	Stderr   []byte
	Duration time.Duration
}

// Runner executes an external program and waits for it to exit.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (Output, error)
}

// RunnerFunc adapts a function to the Runner interface.
type RunnerFunc func(ctx context.Context, name string, args ...string) (Output, error)

// Run calls f.
func (f RunnerFunc) Run(ctx context.Context, name string, args ...string) (Output, error) {
	return f(ctx, name, args...)
}

// ExitError reports a process that ran but exited unsuccessfully.
type ExitError struct {
	Name     string
	ExitCode int
	Stderr   string
}

func (e *ExitError) Error() string {
	if e.Stderr == "" {
		return fmt.Sprintf("%s exited with status %d", e.Name, e.ExitCode)
	}
	return fmt.Sprintf("%s exited with status %d: %s", e.Name, e.ExitCode, e.Stderr)
}

// ExecRunner runs programs with os/exec. Each process is started in its own
// process group and the whole group is killed when the context ends.
type ExecRunner struct {
	logger    *slog.Logger
	waitDelay time.Duration
}

// Option configures an ExecRunner.
type Option func(*ExecRunner)

// WithLogger attaches a logger for command tracing.
func WithLogger(logger *slog.Logger) Option {
	return func(r *ExecRunner) {
		r.logger = logging.NewComponentLogger(logger, "procexec")
	}
}

// WithWaitDelay bounds how long Run waits for output pipes after a kill.
func WithWaitDelay(d time.Duration) Option {
	return func(r *ExecRunner) {
		if d > 0 {
			r.waitDelay = d
		}
	}
}

// NewRunner constructs an ExecRunner.
func NewRunner(opts ...Option) *ExecRunner {
	r := &ExecRunner{logger: logging.NewNop(), waitDelay: defaultWaitDelay}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// Run executes name with args. Failures are classified with services markers:
// ErrNotFound when the binary does not exist, ErrConfiguration when it exists
// but is not executable, ErrTimeout when the context deadline killed it, and
// ErrExternalTool wrapping *ExitError for non-zero exits.
func (r *ExecRunner) Run(ctx context.Context, name string, args ...string) (Output, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		if cmd.Process == nil {
			return nil
		}
		if err := unix.Kill(-cmd.Process.Pid, unix.SIGKILL); err != nil && !errors.Is(err, unix.ESRCH) {
			return cmd.Process.Kill()
		}
		return nil
	}
	cmd.WaitDelay = r.waitDelay

	logger := logging.WithContext(ctx, r.logger)
	logger.Debug("command started", logging.String("command", commandLine(name, args)))

	start := time.Now()
	err := cmd.Run()
	out := Output{Stdout: stdout.Bytes(), Stderr: stderr.Bytes(), Duration: time.Since(start)}
	if err == nil {
		logger.Debug("command finished", logging.Duration("elapsed", out.Duration))
		return out, nil
	}

	switch {
	case errors.Is(err, fs.ErrPermission):
		return out, fmt.Errorf("%w: start %s: not executable: %w", services.ErrConfiguration, name, err)
	case errors.Is(err, exec.ErrNotFound), errors.Is(err, fs.ErrNotExist):
		return out, fmt.Errorf("%w: start %s: %w", services.ErrNotFound, name, err)
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return out, fmt.Errorf("%w: %s killed after %s", services.ErrTimeout, name, out.Duration.Round(time.Millisecond))
	case errors.Is(ctx.Err(), context.Canceled):
		return out, fmt.Errorf("%s: %w", name, context.Canceled)
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return out, fmt.Errorf("%w: %w", services.ErrExternalTool, &ExitError{
			Name:     name,
			ExitCode: exitErr.ExitCode(),
			Stderr:   tail(out.Stderr),
		})
	}
	return out, fmt.Errorf("%w: run %s: %w", services.ErrExternalTool, name, err)
}

// Diagnostic returns the trimmed tail of a process's stderr.
func (o Output) Diagnostic() string {
	return tail(o.Stderr)
}

func tail(stderr []byte) string {
	trimmed := bytes.TrimSpace(stderr)
	if len(trimmed) > stderrTailBytes {
		trimmed = trimmed[len(trimmed)-stderrTailBytes:]
	}
	return string(trimmed)
}

func commandLine(name string, args []string) string {
	parts := make([]string, 0, len(args)+1)
	parts = append(parts, name)
	for _, arg := range args {
		if strings.ContainsAny(arg, " \t'\"") {
			arg = fmt.Sprintf("%q", arg)
		}
		parts = append(parts, arg)
	}
	return strings.Join(parts, " ")
}
