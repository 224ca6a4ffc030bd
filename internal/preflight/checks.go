package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"shortsync/internal/procexec"
)

// requiredFilters are the lavfi source and overlay the renderer uses.
// drawtext is missing from ffmpeg builds without libfreetype.
var requiredFilters = []string{"color", "drawtext"}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckFFmpegFilters verifies the ffmpeg build provides the filters the
// renderer needs.
func CheckFFmpegFilters(ctx context.Context, runner procexec.Runner, binary string) Result {
	const name = "FFmpeg filters"
	checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	out, err := runner.Run(checkCtx, binary, "-hide_banner", "-filters")
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("filter listing failed (%v)", err)}
	}
	available := parseFilterNames(string(out.Stdout))
	var missing []string
	for _, filter := range requiredFilters {
		if _, ok := available[filter]; !ok {
			missing = append(missing, filter)
		}
	}
	if len(missing) > 0 {
		return Result{Name: name, Detail: "missing " + strings.Join(missing, ", ")}
	}
	return Result{Name: name, Passed: true, Detail: strings.Join(requiredFilters, ", ")}
}

// parseFilterNames reads `ffmpeg -filters` rows of the form
// " T.. drawtext  V->V  Draw text on top of video frames".
func parseFilterNames(listing string) map[string]struct{} {
	names := make(map[string]struct{})
	for _, line := range strings.Split(listing, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 3 || !strings.Contains(fields[2], "->") {
			continue
		}
		names[fields[1]] = struct{}{}
	}
	return names
}

// CheckSynthesisEndpoint verifies the speech server answers HTTP at all.
// Any response below 500 counts as reachable, since the synthesis route
// typically rejects a bare GET.
func CheckSynthesisEndpoint(ctx context.Context, endpoint string) Result {
	const name = "Synthesis server"
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return Result{Name: name, Detail: "missing url"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	client := &http.Client{Timeout: 5 * time.Second}
	req, err := http.NewRequestWithContext(checkCtx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("request failed (%v)", err)}
	}
	resp, err := client.Do(req)
	if err != nil {
		return Result{Name: name, Detail: summarizeHTTPError(err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return Result{Name: name, Detail: fmt.Sprintf("server error (%d)", resp.StatusCode)}
	}
	return Result{Name: name, Passed: true, Detail: "Reachable"}
}

func summarizeHTTPError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "health check timed out (synthesis server unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "health check timed out (synthesis server unreachable)"
	}
	return err.Error()
}
