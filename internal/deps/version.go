package deps

import (
	"context"
	"fmt"
	"strings"

	"shortsync/internal/procexec"
)

// Version runs binary with flag and returns the first non-empty line of its
// output, e.g. "ffmpeg version 6.1.1". espeak prints its banner on stdout,
// some builds on stderr, so both are consulted.
func Version(ctx context.Context, runner procexec.Runner, binary, flag string) (string, error) {
	out, err := runner.Run(ctx, binary, flag)
	if err != nil {
		return "", fmt.Errorf("%s %s: %w", binary, flag, err)
	}
	for _, stream := range [][]byte{out.Stdout, out.Stderr} {
		for _, line := range strings.Split(string(stream), "\n") {
			if line = strings.TrimSpace(line); line != "" {
				return line, nil
			}
		}
	}
	return "", fmt.Errorf("%s %s: no version output", binary, flag)
}
