// Package deps locates the external programs a render drives and reads
// their version banners.
package deps

import (
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"shortsync/internal/config"
)

// Tool is one external program the pipeline executes.
type Tool struct {
	Name        string
	Binary      string
	Purpose     string
	VersionFlag string
}

// Status is the outcome of locating a Tool on PATH.
type Status struct {
	Tool
	// Path is the resolved executable; empty when Err is set.
	Path string
	Err  error
}

// Available reports whether the binary was found.
func (s Status) Available() bool { return s.Err == nil && s.Path != "" }

// ForConfig lists the tools the configured pipeline will run. The speech
// engine binary only matters for the espeak engine.
func ForConfig(cfg *config.Config) []Tool {
	var tools []Tool
	if cfg.Synthesis.Engine == config.EngineEspeak {
		tools = append(tools, Tool{
			Name:        "Speech engine",
			Binary:      cfg.Synthesis.Binary,
			Purpose:     "speech synthesis",
			VersionFlag: "--version",
		})
	}
	return append(tools,
		Tool{Name: "FFmpeg", Binary: cfg.Media.FFmpegBinary, Purpose: "normalization and rendering", VersionFlag: "-version"},
		Tool{Name: "FFprobe", Binary: cfg.Media.FFprobeBinary, Purpose: "duration measurement", VersionFlag: "-version"},
	)
}

// Locate resolves every tool binary through PATH.
func Locate(tools []Tool) []Status {
	statuses := make([]Status, 0, len(tools))
	for _, tool := range tools {
		tool.Binary = strings.TrimSpace(tool.Binary)
		status := Status{Tool: tool}
		if tool.Binary == "" {
			status.Err = errors.New("binary not configured")
		} else if path, err := exec.LookPath(tool.Binary); err != nil {
			status.Err = fmt.Errorf("%q not found on PATH (needed for %s)", tool.Binary, tool.Purpose)
		} else {
			status.Path = path
		}
		statuses = append(statuses, status)
	}
	return statuses
}

// Missing returns the names of tools that could not be located.
func Missing(statuses []Status) []string {
	var names []string
	for _, status := range statuses {
		if !status.Available() {
			names = append(names, status.Name)
		}
	}
	return names
}
